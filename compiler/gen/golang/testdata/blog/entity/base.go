package entity

// Base holds the identifier shared by persisted entities.
type Base struct {
	id *int
}

// ID returns the identifier, nil until the entity is persisted.
func (b *Base) ID() *int {
	return b.id
}
