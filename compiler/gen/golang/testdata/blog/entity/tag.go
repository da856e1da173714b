package entity

// Tag labels posts.
type Tag struct {
	id    *int
	name  string `validate:"notblank"`
	posts []*Post
}

// NewTag returns a tag with the given name.
func NewTag(name string) *Tag {
	return &Tag{name: name}
}
