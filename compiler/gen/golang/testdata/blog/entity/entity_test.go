package entity

// Fixture ignored by the reflector.
type fixture struct{}
