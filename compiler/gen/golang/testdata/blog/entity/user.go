package entity

import "time"

// Timestamps records creation time.
type Timestamps struct {
	createdAt time.Time
}

// CreatedAt returns the creation time.
func (t Timestamps) CreatedAt() time.Time {
	return t.createdAt
}

// User writes posts.
type User struct {
	Timestamps

	id    *int
	email string
	posts []*Post
}
