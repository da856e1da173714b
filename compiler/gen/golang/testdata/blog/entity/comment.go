package entity

// Comment is a reader comment on a post.
type Comment struct {
	id     *int
	post   *Post `validate:"required"`
	text   string
	rating int `validate:"min=1,max=5"`
}
