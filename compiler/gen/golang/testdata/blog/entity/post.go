package entity

import "strings"

// Post is a blog article.
type Post struct {
	Base

	title    string `validate:"required,max=200"`
	body     *string
	author   *User `validate:"required"`
	tags     []*Tag
	comments []*Comment
}

// Title returns the trimmed title.
func (p *Post) Title() string {
	return strings.TrimSpace(p.title)
}

// Summary returns the first line of the body.
func (p *Post) Summary() string {
	if p.body == nil {
		return ""
	}
	line, _, _ := strings.Cut(*p.body, "\n")
	return line
}
