package models

import (
	"strings"
	"time"
)

// Post is a blog article owned by its author.
type Post struct {
	ID      string `gorm:"primaryKey;size:36" json:"id"`
	Title   string `gorm:"size:50;not null" json:"title"`
	Summary string `gorm:"size:500;not null" json:"summary"`
	Content string `gorm:"type:text;not null" json:"content"`
	// Cover is the object key of the cover image.
	Cover string `gorm:"size:128" json:"cover"`
	// ImageURL is presigned on every read; it is never stored.
	ImageURL  string    `gorm:"-" json:"imageUrl,omitempty"`
	AuthorID  string    `gorm:"size:36;not null;index" json:"-"`
	Author    *User     `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PostFields are the user editable parts of a post.
type PostFields struct {
	Title   string `json:"title" validate:"required,min=10,max=50"`
	Summary string `json:"summary" validate:"required,min=50,max=500"`
	Content string `json:"content" validate:"required,min=1000"`
}

var postMessages = map[string]string{
	"title.required":   "Title is required!",
	"title.min":        "Title should have minimum 10 characters.",
	"title.max":        "Title can have maximum 50 characters.",
	"summary.required": "Summary is required!",
	"summary.min":      "Summary should have minimum 50 characters.",
	"summary.max":      "Summary can have maximum 500 characters.",
	"content.required": "Content is required!",
	"content.min":      "Content should have minimum 1000 characters.",
}

// Normalize trims every field and passes it through clean, typically an HTML sanitiser.
// Validate afterwards, so length limits apply to the text that gets stored.
func (f *PostFields) Normalize(clean func(string) string) {
	for _, p := range []*string{&f.Title, &f.Summary, &f.Content} {
		v := strings.TrimSpace(*p)
		if clean != nil {
			v = strings.TrimSpace(clean(v))
		}
		*p = v
	}
}

// Validate returns every violated constraint, or nil.
func (f PostFields) Validate() ValidationErrors {
	return check(f, postMessages)
}

// Fields returns the editable fields of p.
func (p *Post) Fields() PostFields {
	return PostFields{Title: p.Title, Summary: p.Summary, Content: p.Content}
}

// Apply copies f onto p.
func (p *Post) Apply(f PostFields) {
	p.Title = f.Title
	p.Summary = f.Summary
	p.Content = f.Content
}
