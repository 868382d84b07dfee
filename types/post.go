package types

import "time"

// Post represents a blog post.
// Drafts (IsPublished == false) are visible only through the admin surface;
// the public API serves published posts ordered by publication date.
type Post struct {
	// ID is the unique identifier of the post.
	ID int `json:"id" db:"id"`

	// Title is the human-readable title of the post.
	Title string `json:"title" db:"title"`

	// Slug is the unique URL-safe identifier derived from the title.
	Slug string `json:"slug" db:"slug"`

	// Summary is a short plain-text teaser shown in post listings.
	Summary string `json:"summary" db:"summary"`

	// Content is the full body of the post.
	Content string `json:"content" db:"content"`

	// AuthorID references the user who created the post.
	AuthorID int `json:"author_id" db:"author_id"`

	// AuthorUsername is the author's login name, denormalized into
	// API responses for the post list and detail pages.
	AuthorUsername string `json:"author_username,omitempty" db:"-"`

	// IsPublished indicates whether the post is publicly visible.
	IsPublished bool `json:"is_published" db:"is_published"`

	// PublishedAt is set the first time the post transitions to
	// published and is never cleared afterwards.
	PublishedAt *time.Time `json:"published_at,omitempty" db:"published_at"`

	// CreatedAt is the timestamp at which the post was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the post.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
