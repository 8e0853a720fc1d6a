// Package posts implements the blog's core domain: posts, tags, and the
// many-to-many association between them. Reads are public; all mutations
// require an authenticated caller.
package posts

import (
	"time"
)

// Tag is a label that can be attached to any number of posts. Names are
// unique across all tags (case-sensitive exact match, enforced by a unique
// index).
type Tag struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Post is a blog entry with an unordered, duplicate-free set of tags.
// Tags is always populated on reads and on mutation responses; an untagged
// post carries an empty slice, never nil, so clients see [] rather than null.
type Post struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Summary   *string   `json:"summary,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Tags      []Tag     `json:"tags"`
}

// --- Request DTOs (bound from HTTP requests) ---

// CreateTagRequest holds the data submitted to create a tag.
type CreateTagRequest struct {
	Name string `json:"name"`
}

// PostRequest holds the data submitted to create or update a post. The same
// shape serves both: an update replaces title/content/summary and the tag
// set unconditionally.
type PostRequest struct {
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Summary *string `json:"summary,omitempty"`
	TagIDs  []int64 `json:"tag_ids"`
}

// --- Service Input DTOs ---

// PostInput is the validated input for creating or updating a post.
type PostInput struct {
	Title   string
	Content string
	Summary *string
	TagIDs  []int64
}
