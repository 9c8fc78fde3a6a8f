// Package content stores blog posts and applies the author-only edit rule.
package content

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
)

// Sentinel error kinds.
var (
	ErrNotFound     = errors.New("post not found")
	ErrInvalidInput = errors.New("invalid post")
)

// ListLimit is how many posts List returns, newest first.
const ListLimit = 20

const (
	maxTitle   = 300
	maxSummary = 2000
	maxCover   = 2048
	maxContent = 512 * 1024
)

// Post is a blog entry. AuthorID is immutable after creation.
type Post struct {
	ID         ulid.ULID
	Title      string
	Summary    string
	Content    string
	Cover      string
	AuthorID   ulid.ULID
	AuthorName string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Draft carries the editable fields of a post.
type Draft struct {
	Title   string
	Summary string
	Content string
	Cover   string
}

// NewPost is what a store persists on create.
type NewPost struct {
	Draft
	AuthorID   ulid.ULID
	AuthorName string
	Now        time.Time
}

// Validate checks field limits. A title is required.
func (d Draft) Validate() error {
	switch {
	case d.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	case utf8.RuneCountInString(d.Title) > maxTitle:
		return fmt.Errorf("%w: title must be at most %d characters", ErrInvalidInput, maxTitle)
	case utf8.RuneCountInString(d.Summary) > maxSummary:
		return fmt.Errorf("%w: summary must be at most %d characters", ErrInvalidInput, maxSummary)
	case len(d.Cover) > maxCover:
		return fmt.Errorf("%w: cover must be at most %d bytes", ErrInvalidInput, maxCover)
	case len(d.Content) > maxContent:
		return fmt.Errorf("%w: content must be at most %d bytes", ErrInvalidInput, maxContent)
	}
	return nil
}

// apply merges d onto p. An empty cover keeps the existing one.
func (d Draft) apply(p Post, now time.Time) Post {
	p.Title = d.Title
	p.Summary = d.Summary
	p.Content = d.Content
	if d.Cover != "" {
		p.Cover = d.Cover
	}
	p.UpdatedAt = now
	return p
}

// IsNotFound reports whether err represents ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsInvalidInput reports whether err represents ErrInvalidInput.
func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }
