// Package card holds the per-product card state: the like toggle and the
// comment thread, hydrated from a key-value Store and written back after
// every mutation.
package card

import (
	"context"
	"errors"
	"strings"
)

// DateLayout is the display format of comment and reply timestamps.
const DateLayout = "2006-01-02 15:04:05"

// Product is the read-only input a card is rendered for.
type Product struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	ImageURL    string `json:"image_url" yaml:"image_url"`
}

// Comment is a top-level entry of a card's thread.
type Comment struct {
	ID      string  `json:"id"`
	Text    string  `json:"text"`
	Date    string  `json:"date"`
	Likes   int     `json:"likes"`
	Replies []Reply `json:"replies"`
}

// Reply belongs to exactly one comment. ReplyTo is a label, not a link
// that is ever followed.
type Reply struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Date    string `json:"date"`
	ReplyTo string `json:"replyTo"`
}

// Target is the comment currently being edited or replied to, together
// with the text typed so far.
type Target struct {
	CommentID string `json:"comment_id"`
	Text      string `json:"text"`
}

type SortOrder string

const (
	SortNone  SortOrder = "none"
	SortDate  SortOrder = "date"
	SortLikes SortOrder = "likes"
)

var ErrInvalidSortOrder = errors.New("invalid sort order")

// ParseSortOrder accepts the short names and the long by-*-desc spellings.
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return SortNone, nil
	case "date", "by-date-desc":
		return SortDate, nil
	case "likes", "by-likes-desc":
		return SortLikes, nil
	default:
		return "", ErrInvalidSortOrder
	}
}

// Store is the persistent key-value capability a card reads and writes.
// Get reports ok=false for a missing key.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

func likesKey(productID string) string    { return "likes-" + productID }
func likedKey(productID string) string    { return "liked-" + productID }
func commentsKey(productID string) string { return "comments-" + productID }

// View is what the renderer needs to draw a card.
type View struct {
	Product  Product   `json:"product"`
	Likes    int       `json:"likes"`
	Liked    bool      `json:"liked"`
	Sort     SortOrder `json:"sort"`
	Comments []Comment `json:"comments"`
	Editing  *Target   `json:"editing,omitempty"`
	Replying *Target   `json:"replying,omitempty"`
}

func cloneComment(c Comment) Comment {
	out := c
	out.Replies = make([]Reply, len(c.Replies))
	copy(out.Replies, c.Replies)
	return out
}

func cloneComments(in []Comment) []Comment {
	out := make([]Comment, len(in))
	for i, c := range in {
		out[i] = cloneComment(c)
	}
	return out
}

func cloneTarget(t *Target) *Target {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
