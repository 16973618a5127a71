package card

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Card owns the mutable state of one product's card. It is not safe for
// concurrent use; see Registry.
//
// Every mutation writes the affected keys to the Store before returning,
// so the persisted state always equals the in-memory state once a call
// has completed. A mutation whose target comment does not exist changes
// nothing and writes nothing.
type Card struct {
	product Product
	store   Store
	newID   func() string
	now     func() time.Time
	log     *zap.Logger

	likes    int
	liked    bool
	comments []Comment
	sort     SortOrder
	editing  *Target
	replying *Target
}

type Option func(*Card)

// WithIDGenerator replaces uuid.NewString as the comment and reply id source.
func WithIDGenerator(fn func() string) Option {
	return func(c *Card) { c.newID = fn }
}

// WithClock replaces time.Now for comment and reply timestamps.
func WithClock(fn func() time.Time) Option {
	return func(c *Card) { c.now = fn }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Card) { c.log = log }
}

// Load hydrates the card for product from store. Missing keys, and an
// empty comments value, yield the default state. A likes value that is not an integer is read as 0. A
// comments value that cannot be decoded is an error: the card is not
// built, so the damaged value is never overwritten by a later mutation.
func Load(ctx context.Context, store Store, product Product, opts ...Option) (*Card, error) {
	c := &Card{
		product:  product,
		store:    store,
		newID:    uuid.NewString,
		now:      time.Now,
		log:      zap.NewNop(),
		sort:     SortNone,
		comments: []Comment{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(zap.String("product_id", product.ID))

	raw, ok, err := store.Get(ctx, likesKey(product.ID))
	if err != nil {
		return nil, fmt.Errorf("read likes: %w", err)
	}
	if ok {
		n, perr := strconv.Atoi(strings.TrimSpace(raw))
		if perr != nil {
			c.log.Warn("card: malformed likes value, using 0", zap.String("value", raw))
		} else {
			c.likes = n
		}
	}

	raw, ok, err = store.Get(ctx, likedKey(product.ID))
	if err != nil {
		return nil, fmt.Errorf("read liked: %w", err)
	}
	c.liked = ok && raw == "true"

	raw, ok, err = store.Get(ctx, commentsKey(product.ID))
	if err != nil {
		return nil, fmt.Errorf("read comments: %w", err)
	}
	if ok && strings.TrimSpace(raw) != "" {
		comments, derr := DecodeComments(raw)
		if derr != nil {
			return nil, fmt.Errorf("hydrate %s: %w", product.ID, derr)
		}
		c.comments = comments
	}
	return c, nil
}

func (c *Card) Product() Product { return c.product }
func (c *Card) Likes() int        { return c.likes }
func (c *Card) Liked() bool       { return c.liked }
func (c *Card) Sort() SortOrder   { return c.sort }

// Editing returns the current edit target, or nil.
func (c *Card) Editing() *Target { return cloneTarget(c.editing) }

// Replying returns the current reply target, or nil.
func (c *Card) Replying() *Target { return cloneTarget(c.replying) }

// ToggleLike flips the liked flag and moves the count by one in the same
// direction. The count has no floor. If the liked write fails the stored
// count is put back to its previous value.
func (c *Card) ToggleLike(ctx context.Context) error {
	likes, liked := c.likes+1, true
	if c.liked {
		likes, liked = c.likes-1, false
	}
	if err := c.store.Set(ctx, likesKey(c.product.ID), strconv.Itoa(likes)); err != nil {
		return fmt.Errorf("write likes: %w", err)
	}
	if err := c.store.Set(ctx, likedKey(c.product.ID), strconv.FormatBool(liked)); err != nil {
		if rerr := c.store.Set(ctx, likesKey(c.product.ID), strconv.Itoa(c.likes)); rerr != nil {
			c.log.Error("card: likes rollback failed", zap.Int("likes", c.likes), zap.Error(rerr))
		}
		return fmt.Errorf("write liked: %w", err)
	}
	c.likes, c.liked = likes, liked
	return nil
}

// SubmitComment appends a comment with the trimmed text. Blank input is
// ignored and reported with created=false.
func (c *Card) SubmitComment(ctx context.Context, raw string) (Comment, bool, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Comment{}, false, nil
	}
	cm := Comment{
		ID:      c.newID(),
		Text:    text,
		Date:    c.now().Format(DateLayout),
		Likes:   0,
		Replies: []Reply{},
	}
	next := append(cloneComments(c.comments), cm)
	if err := c.persist(ctx, next); err != nil {
		return Comment{}, false, err
	}
	return cloneComment(cm), true, nil
}

// DeleteComment removes the comment and its replies.
func (c *Card) DeleteComment(ctx context.Context, commentID string) error {
	i := c.indexOf(commentID)
	if i < 0 {
		return nil
	}
	next := make([]Comment, 0, len(c.comments)-1)
	next = append(next, c.comments[:i]...)
	next = append(next, c.comments[i+1:]...)
	if err := c.persist(ctx, next); err != nil {
		return err
	}
	if c.editing != nil && c.editing.CommentID == commentID {
		c.editing = nil
	}
	if c.replying != nil && c.replying.CommentID == commentID {
		c.replying = nil
	}
	return nil
}

// BeginEdit makes commentID the single edit target, seeding the buffer
// with its current text. It replaces any previous edit target.
func (c *Card) BeginEdit(commentID string) bool {
	i := c.indexOf(commentID)
	if i < 0 {
		return false
	}
	c.editing = &Target{CommentID: commentID, Text: c.comments[i].Text}
	return true
}

// SetEditText updates the edit buffer. It does nothing when no edit is open.
func (c *Card) SetEditText(text string) {
	if c.editing != nil {
		c.editing.Text = text
	}
}

// CancelEdit drops the edit target without saving.
func (c *Card) CancelEdit() { c.editing = nil }

// SaveEdit replaces the comment's text with text as given: no trimming,
// and empty text is allowed. Only the text changes. The edit target is
// cleared afterwards.
func (c *Card) SaveEdit(ctx context.Context, commentID, text string) error {
	i := c.indexOf(commentID)
	if i < 0 {
		c.clearEdit(commentID)
		return nil
	}
	next := cloneComments(c.comments)
	next[i].Text = text
	if err := c.persist(ctx, next); err != nil {
		return err
	}
	c.clearEdit(commentID)
	return nil
}

// SaveEditBuffer saves the edit target's buffered text.
func (c *Card) SaveEditBuffer(ctx context.Context) error {
	if c.editing == nil {
		return nil
	}
	return c.SaveEdit(ctx, c.editing.CommentID, c.editing.Text)
}

func (c *Card) clearEdit(commentID string) {
	if c.editing != nil && c.editing.CommentID == commentID {
		c.editing = nil
	}
}

// LikeComment adds one like. Comment likes cannot be taken back.
func (c *Card) LikeComment(ctx context.Context, commentID string) error {
	i := c.indexOf(commentID)
	if i < 0 {
		return nil
	}
	next := cloneComments(c.comments)
	next[i].Likes++
	return c.persist(ctx, next)
}

// BeginReply makes commentID the single reply target with an empty buffer.
func (c *Card) BeginReply(commentID string) bool {
	if c.indexOf(commentID) < 0 {
		return false
	}
	c.replying = &Target{CommentID: commentID}
	return true
}

// SetReplyText updates the reply buffer. It does nothing when no reply is open.
func (c *Card) SetReplyText(text string) {
	if c.replying != nil {
		c.replying.Text = text
	}
}

// CancelReply drops the reply target and its buffer.
func (c *Card) CancelReply() { c.replying = nil }

// SubmitReply appends a reply to commentID. The text is stored as given,
// empty included. created is false when the comment does not exist.
func (c *Card) SubmitReply(ctx context.Context, commentID, text string) (Reply, bool, error) {
	i := c.indexOf(commentID)
	if i < 0 {
		return Reply{}, false, nil
	}
	r := Reply{
		ID:      c.newID(),
		Text:    text,
		Date:    c.now().Format(DateLayout),
		ReplyTo: commentID,
	}
	next := cloneComments(c.comments)
	next[i].Replies = append(next[i].Replies, r)
	if err := c.persist(ctx, next); err != nil {
		return Reply{}, false, err
	}
	c.replying = nil
	return r, true, nil
}

// SubmitReplyBuffer submits the reply target's buffered text.
func (c *Card) SubmitReplyBuffer(ctx context.Context) (Reply, bool, error) {
	if c.replying == nil {
		return Reply{}, false, nil
	}
	return c.SubmitReply(ctx, c.replying.CommentID, c.replying.Text)
}

// SetSortOrder changes the display order only; storage order is untouched.
func (c *Card) SetSortOrder(order SortOrder) { c.sort = order }

// Comments returns a copy of the thread in display order.
func (c *Card) Comments() []Comment {
	return sortComments(cloneComments(c.comments), c.sort)
}

// StoredComments returns a copy of the thread in insertion order.
func (c *Card) StoredComments() []Comment {
	return cloneComments(c.comments)
}

// ViewSorted is View with comments in order, leaving the card's own sort
// order untouched.
func (c *Card) ViewSorted(order SortOrder) View {
	v := c.View()
	v.Sort = order
	v.Comments = sortComments(cloneComments(c.comments), order)
	return v
}

func (c *Card) View() View {
	return View{
		Product:  c.product,
		Likes:    c.likes,
		Liked:    c.liked,
		Sort:     c.sort,
		Comments: c.Comments(),
		Editing:  c.Editing(),
		Replying: c.Replying(),
	}
}

func (c *Card) indexOf(commentID string) int {
	for i := range c.comments {
		if c.comments[i].ID == commentID {
			return i
		}
	}
	return -1
}

// persist writes next and only then makes it the in-memory thread, so a
// failed write leaves both sides at the previous state.
func (c *Card) persist(ctx context.Context, next []Comment) error {
	raw, err := EncodeComments(next)
	if err != nil {
		return fmt.Errorf("encode comments: %w", err)
	}
	if err := c.store.Set(ctx, commentsKey(c.product.ID), raw); err != nil {
		return fmt.Errorf("write comments: %w", err)
	}
	c.comments = next
	return nil
}
