package handlers

import (
	"context"
	"net/http"

	"github.com/example/product-card/internal/platform/analytics"
	"github.com/example/product-card/internal/platform/api"
	"github.com/example/product-card/services/card/internal/card"
)

// CreateComment handles POST /v1/cards/{product_id}/comments.
// Blank text creates nothing and answers 204.
func CreateComment(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req textRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		text := ""
		if req.Text != nil {
			text = *req.Text
		}

		var (
			created card.Comment
			ok      bool
		)
		product, done := withCard(w, r, d, func(ctx context.Context, c *card.Card) error {
			var err error
			created, ok, err = c.SubmitComment(ctx, text)
			return err
		})
		if !done {
			return
		}
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		d.Analytics.Publish(analytics.SubjectCommentCreated, "comment_created", product.ID,
			map[string]any{"comment_id": created.ID})
		api.WriteJSON(w, http.StatusCreated, created)
	}
}

// DeleteComment handles DELETE /v1/cards/{product_id}/comments/{comment_id}.
// Deleting an absent comment is a no-op.
func DeleteComment(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		commentID := commentParam(r)
		existed := false
		product, ok := withCard(w, r, d, func(ctx context.Context, c *card.Card) error {
			existed = hasComment(c, commentID)
			return c.DeleteComment(ctx, commentID)
		})
		if !ok {
			return
		}
		if existed {
			d.Analytics.Publish(analytics.SubjectCommentDeleted, "comment_deleted", product.ID,
				map[string]any{"comment_id": commentID})
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// LikeComment handles POST /v1/cards/{product_id}/comments/{comment_id}/like
func LikeComment(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		commentID := commentParam(r)
		product, ok := withCard(w, r, d, func(ctx context.Context, c *card.Card) error {
			if !hasComment(c, commentID) {
				return errCommentNotFound
			}
			return c.LikeComment(ctx, commentID)
		})
		if !ok {
			return
		}
		d.Analytics.Publish(analytics.SubjectCommentLiked, "comment_liked", product.ID,
			map[string]any{"comment_id": commentID})
		w.WriteHeader(http.StatusNoContent)
	}
}

// BeginEdit handles POST /v1/cards/{product_id}/comments/{comment_id}/edit
func BeginEdit(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		commentID := commentParam(r)
		var view card.View
		if _, ok := withCard(w, r, d, func(_ context.Context, c *card.Card) error {
			if !c.BeginEdit(commentID) {
				return errCommentNotFound
			}
			view = c.View()
			return nil
		}); !ok {
			return
		}
		api.WriteJSON(w, http.StatusOK, view)
	}
}

// SaveEdit handles PUT /v1/cards/{product_id}/comments/{comment_id}.
// A null text saves the open edit buffer for that comment.
func SaveEdit(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		commentID := commentParam(r)
		var req textRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		var view card.View
		product, ok := withCard(w, r, d, func(ctx context.Context, c *card.Card) error {
			if !hasComment(c, commentID) {
				return errCommentNotFound
			}
			if req.Text == nil {
				if t := c.Editing(); t == nil || t.CommentID != commentID {
					return errTextRequired
				}
				if err := c.SaveEditBuffer(ctx); err != nil {
					return err
				}
			} else if err := c.SaveEdit(ctx, commentID, *req.Text); err != nil {
				return err
			}
			view = c.View()
			return nil
		})
		if !ok {
			return
		}
		d.Analytics.Publish(analytics.SubjectCommentEdited, "comment_edited", product.ID,
			map[string]any{"comment_id": commentID})
		api.WriteJSON(w, http.StatusOK, view)
	}
}

// CancelEdit handles DELETE /v1/cards/{product_id}/edit
func CancelEdit(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var view card.View
		if _, ok := withCard(w, r, d, func(_ context.Context, c *card.Card) error {
			c.CancelEdit()
			view = c.View()
			return nil
		}); !ok {
			return
		}
		api.WriteJSON(w, http.StatusOK, view)
	}
}

// SetEditText handles PUT /v1/cards/{product_id}/edit, replacing the open
// edit buffer without saving it.
func SetEditText(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req textRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		var view card.View
		if _, ok := withCard(w, r, d, func(_ context.Context, c *card.Card) error {
			if req.Text == nil {
				return errTextRequired
			}
			if c.Editing() == nil {
				return errNoOpenEdit
			}
			c.SetEditText(*req.Text)
			view = c.View()
			return nil
		}); !ok {
			return
		}
		api.WriteJSON(w, http.StatusOK, view)
	}
}
