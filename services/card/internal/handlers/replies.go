package handlers

import (
	"context"
	"net/http"

	"github.com/example/product-card/internal/platform/analytics"
	"github.com/example/product-card/internal/platform/api"
	"github.com/example/product-card/services/card/internal/card"
)

// BeginReply handles POST /v1/cards/{product_id}/comments/{comment_id}/reply
func BeginReply(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		commentID := commentParam(r)
		var view card.View
		if _, ok := withCard(w, r, d, func(_ context.Context, c *card.Card) error {
			if !c.BeginReply(commentID) {
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

// CreateReply handles POST /v1/cards/{product_id}/comments/{comment_id}/replies.
// Text is stored as given; a null text submits the open reply buffer.
func CreateReply(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		commentID := commentParam(r)
		var req textRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		var reply card.Reply
		product, ok := withCard(w, r, d, func(ctx context.Context, c *card.Card) error {
			var text string
			switch t := c.Replying(); {
			case req.Text != nil:
				text = *req.Text
			case t != nil && t.CommentID == commentID:
				text = t.Text
			case !hasComment(c, commentID):
				return errCommentNotFound
			default:
				return errTextRequired
			}
			created, ok, err := c.SubmitReply(ctx, commentID, text)
			if err != nil {
				return err
			}
			if !ok {
				return errCommentNotFound
			}
			reply = created
			return nil
		})
		if !ok {
			return
		}
		d.Analytics.Publish(analytics.SubjectReplyCreated, "reply_created", product.ID,
			map[string]any{"comment_id": commentID, "reply_id": reply.ID})
		api.WriteJSON(w, http.StatusCreated, reply)
	}
}

// CancelReply handles DELETE /v1/cards/{product_id}/reply
func CancelReply(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var view card.View
		if _, ok := withCard(w, r, d, func(_ context.Context, c *card.Card) error {
			c.CancelReply()
			view = c.View()
			return nil
		}); !ok {
			return
		}
		api.WriteJSON(w, http.StatusOK, view)
	}
}

// SetReplyText handles PUT /v1/cards/{product_id}/reply, replacing the open
// reply buffer.
func SetReplyText(d Deps) http.HandlerFunc {
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
			if c.Replying() == nil {
				return errNoOpenReply
			}
			c.SetReplyText(*req.Text)
			view = c.View()
			return nil
		}); !ok {
			return
		}
		api.WriteJSON(w, http.StatusOK, view)
	}
}
