package handlers

import (
	"context"
	"net/http"

	"github.com/example/product-card/internal/platform/analytics"
	"github.com/example/product-card/internal/platform/api"
	"github.com/example/product-card/internal/platform/httpserver"
	"github.com/example/product-card/services/card/internal/card"
)

// GetCard handles GET /v1/cards/{product_id}. A sort query parameter
// orders this response only; PUT /sort changes the card's order.
func GetCard(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var order *card.SortOrder
		if q := r.URL.Query(); q.Has("sort") {
			o, err := card.ParseSortOrder(q.Get("sort"))
			if err != nil {
				api.BadRequest(w, "INVALID_SORT", "sort must be none, date or likes",
					httpserver.RequestIDFromContext(r.Context()), nil)
				return
			}
			order = &o
		}

		var view card.View
		if _, ok := withCard(w, r, d, func(_ context.Context, c *card.Card) error {
			if order != nil {
				view = c.ViewSorted(*order)
			} else {
				view = c.View()
			}
			return nil
		}); !ok {
			return
		}
		api.WriteJSON(w, http.StatusOK, view)
	}
}

// ToggleLike handles POST /v1/cards/{product_id}/like
func ToggleLike(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var view card.View
		product, ok := withCard(w, r, d, func(ctx context.Context, c *card.Card) error {
			if err := c.ToggleLike(ctx); err != nil {
				return err
			}
			view = c.View()
			return nil
		})
		if !ok {
			return
		}

		subject, name := analytics.SubjectCardLiked, "card_liked"
		if !view.Liked {
			subject, name = analytics.SubjectCardUnliked, "card_unliked"
		}
		d.Analytics.Publish(subject, name, product.ID, map[string]any{"likes": view.Likes})
		api.WriteJSON(w, http.StatusOK, view)
	}
}

// SetSort handles PUT /v1/cards/{product_id}/sort
func SetSort(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sortRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		order, err := card.ParseSortOrder(req.Sort)
		if err != nil {
			api.BadRequest(w, "INVALID_SORT", "sort must be none, date or likes",
				httpserver.RequestIDFromContext(r.Context()), nil)
			return
		}

		var view card.View
		if _, ok := withCard(w, r, d, func(_ context.Context, c *card.Card) error {
			c.SetSortOrder(order)
			view = c.View()
			return nil
		}); !ok {
			return
		}
		api.WriteJSON(w, http.StatusOK, view)
	}
}
