package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/product-card/internal/platform/analytics"
	"github.com/example/product-card/internal/platform/api"
	"github.com/example/product-card/internal/platform/httpserver"
	"github.com/example/product-card/services/card/internal/card"
	"github.com/example/product-card/services/card/internal/catalog"
)

// Deps are the collaborators every card handler needs.
type Deps struct {
	Catalog   *catalog.Catalog
	Cards     *card.Registry
	Analytics *analytics.Publisher
	Log       *zap.Logger
}

// Register mounts the card routes on r.
func Register(r chi.Router, d Deps) {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	r.Get("/v1/products", ListProducts(d))

	r.Route("/v1/cards/{product_id}", func(r chi.Router) {
		r.Get("/", GetCard(d))
		r.Post("/like", ToggleLike(d))
		r.Put("/sort", SetSort(d))
		r.Put("/edit", SetEditText(d))
		r.Delete("/edit", CancelEdit(d))
		r.Put("/reply", SetReplyText(d))
		r.Delete("/reply", CancelReply(d))

		r.Post("/comments", CreateComment(d))
		r.Put("/comments/{comment_id}", SaveEdit(d))
		r.Delete("/comments/{comment_id}", DeleteComment(d))
		r.Post("/comments/{comment_id}/like", LikeComment(d))
		r.Post("/comments/{comment_id}/edit", BeginEdit(d))
		r.Post("/comments/{comment_id}/reply", BeginReply(d))
		r.Post("/comments/{comment_id}/replies", CreateReply(d))
	})
}

type textRequest struct {
	// Text is optional on save-edit and reply, where null means "use the
	// buffered text".
	Text *string `json:"text"`
}

type sortRequest struct {
	Sort string `json:"sort"`
}

type productsResponse struct {
	Products []card.Product `json:"products"`
}

var (
	errCommentNotFound = errors.New("comment not found")
	errTextRequired    = errors.New("text is required without an open buffer")
	errNoOpenEdit      = errors.New("no comment is being edited")
	errNoOpenReply     = errors.New("no reply is open")
)

// ListProducts handles GET /v1/products
func ListProducts(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		api.WriteJSON(w, http.StatusOK, productsResponse{Products: d.Catalog.All()})
	}
}

// withCard resolves {product_id} and runs fn on the hydrated card. It
// writes the error response itself and reports whether fn succeeded.
func withCard(w http.ResponseWriter, r *http.Request, d Deps, fn func(ctx context.Context, c *card.Card) error) (card.Product, bool) {
	rid := httpserver.RequestIDFromContext(r.Context())
	log := httpserver.Logger(r.Context(), d.Log)
	productID := strings.TrimSpace(chi.URLParam(r, "product_id"))
	if productID == "" {
		api.BadRequest(w, "MISSING_ID", "product_id is required", rid, nil)
		return card.Product{}, false
	}
	product, err := d.Catalog.Lookup(productID)
	if err != nil {
		api.NotFound(w, "PRODUCT_NOT_FOUND", "product not found", rid)
		return card.Product{}, false
	}

	err = d.Cards.Do(r.Context(), product, func(c *card.Card) error {
		return fn(r.Context(), c)
	})
	switch {
	case err == nil:
		return product, true
	case errors.Is(err, errCommentNotFound):
		api.NotFound(w, "COMMENT_NOT_FOUND", "comment not found", rid)
	case errors.Is(err, errTextRequired):
		api.BadRequest(w, "MISSING_TEXT", err.Error(), rid, nil)
	case errors.Is(err, errNoOpenEdit), errors.Is(err, errNoOpenReply):
		api.WriteError(w, http.StatusConflict, "NO_OPEN_TARGET", err.Error(), rid, nil)
	case errors.Is(err, card.ErrCorruptComments), errors.Is(err, card.ErrUnsupportedVersion):
		log.Error("card state unreadable", zap.String("product_id", productID), zap.Error(err))
		api.InternalCode(w, "CORRUPT_STATE", "stored comments cannot be read", rid)
	default:
		log.Error("card operation failed", zap.String("product_id", productID), zap.Error(err))
		api.Internal(w, rid)
	}
	return product, false
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		api.BadRequest(w, "INVALID_JSON", "invalid JSON", httpserver.RequestIDFromContext(r.Context()), nil)
		return false
	}
	return true
}

func commentParam(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "comment_id"))
}

func hasComment(c *card.Card, id string) bool {
	for _, cm := range c.StoredComments() {
		if cm.ID == id {
			return true
		}
	}
	return false
}
