package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/product-card/internal/platform/api"
	"github.com/example/product-card/services/card/internal/card"
	"github.com/example/product-card/services/card/internal/catalog"
	"github.com/example/product-card/services/card/internal/kv"
)

type fixture struct {
	store  *kv.Memory
	router chi.Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cat, err := catalog.New([]card.Product{
		{ID: "lamp-01", Name: "Desk Lamp"},
		{ID: "mug-02", Name: "Mug"},
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}

	n := 0
	ids := func() string { n++; return fmt.Sprintf("id-%d", n) }
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.Local)
	now := func() time.Time { clock = clock.Add(time.Minute); return clock }

	s := kv.NewMemory()
	r := chi.NewRouter()
	Register(r, Deps{
		Catalog: cat,
		Cards:   card.NewRegistry(s, card.WithIDGenerator(ids), card.WithClock(now)),
	})
	return &fixture{store: s, router: r}
}

func (f *fixture) do(method, url, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, url, bytes.NewBufferString(body))
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func decodeView(t *testing.T, rr *httptest.ResponseRecorder) card.View {
	t.Helper()
	var v card.View
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	return v
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var e api.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&e); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return e.Error.Code
}

func TestListProducts(t *testing.T) {
	f := newFixture(t)
	rr := f.do(http.MethodGet, "/v1/products", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp productsResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Products) != 2 || resp.Products[0].ID != "lamp-01" {
		t.Fatalf("unexpected products %+v", resp.Products)
	}
}

func TestGetCard_UnknownProduct(t *testing.T) {
	f := newFixture(t)
	rr := f.do(http.MethodGet, "/v1/cards/nope", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if code := errorCode(t, rr); code != "PRODUCT_NOT_FOUND" {
		t.Fatalf("expected PRODUCT_NOT_FOUND, got %s", code)
	}
}

func TestGetCard_Fresh(t *testing.T) {
	f := newFixture(t)
	rr := f.do(http.MethodGet, "/v1/cards/lamp-01", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	v := decodeView(t, rr)
	if v.Product.Name != "Desk Lamp" || v.Likes != 0 || v.Liked || len(v.Comments) != 0 {
		t.Fatalf("unexpected fresh view %+v", v)
	}
	if v.Sort != card.SortNone {
		t.Fatalf("expected sort none, got %s", v.Sort)
	}
}

func TestGetCard_CorruptState(t *testing.T) {
	f := newFixture(t)
	_ = f.store.Set(context.Background(), "comments-lamp-01", "{broken")

	rr := f.do(http.MethodGet, "/v1/cards/lamp-01", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if code := errorCode(t, rr); code != "CORRUPT_STATE" {
		t.Fatalf("expected CORRUPT_STATE, got %s", code)
	}
	if v, _, _ := f.store.Get(context.Background(), "comments-lamp-01"); v != "{broken" {
		t.Fatalf("stored data must not be overwritten, got %q", v)
	}
}

func TestToggleLike(t *testing.T) {
	f := newFixture(t)

	v := decodeView(t, f.do(http.MethodPost, "/v1/cards/lamp-01/like", ""))
	if !v.Liked || v.Likes != 1 {
		t.Fatalf("expected liked with 1, got %+v", v)
	}
	v = decodeView(t, f.do(http.MethodPost, "/v1/cards/lamp-01/like", ""))
	if v.Liked || v.Likes != 0 {
		t.Fatalf("expected unliked with 0, got %+v", v)
	}
	if got, _, _ := f.store.Get(context.Background(), "liked-lamp-01"); got != "false" {
		t.Fatalf("expected liked=false persisted, got %q", got)
	}

	other := decodeView(t, f.do(http.MethodGet, "/v1/cards/mug-02", ""))
	if other.Likes != 0 || other.Liked {
		t.Fatalf("cards must be independent, got %+v", other)
	}
}

func TestCreateComment(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodPost, "/v1/cards/lamp-01/comments", `{"text":"  great lamp  "}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var c card.Comment
	if err := json.NewDecoder(rr.Body).Decode(&c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.Text != "great lamp" || c.ID != "id-1" || c.Likes != 0 {
		t.Fatalf("unexpected comment %+v", c)
	}

	rr = f.do(http.MethodPost, "/v1/cards/lamp-01/comments", `{"text":"   "}`)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for blank text, got %d", rr.Code)
	}

	rr = f.do(http.MethodPost, "/v1/cards/lamp-01/comments", `not json`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}

	v := decodeView(t, f.do(http.MethodGet, "/v1/cards/lamp-01", ""))
	if len(v.Comments) != 1 {
		t.Fatalf("expected 1 comment, got %d", len(v.Comments))
	}
}

func TestCommentLifecycle(t *testing.T) {
	f := newFixture(t)
	f.do(http.MethodPost, "/v1/cards/lamp-01/comments", `{"text":"first"}`)
	f.do(http.MethodPost, "/v1/cards/lamp-01/comments", `{"text":"second"}`)

	if rr := f.do(http.MethodPost, "/v1/cards/lamp-01/comments/id-1/like", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("like: expected 204, got %d", rr.Code)
	}
	if rr := f.do(http.MethodPost, "/v1/cards/lamp-01/comments/missing/like", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("like missing: expected 404, got %d", rr.Code)
	}

	v := decodeView(t, f.do(http.MethodPost, "/v1/cards/lamp-01/comments/id-2/edit", ""))
	if v.Editing == nil || v.Editing.CommentID != "id-2" || v.Editing.Text != "second" {
		t.Fatalf("expected edit target on id-2, got %+v", v.Editing)
	}

	v = decodeView(t, f.do(http.MethodPut, "/v1/cards/lamp-01/comments/id-2", `{"text":"second, edited"}`))
	if v.Editing != nil {
		t.Fatalf("edit target should be cleared, got %+v", v.Editing)
	}
	if v.Comments[1].Text != "second, edited" {
		t.Fatalf("expected edited text, got %q", v.Comments[1].Text)
	}

	v = decodeView(t, f.do(http.MethodGet, "/v1/cards/lamp-01?sort=likes", ""))
	if v.Sort != card.SortLikes || v.Comments[0].ID != "id-1" {
		t.Fatalf("expected likes order with id-1 first, got %+v", v.Comments)
	}

	if rr := f.do(http.MethodDelete, "/v1/cards/lamp-01/comments/id-1", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rr.Code)
	}
	if rr := f.do(http.MethodDelete, "/v1/cards/lamp-01/comments/id-1", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("second delete: expected 204, got %d", rr.Code)
	}
	v = decodeView(t, f.do(http.MethodGet, "/v1/cards/lamp-01", ""))
	if len(v.Comments) != 1 || v.Comments[0].ID != "id-2" {
		t.Fatalf("expected only id-2 left, got %+v", v.Comments)
	}
}

func TestSaveEdit_NullTextNeedsBuffer(t *testing.T) {
	f := newFixture(t)
	f.do(http.MethodPost, "/v1/cards/lamp-01/comments", `{"text":"first"}`)

	rr := f.do(http.MethodPut, "/v1/cards/lamp-01/comments/id-1", `{}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without an open edit, got %d", rr.Code)
	}

	f.do(http.MethodPost, "/v1/cards/lamp-01/comments/id-1/edit", "")
	v := decodeView(t, f.do(http.MethodPut, "/v1/cards/lamp-01/comments/id-1", `{"text":null}`))
	if v.Comments[0].Text != "first" || v.Editing != nil {
		t.Fatalf("expected buffer saved unchanged and target cleared, got %+v", v)
	}
}

func TestCancelEdit(t *testing.T) {
	f := newFixture(t)
	f.do(http.MethodPost, "/v1/cards/lamp-01/comments", `{"text":"first"}`)
	f.do(http.MethodPost, "/v1/cards/lamp-01/comments/id-1/edit", "")

	v := decodeView(t, f.do(http.MethodDelete, "/v1/cards/lamp-01/edit", ""))
	if v.Editing != nil || v.Comments[0].Text != "first" {
		t.Fatalf("cancel must drop the target and keep text, got %+v", v)
	}
}

func TestReplies(t *testing.T) {
	f := newFixture(t)
	f.do(http.MethodPost, "/v1/cards/lamp-01/comments", `{"text":"question?"}`)

	v := decodeView(t, f.do(http.MethodPost, "/v1/cards/lamp-01/comments/id-1/reply", ""))
	if v.Replying == nil || v.Replying.CommentID != "id-1" || v.Replying.Text != "" {
		t.Fatalf("expected empty reply target on id-1, got %+v", v.Replying)
	}

	rr := f.do(http.MethodPost, "/v1/cards/lamp-01/comments/id-1/replies", `{"text":" answer "}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var reply card.Reply
	if err := json.NewDecoder(rr.Body).Decode(&reply); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if reply.ReplyTo != "id-1" || reply.Text != " answer " {
		t.Fatalf("unexpected reply %+v", reply)
	}

	v = decodeView(t, f.do(http.MethodGet, "/v1/cards/lamp-01", ""))
	if v.Replying != nil {
		t.Fatalf("reply target should be cleared, got %+v", v.Replying)
	}
	if len(v.Comments[0].Replies) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(v.Comments[0].Replies))
	}

	if rr := f.do(http.MethodPost, "/v1/cards/lamp-01/comments/missing/replies", `{"text":"x"}`); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing comment, got %d", rr.Code)
	}
	if rr := f.do(http.MethodPost, "/v1/cards/lamp-01/comments/id-1/replies", `{}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without text or buffer, got %d", rr.Code)
	}
}

func TestCancelReply(t *testing.T) {
	f := newFixture(t)
	f.do(http.MethodPost, "/v1/cards/lamp-01/comments", `{"text":"question?"}`)
	f.do(http.MethodPost, "/v1/cards/lamp-01/comments/id-1/reply", "")

	v := decodeView(t, f.do(http.MethodDelete, "/v1/cards/lamp-01/reply", ""))
	if v.Replying != nil {
		t.Fatalf("expected reply target cleared, got %+v", v.Replying)
	}
	if len(v.Comments[0].Replies) != 0 {
		t.Fatalf("cancel must not create a reply")
	}
}

func TestSetSort(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		body string
		code int
		want card.SortOrder
	}{
		{`{"sort":"by-date-desc"}`, http.StatusOK, card.SortDate},
		{`{"sort":"likes"}`, http.StatusOK, card.SortLikes},
		{`{"sort":"none"}`, http.StatusOK, card.SortNone},
		{`{"sort":"random"}`, http.StatusBadRequest, ""},
		{`{`, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			rr := f.do(http.MethodPut, "/v1/cards/lamp-01/sort", tt.body)
			if rr.Code != tt.code {
				t.Fatalf("expected %d, got %d", tt.code, rr.Code)
			}
			if tt.code == http.StatusOK {
				if v := decodeView(t, rr); v.Sort != tt.want {
					t.Fatalf("expected sort %s, got %s", tt.want, v.Sort)
				}
			}
		})
	}

	if rr := f.do(http.MethodGet, "/v1/cards/lamp-01?sort=sideways", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad sort query, got %d", rr.Code)
	}
}

func TestSortByDate(t *testing.T) {
	f := newFixture(t)
	f.do(http.MethodPost, "/v1/cards/lamp-01/comments", `{"text":"older"}`)
	f.do(http.MethodPost, "/v1/cards/lamp-01/comments", `{"text":"newer"}`)

	v := decodeView(t, f.do(http.MethodGet, "/v1/cards/lamp-01?sort=date", ""))
	if v.Comments[0].Text != "newer" || v.Comments[1].Text != "older" {
		t.Fatalf("expected newest first, got %+v", v.Comments)
	}
	v = decodeView(t, f.do(http.MethodGet, "/v1/cards/lamp-01?sort=none", ""))
	if v.Comments[0].Text != "older" {
		t.Fatalf("expected insertion order, got %+v", v.Comments)
	}
}

func TestEditBuffer(t *testing.T) {
	f := newFixture(t)
	f.do(http.MethodPost, "/v1/cards/lamp-01/comments", `{"text":"first"}`)

	if rr := f.do(http.MethodPut, "/v1/cards/lamp-01/edit", `{"text":"x"}`); rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 without an open edit, got %d", rr.Code)
	}

	f.do(http.MethodPost, "/v1/cards/lamp-01/comments/id-1/edit", "")
	v := decodeView(t, f.do(http.MethodPut, "/v1/cards/lamp-01/edit", `{"text":"first, reworded"}`))
	if v.Editing == nil || v.Editing.Text != "first, reworded" {
		t.Fatalf("expected updated edit buffer, got %+v", v.Editing)
	}
	if v.Comments[0].Text != "first" {
		t.Fatalf("buffer update must not save, got %q", v.Comments[0].Text)
	}

	v = decodeView(t, f.do(http.MethodPut, "/v1/cards/lamp-01/comments/id-1", `{"text":null}`))
	if v.Comments[0].Text != "first, reworded" || v.Editing != nil {
		t.Fatalf("expected buffered text saved, got %+v", v)
	}
	raw, _, _ := f.store.Get(context.Background(), "comments-lamp-01")
	stored, err := card.DecodeComments(raw)
	if err != nil || stored[0].Text != "first, reworded" {
		t.Fatalf("expected stored text updated, got %+v err=%v", stored, err)
	}
}

func TestReplyBuffer(t *testing.T) {
	f := newFixture(t)
	f.do(http.MethodPost, "/v1/cards/lamp-01/comments", `{"text":"question?"}`)

	if rr := f.do(http.MethodPut, "/v1/cards/lamp-01/reply", `{"text":"x"}`); rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 without an open reply, got %d", rr.Code)
	}

	f.do(http.MethodPost, "/v1/cards/lamp-01/comments/id-1/reply", "")
	if rr := f.do(http.MethodPut, "/v1/cards/lamp-01/reply", `{}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without text, got %d", rr.Code)
	}
	v := decodeView(t, f.do(http.MethodPut, "/v1/cards/lamp-01/reply", `{"text":"yes, it dims"}`))
	if v.Replying == nil || v.Replying.Text != "yes, it dims" {
		t.Fatalf("expected updated reply buffer, got %+v", v.Replying)
	}

	rr := f.do(http.MethodPost, "/v1/cards/lamp-01/comments/id-1/replies", `{}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	raw, _, _ := f.store.Get(context.Background(), "comments-lamp-01")
	stored, err := card.DecodeComments(raw)
	if err != nil || len(stored[0].Replies) != 1 || stored[0].Replies[0].Text != "yes, it dims" {
		t.Fatalf("expected stored reply from buffer, got %+v err=%v", stored, err)
	}
}

func TestGetCard_SortQueryDoesNotPersistOrder(t *testing.T) {
	f := newFixture(t)
	v := decodeView(t, f.do(http.MethodGet, "/v1/cards/lamp-01?sort=likes", ""))
	if v.Sort != card.SortLikes {
		t.Fatalf("expected response sorted by likes, got %s", v.Sort)
	}
	v = decodeView(t, f.do(http.MethodGet, "/v1/cards/lamp-01", ""))
	if v.Sort != card.SortNone {
		t.Fatalf("expected card order to stay none, got %s", v.Sort)
	}
}
