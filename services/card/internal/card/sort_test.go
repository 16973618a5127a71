package card

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2026, 1, 10, 21, 5, 7, 0, time.Local)
	tests := []struct {
		name string
		in   string
		zero bool
	}{
		{"layout", "2026-01-10 21:05:07", false},
		{"rfc3339", want.Format(time.RFC3339), false},
		{"ru locale", "10.01.2026, 21:05:07", false},
		{"en locale", "1/10/2026, 9:05:07 PM", false},
		{"garbage", "yesterday", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseDate(tt.in)
			if tt.zero {
				if !got.IsZero() {
					t.Fatalf("expected zero time, got %v", got)
				}
				return
			}
			if !got.Equal(want) {
				t.Fatalf("expected %v, got %v", want, got)
			}
		})
	}
}

func TestSortComments_DateUnparseableLast(t *testing.T) {
	in := []Comment{
		{ID: "a", Date: "???"},
		{ID: "b", Date: "2026-01-10 09:00:00"},
		{ID: "c", Date: "2026-01-11 09:00:00"},
	}
	got := sortComments(in, SortDate)
	if got[0].ID != "c" || got[1].ID != "b" || got[2].ID != "a" {
		t.Fatalf("unexpected order: %s %s %s", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestSortComments_LikesTiesKeepOrder(t *testing.T) {
	in := []Comment{
		{ID: "a", Likes: 1},
		{ID: "b", Likes: 2},
		{ID: "c", Likes: 1},
	}
	got := sortComments(in, SortLikes)
	if got[0].ID != "b" || got[1].ID != "a" || got[2].ID != "c" {
		t.Fatalf("unexpected order: %s %s %s", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestSortComments_DateDuplicateIDs(t *testing.T) {
	in := []Comment{
		{ID: "dup", Text: "old", Date: "2026-01-10 09:00:00"},
		{ID: "dup", Text: "new", Date: "2026-01-10 11:00:00"},
		{ID: "x", Text: "mid", Date: "2026-01-10 10:00:00"},
	}
	got := sortComments(in, SortDate)
	want := []string{"new", "mid", "old"}
	for i, w := range want {
		if got[i].Text != w {
			t.Fatalf("position %d: expected %q, got %q", i, w, got[i].Text)
		}
	}
}
