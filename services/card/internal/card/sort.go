package card

import (
	"sort"
	"time"
)

// sortComments orders comments in place for display. Equal keys keep
// their insertion order.
func sortComments(comments []Comment, order SortOrder) []Comment {
	switch order {
	case SortDate:
		dated := make([]datedComment, len(comments))
		for i, c := range comments {
			dated[i] = datedComment{c: c, at: parseDate(c.Date)}
		}
		sort.SliceStable(dated, func(i, j int) bool {
			return dated[i].at.After(dated[j].at)
		})
		for i := range dated {
			comments[i] = dated[i].c
		}
	case SortLikes:
		sort.SliceStable(comments, func(i, j int) bool {
			return comments[i].Likes > comments[j].Likes
		})
	}
	return comments
}

type datedComment struct {
	c  Comment
	at time.Time
}

// legacyDateLayouts are the browser locale renderings found in threads
// written before DateLayout was fixed.
var legacyDateLayouts = []string{
	"02.01.2006, 15:04:05",
	"1/2/2006, 3:04:05 PM",
}

// parseDate reads DateLayout, RFC 3339 or a legacy layout. Anything else is
// the zero time and sorts last.
func parseDate(s string) time.Time {
	if t, err := time.ParseInLocation(DateLayout, s, time.Local); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	for _, layout := range legacyDateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}
