package card

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// CommentsVersion is the schema version written by EncodeComments.
const CommentsVersion = 1

var (
	ErrCorruptComments    = errors.New("corrupt persisted comments")
	ErrUnsupportedVersion = errors.New("unsupported comments schema version")
)

// commentsEnvelope is the persisted form of a card's thread. Version 0 is
// the unversioned bare array written by older clients.
type commentsEnvelope struct {
	Version  int            `json:"version"`
	Comments []storedComment `json:"comments"`
}

// Likes and replies are optional in legacy data.
type storedComment struct {
	ID      string        `json:"id"`
	Text    string        `json:"text"`
	Date    string        `json:"date"`
	Likes   *int          `json:"likes,omitempty"`
	Replies []storedReply `json:"replies"`
}

type storedReply struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Date    string `json:"date"`
	ReplyTo string `json:"replyTo"`
}

// EncodeComments serializes comments in the current schema.
func EncodeComments(comments []Comment) (string, error) {
	env := commentsEnvelope{Version: CommentsVersion, Comments: make([]storedComment, len(comments))}
	for i, c := range comments {
		likes := c.Likes
		sc := storedComment{ID: c.ID, Text: c.Text, Date: c.Date, Likes: &likes, Replies: make([]storedReply, len(c.Replies))}
		for j, r := range c.Replies {
			sc.Replies[j] = storedReply(r)
		}
		env.Comments[i] = sc
	}
	b, err := json.Marshal(env)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeComments parses a persisted thread. It accepts the current envelope
// and the legacy bare array; anything else fails with ErrCorruptComments or
// ErrUnsupportedVersion.
func DecodeComments(raw string) ([]Comment, error) {
	data := bytes.TrimSpace([]byte(raw))
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty value", ErrCorruptComments)
	}

	var stored []storedComment
	switch data[0] {
	case '[':
		if err := strictUnmarshal(data, &stored); err != nil {
			return nil, fmt.Errorf("%w: legacy array: %v", ErrCorruptComments, err)
		}
	case '{':
		var env commentsEnvelope
		if err := strictUnmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptComments, err)
		}
		if env.Version != CommentsVersion {
			return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, env.Version)
		}
		stored = env.Comments
	default:
		return nil, fmt.Errorf("%w: unexpected leading byte %q", ErrCorruptComments, data[0])
	}

	out := make([]Comment, 0, len(stored))
	for i, sc := range stored {
		if sc.ID == "" {
			return nil, fmt.Errorf("%w: comment %d has no id", ErrCorruptComments, i)
		}
		c := Comment{ID: sc.ID, Text: sc.Text, Date: sc.Date, Replies: make([]Reply, len(sc.Replies))}
		if sc.Likes != nil {
			c.Likes = *sc.Likes
		}
		for j, r := range sc.Replies {
			c.Replies[j] = Reply(r)
		}
		out = append(out, c)
	}
	return out, nil
}

func strictUnmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data")
	}
	return nil
}
