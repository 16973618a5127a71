// Package analytics provides a fire-and-forget NATS publisher for card
// interaction events.
package analytics

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Subjects for every card event type.
const (
	SubjectCardLiked      = "analytics.card.liked"
	SubjectCardUnliked    = "analytics.card.unliked"
	SubjectCommentCreated = "analytics.card.comment_created"
	SubjectCommentEdited  = "analytics.card.comment_edited"
	SubjectCommentDeleted = "analytics.card.comment_deleted"
	SubjectCommentLiked   = "analytics.card.comment_liked"
	SubjectReplyCreated   = "analytics.card.reply_created"

	StreamName = "CARD_ANALYTICS"
)

// Event is the envelope sent to all analytics.card.* subjects.
type Event struct {
	EventID    string         `json:"event_id"`
	EventName  string         `json:"event_name"`
	ProductID  string         `json:"product_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Publisher publishes analytics events to NATS JetStream.
// The zero value and a nil pointer are both safe no-op stubs.
type Publisher struct {
	js  nats.JetStreamContext
	log *zap.Logger
	now func() time.Time
}

// New creates a Publisher using an existing JetStream context.
// Pass js=nil to get a no-op stub (useful in tests and without NATS).
func New(js nats.JetStreamContext, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{js: js, log: log, now: time.Now}
}

// EnsureStream creates the analytics stream if it does not exist yet.
func EnsureStream(js nats.JetStreamContext) error {
	if _, err := js.StreamInfo(StreamName); err == nil {
		return nil
	}
	_, err := js.AddStream(&nats.StreamConfig{
		Name:     StreamName,
		Subjects: []string{"analytics.card.>"},
		Storage:  nats.FileStorage,
	})
	return err
}

// NewEvent builds the envelope published for subject.
func (p *Publisher) NewEvent(eventName, productID string, props map[string]any) Event {
	now := time.Now
	if p != nil && p.now != nil {
		now = p.now
	}
	return Event{
		EventID:    uuid.NewString(),
		EventName:  eventName,
		ProductID:  productID,
		OccurredAt: now().UTC(),
		Properties: props,
	}
}

// Publish sends an analytics event asynchronously (fire-and-forget).
// Failures are logged as warnings and never surface to the caller.
// The publisher is safe to call with a nil receiver.
func (p *Publisher) Publish(subject, eventName, productID string, props map[string]any) {
	if p == nil || p.js == nil {
		return
	}
	data, err := json.Marshal(p.NewEvent(eventName, productID, props))
	if err != nil {
		p.log.Warn("analytics: marshal failed", zap.String("event", eventName), zap.Error(err))
		return
	}
	if _, err := p.js.PublishAsync(subject, data); err != nil {
		p.log.Warn("analytics: publish failed", zap.String("subject", subject), zap.Error(err))
	}
}
