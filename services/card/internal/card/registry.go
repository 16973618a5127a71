package card

import (
	"context"
	"sync"
)

// Registry keeps one hydrated Card per product and runs every operation
// on a card under that card's lock, so a concurrent transport still sees
// one action at a time per card.
type Registry struct {
	store Store
	opts  []Option

	mu    sync.Mutex
	cards map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	card *Card
}

func NewRegistry(store Store, opts ...Option) *Registry {
	return &Registry{store: store, opts: opts, cards: make(map[string]*entry)}
}

// Do runs fn against the card for product, hydrating it on first use.
// A failed hydration is returned and retried on the next call.
func (r *Registry) Do(ctx context.Context, product Product, fn func(*Card) error) error {
	r.mu.Lock()
	e, ok := r.cards[product.ID]
	if !ok {
		e = &entry{}
		r.cards[product.ID] = e
	}
	r.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.card == nil {
		c, err := Load(ctx, r.store, product, r.opts...)
		if err != nil {
			return err
		}
		e.card = c
	}
	return fn(e.card)
}

