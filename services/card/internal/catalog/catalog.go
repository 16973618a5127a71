// Package catalog loads the read-only product list cards are rendered for.
package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/example/product-card/services/card/internal/card"
)

var ErrUnknownProduct = errors.New("unknown product")

type file struct {
	Products []card.Product `yaml:"products"`
}

// Catalog is immutable after load and safe for concurrent use.
type Catalog struct {
	products []card.Product
	byID     map[string]card.Product
}

func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open products file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses a products document. Ids must be non-empty and unique.
func Load(r io.Reader) (*Catalog, error) {
	var doc file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse products: %w", err)
	}
	return New(doc.Products)
}

func New(products []card.Product) (*Catalog, error) {
	c := &Catalog{
		products: make([]card.Product, 0, len(products)),
		byID:     make(map[string]card.Product, len(products)),
	}
	for i, p := range products {
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			return nil, fmt.Errorf("product %d: id is required", i)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("product %d: duplicate id %q", i, p.ID)
		}
		c.byID[p.ID] = p
		c.products = append(c.products, p)
	}
	return c, nil
}

func (c *Catalog) Lookup(id string) (card.Product, error) {
	p, ok := c.byID[id]
	if !ok {
		return card.Product{}, fmt.Errorf("%w: %s", ErrUnknownProduct, id)
	}
	return p, nil
}

// All returns the products in file order.
func (c *Catalog) All() []card.Product {
	out := make([]card.Product, len(c.products))
	copy(out, c.products)
	return out
}
