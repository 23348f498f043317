package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"

	"github.com/sekarjagad/batik-store/internal/rowstore"
)

// Table names in the row store.
const (
	TableProducts = "products"
	TableVariants = "variants"
	TableOrders   = "orders"
)

// Loader builds catalog snapshots from the row store. Every Load performs a
// fresh read: the store can change between requests, so snapshots are never
// cached across them.
type Loader struct {
	store rowstore.Store
}

// NewLoader returns a Loader reading from the given store.
func NewLoader(store rowstore.Store) *Loader {
	return &Loader{store: store}
}

// Load reads the products and variants tables concurrently and builds a
// catalog. A shop without per-variant stock tracking has no variants tab at
// all, so a missing variants table is not an error — every product then
// falls back to its implicit variant.
func (l *Loader) Load(ctx context.Context) (*Catalog, error) {
	var products, variants rowstore.Table

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := l.store.ReadTable(gctx, TableProducts)
		if err != nil {
			return errors.Wrap(err, "read products")
		}
		products = t
		return nil
	})
	g.Go(func() error {
		t, err := l.store.ReadTable(gctx, TableVariants)
		if err != nil {
			if errors.Is(err, rowstore.ErrTableNotFound) {
				return nil
			}
			return errors.Wrap(err, "read variants")
		}
		variants = t
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return BuildCatalog(ctx, products, variants), nil
}
