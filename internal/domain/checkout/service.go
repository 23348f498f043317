// Package checkout implements the stock commit engine: re-validate a cart
// against a freshly loaded catalog, decrement stock as one batch write, and
// record the order.
package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sekarjagad/batik-store/internal/domain/cart"
	"github.com/sekarjagad/batik-store/internal/domain/catalog"
	"github.com/sekarjagad/batik-store/internal/rowstore"
)

// Sentinel errors for caller bugs; business failures travel in CommitResult.
var ErrEmptyCart = errors.New("cart is empty")

// InvalidQuantityError indicates a line item with a non-positive quantity.
type InvalidQuantityError struct {
	ProductID int64
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %d", e.ProductID)
}

// Receipt summarizes a successfully committed order.
type Receipt struct {
	OrderID  string
	Total    decimal.Decimal
	PlacedAt time.Time
}

// CommitResult is the structured outcome of a commit attempt. Stock
// shortfalls discovered during re-validation are not errors: they come back
// as Failures so the caller can re-prompt the shopper.
type CommitResult struct {
	OK       bool
	Receipt  *Receipt
	Failures []cart.LineFailure
}

// Service is the stock commit engine.
type Service struct {
	loader *catalog.Loader
	store  rowstore.Store

	now   func() time.Time
	newID func() string
}

// NewService creates a Service reading catalogs via loader and writing
// stock through store.
func NewService(loader *catalog.Loader, store rowstore.Store) *Service {
	return &Service{
		loader: loader,
		store:  store,
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
}

// orderItem is the JSON shape of one line in the orders table items cell.
type orderItem struct {
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

// Commit durably decrements stock for every line of an already-validated
// cart.
//
// The catalog the caller validated against is deliberately not reused: the
// validation read and this commit may be separated by network latency and
// another buyer, so the cart is re-validated against a fresh snapshot first.
// Any failure aborts the whole commit with no writes. Otherwise the new
// stock of every touched variant, plus the denormalized product-level stock
// cell, goes to the store as a single batch.
//
// There is no compensating rollback path: until the batch write, the store's
// pre-image is untouched, and a failed batch means the order simply was not
// placed. A retry recomputes everything from a fresh read, so replaying the
// same cart can never double-decrement — it fails re-validation instead.
func (s *Service) Commit(ctx context.Context, lines []cart.Line) (*CommitResult, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: line.ProductID}
		}
	}

	cat, err := s.loader.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "reload catalog")
	}

	if res := cart.Validate(cat, lines); !res.OK {
		return &CommitResult{OK: false, Failures: res.Failures}, nil
	}

	updates, items, total := s.plan(cat, lines)

	if err := s.store.BatchUpdateCells(ctx, updates); err != nil {
		return nil, errors.Wrap(err, "commit stock")
	}

	receipt := &Receipt{
		OrderID:  s.newID(),
		Total:    total.Round(2),
		PlacedAt: s.now().UTC(),
	}
	s.appendOrder(ctx, receipt, items)

	return &CommitResult{OK: true, Receipt: receipt}, nil
}

// plan computes the batch of cell updates for a validated cart: one stock
// cell per touched variant row plus one per touched product row. Lines that
// hit the same variant accumulate before the decrement so the clamp at zero
// applies to their sum.
func (s *Service) plan(cat *catalog.Catalog, lines []cart.Line) ([]rowstore.CellUpdate, []orderItem, decimal.Decimal) {
	type touched struct {
		variant  *catalog.Variant
		quantity int
	}

	var (
		order    []string
		byID     = make(map[string]*touched)
		products = make(map[int64]*catalog.Product)
		items    = make([]orderItem, 0, len(lines))
		total    = decimal.Zero
	)

	for _, line := range lines {
		p, _ := cat.Product(line.ProductID)
		v, _ := catalog.ResolveVariant(p, line.Selection())

		t, ok := byID[v.ID]
		if !ok {
			t = &touched{variant: v}
			byID[v.ID] = t
			order = append(order, v.ID)
			products[p.ID] = p
		}
		t.quantity += line.Quantity

		items = append(items, orderItem{VariantID: v.ID, Quantity: line.Quantity})
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	var updates []rowstore.CellUpdate
	for _, id := range order {
		t := byID[id]
		newStock := max(0, t.variant.Stock-t.quantity)
		t.variant.Stock = newStock

		// The implicit variant (RowIndex -1) has no row of its own; its
		// stock is the product row's stock cell, written below.
		if t.variant.RowIndex >= 0 {
			updates = append(updates, rowstore.CellUpdate{
				Table:    catalog.TableVariants,
				RowIndex: t.variant.RowIndex,
				Column:   "stock",
				Value:    strconv.Itoa(newStock),
			})
		}
	}

	for _, p := range products {
		productStock := 0
		for _, v := range p.Variants {
			productStock += v.Stock
		}
		updates = append(updates, rowstore.CellUpdate{
			Table:    catalog.TableProducts,
			RowIndex: p.RowIndex,
			Column:   "stock",
			Value:    strconv.Itoa(productStock),
		})
	}

	return updates, items, total
}

// appendOrder records the order in the orders table. The stock write already
// succeeded at this point, so a failed append must not fail the checkout; it
// is logged for manual reconciliation instead.
func (s *Service) appendOrder(ctx context.Context, r *Receipt, items []orderItem) {
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		zctx.From(ctx).Error("Marshal order items", zap.Error(err))
		return
	}

	row := []string{
		r.OrderID,
		r.PlacedAt.Format(time.RFC3339),
		string(itemsJSON),
		r.Total.StringFixed(2),
	}
	if err := s.store.AppendRow(ctx, catalog.TableOrders, row); err != nil {
		zctx.From(ctx).Error("Append order row",
			zap.String("order_id", r.OrderID),
			zap.Error(err),
		)
	}
}
