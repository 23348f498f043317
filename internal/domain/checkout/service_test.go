package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sekarjagad/batik-store/internal/domain/cart"
	"github.com/sekarjagad/batik-store/internal/domain/catalog"
	"github.com/sekarjagad/batik-store/internal/rowstore"
	"github.com/sekarjagad/batik-store/internal/storage/memory"
)

// newTestStore seeds a store with:
//   - product 1: color axis, variants Ambonia (stock 1) and Kembang Legi (stock 3)
//   - product 2: no axes, implicit variant with stock 4
func newTestStore() *memory.Store {
	s := memory.New()
	s.SetTable(rowstore.Table{
		Name:   catalog.TableProducts,
		Header: []string{"id", "name", "price", "sizes", "colors", "stock"},
		Rows: [][]string{
			{"1", "Selendang", "90000", "", "Ambonia,Kembang Legi", "4"},
			{"2", "Tambal", "100000", "", "", "4"},
		},
	})
	s.SetTable(rowstore.Table{
		Name:   catalog.TableVariants,
		Header: []string{"product_id", "size", "color", "stock"},
		Rows: [][]string{
			{"1", "", "Ambonia", "1"},
			{"1", "", "Kembang Legi", "3"},
		},
	})
	s.SetTable(rowstore.Table{
		Name:   catalog.TableOrders,
		Header: []string{"id", "placed_at", "items", "total"},
	})
	return s
}

func newTestService(store rowstore.Store) *Service {
	svc := NewService(catalog.NewLoader(store), store)
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	svc.newID = func() string { return "order-1" }
	return svc
}

func color(v string) catalog.OptString { return catalog.NewOptString(v) }

func TestCommit_DecrementsVariantAndProductStock(t *testing.T) {
	store := newTestStore()
	svc := newTestService(store)

	result, err := svc.Commit(context.Background(), []cart.Line{
		{ProductID: 1, Color: color("Ambonia"), Quantity: 1},
	})
	require.NoError(t, err)
	require.True(t, result.OK)
	assert.Equal(t, "order-1", result.Receipt.OrderID)
	assert.True(t, decimal.RequireFromString("90000").Equal(result.Receipt.Total))

	variants, err := store.ReadTable(context.Background(), catalog.TableVariants)
	require.NoError(t, err)
	assert.Equal(t, "0", variants.Cell(0, "stock"))
	assert.Equal(t, "3", variants.Cell(1, "stock"), "untouched variant stays")

	products, err := store.ReadTable(context.Background(), catalog.TableProducts)
	require.NoError(t, err)
	assert.Equal(t, "3", products.Cell(0, "stock"), "denormalized product stock follows the variant sum")
}

func TestCommit_ImplicitVariantWritesProductRowOnly(t *testing.T) {
	store := newTestStore()
	svc := newTestService(store)

	result, err := svc.Commit(context.Background(), []cart.Line{
		{ProductID: 2, Quantity: 3},
	})
	require.NoError(t, err)
	require.True(t, result.OK)

	products, err := store.ReadTable(context.Background(), catalog.TableProducts)
	require.NoError(t, err)
	assert.Equal(t, "1", products.Cell(1, "stock"))
}

func TestCommit_AppendsOrderRow(t *testing.T) {
	store := newTestStore()
	svc := newTestService(store)

	_, err := svc.Commit(context.Background(), []cart.Line{
		{ProductID: 2, Quantity: 2},
	})
	require.NoError(t, err)

	orders, err := store.ReadTable(context.Background(), catalog.TableOrders)
	require.NoError(t, err)
	require.Len(t, orders.Rows, 1)
	assert.Equal(t, "order-1", orders.Cell(0, "id"))
	assert.Equal(t, "2024-06-01T12:00:00Z", orders.Cell(0, "placed_at"))
	assert.JSONEq(t, `[{"variantId":"2-null-null","quantity":2}]`, orders.Cell(0, "items"))
	assert.Equal(t, "200000.00", orders.Cell(0, "total"))
}

func TestCommit_RetryFailsInsteadOfDoubleDecrementing(t *testing.T) {
	store := newTestStore()
	svc := newTestService(store)
	lines := []cart.Line{{ProductID: 1, Color: color("Ambonia"), Quantity: 1}}

	first, err := svc.Commit(context.Background(), lines)
	require.NoError(t, err)
	require.True(t, first.OK)

	// The same cart replayed against the unchanged store must fail
	// re-validation, not drive the stock negative.
	second, err := svc.Commit(context.Background(), lines)
	require.NoError(t, err)
	require.False(t, second.OK)
	require.Len(t, second.Failures, 1)
	assert.Equal(t, cart.ReasonOutOfStock, second.Failures[0].Reason)

	variants, err := store.ReadTable(context.Background(), catalog.TableVariants)
	require.NoError(t, err)
	assert.Equal(t, "0", variants.Cell(0, "stock"))
}

func TestCommit_FailedValidationWritesNothing(t *testing.T) {
	store := newTestStore()
	svc := newTestService(store)

	result, err := svc.Commit(context.Background(), []cart.Line{
		{ProductID: 2, Quantity: 1},                          // satisfiable
		{ProductID: 1, Color: color("Ambonia"), Quantity: 9}, // not satisfiable
	})
	require.NoError(t, err)
	require.False(t, result.OK)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, cart.ReasonInsufficientStock, result.Failures[0].Reason)
	assert.Equal(t, 1, result.Failures[0].Available)

	// Whole-cart abort: the satisfiable line must not have been committed.
	products, err := store.ReadTable(context.Background(), catalog.TableProducts)
	require.NoError(t, err)
	assert.Equal(t, "4", products.Cell(1, "stock"))

	orders, err := store.ReadTable(context.Background(), catalog.TableOrders)
	require.NoError(t, err)
	assert.Empty(t, orders.Rows)
}

func TestCommit_DuplicateLinesAccumulate(t *testing.T) {
	store := newTestStore()
	svc := newTestService(store)

	// Two lines land on the same variant; the decrement applies to their
	// sum, clamped at zero.
	result, err := svc.Commit(context.Background(), []cart.Line{
		{ProductID: 1, Color: color("Kembang Legi"), Quantity: 2},
		{ProductID: 1, Color: color("Kembang Legi"), Quantity: 1},
	})
	require.NoError(t, err)
	require.True(t, result.OK)

	variants, err := store.ReadTable(context.Background(), catalog.TableVariants)
	require.NoError(t, err)
	assert.Equal(t, "0", variants.Cell(1, "stock"))

	products, err := store.ReadTable(context.Background(), catalog.TableProducts)
	require.NoError(t, err)
	assert.Equal(t, "1", products.Cell(0, "stock"), "only the Ambonia unit remains")
}

func TestCommit_EmptyCart(t *testing.T) {
	svc := newTestService(newTestStore())

	_, err := svc.Commit(context.Background(), nil)
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestCommit_InvalidQuantity(t *testing.T) {
	svc := newTestService(newTestStore())

	_, err := svc.Commit(context.Background(), []cart.Line{
		{ProductID: 1, Color: color("Ambonia"), Quantity: 0},
	})

	var iqErr *InvalidQuantityError
	require.ErrorAs(t, err, &iqErr)
	assert.Equal(t, int64(1), iqErr.ProductID)
}

func TestCommit_StoreUnavailable(t *testing.T) {
	// An empty memory store has no products table at all; the catalog
	// reload fails and the commit surfaces an infrastructure error.
	svc := newTestService(memory.New())

	_, err := svc.Commit(context.Background(), []cart.Line{
		{ProductID: 1, Quantity: 1},
	})
	require.Error(t, err)
	require.ErrorIs(t, err, rowstore.ErrTableNotFound)
}

func TestCommit_OrderAppendFailureDoesNotFailCheckout(t *testing.T) {
	store := newTestStore()
	svc := newTestService(store)

	// Simulate a shop without an orders tab. The stock write already
	// happened, so checkout still succeeds.
	noOrders := memory.New()
	noOrders.SetTable(mustRead(t, store, catalog.TableProducts))
	noOrders.SetTable(mustRead(t, store, catalog.TableVariants))
	svc = newTestService(noOrders)

	result, err := svc.Commit(context.Background(), []cart.Line{
		{ProductID: 2, Quantity: 1},
	})
	require.NoError(t, err)
	assert.True(t, result.OK)

	products, err := noOrders.ReadTable(context.Background(), catalog.TableProducts)
	require.NoError(t, err)
	assert.Equal(t, "3", products.Cell(1, "stock"))
}

func mustRead(t *testing.T, s rowstore.Store, name string) rowstore.Table {
	t.Helper()
	tbl, err := s.ReadTable(context.Background(), name)
	require.NoError(t, err)
	return tbl
}
