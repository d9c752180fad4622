/*
sale_test.go - Tests for the sale transaction processor

ORGANIZATION:
  1. Happy path and the check order (invalid input, not found, stock)
  2. Reference replay
  3. Atomicity under a failing stock decrement
  4. Concurrent sales never oversell

Each test has GIVEN/WHEN/THEN comments. The in-memory store is used here;
store/sqlite runs the same atomicity checks against SQLite.
*/
package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/inventory-ledger/inventory"
	"github.com/warp/inventory-ledger/inventory/store"
)

// =============================================================================
// TEST INFRASTRUCTURE
// =============================================================================

var fixedNow = time.Date(2025, time.March, 14, 9, 30, 15, 987654321, time.UTC)

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newProcessor(s inventory.TxStore) *inventory.SaleProcessor {
	return inventory.NewSaleProcessor(s, inventory.WithClock(func() time.Time { return fixedNow }))
}

func addProduct(t *testing.T, s inventory.CatalogStore, name, p string, stock int) inventory.Product {
	t.Helper()
	created, err := inventory.NewCatalog(s).Create(context.Background(), name, price(p), stock)
	require.NoError(t, err)
	return created
}

func stockOf(t *testing.T, s inventory.CatalogReader, id inventory.ProductID) int {
	t.Helper()
	p, err := s.GetProduct(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.Stock
}

func salesOf(t *testing.T, s inventory.LedgerReader) []inventory.SaleEntry {
	t.Helper()
	entries, err := s.Sales(context.Background())
	require.NoError(t, err)
	return entries
}

// failingDecrementStore fails DecrementStock inside every atomic unit,
// after the ledger append already happened.
type failingDecrementStore struct {
	inventory.TxStore
}

func (f failingDecrementStore) WithTx(ctx context.Context, fn func(inventory.Tx) error) error {
	return f.TxStore.WithTx(ctx, func(tx inventory.Tx) error {
		return fn(failingDecrementTx{Tx: tx})
	})
}

type failingDecrementTx struct {
	inventory.Tx
}

var errDiskFull = errors.New("disk full")

func (failingDecrementTx) DecrementStock(context.Context, inventory.ProductID, int) error {
	return errDiskFull
}

// =============================================================================
// RECORD SALE
// =============================================================================

func TestRecordSale_DecrementsStockAndAppendsEntry(t *testing.T) {
	// GIVEN: Widget priced 10.00 with 3 in stock
	s := store.NewMemory()
	widget := addProduct(t, s, "Widget", "10.00", 3)

	// WHEN: Selling 2
	entry, err := newProcessor(s).RecordSale(context.Background(), widget.ID, 2)

	// THEN: The entry carries the total and a snapshot of the product
	require.NoError(t, err)
	assert.Equal(t, inventory.SaleID(1), entry.ID)
	assert.Equal(t, widget.ID, entry.ProductID)
	assert.Equal(t, "Widget", entry.ProductName)
	assert.Equal(t, 2, entry.Quantity)
	assert.True(t, entry.UnitPrice.Equal(price("10")))
	assert.True(t, entry.Total.Equal(price("20")), "total = 2 x 10.00, got %s", entry.Total)
	assert.NotEmpty(t, entry.Reference)

	// AND: Stock dropped to 1 and the ledger holds exactly this entry
	assert.Equal(t, 1, stockOf(t, s, widget.ID))
	assert.Equal(t, []inventory.SaleEntry{entry}, salesOf(t, s))
}

func TestRecordSale_TimestampIsUTCSeconds(t *testing.T) {
	s := store.NewMemory()
	widget := addProduct(t, s, "Widget", "1.00", 1)

	local := time.FixedZone("UTC+2", 2*60*60)
	processor := inventory.NewSaleProcessor(s,
		inventory.WithClock(func() time.Time { return fixedNow.In(local) }))

	entry, err := processor.RecordSale(context.Background(), widget.ID, 1)
	require.NoError(t, err)

	assert.Equal(t, time.UTC, entry.SoldAt.Location())
	assert.Equal(t, "2025-03-14 09:30:15", entry.SoldAt.Format(inventory.SaleTimeLayout))
}

func TestRecordSale_InsufficientStockChangesNothing(t *testing.T) {
	// GIVEN: Widget with 3 in stock
	s := store.NewMemory()
	widget := addProduct(t, s, "Widget", "10.00", 3)

	// WHEN: Trying to sell 5
	_, err := newProcessor(s).RecordSale(context.Background(), widget.ID, 5)

	// THEN: InsufficientStock with the shortage details
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)
	var se *inventory.InsufficientStockError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 3, se.Available)
	assert.Equal(t, 5, se.Requested)

	// AND: Stock and ledger are untouched
	assert.Equal(t, 3, stockOf(t, s, widget.ID))
	assert.Empty(t, salesOf(t, s))
}

func TestRecordSale_SellsEntireStock(t *testing.T) {
	s := store.NewMemory()
	widget := addProduct(t, s, "Widget", "10.00", 3)

	_, err := newProcessor(s).RecordSale(context.Background(), widget.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, stockOf(t, s, widget.ID))

	_, err = newProcessor(s).RecordSale(context.Background(), widget.ID, 1)
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)
}

func TestRecordSale_UnknownProduct(t *testing.T) {
	// GIVEN: An empty catalog
	s := store.NewMemory()

	// WHEN: Selling product 999
	_, err := newProcessor(s).RecordSale(context.Background(), 999, 1)

	// THEN: NotFound, and nothing was written
	assert.ErrorIs(t, err, inventory.ErrNotFound)
	assert.Empty(t, salesOf(t, s))
}

func TestRecordSale_InvalidInput(t *testing.T) {
	s := store.NewMemory()
	widget := addProduct(t, s, "Widget", "10.00", 3)

	tests := []struct {
		name      string
		productID inventory.ProductID
		quantity  int
	}{
		{"zero quantity", widget.ID, 0},
		{"negative quantity", widget.ID, -2},
		{"zero product id", 0, 1},
		{"negative product id", -1, 1},
		// quantity is checked before the product is looked up
		{"unknown product, bad quantity", 999, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newProcessor(s).RecordSale(context.Background(), tt.productID, tt.quantity)
			assert.ErrorIs(t, err, inventory.ErrInvalidInput)
		})
	}

	assert.Equal(t, 3, stockOf(t, s, widget.ID))
	assert.Empty(t, salesOf(t, s))
}

func TestRecordSale_UsesPriceAtSaleTime(t *testing.T) {
	// GIVEN: A sale at 10.00
	s := store.NewMemory()
	widget := addProduct(t, s, "Widget", "10.00", 10)
	processor := newProcessor(s)
	first, err := processor.RecordSale(context.Background(), widget.ID, 1)
	require.NoError(t, err)

	// WHEN: The price changes and another sale is made
	newPrice := price("12.50")
	_, err = inventory.NewCatalog(s).Update(context.Background(), widget.ID, inventory.ProductUpdate{Price: &newPrice})
	require.NoError(t, err)
	second, err := processor.RecordSale(context.Background(), widget.ID, 2)
	require.NoError(t, err)

	// THEN: Each entry keeps the price it was sold at
	assert.True(t, first.Total.Equal(price("10.00")))
	assert.True(t, second.UnitPrice.Equal(price("12.50")))
	assert.True(t, second.Total.Equal(price("25.00")))
}

func TestRecordSale_CancelledContext(t *testing.T) {
	s := store.NewMemory()
	widget := addProduct(t, s, "Widget", "10.00", 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newProcessor(s).RecordSale(ctx, widget.ID, 1)
	assert.ErrorIs(t, err, inventory.ErrStoreUnavailable)
	assert.Equal(t, 3, stockOf(t, s, widget.ID))
}

// =============================================================================
// REFERENCES
// =============================================================================

func TestRecord_ReplayedReferenceReturnsOriginal(t *testing.T) {
	// GIVEN: A sale recorded with reference "order-17"
	s := store.NewMemory()
	widget := addProduct(t, s, "Widget", "10.00", 5)
	processor := newProcessor(s)
	req := inventory.SaleRequest{ProductID: widget.ID, Quantity: 2, Reference: "order-17"}

	first, err := processor.Record(context.Background(), req)
	require.NoError(t, err)

	// WHEN: The same request is retried
	second, err := processor.Record(context.Background(), req)

	// THEN: The first entry comes back and stock is decremented once
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 3, stockOf(t, s, widget.ID))
	assert.Len(t, salesOf(t, s), 1)
}

func TestRecord_ReferenceReusedForDifferentSale(t *testing.T) {
	s := store.NewMemory()
	widget := addProduct(t, s, "Widget", "10.00", 5)
	processor := newProcessor(s)

	_, err := processor.Record(context.Background(),
		inventory.SaleRequest{ProductID: widget.ID, Quantity: 2, Reference: "order-17"})
	require.NoError(t, err)

	_, err = processor.Record(context.Background(),
		inventory.SaleRequest{ProductID: widget.ID, Quantity: 1, Reference: "order-17"})
	assert.ErrorIs(t, err, inventory.ErrInvalidInput)
	assert.Equal(t, 3, stockOf(t, s, widget.ID))
}

func TestRecord_GeneratedReferences(t *testing.T) {
	s := store.NewMemory()
	widget := addProduct(t, s, "Widget", "10.00", 5)

	n := 0
	processor := inventory.NewSaleProcessor(s, inventory.WithReferenceGenerator(func() string {
		n++
		return "gen-" + string(rune('a'+n-1))
	}))

	a, err := processor.RecordSale(context.Background(), widget.ID, 1)
	require.NoError(t, err)
	b, err := processor.RecordSale(context.Background(), widget.ID, 1)
	require.NoError(t, err)

	assert.Equal(t, "gen-a", a.Reference)
	assert.Equal(t, "gen-b", b.Reference)
}

// =============================================================================
// ATOMICITY
// =============================================================================

func TestRecordSale_FailedDecrementRollsBackAppend(t *testing.T) {
	// GIVEN: A store whose stock decrement fails after the ledger append
	mem := store.NewMemory()
	widget := addProduct(t, mem, "Widget", "10.00", 3)
	processor := newProcessor(failingDecrementStore{TxStore: mem})

	// WHEN: Recording a sale
	_, err := processor.RecordSale(context.Background(), widget.ID, 2)

	// THEN: StoreUnavailable wrapping the cause
	require.ErrorIs(t, err, inventory.ErrStoreUnavailable)
	assert.ErrorIs(t, err, errDiskFull)

	// AND: Neither the append nor the decrement is visible
	assert.Empty(t, salesOf(t, mem))
	assert.Equal(t, 3, stockOf(t, mem, widget.ID))

	// AND: The next real sale gets id 1
	entry, err := newProcessor(mem).RecordSale(context.Background(), widget.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, inventory.SaleID(1), entry.ID)
}

// =============================================================================
// CONCURRENCY
// =============================================================================

func TestRecordSale_ConcurrentSalesNeverOversell(t *testing.T) {
	// GIVEN: 10 in stock and 20 buyers wanting one each
	s := store.NewMemory()
	widget := addProduct(t, s, "Widget", "1.00", 10)
	processor := newProcessor(s)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		shortages int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := processor.RecordSale(context.Background(), widget.ID, 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, inventory.ErrInsufficientStock):
				shortages++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	// THEN: Exactly 10 sales went through and stock is exactly 0
	assert.Equal(t, 10, succeeded)
	assert.Equal(t, 10, shortages)
	assert.Equal(t, 0, stockOf(t, s, widget.ID))
	assert.Len(t, salesOf(t, s), 10)
}
