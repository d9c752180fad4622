package inventory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/inventory-ledger/inventory"
	"github.com/warp/inventory-ledger/inventory/store"
)

func newAnalytics(s *store.Memory) *inventory.Analytics {
	return inventory.NewAnalytics(s, s)
}

func sell(t *testing.T, s inventory.TxStore, id inventory.ProductID, qty int) inventory.SaleEntry {
	t.Helper()
	e, err := newProcessor(s).RecordSale(context.Background(), id, qty)
	require.NoError(t, err)
	return e
}

// =============================================================================
// REVENUE
// =============================================================================

func TestTotalRevenue(t *testing.T) {
	ctx := context.Background()

	t.Run("no sales", func(t *testing.T) {
		revenue, err := newAnalytics(store.NewMemory()).TotalRevenue(ctx)
		require.NoError(t, err)
		assert.True(t, revenue.IsZero())
	})

	t.Run("one sale", func(t *testing.T) {
		s := store.NewMemory()
		widget := addProduct(t, s, "Widget", "10.00", 3)
		sell(t, s, widget.ID, 2)

		revenue, err := newAnalytics(s).TotalRevenue(ctx)
		require.NoError(t, err)
		assert.Equal(t, "20.00", revenue.StringFixed(2))
	})

	t.Run("many sales equal the ledger sum", func(t *testing.T) {
		s := store.NewMemory()
		a := addProduct(t, s, "A", "0.10", 100)
		b := addProduct(t, s, "B", "0.20", 100)
		for i := 0; i < 10; i++ {
			sell(t, s, a.ID, 1)
			sell(t, s, b.ID, 1)
		}

		revenue, err := newAnalytics(s).TotalRevenue(ctx)
		require.NoError(t, err)

		// 10 x 0.10 + 10 x 0.20, exact in decimal
		assert.Equal(t, "3", revenue.String())
		assert.True(t, revenue.Equal(inventory.Revenue(salesOf(t, s))))
	})
}

// =============================================================================
// TOP SELLER
// =============================================================================

func TestTopSellingProduct_ByQuantityNotRevenue(t *testing.T) {
	// GIVEN: A sold 3 times for 5 units, B sold once for 2 units at a higher price
	s := store.NewMemory()
	a := addProduct(t, s, "A", "1.00", 20)
	b := addProduct(t, s, "B", "100.00", 20)
	sell(t, s, a.ID, 1)
	sell(t, s, b.ID, 2)
	sell(t, s, a.ID, 2)
	sell(t, s, a.ID, 2)

	// WHEN: Asking for the top seller
	top, err := newAnalytics(s).TopSellingProduct(context.Background())

	// THEN: A with 5 units
	require.NoError(t, err)
	require.NotNil(t, top)
	assert.Equal(t, a.ID, top.ProductID)
	assert.Equal(t, "A", top.Name)
	assert.Equal(t, 5, top.QuantitySold)
}

func TestTopSellingProduct_NoSales(t *testing.T) {
	s := store.NewMemory()
	addProduct(t, s, "A", "1.00", 20)

	top, err := newAnalytics(s).TopSellingProduct(context.Background())
	require.NoError(t, err)
	assert.Nil(t, top)
}

func TestTopSellingProduct_TieGoesToLowestID(t *testing.T) {
	s := store.NewMemory()
	a := addProduct(t, s, "A", "1.00", 20)
	b := addProduct(t, s, "B", "1.00", 20)

	// B sells first so insertion order can't decide the tie
	sell(t, s, b.ID, 3)
	sell(t, s, a.ID, 3)

	for i := 0; i < 5; i++ {
		top, err := newAnalytics(s).TopSellingProduct(context.Background())
		require.NoError(t, err)
		assert.Equal(t, a.ID, top.ProductID)
	}
}

func TestTopSellingProduct_DeletedProductKeepsSnapshotName(t *testing.T) {
	// GIVEN: The best seller was deleted from the catalog
	s := store.NewMemory()
	gone := addProduct(t, s, "Discontinued", "2.00", 10)
	kept := addProduct(t, s, "Regular", "2.00", 10)
	sell(t, s, gone.ID, 4)
	sell(t, s, kept.ID, 1)
	require.NoError(t, inventory.NewCatalog(s).Delete(context.Background(), gone.ID))

	// WHEN: Asking for the top seller
	top, err := newAnalytics(s).TopSellingProduct(context.Background())

	// THEN: It is still reported under the name it was sold with
	require.NoError(t, err)
	assert.Equal(t, gone.ID, top.ProductID)
	assert.Equal(t, "Discontinued", top.Name)
	assert.Equal(t, 4, top.QuantitySold)
}

func TestTopSellingProduct_RenamedProductUsesCurrentName(t *testing.T) {
	s := store.NewMemory()
	p := addProduct(t, s, "Old Name", "2.00", 10)
	sell(t, s, p.ID, 1)

	name := "New Name"
	_, err := inventory.NewCatalog(s).Update(context.Background(), p.ID, inventory.ProductUpdate{Name: &name})
	require.NoError(t, err)

	top, err := newAnalytics(s).TopSellingProduct(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "New Name", top.Name)
}

// =============================================================================
// LOW STOCK
// =============================================================================

func TestLowStockProducts_StrictlyBelowThreshold(t *testing.T) {
	// GIVEN: Stock 4 and stock 5
	s := store.NewMemory()
	low := addProduct(t, s, "Almost Gone", "1.00", 4)
	addProduct(t, s, "Just Enough", "1.00", 5)

	// WHEN: Using the default threshold
	products, err := newAnalytics(s).LowStockProducts(context.Background(), inventory.DefaultLowStockThreshold)

	// THEN: Only stock 4 is reported
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, low.ID, products[0].ID)
}

func TestLowStockProducts_OrderedByID(t *testing.T) {
	s := store.NewMemory()
	for _, stock := range []int{0, 9, 2, 1} {
		addProduct(t, s, "P", "1.00", stock)
	}

	products, err := newAnalytics(s).LowStockProducts(context.Background(), 5)
	require.NoError(t, err)

	var ids []inventory.ProductID
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []inventory.ProductID{1, 3, 4}, ids)
}

func TestLowStockProducts_EdgeThresholds(t *testing.T) {
	s := store.NewMemory()
	addProduct(t, s, "Empty", "1.00", 0)
	a := newAnalytics(s)

	products, err := a.LowStockProducts(context.Background(), 0)
	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)

	_, err = a.LowStockProducts(context.Background(), -1)
	assert.ErrorIs(t, err, inventory.ErrInvalidInput)
}

// =============================================================================
// SUMMARY & READ STABILITY
// =============================================================================

func TestSummary_RepeatedReadsAreIdentical(t *testing.T) {
	s := store.NewMemory()
	a := addProduct(t, s, "A", "3.30", 6)
	b := addProduct(t, s, "B", "1.10", 6)
	sell(t, s, a.ID, 2)
	sell(t, s, b.ID, 3)

	analytics := newAnalytics(s)
	first, err := analytics.Summary(context.Background(), 5)
	require.NoError(t, err)
	second, err := analytics.Summary(context.Background(), 5)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "9.90", first.TotalRevenue.StringFixed(2))
	assert.Equal(t, b.ID, first.TopSeller.ProductID)
	assert.Len(t, first.LowStock, 2)
	assert.Equal(t, 5, first.Threshold)
}

// =============================================================================
// STORE FAILURES
// =============================================================================

// failingReads wraps a memory store and fails the read side it is told to.
type failingReads struct {
	*store.Memory
	catalogDown bool
	ledgerDown  bool
}

func (f *failingReads) GetProduct(ctx context.Context, id inventory.ProductID) (*inventory.Product, error) {
	if f.catalogDown {
		return nil, errDiskFull
	}
	return f.Memory.GetProduct(ctx, id)
}

func (f *failingReads) ListProductsBelow(ctx context.Context, threshold int) ([]inventory.Product, error) {
	if f.catalogDown {
		return nil, errDiskFull
	}
	return f.Memory.ListProductsBelow(ctx, threshold)
}

func (f *failingReads) Sales(ctx context.Context) ([]inventory.SaleEntry, error) {
	if f.ledgerDown {
		return nil, errDiskFull
	}
	return f.Memory.Sales(ctx)
}

func TestAnalytics_StoreFailuresSurfaceAsUnavailable(t *testing.T) {
	// GIVEN: A product with a sale, so every query reaches the store
	s := store.NewMemory()
	widget := addProduct(t, s, "Widget", "10.00", 3)
	sell(t, s, widget.ID, 1)

	queries := map[string]func(*inventory.Analytics) error{
		"total revenue": func(a *inventory.Analytics) error {
			_, err := a.TotalRevenue(context.Background())
			return err
		},
		"top seller": func(a *inventory.Analytics) error {
			_, err := a.TopSellingProduct(context.Background())
			return err
		},
		"low stock": func(a *inventory.Analytics) error {
			_, err := a.LowStockProducts(context.Background(), inventory.DefaultLowStockThreshold)
			return err
		},
		"summary": func(a *inventory.Analytics) error {
			_, err := a.Summary(context.Background(), inventory.DefaultLowStockThreshold)
			return err
		},
	}

	tests := []struct {
		name   string
		reads  *failingReads
		failed []string
	}{
		{"ledger down", &failingReads{Memory: s, ledgerDown: true}, []string{"total revenue", "top seller", "summary"}},
		{"catalog down", &failingReads{Memory: s, catalogDown: true}, []string{"top seller", "low stock", "summary"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := inventory.NewAnalytics(tt.reads, tt.reads)

			// WHEN/THEN: Each query that touches the failed side reports it
			for _, name := range tt.failed {
				err := queries[name](a)
				require.Error(t, err, name)
				assert.True(t, errors.Is(err, inventory.ErrStoreUnavailable), name)
				assert.ErrorIs(t, err, errDiskFull, name)
			}
		})
	}
}

func TestAnalytics_FailedQueriesReturnNoPartialResult(t *testing.T) {
	s := store.NewMemory()
	widget := addProduct(t, s, "Widget", "10.00", 3)
	sell(t, s, widget.ID, 1)
	a := inventory.NewAnalytics(s, &failingReads{Memory: s, ledgerDown: true})

	revenue, err := a.TotalRevenue(context.Background())
	require.ErrorIs(t, err, inventory.ErrStoreUnavailable)
	assert.True(t, revenue.IsZero())

	top, err := a.TopSellingProduct(context.Background())
	require.ErrorIs(t, err, inventory.ErrStoreUnavailable)
	assert.Nil(t, top)

	summary, err := a.Summary(context.Background(), 5)
	require.ErrorIs(t, err, inventory.ErrStoreUnavailable)
	assert.Equal(t, inventory.Summary{}, summary)
}
