/*
analytics.go - Read-only aggregates over the ledger and catalog

PURPOSE:
  Answers the reporting questions: how much money came in, what sells
  best, what needs restocking. Every figure is derived from a fresh read
  of the ledger and catalog. Nothing here writes.

QUERIES:
  TotalRevenue:      Sum of Total over all entries (0 when empty)
  TopSellingProduct: Highest summed quantity per product (nil when empty)
  LowStockProducts:  Products with Stock < threshold, ordered by id

TIE-BREAK:
  When several products share the highest quantity, the one with the
  lowest product id wins.

NAMES FOR DELETED PRODUCTS:
  Top seller uses the current catalog name. If the product has since been
  deleted, the name snapshotted on its most recent sale is used instead.

SEE ALSO:
  - ledger.go: Ledger reads
  - store.go: CatalogReader
*/
package inventory

import (
	"context"

	"github.com/shopspring/decimal"
)

// Analytics derives aggregate views. It holds no state of its own.
type Analytics struct {
	catalog CatalogReader
	ledger  LedgerReader
}

// NewAnalytics creates an analytics engine over catalog and ledger reads.
func NewAnalytics(catalog CatalogReader, ledger LedgerReader) *Analytics {
	return &Analytics{catalog: catalog, ledger: ledger}
}

// TotalRevenue returns the sum of all sale totals.
func (a *Analytics) TotalRevenue(ctx context.Context) (decimal.Decimal, error) {
	entries, err := a.ledger.Sales(ctx)
	if err != nil {
		return decimal.Zero, Unavailable("analytics.total_revenue", err)
	}
	return Revenue(entries), nil
}

// Revenue sums the totals of entries.
func Revenue(entries []SaleEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Total)
	}
	return total
}

// TopSellingProduct returns the product with the highest quantity sold, or
// nil when there are no sales.
func (a *Analytics) TopSellingProduct(ctx context.Context) (*TopSeller, error) {
	entries, err := a.ledger.Sales(ctx)
	if err != nil {
		return nil, Unavailable("analytics.top_selling", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}

	sold := make(map[ProductID]int)
	lastName := make(map[ProductID]string)
	for _, e := range entries {
		sold[e.ProductID] += e.Quantity
		lastName[e.ProductID] = e.ProductName // entries are in id order
	}

	var best *TopSeller
	for id, qty := range sold {
		if best == nil || qty > best.QuantitySold || (qty == best.QuantitySold && id < best.ProductID) {
			best = &TopSeller{ProductID: id, QuantitySold: qty}
		}
	}

	product, err := a.catalog.GetProduct(ctx, best.ProductID)
	if err != nil {
		return nil, Unavailable("analytics.top_selling", err)
	}
	if product != nil {
		best.Name = product.Name
	} else {
		best.Name = lastName[best.ProductID]
	}
	return best, nil
}

// LowStockProducts returns products with stock strictly below threshold.
func (a *Analytics) LowStockProducts(ctx context.Context, threshold int) ([]Product, error) {
	if threshold < 0 {
		return nil, invalid("threshold", "must not be negative")
	}
	products, err := a.catalog.ListProductsBelow(ctx, threshold)
	if err != nil {
		return nil, Unavailable("analytics.low_stock", err)
	}
	if products == nil {
		products = []Product{}
	}
	return products, nil
}

// Summary runs all three queries.
func (a *Analytics) Summary(ctx context.Context, threshold int) (Summary, error) {
	revenue, err := a.TotalRevenue(ctx)
	if err != nil {
		return Summary{}, err
	}
	top, err := a.TopSellingProduct(ctx)
	if err != nil {
		return Summary{}, err
	}
	low, err := a.LowStockProducts(ctx, threshold)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		TotalRevenue: revenue,
		TopSeller:    top,
		LowStock:     low,
		Threshold:    threshold,
	}, nil
}
