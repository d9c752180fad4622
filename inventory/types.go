/*
Package inventory provides the core of the sales and inventory ledger.

PURPOSE:
  Tracks products (name, unit price, stock level) and records sales against
  them. Recording a sale decrements stock and appends an immutable entry to
  the sale ledger; revenue and best-seller figures are always derived from
  that ledger, never stored separately.

KEY CONCEPTS IN THIS FILE (types.go):
  - Product: A catalog row with its current stock level
  - SaleEntry: An immutable ledger row, one per recorded sale
  - TopSeller: Aggregate returned by the analytics engine

DESIGN PRINCIPLES:
  1. Append-only: SaleEntry rows are never updated or deleted
  2. Precision: Prices and totals use decimal.Decimal, not float64
  3. Self-describing history: each entry snapshots the product name and
     unit price, so deleting or repricing a product never rewrites history
  4. Stock never goes negative

SEE ALSO:
  - sale.go: Sale transaction processor (the only stock mutator besides catalog edits)
  - analytics.go: Read-only aggregates over the ledger
  - ledger.go: Ledger access
  - store.go: Persistence contracts
*/
package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ProductID int64
type SaleID int64

// =============================================================================
// PRODUCT - Catalog row
// =============================================================================

// Product is owned by the catalog store. Stock is mutated by catalog updates
// and by the sale processor (decrement only).
type Product struct {
	ID    ProductID
	Name  string
	Price decimal.Decimal
	Stock int
}

// ProductUpdate carries a partial update. Nil fields are left unchanged.
type ProductUpdate struct {
	Name  *string
	Price *decimal.Decimal
	Stock *int
}

// Apply returns p with the non-nil fields of u applied.
func (u ProductUpdate) Apply(p Product) Product {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.Stock != nil {
		p.Stock = *u.Stock
	}
	return p
}

// IsEmpty reports whether the update changes nothing.
func (u ProductUpdate) IsEmpty() bool {
	return u.Name == nil && u.Price == nil && u.Stock == nil
}

// =============================================================================
// SALE ENTRY - Immutable ledger row
// =============================================================================

// SaleEntry records one sale. Once appended it is never modified.
//
// Total always equals Quantity * UnitPrice, where UnitPrice is the product
// price at the moment of sale.
type SaleEntry struct {
	ID          SaleID
	Reference   string
	ProductID   ProductID
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    int
	Total       decimal.Decimal
	SoldAt      time.Time
}

// SaleRequest is the input to SaleProcessor.Record.
type SaleRequest struct {
	ProductID ProductID
	Quantity  int

	// Reference makes the request idempotent. Empty means a new UUID is
	// assigned.
	Reference string
}

// =============================================================================
// ANALYTICS RESULTS
// =============================================================================

// TopSeller is the product with the highest total quantity sold.
type TopSeller struct {
	ProductID    ProductID
	Name         string
	QuantitySold int
}

// Summary bundles the three analytics views.
type Summary struct {
	TotalRevenue decimal.Decimal
	TopSeller    *TopSeller
	LowStock     []Product
	Threshold    int
}

// SaleTimeLayout is the persisted, sortable timestamp format (second precision).
const SaleTimeLayout = "2006-01-02 15:04:05"

// DefaultLowStockThreshold is the stock level below which a product is low.
const DefaultLowStockThreshold = 5
