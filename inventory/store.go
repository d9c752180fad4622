/*
store.go - Persistence contracts for the catalog and the sale ledger

PURPOSE:
  Defines the interface between the inventory core and the database.
  The core depends only on these contracts; SQLite and in-memory
  implementations live in store/sqlite and inventory/store.

KEY INTERFACES:
  CatalogStore: Product rows (CRUD + low-stock listing)
  LedgerStore:  Sale entries (append + ordered reads, APPEND-ONLY)
  Tx:           The view handed to an atomic unit of work
  TxStore:      Catalog + ledger with WithTx

ATOMIC UNIT:
  A sale reads the product, appends a ledger entry and decrements stock.
  All three run inside WithTx: if fn returns an error nothing is applied,
  if it returns nil both writes become visible together.

ABSENCE:
  GetProduct / GetSale / SaleByReference return (nil, nil) when the row
  does not exist. Errors are reserved for store failures.

SEE ALSO:
  - ledger.go: Higher-level ledger using LedgerStore
  - store/sqlite/sqlite.go: Concrete implementation
  - store/memory.go: In-memory implementation for tests
*/
package inventory

import "context"

// =============================================================================
// CATALOG STORE
// =============================================================================

// CatalogReader is the read side of the catalog.
type CatalogReader interface {
	// GetProduct returns nil when the product doesn't exist.
	GetProduct(ctx context.Context, id ProductID) (*Product, error)

	// ListProducts returns all products ordered by id.
	ListProducts(ctx context.Context) ([]Product, error)

	// ListProductsBelow returns products with stock < threshold, ordered by id.
	ListProductsBelow(ctx context.Context, threshold int) ([]Product, error)
}

// CatalogStore holds product records.
type CatalogStore interface {
	CatalogReader

	// CreateProduct assigns an id and returns the stored product.
	CreateProduct(ctx context.Context, p Product) (Product, error)

	// UpdateProduct writes only the non-nil fields of u and returns the
	// stored product. Columns the update leaves nil are never rewritten, so
	// a sale committed concurrently keeps its stock decrement.
	// ErrNotFound if missing.
	UpdateProduct(ctx context.Context, id ProductID, u ProductUpdate) (Product, error)

	// DeleteProduct removes a product. Sale history is not touched.
	// ErrNotFound if missing.
	DeleteProduct(ctx context.Context, id ProductID) error
}

// =============================================================================
// LEDGER STORE - APPEND-ONLY
// =============================================================================

// LedgerReader is the read side of the sale ledger.
type LedgerReader interface {
	// Sales returns every entry ordered by id (creation order).
	Sales(ctx context.Context) ([]SaleEntry, error)

	// RecentSales returns up to limit entries, newest first.
	RecentSales(ctx context.Context, limit int) ([]SaleEntry, error)

	// GetSale returns nil when the entry doesn't exist.
	GetSale(ctx context.Context, id SaleID) (*SaleEntry, error)

	// SaleByReference returns nil when no entry has the reference.
	SaleByReference(ctx context.Context, reference string) (*SaleEntry, error)
}

// LedgerStore persists sale entries.
// IMPORTANT: No Update, No Delete.
type LedgerStore interface {
	LedgerReader

	// AppendSale persists e and returns it with its assigned id.
	// This is the ONLY ledger write operation.
	AppendSale(ctx context.Context, e SaleEntry) (SaleEntry, error)
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// Tx is the store view inside an atomic unit.
type Tx interface {
	GetProduct(ctx context.Context, id ProductID) (*Product, error)

	// DecrementStock lowers stock by amount. It fails with
	// ErrInsufficientStock rather than letting stock go negative, and with
	// ErrNotFound when the product is missing.
	DecrementStock(ctx context.Context, id ProductID, amount int) error

	AppendSale(ctx context.Context, e SaleEntry) (SaleEntry, error)
	SaleByReference(ctx context.Context, reference string) (*SaleEntry, error)
}

// TxStore is a catalog and ledger with atomic units of work.
type TxStore interface {
	CatalogStore
	LedgerStore

	// WithTx executes fn within a transaction.
	// If fn returns error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(Tx) error) error
}
