/*
Package sqlite provides a SQLite-backed implementation of inventory.TxStore.

PURPOSE:
  Persists the product catalog and the sale ledger. The same SQL would run
  on PostgreSQL with minor dialect changes.

INTERFACES IMPLEMENTED:
  inventory.CatalogStore: Product rows
  inventory.LedgerStore:  Sale entries (append-only)
  inventory.TxStore:      WithTx atomic units

APPEND-ONLY ENFORCEMENT:
  - No UPDATE or DELETE statements on the sales table (Reset aside)
  - A trigger aborts any UPDATE on sales
  - stock has a CHECK (stock >= 0) constraint

KEY TABLES:
  products: id, name, price (decimal text), stock
  sales:    id, reference, product_id, product_name, unit_price,
            quantity, total (decimal text), date (YYYY-MM-DD HH:MM:SS UTC)

CONCURRENCY:
  Writers are serialized by a weighted semaphore (size 1). Acquisition is
  bounded by the lock timeout; on timeout the caller gets
  inventory.ErrStoreUnavailable. SQLite's busy_timeout is set to the same
  value. The pool holds a single connection, which also keeps ":memory:"
  databases alive for the lifetime of the Store.

MIGRATION:
  Schema is migrated on New() with golang-migrate from the embedded
  migrations/ directory.

USAGE:
  store, err := sqlite.New("./inventory.db", sqlite.WithLockTimeout(2*time.Second))
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - inventory/store.go: Interface definitions
  - inventory/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/semaphore"

	"github.com/warp/inventory-ledger/inventory"
)

//go:embed migrations/*.sql
var migrations embed.FS

// DefaultLockTimeout bounds how long a writer waits for the write lock.
const DefaultLockTimeout = 5 * time.Second

// Store implements inventory.TxStore using SQLite.
type Store struct {
	db          *sqlx.DB
	writers     *semaphore.Weighted
	lockTimeout time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithLockTimeout sets how long writers wait before failing with
// inventory.ErrStoreUnavailable.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string, opts ...Option) (*Store, error) {
	store := &Store{
		writers:     semaphore.NewWeighted(1),
		lockTimeout: DefaultLockTimeout,
	}
	for _, opt := range opts {
		opt(store)
	}

	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=%d",
		dbPath, store.lockTimeout.Milliseconds())
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	store.db = db
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to migrate database")
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate applies the embedded schema migrations.
func (s *Store) migrate() error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}
	driver, err := migratesqlite.WithInstance(s.db.DB, &migratesqlite.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	// m.Close() would close the shared *sql.DB as well.
	return source.Close()
}

// acquire takes the write lock, waiting at most lockTimeout.
func (s *Store) acquire(ctx context.Context, op string) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	if err := s.writers.Acquire(ctx, 1); err != nil {
		return nil, &inventory.StoreError{Op: op, Err: errors.Wrap(err, "acquire write lock")}
	}
	return func() { s.writers.Release(1) }, nil
}

// =============================================================================
// ROWS
// =============================================================================

type productRow struct {
	ID    int64  `db:"id"`
	Name  string `db:"name"`
	Price string `db:"price"`
	Stock int    `db:"stock"`
}

func (r productRow) toProduct() (inventory.Product, error) {
	price, err := decimal.NewFromString(r.Price)
	if err != nil {
		return inventory.Product{}, errors.Wrapf(err, "product %d: bad price %q", r.ID, r.Price)
	}
	return inventory.Product{
		ID:    inventory.ProductID(r.ID),
		Name:  r.Name,
		Price: price,
		Stock: r.Stock,
	}, nil
}

type saleRow struct {
	ID          int64  `db:"id"`
	Reference   string `db:"reference"`
	ProductID   int64  `db:"product_id"`
	ProductName string `db:"product_name"`
	UnitPrice   string `db:"unit_price"`
	Quantity    int    `db:"quantity"`
	Total       string `db:"total"`
	Date        string `db:"date"`
}

func (r saleRow) toEntry() (inventory.SaleEntry, error) {
	unitPrice, err := decimal.NewFromString(r.UnitPrice)
	if err != nil {
		return inventory.SaleEntry{}, errors.Wrapf(err, "sale %d: bad unit price %q", r.ID, r.UnitPrice)
	}
	total, err := decimal.NewFromString(r.Total)
	if err != nil {
		return inventory.SaleEntry{}, errors.Wrapf(err, "sale %d: bad total %q", r.ID, r.Total)
	}
	soldAt, err := time.ParseInLocation(inventory.SaleTimeLayout, r.Date, time.UTC)
	if err != nil {
		return inventory.SaleEntry{}, errors.Wrapf(err, "sale %d: bad date %q", r.ID, r.Date)
	}
	return inventory.SaleEntry{
		ID:          inventory.SaleID(r.ID),
		Reference:   r.Reference,
		ProductID:   inventory.ProductID(r.ProductID),
		ProductName: r.ProductName,
		UnitPrice:   unitPrice,
		Quantity:    r.Quantity,
		Total:       total,
		SoldAt:      soldAt,
	}, nil
}

const (
	productColumns = `id, name, price, stock`
	saleColumns    = `id, reference, product_id, product_name, unit_price, quantity, total, date`
)

// =============================================================================
// CATALOG STORE (inventory.CatalogStore interface)
// =============================================================================

// GetProduct retrieves a product by ID. Returns nil when absent.
func (s *Store) GetProduct(ctx context.Context, id inventory.ProductID) (*inventory.Product, error) {
	p, err := getProduct(ctx, s.db, id)
	return p, inventory.Unavailable("sqlite.get_product", err)
}

func getProduct(ctx context.Context, q sqlx.QueryerContext, id inventory.ProductID) (*inventory.Product, error) {
	var row productRow
	err := sqlx.GetContext(ctx, q, &row,
		"SELECT "+productColumns+" FROM products WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to query product")
	}
	p, err := row.toProduct()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProducts returns all products ordered by id.
func (s *Store) ListProducts(ctx context.Context) ([]inventory.Product, error) {
	products, err := s.queryProducts(ctx,
		"SELECT "+productColumns+" FROM products ORDER BY id")
	return products, inventory.Unavailable("sqlite.list_products", err)
}

// ListProductsBelow returns products with stock < threshold, ordered by id.
func (s *Store) ListProductsBelow(ctx context.Context, threshold int) ([]inventory.Product, error) {
	products, err := s.queryProducts(ctx,
		"SELECT "+productColumns+" FROM products WHERE stock < ? ORDER BY id", threshold)
	return products, inventory.Unavailable("sqlite.list_products_below", err)
}

func (s *Store) queryProducts(ctx context.Context, query string, args ...any) ([]inventory.Product, error) {
	var rows []productRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "failed to query products")
	}
	products := make([]inventory.Product, 0, len(rows))
	for _, r := range rows {
		p, err := r.toProduct()
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

// CreateProduct inserts a product and returns it with its assigned id.
func (s *Store) CreateProduct(ctx context.Context, p inventory.Product) (inventory.Product, error) {
	release, err := s.acquire(ctx, "sqlite.create_product")
	if err != nil {
		return inventory.Product{}, err
	}
	defer release()

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO products (name, price, stock) VALUES (?, ?, ?)",
		p.Name, p.Price.String(), p.Stock)
	if err != nil {
		return inventory.Product{}, inventory.Unavailable("sqlite.create_product", errors.Wrap(err, "failed to insert product"))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return inventory.Product{}, inventory.Unavailable("sqlite.create_product", err)
	}
	p.ID = inventory.ProductID(id)
	return p, nil
}

// UpdateProduct sets only the columns u names, then reads the row back in
// the same transaction.
func (s *Store) UpdateProduct(ctx context.Context, id inventory.ProductID, u inventory.ProductUpdate) (inventory.Product, error) {
	release, err := s.acquire(ctx, "sqlite.update_product")
	if err != nil {
		return inventory.Product{}, err
	}
	defer release()

	var (
		sets []string
		args []any
	)
	if u.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *u.Name)
	}
	if u.Price != nil {
		sets = append(sets, "price = ?")
		args = append(args, u.Price.String())
	}
	if u.Stock != nil {
		sets = append(sets, "stock = ?")
		args = append(args, *u.Stock)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return inventory.Product{}, inventory.Unavailable("sqlite.update_product", errors.Wrap(err, "failed to begin transaction"))
	}
	defer tx.Rollback()

	if len(sets) > 0 {
		res, err := tx.ExecContext(ctx,
			"UPDATE products SET "+strings.Join(sets, ", ")+" WHERE id = ?",
			append(args, id)...)
		if err != nil {
			return inventory.Product{}, inventory.Unavailable("sqlite.update_product", errors.Wrap(err, "failed to update product"))
		}
		if err := expectOne(res, id, "sqlite.update_product"); err != nil {
			return inventory.Product{}, err
		}
	}

	p, err := getProduct(ctx, tx, id)
	if err != nil {
		return inventory.Product{}, inventory.Unavailable("sqlite.update_product", err)
	}
	if p == nil {
		return inventory.Product{}, fmt.Errorf("product %d: %w", id, inventory.ErrNotFound)
	}
	if err := tx.Commit(); err != nil {
		return inventory.Product{}, inventory.Unavailable("sqlite.update_product", errors.Wrap(err, "failed to commit update"))
	}
	return *p, nil
}

// DeleteProduct removes a product. Sales referencing it are kept.
func (s *Store) DeleteProduct(ctx context.Context, id inventory.ProductID) error {
	release, err := s.acquire(ctx, "sqlite.delete_product")
	if err != nil {
		return err
	}
	defer release()

	res, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id)
	if err != nil {
		return inventory.Unavailable("sqlite.delete_product", errors.Wrap(err, "failed to delete product"))
	}
	return expectOne(res, id, "sqlite.delete_product")
}

func expectOne(res sql.Result, id inventory.ProductID, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return inventory.Unavailable(op, err)
	}
	if n == 0 {
		return fmt.Errorf("product %d: %w", id, inventory.ErrNotFound)
	}
	return nil
}

// =============================================================================
// LEDGER STORE (inventory.LedgerStore interface)
// =============================================================================

// AppendSale adds an entry to the ledger.
func (s *Store) AppendSale(ctx context.Context, e inventory.SaleEntry) (inventory.SaleEntry, error) {
	release, err := s.acquire(ctx, "sqlite.append_sale")
	if err != nil {
		return inventory.SaleEntry{}, err
	}
	defer release()

	return appendSale(ctx, s.db, e)
}

func appendSale(ctx context.Context, ex sqlx.ExecerContext, e inventory.SaleEntry) (inventory.SaleEntry, error) {
	res, err := ex.ExecContext(ctx, `
		INSERT INTO sales
		(reference, product_id, product_name, unit_price, quantity, total, date)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		e.Reference,
		e.ProductID,
		e.ProductName,
		e.UnitPrice.String(),
		e.Quantity,
		e.Total.String(),
		e.SoldAt.UTC().Format(inventory.SaleTimeLayout),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return inventory.SaleEntry{}, fmt.Errorf("reference %q already recorded: %w", e.Reference, inventory.ErrInvalidInput)
		}
		return inventory.SaleEntry{}, inventory.Unavailable("sqlite.append_sale", errors.Wrap(err, "failed to append sale"))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return inventory.SaleEntry{}, inventory.Unavailable("sqlite.append_sale", err)
	}
	e.ID = inventory.SaleID(id)
	e.SoldAt = e.SoldAt.UTC().Truncate(time.Second)
	return e, nil
}

// Sales returns the whole ledger in creation order.
func (s *Store) Sales(ctx context.Context) ([]inventory.SaleEntry, error) {
	entries, err := querySales(ctx, s.db,
		"SELECT "+saleColumns+" FROM sales ORDER BY id ASC")
	return entries, inventory.Unavailable("sqlite.sales", err)
}

// RecentSales returns up to limit entries, newest first.
func (s *Store) RecentSales(ctx context.Context, limit int) ([]inventory.SaleEntry, error) {
	entries, err := querySales(ctx, s.db,
		"SELECT "+saleColumns+" FROM sales ORDER BY id DESC LIMIT ?", limit)
	return entries, inventory.Unavailable("sqlite.recent_sales", err)
}

// GetSale returns a specific entry by ID. Returns nil when absent.
func (s *Store) GetSale(ctx context.Context, id inventory.SaleID) (*inventory.SaleEntry, error) {
	entries, err := querySales(ctx, s.db,
		"SELECT "+saleColumns+" FROM sales WHERE id = ?", id)
	if err != nil {
		return nil, inventory.Unavailable("sqlite.get_sale", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

// SaleByReference returns the entry carrying reference. Returns nil when absent.
func (s *Store) SaleByReference(ctx context.Context, reference string) (*inventory.SaleEntry, error) {
	e, err := saleByReference(ctx, s.db, reference)
	return e, inventory.Unavailable("sqlite.sale_by_reference", err)
}

func saleByReference(ctx context.Context, q sqlx.QueryerContext, reference string) (*inventory.SaleEntry, error) {
	entries, err := querySales(ctx, q,
		"SELECT "+saleColumns+" FROM sales WHERE reference = ?", reference)
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	return &entries[0], nil
}

func querySales(ctx context.Context, q sqlx.QueryerContext, query string, args ...any) ([]inventory.SaleEntry, error) {
	var rows []saleRow
	if err := sqlx.SelectContext(ctx, q, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "failed to query sales")
	}
	entries := make([]inventory.SaleEntry, 0, len(rows))
	for _, r := range rows {
		e, err := r.toEntry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// =============================================================================
// TRANSACTIONAL STORE (inventory.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(inventory.Tx) error) error {
	release, err := s.acquire(ctx, "sqlite.begin")
	if err != nil {
		return err
	}
	defer release()

	sqlTx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return &inventory.StoreError{Op: "sqlite.begin", Err: errors.Wrap(err, "failed to begin transaction")}
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return &inventory.StoreError{Op: "sqlite.commit", Err: errors.Wrap(err, "failed to commit transaction")}
	}
	return nil
}

type txStore struct {
	tx *sqlx.Tx
}

func (ts *txStore) GetProduct(ctx context.Context, id inventory.ProductID) (*inventory.Product, error) {
	p, err := getProduct(ctx, ts.tx, id)
	return p, inventory.Unavailable("sqlite.tx.get_product", err)
}

// DecrementStock is guarded by stock >= amount so stock can never go
// negative, even if the caller skipped its own check.
func (ts *txStore) DecrementStock(ctx context.Context, id inventory.ProductID, amount int) error {
	res, err := ts.tx.ExecContext(ctx,
		"UPDATE products SET stock = stock - ? WHERE id = ? AND stock >= ?",
		amount, id, amount)
	if err != nil {
		return inventory.Unavailable("sqlite.tx.decrement_stock", errors.Wrap(err, "failed to decrement stock"))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return inventory.Unavailable("sqlite.tx.decrement_stock", err)
	}
	if n == 1 {
		return nil
	}

	p, err := getProduct(ctx, ts.tx, id)
	if err != nil {
		return inventory.Unavailable("sqlite.tx.decrement_stock", err)
	}
	if p == nil {
		return fmt.Errorf("product %d: %w", id, inventory.ErrNotFound)
	}
	return &inventory.InsufficientStockError{ProductID: id, Available: p.Stock, Requested: amount}
}

func (ts *txStore) AppendSale(ctx context.Context, e inventory.SaleEntry) (inventory.SaleEntry, error) {
	return appendSale(ctx, ts.tx, e)
}

func (ts *txStore) SaleByReference(ctx context.Context, reference string) (*inventory.SaleEntry, error) {
	e, err := saleByReference(ctx, ts.tx, reference)
	return e, inventory.Unavailable("sqlite.tx.sale_by_reference", err)
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data and restarts id sequences (for demos).
func (s *Store) Reset(ctx context.Context) error {
	release, err := s.acquire(ctx, "sqlite.reset")
	if err != nil {
		return err
	}
	defer release()

	statements := []string{
		"DELETE FROM sales",
		"DELETE FROM products",
		"DELETE FROM sqlite_sequence WHERE name IN ('sales', 'products')",
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return inventory.Unavailable("sqlite.reset", errors.Wrap(err, stmt))
		}
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}
