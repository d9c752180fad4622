// Package store provides in-memory inventory.TxStore implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/inventory-ledger/inventory"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	products    map[inventory.ProductID]inventory.Product
	sales       []inventory.SaleEntry
	references  map[string]int // reference -> index into sales
	nextProduct inventory.ProductID
	nextSale    inventory.SaleID
}

func NewMemory() *Memory {
	return &Memory{
		products:    make(map[inventory.ProductID]inventory.Product),
		references:  make(map[string]int),
		nextProduct: 1,
		nextSale:    1,
	}
}

// =============================================================================
// CATALOG
// =============================================================================

func (m *Memory) GetProduct(_ context.Context, id inventory.ProductID) (*inventory.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLocked(id), nil
}

func (m *Memory) getLocked(id inventory.ProductID) *inventory.Product {
	p, ok := m.products[id]
	if !ok {
		return nil
	}
	return &p
}

func (m *Memory) ListProducts(_ context.Context) ([]inventory.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.filterLocked(func(inventory.Product) bool { return true }), nil
}

func (m *Memory) ListProductsBelow(_ context.Context, threshold int) ([]inventory.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.filterLocked(func(p inventory.Product) bool { return p.Stock < threshold }), nil
}

func (m *Memory) filterLocked(keep func(inventory.Product) bool) []inventory.Product {
	result := []inventory.Product{}
	for _, p := range m.products {
		if keep(p) {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (m *Memory) CreateProduct(_ context.Context, p inventory.Product) (inventory.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p.ID = m.nextProduct
	m.nextProduct++
	m.products[p.ID] = p
	return p, nil
}

// UpdateProduct merges u into the current row under the write lock.
func (m *Memory) UpdateProduct(_ context.Context, id inventory.ProductID, u inventory.ProductUpdate) (inventory.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[id]
	if !ok {
		return inventory.Product{}, fmt.Errorf("product %d: %w", id, inventory.ErrNotFound)
	}
	p = u.Apply(p)
	m.products[id] = p
	return p, nil
}

func (m *Memory) DeleteProduct(_ context.Context, id inventory.ProductID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.products[id]; !ok {
		return fmt.Errorf("product %d: %w", id, inventory.ErrNotFound)
	}
	delete(m.products, id)
	return nil
}

func (m *Memory) decrementLocked(id inventory.ProductID, amount int) error {
	p, ok := m.products[id]
	if !ok {
		return fmt.Errorf("product %d: %w", id, inventory.ErrNotFound)
	}
	if p.Stock < amount {
		return &inventory.InsufficientStockError{ProductID: id, Available: p.Stock, Requested: amount}
	}
	p.Stock -= amount
	m.products[id] = p
	return nil
}

// =============================================================================
// LEDGER - Append-only
// =============================================================================

// AppendSale adds a single entry. Append-only.
func (m *Memory) AppendSale(_ context.Context, e inventory.SaleEntry) (inventory.SaleEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLocked(e)
}

func (m *Memory) appendLocked(e inventory.SaleEntry) (inventory.SaleEntry, error) {
	if _, dup := m.references[e.Reference]; dup {
		return inventory.SaleEntry{}, fmt.Errorf("reference %q: %w", e.Reference, inventory.ErrInvalidInput)
	}
	e.ID = m.nextSale
	m.nextSale++
	m.references[e.Reference] = len(m.sales)
	m.sales = append(m.sales, e)
	return e, nil
}

func (m *Memory) Sales(_ context.Context) ([]inventory.SaleEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]inventory.SaleEntry, len(m.sales))
	copy(result, m.sales)
	return result, nil
}

func (m *Memory) RecentSales(_ context.Context, limit int) ([]inventory.SaleEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []inventory.SaleEntry{}
	for i := len(m.sales) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, m.sales[i])
	}
	return result, nil
}

func (m *Memory) GetSale(_ context.Context, id inventory.SaleID) (*inventory.SaleEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.sales {
		if e.ID == id {
			e := e
			return &e, nil
		}
	}
	return nil, nil
}

func (m *Memory) SaleByReference(_ context.Context, reference string) (*inventory.SaleEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byReferenceLocked(reference), nil
}

func (m *Memory) byReferenceLocked(reference string) *inventory.SaleEntry {
	i, ok := m.references[reference]
	if !ok {
		return nil
	}
	e := m.sales[i]
	return &e
}

// Reset clears all data (for demos).
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.products = make(map[inventory.ProductID]inventory.Product)
	m.sales = nil
	m.references = make(map[string]int)
	m.nextProduct, m.nextSale = 1, 1
	return nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(ctx context.Context, fn func(inventory.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return &inventory.StoreError{Op: "memory.begin", Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.snapshot()

	if err := fn(&txView{parent: m}); err != nil {
		m.restore(snapshot)
		return err
	}

	// Commit (already done via direct writes)
	return nil
}

type memorySnapshot struct {
	products    map[inventory.ProductID]inventory.Product
	sales       []inventory.SaleEntry
	references  map[string]int
	nextProduct inventory.ProductID
	nextSale    inventory.SaleID
}

func (m *Memory) snapshot() memorySnapshot {
	products := make(map[inventory.ProductID]inventory.Product, len(m.products))
	for k, v := range m.products {
		products[k] = v
	}
	references := make(map[string]int, len(m.references))
	for k, v := range m.references {
		references[k] = v
	}
	return memorySnapshot{
		products:    products,
		sales:       append([]inventory.SaleEntry{}, m.sales...),
		references:  references,
		nextProduct: m.nextProduct,
		nextSale:    m.nextSale,
	}
}

func (m *Memory) restore(s memorySnapshot) {
	m.products = s.products
	m.sales = s.sales
	m.references = s.references
	m.nextProduct = s.nextProduct
	m.nextSale = s.nextSale
}

// txView runs with the parent's write lock held.
type txView struct {
	parent *Memory
}

func (tv *txView) GetProduct(_ context.Context, id inventory.ProductID) (*inventory.Product, error) {
	return tv.parent.getLocked(id), nil
}

func (tv *txView) DecrementStock(_ context.Context, id inventory.ProductID, amount int) error {
	return tv.parent.decrementLocked(id, amount)
}

func (tv *txView) AppendSale(_ context.Context, e inventory.SaleEntry) (inventory.SaleEntry, error) {
	return tv.parent.appendLocked(e)
}

func (tv *txView) SaleByReference(_ context.Context, reference string) (*inventory.SaleEntry, error) {
	return tv.parent.byReferenceLocked(reference), nil
}
