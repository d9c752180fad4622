/*
ledger.go - Append-only sale ledger

PURPOSE:
  The Ledger is the source of truth for revenue. Every sale is recorded
  here; revenue and best-seller figures are computed by reading it back.
  There is no separate running total that can drift.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete.
  2. CONSISTENT: Total == Quantity * UnitPrice on every entry
  3. ORDERED: Entries read back in creation (id) order

SEE ALSO:
  - store.go: LedgerStore persistence interface
  - sale.go: The only writer, through txLedger
*/
package inventory

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LEDGER
// =============================================================================

// Ledger is the read side of the sale ledger. Entries are only ever
// written by SaleProcessor, inside the same atomic unit as the stock
// decrement.
type Ledger struct {
	reader LedgerReader
}

// NewLedger returns a read-only ledger.
func NewLedger(reader LedgerReader) *Ledger {
	return &Ledger{reader: reader}
}

// txLedger is the write side, bound to an open atomic unit.
type txLedger struct {
	tx Tx
}

func newTxLedger(tx Tx) *txLedger {
	return &txLedger{tx: tx}
}

// Append validates e and adds it to the ledger.
func (l *txLedger) Append(ctx context.Context, e SaleEntry) (SaleEntry, error) {
	if err := ValidateEntry(e); err != nil {
		return SaleEntry{}, err
	}
	return l.tx.AppendSale(ctx, e)
}

// All returns every entry in creation order. Read-only.
func (l *Ledger) All(ctx context.Context) ([]SaleEntry, error) {
	entries, err := l.reader.Sales(ctx)
	if err != nil {
		return nil, Unavailable("ledger.all", err)
	}
	return entries, nil
}

// Recent returns up to limit entries, newest first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]SaleEntry, error) {
	if limit <= 0 {
		return nil, invalid("limit", "must be positive")
	}
	entries, err := l.reader.RecentSales(ctx, limit)
	if err != nil {
		return nil, Unavailable("ledger.recent", err)
	}
	return entries, nil
}

// Get returns one entry. ErrNotFound if it doesn't exist.
func (l *Ledger) Get(ctx context.Context, id SaleID) (SaleEntry, error) {
	e, err := l.reader.GetSale(ctx, id)
	if err != nil {
		return SaleEntry{}, Unavailable("ledger.get", err)
	}
	if e == nil {
		return SaleEntry{}, fmt.Errorf("sale %d: %w", id, ErrNotFound)
	}
	return *e, nil
}

// ByReference returns the entry with the given reference, or nil.
func (l *Ledger) ByReference(ctx context.Context, reference string) (*SaleEntry, error) {
	e, err := l.reader.SaleByReference(ctx, reference)
	if err != nil {
		return nil, Unavailable("ledger.by_reference", err)
	}
	return e, nil
}

// ValidateEntry checks the per-entry invariants.
func ValidateEntry(e SaleEntry) error {
	if e.Quantity <= 0 {
		return invalid("quantity", "must be positive")
	}
	if e.UnitPrice.IsNegative() {
		return invalid("unit_price", "must not be negative")
	}
	want := e.UnitPrice.Mul(decimal.NewFromInt(int64(e.Quantity)))
	if !e.Total.Equal(want) {
		return invalid("total", "must equal quantity * unit price")
	}
	if e.Reference == "" {
		return invalid("reference", "must not be empty")
	}
	return nil
}
