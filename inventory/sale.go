/*
sale.go - Sale transaction processor

PURPOSE:
  Validates and executes a sale: checks stock, computes the total, appends
  a ledger entry and decrements stock. This is the hot path and the only
  place where the ledger is written.

INVARIANT:
  Stock and ledger never diverge. The stock check, the ledger append and
  the stock decrement run inside one TxStore.WithTx unit. If any step
  fails, none of them is visible.

CHECK ORDER:
  1. Boundary validation (product id, quantity)      -> ErrInvalidInput
  2. Reference replay (only when the caller set one)
  3. Product exists                                  -> ErrNotFound
  4. quantity <= stock                               -> ErrInsufficientStock
  5. Append entry, decrement stock                   -> ErrStoreUnavailable on failure

IDEMPOTENCY:
  A caller-supplied Reference makes a request safe to retry. If the ledger
  already holds an entry with that reference for the same product and
  quantity, that entry is returned and nothing is written.

EXAMPLE:
  processor := inventory.NewSaleProcessor(store)
  entry, err := processor.RecordSale(ctx, 1, 2)
  if errors.Is(err, inventory.ErrInsufficientStock) {
      // nothing was written
  }

SEE ALSO:
  - ledger.go: Entry validation
  - store.go: Tx / TxStore contracts
*/
package inventory

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// =============================================================================
// SALE PROCESSOR
// =============================================================================

// SaleProcessor records sales against a TxStore.
type SaleProcessor struct {
	store  TxStore
	now    func() time.Time
	newRef func() string
	log    logrus.FieldLogger
}

// ProcessorOption configures a SaleProcessor.
type ProcessorOption func(*SaleProcessor)

// WithClock overrides the time source used for SoldAt.
func WithClock(now func() time.Time) ProcessorOption {
	return func(p *SaleProcessor) { p.now = now }
}

// WithReferenceGenerator overrides how references are assigned to requests
// that don't carry one.
func WithReferenceGenerator(gen func() string) ProcessorOption {
	return func(p *SaleProcessor) { p.newRef = gen }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log logrus.FieldLogger) ProcessorOption {
	return func(p *SaleProcessor) { p.log = log }
}

// NewSaleProcessor creates a processor over store.
func NewSaleProcessor(store TxStore, opts ...ProcessorOption) *SaleProcessor {
	p := &SaleProcessor{
		store:  store,
		now:    time.Now,
		newRef: func() string { return uuid.NewString() },
		log:    discardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RecordSale sells quantity units of productID.
func (p *SaleProcessor) RecordSale(ctx context.Context, productID ProductID, quantity int) (SaleEntry, error) {
	return p.Record(ctx, SaleRequest{ProductID: productID, Quantity: quantity})
}

// Record executes req as a single atomic unit and returns the created (or
// replayed) entry.
func (p *SaleProcessor) Record(ctx context.Context, req SaleRequest) (SaleEntry, error) {
	if err := validateRequest(req); err != nil {
		return SaleEntry{}, err
	}

	reference := req.Reference
	if reference == "" {
		reference = p.newRef()
	}

	var (
		entry    SaleEntry
		replayed bool
	)
	err := p.store.WithTx(ctx, func(tx Tx) error {
		if req.Reference != "" {
			existing, err := tx.SaleByReference(ctx, reference)
			if err != nil {
				return Unavailable("sale.lookup_reference", err)
			}
			if existing != nil {
				if existing.ProductID != req.ProductID || existing.Quantity != req.Quantity {
					return invalid("reference", "already used by a different sale")
				}
				entry, replayed = *existing, true
				return nil
			}
		}

		product, err := tx.GetProduct(ctx, req.ProductID)
		if err != nil {
			return Unavailable("sale.get_product", err)
		}
		if product == nil {
			return productNotFound(req.ProductID)
		}
		if req.Quantity > product.Stock {
			return &InsufficientStockError{
				ProductID: product.ID,
				Available: product.Stock,
				Requested: req.Quantity,
			}
		}

		appended, err := newTxLedger(tx).Append(ctx, SaleEntry{
			Reference:   reference,
			ProductID:   product.ID,
			ProductName: product.Name,
			UnitPrice:   product.Price,
			Quantity:    req.Quantity,
			Total:       product.Price.Mul(decimal.NewFromInt(int64(req.Quantity))),
			SoldAt:      p.now().UTC().Truncate(time.Second),
		})
		if err != nil {
			return Unavailable("sale.append", err)
		}

		if err := tx.DecrementStock(ctx, product.ID, req.Quantity); err != nil {
			return Unavailable("sale.decrement_stock", err)
		}

		entry = appended
		return nil
	})
	if err != nil {
		p.log.WithError(err).WithFields(logrus.Fields{
			"product_id": req.ProductID,
			"quantity":   req.Quantity,
		}).Debug("sale rejected")
		return SaleEntry{}, Unavailable("sale.commit", err)
	}

	p.log.WithFields(logrus.Fields{
		"sale_id":    entry.ID,
		"product_id": entry.ProductID,
		"quantity":   entry.Quantity,
		"total":      entry.Total.String(),
		"replayed":   replayed,
	}).Debug("sale recorded")

	return entry, nil
}

func validateRequest(req SaleRequest) error {
	if req.ProductID <= 0 {
		return invalid("product_id", "must be positive")
	}
	if req.Quantity <= 0 {
		return invalid("quantity", "must be positive")
	}
	return nil
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
