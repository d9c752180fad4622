package sqlite

import (
	"context"

	"github.com/warp/inventory-ledger/inventory"
)

// ExecInTx runs raw SQL inside a WithTx unit.
func ExecInTx(ctx context.Context, tx inventory.Tx, query string) error {
	_, err := tx.(*txStore).tx.ExecContext(ctx, query)
	return err
}
