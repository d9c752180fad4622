/*
main.go - Command line client for the inventory ledger

PURPOSE:
  Operates directly on the SQLite database: catalog maintenance, recording
  sales, reports and seeding from a JSON catalog.

COMMANDS:
  product add     --name --price --stock
  product list
  product update  --id [--name] [--price] [--stock]
  product delete  --id
  sale record     --product --quantity [--reference]
  sale list       [--limit]
  report revenue
  report top
  report low-stock [--threshold]
  report summary   [--threshold]
  seed            --file catalog.json

ERRORS:
  Failures print one line prefixed with the error kind ("not found:",
  "insufficient stock:", "invalid input:", "store unavailable:") and exit
  with status 1.

EXAMPLES:
  inventory --db shop.db product add --name Widget --price 10.00 --stock 3
  inventory --db shop.db sale record --product 1 --quantity 2
  inventory --db shop.db report summary
*/
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/warp/inventory-ledger/factory"
	"github.com/warp/inventory-ledger/inventory"
	"github.com/warp/inventory-ledger/store/sqlite"
)

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, formatError(err))
		os.Exit(1)
	}
}

// services is what every command works with. It is built in Before and
// closed in After.
type services struct {
	store     *sqlite.Store
	catalog   *inventory.Catalog
	ledger    *inventory.Ledger
	processor *inventory.SaleProcessor
	analytics *inventory.Analytics
	seeder    *factory.Seeder
}

func newApp(stdout, stderr io.Writer) *cli.App {
	svc := &services{}

	return &cli.App{
		Name:      "inventory",
		Usage:     "manage products and record sales",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db",
				Usage:   "SQLite database path",
				Value:   "inventory.db",
				EnvVars: []string{"INVENTORY_DB_PATH"},
			},
			&cli.DurationFlag{
				Name:    "lock-timeout",
				Usage:   "maximum wait for the store write lock",
				Value:   sqlite.DefaultLockTimeout,
				EnvVars: []string{"INVENTORY_LOCK_TIMEOUT"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "debug, info, warn or error",
				Value:   "warn",
				EnvVars: []string{"INVENTORY_LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			return svc.open(c, stderr)
		},
		After: func(c *cli.Context) error {
			if svc.store == nil {
				return nil
			}
			return svc.store.Close()
		},
		Commands: []*cli.Command{
			productCommand(svc),
			saleCommand(svc),
			reportCommand(svc),
			seedCommand(svc),
		},
	}
}

func (s *services) open(c *cli.Context, stderr io.Writer) error {
	level, err := logrus.ParseLevel(c.String("log-level"))
	if err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	log := logrus.New()
	log.SetOutput(stderr)
	log.SetLevel(level)

	store, err := sqlite.New(c.String("db"), sqlite.WithLockTimeout(c.Duration("lock-timeout")))
	if err != nil {
		return inventory.Unavailable("open "+c.String("db"), err)
	}

	s.store = store
	s.catalog = inventory.NewCatalog(store)
	s.ledger = inventory.NewLedger(store)
	s.processor = inventory.NewSaleProcessor(store, inventory.WithLogger(log))
	s.analytics = inventory.NewAnalytics(store, store)
	s.seeder = factory.NewSeeder(s.catalog, s.processor)
	return nil
}

// formatError renders err with its kind as a prefix.
func formatError(err error) string {
	if kind := inventory.Kind(err); kind != "" {
		if detail := inventory.Detail(err); detail != "" {
			return kind + ": " + detail
		}
		return kind
	}
	return "error: " + err.Error()
}
