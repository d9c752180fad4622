package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/warp/inventory-ledger/factory"
	"github.com/warp/inventory-ledger/inventory"
)

// =============================================================================
// PRODUCT
// =============================================================================

func productCommand(svc *services) *cli.Command {
	return &cli.Command{
		Name:  "product",
		Usage: "manage the catalog",
		Subcommands: []*cli.Command{
			{
				Name:  "add",
				Usage: "add a product",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "price", Required: true},
					&cli.IntFlag{Name: "stock", Value: 0},
				},
				Action: func(c *cli.Context) error {
					price, err := parsePrice(c.String("price"))
					if err != nil {
						return err
					}
					p, err := svc.catalog.Create(c.Context, c.String("name"), price, c.Int("stock"))
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "Added product %d: %s\n", p.ID, p.Name)
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "list all products",
				Action: func(c *cli.Context) error {
					products, err := svc.catalog.List(c.Context)
					if err != nil {
						return err
					}
					printProducts(c.App.Writer, products)
					return nil
				},
			},
			{
				Name:  "update",
				Usage: "change name, price or stock of a product",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "id", Required: true},
					&cli.StringFlag{Name: "name"},
					&cli.StringFlag{Name: "price"},
					&cli.IntFlag{Name: "stock"},
				},
				Action: func(c *cli.Context) error {
					var u inventory.ProductUpdate
					if c.IsSet("name") {
						name := c.String("name")
						u.Name = &name
					}
					if c.IsSet("price") {
						price, err := parsePrice(c.String("price"))
						if err != nil {
							return err
						}
						u.Price = &price
					}
					if c.IsSet("stock") {
						stock := c.Int("stock")
						u.Stock = &stock
					}

					p, err := svc.catalog.Update(c.Context, inventory.ProductID(c.Int64("id")), u)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "Updated product %d\n", p.ID)
					printProducts(c.App.Writer, []inventory.Product{p})
					return nil
				},
			},
			{
				Name:  "delete",
				Usage: "delete a product (its sales stay in the ledger)",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "id", Required: true},
				},
				Action: func(c *cli.Context) error {
					id := inventory.ProductID(c.Int64("id"))
					if err := svc.catalog.Delete(c.Context, id); err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "Deleted product %d\n", id)
					return nil
				},
			},
		},
	}
}

// =============================================================================
// SALE
// =============================================================================

func saleCommand(svc *services) *cli.Command {
	return &cli.Command{
		Name:  "sale",
		Usage: "record and list sales",
		Subcommands: []*cli.Command{
			{
				Name:  "record",
				Usage: "sell a quantity of a product",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "product", Required: true},
					&cli.IntFlag{Name: "quantity", Required: true},
					&cli.StringFlag{Name: "reference", Usage: "idempotency reference"},
				},
				Action: func(c *cli.Context) error {
					e, err := svc.processor.Record(c.Context, inventory.SaleRequest{
						ProductID: inventory.ProductID(c.Int64("product")),
						Quantity:  c.Int("quantity"),
						Reference: c.String("reference"),
					})
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "Sold %d x %s for %s (sale %d)\n",
						e.Quantity, e.ProductName, e.Total.StringFixed(2), e.ID)
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "list recent sales, newest first",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 20},
				},
				Action: func(c *cli.Context) error {
					entries, err := svc.ledger.Recent(c.Context, c.Int("limit"))
					if err != nil {
						return err
					}
					printSales(c.App.Writer, entries)
					return nil
				},
			},
		},
	}
}

// =============================================================================
// REPORT
// =============================================================================

func reportCommand(svc *services) *cli.Command {
	thresholdFlag := func() cli.Flag {
		return &cli.IntFlag{
			Name:    "threshold",
			Value:   inventory.DefaultLowStockThreshold,
			EnvVars: []string{"INVENTORY_LOW_STOCK_THRESHOLD"},
		}
	}

	return &cli.Command{
		Name:  "report",
		Usage: "revenue, best seller and low stock",
		Subcommands: []*cli.Command{
			{
				Name:  "revenue",
				Usage: "total revenue over all sales",
				Action: func(c *cli.Context) error {
					revenue, err := svc.analytics.TotalRevenue(c.Context)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "Total revenue: %s\n", revenue.StringFixed(2))
					return nil
				},
			},
			{
				Name:  "top",
				Usage: "best-selling product by quantity",
				Action: func(c *cli.Context) error {
					top, err := svc.analytics.TopSellingProduct(c.Context)
					if err != nil {
						return err
					}
					printTopSeller(c.App.Writer, top)
					return nil
				},
			},
			{
				Name:  "low-stock",
				Usage: "products with stock under the threshold",
				Flags: []cli.Flag{thresholdFlag()},
				Action: func(c *cli.Context) error {
					products, err := svc.analytics.LowStockProducts(c.Context, c.Int("threshold"))
					if err != nil {
						return err
					}
					if len(products) == 0 {
						fmt.Fprintf(c.App.Writer, "No products below %d\n", c.Int("threshold"))
						return nil
					}
					printProducts(c.App.Writer, products)
					return nil
				},
			},
			{
				Name:  "summary",
				Usage: "all reports at once",
				Flags: []cli.Flag{thresholdFlag()},
				Action: func(c *cli.Context) error {
					s, err := svc.analytics.Summary(c.Context, c.Int("threshold"))
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "Total revenue: %s\n", s.TotalRevenue.StringFixed(2))
					printTopSeller(c.App.Writer, s.TopSeller)
					fmt.Fprintf(c.App.Writer, "Low stock (< %d): %d product(s)\n", s.Threshold, len(s.LowStock))
					if len(s.LowStock) > 0 {
						printProducts(c.App.Writer, s.LowStock)
					}
					return nil
				},
			},
		},
	}
}

// =============================================================================
// SEED
// =============================================================================

func seedCommand(svc *services) *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "load products and opening sales from a JSON catalog",
		Flags: []cli.Flag{
			&cli.PathFlag{Name: "file", Required: true},
		},
		Action: func(c *cli.Context) error {
			data, err := os.ReadFile(c.Path("file"))
			if err != nil {
				return fmt.Errorf("read %s: %w", c.Path("file"), err)
			}
			seed, err := factory.ParseCatalog(string(data))
			if err != nil {
				return err
			}
			result, err := svc.seeder.Load(c.Context, seed)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "Seeded %d product(s) and %d sale(s)\n",
				len(result.Products), len(result.Sales))
			return nil
		},
	}
}

// =============================================================================
// OUTPUT
// =============================================================================

func parsePrice(s string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, &inventory.InvalidInputError{Field: "price", Reason: "not a number"}
	}
	return price, nil
}

func printProducts(w io.Writer, products []inventory.Product) {
	if len(products) == 0 {
		fmt.Fprintln(w, "No products")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tSTOCK")
	for _, p := range products {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", p.ID, p.Name, p.Price.StringFixed(2), p.Stock)
	}
	tw.Flush()
}

func printSales(w io.Writer, entries []inventory.SaleEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No sales")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tPRODUCT\tQTY\tTOTAL")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n",
			e.ID, e.SoldAt.UTC().Format(inventory.SaleTimeLayout), e.ProductName, e.Quantity, e.Total.StringFixed(2))
	}
	tw.Flush()
}

func printTopSeller(w io.Writer, top *inventory.TopSeller) {
	if top == nil {
		fmt.Fprintln(w, "Top seller: none (no sales yet)")
		return
	}
	fmt.Fprintf(w, "Top seller: %s (id %d, %d sold)\n", top.Name, top.ProductID, top.QuantitySold)
}
