/*
Package factory provides JSON to Go catalog conversion.

PURPOSE:
  Converts JSON catalog definitions (products plus optional opening sales)
  into validated inventory values, and loads them through the core so every
  seeded sale goes through the same atomic sale path as a live one.

JSON SCHEMA:
  {
    "products": [
      {"name": "Widget", "price": "10.00", "stock": 3},
      {"name": "Gadget", "price": 4.5, "stock": 12}
    ],
    "sales": [
      {"product": "Widget", "quantity": 2}
    ]
  }

  Prices accept JSON strings or numbers. Sales reference products by name
  because ids are only known once the products are stored.

USAGE:
  seed, err := factory.ParseCatalog(jsonString)
  result, err := factory.NewSeeder(catalog, processor).Load(ctx, seed)

SEE ALSO:
  - api/scenarios.go: Built-in demo catalogs
  - cmd/inventory: "seed" command
*/
package factory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/inventory-ledger/inventory"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// CatalogJSON is the JSON representation of a seed catalog.
type CatalogJSON struct {
	Products []ProductJSON `json:"products"`
	Sales    []SaleJSON    `json:"sales,omitempty"`
}

// ProductJSON represents one product.
type ProductJSON struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

// SaleJSON represents an opening sale.
type SaleJSON struct {
	Product   string `json:"product"`
	Quantity  int    `json:"quantity"`
	Reference string `json:"reference,omitempty"`
}

// =============================================================================
// PARSING
// =============================================================================

// Seed is a validated catalog ready to load.
type Seed struct {
	Products []inventory.Product
	Sales    []SeedSale
}

// SeedSale is a sale against a product named in the same seed.
type SeedSale struct {
	ProductName string
	Quantity    int
	Reference   string
}

// ParseCatalog parses and validates a JSON catalog.
func ParseCatalog(jsonStr string) (*Seed, error) {
	var cj CatalogJSON
	if err := json.Unmarshal([]byte(jsonStr), &cj); err != nil {
		return nil, fmt.Errorf("failed to parse catalog JSON: %v: %w", err, inventory.ErrInvalidInput)
	}
	return FromJSON(cj)
}

// FromJSON validates cj and converts it to a Seed.
func FromJSON(cj CatalogJSON) (*Seed, error) {
	seed := &Seed{}
	names := make(map[string]bool, len(cj.Products))

	for i, pj := range cj.Products {
		p := inventory.Product{
			Name:  strings.TrimSpace(pj.Name),
			Price: pj.Price,
			Stock: pj.Stock,
		}
		if err := inventory.ValidateProduct(p); err != nil {
			return nil, fmt.Errorf("products[%d]: %w", i, err)
		}
		if names[p.Name] {
			return nil, fmt.Errorf("products[%d]: duplicate name %q: %w", i, p.Name, inventory.ErrInvalidInput)
		}
		names[p.Name] = true
		seed.Products = append(seed.Products, p)
	}

	for i, sj := range cj.Sales {
		name := strings.TrimSpace(sj.Product)
		if !names[name] {
			return nil, fmt.Errorf("sales[%d]: unknown product %q: %w", i, sj.Product, inventory.ErrInvalidInput)
		}
		if sj.Quantity <= 0 {
			return nil, fmt.Errorf("sales[%d]: quantity must be positive: %w", i, inventory.ErrInvalidInput)
		}
		seed.Sales = append(seed.Sales, SeedSale{
			ProductName: name,
			Quantity:    sj.Quantity,
			Reference:   sj.Reference,
		})
	}

	return seed, nil
}

// =============================================================================
// LOADING
// =============================================================================

// Seeder loads seeds through the catalog and the sale processor.
type Seeder struct {
	catalog   *inventory.Catalog
	processor *inventory.SaleProcessor
}

// NewSeeder creates a seeder.
func NewSeeder(catalog *inventory.Catalog, processor *inventory.SaleProcessor) *Seeder {
	return &Seeder{catalog: catalog, processor: processor}
}

// LoadResult reports what a load created.
type LoadResult struct {
	Products []inventory.Product
	Sales    []inventory.SaleEntry
}

// Load creates every product, then records every sale in order. It stops at
// the first failure; products and sales created before it remain.
func (s *Seeder) Load(ctx context.Context, seed *Seed) (LoadResult, error) {
	var result LoadResult
	ids := make(map[string]inventory.ProductID, len(seed.Products))

	for _, p := range seed.Products {
		created, err := s.catalog.Create(ctx, p.Name, p.Price, p.Stock)
		if err != nil {
			return result, fmt.Errorf("create %q: %w", p.Name, err)
		}
		ids[created.Name] = created.ID
		result.Products = append(result.Products, created)
	}

	for _, sale := range seed.Sales {
		entry, err := s.processor.Record(ctx, inventory.SaleRequest{
			ProductID: ids[sale.ProductName],
			Quantity:  sale.Quantity,
			Reference: sale.Reference,
		})
		if err != nil {
			return result, fmt.Errorf("sell %d x %q: %w", sale.Quantity, sale.ProductName, err)
		}
		result.Sales = append(result.Sales, entry)
	}

	return result, nil
}
