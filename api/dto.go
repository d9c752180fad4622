/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Prices, totals and revenue are serialized as decimal strings ("12.50")
  so clients never see float rounding.

VALIDATION:
  Validation is done by the inventory core, not in DTOs. DTOs are pure data
  carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/warp/inventory-ledger/inventory"
)

// =============================================================================
// PRODUCTS
// =============================================================================

// ProductDTO represents a product in API responses.
type ProductDTO struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"`
	Stock int    `json:"stock"`
}

// CreateProductRequest is the request to create a product.
type CreateProductRequest struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

// UpdateProductRequest is a partial update. Omitted fields are unchanged.
type UpdateProductRequest struct {
	Name  *string          `json:"name,omitempty"`
	Price *decimal.Decimal `json:"price,omitempty"`
	Stock *int             `json:"stock,omitempty"`
}

// =============================================================================
// SALES
// =============================================================================

// RecordSaleRequest is the request to record a sale.
type RecordSaleRequest struct {
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Reference string `json:"reference,omitempty"`
}

// SaleDTO represents a ledger entry in API responses.
type SaleDTO struct {
	ID          int64  `json:"id"`
	Reference   string `json:"reference"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	UnitPrice   string `json:"unit_price"`
	Quantity    int    `json:"quantity"`
	Total       string `json:"total"`
	Date        string `json:"date"`
}

// =============================================================================
// ANALYTICS
// =============================================================================

// RevenueDTO is the total revenue response.
type RevenueDTO struct {
	TotalRevenue string `json:"total_revenue"`
}

// TopSellerDTO is the best-selling product.
type TopSellerDTO struct {
	ProductID    int64  `json:"product_id"`
	Name         string `json:"name"`
	QuantitySold int    `json:"quantity_sold"`
}

// LowStockDTO lists products under the threshold.
type LowStockDTO struct {
	Threshold int          `json:"threshold"`
	Products  []ProductDTO `json:"products"`
}

// SummaryDTO bundles all analytics.
type SummaryDTO struct {
	TotalRevenue string        `json:"total_revenue"`
	TopSeller    *TopSellerDTO `json:"top_seller"`
	LowStock     LowStockDTO   `json:"low_stock"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// LoadScenarioResponse reports what a scenario created.
type LoadScenarioResponse struct {
	ScenarioID string       `json:"scenario_id"`
	Products   []ProductDTO `json:"products"`
	Sales      []SaleDTO    `json:"sales"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toProductDTO(p inventory.Product) ProductDTO {
	return ProductDTO{
		ID:    int64(p.ID),
		Name:  p.Name,
		Price: p.Price.StringFixed(2),
		Stock: p.Stock,
	}
}

func toProductDTOs(products []inventory.Product) []ProductDTO {
	dtos := make([]ProductDTO, len(products))
	for i, p := range products {
		dtos[i] = toProductDTO(p)
	}
	return dtos
}

func toSaleDTO(e inventory.SaleEntry) SaleDTO {
	return SaleDTO{
		ID:          int64(e.ID),
		Reference:   e.Reference,
		ProductID:   int64(e.ProductID),
		ProductName: e.ProductName,
		UnitPrice:   e.UnitPrice.StringFixed(2),
		Quantity:    e.Quantity,
		Total:       e.Total.StringFixed(2),
		Date:        e.SoldAt.UTC().Format(inventory.SaleTimeLayout),
	}
}

func toSaleDTOs(entries []inventory.SaleEntry) []SaleDTO {
	dtos := make([]SaleDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toSaleDTO(e)
	}
	return dtos
}

func toTopSellerDTO(t *inventory.TopSeller) *TopSellerDTO {
	if t == nil {
		return nil
	}
	return &TopSellerDTO{
		ProductID:    int64(t.ProductID),
		Name:         t.Name,
		QuantitySold: t.QuantitySold,
	}
}
