/*
handlers.go - HTTP API handlers for the inventory ledger

PURPOSE:
  Exposes the inventory core via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the catalog, the sale processor and
  the analytics engine.

ENDPOINTS:
  Products:
    GET    /api/products                 List all products
    POST   /api/products                 Create product
    GET    /api/products/low-stock       Products below ?threshold= (default 5)
    GET    /api/products/{id}            Get product
    PUT    /api/products/{id}            Partial update
    DELETE /api/products/{id}            Delete product (sale history kept)

  Sales:
    GET    /api/sales                    Recent sales (?limit=, default 50)
    POST   /api/sales                    Record a sale
    GET    /api/sales/{id}               Get one ledger entry

  Analytics:
    GET    /api/analytics/revenue        Total revenue
    GET    /api/analytics/top-seller     Best seller (204 when no sales)
    GET    /api/analytics/summary        Revenue + best seller + low stock

ERROR HANDLING:
  Errors are returned as JSON with an HTTP status per error kind:
  - 400: inventory.ErrInvalidInput, malformed JSON or ids
  - 404: inventory.ErrNotFound
  - 409: inventory.ErrInsufficientStock
  - 503: inventory.ErrStoreUnavailable
  - 500: anything else

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/warp/inventory-ledger/factory"
	"github.com/warp/inventory-ledger/inventory"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is what the API needs from persistence: the transactional catalog
// and ledger, plus a reset for demo scenarios.
type Store interface {
	inventory.TxStore
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     Store
	Catalog   *inventory.Catalog
	Ledger    *inventory.Ledger
	Processor *inventory.SaleProcessor
	Analytics *inventory.Analytics
	Seeder    *factory.Seeder
	Log       logrus.FieldLogger

	// LowStockThreshold is used when a request has no ?threshold=.
	LowStockThreshold int

	mu              sync.Mutex // guards currentScenario and scenario loads
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store Store, log logrus.FieldLogger) *Handler {
	catalog := inventory.NewCatalog(store)
	processor := inventory.NewSaleProcessor(store, inventory.WithLogger(log))
	return &Handler{
		Store:             store,
		Catalog:           catalog,
		Ledger:            inventory.NewLedger(store),
		Processor:         processor,
		Analytics:         inventory.NewAnalytics(store, store),
		Seeder:            factory.NewSeeder(catalog, processor),
		Log:               log,
		LowStockThreshold: inventory.DefaultLowStockThreshold,
	}
}

// =============================================================================
// PRODUCT HANDLERS
// =============================================================================

// ListProducts returns all products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Catalog.List(r.Context())
	if err != nil {
		h.writeDomainError(w, r, "Failed to list products", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTOs(products))
}

// GetProduct returns a single product.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}

	p, err := h.Catalog.Get(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, "Failed to get product", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(p))
}

// CreateProduct creates a new product.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	p, err := h.Catalog.Create(r.Context(), req.Name, req.Price, req.Stock)
	if err != nil {
		h.writeDomainError(w, r, "Failed to create product", err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductDTO(p))
}

// UpdateProduct applies a partial update.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}

	var req UpdateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	p, err := h.Catalog.Update(r.Context(), id, inventory.ProductUpdate{
		Name:  req.Name,
		Price: req.Price,
		Stock: req.Stock,
	})
	if err != nil {
		h.writeDomainError(w, r, "Failed to update product", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(p))
}

// DeleteProduct removes a product.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}

	if err := h.Catalog.Delete(r.Context(), id); err != nil {
		h.writeDomainError(w, r, "Failed to delete product", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LowStockProducts lists products below the threshold.
func (h *Handler) LowStockProducts(w http.ResponseWriter, r *http.Request) {
	threshold, ok := h.thresholdParam(w, r)
	if !ok {
		return
	}

	products, err := h.Analytics.LowStockProducts(r.Context(), threshold)
	if err != nil {
		h.writeDomainError(w, r, "Failed to list low-stock products", err)
		return
	}
	writeJSON(w, http.StatusOK, LowStockDTO{Threshold: threshold, Products: toProductDTOs(products)})
}

// =============================================================================
// SALE HANDLERS
// =============================================================================

const defaultSalesLimit = 50

// RecordSale records a sale against a product.
// POST /api/sales
func (h *Handler) RecordSale(w http.ResponseWriter, r *http.Request) {
	var req RecordSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	entry, err := h.Processor.Record(r.Context(), inventory.SaleRequest{
		ProductID: inventory.ProductID(req.ProductID),
		Quantity:  req.Quantity,
		Reference: req.Reference,
	})
	if err != nil {
		h.writeDomainError(w, r, "Failed to record sale", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSaleDTO(entry))
}

// ListSales returns the most recent sales, newest first.
func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	limit := defaultSalesLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	entries, err := h.Ledger.Recent(r.Context(), limit)
	if err != nil {
		h.writeDomainError(w, r, "Failed to list sales", err)
		return
	}
	writeJSON(w, http.StatusOK, toSaleDTOs(entries))
}

// GetSale returns one ledger entry.
func (h *Handler) GetSale(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid sale id", err)
		return
	}

	entry, err := h.Ledger.Get(r.Context(), inventory.SaleID(id))
	if err != nil {
		h.writeDomainError(w, r, "Failed to get sale", err)
		return
	}
	writeJSON(w, http.StatusOK, toSaleDTO(entry))
}

// =============================================================================
// ANALYTICS HANDLERS
// =============================================================================

// TotalRevenue returns the sum of all sale totals.
func (h *Handler) TotalRevenue(w http.ResponseWriter, r *http.Request) {
	revenue, err := h.Analytics.TotalRevenue(r.Context())
	if err != nil {
		h.writeDomainError(w, r, "Failed to compute revenue", err)
		return
	}
	writeJSON(w, http.StatusOK, RevenueDTO{TotalRevenue: revenue.StringFixed(2)})
}

// TopSeller returns the best-selling product, or 204 when nothing was sold.
func (h *Handler) TopSeller(w http.ResponseWriter, r *http.Request) {
	top, err := h.Analytics.TopSellingProduct(r.Context())
	if err != nil {
		h.writeDomainError(w, r, "Failed to compute top seller", err)
		return
	}
	if top == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, toTopSellerDTO(top))
}

// Summary returns every analytics view in one response.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	threshold, ok := h.thresholdParam(w, r)
	if !ok {
		return
	}

	s, err := h.Analytics.Summary(r.Context(), threshold)
	if err != nil {
		h.writeDomainError(w, r, "Failed to compute summary", err)
		return
	}
	writeJSON(w, http.StatusOK, SummaryDTO{
		TotalRevenue: s.TotalRevenue.StringFixed(2),
		TopSeller:    toTopSellerDTO(s.TopSeller),
		LowStock:     LowStockDTO{Threshold: s.Threshold, Products: toProductDTOs(s.LowStock)},
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func productIDParam(w http.ResponseWriter, r *http.Request) (inventory.ProductID, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid product id", err)
		return 0, false
	}
	return inventory.ProductID(id), true
}

func (h *Handler) thresholdParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("threshold")
	if raw == "" {
		return h.LowStockThreshold, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid threshold", err)
		return 0, false
	}
	return n, true
}

// statusFor maps the inventory error taxonomy to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, inventory.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, inventory.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, inventory.ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, inventory.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Log.WithError(err).WithField("path", r.URL.Path).Error(message)
	}
	writeError(w, status, message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
