/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built catalogs that populate the database with data for
	demos and manual testing. Each scenario is a JSON catalog loaded through
	the factory, so seeded sales go through the same sale path as live ones.

AVAILABLE SCENARIOS:

	empty:         Nothing at all; revenue 0, no top seller
	single-widget: One Widget (10.00, stock 3), ready for a first sale
	best-seller:   Widget sold 3 times (5 units), Gadget sold once (2 units)
	low-stock:     Stock 4 (low) next to stock 5 (not low)
	shop:          A small shop with a mixed sale history

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Parse the scenario catalog via factory.ParseCatalog
 3. Create products, then record sales in order

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "best-seller"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Add its catalog JSON to 'scenarioCatalogs'

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler and error mapping
  - factory/catalog.go: Catalog JSON schema
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/warp/inventory-ledger/factory"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "empty",
		Name:        "Empty Store",
		Description: "No products and no sales",
	},
	{
		ID:          "single-widget",
		Name:        "Single Widget",
		Description: "One Widget priced 10.00 with 3 in stock",
	},
	{
		ID:          "best-seller",
		Name:        "Best Seller",
		Description: "Widget sold 3 times for 5 units, Gadget sold once for 2 units",
	},
	{
		ID:          "low-stock",
		Name:        "Low Stock",
		Description: "One product just under the default threshold, one exactly at it",
	},
	{
		ID:          "shop",
		Name:        "Corner Shop",
		Description: "A handful of products with a mixed sale history",
	},
}

var scenarioCatalogs = map[string]string{
	"empty": `{"products": []}`,

	"single-widget": `{
		"products": [{"name": "Widget", "price": "10.00", "stock": 3}]
	}`,

	"best-seller": `{
		"products": [
			{"name": "Widget", "price": "10.00", "stock": 20},
			{"name": "Gadget", "price": "25.00", "stock": 20}
		],
		"sales": [
			{"product": "Widget", "quantity": 1},
			{"product": "Gadget", "quantity": 2},
			{"product": "Widget", "quantity": 2},
			{"product": "Widget", "quantity": 2}
		]
	}`,

	"low-stock": `{
		"products": [
			{"name": "Almost Gone", "price": "3.50", "stock": 4},
			{"name": "Just Enough", "price": "3.50", "stock": 5}
		]
	}`,

	"shop": `{
		"products": [
			{"name": "Coffee Beans 1kg", "price": "18.90", "stock": 12},
			{"name": "Paper Filters", "price": "2.40", "stock": 40},
			{"name": "Ceramic Mug", "price": "9.00", "stock": 6},
			{"name": "Hand Grinder", "price": "64.00", "stock": 2},
			{"name": "Milk Frother", "price": "29.99", "stock": 0}
		],
		"sales": [
			{"product": "Coffee Beans 1kg", "quantity": 3},
			{"product": "Paper Filters", "quantity": 10},
			{"product": "Ceramic Mug", "quantity": 2},
			{"product": "Coffee Beans 1kg", "quantity": 4},
			{"product": "Hand Grinder", "quantity": 1}
		]
	}`,
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if _, ok := scenarioCatalogs[req.ScenarioID]; !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	result, err := h.loadScenario(r.Context(), req.ScenarioID)
	if err != nil {
		h.writeDomainError(w, r, fmt.Sprintf("Failed to load scenario %q", req.ScenarioID), err)
		return
	}

	writeJSON(w, http.StatusOK, LoadScenarioResponse{
		ScenarioID: req.ScenarioID,
		Products:   toProductDTOs(result.Products),
		Sales:      toSaleDTOs(result.Sales),
	})
}

// ResetDatabase clears all products and sales.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(r.Context()); err != nil {
		h.writeDomainError(w, r, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO LOADER
// =============================================================================

func (h *Handler) loadScenario(ctx context.Context, id string) (factory.LoadResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	seed, err := factory.ParseCatalog(scenarioCatalogs[id])
	if err != nil {
		return factory.LoadResult{}, err
	}

	if err := h.Store.Reset(ctx); err != nil {
		return factory.LoadResult{}, err
	}
	h.currentScenario = ""

	result, err := h.Seeder.Load(ctx, seed)
	if err != nil {
		return result, err
	}

	h.currentScenario = id
	h.Log.WithField("scenario", id).
		WithField("products", len(result.Products)).
		WithField("sales", len(result.Sales)).
		Info("scenario loaded")
	return result, nil
}
