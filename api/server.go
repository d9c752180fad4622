/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging through logrus, tagged with the request id
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for a frontend

ROUTE GROUPS:
  /api/products/*    Catalog
  /api/sales/*       Sale ledger
  /api/analytics/*   Revenue, best seller, low stock
  /api/scenarios/*   Demo data (dev only)

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.Log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Post("/", h.CreateProduct)
			r.Get("/low-stock", h.LowStockProducts)
			r.Get("/{id}", h.GetProduct)
			r.Put("/{id}", h.UpdateProduct)
			r.Delete("/{id}", h.DeleteProduct)
		})

		r.Route("/sales", func(r chi.Router) {
			r.Get("/", h.ListSales)
			r.Post("/", h.RecordSale)
			r.Get("/{id}", h.GetSale)
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/revenue", h.TotalRevenue)
			r.Get("/top-seller", h.TopSeller)
			r.Get("/summary", h.Summary)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}

// requestLogger logs one line per request.
func requestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			log.WithFields(logrus.Fields{
				"request_id": middleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"duration":   time.Since(start).String(),
			}).Info("request")
		})
	}
}
