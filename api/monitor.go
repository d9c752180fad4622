/*
monitor.go - Periodic low-stock monitor

PURPOSE:
  Periodically checks the catalog for products whose stock fell below the
  configured threshold and logs a warning for each one. Products stay
  reported until they are restocked; a product is logged again only after
  it recovered and dropped back below the threshold.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs one check immediately on Start
  - Remembers which products were already reported

CONFIGURATION:
  - CheckInterval: How often to check (INVENTORY_ALERT_INTERVAL, default 1h)
  - Enabled: Whether the monitor is active (INVENTORY_ALERTS_ENABLED)
  - Threshold: Low-stock threshold (INVENTORY_LOW_STOCK_THRESHOLD)

USAGE:
  monitor := NewLowStockMonitor(analytics, log)
  monitor.Start()
  // ... later
  monitor.Stop()
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/warp/inventory-ledger/inventory"
)

// LowStockMonitor logs products running low on stock.
type LowStockMonitor struct {
	Analytics     *inventory.Analytics
	Log           logrus.FieldLogger
	CheckInterval time.Duration
	Threshold     int
	Enabled       bool

	ticker   *time.Ticker
	stop     chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	reported map[inventory.ProductID]bool
}

// NewLowStockMonitor creates a monitor with the default interval and threshold.
func NewLowStockMonitor(analytics *inventory.Analytics, log logrus.FieldLogger) *LowStockMonitor {
	return &LowStockMonitor{
		Analytics:     analytics,
		Log:           log.WithField("component", "low-stock-monitor"),
		CheckInterval: 1 * time.Hour,
		Threshold:     inventory.DefaultLowStockThreshold,
		Enabled:       true,
		reported:      make(map[inventory.ProductID]bool),
	}
}

// Start begins the monitor.
func (m *LowStockMonitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.Enabled {
		m.Log.Info("disabled, not starting")
		return
	}
	if m.ticker != nil {
		return
	}

	m.ticker = time.NewTicker(m.CheckInterval)
	m.stop = make(chan struct{})
	m.wg.Add(1)
	go m.run(m.ticker, m.stop)

	m.Log.WithField("interval", m.CheckInterval.String()).Info("started")
}

// Stop stops the monitor and waits for a running check to finish.
func (m *LowStockMonitor) Stop() {
	m.mu.Lock()
	ticker, stop := m.ticker, m.stop
	m.ticker = nil
	m.mu.Unlock()

	if ticker == nil {
		return
	}
	ticker.Stop()
	close(stop)
	m.wg.Wait()
	m.Log.Info("stopped")
}

func (m *LowStockMonitor) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer m.wg.Done()

	m.RunNow(context.Background())

	for {
		select {
		case <-ticker.C:
			m.RunNow(context.Background())
		case <-stop:
			return
		}
	}
}

// RunNow performs one check and returns the products newly reported as low.
func (m *LowStockMonitor) RunNow(ctx context.Context) []inventory.Product {
	products, err := m.Analytics.LowStockProducts(ctx, m.Threshold)
	if err != nil {
		m.Log.WithError(err).Error("low-stock check failed")
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	low := make(map[inventory.ProductID]bool, len(products))
	var fresh []inventory.Product
	for _, p := range products {
		low[p.ID] = true
		if m.reported[p.ID] {
			continue
		}
		fresh = append(fresh, p)
		m.Log.WithFields(logrus.Fields{
			"product_id": p.ID,
			"name":       p.Name,
			"stock":      p.Stock,
			"threshold":  m.Threshold,
		}).Warn("product low on stock")
	}
	m.reported = low

	return fresh
}
