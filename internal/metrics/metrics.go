// Package metrics exposes Prometheus collectors for the bot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Fetch results used as the "result" label.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Collector holds the bot's Prometheus metrics.
type Collector struct {
	catalogFetches  *prometheus.CounterVec
	catalogProducts prometheus.Gauge
	commands        *prometheus.CounterVec
	cartAdditions   prometheus.Counter
	sessionsSwept   prometheus.Counter
}

// New creates a Collector and registers its metrics with reg.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		catalogFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_catalog_fetches_total",
			Help: "Catalog fetches by result.",
		}, []string{"result"}),
		catalogProducts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "storefront_catalog_products",
			Help: "Number of products in the most recently loaded catalog.",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_commands_total",
			Help: "Bot commands handled, by command.",
		}, []string{"command"}),
		cartAdditions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_cart_additions_total",
			Help: "Products added to carts.",
		}),
		sessionsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_sessions_swept_total",
			Help: "Idle sessions removed by the sweeper.",
		}),
	}

	reg.MustRegister(
		c.catalogFetches,
		c.catalogProducts,
		c.commands,
		c.cartAdditions,
		c.sessionsSwept,
	)
	return c
}

// RecordFetch records a catalog fetch. On success size is the number of
// products loaded.
func (c *Collector) RecordFetch(err error, size int) {
	if err != nil {
		c.catalogFetches.WithLabelValues(ResultError).Inc()
		return
	}
	c.catalogFetches.WithLabelValues(ResultOK).Inc()
	c.catalogProducts.Set(float64(size))
}

// RecordCommand counts a handled command.
func (c *Collector) RecordCommand(command string) {
	c.commands.WithLabelValues(command).Inc()
}

// RecordCartAddition counts a product added to a cart.
func (c *Collector) RecordCartAddition() {
	c.cartAdditions.Inc()
}

// RecordSweep adds n removed sessions.
func (c *Collector) RecordSweep(n int64) {
	c.sessionsSwept.Add(float64(n))
}
