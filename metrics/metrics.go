package metrics

import (
	"context"
	"net/http"

	"cdplend/core"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cdplend"

// Collector market metrics, registered on its own registry
type Collector struct {
	registry *prometheus.Registry

	// Event metrics
	EventsTotal *prometheus.CounterVec

	// Pool metrics
	PoolTVL         *prometheus.GaugeVec
	PoolLoanValue   *prometheus.GaugeVec
	PoolUtilization *prometheus.GaugeVec
	PoolBorrowAPY   *prometheus.GaugeVec
	PoolSupplyAPY   *prometheus.GaugeVec
	PoolPrice       *prometheus.GaugeVec

	// CDP metrics
	CDPs             prometheus.Gauge
	LiquidatableCDPs prometheus.Gauge
}

// New new collector
func New() *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "total",
			Help:      "Committed update events",
		},
		[]string{"type"},
	)

	pool := func(name, help string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      name,
				Help:      help,
			},
			[]string{"asset_id"},
		)
	}

	c.PoolTVL = pool("tvl", "Deposit value")
	c.PoolLoanValue = pool("loan_value", "Loan value")
	c.PoolUtilization = pool("utilization", "Total loan over total deposit")
	c.PoolBorrowAPY = pool("borrow_apy", "Borrow APY, daily compounding")
	c.PoolSupplyAPY = pool("supply_apy", "Supply APY, daily compounding")
	c.PoolPrice = pool("price", "Price in the base asset")

	c.CDPs = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "cdp",
		Name:      "total",
		Help:      "Number of cdps",
	})

	c.LiquidatableCDPs = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "cdp",
		Name:      "liquidatable",
		Help:      "Number of cdps with ltv above 1",
	})

	c.registry.MustRegister(
		c.EventsTotal,
		c.PoolTVL,
		c.PoolLoanValue,
		c.PoolUtilization,
		c.PoolBorrowAPY,
		c.PoolSupplyAPY,
		c.PoolPrice,
		c.CDPs,
		c.LiquidatableCDPs,
	)

	return c
}

// Observe count committed events
func (c *Collector) Observe(ctx context.Context, events []*core.Event) {
	for _, e := range events {
		c.EventsTotal.WithLabelValues(string(e.Type)).Inc()
	}
}

// SetStats publish market statistics
func (c *Collector) SetStats(stats *core.MarketStats) {
	for _, p := range stats.Pools {
		c.PoolTVL.WithLabelValues(p.AssetID).Set(p.TVL.InexactFloat64())
		c.PoolLoanValue.WithLabelValues(p.AssetID).Set(p.LoanValue.InexactFloat64())
		c.PoolUtilization.WithLabelValues(p.AssetID).Set(p.Utilization.InexactFloat64())
		c.PoolBorrowAPY.WithLabelValues(p.AssetID).Set(p.BorrowAPY.InexactFloat64())
		c.PoolSupplyAPY.WithLabelValues(p.AssetID).Set(p.SupplyAPY.InexactFloat64())
		c.PoolPrice.WithLabelValues(p.AssetID).Set(p.Price.InexactFloat64())
	}

	c.CDPs.Set(float64(stats.CDPCount))
	c.LiquidatableCDPs.Set(float64(stats.LiquidatingCDP))
}

// Handler serve the registry in the prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
