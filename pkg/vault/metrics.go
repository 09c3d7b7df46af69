package vault

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes the vault's operational counters and gauges. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	mints   prometheus.Counter
	redeems prometheus.Counter
	rebases prometheus.Counter

	totalSupply prometheus.Gauge
	totalValue  prometheus.Gauge
}

// NewMetrics creates the vault metrics and registers them with registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	return &Metrics{
		mints: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "trillest",
			Subsystem: "vault",
			Name:      "mints_total",
			Help:      "Number of successful mints.",
		}),
		redeems: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "trillest",
			Subsystem: "vault",
			Name:      "redeems_total",
			Help:      "Number of successful redemptions.",
		}),
		rebases: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "trillest",
			Subsystem: "vault",
			Name:      "rebases_total",
			Help:      "Number of supply resynchronizations.",
		}),
		totalSupply: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "trillest",
			Subsystem: "vault",
			Name:      "total_supply_tokens",
			Help:      "Current token total supply in whole tokens.",
		}),
		totalValue: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "trillest",
			Subsystem: "vault",
			Name:      "total_value_units",
			Help:      "Current collateral value in whole units.",
		}),
	}
}

func (m *Metrics) mintRecorded() {
	if m == nil {
		return
	}
	m.mints.Inc()
}

func (m *Metrics) redeemRecorded() {
	if m == nil {
		return
	}
	m.redeems.Inc()
}

func (m *Metrics) rebaseRecorded() {
	if m == nil {
		return
	}
	m.rebases.Inc()
}

func (m *Metrics) supplyUpdated(totalSupply *uint256.Int, totalValue *uint256.Int) {
	if m == nil {
		return
	}
	m.totalSupply.Set(tokensFloat(totalSupply))
	m.totalValue.Set(tokensFloat(totalValue))
}

func tokensFloat(amount *uint256.Int) float64 {
	result, _ := new(big.Float).SetInt(amount.ToBig()).Float64()

	return result / 1e18
}
