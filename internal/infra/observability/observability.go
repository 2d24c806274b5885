// Package observability exposes Prometheus metrics for the settlement
// engine: operation outcomes, rejection codes, payouts, and live per-asset
// liquidity gauges.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/parlor-network/parlor/internal/domain"
)

// ─── Settlement Metrics ─────────────────────────────────────────────────────

var (
	opsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parlor_ops_total",
		Help: "Settlement operations by name and result.",
	}, []string{"op", "result"})

	rejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parlor_rejections_total",
		Help: "Rejected operations by machine-readable error code.",
	}, []string{"code"})

	payoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parlor_payouts_total",
		Help: "Total payout volume transferred to players, by asset.",
	}, []string{"asset"})

	lockedGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "parlor_locked",
		Help: "Funds reserved against active games, by asset.",
	}, []string{"asset"})

	treasuryGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "parlor_treasury",
		Help: "Operator-owned liquidity, by asset.",
	}, []string{"asset"})

	custodiedGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "parlor_custodied",
		Help: "Total custodied balance, by asset.",
	}, []string{"asset"})
)

// RecordOp counts one completed operation. Failures additionally count
// toward the rejection-code breakdown so monitoring can tell fraud attempts
// (bad signature, bad seed) from capacity exhaustion.
func RecordOp(op string, err error) {
	if err == nil {
		opsTotal.WithLabelValues(op, "ok").Inc()
		return
	}
	opsTotal.WithLabelValues(op, "error").Inc()
	rejectionsTotal.WithLabelValues(domain.Code(err)).Inc()
}

// RecordPayout adds to the payout volume counter.
func RecordPayout(asset string, amount int64) {
	payoutsTotal.WithLabelValues(asset).Add(float64(amount))
}

// SetLiquidity refreshes the per-asset gauges after a settlement operation.
func SetLiquidity(l domain.Liquidity) {
	lockedGauge.WithLabelValues(l.Asset).Set(float64(l.Locked))
	treasuryGauge.WithLabelValues(l.Asset).Set(float64(l.Treasury))
	custodiedGauge.WithLabelValues(l.Asset).Set(float64(l.Custodied))
}
