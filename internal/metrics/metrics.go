// Package metrics exposes Prometheus counters for the money paths.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "congo_wallet"

// Metrics groups the wallet service collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	depositsInitiated     *prometheus.CounterVec
	settlements           *prometheus.CounterVec
	transfers             *prometheus.CounterVec
	webhookRejected       *prometheus.CounterVec
	walletNumberCollision prometheus.Counter
	transferredMinorUnits prometheus.Counter
	settledMinorUnits     prometheus.Counter
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		depositsInitiated: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deposits_initiated_total",
				Help:      "Deposit initiations partitioned by result.",
			},
			[]string{"result"},
		),
		settlements: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "settlements_total",
				Help:      "Webhook settlement attempts partitioned by outcome.",
			},
			[]string{"outcome"},
		),
		transfers: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transfers_total",
				Help:      "Peer-to-peer transfers partitioned by result.",
			},
			[]string{"result"},
		),
		webhookRejected: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_rejected_total",
				Help:      "Webhook deliveries rejected before settlement, by reason.",
			},
			[]string{"reason"},
		),
		walletNumberCollision: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "wallet_number_collisions_total",
				Help:      "Generated wallet numbers that were already taken.",
			},
		),
		transferredMinorUnits: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transferred_minor_units_total",
				Help:      "Sum of successfully transferred amounts in minor units.",
			},
		),
		settledMinorUnits: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "settled_minor_units_total",
				Help:      "Sum of settled deposit amounts in minor units.",
			},
		),
	}
}

// DepositInitiated counts a deposit initiation attempt.
func (m *Metrics) DepositInitiated(result string) {
	if m == nil {
		return
	}
	m.depositsInitiated.WithLabelValues(result).Inc()
}

// Settlement counts a webhook settlement outcome. amount is added to the
// settled volume only for the "settled" outcome.
func (m *Metrics) Settlement(outcome string, amount int64) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(outcome).Inc()
	if outcome == "settled" && amount > 0 {
		m.settledMinorUnits.Add(float64(amount))
	}
}

// Transfer counts a transfer attempt.
func (m *Metrics) Transfer(result string, amount int64) {
	if m == nil {
		return
	}
	m.transfers.WithLabelValues(result).Inc()
	if result == "success" && amount > 0 {
		m.transferredMinorUnits.Add(float64(amount))
	}
}

// WebhookRejected counts a webhook refused before reaching settlement.
func (m *Metrics) WebhookRejected(reason string) {
	if m == nil {
		return
	}
	m.webhookRejected.WithLabelValues(reason).Inc()
}

// WalletNumberCollision counts a wallet number retry.
func (m *Metrics) WalletNumberCollision() {
	if m == nil {
		return
	}
	m.walletNumberCollision.Inc()
}
