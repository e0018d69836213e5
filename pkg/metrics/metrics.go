// Package metrics holds the daemon's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Commands counts NWC commands by method and outcome code ("ok" on success).
	Commands = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "egw",
		Subsystem: "nwc",
		Name:      "commands_total",
		Help:      "NWC commands handled, by method and result code.",
	}, []string{"method", "code"})

	// DroppedFrames counts inbound frames dropped before dispatch.
	DroppedFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "egw",
		Subsystem: "nwc",
		Name:      "dropped_frames_total",
		Help:      "Inbound relay frames dropped, by reason.",
	}, []string{"reason"})

	RelayReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "egw",
		Subsystem: "relay",
		Name:      "reconnects_total",
		Help:      "Relay sockets re-dialed after closing.",
	})

	RelayFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "egw",
		Subsystem: "relay",
		Name:      "permanent_failures_total",
		Help:      "Relay supervisors that gave up while connecting.",
	})

	// WalletBalance is the TokenStore balance in sats.
	WalletBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "egw",
		Subsystem: "wallet",
		Name:      "balance_sats",
		Help:      "Sum of held ecash proofs.",
	})

	InvoicesSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "egw",
		Subsystem: "wallet",
		Name:      "invoices_settled_total",
		Help:      "Ledger entries settled, by direction.",
	}, []string{"type"})
)
