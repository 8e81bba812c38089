// Package metrics provides Prometheus instrumentation for the pairing bot.
// It exposes gauges for the waiting pool and active pairs, counters for
// pairing and relay throughput, and a histogram for search wait time.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// WaitingUsers tracks the current size of the waiting pool.
	WaitingUsers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "anonpair_waiting_users",
		Help: "Current number of users in the waiting pool",
	})

	// ActivePairs tracks the current number of chatting pairs.
	ActivePairs = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "anonpair_active_pairs",
		Help: "Current number of active chat pairs",
	})

	// PairingsTotal counts successfully committed pairings.
	PairingsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "anonpair_pairings_total",
		Help: "Total number of pairings committed",
	})

	// PairingRollbacksTotal counts pairings rolled back because the durable
	// record could not be written.
	PairingRollbacksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "anonpair_pairing_rollbacks_total",
		Help: "Total number of pairings rolled back on persist failure",
	})

	// RelayedMessagesTotal counts relay attempts, labeled by outcome:
	// "delivered", "unreachable", or "failed".
	RelayedMessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "anonpair_relayed_messages_total",
		Help: "Total number of relay attempts by outcome",
	}, []string{"outcome"})

	// SearchTimeoutsTotal counts users reclaimed from the waiting pool.
	SearchTimeoutsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "anonpair_search_timeouts_total",
		Help: "Total number of searches that timed out unmatched",
	})

	// IdleDisconnectsTotal counts pairs unpaired by the idle-chat watcher.
	IdleDisconnectsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "anonpair_idle_disconnects_total",
		Help: "Total number of pairs disconnected for inactivity",
	})

	// PersistRetriesTotal counts retried durable-record writes.
	PersistRetriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "anonpair_persist_retries_total",
		Help: "Total number of retried partner record writes",
	})

	// SearchWaitSeconds records the time from search request to pairing.
	SearchWaitSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "anonpair_search_wait_seconds",
		Help:    "Time from search request to pairing",
		Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 90, 120},
	})
)

func init() {
	prometheus.MustRegister(
		WaitingUsers,
		ActivePairs,
		PairingsTotal,
		PairingRollbacksTotal,
		RelayedMessagesTotal,
		SearchTimeoutsTotal,
		IdleDisconnectsTotal,
		PersistRetriesTotal,
		SearchWaitSeconds,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
