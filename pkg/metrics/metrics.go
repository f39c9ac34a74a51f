// Package metrics exposes Prometheus collectors for the chat client.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the client's collectors. Create one per registry with New.
type Metrics struct {
	// Requests counts completed requests by model, serving layer and outcome.
	Requests *prometheus.CounterVec
	// Tokens counts tokens reported by live responses; kind is prompt,
	// completion or cached.
	Tokens *prometheus.CounterVec
	// RemoteDuration observes the latency of remote calls.
	RemoteDuration *prometheus.HistogramVec

	CacheEvictions    prometheus.Counter
	DiskWriteFailures prometheus.Counter
	CorruptEntries    *prometheus.CounterVec
	// LedgerFailures counts usage ledger errors; op is read or write.
	LedgerFailures *prometheus.CounterVec
}

// New registers the collectors with reg. A nil reg creates unregistered
// collectors, which is handy in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "typedchat_requests_total",
				Help: "Chat requests by model, serving layer and status",
			},
			[]string{"model", "source", "status"},
		),
		Tokens: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "typedchat_tokens_total",
				Help: "Tokens consumed by live API calls",
			},
			[]string{"model", "kind"},
		),
		RemoteDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "typedchat_remote_duration_seconds",
				Help:    "Latency of chat-completion API calls",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~1min
			},
			[]string{"model"},
		),
		CacheEvictions: f.NewCounter(prometheus.CounterOpts{
			Name: "typedchat_cache_evictions_total",
			Help: "Entries evicted from the in-memory response cache",
		}),
		DiskWriteFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "typedchat_disk_write_failures_total",
			Help: "Responses that could not be written to the disk cache",
		}),
		CorruptEntries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "typedchat_cache_corrupt_entries_total",
				Help: "Cached bodies that failed to decode and were treated as misses",
			},
			[]string{"source"},
		),
		LedgerFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "typedchat_ledger_failures_total",
				Help: "Usage ledger reads and writes that failed",
			},
			[]string{"op"},
		),
	}
}
