package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Transfers collects transfer engine outcome counters and latency.
// A nil *Transfers is a no-op so tests can skip registration.
type Transfers struct {
	outcomes *prometheus.CounterVec
	duration prometheus.Histogram
}

func NewTransfers(reg prometheus.Registerer) *Transfers {
	f := promauto.With(reg)
	return &Transfers{
		outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_transfers_total",
			Help: "Transfer attempts by resolved status.",
		}, []string{"status"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "wallet_transfer_duration_seconds",
			Help:    "End-to-end transfer engine latency.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (t *Transfers) Observe(status string, d time.Duration) {
	if t == nil {
		return
	}
	t.outcomes.WithLabelValues(status).Inc()
	t.duration.Observe(d.Seconds())
}
