package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Campaign metrics. Labels are closed enums (kind, outcome, trigger,
// status) so cardinality stays fixed.
var (
	campaignSends = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_sends_total",
			Help: "Send attempts by message kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	campaignBatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_batches_total",
			Help: "Dispatch batches by trigger and final status.",
		},
		[]string{"trigger", "status"},
	)

	campaignBatchDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "campaign_batch_duration_seconds",
			Help:    "Wall time of dispatch batches.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"trigger"},
	)

	campaignSchedulesFired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "campaign_schedules_fired_total",
			Help: "Schedules claimed and handed to the dispatcher.",
		},
	)
)

func init() {
	prometheus.MustRegister(campaignSends, campaignBatches, campaignBatchDur, campaignSchedulesFired)
}

// ObserveSend counts one send attempt.
func ObserveSend(kind, outcome string) {
	campaignSends.WithLabelValues(kind, outcome).Inc()
}

// ObserveBatch records a finished batch.
func ObserveBatch(trigger, status string, took time.Duration) {
	campaignBatches.WithLabelValues(trigger, status).Inc()
	campaignBatchDur.WithLabelValues(trigger).Observe(took.Seconds())
}

// ObserveScheduleFired counts a claimed schedule.
func ObserveScheduleFired() { campaignSchedulesFired.Inc() }
