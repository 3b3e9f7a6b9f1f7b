package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	JobsSubmittedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scenecast_jobs_submitted_total",
		Help: "Total number of accepted job submissions",
	})
	JobTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scenecast_jobs_transitions_total",
		Help: "Total number of committed job records by status",
	}, []string{"status"})
	LaunchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scenecast_launch_duration_seconds",
		Help:    "Duration of worker launch requests in seconds",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(JobsSubmittedTotal, JobTransitionsTotal, LaunchDuration)
}
