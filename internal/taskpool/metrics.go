package taskpool

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	TasksInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scenecast_tasks_in_flight",
		Help: "Number of background tasks currently running",
	})
	TasksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scenecast_tasks_total",
		Help: "Total number of finished background tasks",
	}, []string{"name", "status"})
	TaskDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scenecast_task_duration_seconds",
		Help:    "Duration of background tasks in seconds",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"name"})
)

func init() {
	prometheus.MustRegister(TasksInFlight, TasksTotal, TaskDuration)
}

// Metrics records duration and outcome of every task.
func Metrics() Middleware {
	return func(ctx context.Context, t *Task, next Func) error {
		TasksInFlight.Inc()
		defer TasksInFlight.Dec()

		start := time.Now()
		err := next(ctx)
		TaskDuration.WithLabelValues(t.Name).Observe(time.Since(start).Seconds())

		status := "ok"
		if err != nil {
			status = "error"
		}
		TasksTotal.WithLabelValues(t.Name, status).Inc()
		return err
	}
}
