package metricsvc

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/classroom-curator/planner/core/yearplan"
)

const namespace = "planner"

// Recorder is a yearplan.Recorder backed by Prometheus collectors.
type Recorder struct {
	registry *prometheus.Registry

	scheduleRuns     *prometheus.CounterVec
	units            *prometheus.CounterVec
	holidayFailures  prometheus.Counter
	scheduleDuration prometheus.Histogram
}

var _ yearplan.Recorder = (*Recorder)(nil)

// NewRecorder registers the planner collectors, along with the Go and process collectors, on a new registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		scheduleRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schedule_runs_total",
			Help:      "Scheduling runs by outcome.",
		}, []string{"outcome"}),
		units: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "units_total",
			Help:      "Scheduled units by status.",
		}, []string{"status"}),
		holidayFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "holiday_fetch_failures_total",
			Help:      "Holiday fetches that failed and fell back to explicit holidays.",
		}),
		scheduleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "schedule_duration_seconds",
			Help:      "Time spent scheduling units.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}

	r.registry.MustRegister(
		r.scheduleRuns,
		r.units,
		r.holidayFailures,
		r.scheduleDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// pre-create label values so they are exported from the start
	for _, outcome := range []string{"ok", "invalid"} {
		r.scheduleRuns.WithLabelValues(outcome)
	}
	for _, status := range []yearplan.Status{yearplan.StatusScheduled, yearplan.StatusOverspill} {
		r.units.WithLabelValues(string(status))
	}
	return r
}

func (r *Recorder) ObserveSchedule(outcome string, elapsed time.Duration, units []yearplan.ScheduledUnit) {
	r.scheduleRuns.WithLabelValues(outcome).Inc()
	r.scheduleDuration.Observe(elapsed.Seconds())
	for _, u := range units {
		r.units.WithLabelValues(string(u.Status)).Inc()
	}
}

func (r *Recorder) HolidayFetchFailed() {
	r.holidayFailures.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry is exposed for tests and extra collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
