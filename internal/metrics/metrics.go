package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	recipesCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "recipebook",
			Subsystem: "recipes",
			Name:      "created_total",
			Help:      "Number of recipes added and persisted.",
		},
	)
	recipePersistFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "recipebook",
			Subsystem: "recipes",
			Name:      "persist_failures_total",
			Help:      "Number of recipe additions rejected because the recipe file could not be written.",
		},
	)
	recipesStored = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "recipebook",
			Subsystem: "recipes",
			Name:      "stored",
			Help:      "Current number of recipes in the store.",
		},
	)
	roastSchedules = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "recipebook",
			Subsystem: "roast",
			Name:      "schedules_total",
			Help:      "Number of roast schedules computed after an end time was set.",
		},
	)
	roastInvalidEnd = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "recipebook",
			Subsystem: "roast",
			Name:      "invalid_end_total",
			Help:      "Number of rejected end time submissions.",
		},
	)
	historyFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recipebook",
			Subsystem: "history",
			Name:      "failures_total",
			Help:      "Number of history events that could not be delivered to the sink.",
		}, []string{"event"},
	)
	historyPruned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "recipebook",
			Subsystem: "history",
			Name:      "pruned_total",
			Help:      "Number of history events deleted by the retention job.",
		},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recipebook",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Number of HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "recipebook",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"},
	)
)

// Register adds all metrics to r. Collectors r already holds are skipped,
// so it is safe to call repeatedly and with several registries; the
// helpers record once any call has succeeded.
func Register(r prometheus.Registerer) error {
	cs := []prometheus.Collector{recipesCreated, recipePersistFailures, recipesStored, roastSchedules, roastInvalidEnd, historyFailures, historyPruned, httpRequests, httpDuration}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Registered reports whether Register has succeeded at least once.
func Registered() bool { return regOK.Load() }

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

// HandlerFor serves metrics from a specific gatherer.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func IncRecipeCreated() {
	if regOK.Load() {
		recipesCreated.Inc()
	}
}

func IncRecipePersistFailure() {
	if regOK.Load() {
		recipePersistFailures.Inc()
	}
}

func SetRecipesStored(n int) {
	if regOK.Load() {
		recipesStored.Set(float64(n))
	}
}

func IncRoastSchedule() {
	if regOK.Load() {
		roastSchedules.Inc()
	}
}

func IncRoastInvalidEnd() {
	if regOK.Load() {
		roastInvalidEnd.Inc()
	}
}

func IncHistoryFailure(event string) {
	if regOK.Load() {
		historyFailures.WithLabelValues(event).Inc()
	}
}

func AddHistoryPruned(n int64) {
	if regOK.Load() && n > 0 {
		historyPruned.Add(float64(n))
	}
}

// ObserveRequest records one served HTTP request.
func ObserveRequest(route, method string, code int, seconds float64) {
	if regOK.Load() {
		httpRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
		httpDuration.WithLabelValues(route).Observe(seconds)
	}
}
