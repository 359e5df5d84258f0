package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Ledger metrics
	prescriptionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_prescriptions_created_total",
			Help: "Total number of prescriptions recorded",
		},
	)

	dosesPrescribed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_doses_prescribed_total",
			Help: "Doses added to patient balances, by eye",
		},
		[]string{"eye"},
	)

	dosesApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_doses_applied_total",
			Help: "Doses applied and removed from patient balances, by eye",
		},
		[]string{"eye"},
	)

	injectionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_injection_transitions_total",
			Help: "Injection status transitions out of SCHEDULED",
		},
		[]string{"to_status"},
	)

	ledgerConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_conflicts_total",
			Help: "Ledger operations rejected with a conflict",
		},
		[]string{"operation"},
	)

	analyticsDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analytics_duration_seconds",
			Help:    "Time spent computing dashboard analytics",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"report"},
	)
)

// Handler exposes the default registry.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}

// Middleware records request counts and latency keyed by route template,
// so path parameters do not explode label cardinality.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			httpRequestsInFlight.Inc()
			defer httpRequestsInFlight.Dec()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			status := strconv.Itoa(c.Response().Status)
			httpRequestsTotal.WithLabelValues(c.Request().Method, route, status).Inc()
			httpRequestDuration.WithLabelValues(c.Request().Method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

// --- Ledger helpers ---

func RecordPrescription(od, os int) {
	prescriptionsCreated.Inc()
	dosesPrescribed.WithLabelValues("od").Add(float64(od))
	dosesPrescribed.WithLabelValues("os").Add(float64(os))
}

func RecordApplication(od, os int) {
	injectionTransitions.WithLabelValues("APPLIED").Inc()
	dosesApplied.WithLabelValues("od").Add(float64(od))
	dosesApplied.WithLabelValues("os").Add(float64(os))
}

func RecordTransition(toStatus string) {
	injectionTransitions.WithLabelValues(toStatus).Inc()
}

func RecordConflict(operation string) {
	ledgerConflicts.WithLabelValues(operation).Inc()
}

// ObserveAnalytics times a dashboard report; call the returned func when done.
func ObserveAnalytics(report string) func() {
	start := time.Now()
	return func() {
		analyticsDuration.WithLabelValues(report).Observe(time.Since(start).Seconds())
	}
}
