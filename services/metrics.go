package services

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CheckoutMetrics counts checkout outcomes and tracks their latency.
type CheckoutMetrics struct {
	Checkouts  *prometheus.CounterVec
	DurationMS prometheus.Histogram
}

func NewCheckoutMetrics() *CheckoutMetrics {
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crystosjewel",
		Subsystem: "checkout",
		Name:      "attempts_total",
		Help:      "Total number of checkout attempts by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "crystosjewel",
		Subsystem: "checkout",
		Name:      "duration_ms",
		Help:      "Checkout latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	})

	prometheus.MustRegister(checkouts, duration)
	return &CheckoutMetrics{Checkouts: checkouts, DurationMS: duration}
}

// ObserveCheckout records one checkout attempt. Safe on a nil receiver so
// tests can run the service without registering collectors.
func (m *CheckoutMetrics) ObserveCheckout(err error, d time.Duration) {
	if m == nil {
		return
	}
	m.Checkouts.WithLabelValues(checkoutOutcome(err)).Inc()
	m.DurationMS.Observe(float64(d.Milliseconds()))
}

func checkoutOutcome(err error) string {
	if err == nil {
		return "success"
	}
	var verr *ValidationError
	var serr *StockConflictError
	var perr *PromoError
	var cerr *ConflictError
	switch {
	case errors.As(err, &verr):
		return "validation_error"
	case errors.As(err, &serr), errors.As(err, &cerr):
		return "conflict"
	case errors.As(err, &perr):
		return "promo_error"
	default:
		return "error"
	}
}

// MetricsHandler exposes the Prometheus scrape endpoint.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
