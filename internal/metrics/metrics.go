package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors the API records into.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	SalesTotal          *prometheus.CounterVec
	UnitsSold           prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pharmacy_http_requests_total",
				Help: "Total HTTP requests by method, route and status.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pharmacy_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		SalesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pharmacy_sales_total",
				Help: "Sale attempts by outcome.",
			},
			[]string{"outcome"},
		),
		UnitsSold: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pharmacy_units_sold_total",
				Help: "Units of medicine sold.",
			},
		),
	}
	reg.MustRegister(m.HTTPRequestsTotal, m.HTTPRequestDuration, m.SalesTotal, m.UnitsSold)
	return m
}

func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordSale counts a sale attempt; units only count for created sales.
func (m *Metrics) RecordSale(outcome string, units int64) {
	m.SalesTotal.WithLabelValues(outcome).Inc()
	if outcome == "created" && units > 0 {
		m.UnitsSold.Add(float64(units))
	}
}
