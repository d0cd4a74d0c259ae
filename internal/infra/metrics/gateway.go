package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		gatewayRequestsTotal,
		gatewayRequestDuration,
	)
}

var (
	gatewayRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_gateway_requests_total",
			Help: "Payment gateway calls by operation (create/execute) and outcome.",
		},
		[]string{"op", "outcome"},
	)

	gatewayRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "billing_gateway_request_duration_seconds",
			Help:    "Payment gateway round-trip latency by operation.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)

func ObserveGatewayRequest(op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	gatewayRequestsTotal.WithLabelValues(op, outcome).Inc()
	gatewayRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
