package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		paymentsTotal,
	)
}

var paymentsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "billing_payments_total",
		Help: "Payment settlements by resulting status and method.",
	},
	[]string{"status", "method"},
)

func IncPayment(status, method string) {
	paymentsTotal.WithLabelValues(status, method).Inc()
}
