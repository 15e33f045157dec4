package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var opsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "teller",
	Subsystem: "ledger",
	Name:      "operations_total",
	Help:      "Ledger operations by type and outcome.",
}, []string{"op", "outcome"})

// observe classifies an operation result for the operations counter.
func observe(op string, err error) {
	switch {
	case err == nil:
		opsTotal.WithLabelValues(op, "committed").Inc()
	case IsDecline(err):
		opsTotal.WithLabelValues(op, "declined").Inc()
	case IsUnavailable(err):
		opsTotal.WithLabelValues(op, "unavailable").Inc()
	default:
		opsTotal.WithLabelValues(op, "error").Inc()
	}
}
