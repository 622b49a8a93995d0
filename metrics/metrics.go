package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Statements sent to the database gateway
	GatewayStatementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "convstore",
			Subsystem: "gateway",
			Name:      "statements_total",
			Help:      "Total number of statements executed through the database gateway",
		},
		[]string{"backend", "status"},
	)

	GatewayStatementDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "convstore",
			Subsystem: "gateway",
			Name:      "statement_duration_seconds",
			Help:      "Database gateway round trip duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"backend"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "convstore",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// Messages appended and conversations read
	MessagesAppendedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "convstore",
			Subsystem: "store",
			Name:      "messages_appended_total",
			Help:      "Total append attempts by outcome",
		},
		[]string{"status"},
	)

	ConversationReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "convstore",
			Subsystem: "store",
			Name:      "conversation_reads_total",
			Help:      "Total conversation reads by outcome",
		},
		[]string{"status"},
	)
)

// Handler returns the HTTP handler for the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
