package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusSink implements Sink on top of client_golang counters and
// histograms, registered into the given registerer (typically
// prometheus.DefaultRegisterer).
type PrometheusSink struct {
	connectionAttempts *prometheus.CounterVec
	invocationsTotal   *prometheus.CounterVec
	invocationErrors   *prometheus.CounterVec
	invocationDuration *prometheus.HistogramVec
	outputBytes        *prometheus.HistogramVec
	normalizationDelta *prometheus.HistogramVec
}

// NewPrometheusSink registers the manager's metric families against reg.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	factory := promauto.With(reg)

	return &PrometheusSink{
		connectionAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mcpfed_connection_attempts_total",
			Help: "Managed Client initialization attempts, by server and outcome.",
		}, []string{"server_key", "outcome"}),

		invocationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mcpfed_tool_invocations_total",
			Help: "Completed tool invocations, by server, tool, and outcome.",
		}, []string{"server_key", "tool_name", "outcome"}),

		invocationErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mcpfed_tool_invocation_errors_total",
			Help: "Classified tool invocation failures, by server, tool, and error kind.",
		}, []string{"server_key", "tool_name", "error_kind"}),

		invocationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mcpfed_tool_invocation_duration_seconds",
			Help:    "Tool invocation wall time.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 90},
		}, []string{"server_key", "tool_name"}),

		outputBytes: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mcpfed_tool_output_bytes",
			Help:    "Size of tool invocation output, by output kind.",
			Buckets: []float64{64, 256, 1024, 4096, 16384, 65536, 262144},
		}, []string{"output_kind"}),

		normalizationDelta: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mcpfed_response_normalization_ratio",
			Help:    "Ratio of normalized to original response length.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 0.75, 1},
		}, []string{"tool_name"}),
	}
}

func outcomeLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

func (s *PrometheusSink) RecordConnectionAttempt(serverKey string, success bool) {
	s.connectionAttempts.WithLabelValues(serverKey, outcomeLabel(success)).Inc()
}

func (s *PrometheusSink) RecordInvocation(serverKey, toolName string, duration time.Duration, success bool, outputBytes int, outputKind string) {
	s.invocationsTotal.WithLabelValues(serverKey, toolName, outcomeLabel(success)).Inc()
	s.invocationDuration.WithLabelValues(serverKey, toolName).Observe(duration.Seconds())
	s.outputBytes.WithLabelValues(outputKind).Observe(float64(outputBytes))
}

func (s *PrometheusSink) RecordInvocationError(serverKey, toolName, errorKind string) {
	s.invocationErrors.WithLabelValues(serverKey, toolName, errorKind).Inc()
}

func (s *PrometheusSink) RecordNormalization(toolName string, originalLength, normalizedLength int) {
	if originalLength <= 0 {
		return
	}
	s.normalizationDelta.WithLabelValues(toolName).Observe(float64(normalizedLength) / float64(originalLength))
}

var _ Sink = (*PrometheusSink)(nil)
