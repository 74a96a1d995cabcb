package metrics

import "github.com/prometheus/client_golang/prometheus"

// Question pipeline Prometheus metrics.
var (
	QuestionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clinicopilot",
			Name:      "questions_total",
			Help:      "Total questions processed, by outcome",
		},
		[]string{"outcome"}, // "answered" / "rejected" / "no_context"
	)

	GuardrailTriggersTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clinicopilot",
			Name:      "guardrail_triggers_total",
			Help:      "Questions rejected by the scope guardrail",
		},
	)

	RetrievalFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clinicopilot",
			Name:      "retrieval_failures_total",
			Help:      "Similarity-search backend failures recovered as empty results",
		},
	)
)

// RegisterCopilotMetrics registers question pipeline metrics explicitly (no init()).
func RegisterCopilotMetrics() {
	prometheus.MustRegister(QuestionsTotal, GuardrailTriggersTotal, RetrievalFailuresTotal)
}
