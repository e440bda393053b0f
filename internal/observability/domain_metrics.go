package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	sqlGenerationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "demanddesk_sql_generations_total",
			Help: "Natural-language SQL generation attempts by outcome.",
		},
		[]string{"outcome"},
	)
	rankingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "demanddesk_ranking_requests_total",
			Help: "Employee ranking requests by the strategy that produced the result.",
		},
		[]string{"strategy"},
	)
	llmCompletionDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "demanddesk_llm_completion_duration_seconds",
			Help:    "Language-model completion latency.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"provider", "status"},
	)
	uploadRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "demanddesk_upload_rows_total",
			Help: "Spreadsheet rows processed by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		sqlGenerationsTotal,
		rankingRequestsTotal,
		llmCompletionDurationSeconds,
		uploadRowsTotal,
	)
}

func ObserveSQLGeneration(outcome string) {
	sqlGenerationsTotal.WithLabelValues(outcome).Inc()
}

func ObserveRanking(strategy string) {
	rankingRequestsTotal.WithLabelValues(strategy).Inc()
}

func ObserveLLMCompletion(provider string, err error, elapsed time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	llmCompletionDurationSeconds.WithLabelValues(provider, status).Observe(elapsed.Seconds())
}

func ObserveUploadRows(inserted, updated, failed int) {
	if inserted > 0 {
		uploadRowsTotal.WithLabelValues("inserted").Add(float64(inserted))
	}
	if updated > 0 {
		uploadRowsTotal.WithLabelValues("updated").Add(float64(updated))
	}
	if failed > 0 {
		uploadRowsTotal.WithLabelValues("failed").Add(float64(failed))
	}
}
