package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	phaseLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fraudqa_phase_latency_ms",
		Help:    "Latency of pipeline phases in milliseconds",
		Buckets: []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
	}, []string{"phase"})

	intentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fraudqa_intent_total",
		Help: "Router decisions by intent",
	}, []string{"intent"})

	failureTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fraudqa_failure_total",
		Help: "Phase failures by kind",
	}, []string{"kind"})

	answerScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fraudqa_answer_score",
		Help:    "Computed answer quality score distribution",
		Buckets: []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
	})

	retrieverResults = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fraudqa_retriever_results",
		Help:    "Number of passages surviving the similarity floor",
		Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
	})

	sqlRows = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fraudqa_sql_rows",
		Help:    "Rows returned by executed analytical queries",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 200},
	})
)

func ensureRegistered() {
	once.Do(func() {
		prometheus.MustRegister(phaseLatency, intentTotal, failureTotal, answerScore, retrieverResults, sqlRows)
	})
}

// ObservePhase records the latency of one pipeline phase.
func ObservePhase(phase string, start time.Time) {
	ensureRegistered()
	phaseLatency.WithLabelValues(phase).Observe(float64(time.Since(start).Milliseconds()))
}

// CountIntent records one router decision.
func CountIntent(intent string) {
	ensureRegistered()
	intentTotal.WithLabelValues(intent).Inc()
}

// CountFailure records one typed phase failure.
func CountFailure(kind string) {
	ensureRegistered()
	failureTotal.WithLabelValues(kind).Inc()
}

// ObserveAnswerScore records the computed quality score of one answer.
func ObserveAnswerScore(score float64) {
	ensureRegistered()
	answerScore.Observe(score)
}

// ObserveRetrieverResults records how many passages a retrieval produced.
func ObserveRetrieverResults(n int) {
	ensureRegistered()
	retrieverResults.Observe(float64(n))
}

// ObserveSQLRows records the row count of one executed query.
func ObserveSQLRows(n int) {
	ensureRegistered()
	sqlRows.Observe(float64(n))
}
