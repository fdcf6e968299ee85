package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Total number of requests labelled by path and status",
}, []string{"path", "status"})

var countJobsInQueue = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "count_jobs_in_queue",
	Help: "Ingestion jobs enqueued and not yet acknowledged",
})

var redeliveriesTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "queue_redeliveries_total",
	Help: "Pending stream entries reclaimed after a failed or crashed attempt",
})

var ingestJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ingest_jobs_total",
	Help: "Processed ingestion deliveries labelled by outcome",
}, []string{"outcome"})

var segmentsCommitted = promauto.NewCounter(prometheus.CounterOpts{
	Name: "segments_committed_total",
	Help: "Enriched segments committed to the vector index",
})

var activeWorkerCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "active_worker_count",
	Help: "Ingestion deliveries currently being processed",
})

type HttpStatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *HttpStatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

func IncrementJobsInQueue() {
	countJobsInQueue.Inc()
}

func DecrementJobsInQueue() {
	countJobsInQueue.Dec()
}

func IncrementRedeliveries() {
	redeliveriesTotal.Inc()
}

func CaptureIngestOutcome(outcome string) {
	ingestJobsTotal.WithLabelValues(outcome).Inc()
}

func AddSegmentsCommitted(n int) {
	segmentsCommitted.Add(float64(n))
}

func IncrementActiveWorkerCount() {
	activeWorkerCount.Inc()
}

func DecrementActiveWorkerCount() {
	activeWorkerCount.Dec()
}

var jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "ingest_job_duration_seconds",
	Help:    "Total time spent processing one ingestion delivery.",
	Buckets: []float64{.1, .5, 1, 2, 5, 10, 30, 60},
}, []string{"outcome"})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dependency_latency_seconds",
	Help:    "Latency of external service calls.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
}, []string{"service"})

func CaptureExecutionMetrics(label string, timeElapsed time.Duration) {
	dependencyLatency.WithLabelValues(label).Observe(timeElapsed.Seconds())
}

func CaptureJobMetrics(label string, timeElapsed time.Duration) {
	jobDuration.WithLabelValues(label).Observe(timeElapsed.Seconds())
}
