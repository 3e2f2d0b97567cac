package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	JobsCreated      = prometheus.NewCounter(prometheus.CounterOpts{Name: "archive_jobs_created_total", Help: "Archive jobs created"})
	JobCreateErrors  = prometheus.NewCounter(prometheus.CounterOpts{Name: "archive_job_create_errors_total", Help: "Job creation requests rejected"})
	BooksDownloaded  = prometheus.NewCounter(prometheus.CounterOpts{Name: "book_downloads_total", Help: "Book files downloaded and stored"})
	BooksUnavailable = prometheus.NewCounter(prometheus.CounterOpts{Name: "book_downloads_unavailable_total", Help: "Book files the content cache could not deliver"})
	ArchivesBuilt    = prometheus.NewCounter(prometheus.CounterOpts{Name: "archives_built_total", Help: "Archives assembled and uploaded"})
	EntriesSkipped   = prometheus.NewCounter(prometheus.CounterOpts{Name: "archive_entries_skipped_total", Help: "Subtask results excluded from an archive"})
	RateLimitRejects = prometheus.NewCounter(prometheus.CounterOpts{Name: "api_rate_limit_rejects_total", Help: "Requests rejected by rate limiter"})
	QueueDepthGauge  = prometheus.NewGauge(prometheus.GaugeOpts{Name: "task_queue_depth", Help: "Tasks waiting in the queue"})
)

// Handler exposes /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			JobsCreated,
			JobCreateErrors,
			BooksDownloaded,
			BooksUnavailable,
			ArchivesBuilt,
			EntriesSkipped,
			RateLimitRejects,
			QueueDepthGauge,
		)
	})
	return promhttp.Handler()
}
