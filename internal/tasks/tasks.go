// Package tasks contains the archive pipeline: job creation with one
// download task fanned out per eligible book, the self-rescheduling check
// that detects when every download has settled, and the assembly step that
// merges stored files into a single zip.
package tasks

import (
	"context"
	"io"
	"net/http"

	"github.com/flibusta-apps/batch-downloader/internal/catalog"
	"github.com/flibusta-apps/batch-downloader/internal/config"
	"github.com/flibusta-apps/batch-downloader/internal/models"
	"github.com/flibusta-apps/batch-downloader/internal/queue"
	"github.com/flibusta-apps/batch-downloader/internal/spool"
)

// Task names routed by the worker processor.
const (
	TaskDownload = "download_book"
	TaskCheck    = "check_subtasks"
	TaskArchive  = "create_archive"
)

// DownloadPayload fetches one book file and stores it as a blob.
type DownloadPayload struct {
	JobID  string `json:"job_id"`
	BookID int    `json:"book_id"`
	Format string `json:"format"`
}

// CheckPayload re-evaluates whether all of a job's downloads have settled.
type CheckPayload struct {
	JobID string `json:"job_id"`
}

// ArchivePayload assembles the final archive for a job.
type ArchivePayload struct {
	JobID string `json:"job_id"`
}

// JobStore persists job records under expiring keys.
type JobStore interface {
	Save(ctx context.Context, job models.Job) error
	Get(ctx context.Context, jobID string) (*models.Job, error)
	TryMarkArchiving(ctx context.Context, jobID string) (bool, error)
}

// Broker submits tasks and exposes their settled outcomes.
type Broker interface {
	Enqueue(ctx context.Context, name string, payload any) (string, error)
	IsReady(ctx context.Context, taskID string) (bool, error)
	Outcome(ctx context.Context, taskID string) (queue.Outcome, error)
}

// Catalog lists an entity's books and resolves its display name.
type Catalog interface {
	BooksPage(ctx context.Context, kind models.EntityKind, entityID int, allowedLangs []string, page int) (catalog.Page, error)
	Sequence(ctx context.Context, sequenceID int) (catalog.Sequence, error)
	Author(ctx context.Context, authorID int) (catalog.Author, error)
}

// Fetcher streams one book file from the content cache.
type Fetcher interface {
	Fetch(ctx context.Context, bookID int, format string) (buf *spool.Buffer, filename string, ok bool, err error)
}

// Blobs is the durable object storage for book files and archives.
type Blobs interface {
	Put(ctx context.Context, key string, body io.Reader, size int64) error
	PresignGet(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Executor owns the queue-side handlers of the pipeline.
type Executor struct {
	cfg        config.Config
	jobs       JobStore
	broker     Broker
	catalog    Catalog
	fetcher    Fetcher
	blobs      Blobs
	httpClient *http.Client
}

// NewExecutor wires the pipeline handlers to their collaborators.
func NewExecutor(cfg config.Config, jobs JobStore, broker Broker, cat Catalog, fetch Fetcher, blobs Blobs) *Executor {
	return &Executor{
		cfg:        cfg,
		jobs:       jobs,
		broker:     broker,
		catalog:    cat,
		fetcher:    fetch,
		blobs:      blobs,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
	}
}
