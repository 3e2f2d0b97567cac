package tasks

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/flibusta-apps/batch-downloader/internal/catalog"
	"github.com/flibusta-apps/batch-downloader/internal/models"
	"github.com/flibusta-apps/batch-downloader/internal/telemetry"
)

// Creator discovers an entity's books and fans out one download task each.
type Creator struct {
	jobs    JobStore
	broker  Broker
	catalog Catalog
}

func NewCreator(jobs JobStore, broker Broker, cat Catalog) *Creator {
	return &Creator{jobs: jobs, broker: broker, catalog: cat}
}

// CreateJob walks the catalog for the entity, submits one download per book
// supporting the requested format, and persists the resulting job record.
// Creation failures are *CreateError values carrying the client message.
//
// Download tasks are submitted before the record is saved; if the save then
// fails they run orphaned to completion and their results simply expire.
func (c *Creator) CreateJob(ctx context.Context, entityID int, kind models.EntityKind, format string, allowedLangs []string) (models.Job, error) {
	books, err := c.collectBooks(ctx, kind, entityID, allowedLangs)
	if err != nil {
		return models.Job{}, err
	}

	jobID := uuid.New().String()
	subtasks := make([]string, 0, len(books))
	for _, book := range books {
		if !slices.Contains(book.AvailableTypes, format) {
			continue
		}
		taskID, err := c.broker.Enqueue(ctx, TaskDownload, DownloadPayload{
			JobID:  jobID,
			BookID: book.ID,
			Format: format,
		})
		if err != nil {
			return models.Job{}, ErrPersistFailed
		}
		subtasks = append(subtasks, taskID)
	}
	if len(subtasks) == 0 {
		return models.Job{}, ErrNoEligibleBooks
	}

	job := models.Job{
		ID:         jobID,
		EntityID:   entityID,
		EntityKind: kind,
		Subtasks:   subtasks,
		Status:     models.StatusInProgress,
	}
	if err := c.jobs.Save(ctx, job); err != nil {
		return models.Job{}, ErrPersistFailed
	}

	telemetry.JobsCreated.Inc()
	return job, nil
}

// collectBooks accumulates every page of the entity's book listing.
func (c *Creator) collectBooks(ctx context.Context, kind models.EntityKind, entityID int, allowedLangs []string) ([]catalog.Book, error) {
	var books []catalog.Book

	currentPage := 1
	pagesCount := 1
	for currentPage <= pagesCount {
		page, err := c.catalog.BooksPage(ctx, kind, entityID, allowedLangs, currentPage)
		if err != nil {
			return nil, ErrCatalogUnavailable
		}
		books = append(books, page.Items...)
		pagesCount = page.Pages
		currentPage++
	}

	if len(books) == 0 {
		return nil, ErrNoBooks
	}
	return books, nil
}
