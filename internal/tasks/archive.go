package tasks

import (
	"archive/zip"
	"compress/flate"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/flibusta-apps/batch-downloader/internal/models"
	"github.com/flibusta-apps/batch-downloader/internal/spool"
	"github.com/flibusta-apps/batch-downloader/internal/telemetry"
)

// HandleArchive merges the job's successfully downloaded files into one zip,
// uploads it, and advances the job to its terminal state. Per-file failures
// exclude that file and nothing else; every job that reaches assembly ends
// up complete, even with zero entries.
func (e *Executor) HandleArchive(ctx context.Context, payload json.RawMessage) (any, error) {
	var p ArchivePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("decode archive payload: %w", err)
	}

	job, err := e.jobs.Get(ctx, p.JobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		// Assembly is only ever submitted for a persisted job.
		return nil, fmt.Errorf("job %s missing at archive time", p.JobID)
	}

	archiveKey, err := e.archiveKey(ctx, job)
	if err != nil {
		return nil, err
	}

	job.Status = models.StatusArchiving
	if err := e.jobs.Save(ctx, *job); err != nil {
		return nil, err
	}

	buf := spool.New(e.cfg.SpoolThreshold)
	defer buf.Close()

	zw := zip.NewWriter(buf)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	// Submission order, regardless of completion order.
	for _, taskID := range job.Subtasks {
		outcome, err := e.broker.Outcome(ctx, taskID)
		if err != nil {
			return nil, err
		}
		objectKey, ok := outcome.StringValue()
		if !ok {
			telemetry.EntriesSkipped.Inc()
			continue
		}
		if err := e.copyObject(ctx, zw, objectKey); err != nil {
			log.Printf("job %s: skip %s: %v", job.ID, objectKey, err)
			telemetry.EntriesSkipped.Inc()
			continue
		}
		// The archive owns these bytes now; no other reader depends on them.
		if err := e.blobs.Delete(ctx, objectKey); err != nil {
			log.Printf("job %s: delete %s: %v", job.ID, objectKey, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	if err := buf.Rewind(); err != nil {
		return nil, err
	}
	if err := e.blobs.Put(ctx, archiveKey, buf, buf.Size()); err != nil {
		return nil, err
	}

	link, err := e.blobs.PresignGet(ctx, archiveKey)
	if err != nil {
		return nil, err
	}

	job.Status = models.StatusComplete
	job.ResultObjectKey = archiveKey
	job.ResultLink = link
	if err := e.jobs.Save(ctx, *job); err != nil {
		return nil, err
	}

	telemetry.ArchivesBuilt.Inc()
	return nil, nil
}

// archiveKey resolves the entity display name and derives the deterministic
// archive object key for the job.
func (e *Executor) archiveKey(ctx context.Context, job *models.Job) (string, error) {
	name, err := e.entityName(ctx, job)
	if err != nil {
		return "", err
	}
	return ArchiveKey(job.EntityID, name), nil
}

func (e *Executor) entityName(ctx context.Context, job *models.Job) (string, error) {
	switch job.EntityKind {
	case models.KindSequence:
		seq, err := e.catalog.Sequence(ctx, job.EntityID)
		if err != nil {
			return "", fmt.Errorf("resolve sequence %d: %w", job.EntityID, err)
		}
		return seq.Name, nil
	case models.KindAuthor, models.KindTranslator:
		author, err := e.catalog.Author(ctx, job.EntityID)
		if err != nil {
			return "", fmt.Errorf("resolve author %d: %w", job.EntityID, err)
		}
		parts := make([]string, 0, 3)
		for _, part := range []string{author.FirstName, author.LastName, author.MiddleName} {
			if part != "" {
				parts = append(parts, part)
			}
		}
		return strings.Join(parts, "_"), nil
	}
	return "", fmt.Errorf("unknown entity kind %q", job.EntityKind)
}

// copyObject streams one stored book file into a new archive entry through
// a short-lived retrieval link.
func (e *Executor) copyObject(ctx context.Context, zw *zip.Writer, objectKey string) error {
	link, err := e.blobs.PresignGet(ctx, objectKey)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch object: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch object: status %d", resp.StatusCode)
	}

	entry, err := zw.Create(objectKey)
	if err != nil {
		return fmt.Errorf("create entry: %w", err)
	}
	if _, err := io.Copy(entry, resp.Body); err != nil {
		return fmt.Errorf("copy entry: %w", err)
	}
	return nil
}
