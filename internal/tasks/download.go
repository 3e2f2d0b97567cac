package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/flibusta-apps/batch-downloader/internal/telemetry"
)

// HandleDownload fetches one book file and stores it as a blob under the
// delivered filename, which becomes the subtask's object key. A book the
// cache cannot deliver settles with a nil value, not an error.
//
// Whatever happens, one check task is submitted for the job so the fan-in
// observes this completion.
func (e *Executor) HandleDownload(ctx context.Context, payload json.RawMessage) (any, error) {
	var p DownloadPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("decode download payload: %w", err)
	}

	defer func() {
		if _, err := e.broker.Enqueue(ctx, TaskCheck, CheckPayload{JobID: p.JobID}); err != nil {
			log.Printf("enqueue check for job %s: %v", p.JobID, err)
		}
	}()

	buf, filename, ok, err := e.fetcher.Fetch(ctx, p.BookID, p.Format)
	if err != nil {
		return nil, err
	}
	if !ok {
		telemetry.BooksUnavailable.Inc()
		return nil, nil
	}
	defer buf.Close()

	if err := e.blobs.Put(ctx, filename, buf, buf.Size()); err != nil {
		return nil, err
	}

	telemetry.BooksDownloaded.Inc()
	return filename, nil
}
