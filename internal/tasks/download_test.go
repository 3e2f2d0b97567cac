package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/flibusta-apps/batch-downloader/internal/config"
)

func downloadPayload(t *testing.T, jobID string, bookID int) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(DownloadPayload{JobID: jobID, BookID: bookID, Format: "fb2"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return raw
}

func TestHandleDownloadStoresBlob(t *testing.T) {
	ctx := context.Background()
	broker := newFakeBroker()
	blobs := newFakeBlobs(t)
	fetch := &fakeFetcher{files: map[int]fetchedFile{
		7: {name: "Tolstoj_7.fb2", data: []byte("book bytes")},
	}}

	ex := NewExecutor(config.Config{}, newFakeJobs(), broker, &fakeCatalog{}, fetch, blobs)

	value, err := ex.HandleDownload(ctx, downloadPayload(t, "job-1", 7))
	if err != nil {
		t.Fatalf("handle download: %v", err)
	}
	if value != "Tolstoj_7.fb2" {
		t.Fatalf("outcome value = %v, want delivered filename", value)
	}

	data, ok := blobs.get("Tolstoj_7.fb2")
	if !ok || string(data) != "book bytes" {
		t.Fatalf("blob not stored: ok=%v data=%q", ok, data)
	}

	checks := broker.byName(TaskCheck)
	if len(checks) != 1 {
		t.Fatalf("expected exactly one check task, got %d", len(checks))
	}
	var p CheckPayload
	if err := json.Unmarshal(checks[0].payload, &p); err != nil || p.JobID != "job-1" {
		t.Fatalf("check payload %+v err=%v", p, err)
	}
}

func TestHandleDownloadAbsentFile(t *testing.T) {
	broker := newFakeBroker()
	blobs := newFakeBlobs(t)
	ex := NewExecutor(config.Config{}, newFakeJobs(), broker, &fakeCatalog{}, &fakeFetcher{}, blobs)

	value, err := ex.HandleDownload(context.Background(), downloadPayload(t, "job-1", 7))
	if err != nil {
		t.Fatalf("absence must settle without error, got %v", err)
	}
	if value != nil {
		t.Fatalf("absence must settle with nil value, got %v", value)
	}
	if len(blobs.objects) != 0 {
		t.Fatalf("no blob may be stored for an absent file")
	}
	if len(broker.byName(TaskCheck)) != 1 {
		t.Fatalf("check must still be triggered on absence")
	}
}

func TestHandleDownloadErrorStillTriggersCheck(t *testing.T) {
	broker := newFakeBroker()
	ex := NewExecutor(config.Config{}, newFakeJobs(), broker, &fakeCatalog{},
		&fakeFetcher{fetchErr: errors.New("cache unreachable")}, newFakeBlobs(t))

	_, err := ex.HandleDownload(context.Background(), downloadPayload(t, "job-1", 7))
	if err == nil {
		t.Fatalf("expected fetch error to propagate")
	}
	if len(broker.byName(TaskCheck)) != 1 {
		t.Fatalf("check must be triggered even when the download fails")
	}
}
