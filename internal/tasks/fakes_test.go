package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/flibusta-apps/batch-downloader/internal/catalog"
	"github.com/flibusta-apps/batch-downloader/internal/models"
	"github.com/flibusta-apps/batch-downloader/internal/queue"
	"github.com/flibusta-apps/batch-downloader/internal/spool"
)

type fakeJobs struct {
	mu        sync.Mutex
	jobs      map[string]models.Job
	statusLog []models.JobStatus
	claimed   map[string]bool
	saveErr   error
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{
		jobs:    make(map[string]models.Job),
		claimed: make(map[string]bool),
	}
}

func (f *fakeJobs) Save(_ context.Context, job models.Job) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[job.ID] = job
	f.statusLog = append(f.statusLog, job.Status)
	return nil
}

func (f *fakeJobs) Get(_ context.Context, jobID string) (*models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, nil
	}
	copied := job
	return &copied, nil
}

func (f *fakeJobs) TryMarkArchiving(_ context.Context, jobID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimed[jobID] {
		return false, nil
	}
	f.claimed[jobID] = true
	return true, nil
}

type enqueuedTask struct {
	id      string
	name    string
	payload json.RawMessage
}

type fakeBroker struct {
	mu       sync.Mutex
	nextID   int
	enqueued []enqueuedTask
	ready    map[string]bool
	outcomes map[string]queue.Outcome
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{
		ready:    make(map[string]bool),
		outcomes: make(map[string]queue.Outcome),
	}
}

func (f *fakeBroker) Enqueue(_ context.Context, name string, payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("task-%d", f.nextID)
	f.enqueued = append(f.enqueued, enqueuedTask{id: id, name: name, payload: raw})
	return id, nil
}

func (f *fakeBroker) IsReady(_ context.Context, taskID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready[taskID], nil
}

func (f *fakeBroker) Outcome(_ context.Context, taskID string) (queue.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if outcome, ok := f.outcomes[taskID]; ok {
		return outcome, nil
	}
	return queue.Outcome{IsErr: true}, nil
}

func (f *fakeBroker) settle(taskID, objectKey string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ready[taskID] = true
	if objectKey == "" {
		f.outcomes[taskID] = queue.Outcome{IsErr: true}
		return
	}
	raw, _ := json.Marshal(objectKey)
	f.outcomes[taskID] = queue.Outcome{Value: raw}
}

func (f *fakeBroker) byName(name string) []enqueuedTask {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []enqueuedTask
	for _, e := range f.enqueued {
		if e.name == name {
			out = append(out, e)
		}
	}
	return out
}

type fakeCatalog struct {
	pages   []catalog.Page
	pageErr error
	seq     catalog.Sequence
	author  catalog.Author
}

func (f *fakeCatalog) BooksPage(_ context.Context, _ models.EntityKind, _ int, _ []string, page int) (catalog.Page, error) {
	if f.pageErr != nil {
		return catalog.Page{}, f.pageErr
	}
	if page < 1 || page > len(f.pages) {
		return catalog.Page{Pages: len(f.pages)}, nil
	}
	p := f.pages[page-1]
	p.Page = page
	p.Pages = len(f.pages)
	return p, nil
}

func (f *fakeCatalog) Sequence(_ context.Context, _ int) (catalog.Sequence, error) {
	return f.seq, nil
}

func (f *fakeCatalog) Author(_ context.Context, _ int) (catalog.Author, error) {
	return f.author, nil
}

type fetchedFile struct {
	name string
	data []byte
}

type fakeFetcher struct {
	files    map[int]fetchedFile
	fetchErr error
}

func (f *fakeFetcher) Fetch(_ context.Context, bookID int, _ string) (*spool.Buffer, string, bool, error) {
	if f.fetchErr != nil {
		return nil, "", false, f.fetchErr
	}
	file, ok := f.files[bookID]
	if !ok {
		return nil, "", false, nil
	}
	buf := spool.New(1 << 20)
	if _, err := buf.Write(file.data); err != nil {
		return nil, "", false, err
	}
	if err := buf.Rewind(); err != nil {
		return nil, "", false, err
	}
	return buf, file.name, true, nil
}

// fakeBlobs keeps objects in memory and serves presigned links from an
// httptest server so archive assembly exercises the real streaming path.
type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	srv     *httptest.Server
}

func newFakeBlobs(t *testing.T) *fakeBlobs {
	t.Helper()
	f := &fakeBlobs{objects: make(map[string][]byte)}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		data, ok := f.objects[r.URL.Path[1:]]
		f.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeBlobs) Put(_ context.Context, key string, body io.Reader, _ int64) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeBlobs) PresignGet(_ context.Context, key string) (string, error) {
	return f.srv.URL + "/" + key, nil
}

func (f *fakeBlobs) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeBlobs) get(key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	return data, ok
}
