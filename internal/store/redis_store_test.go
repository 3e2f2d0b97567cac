package store

import (
	"context"
	"reflect"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/flibusta-apps/batch-downloader/internal/models"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(client, time.Hour), mr
}

func TestSaveGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	st, mr := newTestStore(t)

	job := models.Job{
		ID:              "job-1",
		EntityID:        42,
		EntityKind:      models.KindSequence,
		Subtasks:        []string{"t1", "t2", "t3"},
		Status:          models.StatusComplete,
		ResultObjectKey: "42_test.zip",
		ResultLink:      "https://blobs/42_test.zip?sig=abc",
	}
	if err := st.Save(ctx, job); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := st.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatalf("expected job, got nil")
	}
	if !reflect.DeepEqual(*got, job) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", *got, job)
	}

	ttl := mr.TTL("at_job-1")
	if ttl <= 0 || ttl > time.Hour {
		t.Fatalf("expected expiry on job key, got %s", ttl)
	}
}

func TestGetMissingJob(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore(t)

	got, err := st.Get(ctx, "nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing job, got %+v", got)
	}
}

func TestGetExpiredJob(t *testing.T) {
	ctx := context.Background()
	st, mr := newTestStore(t)

	if err := st.Save(ctx, models.Job{ID: "job-1", Subtasks: []string{"t1"}, Status: models.StatusInProgress}); err != nil {
		t.Fatalf("save: %v", err)
	}
	mr.FastForward(2 * time.Hour)

	got, err := st.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected expired job to read as missing")
	}
}

func TestTryMarkArchivingOnlyOnce(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore(t)

	ok, err := st.TryMarkArchiving(ctx, "job-1")
	if err != nil || !ok {
		t.Fatalf("first claim should win: ok=%v err=%v", ok, err)
	}
	ok, err = st.TryMarkArchiving(ctx, "job-1")
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if ok {
		t.Fatalf("second claim must lose")
	}
}

func TestRequestDedupMapping(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore(t)

	jobID, err := st.JobForRequest(ctx, "digest-1")
	if err != nil || jobID != "" {
		t.Fatalf("expected no mapping, got %q err=%v", jobID, err)
	}

	if err := st.RememberRequest(ctx, "digest-1", "job-1"); err != nil {
		t.Fatalf("remember: %v", err)
	}
	jobID, err = st.JobForRequest(ctx, "digest-1")
	if err != nil || jobID != "job-1" {
		t.Fatalf("expected job-1, got %q err=%v", jobID, err)
	}
}
