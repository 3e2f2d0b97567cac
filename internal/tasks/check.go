package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// HandleCheck asks whether every subtask of the job has settled. Each
// completing download submits one check, so a not-all-ready observation can
// simply return and rely on a later trigger. When all subtasks are ready
// the archive task is submitted at most once: concurrent checks race on an
// atomic claim and only the winner enqueues assembly.
func (e *Executor) HandleCheck(ctx context.Context, payload json.RawMessage) (any, error) {
	var p CheckPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("decode check payload: %w", err)
	}

	job, err := e.jobs.Get(ctx, p.JobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		// Expired, or creation never persisted it. Nothing to do.
		return nil, nil
	}

	// Fixed delay to bound polling pressure on the result backend.
	if err := wait(ctx, e.cfg.CheckDelay); err != nil {
		return nil, err
	}

	for _, taskID := range job.Subtasks {
		ready, err := e.broker.IsReady(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if !ready {
			return nil, nil
		}
	}

	claimed, err := e.jobs.TryMarkArchiving(ctx, p.JobID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, nil
	}

	if _, err := e.broker.Enqueue(ctx, TaskArchive, ArchivePayload{JobID: p.JobID}); err != nil {
		return nil, fmt.Errorf("enqueue archive for job %s: %w", p.JobID, err)
	}
	return nil, nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
