package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/flibusta-apps/batch-downloader/internal/config"
	"github.com/flibusta-apps/batch-downloader/internal/queue"
	"github.com/flibusta-apps/batch-downloader/internal/telemetry"
)

// Handler executes one task and returns the value to store as its outcome.
type Handler func(ctx context.Context, payload json.RawMessage) (any, error)

// Processor drives the worker execution loop: pop a task, dispatch by name,
// store the outcome. Tasks are not retried; a failed task settles as a
// failed outcome and downstream steps decide what that means.
type Processor struct {
	cfg      config.Config
	queue    *queue.RedisQueue
	handlers map[string]Handler
}

func NewProcessor(cfg config.Config, q *queue.RedisQueue) *Processor {
	return &Processor{
		cfg:      cfg,
		queue:    q,
		handlers: make(map[string]Handler),
	}
}

// RegisterHandler binds a handler to a task name.
func (p *Processor) RegisterHandler(name string, handler Handler) {
	if name == "" || handler == nil {
		return
	}
	p.handlers[name] = handler
}

// Run starts the main worker loop until context cancellation.
func (p *Processor) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if depth, err := p.queue.Depth(ctx); err == nil {
			telemetry.QueueDepthGauge.Set(float64(depth))
		}

		task, err := p.queue.Pop(ctx)
		if err != nil {
			log.Printf("pop task: %v", err)
			sleep(ctx, p.cfg.WorkerPollInterval)
			continue
		}
		if task == nil {
			sleep(ctx, p.cfg.WorkerPollInterval)
			continue
		}

		p.runTask(ctx, task)
	}
}

// RunOnce pops and executes a single task, reporting whether one was found.
// It exists for tests and drain tooling.
func (p *Processor) RunOnce(ctx context.Context) (bool, error) {
	task, err := p.queue.Pop(ctx)
	if err != nil {
		return false, err
	}
	if task == nil {
		return false, nil
	}
	p.runTask(ctx, task)
	return true, nil
}

func (p *Processor) runTask(ctx context.Context, task *queue.Task) {
	value, err := p.execute(ctx, task)
	if err != nil {
		log.Printf("task %s %s failed: %v", task.Name, task.ID, err)
	}
	if storeErr := p.queue.StoreOutcome(ctx, task.ID, value, err); storeErr != nil {
		log.Printf("store outcome for %s %s: %v", task.Name, task.ID, storeErr)
	}
}

func (p *Processor) execute(ctx context.Context, task *queue.Task) (any, error) {
	handler, ok := p.handlers[task.Name]
	if !ok {
		return nil, fmt.Errorf("no handler registered for task %q", task.Name)
	}
	return handler(ctx, task.Payload)
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
