package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Task is the envelope pushed onto the queue list.
type Task struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

// Outcome is the stored result of a settled task. Results expire after the
// configured TTL; an expired result reads back as a failed outcome.
type Outcome struct {
	IsErr bool            `json:"is_err"`
	Value json.RawMessage `json:"value,omitempty"`
}

// StringValue unmarshals the outcome value as a string. It returns false for
// failed outcomes and for null/absent values.
func (o Outcome) StringValue() (string, bool) {
	if o.IsErr || len(o.Value) == 0 {
		return "", false
	}
	var s *string
	if err := json.Unmarshal(o.Value, &s); err != nil || s == nil || *s == "" {
		return "", false
	}
	return *s, true
}

// RedisQueue is a list-backed task broker with a Redis result backend.
// Workers pop envelopes, execute the named handler, and store an outcome
// under the task id; readiness is an existence check on the result key.
type RedisQueue struct {
	client       *redis.Client
	queueKey     string
	resultPrefix string
	resultTTL    time.Duration
}

// NewRedisQueue builds a broker over an existing Redis client.
func NewRedisQueue(client *redis.Client, resultTTL time.Duration) *RedisQueue {
	if resultTTL == 0 {
		resultTTL = 5 * time.Minute
	}
	return &RedisQueue{
		client:       client,
		queueKey:     "batch:queue",
		resultPrefix: "batch:result:",
		resultTTL:    resultTTL,
	}
}

func (q *RedisQueue) resultKey(taskID string) string {
	return q.resultPrefix + taskID
}

// Enqueue pushes a task and returns its queue-assigned id.
func (q *RedisQueue) Enqueue(ctx context.Context, name string, payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	task := Task{
		ID:      uuid.New().String(),
		Name:    name,
		Payload: raw,
	}
	data, err := json.Marshal(task)
	if err != nil {
		return "", fmt.Errorf("marshal task: %w", err)
	}
	if err := q.client.RPush(ctx, q.queueKey, data).Err(); err != nil {
		return "", fmt.Errorf("push task: %w", err)
	}
	return task.ID, nil
}

// Pop takes the next task off the queue. It returns nil when the queue is
// empty; callers decide how long to wait before trying again.
func (q *RedisQueue) Pop(ctx context.Context) (*Task, error) {
	data, err := q.client.LPop(ctx, q.queueKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pop task: %w", err)
	}
	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("unmarshal task: %w", err)
	}
	return &task, nil
}

// StoreOutcome records a settled task's result. A non-nil taskErr is stored
// as a failed outcome; the error detail itself stays in the worker log.
func (q *RedisQueue) StoreOutcome(ctx context.Context, taskID string, value any, taskErr error) error {
	outcome := Outcome{IsErr: taskErr != nil}
	if taskErr == nil {
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshal outcome value: %w", err)
		}
		outcome.Value = raw
	}
	data, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}
	if err := q.client.Set(ctx, q.resultKey(taskID), data, q.resultTTL).Err(); err != nil {
		return fmt.Errorf("store outcome: %w", err)
	}
	return nil
}

// IsReady reports whether the task has settled.
func (q *RedisQueue) IsReady(ctx context.Context, taskID string) (bool, error) {
	n, err := q.client.Exists(ctx, q.resultKey(taskID)).Result()
	if err != nil {
		return false, fmt.Errorf("check result: %w", err)
	}
	return n > 0, nil
}

// Outcome fetches a settled task's result. A missing (expired) result is
// returned as a failed outcome rather than an error.
func (q *RedisQueue) Outcome(ctx context.Context, taskID string) (Outcome, error) {
	data, err := q.client.Get(ctx, q.resultKey(taskID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Outcome{IsErr: true}, nil
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("get outcome: %w", err)
	}
	var outcome Outcome
	if err := json.Unmarshal(data, &outcome); err != nil {
		return Outcome{}, fmt.Errorf("unmarshal outcome: %w", err)
	}
	return outcome, nil
}

// Depth returns the number of queued tasks.
func (q *RedisQueue) Depth(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.queueKey).Result()
}
