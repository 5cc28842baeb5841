package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/opengrc/attest/internal/domain"
)

// ProgressStore keeps document-extraction job progress in Redis under a TTL.
// Progress is transient: entries expire on their own instead of accumulating
// in process memory, and survive a process restart while a job is running.
type ProgressStore struct {
	client *redis.Client
	ttl    time.Duration
}

// Progress is one extraction job's current state.
type Progress struct {
	JobID     uuid.UUID `json:"job_id"`
	State     string    `json:"state"` // "queued", "running", "done", "failed"
	Percent   int       `json:"percent"`
	Message   string    `json:"message,omitempty"`
	Result    []byte    `json:"result,omitempty"` // JSON extraction result when done
	UpdatedAt time.Time `json:"updated_at"`
}

// Job states.
const (
	StateQueued  = "queued"
	StateRunning = "running"
	StateDone    = "done"
	StateFailed  = "failed"
)

func New(ctx context.Context, addr, password string, db int, ttl time.Duration) (*ProgressStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis.New: ping: %w", err)
	}

	return &ProgressStore{client: client, ttl: ttl}, nil
}

func (s *ProgressStore) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("redis.ProgressStore.Close: %w", err)
	}
	return nil
}

// Set writes a job's progress, refreshing the TTL.
func (s *ProgressStore) Set(ctx context.Context, p *Progress) error {
	p.UpdatedAt = time.Now()

	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("redis.ProgressStore.Set: marshal: %w", err)
	}

	if err := s.client.Set(ctx, ProgressKey(p.JobID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis.ProgressStore.Set: %w", err)
	}

	return nil
}

// Get returns a job's progress. Expired or unknown jobs surface as
// domain.ErrNotFound.
func (s *ProgressStore) Get(ctx context.Context, jobID uuid.UUID) (*Progress, error) {
	raw, err := s.client.Get(ctx, ProgressKey(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis.ProgressStore.Get: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("redis.ProgressStore.Get: %w", err)
	}

	var p Progress
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("redis.ProgressStore.Get: unmarshal: %w", err)
	}

	return &p, nil
}

// ProgressKey returns the Redis key for an extraction job.
func ProgressKey(jobID uuid.UUID) string {
	return "extract:progress:" + jobID.String()
}
