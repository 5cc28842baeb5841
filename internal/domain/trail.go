package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type TrailEntry struct {
	ID         uuid.UUID
	ActorID    uuid.UUID
	Action     string // "audit.create", "version.save", "review.decide", etc.
	Resource   string // "audit", "version", "finding", "framework", etc.
	ResourceID uuid.UUID
	Details    map[string]any
	CreatedAt  time.Time
}

type TrailRepository interface {
	Record(ctx context.Context, entry *TrailEntry) error
	ListByResource(ctx context.Context, resource string, resourceID uuid.UUID) ([]*TrailEntry, error)
	ListRecent(ctx context.Context, limit, offset int) ([]*TrailEntry, error)
}
