package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Framework struct {
	ID            uuid.UUID
	Name          string
	Category      string
	Description   string
	EffectiveDate *time.Time // nullable
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type FrameworkRepository interface {
	Create(ctx context.Context, f *Framework) error
	GetByID(ctx context.Context, id uuid.UUID) (*Framework, error)
	List(ctx context.Context, activeOnly bool) ([]*Framework, error)
	Update(ctx context.Context, f *Framework) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}
