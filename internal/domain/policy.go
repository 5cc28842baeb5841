package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Policy struct {
	ID          uuid.UUID
	FrameworkID uuid.UUID
	Name        string
	Department  string
	Scope       string
	Objective   string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type SubPolicy struct {
	ID          uuid.UUID
	PolicyID    uuid.UUID
	Name        string
	Control     string
	Description string
	Permanent   bool // false = temporary control
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type PolicyRepository interface {
	Create(ctx context.Context, p *Policy) error
	GetByID(ctx context.Context, id uuid.UUID) (*Policy, error)
	ListByFramework(ctx context.Context, frameworkID uuid.UUID) ([]*Policy, error)
	Update(ctx context.Context, p *Policy) error
}

type SubPolicyRepository interface {
	Create(ctx context.Context, sp *SubPolicy) error
	GetByID(ctx context.Context, id uuid.UUID) (*SubPolicy, error)
	ListByPolicy(ctx context.Context, policyID uuid.UUID) ([]*SubPolicy, error)
	Update(ctx context.Context, sp *SubPolicy) error
}
