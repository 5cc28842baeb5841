package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Compliance struct {
	ID              uuid.UUID
	SubPolicyID     uuid.UUID
	Description     string
	Criticality     string // "0" minor, "1" major, "2" not applicable
	IsRisk          bool
	PossibleDamage  string
	MitigationSteps string
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type ComplianceRepository interface {
	Create(ctx context.Context, c *Compliance) error
	GetByID(ctx context.Context, id uuid.UUID) (*Compliance, error)
	ListBySubPolicy(ctx context.Context, subPolicyID uuid.UUID) ([]*Compliance, error)
	ListByPolicy(ctx context.Context, policyID uuid.UUID) ([]*Compliance, error)
	ListByFramework(ctx context.Context, frameworkID uuid.UUID) ([]*Compliance, error)
	Update(ctx context.Context, c *Compliance) error
}
