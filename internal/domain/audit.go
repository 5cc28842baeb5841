package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type AuditStatus string

const (
	AuditStatusYetToStart     AuditStatus = "Yet to Start"
	AuditStatusWorkInProgress AuditStatus = "Work In Progress"
	AuditStatusUnderReview    AuditStatus = "Under review"
	AuditStatusCompleted      AuditStatus = "Completed"
)

// ValidTransition checks if an audit state transition is allowed.
// Allowed: Yet to Start->Work In Progress, Work In Progress->Under review,
// Under review->Completed, Under review->Work In Progress (reviewer reject).
func (s AuditStatus) ValidTransition(to AuditStatus) bool {
	switch s {
	case AuditStatusYetToStart:
		return to == AuditStatusWorkInProgress
	case AuditStatusWorkInProgress:
		return to == AuditStatusUnderReview
	case AuditStatusUnderReview:
		return to == AuditStatusCompleted || to == AuditStatusWorkInProgress
	default:
		return false
	}
}

// ValidAuditStatuses is the canonical set of known audit statuses.
var ValidAuditStatuses = []AuditStatus{ //nolint:gochecknoglobals // canonical enum list
	AuditStatusYetToStart,
	AuditStatusWorkInProgress,
	AuditStatusUnderReview,
	AuditStatusCompleted,
}

type Audit struct {
	ID             uuid.UUID
	Title          string
	Scope          string
	Objective      string
	BusinessUnit   string
	FrameworkID    uuid.UUID
	PolicyID       *uuid.UUID // nullable, narrows the audit to one policy
	SubPolicyID    *uuid.UUID // nullable, narrows further
	AssigneeID     uuid.UUID
	AuditorID      uuid.UUID
	ReviewerID     *uuid.UUID // nullable until a reviewer is assigned
	Status         AuditStatus
	AuditType      string // "I" internal, "E" external
	DueDate        *time.Time
	AssignedDate   time.Time
	CompletionDate *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

var ErrInvalidTransition = errors.New("audit: invalid state transition")

type AuditRepository interface {
	Create(ctx context.Context, a *Audit) error
	GetByID(ctx context.Context, id uuid.UUID) (*Audit, error)
	ListByAuditor(ctx context.Context, auditorID uuid.UUID) ([]*Audit, error)
	ListByReviewer(ctx context.Context, reviewerID uuid.UUID) ([]*Audit, error)
	List(ctx context.Context) ([]*Audit, error)
	Update(ctx context.Context, a *Audit) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status AuditStatus) error
}
