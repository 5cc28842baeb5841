package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Check result values for a finding.
const (
	CheckNonCompliant  = "0"
	CheckCompliant     = "1"
	CheckNotApplicable = "2"
)

// Finding is one audit's working record for one compliance item. It is the
// durable fallback representation: kept in sync enough to reconstruct a
// snapshot payload if none exists.
type Finding struct {
	ID                  uuid.UUID
	AuditID             uuid.UUID
	ComplianceID        uuid.UUID
	Check               string // "0" non-compliant, "1" compliant, "2" closed
	Evidence            string
	Comments            string
	HowToVerify         string
	Impact              string
	Recommendation      string
	DetailsOfFinding    string
	MajorMinor          string // "0" minor, "1" major, "2" not applicable
	SeverityRating      string
	UnderlyingCause     string
	SuggestedActionPlan string
	ResponsibleForPlan  string
	MitigationDate      string
	ReAudit             bool
	ReAuditDate         string
	SelectedRisks       []string
	SelectedMitigations []string
	ReviewStatus        string
	ReviewComments      string
	AcceptReject        string // "0" pending, "1" accept, "2" reject
	AssignedDate        time.Time
	ReviewDate          *time.Time
	UpdatedAt           time.Time
}

type FindingRepository interface {
	Create(ctx context.Context, f *Finding) error
	GetByAuditAndCompliance(ctx context.Context, auditID, complianceID uuid.UUID) (*Finding, error)
	ListByAudit(ctx context.Context, auditID uuid.UUID) ([]*Finding, error)
	Update(ctx context.Context, f *Finding) error
	UpdateReview(ctx context.Context, auditID, complianceID uuid.UUID, reviewStatus, reviewComments, acceptReject string) error
}
