package v1

import (
	"context"

	"github.com/google/uuid"

	"github.com/opengrc/attest/internal/domain"
	"github.com/opengrc/attest/internal/snapshot"
	redisstore "github.com/opengrc/attest/internal/store/redis"
)

// DataStore abstracts the repository accessor pattern for handler testing.
// *postgres.Store satisfies this interface.
type DataStore interface {
	Users() domain.UserRepository
	Frameworks() domain.FrameworkRepository
	Policies() domain.PolicyRepository
	SubPolicies() domain.SubPolicyRepository
	Compliances() domain.ComplianceRepository
	Audits() domain.AuditRepository
	Findings() domain.FindingRepository
	Versions() domain.VersionRepository
	Trail() domain.TrailRepository
	Dashboard() domain.DashboardRepository
}

// AuthService abstracts authentication operations for handler testing.
// *auth.Service satisfies this interface.
type AuthService interface {
	Register(ctx context.Context, email, password, name string, role domain.UserRole) (*domain.User, error)
	Login(ctx context.Context, email, password string) (accessToken, refreshToken string, err error)
	RefreshToken(ctx context.Context, refreshToken string) (string, error)
}

// VersionEngine abstracts the snapshot service for handler testing.
// *snapshot.Service satisfies this interface.
type VersionEngine interface {
	SaveVersion(ctx context.Context, auditID uuid.UUID, edits map[string]snapshot.ItemEdit, fields snapshot.AuditFields, userID uuid.UUID) (*snapshot.SaveResult, error)
	SaveReviewVersion(ctx context.Context, auditID uuid.UUID, reviews map[string]snapshot.ReviewEdit, overallReviewComments, decision string, userID uuid.UUID) (string, error)
	GetTaskView(ctx context.Context, auditID uuid.UUID) (*snapshot.TaskView, error)
	CreateInitialVersionFromFindings(ctx context.Context, auditID, authorID uuid.UUID) (string, error)
	EnsureSnapshotIncludes(ctx context.Context, auditID, userID uuid.UUID) (string, error)
}

// AuditNotifier abstracts workflow notifications for handler testing.
// *notify.Notifier satisfies this interface. Notification delivery is
// best-effort and never fails the request.
type AuditNotifier interface {
	AuditSubmitted(ctx context.Context, audit *domain.Audit)
	ReviewDecided(ctx context.Context, audit *domain.Audit, approved bool)
}

// Extractor abstracts the document extraction service for handler testing.
// *extract.Service satisfies this interface.
type Extractor interface {
	Start(ctx context.Context, document string, sections []string) (uuid.UUID, error)
	Progress(ctx context.Context, jobID uuid.UUID) (*redisstore.Progress, error)
}
