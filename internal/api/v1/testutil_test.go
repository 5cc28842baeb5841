package v1_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/opengrc/attest/internal/domain"
	"github.com/opengrc/attest/internal/server/middleware"
	"github.com/opengrc/attest/internal/snapshot"
	redisstore "github.com/opengrc/attest/internal/store/redis"
)

// ---------------------------------------------------------------------------
// Context helpers that inject user/role into context for DoCtx.
// ---------------------------------------------------------------------------

func userCtx(userID uuid.UUID) context.Context {
	ctx := context.Background()
	ctx = context.WithValue(ctx, middleware.ContextKeyUserID, userID)
	return ctx
}

func auditorCtx(userID uuid.UUID) context.Context {
	ctx := userCtx(userID)
	ctx = context.WithValue(ctx, middleware.ContextKeyUserRole, "auditor")
	return ctx
}

// parseErrorBody decodes the RFC 9457 problem detail from the response body.
func parseErrorBody(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

// ---------------------------------------------------------------------------
// Mock DataStore
// ---------------------------------------------------------------------------

type mockDataStore struct {
	users       domain.UserRepository
	frameworks  domain.FrameworkRepository
	policies    domain.PolicyRepository
	subPolicies domain.SubPolicyRepository
	compliances domain.ComplianceRepository
	audits      domain.AuditRepository
	findings    domain.FindingRepository
	versions    domain.VersionRepository
	trail       domain.TrailRepository
	dashboard   domain.DashboardRepository
}

func (m *mockDataStore) Users() domain.UserRepository             { return m.users }
func (m *mockDataStore) Frameworks() domain.FrameworkRepository   { return m.frameworks }
func (m *mockDataStore) Policies() domain.PolicyRepository        { return m.policies }
func (m *mockDataStore) SubPolicies() domain.SubPolicyRepository  { return m.subPolicies }
func (m *mockDataStore) Compliances() domain.ComplianceRepository { return m.compliances }
func (m *mockDataStore) Audits() domain.AuditRepository           { return m.audits }
func (m *mockDataStore) Findings() domain.FindingRepository       { return m.findings }
func (m *mockDataStore) Versions() domain.VersionRepository       { return m.versions }
func (m *mockDataStore) Trail() domain.TrailRepository            { return m.trail }
func (m *mockDataStore) Dashboard() domain.DashboardRepository    { return m.dashboard }

// ---------------------------------------------------------------------------
// Mock UserRepository
// ---------------------------------------------------------------------------

type mockUserRepo struct {
	createFunc     func(ctx context.Context, u *domain.User) error
	getByIDFunc    func(ctx context.Context, id uuid.UUID) (*domain.User, error)
	getByEmailFunc func(ctx context.Context, email string) (*domain.User, error)
	updateFunc     func(ctx context.Context, u *domain.User) error
	listFunc       func(ctx context.Context) ([]*domain.User, error)
}

func (m *mockUserRepo) Create(ctx context.Context, u *domain.User) error {
	return m.createFunc(ctx, u)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return m.getByEmailFunc(ctx, email)
}

func (m *mockUserRepo) Update(ctx context.Context, u *domain.User) error {
	return m.updateFunc(ctx, u)
}

func (m *mockUserRepo) List(ctx context.Context) ([]*domain.User, error) {
	return m.listFunc(ctx)
}

// ---------------------------------------------------------------------------
// Mock FrameworkRepository
// ---------------------------------------------------------------------------

type mockFrameworkRepo struct {
	createFunc    func(ctx context.Context, f *domain.Framework) error
	getByIDFunc   func(ctx context.Context, id uuid.UUID) (*domain.Framework, error)
	listFunc      func(ctx context.Context, activeOnly bool) ([]*domain.Framework, error)
	updateFunc    func(ctx context.Context, f *domain.Framework) error
	setActiveFunc func(ctx context.Context, id uuid.UUID, active bool) error
}

func (m *mockFrameworkRepo) Create(ctx context.Context, f *domain.Framework) error {
	return m.createFunc(ctx, f)
}

func (m *mockFrameworkRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Framework, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockFrameworkRepo) List(ctx context.Context, activeOnly bool) ([]*domain.Framework, error) {
	return m.listFunc(ctx, activeOnly)
}

func (m *mockFrameworkRepo) Update(ctx context.Context, f *domain.Framework) error {
	return m.updateFunc(ctx, f)
}

func (m *mockFrameworkRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return m.setActiveFunc(ctx, id, active)
}

// ---------------------------------------------------------------------------
// Mock PolicyRepository
// ---------------------------------------------------------------------------

type mockPolicyRepo struct {
	createFunc          func(ctx context.Context, p *domain.Policy) error
	getByIDFunc         func(ctx context.Context, id uuid.UUID) (*domain.Policy, error)
	listByFrameworkFunc func(ctx context.Context, frameworkID uuid.UUID) ([]*domain.Policy, error)
	updateFunc          func(ctx context.Context, p *domain.Policy) error
}

func (m *mockPolicyRepo) Create(ctx context.Context, p *domain.Policy) error {
	return m.createFunc(ctx, p)
}

func (m *mockPolicyRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Policy, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockPolicyRepo) ListByFramework(ctx context.Context, frameworkID uuid.UUID) ([]*domain.Policy, error) {
	return m.listByFrameworkFunc(ctx, frameworkID)
}

func (m *mockPolicyRepo) Update(ctx context.Context, p *domain.Policy) error {
	return m.updateFunc(ctx, p)
}

// ---------------------------------------------------------------------------
// Mock SubPolicyRepository
// ---------------------------------------------------------------------------

type mockSubPolicyRepo struct {
	createFunc       func(ctx context.Context, sp *domain.SubPolicy) error
	getByIDFunc      func(ctx context.Context, id uuid.UUID) (*domain.SubPolicy, error)
	listByPolicyFunc func(ctx context.Context, policyID uuid.UUID) ([]*domain.SubPolicy, error)
	updateFunc       func(ctx context.Context, sp *domain.SubPolicy) error
}

func (m *mockSubPolicyRepo) Create(ctx context.Context, sp *domain.SubPolicy) error {
	return m.createFunc(ctx, sp)
}

func (m *mockSubPolicyRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.SubPolicy, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockSubPolicyRepo) ListByPolicy(ctx context.Context, policyID uuid.UUID) ([]*domain.SubPolicy, error) {
	return m.listByPolicyFunc(ctx, policyID)
}

func (m *mockSubPolicyRepo) Update(ctx context.Context, sp *domain.SubPolicy) error {
	return m.updateFunc(ctx, sp)
}

// ---------------------------------------------------------------------------
// Mock ComplianceRepository
// ---------------------------------------------------------------------------

type mockComplianceRepo struct {
	createFunc          func(ctx context.Context, c *domain.Compliance) error
	getByIDFunc         func(ctx context.Context, id uuid.UUID) (*domain.Compliance, error)
	listBySubPolicyFunc func(ctx context.Context, subPolicyID uuid.UUID) ([]*domain.Compliance, error)
	listByPolicyFunc    func(ctx context.Context, policyID uuid.UUID) ([]*domain.Compliance, error)
	listByFrameworkFunc func(ctx context.Context, frameworkID uuid.UUID) ([]*domain.Compliance, error)
	updateFunc          func(ctx context.Context, c *domain.Compliance) error
}

func (m *mockComplianceRepo) Create(ctx context.Context, c *domain.Compliance) error {
	return m.createFunc(ctx, c)
}

func (m *mockComplianceRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Compliance, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockComplianceRepo) ListBySubPolicy(ctx context.Context, subPolicyID uuid.UUID) ([]*domain.Compliance, error) {
	return m.listBySubPolicyFunc(ctx, subPolicyID)
}

func (m *mockComplianceRepo) ListByPolicy(ctx context.Context, policyID uuid.UUID) ([]*domain.Compliance, error) {
	return m.listByPolicyFunc(ctx, policyID)
}

func (m *mockComplianceRepo) ListByFramework(ctx context.Context, frameworkID uuid.UUID) ([]*domain.Compliance, error) {
	return m.listByFrameworkFunc(ctx, frameworkID)
}

func (m *mockComplianceRepo) Update(ctx context.Context, c *domain.Compliance) error {
	return m.updateFunc(ctx, c)
}

// ---------------------------------------------------------------------------
// Mock AuditRepository
// ---------------------------------------------------------------------------

type mockAuditRepo struct {
	createFunc         func(ctx context.Context, a *domain.Audit) error
	getByIDFunc        func(ctx context.Context, id uuid.UUID) (*domain.Audit, error)
	listByAuditorFunc  func(ctx context.Context, auditorID uuid.UUID) ([]*domain.Audit, error)
	listByReviewerFunc func(ctx context.Context, reviewerID uuid.UUID) ([]*domain.Audit, error)
	listFunc           func(ctx context.Context) ([]*domain.Audit, error)
	updateFunc         func(ctx context.Context, a *domain.Audit) error
	updateStatusFunc   func(ctx context.Context, id uuid.UUID, status domain.AuditStatus) error
}

func (m *mockAuditRepo) Create(ctx context.Context, a *domain.Audit) error {
	return m.createFunc(ctx, a)
}

func (m *mockAuditRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Audit, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockAuditRepo) ListByAuditor(ctx context.Context, auditorID uuid.UUID) ([]*domain.Audit, error) {
	return m.listByAuditorFunc(ctx, auditorID)
}

func (m *mockAuditRepo) ListByReviewer(ctx context.Context, reviewerID uuid.UUID) ([]*domain.Audit, error) {
	return m.listByReviewerFunc(ctx, reviewerID)
}

func (m *mockAuditRepo) List(ctx context.Context) ([]*domain.Audit, error) {
	return m.listFunc(ctx)
}

func (m *mockAuditRepo) Update(ctx context.Context, a *domain.Audit) error {
	return m.updateFunc(ctx, a)
}

func (m *mockAuditRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.AuditStatus) error {
	return m.updateStatusFunc(ctx, id, status)
}

// ---------------------------------------------------------------------------
// Mock FindingRepository
// ---------------------------------------------------------------------------

type mockFindingRepo struct {
	createFunc                  func(ctx context.Context, f *domain.Finding) error
	getByAuditAndComplianceFunc func(ctx context.Context, auditID, complianceID uuid.UUID) (*domain.Finding, error)
	listByAuditFunc             func(ctx context.Context, auditID uuid.UUID) ([]*domain.Finding, error)
	updateFunc                  func(ctx context.Context, f *domain.Finding) error
	updateReviewFunc            func(ctx context.Context, auditID, complianceID uuid.UUID, reviewStatus, reviewComments, acceptReject string) error
}

func (m *mockFindingRepo) Create(ctx context.Context, f *domain.Finding) error {
	return m.createFunc(ctx, f)
}

func (m *mockFindingRepo) GetByAuditAndCompliance(ctx context.Context, auditID, complianceID uuid.UUID) (*domain.Finding, error) {
	return m.getByAuditAndComplianceFunc(ctx, auditID, complianceID)
}

func (m *mockFindingRepo) ListByAudit(ctx context.Context, auditID uuid.UUID) ([]*domain.Finding, error) {
	return m.listByAuditFunc(ctx, auditID)
}

func (m *mockFindingRepo) Update(ctx context.Context, f *domain.Finding) error {
	return m.updateFunc(ctx, f)
}

func (m *mockFindingRepo) UpdateReview(ctx context.Context, auditID, complianceID uuid.UUID, reviewStatus, reviewComments, acceptReject string) error {
	return m.updateReviewFunc(ctx, auditID, complianceID, reviewStatus, reviewComments, acceptReject)
}

// ---------------------------------------------------------------------------
// Mock VersionRepository
// ---------------------------------------------------------------------------

type mockVersionRepo struct {
	createFunc         func(ctx context.Context, v *domain.AuditVersion) error
	latestFunc         func(ctx context.Context, auditID uuid.UUID) (*domain.AuditVersion, error)
	latestByPrefixFunc func(ctx context.Context, auditID uuid.UUID, prefix string) (*domain.AuditVersion, error)
	listLabelsFunc     func(ctx context.Context, auditID uuid.UUID, prefix string) ([]string, error)
	listByAuditFunc    func(ctx context.Context, auditID uuid.UUID, includeInactive bool) ([]*domain.AuditVersion, error)
	deactivateFunc     func(ctx context.Context, auditID uuid.UUID, label string) error
}

func (m *mockVersionRepo) Create(ctx context.Context, v *domain.AuditVersion) error {
	return m.createFunc(ctx, v)
}

func (m *mockVersionRepo) Latest(ctx context.Context, auditID uuid.UUID) (*domain.AuditVersion, error) {
	return m.latestFunc(ctx, auditID)
}

func (m *mockVersionRepo) LatestByPrefix(ctx context.Context, auditID uuid.UUID, prefix string) (*domain.AuditVersion, error) {
	return m.latestByPrefixFunc(ctx, auditID, prefix)
}

func (m *mockVersionRepo) ListLabels(ctx context.Context, auditID uuid.UUID, prefix string) ([]string, error) {
	return m.listLabelsFunc(ctx, auditID, prefix)
}

func (m *mockVersionRepo) ListByAudit(ctx context.Context, auditID uuid.UUID, includeInactive bool) ([]*domain.AuditVersion, error) {
	return m.listByAuditFunc(ctx, auditID, includeInactive)
}

func (m *mockVersionRepo) Deactivate(ctx context.Context, auditID uuid.UUID, label string) error {
	return m.deactivateFunc(ctx, auditID, label)
}

// ---------------------------------------------------------------------------
// Mock TrailRepository
// ---------------------------------------------------------------------------

type mockTrailRepo struct {
	recordFunc         func(ctx context.Context, entry *domain.TrailEntry) error
	listByResourceFunc func(ctx context.Context, resource string, resourceID uuid.UUID) ([]*domain.TrailEntry, error)
	listRecentFunc     func(ctx context.Context, limit, offset int) ([]*domain.TrailEntry, error)
}

func (m *mockTrailRepo) Record(ctx context.Context, entry *domain.TrailEntry) error {
	if m.recordFunc == nil {
		return nil
	}
	return m.recordFunc(ctx, entry)
}

func (m *mockTrailRepo) ListByResource(ctx context.Context, resource string, resourceID uuid.UUID) ([]*domain.TrailEntry, error) {
	return m.listByResourceFunc(ctx, resource, resourceID)
}

func (m *mockTrailRepo) ListRecent(ctx context.Context, limit, offset int) ([]*domain.TrailEntry, error) {
	return m.listRecentFunc(ctx, limit, offset)
}

// ---------------------------------------------------------------------------
// Mock DashboardRepository
// ---------------------------------------------------------------------------

type mockDashboardRepo struct {
	kpisFunc func(ctx context.Context) (*domain.KPISummary, error)
}

func (m *mockDashboardRepo) KPIs(ctx context.Context) (*domain.KPISummary, error) {
	return m.kpisFunc(ctx)
}

// ---------------------------------------------------------------------------
// Mock AuthService
// ---------------------------------------------------------------------------

type mockAuthService struct {
	registerFunc func(ctx context.Context, email, password, name string, role domain.UserRole) (*domain.User, error)
	loginFunc    func(ctx context.Context, email, password string) (string, string, error)
	refreshFunc  func(ctx context.Context, refreshToken string) (string, error)
}

func (m *mockAuthService) Register(ctx context.Context, email, password, name string, role domain.UserRole) (*domain.User, error) {
	return m.registerFunc(ctx, email, password, name, role)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (string, string, error) {
	return m.loginFunc(ctx, email, password)
}

func (m *mockAuthService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	return m.refreshFunc(ctx, refreshToken)
}

// ---------------------------------------------------------------------------
// Mock VersionEngine
// ---------------------------------------------------------------------------

type mockVersionEngine struct {
	saveVersionFunc       func(ctx context.Context, auditID uuid.UUID, edits map[string]snapshot.ItemEdit, fields snapshot.AuditFields, userID uuid.UUID) (*snapshot.SaveResult, error)
	saveReviewVersionFunc func(ctx context.Context, auditID uuid.UUID, reviews map[string]snapshot.ReviewEdit, overallReviewComments, decision string, userID uuid.UUID) (string, error)
	getTaskViewFunc       func(ctx context.Context, auditID uuid.UUID) (*snapshot.TaskView, error)
	createInitialFunc     func(ctx context.Context, auditID, authorID uuid.UUID) (string, error)
	ensureIncludesFunc    func(ctx context.Context, auditID, userID uuid.UUID) (string, error)
}

func (m *mockVersionEngine) SaveVersion(ctx context.Context, auditID uuid.UUID, edits map[string]snapshot.ItemEdit, fields snapshot.AuditFields, userID uuid.UUID) (*snapshot.SaveResult, error) {
	return m.saveVersionFunc(ctx, auditID, edits, fields, userID)
}

func (m *mockVersionEngine) SaveReviewVersion(ctx context.Context, auditID uuid.UUID, reviews map[string]snapshot.ReviewEdit, overallReviewComments, decision string, userID uuid.UUID) (string, error) {
	return m.saveReviewVersionFunc(ctx, auditID, reviews, overallReviewComments, decision, userID)
}

func (m *mockVersionEngine) GetTaskView(ctx context.Context, auditID uuid.UUID) (*snapshot.TaskView, error) {
	return m.getTaskViewFunc(ctx, auditID)
}

func (m *mockVersionEngine) CreateInitialVersionFromFindings(ctx context.Context, auditID, authorID uuid.UUID) (string, error) {
	return m.createInitialFunc(ctx, auditID, authorID)
}

func (m *mockVersionEngine) EnsureSnapshotIncludes(ctx context.Context, auditID, userID uuid.UUID) (string, error) {
	return m.ensureIncludesFunc(ctx, auditID, userID)
}

// ---------------------------------------------------------------------------
// Mock AuditNotifier
// ---------------------------------------------------------------------------

type mockNotifier struct {
	submitted []uuid.UUID
	decided   []bool
}

func (m *mockNotifier) AuditSubmitted(_ context.Context, audit *domain.Audit) {
	m.submitted = append(m.submitted, audit.ID)
}

func (m *mockNotifier) ReviewDecided(_ context.Context, _ *domain.Audit, approved bool) {
	m.decided = append(m.decided, approved)
}

// ---------------------------------------------------------------------------
// Mock Extractor
// ---------------------------------------------------------------------------

type mockExtractor struct {
	startFunc    func(ctx context.Context, document string, sections []string) (uuid.UUID, error)
	progressFunc func(ctx context.Context, jobID uuid.UUID) (*redisstore.Progress, error)
}

func (m *mockExtractor) Start(ctx context.Context, document string, sections []string) (uuid.UUID, error) {
	return m.startFunc(ctx, document, sections)
}

func (m *mockExtractor) Progress(ctx context.Context, jobID uuid.UUID) (*redisstore.Progress, error) {
	return m.progressFunc(ctx, jobID)
}
