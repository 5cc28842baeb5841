package snapshot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opengrc/attest/internal/domain"
)

// ---------------------------------------------------------------------------
// In-memory fakes for the engine's repository dependencies
// ---------------------------------------------------------------------------

type fakeAuditRepo struct {
	mu     sync.Mutex
	audits map[uuid.UUID]*domain.Audit
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{audits: map[uuid.UUID]*domain.Audit{}}
}

func (r *fakeAuditRepo) Create(_ context.Context, a *domain.Audit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audits[a.ID] = a
	return nil
}

func (r *fakeAuditRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Audit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.audits[id]
	if !ok {
		return nil, fmt.Errorf("fakeAuditRepo.GetByID: %w", domain.ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAuditRepo) ListByAuditor(_ context.Context, _ uuid.UUID) ([]*domain.Audit, error) {
	return nil, nil
}

func (r *fakeAuditRepo) ListByReviewer(_ context.Context, _ uuid.UUID) ([]*domain.Audit, error) {
	return nil, nil
}

func (r *fakeAuditRepo) List(_ context.Context) ([]*domain.Audit, error) { return nil, nil }

func (r *fakeAuditRepo) Update(_ context.Context, a *domain.Audit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audits[a.ID] = a
	return nil
}

func (r *fakeAuditRepo) UpdateStatus(_ context.Context, id uuid.UUID, status domain.AuditStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.audits[id]
	if !ok {
		return fmt.Errorf("fakeAuditRepo.UpdateStatus: %w", domain.ErrNotFound)
	}
	a.Status = status
	return nil
}

type findingKey struct {
	auditID      uuid.UUID
	complianceID uuid.UUID
}

type fakeFindingRepo struct {
	mu   sync.Mutex
	rows map[findingKey]*domain.Finding
}

func newFakeFindingRepo() *fakeFindingRepo {
	return &fakeFindingRepo{rows: map[findingKey]*domain.Finding{}}
}

func (r *fakeFindingRepo) Create(_ context.Context, f *domain.Finding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[findingKey{f.AuditID, f.ComplianceID}] = f
	return nil
}

func (r *fakeFindingRepo) GetByAuditAndCompliance(_ context.Context, auditID, complianceID uuid.UUID) (*domain.Finding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.rows[findingKey{auditID, complianceID}]
	if !ok {
		return nil, fmt.Errorf("fakeFindingRepo.GetByAuditAndCompliance: %w", domain.ErrNotFound)
	}
	cp := *f
	return &cp, nil
}

func (r *fakeFindingRepo) ListByAudit(_ context.Context, auditID uuid.UUID) ([]*domain.Finding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Finding
	for key, f := range r.rows {
		if key.auditID == auditID {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeFindingRepo) Update(_ context.Context, f *domain.Finding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := findingKey{f.AuditID, f.ComplianceID}
	if _, ok := r.rows[key]; !ok {
		return fmt.Errorf("fakeFindingRepo.Update: %w", domain.ErrNotFound)
	}
	cp := *f
	r.rows[key] = &cp
	return nil
}

func (r *fakeFindingRepo) UpdateReview(_ context.Context, auditID, complianceID uuid.UUID, reviewStatus, reviewComments, acceptReject string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.rows[findingKey{auditID, complianceID}]
	if !ok {
		return fmt.Errorf("fakeFindingRepo.UpdateReview: %w", domain.ErrNotFound)
	}
	f.ReviewStatus = reviewStatus
	f.ReviewComments = reviewComments
	f.AcceptReject = acceptReject
	return nil
}

type fakeComplianceRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*domain.Compliance
}

func newFakeComplianceRepo() *fakeComplianceRepo {
	return &fakeComplianceRepo{items: map[uuid.UUID]*domain.Compliance{}}
}

func (r *fakeComplianceRepo) Create(_ context.Context, c *domain.Compliance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[c.ID] = c
	return nil
}

func (r *fakeComplianceRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Compliance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("fakeComplianceRepo.GetByID: %w", domain.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (r *fakeComplianceRepo) ListBySubPolicy(_ context.Context, _ uuid.UUID) ([]*domain.Compliance, error) {
	return nil, nil
}

func (r *fakeComplianceRepo) ListByPolicy(_ context.Context, _ uuid.UUID) ([]*domain.Compliance, error) {
	return nil, nil
}

func (r *fakeComplianceRepo) ListByFramework(_ context.Context, _ uuid.UUID) ([]*domain.Compliance, error) {
	return nil, nil
}

func (r *fakeComplianceRepo) Update(_ context.Context, c *domain.Compliance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[c.ID] = c
	return nil
}

type fakeVersionRepo struct {
	mu             sync.Mutex
	rows           []*domain.AuditVersion
	forceConflicts int // next N Create calls fail with ErrConflict
	listLabelsErr  error
}

func newFakeVersionRepo() *fakeVersionRepo {
	return &fakeVersionRepo{}
}

func (r *fakeVersionRepo) Create(_ context.Context, v *domain.AuditVersion) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.forceConflicts > 0 {
		r.forceConflicts--
		return fmt.Errorf("fakeVersionRepo.Create: %w", domain.ErrConflict)
	}
	for _, existing := range r.rows {
		if existing.AuditID == v.AuditID && existing.Label == v.Label {
			return fmt.Errorf("fakeVersionRepo.Create: %w", domain.ErrConflict)
		}
	}

	cp := *v
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *fakeVersionRepo) Latest(_ context.Context, auditID uuid.UUID) (*domain.AuditVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var best *domain.AuditVersion
	for _, v := range r.rows {
		if v.AuditID != auditID || !v.Active {
			continue
		}
		if best == nil || newerAcrossPrefixes(v, best) {
			best = v
		}
	}
	if best == nil {
		return nil, fmt.Errorf("fakeVersionRepo.Latest: %w", domain.ErrNotFound)
	}
	cp := *best
	return &cp, nil
}

func (r *fakeVersionRepo) LatestByPrefix(_ context.Context, auditID uuid.UUID, prefix string) (*domain.AuditVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var best *domain.AuditVersion
	for _, v := range r.rows {
		if v.AuditID != auditID || !v.Active || v.Prefix() != prefix {
			continue
		}
		if best == nil || v.Ordinal() > best.Ordinal() ||
			(v.Ordinal() == best.Ordinal() && v.CreatedAt.After(best.CreatedAt)) {
			best = v
		}
	}
	if best == nil {
		return nil, fmt.Errorf("fakeVersionRepo.LatestByPrefix: %w", domain.ErrNotFound)
	}
	cp := *best
	return &cp, nil
}

func (r *fakeVersionRepo) ListLabels(_ context.Context, auditID uuid.UUID, prefix string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.listLabelsErr != nil {
		return nil, r.listLabelsErr
	}

	var labels []string
	for _, v := range r.rows {
		if v.AuditID == auditID && v.Prefix() == prefix {
			labels = append(labels, v.Label)
		}
	}
	return labels, nil
}

func (r *fakeVersionRepo) ListByAudit(_ context.Context, auditID uuid.UUID, includeInactive bool) ([]*domain.AuditVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.AuditVersion
	for _, v := range r.rows {
		if v.AuditID != auditID {
			continue
		}
		if !v.Active && !includeInactive {
			continue
		}
		cp := *v
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeVersionRepo) Deactivate(_ context.Context, auditID uuid.UUID, label string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, v := range r.rows {
		if v.AuditID == auditID && v.Label == label {
			v.Active = false
			return nil
		}
	}
	return fmt.Errorf("fakeVersionRepo.Deactivate: %w", domain.ErrNotFound)
}

// injectRaw appends a version row without Create's conflict checks, for
// seeding corrupt or hand-built payloads.
func (r *fakeVersionRepo) injectRaw(auditID uuid.UUID, label string, payload []byte, createdAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, &domain.AuditVersion{
		ID:        uuid.New(),
		AuditID:   auditID,
		Label:     label,
		Payload:   payload,
		Active:    true,
		CreatedAt: createdAt,
	})
}

func newerAcrossPrefixes(a, b *domain.AuditVersion) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.Ordinal() > b.Ordinal()
}

// ---------------------------------------------------------------------------
// Test harness
// ---------------------------------------------------------------------------

type harness struct {
	svc         *Service
	audits      *fakeAuditRepo
	findings    *fakeFindingRepo
	compliances *fakeComplianceRepo
	versions    *fakeVersionRepo
}

func newHarness() *harness {
	h := &harness{
		audits:      newFakeAuditRepo(),
		findings:    newFakeFindingRepo(),
		compliances: newFakeComplianceRepo(),
		versions:    newFakeVersionRepo(),
	}
	h.svc = NewService(h.audits, h.findings, h.compliances, h.versions, nil)
	return h
}

// seedAudit creates an audit with n compliance items and one finding row
// each. Returns the audit and the compliance ids in creation order.
func (h *harness) seedAudit(n int) (*domain.Audit, []uuid.UUID) {
	ctx := context.Background()
	now := time.Now()

	audit := &domain.Audit{
		ID:           uuid.New(),
		Title:        "Q3 ISO 27001 audit",
		Scope:        "Access control",
		Objective:    "Verify control adherence",
		BusinessUnit: "Platform",
		FrameworkID:  uuid.New(),
		AssigneeID:   uuid.New(),
		AuditorID:    uuid.New(),
		Status:       domain.AuditStatusWorkInProgress,
		AssignedDate: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_ = h.audits.Create(ctx, audit)

	ids := make([]uuid.UUID, 0, n)
	for i := 0; i < n; i++ {
		c := &domain.Compliance{
			ID:          uuid.New(),
			SubPolicyID: uuid.New(),
			Description: fmt.Sprintf("Control %d must be enforced", i+1),
			Criticality: "1",
			Active:      true,
		}
		_ = h.compliances.Create(ctx, c)
		_ = h.findings.Create(ctx, &domain.Finding{
			ID:           uuid.New(),
			AuditID:      audit.ID,
			ComplianceID: c.ID,
			Check:        domain.CheckNonCompliant,
			MajorMinor:   "1",
			AssignedDate: now,
			UpdatedAt:    now,
		})
		ids = append(ids, c.ID)
	}

	return audit, ids
}
