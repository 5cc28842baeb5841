// Package snapshot implements the audit version engine: building immutable
// JSON snapshots of an audit's working state, merging reviewer decisions
// across rounds, allocating version labels, and materializing task-detail
// views with a finding-row fallback path.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/opengrc/attest/internal/domain"
	"github.com/opengrc/attest/internal/metrics"
)

// maxLabelRetries bounds the re-allocation loop when two writers race for
// the same version label. The unique index on (audit_id, label) surfaces
// the loser as a conflict.
const maxLabelRetries = 3

// ReviewDecision values accepted by SaveReviewVersion.
const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
	DecisionNone    = "" // save review progress without closing the round
)

var ErrUnknownDecision = errors.New("snapshot: unknown review decision")

// Service composes the version engine: label allocation, payload building,
// cross-round merge, persistence and view materialization.
type Service struct {
	audits      domain.AuditRepository
	findings    domain.FindingRepository
	compliances domain.ComplianceRepository
	versions    domain.VersionRepository
	metrics     *metrics.Metrics // nil disables instrumentation
	now         func() time.Time
}

func NewService(
	audits domain.AuditRepository,
	findings domain.FindingRepository,
	compliances domain.ComplianceRepository,
	versions domain.VersionRepository,
	m *metrics.Metrics,
) *Service {
	return &Service{
		audits:      audits,
		findings:    findings,
		compliances: compliances,
		versions:    versions,
		metrics:     m,
		now:         time.Now,
	}
}

// SaveResult is what the auditor save path returns to the view layer.
type SaveResult struct {
	Label   string
	Payload *domain.VersionPayload
}

// SaveVersion persists a new auditor snapshot for the audit. The submitted
// edits are normalized, enriched with the latest reviewer round's per-item
// review state and with metadata carried forward from the previous auditor
// snapshot, then written under the next A{n} label.
func (s *Service) SaveVersion(ctx context.Context, auditID uuid.UUID, edits map[string]ItemEdit, fields AuditFields, userID uuid.UUID) (*SaveResult, error) {
	audit, err := s.audits.GetByID(ctx, auditID)
	if err != nil {
		return nil, fmt.Errorf("snapshot.SaveVersion: %w", err)
	}

	payload := &domain.VersionPayload{
		Metadata: metadataFromAudit(audit),
		Items:    buildItems(auditID, edits),
	}

	s.applyCrossRoundMerge(ctx, auditID, payload, fields)

	if err := s.syncFindings(ctx, auditID, edits); err != nil {
		return nil, fmt.Errorf("snapshot.SaveVersion: %w", err)
	}

	label, err := s.persistVersion(ctx, auditID, domain.PrefixAuditor, payload, userID)
	if err != nil {
		return nil, fmt.Errorf("snapshot.SaveVersion: %w", err)
	}

	return &SaveResult{Label: label, Payload: payload}, nil
}

// ReviewEdit is the reviewer's per-item input for a review round.
type ReviewEdit struct {
	ReviewStatus   string
	ReviewComments string
	AcceptReject   string // "0" pending, "1" accept, "2" reject
}

// SaveReviewVersion persists a reviewer round as the next R{n} snapshot.
// The round starts from the latest snapshot's payload, overlays the
// reviewer's per-item state and overall comments, and optionally closes the
// round: approve completes the audit, reject sends it back to the auditor.
func (s *Service) SaveReviewVersion(ctx context.Context, auditID uuid.UUID, reviews map[string]ReviewEdit, overallReviewComments, decision string, userID uuid.UUID) (string, error) {
	if decision != DecisionApprove && decision != DecisionReject && decision != DecisionNone {
		return "", fmt.Errorf("snapshot.SaveReviewVersion: %q: %w", decision, ErrUnknownDecision)
	}

	audit, err := s.audits.GetByID(ctx, auditID)
	if err != nil {
		return "", fmt.Errorf("snapshot.SaveReviewVersion: %w", err)
	}

	payload := s.latestParsablePayload(ctx, auditID)
	if payload == nil {
		payload, err = s.reconstructPayload(ctx, audit)
		if err != nil {
			return "", fmt.Errorf("snapshot.SaveReviewVersion: %w", err)
		}
	}

	for id, rev := range reviews {
		item, ok := payload.Items[id]
		if !ok {
			log.Warn().Str("audit_id", auditID.String()).Str("compliance_id", id).
				Msg("snapshot: review references unknown compliance item, skipping")
			continue
		}
		item.ReviewStatus = rev.ReviewStatus
		item.ReviewComments = rev.ReviewComments
		item.AcceptReject = rev.AcceptReject
		payload.Items[id] = item

		cid, parseErr := uuid.Parse(id)
		if parseErr != nil {
			continue
		}
		if updErr := s.findings.UpdateReview(ctx, auditID, cid, rev.ReviewStatus, rev.ReviewComments, rev.AcceptReject); updErr != nil {
			return "", fmt.Errorf("snapshot.SaveReviewVersion: %w", updErr)
		}
	}

	payload.OverallReviewComments = overallReviewComments

	switch decision {
	case DecisionApprove:
		payload.Metadata.ApprovalState = "Approved"
	case DecisionReject:
		payload.Metadata.ApprovalState = "Rejected"
	}

	label, err := s.persistVersion(ctx, auditID, domain.PrefixReviewer, payload, userID)
	if err != nil {
		return "", fmt.Errorf("snapshot.SaveReviewVersion: %w", err)
	}

	if err := s.applyDecision(ctx, audit, decision); err != nil {
		return "", fmt.Errorf("snapshot.SaveReviewVersion: %w", err)
	}

	return label, nil
}

func (s *Service) applyDecision(ctx context.Context, audit *domain.Audit, decision string) error {
	var target domain.AuditStatus
	switch decision {
	case DecisionApprove:
		target = domain.AuditStatusCompleted
	case DecisionReject:
		target = domain.AuditStatusWorkInProgress
	default:
		return nil
	}

	if !audit.Status.ValidTransition(target) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, audit.Status, target)
	}

	return s.audits.UpdateStatus(ctx, audit.ID, target)
}

// CreateInitialVersionFromFindings seeds the audit's first auditor snapshot
// from its normalized finding rows. Also used by the add-compliance flow and
// by the materializer's self-healing path.
func (s *Service) CreateInitialVersionFromFindings(ctx context.Context, auditID uuid.UUID, authorID uuid.UUID) (string, error) {
	audit, err := s.audits.GetByID(ctx, auditID)
	if err != nil {
		return "", fmt.Errorf("snapshot.CreateInitialVersionFromFindings: %w", err)
	}

	payload, err := s.reconstructPayload(ctx, audit)
	if err != nil {
		return "", fmt.Errorf("snapshot.CreateInitialVersionFromFindings: %w", err)
	}

	label, err := s.persistVersion(ctx, auditID, domain.PrefixAuditor, payload, authorID)
	if err != nil {
		return "", fmt.Errorf("snapshot.CreateInitialVersionFromFindings: %w", err)
	}

	return label, nil
}

// EnsureSnapshotIncludes folds any finding rows missing from the latest
// snapshot into a new version. Used after attaching a compliance item to an
// in-flight audit so the snapshot and the normalized rows agree.
func (s *Service) EnsureSnapshotIncludes(ctx context.Context, auditID uuid.UUID, userID uuid.UUID) (string, error) {
	latest, err := s.versions.Latest(ctx, auditID)
	if errors.Is(err, domain.ErrNotFound) {
		return s.CreateInitialVersionFromFindings(ctx, auditID, userID)
	}
	if err != nil {
		return "", fmt.Errorf("snapshot.EnsureSnapshotIncludes: %w", err)
	}

	payload, parseErr := domain.ParsePayload(latest.Payload)
	if parseErr != nil {
		s.metrics.IncPayloadParseFailure()
		log.Warn().Err(parseErr).Str("audit_id", auditID.String()).Str("label", latest.Label).
			Msg("snapshot: unparsable payload, reseeding from findings")
		return s.CreateInitialVersionFromFindings(ctx, auditID, userID)
	}

	rows, err := s.findings.ListByAudit(ctx, auditID)
	if err != nil {
		return "", fmt.Errorf("snapshot.EnsureSnapshotIncludes: %w", err)
	}

	added := 0
	for _, f := range rows {
		key := f.ComplianceID.String()
		if _, ok := payload.Items[key]; ok {
			continue
		}
		payload.Items[key] = s.recordFromFinding(ctx, f)
		added++
	}
	if added == 0 {
		return latest.Label, nil
	}

	label, err := s.persistVersion(ctx, auditID, domain.PrefixAuditor, payload, userID)
	if err != nil {
		return "", fmt.Errorf("snapshot.EnsureSnapshotIncludes: %w", err)
	}

	return label, nil
}

// persistVersion allocates the next label for the prefix and writes the
// snapshot row. A label conflict (two writers racing the allocator) is
// retried a bounded number of times with a fresh allocation.
func (s *Service) persistVersion(ctx context.Context, auditID uuid.UUID, prefix string, payload *domain.VersionPayload, authorID uuid.UUID) (string, error) {
	raw, err := domain.EncodePayload(payload)
	if err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 0; attempt < maxLabelRetries; attempt++ {
		label, allocErr := s.NextLabel(ctx, auditID, prefix)
		if allocErr != nil {
			return "", allocErr
		}

		v := &domain.AuditVersion{
			ID:        uuid.New(),
			AuditID:   auditID,
			Label:     label,
			Payload:   raw,
			AuthorID:  authorID,
			Active:    true,
			CreatedAt: s.now(),
		}

		createErr := s.versions.Create(ctx, v)
		if createErr == nil {
			s.metrics.IncVersionSave(prefix)
			return label, nil
		}
		if !errors.Is(createErr, domain.ErrConflict) {
			return "", createErr
		}

		s.metrics.IncLabelConflict()
		log.Warn().Str("audit_id", auditID.String()).Str("label", label).
			Msg("snapshot: version label conflict, re-allocating")
		lastErr = createErr
	}

	return "", fmt.Errorf("snapshot.persistVersion: label allocation exhausted: %w", lastErr)
}

// syncFindings writes the submitted per-item edits back to the normalized
// finding rows so the fallback representation stays reconstructable.
// Review-owned fields are not touched here.
func (s *Service) syncFindings(ctx context.Context, auditID uuid.UUID, edits map[string]ItemEdit) error {
	for id, edit := range edits {
		cid, err := uuid.Parse(id)
		if err != nil {
			// Malformed ids were already skipped by the builder.
			continue
		}

		f, err := s.findings.GetByAuditAndCompliance(ctx, auditID, cid)
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn().Str("audit_id", auditID.String()).Str("compliance_id", id).
				Msg("snapshot: edit for compliance item with no finding row, skipping")
			continue
		}
		if err != nil {
			return err
		}

		f.Check = edit.ComplianceStatus
		f.Evidence = edit.Evidence
		f.Comments = edit.Comments
		f.HowToVerify = edit.HowToVerify
		f.Impact = edit.Impact
		f.Recommendation = edit.Recommendation
		f.DetailsOfFinding = edit.DetailsOfFinding
		f.MajorMinor = edit.MajorMinor
		f.SeverityRating = edit.SeverityRating
		f.UnderlyingCause = edit.UnderlyingCause
		f.SuggestedActionPlan = edit.SuggestedActionPlan
		f.ResponsibleForPlan = edit.ResponsibleForPlan
		f.MitigationDate = edit.MitigationDate
		f.ReAudit = edit.ReAudit
		f.ReAuditDate = edit.ReAuditDate
		f.SelectedRisks = normalizeList(edit.SelectedRisks)
		f.SelectedMitigations = normalizeList(edit.SelectedMitigations)
		f.UpdatedAt = s.now()

		if err := s.findings.Update(ctx, f); err != nil {
			return err
		}
	}

	return nil
}

// latestParsablePayload returns the latest snapshot's decoded payload, or
// nil when no snapshot exists or the stored payload does not parse. Parse
// failures are logged and counted, never surfaced.
func (s *Service) latestParsablePayload(ctx context.Context, auditID uuid.UUID) *domain.VersionPayload {
	latest, err := s.versions.Latest(ctx, auditID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		log.Warn().Err(err).Str("audit_id", auditID.String()).Msg("snapshot: latest version lookup failed")
		return nil
	}

	payload, parseErr := domain.ParsePayload(latest.Payload)
	if parseErr != nil {
		s.metrics.IncPayloadParseFailure()
		log.Warn().Err(parseErr).Str("audit_id", auditID.String()).Str("label", latest.Label).
			Msg("snapshot: stored payload failed to parse, treating as absent")
		return nil
	}

	return payload
}
