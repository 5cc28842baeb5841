package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/opengrc/attest/internal/domain"
)

// TaskView is the task-detail representation served to clients. It is
// reconstructed from the latest snapshot when one exists, otherwise
// synthesized from the normalized finding rows.
type TaskView struct {
	AuditID               uuid.UUID          `json:"audit_id"`
	Title                 string             `json:"title"`
	Scope                 string             `json:"scope"`
	Objective             string             `json:"objective"`
	BusinessUnit          string             `json:"business_unit"`
	Status                domain.AuditStatus `json:"status"`
	AuditEvidence         string             `json:"audit_evidence"`
	ApprovalState         string             `json:"approval_state"`
	OverallComments       string             `json:"overall_comments"`
	OverallReviewComments string             `json:"overall_review_comments"`
	CurrentVersion        string             `json:"current_version"`
	LoadedFromVersion     bool               `json:"loaded_from_version"`
	Compliances           []TaskViewItem     `json:"compliances"`
}

// TaskViewItem is one compliance item's entry in the task view.
type TaskViewItem struct {
	ComplianceID string `json:"compliance_id"`
	domain.ItemRecord
}

// GetTaskView materializes the task-detail view for an audit. The latest
// parsable snapshot wins; an absent or corrupt snapshot triggers a
// best-effort reconstruction from finding rows, which is persisted as the
// audit's next auditor snapshot so the following read takes the fast path.
// Apart from the audit itself being missing, this never fails: worst case
// is a view with an empty compliance list.
func (s *Service) GetTaskView(ctx context.Context, auditID uuid.UUID) (*TaskView, error) {
	audit, err := s.audits.GetByID(ctx, auditID)
	if err != nil {
		return nil, fmt.Errorf("snapshot.GetTaskView: %w", err)
	}

	latest, err := s.versions.Latest(ctx, auditID)
	if err == nil {
		payload, parseErr := domain.ParsePayload(latest.Payload)
		if parseErr == nil {
			return s.viewFromSnapshot(ctx, audit, latest.Label, payload)
		}
		s.metrics.IncPayloadParseFailure()
		log.Warn().Err(parseErr).Str("audit_id", auditID.String()).Str("label", latest.Label).
			Msg("snapshot: stored payload failed to parse, reconstructing view from findings")
	} else if !errors.Is(err, domain.ErrNotFound) {
		log.Warn().Err(err).Str("audit_id", auditID.String()).
			Msg("snapshot: latest version lookup failed, reconstructing view from findings")
	}

	return s.viewFromFindings(ctx, audit), nil
}

// viewFromSnapshot merges the snapshot payload with the current finding
// rows: items live in the snapshot, but compliance items attached after the
// snapshot was written appear only as finding rows and are folded in.
func (s *Service) viewFromSnapshot(ctx context.Context, audit *domain.Audit, label string, payload *domain.VersionPayload) (*TaskView, error) {
	rows, err := s.findings.ListByAudit(ctx, audit.ID)
	if err != nil {
		log.Warn().Err(err).Str("audit_id", audit.ID.String()).
			Msg("snapshot: finding rows unavailable, serving snapshot items only")
		rows = nil
	}

	byCompliance := make(map[string]*domain.Finding, len(rows))
	for _, f := range rows {
		byCompliance[f.ComplianceID.String()] = f
	}

	entries := make([]TaskViewItem, 0, len(payload.Items)+len(rows))
	for id, item := range payload.Items {
		if item.Description == "" {
			if f, ok := byCompliance[id]; ok {
				item.Description = s.recordFromFinding(ctx, f).Description
			}
			if item.Description == "" {
				// Neither source has anything to show.
				continue
			}
		}
		entries = append(entries, TaskViewItem{ComplianceID: id, ItemRecord: item})
	}

	for id, f := range byCompliance {
		if _, inSnapshot := payload.Items[id]; inSnapshot {
			continue
		}
		rec := s.recordFromFinding(ctx, f)
		if rec.Description == "" {
			continue
		}
		entries = append(entries, TaskViewItem{ComplianceID: id, ItemRecord: rec})
	}

	sortEntries(entries)

	view := &TaskView{
		AuditID:               audit.ID,
		Title:                 fallback(payload.Metadata.Title, audit.Title),
		Scope:                 fallback(payload.Metadata.Scope, audit.Scope),
		Objective:             fallback(payload.Metadata.Objective, audit.Objective),
		BusinessUnit:          fallback(payload.Metadata.BusinessUnit, audit.BusinessUnit),
		Status:                audit.Status,
		AuditEvidence:         payload.Metadata.AuditEvidence,
		ApprovalState:         payload.Metadata.ApprovalState,
		OverallComments:       payload.OverallComments,
		OverallReviewComments: payload.OverallReviewComments,
		CurrentVersion:        label,
		LoadedFromVersion:     true,
		Compliances:           entries,
	}

	return view, nil
}

// viewFromFindings synthesizes the view directly from finding rows and
// self-heals by persisting the reconstruction as the next auditor snapshot.
// Best-effort throughout: a failed reconstruction still yields a view.
func (s *Service) viewFromFindings(ctx context.Context, audit *domain.Audit) *TaskView {
	s.metrics.IncMaterializerFallback()

	payload, err := s.reconstructPayload(ctx, audit)
	if err != nil {
		log.Error().Err(err).Str("audit_id", audit.ID.String()).
			Msg("snapshot: reconstruction from findings failed, serving empty view")
		payload = &domain.VersionPayload{
			Metadata: metadataFromAudit(audit),
			Items:    map[string]domain.ItemRecord{},
		}
	} else {
		// Lazily created snapshots are attributed to the assigned auditor.
		if _, persistErr := s.persistVersion(ctx, audit.ID, domain.PrefixAuditor, payload, audit.AuditorID); persistErr != nil {
			log.Error().Err(persistErr).Str("audit_id", audit.ID.String()).
				Msg("snapshot: failed to persist reconstructed snapshot")
		}
	}

	entries := make([]TaskViewItem, 0, len(payload.Items))
	for id, item := range payload.Items {
		if item.Description == "" {
			continue
		}
		entries = append(entries, TaskViewItem{ComplianceID: id, ItemRecord: item})
	}
	sortEntries(entries)

	return &TaskView{
		AuditID:               audit.ID,
		Title:                 audit.Title,
		Scope:                 audit.Scope,
		Objective:             audit.Objective,
		BusinessUnit:          audit.BusinessUnit,
		Status:                audit.Status,
		AuditEvidence:         payload.Metadata.AuditEvidence,
		ApprovalState:         payload.Metadata.ApprovalState,
		OverallComments:       payload.OverallComments,
		OverallReviewComments: payload.OverallReviewComments,
		CurrentVersion:        "",
		LoadedFromVersion:     false,
		Compliances:           entries,
	}
}

// reconstructPayload builds a snapshot payload from the audit's finding
// rows joined to compliance reference data.
func (s *Service) reconstructPayload(ctx context.Context, audit *domain.Audit) (*domain.VersionPayload, error) {
	rows, err := s.findings.ListByAudit(ctx, audit.ID)
	if err != nil {
		return nil, fmt.Errorf("snapshot.reconstructPayload: %w", err)
	}

	items := make(map[string]domain.ItemRecord, len(rows))
	for _, f := range rows {
		items[f.ComplianceID.String()] = s.recordFromFinding(ctx, f)
	}

	return &domain.VersionPayload{
		Metadata: metadataFromAudit(audit),
		Items:    items,
	}, nil
}

// recordFromFinding converts a normalized finding row into a payload item
// record, pulling the control description from compliance reference data.
func (s *Service) recordFromFinding(ctx context.Context, f *domain.Finding) domain.ItemRecord {
	description := ""
	if c, err := s.compliances.GetByID(ctx, f.ComplianceID); err == nil {
		description = c.Description
	} else if !errors.Is(err, domain.ErrNotFound) {
		log.Warn().Err(err).Str("compliance_id", f.ComplianceID.String()).
			Msg("snapshot: compliance lookup failed during reconstruction")
	}

	reviewStatus := f.ReviewStatus
	if reviewStatus == "" {
		reviewStatus = "Pending"
	}
	acceptReject := f.AcceptReject
	if acceptReject == "" {
		acceptReject = "0"
	}

	return domain.ItemRecord{
		Description:         description,
		ComplianceStatus:    f.Check,
		Evidence:            f.Evidence,
		Comments:            f.Comments,
		HowToVerify:         f.HowToVerify,
		Impact:              f.Impact,
		Recommendation:      f.Recommendation,
		DetailsOfFinding:    f.DetailsOfFinding,
		Criticality:         domain.CriticalityLabel(f.MajorMinor),
		SeverityRating:      f.SeverityRating,
		UnderlyingCause:     f.UnderlyingCause,
		SuggestedActionPlan: f.SuggestedActionPlan,
		ResponsibleForPlan:  f.ResponsibleForPlan,
		MitigationDate:      f.MitigationDate,
		ReAudit:             f.ReAudit,
		ReAuditDate:         f.ReAuditDate,
		SelectedRisks:       normalizeList(f.SelectedRisks),
		SelectedMitigations: normalizeList(f.SelectedMitigations),
		ReviewStatus:        reviewStatus,
		ReviewComments:      f.ReviewComments,
		AcceptReject:        acceptReject,
	}
}

func sortEntries(entries []TaskViewItem) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ComplianceID < entries[j].ComplianceID
	})
}

func fallback(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
