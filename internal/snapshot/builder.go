package snapshot

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/opengrc/attest/internal/domain"
)

// ItemEdit is the auditor's submitted working state for one compliance
// item. MajorMinor carries the raw tri-state criticality value ("1" major,
// "0" minor, "2" not applicable); the builder derives the display form.
type ItemEdit struct {
	Description         string
	ComplianceStatus    string
	Evidence            string
	Comments            string
	HowToVerify         string
	Impact              string
	Recommendation      string
	DetailsOfFinding    string
	MajorMinor          string
	SeverityRating      string
	UnderlyingCause     string
	SuggestedActionPlan string
	ResponsibleForPlan  string
	MitigationDate      string
	ReAudit             bool
	ReAuditDate         string
	SelectedRisks       []string
	SelectedMitigations []string
}

// AuditFields carries the audit-level fields of a save request. Nil means
// the client did not supply the field, which makes it eligible for
// inheritance from the previous auditor snapshot.
type AuditFields struct {
	Title           *string
	Scope           *string
	Objective       *string
	BusinessUnit    *string
	AuditEvidence   *string
	OverallComments *string
}

// buildItems normalizes the submitted edits into per-item payload records.
// An entry whose key is not a valid compliance item id is skipped and
// logged; the rest of the batch proceeds (partial-success semantics).
// Review-owned fields start at their defaults and are only ever set by the
// cross-round merge.
func buildItems(auditID uuid.UUID, edits map[string]ItemEdit) map[string]domain.ItemRecord {
	items := make(map[string]domain.ItemRecord, len(edits))

	for id, edit := range edits {
		if _, err := uuid.Parse(id); err != nil {
			log.Warn().Str("audit_id", auditID.String()).Str("compliance_id", id).
				Msg("snapshot: malformed compliance item id in save request, skipping item")
			continue
		}

		items[id] = domain.ItemRecord{
			Description:         edit.Description,
			ComplianceStatus:    edit.ComplianceStatus,
			Evidence:            edit.Evidence,
			Comments:            edit.Comments,
			HowToVerify:         edit.HowToVerify,
			Impact:              edit.Impact,
			Recommendation:      edit.Recommendation,
			DetailsOfFinding:    edit.DetailsOfFinding,
			Criticality:         domain.CriticalityLabel(edit.MajorMinor),
			SeverityRating:      edit.SeverityRating,
			UnderlyingCause:     edit.UnderlyingCause,
			SuggestedActionPlan: edit.SuggestedActionPlan,
			ResponsibleForPlan:  edit.ResponsibleForPlan,
			MitigationDate:      edit.MitigationDate,
			ReAudit:             edit.ReAudit,
			ReAuditDate:         edit.ReAuditDate,
			SelectedRisks:       normalizeList(edit.SelectedRisks),
			SelectedMitigations: normalizeList(edit.SelectedMitigations),
			ReviewStatus:        "Pending",
			ReviewComments:      "",
			AcceptReject:        "0",
		}
	}

	return items
}

// metadataFromAudit seeds payload metadata from the audit record. Explicit
// submission and inheritance from the prior snapshot both overlay these
// values later.
func metadataFromAudit(a *domain.Audit) domain.VersionMetadata {
	return domain.VersionMetadata{
		Title:        a.Title,
		Scope:        a.Scope,
		Objective:    a.Objective,
		BusinessUnit: a.BusinessUnit,
	}
}

// normalizeList guarantees a non-nil slice so the payload never serializes
// a list field as null.
func normalizeList(xs []string) []string {
	if xs == nil {
		return []string{}
	}
	return xs
}
