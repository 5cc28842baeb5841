package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/opengrc/attest/internal/domain"
)

type ListFindingsInput struct {
	AuditID uuid.UUID `path:"id" doc:"Audit ID"`
}

type ListFindingsOutput struct {
	Body []*domain.Finding
}

type UpdateFindingInput struct {
	AuditID      uuid.UUID `path:"id" doc:"Audit ID"`
	ComplianceID uuid.UUID `path:"complianceId" doc:"Compliance ID"`
	Body         ItemEditBody
}

type UpdateFindingOutput struct {
	Body *domain.Finding
}

type ReviewFindingInput struct {
	AuditID      uuid.UUID `path:"id" doc:"Audit ID"`
	ComplianceID uuid.UUID `path:"complianceId" doc:"Compliance ID"`
	Body         struct {
		ReviewStatus   string `json:"review_status,omitempty"`
		ReviewComments string `json:"review_comments,omitempty"`
		AcceptReject   string `json:"accept_reject" enum:"0,1,2" doc:"0 pending, 1 accept, 2 reject"`
	}
}

type ReviewFindingOutput struct {
	Body *domain.Finding
}

func RegisterFindingRoutes(api huma.API, store DataStore) {
	huma.Register(api, huma.Operation{
		OperationID: "list-audit-findings",
		Method:      http.MethodGet,
		Path:        "/audits/{id}/findings",
		Summary:     "List the finding rows for an audit",
		Tags:        []string{"Findings"},
	}, func(ctx context.Context, input *ListFindingsInput) (*ListFindingsOutput, error) {
		if _, err := store.Audits().GetByID(ctx, input.AuditID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("audit not found")
			}
			return nil, huma.Error500InternalServerError("failed to get audit", err)
		}

		findings, err := store.Findings().ListByAudit(ctx, input.AuditID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list findings", err)
		}

		return &ListFindingsOutput{Body: findings}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-finding",
		Method:      http.MethodPut,
		Path:        "/audits/{id}/findings/{complianceId}",
		Summary:     "Update one finding row's auditor fields",
		Tags:        []string{"Findings"},
	}, func(ctx context.Context, input *UpdateFindingInput) (*UpdateFindingOutput, error) {
		f, err := store.Findings().GetByAuditAndCompliance(ctx, input.AuditID, input.ComplianceID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("finding not found")
			}
			return nil, huma.Error500InternalServerError("failed to get finding", err)
		}

		e := input.Body
		if e.ComplianceStatus != "" {
			f.Check = e.ComplianceStatus
		}
		if e.Evidence != "" {
			f.Evidence = e.Evidence
		}
		if e.Comments != "" {
			f.Comments = e.Comments
		}
		if e.HowToVerify != "" {
			f.HowToVerify = e.HowToVerify
		}
		if e.Impact != "" {
			f.Impact = e.Impact
		}
		if e.Recommendation != "" {
			f.Recommendation = e.Recommendation
		}
		if e.DetailsOfFinding != "" {
			f.DetailsOfFinding = e.DetailsOfFinding
		}
		if e.MajorMinor != "" {
			f.MajorMinor = e.MajorMinor
		}
		if e.SeverityRating != "" {
			f.SeverityRating = e.SeverityRating
		}
		if e.UnderlyingCause != "" {
			f.UnderlyingCause = e.UnderlyingCause
		}
		if e.SuggestedActionPlan != "" {
			f.SuggestedActionPlan = e.SuggestedActionPlan
		}
		if e.ResponsibleForPlan != "" {
			f.ResponsibleForPlan = e.ResponsibleForPlan
		}
		if e.MitigationDate != "" {
			f.MitigationDate = e.MitigationDate
		}
		if e.ReAudit {
			f.ReAudit = true
		}
		if e.ReAuditDate != "" {
			f.ReAuditDate = e.ReAuditDate
		}
		if e.SelectedRisks != nil {
			f.SelectedRisks = e.SelectedRisks
		}
		if e.SelectedMitigations != nil {
			f.SelectedMitigations = e.SelectedMitigations
		}
		f.UpdatedAt = time.Now()

		if err := store.Findings().Update(ctx, f); err != nil {
			return nil, huma.Error500InternalServerError("failed to update finding", err)
		}

		recordTrail(ctx, store, "finding.update", "finding", f.ID, map[string]any{
			"audit_id":      input.AuditID.String(),
			"compliance_id": input.ComplianceID.String(),
		})

		return &UpdateFindingOutput{Body: f}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "review-finding",
		Method:      http.MethodPatch,
		Path:        "/audits/{id}/findings/{complianceId}/review",
		Summary:     "Set one finding row's reviewer fields",
		Tags:        []string{"Findings"},
	}, func(ctx context.Context, input *ReviewFindingInput) (*ReviewFindingOutput, error) {
		err := store.Findings().UpdateReview(ctx, input.AuditID, input.ComplianceID,
			input.Body.ReviewStatus, input.Body.ReviewComments, input.Body.AcceptReject)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("finding not found")
			}
			return nil, huma.Error500InternalServerError("failed to review finding", err)
		}

		f, err := store.Findings().GetByAuditAndCompliance(ctx, input.AuditID, input.ComplianceID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to get finding", err)
		}

		recordTrail(ctx, store, "finding.review", "finding", f.ID, map[string]any{
			"audit_id":      input.AuditID.String(),
			"accept_reject": input.Body.AcceptReject,
		})

		return &ReviewFindingOutput{Body: f}, nil
	})
}
