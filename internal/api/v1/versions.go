package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/opengrc/attest/internal/domain"
	"github.com/opengrc/attest/internal/server/middleware"
	"github.com/opengrc/attest/internal/snapshot"
)

type GetTaskViewInput struct {
	ID uuid.UUID `path:"id" doc:"Audit ID"`
}

type GetTaskViewOutput struct {
	Body *snapshot.TaskView
}

// ItemEditBody mirrors one compliance item's auditor-editable fields.
type ItemEditBody struct {
	Description         string   `json:"description,omitempty"`
	ComplianceStatus    string   `json:"compliance_status,omitempty" doc:"0 non-compliant, 1 compliant, 2 closed"`
	Evidence            string   `json:"evidence,omitempty"`
	Comments            string   `json:"comments,omitempty"`
	HowToVerify         string   `json:"how_to_verify,omitempty"`
	Impact              string   `json:"impact,omitempty"`
	Recommendation      string   `json:"recommendation,omitempty"`
	DetailsOfFinding    string   `json:"details_of_finding,omitempty"`
	MajorMinor          string   `json:"major_minor,omitempty" doc:"0 minor, 1 major, 2 not applicable"`
	SeverityRating      string   `json:"severity_rating,omitempty"`
	UnderlyingCause     string   `json:"underlying_cause,omitempty"`
	SuggestedActionPlan string   `json:"suggested_action_plan,omitempty"`
	ResponsibleForPlan  string   `json:"responsible_for_plan,omitempty"`
	MitigationDate      string   `json:"mitigation_date,omitempty"`
	ReAudit             bool     `json:"re_audit,omitempty"`
	ReAuditDate         string   `json:"re_audit_date,omitempty"`
	SelectedRisks       []string `json:"selected_risks,omitempty"`
	SelectedMitigations []string `json:"selected_mitigations,omitempty"`
}

type SaveVersionInput struct {
	ID   uuid.UUID `path:"id" doc:"Audit ID"`
	Body struct {
		Items           map[string]ItemEditBody `json:"items,omitempty" doc:"Per-compliance edits keyed by compliance ID"`
		Title           *string                 `json:"title,omitempty"`
		Scope           *string                 `json:"scope,omitempty"`
		Objective       *string                 `json:"objective,omitempty"`
		BusinessUnit    *string                 `json:"business_unit,omitempty"`
		AuditEvidence   *string                 `json:"audit_evidence,omitempty"`
		OverallComments *string                 `json:"overall_comments,omitempty"`
	}
}

type SaveVersionOutput struct {
	Body struct {
		Label string `json:"label" doc:"Label of the new snapshot"`
	}
}

// ReviewEditBody mirrors one compliance item's reviewer-owned fields.
type ReviewEditBody struct {
	ReviewStatus   string `json:"review_status,omitempty"`
	ReviewComments string `json:"review_comments,omitempty"`
	AcceptReject   string `json:"accept_reject,omitempty" doc:"0 pending, 1 accept, 2 reject"`
}

type SaveReviewInput struct {
	ID   uuid.UUID `path:"id" doc:"Audit ID"`
	Body struct {
		Items                 map[string]ReviewEditBody `json:"items,omitempty" doc:"Per-compliance review state keyed by compliance ID"`
		OverallReviewComments string                    `json:"overall_review_comments,omitempty"`
		Decision              string                    `json:"decision,omitempty" doc:"Close the round: approve completes, reject returns for rework; empty saves progress"`
	}
}

type SaveReviewOutput struct {
	Body struct {
		Label string `json:"label" doc:"Label of the new reviewer snapshot"`
	}
}

type ListVersionsInput struct {
	ID              uuid.UUID `path:"id" doc:"Audit ID"`
	IncludeInactive bool      `query:"include_inactive" doc:"Include deactivated snapshots"`
}

type VersionSummary struct {
	ID        uuid.UUID `json:"id"`
	Label     string    `json:"label"`
	AuthorID  uuid.UUID `json:"author_id"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type ListVersionsOutput struct {
	Body []VersionSummary
}

func RegisterVersionRoutes(api huma.API, store DataStore, engine VersionEngine, notifier AuditNotifier) {
	huma.Register(api, huma.Operation{
		OperationID: "get-audit-task",
		Method:      http.MethodGet,
		Path:        "/audits/{id}/task",
		Summary:     "Get the task-detail view for an audit",
		Tags:        []string{"Versions"},
	}, func(ctx context.Context, input *GetTaskViewInput) (*GetTaskViewOutput, error) {
		view, err := engine.GetTaskView(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("audit not found")
			}
			return nil, huma.Error500InternalServerError("failed to build task view", err)
		}

		return &GetTaskViewOutput{Body: view}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "save-audit-version",
		Method:      http.MethodPost,
		Path:        "/audits/{id}/versions",
		Summary:     "Save an auditor snapshot of the audit's working state",
		Tags:        []string{"Versions"},
	}, func(ctx context.Context, input *SaveVersionInput) (*SaveVersionOutput, error) {
		userID, ok := middleware.UserIDFromContext(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("authentication required")
		}

		edits := make(map[string]snapshot.ItemEdit, len(input.Body.Items))
		for id, e := range input.Body.Items {
			edits[id] = snapshot.ItemEdit{
				Description:         e.Description,
				ComplianceStatus:    e.ComplianceStatus,
				Evidence:            e.Evidence,
				Comments:            e.Comments,
				HowToVerify:         e.HowToVerify,
				Impact:              e.Impact,
				Recommendation:      e.Recommendation,
				DetailsOfFinding:    e.DetailsOfFinding,
				MajorMinor:          e.MajorMinor,
				SeverityRating:      e.SeverityRating,
				UnderlyingCause:     e.UnderlyingCause,
				SuggestedActionPlan: e.SuggestedActionPlan,
				ResponsibleForPlan:  e.ResponsibleForPlan,
				MitigationDate:      e.MitigationDate,
				ReAudit:             e.ReAudit,
				ReAuditDate:         e.ReAuditDate,
				SelectedRisks:       e.SelectedRisks,
				SelectedMitigations: e.SelectedMitigations,
			}
		}
		fields := snapshot.AuditFields{
			Title:           input.Body.Title,
			Scope:           input.Body.Scope,
			Objective:       input.Body.Objective,
			BusinessUnit:    input.Body.BusinessUnit,
			AuditEvidence:   input.Body.AuditEvidence,
			OverallComments: input.Body.OverallComments,
		}

		result, err := engine.SaveVersion(ctx, input.ID, edits, fields, userID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("audit not found")
			}
			return nil, huma.Error500InternalServerError("failed to save version", err)
		}

		recordTrail(ctx, store, "version.save", "audit", input.ID, map[string]any{
			"label": result.Label,
			"items": len(edits),
		})

		resp := &SaveVersionOutput{}
		resp.Body.Label = result.Label
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "save-audit-review",
		Method:      http.MethodPost,
		Path:        "/audits/{id}/review",
		Summary:     "Save a reviewer round, optionally closing it with a decision",
		Tags:        []string{"Versions"},
	}, func(ctx context.Context, input *SaveReviewInput) (*SaveReviewOutput, error) {
		userID, ok := middleware.UserIDFromContext(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("authentication required")
		}

		reviews := make(map[string]snapshot.ReviewEdit, len(input.Body.Items))
		for id, r := range input.Body.Items {
			reviews[id] = snapshot.ReviewEdit{
				ReviewStatus:   r.ReviewStatus,
				ReviewComments: r.ReviewComments,
				AcceptReject:   r.AcceptReject,
			}
		}

		label, err := engine.SaveReviewVersion(ctx, input.ID, reviews, input.Body.OverallReviewComments, input.Body.Decision, userID)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrNotFound):
				return nil, huma.Error404NotFound("audit not found")
			case errors.Is(err, snapshot.ErrUnknownDecision):
				return nil, huma.Error422UnprocessableEntity("unknown review decision")
			case errors.Is(err, domain.ErrInvalidTransition):
				return nil, huma.Error422UnprocessableEntity("audit is not reviewable in its current status")
			default:
				return nil, huma.Error500InternalServerError("failed to save review", err)
			}
		}

		if input.Body.Decision != snapshot.DecisionNone && notifier != nil {
			if audit, getErr := store.Audits().GetByID(ctx, input.ID); getErr == nil {
				notifier.ReviewDecided(ctx, audit, input.Body.Decision == snapshot.DecisionApprove)
			}
		}

		recordTrail(ctx, store, "review.save", "audit", input.ID, map[string]any{
			"label":    label,
			"decision": input.Body.Decision,
		})

		resp := &SaveReviewOutput{}
		resp.Body.Label = label
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-audit-versions",
		Method:      http.MethodGet,
		Path:        "/audits/{id}/versions",
		Summary:     "List an audit's snapshot versions, newest first",
		Tags:        []string{"Versions"},
	}, func(ctx context.Context, input *ListVersionsInput) (*ListVersionsOutput, error) {
		if _, err := store.Audits().GetByID(ctx, input.ID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("audit not found")
			}
			return nil, huma.Error500InternalServerError("failed to get audit", err)
		}

		versions, err := store.Versions().ListByAudit(ctx, input.ID, input.IncludeInactive)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list versions", err)
		}

		summaries := make([]VersionSummary, 0, len(versions))
		for _, v := range versions {
			summaries = append(summaries, VersionSummary{
				ID:        v.ID,
				Label:     v.Label,
				AuthorID:  v.AuthorID,
				Active:    v.Active,
				CreatedAt: v.CreatedAt,
			})
		}

		return &ListVersionsOutput{Body: summaries}, nil
	})
}
