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
)

type CreateAuditInput struct {
	Body struct {
		Title        string     `json:"title" minLength:"1" maxLength:"255" doc:"Audit title"`
		Scope        string     `json:"scope,omitempty" doc:"Audit scope"`
		Objective    string     `json:"objective,omitempty" doc:"Audit objective"`
		BusinessUnit string     `json:"business_unit,omitempty" maxLength:"255" doc:"Business unit under audit"`
		FrameworkID  uuid.UUID  `json:"framework_id" doc:"Framework the audit runs against"`
		PolicyID     *uuid.UUID `json:"policy_id,omitempty" doc:"Narrow the audit to one policy"`
		SubPolicyID  *uuid.UUID `json:"sub_policy_id,omitempty" doc:"Narrow the audit to one sub-policy"`
		AssigneeID   uuid.UUID  `json:"assignee_id" doc:"User the audit is assigned to"`
		AuditorID    uuid.UUID  `json:"auditor_id" doc:"Auditor performing the audit"`
		ReviewerID   *uuid.UUID `json:"reviewer_id,omitempty" doc:"Reviewer for the audit"`
		AuditType    string     `json:"audit_type,omitempty" enum:"I,E" doc:"I internal, E external"`
		DueDate      *time.Time `json:"due_date,omitempty" doc:"Due date"`
	}
}

type CreateAuditOutput struct {
	Body struct {
		Audit         *domain.Audit `json:"audit"`
		FindingsCount int           `json:"findings_count" doc:"Finding rows created, one per applicable compliance"`
	}
}

type GetAuditInput struct {
	ID uuid.UUID `path:"id" doc:"Audit ID"`
}

type GetAuditOutput struct {
	Body *domain.Audit
}

type ListAuditsInput struct {
	AuditorID  uuid.UUID `query:"auditor_id" doc:"Filter by auditor"`
	ReviewerID uuid.UUID `query:"reviewer_id" doc:"Filter by reviewer"`
}

type ListAuditsOutput struct {
	Body []*domain.Audit
}

type UpdateAuditStatusInput struct {
	ID   uuid.UUID `path:"id" doc:"Audit ID"`
	Body struct {
		Status domain.AuditStatus `json:"status" enum:"Yet to Start,Work In Progress,Under review,Completed" doc:"Target status"`
	}
}

type UpdateAuditStatusOutput struct {
	Body *domain.Audit
}

type AttachComplianceInput struct {
	ID   uuid.UUID `path:"id" doc:"Audit ID"`
	Body struct {
		ComplianceID uuid.UUID `json:"compliance_id" doc:"Compliance item to attach"`
	}
}

type AttachComplianceOutput struct {
	Body struct {
		Label string `json:"label" doc:"Snapshot label the item was folded into"`
	}
}

// resolveAuditScope returns the compliance items an audit covers, narrowed
// by the most specific scope set on it: sub-policy, then policy, then the
// whole framework.
func resolveAuditScope(ctx context.Context, store DataStore, a *domain.Audit) ([]*domain.Compliance, error) {
	switch {
	case a.SubPolicyID != nil:
		return store.Compliances().ListBySubPolicy(ctx, *a.SubPolicyID)
	case a.PolicyID != nil:
		return store.Compliances().ListByPolicy(ctx, *a.PolicyID)
	default:
		return store.Compliances().ListByFramework(ctx, a.FrameworkID)
	}
}

func RegisterAuditRoutes(api huma.API, store DataStore, engine VersionEngine, notifier AuditNotifier) {
	huma.Register(api, huma.Operation{
		OperationID: "create-audit",
		Method:      http.MethodPost,
		Path:        "/audits",
		Summary:     "Create an audit and seed one finding per applicable compliance",
		Tags:        []string{"Audits"},
	}, func(ctx context.Context, input *CreateAuditInput) (*CreateAuditOutput, error) {
		if _, err := store.Frameworks().GetByID(ctx, input.Body.FrameworkID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("framework not found")
			}
			return nil, huma.Error500InternalServerError("failed to validate framework", err)
		}
		if input.Body.PolicyID != nil {
			if _, err := store.Policies().GetByID(ctx, *input.Body.PolicyID); err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return nil, huma.Error404NotFound("policy not found")
				}
				return nil, huma.Error500InternalServerError("failed to validate policy", err)
			}
		}
		if input.Body.SubPolicyID != nil {
			if _, err := store.SubPolicies().GetByID(ctx, *input.Body.SubPolicyID); err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return nil, huma.Error404NotFound("sub-policy not found")
				}
				return nil, huma.Error500InternalServerError("failed to validate sub-policy", err)
			}
		}

		auditType := input.Body.AuditType
		if auditType == "" {
			auditType = "I"
		}

		now := time.Now()
		a := &domain.Audit{
			ID:           uuid.New(),
			Title:        input.Body.Title,
			Scope:        input.Body.Scope,
			Objective:    input.Body.Objective,
			BusinessUnit: input.Body.BusinessUnit,
			FrameworkID:  input.Body.FrameworkID,
			PolicyID:     input.Body.PolicyID,
			SubPolicyID:  input.Body.SubPolicyID,
			AssigneeID:   input.Body.AssigneeID,
			AuditorID:    input.Body.AuditorID,
			ReviewerID:   input.Body.ReviewerID,
			Status:       domain.AuditStatusYetToStart,
			AuditType:    auditType,
			DueDate:      input.Body.DueDate,
			AssignedDate: now,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		compliances, err := resolveAuditScope(ctx, store, a)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to resolve audit scope", err)
		}

		if err := store.Audits().Create(ctx, a); err != nil {
			return nil, huma.Error500InternalServerError("failed to create audit", err)
		}

		created := 0
		for _, c := range compliances {
			if !c.Active {
				continue
			}
			f := &domain.Finding{
				ID:           uuid.New(),
				AuditID:      a.ID,
				ComplianceID: c.ID,
				Check:        domain.CheckNonCompliant,
				MajorMinor:   c.Criticality,
				AcceptReject: "0",
				AssignedDate: now,
				UpdatedAt:    now,
			}
			if err := store.Findings().Create(ctx, f); err != nil {
				return nil, huma.Error500InternalServerError("failed to seed findings", err)
			}
			created++
		}

		recordTrail(ctx, store, "audit.create", "audit", a.ID, map[string]any{
			"title":    a.Title,
			"findings": created,
		})

		resp := &CreateAuditOutput{}
		resp.Body.Audit = a
		resp.Body.FindingsCount = created
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-audit",
		Method:      http.MethodGet,
		Path:        "/audits/{id}",
		Summary:     "Get an audit by ID",
		Tags:        []string{"Audits"},
	}, func(ctx context.Context, input *GetAuditInput) (*GetAuditOutput, error) {
		a, err := store.Audits().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("audit not found")
			}
			return nil, huma.Error500InternalServerError("failed to get audit", err)
		}

		return &GetAuditOutput{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-audits",
		Method:      http.MethodGet,
		Path:        "/audits",
		Summary:     "List audits, optionally filtered by auditor or reviewer",
		Tags:        []string{"Audits"},
	}, func(ctx context.Context, input *ListAuditsInput) (*ListAuditsOutput, error) {
		var (
			audits []*domain.Audit
			err    error
		)
		switch {
		case input.AuditorID != uuid.Nil:
			audits, err = store.Audits().ListByAuditor(ctx, input.AuditorID)
		case input.ReviewerID != uuid.Nil:
			audits, err = store.Audits().ListByReviewer(ctx, input.ReviewerID)
		default:
			audits, err = store.Audits().List(ctx)
		}
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list audits", err)
		}

		return &ListAuditsOutput{Body: audits}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-audit-status",
		Method:      http.MethodPatch,
		Path:        "/audits/{id}/status",
		Summary:     "Transition an audit's workflow status",
		Tags:        []string{"Audits"},
	}, func(ctx context.Context, input *UpdateAuditStatusInput) (*UpdateAuditStatusOutput, error) {
		a, err := store.Audits().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("audit not found")
			}
			return nil, huma.Error500InternalServerError("failed to get audit", err)
		}

		if !a.Status.ValidTransition(input.Body.Status) {
			return nil, huma.Error422UnprocessableEntity(
				"invalid status transition from " + string(a.Status) + " to " + string(input.Body.Status))
		}

		if err := store.Audits().UpdateStatus(ctx, a.ID, input.Body.Status); err != nil {
			return nil, huma.Error500InternalServerError("failed to update audit status", err)
		}
		prev := a.Status
		a.Status = input.Body.Status
		if input.Body.Status == domain.AuditStatusCompleted {
			now := time.Now()
			a.CompletionDate = &now
		}

		if input.Body.Status == domain.AuditStatusUnderReview && notifier != nil {
			notifier.AuditSubmitted(ctx, a)
		}

		recordTrail(ctx, store, "audit.status", "audit", a.ID, map[string]any{
			"from": string(prev),
			"to":   string(input.Body.Status),
		})

		return &UpdateAuditStatusOutput{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "attach-audit-compliance",
		Method:      http.MethodPost,
		Path:        "/audits/{id}/compliances",
		Summary:     "Attach a compliance item to an in-flight audit",
		Tags:        []string{"Audits"},
	}, func(ctx context.Context, input *AttachComplianceInput) (*AttachComplianceOutput, error) {
		userID, ok := middleware.UserIDFromContext(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("authentication required")
		}

		a, err := store.Audits().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("audit not found")
			}
			return nil, huma.Error500InternalServerError("failed to get audit", err)
		}
		c, err := store.Compliances().GetByID(ctx, input.Body.ComplianceID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("compliance not found")
			}
			return nil, huma.Error500InternalServerError("failed to get compliance", err)
		}

		_, err = store.Findings().GetByAuditAndCompliance(ctx, a.ID, c.ID)
		switch {
		case err == nil:
			// already attached, folding below is a no-op for the item
		case errors.Is(err, domain.ErrNotFound):
			now := time.Now()
			f := &domain.Finding{
				ID:           uuid.New(),
				AuditID:      a.ID,
				ComplianceID: c.ID,
				Check:        domain.CheckNonCompliant,
				MajorMinor:   c.Criticality,
				AcceptReject: "0",
				AssignedDate: now,
				UpdatedAt:    now,
			}
			if err := store.Findings().Create(ctx, f); err != nil {
				return nil, huma.Error500InternalServerError("failed to attach compliance", err)
			}
		default:
			return nil, huma.Error500InternalServerError("failed to check existing finding", err)
		}

		label, err := engine.EnsureSnapshotIncludes(ctx, a.ID, userID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to fold item into snapshot", err)
		}

		recordTrail(ctx, store, "audit.attach_compliance", "audit", a.ID, map[string]any{
			"compliance_id": c.ID.String(),
			"label":         label,
		})

		resp := &AttachComplianceOutput{}
		resp.Body.Label = label
		return resp, nil
	})
}
