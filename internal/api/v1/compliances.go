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

type CreateComplianceInput struct {
	Body struct {
		SubPolicyID     uuid.UUID `json:"sub_policy_id" doc:"Parent sub-policy ID"`
		Description     string    `json:"description" minLength:"1" doc:"Compliance check description"`
		Criticality     string    `json:"criticality" enum:"0,1,2" doc:"0 minor, 1 major, 2 not applicable"`
		IsRisk          bool      `json:"is_risk,omitempty" doc:"Whether the check carries a risk"`
		PossibleDamage  string    `json:"possible_damage,omitempty" doc:"Damage if the check fails"`
		MitigationSteps string    `json:"mitigation_steps,omitempty" doc:"How to mitigate the risk"`
	}
}

type CreateComplianceOutput struct {
	Body *domain.Compliance
}

type GetComplianceInput struct {
	ID uuid.UUID `path:"id" doc:"Compliance ID"`
}

type GetComplianceOutput struct {
	Body *domain.Compliance
}

type ListCompliancesInput struct {
	SubPolicyID uuid.UUID `query:"sub_policy_id" doc:"Filter by sub-policy ID"`
	PolicyID    uuid.UUID `query:"policy_id" doc:"Filter by policy ID"`
	FrameworkID uuid.UUID `query:"framework_id" doc:"Filter by framework ID"`
}

type ListCompliancesOutput struct {
	Body []*domain.Compliance
}

type UpdateComplianceInput struct {
	ID   uuid.UUID `path:"id" doc:"Compliance ID"`
	Body struct {
		Description     string `json:"description,omitempty" doc:"Compliance check description"`
		Criticality     string `json:"criticality,omitempty" doc:"0 minor, 1 major, 2 not applicable"`
		IsRisk          *bool  `json:"is_risk,omitempty" doc:"Whether the check carries a risk"`
		PossibleDamage  string `json:"possible_damage,omitempty" doc:"Damage if the check fails"`
		MitigationSteps string `json:"mitigation_steps,omitempty" doc:"How to mitigate the risk"`
		Active          *bool  `json:"active,omitempty" doc:"Soft-disable the check"`
	}
}

type UpdateComplianceOutput struct {
	Body *domain.Compliance
}

func RegisterComplianceRoutes(api huma.API, store DataStore) {
	huma.Register(api, huma.Operation{
		OperationID: "create-compliance",
		Method:      http.MethodPost,
		Path:        "/compliances",
		Summary:     "Create a compliance check under a sub-policy",
		Tags:        []string{"Compliances"},
	}, func(ctx context.Context, input *CreateComplianceInput) (*CreateComplianceOutput, error) {
		if _, err := store.SubPolicies().GetByID(ctx, input.Body.SubPolicyID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("sub-policy not found")
			}
			return nil, huma.Error500InternalServerError("failed to validate sub-policy", err)
		}

		now := time.Now()
		c := &domain.Compliance{
			ID:              uuid.New(),
			SubPolicyID:     input.Body.SubPolicyID,
			Description:     input.Body.Description,
			Criticality:     input.Body.Criticality,
			IsRisk:          input.Body.IsRisk,
			PossibleDamage:  input.Body.PossibleDamage,
			MitigationSteps: input.Body.MitigationSteps,
			Active:          true,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		if err := store.Compliances().Create(ctx, c); err != nil {
			return nil, huma.Error500InternalServerError("failed to create compliance", err)
		}

		return &CreateComplianceOutput{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-compliance",
		Method:      http.MethodGet,
		Path:        "/compliances/{id}",
		Summary:     "Get a compliance check by ID",
		Tags:        []string{"Compliances"},
	}, func(ctx context.Context, input *GetComplianceInput) (*GetComplianceOutput, error) {
		c, err := store.Compliances().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("compliance not found")
			}
			return nil, huma.Error500InternalServerError("failed to get compliance", err)
		}

		return &GetComplianceOutput{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-compliances",
		Method:      http.MethodGet,
		Path:        "/compliances",
		Summary:     "List compliance checks by sub-policy, policy, or framework",
		Tags:        []string{"Compliances"},
	}, func(ctx context.Context, input *ListCompliancesInput) (*ListCompliancesOutput, error) {
		var (
			compliances []*domain.Compliance
			err         error
		)
		switch {
		case input.SubPolicyID != uuid.Nil:
			compliances, err = store.Compliances().ListBySubPolicy(ctx, input.SubPolicyID)
		case input.PolicyID != uuid.Nil:
			compliances, err = store.Compliances().ListByPolicy(ctx, input.PolicyID)
		case input.FrameworkID != uuid.Nil:
			compliances, err = store.Compliances().ListByFramework(ctx, input.FrameworkID)
		default:
			return nil, huma.Error422UnprocessableEntity("one of sub_policy_id, policy_id, or framework_id is required")
		}
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list compliances", err)
		}

		return &ListCompliancesOutput{Body: compliances}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-compliance",
		Method:      http.MethodPut,
		Path:        "/compliances/{id}",
		Summary:     "Update a compliance check",
		Tags:        []string{"Compliances"},
	}, func(ctx context.Context, input *UpdateComplianceInput) (*UpdateComplianceOutput, error) {
		existing, err := store.Compliances().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("compliance not found")
			}
			return nil, huma.Error500InternalServerError("failed to get compliance", err)
		}

		if input.Body.Description != "" {
			existing.Description = input.Body.Description
		}
		if input.Body.Criticality != "" {
			existing.Criticality = input.Body.Criticality
		}
		if input.Body.IsRisk != nil {
			existing.IsRisk = *input.Body.IsRisk
		}
		if input.Body.PossibleDamage != "" {
			existing.PossibleDamage = input.Body.PossibleDamage
		}
		if input.Body.MitigationSteps != "" {
			existing.MitigationSteps = input.Body.MitigationSteps
		}
		if input.Body.Active != nil {
			existing.Active = *input.Body.Active
		}
		existing.UpdatedAt = time.Now()

		if err := store.Compliances().Update(ctx, existing); err != nil {
			return nil, huma.Error500InternalServerError("failed to update compliance", err)
		}

		return &UpdateComplianceOutput{Body: existing}, nil
	})
}
