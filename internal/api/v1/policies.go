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

type CreatePolicyInput struct {
	Body struct {
		FrameworkID uuid.UUID `json:"framework_id" doc:"Parent framework ID"`
		Name        string    `json:"name" minLength:"1" maxLength:"255" doc:"Policy name"`
		Department  string    `json:"department,omitempty" maxLength:"255" doc:"Owning department"`
		Scope       string    `json:"scope,omitempty" doc:"Policy scope"`
		Objective   string    `json:"objective,omitempty" doc:"Policy objective"`
	}
}

type CreatePolicyOutput struct {
	Body *domain.Policy
}

type GetPolicyInput struct {
	ID uuid.UUID `path:"id" doc:"Policy ID"`
}

type GetPolicyOutput struct {
	Body *domain.Policy
}

type ListPoliciesInput struct {
	FrameworkID uuid.UUID `query:"framework_id" required:"true" doc:"Framework ID"`
}

type ListPoliciesOutput struct {
	Body []*domain.Policy
}

type UpdatePolicyInput struct {
	ID   uuid.UUID `path:"id" doc:"Policy ID"`
	Body struct {
		Name       string `json:"name,omitempty" maxLength:"255" doc:"Policy name"`
		Department string `json:"department,omitempty" maxLength:"255" doc:"Owning department"`
		Scope      string `json:"scope,omitempty" doc:"Policy scope"`
		Objective  string `json:"objective,omitempty" doc:"Policy objective"`
	}
}

type UpdatePolicyOutput struct {
	Body *domain.Policy
}

type CreateSubPolicyInput struct {
	Body struct {
		PolicyID    uuid.UUID `json:"policy_id" doc:"Parent policy ID"`
		Name        string    `json:"name" minLength:"1" maxLength:"255" doc:"Sub-policy name"`
		Control     string    `json:"control,omitempty" maxLength:"255" doc:"Control identifier"`
		Description string    `json:"description,omitempty" doc:"Sub-policy description"`
		Permanent   bool      `json:"permanent,omitempty" doc:"Permanent control (false = temporary)"`
	}
}

type CreateSubPolicyOutput struct {
	Body *domain.SubPolicy
}

type GetSubPolicyInput struct {
	ID uuid.UUID `path:"id" doc:"Sub-policy ID"`
}

type GetSubPolicyOutput struct {
	Body *domain.SubPolicy
}

type ListSubPoliciesInput struct {
	PolicyID uuid.UUID `query:"policy_id" required:"true" doc:"Policy ID"`
}

type ListSubPoliciesOutput struct {
	Body []*domain.SubPolicy
}

type UpdateSubPolicyInput struct {
	ID   uuid.UUID `path:"id" doc:"Sub-policy ID"`
	Body struct {
		Name        string `json:"name,omitempty" maxLength:"255" doc:"Sub-policy name"`
		Control     string `json:"control,omitempty" maxLength:"255" doc:"Control identifier"`
		Description string `json:"description,omitempty" doc:"Sub-policy description"`
		Permanent   *bool  `json:"permanent,omitempty" doc:"Permanent control (false = temporary)"`
	}
}

type UpdateSubPolicyOutput struct {
	Body *domain.SubPolicy
}

func RegisterPolicyRoutes(api huma.API, store DataStore) {
	huma.Register(api, huma.Operation{
		OperationID: "create-policy",
		Method:      http.MethodPost,
		Path:        "/policies",
		Summary:     "Create a policy under a framework",
		Tags:        []string{"Policies"},
	}, func(ctx context.Context, input *CreatePolicyInput) (*CreatePolicyOutput, error) {
		if _, err := store.Frameworks().GetByID(ctx, input.Body.FrameworkID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("framework not found")
			}
			return nil, huma.Error500InternalServerError("failed to validate framework", err)
		}

		now := time.Now()
		p := &domain.Policy{
			ID:          uuid.New(),
			FrameworkID: input.Body.FrameworkID,
			Name:        input.Body.Name,
			Department:  input.Body.Department,
			Scope:       input.Body.Scope,
			Objective:   input.Body.Objective,
			Active:      true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if err := store.Policies().Create(ctx, p); err != nil {
			return nil, huma.Error500InternalServerError("failed to create policy", err)
		}

		return &CreatePolicyOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-policy",
		Method:      http.MethodGet,
		Path:        "/policies/{id}",
		Summary:     "Get a policy by ID",
		Tags:        []string{"Policies"},
	}, func(ctx context.Context, input *GetPolicyInput) (*GetPolicyOutput, error) {
		p, err := store.Policies().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("policy not found")
			}
			return nil, huma.Error500InternalServerError("failed to get policy", err)
		}

		return &GetPolicyOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-policies",
		Method:      http.MethodGet,
		Path:        "/policies",
		Summary:     "List policies for a framework",
		Tags:        []string{"Policies"},
	}, func(ctx context.Context, input *ListPoliciesInput) (*ListPoliciesOutput, error) {
		policies, err := store.Policies().ListByFramework(ctx, input.FrameworkID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list policies", err)
		}

		return &ListPoliciesOutput{Body: policies}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-policy",
		Method:      http.MethodPut,
		Path:        "/policies/{id}",
		Summary:     "Update a policy",
		Tags:        []string{"Policies"},
	}, func(ctx context.Context, input *UpdatePolicyInput) (*UpdatePolicyOutput, error) {
		existing, err := store.Policies().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("policy not found")
			}
			return nil, huma.Error500InternalServerError("failed to get policy", err)
		}

		if input.Body.Name != "" {
			existing.Name = input.Body.Name
		}
		if input.Body.Department != "" {
			existing.Department = input.Body.Department
		}
		if input.Body.Scope != "" {
			existing.Scope = input.Body.Scope
		}
		if input.Body.Objective != "" {
			existing.Objective = input.Body.Objective
		}
		existing.UpdatedAt = time.Now()

		if err := store.Policies().Update(ctx, existing); err != nil {
			return nil, huma.Error500InternalServerError("failed to update policy", err)
		}

		return &UpdatePolicyOutput{Body: existing}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "create-subpolicy",
		Method:      http.MethodPost,
		Path:        "/subpolicies",
		Summary:     "Create a sub-policy under a policy",
		Tags:        []string{"Policies"},
	}, func(ctx context.Context, input *CreateSubPolicyInput) (*CreateSubPolicyOutput, error) {
		if _, err := store.Policies().GetByID(ctx, input.Body.PolicyID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("policy not found")
			}
			return nil, huma.Error500InternalServerError("failed to validate policy", err)
		}

		now := time.Now()
		sp := &domain.SubPolicy{
			ID:          uuid.New(),
			PolicyID:    input.Body.PolicyID,
			Name:        input.Body.Name,
			Control:     input.Body.Control,
			Description: input.Body.Description,
			Permanent:   input.Body.Permanent,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if err := store.SubPolicies().Create(ctx, sp); err != nil {
			return nil, huma.Error500InternalServerError("failed to create sub-policy", err)
		}

		return &CreateSubPolicyOutput{Body: sp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-subpolicy",
		Method:      http.MethodGet,
		Path:        "/subpolicies/{id}",
		Summary:     "Get a sub-policy by ID",
		Tags:        []string{"Policies"},
	}, func(ctx context.Context, input *GetSubPolicyInput) (*GetSubPolicyOutput, error) {
		sp, err := store.SubPolicies().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("sub-policy not found")
			}
			return nil, huma.Error500InternalServerError("failed to get sub-policy", err)
		}

		return &GetSubPolicyOutput{Body: sp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-subpolicies",
		Method:      http.MethodGet,
		Path:        "/subpolicies",
		Summary:     "List sub-policies for a policy",
		Tags:        []string{"Policies"},
	}, func(ctx context.Context, input *ListSubPoliciesInput) (*ListSubPoliciesOutput, error) {
		subPolicies, err := store.SubPolicies().ListByPolicy(ctx, input.PolicyID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list sub-policies", err)
		}

		return &ListSubPoliciesOutput{Body: subPolicies}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-subpolicy",
		Method:      http.MethodPut,
		Path:        "/subpolicies/{id}",
		Summary:     "Update a sub-policy",
		Tags:        []string{"Policies"},
	}, func(ctx context.Context, input *UpdateSubPolicyInput) (*UpdateSubPolicyOutput, error) {
		existing, err := store.SubPolicies().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("sub-policy not found")
			}
			return nil, huma.Error500InternalServerError("failed to get sub-policy", err)
		}

		if input.Body.Name != "" {
			existing.Name = input.Body.Name
		}
		if input.Body.Control != "" {
			existing.Control = input.Body.Control
		}
		if input.Body.Description != "" {
			existing.Description = input.Body.Description
		}
		if input.Body.Permanent != nil {
			existing.Permanent = *input.Body.Permanent
		}
		existing.UpdatedAt = time.Now()

		if err := store.SubPolicies().Update(ctx, existing); err != nil {
			return nil, huma.Error500InternalServerError("failed to update sub-policy", err)
		}

		return &UpdateSubPolicyOutput{Body: existing}, nil
	})
}
