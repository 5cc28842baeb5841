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

type CreateFrameworkInput struct {
	Body struct {
		Name          string     `json:"name" minLength:"1" maxLength:"255" doc:"Framework name"`
		Category      string     `json:"category,omitempty" maxLength:"255" doc:"Framework category"`
		Description   string     `json:"description,omitempty" doc:"Framework description"`
		EffectiveDate *time.Time `json:"effective_date,omitempty" doc:"Date the framework takes effect"`
	}
}

type CreateFrameworkOutput struct {
	Body *domain.Framework
}

type GetFrameworkInput struct {
	ID uuid.UUID `path:"id" doc:"Framework ID"`
}

type GetFrameworkOutput struct {
	Body *domain.Framework
}

type ListFrameworksInput struct {
	ActiveOnly bool `query:"active_only" doc:"Only return active frameworks"`
}

type ListFrameworksOutput struct {
	Body []*domain.Framework
}

type UpdateFrameworkInput struct {
	ID   uuid.UUID `path:"id" doc:"Framework ID"`
	Body struct {
		Name          string     `json:"name,omitempty" maxLength:"255" doc:"Framework name"`
		Category      string     `json:"category,omitempty" maxLength:"255" doc:"Framework category"`
		Description   string     `json:"description,omitempty" doc:"Framework description"`
		EffectiveDate *time.Time `json:"effective_date,omitempty" doc:"Date the framework takes effect"`
	}
}

type UpdateFrameworkOutput struct {
	Body *domain.Framework
}

type SetFrameworkActiveInput struct {
	ID   uuid.UUID `path:"id" doc:"Framework ID"`
	Body struct {
		Active bool `json:"active" doc:"Desired active state"`
	}
}

func RegisterFrameworkRoutes(api huma.API, store DataStore) {
	huma.Register(api, huma.Operation{
		OperationID: "create-framework",
		Method:      http.MethodPost,
		Path:        "/frameworks",
		Summary:     "Create a compliance framework",
		Tags:        []string{"Frameworks"},
	}, func(ctx context.Context, input *CreateFrameworkInput) (*CreateFrameworkOutput, error) {
		now := time.Now()
		f := &domain.Framework{
			ID:            uuid.New(),
			Name:          input.Body.Name,
			Category:      input.Body.Category,
			Description:   input.Body.Description,
			EffectiveDate: input.Body.EffectiveDate,
			Active:        true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		if err := store.Frameworks().Create(ctx, f); err != nil {
			return nil, huma.Error500InternalServerError("failed to create framework", err)
		}

		return &CreateFrameworkOutput{Body: f}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-framework",
		Method:      http.MethodGet,
		Path:        "/frameworks/{id}",
		Summary:     "Get a framework by ID",
		Tags:        []string{"Frameworks"},
	}, func(ctx context.Context, input *GetFrameworkInput) (*GetFrameworkOutput, error) {
		f, err := store.Frameworks().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("framework not found")
			}
			return nil, huma.Error500InternalServerError("failed to get framework", err)
		}

		return &GetFrameworkOutput{Body: f}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-frameworks",
		Method:      http.MethodGet,
		Path:        "/frameworks",
		Summary:     "List frameworks",
		Tags:        []string{"Frameworks"},
	}, func(ctx context.Context, input *ListFrameworksInput) (*ListFrameworksOutput, error) {
		frameworks, err := store.Frameworks().List(ctx, input.ActiveOnly)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list frameworks", err)
		}

		return &ListFrameworksOutput{Body: frameworks}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-framework",
		Method:      http.MethodPut,
		Path:        "/frameworks/{id}",
		Summary:     "Update a framework",
		Tags:        []string{"Frameworks"},
	}, func(ctx context.Context, input *UpdateFrameworkInput) (*UpdateFrameworkOutput, error) {
		existing, err := store.Frameworks().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("framework not found")
			}
			return nil, huma.Error500InternalServerError("failed to get framework", err)
		}

		if input.Body.Name != "" {
			existing.Name = input.Body.Name
		}
		if input.Body.Category != "" {
			existing.Category = input.Body.Category
		}
		if input.Body.Description != "" {
			existing.Description = input.Body.Description
		}
		if input.Body.EffectiveDate != nil {
			existing.EffectiveDate = input.Body.EffectiveDate
		}
		existing.UpdatedAt = time.Now()

		if err := store.Frameworks().Update(ctx, existing); err != nil {
			return nil, huma.Error500InternalServerError("failed to update framework", err)
		}

		return &UpdateFrameworkOutput{Body: existing}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-framework-active",
		Method:      http.MethodPatch,
		Path:        "/frameworks/{id}/active",
		Summary:     "Activate or deactivate a framework",
		Tags:        []string{"Frameworks"},
	}, func(ctx context.Context, input *SetFrameworkActiveInput) (*struct{}, error) {
		if err := store.Frameworks().SetActive(ctx, input.ID, input.Body.Active); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("framework not found")
			}
			return nil, huma.Error500InternalServerError("failed to update framework", err)
		}

		return nil, nil
	})
}
