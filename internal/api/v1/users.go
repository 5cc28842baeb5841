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

// UserView is a user without credential material.
type UserView struct {
	ID          uuid.UUID       `json:"id"`
	Email       string          `json:"email"`
	Name        string          `json:"name"`
	Role        domain.UserRole `json:"role"`
	SlackUserID string          `json:"slack_user_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

func toUserView(u *domain.User) UserView {
	return UserView{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Role:        u.Role,
		SlackUserID: u.SlackUserID,
		CreatedAt:   u.CreatedAt,
	}
}

type ListUsersOutput struct {
	Body []UserView
}

type GetUserInput struct {
	ID uuid.UUID `path:"id" doc:"User ID"`
}

type GetUserOutput struct {
	Body UserView
}

type UpdateUserInput struct {
	ID   uuid.UUID `path:"id" doc:"User ID"`
	Body struct {
		Name        string          `json:"name,omitempty" maxLength:"255"`
		Role        domain.UserRole `json:"role,omitempty" enum:"admin,auditor,reviewer"`
		SlackUserID string          `json:"slack_user_id,omitempty" maxLength:"64" doc:"Slack member ID for notifications"`
	}
}

type UpdateUserOutput struct {
	Body UserView
}

func RegisterUserRoutes(api huma.API, store DataStore) {
	huma.Register(api, huma.Operation{
		OperationID: "list-users",
		Method:      http.MethodGet,
		Path:        "/users",
		Summary:     "List users for auditor and reviewer assignment",
		Tags:        []string{"Users"},
	}, func(ctx context.Context, _ *struct{}) (*ListUsersOutput, error) {
		users, err := store.Users().List(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list users", err)
		}

		views := make([]UserView, 0, len(users))
		for _, u := range users {
			views = append(views, toUserView(u))
		}

		return &ListUsersOutput{Body: views}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-user",
		Method:      http.MethodGet,
		Path:        "/users/{id}",
		Summary:     "Get a user by ID",
		Tags:        []string{"Users"},
	}, func(ctx context.Context, input *GetUserInput) (*GetUserOutput, error) {
		u, err := store.Users().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("user not found")
			}
			return nil, huma.Error500InternalServerError("failed to get user", err)
		}

		return &GetUserOutput{Body: toUserView(u)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-user",
		Method:      http.MethodPut,
		Path:        "/users/{id}",
		Summary:     "Update a user's profile, role, or Slack mapping",
		Tags:        []string{"Users"},
	}, func(ctx context.Context, input *UpdateUserInput) (*UpdateUserOutput, error) {
		u, err := store.Users().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("user not found")
			}
			return nil, huma.Error500InternalServerError("failed to get user", err)
		}

		if input.Body.Name != "" {
			u.Name = input.Body.Name
		}
		if input.Body.Role != "" {
			u.Role = input.Body.Role
		}
		if input.Body.SlackUserID != "" {
			u.SlackUserID = input.Body.SlackUserID
		}
		u.UpdatedAt = time.Now()

		if err := store.Users().Update(ctx, u); err != nil {
			return nil, huma.Error500InternalServerError("failed to update user", err)
		}

		return &UpdateUserOutput{Body: toUserView(u)}, nil
	})
}
