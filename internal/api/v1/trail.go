package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/opengrc/attest/internal/domain"
	"github.com/opengrc/attest/internal/server/middleware"
)

// recordTrail writes an audit-trail entry for a mutating request. Trail
// emission is best-effort: a failure is logged and never fails the request
// that triggered it.
func recordTrail(ctx context.Context, store DataStore, action, resource string, resourceID uuid.UUID, details map[string]any) {
	actorID, _ := middleware.UserIDFromContext(ctx)

	entry := &domain.TrailEntry{
		ID:         uuid.New(),
		ActorID:    actorID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Details:    details,
		CreatedAt:  time.Now(),
	}
	if err := store.Trail().Record(ctx, entry); err != nil {
		log.Error().Err(err).
			Str("action", action).
			Str("resource", resource).
			Str("resource_id", resourceID.String()).
			Msg("trail: failed to record entry")
	}
}

type ListTrailInput struct {
	Limit  int `query:"limit" minimum:"1" maximum:"500" doc:"Maximum entries to return"`
	Offset int `query:"offset" minimum:"0" doc:"Entries to skip"`
}

type ListTrailOutput struct {
	Body []*domain.TrailEntry
}

type ListResourceTrailInput struct {
	Resource   string    `path:"resource" doc:"Resource kind (audit, version, finding, ...)"`
	ResourceID uuid.UUID `path:"id" doc:"Resource ID"`
}

type ListResourceTrailOutput struct {
	Body []*domain.TrailEntry
}

func RegisterTrailRoutes(api huma.API, store DataStore) {
	huma.Register(api, huma.Operation{
		OperationID: "list-trail",
		Method:      http.MethodGet,
		Path:        "/trail",
		Summary:     "List recent audit-trail entries",
		Tags:        []string{"Trail"},
	}, func(ctx context.Context, input *ListTrailInput) (*ListTrailOutput, error) {
		entries, err := store.Trail().ListRecent(ctx, input.Limit, input.Offset)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list trail entries", err)
		}

		return &ListTrailOutput{Body: entries}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-resource-trail",
		Method:      http.MethodGet,
		Path:        "/trail/{resource}/{id}",
		Summary:     "List audit-trail entries for one resource",
		Tags:        []string{"Trail"},
	}, func(ctx context.Context, input *ListResourceTrailInput) (*ListResourceTrailOutput, error) {
		entries, err := store.Trail().ListByResource(ctx, input.Resource, input.ResourceID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list trail entries", err)
		}

		return &ListResourceTrailOutput{Body: entries}, nil
	})
}
