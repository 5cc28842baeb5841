package v1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/opengrc/attest/internal/domain"
	"github.com/opengrc/attest/internal/extract"
)

type StartExtractInput struct {
	Body struct {
		Document string   `json:"document" minLength:"1" doc:"Document text to extract sections from"`
		Sections []string `json:"sections,omitempty" doc:"Section names to extract, defaults to scope/objective/business unit"`
	}
}

type StartExtractOutput struct {
	Status int
	Body   struct {
		JobID uuid.UUID `json:"job_id" doc:"Poll /documents/extract/{id} for progress"`
	}
}

type GetExtractInput struct {
	ID uuid.UUID `path:"id" doc:"Extraction job ID"`
}

type GetExtractOutput struct {
	Body struct {
		JobID     uuid.UUID       `json:"job_id"`
		State     string          `json:"state" doc:"queued, running, done, or failed"`
		Percent   int             `json:"percent"`
		Message   string          `json:"message,omitempty"`
		Result    json.RawMessage `json:"result,omitempty" doc:"Extracted sections, set once the job is done"`
		UpdatedAt time.Time       `json:"updated_at"`
	}
}

func RegisterExtractRoutes(api huma.API, extractor Extractor) {
	huma.Register(api, huma.Operation{
		OperationID:   "start-document-extract",
		Method:        http.MethodPost,
		Path:          "/documents/extract",
		Summary:       "Start an async LLM extraction of audit fields from a document",
		Tags:          []string{"Documents"},
		DefaultStatus: http.StatusAccepted,
	}, func(ctx context.Context, input *StartExtractInput) (*StartExtractOutput, error) {
		jobID, err := extractor.Start(ctx, input.Body.Document, input.Body.Sections)
		if err != nil {
			if errors.Is(err, extract.ErrEmptyDocument) {
				return nil, huma.Error422UnprocessableEntity("document must not be empty")
			}
			return nil, huma.Error500InternalServerError("failed to start extraction", err)
		}

		resp := &StartExtractOutput{Status: http.StatusAccepted}
		resp.Body.JobID = jobID
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-document-extract",
		Method:      http.MethodGet,
		Path:        "/documents/extract/{id}",
		Summary:     "Get the progress and result of an extraction job",
		Tags:        []string{"Documents"},
	}, func(ctx context.Context, input *GetExtractInput) (*GetExtractOutput, error) {
		p, err := extractor.Progress(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("extraction job not found")
			}
			return nil, huma.Error500InternalServerError("failed to get extraction progress", err)
		}

		resp := &GetExtractOutput{}
		resp.Body.JobID = p.JobID
		resp.Body.State = p.State
		resp.Body.Percent = p.Percent
		resp.Body.Message = p.Message
		resp.Body.Result = p.Result
		resp.Body.UpdatedAt = p.UpdatedAt
		return resp, nil
	})
}
