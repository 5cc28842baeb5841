package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	redisstore "github.com/opengrc/attest/internal/store/redis"
)

// completionClient is the slice of the OpenAI client the service uses.
// *openai.Client satisfies it; tests substitute a fake.
type completionClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// progressStore persists job progress between requests.
// *redisstore.ProgressStore satisfies it.
type progressStore interface {
	Set(ctx context.Context, p *redisstore.Progress) error
	Get(ctx context.Context, jobID uuid.UUID) (*redisstore.Progress, error)
}

// ErrEmptyDocument is returned when an extraction request carries no text.
var ErrEmptyDocument = errors.New("extract: empty document")

// jobTimeout bounds one whole extraction job, all sections included.
const jobTimeout = 10 * time.Minute

const systemPrompt = "You extract the requested section from a governance " +
	"document. Reply with the section text only, no commentary. If the " +
	"section is absent reply with an empty string."

// Service extracts named sections (scope, objective, business unit, ...)
// from uploaded policy documents with an LLM, tracking progress per job.
type Service struct {
	client   completionClient
	model    string
	progress progressStore
}

func NewService(client completionClient, model string, progress progressStore) *Service {
	return &Service{
		client:   client,
		model:    model,
		progress: progress,
	}
}

// NewOpenAIService wires a Service to the real OpenAI API.
func NewOpenAIService(apiKey, model string, progress progressStore) *Service {
	return NewService(openai.NewClient(apiKey), model, progress)
}

// Start begins an asynchronous extraction job and returns its id. Progress
// is readable via Progress until the store's TTL expires.
func (s *Service) Start(ctx context.Context, document string, sections []string) (uuid.UUID, error) {
	if strings.TrimSpace(document) == "" {
		return uuid.Nil, fmt.Errorf("extract.Start: %w", ErrEmptyDocument)
	}
	if len(sections) == 0 {
		sections = []string{"scope", "objective", "business unit"}
	}

	jobID := uuid.New()

	err := s.progress.Set(ctx, &redisstore.Progress{
		JobID:   jobID,
		State:   redisstore.StateQueued,
		Percent: 0,
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("extract.Start: %w", err)
	}

	// The job outlives the HTTP request that started it.
	go s.run(context.WithoutCancel(ctx), jobID, document, sections)

	return jobID, nil
}

// Progress returns the current state of a job. domain.ErrNotFound surfaces
// for unknown or expired jobs.
func (s *Service) Progress(ctx context.Context, jobID uuid.UUID) (*redisstore.Progress, error) {
	p, err := s.progress.Get(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("extract.Progress: %w", err)
	}
	return p, nil
}

func (s *Service) run(ctx context.Context, jobID uuid.UUID, document string, sections []string) {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	s.setProgress(ctx, jobID, redisstore.StateRunning, 0, "", nil)

	results := make(map[string]string, len(sections))
	for i, section := range sections {
		text, err := s.extractSection(ctx, document, section)
		if err != nil {
			log.Error().Err(err).
				Str("job_id", jobID.String()).
				Str("section", section).
				Msg("section extraction failed")
			s.setProgress(ctx, jobID, redisstore.StateFailed, 0, err.Error(), nil)
			return
		}
		results[section] = text

		percent := (i + 1) * 100 / len(sections)
		s.setProgress(ctx, jobID, redisstore.StateRunning, percent, "", nil)
	}

	raw, err := json.Marshal(results)
	if err != nil {
		s.setProgress(ctx, jobID, redisstore.StateFailed, 0, err.Error(), nil)
		return
	}

	s.setProgress(ctx, jobID, redisstore.StateDone, 100, "", raw)
}

func (s *Service) extractSection(ctx context.Context, document, section string) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Section: " + section + "\n\nDocument:\n" + document},
		},
	})
	if err != nil {
		return "", fmt.Errorf("extract.extractSection: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("extract.extractSection: no choices returned")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (s *Service) setProgress(ctx context.Context, jobID uuid.UUID, state string, percent int, message string, result []byte) {
	err := s.progress.Set(ctx, &redisstore.Progress{
		JobID:   jobID,
		State:   state,
		Percent: percent,
		Message: message,
		Result:  result,
	})
	if err != nil {
		log.Error().Err(err).Str("job_id", jobID.String()).Msg("progress update failed")
	}
}
