package extract

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opengrc/attest/internal/domain"
	redisstore "github.com/opengrc/attest/internal/store/redis"
)

type fakeCompleter struct {
	reply string
	err   error
	calls int
	mu    sync.Mutex
}

func (f *fakeCompleter) CreateChatCompletion(_ context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.reply}},
		},
	}, nil
}

type fakeProgress struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*redisstore.Progress
}

func newFakeProgress() *fakeProgress {
	return &fakeProgress{entries: make(map[uuid.UUID]*redisstore.Progress)}
}

func (f *fakeProgress) Set(_ context.Context, p *redisstore.Progress) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.entries[p.JobID] = &cp
	return nil
}

func (f *fakeProgress) Get(_ context.Context, jobID uuid.UUID) (*redisstore.Progress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.entries[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// waitForTerminal polls until the job leaves queued/running or the deadline hits.
func waitForTerminal(t *testing.T, svc *Service, jobID uuid.UUID) *redisstore.Progress {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		p, err := svc.Progress(context.Background(), jobID)
		require.NoError(t, err)
		if p.State == redisstore.StateDone || p.State == redisstore.StateFailed {
			return p
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job never reached a terminal state")
	return nil
}

func TestStart_CompletesAndStoresResult(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{reply: "Quarterly access review"}
	svc := NewService(completer, "test-model", newFakeProgress())

	jobID, err := svc.Start(context.Background(), "full policy document text", []string{"scope", "objective"})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, jobID)

	p := waitForTerminal(t, svc, jobID)
	assert.Equal(t, redisstore.StateDone, p.State)
	assert.Equal(t, 100, p.Percent)
	assert.JSONEq(t, `{"scope":"Quarterly access review","objective":"Quarterly access review"}`, string(p.Result))
}

func TestStart_EmptyDocumentRejected(t *testing.T) {
	t.Parallel()

	svc := NewService(&fakeCompleter{}, "test-model", newFakeProgress())

	_, err := svc.Start(context.Background(), "   ", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestStart_CompletionFailureMarksJobFailed(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{err: errors.New("rate limited")}
	svc := NewService(completer, "test-model", newFakeProgress())

	jobID, err := svc.Start(context.Background(), "document", []string{"scope"})
	require.NoError(t, err)

	p := waitForTerminal(t, svc, jobID)
	assert.Equal(t, redisstore.StateFailed, p.State)
	assert.Contains(t, p.Message, "rate limited")
}

func TestProgress_UnknownJob(t *testing.T) {
	t.Parallel()

	svc := NewService(&fakeCompleter{}, "test-model", newFakeProgress())

	_, err := svc.Progress(context.Background(), uuid.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
