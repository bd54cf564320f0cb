package generations

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"resumegen-backend/internal/documents"
	"resumegen-backend/internal/llm"
	"resumegen-backend/internal/usage"
)

const optimizedResume = `**CONTACT INFORMATION**
Jane Doe | jane@example.com | San Francisco

**PROFESSIONAL SUMMARY**
Backend engineer with 8 years of experience building Go services. Shipped platforms used by millions.

**PROFESSIONAL EXPERIENCE**
Senior Engineer | Acme Corp | 2019 - Present
- Led migration to Kubernetes
- Cut deployment time by 40%

**KEY SKILLS**
- Go
- PostgreSQL

**EDUCATION**
- BSc Computer Science`

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (s *memStore) Save(ctx context.Context, userId, fileName string, r io.Reader) (string, int64, string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, "", err
	}
	key := userId + "/" + fileName
	s.mu.Lock()
	s.objects[key] = data
	s.mu.Unlock()
	return key, int64(len(data)), "text/plain", nil
}

func (s *memStore) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	s.mu.Lock()
	data, ok := s.objects[storageKey]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("object not found: %s", storageKey)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type fakeLLM struct {
	optimize func(ctx context.Context, input llm.OptimizeInput) (llm.OptimizeResult, error)
}

func (f *fakeLLM) Optimize(ctx context.Context, input llm.OptimizeInput) (llm.OptimizeResult, error) {
	return f.optimize(ctx, input)
}

func (f *fakeLLM) ListModels(ctx context.Context) ([]string, error) {
	return []string{"mistral"}, nil
}

type recordedEvent struct {
	EventType    string
	GenerationID string
	Detail       string
}

type fakeActivity struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeActivity) Record(ctx context.Context, userID, eventType, generationID, documentID, detail string) {
	f.mu.Lock()
	f.events = append(f.events, recordedEvent{EventType: eventType, GenerationID: generationID, Detail: detail})
	f.mu.Unlock()
}

func (f *fakeActivity) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, ev := range f.events {
		out[i] = ev.EventType
	}
	return out
}

type fixture struct {
	svc      *Service
	repo     *MemoryRepo
	docs     *documents.MemoryRepo
	store    *memStore
	activity *fakeActivity
	doc      documents.Document
}

func newFixture(t *testing.T, client llm.Client) *fixture {
	t.Helper()

	store := newMemStore()
	extractedKey := "u1/resume.pdf.extracted.txt"
	store.objects[extractedKey] = []byte("Jane Doe. Backend engineer, 8 years of Go, PostgreSQL and Kubernetes. BSc Computer Science.")

	docs := documents.NewMemoryRepo()
	now := time.Now().UTC()
	doc := documents.Document{
		ID:               "doc-1",
		UserID:           "u1",
		FileName:         "resume.pdf",
		MimeType:         documents.MimePDF,
		StorageKey:       "u1/resume.pdf",
		ExtractedTextKey: extractedKey,
		ExtractedAt:      &now,
		CreatedAt:        now,
	}
	require.NoError(t, docs.Create(context.Background(), doc))

	activity := &fakeActivity{}
	repo := NewMemoryRepo()
	svc := &Service{
		Repo:     repo,
		DocRepo:  docs,
		Store:    store,
		LLM:      client,
		Usage:    usage.NewService(usage.NewMemoryStore()),
		Events:   NewBroker(),
		Activity: activity,
		Timeout:  5 * time.Second,
	}
	return &fixture{svc: svc, repo: repo, docs: docs, store: store, activity: activity, doc: doc}
}

func waitForTerminal(t *testing.T, repo Repo, runID string) Run {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		run, err := repo.GetByID(context.Background(), runID)
		require.NoError(t, err)
		if IsTerminal(run.Stage) {
			return run
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("run never reached a terminal stage")
	return Run{}
}

func TestStartCompletesPipeline(t *testing.T) {
	client := &fakeLLM{optimize: func(ctx context.Context, input llm.OptimizeInput) (llm.OptimizeResult, error) {
		return llm.OptimizeResult{Text: optimizedResume, Model: "mistral", Method: "ai_optimization"}, nil
	}}
	f := newFixture(t, client)

	run, err := f.svc.Start(context.Background(), StartInput{
		UserID:         "u1",
		DocumentID:     "doc-1",
		JobDescription: "Senior Go engineer with Kubernetes and PostgreSQL experience.",
		Tone:           "tech",
	})
	require.NoError(t, err)
	require.Equal(t, StageQueued, run.Stage)
	require.Equal(t, llm.ToneTech, run.Tone)

	final := waitForTerminal(t, f.repo, run.ID)
	require.Equal(t, StageComplete, final.Stage)
	require.Equal(t, 100, final.Progress)
	require.NotNil(t, final.StartedAt)
	require.NotNil(t, final.CompletedAt)

	require.NotNil(t, final.Result)
	require.Equal(t, "Jane Doe", final.Result.Name)
	require.Equal(t, "ai_optimization", final.Result.Method)
	require.Equal(t, []string{"Go", "PostgreSQL"}, final.Result.Skills)
	require.Len(t, final.Result.Experience, 1)
	require.Equal(t, "Senior Engineer", final.Result.Experience[0].Title)
	require.Greater(t, final.Result.ATS.Score, 0)

	require.Equal(t, []string{"generation_started", "generation_completed"}, f.activity.types())
}

func TestStartValidatesInput(t *testing.T) {
	f := newFixture(t, nil)

	cases := []struct {
		name  string
		input StartInput
	}{
		{"missing document", StartInput{UserID: "u1", JobDescription: "job"}},
		{"missing job description", StartInput{UserID: "u1", DocumentID: "doc-1"}},
		{"blank job description", StartInput{UserID: "u1", DocumentID: "doc-1", JobDescription: "   "}},
		{"unknown document", StartInput{UserID: "u1", DocumentID: "nope", JobDescription: "job"}},
		{"unknown tone", StartInput{UserID: "u1", DocumentID: "doc-1", JobDescription: "job", Tone: "pirate"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Start(context.Background(), tc.input)
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestStartRejectsSecondActiveRun(t *testing.T) {
	release := make(chan struct{})
	client := &fakeLLM{optimize: func(ctx context.Context, input llm.OptimizeInput) (llm.OptimizeResult, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return llm.OptimizeResult{}, ctx.Err()
		}
		return llm.OptimizeResult{Text: optimizedResume, Model: "mistral", Method: "ai_optimization"}, nil
	}}
	f := newFixture(t, client)

	first, err := f.svc.Start(context.Background(), StartInput{
		UserID: "u1", DocumentID: "doc-1", JobDescription: "Go engineer",
	})
	require.NoError(t, err)

	_, err = f.svc.Start(context.Background(), StartInput{
		UserID: "u1", DocumentID: "doc-1", JobDescription: "Go engineer",
	})
	require.ErrorIs(t, err, ErrActiveRun)

	close(release)
	waitForTerminal(t, f.repo, first.ID)
}

func TestFallbackWhenLLMUnavailable(t *testing.T) {
	client := &fakeLLM{optimize: func(ctx context.Context, input llm.OptimizeInput) (llm.OptimizeResult, error) {
		return llm.OptimizeResult{}, fmt.Errorf("connect: %w", llm.ErrUnavailable)
	}}
	f := newFixture(t, client)

	run, err := f.svc.Start(context.Background(), StartInput{
		UserID: "u1", DocumentID: "doc-1", JobDescription: "Go engineer with Docker experience",
	})
	require.NoError(t, err)

	final := waitForTerminal(t, f.repo, run.ID)
	require.Equal(t, StageComplete, final.Stage)
	require.NotNil(t, final.Result)
	require.Equal(t, "rule_based_optimization", final.Result.Method)
	require.Equal(t, "fallback", final.Result.Model)
}

func TestLLMTimeoutFailsRun(t *testing.T) {
	client := &fakeLLM{optimize: func(ctx context.Context, input llm.OptimizeInput) (llm.OptimizeResult, error) {
		return llm.OptimizeResult{}, llm.ErrTimeout
	}}
	f := newFixture(t, client)

	run, err := f.svc.Start(context.Background(), StartInput{
		UserID: "u1", DocumentID: "doc-1", JobDescription: "Go engineer",
	})
	require.NoError(t, err)

	final := waitForTerminal(t, f.repo, run.ID)
	require.Equal(t, StageFailed, final.Stage)
	require.Equal(t, ErrorCodeLLMTimeout, final.ErrorCode)
	require.Nil(t, final.Result)
	require.Contains(t, f.activity.types(), "generation_failed")
}

func TestCancelStopsRun(t *testing.T) {
	release := make(chan struct{})
	client := &fakeLLM{optimize: func(ctx context.Context, input llm.OptimizeInput) (llm.OptimizeResult, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return llm.OptimizeResult{}, ctx.Err()
		}
		return llm.OptimizeResult{Text: optimizedResume, Model: "mistral", Method: "ai_optimization"}, nil
	}}
	defer close(release)
	f := newFixture(t, client)

	run, err := f.svc.Start(context.Background(), StartInput{
		UserID: "u1", DocumentID: "doc-1", JobDescription: "Go engineer",
	})
	require.NoError(t, err)

	// Wait until the pipeline is blocked inside the optimizer.
	deadline := time.Now().Add(5 * time.Second)
	for {
		current, err := f.repo.GetByID(context.Background(), run.ID)
		require.NoError(t, err)
		if current.Stage == StageOptimizing {
			break
		}
		require.True(t, time.Now().Before(deadline), "run never reached optimizing")
		time.Sleep(5 * time.Millisecond)
	}

	cancelled, err := f.svc.Cancel(context.Background(), "u1", run.ID)
	require.NoError(t, err)
	require.Equal(t, StageCancelled, cancelled.Stage)

	// The aborted pipeline must not overwrite the cancelled stage.
	time.Sleep(50 * time.Millisecond)
	final, err := f.repo.GetByID(context.Background(), run.ID)
	require.NoError(t, err)
	require.Equal(t, StageCancelled, final.Stage)

	_, err = f.svc.Cancel(context.Background(), "u1", run.ID)
	require.ErrorIs(t, err, ErrNotCancellable)
}

func TestStartEnforcesUsageLimit(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Usage.Consume(context.Background(), "u1", usage.DefaultLimit)
	require.NoError(t, err)

	_, err = f.svc.Start(context.Background(), StartInput{
		UserID: "u1", DocumentID: "doc-1", JobDescription: "Go engineer",
	})
	require.ErrorIs(t, err, usage.ErrLimitReached)
}

func TestGetHidesOtherUsersRuns(t *testing.T) {
	f := newFixture(t, nil)

	run, err := f.svc.Start(context.Background(), StartInput{
		UserID: "u1", DocumentID: "doc-1", JobDescription: "Go engineer",
	})
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), "u2", run.ID)
	require.ErrorIs(t, err, ErrNotFound)

	waitForTerminal(t, f.repo, run.ID)
}

func TestClassifyFailure(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{llm.ErrTimeout, ErrorCodeLLMTimeout},
		{context.DeadlineExceeded, ErrorCodeLLMTimeout},
		{llm.ErrUnavailable, ErrorCodeLLMUnavailable},
		{fmt.Errorf("fetch job posting: %w", errors.New("boom")), ErrorCodeFetch},
		{fmt.Errorf("%w: bad tone", llm.ErrUnknownTone), ErrorCodeValidation},
		{fmt.Errorf("document doc-1 mime application/pdf: broken"), ErrorCodeStorage},
		{errors.New("something else entirely"), ErrorCodeInternal},
	}
	for _, tc := range cases {
		if got := classifyFailure(tc.err); got != tc.want {
			t.Fatalf("classifyFailure(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestSanitizeErrorTruncatesAndFlattens(t *testing.T) {
	long := errors.New("line one\nline two\r\n" + string(bytes.Repeat([]byte("x"), 600)))
	msg := sanitizeError(long)
	require.NotContains(t, msg, "\n")
	require.LessOrEqual(t, len(msg), 500)
}

type flakyUsageStore struct {
	usage.Store
	mu       sync.Mutex
	failures int
}

func (s *flakyUsageStore) Consume(ctx context.Context, userID string, n int, d usage.Defaults, now time.Time) (usage.Period, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return usage.Period{}, errors.New("usage store offline")
	}
	return s.Store.Consume(ctx, userID, n, d, now)
}

func TestStartConsumeFailureDoesNotLeakActiveRun(t *testing.T) {
	client := &fakeLLM{optimize: func(ctx context.Context, input llm.OptimizeInput) (llm.OptimizeResult, error) {
		return llm.OptimizeResult{Text: optimizedResume, Model: "mistral", Method: "ai_optimization"}, nil
	}}
	f := newFixture(t, client)
	f.svc.Usage = usage.NewService(&flakyUsageStore{Store: usage.NewMemoryStore(), failures: 1})

	_, err := f.svc.Start(context.Background(), StartInput{
		UserID: "u1", DocumentID: "doc-1", JobDescription: "Go engineer",
	})
	require.Error(t, err)

	runs, err := f.repo.ListByUser(context.Background(), "u1", 10, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, StageFailed, runs[0].Stage)

	// The failed row must not block a retry.
	run, err := f.svc.Start(context.Background(), StartInput{
		UserID: "u1", DocumentID: "doc-1", JobDescription: "Go engineer",
	})
	require.NoError(t, err)
	final := waitForTerminal(t, f.repo, run.ID)
	require.Equal(t, StageComplete, final.Stage)
}
