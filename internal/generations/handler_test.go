package generations

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"resumegen-backend/internal/llm"
)

func testIdentity(userID string, guest bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userId", userID)
		c.Set("isGuest", guest)
		c.Next()
	}
}

func newTestRouter(t *testing.T, f *fixture, userID string, guest bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	group := router.Group("/api/v1", testIdentity(userID, guest))
	NewHandler(f.svc, f.svc.Events).RegisterRoutes(group)
	return router
}

func TestStartEndpointAccepted(t *testing.T) {
	client := &fakeLLM{optimize: func(ctx context.Context, input llm.OptimizeInput) (llm.OptimizeResult, error) {
		return llm.OptimizeResult{Text: optimizedResume, Model: "mistral", Method: "ai_optimization"}, nil
	}}
	f := newFixture(t, client)
	router := newTestRouter(t, f, "u1", false)

	body := `{"documentId":"doc-1","jobDescription":"Go engineer","tone":"professional"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/generations", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp struct {
		GenerationID string `json:"generationId"`
		Stage        string `json:"stage"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.GenerationID)
	require.Equal(t, StageQueued, resp.Stage)

	waitForTerminal(t, f.repo, resp.GenerationID)
}

func TestStartEndpointConflictOnActiveRun(t *testing.T) {
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
	router := newTestRouter(t, f, "u1", false)

	post := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/generations",
			strings.NewReader(`{"documentId":"doc-1","jobDescription":"Go engineer"}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(rec, req)
		return rec
	}

	first := post()
	require.Equal(t, http.StatusAccepted, first.Code)

	second := post()
	require.Equal(t, http.StatusConflict, second.Code)
	require.Contains(t, second.Body.String(), "generation_in_progress")

	close(release)

	var resp struct {
		GenerationID string `json:"generationId"`
	}
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &resp))
	waitForTerminal(t, f.repo, resp.GenerationID)
}

func TestStartEndpointRejectsBadTone(t *testing.T) {
	f := newFixture(t, nil)
	router := newTestRouter(t, f, "u1", false)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/generations",
		strings.NewReader(`{"documentId":"doc-1","jobDescription":"Go engineer","tone":"pirate"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "validation_error")
}

func TestGetEndpointReturnsRun(t *testing.T) {
	f := newFixture(t, nil)
	router := newTestRouter(t, f, "u1", false)

	run, err := f.svc.Start(context.Background(), StartInput{
		UserID: "u1", DocumentID: "doc-1", JobDescription: "Go engineer",
	})
	require.NoError(t, err)
	waitForTerminal(t, f.repo, run.ID)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/generations/"+run.ID, nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, StageComplete, resp["stage"])
	require.Equal(t, float64(100), resp["progress"])
	require.NotNil(t, resp["result"])
}

func TestGetEndpointUnknownRun(t *testing.T) {
	f := newFixture(t, nil)
	router := newTestRouter(t, f, "u1", false)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/generations/nope", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListEndpointRequiresLogin(t *testing.T) {
	f := newFixture(t, nil)
	router := newTestRouter(t, f, "guest:abc", true)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/generations", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "login_required")
}

func TestCancelEndpoint(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	client := &fakeLLM{optimize: func(ctx context.Context, input llm.OptimizeInput) (llm.OptimizeResult, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return llm.OptimizeResult{}, ctx.Err()
		}
		return llm.OptimizeResult{Text: optimizedResume, Model: "mistral", Method: "ai_optimization"}, nil
	}}
	f := newFixture(t, client)
	router := newTestRouter(t, f, "u1", false)

	run, err := f.svc.Start(context.Background(), StartInput{
		UserID: "u1", DocumentID: "doc-1", JobDescription: "Go engineer",
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/generations/"+run.ID+"/cancel", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), StageCancelled)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/generations/"+run.ID+"/cancel", nil)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestEventsEndpointStreamsTerminalSnapshot(t *testing.T) {
	f := newFixture(t, nil)
	router := newTestRouter(t, f, "u1", false)

	run, err := f.svc.Start(context.Background(), StartInput{
		UserID: "u1", DocumentID: "doc-1", JobDescription: "Go engineer with Docker",
	})
	require.NoError(t, err)
	waitForTerminal(t, f.repo, run.ID)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/generations/"+run.ID+"/events", nil)

	done := make(chan struct{})
	go func() {
		router.ServeHTTP(rec, req)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("SSE handler did not finish for a terminal run")
	}

	require.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	scanner := bufio.NewScanner(rec.Body)
	var eventLine, dataLine string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event: ") {
			eventLine = strings.TrimPrefix(line, "event: ")
		}
		if strings.HasPrefix(line, "data: ") {
			dataLine = strings.TrimPrefix(line, "data: ")
		}
	}
	require.Equal(t, EventComplete, eventLine)

	var ev Event
	require.NoError(t, json.Unmarshal([]byte(dataLine), &ev))
	require.Equal(t, run.ID, ev.RunID)
	require.Equal(t, StageComplete, ev.Stage)
	require.NotNil(t, ev.Result)
}

type hookedRepo struct {
	Repo
	afterGet func()
}

func (r *hookedRepo) GetByID(ctx context.Context, runID string) (Run, error) {
	run, err := r.Repo.GetByID(ctx, runID)
	r.afterGet()
	return run, err
}

func TestEventsEndpointKeepsEventPublishedDuringSnapshotRead(t *testing.T) {
	f := newFixture(t, nil)

	run := Run{
		ID:             "run-race",
		UserID:         "u1",
		DocumentID:     "doc-1",
		JobDescription: "Go engineer",
		Stage:          StageQueued,
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, f.repo.Create(context.Background(), run))

	// The terminal event lands while the handler is reading the snapshot.
	var once sync.Once
	broker := f.svc.Events
	f.svc.Repo = &hookedRepo{Repo: f.repo, afterGet: func() {
		once.Do(func() {
			broker.Publish(Event{Type: EventComplete, RunID: run.ID, Stage: StageComplete, Progress: 100})
		})
	}}
	router := newTestRouter(t, f, "u1", false)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/generations/"+run.ID+"/events", nil).WithContext(ctx)

	done := make(chan struct{})
	go func() {
		router.ServeHTTP(rec, req)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("SSE handler did not finish after the terminal event")
	}
	require.NoError(t, ctx.Err(), "handler only returned because the request timed out")

	var eventLines []string
	scanner := bufio.NewScanner(rec.Body)
	for scanner.Scan() {
		if line := scanner.Text(); strings.HasPrefix(line, "event: ") {
			eventLines = append(eventLines, strings.TrimPrefix(line, "event: "))
		}
	}
	require.Equal(t, []string{EventProgress, EventComplete}, eventLines)
}
