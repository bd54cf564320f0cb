package generations

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"resumegen-backend/internal/ats"
	"resumegen-backend/internal/documents"
	"resumegen-backend/internal/extract"
	"resumegen-backend/internal/jobpostings"
	"resumegen-backend/internal/llm"
	"resumegen-backend/internal/shared/metrics"
	"resumegen-backend/internal/shared/storage/object"
	"resumegen-backend/internal/shared/telemetry"
	"resumegen-backend/internal/usage"
)

// ActivityLog records user-facing events. Failures are logged, never fatal.
type ActivityLog interface {
	Record(ctx context.Context, userID, eventType, generationID, documentID, detail string)
}

// Service runs the staged resume generation pipeline.
type Service struct {
	Repo     Repo
	DocRepo  documents.DocumentsRepo
	Store    object.ObjectStore
	LLM      llm.Client
	Fetcher  *jobpostings.Fetcher
	Usage    *usage.Service
	Events   *Broker
	Activity ActivityLog
	Timeout  time.Duration

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// StartInput carries the parameters of a new run.
type StartInput struct {
	UserID         string
	DocumentID     string
	JobDescription string
	Tone           string
}

// Start validates the request, enqueues a run, and kicks off asynchronous
// completion. At most one active run per user is allowed.
func (s *Service) Start(ctx context.Context, input StartInput) (Run, error) {
	if input.UserID == "" {
		return Run{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if input.DocumentID == "" {
		return Run{}, fmt.Errorf("%w: documentId is required", ErrInvalidInput)
	}
	if strings.TrimSpace(input.JobDescription) == "" {
		return Run{}, fmt.Errorf("%w: jobDescription is required", ErrInvalidInput)
	}

	tone, err := llm.ParseTone(input.Tone)
	if err != nil {
		return Run{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if _, err := s.DocRepo.GetByID(ctx, input.UserID, input.DocumentID); err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			return Run{}, fmt.Errorf("%w: document not found", ErrInvalidInput)
		}
		return Run{}, err
	}

	if s.Usage != nil {
		ok, _, err := s.Usage.CanConsume(ctx, input.UserID, 1)
		if err != nil {
			return Run{}, err
		}
		if !ok {
			return Run{}, usage.ErrLimitReached
		}
	}

	trimmed := strings.TrimSpace(input.JobDescription)
	run := Run{
		ID:             uuid.NewString(),
		UserID:         input.UserID,
		DocumentID:     input.DocumentID,
		JobDescription: trimmed,
		Tone:           tone,
		Stage:          StageQueued,
		Progress:       0,
		CreatedAt:      time.Now().UTC(),
	}
	if jobpostings.IsURL(trimmed) {
		run.JobDescriptionURL = trimmed
	}

	if err := s.Repo.Create(ctx, run); err != nil {
		return Run{}, err
	}

	if s.Usage != nil {
		if _, err := s.Usage.Consume(ctx, input.UserID, 1); err != nil {
			// A queued row with no pipeline behind it never terminates and
			// blocks every retry as a phantom active run.
			s.failRun(ctx, run.ID, run.UserID, StageQueued, fmt.Errorf("consume quota: %w", err), nil)
			return Run{}, err
		}
	}

	s.record(ctx, run.UserID, "generation_started", run.ID, run.DocumentID, "")
	go s.completeAsync(backgroundWithRequestID(ctx), run.ID)

	return run, nil
}

// Get returns a run owned by the user.
func (s *Service) Get(ctx context.Context, userID, runID string) (Run, error) {
	if runID == "" {
		return Run{}, fmt.Errorf("%w: run id is required", ErrInvalidInput)
	}
	run, err := s.Repo.GetByID(ctx, runID)
	if err != nil {
		return Run{}, err
	}
	if run.UserID != userID {
		return Run{}, ErrNotFound
	}
	return run, nil
}

// List returns runs for a user ordered newest-first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Run, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// Cancel stops an in-progress run. Terminal runs report ErrNotCancellable.
func (s *Service) Cancel(ctx context.Context, userID, runID string) (Run, error) {
	run, err := s.Get(ctx, userID, runID)
	if err != nil {
		return Run{}, err
	}

	completedAt := time.Now().UTC()
	if err := s.Repo.Cancel(ctx, runID, completedAt); err != nil {
		return Run{}, err
	}

	s.mu.Lock()
	if cancel, ok := s.cancels[runID]; ok {
		cancel()
		delete(s.cancels, runID)
	}
	s.mu.Unlock()

	metrics.IncGenerationCancelled()
	telemetry.Info("generation.stage", map[string]any{
		"request_id":       requestIDFromContext(ctx),
		"user_id":          userID,
		"generation_id":    runID,
		"stage":            StageCancelled,
		"stage_transition": run.Stage + "->" + StageCancelled,
	})
	s.publish(Event{Type: EventProgress, RunID: runID, Stage: StageCancelled, Progress: run.Progress})
	s.record(ctx, userID, "generation_cancelled", runID, run.DocumentID, "")

	run.Stage = StageCancelled
	run.CompletedAt = &completedAt
	run.Result = nil
	return run, nil
}

func (s *Service) completeAsync(ctx context.Context, runID string) {
	defer func() {
		if r := recover(); r != nil {
			s.failRun(ctx, runID, "", "", fmt.Errorf("panic: %v", r), nil)
		}
	}()

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.mu.Lock()
	if s.cancels == nil {
		s.cancels = make(map[string]context.CancelFunc)
	}
	s.cancels[runID] = cancel
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.cancels, runID)
		s.mu.Unlock()
	}()

	run, err := s.Repo.GetByID(ctx, runID)
	if err != nil {
		s.failRun(ctx, runID, "", "", fmt.Errorf("run lookup: %w", err), nil)
		return
	}

	startedAt := time.Now().UTC()
	metrics.IncGenerationStarted()

	// parsing: extract the resume text and resolve the job posting.
	if err := s.advance(ctx, &run, StageParsing, &startedAt); err != nil {
		s.failRun(ctx, runID, run.UserID, run.Stage, err, &startedAt)
		return
	}
	stageStart := time.Now()

	doc, err := s.DocRepo.GetByID(ctx, run.UserID, run.DocumentID)
	if err != nil {
		s.failRun(ctx, runID, run.UserID, StageParsing, fmt.Errorf("document lookup id=%s: %w", run.DocumentID, err), &startedAt)
		return
	}

	resumeText, err := s.loadResumeText(ctx, doc)
	if err != nil {
		s.failRun(ctx, runID, run.UserID, StageParsing, err, &startedAt)
		return
	}

	jobText := run.JobDescription
	if run.JobDescriptionURL != "" {
		fetcher := s.Fetcher
		if fetcher == nil {
			fetcher = jobpostings.NewFetcher()
		}
		jobText, _, err = fetcher.Resolve(ctx, run.JobDescriptionURL)
		if err != nil {
			s.failRun(ctx, runID, run.UserID, StageParsing, err, &startedAt)
			return
		}
	}
	if strings.TrimSpace(jobText) == "" {
		s.failRun(ctx, runID, run.UserID, StageParsing, fmt.Errorf("validation: empty job description after fetch"), &startedAt)
		return
	}
	metrics.ObserveStageDuration(StageParsing, time.Since(stageStart))

	// analyzing: ATS keyword analysis of resume vs. job text.
	if err := s.advance(ctx, &run, StageAnalyzing, nil); err != nil {
		s.failRun(ctx, runID, run.UserID, run.Stage, err, &startedAt)
		return
	}
	stageStart = time.Now()
	atsResult := ats.Score(resumeText, jobText)
	metrics.ObserveStageDuration(StageAnalyzing, time.Since(stageStart))

	// optimizing: LLM rewrite with rule-based fallback.
	if err := s.advance(ctx, &run, StageOptimizing, nil); err != nil {
		s.failRun(ctx, runID, run.UserID, run.Stage, err, &startedAt)
		return
	}
	stageStart = time.Now()
	optimized, err := s.optimize(ctx, llm.OptimizeInput{
		ResumeText:     resumeText,
		JobDescription: jobText,
		Tone:           run.Tone,
	})
	if err != nil {
		s.failRun(ctx, runID, run.UserID, StageOptimizing, err, &startedAt)
		return
	}
	metrics.ObserveStageDuration(StageOptimizing, time.Since(stageStart))

	// generating: assemble and persist the immutable result.
	if err := s.advance(ctx, &run, StageGenerating, nil); err != nil {
		s.failRun(ctx, runID, run.UserID, run.Stage, err, &startedAt)
		return
	}
	stageStart = time.Now()
	result := parseGeneratedResume(optimized.Text, atsResult, optimized.Model, optimized.Method)

	completedAt := time.Now().UTC()
	if err := s.Repo.Complete(ctx, runID, &result, completedAt); err != nil {
		s.failRun(ctx, runID, run.UserID, StageGenerating, fmt.Errorf("store result: %w", err), &startedAt)
		return
	}
	metrics.ObserveStageDuration(StageGenerating, time.Since(stageStart))
	metrics.IncGenerationCompleted()
	metrics.ObserveGenerationDuration(completedAt.Sub(startedAt))

	telemetry.Info("generation.stage", map[string]any{
		"request_id":       requestIDFromContext(ctx),
		"user_id":          run.UserID,
		"document_id":      run.DocumentID,
		"generation_id":    runID,
		"stage":            StageComplete,
		"stage_transition": StageGenerating + "->" + StageComplete,
		"duration_ms":      float64(completedAt.Sub(startedAt).Microseconds()) / 1000.0,
	})
	s.publish(Event{Type: EventComplete, RunID: runID, Stage: StageComplete, Progress: 100, Result: &result})
	s.record(ctx, run.UserID, "generation_completed", runID, run.DocumentID, fmt.Sprintf("ats_score=%d", result.ATS.Score))
}

// advance moves the run to the next stage and notifies subscribers.
func (s *Service) advance(ctx context.Context, run *Run, stage string, startedAt *time.Time) error {
	progress := ProgressFor(stage)
	if err := s.Repo.UpdateStage(ctx, run.ID, stage, progress, startedAt); err != nil {
		return fmt.Errorf("advance to %s: %w", stage, err)
	}
	telemetry.Info("generation.stage", map[string]any{
		"request_id":       requestIDFromContext(ctx),
		"user_id":          run.UserID,
		"document_id":      run.DocumentID,
		"generation_id":    run.ID,
		"stage":            stage,
		"stage_transition": run.Stage + "->" + stage,
	})
	run.Stage = stage
	if progress > run.Progress {
		run.Progress = progress
	}
	s.publish(Event{Type: EventProgress, RunID: run.ID, Stage: stage, Progress: run.Progress})
	return nil
}

func (s *Service) loadResumeText(ctx context.Context, doc documents.Document) (string, error) {
	extracted := false
	extractedKey := doc.ExtractedTextKey
	if extractedKey == "" {
		if _, err := extract.ExtractText(ctx, s.Store, doc.StorageKey, doc.MimeType, doc.FileName); err != nil {
			return "", fmt.Errorf("document %s mime %s: %w", doc.ID, doc.MimeType, err)
		}
		extracted = true
		extractedKey = doc.StorageKey + ".extracted.txt"
		if err := s.DocRepo.UpdateExtraction(ctx, doc.UserID, doc.ID, extractedKey, time.Now().UTC()); err != nil {
			return "", fmt.Errorf("document %s: update extraction: %w", doc.ID, err)
		}
	}
	text, err := loadText(ctx, s.Store, extractedKey)
	if err != nil && !extracted {
		// The cached extraction may have been cleaned up. Rebuild it once.
		if text, err = extract.ExtractText(ctx, s.Store, doc.StorageKey, doc.MimeType, doc.FileName); err == nil {
			return text, nil
		}
	}
	if err != nil {
		return "", fmt.Errorf("document %s: load extracted text: %w", doc.ID, err)
	}
	return text, nil
}

func (s *Service) optimize(ctx context.Context, input llm.OptimizeInput) (llm.OptimizeResult, error) {
	if s.LLM == nil {
		metrics.IncLLMFallback()
		return llm.FallbackOptimize(input), nil
	}
	result, err := s.LLM.Optimize(ctx, input)
	if err == nil {
		return result, nil
	}
	if errors.Is(err, llm.ErrUnavailable) {
		telemetry.Warn("generation.llm_fallback", map[string]any{"error": err.Error()})
		metrics.IncLLMFallback()
		return llm.FallbackOptimize(input), nil
	}
	return llm.OptimizeResult{}, err
}

func (s *Service) failRun(ctx context.Context, runID, userID, stage string, err error, startedAt *time.Time) {
	// Cancellation is recorded by Cancel; a canceled context here is not a failure.
	if errors.Is(err, context.Canceled) {
		if run, getErr := s.Repo.GetByID(context.Background(), runID); getErr == nil && run.Stage == StageCancelled {
			return
		}
	}

	code := classifyFailure(err)
	msg := sanitizeError(err)
	completedAt := time.Now().UTC()
	if updateErr := s.Repo.Fail(context.Background(), runID, code, msg, completedAt); updateErr != nil {
		if errors.Is(updateErr, ErrNotCancellable) {
			// Already terminal, nothing to record.
			return
		}
		telemetry.Error("generation.fail_update", map[string]any{
			"generation_id": runID,
			"error":         updateErr.Error(),
			"original":      msg,
		})
	}
	metrics.IncGenerationFailed()
	if startedAt != nil {
		metrics.ObserveGenerationDuration(completedAt.Sub(*startedAt))
	}
	telemetry.Info("generation.stage", map[string]any{
		"request_id":       requestIDFromContext(ctx),
		"user_id":          userID,
		"generation_id":    runID,
		"stage":            StageFailed,
		"stage_transition": stage + "->" + StageFailed,
		"error_code":       code,
		"error":            msg,
	})
	s.publish(Event{Type: EventError, RunID: runID, Stage: StageFailed, ErrorCode: code, ErrorMessage: msg})
	s.record(ctx, userID, "generation_failed", runID, "", code)
}

func (s *Service) publish(ev Event) {
	if s.Events != nil {
		s.Events.Publish(ev)
	}
}

func (s *Service) record(ctx context.Context, userID, eventType, generationID, documentID, detail string) {
	if s.Activity != nil {
		s.Activity.Record(ctx, userID, eventType, generationID, documentID, detail)
	}
}

func classifyFailure(err error) string {
	if err == nil {
		return ErrorCodeInternal
	}
	switch {
	case errors.Is(err, llm.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ErrorCodeLLMTimeout
	case errors.Is(err, llm.ErrUnavailable):
		return ErrorCodeLLMUnavailable
	case errors.Is(err, jobpostings.ErrUnreachable),
		errors.Is(err, jobpostings.ErrNotHTML),
		errors.Is(err, jobpostings.ErrEmptyContent):
		return ErrorCodeFetch
	case errors.Is(err, extract.ErrEmptyText),
		errors.Is(err, documents.ErrNotFound),
		errors.Is(err, llm.ErrUnknownTone):
		return ErrorCodeValidation
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "validation"), strings.Contains(msg, "unsupported mime"):
		return ErrorCodeValidation
	case strings.Contains(msg, "fetch job posting"):
		return ErrorCodeFetch
	case strings.Contains(msg, "storage"), strings.Contains(msg, "document"),
		strings.Contains(msg, "store result"), strings.Contains(msg, "advance to"):
		return ErrorCodeStorage
	default:
		return ErrorCodeInternal
	}
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}

func loadText(ctx context.Context, store object.ObjectStore, key string) (string, error) {
	body, err := store.Open(ctx, key)
	if err != nil {
		return "", err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
