package generations

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"resumegen-backend/internal/shared/server/middleware"
	"resumegen-backend/internal/shared/server/respond"
	"resumegen-backend/internal/usage"
)

// Handler wires HTTP handlers to the generations service.
type Handler struct {
	Svc    *Service
	Events *Broker
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, events *Broker) *Handler {
	return &Handler{Svc: svc, Events: events}
}

// RegisterRoutes attaches generation routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/generations", h.start)
	rg.GET("/generations", h.list)
	rg.GET("/generations/:id", h.get)
	rg.POST("/generations/:id/cancel", h.cancel)
	rg.GET("/generations/:id/events", h.events)
}

type startRequest struct {
	DocumentID     string `json:"documentId"`
	JobDescription string `json:"jobDescription"`
	Tone           string `json:"tone"`
}

func (h *Handler) start(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	run, err := h.Svc.Start(ctx, StartInput{
		UserID:         userID,
		DocumentID:     req.DocumentID,
		JobDescription: req.JobDescription,
		Tone:           req.Tone,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrActiveRun):
			respond.Error(c, http.StatusConflict, "generation_in_progress", "A generation is already in progress. Cancel it or wait for it to finish.", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case errors.Is(err, usage.ErrLimitReached):
			respond.Error(c, http.StatusTooManyRequests, "limit_reached", "You've reached your generation limit. Upgrade your plan to continue.", []map[string]string{
				{"field": "usage", "issue": "limit_reached"},
			})
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start generation", nil)
		}
		return
	}

	respond.JSON(c, http.StatusAccepted, gin.H{
		"generationId": run.ID,
		"stage":        run.Stage,
		"progress":     run.Progress,
	})
}

func (h *Handler) get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	runID := c.Param("id")

	run, err := h.Svc.Get(c.Request.Context(), userID, runID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "generation not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch generation", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, runResponse(run))
}

func (h *Handler) cancel(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	runID := c.Param("id")

	run, err := h.Svc.Cancel(c.Request.Context(), userID, runID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "generation not found", nil)
		case errors.Is(err, ErrNotCancellable):
			respond.Error(c, http.StatusConflict, "not_cancellable", "generation already finished", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to cancel generation", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, gin.H{
		"generationId": run.ID,
		"stage":        run.Stage,
	})
}

func (h *Handler) list(c *gin.Context) {
	if middleware.IsGuest(c) {
		respond.Error(c, http.StatusUnauthorized, "login_required", "Login required to view history", nil)
		return
	}

	userID := middleware.UserIDFromContext(c)

	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit < 0 {
		limit = 0
	}
	if limit > 50 {
		limit = 50
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	runs, err := h.Svc.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list generations", nil)
		return
	}

	resp := make([]gin.H, 0, len(runs))
	for _, run := range runs {
		item := gin.H{
			"generationId": run.ID,
			"documentId":   run.DocumentID,
			"stage":        run.Stage,
			"progress":     run.Progress,
			"tone":         run.Tone,
			"createdAt":    run.CreatedAt,
		}
		if run.Stage == StageComplete && run.Result != nil {
			item["atsScore"] = run.Result.ATS.Score
		}
		if run.Stage == StageFailed {
			item["errorCode"] = run.ErrorCode
		}
		resp = append(resp, item)
	}

	respond.JSON(c, http.StatusOK, resp)
}

// events streams stage transitions as SSE until the run reaches a terminal
// stage or the client disconnects.
func (h *Handler) events(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	runID := c.Param("id")

	// Subscribe before reading the snapshot: a transition published between
	// the read and the subscription must land in the buffer, not vanish.
	sub := h.Events.Subscribe(runID)
	defer h.Events.Unsubscribe(runID, sub)

	run, err := h.Svc.Get(c.Request.Context(), userID, runID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "generation not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch generation", nil)
		}
		return
	}

	writer, err := newSSEWriter(c.Writer)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "streaming not supported", nil)
		return
	}

	// Current state first so late subscribers are not left waiting.
	snapshot := eventFor(run)
	if err := writer.WriteEvent(snapshot.Type, snapshot); err != nil {
		return
	}
	if IsTerminal(run.Stage) {
		return
	}

	lastProgress := run.Progress
	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			// Progress already covered by the snapshot is a duplicate.
			if ev.Type == EventProgress && !IsTerminal(ev.Stage) && ev.Progress <= lastProgress {
				continue
			}
			if ev.Progress > lastProgress {
				lastProgress = ev.Progress
			}
			if err := writer.WriteEvent(ev.Type, ev); err != nil {
				return
			}
			if IsTerminal(ev.Stage) {
				return
			}
		}
	}
}

func runResponse(run Run) gin.H {
	resp := gin.H{
		"generationId":   run.ID,
		"documentId":     run.DocumentID,
		"jobDescription": run.JobDescription,
		"tone":           run.Tone,
		"stage":          run.Stage,
		"progress":       run.Progress,
		"createdAt":      run.CreatedAt,
	}
	if run.JobDescriptionURL != "" {
		resp["jobDescriptionUrl"] = run.JobDescriptionURL
	}
	if run.StartedAt != nil {
		resp["startedAt"] = run.StartedAt
	}
	if run.CompletedAt != nil {
		resp["completedAt"] = run.CompletedAt
	}
	if run.Stage == StageComplete && run.Result != nil {
		resp["result"] = run.Result
	}
	if run.Stage == StageFailed {
		resp["errorCode"] = run.ErrorCode
		resp["errorMessage"] = run.ErrorMessage
	}
	return resp
}
