package export

import (
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"time"

	"github.com/gin-gonic/gin"

	"resumegen-backend/internal/generations"
	"resumegen-backend/internal/queue"
	"resumegen-backend/internal/shared/server/middleware"
	"resumegen-backend/internal/shared/server/respond"
	"resumegen-backend/internal/shared/telemetry"
)

// Handler serves downloads and email delivery of completed generations.
type Handler struct {
	Runs  *generations.Service
	Queue queue.Client
}

// NewHandler constructs a Handler.
func NewHandler(runs *generations.Service, q queue.Client) *Handler {
	return &Handler{Runs: runs, Queue: q}
}

// RegisterRoutes attaches export routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/generations/:id/download", h.download)
	rg.POST("/generations/:id/email", h.email)
}

// completedRun loads a run owned by the user and requires it to be complete.
func (h *Handler) completedRun(c *gin.Context) (generations.Run, bool) {
	userID := middleware.UserIDFromContext(c)
	runID := c.Param("id")

	run, err := h.Runs.Get(c.Request.Context(), userID, runID)
	if err != nil {
		if errors.Is(err, generations.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "generation not found", nil)
		} else {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch generation", nil)
		}
		return generations.Run{}, false
	}
	if run.Stage != generations.StageComplete || run.Result == nil {
		respond.Error(c, http.StatusConflict, "not_ready", "generation has not completed", nil)
		return generations.Run{}, false
	}
	return run, true
}

func (h *Handler) download(c *gin.Context) {
	run, ok := h.completedRun(c)
	if !ok {
		return
	}

	format := c.DefaultQuery("format", FormatDocx)
	var payload []byte
	switch format {
	case FormatDocx:
		rendered, err := RenderDocx(run.Result)
		if err != nil {
			telemetry.Error("export.render_failed", map[string]any{
				"generation_id": run.ID,
				"error":         err.Error(),
			})
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to render document", nil)
			return
		}
		payload = rendered
	case FormatText:
		payload = RenderText(run.Result)
	default:
		respond.Error(c, http.StatusBadRequest, "validation_error", "format must be docx or text", nil)
		return
	}

	fileName := FileNameFor(run.ID, format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	c.Data(http.StatusOK, ContentTypeFor(format), payload)
}

type emailRequest struct {
	Recipient string `json:"recipient"`
	Format    string `json:"format"`
}

func (h *Handler) email(c *gin.Context) {
	run, ok := h.completedRun(c)
	if !ok {
		return
	}

	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if req.Recipient == "" {
		// Logged-in users default to the address on their token.
		req.Recipient = middleware.UserEmailFromContext(c)
	}
	if _, err := mail.ParseAddress(req.Recipient); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "recipient must be a valid email address", nil)
		return
	}
	format := req.Format
	if format == "" {
		format = FormatDocx
	}
	if format != FormatDocx && format != FormatText {
		respond.Error(c, http.StatusBadRequest, "validation_error", "format must be docx or text", nil)
		return
	}

	if h.Queue == nil {
		respond.Error(c, http.StatusServiceUnavailable, "unavailable", "email delivery is not configured", nil)
		return
	}

	msg := queue.Message{
		Type:         queue.TypeEmailDelivery,
		UserID:       run.UserID,
		GenerationID: run.ID,
		Recipient:    req.Recipient,
		Format:       format,
		RequestedAt:  time.Now().UTC(),
	}
	if err := h.Queue.Send(c.Request.Context(), msg); err != nil {
		telemetry.Error("export.enqueue_failed", map[string]any{
			"generation_id": run.ID,
			"error":         err.Error(),
		})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to queue email", nil)
		return
	}

	respond.JSON(c, http.StatusAccepted, gin.H{
		"generationId": run.ID,
		"recipient":    req.Recipient,
		"status":       "queued",
	})
}
