package activity

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"resumegen-backend/internal/shared/server/middleware"
	"resumegen-backend/internal/shared/server/respond"
	"resumegen-backend/internal/shared/telemetry"
)

// Handler exposes the activity feed endpoints.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches activity routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/activity", h.list)
	rg.GET("/activity/stats", h.stats)
	rg.GET("/activity/export", h.export)
}

func (h *Handler) list(c *gin.Context) {
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
	if limit > 100 {
		limit = 100
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	events, err := h.Svc.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list activity", nil)
		return
	}
	if events == nil {
		events = []Event{}
	}
	respond.JSON(c, http.StatusOK, events)
}

func (h *Handler) stats(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	stats, err := h.Svc.Stats(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to compute stats", nil)
		return
	}
	respond.JSON(c, http.StatusOK, stats)
}

func (h *Handler) export(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	events, err := h.Svc.List(c.Request.Context(), userID, 1000, 0)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list activity", nil)
		return
	}

	data, err := RenderXLSX(events)
	if err != nil {
		telemetry.Error("activity.export_failed", map[string]any{
			"user_id": userID,
			"error":   err.Error(),
		})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to render export", nil)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="activity.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
