package usage

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resumegen-backend/internal/shared/server/middleware"
	"resumegen-backend/internal/shared/server/respond"
)

// Handler exposes the usage endpoints.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches usage routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/usage", h.current)
}

// RegisterDevRoutes attaches development-only helpers.
func (h *Handler) RegisterDevRoutes(rg *gin.RouterGroup) {
	rg.POST("/usage/reset", h.reset)
}

func (h *Handler) current(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	period, err := h.Svc.Current(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch usage", nil)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{
		"plan":      period.Plan,
		"limit":     period.Limit,
		"used":      period.Used,
		"remaining": period.Remaining(),
		"resetsAt":  period.ResetsAt,
	})
}

func (h *Handler) reset(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	period, err := h.Svc.Reset(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to reset usage", nil)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{
		"plan":      period.Plan,
		"limit":     period.Limit,
		"used":      period.Used,
		"remaining": period.Remaining(),
		"resetsAt":  period.ResetsAt,
	})
}
