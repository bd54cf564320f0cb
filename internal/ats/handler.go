package ats

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resumegen-backend/internal/shared/server/respond"
)

// Handler exposes the stateless scoring probe.
type Handler struct{}

// NewHandler constructs a Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// RegisterRoutes attaches the scoring route to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/ats/score", h.score)
}

type scoreRequest struct {
	ResumeText     string `json:"resumeText"`
	JobDescription string `json:"jobDescription"`
}

func (h *Handler) score(c *gin.Context) {
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if strings.TrimSpace(req.ResumeText) == "" || strings.TrimSpace(req.JobDescription) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "resumeText and jobDescription are required", nil)
		return
	}

	respond.JSON(c, http.StatusOK, Score(req.ResumeText, req.JobDescription))
}
