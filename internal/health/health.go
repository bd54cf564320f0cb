package health

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"resumegen-backend/internal/llm"
	"resumegen-backend/internal/shared/server/respond"
)

// Handler reports liveness and readiness.
type Handler struct {
	DB  *sql.DB
	LLM llm.Client

	// CheckTimeout bounds each dependency probe. Defaults to 5s.
	CheckTimeout time.Duration
}

// NewHandler constructs a Handler.
func NewHandler(db *sql.DB, client llm.Client) *Handler {
	return &Handler{DB: db, LLM: client}
}

// Liveness answers as long as the process is serving requests.
func (h *Handler) Liveness(c *gin.Context) {
	respond.JSON(c, http.StatusOK, gin.H{"status": "ok"})
}

// Readiness probes the database and the model backend. A missing model
// backend degrades the service (fallback optimization still works); a
// missing database does not.
func (h *Handler) Readiness(c *gin.Context) {
	timeout := h.CheckTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	components := gin.H{}
	status := "ok"
	httpStatus := http.StatusOK

	if h.DB != nil {
		if err := h.DB.PingContext(ctx); err != nil {
			components["database"] = gin.H{"status": "down", "error": err.Error()}
			status = "down"
			httpStatus = http.StatusServiceUnavailable
		} else {
			components["database"] = gin.H{"status": "ok"}
		}
	} else {
		components["database"] = gin.H{"status": "memory"}
	}

	if h.LLM != nil {
		models, err := h.LLM.ListModels(ctx)
		if err != nil {
			components["llm"] = gin.H{"status": "degraded", "error": err.Error()}
			if status == "ok" {
				status = "degraded"
			}
		} else {
			components["llm"] = gin.H{"status": "ok", "models": models}
		}
	} else {
		components["llm"] = gin.H{"status": "fallback_only"}
	}

	respond.JSON(c, httpStatus, gin.H{
		"status":     status,
		"components": components,
	})
}
