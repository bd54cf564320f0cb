package llm

import (
	"context"
	"errors"
)

// Client abstracts the model backend used for resume optimization.
type Client interface {
	Optimize(ctx context.Context, input OptimizeInput) (OptimizeResult, error)
	ListModels(ctx context.Context) ([]string, error)
}

// OptimizeInput captures the inputs for a resume rewrite.
type OptimizeInput struct {
	ResumeText     string
	JobDescription string
	Tone           Tone
}

// OptimizeResult is the model output plus provenance.
type OptimizeResult struct {
	Text   string
	Model  string
	Method string // "ai_optimization" or "rule_based_optimization"
}

var (
	// ErrUnavailable indicates the model backend cannot be reached.
	ErrUnavailable = errors.New("llm unavailable")

	// ErrTimeout indicates the model did not answer within the deadline.
	ErrTimeout = errors.New("llm timed out")
)
