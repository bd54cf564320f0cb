package generations

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrActiveRun     = errors.New("a generation is already in progress")
	ErrNotCancellable = errors.New("run is not in progress")
)

// Error codes recorded on failed runs.
const (
	ErrorCodeValidation     = "VALIDATION_ERROR"
	ErrorCodeFetch          = "FETCH_ERROR"
	ErrorCodeLLMTimeout     = "LLM_TIMEOUT"
	ErrorCodeLLMUnavailable = "LLM_UNAVAILABLE"
	ErrorCodeStorage        = "STORAGE_ERROR"
	ErrorCodeInternal       = "INTERNAL_ERROR"
)
