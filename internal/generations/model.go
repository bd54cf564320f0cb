package generations

import (
	"time"

	"resumegen-backend/internal/ats"
	"resumegen-backend/internal/llm"
)

// Stages of a generation run.
const (
	StageQueued     = "queued"
	StageParsing    = "parsing"
	StageAnalyzing  = "analyzing"
	StageOptimizing = "optimizing"
	StageGenerating = "generating"
	StageComplete   = "complete"
	StageFailed     = "failed"
	StageCancelled  = "cancelled"
)

// stageProgress maps each stage to its progress checkpoint. Progress never
// decreases within a run.
var stageProgress = map[string]int{
	StageQueued:     0,
	StageParsing:    25,
	StageAnalyzing:  50,
	StageOptimizing: 75,
	StageGenerating: 100,
	StageComplete:   100,
}

// ProgressFor returns the progress checkpoint for a stage.
func ProgressFor(stage string) int {
	return stageProgress[stage]
}

// IsActive reports whether a run in this stage is still queued or in flight.
func IsActive(stage string) bool {
	switch stage {
	case StageQueued, StageParsing, StageAnalyzing, StageOptimizing, StageGenerating:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the stage is final.
func IsTerminal(stage string) bool {
	switch stage {
	case StageComplete, StageFailed, StageCancelled:
		return true
	default:
		return false
	}
}

// Run represents one resume generation attempt.
type Run struct {
	ID                string            `json:"id"`
	UserID            string            `json:"userId"`
	DocumentID        string            `json:"documentId"`
	JobDescription    string            `json:"jobDescription"`
	JobDescriptionURL string            `json:"jobDescriptionUrl,omitempty"`
	Tone              llm.Tone          `json:"tone"`
	Stage             string            `json:"stage"`
	Progress          int               `json:"progress"`
	Result            *GeneratedResume  `json:"result,omitempty"`
	ErrorCode         string            `json:"errorCode,omitempty"`
	ErrorMessage      string            `json:"errorMessage,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
	StartedAt         *time.Time        `json:"startedAt,omitempty"`
	CompletedAt       *time.Time        `json:"completedAt,omitempty"`
}

func toneFromString(s string) llm.Tone {
	tone, err := llm.ParseTone(s)
	if err != nil {
		return llm.ToneProfessional
	}
	return tone
}

// ExperienceEntry is one role in the generated resume.
type ExperienceEntry struct {
	Title       string `json:"title"`
	Employer    string `json:"employer"`
	DateRange   string `json:"dateRange"`
	Description string `json:"description"`
}

// GeneratedResume is the immutable output of a completed run.
type GeneratedResume struct {
	Name       string            `json:"name"`
	Headline   string            `json:"headline"`
	Summary    string            `json:"summary"`
	Experience []ExperienceEntry `json:"experience"`
	Skills     []string          `json:"skills"`
	Education  []string          `json:"education"`
	ATS        ats.Result        `json:"ats"`
	Model      string            `json:"model"`
	Method     string            `json:"method"`
	RawText    string            `json:"rawText"`
}
