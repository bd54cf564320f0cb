package activity

import "time"

// Event types recorded by the application.
const (
	TypeGenerationStarted   = "generation_started"
	TypeGenerationCompleted = "generation_completed"
	TypeGenerationFailed    = "generation_failed"
	TypeGenerationCancelled = "generation_cancelled"
	TypeDocumentUploaded    = "document_uploaded"
	TypeEmailSent           = "email_sent"
)

// Event is one entry in a user's activity feed.
type Event struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	EventType    string    `json:"eventType"`
	GenerationID string    `json:"generationId,omitempty"`
	DocumentID   string    `json:"documentId,omitempty"`
	Detail       string    `json:"detail,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Stats summarizes a user's activity.
type Stats struct {
	Totals      map[string]int `json:"totals"`
	SuccessRate float64        `json:"successRate"`
}
