package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message types understood by the worker.
const (
	TypeEmailDelivery = "email_delivery"
)

// Message is one unit of background work.
type Message struct {
	Type         string    `json:"type"`
	UserID       string    `json:"userId"`
	GenerationID string    `json:"generationId"`
	Recipient    string    `json:"recipient"`
	Format       string    `json:"format"`
	RequestedAt  time.Time `json:"requestedAt"`
}

// Encode serializes a message for transport.
func Encode(msg Message) (string, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("encode queue message: %w", err)
	}
	return string(data), nil
}

// DecodeMessage parses a transported message.
func DecodeMessage(body string) (Message, error) {
	var msg Message
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return Message{}, fmt.Errorf("decode queue message: %w", err)
	}
	if msg.Type == "" {
		return Message{}, fmt.Errorf("decode queue message: missing type")
	}
	return msg, nil
}
