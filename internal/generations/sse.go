package generations

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// sseWriter emits Server-Sent Events frames.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	return &sseWriter{w: w, flusher: flusher}, nil
}

func (s *sseWriter) WriteEvent(event string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\n", event); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", jsonData); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// eventFor maps a run snapshot to the SSE event that describes it.
func eventFor(run Run) Event {
	ev := Event{
		RunID:    run.ID,
		Stage:    run.Stage,
		Progress: run.Progress,
	}
	switch run.Stage {
	case StageComplete:
		ev.Type = EventComplete
		ev.Result = run.Result
	case StageFailed:
		ev.Type = EventError
		ev.ErrorCode = run.ErrorCode
		ev.ErrorMessage = run.ErrorMessage
	default:
		ev.Type = EventProgress
	}
	return ev
}
