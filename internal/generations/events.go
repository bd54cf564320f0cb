package generations

import "sync"

// Event is a stage transition pushed to SSE subscribers.
type Event struct {
	Type         string           `json:"-"` // progress, complete, error
	RunID        string           `json:"runId"`
	Stage        string           `json:"stage"`
	Progress     int              `json:"progress"`
	Result       *GeneratedResume `json:"result,omitempty"`
	ErrorCode    string           `json:"errorCode,omitempty"`
	ErrorMessage string           `json:"errorMessage,omitempty"`
}

// Event types.
const (
	EventProgress = "progress"
	EventComplete = "complete"
	EventError    = "error"
)

// Broker fans stage transitions out to per-run subscribers. Slow subscribers
// drop events rather than block the pipeline.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{}
}

// NewBroker constructs an event broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[chan Event]struct{})}
}

// Subscribe registers a listener for a run's events.
func (b *Broker) Subscribe(runID string) chan Event {
	ch := make(chan Event, 16)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[runID] == nil {
		b.subs[runID] = make(map[chan Event]struct{})
	}
	b.subs[runID][ch] = struct{}{}
	return ch
}

// Unsubscribe removes a listener and closes its channel.
func (b *Broker) Unsubscribe(runID string, ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if set, ok := b.subs[runID]; ok {
		if _, ok := set[ch]; ok {
			delete(set, ch)
			close(ch)
		}
		if len(set) == 0 {
			delete(b.subs, runID)
		}
	}
}

// Publish delivers an event to all subscribers of the run.
func (b *Broker) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[ev.RunID] {
		select {
		case ch <- ev:
		default:
		}
	}
}
