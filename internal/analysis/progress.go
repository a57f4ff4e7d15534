package analysis

import "sync"

// Progress event phases over an analysis run's lifetime.
const (
	PhaseStarted        = "started"
	PhaseAssetCompleted = "asset_completed"
	PhaseAssetFailed    = "asset_failed"
	PhaseCompleted      = "completed"
)

// ProgressEvent is emitted as assets finish. Consumed by the websocket
// progress stream.
type ProgressEvent struct {
	RunID     string `json:"run_id"`
	Phase     string `json:"phase"`
	AssetID   string `json:"asset_id,omitempty"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Error     string `json:"error,omitempty"`
}

// Broadcaster fans progress events out to subscribers. Slow subscribers
// miss events rather than stall the run.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[int]chan ProgressEvent
	next int
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan ProgressEvent)}
}

// Subscribe registers a listener. The returned cancel func must be called
// when the listener goes away.
func (b *Broadcaster) Subscribe() (<-chan ProgressEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan ProgressEvent, 64)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber with room in its buffer.
func (b *Broadcaster) Publish(event ProgressEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
}
