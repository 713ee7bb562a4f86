package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is a single notification pushed to a connected channel.
type Event struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// Directory is the process-wide registry of connected notification channels.
// One instance serves the whole process; transports register a channel per
// connection and unregister it on disconnect. Delivery is best-effort: absent
// users and full channels are dropped silently.
type Directory struct {
	mu       sync.Mutex
	channels map[uuid.UUID]map[chan Event]struct{}
	closed   bool
}

// NewDirectory builds an empty directory.
func NewDirectory() *Directory {
	return &Directory{channels: make(map[uuid.UUID]map[chan Event]struct{})}
}

// Register adds ch to the user's channel set. Registering on a closed
// directory is a no-op and reports false.
func (d *Directory) Register(userID uuid.UUID, ch chan Event) bool {
	if ch == nil {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	set, ok := d.channels[userID]
	if !ok {
		set = make(map[chan Event]struct{})
		d.channels[userID] = set
	}
	set[ch] = struct{}{}
	return true
}

// Unregister removes ch from the user's channel set. The caller owns the
// channel; the directory never closes it here.
func (d *Directory) Unregister(userID uuid.UUID, ch chan Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	set, ok := d.channels[userID]
	if !ok {
		return
	}
	delete(set, ch)
	if len(set) == 0 {
		delete(d.channels, userID)
	}
}

// Deliver sends the event to every channel registered for the user, at most
// once per channel. A full channel is skipped rather than blocked on.
// The number of successful sends is returned.
func (d *Directory) Deliver(userID uuid.UUID, event Event) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0
	}
	delivered := 0
	for ch := range d.channels[userID] {
		select {
		case ch <- event:
			delivered++
		default:
		}
	}
	return delivered
}

// Close closes every registered channel and empties the directory. Further
// registrations and deliveries become no-ops.
func (d *Directory) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	for _, set := range d.channels {
		for ch := range set {
			close(ch)
		}
	}
	d.channels = make(map[uuid.UUID]map[chan Event]struct{})
}
