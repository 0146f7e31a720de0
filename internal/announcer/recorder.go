package announcer

import (
	"context"
	"sync"

	"github.com/akylbek/payment-system/x402-pay/internal/models"
)

// DefaultRecorderCapacity bounds how many events a Recorder keeps.
const DefaultRecorderCapacity = 256

// Recorder keeps the most recent events in memory.
type Recorder struct {
	mu       sync.RWMutex
	capacity int
	events   []models.SessionEvent
}

// NewRecorder keeps up to capacity events; non-positive means
// DefaultRecorderCapacity.
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = DefaultRecorderCapacity
	}
	return &Recorder{capacity: capacity}
}

func (r *Recorder) Announce(_ context.Context, event models.SessionEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	if over := len(r.events) - r.capacity; over > 0 {
		r.events = append(r.events[:0:0], r.events[over:]...)
	}
}

// Events returns the recorded events, oldest first.
func (r *Recorder) Events() []models.SessionEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.SessionEvent(nil), r.events...)
}

// Session returns the events of one session, oldest first.
func (r *Recorder) Session(sessionID string) []models.SessionEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.SessionEvent
	for _, e := range r.events {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out
}

// States lists the states of the recorded events in order.
func (r *Recorder) States() []models.PaymentState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.PaymentState, len(r.events))
	for i, e := range r.events {
		out[i] = e.State
	}
	return out
}
