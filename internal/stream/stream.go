package stream

import (
	"context"
	"sync"
	"time"

	"asiste.org/internal/access"
)

// SelectionEvent describes a role-selection change for diagnostic consumers.
// The stream is non-authoritative: its timing never influences the selection
// write path, and subscribers may miss events.
type SelectionEvent struct {
	UserID         string      `json:"user_id"`
	RoleID         string      `json:"roleId"`
	Role           access.Role `json:"role"`
	OrganizationID string      `json:"organizationId,omitempty"`
	Timestamp      time.Time   `json:"timestamp"`
}

// Stream fan-outs selection events to all active subscribers (SSE clients).
type Stream struct {
	mu   sync.RWMutex
	subs map[int]chan SelectionEvent
	next int
}

// New initialises an empty stream.
func New() *Stream {
	return &Stream{subs: make(map[int]chan SelectionEvent)}
}

// Subscribe registers a subscriber and returns a channel which will receive
// events. The channel is closed when the provided context ends.
func (s *Stream) Subscribe(ctx context.Context) <-chan SelectionEvent {
	ch := make(chan SelectionEvent, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the event to all subscribers.
func (s *Stream) Publish(evt SelectionEvent) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}
