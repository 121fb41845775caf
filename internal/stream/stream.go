// Package stream fans security log events out to live subscribers, the
// backing for the SSE tail on a project's security log.
package stream

import (
	"context"
	"sync"

	"github.com/Auth-Wave/authwave-backend/internal/seclog"
)

type subscriber struct {
	projectID string
	ch        chan seclog.Event
}

// Stream fan-outs security events to all active subscribers. Each
// subscriber sees only the events of the project it subscribed to.
type Stream struct {
	mu   sync.RWMutex
	subs map[int]subscriber
	next int
}

// New initialises an empty stream.
func New() *Stream {
	return &Stream{
		subs: make(map[int]subscriber),
	}
}

// Subscribe registers a subscriber for one project and returns a channel
// which will receive its events. The channel is closed when the provided
// context ends.
func (s *Stream) Subscribe(ctx context.Context, projectID string) <-chan seclog.Event {
	ch := make(chan seclog.Event, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = subscriber{projectID: projectID, ch: ch}
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

// Publish fan-outs the event to all subscribers of its project.
func (s *Stream) Publish(evt seclog.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subs {
		if sub.projectID != evt.ProjectID {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}
