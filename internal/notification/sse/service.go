// Package sse streams pipeline progress to browsers over Server-Sent Events.
// It subscribes to the event bus and fans events out to per-project
// subscriber channels.
package sse

import (
	"context"
	"encoding/json"
	"sync"

	"greenlight_backend/internal/events"
	"greenlight_backend/platform/logger"

	"github.com/google/uuid"
)

// subscriberBuffer bounds the per-client queue; a client that cannot keep up
// drops events rather than blocking the bus.
const subscriberBuffer = 16

// Message is one serialized event pushed to subscribers.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Service fans domain events out to per-project SSE subscribers.
type Service struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]map[chan Message]struct{}
	log         *logger.Logger
}

// New creates the SSE service and subscribes it to the pipeline events.
func New(bus events.Bus, log *logger.Logger) *Service {
	s := &Service{
		subscribers: make(map[uuid.UUID]map[chan Message]struct{}),
		log:         log,
	}

	bus.Subscribe(events.StageCompleted{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		if evt, ok := e.(events.StageCompleted); ok {
			s.broadcast(evt.ProjectID, evt.EventName(), evt)
		}
		return nil
	}))
	bus.Subscribe(events.StageFailed{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		if evt, ok := e.(events.StageFailed); ok {
			s.broadcast(evt.ProjectID, evt.EventName(), evt)
		}
		return nil
	}))
	bus.Subscribe(events.ContentStaged{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		if evt, ok := e.(events.ContentStaged); ok {
			s.broadcast(evt.ProjectID, evt.EventName(), evt)
		}
		return nil
	}))

	return s
}

// Subscribe registers a new subscriber for a project's events. The returned
// cancel function must be called when the client disconnects.
func (s *Service) Subscribe(projectID uuid.UUID) (<-chan Message, func()) {
	ch := make(chan Message, subscriberBuffer)

	s.mu.Lock()
	if s.subscribers[projectID] == nil {
		s.subscribers[projectID] = make(map[chan Message]struct{})
	}
	s.subscribers[projectID][ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if subs, ok := s.subscribers[projectID]; ok {
			delete(subs, ch)
			if len(subs) == 0 {
				delete(s.subscribers, projectID)
			}
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// SubscriberCount reports the active subscribers for a project.
func (s *Service) SubscriberCount(projectID uuid.UUID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers[projectID])
}

func (s *Service) broadcast(projectID uuid.UUID, eventName string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error("sse_marshal_failed", "event", eventName, "error", err.Error())
		return
	}
	msg := Message{Event: eventName, Data: data}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.subscribers[projectID] {
		select {
		case ch <- msg:
		default:
			// Slow client; drop rather than block.
		}
	}
}
