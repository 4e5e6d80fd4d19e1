package sse

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"greenlight_backend/internal/events"
	"greenlight_backend/platform/logger"

	"github.com/google/uuid"
)

func newTestService(t *testing.T) (*Service, events.Bus) {
	t.Helper()
	bus := events.NewInMemoryBus(logger.New("development"))
	return New(bus, logger.New("development")), bus
}

func TestSubscriberReceivesProjectEvents(t *testing.T) {
	svc, bus := newTestService(t)
	projectID := uuid.New()

	ch, cancel := svc.Subscribe(projectID)
	defer cancel()

	err := bus.PublishSync(context.Background(), events.StageCompleted{
		BaseEvent:        events.NewBaseEvent(),
		ProjectID:        projectID,
		DepartmentNumber: 1,
		DepartmentSlug:   "script",
		Rating:           85,
		ProjectScore:     85,
		Recommendation:   "ready",
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case msg := <-ch:
		if msg.Event != "evaluation.stage.completed" {
			t.Fatalf("unexpected event name: %s", msg.Event)
		}
		var payload struct {
			DepartmentSlug string `json:"departmentSlug"`
			Rating         int    `json:"rating"`
		}
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		if payload.DepartmentSlug != "script" || payload.Rating != 85 {
			t.Fatalf("unexpected payload: %+v", payload)
		}
	case <-time.After(time.Second):
		t.Fatal("expected an SSE message")
	}
}

func TestSubscriberScopedToProject(t *testing.T) {
	svc, bus := newTestService(t)

	ch, cancel := svc.Subscribe(uuid.New())
	defer cancel()

	err := bus.PublishSync(context.Background(), events.StageFailed{
		BaseEvent:      events.NewBaseEvent(),
		ProjectID:      uuid.New(),
		DepartmentSlug: "script",
		Error:          "boom",
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case msg := <-ch:
		t.Fatalf("event for another project must not be delivered: %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCancelRemovesSubscriber(t *testing.T) {
	svc, _ := newTestService(t)
	projectID := uuid.New()

	_, cancel := svc.Subscribe(projectID)
	if svc.SubscriberCount(projectID) != 1 {
		t.Fatalf("expected 1 subscriber, got %d", svc.SubscriberCount(projectID))
	}

	cancel()
	if svc.SubscriberCount(projectID) != 0 {
		t.Fatalf("expected 0 subscribers after cancel, got %d", svc.SubscriberCount(projectID))
	}
}
