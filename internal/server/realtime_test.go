package server

import (
	"context"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/westernstar/backend/internal/content"
	"github.com/MarcoPoloResearchLab/westernstar/backend/internal/events"
)

func receiveWithin(t *testing.T, stream <-chan RealtimeMessage, timeout time.Duration) (RealtimeMessage, bool) {
	t.Helper()
	select {
	case message := <-stream:
		return message, true
	case <-time.After(timeout):
		return RealtimeMessage{}, false
	}
}

func TestRealtimeDispatcherPublishesToSubscriber(t *testing.T) {
	dispatcher := NewRealtimeDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, cleanup := dispatcher.Subscribe(ctx, "news")
	defer cleanup()

	dispatcher.Publish(RealtimeMessage{
		Section:   "news",
		Operation: events.OperationAdd,
		ID:        "6",
		Timestamp: time.Now().UTC(),
	})

	received, ok := receiveWithin(t, stream, 500*time.Millisecond)
	if !ok {
		t.Fatal("expected realtime message within deadline")
	}
	if received.Operation != events.OperationAdd || received.ID != "6" {
		t.Fatalf("unexpected message %#v", received)
	}
}

func TestRealtimeDispatcherIsolatedBySection(t *testing.T) {
	dispatcher := NewRealtimeDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	newsStream, newsCleanup := dispatcher.Subscribe(ctx, "news")
	defer newsCleanup()
	tagStream, tagCleanup := dispatcher.Subscribe(ctx, "availableTags")
	defer tagCleanup()
	allStream, allCleanup := dispatcher.Subscribe(ctx, "")
	defer allCleanup()

	dispatcher.Publish(RealtimeMessage{Section: "availableTags", Operation: events.OperationDelete, ID: "Policy"})

	if _, ok := receiveWithin(t, newsStream, 200*time.Millisecond); ok {
		t.Fatal("did not expect realtime message for unrelated section")
	}
	if message, ok := receiveWithin(t, tagStream, 500*time.Millisecond); !ok || message.ID != "Policy" {
		t.Fatalf("expected tag message, got %#v", message)
	}
	if _, ok := receiveWithin(t, allStream, 500*time.Millisecond); !ok {
		t.Fatal("expected all-sections subscriber to receive the message")
	}
}

func TestRealtimeDispatcherDeliversResetToEverySection(t *testing.T) {
	dispatcher := NewRealtimeDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	newsStream, newsCleanup := dispatcher.Subscribe(ctx, "news")
	defer newsCleanup()
	tagStream, tagCleanup := dispatcher.Subscribe(ctx, "availableTags")
	defer tagCleanup()

	dispatcher.Publish(RealtimeMessage{Operation: events.OperationReset})

	if _, ok := receiveWithin(t, newsStream, 500*time.Millisecond); !ok {
		t.Fatal("expected reset on news stream")
	}
	if _, ok := receiveWithin(t, tagStream, 500*time.Millisecond); !ok {
		t.Fatal("expected reset on tag stream")
	}
}

func TestRealtimeDispatcherUnsubscribesOnContextCancel(t *testing.T) {
	dispatcher := NewRealtimeDispatcher()
	ctx, cancel := context.WithCancel(context.Background())

	_, cleanup := dispatcher.Subscribe(ctx, "news")
	defer cleanup()
	if dispatcher.SubscriberCount("news") != 1 {
		t.Fatalf("expected one subscriber")
	}

	cancel()
	deadline := time.Now().Add(time.Second)
	for dispatcher.SubscriberCount("news") != 0 {
		if time.Now().After(deadline) {
			t.Fatal("expected subscriber to be removed after cancel")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRealtimeDispatcherAttachForwardsStoreMutations(t *testing.T) {
	bus := events.NewBus[content.Snapshot](nil)
	store := content.NewStore(content.StoreConfig{Publisher: bus})
	dispatcher := NewRealtimeDispatcher()
	subscription := dispatcher.Attach(bus)
	defer subscription.Unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream, cleanup := dispatcher.Subscribe(ctx, "testimonials")
	defer cleanup()

	id, err := store.AddTestimonial(content.Testimonial{Quote: "Sharp analysis", IsActive: true})
	if err != nil {
		t.Fatalf("failed to add testimonial: %v", err)
	}

	message, ok := receiveWithin(t, stream, 500*time.Millisecond)
	if !ok {
		t.Fatal("expected forwarded mutation")
	}
	if message.Section != "testimonials" || message.Operation != events.OperationAdd || message.ID != content.NumericRecordID(id).String() {
		t.Fatalf("unexpected message %#v", message)
	}
}
