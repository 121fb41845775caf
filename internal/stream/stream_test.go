package stream

import (
	"context"
	"testing"
	"time"

	"github.com/Auth-Wave/authwave-backend/internal/seclog"
)

func TestPublishReachesOnlyMatchingProject(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chA := s.Subscribe(ctx, "proj-a")
	chB := s.Subscribe(ctx, "proj-b")

	s.Publish(seclog.Event{ID: "e1", ProjectID: "proj-a", Code: seclog.EventUserLogin})

	select {
	case evt := <-chA:
		if evt.ID != "e1" {
			t.Fatalf("got event %q, want e1", evt.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber for proj-a received nothing")
	}
	select {
	case evt := <-chB:
		t.Fatalf("proj-b subscriber received foreign event %q", evt.ID)
	default:
	}
}

func TestSubscribeChannelClosesWithContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	ch := s.Subscribe(ctx, "proj-a")
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel, got event")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after context cancel")
	}

	// Publishing after unsubscribe must not panic or block.
	s.Publish(seclog.Event{ID: "e2", ProjectID: "proj-a"})
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Subscribe(ctx, "proj-a")
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			s.Publish(seclog.Event{ID: "e", ProjectID: "proj-a"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}
