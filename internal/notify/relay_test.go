package notify

import (
	"testing"
	"time"
)

func TestPublishFansOut(t *testing.T) {
	r := New()

	ch1, cancel1 := r.Subscribe()
	defer cancel1()
	ch2, cancel2 := r.Subscribe()
	defer cancel2()

	r.Publish(EntityFunkos, KindCreated, map[string]any{"id": 1})

	for i, ch := range []<-chan Notification{ch1, ch2} {
		select {
		case n := <-ch:
			if n.Entity != EntityFunkos || n.Kind != KindCreated {
				t.Errorf("subscriber %d: unexpected notification %+v", i, n)
			}
			if n.CreatedAt.IsZero() {
				t.Errorf("subscriber %d: missing timestamp", i)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d: no notification received", i)
		}
	}
}

func TestPublishDropsWhenFull(t *testing.T) {
	r := New()

	ch, cancel := r.Subscribe()
	defer cancel()

	// Overfill the subscriber buffer; Publish must not block.
	for i := 0; i < subscriberBuffer+5; i++ {
		r.Publish(EntityCategories, KindUpdated, i)
	}

	received := 0
	for {
		select {
		case <-ch:
			received++
		default:
			if received != subscriberBuffer {
				t.Errorf("expected %d buffered notifications, got %d", subscriberBuffer, received)
			}
			return
		}
	}
}

func TestCancelRemovesSubscriber(t *testing.T) {
	r := New()

	ch, cancel := r.Subscribe()
	if r.Subscribers() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", r.Subscribers())
	}

	cancel()
	if r.Subscribers() != 0 {
		t.Errorf("expected 0 subscribers after cancel, got %d", r.Subscribers())
	}

	// The channel is closed, so a receive completes immediately.
	if _, ok := <-ch; ok {
		t.Error("expected closed channel after cancel")
	}

	// A second cancel is a no-op.
	cancel()
}

func TestPublishWithoutSubscribers(t *testing.T) {
	r := New()
	r.Publish(EntityFunkos, KindDeleted, nil)
}
