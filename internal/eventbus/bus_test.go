package eventbus

import (
	"testing"
	"time"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	b := New()
	ch1, unsub1 := b.Subscribe(4)
	ch2, unsub2 := b.Subscribe(4)
	defer unsub1()
	defer unsub2()

	b.Publish(Event{Type: EventPushOK, Data: PushEvent{ChatID: 7}})

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case e := <-ch:
			if e.Type != EventPushOK {
				t.Fatalf("subscriber %d got type %q", i, e.Type)
			}
			pe, ok := e.Data.(PushEvent)
			if !ok || pe.ChatID != 7 {
				t.Fatalf("subscriber %d got data %#v", i, e.Data)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d never received the event", i)
		}
	}
}

func TestPublishStampsTime(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(1)
	defer unsub()

	before := time.Now()
	b.Publish(Event{Type: EventTenantStarted})
	e := <-ch
	if e.Time.Before(before) || e.Time.IsZero() {
		t.Fatalf("Time = %v, want stamped at publish", e.Time)
	}

	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	b.Publish(Event{Type: EventTenantStopped, Time: fixed})
	e = <-ch
	if !e.Time.Equal(fixed) {
		t.Fatalf("Time = %v, want preserved %v", e.Time, fixed)
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(1)
	defer unsub()

	done := make(chan struct{})
	go func() {
		defer close(done)
		b.Publish(Event{Type: "a"})
		b.Publish(Event{Type: "b"})
		b.Publish(Event{Type: "c"})
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}

	e := <-ch
	if e.Type != "a" {
		t.Fatalf("kept event %q, want the first one", e.Type)
	}
	select {
	case e := <-ch:
		t.Fatalf("unexpected extra event %q", e.Type)
	default:
	}
}

func TestUnsubscribeStopsDeliveryAndIsIdempotent(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(4)

	unsub()
	unsub()

	// Publishing after unsubscribe must not panic on the closed channel.
	b.Publish(Event{Type: "x"})

	if _, ok := <-ch; ok {
		t.Fatal("expected channel to be closed after unsubscribe")
	}
}
