package hub

import (
	"fmt"
	"testing"
	"time"
)

func recv(t *testing.T, s *Subscriber) []byte {
	t.Helper()
	select {
	case b, ok := <-s.C():
		if !ok {
			t.Fatal("stream closed unexpectedly")
		}
		return b
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a frame")
		return nil
	}
}

func TestPublishReachesSubscriber(t *testing.T) {
	h := New(4)
	defer h.Close()

	sub := h.Subscribe("list-a")
	h.Publish("list-a", []byte("snapshot"))

	if got := recv(t, sub); string(got) != "snapshot" {
		t.Fatalf("got %q", got)
	}
}

func TestChannelIsolation(t *testing.T) {
	h := New(4)
	defer h.Close()

	a := h.Subscribe("list-a")
	b := h.Subscribe("list-b")

	h.Publish("list-a", []byte("for-a"))
	recv(t, a)

	// The publish to a has been fully processed, so anything destined
	// for b would already be buffered.
	select {
	case got := <-b.C():
		t.Fatalf("subscriber on another channel received %q", got)
	default:
	}
}

func TestNoBacklog(t *testing.T) {
	h := New(4)
	defer h.Close()

	h.Publish("list-a", []byte("before"))
	sub := h.Subscribe("list-a")
	h.Publish("list-a", []byte("after"))

	if got := recv(t, sub); string(got) != "after" {
		t.Fatalf("expected only post-subscribe frames, got %q", got)
	}
}

func TestUnsubscribeIdempotent(t *testing.T) {
	h := New(4)
	defer h.Close()

	sub := h.Subscribe("list-a")
	sub.Unsubscribe()
	sub.Unsubscribe()

	select {
	case _, ok := <-sub.C():
		if ok {
			t.Fatal("expected closed stream after unsubscribe")
		}
	case <-time.After(time.Second):
		t.Fatal("stream not closed after unsubscribe")
	}

	// Publishing to the channel afterwards must not panic or block.
	h.Publish("list-a", []byte("late"))
}

func TestSlowSubscriberDoesNotBlockFanout(t *testing.T) {
	h := New(1)
	defer h.Close()

	stuck := h.Subscribe("list-a")
	_ = stuck // never reads

	live := h.Subscribe("list-a")
	got := make(chan int)
	go func() {
		n := 0
		for range live.C() {
			n++
		}
		got <- n
	}()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			h.Publish("list-a", []byte(fmt.Sprintf("frame-%d", i)))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish stalled on a slow subscriber")
	}

	time.Sleep(50 * time.Millisecond)
	live.Unsubscribe()
	if n := <-got; n == 0 {
		t.Fatal("live subscriber received nothing")
	}
}

func TestCloseClosesStreams(t *testing.T) {
	h := New(4)
	sub := h.Subscribe("list-a")
	h.Close()

	select {
	case _, ok := <-sub.C():
		if ok {
			t.Fatal("expected closed stream after hub close")
		}
	case <-time.After(time.Second):
		t.Fatal("stream not closed after hub close")
	}

	// Operations on a closed hub are no-ops, not deadlocks.
	h.Publish("list-a", []byte("late"))
	h.Subscribe("list-b")
}
