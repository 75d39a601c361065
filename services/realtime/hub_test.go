package realtime

import (
	"testing"
	"time"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestSubscribeAndEmit(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	ch, unsubscribe := hub.Subscribe(42)
	defer unsubscribe()

	hub.Emit([]uint{42}, "notification", "hello")

	ev := receive(t, ch)
	if ev.Name != "notification" {
		t.Errorf("expected event name notification, got %s", ev.Name)
	}
	if ev.Payload != "hello" {
		t.Errorf("expected payload hello, got %v", ev.Payload)
	}
}

func TestEmitTargetsOnlyNamedUsers(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	chA, unsubA := hub.Subscribe(1)
	defer unsubA()
	chB, unsubB := hub.Subscribe(2)
	defer unsubB()

	hub.Emit([]uint{1}, "notification", "for-a")

	receive(t, chA)

	select {
	case ev := <-chB:
		t.Errorf("user 2 received event not addressed to them: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMultipleConnectionsPerUser(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	ch1, unsub1 := hub.Subscribe(7)
	defer unsub1()
	ch2, unsub2 := hub.Subscribe(7)
	defer unsub2()

	if hub.ConnectedUsers() != 1 {
		t.Errorf("expected 1 connected user, got %d", hub.ConnectedUsers())
	}

	hub.Emit([]uint{7}, "notification", "fanout")

	receive(t, ch1)
	receive(t, ch2)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	ch, unsubscribe := hub.Subscribe(9)
	unsubscribe()
	unsubscribe() // second call is a no-op

	if _, open := <-ch; open {
		t.Error("expected channel to be closed after unsubscribe")
	}
	if hub.ConnectedUsers() != 0 {
		t.Errorf("expected 0 connected users, got %d", hub.ConnectedUsers())
	}

	// Emitting to a gone user must not panic
	hub.Emit([]uint{9}, "notification", "nobody")
}

func TestSlowConsumerDoesNotBlockEmit(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	_, unsubscribe := hub.Subscribe(3)
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		// Overflow the buffer; extra events are dropped, not blocked on
		for i := 0; i < subscriberBuffer*3; i++ {
			hub.Emit([]uint{3}, "notification", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a slow consumer")
	}
}

func TestCloseShutsDownSubscribers(t *testing.T) {
	hub := NewHub()

	ch, unsubscribe := hub.Subscribe(5)
	hub.Close()

	if _, open := <-ch; open {
		t.Error("expected channel to be closed after hub shutdown")
	}

	// Late operations on a closed hub are safe no-ops
	unsubscribe()
	hub.Emit([]uint{5}, "notification", "late")
	lateCh, lateUnsub := hub.Subscribe(6)
	defer lateUnsub()
	if _, open := <-lateCh; open {
		t.Error("expected subscription after shutdown to be closed immediately")
	}
}
