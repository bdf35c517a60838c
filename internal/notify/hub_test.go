package notify

import "testing"

func TestHub_PublishDoesNotBlockSlowSubscriber(t *testing.T) {
	h := NewHub[int]()
	ch, cancel := h.Subscribe(1)
	defer cancel()

	h.Publish(1)
	h.Publish(2) // dropped, buffer full

	if got := <-ch; got != 1 {
		t.Fatalf("got %d, want 1", got)
	}
	select {
	case v := <-ch:
		t.Fatalf("unexpected value %d", v)
	default:
	}
}

func TestHub_CancelAndClose(t *testing.T) {
	h := NewHub[string]()
	a, cancelA := h.Subscribe(4)
	b, _ := h.Subscribe(4)

	cancelA()
	cancelA()
	if _, ok := <-a; ok {
		t.Fatalf("cancelled channel should be closed")
	}

	h.Publish("x")
	if got := <-b; got != "x" {
		t.Fatalf("got %q, want x", got)
	}

	h.Close()
	if _, ok := <-b; ok {
		t.Fatalf("channel should be closed after Close")
	}

	late, _ := h.Subscribe(1)
	if _, ok := <-late; ok {
		t.Fatalf("subscription after Close should be closed")
	}
}
