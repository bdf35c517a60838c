package clock

import (
	"testing"
	"time"
)

func TestManual_FiresInDueOrder(t *testing.T) {
	start := time.Date(2025, 3, 1, 11, 30, 0, 0, time.UTC)
	m := NewManual(start)

	var order []string
	m.AfterFunc(2*time.Second, func() { order = append(order, "b") })
	m.AfterFunc(time.Second, func() { order = append(order, "a") })
	m.AfterFunc(2*time.Second, func() { order = append(order, "c") })

	m.Advance(1500 * time.Millisecond)
	if len(order) != 1 || order[0] != "a" {
		t.Fatalf("after 1.5s got %v, want [a]", order)
	}

	m.Advance(500 * time.Millisecond)
	if len(order) != 3 || order[1] != "b" || order[2] != "c" {
		t.Fatalf("after 2s got %v, want [a b c]", order)
	}
	if got := m.Now(); !got.Equal(start.Add(2 * time.Second)) {
		t.Fatalf("now = %v, want %v", got, start.Add(2*time.Second))
	}
}

func TestManual_CallbackSeesFireTimeAndCanReschedule(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	m := NewManual(start)

	var fired []time.Time
	var tick func()
	tick = func() {
		fired = append(fired, m.Now())
		m.AfterFunc(time.Second, tick)
	}
	m.AfterFunc(time.Second, tick)

	m.Advance(3 * time.Second)
	if len(fired) != 3 {
		t.Fatalf("fired %d times, want 3", len(fired))
	}
	for i, at := range fired {
		want := start.Add(time.Duration(i+1) * time.Second)
		if !at.Equal(want) {
			t.Fatalf("fire %d at %v, want %v", i, at, want)
		}
	}
	if m.Pending() != 1 {
		t.Fatalf("pending = %d, want 1", m.Pending())
	}
}

func TestManual_Stop(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	called := false
	timer := m.AfterFunc(time.Second, func() { called = true })

	if !timer.Stop() {
		t.Fatalf("first Stop should report true")
	}
	if timer.Stop() {
		t.Fatalf("second Stop should report false")
	}
	m.Advance(5 * time.Second)
	if called {
		t.Fatalf("stopped timer fired")
	}
}
