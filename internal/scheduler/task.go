package scheduler

import (
	"errors"
	"fmt"
	"time"
)

// Kind distinguishes recurring timers from countdowns.
type Kind int

const (
	Recurring Kind = iota + 1
	Countdown
)

func (k Kind) String() string {
	switch k {
	case Recurring:
		return "recurring"
	case Countdown:
		return "countdown"
	default:
		return "unknown"
	}
}

// CountdownStep is the period between two countdown ticks.
const CountdownStep = time.Second

var (
	// ErrInvalidInterval is returned by Schedule for a non-positive recurring
	// interval or a negative countdown seed. Values are never clamped.
	ErrInvalidInterval = errors.New("invalid interval")
	ErrUnknownKind     = errors.New("unknown task kind")
	ErrClosed          = errors.New("coordinator closed")
)

// Task describes one timer to register with a Coordinator.
type Task struct {
	Name string
	Kind Kind

	// Interval is the recurring period.
	Interval time.Duration
	// Seconds seeds a countdown.
	Seconds int

	// OnTick runs on every active recurring tick.
	OnTick func()
	// OnCount runs after each countdown decrement with the new remaining value.
	OnCount func(remaining int)
	// OnExpire runs once when a countdown reaches zero.
	OnExpire func()
}

// Every builds a recurring task.
func Every(name string, interval time.Duration, fn func()) Task {
	return Task{Name: name, Kind: Recurring, Interval: interval, OnTick: fn}
}

// CountdownFrom builds a countdown task seeded with seconds.
func CountdownFrom(name string, seconds int, onCount func(remaining int), onExpire func()) Task {
	return Task{Name: name, Kind: Countdown, Seconds: seconds, OnCount: onCount, OnExpire: onExpire}
}

func (t Task) validate() error {
	switch t.Kind {
	case Recurring:
		if t.Interval <= 0 {
			return fmt.Errorf("%w: task %q interval %v must be positive", ErrInvalidInterval, t.Name, t.Interval)
		}
	case Countdown:
		if t.Seconds < 0 {
			return fmt.Errorf("%w: task %q countdown seed %d must not be negative", ErrInvalidInterval, t.Name, t.Seconds)
		}
	default:
		return fmt.Errorf("%w: %d", ErrUnknownKind, t.Kind)
	}
	return nil
}

func (t Task) period() time.Duration {
	if t.Kind == Countdown {
		return CountdownStep
	}
	return t.Interval
}

// Handle is an opaque reference to a scheduled task.
type Handle struct {
	id uint64
}

// ID returns the task's unique identifier.
func (h Handle) ID() uint64 { return h.id }

// IsZero reports whether h was never returned by Schedule.
func (h Handle) IsZero() bool { return h.id == 0 }

// State is the lifecycle position of a task as seen through its handle.
type State int

const (
	// StateGone covers handles that were cancelled or never scheduled.
	StateGone State = iota
	StateActive
	StatePaused
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StatePaused:
		return "paused"
	case StateExpired:
		return "expired"
	default:
		return "gone"
	}
}
