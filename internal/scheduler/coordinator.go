package scheduler

import (
	"sync"
	"time"

	"emergency_dashboard/internal/clock"
	"emergency_dashboard/internal/logger"
)

// Coordinator owns a set of independently scheduled tasks.
//
// Callbacks of every task registered with one Coordinator run one at a time,
// so a callback may freely mutate state that only other callbacks of the same
// coordinator touch. Callbacks may call Schedule, Cancel, Pause and Resume.
type Coordinator struct {
	clock   clock.Clock
	log     *logger.Logger
	metrics *Metrics

	// dispatchMu serializes callback execution; mu guards tasks.
	dispatchMu sync.Mutex
	mu         sync.Mutex
	tasks      map[uint64]*entry
	nextID     uint64
	closed     bool
}

type entry struct {
	id        uint64
	task      Task
	active    bool
	remaining int
	expired   bool
	timer     clock.Timer
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock replaces the wall clock, typically with a clock.Manual in tests.
func WithClock(c clock.Clock) Option {
	return func(co *Coordinator) { co.clock = c }
}

// WithLogger sets the logger used for scheduling diagnostics.
func WithLogger(l *logger.Logger) Option {
	return func(co *Coordinator) { co.log = l }
}

// WithMetrics attaches prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(co *Coordinator) { co.metrics = m }
}

// New returns an empty coordinator.
func New(opts ...Option) *Coordinator {
	c := &Coordinator{
		clock: clock.System,
		tasks: make(map[uint64]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = logger.OrNop(c.log)
	return c
}

// Now returns the coordinator's current time.
func (c *Coordinator) Now() time.Time {
	return c.clock.Now()
}

// Schedule registers task and starts its timer immediately.
func (c *Coordinator) Schedule(task Task) (Handle, error) {
	if err := task.validate(); err != nil {
		return Handle{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return Handle{}, ErrClosed
	}

	c.nextID++
	e := &entry{
		id:        c.nextID,
		task:      task,
		active:    true,
		remaining: task.Seconds,
	}
	c.tasks[e.id] = e
	c.armLocked(e)
	c.metrics.taskStarted()

	c.log.Debugw("task_scheduled", "task_id", e.id, "task", task.Name, "kind", task.Kind.String())
	return Handle{id: e.id}, nil
}

// Cancel stops the task's timer and forgets it. Cancelling an unknown,
// already cancelled or expired handle is a no-op.
func (c *Coordinator) Cancel(h Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.tasks[h.id]
	if !ok {
		return
	}
	c.removeLocked(e)
	c.log.Debugw("task_cancelled", "task_id", e.id, "task", e.task.Name)
}

// Pause keeps the timer running but turns its ticks into no-ops.
func (c *Coordinator) Pause(h Handle) {
	c.setActive(h, false)
}

// Resume re-enables a paused task from where it stopped.
func (c *Coordinator) Resume(h Handle) {
	c.setActive(h, true)
}

// State reports the lifecycle position of the task behind h.
func (c *Coordinator) State(h Handle) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.tasks[h.id]
	switch {
	case !ok:
		return StateGone
	case e.expired:
		return StateExpired
	case !e.active:
		return StatePaused
	default:
		return StateActive
	}
}

// Remaining returns the countdown value of h; ok is false for unknown handles.
func (c *Coordinator) Remaining(h Handle) (remaining int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.tasks[h.id]
	if !ok {
		return 0, false
	}
	return e.remaining, true
}

// Len returns the number of registered tasks, expired countdowns included.
func (c *Coordinator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tasks)
}

// Close cancels every task and rejects further scheduling.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for _, e := range c.tasks {
		c.removeLocked(e)
	}
}

func (c *Coordinator) setActive(h Handle, active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.tasks[h.id]
	if !ok || e.expired {
		return
	}
	e.active = active
}

func (c *Coordinator) armLocked(e *entry) {
	id := e.id
	e.timer = c.clock.AfterFunc(e.task.period(), func() { c.fire(id) })
}

func (c *Coordinator) removeLocked(e *entry) {
	delete(c.tasks, e.id)
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	if !e.expired {
		c.metrics.taskStopped()
	}
}

// fire runs one tick of task id. A fire for a task that has been cancelled
// or has already expired is dropped.
func (c *Coordinator) fire(id uint64) {
	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()

	c.mu.Lock()
	e, ok := c.tasks[id]
	if !ok || e.expired {
		c.mu.Unlock()
		c.metrics.staleTick()
		c.log.Debugw("stale_tick_suppressed", "task_id", id)
		return
	}
	callback := c.tickLocked(e)
	c.mu.Unlock()

	if callback != nil {
		callback()
	}
}

// tickLocked advances e by one tick, re-arms its timer relative to now and
// returns the callback to run outside the lock.
func (c *Coordinator) tickLocked(e *entry) func() {
	task := e.task

	if task.Kind == Recurring {
		c.armLocked(e)
		if !e.active || task.OnTick == nil {
			return nil
		}
		c.metrics.tick(Recurring)
		return task.OnTick
	}

	if !e.active {
		c.armLocked(e)
		return nil
	}

	decremented := false
	if e.remaining > 0 {
		e.remaining--
		decremented = true
	}
	remaining := e.remaining
	c.metrics.tick(Countdown)

	if remaining > 0 {
		c.armLocked(e)
		if task.OnCount == nil {
			return nil
		}
		return func() { task.OnCount(remaining) }
	}

	e.expired = true
	e.timer = nil
	c.metrics.taskExpired()
	c.log.Debugw("task_expired", "task_id", e.id, "task", task.Name)

	return func() {
		if decremented && task.OnCount != nil {
			task.OnCount(0)
		}
		if task.OnExpire != nil {
			task.OnExpire()
		}
	}
}
