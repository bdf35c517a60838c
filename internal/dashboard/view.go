package dashboard

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"emergency_dashboard/internal/feed"
	"emergency_dashboard/internal/logger"
	"emergency_dashboard/internal/models"
	"emergency_dashboard/internal/notify"
	"emergency_dashboard/internal/scheduler"

	"github.com/google/uuid"
)

// Task names, also used as keys of DashboardSnapshot.Faults.
const (
	TaskClock    = "clock"
	TaskProgress = "progress"
	TaskMetrics  = "metrics"
)

const (
	DefaultClockInterval    = 30 * time.Second
	DefaultProgressInterval = 500 * time.Millisecond
	DefaultMetricsInterval  = 5 * time.Second
	DefaultInitialProgress  = 30

	maxMetric   = 100
	maxProgress = 100
)

var (
	ErrNavOutOfRange   = errors.New("nav index out of range")
	ErrInvalidProgress = errors.New("initial progress out of range")
)

// Config sets the refresh periods of one view. Values are used as given:
// a non-positive interval disables that projection and is reported as a fault.
type Config struct {
	ClockInterval    time.Duration
	ProgressInterval time.Duration
	MetricsInterval  time.Duration
	InitialProgress  int
	InitialMetrics   models.MetricSnapshot
}

// DefaultConfig mirrors the observed dashboard behaviour.
func DefaultConfig() Config {
	return Config{
		ClockInterval:    DefaultClockInterval,
		ProgressInterval: DefaultProgressInterval,
		MetricsInterval:  DefaultMetricsInterval,
		InitialProgress:  DefaultInitialProgress,
		// Metrics are whole percentages, so the dashboard's 52.7 smoke reading
		// is rounded to 53.
		InitialMetrics: models.MetricSnapshot{Fire: 100, Smoke: 53, Hazard: 45},
	}
}

// ValidateProgress rejects a progress value outside [0,100].
func ValidateProgress(p int) error {
	if p < 0 || p > maxProgress {
		return fmt.Errorf("%w: %d not in [0,%d]", ErrInvalidProgress, p, maxProgress)
	}
	return nil
}

// Option customizes a View at mount time.
type Option func(*View)

func WithID(id string) Option { return func(v *View) { v.id = id } }

func WithLogger(l *logger.Logger) Option { return func(v *View) { v.log = l } }

func WithFeed(f feed.Feed) Option { return func(v *View) { v.feed = f } }

// WithRand fixes the metrics generator, e.g. for reproducible tests.
func WithRand(r *rand.Rand) Option { return func(v *View) { v.rng = r } }

// View is one mounted dashboard. It owns its three refresh tasks from Mount
// until Unmount.
type View struct {
	id    string
	coord *scheduler.Coordinator
	log   *logger.Logger
	feed  feed.Feed
	hub   *notify.Hub[models.DashboardSnapshot]

	mu        sync.Mutex
	rng       *rand.Rand
	clock     models.ClockDisplay
	metrics   models.MetricSnapshot
	playback  models.PlaybackState
	activeNav int
	faults    map[string]string
	updatedAt time.Time
	unmounted bool

	clockTask    scheduler.Handle
	progressTask scheduler.Handle
	metricsTask  scheduler.Handle
}

// Mount builds a view and schedules its clock, progress and metrics tasks.
// A task that fails to schedule is logged and listed in the snapshot's
// faults; the remaining tasks run normally.
func Mount(coord *scheduler.Coordinator, cfg Config, opts ...Option) *View {
	now := coord.Now()
	v := &View{
		coord:     coord,
		hub:       notify.NewHub[models.DashboardSnapshot](),
		clock:     models.ClockAt(now),
		metrics:   cfg.InitialMetrics,
		playback:  models.PlaybackState{ProgressPercent: cfg.InitialProgress},
		faults:    make(map[string]string),
		updatedAt: now,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.id == "" {
		v.id = uuid.NewString()
	}
	v.log = logger.OrNop(v.log)
	if v.rng == nil {
		v.rng = rand.New(rand.NewPCG(uint64(now.UnixNano()), rand.Uint64()))
	}
	if v.feed.Nav == nil {
		if f, err := feed.Default(); err == nil {
			v.feed = f
		}
	}

	v.clockTask = v.schedule(scheduler.Every(TaskClock, cfg.ClockInterval, v.refreshClock))
	if err := ValidateProgress(cfg.InitialProgress); err != nil {
		// The value is kept as given; only the progress projection is disabled.
		v.log.Warnw("task_schedule_failed", "view_id", v.id, "task", TaskProgress, "err", err)
		v.faults[TaskProgress] = err.Error()
	} else {
		v.progressTask = v.schedule(scheduler.Every(TaskProgress, cfg.ProgressInterval, v.advanceProgress))
	}
	v.metricsTask = v.schedule(scheduler.Every(TaskMetrics, cfg.MetricsInterval, v.regenerateMetrics))

	// Playback starts paused.
	coord.Pause(v.progressTask)

	v.log.Infow("view_mounted", "view_id", v.id, "faults", len(v.faults))
	return v
}

func (v *View) schedule(task scheduler.Task) scheduler.Handle {
	h, err := v.coord.Schedule(task)
	if err != nil {
		v.log.Warnw("task_schedule_failed", "view_id", v.id, "task", task.Name, "err", err)
		v.mu.Lock()
		v.faults[task.Name] = err.Error()
		v.mu.Unlock()
	}
	return h
}

// ID returns the view identifier.
func (v *View) ID() string { return v.id }

// Advance moves playback progress one step, looping from 100 back to 0.
func Advance(progress int) int {
	if progress >= maxProgress || progress < 0 {
		return 0
	}
	return progress + 1
}

// refreshClock and the other tick callbacks drop a tick that was already
// dispatched when Unmount ran.
func (v *View) refreshClock() {
	v.mu.Lock()
	if v.unmounted {
		v.mu.Unlock()
		return
	}
	now := v.coord.Now()
	v.clock = models.ClockAt(now)
	v.updatedAt = now
	snap := v.snapshotLocked()
	v.mu.Unlock()

	v.hub.Publish(snap)
}

func (v *View) advanceProgress() {
	v.mu.Lock()
	if v.unmounted || !v.playback.IsPlaying {
		v.mu.Unlock()
		return
	}
	v.playback.ProgressPercent = Advance(v.playback.ProgressPercent)
	v.updatedAt = v.coord.Now()
	snap := v.snapshotLocked()
	v.mu.Unlock()

	v.hub.Publish(snap)
}

func (v *View) regenerateMetrics() {
	v.mu.Lock()
	if v.unmounted {
		v.mu.Unlock()
		return
	}
	v.metrics = models.MetricSnapshot{
		Fire:   v.rng.IntN(maxMetric + 1),
		Smoke:  v.rng.IntN(maxMetric + 1),
		Hazard: v.rng.IntN(maxMetric + 1),
	}
	v.updatedAt = v.coord.Now()
	snap := v.snapshotLocked()
	v.mu.Unlock()

	v.hub.Publish(snap)
}

// TogglePlayback flips play/pause and pauses or resumes the progress task.
// Progress is kept as is.
func (v *View) TogglePlayback() models.PlaybackState {
	v.mu.Lock()
	v.playback.IsPlaying = !v.playback.IsPlaying
	if v.playback.IsPlaying {
		v.coord.Resume(v.progressTask)
	} else {
		v.coord.Pause(v.progressTask)
	}
	state := v.playback
	snap := v.snapshotLocked()
	v.mu.Unlock()

	v.hub.Publish(snap)
	return state
}

// SelectNav marks tab index as active.
func (v *View) SelectNav(index int) error {
	v.mu.Lock()
	if index < 0 || index >= len(v.feed.Nav) {
		v.mu.Unlock()
		return fmt.Errorf("%w: %d not in [0,%d)", ErrNavOutOfRange, index, len(v.feed.Nav))
	}
	v.activeNav = index
	snap := v.snapshotLocked()
	v.mu.Unlock()

	v.hub.Publish(snap)
	return nil
}

// Snapshot returns a copy of the current projections.
func (v *View) Snapshot() models.DashboardSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

// Subscribe returns a channel receiving a snapshot after every change.
func (v *View) Subscribe(buffer int) (<-chan models.DashboardSnapshot, func()) {
	return v.hub.Subscribe(buffer)
}

// Unmount cancels the view's tasks and closes its subscriptions. It is safe
// to call more than once.
func (v *View) Unmount() {
	v.mu.Lock()
	if v.unmounted {
		v.mu.Unlock()
		return
	}
	v.unmounted = true
	v.mu.Unlock()

	v.coord.Cancel(v.clockTask)
	v.coord.Cancel(v.progressTask)
	v.coord.Cancel(v.metricsTask)
	v.hub.Close()
	v.log.Infow("view_unmounted", "view_id", v.id)
}

func (v *View) snapshotLocked() models.DashboardSnapshot {
	var faults map[string]string
	if len(v.faults) > 0 {
		faults = make(map[string]string, len(v.faults))
		for k, msg := range v.faults {
			faults[k] = msg
		}
	}
	return models.DashboardSnapshot{
		ViewID:    v.id,
		Clock:     v.clock,
		Metrics:   v.metrics,
		Playback:  v.playback,
		Nav:       append([]string(nil), v.feed.Nav...),
		ActiveNav: v.activeNav,
		Alerts:    v.feed.Render(v.clock.String()),
		Faults:    faults,
		UpdatedAt: v.updatedAt,
	}
}
