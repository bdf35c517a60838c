package verification

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"emergency_dashboard/internal/logger"
	"emergency_dashboard/internal/models"
	"emergency_dashboard/internal/notify"
	"emergency_dashboard/internal/scheduler"

	"github.com/google/uuid"
)

// Screens showing a code-entry countdown.
const (
	ScreenLoginReset = "login_reset"
	ScreenFindID     = "find_id"
	ScreenSignup     = "signup"
)

// DefaultSeconds is the validity of a code, 02:15.
const DefaultSeconds = 135

// DefaultRetainExpired is how long an expired flow stays resendable before
// its owner drops it.
const DefaultRetainExpired = 10 * time.Minute

var (
	ErrUnknownScreen = errors.New("unknown verification screen")
	ErrStopped       = errors.New("verification flow stopped")
)

// Screens lists the accepted screen names.
func Screens() []string {
	return []string{ScreenLoginReset, ScreenFindID, ScreenSignup}
}

// ValidScreen reports whether s names a verification screen.
func ValidScreen(s string) bool {
	switch s {
	case ScreenLoginReset, ScreenFindID, ScreenSignup:
		return true
	}
	return false
}

// Config controls one flow. With BlockSubmitOnExpiry unset an expired code
// leaves submission enabled, as the screens always did. RetainExpired is not
// used by Flow itself; a non-positive value keeps expired flows until they
// are cancelled.
type Config struct {
	Seconds             int
	BlockSubmitOnExpiry bool
	RetainExpired       time.Duration
}

func DefaultConfig() Config {
	return Config{Seconds: DefaultSeconds, RetainExpired: DefaultRetainExpired}
}

type Option func(*Flow)

func WithID(id string) Option { return func(f *Flow) { f.id = id } }

func WithLogger(l *logger.Logger) Option { return func(f *Flow) { f.log = l } }

// OnExpire registers a hook run once per expiry, after subscribers are
// notified. It runs on the scheduler's dispatch path and must not block.
func OnExpire(fn func(models.VerificationStatus)) Option {
	return func(f *Flow) { f.onExpire = fn }
}

// Flow is the validity window of one issued code.
type Flow struct {
	id       string
	screen   string
	cfg      Config
	coord    *scheduler.Coordinator
	log      *logger.Logger
	hub      *notify.Hub[models.VerificationStatus]
	onExpire func(models.VerificationStatus)

	mu        sync.Mutex
	task      scheduler.Handle
	gen       uint64
	remaining int
	state     string
	issuedAt  time.Time
}

// Start issues a code for screen and starts its countdown.
func Start(coord *scheduler.Coordinator, screen string, cfg Config, opts ...Option) (*Flow, error) {
	if !ValidScreen(screen) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScreen, screen)
	}
	f := &Flow{
		screen: screen,
		cfg:    cfg,
		coord:  coord,
		hub:    notify.NewHub[models.VerificationStatus](),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.id == "" {
		f.id = uuid.NewString()
	}
	f.log = logger.OrNop(f.log)

	f.mu.Lock()
	err := f.scheduleLocked()
	f.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("start %s countdown: %w", screen, err)
	}
	f.log.Infow("code_issued", "flow_id", f.id, "screen", screen, "seconds", cfg.Seconds)
	return f, nil
}

// scheduleLocked replaces the current countdown with a fresh one. Callbacks
// of earlier generations are ignored.
func (f *Flow) scheduleLocked() error {
	f.gen++
	gen := f.gen
	h, err := f.coord.Schedule(scheduler.CountdownFrom("verification:"+f.screen, f.cfg.Seconds,
		func(remaining int) { f.count(gen, remaining) },
		func() { f.expire(gen) },
	))
	if err != nil {
		return err
	}
	f.task = h
	f.remaining = f.cfg.Seconds
	f.state = models.FlowRunning
	f.issuedAt = f.coord.Now()
	return nil
}

// count publishes every non-terminal tick. The tick reaching zero is left to
// expire, so no subscriber ever sees 00:00 while the flow is still RUNNING.
func (f *Flow) count(gen uint64, remaining int) {
	if remaining == 0 {
		return
	}
	f.mu.Lock()
	if gen != f.gen || f.state != models.FlowRunning {
		f.mu.Unlock()
		return
	}
	f.remaining = remaining
	st := f.statusLocked()
	f.mu.Unlock()

	f.hub.Publish(st)
}

func (f *Flow) expire(gen uint64) {
	f.mu.Lock()
	if gen != f.gen || f.state != models.FlowRunning {
		f.mu.Unlock()
		return
	}
	f.remaining = 0
	f.state = models.FlowExpired
	st := f.statusLocked()
	f.mu.Unlock()

	f.log.Infow("code_expired", "flow_id", f.id, "screen", f.screen)
	f.hub.Publish(st)
	if f.onExpire != nil {
		f.onExpire(st)
	}
}

// Restart issues a new code: the old countdown is cancelled and a new one
// starts from the configured seed. It works from RUNNING and EXPIRED.
func (f *Flow) Restart() error {
	f.mu.Lock()
	if f.state == models.FlowCancelled {
		f.mu.Unlock()
		return ErrStopped
	}
	f.coord.Cancel(f.task)
	if err := f.scheduleLocked(); err != nil {
		f.mu.Unlock()
		return fmt.Errorf("restart %s countdown: %w", f.screen, err)
	}
	st := f.statusLocked()
	f.mu.Unlock()

	f.log.Infow("code_resent", "flow_id", f.id, "screen", f.screen)
	f.hub.Publish(st)
	return nil
}

// Stop cancels the countdown and closes subscriptions. Repeated calls are no-ops.
func (f *Flow) Stop() {
	f.mu.Lock()
	if f.state == models.FlowCancelled {
		f.mu.Unlock()
		return
	}
	f.gen++
	f.coord.Cancel(f.task)
	f.state = models.FlowCancelled
	st := f.statusLocked()
	f.mu.Unlock()

	f.hub.Publish(st)
	f.hub.Close()
	f.log.Infow("code_cancelled", "flow_id", f.id, "screen", f.screen)
}

func (f *Flow) ID() string     { return f.id }
func (f *Flow) Screen() string { return f.screen }

func (f *Flow) Remaining() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.remaining
}

func (f *Flow) Display() models.CountdownDisplay {
	return models.CountdownDisplay{RemainingSeconds: f.Remaining()}
}

func (f *Flow) Expired() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state == models.FlowExpired
}

// CanSubmit reports whether the screen may still submit the code.
func (f *Flow) CanSubmit() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.canSubmitLocked()
}

func (f *Flow) Status() models.VerificationStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusLocked()
}

// Subscribe returns a channel receiving the status after every change.
func (f *Flow) Subscribe(buffer int) (<-chan models.VerificationStatus, func()) {
	return f.hub.Subscribe(buffer)
}

func (f *Flow) canSubmitLocked() bool {
	return f.state == models.FlowRunning || !f.cfg.BlockSubmitOnExpiry
}

func (f *Flow) statusLocked() models.VerificationStatus {
	return models.VerificationStatus{
		FlowID:    f.id,
		Screen:    f.screen,
		Countdown: models.CountdownDisplay{RemainingSeconds: f.remaining},
		State:     f.state,
		CanSubmit: f.canSubmitLocked(),
		IssuedAt:  f.issuedAt,
	}
}
