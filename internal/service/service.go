package service

import (
	"context"
	"errors"

	"emergency_dashboard/internal/dashboard"
	"emergency_dashboard/internal/feed"
	"emergency_dashboard/internal/logger"
	"emergency_dashboard/internal/models"
	"emergency_dashboard/internal/navigation"
	"emergency_dashboard/internal/repository"
	"emergency_dashboard/internal/scheduler"
	"emergency_dashboard/internal/verification"
)

// Domain errors mapped to HTTP codes by the handlers.
var (
	ErrViewNotFound = errors.New("dashboard view not found")
	ErrFlowNotFound = errors.New("verification flow not found")
	ErrUnknownForm  = errors.New("unknown form")
	ErrCodeExpired  = errors.New("verification code expired")
)

// Dashboard manages mounted dashboard views.
type Dashboard interface {
	Mount(ctx context.Context) (models.DashboardSnapshot, error)
	Get(ctx context.Context, id string) (models.DashboardSnapshot, error)
	TogglePlayback(ctx context.Context, id string) (models.PlaybackState, error)
	SelectNav(ctx context.Context, id string, index int) (models.DashboardSnapshot, error)
	Subscribe(id string, buffer int) (<-chan models.DashboardSnapshot, func(), error)
	Unmount(ctx context.Context, id string) error
}

// Verification manages code-entry countdowns of the auth screens.
type Verification interface {
	Issue(ctx context.Context, screen string) (models.VerificationStatus, error)
	Status(ctx context.Context, id string) (models.VerificationStatus, error)
	Resend(ctx context.Context, id string) (models.VerificationStatus, error)
	Cancel(ctx context.Context, id string) error
	CanSubmit(ctx context.Context, id string) (bool, error)
	Subscribe(id string, buffer int) (<-chan models.VerificationStatus, func(), error)
}

// Timeline exposes the event log with filtering access.
type Timeline interface {
	List(ctx context.Context, q TimelineQuery) ([]models.TimelineEvent, error)
}

// Forms is the authentication boundary. It authenticates nothing.
type Forms interface {
	Submit(ctx context.Context, sub models.FormSubmission) (models.SubmitResult, error)
}

// Navigation resolves header links and asks the navigator to follow them.
type Navigation interface {
	Navigate(ctx context.Context, link string) (string, error)
}

// Service aggregates all sub-services.
type Service struct {
	Dashboard    Dashboard
	Verification Verification
	Timeline     Timeline
	Forms        Forms
	Navigation   Navigation
	Recorder     *Recorder

	shutdown []func()
}

// Deps carries what the services need besides the repositories.
type Deps struct {
	Coordinator    *scheduler.Coordinator
	Log            *logger.Logger
	View           dashboard.Config
	Flow           verification.Config
	Feed           feed.Feed
	Navigator      navigation.Navigator
	RecorderBuffer int
}

// NewService wires the repository layer and the timer core into concrete services.
func NewService(repos *repository.Repository, d Deps) *Service {
	log := logger.OrNop(d.Log)
	if d.Navigator == nil {
		d.Navigator = navigation.Logging(log)
	}

	rec := NewRecorder(repos.Timeline, d.RecorderBuffer, d.Coordinator.Now, log)
	dash := NewDashboardService(d.Coordinator, d.View, d.Feed, rec, log)
	flows := NewVerificationService(d.Coordinator, d.Flow, rec, log)

	return &Service{
		Dashboard:    dash,
		Verification: flows,
		Timeline:     NewTimelineService(repos.Timeline),
		Forms:        NewFormService(flows, rec, log),
		Navigation:   NewNavigationService(d.Navigator, rec),
		Recorder:     rec,
		shutdown:     []func(){dash.UnmountAll, flows.CancelAll},
	}
}

// Close unmounts every view and cancels every flow.
func (s *Service) Close() {
	for _, fn := range s.shutdown {
		fn()
	}
}
