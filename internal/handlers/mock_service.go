package handlers

import (
	"context"
	"time"

	"emergency_dashboard/internal/models"
	"emergency_dashboard/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockDashboard struct {
	snap     models.DashboardSnapshot
	playback models.PlaybackState
	err      error

	lastID       string
	lastNavIndex int
	mountCalls   int
	toggleCalls  int
	unmountCalls int
}

func (m *mockDashboard) Mount(ctx context.Context) (models.DashboardSnapshot, error) {
	m.mountCalls++
	return m.snap, m.err
}
func (m *mockDashboard) Get(ctx context.Context, id string) (models.DashboardSnapshot, error) {
	m.lastID = id
	return m.snap, m.err
}
func (m *mockDashboard) TogglePlayback(ctx context.Context, id string) (models.PlaybackState, error) {
	m.lastID = id
	m.toggleCalls++
	return m.playback, m.err
}
func (m *mockDashboard) SelectNav(ctx context.Context, id string, index int) (models.DashboardSnapshot, error) {
	m.lastID = id
	m.lastNavIndex = index
	return m.snap, m.err
}
func (m *mockDashboard) Subscribe(id string, buffer int) (<-chan models.DashboardSnapshot, func(), error) {
	if m.err != nil {
		return nil, nil, m.err
	}
	ch := make(chan models.DashboardSnapshot)
	return ch, func() {}, nil
}
func (m *mockDashboard) Unmount(ctx context.Context, id string) error {
	m.lastID = id
	m.unmountCalls++
	return m.err
}

type mockVerification struct {
	status    models.VerificationStatus
	err       error
	canSubmit bool

	lastScreen  string
	lastID      string
	resendCalls int
	cancelCalls int
}

func (m *mockVerification) Issue(ctx context.Context, screen string) (models.VerificationStatus, error) {
	m.lastScreen = screen
	return m.status, m.err
}
func (m *mockVerification) Status(ctx context.Context, id string) (models.VerificationStatus, error) {
	m.lastID = id
	return m.status, m.err
}
func (m *mockVerification) Resend(ctx context.Context, id string) (models.VerificationStatus, error) {
	m.lastID = id
	m.resendCalls++
	return m.status, m.err
}
func (m *mockVerification) Cancel(ctx context.Context, id string) error {
	m.lastID = id
	m.cancelCalls++
	return m.err
}
func (m *mockVerification) CanSubmit(ctx context.Context, id string) (bool, error) {
	return m.canSubmit, m.err
}
func (m *mockVerification) Subscribe(id string, buffer int) (<-chan models.VerificationStatus, func(), error) {
	if m.err != nil {
		return nil, nil, m.err
	}
	return make(chan models.VerificationStatus), func() {}, nil
}

type mockTimeline struct {
	resp      []models.TimelineEvent
	err       error
	lastFrom  time.Time
	lastTo    time.Time
	lastType  string
	lastLimit int
}

func (m *mockTimeline) List(ctx context.Context, q service.TimelineQuery) ([]models.TimelineEvent, error) {
	m.lastFrom = q.From
	m.lastTo = q.To
	m.lastType = q.Type
	m.lastLimit = q.Limit
	return m.resp, m.err
}

type mockForms struct {
	result  models.SubmitResult
	err     error
	lastSub models.FormSubmission
}

func (m *mockForms) Submit(ctx context.Context, sub models.FormSubmission) (models.SubmitResult, error) {
	m.lastSub = sub
	return m.result, m.err
}

type mockNavigation struct {
	path     string
	err      error
	lastLink string
}

func (m *mockNavigation) Navigate(ctx context.Context, link string) (string, error) {
	m.lastLink = link
	return m.path, m.err
}

// mockTimelineRepo satisfies repository.TimelineRepo for handler tests that
// run the real services.
type mockTimelineRepo struct{}

func (mockTimelineRepo) Append(ctx context.Context, e models.TimelineEvent) error { return nil }
func (mockTimelineRepo) List(ctx context.Context, from, to time.Time, typ string) ([]models.TimelineEvent, error) {
	return nil, nil
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}
