package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"emergency_dashboard/internal/clock"
	"emergency_dashboard/internal/dashboard"
	"emergency_dashboard/internal/models"
	"emergency_dashboard/internal/navigation"
	"emergency_dashboard/internal/repository"
	"emergency_dashboard/internal/scheduler"
	"emergency_dashboard/internal/verification"
)

type testEnv struct {
	svc   *Service
	clk   *clock.Manual
	coord *scheduler.Coordinator
	repo  *fakeTimelineRepo
}

func newTestEnv(t *testing.T, flow verification.Config, nav navigation.Navigator) *testEnv {
	t.Helper()
	clk := clock.NewManual(time.Date(2025, 3, 1, 11, 30, 0, 0, time.UTC))
	coord := scheduler.New(scheduler.WithClock(clk))
	repo := &fakeTimelineRepo{}
	svc := NewService(&repository.Repository{Timeline: repo}, Deps{
		Coordinator:    coord,
		View:           dashboard.DefaultConfig(),
		Flow:           flow,
		Navigator:      nav,
		RecorderBuffer: 64,
	})
	t.Cleanup(svc.Close)
	return &testEnv{svc: svc, clk: clk, coord: coord, repo: repo}
}

// flush writes every queued timeline event to the fake repo.
func (e *testEnv) flush(t *testing.T) []string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := e.svc.Recorder.Run(ctx); err != nil {
		t.Fatalf("recorder run: %v", err)
	}
	return e.repo.types()
}

func TestDashboardService_Lifecycle(t *testing.T) {
	env := newTestEnv(t, verification.DefaultConfig(), nil)
	ctx := context.Background()

	snap, err := env.svc.Dashboard.Mount(ctx)
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	id := snap.ViewID
	if id == "" || env.coord.Len() != 3 {
		t.Fatalf("expected a view id and 3 tasks, got id=%q tasks=%d", id, env.coord.Len())
	}

	state, err := env.svc.Dashboard.TogglePlayback(ctx, id)
	if err != nil || !state.IsPlaying {
		t.Fatalf("toggle: state=%+v err=%v", state, err)
	}
	env.clk.Advance(2 * time.Second)

	got, err := env.svc.Dashboard.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Playback.ProgressPercent != 34 {
		t.Fatalf("progress = %d; want 34", got.Playback.ProgressPercent)
	}

	if _, err := env.svc.Dashboard.SelectNav(ctx, id, 1); err != nil {
		t.Fatalf("select nav: %v", err)
	}
	if _, err := env.svc.Dashboard.SelectNav(ctx, id, 9); !errors.Is(err, dashboard.ErrNavOutOfRange) {
		t.Fatalf("expected ErrNavOutOfRange, got %v", err)
	}

	if err := env.svc.Dashboard.Unmount(ctx, id); err != nil {
		t.Fatalf("unmount: %v", err)
	}
	if env.coord.Len() != 0 {
		t.Fatalf("tasks outlived their view: %d", env.coord.Len())
	}
	if _, err := env.svc.Dashboard.Get(ctx, id); !errors.Is(err, ErrViewNotFound) {
		t.Fatalf("expected ErrViewNotFound, got %v", err)
	}
	if err := env.svc.Dashboard.Unmount(ctx, id); !errors.Is(err, ErrViewNotFound) {
		t.Fatalf("second unmount: expected ErrViewNotFound, got %v", err)
	}

	want := []string{
		models.EventViewMounted,
		models.EventPlaybackToggled,
		models.EventNavSelected,
		models.EventViewUnmounted,
	}
	if got := env.flush(t); !reflect.DeepEqual(got, want) {
		t.Fatalf("timeline = %v; want %v", got, want)
	}
}

func TestDashboardService_SubscribeUnknownView(t *testing.T) {
	env := newTestEnv(t, verification.DefaultConfig(), nil)
	if _, _, err := env.svc.Dashboard.Subscribe("nope", 1); !errors.Is(err, ErrViewNotFound) {
		t.Fatalf("expected ErrViewNotFound, got %v", err)
	}
}

func TestVerificationService_ExpiryResendCancel(t *testing.T) {
	env := newTestEnv(t, verification.DefaultConfig(), nil)
	ctx := context.Background()

	st, err := env.svc.Verification.Issue(ctx, verification.ScreenLoginReset)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if st.Countdown.String() != "02:15" || st.State != models.FlowRunning {
		t.Fatalf("unexpected initial status: %+v", st)
	}

	env.clk.Advance(135 * time.Second)
	st, err = env.svc.Verification.Status(ctx, st.FlowID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.State != models.FlowExpired || st.Countdown.RemainingSeconds != 0 {
		t.Fatalf("expected expired 00:00, got %+v", st)
	}
	if !st.CanSubmit {
		t.Fatalf("default policy keeps submission enabled after expiry")
	}

	st, err = env.svc.Verification.Resend(ctx, st.FlowID)
	if err != nil {
		t.Fatalf("resend: %v", err)
	}
	if st.State != models.FlowRunning || st.Countdown.RemainingSeconds != 135 {
		t.Fatalf("resend should restart from the seed, got %+v", st)
	}

	if err := env.svc.Verification.Cancel(ctx, st.FlowID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := env.svc.Verification.Cancel(ctx, st.FlowID); !errors.Is(err, ErrFlowNotFound) {
		t.Fatalf("expected ErrFlowNotFound, got %v", err)
	}
	if env.coord.Len() != 0 {
		t.Fatalf("countdown leaked after cancel")
	}

	want := []string{
		models.EventCodeIssued,
		models.EventCodeExpired,
		models.EventCodeResent,
		models.EventCodeCancelled,
	}
	if got := env.flush(t); !reflect.DeepEqual(got, want) {
		t.Fatalf("timeline = %v; want %v", got, want)
	}
}

func TestVerificationService_EvictsExpiredFlowsAfterRetention(t *testing.T) {
	env := newTestEnv(t, verification.Config{Seconds: 3, RetainExpired: 10 * time.Second}, nil)
	ctx := context.Background()
	flows := env.svc.Verification.(*VerificationService)

	kept, err := flows.Issue(ctx, verification.ScreenSignup)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	dropped, err := flows.Issue(ctx, verification.ScreenFindID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// t=3s both expire; eviction is due at t=13s.
	env.clk.Advance(8 * time.Second)
	if _, err := flows.Resend(ctx, kept.FlowID); err != nil {
		t.Fatalf("resend before eviction: %v", err)
	}

	env.clk.Advance(6 * time.Second) // t=14s
	if _, err := flows.Status(ctx, dropped.FlowID); !errors.Is(err, ErrFlowNotFound) {
		t.Fatalf("expired flow should be evicted, got %v", err)
	}
	st, err := flows.Status(ctx, kept.FlowID)
	if err != nil {
		t.Fatalf("resent flow was evicted: %v", err)
	}
	if st.State != models.FlowExpired {
		t.Fatalf("resent flow state = %s; want EXPIRED again at t=11s", st.State)
	}

	env.clk.Advance(7 * time.Second) // t=21s, 10s after the second expiry
	if flows.retained() != 0 {
		t.Fatalf("retained flows = %d; want 0", flows.retained())
	}
	if env.coord.Len() != 0 {
		t.Fatalf("coordinator still holds %d tasks", env.coord.Len())
	}
}

func TestVerificationService_CancelDropsPendingEviction(t *testing.T) {
	env := newTestEnv(t, verification.Config{Seconds: 1, RetainExpired: time.Minute}, nil)
	ctx := context.Background()

	st, err := env.svc.Verification.Issue(ctx, verification.ScreenLoginReset)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	env.clk.Advance(time.Second)
	if env.coord.Len() != 2 {
		t.Fatalf("expected expired countdown plus eviction timer, got %d tasks", env.coord.Len())
	}
	if err := env.svc.Verification.Cancel(ctx, st.FlowID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if env.coord.Len() != 0 {
		t.Fatalf("cancel left %d tasks behind", env.coord.Len())
	}
}

func TestVerificationService_ZeroRetentionKeepsExpiredFlows(t *testing.T) {
	env := newTestEnv(t, verification.Config{Seconds: 1}, nil)
	ctx := context.Background()

	st, err := env.svc.Verification.Issue(ctx, verification.ScreenSignup)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	env.clk.Advance(time.Hour)
	if _, err := env.svc.Verification.Status(ctx, st.FlowID); err != nil {
		t.Fatalf("flow dropped without retention configured: %v", err)
	}
}

func TestVerificationService_UnknownScreen(t *testing.T) {
	env := newTestEnv(t, verification.DefaultConfig(), nil)
	_, err := env.svc.Verification.Issue(context.Background(), "profile")
	if !errors.Is(err, verification.ErrUnknownScreen) {
		t.Fatalf("expected ErrUnknownScreen, got %v", err)
	}
}

func TestFormService_Submit(t *testing.T) {
	env := newTestEnv(t, verification.Config{Seconds: 5, BlockSubmitOnExpiry: true}, nil)
	ctx := context.Background()

	st, err := env.svc.Verification.Issue(ctx, verification.ScreenSignup)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	res, err := env.svc.Forms.Submit(ctx, models.FormSubmission{
		Form:   " Signup ",
		FlowID: st.FlowID,
		Fields: map[string]string{"email": "a@b.c", "password": "secret", "code": "123456"},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Form != models.FormSignup || res.Status != "stub" {
		t.Fatalf("unexpected result: %+v", res)
	}

	env.clk.Advance(5 * time.Second)
	_, err = env.svc.Forms.Submit(ctx, models.FormSubmission{Form: models.FormSignup, FlowID: st.FlowID})
	if !errors.Is(err, ErrCodeExpired) {
		t.Fatalf("expected ErrCodeExpired, got %v", err)
	}

	_, err = env.svc.Forms.Submit(ctx, models.FormSubmission{Form: "profile"})
	if !errors.Is(err, ErrUnknownForm) {
		t.Fatalf("expected ErrUnknownForm, got %v", err)
	}
	_, err = env.svc.Forms.Submit(ctx, models.FormSubmission{Form: models.FormLogin, FlowID: "missing"})
	if !errors.Is(err, ErrFlowNotFound) {
		t.Fatalf("expected ErrFlowNotFound, got %v", err)
	}

	env.flush(t)
	var submitted *models.TimelineEvent
	for i, ev := range env.repo.appended {
		if ev.Type == models.EventFormSubmitted {
			submitted = &env.repo.appended[i]
		}
	}
	if submitted == nil {
		t.Fatalf("FORM_SUBMITTED not recorded")
	}
	meta := submitted.Metadata.(map[string]any)
	if !reflect.DeepEqual(meta["fields"], []string{"code", "email", "password"}) {
		t.Fatalf("unexpected recorded fields: %v", meta["fields"])
	}
}

func TestRedact(t *testing.T) {
	in := map[string]string{
		"username":         "kim",
		"password":         "p",
		"new_password":     "p2",
		"passwordConfirm":  "p3",
		"pw":               "p4",
		"verificationCode": "123",
	}
	out := redact(in)
	for _, k := range []string{"password", "new_password", "passwordConfirm", "pw"} {
		if out[k] != redacted {
			t.Fatalf("%s not redacted: %q", k, out[k])
		}
	}
	if out["username"] != "kim" || out["verificationCode"] != "123" {
		t.Fatalf("non-secret fields changed: %v", out)
	}
	if in["password"] != "p" {
		t.Fatalf("input map mutated")
	}
}

func TestNavigationService_Navigate(t *testing.T) {
	var visited []string
	nav := navigation.Func(func(_ context.Context, path string) error {
		visited = append(visited, path)
		return nil
	})
	env := newTestEnv(t, verification.DefaultConfig(), nav)
	ctx := context.Background()

	path, err := env.svc.Navigation.Navigate(ctx, navigation.LinkFindID)
	if err != nil || path != "/user/findid" {
		t.Fatalf("navigate: path=%q err=%v", path, err)
	}
	if _, err := env.svc.Navigation.Navigate(ctx, "admin"); !errors.Is(err, navigation.ErrUnknownLink) {
		t.Fatalf("expected ErrUnknownLink, got %v", err)
	}
	if !reflect.DeepEqual(visited, []string{"/user/findid"}) {
		t.Fatalf("visited = %v", visited)
	}
	if got := env.flush(t); !reflect.DeepEqual(got, []string{models.EventNavigated}) {
		t.Fatalf("timeline = %v", got)
	}
}

func TestNavigationService_NavigatorError(t *testing.T) {
	boom := errors.New("blocked")
	env := newTestEnv(t, verification.DefaultConfig(), navigation.Func(func(context.Context, string) error { return boom }))

	_, err := env.svc.Navigation.Navigate(context.Background(), navigation.LinkLogin)
	if !errors.Is(err, boom) {
		t.Fatalf("expected navigator error, got %v", err)
	}
	if got := env.flush(t); len(got) != 0 {
		t.Fatalf("failed navigation must not be recorded: %v", got)
	}
}

func TestRecorder_DropsWhenFull(t *testing.T) {
	repo := &fakeTimelineRepo{}
	rec := NewRecorder(repo, 1, nil, nil)

	rec.Record(models.EventViewMounted, "a", nil)
	rec.Record(models.EventViewUnmounted, "b", nil)
	if rec.Dropped() != 1 {
		t.Fatalf("dropped = %d; want 1", rec.Dropped())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = rec.Run(ctx)
	if got := repo.types(); !reflect.DeepEqual(got, []string{models.EventViewMounted}) {
		t.Fatalf("written = %v", got)
	}
}

func TestRecorder_RunWritesUntilCancelled(t *testing.T) {
	repo := &fakeTimelineRepo{appendErr: errors.New("disk full")}
	rec := NewRecorder(repo, 8, time.Now, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rec.Run(ctx) }()

	rec.Record(models.EventNavigated, "x", map[string]any{"path": "/"})
	deadline := time.Now().Add(2 * time.Second)
	for len(repo.types()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("recorder did not stop")
	}
	if len(repo.types()) != 1 {
		t.Fatalf("append errors must not stop the recorder; written=%v", repo.types())
	}
}

func TestService_CloseReleasesEverything(t *testing.T) {
	env := newTestEnv(t, verification.DefaultConfig(), nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := env.svc.Dashboard.Mount(ctx); err != nil {
			t.Fatalf("mount: %v", err)
		}
	}
	if _, err := env.svc.Verification.Issue(ctx, verification.ScreenFindID); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if env.coord.Len() != 7 {
		t.Fatalf("tasks = %d; want 7", env.coord.Len())
	}

	env.svc.Close()
	if env.coord.Len() != 0 {
		t.Fatalf("tasks after close = %d", env.coord.Len())
	}
}
