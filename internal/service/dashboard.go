package service

import (
	"context"
	"fmt"
	"sync"

	"emergency_dashboard/internal/dashboard"
	"emergency_dashboard/internal/feed"
	"emergency_dashboard/internal/logger"
	"emergency_dashboard/internal/models"
	"emergency_dashboard/internal/scheduler"
)

// DashboardService keeps the registry of mounted views.
type DashboardService struct {
	coord *scheduler.Coordinator
	cfg   dashboard.Config
	feed  feed.Feed
	rec   *Recorder
	log   *logger.Logger

	mu    sync.Mutex
	views map[string]*dashboard.View
}

func NewDashboardService(coord *scheduler.Coordinator, cfg dashboard.Config, f feed.Feed, rec *Recorder, log *logger.Logger) *DashboardService {
	return &DashboardService{
		coord: coord,
		cfg:   cfg,
		feed:  f,
		rec:   rec,
		log:   logger.OrNop(log),
		views: make(map[string]*dashboard.View),
	}
}

// Mount creates a view whose tasks run until Unmount.
func (s *DashboardService) Mount(ctx context.Context) (models.DashboardSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return models.DashboardSnapshot{}, err
	}
	v := dashboard.Mount(s.coord, s.cfg,
		dashboard.WithLogger(s.log),
		dashboard.WithFeed(s.feed),
	)

	s.mu.Lock()
	s.views[v.ID()] = v
	s.mu.Unlock()

	snap := v.Snapshot()
	meta := map[string]any{"view_id": v.ID()}
	if len(snap.Faults) > 0 {
		meta["faults"] = snap.Faults
	}
	s.rec.Record(models.EventViewMounted, "Dashboard view mounted", meta)
	return snap, nil
}

func (s *DashboardService) Get(_ context.Context, id string) (models.DashboardSnapshot, error) {
	v, err := s.lookup(id)
	if err != nil {
		return models.DashboardSnapshot{}, err
	}
	return v.Snapshot(), nil
}

func (s *DashboardService) TogglePlayback(_ context.Context, id string) (models.PlaybackState, error) {
	v, err := s.lookup(id)
	if err != nil {
		return models.PlaybackState{}, err
	}
	state := v.TogglePlayback()

	desc := "Playback paused"
	if state.IsPlaying {
		desc = "Playback started"
	}
	s.rec.Record(models.EventPlaybackToggled, desc, map[string]any{
		"view_id":          id,
		"is_playing":       state.IsPlaying,
		"progress_percent": state.ProgressPercent,
	})
	return state, nil
}

func (s *DashboardService) SelectNav(_ context.Context, id string, index int) (models.DashboardSnapshot, error) {
	v, err := s.lookup(id)
	if err != nil {
		return models.DashboardSnapshot{}, err
	}
	if err := v.SelectNav(index); err != nil {
		return models.DashboardSnapshot{}, err
	}
	snap := v.Snapshot()
	s.rec.Record(models.EventNavSelected, "Navigation tab selected: "+snap.Nav[index], map[string]any{
		"view_id": id,
		"index":   index,
	})
	return snap, nil
}

func (s *DashboardService) Subscribe(id string, buffer int) (<-chan models.DashboardSnapshot, func(), error) {
	v, err := s.lookup(id)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := v.Subscribe(buffer)
	return ch, cancel, nil
}

// Unmount cancels the view's tasks and forgets it.
func (s *DashboardService) Unmount(_ context.Context, id string) error {
	s.mu.Lock()
	v, ok := s.views[id]
	delete(s.views, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrViewNotFound, id)
	}

	v.Unmount()
	s.rec.Record(models.EventViewUnmounted, "Dashboard view unmounted", map[string]any{"view_id": id})
	return nil
}

// UnmountAll releases every view, e.g. on shutdown.
func (s *DashboardService) UnmountAll() {
	s.mu.Lock()
	views := s.views
	s.views = make(map[string]*dashboard.View)
	s.mu.Unlock()

	for _, v := range views {
		v.Unmount()
	}
}

func (s *DashboardService) lookup(id string) (*dashboard.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.views[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrViewNotFound, id)
	}
	return v, nil
}
