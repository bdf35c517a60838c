package service

import (
	"context"
	"fmt"
	"sync"

	"emergency_dashboard/internal/logger"
	"emergency_dashboard/internal/models"
	"emergency_dashboard/internal/scheduler"
	"emergency_dashboard/internal/verification"
)

// VerificationService keeps the registry of issued codes. An expired flow is
// dropped cfg.RetainExpired after expiry unless it is resent first.
type VerificationService struct {
	coord *scheduler.Coordinator
	cfg   verification.Config
	rec   *Recorder
	log   *logger.Logger

	mu        sync.Mutex
	flows     map[string]*verification.Flow
	evictions map[string]scheduler.Handle
}

func NewVerificationService(coord *scheduler.Coordinator, cfg verification.Config, rec *Recorder, log *logger.Logger) *VerificationService {
	return &VerificationService{
		coord:     coord,
		cfg:       cfg,
		rec:       rec,
		log:       logger.OrNop(log),
		flows:     make(map[string]*verification.Flow),
		evictions: make(map[string]scheduler.Handle),
	}
}

// Issue starts a countdown for screen.
func (s *VerificationService) Issue(ctx context.Context, screen string) (models.VerificationStatus, error) {
	if err := ctx.Err(); err != nil {
		return models.VerificationStatus{}, err
	}
	f, err := verification.Start(s.coord, screen, s.cfg,
		verification.WithLogger(s.log),
		verification.OnExpire(func(st models.VerificationStatus) {
			s.rec.Record(models.EventCodeExpired, "Verification code expired", map[string]any{
				"flow_id": st.FlowID,
				"screen":  st.Screen,
			})
			s.scheduleEviction(st.FlowID)
		}),
	)
	if err != nil {
		return models.VerificationStatus{}, err
	}

	s.mu.Lock()
	s.flows[f.ID()] = f
	s.mu.Unlock()

	st := f.Status()
	s.rec.Record(models.EventCodeIssued, "Verification code issued", map[string]any{
		"flow_id": st.FlowID,
		"screen":  st.Screen,
		"seconds": st.Countdown.RemainingSeconds,
	})
	return st, nil
}

func (s *VerificationService) Status(_ context.Context, id string) (models.VerificationStatus, error) {
	f, err := s.lookup(id)
	if err != nil {
		return models.VerificationStatus{}, err
	}
	return f.Status(), nil
}

// Resend is the explicit reschedule: a fresh countdown from the configured seed.
func (s *VerificationService) Resend(_ context.Context, id string) (models.VerificationStatus, error) {
	f, err := s.lookup(id)
	if err != nil {
		return models.VerificationStatus{}, err
	}
	if err := f.Restart(); err != nil {
		return models.VerificationStatus{}, err
	}
	s.mu.Lock()
	s.cancelEvictionLocked(id)
	s.mu.Unlock()

	st := f.Status()
	s.rec.Record(models.EventCodeResent, "Verification code resent", map[string]any{
		"flow_id": id,
		"screen":  st.Screen,
	})
	return st, nil
}

func (s *VerificationService) Cancel(_ context.Context, id string) error {
	s.mu.Lock()
	f, ok := s.flows[id]
	delete(s.flows, id)
	s.cancelEvictionLocked(id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrFlowNotFound, id)
	}

	f.Stop()
	s.rec.Record(models.EventCodeCancelled, "Verification cancelled", map[string]any{
		"flow_id": id,
		"screen":  f.Screen(),
	})
	return nil
}

func (s *VerificationService) CanSubmit(_ context.Context, id string) (bool, error) {
	f, err := s.lookup(id)
	if err != nil {
		return false, err
	}
	return f.CanSubmit(), nil
}

func (s *VerificationService) Subscribe(id string, buffer int) (<-chan models.VerificationStatus, func(), error) {
	f, err := s.lookup(id)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := f.Subscribe(buffer)
	return ch, cancel, nil
}

// CancelAll stops every flow, e.g. on shutdown.
func (s *VerificationService) CancelAll() {
	s.mu.Lock()
	flows := s.flows
	s.flows = make(map[string]*verification.Flow)
	for id := range s.evictions {
		s.cancelEvictionLocked(id)
	}
	s.mu.Unlock()

	for _, f := range flows {
		f.Stop()
	}
}

func (s *VerificationService) lookup(id string) (*verification.Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.flows[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFlowNotFound, id)
	}
	return f, nil
}

// scheduleEviction arms a one-shot countdown that drops flow id once it has
// stayed expired for cfg.RetainExpired. It runs from the expiry hook.
func (s *VerificationService) scheduleEviction(id string) {
	if s.cfg.RetainExpired <= 0 {
		return
	}
	seconds := int((s.cfg.RetainExpired + scheduler.CountdownStep - 1) / scheduler.CountdownStep)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.flows[id]; !ok {
		return
	}
	s.cancelEvictionLocked(id)
	h, err := s.coord.Schedule(scheduler.CountdownFrom("verification:evict", seconds, nil, func() { s.evict(id) }))
	if err != nil {
		s.log.Errorw("flow_eviction_schedule_failed", "flow_id", id, "err", err)
		return
	}
	s.evictions[id] = h
}

// evict drops flow id if it is still expired; a resent flow is kept.
func (s *VerificationService) evict(id string) {
	s.mu.Lock()
	h, pending := s.evictions[id]
	delete(s.evictions, id)
	f, ok := s.flows[id]
	if ok && f.Expired() {
		delete(s.flows, id)
	} else {
		ok = false
	}
	s.mu.Unlock()

	if pending {
		// The eviction countdown itself has expired; forget it.
		s.coord.Cancel(h)
	}
	if !ok {
		return
	}
	f.Stop()
	s.log.Infow("code_evicted", "flow_id", id, "screen", f.Screen(), "retained", s.cfg.RetainExpired.String())
}

func (s *VerificationService) cancelEvictionLocked(id string) {
	if h, ok := s.evictions[id]; ok {
		s.coord.Cancel(h)
		delete(s.evictions, id)
	}
}

// retained reports how many flows the registry holds, expired ones included.
func (s *VerificationService) retained() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.flows)
}
