package service

import (
	"context"
	"sync/atomic"
	"time"

	"emergency_dashboard/internal/logger"
	"emergency_dashboard/internal/models"
	"emergency_dashboard/internal/repository"

	"github.com/google/uuid"
)

const (
	defaultRecorderBuffer = 256
	drainTimeout          = 2 * time.Second
)

// Recorder persists timeline events on its own goroutine. Record never
// blocks, so it is safe to call from scheduler callbacks.
type Recorder struct {
	repo    repository.TimelineRepo
	events  chan models.TimelineEvent
	now     func() time.Time
	log     *logger.Logger
	dropped atomic.Uint64
}

func NewRecorder(repo repository.TimelineRepo, buffer int, now func() time.Time, log *logger.Logger) *Recorder {
	if buffer <= 0 {
		buffer = defaultRecorderBuffer
	}
	if now == nil {
		now = time.Now
	}
	return &Recorder{
		repo:   repo,
		events: make(chan models.TimelineEvent, buffer),
		now:    now,
		log:    logger.OrNop(log),
	}
}

// Record queues an event. When the queue is full the event is dropped and counted.
func (r *Recorder) Record(typ, description string, meta map[string]any) {
	ev := models.TimelineEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  r.now().UTC(),
		Type:        typ,
		Description: description,
	}
	if len(meta) > 0 {
		ev.Metadata = meta
	}
	select {
	case r.events <- ev:
	default:
		n := r.dropped.Add(1)
		r.log.Warnw("timeline_event_dropped", "type", typ, "dropped_total", n)
	}
}

// Dropped reports how many events were discarded on a full queue.
func (r *Recorder) Dropped() uint64 { return r.dropped.Load() }

// Run writes queued events until ctx is cancelled, then flushes what is
// still queued within a short deadline.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			r.drain()
			return nil
		case ev := <-r.events:
			r.write(ctx, ev)
		}
	}
}

func (r *Recorder) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case ev := <-r.events:
			r.write(ctx, ev)
		default:
			return
		}
	}
}

func (r *Recorder) write(ctx context.Context, ev models.TimelineEvent) {
	if err := r.repo.Append(ctx, ev); err != nil {
		r.log.Errorw("timeline_append_failed", "type", ev.Type, "event_id", ev.EventID, "err", err)
	}
}
