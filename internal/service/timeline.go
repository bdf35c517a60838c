package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"emergency_dashboard/internal/models"
	"emergency_dashboard/internal/repository"
)

var (
	ErrInvalidTimeRange = errors.New("invalid time range: from must not be after to")
	ErrUnknownEventType = errors.New("unknown timeline event type")
	ErrInvalidLimit     = errors.New("limit must not be negative")
)

// TimelineService reads back the events the Recorder persisted.
type TimelineService struct {
	repo repository.TimelineRepo
}

func NewTimelineService(repo repository.TimelineRepo) *TimelineService {
	return &TimelineService{repo: repo}
}

// List returns the events matching q, oldest first.
func (s *TimelineService) List(ctx context.Context, q TimelineQuery) ([]models.TimelineEvent, error) {
	q, err := q.canonical()
	if err != nil {
		return nil, err
	}
	events, err := s.repo.List(ctx, q.From, q.To, q.Type)
	if err != nil {
		return nil, fmt.Errorf("list timeline: %w", err)
	}
	if q.Limit > 0 && len(events) > q.Limit {
		events = events[len(events)-q.Limit:]
	}
	return events, nil
}

// canonical moves the bounds to UTC, the zone the store compares in, and
// resolves the type against the recorded event set.
func (q TimelineQuery) canonical() (TimelineQuery, error) {
	if !q.From.IsZero() {
		q.From = q.From.UTC()
	}
	if !q.To.IsZero() {
		q.To = q.To.UTC()
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.From.After(q.To) {
		return TimelineQuery{}, fmt.Errorf("%w: %s > %s", ErrInvalidTimeRange,
			q.From.Format(time.RFC3339), q.To.Format(time.RFC3339))
	}
	if q.Limit < 0 {
		return TimelineQuery{}, fmt.Errorf("%w: %d", ErrInvalidLimit, q.Limit)
	}
	typ, err := eventType(q.Type)
	if err != nil {
		return TimelineQuery{}, err
	}
	q.Type = typ
	return q, nil
}

func eventType(s string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(s))
	if t == "" || models.ValidEventType(t) {
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEventType, s)
}
