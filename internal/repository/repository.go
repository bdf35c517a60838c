package repository

import (
	"context"
	"database/sql"
	"time"

	"emergency_dashboard/internal/models"
)

type TimelineRepo interface {
	Append(ctx context.Context, e models.TimelineEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.TimelineEvent, error)
}

type Repository struct {
	Timeline TimelineRepo
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Timeline: NewTimelineSQLite(db),
	}
}
