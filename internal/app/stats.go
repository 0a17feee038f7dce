package app

import (
	"context"
	"fmt"
	"time"

	"github.com/graaaaa/suiticket-companion/internal/store"
)

// MaxStatsDays bounds a stats window.
const MaxStatsDays = 31

// StatsQuery selects a window of whole local days. A zero Day means today
// and a zero Days means one day.
type StatsQuery struct {
	Day  time.Time
	Days int
}

// StatsUsecase defines the interface for stats operations.
type StatsUsecase interface {
	GetActionStats(ctx context.Context, q StatsQuery) (*store.ActionStats, error)
}

// StatsStore defines the interface for stats data access.
type StatsStore interface {
	GetActionStats(ctx context.Context, since, until time.Time) (*store.ActionStats, error)
}

// StatsService implements StatsUsecase.
type StatsService struct {
	store StatsStore
	now   func() time.Time
}

// NewStatsService creates a new StatsService.
func NewStatsService(store StatsStore) *StatsService {
	return &StatsService{store: store, now: time.Now}
}

// GetActionStats counts journal entries in the days ending with q.Day.
func (s *StatsService) GetActionStats(ctx context.Context, q StatsQuery) (*store.ActionStats, error) {
	days := q.Days
	if days == 0 {
		days = 1
	}
	if days < 0 || days > MaxStatsDays {
		return nil, fmt.Errorf("%w: days must be 1..%d", ErrInvalidQuery, MaxStatsDays)
	}
	day := q.Day
	if day.IsZero() {
		day = s.now()
	}
	_, until := store.GetTodayBoundary(day)
	since := until.AddDate(0, 0, -days)
	return s.store.GetActionStats(ctx, since, until)
}
