package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/graaaaa/suiticket-companion/internal/model"
)

// ActionStats holds journal counts for a time period.
type ActionStats struct {
	Succeeded    int      `json:"today_succeeded"`
	Failed       int      `json:"today_failed"`
	TimedOut     int      `json:"today_timed_out"`
	Errored      int      `json:"today_errored"`
	Pending      int      `json:"pending"`
	RecentKinds  []string `json:"recent_kinds"`
	LastActionAt *string  `json:"last_action_at,omitempty"`
}

// GetActionStats retrieves journal statistics for the specified time range.
// Pending is counted over all time.
func (s *Store) GetActionStats(ctx context.Context, since, until time.Time) (*ActionStats, error) {
	stats := &ActionStats{
		RecentKinds: []string{},
	}

	sinceStr := since.UTC().Format(TimeFormat)
	untilStr := until.UTC().Format(TimeFormat)

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0)
		FROM actions
		WHERE created_at >= ? AND created_at < ?
	`, model.ActionSucceeded, model.ActionFailed, model.ActionTimedOut, model.ActionErrored, sinceStr, untilStr).
		Scan(&stats.Succeeded, &stats.Failed, &stats.TimedOut, &stats.Errored)
	if err != nil {
		return nil, err
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM actions WHERE outcome = ?`, model.ActionPending,
	).Scan(&stats.Pending); err != nil {
		return nil, err
	}

	// Distinct kinds of the last 5 actions, most recent first.
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind FROM actions
		GROUP BY kind
		ORDER BY MAX(created_at) DESC
		LIMIT 5
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		if err := rows.Scan(&kind); err != nil {
			return nil, err
		}
		stats.RecentKinds = append(stats.RecentKinds, kind)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var lastTs sql.NullString
	err = s.db.QueryRowContext(ctx, `
		SELECT created_at FROM actions
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`).Scan(&lastTs)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if lastTs.Valid {
		stats.LastActionAt = &lastTs.String
	}

	return stats, nil
}

// GetTodayBoundary returns the start and end times for "today" in local time.
func GetTodayBoundary(now time.Time) (since, until time.Time) {
	y, m, d := now.Date()
	since = time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	until = since.AddDate(0, 0, 1)
	return since, until
}
