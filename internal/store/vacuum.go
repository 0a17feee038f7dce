package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// VacuumInterval is the minimum interval between VACUUM operations.
const VacuumInterval = 30 * 24 * time.Hour // 30 days

const metadataKeyLastVacuum = "last_vacuum_at"

// VacuumIfNeeded runs VACUUM if the last vacuum was more than VacuumInterval ago.
// Returns true if VACUUM was performed, false if skipped.
func (s *Store) VacuumIfNeeded(ctx context.Context) (bool, error) {
	lastVacuum, err := s.getLastVacuumTime(ctx)
	if err != nil {
		return false, err
	}

	now := s.now()
	if now.Sub(lastVacuum) < VacuumInterval {
		return false, nil
	}

	s.logger.Info("running VACUUM", "last_run", lastVacuum.Format(time.RFC3339))
	start := time.Now()

	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return false, err
	}
	s.logger.Info("VACUUM completed", "elapsed", time.Since(start))

	if err := s.setMetadata(ctx, metadataKeyLastVacuum, now.UTC().Format(TimeFormat)); err != nil {
		s.logger.Warn("failed to update last_vacuum_at", "error", err)
	}
	return true, nil
}

func (s *Store) getLastVacuumTime(ctx context.Context) (time.Time, error) {
	value, err := s.getMetadata(ctx, metadataKeyLastVacuum)
	if errors.Is(err, ErrNotFound) {
		// Never vacuumed.
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(TimeFormat, value)
	if err != nil {
		return time.Time{}, nil
	}
	return t, nil
}

func (s *Store) setLastVacuumTime(ctx context.Context, t time.Time) error {
	return s.setMetadata(ctx, metadataKeyLastVacuum, t.UTC().Format(TimeFormat))
}

func (s *Store) getMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return value, err
}

func (s *Store) setMetadata(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, "INSERT OR REPLACE INTO metadata (key, value) VALUES (?, ?)", key, value)
	return err
}
