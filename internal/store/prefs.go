package store

import (
	"context"
	"fmt"
)

// Roles a user can pick.
const (
	RoleBuyer     = "buyer"
	RoleOrganizer = "organizer"
	RoleStaff     = "staff"
)

const (
	prefKeyRole          = "role"
	prefKeySelectedCapID = "selected_cap_id"
)

// Prefs are user preferences. They only pre-select values in the UI and
// are never authoritative.
type Prefs struct {
	Role          string `json:"role"`
	SelectedCapID string `json:"selected_cap_id"`
}

// Validate checks the role value.
func (p Prefs) Validate() error {
	switch p.Role {
	case "", RoleBuyer, RoleOrganizer, RoleStaff:
		return nil
	}
	return fmt.Errorf("%w: unknown role %q", ErrInvalidPrefs, p.Role)
}

// GetPrefs returns the stored preferences; unset keys are empty.
func (s *Store) GetPrefs(ctx context.Context) (Prefs, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM prefs`)
	if err != nil {
		return Prefs{}, fmt.Errorf("query prefs: %w", err)
	}
	defer rows.Close()

	var p Prefs
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return Prefs{}, fmt.Errorf("scan pref: %w", err)
		}
		switch k {
		case prefKeyRole:
			p.Role = v
		case prefKeySelectedCapID:
			p.SelectedCapID = v
		}
	}
	if err := rows.Err(); err != nil {
		return Prefs{}, fmt.Errorf("rows error: %w", err)
	}
	return p, nil
}

// SavePrefs replaces the stored preferences. Empty values are removed.
func (s *Store) SavePrefs(ctx context.Context, p Prefs) error {
	if err := p.Validate(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for k, v := range map[string]string{prefKeyRole: p.Role, prefKeySelectedCapID: p.SelectedCapID} {
		if v == "" {
			_, err = tx.ExecContext(ctx, `DELETE FROM prefs WHERE key = ?`, k)
		} else {
			_, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO prefs (key, value) VALUES (?, ?)`, k, v)
		}
		if err != nil {
			return fmt.Errorf("save pref %s: %w", k, err)
		}
	}
	return tx.Commit()
}

// MaxRecentEvents is how many recently opened events are remembered.
const MaxRecentEvents = 10

// PushRecentEvent moves eventID to the front of the recent list and
// trims the list to MaxRecentEvents.
func (s *Store) PushRecentEvent(ctx context.Context, eventID string) error {
	if eventID == "" {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO recent_events (event_id, opened_at) VALUES (?, ?)`,
		eventID, s.now().UTC().Format(TimeFormat),
	); err != nil {
		return fmt.Errorf("push recent event: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM recent_events WHERE event_id NOT IN (
			SELECT event_id FROM recent_events ORDER BY opened_at DESC, event_id LIMIT ?
		)`, MaxRecentEvents,
	); err != nil {
		return fmt.Errorf("trim recent events: %w", err)
	}
	return tx.Commit()
}

// RemoveRecentEvent forgets one event.
func (s *Store) RemoveRecentEvent(ctx context.Context, eventID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM recent_events WHERE event_id = ?`, eventID); err != nil {
		return fmt.Errorf("remove recent event: %w", err)
	}
	return nil
}

// RecentEvents returns recently opened event ids, most recent first.
func (s *Store) RecentEvents(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_id FROM recent_events ORDER BY opened_at DESC, event_id LIMIT ?`, MaxRecentEvents)
	if err != nil {
		return nil, fmt.Errorf("query recent events: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan recent event: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
