package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/graaaaa/suiticket-companion/internal/model"
)

const (
	defaultLimit = 100
	maxLimit     = 500
)

// InsertAction journals a new action. Inserting an id twice is a no-op.
func (s *Store) InsertAction(ctx context.Context, a model.Action) error {
	_, err := s.insertAction(ctx, a)
	return err
}

func (s *Store) insertAction(ctx context.Context, a model.Action) (inserted bool, err error) {
	if err := validateAction(a); err != nil {
		return false, err
	}

	const query = `
	INSERT INTO actions
	(action_id, kind, owner, package_id, intent_digest, digest, outcome, created_id, message, warning, created_at, settled_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(action_id) DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, query,
		a.ID,
		a.Kind,
		a.Owner,
		a.PackageID,
		nullString(a.IntentDigest),
		nullString(a.Digest),
		string(a.Outcome),
		nullString(a.CreatedID),
		nullString(a.Message),
		nullString(a.Warning),
		a.CreatedAt.UTC().Format(TimeFormat),
		nullTime(a.SettledAt),
	)
	if err != nil {
		return false, fmt.Errorf("insert action: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// SettleAction records the outcome of a journaled action. An action that
// was never inserted is inserted settled.
func (s *Store) SettleAction(ctx context.Context, a model.Action) error {
	if err := validateAction(a); err != nil {
		return err
	}
	const query = `
	UPDATE actions SET
		digest     = ?,
		outcome    = ?,
		created_id = ?,
		message    = ?,
		warning    = ?,
		settled_at = ?
	WHERE action_id = ?
	`
	result, err := s.db.ExecContext(ctx, query,
		nullString(a.Digest),
		string(a.Outcome),
		nullString(a.CreatedID),
		nullString(a.Message),
		nullString(a.Warning),
		nullTime(a.SettledAt),
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("settle action: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		_, err = s.insertAction(ctx, a)
		return err
	}
	return nil
}

// GetAction returns one journaled action.
func (s *Store) GetAction(ctx context.Context, id string) (model.Action, error) {
	var r actionRow
	err := s.db.QueryRowContext(ctx,
		`SELECT `+actionColumns+` FROM actions WHERE action_id = ?`, id,
	).Scan(r.scanArgs()...)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Action{}, ErrNotFound
	}
	if err != nil {
		return model.Action{}, fmt.Errorf("get action: %w", err)
	}
	return r.toAction()
}

// ActionFilter contains filter options for querying the journal.
type ActionFilter struct {
	Owner   *string
	Kind    *string
	Outcome *string
	Since   *time.Time
	Until   *time.Time
	Limit   int
	Cursor  *string
}

// ActionPage contains the result of a journal query.
type ActionPage struct {
	Items      []model.Action
	NextCursor *string
}

// QueryActions lists journaled actions newest first with cursor-based
// pagination.
func (s *Store) QueryActions(ctx context.Context, f ActionFilter) (ActionPage, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultLimit
	} else if limit > maxLimit {
		limit = maxLimit
	}

	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`SELECT ` + actionColumns + ` FROM actions WHERE 1=1`)

	if f.Owner != nil && *f.Owner != "" {
		sb.WriteString(" AND owner = ?")
		args = append(args, *f.Owner)
	}
	if f.Kind != nil && *f.Kind != "" {
		sb.WriteString(" AND kind = ?")
		args = append(args, *f.Kind)
	}
	if f.Outcome != nil && *f.Outcome != "" {
		sb.WriteString(" AND outcome = ?")
		args = append(args, *f.Outcome)
	}
	if f.Since != nil {
		sb.WriteString(" AND created_at >= ?")
		args = append(args, f.Since.UTC().Format(TimeFormat))
	}
	if f.Until != nil {
		sb.WriteString(" AND created_at < ?")
		args = append(args, f.Until.UTC().Format(TimeFormat))
	}

	// Composite cursor (created_at|id), descending.
	if f.Cursor != nil && *f.Cursor != "" {
		cursorTime, cursorID, err := decodeCursor(*f.Cursor)
		if err != nil {
			return ActionPage{}, fmt.Errorf("decode cursor: %w", err)
		}
		ts := cursorTime.UTC().Format(TimeFormat)
		sb.WriteString(" AND (created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, ts, ts, cursorID)
	}

	sb.WriteString(" ORDER BY created_at DESC, id DESC LIMIT ?")
	args = append(args, limit+1) // one extra to detect a next page

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return ActionPage{}, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	type item struct {
		rowID  int64
		action model.Action
	}
	items := make([]item, 0, limit+1)
	for rows.Next() {
		var r actionRow
		if err := rows.Scan(r.scanArgs()...); err != nil {
			return ActionPage{}, fmt.Errorf("scan action: %w", err)
		}
		a, err := r.toAction()
		if err != nil {
			return ActionPage{}, err
		}
		items = append(items, item{rowID: r.ID, action: a})
	}
	if err := rows.Err(); err != nil {
		return ActionPage{}, fmt.Errorf("rows error: %w", err)
	}

	var next *string
	if len(items) > limit {
		last := items[limit-1]
		items = items[:limit]
		c := EncodeCursor(last.action.CreatedAt, last.rowID)
		next = &c
	}

	out := ActionPage{Items: make([]model.Action, len(items)), NextCursor: next}
	for i, it := range items {
		out.Items[i] = it.action
	}
	return out, nil
}

// PruneActions deletes settled actions created before cutoff and returns
// how many were removed. Pending actions are kept.
func (s *Store) PruneActions(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM actions WHERE created_at < ? AND outcome != ?`,
		cutoff.UTC().Format(TimeFormat), string(model.ActionPending),
	)
	if err != nil {
		return 0, fmt.Errorf("prune actions: %w", err)
	}
	return result.RowsAffected()
}

// CountActions returns the number of journaled actions.
func (s *Store) CountActions(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM actions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count actions: %w", err)
	}
	return n, nil
}
