package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/graaaaa/suiticket-companion/internal/model"
)

// actionRow is the internal type representing a journal row.
type actionRow struct {
	ID           int64
	ActionID     string
	Kind         string
	Owner        string
	PackageID    string
	IntentDigest sql.NullString
	Digest       sql.NullString
	Outcome      string
	CreatedID    sql.NullString
	Message      sql.NullString
	Warning      sql.NullString
	CreatedAt    string
	SettledAt    sql.NullString
}

func (r *actionRow) scanArgs() []any {
	return []any{
		&r.ID, &r.ActionID, &r.Kind, &r.Owner, &r.PackageID,
		&r.IntentDigest, &r.Digest, &r.Outcome, &r.CreatedID,
		&r.Message, &r.Warning, &r.CreatedAt, &r.SettledAt,
	}
}

const actionColumns = `id, action_id, kind, owner, package_id, intent_digest, digest, outcome, created_id, message, warning, created_at, settled_at`

// toAction converts a database row to an Action.
func (r *actionRow) toAction() (model.Action, error) {
	createdAt, err := time.Parse(TimeFormat, r.CreatedAt)
	if err != nil {
		return model.Action{}, fmt.Errorf("parse created_at %q: %w", r.CreatedAt, err)
	}
	a := model.Action{
		ID:           r.ActionID,
		Kind:         r.Kind,
		Owner:        r.Owner,
		PackageID:    r.PackageID,
		IntentDigest: r.IntentDigest.String,
		Digest:       r.Digest.String,
		Outcome:      model.ActionOutcome(r.Outcome),
		CreatedID:    r.CreatedID.String,
		Message:      r.Message.String,
		Warning:      r.Warning.String,
		CreatedAt:    createdAt,
	}
	if r.SettledAt.Valid {
		t, err := time.Parse(TimeFormat, r.SettledAt.String)
		if err != nil {
			return model.Action{}, fmt.Errorf("parse settled_at %q: %w", r.SettledAt.String, err)
		}
		a.SettledAt = t
	}
	return a, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(TimeFormat), Valid: true}
}

// validateAction checks that required fields are set.
func validateAction(a model.Action) error {
	if a.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidAction)
	}
	if a.Kind == "" {
		return fmt.Errorf("%w: kind is required", ErrInvalidAction)
	}
	if a.Outcome == "" {
		return fmt.Errorf("%w: outcome is required", ErrInvalidAction)
	}
	if a.CreatedAt.IsZero() {
		return fmt.Errorf("%w: created_at is required", ErrInvalidAction)
	}
	return nil
}
