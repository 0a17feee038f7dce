package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/graaaaa/suiticket-companion/internal/ledger"
)

// RecordMalformed stores a package object whose fields could not be read,
// once per object version. It satisfies ingest.MalformedSink.
func (s *Store) RecordMalformed(ctx context.Context, obj ledger.ObjectView) error {
	_, err := s.InsertMalformed(ctx, obj)
	return err
}

// InsertMalformed stores obj and reports whether it was new.
func (s *Store) InsertMalformed(ctx context.Context, obj ledger.ObjectView) (inserted bool, err error) {
	if obj.ID == "" {
		return false, fmt.Errorf("object id is required")
	}

	const query = `
	INSERT INTO malformed_objects (ts, object_id, object_type, version, fields_json, dedupe_key)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(dedupe_key) DO NOTHING
	`

	var fields []byte
	if obj.Fields != nil {
		if fields, err = json.Marshal(obj.Fields); err != nil {
			return false, fmt.Errorf("encode fields: %w", err)
		}
	}
	dedupeKey := sha256Hex(obj.ID + "|" + obj.Version + "|" + string(fields))
	ts := s.now().UTC().Format(TimeFormat)

	result, err := s.db.ExecContext(ctx, query, ts, obj.ID, obj.Type, nullString(obj.Version), nullString(string(fields)), dedupeKey)
	if err != nil {
		return false, fmt.Errorf("insert malformed object: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// CountMalformed returns the number of recorded malformed objects.
func (s *Store) CountMalformed(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM malformed_objects`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count malformed objects: %w", err)
	}
	return n, nil
}

// sha256Hex returns the SHA256 hash of the input string as a hex string.
func sha256Hex(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}
