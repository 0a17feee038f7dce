package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/graaaaa/suiticket-companion/internal/codec"
	"github.com/graaaaa/suiticket-companion/internal/model"
)

// snapshotCodec names the blob encoding. A blob written with another
// codec is treated as absent.
const snapshotCodec = "cbor+zstd"

// EncodeAll and DecodeAll are safe for concurrent use on a shared
// encoder and decoder.
var (
	zenc, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	zdec, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
)

// CachedSnapshot is a stored snapshot with its fingerprint.
type CachedSnapshot struct {
	Snapshot    *model.Snapshot
	Fingerprint string
	UpdatedAt   time.Time
}

// SaveSnapshot stores snap as the latest snapshot for its owner and package.
func (s *Store) SaveSnapshot(ctx context.Context, snap *model.Snapshot, fingerprint string) error {
	if snap == nil || snap.Owner == "" {
		return fmt.Errorf("save snapshot: owner is required")
	}
	raw, err := codec.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	blob := zenc.EncodeAll(raw, make([]byte, 0, len(raw)/2))

	const query = `
	INSERT INTO snapshots (owner, package_id, fingerprint, synced_at, codec, blob, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(owner, package_id) DO UPDATE SET
		fingerprint = excluded.fingerprint,
		synced_at   = excluded.synced_at,
		codec       = excluded.codec,
		blob        = excluded.blob,
		updated_at  = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		snap.Owner,
		snap.PackageID,
		fingerprint,
		snap.SyncedAt.UTC().Format(TimeFormat),
		snapshotCodec,
		blob,
		s.now().UTC().Format(TimeFormat),
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the stored snapshot for owner and packageID.
// It returns ErrNotFound when none is stored or the stored blob is from
// an unknown codec.
func (s *Store) LoadSnapshot(ctx context.Context, owner, packageID string) (*CachedSnapshot, error) {
	var (
		fingerprint, codecName, updatedAt string
		blob                              []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT fingerprint, codec, blob, updated_at
		FROM snapshots
		WHERE owner = ? AND package_id = ?
	`, owner, packageID).Scan(&fingerprint, &codecName, &blob, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if codecName != snapshotCodec {
		s.logger.Warn("ignoring stored snapshot with unknown codec", "codec", codecName)
		return nil, ErrNotFound
	}

	raw, err := zdec.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot: %w", err)
	}
	var snap model.Snapshot
	if err := codec.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	snap.Reindex()

	out := &CachedSnapshot{Snapshot: &snap, Fingerprint: fingerprint}
	if t, err := time.Parse(TimeFormat, updatedAt); err == nil {
		out.UpdatedAt = t
	}
	return out, nil
}

// DeleteSnapshots removes every stored snapshot, e.g. after the package
// changes.
func (s *Store) DeleteSnapshots(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots`); err != nil {
		return fmt.Errorf("delete snapshots: %w", err)
	}
	return nil
}
