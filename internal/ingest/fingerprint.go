package ingest

import (
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/zeebo/blake3"

	"github.com/graaaaa/suiticket-companion/internal/model"
)

// Fingerprint hashes the content of a snapshot, ignoring when it was taken.
// Two passes over an unchanged account produce the same fingerprint.
func Fingerprint(s *model.Snapshot) string {
	if s == nil {
		return ""
	}
	c := *s
	c.SyncedAt = time.Time{}
	// encoding/json sorts map keys and the entity lists are sorted by id,
	// so the encoding is stable.
	b, err := json.Marshal(&c)
	if err != nil {
		return ""
	}
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:])
}
