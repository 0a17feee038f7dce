package store

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/graaaaa/suiticket-companion/internal/codec"
)

// cursorKey is the journal position a page ends at: created_at in unix
// nanoseconds and the rowid breaking ties within the same instant.
type cursorKey struct {
	_   struct{} `cbor:",toarray"`
	At  int64
	Row int64
}

// EncodeCursor returns an opaque, URL-safe cursor for the journal row
// created at t with rowid id.
func EncodeCursor(t time.Time, id int64) string {
	raw, err := codec.Marshal(cursorKey{At: t.UnixNano(), Row: id})
	if err != nil {
		// Two integers always encode.
		panic("store: encode cursor: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

func decodeCursor(cur string) (time.Time, int64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cur)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("%w: not base64url", ErrInvalidCursor)
	}
	var k cursorKey
	if err := codec.Unmarshal(raw, &k); err != nil {
		return time.Time{}, 0, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if k.Row <= 0 || k.At <= 0 {
		return time.Time{}, 0, fmt.Errorf("%w: out of range", ErrInvalidCursor)
	}
	return time.Unix(0, k.At).UTC(), k.Row, nil
}
