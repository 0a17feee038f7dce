package classify

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/graaaaa/suiticket-companion/internal/amount"
	"github.com/graaaaa/suiticket-companion/internal/model"
)

// Field helpers read loosely typed Move fields as decoded from JSON.
// Each returns ok=false instead of panicking when the field is absent or
// has an unexpected shape.

// Uint reads a u64 encoded as a decimal string or a JSON number.
func Uint(fields map[string]any, key string) (uint64, bool) {
	switch v := fields[key].(type) {
	case string:
		n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		return n, err == nil
	case json.Number:
		n, err := strconv.ParseUint(v.String(), 10, 64)
		return n, err == nil
	case float64:
		if v < 0 || v != math.Trunc(v) || v >= math.MaxUint64 {
			return 0, false
		}
		return uint64(v), true
	}
	return 0, false
}

// Mist reads a u64 amount.
func Mist(fields map[string]any, key string) (amount.Mist, bool) {
	n, ok := Uint(fields, key)
	return amount.Mist(n), ok
}

// Bytes reads a vector<u8> as UTF-8 text. The node may render it as an
// array of numbers or as an already decoded string.
func Bytes(fields map[string]any, key string) (string, bool) {
	switch v := fields[key].(type) {
	case string:
		return v, true
	case []any:
		b := make([]byte, 0, len(v))
		for _, e := range v {
			f, ok := e.(float64)
			if !ok || f < 0 || f > 255 || f != math.Trunc(f) {
				return "", false
			}
			b = append(b, byte(f))
		}
		if !utf8.Valid(b) {
			return strings.ToValidUTF8(string(b), "�"), true
		}
		return string(b), true
	}
	return "", false
}

// Bool reads a bool field.
func Bool(fields map[string]any, key string) (bool, bool) {
	b, ok := fields[key].(bool)
	return b, ok
}

// Address reads an address field, normalized.
func Address(fields map[string]any, key string) (string, bool) {
	s, ok := fields[key].(string)
	if !ok || !model.IsObjectID(s) {
		return "", false
	}
	return model.NormalizeID(s), true
}

// ID reads an object id field.
func ID(fields map[string]any, key string) (string, bool) {
	return idValue(fields[key], 0)
}

// idValue accepts the id renderings seen from the node:
// "0x..", {"bytes":"0x.."}, {"id":"0x.."} and {"id":{"bytes":"0x.."}}.
func idValue(v any, depth int) (string, bool) {
	if depth > 3 {
		return "", false
	}
	switch x := v.(type) {
	case string:
		if !model.IsObjectID(x) {
			return "", false
		}
		return model.NormalizeID(x), true
	case map[string]any:
		if b, ok := x["bytes"]; ok {
			return idValue(b, depth+1)
		}
		if id, ok := x["id"]; ok {
			return idValue(id, depth+1)
		}
	}
	return "", false
}

// IDVector reads a vector<ID> field, skipping unreadable entries and
// duplicates while keeping first-seen order.
func IDVector(fields map[string]any, key string) []string {
	raw, ok := fields[key].([]any)
	if !ok {
		return nil
	}
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		id, ok := idValue(e, 0)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
