package namecache

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"github.com/graaaaa/suiticket-companion/internal/classify"
	"github.com/graaaaa/suiticket-companion/internal/ledger"
	"github.com/graaaaa/suiticket-companion/internal/model"
)

// Resolver looks up event names, reading only ids the cache lacks.
type Resolver struct {
	gw     ledger.Gateway
	batch  ledger.BatchReader
	cache  *Cache
	logger *slog.Logger
}

// NewResolver creates a Resolver. A gateway that implements
// ledger.BatchReader is read with one request per lookup.
func NewResolver(gw ledger.Gateway, cache *Cache, logger *slog.Logger) *Resolver {
	if cache == nil {
		cache = NewCache(DefaultCapacity)
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{gw: gw, cache: cache, logger: logger}
	if b, ok := gw.(ledger.BatchReader); ok {
		r.batch = b
	}
	return r
}

// Cache returns the underlying cache.
func (r *Resolver) Cache() *Cache {
	return r.cache
}

// NormalizeIDs trims, lower-cases, dedupes and sorts ids, dropping
// anything that does not start with 0x.
func NormalizeIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, raw := range ids {
		id := model.NormalizeID(raw)
		if id == "" || !strings.HasPrefix(id, "0x") || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Names resolves ids to names. The result is best effort: ids that could
// not be read or carry no name are absent. An error is returned only when
// there was something to fetch and every fetch failed.
func (r *Resolver) Names(ctx context.Context, ids []string) (map[string]string, error) {
	ids = NormalizeIDs(ids)
	out := make(map[string]string, len(ids))

	var missing []string
	for _, id := range ids {
		if name, ok := r.cache.Get(id); ok {
			out[id] = name
		} else {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return out, nil
	}

	objs, err := r.fetch(ctx, missing)
	if len(objs) == 0 && err != nil {
		return out, err
	}
	for _, obj := range objs {
		if obj.Missing {
			continue
		}
		// The package is not known here, so the name is read from any
		// object's fields rather than a classified Event.
		name, ok := classify.Bytes(obj.Fields, "name")
		if !ok || name == "" {
			continue
		}
		id := model.NormalizeID(obj.ID)
		r.cache.Put(id, name)
		out[id] = name
	}
	return out, nil
}

func (r *Resolver) fetch(ctx context.Context, ids []string) ([]ledger.ObjectView, error) {
	if r.batch != nil {
		return r.batch.MultiGetObjects(ctx, ids)
	}
	var (
		objs []ledger.ObjectView
		errs []error
	)
	for _, id := range ids {
		obj, err := r.gw.GetObject(ctx, id)
		if err != nil {
			r.logger.Debug("event name lookup failed", "id", id, "error", err)
			errs = append(errs, err)
			continue
		}
		objs = append(objs, obj)
	}
	return objs, errors.Join(errs...)
}
