// Package registry reads the shared event registry that lists every
// event created through the package.
package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/graaaaa/suiticket-companion/internal/classify"
	"github.com/graaaaa/suiticket-companion/internal/ledger"
	"github.com/graaaaa/suiticket-companion/internal/model"
)

// ErrNotConfigured is returned when no registry id is set.
var ErrNotConfigured = errors.New("event registry is not configured")

// Load returns the event ids in the registry's events vector, deduplicated
// in registry order.
func Load(ctx context.Context, gw ledger.Gateway, registryID string) ([]string, error) {
	if registryID == "" {
		return nil, ErrNotConfigured
	}
	if !model.ValidID(registryID) {
		return nil, fmt.Errorf("registry id %q is not a valid 0x identifier", registryID)
	}
	obj, err := gw.GetObject(ctx, model.NormalizeID(registryID))
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	if obj.Missing {
		return nil, fmt.Errorf("registry %s: %w", registryID, ledger.ErrNotFound)
	}
	ids := classify.IDVector(obj.Fields, "events")
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}
