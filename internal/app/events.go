package app

import (
	"context"
	"log/slog"

	"github.com/graaaaa/suiticket-companion/internal/ledger"
	"github.com/graaaaa/suiticket-companion/internal/model"
	"github.com/graaaaa/suiticket-companion/internal/registry"
)

// EventsUsecase reads events and the shared registry.
type EventsUsecase interface {
	// Event reads one event and remembers it as recently opened.
	Event(ctx context.Context, id string) (model.Event, error)
	// Registry lists the registry's events with their names.
	Registry(ctx context.Context) (RegistryResult, error)
	// Names resolves event names, best-effort.
	Names(ctx context.Context, ids []string) (map[string]string, error)
}

// EventReader reads a single event object.
type EventReader interface {
	ReadEvent(ctx context.Context, id string) (model.Event, error)
}

// NameResolver resolves event names through a cache.
type NameResolver interface {
	Names(ctx context.Context, ids []string) (map[string]string, error)
}

// RecentEventStore remembers recently opened events.
type RecentEventStore interface {
	PushRecentEvent(ctx context.Context, eventID string) error
}

// RegistryResult is the registry listing.
type RegistryResult struct {
	EventIDs []string          `json:"event_ids"`
	Names    map[string]string `json:"names"`
}

// EventsService implements EventsUsecase.
type EventsService struct {
	Reader     EventReader
	Resolver   NameResolver
	Recent     RecentEventStore
	Gateway    ledger.Gateway
	RegistryID string
	Logger     *slog.Logger
}

// Event reads id. Failing to remember it is not an error.
func (s *EventsService) Event(ctx context.Context, id string) (model.Event, error) {
	ev, err := s.Reader.ReadEvent(ctx, id)
	if err != nil {
		return model.Event{}, err
	}
	if s.Recent != nil {
		if err := s.Recent.PushRecentEvent(ctx, ev.ID); err != nil {
			s.logger().Debug("recent event not recorded", "event", ev.ID, "error", err)
		}
	}
	return ev, nil
}

func (s *EventsService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Registry loads the registry's event ids and resolves their names.
func (s *EventsService) Registry(ctx context.Context) (RegistryResult, error) {
	ids, err := registry.Load(ctx, s.Gateway, s.RegistryID)
	if err != nil {
		return RegistryResult{}, err
	}
	names, err := s.Names(ctx, ids)
	if err != nil {
		// Names are decoration; the listing stands on its own.
		names = map[string]string{}
	}
	return RegistryResult{EventIDs: ids, Names: names}, nil
}

// Names resolves ids to names.
func (s *EventsService) Names(ctx context.Context, ids []string) (map[string]string, error) {
	if s.Resolver == nil || len(ids) == 0 {
		return map[string]string{}, nil
	}
	return s.Resolver.Names(ctx, ids)
}
