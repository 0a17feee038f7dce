package app

import (
	"context"

	"github.com/graaaaa/suiticket-companion/internal/store"
)

// PrefsUsecase reads and writes user preferences.
type PrefsUsecase interface {
	Get(ctx context.Context) (PrefsResult, error)
	Save(ctx context.Context, p store.Prefs) (PrefsResult, error)
}

// PrefsStore persists preferences and recent events.
type PrefsStore interface {
	GetPrefs(ctx context.Context) (store.Prefs, error)
	SavePrefs(ctx context.Context, p store.Prefs) error
	RecentEvents(ctx context.Context) ([]string, error)
}

// PrefsResult is the preferences response.
type PrefsResult struct {
	store.Prefs
	RecentEvents []string `json:"recent_events"`
}

// PrefsService implements PrefsUsecase.
type PrefsService struct {
	Store PrefsStore
}

// Get returns the preferences and recently opened events.
func (s *PrefsService) Get(ctx context.Context) (PrefsResult, error) {
	p, err := s.Store.GetPrefs(ctx)
	if err != nil {
		return PrefsResult{}, err
	}
	recent, err := s.Store.RecentEvents(ctx)
	if err != nil {
		return PrefsResult{}, err
	}
	return PrefsResult{Prefs: p, RecentEvents: recent}, nil
}

// Save replaces the preferences.
func (s *PrefsService) Save(ctx context.Context, p store.Prefs) (PrefsResult, error) {
	if err := s.Store.SavePrefs(ctx, p); err != nil {
		return PrefsResult{}, err
	}
	return s.Get(ctx)
}
