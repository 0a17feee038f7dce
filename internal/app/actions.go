package app

import (
	"context"

	"github.com/graaaaa/suiticket-companion/internal/model"
	"github.com/graaaaa/suiticket-companion/internal/reconcile"
	"github.com/graaaaa/suiticket-companion/internal/store"
)

// ActionsUsecase builds, executes and lists ticketing actions.
type ActionsUsecase interface {
	Build(ctx context.Context, req reconcile.ActionRequest) (*reconcile.BuiltIntent, error)
	Execute(ctx context.Context, a reconcile.SignedAction) (reconcile.Report, error)
	Lookup(ctx context.Context, ticketID string) (reconcile.TicketLookup, error)
	List(ctx context.Context, filter store.ActionFilter) (store.ActionPage, error)
}

// ActionEngine is the part of the reconciliation engine the API drives.
type ActionEngine interface {
	Build(ctx context.Context, req reconcile.ActionRequest) (*reconcile.BuiltIntent, error)
	Execute(ctx context.Context, a reconcile.SignedAction) (reconcile.Report, error)
	LookupTicket(ctx context.Context, id string) (reconcile.TicketLookup, error)
}

// ActionStore reads the action journal.
type ActionStore interface {
	QueryActions(ctx context.Context, f store.ActionFilter) (store.ActionPage, error)
}

// ActionsService implements ActionsUsecase.
type ActionsService struct {
	Engine ActionEngine
	Store  ActionStore
}

// Build validates and resolves an action into a signable intent.
func (s *ActionsService) Build(ctx context.Context, req reconcile.ActionRequest) (*reconcile.BuiltIntent, error) {
	return s.Engine.Build(ctx, req)
}

// Execute submits a signed action and waits for it to settle. The caller's
// cancellation does not abandon an action already handed to the ledger.
func (s *ActionsService) Execute(ctx context.Context, a reconcile.SignedAction) (reconcile.Report, error) {
	return s.Engine.Execute(context.WithoutCancel(ctx), a)
}

// Lookup is the staff-side ticket check.
func (s *ActionsService) Lookup(ctx context.Context, ticketID string) (reconcile.TicketLookup, error) {
	return s.Engine.LookupTicket(ctx, ticketID)
}

// List queries the journal.
func (s *ActionsService) List(ctx context.Context, filter store.ActionFilter) (store.ActionPage, error) {
	page, err := s.Store.QueryActions(ctx, filter)
	if err != nil {
		return store.ActionPage{}, err
	}
	if page.Items == nil {
		page.Items = []model.Action{}
	}
	return page, nil
}
