package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/graaaaa/suiticket-companion/internal/finality"
	"github.com/graaaaa/suiticket-companion/internal/model"
	"github.com/graaaaa/suiticket-companion/internal/txbuild"
)

// Execute runs a signed action to a terminal outcome.
//
// A returned error means the action was rejected before submission and
// nothing was journaled. Everything after submission, including ledger
// failures and timeouts, is reported in the Report. The transaction is
// submitted exactly once.
func (e *Engine) Execute(ctx context.Context, a SignedAction) (Report, error) {
	e.exec.Lock()
	defer e.exec.Unlock()

	if strings.TrimSpace(a.Transaction.TxBytes) == "" {
		return Report{}, &txbuild.ValidationError{Field: "transaction.tx_bytes", Reason: "is required"}
	}
	if len(a.Transaction.Signatures) == 0 {
		return Report{}, &txbuild.ValidationError{Field: "transaction.signatures", Reason: "are required"}
	}
	built, err := e.Build(ctx, a.Request)
	if err != nil {
		return Report{}, err
	}
	if a.IntentDigest != "" && !strings.EqualFold(a.IntentDigest, built.Digest) {
		return Report{}, &txbuild.ValidationError{Field: "intent_digest", Reason: "does not match the rebuilt intent"}
	}

	kind := built.Intent.Kind
	rep := Report{Action: model.Action{
		ID:           e.newID(),
		Kind:         string(kind),
		Owner:        built.Intent.Sender,
		PackageID:    built.Intent.PackageID,
		IntentDigest: built.Digest,
		Outcome:      model.ActionPending,
		CreatedAt:    e.now(),
	}}
	e.record(ctx, rep, true)

	log := e.logger.With("action_id", rep.ID, "kind", rep.Kind)

	e.narrate(&rep, StepSubmitting, "")
	sub, err := e.gw.SubmitTransaction(ctx, a.Transaction)
	if err != nil {
		log.Error("submit failed", "error", err)
		return e.settle(ctx, rep, model.ActionErrored, "Submit failed: "+err.Error()), nil
	}
	rep.Digest = sub.Digest
	log = log.With("digest", sub.Digest)

	e.narrate(&rep, StepAwaiting, sub.Digest)
	res, err := e.poller.Await(ctx, sub.Digest, createdSuffixes(kind)...)
	rep.Attempts = res.Attempts
	rep.Created = res.Created

	var rej *finality.RejectionError
	switch {
	case err == nil:
	case errors.Is(err, finality.ErrTimedOut):
		log.Warn("finality not observed", "attempts", res.Attempts)
		return e.settle(ctx, rep, model.ActionTimedOut, MsgTimedOut), nil
	case errors.As(err, &rej):
		log.Info("transaction rejected", "reason", rej.Reason)
		return e.settle(ctx, rep, model.ActionFailed, FailureMessage(rej.Reason, rej.Abort)), nil
	default:
		log.Error("finality check failed", "error", err)
		return e.settle(ctx, rep, model.ActionErrored, "Could not read transaction status: "+err.Error()), nil
	}

	if suffixes := createdSuffixes(kind); len(suffixes) > 0 {
		rep.CreatedID = res.Created[suffixes[0]]
	}

	if patch := optimisticPatch(rep.Owner, built.args, res.Created); patch != nil {
		if c := e.state.ApplyOptimistic(patch); c != nil {
			e.publish(c)
			e.narrate(&rep, StepPatched, "")
		}
	}

	if e.resync != nil {
		e.narrate(&rep, StepResyncing, "")
		if _, err := e.resync.RunOnce(ctx); err != nil {
			log.Warn("resync after action failed", "error", err)
			rep.Warning = fmt.Sprintf("The action succeeded but refreshing your objects failed: %v", err)
		}
	}
	return e.settle(ctx, rep, model.ActionSucceeded, SuccessMessage(kind)), nil
}

func (e *Engine) settle(ctx context.Context, rep Report, outcome model.ActionOutcome, msg string) Report {
	rep.Outcome = outcome
	rep.Message = msg
	rep.SettledAt = e.now()
	_, rep.Provenance, _ = e.state.Current()

	e.record(ctx, rep, false)
	e.narrate(&rep, StepSettled, msg)
	if e.onSettled != nil {
		e.onSettled(rep)
	}
	return rep
}

// record writes to the journal. A journal failure never changes the
// outcome of the action.
func (e *Engine) record(ctx context.Context, rep Report, insert bool) {
	if e.journal == nil {
		return
	}
	// The action runs to completion even if the caller went away.
	ctx = context.WithoutCancel(ctx)
	var err error
	if insert {
		err = e.journal.InsertAction(ctx, rep.Action)
	} else {
		err = e.journal.SettleAction(ctx, rep.Action)
	}
	if err != nil {
		e.logger.Warn("failed to journal action", "action_id", rep.ID, "error", err)
	}
}
