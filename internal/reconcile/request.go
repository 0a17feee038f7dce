package reconcile

import (
	"encoding/json"
	"fmt"

	"github.com/graaaaa/suiticket-companion/internal/amount"
	"github.com/graaaaa/suiticket-companion/internal/ledger"
	"github.com/graaaaa/suiticket-companion/internal/txbuild"
)

// ActionRequest names an action and carries its arguments in the JSON
// shape of the matching txbuild argument struct.
type ActionRequest struct {
	Kind txbuild.Kind `json:"kind"`
	// PackageID overrides the configured package for this action.
	PackageID string          `json:"package_id,omitempty"`
	Args      json.RawMessage `json:"args"`
}

// NewRequest encodes args into an ActionRequest.
func NewRequest(kind txbuild.Kind, args any) (ActionRequest, error) {
	b, err := json.Marshal(args)
	if err != nil {
		return ActionRequest{}, fmt.Errorf("encode %s args: %w", kind, err)
	}
	return ActionRequest{Kind: kind, Args: b}, nil
}

// Quote is the payment breakdown of a purchase.
type Quote struct {
	PriceMist     amount.Mist `json:"price_mist"`
	FeeBps        uint16      `json:"fee_bps"`
	FeeMist       amount.Mist `json:"fee_mist"`
	OrganizerMist amount.Mist `json:"organizer_mist"`
}

// BuiltIntent is a validated, resolved action ready for signing. Request
// holds the arguments after defaults and lookups were applied; sending
// it back in a SignedAction rebuilds the same intent.
type BuiltIntent struct {
	Request ActionRequest   `json:"request"`
	Intent  *txbuild.Intent `json:"intent"`
	Digest  string          `json:"digest"`
	Quote   *Quote          `json:"quote,omitempty"`

	args any
}

// SignedAction is a built action together with the wallet's signed
// transaction. IntentDigest, when set, must match the rebuilt intent.
type SignedAction struct {
	Request      ActionRequest            `json:"request"`
	IntentDigest string                   `json:"intent_digest,omitempty"`
	Transaction  ledger.SignedTransaction `json:"transaction"`
}

func decodeArgs(req ActionRequest, dst any) error {
	if len(req.Args) == 0 {
		return &txbuild.ValidationError{Field: "args", Reason: "are required"}
	}
	if err := json.Unmarshal(req.Args, dst); err != nil {
		return &txbuild.ValidationError{Field: "args", Reason: "are malformed", Err: err}
	}
	return nil
}

func encodeArgs(req ActionRequest, args any) (ActionRequest, error) {
	b, err := json.Marshal(args)
	if err != nil {
		return req, fmt.Errorf("encode %s args: %w", req.Kind, err)
	}
	req.Args = b
	return req, nil
}
