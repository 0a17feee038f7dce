// Package txbuild builds unsigned transaction intents for the ticketing
// package. Builders are pure: they validate arguments and describe the
// transaction, and never touch the network. The wallet turns an intent
// into signed transaction bytes.
package txbuild

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/graaaaa/suiticket-companion/internal/codec"
)

// Kind names an action.
type Kind string

const (
	KindCreateEvent      Kind = "create_event"
	KindBuyTicket        Kind = "buy_ticket"
	KindIssuePermit      Kind = "issue_permit"
	KindRedeemWithPermit Kind = "redeem_with_permit"
	KindSelfRedeem       Kind = "redeem"
	KindGrantCap         Kind = "grant_cap"
)

// Kinds lists every action kind.
var Kinds = []Kind{
	KindCreateEvent,
	KindBuyTicket,
	KindIssuePermit,
	KindRedeemWithPermit,
	KindSelfRedeem,
	KindGrantCap,
}

// ParseKind validates an action kind string.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// Gas budgets in MIST.
const (
	GasCreateEvent      uint64 = 25_000_000
	GasBuyTicket        uint64 = 25_000_000
	GasIssuePermit      uint64 = 30_000_000
	GasRedeemWithPermit uint64 = 30_000_000
	GasSelfRedeem       uint64 = 20_000_000
)

// Input kinds.
const (
	InputPure   = "pure"
	InputObject = "object"
)

// Object ownership for object inputs.
const (
	OwnershipOwned  = "owned"
	OwnershipShared = "shared"
)

// Pure value types.
const (
	PureU8Vector = "vector<u8>"
	PureU64      = "u64"
	PureU16      = "u16"
	PureAddress  = "address"
)

// Input is one transaction input. Pure values carry their Move type and a
// canonical string rendering; object inputs carry the object reference.
type Input struct {
	Kind  string `json:"kind"`
	Type  string `json:"type,omitempty"`
	Value string `json:"value,omitempty"`

	ObjectID             string `json:"object_id,omitempty"`
	Ownership            string `json:"ownership,omitempty"`
	InitialSharedVersion string `json:"initial_shared_version,omitempty"`
	Mutable              bool   `json:"mutable,omitempty"`
}

// Argument kinds.
const (
	ArgInput  = "input"
	ArgGas    = "gas"
	ArgResult = "result"
)

// Argument refers to an input, the gas coin, or a prior command's result.
type Argument struct {
	Kind  string `json:"kind"`
	Index int    `json:"index"`
}

// Command kinds.
const (
	CmdMoveCall   = "move_call"
	CmdSplitCoins = "split_coins"
)

// Command is one programmable transaction command.
type Command struct {
	Kind      string     `json:"kind"`
	Target    string     `json:"target,omitempty"`
	Arguments []Argument `json:"arguments,omitempty"`
	Coin      *Argument  `json:"coin,omitempty"`
	Amounts   []Argument `json:"amounts,omitempty"`
}

// Intent is an unsigned transaction description.
type Intent struct {
	Kind      Kind      `json:"kind"`
	PackageID string    `json:"package_id"`
	Sender    string    `json:"sender"`
	GasBudget uint64    `json:"gas_budget"`
	Inputs    []Input   `json:"inputs"`
	Commands  []Command `json:"commands"`
}

// Encode returns the canonical CBOR encoding of the intent.
func Encode(in *Intent) ([]byte, error) {
	return codec.Marshal(in)
}

// Digest returns the hex Blake2b-256 of the canonical encoding. It
// correlates a built intent with the signed transaction submitted for it.
func Digest(in *Intent) (string, error) {
	b, err := Encode(in)
	if err != nil {
		return "", fmt.Errorf("encode intent: %w", err)
	}
	sum := blake2b.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// intentBuilder accumulates inputs and commands.
type intentBuilder struct {
	in *Intent
}

func newIntent(kind Kind, pkg, sender string, gas uint64) *intentBuilder {
	return &intentBuilder{in: &Intent{
		Kind:      kind,
		PackageID: pkg,
		Sender:    sender,
		GasBudget: gas,
		Inputs:    []Input{},
		Commands:  []Command{},
	}}
}

func (b *intentBuilder) input(in Input) Argument {
	b.in.Inputs = append(b.in.Inputs, in)
	return Argument{Kind: ArgInput, Index: len(b.in.Inputs) - 1}
}

func (b *intentBuilder) pure(typ, value string) Argument {
	return b.input(Input{Kind: InputPure, Type: typ, Value: value})
}

func (b *intentBuilder) owned(id string) Argument {
	return b.input(Input{Kind: InputObject, ObjectID: id, Ownership: OwnershipOwned})
}

func (b *intentBuilder) shared(id, version string, mutable bool) Argument {
	return b.input(Input{
		Kind:                 InputObject,
		ObjectID:             id,
		Ownership:            OwnershipShared,
		InitialSharedVersion: version,
		Mutable:              mutable,
	})
}

func (b *intentBuilder) command(c Command) Argument {
	b.in.Commands = append(b.in.Commands, c)
	return Argument{Kind: ArgResult, Index: len(b.in.Commands) - 1}
}

func (b *intentBuilder) moveCall(target string, args ...Argument) Argument {
	return b.command(Command{Kind: CmdMoveCall, Target: target, Arguments: args})
}

func (b *intentBuilder) splitGas(amounts ...Argument) Argument {
	gas := Argument{Kind: ArgGas}
	return b.command(Command{Kind: CmdSplitCoins, Coin: &gas, Amounts: amounts})
}
