package txbuild

import (
	"encoding/hex"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/graaaaa/suiticket-companion/internal/amount"
	"github.com/graaaaa/suiticket-companion/internal/model"
)

// MaxEventNameBytes bounds the event name stored on chain.
const MaxEventNameBytes = 128

// CreateEventArgs are the arguments of create_event.
type CreateEventArgs struct {
	Name string `json:"name"`
	// Price is a decimal SUI amount, e.g. "0.1".
	Price    string `json:"price"`
	FeeBps   int64  `json:"fee_bps"`
	Platform string `json:"platform"`
}

// BuyTicketArgs are the arguments of buy_ticket.
type BuyTicketArgs struct {
	EventID       string      `json:"event_id"`
	SharedVersion string      `json:"shared_version"`
	PriceMist     amount.Mist `json:"price_mist"`
	// Recipient defaults to the sender.
	Recipient string `json:"recipient,omitempty"`
}

// IssuePermitArgs are the arguments of issue_permit.
type IssuePermitArgs struct {
	CapabilityID string `json:"capability_id"`
	TicketID     string `json:"ticket_id"`
	TicketOwner  string `json:"ticket_owner"`
}

// RedeemWithPermitArgs are the arguments of redeem_with_permit.
type RedeemWithPermitArgs struct {
	TicketID string `json:"ticket_id"`
	PermitID string `json:"permit_id"`
}

// SelfRedeemArgs are the arguments of redeem.
type SelfRedeemArgs struct {
	TicketID     string `json:"ticket_id"`
	CapabilityID string `json:"capability_id"`
}

// GrantCapArgs are the arguments of grant_cap.
type GrantCapArgs struct {
	CapabilityID string `json:"capability_id"`
	Staff        string `json:"staff"`
}

// Builder builds intents against one package.
type Builder struct {
	packageID string
	targets   Targets
}

// NewBuilder creates a Builder for packageID.
func NewBuilder(packageID string) *Builder {
	pkg := model.NormalizeID(packageID)
	return &Builder{packageID: pkg, targets: TargetsFor(pkg)}
}

// WithPackage returns a Builder for a different package, or b itself when
// override is empty.
func (b *Builder) WithPackage(override string) *Builder {
	if strings.TrimSpace(override) == "" {
		return b
	}
	return NewBuilder(override)
}

// PackageID returns the package this builder targets.
func (b *Builder) PackageID() string {
	return b.packageID
}

// Targets returns the Move targets of the package.
func (b *Builder) Targets() Targets {
	return b.targets
}

func (b *Builder) start(kind Kind, sender string, gas uint64) (*intentBuilder, error) {
	if !model.ValidID(b.packageID) {
		return nil, invalid("package_id", "package is not configured")
	}
	s, err := requireID("sender", sender)
	if err != nil {
		return nil, err
	}
	return newIntent(kind, b.packageID, s, gas), nil
}

// CreateEvent builds create_event(name, price, fee_bps, platform).
func (b *Builder) CreateEvent(sender string, a CreateEventArgs) (*Intent, error) {
	name := strings.TrimSpace(a.Name)
	if name == "" {
		return nil, invalid("name", "is required")
	}
	if len(name) > MaxEventNameBytes {
		return nil, invalid("name", "is longer than "+strconv.Itoa(MaxEventNameBytes)+" bytes")
	}
	if !utf8.ValidString(name) {
		return nil, invalid("name", "is not valid UTF-8")
	}
	price, err := amount.ParseDecimal(a.Price)
	if err != nil {
		return nil, invalidErr("price", err)
	}
	bps, err := amount.CheckFeeBps(a.FeeBps)
	if err != nil {
		return nil, invalidErr("fee_bps", err)
	}
	platform, err := requireID("platform", a.Platform)
	if err != nil {
		return nil, err
	}

	ib, err := b.start(KindCreateEvent, sender, GasCreateEvent)
	if err != nil {
		return nil, err
	}
	ib.moveCall(b.targets.CreateEvent,
		ib.pure(PureU8Vector, "0x"+hex.EncodeToString([]byte(name))),
		ib.pure(PureU64, price.String()),
		ib.pure(PureU16, strconv.FormatUint(uint64(bps), 10)),
		ib.pure(PureAddress, platform),
	)
	return ib.in, nil
}

// BuyTicket builds SplitCoins(gas, [price]) followed by
// buy_ticket(&Event, coin, recipient). The event is a shared object and
// must be referenced with its version token; without one the builder
// fails here instead of the ledger rejecting the transaction.
func (b *Builder) BuyTicket(sender string, a BuyTicketArgs) (*Intent, error) {
	eventID, err := requireID("event_id", a.EventID)
	if err != nil {
		return nil, err
	}
	version := strings.TrimSpace(a.SharedVersion)
	if version == "" {
		return nil, &ValidationError{Field: "shared_version", Err: ErrMissingSharedVersion}
	}
	if _, err := strconv.ParseUint(version, 10, 64); err != nil {
		return nil, invalid("shared_version", "is not a version number")
	}
	recipient := a.Recipient
	if strings.TrimSpace(recipient) == "" {
		recipient = sender
	}
	to, err := requireID("recipient", recipient)
	if err != nil {
		return nil, err
	}

	ib, err := b.start(KindBuyTicket, sender, GasBuyTicket)
	if err != nil {
		return nil, err
	}
	coin := ib.splitGas(ib.pure(PureU64, a.PriceMist.String()))
	ib.moveCall(b.targets.BuyTicket,
		ib.shared(eventID, version, false),
		coin,
		ib.pure(PureAddress, to),
	)
	return ib.in, nil
}

// IssuePermit builds issue_permit(&GateCap, ticket_id, ticket_owner).
func (b *Builder) IssuePermit(sender string, a IssuePermitArgs) (*Intent, error) {
	capID, err := requireID("capability_id", a.CapabilityID)
	if err != nil {
		return nil, err
	}
	ticketID, err := requireID("ticket_id", a.TicketID)
	if err != nil {
		return nil, err
	}
	owner, err := requireID("ticket_owner", a.TicketOwner)
	if err != nil {
		return nil, err
	}

	ib, err := b.start(KindIssuePermit, sender, GasIssuePermit)
	if err != nil {
		return nil, err
	}
	ib.moveCall(b.targets.IssuePermit,
		ib.owned(capID),
		ib.pure(PureAddress, ticketID),
		ib.pure(PureAddress, owner),
	)
	return ib.in, nil
}

// RedeemWithPermit builds redeem_with_permit(&mut Ticket, RedeemPermit).
func (b *Builder) RedeemWithPermit(sender string, a RedeemWithPermitArgs) (*Intent, error) {
	ticketID, err := requireID("ticket_id", a.TicketID)
	if err != nil {
		return nil, err
	}
	permitID, err := requireID("permit_id", a.PermitID)
	if err != nil {
		return nil, err
	}

	ib, err := b.start(KindRedeemWithPermit, sender, GasRedeemWithPermit)
	if err != nil {
		return nil, err
	}
	ib.moveCall(b.targets.RedeemWithPermit, ib.owned(ticketID), ib.owned(permitID))
	return ib.in, nil
}

// SelfRedeem builds redeem(&mut Ticket, &GateCap) for a holder who also
// holds the event's capability.
func (b *Builder) SelfRedeem(sender string, a SelfRedeemArgs) (*Intent, error) {
	ticketID, err := requireID("ticket_id", a.TicketID)
	if err != nil {
		return nil, err
	}
	capID, err := requireID("capability_id", a.CapabilityID)
	if err != nil {
		return nil, err
	}

	ib, err := b.start(KindSelfRedeem, sender, GasSelfRedeem)
	if err != nil {
		return nil, err
	}
	ib.moveCall(b.targets.Redeem, ib.owned(ticketID), ib.owned(capID))
	return ib.in, nil
}

// GrantCap is not available: the contract's grant_cap signature is not
// settled, so building it would produce a call that cannot succeed.
func (b *Builder) GrantCap(sender string, a GrantCapArgs) (*Intent, error) {
	return nil, ErrNotImplemented
}

func requireID(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", invalid(field, "is required")
	}
	if !model.ValidID(v) {
		return "", invalid(field, "is not a valid 0x identifier")
	}
	return model.NormalizeID(v), nil
}
