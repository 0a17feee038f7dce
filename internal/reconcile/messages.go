package reconcile

import (
	"fmt"

	"github.com/graaaaa/suiticket-companion/internal/ledger"
	"github.com/graaaaa/suiticket-companion/internal/txbuild"
)

// Abort code the ticket module raises when a ticket was already redeemed.
const abortTicketUsed = 0

// MsgTimedOut is reported when finality was not observed in time.
const MsgTimedOut = "Transaction submitted but its outcome is unknown; check it on the explorer before retrying"

// FailureMessage turns a ledger rejection into a user-facing sentence.
// Known aborts on the redeem paths get a specific message; any other
// reason is passed through verbatim.
func FailureMessage(reason string, abort *ledger.MoveAbort) string {
	if abort != nil && abort.Code == abortTicketUsed {
		switch abort.Function {
		case string(txbuild.KindSelfRedeem), string(txbuild.KindRedeemWithPermit):
			return "Ticket already used"
		}
	}
	if reason != "" {
		return reason
	}
	if abort != nil {
		return fmt.Sprintf("%s failed (abort %d)", abort.Function, abort.Code)
	}
	return "Transaction failed"
}

// SuccessMessage describes a succeeded action.
func SuccessMessage(kind txbuild.Kind) string {
	switch kind {
	case txbuild.KindCreateEvent:
		return "Event created"
	case txbuild.KindBuyTicket:
		return "Ticket purchased"
	case txbuild.KindIssuePermit:
		return "Permit issued"
	case txbuild.KindRedeemWithPermit, txbuild.KindSelfRedeem:
		return "Ticket redeemed"
	}
	return "Done"
}
