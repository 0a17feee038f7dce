package txbuild

// Targets are the fully qualified Move functions of one package.
type Targets struct {
	CreateEvent      string `json:"create_event"`
	BuyTicket        string `json:"buy_ticket"`
	IssuePermit      string `json:"issue_permit"`
	RedeemWithPermit string `json:"redeem_with_permit"`
	Redeem           string `json:"redeem"`
	GrantCap         string `json:"grant_cap"`
}

// TargetsFor returns the targets in packageID's ticket module.
func TargetsFor(packageID string) Targets {
	base := packageID + "::ticket::"
	return Targets{
		CreateEvent:      base + "create_event",
		BuyTicket:        base + "buy_ticket",
		IssuePermit:      base + "issue_permit",
		RedeemWithPermit: base + "redeem_with_permit",
		Redeem:           base + "redeem",
		GrantCap:         base + "grant_cap",
	}
}
