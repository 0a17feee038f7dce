package ledger

import "strings"

// OwnerKind is the ownership class of an object.
type OwnerKind string

const (
	OwnerAddress   OwnerKind = "address"
	OwnerShared    OwnerKind = "shared"
	OwnerObject    OwnerKind = "object"
	OwnerImmutable OwnerKind = "immutable"
	OwnerUnknown   OwnerKind = ""
)

// Owner describes who owns an object. InitialSharedVersion is set only for
// shared objects and is the version token needed to reference them.
type Owner struct {
	Kind                 OwnerKind `json:"kind"`
	Address              string    `json:"address,omitempty"`
	InitialSharedVersion string    `json:"initial_shared_version,omitempty"`
}

// ObjectView is a normalized object read.
type ObjectView struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	Version string         `json:"version,omitempty"`
	Owner   Owner          `json:"owner"`
	Fields  map[string]any `json:"fields,omitempty"`
	Missing bool           `json:"missing,omitempty"`
}

// OwnedPage is one page of an owned-object listing.
type OwnedPage struct {
	Objects     []ObjectView
	NextCursor  string
	HasNextPage bool
}

// SignedTransaction is a wallet-signed transaction ready for broadcast.
// TxBytes and Signatures are base64 as produced by the wallet.
type SignedTransaction struct {
	TxBytes    string   `json:"tx_bytes"`
	Signatures []string `json:"signatures"`
}

// SubmitResult carries the digest assigned on broadcast. Status is filled
// when the node already reports effects in the submit response.
type SubmitResult struct {
	Digest   string
	Response TxResponse
}

// Transaction outcome statuses.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// TxResponse is a normalized transaction status read. Status is empty
// while the transaction is not yet visible.
type TxResponse struct {
	Digest        string         `json:"digest"`
	Status        string         `json:"status,omitempty"`
	Error         string         `json:"error,omitempty"`
	ObjectChanges []ObjectChange `json:"object_changes,omitempty"`
}

// Ready reports whether the transaction reached a final status.
func (r TxResponse) Ready() bool {
	return r.Status == StatusSuccess || r.Status == StatusFailure
}

// ObjectChange is one entry of a transaction's object changes.
type ObjectChange struct {
	Type       string `json:"type"`
	ObjectID   string `json:"object_id"`
	ObjectType string `json:"object_type"`
}

// StripTypeParams removes generic parameters from a Move type tag,
// e.g. "0x2::coin::Coin<0x2::sui::SUI>" becomes "0x2::coin::Coin".
func StripTypeParams(t string) string {
	if i := strings.IndexByte(t, '<'); i >= 0 {
		return t[:i]
	}
	return t
}

// CreatedObjectID returns the id of the first created object whose type,
// generics stripped, ends with suffix.
func CreatedObjectID(changes []ObjectChange, suffix string) (string, bool) {
	for _, c := range changes {
		if c.Type != "created" {
			continue
		}
		if strings.HasSuffix(StripTypeParams(c.ObjectType), suffix) {
			return c.ObjectID, true
		}
	}
	return "", false
}
