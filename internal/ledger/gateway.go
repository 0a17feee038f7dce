// Package ledger defines the boundary to the Sui fullnode: the Gateway
// interface every ledger read and write goes through, and the normalized
// shapes it returns.
//
// Implementations live in subpackages (ledger/rpc). Optional capabilities
// such as a blocking finality wait are separate interfaces, detected by
// type assertion.
package ledger

import "context"

// DefaultPageSize is the page size used for owned-object listing.
const DefaultPageSize = 50

// Gateway is the minimal ledger surface the companion needs.
type Gateway interface {
	// GetObject reads one object with its type, owner and fields.
	// A missing or deleted object returns an ObjectView with Missing set.
	GetObject(ctx context.Context, id string) (ObjectView, error)

	// GetOwnedObjects lists one page of objects owned by owner.
	// An empty cursor starts from the beginning.
	GetOwnedObjects(ctx context.Context, owner, cursor string, limit int) (OwnedPage, error)

	// SubmitTransaction broadcasts a signed transaction once.
	SubmitTransaction(ctx context.Context, tx SignedTransaction) (SubmitResult, error)

	// GetTransaction reads the status of a submitted transaction.
	// A transaction the node has not indexed yet returns a TxResponse
	// with an empty Status and no error.
	GetTransaction(ctx context.Context, digest string) (TxResponse, error)
}

// FinalityWaiter is implemented by gateways that can block until a
// transaction is final.
type FinalityWaiter interface {
	WaitForFinality(ctx context.Context, digest string) (TxResponse, error)
}

// BatchReader is implemented by gateways that can read many objects in
// one request. Results are in request order.
type BatchReader interface {
	MultiGetObjects(ctx context.Context, ids []string) ([]ObjectView, error)
}
