// Package ledgertest provides an in-memory ledger.Gateway for tests.
package ledgertest

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"

	"github.com/graaaaa/suiticket-companion/internal/ledger"
)

// Fake is an in-memory ledger. Objects owned by an address are listed by
// GetOwnedObjects in id order. Transactions are unknown until scripted
// with SetTransaction. Fake implements ledger.BatchReader.
type Fake struct {
	// SubmitFunc handles SubmitTransaction. When nil, submissions fail.
	SubmitFunc func(ctx context.Context, tx ledger.SignedTransaction) (ledger.SubmitResult, error)
	// GetObjectErr, when set, fails every object read.
	GetObjectErr error
	// OwnedErr, when set, fails every owned listing.
	OwnedErr error

	mu      sync.Mutex
	objects map[string]ledger.ObjectView
	txs     map[string]ledger.TxResponse
	calls   map[string]int
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{
		objects: make(map[string]ledger.ObjectView),
		txs:     make(map[string]ledger.TxResponse),
		calls:   make(map[string]int),
	}
}

// Put adds or replaces objects.
func (f *Fake) Put(objs ...ledger.ObjectView) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range objs {
		f.objects[o.ID] = o
	}
}

// Update applies fn to a stored object. It reports whether id exists.
func (f *Fake) Update(id string, fn func(*ledger.ObjectView)) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.objects[id]
	if !ok {
		return false
	}
	fn(&o)
	f.objects[id] = o
	return true
}

// Delete removes an object.
func (f *Fake) Delete(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, id)
}

// SetTransaction scripts the status returned for digest.
func (f *Fake) SetTransaction(tx ledger.TxResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txs[tx.Digest] = tx
}

// Calls returns how many times a method was called.
func (f *Fake) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *Fake) count(method string) {
	f.mu.Lock()
	f.calls[method]++
	f.mu.Unlock()
}

func (f *Fake) GetObject(ctx context.Context, id string) (ledger.ObjectView, error) {
	f.count("GetObject")
	if err := ctx.Err(); err != nil {
		return ledger.ObjectView{}, err
	}
	if f.GetObjectErr != nil {
		return ledger.ObjectView{}, f.GetObjectErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.objects[id]
	if !ok {
		return ledger.ObjectView{ID: id, Missing: true}, nil
	}
	return o, nil
}

func (f *Fake) MultiGetObjects(ctx context.Context, ids []string) ([]ledger.ObjectView, error) {
	f.count("MultiGetObjects")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.GetObjectErr != nil {
		return nil, f.GetObjectErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ledger.ObjectView, len(ids))
	for i, id := range ids {
		o, ok := f.objects[id]
		if !ok {
			o = ledger.ObjectView{ID: id, Missing: true}
		}
		out[i] = o
	}
	return out, nil
}

// GetOwnedObjects pages with the cursor being the offset of the next item.
func (f *Fake) GetOwnedObjects(ctx context.Context, owner, cursor string, limit int) (ledger.OwnedPage, error) {
	f.count("GetOwnedObjects")
	if err := ctx.Err(); err != nil {
		return ledger.OwnedPage{}, err
	}
	if f.OwnedErr != nil {
		return ledger.OwnedPage{}, f.OwnedErr
	}
	if limit <= 0 {
		limit = ledger.DefaultPageSize
	}
	start := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil {
			return ledger.OwnedPage{}, errors.New("ledgertest: bad cursor")
		}
		start = n
	}

	f.mu.Lock()
	var owned []ledger.ObjectView
	for _, o := range f.objects {
		if o.Owner.Kind == ledger.OwnerAddress && o.Owner.Address == owner {
			owned = append(owned, o)
		}
	}
	f.mu.Unlock()
	sort.Slice(owned, func(i, j int) bool { return owned[i].ID < owned[j].ID })

	if start > len(owned) {
		start = len(owned)
	}
	end := start + limit
	if end > len(owned) {
		end = len(owned)
	}
	page := ledger.OwnedPage{Objects: owned[start:end]}
	if end < len(owned) {
		page.HasNextPage = true
		page.NextCursor = strconv.Itoa(end)
	}
	return page, nil
}

func (f *Fake) SubmitTransaction(ctx context.Context, tx ledger.SignedTransaction) (ledger.SubmitResult, error) {
	f.count("SubmitTransaction")
	if f.SubmitFunc == nil {
		return ledger.SubmitResult{}, &ledger.AdapterError{Op: "executeTransactionBlock", Err: errors.New("no submit handler")}
	}
	return f.SubmitFunc(ctx, tx)
}

func (f *Fake) GetTransaction(ctx context.Context, digest string) (ledger.TxResponse, error) {
	f.count("GetTransaction")
	if err := ctx.Err(); err != nil {
		return ledger.TxResponse{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if tx, ok := f.txs[digest]; ok {
		return tx, nil
	}
	return ledger.TxResponse{Digest: digest}, nil
}

var (
	_ ledger.Gateway     = (*Fake)(nil)
	_ ledger.BatchReader = (*Fake)(nil)
)
