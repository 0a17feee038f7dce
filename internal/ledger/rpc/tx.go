package rpc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/graaaaa/suiticket-companion/internal/ledger"
)

var txOptions = map[string]bool{
	"showEffects":       true,
	"showObjectChanges": true,
}

type txBlockResponse struct {
	Digest  string `json:"digest"`
	Effects *struct {
		Status struct {
			Status string `json:"status"`
			Error  string `json:"error"`
		} `json:"status"`
	} `json:"effects"`
	ObjectChanges []struct {
		Type       string `json:"type"`
		ObjectID   string `json:"objectId"`
		ObjectType string `json:"objectType"`
	} `json:"objectChanges"`
}

func (r txBlockResponse) normalize(digest string) ledger.TxResponse {
	out := ledger.TxResponse{Digest: r.Digest}
	if out.Digest == "" {
		out.Digest = digest
	}
	if r.Effects != nil {
		out.Status = r.Effects.Status.Status
		out.Error = r.Effects.Status.Error
	}
	for _, c := range r.ObjectChanges {
		out.ObjectChanges = append(out.ObjectChanges, ledger.ObjectChange{
			Type:       c.Type,
			ObjectID:   c.ObjectID,
			ObjectType: c.ObjectType,
		})
	}
	return out
}

// SubmitTransaction implements ledger.Gateway. The node is asked to return
// effects when it has them, which often makes the first status poll
// unnecessary; callers still treat the result as unconfirmed.
func (c *Client) SubmitTransaction(ctx context.Context, tx ledger.SignedTransaction) (ledger.SubmitResult, error) {
	if tx.TxBytes == "" || len(tx.Signatures) == 0 {
		return ledger.SubmitResult{}, &ledger.AdapterError{
			Op:  "sui_executeTransactionBlock",
			Err: errors.New("transaction bytes and at least one signature are required"),
		}
	}
	var resp txBlockResponse
	params := []any{tx.TxBytes, tx.Signatures, txOptions, "WaitForEffectsCert"}
	if err := c.call(ctx, "sui_executeTransactionBlock", params, &resp); err != nil {
		return ledger.SubmitResult{}, err
	}
	if resp.Digest == "" {
		return ledger.SubmitResult{}, &ledger.AdapterError{
			Op:  "sui_executeTransactionBlock",
			Err: errors.New("node returned no digest"),
		}
	}
	return ledger.SubmitResult{Digest: resp.Digest, Response: resp.normalize(resp.Digest)}, nil
}

// GetTransaction implements ledger.Gateway. A transaction the node does
// not know yet is reported as not ready rather than as an error.
func (c *Client) GetTransaction(ctx context.Context, digest string) (ledger.TxResponse, error) {
	var resp txBlockResponse
	err := c.call(ctx, "sui_getTransactionBlock", []any{digest, txOptions}, &resp)
	if err != nil {
		if isNotYetIndexed(err) {
			return ledger.TxResponse{Digest: digest}, nil
		}
		return ledger.TxResponse{}, err
	}
	return resp.normalize(digest), nil
}

func isNotYetIndexed(err error) bool {
	var re *RPCError
	if !errors.As(err, &re) || re.Code != codeInvalidParams {
		return false
	}
	msg := strings.ToLower(re.Message)
	return strings.Contains(msg, "could not find") || strings.Contains(msg, "not found")
}

// WaitingClient is a Client that also implements ledger.FinalityWaiter.
type WaitingClient struct {
	*Client
	timeout  time.Duration
	interval time.Duration
}

// WaitForFinality blocks until the node reports a final status for digest
// or the wait timeout passes. Transient node errors inside the wait are
// absorbed; anything else ends the wait.
func (w *WaitingClient) WaitForFinality(ctx context.Context, digest string) (ledger.TxResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		resp, err := w.GetTransaction(ctx, digest)
		if err == nil && resp.Ready() {
			return resp, nil
		}
		if err != nil && !ledger.IsTransient(err) {
			return ledger.TxResponse{}, err
		}

		select {
		case <-ctx.Done():
			return ledger.TxResponse{}, &ledger.AdapterError{
				Op:  "waitForTransaction",
				Err: fmt.Errorf("digest %s: %w", digest, ctx.Err()),
			}
		case <-ticker.C:
		}
	}
}

var (
	_ ledger.Gateway        = (*Client)(nil)
	_ ledger.BatchReader    = (*Client)(nil)
	_ ledger.FinalityWaiter = (*WaitingClient)(nil)
)
