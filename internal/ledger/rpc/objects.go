package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/graaaaa/suiticket-companion/internal/ledger"
)

var objectOptions = map[string]bool{
	"showType":    true,
	"showOwner":   true,
	"showContent": true,
}

type objectResponse struct {
	Data  *objectData  `json:"data"`
	Error *objectError `json:"error"`
}

type objectError struct {
	Code     string `json:"code"`
	ObjectID string `json:"object_id"`
}

type objectData struct {
	ObjectID string          `json:"objectId"`
	Version  json.RawMessage `json:"version"`
	Type     string          `json:"type"`
	Owner    json.RawMessage `json:"owner"`
	Content  *struct {
		DataType string         `json:"dataType"`
		Type     string         `json:"type"`
		Fields   map[string]any `json:"fields"`
	} `json:"content"`
}

type ownedObjectsResponse struct {
	Data        []objectResponse `json:"data"`
	NextCursor  *string          `json:"nextCursor"`
	HasNextPage bool             `json:"hasNextPage"`
}

// GetObject implements ledger.Gateway.
func (c *Client) GetObject(ctx context.Context, id string) (ledger.ObjectView, error) {
	var resp objectResponse
	if err := c.call(ctx, "sui_getObject", []any{id, objectOptions}, &resp); err != nil {
		return ledger.ObjectView{}, err
	}
	return toObjectView(id, resp), nil
}

// MultiGetObjects implements ledger.BatchReader.
func (c *Client) MultiGetObjects(ctx context.Context, ids []string) ([]ledger.ObjectView, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var resp []objectResponse
	if err := c.call(ctx, "sui_multiGetObjects", []any{ids, objectOptions}, &resp); err != nil {
		return nil, err
	}
	if len(resp) != len(ids) {
		return nil, &ledger.AdapterError{
			Op:  "sui_multiGetObjects",
			Err: fmt.Errorf("got %d results for %d ids", len(resp), len(ids)),
		}
	}
	out := make([]ledger.ObjectView, len(resp))
	for i, r := range resp {
		out[i] = toObjectView(ids[i], r)
	}
	return out, nil
}

// GetOwnedObjects implements ledger.Gateway.
func (c *Client) GetOwnedObjects(ctx context.Context, owner, cursor string, limit int) (ledger.OwnedPage, error) {
	if limit <= 0 {
		limit = ledger.DefaultPageSize
	}
	var cur any
	if cursor != "" {
		cur = cursor
	}
	query := map[string]any{"options": objectOptions}

	var resp ownedObjectsResponse
	if err := c.call(ctx, "suix_getOwnedObjects", []any{owner, query, cur, limit}, &resp); err != nil {
		return ledger.OwnedPage{}, err
	}

	page := ledger.OwnedPage{
		Objects:     make([]ledger.ObjectView, 0, len(resp.Data)),
		HasNextPage: resp.HasNextPage,
	}
	for _, r := range resp.Data {
		if r.Data == nil {
			continue
		}
		page.Objects = append(page.Objects, toObjectView(r.Data.ObjectID, r))
	}
	if resp.NextCursor != nil && resp.HasNextPage {
		page.NextCursor = *resp.NextCursor
	}
	return page, nil
}

func toObjectView(requestedID string, r objectResponse) ledger.ObjectView {
	if r.Data == nil {
		return ledger.ObjectView{ID: requestedID, Missing: true}
	}
	d := r.Data
	v := ledger.ObjectView{
		ID:      d.ObjectID,
		Type:    d.Type,
		Version: rawScalar(d.Version),
		Owner:   parseOwner(d.Owner),
	}
	if d.Content != nil && d.Content.DataType == "moveObject" {
		v.Fields = d.Content.Fields
		if v.Type == "" {
			v.Type = d.Content.Type
		}
	}
	return v
}

// parseOwner decodes the owner shapes the node emits:
//
//	{"AddressOwner":"0x.."}
//	{"ObjectOwner":"0x.."}
//	{"Shared":{"initial_shared_version":123}}
//	"Immutable"
func parseOwner(raw json.RawMessage) ledger.Owner {
	if len(raw) == 0 {
		return ledger.Owner{}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "Immutable" {
			return ledger.Owner{Kind: ledger.OwnerImmutable}
		}
		return ledger.Owner{}
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return ledger.Owner{}
	}
	if v, ok := m["AddressOwner"]; ok {
		return ledger.Owner{Kind: ledger.OwnerAddress, Address: strings.ToLower(rawScalar(v))}
	}
	if v, ok := m["ObjectOwner"]; ok {
		return ledger.Owner{Kind: ledger.OwnerObject, Address: strings.ToLower(rawScalar(v))}
	}
	if v, ok := m["Shared"]; ok {
		var shared struct {
			InitialSharedVersion json.RawMessage `json:"initial_shared_version"`
		}
		_ = json.Unmarshal(v, &shared)
		return ledger.Owner{Kind: ledger.OwnerShared, InitialSharedVersion: rawScalar(shared.InitialSharedVersion)}
	}
	return ledger.Owner{}
}

// rawScalar renders a JSON string or number as its plain text.
func rawScalar(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
