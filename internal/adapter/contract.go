// Package adapter talks to the document contract: wire messages, the chain
// REST and signer clients, and an in-process emulation of the contract.
package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/docustore/internal/types"
)

// ContractQuerier runs read-only smart queries. out receives the decoded
// JSON response.
type ContractQuerier interface {
	QuerySmart(ctx context.Context, contract string, msg *QueryMsg, out interface{}) error
}

// ContractExecutor submits state-changing calls and returns once the
// transaction is confirmed.
type ContractExecutor interface {
	Execute(ctx context.Context, sender, contract string, msg *ExecuteMsg, fee types.FeePolicy) (*TxResult, error)
}

// ContractClient is both halves, which is what the document store needs
type ContractClient interface {
	ContractQuerier
	ContractExecutor
}

// SplitClient serves queries and executes from separate backends, such as
// a REST endpoint for reads and a signer gateway for writes
type SplitClient struct {
	ContractQuerier
	ContractExecutor
}

// QueryMsg is the contract's query enum. Exactly one field is set.
type QueryMsg struct {
	Get           *GetQuery           `json:"Get,omitempty"`
	UserDocuments *UserDocumentsQuery `json:"UserDocuments,omitempty"`
}

// GetQuery looks up one document by key
type GetQuery struct {
	Collection string `json:"collection"`
	Document   string `json:"document"`
}

// UserDocumentsQuery lists an owner's documents in a collection, ordered by key
type UserDocumentsQuery struct {
	Owner      string  `json:"owner"`
	Collection string  `json:"collection"`
	StartAfter *string `json:"start_after,omitempty"`
	Limit      *uint32 `json:"limit,omitempty"`
}

// Name returns the variant name, used for metrics and logs
func (m *QueryMsg) Name() string {
	switch {
	case m.Get != nil:
		return "Get"
	case m.UserDocuments != nil:
		return "UserDocuments"
	default:
		return "unknown"
	}
}

// ExecuteMsg is the contract's execute enum. Exactly one field is set.
type ExecuteMsg struct {
	Set    *WriteDocument  `json:"Set,omitempty"`
	Update *WriteDocument  `json:"Update,omitempty"`
	Delete *DeleteDocument `json:"Delete,omitempty"`
}

// WriteDocument is the body of Set and Update
type WriteDocument struct {
	Collection string `json:"collection"`
	Document   string `json:"document"`
	Data       string `json:"data"`
}

// DeleteDocument is the body of Delete
type DeleteDocument struct {
	Collection string `json:"collection"`
	Document   string `json:"document"`
}

// Name returns the variant name, used for metrics and logs
func (m *ExecuteMsg) Name() string {
	switch {
	case m.Set != nil:
		return "Set"
	case m.Update != nil:
		return "Update"
	case m.Delete != nil:
		return "Delete"
	default:
		return "unknown"
	}
}

// Document is a stored payload. Data is an opaque string, JSON by convention.
type Document struct {
	Data string `json:"data"`
}

// GetResponse answers GetQuery; Document is nil when the key is absent
type GetResponse struct {
	Document *Document `json:"document,omitempty"`
}

// DocumentEntry is one (key, document) pair. On the wire it is a two
// element array: ["key", {"data": "..."}].
type DocumentEntry struct {
	Key      string
	Document Document
}

// MarshalJSON encodes the entry as a tuple
func (e DocumentEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{e.Key, e.Document})
}

// UnmarshalJSON decodes the tuple form
func (e *DocumentEntry) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("document entry: %w", err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("document entry: want 2 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &e.Key); err != nil {
		return fmt.Errorf("document entry key: %w", err)
	}
	if err := json.Unmarshal(raw[1], &e.Document); err != nil {
		return fmt.Errorf("document entry body: %w", err)
	}
	return nil
}

// UserDocumentsResponse answers UserDocumentsQuery
type UserDocumentsResponse struct {
	Documents []DocumentEntry `json:"documents,omitempty"`
}

// TxResult is what a confirmed execute call reports
type TxResult struct {
	TxHash    string `json:"txHash"`
	Height    int64  `json:"height"`
	GasWanted int64  `json:"gasWanted"`
	GasUsed   int64  `json:"gasUsed"`
}

// decodeStrict decodes JSON rejecting trailing garbage
func decodeStrict(data []byte, out interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(out); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected trailing data")
	}
	return nil
}
