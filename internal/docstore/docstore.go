// Package docstore reads and writes JSON records through the document
// contract. It is the only place that builds contract messages.
package docstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/docustore/internal/adapter"
	"github.com/docustore/internal/errors"
	"github.com/docustore/internal/logging"
	"github.com/docustore/internal/types"
)

const (
	// DefaultPageSize is the limit sent with each UserDocuments query
	DefaultPageSize = 50
	// DefaultMaxDocuments bounds how many documents one listing collects
	DefaultMaxDocuments = 1000
)

// Config configures a Store
type Config struct {
	Contract     string
	FeePolicy    types.FeePolicy
	PageSize     int
	MaxDocuments int
}

// Store issues contract queries and execute calls for one fixed contract
type Store struct {
	client       adapter.ContractClient
	contract     string
	fee          types.FeePolicy
	pageSize     int
	maxDocuments int
}

// New creates a Store
func New(client adapter.ContractClient, cfg Config) *Store {
	s := &Store{
		client:       client,
		contract:     cfg.Contract,
		fee:          cfg.FeePolicy,
		pageSize:     cfg.PageSize,
		maxDocuments: cfg.MaxDocuments,
	}
	if s.fee == "" {
		s.fee = types.FeeAuto
	}
	if s.pageSize <= 0 {
		s.pageSize = DefaultPageSize
	}
	if s.maxDocuments <= 0 {
		s.maxDocuments = DefaultMaxDocuments
	}
	return s
}

// Contract returns the contract address the store talks to
func (s *Store) Contract() string {
	return s.contract
}

// Get looks up one document and decodes its payload into out. found is
// false when the document does not exist; out is then left untouched.
func (s *Store) Get(ctx context.Context, collection types.Collection, key string, out interface{}) (found bool, err error) {
	var resp adapter.GetResponse
	err = s.client.QuerySmart(ctx, s.contract, &adapter.QueryMsg{
		Get: &adapter.GetQuery{Collection: collection.String(), Document: key},
	}, &resp)
	if err != nil {
		if errors.IsCategory(err, errors.CategoryNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get %s/%s: %w", collection, key, err)
	}
	if resp.Document == nil {
		return false, nil
	}

	if err := json.Unmarshal([]byte(resp.Document.Data), out); err != nil {
		return false, errors.NewDecodeError(fmt.Sprintf("%s/%s payload", collection, key), err)
	}
	return true, nil
}

// Entry is one listed document with its raw payload
type Entry struct {
	Key  string
	Data string
}

// ListEntries returns every document owner holds in collection, ordered by
// key. It follows start_after until an empty page, a page that makes no
// progress, or the configured maximum. A short page is not the end: the
// contract may cap limit below the page size.
func (s *Store) ListEntries(ctx context.Context, owner string, collection types.Collection) ([]Entry, error) {
	logger := logging.FromContext(ctx).WithFields(map[string]interface{}{
		"collection": collection.String(),
		"owner":      owner,
	})

	var (
		entries    []Entry
		startAfter *string
	)
	for {
		limit := s.pageSize
		if remaining := s.maxDocuments - len(entries); remaining < limit {
			// At the cap, one more entry tells whether anything was left out
			limit = remaining + 1
		}

		docs, err := s.page(ctx, owner, collection, startAfter, limit)
		if err != nil {
			return nil, err
		}
		if len(docs) == 0 {
			return entries, nil
		}

		for _, d := range docs {
			entries = append(entries, Entry{Key: d.Key, Data: d.Document.Data})
		}
		if len(entries) > s.maxDocuments {
			logger.WithField("max", s.maxDocuments).Warn("Document listing truncated")
			return entries[:s.maxDocuments], nil
		}

		last := docs[len(docs)-1].Key
		if startAfter != nil && last <= *startAfter {
			logger.WithField("startAfter", last).Warn("Document listing made no progress, stopping")
			return entries, nil
		}
		startAfter = &last
	}
}

func (s *Store) page(ctx context.Context, owner string, collection types.Collection, startAfter *string, limit int) ([]adapter.DocumentEntry, error) {
	n := uint32(limit) // #nosec G115 - bounded by the validated page size
	var resp adapter.UserDocumentsResponse
	err := s.client.QuerySmart(ctx, s.contract, &adapter.QueryMsg{
		UserDocuments: &adapter.UserDocumentsQuery{
			Owner:      owner,
			Collection: collection.String(),
			StartAfter: startAfter,
			Limit:      &n,
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("list %s for %s: %w", collection, owner, err)
	}
	return resp.Documents, nil
}

// ListOwned lists owner's documents in collection and decodes each payload
// into T, with the document key attached as "id"
func ListOwned[T any](ctx context.Context, s *Store, owner string, collection types.Collection) ([]T, error) {
	entries, err := s.ListEntries(ctx, owner, collection)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(entries))
	for _, e := range entries {
		var v T
		if err := DecodeWithID(e, &v); err != nil {
			return nil, errors.NewDecodeError(fmt.Sprintf("%s/%s payload", collection, e.Key), err)
		}
		out = append(out, v)
	}
	return out, nil
}

// DecodeWithID decodes a JSON object payload into out after setting its
// "id" member to the document key
func DecodeWithID(e Entry, out interface{}) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(e.Data), &fields); err != nil {
		return err
	}
	if fields == nil {
		return fmt.Errorf("payload is not a JSON object")
	}

	id, err := json.Marshal(e.Key)
	if err != nil {
		return err
	}
	fields["id"] = id

	merged, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	return json.Unmarshal(merged, out)
}

// Set creates or overwrites a document owned by sender
func (s *Store) Set(ctx context.Context, sender string, collection types.Collection, key string, record interface{}) (*adapter.TxResult, error) {
	data, err := encode(record)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, sender, &adapter.ExecuteMsg{
		Set: &adapter.WriteDocument{Collection: collection.String(), Document: key, Data: data},
	})
}

// Update replaces an existing document; the contract rejects it when sender
// is not the owner
func (s *Store) Update(ctx context.Context, sender string, collection types.Collection, key string, record interface{}) (*adapter.TxResult, error) {
	data, err := encode(record)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, sender, &adapter.ExecuteMsg{
		Update: &adapter.WriteDocument{Collection: collection.String(), Document: key, Data: data},
	})
}

// Delete removes a document
func (s *Store) Delete(ctx context.Context, sender string, collection types.Collection, key string) (*adapter.TxResult, error) {
	return s.execute(ctx, sender, &adapter.ExecuteMsg{
		Delete: &adapter.DeleteDocument{Collection: collection.String(), Document: key},
	})
}

func (s *Store) execute(ctx context.Context, sender string, msg *adapter.ExecuteMsg) (*adapter.TxResult, error) {
	if sender == "" {
		return nil, errors.ErrNotConnected
	}

	res, err := s.client.Execute(ctx, sender, s.contract, msg, s.fee)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", msg.Name(), err)
	}

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"message": msg.Name(),
		"txHash":  res.TxHash,
		"height":  res.Height,
	}).Info("Document write confirmed")
	return res, nil
}

func encode(record interface{}) (string, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return "", errors.NewValidationError("record", fmt.Sprintf("not JSON-serializable: %v", err))
	}
	return string(data), nil
}
