package adapter

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/docustore/internal/errors"
	"github.com/docustore/internal/logging"
	"github.com/docustore/internal/metrics"
	"github.com/docustore/internal/models"
	"github.com/docustore/internal/types"
)

const (
	// DefaultListLimit is what UserDocuments returns when no limit is given
	DefaultListLimit = 50
	// MaxListLimit caps the limit a caller may ask for
	MaxListLimit = 100
)

// DocumentBackend persists documents for an EmulatedContract. Get returns
// nil and no error when the key is absent.
type DocumentBackend interface {
	Get(ctx context.Context, collection, key string) (*models.StoredDocument, error)
	Put(ctx context.Context, doc *models.StoredDocument) error
	Remove(ctx context.Context, collection, key string) error
	// ListByOwner returns up to limit documents ordered by key, strictly after startAfter
	ListByOwner(ctx context.Context, owner, collection, startAfter string, limit int) ([]*models.StoredDocument, error)
}

// EmulatedContract answers contract calls in process with the same
// semantics as the deployed document contract. Messages go through a JSON
// round trip so the wire shapes are exercised exactly as on chain.
type EmulatedContract struct {
	address string
	backend DocumentBackend
	now     func() time.Time

	// Serializes execute calls; a block applies transactions one at a time
	mu     sync.Mutex
	height int64
}

// NewEmulatedContract creates an emulated contract at address
func NewEmulatedContract(address string, backend DocumentBackend) *EmulatedContract {
	return &EmulatedContract{
		address: address,
		backend: backend,
		now:     time.Now,
	}
}

// QuerySmart implements ContractQuerier
func (c *EmulatedContract) QuerySmart(ctx context.Context, contract string, msg *QueryMsg, out interface{}) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveContractCall(metrics.KindQuery, msg.Name(), err, time.Since(start)) }()

	if err := c.checkAddress(contract); err != nil {
		return err
	}

	var decoded QueryMsg
	if err := roundTrip(msg, &decoded); err != nil {
		return errors.NewInternalError("encode query", err)
	}

	var resp interface{}
	switch {
	case decoded.Get != nil:
		resp, err = c.get(ctx, decoded.Get)
	case decoded.UserDocuments != nil:
		resp, err = c.userDocuments(ctx, decoded.UserDocuments)
	default:
		return errors.NewContractRejectionError("unknown query variant")
	}
	if err != nil {
		return err
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		return errors.NewInternalError("encode query response", err)
	}
	if err := decodeStrict(raw, out); err != nil {
		return errors.NewDecodeError("smart query response", err)
	}
	return nil
}

func (c *EmulatedContract) get(ctx context.Context, q *GetQuery) (*GetResponse, error) {
	doc, err := c.backend.Get(ctx, q.Collection, q.Document)
	if err != nil {
		return nil, errors.NewTransportError("document backend", err)
	}
	if doc == nil {
		return &GetResponse{}, nil
	}
	return &GetResponse{Document: &Document{Data: doc.Data}}, nil
}

func (c *EmulatedContract) userDocuments(ctx context.Context, q *UserDocumentsQuery) (*UserDocumentsResponse, error) {
	limit := DefaultListLimit
	if q.Limit != nil {
		limit = int(*q.Limit)
		switch {
		case limit < 1:
			limit = 1
		case limit > MaxListLimit:
			limit = MaxListLimit
		}
	}
	startAfter := ""
	if q.StartAfter != nil {
		startAfter = *q.StartAfter
	}

	docs, err := c.backend.ListByOwner(ctx, q.Owner, q.Collection, startAfter, limit)
	if err != nil {
		return nil, errors.NewTransportError("document backend", err)
	}

	resp := &UserDocumentsResponse{Documents: make([]DocumentEntry, 0, len(docs))}
	for _, d := range docs {
		resp.Documents = append(resp.Documents, DocumentEntry{Key: d.Key, Document: Document{Data: d.Data}})
	}
	return resp, nil
}

// Execute implements ContractExecutor
func (c *EmulatedContract) Execute(ctx context.Context, sender, contract string, msg *ExecuteMsg, fee types.FeePolicy) (result *TxResult, err error) {
	start := time.Now()
	defer func() { metrics.ObserveContractCall(metrics.KindExecute, msg.Name(), err, time.Since(start)) }()

	if err := c.checkAddress(contract); err != nil {
		return nil, err
	}
	if sender == "" {
		return nil, errors.NewContractRejectionError("sender is required")
	}
	if fee != types.FeeAuto {
		return nil, errors.NewContractRejectionError(fmt.Sprintf("unsupported fee policy %q", fee))
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.NewInternalError("encode execute message", err)
	}
	var decoded ExecuteMsg
	if err := decodeStrict(raw, &decoded); err != nil {
		return nil, errors.NewInternalError("decode execute message", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case decoded.Set != nil:
		err = c.set(ctx, sender, decoded.Set)
	case decoded.Update != nil:
		err = c.update(ctx, sender, decoded.Update)
	case decoded.Delete != nil:
		err = c.remove(ctx, sender, decoded.Delete)
	default:
		err = errors.NewContractRejectionError("unknown execute variant")
	}
	if err != nil {
		return nil, err
	}

	c.height++
	result = &TxResult{
		TxHash:    txHash(raw, sender, c.height),
		Height:    c.height,
		GasWanted: int64(200000 + len(raw)*10),
		GasUsed:   int64(150000 + len(raw)*8),
	}

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"message": decoded.Name(),
		"txHash":  result.TxHash,
		"height":  result.Height,
	}).Debug("Emulated transaction applied")

	return result, nil
}

func (c *EmulatedContract) set(ctx context.Context, sender string, w *WriteDocument) error {
	if err := validateKey(w.Collection, w.Document); err != nil {
		return err
	}
	existing, err := c.backend.Get(ctx, w.Collection, w.Document)
	if err != nil {
		return errors.NewTransportError("document backend", err)
	}
	if existing != nil && existing.Owner != sender {
		return errors.NewContractRejectionError("unauthorized: sender does not own the document")
	}
	return c.put(ctx, sender, w)
}

func (c *EmulatedContract) update(ctx context.Context, sender string, w *WriteDocument) error {
	if err := validateKey(w.Collection, w.Document); err != nil {
		return err
	}
	if _, err := c.ownedBy(ctx, sender, w.Collection, w.Document); err != nil {
		return err
	}
	return c.put(ctx, sender, w)
}

func (c *EmulatedContract) remove(ctx context.Context, sender string, d *DeleteDocument) error {
	if err := validateKey(d.Collection, d.Document); err != nil {
		return err
	}
	if _, err := c.ownedBy(ctx, sender, d.Collection, d.Document); err != nil {
		return err
	}
	if err := c.backend.Remove(ctx, d.Collection, d.Document); err != nil {
		return errors.NewTransportError("document backend", err)
	}
	return nil
}

func (c *EmulatedContract) put(ctx context.Context, sender string, w *WriteDocument) error {
	err := c.backend.Put(ctx, &models.StoredDocument{
		Collection: w.Collection,
		Key:        w.Document,
		Owner:      sender,
		Data:       w.Data,
		UpdatedAt:  c.now().UTC(),
	})
	if err != nil {
		return errors.NewTransportError("document backend", err)
	}
	return nil
}

// ownedBy loads a document and checks the sender owns it
func (c *EmulatedContract) ownedBy(ctx context.Context, sender, collection, key string) (*models.StoredDocument, error) {
	doc, err := c.backend.Get(ctx, collection, key)
	if err != nil {
		return nil, errors.NewTransportError("document backend", err)
	}
	if doc == nil {
		return nil, errors.NewContractRejectionError(fmt.Sprintf("document %s/%s not found", collection, key))
	}
	if doc.Owner != sender {
		return nil, errors.NewContractRejectionError("unauthorized: sender does not own the document")
	}
	return doc, nil
}

func (c *EmulatedContract) checkAddress(contract string) error {
	if contract != c.address {
		return errors.NewContractRejectionError(fmt.Sprintf("no contract at address %s", contract))
	}
	return nil
}

func validateKey(collection, key string) error {
	if strings.TrimSpace(collection) == "" {
		return errors.NewContractRejectionError("collection must not be empty")
	}
	if strings.TrimSpace(key) == "" {
		return errors.NewContractRejectionError("document key must not be empty")
	}
	return nil
}

func roundTrip(in, out interface{}) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return decodeStrict(raw, out)
}

// txHash derives a deterministic uppercase hex hash, the format chain explorers use
func txHash(msg []byte, sender string, height int64) string {
	h := sha256.New()
	h.Write(msg)
	h.Write([]byte(sender))
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(height))
	h.Write(buf[:])
	return strings.ToUpper(hex.EncodeToString(h.Sum(nil)))
}
