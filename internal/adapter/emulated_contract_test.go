package adapter

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/docustore/internal/errors"
	"github.com/docustore/internal/models"
	"github.com/docustore/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapBackend is a minimal DocumentBackend for exercising the contract rules
type mapBackend struct {
	mu   sync.Mutex
	docs map[string]models.StoredDocument
	fail error
}

func newMapBackend() *mapBackend {
	return &mapBackend{docs: make(map[string]models.StoredDocument)}
}

func (b *mapBackend) Get(ctx context.Context, collection, key string) (*models.StoredDocument, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return nil, b.fail
	}
	d, ok := b.docs[collection+"/"+key]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (b *mapBackend) Put(ctx context.Context, doc *models.StoredDocument) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.docs[doc.Collection+"/"+doc.Key] = *doc
	return nil
}

func (b *mapBackend) Remove(ctx context.Context, collection, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.docs, collection+"/"+key)
	return nil
}

func (b *mapBackend) ListByOwner(ctx context.Context, owner, collection, startAfter string, limit int) ([]*models.StoredDocument, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*models.StoredDocument
	for _, d := range b.docs {
		if d.Owner == owner && d.Collection == collection && d.Key > startAfter {
			d := d
			out = append(out, &d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func set(collection, key, data string) *ExecuteMsg {
	return &ExecuteMsg{Set: &WriteDocument{Collection: collection, Document: key, Data: data}}
}

func TestEmulatedContract_SetGet(t *testing.T) {
	ctx := context.Background()
	c := NewEmulatedContract(testContract, newMapBackend())

	res, err := c.Execute(ctx, "alice", testContract, set("profiles", "alice", `{"displayName":"Ann"}`), types.FeeAuto)
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Height)
	assert.Len(t, res.TxHash, 64)

	var got GetResponse
	require.NoError(t, c.QuerySmart(ctx, testContract, &QueryMsg{Get: &GetQuery{Collection: "profiles", Document: "alice"}}, &got))
	require.NotNil(t, got.Document)
	assert.Equal(t, `{"displayName":"Ann"}`, got.Document.Data)

	var missing GetResponse
	require.NoError(t, c.QuerySmart(ctx, testContract, &QueryMsg{Get: &GetQuery{Collection: "profiles", Document: "bob"}}, &missing))
	assert.Nil(t, missing.Document)
}

func TestEmulatedContract_OwnershipRules(t *testing.T) {
	ctx := context.Background()
	c := NewEmulatedContract(testContract, newMapBackend())

	_, err := c.Execute(ctx, "alice", testContract, set("todos", "t1", "{}"), types.FeeAuto)
	require.NoError(t, err)

	tests := []struct {
		name   string
		sender string
		msg    *ExecuteMsg
		ok     bool
	}{
		{"update by owner", "alice", &ExecuteMsg{Update: &WriteDocument{Collection: "todos", Document: "t1", Data: `{"x":1}`}}, true},
		{"set by owner", "alice", set("todos", "t1", `{"x":2}`), true},
		{"set by stranger", "mallory", set("todos", "t1", `{"x":"pwned"}`), false},
		{"update by stranger", "mallory", &ExecuteMsg{Update: &WriteDocument{Collection: "todos", Document: "t1", Data: "{}"}}, false},
		{"update missing", "alice", &ExecuteMsg{Update: &WriteDocument{Collection: "todos", Document: "nope", Data: "{}"}}, false},
		{"delete by stranger", "mallory", &ExecuteMsg{Delete: &DeleteDocument{Collection: "todos", Document: "t1"}}, false},
		{"delete missing", "alice", &ExecuteMsg{Delete: &DeleteDocument{Collection: "todos", Document: "nope"}}, false},
		{"empty key", "alice", set("todos", " ", "{}"), false},
		{"delete by owner", "alice", &ExecuteMsg{Delete: &DeleteDocument{Collection: "todos", Document: "t1"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Execute(ctx, tt.sender, testContract, tt.msg, types.FeeAuto)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryContractRejection), "got %v", err)
		})
	}
}

func TestEmulatedContract_SetKeepsOwnerAndData(t *testing.T) {
	ctx := context.Background()
	c := NewEmulatedContract(testContract, newMapBackend())

	_, err := c.Execute(ctx, "alice", testContract, set("profiles", "alice", `{"displayName":"Alice"}`), types.FeeAuto)
	require.NoError(t, err)

	_, err = c.Execute(ctx, "mallory", testContract, set("profiles", "alice", `{"displayName":"Mallory"}`), types.FeeAuto)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryContractRejection))

	var got GetResponse
	require.NoError(t, c.QuerySmart(ctx, testContract, &QueryMsg{Get: &GetQuery{Collection: "profiles", Document: "alice"}}, &got))
	require.NotNil(t, got.Document)
	assert.Equal(t, `{"displayName":"Alice"}`, got.Document.Data)

	// The owner can still remove it
	_, err = c.Execute(ctx, "alice", testContract, &ExecuteMsg{Delete: &DeleteDocument{Collection: "profiles", Document: "alice"}}, types.FeeAuto)
	assert.NoError(t, err)
}

func TestEmulatedContract_UserDocumentsPaging(t *testing.T) {
	ctx := context.Background()
	c := NewEmulatedContract(testContract, newMapBackend())
	for i := 0; i < 120; i++ {
		_, err := c.Execute(ctx, "alice", testContract, set("todos", fmt.Sprintf("k%03d", i), "{}"), types.FeeAuto)
		require.NoError(t, err)
	}
	_, err := c.Execute(ctx, "bob", testContract, set("todos", "bob-1", "{}"), types.FeeAuto)
	require.NoError(t, err)

	var page UserDocumentsResponse
	require.NoError(t, c.QuerySmart(ctx, testContract, &QueryMsg{UserDocuments: &UserDocumentsQuery{Owner: "alice", Collection: "todos"}}, &page))
	assert.Len(t, page.Documents, DefaultListLimit)
	assert.Equal(t, "k000", page.Documents[0].Key)

	big := uint32(500)
	after := "k049"
	require.NoError(t, c.QuerySmart(ctx, testContract, &QueryMsg{UserDocuments: &UserDocumentsQuery{
		Owner: "alice", Collection: "todos", StartAfter: &after, Limit: &big,
	}}, &page))
	assert.Len(t, page.Documents, 70)
	assert.Equal(t, "k050", page.Documents[0].Key)
	assert.Equal(t, "k119", page.Documents[69].Key)

	// A zero limit still returns a document rather than an empty page
	zero := uint32(0)
	require.NoError(t, c.QuerySmart(ctx, testContract, &QueryMsg{UserDocuments: &UserDocumentsQuery{
		Owner: "alice", Collection: "todos", Limit: &zero,
	}}, &page))
	assert.Len(t, page.Documents, 1)
}

func TestEmulatedContract_Rejections(t *testing.T) {
	ctx := context.Background()
	c := NewEmulatedContract(testContract, newMapBackend())

	_, err := c.Execute(ctx, "alice", "wasm1other", set("todos", "a", "{}"), types.FeeAuto)
	assert.True(t, errors.IsCategory(err, errors.CategoryContractRejection))

	_, err = c.Execute(ctx, "", testContract, set("todos", "a", "{}"), types.FeeAuto)
	assert.True(t, errors.IsCategory(err, errors.CategoryContractRejection))

	_, err = c.Execute(ctx, "alice", testContract, set("todos", "a", "{}"), types.FeePolicy("fixed"))
	assert.True(t, errors.IsCategory(err, errors.CategoryContractRejection))

	_, err = c.Execute(ctx, "alice", testContract, &ExecuteMsg{}, types.FeeAuto)
	assert.True(t, errors.IsCategory(err, errors.CategoryContractRejection))
}

func TestEmulatedContract_BackendFailureIsTransport(t *testing.T) {
	backend := newMapBackend()
	backend.fail = fmt.Errorf("connection reset")
	c := NewEmulatedContract(testContract, backend)

	var got GetResponse
	err := c.QuerySmart(context.Background(), testContract, &QueryMsg{Get: &GetQuery{Collection: "todos", Document: "a"}}, &got)
	assert.True(t, errors.IsCategory(err, errors.CategoryTransport))
}
