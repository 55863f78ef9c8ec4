// Package adaptertest provides contract clients for tests: an in-memory
// emulated contract wrapped in a recorder that counts calls and can be
// told to fail.
package adaptertest

import (
	"context"
	"sync"

	"github.com/docustore/internal/adapter"
	"github.com/docustore/internal/storage"
	"github.com/docustore/internal/types"
)

// Contract is the address the test contract lives at
const Contract = "wasm1testcontract"

// Recorder wraps a ContractClient, counting calls and optionally failing them
type Recorder struct {
	inner adapter.ContractClient

	mu         sync.Mutex
	queries    []*adapter.QueryMsg
	executes   []*adapter.ExecuteMsg
	queryErr   error
	executeErr error
}

// NewRecorder wraps inner
func NewRecorder(inner adapter.ContractClient) *Recorder {
	return &Recorder{inner: inner}
}

// NewMemoryContract returns a recorder over an emulated contract backed by memory
func NewMemoryContract() *Recorder {
	return NewRecorder(adapter.NewEmulatedContract(Contract, storage.NewMemoryDocumentStore()))
}

// FailQueries makes every following query return err; nil restores normal behavior
func (r *Recorder) FailQueries(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queryErr = err
}

// FailExecutes makes every following execute return err; nil restores normal behavior
func (r *Recorder) FailExecutes(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executeErr = err
}

// QuerySmart implements adapter.ContractQuerier
func (r *Recorder) QuerySmart(ctx context.Context, contract string, msg *adapter.QueryMsg, out interface{}) error {
	r.mu.Lock()
	r.queries = append(r.queries, msg)
	err := r.queryErr
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return r.inner.QuerySmart(ctx, contract, msg, out)
}

// Execute implements adapter.ContractExecutor
func (r *Recorder) Execute(ctx context.Context, sender, contract string, msg *adapter.ExecuteMsg, fee types.FeePolicy) (*adapter.TxResult, error) {
	r.mu.Lock()
	r.executes = append(r.executes, msg)
	err := r.executeErr
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return r.inner.Execute(ctx, sender, contract, msg, fee)
}

// Queries returns the number of queries issued
func (r *Recorder) Queries() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queries)
}

// Executes returns the number of execute calls issued
func (r *Recorder) Executes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.executes)
}

// Calls returns queries plus executes
func (r *Recorder) Calls() int {
	return r.Queries() + r.Executes()
}

// LastExecute returns the most recent execute message, or nil
func (r *Recorder) LastExecute() *adapter.ExecuteMsg {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.executes) == 0 {
		return nil
	}
	return r.executes[len(r.executes)-1]
}

// Reset forgets recorded calls
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = nil
	r.executes = nil
}
