// Package types provides common type definitions for the document store application.
package types

// Collection names a partition of documents in the backing contract
type Collection string

const (
	// CollectionTodos holds one document per todo item, keyed by the todo id
	CollectionTodos Collection = "todos"
	// CollectionProfiles holds one profile per account, keyed by the account address
	CollectionProfiles Collection = "profiles"
	// CollectionSettings holds one settings document per account, keyed by the account address
	CollectionSettings Collection = "settings"
)

// String returns the collection name
func (c Collection) String() string {
	return string(c)
}

// FeePolicy selects how fees and gas are determined for execute calls
type FeePolicy string

const (
	// FeeAuto lets the signer simulate the transaction and estimate gas
	FeeAuto FeePolicy = "auto"
)

// ContractBackend selects which implementation answers contract calls
type ContractBackend string

const (
	// BackendChain talks to a deployed contract over REST and a signer gateway
	BackendChain ContractBackend = "chain"
	// BackendPostgres emulates the contract on a Postgres table
	BackendPostgres ContractBackend = "postgres"
	// BackendMemory emulates the contract in process memory
	BackendMemory ContractBackend = "memory"
)

// Account is the wallet identity of the connected user
type Account struct {
	Address string `json:"address"`
}

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}
