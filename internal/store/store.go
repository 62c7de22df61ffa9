package store

import "errors"

// ErrNotFound is returned when a requested entity does not exist in the store.
var ErrNotFound = errors.New("not found")

// Store defines the persistence interface.
type Store interface {
	// PersistRead and PersistWrite implement node.Persister: an absent key
	// reads as nil data and writing nil data removes the key.
	PersistRead(key string) ([]byte, error)
	PersistWrite(key string, data []byte) error

	// Get returns the value under key, or ErrNotFound.
	Get(key string) ([]byte, error)
	// List returns every entry whose key starts with prefix, ordered by key.
	List(prefix string) ([]Entry, error)
	// DeletePrefix removes every entry whose key starts with prefix and
	// returns how many were removed.
	DeletePrefix(prefix string) (int, error)

	// Node state
	SaveNodeState(state *NodeState) error
	GetNodeState() (*NodeState, error)
	// UpdateNodeState atomically reads, modifies, and saves the node state
	// in a single transaction. A missing state starts from the zero value.
	UpdateNodeState(fn func(state *NodeState) error) error

	// Close the store
	Close() error
}
