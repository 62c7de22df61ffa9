package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketAttributes = []byte("attributes")
	bucketReporting  = []byte("reporting")
	bucketMisc       = []byte("misc")
	bucketNode       = []byte("node")
	keyNodeState     = []byte("state")
)

// kvBuckets hold node.Persister keys, chosen by the key's first segment.
var kvBuckets = [][]byte{bucketAttributes, bucketReporting, bucketMisc}

func bucketFor(key string) []byte {
	switch {
	case strings.HasPrefix(key, "attr/"):
		return bucketAttributes
	case strings.HasPrefix(key, "report/"):
		return bucketReporting
	}
	return bucketMisc
}

// BoltStore implements Store using BoltDB.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens or creates a BoltDB database.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range append(kvBuckets, bucketNode) {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) PersistRead(key string) ([]byte, error) {
	data, err := s.Get(key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return data, err
}

func (s *BoltStore) PersistWrite(key string, data []byte) error {
	name := bucketFor(key)
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(name)
		if b == nil {
			return fmt.Errorf("bucket %q not found", name)
		}
		if data == nil {
			return b.Delete([]byte(key))
		}
		return b.Put([]byte(key), data)
	})
}

func (s *BoltStore) Get(key string) ([]byte, error) {
	name := bucketFor(key)
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(name)
		if b == nil {
			return fmt.Errorf("bucket %q not found", name)
		}
		data := b.Get([]byte(key))
		if data == nil {
			return ErrNotFound
		}
		// bolt memory is only valid inside the transaction
		out = append([]byte(nil), data...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BoltStore) List(prefix string) ([]Entry, error) {
	var entries []Entry
	p := []byte(prefix)
	err := s.db.View(func(tx *bolt.Tx) error {
		for _, name := range kvBuckets {
			b := tx.Bucket(name)
			if b == nil {
				continue
			}
			c := b.Cursor()
			for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
				entries = append(entries, Entry{Key: string(k), Value: append([]byte(nil), v...)})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

func (s *BoltStore) DeletePrefix(prefix string) (int, error) {
	n := 0
	p := []byte(prefix)
	err := s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range kvBuckets {
			b := tx.Bucket(name)
			if b == nil {
				continue
			}
			var keys [][]byte
			c := b.Cursor()
			for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
				keys = append(keys, append([]byte(nil), k...))
			}
			for _, k := range keys {
				if err := b.Delete(k); err != nil {
					return err
				}
			}
			n += len(keys)
		}
		return nil
	})
	return n, err
}

func (s *BoltStore) SaveNodeState(state *NodeState) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return putNodeState(tx, state)
	})
}

func putNodeState(tx *bolt.Tx, state *NodeState) error {
	b := tx.Bucket(bucketNode)
	if b == nil {
		return fmt.Errorf("bucket %q not found", bucketNode)
	}
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return b.Put(keyNodeState, data)
}

func getNodeState(tx *bolt.Tx) (*NodeState, error) {
	b := tx.Bucket(bucketNode)
	if b == nil {
		return nil, fmt.Errorf("bucket %q not found", bucketNode)
	}
	data := b.Get(keyNodeState)
	if data == nil {
		return nil, fmt.Errorf("node state: %w", ErrNotFound)
	}
	var state NodeState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *BoltStore) GetNodeState() (*NodeState, error) {
	var state *NodeState
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		state, err = getNodeState(tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

func (s *BoltStore) UpdateNodeState(fn func(state *NodeState) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		state, err := getNodeState(tx)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				return err
			}
			state = &NodeState{}
		}
		if err := fn(state); err != nil {
			return err
		}
		return putNodeState(tx, state)
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
