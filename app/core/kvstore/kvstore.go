// Package kvstore is the string key-value store every progress component reads and writes.
//
// Two implementations are provided: an in-memory store for tests and ephemeral
// sessions, and a file-backed store that appends every mutation to a block file
// and replays it on open.
package kvstore

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var (
	// ErrClosed is returned by every operation on a closed store
	ErrClosed = errors.New("store is closed")
	// ErrEmptyKey is returned when a write targets an empty key
	ErrEmptyKey = errors.New("key cannot be empty")
)

// Pair is one result of a batch read. Found is false when the key is absent.
type Pair struct {
	Key   string
	Value string
	Found bool
}

// Store is an asynchronous string key-value store.
type Store interface {
	// Get returns the value for key; ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set writes value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// MultiGet reads many keys at once. The result has one Pair per requested key, in request order.
	MultiGet(ctx context.Context, keys []string) ([]Pair, error)
	// MultiRemove deletes the given keys. Missing keys are ignored.
	MultiRemove(ctx context.Context, keys []string) error
	// AllKeys returns every key currently stored, sorted.
	AllKeys(ctx context.Context) ([]string, error)
	// Close releases the store. Further calls return ErrClosed.
	Close() error
}

// Memory is a mutex guarded map implementing Store.
type Memory struct {
	mu     sync.RWMutex
	data   map[string]string
	closed bool
}

// NewMemory returns an empty in-memory store
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return "", false, ErrClosed
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.data[key] = value
	return nil
}

func (m *Memory) MultiGet(ctx context.Context, keys []string) ([]Pair, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	return collect(m.data, keys), nil
}

func (m *Memory) MultiRemove(ctx context.Context, keys []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *Memory) AllKeys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	return sortedKeys(m.data), nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func collect(data map[string]string, keys []string) []Pair {
	pairs := make([]Pair, len(keys))
	for i, k := range keys {
		v, ok := data[k]
		pairs[i] = Pair{Key: k, Value: v, Found: ok}
	}
	return pairs
}

func sortedKeys(data map[string]string) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
