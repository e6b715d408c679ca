// Package storage provides concrete implementations of the
// resource.Capability contract: an in-memory map for tests and embedded
// use, and a SQLite store for durable receipts.
package storage

import (
	"context"
	"sync"
	"time"

	"github.com/attestor-io/attestor/internal/resource"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// Memory is a thread-safe in-memory capability. Values are copied on the
// way in and out so callers cannot alias the stored bytes.
type Memory struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]memoryEntry
}

// NewMemory creates an empty in-memory capability.
func NewMemory() *Memory {
	return &Memory{namespaces: make(map[string]map[string]memoryEntry)}
}

// Get returns the value for (namespace, key), honoring TTL expiry.
func (m *Memory) Get(_ context.Context, namespace, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ns, ok := m.namespaces[namespace]
	if !ok {
		return nil, false, nil
	}
	entry, ok := ns[key]
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		return nil, false, nil
	}
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, true, nil
}

// Set stores value under (namespace, key), overwriting any previous value.
func (m *Memory) Set(_ context.Context, namespace, key string, value []byte, opts resource.SetOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ns, ok := m.namespaces[namespace]
	if !ok {
		ns = make(map[string]memoryEntry)
		m.namespaces[namespace] = ns
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	entry := memoryEntry{value: stored}
	if opts.TTL > 0 {
		entry.expiresAt = time.Now().Add(opts.TTL)
	}
	ns[key] = entry
	return nil
}

// Delete removes (namespace, key); deleting an absent key succeeds.
func (m *Memory) Delete(_ context.Context, namespace, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ns, ok := m.namespaces[namespace]; ok {
		delete(ns, key)
	}
	return nil
}

// Size returns the number of live entries in a namespace.
func (m *Memory) Size(_ context.Context, namespace string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ns, ok := m.namespaces[namespace]
	if !ok {
		return 0, nil
	}
	now := time.Now()
	var n int64
	for _, entry := range ns {
		if entry.expiresAt.IsZero() || now.Before(entry.expiresAt) {
			n++
		}
	}
	return n, nil
}

// HealthCheck always succeeds for the in-memory capability.
func (m *Memory) HealthCheck(context.Context) error {
	return nil
}

// Keys enumerates the live keys in a namespace.
func (m *Memory) Keys(_ context.Context, namespace string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ns, ok := m.namespaces[namespace]
	if !ok {
		return nil, nil
	}
	now := time.Now()
	keys := make([]string, 0, len(ns))
	for k, entry := range ns {
		if entry.expiresAt.IsZero() || now.Before(entry.expiresAt) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}
