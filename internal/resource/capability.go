// Package resource mediates access to a raw namespace/key/value storage
// capability. Every operation is bracketed by extension slots
// (before-* / after-* / on-error) and fans out a StorageEvent to passive
// listeners, so persistence, monitoring, and cross-agent learning can
// observe state changes without being compiled into the callers.
package resource

import (
	"context"
	"time"
)

// Capability is the outbound contract the mediator depends on. The
// capability is the sole owner of authoritative state — the mediator never
// caches. Implementations live in internal/storage.
type Capability interface {
	// Get returns the stored value for (namespace, key). A missing key is
	// not an error: ok is false and value is nil.
	Get(ctx context.Context, namespace, key string) (value []byte, ok bool, err error)

	// Set stores value under (namespace, key), overwriting any previous
	// value (last-write-wins).
	Set(ctx context.Context, namespace, key string, value []byte, opts SetOptions) error

	// Delete removes (namespace, key). Deleting an absent key succeeds
	// silently.
	Delete(ctx context.Context, namespace, key string) error

	// Size returns the number of entries in a namespace.
	Size(ctx context.Context, namespace string) (int64, error)

	// HealthCheck reports whether the capability can serve traffic.
	HealthCheck(ctx context.Context) error
}

// KeyLister is an optional interface for capabilities that can enumerate
// keys in a namespace. Maintenance surfaces (audit CLI, retention sweeper,
// receipt linkage) use it when available; the core read/write path never
// requires it.
type KeyLister interface {
	Keys(ctx context.Context, namespace string) ([]string, error)
}

// SetOptions carries per-write options. A zero TTL means the entry never
// expires.
type SetOptions struct {
	TTL time.Duration
}
