package resource

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/attestor-io/attestor/internal/extension"
	attotel "github.com/attestor-io/attestor/internal/otel"
)

var tracer = attotel.Tracer("github.com/attestor-io/attestor/internal/resource")

// Slot names fired by the mediator. before-* always completes before the
// wrapped operation starts; the operation always completes (success or
// failure) before after-* or on-error fires.
const (
	SlotBeforeGet    = "before-get"
	SlotAfterGet     = "after-get"
	SlotBeforeSet    = "before-set"
	SlotAfterSet     = "after-set"
	SlotBeforeDelete = "before-delete"
	SlotAfterDelete  = "after-delete"
	SlotOnError      = "on-error"
)

// HookPayload is the payload passed to the mediator's slots. Err is only
// set on the on-error slot; Value only on set and after-get.
type HookPayload struct {
	Namespace string
	Key       string
	Operation string
	Value     []byte
	Err       error
}

// Mediator wraps a storage Capability, firing extension slots around each
// operation and fanning out StorageEvents to passive listeners. It holds
// no business state and never caches — the capability owns the data.
type Mediator struct {
	cap      Capability
	registry *extension.Registry
	provider string

	mu        sync.RWMutex
	listeners []Listener

	// Throttles listener-failure warnings so a persistently broken
	// listener cannot flood the log on a hot write path.
	warnLimit *rate.Limiter
}

// NewMediator wraps a capability and declares the mediator's slots on the
// registry. Slots already declared (e.g. by a previous mediator sharing
// the registry) are tolerated; any other registration failure is returned.
func NewMediator(capability Capability, registry *extension.Registry, provider string) (*Mediator, error) {
	m := &Mediator{
		cap:       capability,
		registry:  registry,
		provider:  provider,
		warnLimit: rate.NewLimiter(rate.Every(time.Second), 5),
	}

	slots := []struct {
		name   string
		desc   string
		params []string
	}{
		{SlotBeforeGet, "fires before a get is delegated to storage", []string{"namespace", "key"}},
		{SlotAfterGet, "fires after a successful get", []string{"namespace", "key", "value"}},
		{SlotBeforeSet, "fires before a set is delegated to storage", []string{"namespace", "key", "value"}},
		{SlotAfterSet, "fires after a successful set", []string{"namespace", "key", "value"}},
		{SlotBeforeDelete, "fires before a delete is delegated to storage", []string{"namespace", "key"}},
		{SlotAfterDelete, "fires after a successful delete", []string{"namespace", "key"}},
		{SlotOnError, "fires when the storage capability fails", []string{"namespace", "key", "operation", "error"}},
	}
	for _, s := range slots {
		if err := registry.RegisterSlot(s.name, s.desc, s.params); err != nil {
			var dup *extension.DuplicateSlotError
			if errors.As(err, &dup) {
				continue
			}
			return nil, fmt.Errorf("declaring mediator slot %s: %w", s.name, err)
		}
	}
	return m, nil
}

// Registry returns the extension registry the mediator fires its slots on.
func (m *Mediator) Registry() *extension.Registry {
	return m.registry
}

// Subscribe adds a passive listener for storage events.
func (m *Mediator) Subscribe(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// Get returns the value for (namespace, key), with ok=false for an absent
// key. Capability failures fire on-error and are returned wrapped in a
// *StorageOperationError.
func (m *Mediator) Get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	ctx, span := tracer.Start(ctx, "resource.get",
		trace.WithAttributes(
			attribute.String("namespace", namespace),
			attribute.String("key", key),
		))
	defer span.End()

	m.fire(ctx, SlotBeforeGet, HookPayload{Namespace: namespace, Key: key, Operation: "get"})

	value, ok, err := m.cap.Get(ctx, namespace, key)
	if err != nil {
		return nil, false, m.fail(ctx, "get", namespace, key, err)
	}

	m.fire(ctx, SlotAfterGet, HookPayload{Namespace: namespace, Key: key, Operation: "get", Value: value})
	span.SetAttributes(attribute.Bool("found", ok))
	return value, ok, nil
}

// Set stores value under (namespace, key), overwriting any previous value.
func (m *Mediator) Set(ctx context.Context, namespace, key string, value []byte, opts SetOptions) error {
	ctx, span := tracer.Start(ctx, "resource.set",
		trace.WithAttributes(
			attribute.String("namespace", namespace),
			attribute.String("key", key),
			attribute.Int("bytes", len(value)),
		))
	defer span.End()

	m.fire(ctx, SlotBeforeSet, HookPayload{Namespace: namespace, Key: key, Operation: "set", Value: value})

	if err := m.cap.Set(ctx, namespace, key, value, opts); err != nil {
		return m.fail(ctx, "set", namespace, key, err)
	}

	m.fire(ctx, SlotAfterSet, HookPayload{Namespace: namespace, Key: key, Operation: "set", Value: value})
	m.emit(StorageEvent{
		Type:      EventSet,
		Namespace: namespace,
		Key:       key,
		Value:     value,
		Timestamp: time.Now().UTC(),
		Provider:  m.provider,
	})
	return nil
}

// Delete removes (namespace, key). Deleting an absent key succeeds
// silently.
func (m *Mediator) Delete(ctx context.Context, namespace, key string) error {
	ctx, span := tracer.Start(ctx, "resource.delete",
		trace.WithAttributes(
			attribute.String("namespace", namespace),
			attribute.String("key", key),
		))
	defer span.End()

	m.fire(ctx, SlotBeforeDelete, HookPayload{Namespace: namespace, Key: key, Operation: "delete"})

	if err := m.cap.Delete(ctx, namespace, key); err != nil {
		return m.fail(ctx, "delete", namespace, key, err)
	}

	m.fire(ctx, SlotAfterDelete, HookPayload{Namespace: namespace, Key: key, Operation: "delete"})
	m.emit(StorageEvent{
		Type:      EventDelete,
		Namespace: namespace,
		Key:       key,
		Timestamp: time.Now().UTC(),
		Provider:  m.provider,
	})
	return nil
}

// Size returns the number of entries in a namespace.
func (m *Mediator) Size(ctx context.Context, namespace string) (int64, error) {
	return m.cap.Size(ctx, namespace)
}

// HealthCheck reports whether the underlying capability can serve traffic.
func (m *Mediator) HealthCheck(ctx context.Context) error {
	return m.cap.HealthCheck(ctx)
}

// Keys enumerates the keys in a namespace when the capability supports it.
// This is a maintenance surface (audit, retention, linkage); it does not
// fire hooks.
func (m *Mediator) Keys(ctx context.Context, namespace string) ([]string, error) {
	lister, ok := m.cap.(KeyLister)
	if !ok {
		return nil, fmt.Errorf("storage capability %T does not support key listing", m.cap)
	}
	return lister.Keys(ctx, namespace)
}

// fail fires the on-error slot, emits an error event, and wraps the
// capability error for the caller.
func (m *Mediator) fail(ctx context.Context, op, namespace, key string, err error) error {
	m.fire(ctx, SlotOnError, HookPayload{Namespace: namespace, Key: key, Operation: op, Err: err})
	m.emit(StorageEvent{
		Type:      EventError,
		Namespace: namespace,
		Key:       key,
		Timestamp: time.Now().UTC(),
		Provider:  m.provider,
		Err:       err,
	})
	return &StorageOperationError{Namespace: namespace, Key: key, Operation: op, Err: err}
}

// fire invokes a slot, logging (but never propagating) handler failures.
// The slots are declared in NewMediator, so an UnknownSlotError here means
// the registry was cleared mid-flight; it is logged rather than panicking.
func (m *Mediator) fire(ctx context.Context, slot string, payload HookPayload) {
	failures, err := m.registry.Invoke(ctx, slot, payload)
	if err != nil {
		log.Error().Err(err).Str("slot", slot).Msg("mediator_slot_missing")
		return
	}
	if len(failures) > 0 {
		log.Debug().Int("failures", len(failures)).Str("slot", slot).Msg("mediator_hook_failures")
	}
}

// emit delivers an event to every listener, isolating errors and panics.
func (m *Mediator) emit(event StorageEvent) {
	m.mu.RLock()
	listeners := m.listeners
	m.mu.RUnlock()

	for _, l := range listeners {
		if err := runListener(l, event); err != nil && m.warnLimit.Allow() {
			log.Warn().
				Err(err).
				Str("namespace", event.Namespace).
				Str("key", event.Key).
				Str("event_type", string(event.Type)).
				Msg("storage_listener_failed")
		}
	}
}

func runListener(l Listener, event StorageEvent) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("listener panic: %v", rec)
		}
	}()
	return l(event)
}
