// Package extension provides named interception points ("slots") that
// other components can observe or augment without being compiled into the
// caller. A slot is declared once with a documentary parameter contract;
// any number of handlers can then bind to it. Invoking a slot runs every
// handler in registration order, isolating per-handler failures so one
// broken observer never takes down the pipeline it observes.
package extension

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	attotel "github.com/attestor-io/attestor/internal/otel"
)

var tracer = attotel.Tracer("github.com/attestor-io/attestor/internal/extension")

// Handler is a callback bound to a slot. The payload is whatever the
// invoking component documents for that slot; handlers that need structure
// type-assert it. A non-nil error marks the handler failed but never stops
// the remaining handlers.
type Handler func(ctx context.Context, payload any) error

// Slot describes a declared extension point. Params is purely documentary —
// it names what the payload carries, it is not enforced at the type level.
type Slot struct {
	Name        string
	Description string
	Params      []string
}

// DuplicateSlotError reports an attempt to re-register an existing slot.
type DuplicateSlotError struct {
	Name string
}

func (e *DuplicateSlotError) Error() string {
	return fmt.Sprintf("extension slot %q already registered", e.Name)
}

// UnknownSlotError reports a handler registration or invocation against a
// slot that was never declared. Surfacing this instead of a silent no-op
// keeps typo'd slot names from going unnoticed.
type UnknownSlotError struct {
	Name string
}

func (e *UnknownSlotError) Error() string {
	return fmt.Sprintf("unknown extension slot %q", e.Name)
}

// HandlerFailure records one isolated handler error during an Invoke.
type HandlerFailure struct {
	Slot  string
	Owner string
	Index int // position in registration order
	Err   error
}

func (f HandlerFailure) Error() string {
	return fmt.Sprintf("handler %q (#%d) on slot %q: %v", f.Owner, f.Index, f.Slot, f.Err)
}

// DuplicatePolicy controls how RegisterSlot treats an already-registered
// name. The choice is fixed at construction so behavior is deterministic.
type DuplicatePolicy int

const (
	// DuplicateError rejects re-registration with a DuplicateSlotError.
	DuplicateError DuplicatePolicy = iota
	// DuplicateIgnore silently keeps the first registration.
	DuplicateIgnore
)

// ParseDuplicatePolicy maps the config strings "error" and "ignore" to a
// DuplicatePolicy, defaulting to DuplicateError for anything else.
func ParseDuplicatePolicy(s string) DuplicatePolicy {
	if s == "ignore" {
		return DuplicateIgnore
	}
	return DuplicateError
}

type registeredHandler struct {
	owner string
	fn    Handler
}

type slotState struct {
	def      Slot
	handlers []registeredHandler
}

// Registry holds slot definitions and their ordered handler lists. Tables
// are expected to be populated during a setup phase and read-mostly after;
// the RWMutex makes concurrent registration safe anyway.
type Registry struct {
	mu     sync.RWMutex
	policy DuplicatePolicy
	slots  map[string]*slotState
}

// Option configures a Registry.
type Option func(*Registry)

// WithDuplicatePolicy sets how re-registered slot names are treated.
func WithDuplicatePolicy(p DuplicatePolicy) Option {
	return func(r *Registry) { r.policy = p }
}

// NewRegistry creates an empty registry. The default duplicate policy is
// DuplicateError.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		policy: DuplicateError,
		slots:  make(map[string]*slotState),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterSlot declares a named extension point. Under DuplicateError a
// second registration of the same name fails with *DuplicateSlotError;
// under DuplicateIgnore it is a no-op keeping the original definition.
func (r *Registry) RegisterSlot(name, description string, params []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.slots[name]; exists {
		if r.policy == DuplicateIgnore {
			return nil
		}
		return &DuplicateSlotError{Name: name}
	}

	r.slots[name] = &slotState{
		def: Slot{Name: name, Description: description, Params: params},
	}
	return nil
}

// RegisterHandler binds a handler to a declared slot. owner identifies the
// extension for diagnostics. Registration order is the invocation order —
// a hard guarantee, since later handlers (e.g. metrics) may assume earlier
// ones (e.g. anonymization) already ran.
func (r *Registry) RegisterHandler(slotName, owner string, h Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, exists := r.slots[slotName]
	if !exists {
		return &UnknownSlotError{Name: slotName}
	}

	state.handlers = append(state.handlers, registeredHandler{owner: owner, fn: h})
	return nil
}

// Invoke runs every handler bound to slotName, in registration order, with
// the given payload. Each handler failure (error or panic) is isolated:
// it is recorded and subsequent handlers still run. The aggregate failure
// list is returned as a non-fatal outcome; the error return is reserved
// for *UnknownSlotError.
func (r *Registry) Invoke(ctx context.Context, slotName string, payload any) ([]HandlerFailure, error) {
	r.mu.RLock()
	state, exists := r.slots[slotName]
	if !exists {
		r.mu.RUnlock()
		return nil, &UnknownSlotError{Name: slotName}
	}
	// Snapshot so handlers run without holding the lock. The slice is
	// append-only, so the snapshot stays valid.
	handlers := state.handlers
	r.mu.RUnlock()

	ctx, span := tracer.Start(ctx, "extension.invoke",
		trace.WithAttributes(
			attribute.String("slot", slotName),
			attribute.Int("handler_count", len(handlers)),
		))
	defer span.End()

	invocationsTotal.Add(ctx, 1)

	var failures []HandlerFailure
	for i, h := range handlers {
		if err := runHandler(ctx, h.fn, payload); err != nil {
			failures = append(failures, HandlerFailure{
				Slot:  slotName,
				Owner: h.owner,
				Index: i,
				Err:   err,
			})
			log.Warn().
				Err(err).
				Str("slot", slotName).
				Str("owner", h.owner).
				Int("index", i).
				Func(attotel.LogTraceFields(ctx)).
				Msg("extension_handler_failed")
		}
	}

	if len(failures) > 0 {
		handlerFailures.Add(ctx, int64(len(failures)))
		span.SetAttributes(attribute.Int("failure_count", len(failures)))
	}
	return failures, nil
}

// runHandler calls one handler, converting a panic into an error so a
// misbehaving extension cannot unwind the invoking pipeline.
func runHandler(ctx context.Context, h Handler, payload any) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()
	return h(ctx, payload)
}

// HasSlot reports whether a slot is declared.
func (r *Registry) HasSlot(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.slots[name]
	return exists
}

// HandlerCount returns the number of handlers bound to a slot (0 for
// unknown slots).
func (r *Registry) HandlerCount(slotName string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, exists := r.slots[slotName]
	if !exists {
		return 0
	}
	return len(state.handlers)
}

// Slots returns the definitions of all declared slots.
func (r *Registry) Slots() []Slot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Slot, 0, len(r.slots))
	for _, state := range r.slots {
		out = append(out, state.def)
	}
	return out
}

// Clear removes all slots and handlers. Intended for test isolation.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots = make(map[string]*slotState)
}
