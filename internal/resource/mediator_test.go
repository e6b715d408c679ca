package resource

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attestor-io/attestor/internal/extension"
)

// fakeCapability is a minimal in-test Capability with injectable failures.
type fakeCapability struct {
	mu    sync.Mutex
	data  map[string][]byte
	fail  error // when set, every operation fails with this error
	sized int64
}

func newFakeCapability() *fakeCapability {
	return &fakeCapability{data: make(map[string][]byte)}
}

func (f *fakeCapability) Get(_ context.Context, namespace, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, false, f.fail
	}
	v, ok := f.data[namespace+"/"+key]
	return v, ok, nil
}

func (f *fakeCapability) Set(_ context.Context, namespace, key string, value []byte, _ SetOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.data[namespace+"/"+key] = value
	return nil
}

func (f *fakeCapability) Delete(_ context.Context, namespace, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	delete(f.data, namespace+"/"+key)
	return nil
}

func (f *fakeCapability) Size(context.Context, string) (int64, error) {
	return f.sized, nil
}

func (f *fakeCapability) HealthCheck(context.Context) error {
	return f.fail
}

func newTestMediator(t *testing.T) (*Mediator, *fakeCapability) {
	t.Helper()
	cap := newFakeCapability()
	m, err := NewMediator(cap, extension.NewRegistry(), "fake")
	require.NoError(t, err)
	return m, cap
}

func TestGetAfterSetReturnsValue(t *testing.T) {
	m, _ := newTestMediator(t)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "ns", "k", []byte("v"), SetOptions{}))

	value, ok, err := m.Get(ctx, "ns", "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), value)
}

func TestGetAfterDeleteReturnsAbsent(t *testing.T) {
	m, _ := newTestMediator(t)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "ns", "k", []byte("v"), SetOptions{}))
	require.NoError(t, m.Delete(ctx, "ns", "k"))

	_, ok, err := m.Get(ctx, "ns", "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteAbsentKeyDoesNotError(t *testing.T) {
	m, _ := newTestMediator(t)
	assert.NoError(t, m.Delete(context.Background(), "ns", "never-set"))
}

func TestHookOrderingAroundSet(t *testing.T) {
	m, _ := newTestMediator(t)
	ctx := context.Background()

	var sequence []string
	reg := m.Registry()
	require.NoError(t, reg.RegisterHandler(SlotBeforeSet, "test", func(_ context.Context, payload any) error {
		p := payload.(HookPayload)
		assert.Equal(t, "ns", p.Namespace)
		assert.Equal(t, "k", p.Key)
		assert.Equal(t, []byte("v"), p.Value)
		sequence = append(sequence, "before-set")
		return nil
	}))
	require.NoError(t, reg.RegisterHandler(SlotAfterSet, "test", func(_ context.Context, payload any) error {
		sequence = append(sequence, "after-set")
		return nil
	}))

	require.NoError(t, m.Set(ctx, "ns", "k", []byte("v"), SetOptions{}))
	assert.Equal(t, []string{"before-set", "after-set"}, sequence)
}

func TestErrorHookFiresAndErrorPropagates(t *testing.T) {
	m, cap := newTestMediator(t)
	ctx := context.Background()
	boom := errors.New("disk on fire")
	cap.fail = boom

	var hookPayload HookPayload
	require.NoError(t, m.Registry().RegisterHandler(SlotOnError, "test", func(_ context.Context, payload any) error {
		hookPayload = payload.(HookPayload)
		return nil
	}))

	_, _, err := m.Get(ctx, "ns", "k")
	require.Error(t, err)

	var opErr *StorageOperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "ns", opErr.Namespace)
	assert.Equal(t, "k", opErr.Key)
	assert.Equal(t, "get", opErr.Operation)
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, "get", hookPayload.Operation)
	assert.ErrorIs(t, hookPayload.Err, boom)
}

func TestFailingHookDoesNotAbortOperation(t *testing.T) {
	m, _ := newTestMediator(t)
	ctx := context.Background()

	require.NoError(t, m.Registry().RegisterHandler(SlotBeforeSet, "broken", func(context.Context, any) error {
		return errors.New("observer bug")
	}))

	require.NoError(t, m.Set(ctx, "ns", "k", []byte("v"), SetOptions{}))

	_, ok, err := m.Get(ctx, "ns", "k")
	require.NoError(t, err)
	assert.True(t, ok, "set must complete despite hook failure")
}

func TestListenersReceiveSetAndDeleteEvents(t *testing.T) {
	m, _ := newTestMediator(t)
	ctx := context.Background()

	var events []StorageEvent
	m.Subscribe(func(e StorageEvent) error {
		events = append(events, e)
		return nil
	})

	require.NoError(t, m.Set(ctx, "ns", "k", []byte("v"), SetOptions{}))
	require.NoError(t, m.Delete(ctx, "ns", "k"))

	require.Len(t, events, 2)
	assert.Equal(t, EventSet, events[0].Type)
	assert.Equal(t, []byte("v"), events[0].Value)
	assert.Equal(t, EventDelete, events[1].Type)
	assert.Equal(t, "fake", events[1].Provider)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestListenerReceivesErrorEvent(t *testing.T) {
	m, cap := newTestMediator(t)
	cap.fail = errors.New("broken pipe")

	var events []StorageEvent
	m.Subscribe(func(e StorageEvent) error {
		events = append(events, e)
		return nil
	})

	err := m.Set(context.Background(), "ns", "k", []byte("v"), SetOptions{})
	require.Error(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Type)
	assert.Error(t, events[0].Err)
}

func TestFailingListenerIsIsolated(t *testing.T) {
	m, _ := newTestMediator(t)
	ctx := context.Background()

	var secondCalled bool
	m.Subscribe(func(StorageEvent) error { return errors.New("listener bug") })
	m.Subscribe(func(StorageEvent) error { panic("listener panic") })
	m.Subscribe(func(StorageEvent) error {
		secondCalled = true
		return nil
	})

	require.NoError(t, m.Set(ctx, "ns", "k", []byte("v"), SetOptions{}))
	assert.True(t, secondCalled, "later listeners must still run")
}

func TestSharedRegistryAcrossMediators(t *testing.T) {
	reg := extension.NewRegistry()

	_, err := NewMediator(newFakeCapability(), reg, "first")
	require.NoError(t, err)

	// A second mediator sharing the registry must tolerate the
	// already-declared slots.
	_, err = NewMediator(newFakeCapability(), reg, "second")
	require.NoError(t, err)
}

func TestKeysUnsupportedCapability(t *testing.T) {
	m, _ := newTestMediator(t)

	_, err := m.Keys(context.Background(), "ns")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key listing")
}

func TestHealthCheckPassthrough(t *testing.T) {
	m, cap := newTestMediator(t)
	assert.NoError(t, m.HealthCheck(context.Background()))

	cap.fail = errors.New("down")
	assert.Error(t, m.HealthCheck(context.Background()))
}
