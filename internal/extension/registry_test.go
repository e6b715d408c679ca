package extension

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterSlotAndInvoke(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	require.NoError(t, r.RegisterSlot("before-set", "fires before a set", []string{"namespace", "key", "value"}))

	var got any
	require.NoError(t, r.RegisterHandler("before-set", "test", func(_ context.Context, payload any) error {
		got = payload
		return nil
	}))

	failures, err := r.Invoke(ctx, "before-set", "payload")
	require.NoError(t, err)
	assert.Empty(t, failures)
	assert.Equal(t, "payload", got)
}

func TestDuplicateSlotRejected(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.RegisterSlot("x", "", nil))
	err := r.RegisterSlot("x", "", nil)
	require.Error(t, err)

	var dup *DuplicateSlotError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "x", dup.Name)
}

func TestDuplicateSlotIgnoredUnderPolicy(t *testing.T) {
	r := NewRegistry(WithDuplicatePolicy(DuplicateIgnore))

	require.NoError(t, r.RegisterSlot("x", "first", []string{"a"}))
	require.NoError(t, r.RegisterSlot("x", "second", []string{"b"}))

	slots := r.Slots()
	require.Len(t, slots, 1)
	assert.Equal(t, "first", slots[0].Description)
}

func TestInvokeUnknownSlot(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterSlot("x", "", nil))

	_, err := r.Invoke(context.Background(), "y", nil)
	require.Error(t, err)

	var unknown *UnknownSlotError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "y", unknown.Name)
}

func TestRegisterHandlerUnknownSlot(t *testing.T) {
	r := NewRegistry()

	err := r.RegisterHandler("missing", "test", func(context.Context, any) error { return nil })
	var unknown *UnknownSlotError
	require.ErrorAs(t, err, &unknown)
}

func TestHandlersFireInRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterSlot("ordered", "", nil))

	const n = 10
	var calls []int
	for i := 0; i < n; i++ {
		i := i
		require.NoError(t, r.RegisterHandler("ordered", fmt.Sprintf("h%d", i), func(context.Context, any) error {
			calls = append(calls, i)
			return nil
		}))
	}

	failures, err := r.Invoke(context.Background(), "ordered", nil)
	require.NoError(t, err)
	assert.Empty(t, failures)

	require.Len(t, calls, n)
	for i, c := range calls {
		assert.Equal(t, i, c)
	}
}

func TestFailingHandlerDoesNotStopOthers(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterSlot("mixed", "", nil))

	var succeeded bool
	require.NoError(t, r.RegisterHandler("mixed", "broken", func(context.Context, any) error {
		return errors.New("boom")
	}))
	require.NoError(t, r.RegisterHandler("mixed", "fine", func(context.Context, any) error {
		succeeded = true
		return nil
	}))

	failures, err := r.Invoke(context.Background(), "mixed", nil)
	require.NoError(t, err)
	assert.True(t, succeeded, "succeeding handler must still run")
	require.Len(t, failures, 1)
	assert.Equal(t, "broken", failures[0].Owner)
	assert.Equal(t, 0, failures[0].Index)
	assert.ErrorContains(t, failures[0].Err, "boom")
}

func TestPanickingHandlerIsIsolated(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterSlot("panicky", "", nil))

	var afterRan bool
	require.NoError(t, r.RegisterHandler("panicky", "bad", func(context.Context, any) error {
		panic("unexpected")
	}))
	require.NoError(t, r.RegisterHandler("panicky", "good", func(context.Context, any) error {
		afterRan = true
		return nil
	}))

	failures, err := r.Invoke(context.Background(), "panicky", nil)
	require.NoError(t, err)
	assert.True(t, afterRan)
	require.Len(t, failures, 1)
	assert.ErrorContains(t, failures[0].Err, "handler panic")
}

func TestInvokeSlotWithNoHandlers(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterSlot("empty", "", nil))

	failures, err := r.Invoke(context.Background(), "empty", nil)
	require.NoError(t, err)
	assert.Empty(t, failures)
}

func TestClear(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterSlot("x", "", nil))
	require.NoError(t, r.RegisterHandler("x", "test", func(context.Context, any) error { return nil }))

	r.Clear()

	assert.False(t, r.HasSlot("x"))
	assert.Equal(t, 0, r.HandlerCount("x"))
	// Re-registration after Clear must succeed even under DuplicateError.
	require.NoError(t, r.RegisterSlot("x", "", nil))
}

func TestHandlerCount(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterSlot("x", "", nil))
	assert.Equal(t, 0, r.HandlerCount("x"))

	require.NoError(t, r.RegisterHandler("x", "a", func(context.Context, any) error { return nil }))
	require.NoError(t, r.RegisterHandler("x", "b", func(context.Context, any) error { return nil }))
	assert.Equal(t, 2, r.HandlerCount("x"))
	assert.Equal(t, 0, r.HandlerCount("nope"))
}

func TestParseDuplicatePolicy(t *testing.T) {
	assert.Equal(t, DuplicateIgnore, ParseDuplicatePolicy("ignore"))
	assert.Equal(t, DuplicateError, ParseDuplicatePolicy("error"))
	assert.Equal(t, DuplicateError, ParseDuplicatePolicy(""))
}
