package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attestor-io/attestor/internal/resource"
)

// capabilities returns one of each Capability implementation so the shared
// contract tests run against both.
func capabilities(t *testing.T) map[string]resource.Capability {
	t.Helper()

	sqlite, err := NewSQLite(filepath.Join(t.TempDir(), "resources.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]resource.Capability{
		"memory": NewMemory(),
		"sqlite": sqlite,
	}
}

func TestGetAfterSet(t *testing.T) {
	for name, cap := range capabilities(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, cap.Set(ctx, "receipts", "rcp_1", []byte(`{"a":1}`), resource.SetOptions{}))

			value, ok, err := cap.Get(ctx, "receipts", "rcp_1")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, []byte(`{"a":1}`), value)
		})
	}
}

func TestGetAbsentKey(t *testing.T) {
	for name, cap := range capabilities(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := cap.Get(context.Background(), "receipts", "missing")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestSetOverwrites(t *testing.T) {
	for name, cap := range capabilities(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, cap.Set(ctx, "ns", "k", []byte("first"), resource.SetOptions{}))
			require.NoError(t, cap.Set(ctx, "ns", "k", []byte("second"), resource.SetOptions{}))

			value, ok, err := cap.Get(ctx, "ns", "k")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, []byte("second"), value)
		})
	}
}

func TestDeleteAndDeleteAbsent(t *testing.T) {
	for name, cap := range capabilities(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, cap.Set(ctx, "ns", "k", []byte("v"), resource.SetOptions{}))
			require.NoError(t, cap.Delete(ctx, "ns", "k"))

			_, ok, err := cap.Get(ctx, "ns", "k")
			require.NoError(t, err)
			assert.False(t, ok)

			// Deleting an absent key is a silent no-op.
			require.NoError(t, cap.Delete(ctx, "ns", "never-existed"))
		})
	}
}

func TestSize(t *testing.T) {
	for name, cap := range capabilities(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			n, err := cap.Size(ctx, "ns")
			require.NoError(t, err)
			assert.Equal(t, int64(0), n)

			require.NoError(t, cap.Set(ctx, "ns", "a", []byte("1"), resource.SetOptions{}))
			require.NoError(t, cap.Set(ctx, "ns", "b", []byte("2"), resource.SetOptions{}))
			require.NoError(t, cap.Set(ctx, "other", "c", []byte("3"), resource.SetOptions{}))

			n, err = cap.Size(ctx, "ns")
			require.NoError(t, err)
			assert.Equal(t, int64(2), n)
		})
	}
}

func TestTTLExpiry(t *testing.T) {
	for name, cap := range capabilities(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, cap.Set(ctx, "ns", "ephemeral", []byte("v"),
				resource.SetOptions{TTL: 10 * time.Millisecond}))

			_, ok, err := cap.Get(ctx, "ns", "ephemeral")
			require.NoError(t, err)
			assert.True(t, ok)

			time.Sleep(25 * time.Millisecond)

			_, ok, err = cap.Get(ctx, "ns", "ephemeral")
			require.NoError(t, err)
			assert.False(t, ok, "expired entry must read as absent")
		})
	}
}

func TestHealthCheck(t *testing.T) {
	for name, cap := range capabilities(t) {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, cap.HealthCheck(context.Background()))
		})
	}
}

func TestKeys(t *testing.T) {
	for name, cap := range capabilities(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			lister, ok := cap.(resource.KeyLister)
			require.True(t, ok, "both capabilities support key listing")

			require.NoError(t, cap.Set(ctx, "ns", "a", []byte("1"), resource.SetOptions{}))
			require.NoError(t, cap.Set(ctx, "ns", "b", []byte("2"), resource.SetOptions{}))

			keys, err := lister.Keys(ctx, "ns")
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"a", "b"}, keys)

			empty, err := lister.Keys(ctx, "unused")
			require.NoError(t, err)
			assert.Empty(t, empty)
		})
	}
}

func TestMemoryCopiesValues(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	original := []byte("immutable")
	require.NoError(t, mem.Set(ctx, "ns", "k", original, resource.SetOptions{}))
	original[0] = 'X'

	value, ok, err := mem.Get(ctx, "ns", "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("immutable"), value)
}

func TestSQLiteReopenPersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resources.db")
	ctx := context.Background()

	first, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "receipts", "rcp_x", []byte("payload"), resource.SetOptions{}))
	require.NoError(t, first.Close())

	second, err := NewSQLite(path)
	require.NoError(t, err)
	defer second.Close()

	value, ok, err := second.Get(ctx, "receipts", "rcp_x")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("payload"), value)
}
