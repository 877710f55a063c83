package store

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keytyper/pkg/errors"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	return Open(filepath.Join(t.TempDir(), "scripts.json"), zerolog.Nop())
}

func TestPutGetDelete(t *testing.T) {
	s := openTemp(t)

	require.NoError(t, s.Put("greeting", "hi"))
	body, err := s.Get("greeting")
	require.NoError(t, err)
	assert.Equal(t, "hi", body)

	require.NoError(t, s.Delete("greeting"))
	_, err = s.Get("greeting")
	assert.ErrorIs(t, err, errors.ErrNotFound)

	assert.ErrorIs(t, s.Delete("greeting"), errors.ErrNotFound)
}

func TestPutRejectsEmptyName(t *testing.T) {
	s := openTemp(t)
	err := s.Put("  ", "body")
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	assert.Empty(t, s.List())
}

func TestListIsSorted(t *testing.T) {
	s := openTemp(t)
	for _, n := range []string{"zeta", "alpha", "مرحبا", "Beta"} {
		require.NoError(t, s.Put(n, n))
	}
	assert.Equal(t, []string{"Beta", "alpha", "zeta", "مرحبا"}, s.List())
}

func TestPersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "scripts.json")
	s := Open(path, zerolog.Nop())
	require.NoError(t, s.Put("sig", "Regards,\nSam"))
	require.NoError(t, s.Put("ar", "مرحبا بكم"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"ar\": ", "file should be pretty-printed")

	reopened := Open(path, zerolog.Nop())
	assert.Equal(t, []string{"ar", "sig"}, reopened.List())
	body, err := reopened.Get("sig")
	require.NoError(t, err)
	assert.Equal(t, "Regards,\nSam", body)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestCorruptFileDegradesToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scripts.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := Open(path, zerolog.Nop())
	assert.Empty(t, s.List())

	require.NoError(t, s.Put("a", "b"))
	assert.Equal(t, []string{"a"}, Open(path, zerolog.Nop()).List())
}

func TestWriteFailureKeepsMemory(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	s := Open(filepath.Join(blocker, "scripts.json"), zerolog.Nop())
	err := s.Put("a", "b")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypePersistence))

	body, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "b", body)
}

func TestReload(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.Put("a", "1"))

	changed, err := s.Reload()
	require.NoError(t, err)
	assert.False(t, changed, "own writes are not a change")

	require.NoError(t, os.WriteFile(s.Path(), []byte(`{"b": "2"}`), 0o644))
	changed, err = s.Reload()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []string{"b"}, s.List())
}

func TestWatchPicksUpExternalEdits(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.Put("a", "1"))

	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx, func() { calls.Add(1) }) }()
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, s.Put("b", "2"))
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, calls.Load())

	require.NoError(t, os.WriteFile(s.Path(), []byte(`{"c": "3"}`), 0o644))
	require.Eventually(t, func() bool {
		names := s.List()
		return len(names) == 1 && names[0] == "c"
	}, 2*time.Second, 10*time.Millisecond)
	assert.Positive(t, calls.Load())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
