package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherReportsChangedVariant(t *testing.T) {
	dir := t.TempDir()
	loader := NewLoader(dir)
	writeVariant(t, dir, "base", "name: base\nversion: \"1.0\"\n")

	_, err := loader.Resolve("base")
	require.NoError(t, err)

	changed := make(chan string, 8)
	w, err := NewWatcher(loader, func(name string) {
		changed <- name
	})
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	writeVariant(t, dir, "base", "name: base\nversion: \"2.0\"\n")

	select {
	case name := <-changed:
		assert.Equal(t, "base", name)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change notification")
	}

	// The cache was invalidated, so the new content is visible.
	doc, err := loader.Resolve("base")
	require.NoError(t, err)
	assert.Equal(t, "2.0", doc["version"])
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	loader := NewLoader(dir)

	changed := make(chan string, 8)
	w, err := NewWatcher(loader, func(name string) {
		changed <- name
	})
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	select {
	case name := <-changed:
		t.Fatalf("unexpected notification for %s", name)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatcherStartIsIdempotent(t *testing.T) {
	loader := NewLoader(t.TempDir())
	w, err := NewWatcher(loader, func(string) {})
	require.NoError(t, err)

	w.Start()
	w.Start()
	w.Stop()
}

func TestWatcherStopWithoutStart(t *testing.T) {
	loader := NewLoader(t.TempDir())
	w, err := NewWatcher(loader, func(string) {})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		w.Stop()
		w.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return for an unstarted watcher")
	}
}
