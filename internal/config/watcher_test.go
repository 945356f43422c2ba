package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcherEmitsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"mcpServers":{}}`), 0o644))

	w := NewWatcher(path, 20*time.Millisecond)
	updates := make(chan ConfigUpdated, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, w.Start(ctx, updates))
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(`{"mcpServers":{"s1":{"command":"echo-mcp"}}}`), 0o644))

	select {
	case u := <-updates:
		require.Equal(t, path, u.Path)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for config update signal")
	}
}

func TestWatcherCollapsesRapidWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"mcpServers":{}}`), 0o644))

	w := NewWatcher(path, 100*time.Millisecond)
	updates := make(chan ConfigUpdated, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, w.Start(ctx, updates))
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte(`{"mcpServers":{}}`), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-updates:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for config update signal")
	}

	select {
	case u := <-updates:
		t.Fatalf("expected rapid writes to collapse into one signal, got extra: %+v", u)
	case <-time.After(300 * time.Millisecond):
	}
}
