package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_GetAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9001\n"), 0o600))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m, err := NewManager(path, logger)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, 9001, m.Get().Server.Port)

	var notified atomic.Int32
	m.OnChange(func(cfg *Config) {
		notified.Add(1)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, m.Watch(ctx))

	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9002\n"), 0o600))

	require.Eventually(t, func() bool {
		return m.Get().Server.Port == 9002
	}, 5*time.Second, 50*time.Millisecond, "hot reload did not pick up the new port")
	assert.GreaterOrEqual(t, notified.Load(), int32(1))
}

func TestManager_KeepsConfigOnBadReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9001\n"), 0o600))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m, err := NewManager(path, logger)
	require.NoError(t, err)
	defer m.Close()

	// A reload that fails validation must leave the current config in place.
	require.NoError(t, os.WriteFile(path, []byte("governance:\n  cost:\n    global_soft_limit_usd: 100\n    global_hard_limit_usd: 1\n"), 0o600))
	m.reload()

	assert.Equal(t, 9001, m.Get().Server.Port)
}

func TestNewManager_RejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := NewManager(path, logger)
	require.Error(t, err)
}
