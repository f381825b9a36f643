package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("loud")
	require.Error(t, err)
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.log")

	log, err := New("info", WithFile(path, 1, 1, 1))
	require.NoError(t, err)
	log.Infow("merge applied", "pr_id", "pr-1")
	log.Debugw("hidden")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "merge applied")
	require.Contains(t, string(data), "pr-1")
	require.NotContains(t, string(data), "hidden")
}

func TestWithConsoleRedirectsOutput(t *testing.T) {
	var buf bytes.Buffer

	log, err := New("warn", WithConsole(&buf))
	require.NoError(t, err)
	log.Warnw("lock lost", "key", "merge:p1")
	log.Infow("quiet")

	require.Contains(t, buf.String(), "merge:p1")
	require.NotContains(t, buf.String(), "quiet")
}
