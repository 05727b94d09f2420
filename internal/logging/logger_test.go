package logging

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewDevelopmentLogger(t *testing.T) {
	t.Parallel()
	logger, err := New(true, "")
	require.NoError(t, err)
	require.NotNil(t, logger)
	logger.Debug("development logger is verbose")
}

func TestNewProductionLogger(t *testing.T) {
	t.Parallel()
	logger, err := New(false, "")
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestNewLoggerWithFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "crawler.log")
	logger, err := New(false, path)
	require.NoError(t, err)
	logger.Info("hello")
	require.NoError(t, logger.Sync())
	require.FileExists(t, path)
}
