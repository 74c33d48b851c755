package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.log")

	require.NoError(t, Init(&LogConfig{Level: "debug", Filename: path}, "test"))
	Info("turn handled", zap.String("call_id", "CA123"))
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "turn handled")
	assert.Contains(t, string(data), "CA123")
}

func TestInitRejectsBadLevel(t *testing.T) {
	assert.Error(t, Init(&LogConfig{Level: "loud"}, "test"))
}
