package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/nhle/quiz-ledger/internal/model"
)

func TestNew_Level(t *testing.T) {
	for _, format := range []string{"console", "json"} {
		l, err := New(model.LogConfig{Level: "warn", Format: format})
		require.NoError(t, err)
		assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
		assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(model.LogConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.log")

	l, err := New(model.LogConfig{Level: "info", Format: "json", File: path})
	require.NoError(t, err)
	l.Info("hello")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}
