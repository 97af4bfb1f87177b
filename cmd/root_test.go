package cmd

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLoggerLevels(t *testing.T) {
	t.Run("default is info", func(t *testing.T) {
		t.Setenv("DEBUG", "")
		logger := newLogger()
		assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
		assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
	})

	t.Run("DEBUG raises verbosity", func(t *testing.T) {
		t.Setenv("DEBUG", "1")
		logger := newLogger()
		assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
	})
}
