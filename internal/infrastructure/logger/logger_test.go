package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/notesapp/core/internal/infrastructure/config"
)

func observed(level zapcore.Level) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return FromZap(zap.New(core)), logs
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	_, err := New(config.LoggerConfig{Level: "loud", Format: "json", Output: "stdout"})
	assert.Error(t, err)
}

func TestNew_BuildsForEachFormat(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		l, err := New(config.LoggerConfig{Level: "info", Format: format, Output: "stderr"})
		require.NoError(t, err)
		assert.NotNil(t, l.SugaredLogger)
	}
}

func TestWithComponent_AddsField(t *testing.T) {
	l, logs := observed(zapcore.InfoLevel)

	l.WithComponent("note_service").Info("hello")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "note_service", logs.All()[0].ContextMap()["component"])
}

func TestLogStoreAccess_LevelFollowsError(t *testing.T) {
	l, logs := observed(zapcore.DebugLevel)

	l.LogStoreAccess("get", "app-notes-list-v1", 1.5, nil)
	l.LogStoreAccess("set", "app-notes-list-v1", 2, errors.New("disk full"))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "disk full", entries[1].ContextMap()["error"])
}

func TestLogNoteAction_IncludesMetadata(t *testing.T) {
	l, logs := observed(zapcore.InfoLevel)

	l.LogNoteAction("update", "1", map[string]interface{}{"title_changed": true})

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "update", fields["action"])
	assert.Equal(t, "1", fields["note_id"])
	assert.Equal(t, true, fields["title_changed"])
}
