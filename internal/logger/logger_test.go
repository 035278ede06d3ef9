package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogrusLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	log := newLogrusLogger(&buf, "debug", "json")

	log.With("component", "scanner").Info("sweep completed", "reminders_sent", 3)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "sweep completed", line["msg"])
	assert.Equal(t, "scanner", line["component"])
	assert.Equal(t, float64(3), line["reminders_sent"])
	assert.Equal(t, "info", line["level"])
}

func TestLogrusLogger_ErrorCarriesCause(t *testing.T) {
	var buf bytes.Buffer
	log := newLogrusLogger(&buf, "info", "json")

	log.Error("reminder phase failed", errors.New("connection refused"), "phase", "reminders")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "connection refused", line["error"])
	assert.Equal(t, "reminders", line["phase"])
}

func TestLogrusLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := newLogrusLogger(&buf, "warn", "text")

	log.Debug("hidden")
	log.Info("hidden too")
	assert.Empty(t, buf.String())

	log.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestToFields_OddArguments(t *testing.T) {
	fields := toFields([]interface{}{"org_id", "o1", "dangling"})

	assert.Equal(t, "o1", fields["org_id"])
	assert.Equal(t, "dangling", fields["extra"])
}
