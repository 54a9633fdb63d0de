package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := New("debug", false, &buf)
	log.Debug().Str("task_id", "t1").Msg("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "debug", line["level"])
	assert.Equal(t, "t1", line["task_id"])
	assert.Equal(t, "hello", line["message"])
}

func TestNew_LevelFallback(t *testing.T) {
	var buf bytes.Buffer
	log := New("loud", false, &buf)
	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())

	log.Debug().Msg("hidden")
	assert.Empty(t, buf.String())
}

func TestNew_Pretty(t *testing.T) {
	var buf bytes.Buffer
	log := New("info", true, &buf)
	log.Info().Msg("ready")
	assert.Contains(t, buf.String(), "ready")
	assert.NotContains(t, buf.String(), `"message"`)
}
