package logging

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
	l, err := New(&buf, "info", FormatJSON)
	require.NoError(t, err)

	l.Debug().Msg("hidden")
	l.Info().Str("prayer", "Asr").Msg("next")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "Asr", entry["prayer"])
	assert.Equal(t, "next", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestNew_DefaultLevelIsWarn(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "", FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, l.GetLevel())

	l.Info().Msg("quiet")
	assert.Empty(t, buf.String())
}

func TestNew_Console(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var buf bytes.Buffer
	l, err := New(&buf, "DEBUG", "")
	require.NoError(t, err)

	l.Debug().Int("days", 7).Msg("listing")
	assert.Contains(t, buf.String(), "listing")
	assert.Contains(t, buf.String(), "days=7")
}

func TestNew_Invalid(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "loud", FormatJSON)
	assert.Error(t, err)

	_, err = New(&bytes.Buffer{}, "info", "xml")
	assert.Error(t, err)
}
