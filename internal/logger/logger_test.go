package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn")

	log.Info().Msg("hidden")
	log.Warn().Str("username", "alice").Msg("shown")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["message"])
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "alice", line["username"])
	assert.Equal(t, "points-ledger", line["service"])
}

func TestUnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "loud")

	log.Debug().Msg("hidden")
	assert.Zero(t, buf.Len())

	log.Info().Msg("shown")
	assert.NotZero(t, buf.Len())
}
