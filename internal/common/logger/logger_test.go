package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := WithGiveaway(WithComponent(New(&buf, "bot", false, FormatJSON), "giveaway"), "123")

	l.Info().Msg("Giveaway started")
	l.Debug().Msg("hidden below info")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "bot", entry[FieldService])
	assert.Equal(t, "giveaway", entry[FieldComponent])
	assert.Equal(t, "123", entry[FieldGiveawayID])
	assert.Equal(t, "Giveaway started", entry["message"])
	assert.Contains(t, entry, "timestamp")
}

func TestNew_ConsoleDebug(t *testing.T) {
	var buf bytes.Buffer
	l := WithRequest(New(&buf, "bot", true, "console"), "req-1")

	l.Debug().Msg("visible in debug")

	out := buf.String()
	assert.Contains(t, out, "visible in debug")
	assert.Contains(t, out, "req-1")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}
