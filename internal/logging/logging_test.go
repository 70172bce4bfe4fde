package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/jrsteele09/beetrack-client/internal/logging"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestSetupWriterJSON(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	var buf bytes.Buffer
	logging.SetupWriter(&buf, "debug", "PROD")

	l := logging.Component("transport")
	l.Debug().Str("path", "/users/me").Msg("dispatch")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "transport", line["component"])
	require.Equal(t, "/users/me", line["path"])
	require.Equal(t, "debug", line["level"])
}

func TestSetupWriterUnknownLevelDefaultsToInfo(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	var buf bytes.Buffer
	logging.SetupWriter(&buf, "chatty", "PROD")

	l := logging.Component("auth")
	l.Debug().Msg("hidden")
	require.Zero(t, buf.Len())

	l.Info().Msg("shown")
	require.NotZero(t, buf.Len())
}
