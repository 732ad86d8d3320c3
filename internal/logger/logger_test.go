package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestSetLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"ERROR", zerolog.ErrorLevel},
		{" debug ", zerolog.DebugLevel},
		{"unknown", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			SetLevel(tt.in)
			require.Equal(t, tt.want, zerolog.GlobalLevel())
		})
	}

	SetLevel("debug")
}

func TestConfigure(t *testing.T) {
	t.Run("console format keeps console writer", func(t *testing.T) {
		var buf bytes.Buffer
		SetOutput(&buf)
		Configure("info", "console")

		Log.Info().Str("subscription_id", "7").Msg("recomputed")
		require.Contains(t, buf.String(), "recomputed")
		require.Contains(t, buf.String(), "subscription_id=")
	})

	t.Run("json format switches writer", func(t *testing.T) {
		Configure("debug", "JSON")
		require.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
		require.NotNil(t, Log)
	})

	SetLevel("debug")
}
