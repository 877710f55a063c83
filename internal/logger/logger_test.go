package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"off":     zerolog.Disabled,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: zerolog.InfoLevel, Format: "json"}, &buf)

	l.Debug().Msg("hidden")
	l.Info().Str("component", "store").Msg("loaded")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "loaded", entry["message"])
	assert.Equal(t, "store", entry["component"])
	assert.Contains(t, entry, "time")
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithContext(context.Background(), zerolog.New(&buf))
	ctx = WithComponent(ctx, "sequencer")

	FromContext(ctx).Info().Msg("tick")
	assert.Contains(t, buf.String(), `"component":"sequencer"`)
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	Component(zerolog.New(&buf), "store").Info().Msg("opened")
	assert.Contains(t, buf.String(), `"component":"store"`)
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	var buf bytes.Buffer
	prev := defaultLogger
	SetDefault(zerolog.New(&buf))
	t.Cleanup(func() { SetDefault(prev) })

	FromContext(context.Background()).Info().Msg("fallback")
	assert.Contains(t, buf.String(), "fallback")
}
