// Package robot injects input and drives the clipboard through robotgo. It
// is the backend for X11, macOS and Windows hosts where the command line
// tools are missing.
package robot

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-vgo/robotgo"
	"github.com/rs/zerolog"

	"keytyper/internal/logger"
)

// Backend implements both the injector and the clipboard.
type Backend struct {
	log zerolog.Logger
}

// New returns a robotgo backend.
func New(log zerolog.Logger) *Backend {
	b := &Backend{log: logger.Component(log, "robotgo")}
	b.log.Info().Msg("using robotgo input backend")
	return b
}

// TypeText types text as key events.
func (b *Backend) TypeText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	robotgo.TypeStr(text)
	return nil
}

// KeyTap presses a named key.
func (b *Backend) KeyTap(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := robotgo.KeyTap(keyName(key)); err != nil {
		return fmt.Errorf("robotgo: key %s: %w", key, err)
	}
	return nil
}

// KeyCombo presses key with modifiers held.
func (b *Backend) KeyCombo(ctx context.Context, key string, modifiers ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(modifiers) == 0 {
		return b.KeyTap(ctx, key)
	}
	mods := make([]string, len(modifiers))
	for i, m := range modifiers {
		mods[i] = keyName(m)
	}
	if err := robotgo.KeyTap(keyName(key), mods); err != nil {
		return fmt.Errorf("robotgo: key %s+%s: %w", strings.Join(mods, "+"), key, err)
	}
	return nil
}

// WriteText puts text on the clipboard.
func (b *Backend) WriteText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := robotgo.WriteAll(text); err != nil {
		return fmt.Errorf("robotgo: write clipboard: %w", err)
	}
	return nil
}

// ReadText returns the clipboard contents.
func (b *Backend) ReadText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := robotgo.ReadAll()
	if err != nil {
		return "", fmt.Errorf("robotgo: read clipboard: %w", err)
	}
	return text, nil
}

func keyName(key string) string {
	switch k := strings.ToLower(key); k {
	case "return":
		return "enter"
	case "super", "win", "meta":
		return "cmd"
	case "control":
		return "ctrl"
	default:
		return k
	}
}
