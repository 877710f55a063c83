// Package typing injects keyboard input through wtype, xdotool or ydotool
package typing

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"keytyper/internal/logger"
	"keytyper/pkg/errors"
)

// Supported command line tools.
const (
	ToolWtype   = "wtype"
	ToolXdotool = "xdotool"
	ToolYdotool = "ydotool"
)

// runFunc executes name with args.
type runFunc func(ctx context.Context, name string, args ...string) error

// System handles direct keyboard input through one command line tool
type System struct {
	tool        string
	run         runFunc
	log         zerolog.Logger
	typeTimeout time.Duration
	keyTimeout  time.Duration
}

// NewSystem creates a typing system for backend ("auto" picks a tool that is
// installed and fits the current display server).
func NewSystem(backend string, log zerolog.Logger) (*System, error) {
	tool, err := detectTool(backend, exec.LookPath, os.Getenv)
	if err != nil {
		return nil, err
	}
	s := newSystem(tool, runCommand, log)
	s.log.Info().Str("tool", tool).Msg("using input tool")
	return s, nil
}

func newSystem(tool string, run runFunc, log zerolog.Logger) *System {
	return &System{
		tool:        tool,
		run:         run,
		log:         logger.Component(log, "typing"),
		typeTimeout: 15 * time.Second,
		keyTimeout:  2 * time.Second,
	}
}

// Tool returns the tool in use.
func (s *System) Tool() string { return s.tool }

func detectTool(backend string, lookPath func(string) (string, error), getenv func(string) string) (string, error) {
	available := func(tool string) bool {
		_, err := lookPath(tool)
		return err == nil
	}

	switch backend {
	case ToolWtype, ToolXdotool, ToolYdotool:
		if !available(backend) {
			return "", fmt.Errorf("%s: %w", backend, errors.ErrNoTool)
		}
		return backend, nil
	case "", "auto":
	default:
		return "", fmt.Errorf("backend %q: %w", backend, errors.ErrNotSupported)
	}

	wayland := strings.Contains(getenv("WAYLAND_DISPLAY"), "wayland")
	if wayland && available(ToolWtype) {
		return ToolWtype, nil
	}
	if getenv("DISPLAY") != "" && available(ToolXdotool) {
		return ToolXdotool, nil
	}
	// ydotool works everywhere through uinput but needs its daemon.
	if available(ToolYdotool) {
		return ToolYdotool, nil
	}
	if available(ToolXdotool) {
		return ToolXdotool, nil
	}
	return "", fmt.Errorf("install wtype, xdotool or ydotool: %w", errors.ErrNoTool)
}

// TypeText types literal text at the cursor position
func (s *System) TypeText(ctx context.Context, text string) error {
	tCtx, cancel := context.WithTimeout(ctx, s.typeTimeout)
	defer cancel()

	switch s.tool {
	case ToolWtype:
		return s.exec(tCtx, ToolWtype, "--", text)
	case ToolYdotool:
		return s.exec(tCtx, ToolYdotool, "type", "--", text)
	default:
		return s.exec(tCtx, ToolXdotool, "type", "--clearmodifiers", "--delay", "2", "--", text)
	}
}

// KeyTap presses and releases a named key (space, enter, tab, a letter...)
func (s *System) KeyTap(ctx context.Context, key string) error {
	tCtx, cancel := context.WithTimeout(ctx, s.keyTimeout)
	defer cancel()

	switch s.tool {
	case ToolWtype:
		return s.exec(tCtx, ToolWtype, "-k", keysym(key))
	case ToolYdotool:
		code, err := keycode(key)
		if err != nil {
			return err
		}
		return s.exec(tCtx, ToolYdotool, "key", code+":1", code+":0")
	default:
		return s.exec(tCtx, ToolXdotool, "key", "--clearmodifiers", keysym(key))
	}
}

// KeyCombo presses key while holding modifiers, e.g. KeyCombo(ctx, "v", "ctrl")
func (s *System) KeyCombo(ctx context.Context, key string, modifiers ...string) error {
	tCtx, cancel := context.WithTimeout(ctx, s.keyTimeout)
	defer cancel()

	switch s.tool {
	case ToolWtype:
		args := make([]string, 0, 4*len(modifiers)+2)
		for _, m := range modifiers {
			args = append(args, "-M", wtypeModifier(m))
		}
		args = append(args, "-k", keysym(key))
		for i := len(modifiers) - 1; i >= 0; i-- {
			args = append(args, "-m", wtypeModifier(modifiers[i]))
		}
		return s.exec(tCtx, ToolWtype, args...)

	case ToolYdotool:
		codes := make([]string, 0, len(modifiers)+1)
		for _, k := range append(append([]string{}, modifiers...), key) {
			code, err := keycode(k)
			if err != nil {
				return err
			}
			codes = append(codes, code)
		}
		args := []string{"key"}
		for _, c := range codes {
			args = append(args, c+":1")
		}
		for i := len(codes) - 1; i >= 0; i-- {
			args = append(args, codes[i]+":0")
		}
		return s.exec(tCtx, ToolYdotool, args...)

	default:
		parts := make([]string, 0, len(modifiers)+1)
		for _, m := range modifiers {
			parts = append(parts, xdotoolModifier(m))
		}
		parts = append(parts, keysym(key))
		return s.exec(tCtx, ToolXdotool, "key", "--clearmodifiers", strings.Join(parts, "+"))
	}
}

func (s *System) exec(ctx context.Context, name string, args ...string) error {
	if err := s.run(ctx, name, args...); err != nil {
		s.log.Debug().Err(err).Str("tool", name).Strs("args", redact(args)).Msg("input command failed")
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// redact hides typed text from debug logs.
func redact(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		if len(a) > 16 {
			a = fmt.Sprintf("<%d bytes>", len(a))
		}
		out[i] = a
	}
	return out
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

// X keysyms understood by both wtype and xdotool.
var keysyms = map[string]string{
	"space":     "space",
	"enter":     "Return",
	"return":    "Return",
	"tab":       "Tab",
	"backspace": "BackSpace",
	"escape":    "Escape",
	"esc":       "Escape",
	"insert":    "Insert",
	"delete":    "Delete",
}

func keysym(key string) string {
	if k, ok := keysyms[strings.ToLower(key)]; ok {
		return k
	}
	return key
}

func xdotoolModifier(m string) string {
	switch strings.ToLower(m) {
	case "cmd", "super", "win", "meta":
		return "super"
	case "control":
		return "ctrl"
	default:
		return strings.ToLower(m)
	}
}

func wtypeModifier(m string) string {
	switch strings.ToLower(m) {
	case "cmd", "super", "win", "meta":
		return "logo"
	case "control":
		return "ctrl"
	default:
		return strings.ToLower(m)
	}
}

// Linux input event codes used by ydotool.
var keycodes = map[string]int{
	"esc": 1, "escape": 1, "backspace": 14, "tab": 15, "enter": 28, "return": 28,
	"ctrl": 29, "control": 29, "shift": 42, "alt": 56, "space": 57,
	"super": 125, "cmd": 125, "win": 125, "meta": 125,
	"insert": 110, "delete": 111,
	"1": 2, "2": 3, "3": 4, "4": 5, "5": 6, "6": 7, "7": 8, "8": 9, "9": 10, "0": 11,
	"q": 16, "w": 17, "e": 18, "r": 19, "t": 20, "y": 21, "u": 22, "i": 23, "o": 24, "p": 25,
	"a": 30, "s": 31, "d": 32, "f": 33, "g": 34, "h": 35, "j": 36, "k": 37, "l": 38,
	"z": 44, "x": 45, "c": 46, "v": 47, "b": 48, "n": 49, "m": 50,
}

func keycode(key string) (string, error) {
	code, ok := keycodes[strings.ToLower(key)]
	if !ok {
		return "", fmt.Errorf("ydotool: no keycode for %q: %w", key, errors.ErrNotSupported)
	}
	return fmt.Sprint(code), nil
}
