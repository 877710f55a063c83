// Package clipboard reads and writes the system clipboard for keytyper
package clipboard

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/rs/zerolog"

	"keytyper/internal/logger"
	"keytyper/pkg/errors"
)

// System represents the clipboard system. It uses atotto/clipboard and falls
// back to calling wl-copy, xclip or xsel directly when that fails.
type System struct {
	log zerolog.Logger

	writeAll    func(string) error
	readAll     func() (string, error)
	lookPath    func(string) (string, error)
	getenv      func(string) string
	runWrite    func(ctx context.Context, stdin string, name string, args ...string) error
	runRead     func(ctx context.Context, name string, args ...string) (string, error)
	unsupported bool
}

// NewSystem creates a new clipboard system
func NewSystem(log zerolog.Logger) *System {
	s := &System{
		log:         logger.Component(log, "clipboard"),
		writeAll:    clipboard.WriteAll,
		readAll:     clipboard.ReadAll,
		lookPath:    exec.LookPath,
		getenv:      os.Getenv,
		runWrite:    runWithStdin,
		runRead:     runOutput,
		unsupported: clipboard.Unsupported,
	}
	if s.unsupported {
		s.log.Warn().Msg("no clipboard backend found by atotto/clipboard, using command line tools")
	}
	return s
}

// WriteText sets text to the system clipboard
func (s *System) WriteText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.unsupported {
		err := s.writeAll(text)
		if err == nil {
			return nil
		}
		s.log.Debug().Err(err).Msg("atotto write failed, trying tools")
	}

	tool, args, err := s.writeTool()
	if err != nil {
		return err
	}
	tCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.runWrite(tCtx, text, tool, args...); err != nil {
		return fmt.Errorf("failed to set clipboard with %s: %w", tool, err)
	}
	return nil
}

// ReadText gets text from the clipboard
func (s *System) ReadText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !s.unsupported {
		text, err := s.readAll()
		if err == nil {
			return text, nil
		}
		s.log.Debug().Err(err).Msg("atotto read failed, trying tools")
	}

	tool, args, err := s.readTool()
	if err != nil {
		return "", err
	}
	tCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	out, err := s.runRead(tCtx, tool, args...)
	if err != nil {
		return "", fmt.Errorf("failed to read clipboard with %s: %w", tool, err)
	}
	return out, nil
}

func (s *System) wayland() bool {
	return strings.Contains(s.getenv("WAYLAND_DISPLAY"), "wayland")
}

func (s *System) available(tool string) bool {
	_, err := s.lookPath(tool)
	return err == nil
}

func (s *System) writeTool() (string, []string, error) {
	if s.wayland() && s.available("wl-copy") {
		return "wl-copy", nil, nil
	}
	if s.available("xclip") {
		return "xclip", []string{"-selection", "clipboard"}, nil
	}
	if s.available("xsel") {
		return "xsel", []string{"--clipboard", "--input"}, nil
	}
	if s.available("wl-copy") {
		return "wl-copy", nil, nil
	}
	return "", nil, fmt.Errorf("install wl-copy, xclip or xsel: %w", errors.ErrNoTool)
}

func (s *System) readTool() (string, []string, error) {
	if s.wayland() && s.available("wl-paste") {
		return "wl-paste", []string{"--no-newline"}, nil
	}
	if s.available("xclip") {
		return "xclip", []string{"-selection", "clipboard", "-o"}, nil
	}
	if s.available("xsel") {
		return "xsel", []string{"--clipboard", "--output"}, nil
	}
	if s.available("wl-paste") {
		return "wl-paste", []string{"--no-newline"}, nil
	}
	return "", nil, fmt.Errorf("install wl-paste, xclip or xsel: %w", errors.ErrNoTool)
}

func runWithStdin(ctx context.Context, stdin string, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = strings.NewReader(stdin)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w, output: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

func runOutput(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}
