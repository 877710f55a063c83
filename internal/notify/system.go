// Package notify provides desktop notifications for keytyper
package notify

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/rs/zerolog"

	"keytyper/internal/logger"
	"keytyper/internal/sequencer"
	"keytyper/pkg/errors"
)

// Notifier represents the notification system
type Notifier struct {
	log      zerolog.Logger
	tool     string
	isReady  bool
	lookPath func(string) (string, error)
	run      func(ctx context.Context, name string, args ...string) error
}

// NewNotifier creates a new notifier
func NewNotifier(log zerolog.Logger) *Notifier {
	return &Notifier{
		log:      logger.Component(log, "notify"),
		lookPath: exec.LookPath,
		run:      runCommand,
	}
}

// Initialize detects notify-send or dunstify. Without either, notifications
// are only logged.
func (n *Notifier) Initialize() error {
	for _, tool := range []string{"notify-send", "dunstify"} {
		if _, err := n.lookPath(tool); err == nil {
			n.tool = tool
			n.isReady = true
			n.log.Debug().Str("tool", tool).Msg("notification system initialized")
			return nil
		}
	}
	n.log.Warn().Msg("no notification daemon found, notifications will only be logged")
	return nil
}

// IsReady returns whether the notifier is ready
func (n *Notifier) IsReady() bool {
	return n.isReady
}

// Notify sends a normal notification
func (n *Notifier) Notify(title, message string) error {
	return n.send("normal", "input-keyboard", title, message)
}

// NotifyError sends a critical notification
func (n *Notifier) NotifyError(title, message string) error {
	return n.send("critical", "dialog-error", title, message)
}

func (n *Notifier) send(urgency, icon, title, message string) error {
	if !n.isReady {
		n.log.Info().Str("title", title).Msg(message)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := n.run(ctx, n.tool,
		"--app-name=keytyper",
		"--icon="+icon,
		"--urgency="+urgency,
		title,
		message,
	)
	if err != nil {
		return errors.Wrap(fmt.Errorf("%s failed: %w", n.tool, err), errors.ErrorTypeUI, "failed to send notification")
	}
	return nil
}

// SessionListener returns a session status listener that notifies when a
// session completes or fails.
func (n *Notifier) SessionListener() func(sequencer.Event) {
	return func(e sequencer.Event) {
		var err error
		switch e.Kind {
		case sequencer.EventCompleted:
			err = n.Notify("Typing finished", fmt.Sprintf("Typed %d characters", e.Chars))
		case sequencer.EventFailed:
			msg := "unknown error"
			if e.Err != nil {
				msg = e.Err.Error()
			}
			err = n.NotifyError("Typing failed", msg)
		default:
			return
		}
		if err != nil {
			n.log.Debug().Err(err).Msg("notification not delivered")
		}
	}
}

func runCommand(ctx context.Context, name string, args ...string) error {
	output, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w, output: %s", err, output)
	}
	return nil
}
