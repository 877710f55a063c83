package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"keytyper/internal/chunker"
	"keytyper/internal/hotkey"
	"keytyper/internal/sequencer"
	"keytyper/internal/session"
	"keytyper/internal/store"
	"keytyper/pkg/config"
	"keytyper/pkg/errors"
)

// typeOptions are the flags of the type command.
type typeOptions struct {
	file      string
	stdin     bool
	script    string
	kind      string
	ltrUnit   string
	rtlUnit   string
	delay     time.Duration
	interval  time.Duration
	backend   string
	noHotkeys bool
	quiet     bool
}

var typeOpts typeOptions

var typeCmd = &cobra.Command{
	Use:   "type [text...]",
	Short: "Type text into the focused window",
	Long: `Type text into the focused window after a countdown.

The text comes from the arguments, --file, --stdin or a saved snippet
(--script). Switch to the target window during the countdown.

Examples:
  keytyper type "hello world"
  keytyper type --delay 5s --interval 120ms --ltr-unit word "hello world"
  keytyper type --script greeting
  echo "مرحبا بكم" | keytyper type --stdin --rtl-unit paste`,
	RunE: runType,
}

func init() {
	rootCmd.AddCommand(typeCmd)
	f := typeCmd.Flags()
	f.StringVarP(&typeOpts.file, "file", "f", "", "read the text from a file")
	f.BoolVar(&typeOpts.stdin, "stdin", false, "read the text from standard input")
	f.StringVarP(&typeOpts.script, "script", "s", "", "type a saved snippet")
	f.StringVar(&typeOpts.kind, "script-kind", "", "text direction: auto, ltr or rtl")
	f.StringVar(&typeOpts.ltrUnit, "ltr-unit", "", "unit for left-to-right text: character or word")
	f.StringVar(&typeOpts.rtlUnit, "rtl-unit", "", "unit for right-to-left text: character, word, paste or auto")
	f.DurationVar(&typeOpts.delay, "delay", 0, "countdown before typing starts")
	f.DurationVar(&typeOpts.interval, "interval", 0, "pause between units")
	f.StringVar(&typeOpts.backend, "backend", "", "input backend: auto, xdotool, wtype, ydotool or robotgo")
	f.BoolVar(&typeOpts.noHotkeys, "no-hotkeys", false, "do not register the pause and stop hotkeys")
	f.BoolVarP(&typeOpts.quiet, "quiet", "q", false, "do not print progress")
}

func runType(cmd *cobra.Command, args []string) error {
	app := GetApp()
	if app == nil {
		return fmt.Errorf("app not initialized")
	}

	text, err := typeOpts.readText(args, cmd.InOrStdin(), app.Store())
	if err != nil {
		return err
	}

	if typeOpts.backend != "" {
		app.Config.Backend = typeOpts.backend
		if err := app.Config.Validate(); err != nil {
			return errors.Validation(err, "invalid --backend")
		}
	}
	settings, err := session.SettingsFromConfig(app.Config)
	if err != nil {
		return err
	}
	typeOpts.apply(cmd, &settings)

	ctrl, err := app.NewController()
	if err != nil {
		return err
	}
	defer ctrl.Close()

	if !typeOpts.quiet {
		ctrl.OnStatus(progressPrinter(cmd.ErrOrStderr()))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h, err := ctrl.Start(ctx, text, settings)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer cancel()
		return h.Wait(context.Background())
	})
	g.Go(func() error {
		<-gctx.Done()
		ctrl.Stop()
		return nil
	})
	if !typeOpts.noHotkeys {
		listener := hotkey.NewListener(app.Log, app.Errors)
		if err := bindSessionHotkeys(listener, app.Config.Hotkeys, ctrl); err != nil {
			return err
		}
		g.Go(func() error {
			// Without a display server the session still runs; only the
			// hotkeys are lost.
			if err := listener.Run(gctx); err != nil {
				app.Log.Warn().Err(err).Msg("hotkeys unavailable")
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if st := h.Status(); st.State == sequencer.StateStopped {
		fmt.Fprintf(cmd.ErrOrStderr(), "stopped after %d of %d characters\n", st.Chars, st.TotalChars)
	}
	return nil
}

// bindSessionHotkeys binds pause and stop. Start is bound by the GUI only.
func bindSessionHotkeys(l *hotkey.Listener, keys config.HotkeyConfig, ctrl *session.Controller) error {
	if err := l.Bind("pause", keys.Pause, func() { ctrl.Pause() }); err != nil {
		return err
	}
	return l.Bind("stop", keys.Stop, ctrl.Stop)
}

// readText picks exactly one text source.
func (o typeOptions) readText(args []string, stdin io.Reader, st *store.Store) (string, error) {
	sources := 0
	for _, set := range []bool{len(args) > 0, o.file != "", o.stdin, o.script != ""} {
		if set {
			sources++
		}
	}
	switch {
	case sources == 0:
		return "", errors.Validation(errors.ErrEmptyText, "no text given: pass text, --file, --stdin or --script")
	case sources > 1:
		return "", errors.Validation(fmt.Errorf("conflicting text sources"), "use only one of text arguments, --file, --stdin or --script")
	}

	switch {
	case o.file != "":
		data, err := os.ReadFile(o.file)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", o.file, err)
		}
		return string(data), nil
	case o.stdin:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		// A piped line usually ends with a newline nobody meant to type.
		return strings.TrimSuffix(string(data), "\n"), nil
	case o.script != "":
		return st.Get(o.script)
	default:
		return strings.Join(args, " "), nil
	}
}

// apply overrides settings with the flags that were set explicitly.
func (o typeOptions) apply(cmd *cobra.Command, s *session.Settings) {
	f := cmd.Flags()
	if f.Changed("script-kind") {
		s.Chunk.Script = chunker.ScriptKind(o.kind)
	}
	if f.Changed("ltr-unit") {
		s.Chunk.LTRUnit = chunker.UnitMode(o.ltrUnit)
	}
	if f.Changed("rtl-unit") {
		s.Chunk.RTLUnit = chunker.UnitMode(o.rtlUnit)
	}
	if f.Changed("delay") {
		s.Timing.StartDelay = clampDelay(o.delay)
	}
	if f.Changed("interval") {
		s.Timing.InterUnitDelay = clampDelay(o.interval)
	}
}

func clampDelay(d time.Duration) time.Duration {
	if limit := config.MaxDelayMs * time.Millisecond; d > limit {
		return limit
	}
	return d
}

// progressPrinter writes one line per visible state change.
func progressPrinter(w io.Writer) func(sequencer.Event) {
	return func(e sequencer.Event) {
		switch e.Kind {
		case sequencer.EventCountdown:
			fmt.Fprintf(w, "starting in %d...\n", e.Remaining)
		case sequencer.EventStarted:
			fmt.Fprintf(w, "typing %d units\n", e.TotalUnits)
		case sequencer.EventPaused:
			fmt.Fprintf(w, "paused at %d/%d\n", e.Cursor, e.TotalUnits)
		case sequencer.EventResumed:
			fmt.Fprintln(w, "resumed")
		case sequencer.EventCompleted:
			fmt.Fprintf(w, "done, typed %d characters\n", e.Chars)
		case sequencer.EventFailed:
			fmt.Fprintf(w, "failed at %d/%d: %v\n", e.Cursor, e.TotalUnits, e.Err)
		}
	}
}
