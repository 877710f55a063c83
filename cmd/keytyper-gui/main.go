package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"

	"keytyper/internal/cli"
	"keytyper/internal/hotkey"
	"keytyper/internal/ui"
)

var version = "1.0.0"

var opts cli.Options

func main() {
	root := &cobra.Command{
		Use:          "keytyper-gui",
		Short:        "keytyper window with global start, pause and stop hotkeys",
		Version:      version,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return run()
		},
	}
	root.Flags().StringVar(&opts.ConfigPath, "config", "", "config file (default $XDG_CONFIG_HOME/keytyper/config.json)")
	root.Flags().StringVar(&opts.LogLevel, "log-level", "", "log level: trace, debug, info, warn, error")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ka, err := cli.NewApp(opts)
	if err != nil {
		return err
	}
	log := ka.Log
	log.Info().Str("version", version).Msg("keytyper starting")

	ctrl, err := ka.NewController()
	if err != nil {
		return err
	}
	defer ctrl.Close()

	st := ka.Store()
	u := ui.New(app.NewWithID("io.keytyper.app"), ctrl, st, ka.Config, ka.Errors, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listener := hotkey.NewListener(log, ka.Errors)
	keys := ka.Config.Hotkeys
	for _, b := range []struct {
		name, combo string
		fn          func()
	}{
		{"start", keys.Start, func() { fyne.Do(u.Start) }},
		{"pause", keys.Pause, func() { fyne.Do(func() { u.TogglePause() }) }},
		{"stop", keys.Stop, func() { fyne.Do(u.Stop) }},
	} {
		if err := listener.Bind(b.name, b.combo, b.fn); err != nil {
			ka.Errors.Handle(err)
		}
	}
	if bound := listener.Bindings(); len(bound) > 0 {
		u.SetHotkeyHint("Hotkeys: " + strings.Join(bound, "  "))
		go func() {
			if err := listener.Run(ctx); err != nil {
				fyne.Do(func() { u.SetHotkeyHint("Hotkeys unavailable: " + err.Error()) })
			}
		}()
	}

	go func() {
		err := st.Watch(ctx, func() { fyne.Do(u.RefreshScripts) })
		if err != nil {
			log.Warn().Err(err).Str("path", st.Path()).Msg("snippet file not watched")
		}
	}()

	u.ShowAndRun()
	log.Info().Msg("shutting down")
	return nil
}
