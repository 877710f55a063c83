// Package cli wires keytyper's components for the command line and the GUI.
package cli

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"keytyper/internal/clipboard"
	"keytyper/internal/logger"
	"keytyper/internal/notify"
	"keytyper/internal/sequencer"
	"keytyper/internal/session"
	"keytyper/internal/store"
	"keytyper/internal/typing"
	"keytyper/internal/typing/robot"
	"keytyper/pkg/config"
	"keytyper/pkg/errors"
)

// App holds the loaded configuration and shared services.
type App struct {
	Config     *config.Config
	ConfigPath string
	Log        zerolog.Logger
	Errors     *errors.Handler

	store *store.Store
}

// Options override what NewApp reads from the environment.
type Options struct {
	ConfigPath string
	LogLevel   string
}

// NewApp loads the configuration and sets up logging.
func NewApp(opts Options) (*App, error) {
	path := opts.ConfigPath
	if path == "" {
		var err error
		if path, err = config.GetConfigPath(); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to locate config")
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to load config")
	}

	level := cfg.LogLevel
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	log := logger.New(logger.Config{Level: logger.ParseLevel(level), Format: cfg.LogFormat}, os.Stderr)
	logger.SetDefault(log)

	log.Debug().Str("config", path).Str("backend", cfg.Backend).Msg("configuration loaded")

	return &App{
		Config:     cfg,
		ConfigPath: path,
		Log:        log,
		Errors:     errors.NewHandler(log),
	}, nil
}

// Store opens the snippet store on first use.
func (a *App) Store() *store.Store {
	if a.store == nil {
		path := a.Config.ScriptsPath
		if path == "" {
			path = filepath.Join(filepath.Dir(a.ConfigPath), "scripts.json")
		}
		a.store = store.Open(path, a.Log)
	}
	return a.store
}

// Desktop builds the injector and clipboard for the configured backend.
func (a *App) Desktop() (sequencer.Injector, sequencer.Clipboard, error) {
	if a.Config.Backend == config.BackendRobotgo {
		b := robot.New(a.Log)
		return b, b, nil
	}
	inj, err := typing.NewSystem(a.Config.Backend, a.Log)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrorTypeInjection, "no input backend available")
	}
	a.Log.Info().Str("tool", inj.Tool()).Msg("input backend ready")
	return inj, clipboard.NewSystem(a.Log), nil
}

// NewController builds a session controller on the configured backend and
// attaches desktop notifications when they are enabled.
func (a *App) NewController() (*session.Controller, error) {
	inj, clip, err := a.Desktop()
	if err != nil {
		return nil, err
	}
	ctrl := session.NewController(inj, clip, a.Log, a.Errors)
	if a.Config.Notifications {
		n := notify.NewNotifier(a.Log)
		if err := n.Initialize(); err != nil {
			a.Log.Warn().Err(err).Msg("notifications disabled")
		} else {
			ctrl.OnStatus(n.SessionListener())
		}
	}
	return ctrl, nil
}
