// Package hotkey provides global hotkey listening functionality for keytyper
package hotkey

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.design/x/hotkey"
	"golang.org/x/sync/errgroup"

	"keytyper/internal/logger"
	"keytyper/pkg/errors"
)

type action struct {
	name     string
	binding  Binding
	callback func()
}

// Listener registers global hotkeys and runs callbacks on key press
type Listener struct {
	errHandler *errors.Handler
	log        zerolog.Logger

	mu        sync.Mutex
	actions   []action
	isRunning bool
}

// NewListener creates a new hotkey listener. errHandler may be nil.
func NewListener(log zerolog.Logger, errHandler *errors.Handler) *Listener {
	return &Listener{
		errHandler: errHandler,
		log:        logger.Component(log, "hotkey"),
	}
}

// Bind adds a named action triggered by combo. Empty combos are skipped.
func (l *Listener) Bind(name, combo string, callback func()) error {
	if combo == "" {
		return nil
	}
	b, err := ParseBinding(combo)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeHotkey, "invalid "+name+" hotkey")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, a := range l.actions {
		if a.binding.String() == b.String() {
			return errors.NewError(errors.ErrorTypeHotkey, fmt.Sprintf("%s hotkey %s is already bound to %s", name, b, a.name), nil)
		}
	}
	l.actions = append(l.actions, action{name: name, binding: b, callback: callback})
	return nil
}

// Bindings returns "name=combo" for every bound action.
func (l *Listener) Bindings() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.actions))
	for i, a := range l.actions {
		out[i] = a.name + "=" + a.binding.String()
	}
	return out
}

// Run registers every bound hotkey and dispatches presses until ctx is done.
// Registration failures are returned; all hotkeys are unregistered on exit.
func (l *Listener) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.isRunning {
		l.mu.Unlock()
		return errors.NewError(errors.ErrorTypeHotkey, "hotkey listener already running", nil)
	}
	l.isRunning = true
	actions := append([]action(nil), l.actions...)
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.isRunning = false
		l.mu.Unlock()
	}()

	registered := make([]*hotkey.Hotkey, 0, len(actions))
	defer func() {
		for _, hk := range registered {
			if err := hk.Unregister(); err != nil {
				l.log.Debug().Err(err).Msg("failed to unregister hotkey")
			}
		}
		l.log.Debug().Msg("hotkey listener stopped")
	}()

	for _, a := range actions {
		mods, key := a.binding.resolve()
		hk := hotkey.New(mods, key)
		if err := hk.Register(); err != nil {
			err = errors.Wrap(err, errors.ErrorTypeHotkey, fmt.Sprintf("failed to register %s hotkey %s", a.name, a.binding))
			if l.errHandler != nil {
				l.errHandler.Handle(err)
			}
			return err
		}
		registered = append(registered, hk)
		l.log.Info().Str("action", a.name).Str("keys", a.binding.String()).Msg("hotkey registered")
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, hk := range registered {
		a := actions[i]
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-hk.Keydown():
					l.log.Debug().Str("action", a.name).Msg("hotkey pressed")
					l.fire(a)
				case <-hk.Keyup():
				}
			}
		})
	}
	return g.Wait()
}

// IsRunning returns whether the listener is running
func (l *Listener) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.isRunning
}

func (l *Listener) fire(a action) {
	if a.callback != nil {
		go a.callback()
	}
}
