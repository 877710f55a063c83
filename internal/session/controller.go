// Package session owns the lifecycle of typing sessions: validation, the
// single live sequencer, and fan-out of status events.
package session

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"keytyper/internal/chunker"
	"keytyper/internal/logger"
	"keytyper/internal/sequencer"
	"keytyper/pkg/config"
	"keytyper/pkg/errors"
)

// Settings is everything a start request needs besides the text.
type Settings struct {
	Chunk             chunker.Options
	Timing            sequencer.Config
	RTLPasteThreshold time.Duration
}

// DefaultSettings mirrors config.DefaultConfig.
func DefaultSettings() Settings {
	s, _ := SettingsFromConfig(config.DefaultConfig())
	return s
}

// SettingsFromConfig converts persisted configuration into session settings.
func SettingsFromConfig(cfg *config.Config) (Settings, error) {
	key, mods, err := ParseShortcut(cfg.PasteShortcut)
	if err != nil {
		return Settings{}, errors.NewError(errors.ErrorTypeConfig, "invalid paste_shortcut", err)
	}
	return Settings{
		Chunk: chunker.Options{
			Script:  chunker.ScriptKind(cfg.ScriptKind),
			LTRUnit: chunker.UnitMode(cfg.LTRUnit),
			RTLUnit: chunker.UnitMode(cfg.RTLUnit),
		},
		Timing: sequencer.Config{
			StartDelay:      ms(cfg.StartDelayMs),
			InterUnitDelay:  ms(cfg.InterUnitDelayMs),
			ClipboardSettle: ms(cfg.ClipboardSettleMs),
			PasteSettle:     ms(cfg.ClipboardSettleMs),
			PasteKey:        key,
			PasteModifiers:  mods,
		},
		RTLPasteThreshold: ms(cfg.RTLPasteThresholdMs),
	}, nil
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// ParseShortcut splits "ctrl+shift+v" into the key and its modifiers.
func ParseShortcut(s string) (string, []string, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
		if parts[i] == "" {
			return "", nil, fmt.Errorf("%w: %q", errors.ErrBadShortcut, s)
		}
	}
	return parts[len(parts)-1], parts[:len(parts)-1], nil
}

// ParseSeconds parses a non-negative number of seconds typed by a user.
func ParseSeconds(field, s string) (time.Duration, error) {
	f, err := parseNumber(field, s)
	if err != nil {
		return 0, err
	}
	if f*1000 > config.MaxDelayMs {
		f = config.MaxDelayMs / 1000
	}
	return time.Duration(f * float64(time.Second)), nil
}

// ParseMillis parses a non-negative number of milliseconds typed by a user.
func ParseMillis(field, s string) (time.Duration, error) {
	f, err := parseNumber(field, s)
	if err != nil {
		return 0, err
	}
	if f > config.MaxDelayMs {
		f = config.MaxDelayMs
	}
	return time.Duration(f * float64(time.Millisecond)), nil
}

func parseNumber(field, s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, errors.Validation(errors.ErrInvalidNumber, field+" must be a number")
	}
	if f < 0 {
		return 0, errors.Validation(errors.ErrNegative, field+" must not be negative")
	}
	return f, nil
}

// Handle refers to one started session.
type Handle struct {
	ID  uint64
	seq *sequencer.Sequencer
}

// Done is closed when the session reaches a terminal state.
func (h *Handle) Done() <-chan struct{} { return h.seq.Done() }

// Wait blocks until the session ends and returns its failure, if any.
func (h *Handle) Wait(ctx context.Context) error { return h.seq.Wait(ctx) }

// Status returns the session snapshot.
func (h *Handle) Status() sequencer.Status { return h.seq.Status() }

// Controller guarantees at most one live session at a time.
type Controller struct {
	inj        sequencer.Injector
	clip       sequencer.Clipboard
	log        zerolog.Logger
	errHandler *errors.Handler
	events     *dispatcher

	mu      sync.Mutex
	current *Handle
	nextID  atomic.Uint64
}

// NewController creates a controller. errHandler may be nil.
func NewController(inj sequencer.Injector, clip sequencer.Clipboard, log zerolog.Logger, errHandler *errors.Handler) *Controller {
	return &Controller{
		inj:        inj,
		clip:       clip,
		log:        logger.Component(log, "session"),
		errHandler: errHandler,
		events:     newDispatcher(),
	}
}

// OnStatus registers a listener for status events. Listeners run in order on
// a dispatcher goroutine, never on the caller's or the worker's goroutine.
func (c *Controller) OnStatus(fn func(sequencer.Event)) {
	c.events.subscribe(fn)
}

// Start validates the request and launches a session. When a session is
// already live the call is ignored and the live handle is returned.
func (c *Controller) Start(ctx context.Context, text string, s Settings) (*Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil && c.current.seq.State().Active() {
		c.log.Debug().Uint64("session", c.current.ID).Msg("start ignored: session active")
		return c.current, nil
	}

	if text == "" {
		return nil, errors.Validation(errors.ErrEmptyText, "text is empty")
	}
	if err := s.Chunk.Validate(); err != nil {
		return nil, errors.Validation(err, "invalid typing mode")
	}
	t := s.Timing
	if t.StartDelay < 0 || t.InterUnitDelay < 0 || t.ClipboardSettle < 0 || t.PasteSettle < 0 {
		return nil, errors.Validation(errors.ErrNegative, "delays must not be negative")
	}

	opts := s.Chunk
	opts.RTLUnit = chunker.ResolveRTLUnit(opts.RTLUnit, t.InterUnitDelay, s.RTLPasteThreshold)
	plan := chunker.Chunk(text, opts)
	if len(plan.Units) == 0 {
		return nil, errors.Validation(errors.ErrEmptyText, "text has nothing to type")
	}

	id := c.nextID.Add(1)
	h := &Handle{ID: id}
	h.seq = sequencer.New(plan, t, c.inj, c.clip, func(e sequencer.Event) {
		c.handleEvent(id, e)
	})
	c.current = h

	c.log.Info().
		Uint64("session", id).
		Str("direction", plan.Direction.String()).
		Str("mode", string(plan.Mode)).
		Int("units", len(plan.Units)).
		Dur("start_delay", t.StartDelay).
		Msg("session starting")

	h.seq.Start(c.log.WithContext(context.WithoutCancel(ctx)))
	return h, nil
}

func (c *Controller) handleEvent(id uint64, e sequencer.Event) {
	if e.Kind == sequencer.EventFailed && c.errHandler != nil {
		c.errHandler.Handle(e.Err)
	}
	c.log.Debug().Uint64("session", id).Str("event", e.Kind.String()).Int("cursor", e.Cursor).Msg("status")
	c.events.enqueue(e)
}

// Pause toggles pause on the live session. It is a no-op without one.
func (c *Controller) Pause() bool {
	c.mu.Lock()
	h := c.current
	c.mu.Unlock()
	if h == nil {
		return false
	}
	return h.seq.TogglePause()
}

// Stop requests the live session to stop. It is a no-op without one.
func (c *Controller) Stop() {
	c.mu.Lock()
	h := c.current
	c.mu.Unlock()
	if h != nil {
		h.seq.Stop()
	}
}

// Status returns the latest session's snapshot, or an Idle status.
func (c *Controller) Status() sequencer.Status {
	c.mu.Lock()
	h := c.current
	c.mu.Unlock()
	if h == nil {
		return sequencer.Status{State: sequencer.StateIdle}
	}
	return h.seq.Status()
}

// Current returns the latest session handle, if any.
func (c *Controller) Current() *Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Close stops the live session and flushes pending events to listeners.
func (c *Controller) Close() {
	c.Stop()
	if h := c.Current(); h != nil {
		<-h.Done()
	}
	c.events.close()
}
