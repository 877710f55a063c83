// Package sequencer drains a chunked plan into key injections and clipboard
// pastes on a single worker goroutine, with pacing, pause and stop.
package sequencer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"keytyper/internal/chunker"
	"keytyper/internal/logger"
	kterrors "keytyper/pkg/errors"
)

// Injector delivers input events to the focused window.
type Injector interface {
	TypeText(ctx context.Context, text string) error
	KeyTap(ctx context.Context, key string) error
	KeyCombo(ctx context.Context, key string, modifiers ...string) error
}

// Clipboard reads and writes the system clipboard.
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
	ReadText(ctx context.Context) (string, error)
}

// Config is the pacing part of a typing configuration, snapshotted at start.
type Config struct {
	StartDelay      time.Duration
	InterUnitDelay  time.Duration
	ClipboardSettle time.Duration
	// PasteSettle is the least time waited after a whole-text paste. The
	// actual wait is five inter-unit delays when that is longer.
	PasteSettle    time.Duration
	PasteKey       string
	PasteModifiers []string
}

// DefaultConfig returns three seconds of countdown and ctrl+v pastes.
func DefaultConfig() Config {
	return Config{
		StartDelay:      3 * time.Second,
		InterUnitDelay:  50 * time.Millisecond,
		ClipboardSettle: 50 * time.Millisecond,
		PasteSettle:     50 * time.Millisecond,
		PasteKey:        "v",
		PasteModifiers:  []string{"ctrl"},
	}
}

var errStopped = errors.New("stopped")

func (c Config) wholePasteSettle() time.Duration {
	if d := 5 * c.InterUnitDelay; d > c.PasteSettle {
		return d
	}
	return c.PasteSettle
}

// Sequencer is one typing session. It is used once and then discarded.
type Sequencer struct {
	plan chunker.Plan
	cfg  Config
	inj  Injector
	clip Clipboard
	emit func(Event)

	mu     sync.Mutex
	resume *sync.Cond
	state  State
	stop   atomic.Bool
	cancel context.CancelFunc

	cursor atomic.Int64
	chars  atomic.Int64

	done chan struct{}
	err  error
}

// New creates an idle sequencer. emit may be nil.
func New(plan chunker.Plan, cfg Config, inj Injector, clip Clipboard, emit func(Event)) *Sequencer {
	if emit == nil {
		emit = func(Event) {}
	}
	if cfg.PasteKey == "" {
		cfg.PasteKey = "v"
		cfg.PasteModifiers = []string{"ctrl"}
	}
	s := &Sequencer{
		plan: plan,
		cfg:  cfg,
		inj:  inj,
		clip: clip,
		emit: emit,
		done: make(chan struct{}),
	}
	s.resume = sync.NewCond(&s.mu)
	return s
}

// Start moves Idle to CountingDown and launches the worker. It returns false
// if the sequencer was already started.
func (s *Sequencer) Start(ctx context.Context) bool {
	s.mu.Lock()
	if !s.setStateLocked(StateCountingDown) {
		s.mu.Unlock()
		return false
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	go s.run(ctx)
	return true
}

// TogglePause switches between Running and Paused. It has no effect in any
// other state and reports whether a toggle happened.
func (s *Sequencer) TogglePause() bool {
	s.mu.Lock()
	var kind EventKind
	switch s.state {
	case StateRunning:
		s.state = StatePaused
		kind = EventPaused
	case StatePaused:
		s.state = StateRunning
		kind = EventResumed
		s.resume.Broadcast()
	default:
		s.mu.Unlock()
		return false
	}
	st := s.statusLocked()
	s.mu.Unlock()

	s.emit(Event{Kind: kind, Status: st})
	return true
}

// Stop requests cancellation. The worker observes it at unit or tick
// granularity; an injection already in flight is cancelled through its
// context.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Active() {
		return
	}
	s.stop.Store(true)
	if s.cancel != nil {
		s.cancel()
	}
	s.resume.Broadcast()
}

// Done is closed when the worker has reached a terminal state.
func (s *Sequencer) Done() <-chan struct{} { return s.done }

// Wait blocks until the worker finishes or ctx ends, and returns the failure
// cause, if any.
func (s *Sequencer) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns a snapshot.
func (s *Sequencer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

// State returns the current state.
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Sequencer) statusLocked() Status {
	return Status{
		State:      s.state,
		Cursor:     int(s.cursor.Load()),
		TotalUnits: len(s.plan.Units),
		Chars:      int(s.chars.Load()),
		TotalChars: s.plan.TotalChars,
	}
}

func (s *Sequencer) setStateLocked(to State) bool {
	if !canTransition(s.state, to) {
		return false
	}
	s.state = to
	return true
}

func (s *Sequencer) run(ctx context.Context) {
	ctx = logger.WithComponent(ctx, "sequencer")
	log := logger.FromContext(ctx)
	defer close(s.done)
	defer s.cancel()

	if err := s.countdown(ctx); err != nil {
		s.finish(StateStopped, nil)
		log.Info().Msg("stopped during countdown")
		return
	}

	s.mu.Lock()
	if s.stop.Load() || !s.setStateLocked(StateRunning) {
		s.mu.Unlock()
		s.finish(StateStopped, nil)
		return
	}
	st := s.statusLocked()
	s.mu.Unlock()
	s.emit(Event{Kind: EventStarted, Status: st})

	log.Debug().
		Str("direction", s.plan.Direction.String()).
		Str("mode", string(s.plan.Mode)).
		Int("units", len(s.plan.Units)).
		Msg("typing started")

	var err error
	if s.plan.WholePaste() {
		err = s.pasteWhole(ctx)
	} else {
		err = s.typeUnits(ctx)
	}

	switch {
	case err == nil:
		s.finish(StateCompleted, nil)
		log.Info().Int("units", len(s.plan.Units)).Msg("typing completed")
	case errors.Is(err, errStopped) || s.stop.Load():
		s.finish(StateStopped, nil)
		log.Info().Int("cursor", int(s.cursor.Load())).Msg("typing stopped")
	default:
		s.finish(StateFailed, err)
		log.Error().Err(err).Int("cursor", int(s.cursor.Load())).Msg("typing failed")
	}
}

func (s *Sequencer) finish(to State, err error) {
	s.mu.Lock()
	if !s.setStateLocked(to) {
		// CountingDown can only end in Stopped.
		s.state = StateStopped
		to = StateStopped
	}
	s.err = err
	st := s.statusLocked()
	s.mu.Unlock()

	kind := EventCompleted
	switch to {
	case StateStopped:
		kind = EventStopped
	case StateFailed:
		kind = EventFailed
	}
	s.emit(Event{Kind: kind, Status: st, Err: err})
}

func (s *Sequencer) countdown(ctx context.Context) error {
	remaining := s.cfg.StartDelay
	for remaining > 0 {
		if s.stop.Load() {
			return errStopped
		}
		secs := int((remaining + time.Second - 1) / time.Second)
		s.emit(Event{Kind: EventCountdown, Status: s.Status(), Remaining: secs})

		step := remaining % time.Second
		if step == 0 {
			step = time.Second
		}
		if err := sleep(ctx, step); err != nil {
			return errStopped
		}
		remaining -= step
	}
	if s.stop.Load() {
		return errStopped
	}
	return nil
}

// waitIfPaused blocks while Paused and returns errStopped once a stop was
// requested.
func (s *Sequencer) waitIfPaused() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.state == StatePaused && !s.stop.Load() {
		s.resume.Wait()
	}
	if s.stop.Load() {
		return errStopped
	}
	return nil
}

func (s *Sequencer) typeUnits(ctx context.Context) error {
	rtl := s.plan.Direction == chunker.RTL

	for i, u := range s.plan.Units {
		if err := s.waitIfPaused(); err != nil {
			return err
		}

		if err := s.dispatch(ctx, u, rtl); err != nil {
			if ctx.Err() != nil {
				return errStopped
			}
			return err
		}

		s.cursor.Add(1)
		s.chars.Add(int64(u.Chars))
		s.emit(Event{Kind: EventProgress, Status: s.Status()})

		if i < len(s.plan.Units)-1 {
			if err := sleep(ctx, s.cfg.InterUnitDelay); err != nil {
				return errStopped
			}
		}
	}
	return nil
}

func (s *Sequencer) dispatch(ctx context.Context, u chunker.Unit, rtl bool) error {
	switch {
	case u.Silent:
		return nil
	case rtl:
		if err := s.paste(ctx, u.Content); err != nil {
			return err
		}
	case u.Key != "":
		if err := s.inj.KeyTap(ctx, u.Key); err != nil {
			return kterrors.Wrap(err, kterrors.ErrorTypeInjection, "key "+u.Key)
		}
	default:
		if err := s.inj.TypeText(ctx, u.Content); err != nil {
			return kterrors.Wrap(err, kterrors.ErrorTypeInjection, "type text")
		}
	}

	if u.Delimiter {
		if err := s.inj.KeyTap(ctx, chunker.KeySpace); err != nil {
			return kterrors.Wrap(err, kterrors.ErrorTypeInjection, "key space")
		}
	}
	return nil
}

// paste writes text to the clipboard, waits for it to settle and sends the
// paste shortcut.
func (s *Sequencer) paste(ctx context.Context, text string) error {
	if err := s.clip.WriteText(ctx, text); err != nil {
		return kterrors.Wrap(err, kterrors.ErrorTypeClipboard, "write clipboard")
	}
	if err := sleep(ctx, s.cfg.ClipboardSettle); err != nil {
		return errStopped
	}
	if err := s.inj.KeyCombo(ctx, s.cfg.PasteKey, s.cfg.PasteModifiers...); err != nil {
		return kterrors.Wrap(err, kterrors.ErrorTypeClipboard, "paste")
	}
	return nil
}

func (s *Sequencer) pasteWhole(ctx context.Context) error {
	if len(s.plan.Units) == 0 {
		return nil
	}
	if err := s.waitIfPaused(); err != nil {
		return err
	}
	if err := s.paste(ctx, s.plan.Units[0].Content); err != nil {
		if ctx.Err() != nil {
			return errStopped
		}
		return err
	}

	if err := sleep(ctx, s.cfg.wholePasteSettle()); err != nil {
		return errStopped
	}

	s.cursor.Store(1)
	s.chars.Store(int64(s.plan.TotalChars))
	s.emit(Event{Kind: EventProgress, Status: s.Status()})
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
