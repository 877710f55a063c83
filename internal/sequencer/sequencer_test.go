package sequencer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keytyper/internal/chunker"
	"keytyper/internal/sequencer/fake"
	kterrors "keytyper/pkg/errors"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

func (r *recorder) last() Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func fastConfig() Config {
	return Config{
		InterUnitDelay:  time.Millisecond,
		ClipboardSettle: time.Millisecond,
		PasteSettle:     time.Millisecond,
		PasteKey:        "v",
		PasteModifiers:  []string{"ctrl"},
	}
}

func run(t *testing.T, text string, opts chunker.Options, cfg Config, d *fake.Desktop) (*Sequencer, *recorder) {
	t.Helper()
	rec := &recorder{}
	s := New(chunker.Chunk(text, opts), cfg, d, d, rec.emit)
	require.True(t, s.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.Wait(ctx)
	require.True(t, s.State().Terminal(), "sequencer did not finish: %s", s.State())
	return s, rec
}

func TestCharacterModeLTR(t *testing.T) {
	d := fake.New()
	opts := chunker.Options{Script: chunker.ScriptAuto, LTRUnit: chunker.UnitCharacter, RTLUnit: chunker.UnitCharacter}
	s, rec := run(t, "hi there\n", opts, fastConfig(), d)

	assert.Equal(t, StateCompleted, s.State())
	assert.Equal(t, "hi there\n", d.Typed())
	assert.Empty(t, d.ClipboardWrites())

	st := s.Status()
	assert.Equal(t, 9, st.Cursor)
	assert.Equal(t, 9, st.TotalUnits)
	assert.Equal(t, 9, st.Chars)
	assert.Equal(t, 1.0, st.Percent())

	calls := d.Calls()
	assert.Equal(t, fake.Call{Op: "key", Text: "space"}, calls[2])
	assert.Equal(t, fake.Call{Op: "key", Text: "enter"}, calls[8])

	kinds := rec.kinds()
	assert.Equal(t, EventStarted, kinds[0])
	assert.Equal(t, EventCompleted, kinds[len(kinds)-1])
}

func TestWordModeLTR(t *testing.T) {
	d := fake.New()
	opts := chunker.Options{Script: chunker.ScriptLTR, LTRUnit: chunker.UnitWord, RTLUnit: chunker.UnitWord}
	s, _ := run(t, "one  two\tthree", opts, fastConfig(), d)

	assert.Equal(t, StateCompleted, s.State())
	assert.Equal(t, []fake.Call{
		{Op: "type", Text: "one"}, {Op: "key", Text: "space"},
		{Op: "type", Text: "two"}, {Op: "key", Text: "space"},
		{Op: "type", Text: "three"},
	}, d.Calls())
	assert.Equal(t, 3, s.Status().Cursor)
	assert.Equal(t, len("one two three"), s.Status().Chars)
}

func TestRTLWordPaste(t *testing.T) {
	d := fake.New()
	opts := chunker.Options{Script: chunker.ScriptAuto, LTRUnit: chunker.UnitCharacter, RTLUnit: chunker.UnitWord}
	s, _ := run(t, "مرحبا بكم", opts, fastConfig(), d)

	assert.Equal(t, StateCompleted, s.State())
	assert.Equal(t, []string{"مرحبا", "بكم"}, d.ClipboardWrites())
	assert.Equal(t, []fake.Call{
		{Op: "combo", Text: "ctrl+v"}, {Op: "key", Text: "space"},
		{Op: "combo", Text: "ctrl+v"},
	}, d.Calls())
	assert.Equal(t, "مرحبا بكم", d.Typed())
}

func TestRTLCharacterModePastesWhitespace(t *testing.T) {
	d := fake.New()
	opts := chunker.Options{Script: chunker.ScriptRTL, LTRUnit: chunker.UnitCharacter, RTLUnit: chunker.UnitCharacter}
	s, _ := run(t, "ب ب\r\n", opts, fastConfig(), d)

	assert.Equal(t, StateCompleted, s.State())
	assert.Equal(t, []string{"ب", " ", "ب", "\n"}, d.ClipboardWrites())
	for _, c := range d.Calls() {
		assert.Equal(t, fake.Call{Op: "combo", Text: "ctrl+v"}, c)
	}
	assert.Len(t, d.Calls(), 4)
}

func TestWholePasteSettleFollowsPacing(t *testing.T) {
	cfg := Config{PasteSettle: 50 * time.Millisecond, InterUnitDelay: 5 * time.Millisecond}
	assert.Equal(t, 50*time.Millisecond, cfg.wholePasteSettle())

	cfg.InterUnitDelay = 40 * time.Millisecond
	assert.Equal(t, 200*time.Millisecond, cfg.wholePasteSettle())
}

func TestRTLWholePaste(t *testing.T) {
	d := fake.New()
	text := "مرحبا\nبكم"
	opts := chunker.Options{Script: chunker.ScriptAuto, LTRUnit: chunker.UnitCharacter, RTLUnit: chunker.UnitPaste}
	s, rec := run(t, text, opts, fastConfig(), d)

	assert.Equal(t, StateCompleted, s.State())
	assert.Equal(t, []string{text}, d.ClipboardWrites())
	assert.Equal(t, []fake.Call{{Op: "combo", Text: "ctrl+v"}}, d.Calls())
	assert.Equal(t, 1, s.Status().Cursor)
	assert.Equal(t, 1.0, rec.last().Percent())
}

func TestCustomPasteShortcut(t *testing.T) {
	d := fake.New()
	cfg := fastConfig()
	cfg.PasteModifiers = []string{"cmd"}
	opts := chunker.Options{Script: chunker.ScriptRTL, LTRUnit: chunker.UnitCharacter, RTLUnit: chunker.UnitPaste}
	run(t, "abc", opts, cfg, d)

	assert.Equal(t, []fake.Call{{Op: "combo", Text: "cmd+v"}}, d.Calls())
}

func TestCountdownEvents(t *testing.T) {
	d := fake.New()
	cfg := fastConfig()
	cfg.StartDelay = 1500 * time.Millisecond
	opts := chunker.Options{Script: chunker.ScriptAuto, LTRUnit: chunker.UnitCharacter, RTLUnit: chunker.UnitCharacter}
	s, rec := run(t, "a", opts, cfg, d)

	assert.Equal(t, StateCompleted, s.State())
	var remaining []int
	rec.mu.Lock()
	for _, e := range rec.events {
		if e.Kind == EventCountdown {
			remaining = append(remaining, e.Remaining)
		}
	}
	rec.mu.Unlock()
	assert.Equal(t, []int{2, 1}, remaining)
}

func TestStopDuringCountdown(t *testing.T) {
	d := fake.New()
	cfg := fastConfig()
	cfg.StartDelay = 3 * time.Second
	rec := &recorder{}
	s := New(chunker.Chunk("hello", chunker.Options{Script: chunker.ScriptAuto, LTRUnit: chunker.UnitCharacter, RTLUnit: chunker.UnitCharacter}), cfg, d, d, rec.emit)

	require.True(t, s.Start(context.Background()))
	s.Stop()

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("stop did not interrupt the countdown")
	}

	assert.Equal(t, StateStopped, s.State())
	assert.Empty(t, d.Calls())
	assert.NotContains(t, rec.kinds(), EventStarted)
	assert.Equal(t, EventStopped, rec.last().Kind)
}

func TestPauseResume(t *testing.T) {
	d := fake.New()
	cfg := fastConfig()
	cfg.InterUnitDelay = 10 * time.Millisecond
	text := "abcdefghijklmnopqrst"
	rec := &recorder{}
	s := New(chunker.Chunk(text, chunker.Options{Script: chunker.ScriptAuto, LTRUnit: chunker.UnitCharacter, RTLUnit: chunker.UnitCharacter}), cfg, d, d, rec.emit)
	require.True(t, s.Start(context.Background()))

	require.Eventually(t, func() bool { return s.Status().Cursor >= 3 }, 2*time.Second, time.Millisecond)
	require.True(t, s.TogglePause())
	assert.Equal(t, StatePaused, s.State())

	// Let an in-flight unit land, then the cursor must hold still.
	time.Sleep(50 * time.Millisecond)
	paused := s.Status().Cursor
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, paused, s.Status().Cursor)
	assert.Less(t, paused, len(text))

	require.True(t, s.TogglePause())
	require.NoError(t, s.Wait(context.Background()))

	assert.Equal(t, StateCompleted, s.State())
	assert.Equal(t, len(text), s.Status().Cursor)
	assert.Equal(t, text, d.Typed())
	assert.Contains(t, rec.kinds(), EventPaused)
	assert.Contains(t, rec.kinds(), EventResumed)
}

func TestStopWhilePaused(t *testing.T) {
	d := fake.New()
	cfg := fastConfig()
	cfg.InterUnitDelay = 10 * time.Millisecond
	s := New(chunker.Chunk("abcdefghij", chunker.Options{Script: chunker.ScriptAuto, LTRUnit: chunker.UnitCharacter, RTLUnit: chunker.UnitCharacter}), cfg, d, d, nil)
	require.True(t, s.Start(context.Background()))

	require.Eventually(t, func() bool { return s.Status().Cursor >= 1 }, 2*time.Second, time.Millisecond)
	require.True(t, s.TogglePause())
	s.Stop()

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("stop did not wake the paused worker")
	}
	assert.Equal(t, StateStopped, s.State())
	assert.Less(t, s.Status().Cursor, 10)
	assert.False(t, s.TogglePause(), "pause must not apply to a stopped session")
}

func TestInjectionFailure(t *testing.T) {
	d := fake.New()
	d.FailAfter = 3
	d.FailErr = errors.New("xdotool: exit status 1")
	opts := chunker.Options{Script: chunker.ScriptAuto, LTRUnit: chunker.UnitCharacter, RTLUnit: chunker.UnitCharacter}
	s, rec := run(t, "abcdef", opts, fastConfig(), d)

	assert.Equal(t, StateFailed, s.State())
	assert.Equal(t, 2, s.Status().Cursor)

	last := rec.last()
	assert.Equal(t, EventFailed, last.Kind)
	require.Error(t, last.Err)
	assert.True(t, kterrors.IsType(last.Err, kterrors.ErrorTypeInjection))
	assert.ErrorIs(t, last.Err, d.FailErr)
}

func TestClipboardFailure(t *testing.T) {
	d := fake.New()
	d.ClipboardErr = errors.New("no clipboard tool available")
	opts := chunker.Options{Script: chunker.ScriptRTL, LTRUnit: chunker.UnitCharacter, RTLUnit: chunker.UnitWord}
	s, _ := run(t, "a b", opts, fastConfig(), d)

	assert.Equal(t, StateFailed, s.State())
	err := s.Wait(context.Background())
	assert.True(t, kterrors.IsType(err, kterrors.ErrorTypeClipboard))
	assert.Empty(t, d.Calls())
}

func TestStartOnlyOnce(t *testing.T) {
	d := fake.New()
	s := New(chunker.Chunk("a", chunker.Options{Script: chunker.ScriptAuto, LTRUnit: chunker.UnitCharacter, RTLUnit: chunker.UnitCharacter}), fastConfig(), d, d, nil)
	require.True(t, s.Start(context.Background()))
	assert.False(t, s.Start(context.Background()))
	require.NoError(t, s.Wait(context.Background()))
	assert.False(t, s.Start(context.Background()))
}

func TestTogglePauseIgnoredWhenIdle(t *testing.T) {
	s := New(chunker.Plan{}, fastConfig(), fake.New(), fake.New(), nil)
	assert.False(t, s.TogglePause())
	s.Stop()
	assert.Equal(t, StateIdle, s.State())
}

func TestStateTransitions(t *testing.T) {
	assert.True(t, canTransition(StateIdle, StateCountingDown))
	assert.False(t, canTransition(StateIdle, StateRunning))
	assert.True(t, canTransition(StateCountingDown, StateStopped))
	assert.False(t, canTransition(StateCountingDown, StateCompleted))
	assert.True(t, canTransition(StatePaused, StateRunning))
	assert.False(t, canTransition(StateCompleted, StateRunning))
	assert.False(t, canTransition(StateStopped, StateCountingDown))
	assert.Equal(t, "counting-down", StateCountingDown.String())
}
