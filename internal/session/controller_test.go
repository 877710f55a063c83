package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keytyper/internal/chunker"
	"keytyper/internal/sequencer"
	"keytyper/internal/sequencer/fake"
	"keytyper/pkg/config"
	kterrors "keytyper/pkg/errors"
)

func fastSettings() Settings {
	return Settings{
		Chunk: chunker.Options{Script: chunker.ScriptAuto, LTRUnit: chunker.UnitCharacter, RTLUnit: chunker.UnitWord},
		Timing: sequencer.Config{
			InterUnitDelay:  time.Millisecond,
			ClipboardSettle: time.Millisecond,
			PasteSettle:     time.Millisecond,
			PasteKey:        "v",
			PasteModifiers:  []string{"ctrl"},
		},
		RTLPasteThreshold: 20 * time.Millisecond,
	}
}

func newController(d *fake.Desktop) *Controller {
	return NewController(d, d, zerolog.Nop(), nil)
}

func TestStartEmptyTextIsValidationError(t *testing.T) {
	d := fake.New()
	c := newController(d)
	defer c.Close()

	h, err := c.Start(context.Background(), "", fastSettings())
	require.Error(t, err)
	assert.Nil(t, h)
	assert.True(t, kterrors.IsType(err, kterrors.ErrorTypeValidation))
	assert.ErrorIs(t, err, kterrors.ErrEmptyText)
	assert.Equal(t, sequencer.StateIdle, c.Status().State)
	assert.Nil(t, c.Current())
}

func TestStartRejectsInvalidSettings(t *testing.T) {
	c := newController(fake.New())
	defer c.Close()

	s := fastSettings()
	s.Timing.InterUnitDelay = -time.Millisecond
	_, err := c.Start(context.Background(), "abc", s)
	assert.True(t, kterrors.IsType(err, kterrors.ErrorTypeValidation))

	s = fastSettings()
	s.Chunk.LTRUnit = chunker.UnitPaste
	_, err = c.Start(context.Background(), "abc", s)
	assert.True(t, kterrors.IsType(err, kterrors.ErrorTypeValidation))

	// Whitespace-only text has no words to type.
	s = fastSettings()
	s.Chunk.LTRUnit = chunker.UnitWord
	_, err = c.Start(context.Background(), " \n\t", s)
	assert.True(t, kterrors.IsType(err, kterrors.ErrorTypeValidation))
	assert.Equal(t, sequencer.StateIdle, c.Status().State)
}

func TestStopDuringCountdown(t *testing.T) {
	d := fake.New()
	c := newController(d)
	defer c.Close()

	s := fastSettings()
	s.Timing.StartDelay = 3 * time.Second
	h, err := c.Start(context.Background(), "hello", s)
	require.NoError(t, err)
	c.Stop()

	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("stop did not end the countdown")
	}
	assert.Equal(t, sequencer.StateStopped, c.Status().State)
	assert.Empty(t, d.Calls())
}

func TestStartWhileActiveReturnsLiveHandle(t *testing.T) {
	c := newController(fake.New())
	defer c.Close()

	s := fastSettings()
	s.Timing.StartDelay = 2 * time.Second
	first, err := c.Start(context.Background(), "abc", s)
	require.NoError(t, err)

	second, err := c.Start(context.Background(), "xyz", s)
	require.NoError(t, err)
	assert.Same(t, first, second)

	c.Stop()
	<-first.Done()

	third, err := c.Start(context.Background(), "xyz", fastSettings())
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)
	require.NoError(t, third.Wait(context.Background()))
}

func TestPauseResumeThroughController(t *testing.T) {
	d := fake.New()
	c := newController(d)
	defer c.Close()

	assert.False(t, c.Pause(), "pause without a session is a no-op")

	s := fastSettings()
	s.Timing.InterUnitDelay = 10 * time.Millisecond
	text := "the quick brown fox"
	h, err := c.Start(context.Background(), text, s)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return h.Status().Cursor >= 2 }, 2*time.Second, time.Millisecond)
	require.True(t, c.Pause())

	time.Sleep(50 * time.Millisecond)
	held := h.Status().Cursor
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, held, h.Status().Cursor)

	require.True(t, c.Pause())
	require.NoError(t, h.Wait(context.Background()))
	assert.Equal(t, sequencer.StateCompleted, h.Status().State)
	assert.Equal(t, h.Status().TotalUnits, h.Status().Cursor)
	assert.Equal(t, text, d.Typed())
}

func TestOnStatusDeliversInOrder(t *testing.T) {
	c := newController(fake.New())

	var mu sync.Mutex
	var kinds []sequencer.EventKind
	c.OnStatus(func(e sequencer.Event) {
		mu.Lock()
		defer mu.Unlock()
		kinds = append(kinds, e.Kind)
	})

	h, err := c.Start(context.Background(), "abc", fastSettings())
	require.NoError(t, err)
	require.NoError(t, h.Wait(context.Background()))
	c.Close()

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, kinds)
	assert.Equal(t, sequencer.EventStarted, kinds[0])
	assert.Equal(t, sequencer.EventCompleted, kinds[len(kinds)-1])
	progress := 0
	for _, k := range kinds {
		if k == sequencer.EventProgress {
			progress++
		}
	}
	assert.Equal(t, 3, progress)
}

func TestFailureReachesErrorHandler(t *testing.T) {
	d := fake.New()
	d.FailAfter = 1
	d.FailErr = errors.New("wtype: compositor does not support virtual keyboard")

	handler := kterrors.NewHandler(zerolog.Nop())
	got := make(chan *kterrors.Error, 1)
	handler.OnError(func(e *kterrors.Error) { got <- e })

	c := NewController(d, d, zerolog.Nop(), handler)
	defer c.Close()

	h, err := c.Start(context.Background(), "abc", fastSettings())
	require.NoError(t, err)
	assert.Error(t, h.Wait(context.Background()))
	assert.Equal(t, sequencer.StateFailed, c.Status().State)

	select {
	case e := <-got:
		assert.Equal(t, kterrors.ErrorTypeInjection, e.Type)
		assert.ErrorIs(t, e, d.FailErr)
	case <-time.After(time.Second):
		t.Fatal("error handler was not called")
	}

	// The controller stays usable after a failure.
	d.FailAfter = 0
	h, err = c.Start(context.Background(), "ok", fastSettings())
	require.NoError(t, err)
	assert.NoError(t, h.Wait(context.Background()))
}

func TestRTLAutoResolvesToWholePaste(t *testing.T) {
	d := fake.New()
	c := newController(d)
	defer c.Close()

	s := fastSettings()
	s.Chunk.RTLUnit = chunker.UnitAuto
	text := "مرحبا بكم"
	h, err := c.Start(context.Background(), text, s)
	require.NoError(t, err)
	require.NoError(t, h.Wait(context.Background()))
	assert.Equal(t, []string{text}, d.ClipboardWrites())

	d2 := fake.New()
	c2 := newController(d2)
	defer c2.Close()
	s.Timing.InterUnitDelay = 50 * time.Millisecond
	h, err = c2.Start(context.Background(), text, s)
	require.NoError(t, err)
	require.NoError(t, h.Wait(context.Background()))
	assert.Equal(t, []string{"مرحبا", "بكم"}, d2.ClipboardWrites())
}

func TestParseNumbers(t *testing.T) {
	d, err := ParseSeconds("delay", " 1.5 ")
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, d)

	_, err = ParseSeconds("delay", "three")
	assert.True(t, kterrors.IsType(err, kterrors.ErrorTypeValidation))
	assert.ErrorIs(t, err, kterrors.ErrInvalidNumber)

	_, err = ParseMillis("speed", "-5")
	assert.ErrorIs(t, err, kterrors.ErrNegative)

	d, err = ParseSeconds("delay", "600")
	require.NoError(t, err)
	assert.Equal(t, time.Duration(config.MaxDelayMs)*time.Millisecond, d)

	d, err = ParseMillis("speed", "99999")
	require.NoError(t, err)
	assert.Equal(t, time.Duration(config.MaxDelayMs)*time.Millisecond, d)
}

func TestSettingsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.PasteShortcut = "Cmd+V"
	s, err := SettingsFromConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, "v", s.Timing.PasteKey)
	assert.Equal(t, []string{"cmd"}, s.Timing.PasteModifiers)
	assert.Equal(t, 3*time.Second, s.Timing.StartDelay)
	assert.Equal(t, chunker.UnitWord, s.Chunk.RTLUnit)
	assert.Equal(t, 20*time.Millisecond, s.RTLPasteThreshold)

	cfg.PasteShortcut = "ctrl+"
	_, err = SettingsFromConfig(cfg)
	assert.True(t, kterrors.IsType(err, kterrors.ErrorTypeConfig))
	assert.ErrorIs(t, err, kterrors.ErrBadShortcut)
}
