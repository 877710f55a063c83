// Package ui provides the keytyper window
package ui

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"

	"keytyper/internal/chunker"
	"keytyper/internal/logger"
	"keytyper/internal/sequencer"
	"keytyper/internal/session"
	"keytyper/internal/store"
	"keytyper/pkg/config"
	"keytyper/pkg/errors"
)

var scriptChoices = []string{"Auto detect", "Arabic (RTL)", "English (LTR)"}

var scriptKinds = map[string]chunker.ScriptKind{
	"Auto detect":   chunker.ScriptAuto,
	"Arabic (RTL)":  chunker.ScriptRTL,
	"English (LTR)": chunker.ScriptLTR,
}

// UI is the main window: a Type tab and a Scripts tab.
type UI struct {
	app        fyne.App
	window     fyne.Window
	ctrl       *session.Controller
	store      *store.Store
	cfg        *config.Config
	errHandler *errors.Handler
	log        zerolog.Logger

	tabs     *container.AppTabs
	input    *widget.Entry
	script   *widget.RadioGroup
	ltrUnit  *widget.Select
	rtlUnit  *widget.Select
	delay    *widget.Entry
	interval *widget.Entry
	saveAs   *widget.Entry
	startBtn *widget.Button
	pauseBtn *widget.Button
	stopBtn  *widget.Button
	progress *widget.ProgressBar
	status   *widget.Label
	hotkeys  *widget.Label

	scripts  *widget.List
	names    []string
	selected int

	closed atomic.Bool
}

// New builds the window. Call ShowAndRun on the result.
func New(a fyne.App, ctrl *session.Controller, st *store.Store, cfg *config.Config, errHandler *errors.Handler, log zerolog.Logger) *UI {
	u := &UI{
		app:        a,
		ctrl:       ctrl,
		store:      st,
		cfg:        cfg,
		errHandler: errHandler,
		log:        logger.Component(log, "ui"),
		selected:   -1,
	}
	a.Settings().SetTheme(&KeyTyperTheme{})
	u.window = a.NewWindow("keytyper")
	u.window.Resize(fyne.NewSize(640, 520))

	u.tabs = container.NewAppTabs(
		container.NewTabItem("Type", u.buildTypeTab()),
		container.NewTabItem("Scripts", u.buildScriptsTab()),
	)
	u.window.SetContent(u.tabs)
	u.window.SetOnClosed(func() {
		u.closed.Store(true)
		ctrl.Stop()
	})

	// Events arriving after the window is gone have nowhere to go.
	ctrl.OnStatus(func(e sequencer.Event) {
		if u.closed.Load() {
			return
		}
		fyne.Do(func() { u.applyEvent(e) })
	})
	u.RefreshScripts()
	return u
}

// Window returns the main window.
func (u *UI) Window() fyne.Window { return u.window }

// ShowAndRun shows the window and blocks until it is closed.
func (u *UI) ShowAndRun() {
	u.window.ShowAndRun()
}

// SetHotkeyHint shows the bound hotkeys under the controls.
func (u *UI) SetHotkeyHint(text string) {
	u.hotkeys.SetText(text)
}

func (u *UI) buildTypeTab() fyne.CanvasObject {
	u.input = widget.NewMultiLineEntry()
	u.input.SetPlaceHolder("Text to type")
	u.input.Wrapping = fyne.TextWrapWord
	u.input.SetMinRowsVisible(8)

	u.script = widget.NewRadioGroup(scriptChoices, nil)
	u.script.Horizontal = true
	u.script.Required = true
	u.script.SetSelected(scriptChoiceFor(chunker.ScriptKind(u.cfg.ScriptKind)))

	u.ltrUnit = widget.NewSelect([]string{config.UnitCharacter, config.UnitWord}, nil)
	u.ltrUnit.SetSelected(u.cfg.LTRUnit)
	u.rtlUnit = widget.NewSelect([]string{config.UnitCharacter, config.UnitWord, config.UnitPaste, config.UnitAuto}, nil)
	u.rtlUnit.SetSelected(u.cfg.RTLUnit)

	u.delay = widget.NewEntry()
	u.delay.SetText(strconv.FormatFloat(float64(u.cfg.StartDelayMs)/1000, 'f', -1, 64))
	u.interval = widget.NewEntry()
	u.interval.SetText(strconv.Itoa(u.cfg.InterUnitDelayMs))

	u.saveAs = widget.NewEntry()
	u.saveAs.SetPlaceHolder("Snippet name")

	u.startBtn = widget.NewButton("Start", u.Start)
	u.startBtn.Importance = widget.HighImportance
	u.pauseBtn = widget.NewButton("Pause", func() { u.TogglePause() })
	u.stopBtn = widget.NewButton("Stop", u.Stop)
	u.setRunning(false)

	u.progress = widget.NewProgressBar()
	u.status = widget.NewLabel("Ready")
	u.hotkeys = widget.NewLabel("")

	form := widget.NewForm(
		widget.NewFormItem("Script", u.script),
		widget.NewFormItem("English unit", u.ltrUnit),
		widget.NewFormItem("Arabic unit", u.rtlUnit),
		widget.NewFormItem("Delay before typing (s)", u.delay),
		widget.NewFormItem("Interval between units (ms)", u.interval),
		widget.NewFormItem("Save as", container.NewBorder(nil, nil, nil, widget.NewButton("Save", u.SaveSnippet), u.saveAs)),
	)

	controls := container.NewGridWithColumns(3, u.startBtn, u.pauseBtn, u.stopBtn)
	bottom := container.NewVBox(form, controls, u.progress, u.status, u.hotkeys)
	return container.NewBorder(nil, bottom, nil, nil, container.NewVScroll(u.input))
}

func (u *UI) buildScriptsTab() fyne.CanvasObject {
	u.scripts = widget.NewList(
		func() int { return len(u.names) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(id widget.ListItemID, o fyne.CanvasObject) {
			if id < len(u.names) {
				o.(*widget.Label).SetText(u.names[id])
			}
		},
	)
	u.scripts.OnSelected = func(id widget.ListItemID) { u.selected = id }
	u.scripts.OnUnselected = func(widget.ListItemID) { u.selected = -1 }

	buttons := container.NewGridWithColumns(2,
		widget.NewButton("Load", u.LoadSelected),
		widget.NewButton("Delete", u.DeleteSelected),
	)
	return container.NewBorder(nil, buttons, nil, nil, u.scripts)
}

func scriptChoiceFor(kind chunker.ScriptKind) string {
	for choice, k := range scriptKinds {
		if k == kind {
			return choice
		}
	}
	return scriptChoices[0]
}

// settings reads the form on top of the configured defaults.
func (u *UI) settings() (session.Settings, error) {
	s, err := session.SettingsFromConfig(u.cfg)
	if err != nil {
		return session.Settings{}, err
	}
	s.Chunk.Script = scriptKinds[u.script.Selected]
	s.Chunk.LTRUnit = chunker.UnitMode(u.ltrUnit.Selected)
	s.Chunk.RTLUnit = chunker.UnitMode(u.rtlUnit.Selected)

	if s.Timing.StartDelay, err = session.ParseSeconds("delay", u.delay.Text); err != nil {
		return session.Settings{}, err
	}
	if s.Timing.InterUnitDelay, err = session.ParseMillis("interval", u.interval.Text); err != nil {
		return session.Settings{}, err
	}
	return s, nil
}

// Start begins typing the entry's text. Must run on the fyne goroutine.
func (u *UI) Start() {
	s, err := u.settings()
	if err != nil {
		u.showError(err)
		return
	}
	u.setRunning(true)
	if _, err := u.ctrl.Start(context.Background(), u.input.Text, s); err != nil {
		u.setRunning(false)
		u.showError(err)
	}
}

// TogglePause pauses or resumes the live session.
func (u *UI) TogglePause() bool {
	return u.ctrl.Pause()
}

// Stop stops the live session.
func (u *UI) Stop() {
	u.ctrl.Stop()
}

func (u *UI) showError(err error) {
	u.status.SetText("Error: " + err.Error())
	if !errors.IsType(err, errors.ErrorTypeValidation) && u.errHandler != nil {
		u.errHandler.Handle(err)
	}
}

func (u *UI) setRunning(running bool) {
	if running {
		u.startBtn.Disable()
		u.pauseBtn.Enable()
		u.stopBtn.Enable()
		return
	}
	u.startBtn.Enable()
	u.pauseBtn.Disable()
	u.pauseBtn.SetText("Pause")
	u.stopBtn.Disable()
}

// applyEvent renders a session event. Must run on the fyne goroutine.
func (u *UI) applyEvent(e sequencer.Event) {
	switch e.Kind {
	case sequencer.EventCountdown:
		u.setRunning(true)
		u.progress.SetValue(0)
		u.status.SetText(fmt.Sprintf("Starting in %d...", e.Remaining))
	case sequencer.EventStarted:
		u.setRunning(true)
		u.status.SetText("Typing...")
	case sequencer.EventProgress:
		u.progress.SetValue(e.Percent())
		u.status.SetText(fmt.Sprintf("Typing... %d/%d", e.Cursor, e.TotalUnits))
	case sequencer.EventPaused:
		u.pauseBtn.SetText("Resume")
		u.status.SetText("Paused")
	case sequencer.EventResumed:
		u.pauseBtn.SetText("Pause")
		u.status.SetText("Typing...")
	case sequencer.EventCompleted:
		u.setRunning(false)
		u.progress.SetValue(1)
		u.status.SetText("Completed")
	case sequencer.EventStopped:
		u.setRunning(false)
		u.status.SetText("Stopped")
	case sequencer.EventFailed:
		u.setRunning(false)
		msg := "Failed"
		if e.Err != nil {
			msg = "Failed: " + e.Err.Error()
		}
		u.status.SetText(msg)
	}
}

// SaveSnippet stores the entry's text under the "Save as" name.
func (u *UI) SaveSnippet() {
	name := u.saveAs.Text
	if err := u.store.Put(name, u.input.Text); err != nil {
		u.showError(err)
		// A failed write still keeps the snippet in memory.
		if !errors.IsType(err, errors.ErrorTypePersistence) {
			return
		}
	} else {
		u.status.SetText(fmt.Sprintf("Saved %q", name))
	}
	u.saveAs.SetText("")
	u.RefreshScripts()
}

// LoadSelected copies the selected snippet into the entry and switches to
// the Type tab.
func (u *UI) LoadSelected() {
	if u.selected < 0 || u.selected >= len(u.names) {
		u.status.SetText("Select a snippet first")
		return
	}
	name := u.names[u.selected]
	body, err := u.store.Get(name)
	if err != nil {
		u.showError(err)
		return
	}
	u.input.SetText(body)
	u.tabs.SelectIndex(0)
	u.status.SetText(fmt.Sprintf("Loaded %q", name))
}

// DeleteSelected removes the selected snippet.
func (u *UI) DeleteSelected() {
	if u.selected < 0 || u.selected >= len(u.names) {
		u.status.SetText("Select a snippet first")
		return
	}
	name := u.names[u.selected]
	if err := u.store.Delete(name); err != nil {
		u.showError(err)
	} else {
		u.status.SetText(fmt.Sprintf("Deleted %q", name))
	}
	u.RefreshScripts()
}

// RefreshScripts reloads the snippet list from the store.
func (u *UI) RefreshScripts() {
	u.names = u.store.List()
	u.selected = -1
	u.scripts.UnselectAll()
	u.scripts.Refresh()
}
