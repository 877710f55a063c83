// Package fake records injections and clipboard writes in memory for tests.
package fake

import (
	"context"
	"strings"
	"sync"
)

// Call is one recorded input event.
type Call struct {
	Op   string // "type", "key", "combo"
	Text string
}

// Desktop implements both sequencer.Injector and sequencer.Clipboard.
type Desktop struct {
	mu        sync.Mutex
	calls     []Call
	clipboard string
	writes    []string

	// FailAfter makes the n-th injection (1-based) fail with FailErr.
	FailAfter int
	FailErr   error
	// ClipboardErr makes every clipboard write fail.
	ClipboardErr error
}

// New returns an empty Desktop.
func New() *Desktop { return &Desktop{} }

func (d *Desktop) record(c Call) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, c)
	if d.FailAfter > 0 && len(d.calls) >= d.FailAfter {
		return d.FailErr
	}
	return nil
}

func (d *Desktop) TypeText(_ context.Context, text string) error {
	return d.record(Call{Op: "type", Text: text})
}

func (d *Desktop) KeyTap(_ context.Context, key string) error {
	return d.record(Call{Op: "key", Text: key})
}

func (d *Desktop) KeyCombo(_ context.Context, key string, modifiers ...string) error {
	return d.record(Call{Op: "combo", Text: strings.Join(append(append([]string{}, modifiers...), key), "+")})
}

func (d *Desktop) WriteText(_ context.Context, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ClipboardErr != nil {
		return d.ClipboardErr
	}
	d.clipboard = text
	d.writes = append(d.writes, text)
	return nil
}

func (d *Desktop) ReadText(context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clipboard, nil
}

// Calls returns a copy of the recorded injections.
func (d *Desktop) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

// ClipboardWrites returns every text written to the clipboard, in order.
func (d *Desktop) ClipboardWrites() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.writes...)
}

// Typed renders the injections as the text a target window would show,
// treating pastes as the clipboard content at the time of the write.
func (d *Desktop) Typed() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	var b strings.Builder
	w := 0
	for _, c := range d.calls {
		switch c.Op {
		case "type":
			b.WriteString(c.Text)
		case "key":
			switch c.Text {
			case "space":
				b.WriteByte(' ')
			case "enter":
				b.WriteByte('\n')
			case "tab":
				b.WriteByte('\t')
			}
		case "combo":
			if w < len(d.writes) {
				b.WriteString(d.writes[w])
				w++
			}
		}
	}
	return b.String()
}
