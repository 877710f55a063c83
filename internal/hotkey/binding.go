package hotkey

import (
	"fmt"
	"strings"

	"golang.design/x/hotkey"

	"keytyper/pkg/errors"
)

// Binding is a parsed key combination such as "ctrl+shift+f9".
type Binding struct {
	Modifiers []string
	Key       string
}

func (b Binding) String() string {
	return strings.Join(append(append([]string{}, b.Modifiers...), b.Key), "+")
}

var modifierAliases = map[string]string{
	"ctrl":    "ctrl",
	"control": "ctrl",
	"shift":   "shift",
	"alt":     "alt",
	"option":  "alt",
	"super":   "super",
	"cmd":     "super",
	"win":     "super",
	"meta":    "super",
}

var keys = map[string]hotkey.Key{
	"space": hotkey.KeySpace, "tab": hotkey.KeyTab, "escape": hotkey.KeyEscape, "esc": hotkey.KeyEscape,
	"return": hotkey.KeyReturn, "enter": hotkey.KeyReturn,
	"f1": hotkey.KeyF1, "f2": hotkey.KeyF2, "f3": hotkey.KeyF3, "f4": hotkey.KeyF4,
	"f5": hotkey.KeyF5, "f6": hotkey.KeyF6, "f7": hotkey.KeyF7, "f8": hotkey.KeyF8,
	"f9": hotkey.KeyF9, "f10": hotkey.KeyF10, "f11": hotkey.KeyF11, "f12": hotkey.KeyF12,
	"a": hotkey.KeyA, "b": hotkey.KeyB, "c": hotkey.KeyC, "d": hotkey.KeyD, "e": hotkey.KeyE,
	"f": hotkey.KeyF, "g": hotkey.KeyG, "h": hotkey.KeyH, "i": hotkey.KeyI, "j": hotkey.KeyJ,
	"k": hotkey.KeyK, "l": hotkey.KeyL, "m": hotkey.KeyM, "n": hotkey.KeyN, "o": hotkey.KeyO,
	"p": hotkey.KeyP, "q": hotkey.KeyQ, "r": hotkey.KeyR, "s": hotkey.KeyS, "t": hotkey.KeyT,
	"u": hotkey.KeyU, "v": hotkey.KeyV, "w": hotkey.KeyW, "x": hotkey.KeyX, "y": hotkey.KeyY,
	"z": hotkey.KeyZ,
	"0": hotkey.Key0, "1": hotkey.Key1, "2": hotkey.Key2, "3": hotkey.Key3, "4": hotkey.Key4,
	"5": hotkey.Key5, "6": hotkey.Key6, "7": hotkey.Key7, "8": hotkey.Key8, "9": hotkey.Key9,
}

var modifierOrder = []string{"ctrl", "shift", "alt", "super"}

// ParseBinding parses "mod+mod+key". Modifiers come back in ctrl, shift, alt,
// super order without duplicates. Exactly one non-modifier key is required.
func ParseBinding(s string) (Binding, error) {
	var b Binding
	seen := map[string]bool{}
	for _, part := range strings.Split(strings.ToLower(strings.TrimSpace(s)), "+") {
		part = strings.TrimSpace(part)
		if part == "" {
			return Binding{}, fmt.Errorf("%w: %q", errors.ErrBadShortcut, s)
		}
		if mod, ok := modifierAliases[part]; ok {
			seen[mod] = true
			continue
		}
		if b.Key != "" {
			return Binding{}, fmt.Errorf("%w: %q has more than one key", errors.ErrBadShortcut, s)
		}
		if _, ok := keys[part]; !ok {
			return Binding{}, fmt.Errorf("%w: unknown key %q", errors.ErrBadShortcut, part)
		}
		b.Key = part
	}
	if b.Key == "" {
		return Binding{}, fmt.Errorf("%w: %q has no key", errors.ErrBadShortcut, s)
	}
	for _, mod := range modifierOrder {
		if seen[mod] {
			b.Modifiers = append(b.Modifiers, mod)
		}
	}
	return b, nil
}

func (b Binding) resolve() ([]hotkey.Modifier, hotkey.Key) {
	mods := make([]hotkey.Modifier, 0, len(b.Modifiers))
	for _, m := range b.Modifiers {
		mods = append(mods, modifiers[m])
	}
	return mods, keys[b.Key]
}
