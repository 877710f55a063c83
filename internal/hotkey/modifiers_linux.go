package hotkey

import "golang.design/x/hotkey"

// X11 maps alt to Mod1 and super to Mod4.
var modifiers = map[string]hotkey.Modifier{
	"ctrl":  hotkey.ModCtrl,
	"shift": hotkey.ModShift,
	"alt":   hotkey.Mod1,
	"super": hotkey.Mod4,
}
