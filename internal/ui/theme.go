package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// KeyTyperTheme is the default theme with keytyper's accent color and a
// slightly larger text size for Arabic glyphs.
type KeyTyperTheme struct{}

var accent = color.RGBA{R: 46, G: 125, B: 110, A: 255}

func (m KeyTyperTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary, theme.ColorNameFocus:
		return accent
	case theme.ColorNameSelection:
		return color.RGBA{R: accent.R, G: accent.G, B: accent.B, A: 64}
	}
	return theme.DefaultTheme().Color(name, variant)
}

func (m KeyTyperTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (m KeyTyperTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (m KeyTyperTheme) Size(name fyne.ThemeSizeName) float32 {
	if name == theme.SizeNameText {
		return 15
	}
	return theme.DefaultTheme().Size(name)
}
