// Package chunker turns text into the ordered units a typing session sends.
//
// Chunking is pure: the same text and options always give the same Plan, and
// a Plan is never shared between sessions.
package chunker

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// ScriptKind selects how the text direction is decided.
type ScriptKind string

const (
	ScriptAuto ScriptKind = "auto"
	ScriptLTR  ScriptKind = "ltr"
	ScriptRTL  ScriptKind = "rtl"
)

// UnitMode selects what one typed unit is.
type UnitMode string

const (
	UnitCharacter UnitMode = "character"
	UnitWord      UnitMode = "word"
	// UnitPaste sends the whole text as one clipboard paste (RTL only).
	UnitPaste UnitMode = "paste"
	// UnitAuto picks paste or word by pacing, see ResolveRTLUnit (RTL only).
	UnitAuto UnitMode = "auto"
)

// Direction is the detected or forced script direction.
type Direction int

const (
	LTR Direction = iota
	RTL
)

func (d Direction) String() string {
	if d == RTL {
		return "rtl"
	}
	return "ltr"
}

// Named keys for whitespace and control units.
const (
	KeySpace = "space"
	KeyEnter = "enter"
	KeyTab   = "tab"
)

// Options is the chunking part of a typing configuration.
type Options struct {
	Script  ScriptKind
	LTRUnit UnitMode
	RTLUnit UnitMode
}

// Validate reports unknown enum values.
func (o Options) Validate() error {
	switch o.Script {
	case ScriptAuto, ScriptLTR, ScriptRTL:
	default:
		return fmt.Errorf("unknown script kind %q", o.Script)
	}
	switch o.LTRUnit {
	case UnitCharacter, UnitWord:
	default:
		return fmt.Errorf("unknown ltr unit %q", o.LTRUnit)
	}
	switch o.RTLUnit {
	case UnitCharacter, UnitWord, UnitPaste, UnitAuto:
	default:
		return fmt.Errorf("unknown rtl unit %q", o.RTLUnit)
	}
	return nil
}

// Unit is one indivisible item of typed output.
type Unit struct {
	// Content is the exact text of the unit.
	Content string
	// Key is the named key to press instead of typing Content, if any.
	Key string
	// Delimiter is set when a synthetic space follows the unit (word mode).
	Delimiter bool
	// Silent units produce no input event (a \r before \n).
	Silent bool
	// Chars is how many characters the unit accounts for in progress.
	Chars int
}

// Plan is the chunked form of a text.
type Plan struct {
	Direction  Direction
	Mode       UnitMode
	Units      []Unit
	TotalChars int
}

// WholePaste reports whether the plan is a single clipboard paste.
func (p Plan) WholePaste() bool {
	return p.Direction == RTL && p.Mode == UnitPaste
}

// Text joins unit contents and synthetic delimiters back together.
func (p Plan) Text() string {
	var b strings.Builder
	for _, u := range p.Units {
		b.WriteString(u.Content)
		if u.Delimiter {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

var arabicBlock = &unicode.RangeTable{
	R16: []unicode.Range16{{Lo: 0x0600, Hi: 0x06FF, Stride: 1}},
}

// IsRTL reports whether text holds any code point of the Arabic block.
func IsRTL(text string) bool {
	for _, r := range text {
		if unicode.Is(arabicBlock, r) {
			return true
		}
	}
	return false
}

// DetectDirection applies kind to text.
func DetectDirection(text string, kind ScriptKind) Direction {
	switch kind {
	case ScriptLTR:
		return LTR
	case ScriptRTL:
		return RTL
	default:
		if IsRTL(text) {
			return RTL
		}
		return LTR
	}
}

// ResolveRTLUnit turns UnitAuto into a concrete mode: a whole paste when the
// inter-unit delay is below threshold, word-by-word paste otherwise.
func ResolveRTLUnit(mode UnitMode, interUnitDelay, threshold time.Duration) UnitMode {
	if mode != UnitAuto {
		return mode
	}
	if interUnitDelay < threshold {
		return UnitPaste
	}
	return UnitWord
}

// Chunk splits text according to opts. An RTL auto unit that was not
// resolved beforehand is treated as word mode.
func Chunk(text string, opts Options) Plan {
	dir := DetectDirection(text, opts.Script)

	mode := opts.LTRUnit
	if dir == RTL {
		mode = opts.RTLUnit
		if mode == UnitAuto {
			mode = UnitWord
		}
	}

	plan := Plan{Direction: dir, Mode: mode}
	switch mode {
	case UnitPaste:
		if text != "" {
			plan.Units = []Unit{{Content: text, Chars: utf8.RuneCountInString(text)}}
		}
	case UnitWord:
		plan.Units = words(text)
	default:
		plan.Mode = UnitCharacter
		plan.Units = characters(text)
	}

	for _, u := range plan.Units {
		plan.TotalChars += u.Chars
	}
	return plan
}

func characters(text string) []Unit {
	units := make([]Unit, 0, utf8.RuneCountInString(text))
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		u := Unit{Content: text[i : i+size], Chars: 1}
		switch r {
		case ' ':
			u.Key = KeySpace
		case '\t':
			u.Key = KeyTab
		case '\n':
			u.Key = KeyEnter
		case '\r':
			if strings.HasPrefix(text[i+size:], "\n") {
				u.Silent = true
			} else {
				u.Key = KeyEnter
			}
		}
		units = append(units, u)
		i += size
	}
	return units
}

func words(text string) []Unit {
	fields := strings.Fields(text)
	units := make([]Unit, len(fields))
	for i, w := range fields {
		last := i == len(fields)-1
		units[i] = Unit{Content: w, Delimiter: !last, Chars: utf8.RuneCountInString(w)}
		if !last {
			units[i].Chars++
		}
	}
	return units
}
