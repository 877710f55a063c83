package chunker

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	charOpts = Options{Script: ScriptAuto, LTRUnit: UnitCharacter, RTLUnit: UnitCharacter}
	wordOpts = Options{Script: ScriptAuto, LTRUnit: UnitWord, RTLUnit: UnitWord}
)

func TestDetectDirection(t *testing.T) {
	assert.Equal(t, LTR, DetectDirection("hello", ScriptAuto))
	assert.Equal(t, RTL, DetectDirection("مرحبا", ScriptAuto))
	assert.Equal(t, RTL, DetectDirection("hello مرحبا", ScriptAuto))
	assert.Equal(t, LTR, DetectDirection("مرحبا", ScriptLTR))
	assert.Equal(t, RTL, DetectDirection("hello", ScriptRTL))
	// Hebrew sits outside the Arabic block.
	assert.Equal(t, LTR, DetectDirection("שלום", ScriptAuto))
}

func TestChunkCharacterRoundTrip(t *testing.T) {
	inputs := []string{
		"hello world",
		"  \t\n",
		"line one\r\nline two\n",
		"mixed مرحبا text",
		"emoji 🙂 and combining é",
		"x",
	}
	for _, in := range inputs {
		plan := Chunk(in, charOpts)
		var b strings.Builder
		for _, u := range plan.Units {
			assert.False(t, u.Delimiter)
			b.WriteString(u.Content)
		}
		assert.Equal(t, in, b.String(), "round trip of %q", in)
		assert.Equal(t, len([]rune(in)), len(plan.Units))
		assert.Equal(t, len([]rune(in)), plan.TotalChars)
	}
}

func TestChunkCharacterWhitespaceKeys(t *testing.T) {
	plan := Chunk(" \t\n", charOpts)
	require.Len(t, plan.Units, 3)
	assert.Equal(t, KeySpace, plan.Units[0].Key)
	assert.Equal(t, KeyTab, plan.Units[1].Key)
	assert.Equal(t, KeyEnter, plan.Units[2].Key)
}

func TestChunkCarriageReturn(t *testing.T) {
	plan := Chunk("a\r\nb\rc", charOpts)
	require.Len(t, plan.Units, 6)
	assert.True(t, plan.Units[1].Silent)
	assert.Equal(t, KeyEnter, plan.Units[2].Key)
	assert.False(t, plan.Units[4].Silent)
	assert.Equal(t, KeyEnter, plan.Units[4].Key)
}

func TestChunkWordDelimiters(t *testing.T) {
	plan := Chunk("  the   quick\tbrown\n\nfox  ", wordOpts)
	require.Len(t, plan.Units, 4)

	got := make([]string, 0, len(plan.Units))
	for i, u := range plan.Units {
		got = append(got, u.Content)
		assert.Equal(t, i < len(plan.Units)-1, u.Delimiter, "delimiter on unit %d", i)
	}
	assert.Equal(t, []string{"the", "quick", "brown", "fox"}, got)
	assert.Equal(t, "the quick brown fox", plan.Text())
	assert.Equal(t, len("the quick brown fox"), plan.TotalChars)
}

func TestChunkWordOnlyWhitespace(t *testing.T) {
	plan := Chunk(" \n\t ", wordOpts)
	assert.Empty(t, plan.Units)
	assert.Zero(t, plan.TotalChars)
}

func TestChunkRTLWholePaste(t *testing.T) {
	text := "مرحبا بكم في   البرنامج"
	plan := Chunk(text, Options{Script: ScriptAuto, LTRUnit: UnitCharacter, RTLUnit: UnitPaste})

	assert.True(t, plan.WholePaste())
	require.Len(t, plan.Units, 1)
	assert.Equal(t, text, plan.Units[0].Content)
	assert.Equal(t, len([]rune(text)), plan.TotalChars)
}

func TestChunkPasteIgnoredForLTR(t *testing.T) {
	plan := Chunk("plain text", Options{Script: ScriptAuto, LTRUnit: UnitWord, RTLUnit: UnitPaste})
	assert.False(t, plan.WholePaste())
	assert.Equal(t, UnitWord, plan.Mode)
	assert.Len(t, plan.Units, 2)
}

func TestChunkIsDeterministic(t *testing.T) {
	text := "hello مرحبا"
	assert.Equal(t, Chunk(text, wordOpts), Chunk(text, wordOpts))
}

func TestResolveRTLUnit(t *testing.T) {
	threshold := 50 * time.Millisecond
	assert.Equal(t, UnitPaste, ResolveRTLUnit(UnitAuto, 10*time.Millisecond, threshold))
	assert.Equal(t, UnitWord, ResolveRTLUnit(UnitAuto, 50*time.Millisecond, threshold))
	assert.Equal(t, UnitCharacter, ResolveRTLUnit(UnitCharacter, 0, threshold))
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, charOpts.Validate())
	assert.Error(t, Options{Script: "up", LTRUnit: UnitWord, RTLUnit: UnitWord}.Validate())
	assert.Error(t, Options{Script: ScriptAuto, LTRUnit: UnitPaste, RTLUnit: UnitWord}.Validate())
	assert.Error(t, Options{Script: ScriptAuto, LTRUnit: UnitWord, RTLUnit: "sentence"}.Validate())
}
