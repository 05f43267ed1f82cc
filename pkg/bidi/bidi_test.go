package bidi

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRTLLanguage(t *testing.T) {
	assert.True(t, IsRTLLanguage("he"))
	assert.True(t, IsRTLLanguage("AR"))
	assert.True(t, IsRTLLanguage("fa-IR"))
	assert.False(t, IsRTLLanguage("en"))
	assert.False(t, IsRTLLanguage("fr"))
}

func TestProcessNoOpForNonRTLTarget(t *testing.T) {
	in := "hello world 100%"
	out := Process(in, "fr")
	assert.Equal(t, in, out)
}

func TestProcessNoOpForLineWithoutRTLChars(t *testing.T) {
	in := "just english text"
	out := Process(in, "he")
	assert.Equal(t, in, out)
}

func TestProcessWrapsNumericRunAndLine(t *testing.T) {
	in := "שלום 42%"
	out := Process(in, "he")

	assert.True(t, strings.HasPrefix(out, rle))
	assert.True(t, strings.HasSuffix(out, pdf))
	assert.Contains(t, out, lrm+"42%"+lrm)
}

func TestProcessMixedLanguageLinesHandledIndependently(t *testing.T) {
	in := "שלום\nhello"
	out := Process(in, "he")
	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], rle))
	assert.Equal(t, "hello", lines[1])
}

func TestProcessWrapsLTRBracketedSpanContent(t *testing.T) {
	in := "שלום (hello) עולם"
	out := Process(in, "he")
	assert.Contains(t, out, "("+lrm+"hello"+lrm+")")
}

func TestProcessSurroundsRTLBracketedSpanWithRLM(t *testing.T) {
	in := "text (שלום) more"
	out := Process(in, "he")
	assert.Contains(t, out, rlm+"(שלום)"+rlm)
}

func TestProcessEmbedsLineWithRLEThenRLM(t *testing.T) {
	in := "שלום"
	out := Process(in, "he")
	assert.True(t, strings.HasPrefix(out, rle+rlm))
}

func TestIsDominantRTL(t *testing.T) {
	assert.True(t, IsDominantRTL("שלום עולם"))
	assert.False(t, IsDominantRTL("hello world"))
}
