// Package bidi post-processes machine-translated subtitle text destined for
// a right-to-left target language. Terminal subtitle renderers generally
// apply the Unicode Bidirectional Algorithm correctly for plain prose, but
// get visibly confused by embedded LTR runs — numbers, percentages,
// currency amounts — and by trailing Latin punctuation a translator left
// untouched. This package inserts the directional control characters that
// fix those cases without touching anything else.
package bidi

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	lrm = "‎" // left-to-right mark
	rlm = "‏" // right-to-left mark
	rle = "‫" // right-to-left embedding
	pdf = "‬" // pop directional formatting
)

// rtlLanguages is the set of target language codes this package treats as
// right-to-left. Codes are matched case-insensitively and ignore any
// region suffix ("he-IL" matches "he").
var rtlLanguages = map[string]bool{
	"he": true, // Hebrew
	"ar": true, // Arabic
	"fa": true, // Persian/Farsi
	"ur": true, // Urdu
	"ps": true, // Pashto
}

// numericRunRe matches a currency/sign-prefixed numeric token, optionally
// with grouping separators, a decimal fraction, a trailing ":mm" clock
// component, or a trailing percent sign — the set of LTR tokens that a
// bidi renderer will otherwise scramble inside RTL prose.
var numericRunRe = regexp.MustCompile(`[$€£¥₪]?[+-]?\d+(?:[,.]\d+)*(?::\d+)?%?`)

// trailingPunctuationRe matches ASCII punctuation a translation engine
// commonly leaves untouched at the end of an otherwise-RTL line.
var trailingPunctuationRe = regexp.MustCompile(`([.?!,:;]+)\s*$`)

// bracketSpanRe matches a bracketed or quoted span: parens, square
// brackets, double quotes, or single quotes. Each match's first and last
// byte are always the delimiter pair, so callers can slice them off
// directly instead of tracking which alternative matched.
var bracketSpanRe = regexp.MustCompile(`\([^()]*\)|\[[^\[\]]*\]|"[^"]*"|'[^']*'`)

// IsRTLLanguage reports whether code names a right-to-left target language.
// Region subtags are ignored: "he-IL" and "HE" both match "he".
func IsRTLLanguage(code string) bool {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i >= 0 {
		code = code[:i]
	}
	return rtlLanguages[code]
}

// ContainsRTL reports whether s contains at least one codepoint from the
// Hebrew, Arabic, Arabic Supplement or Arabic Extended-A blocks.
func ContainsRTL(s string) bool {
	for _, r := range s {
		if isRTLRune(r) {
			return true
		}
	}
	return false
}

func isRTLRune(r rune) bool {
	switch {
	case r >= 0x0590 && r <= 0x05FF: // Hebrew
		return true
	case r >= 0x0600 && r <= 0x06FF: // Arabic
		return true
	case r >= 0x0750 && r <= 0x077F: // Arabic Supplement
		return true
	case r >= 0x08A0 && r <= 0x08FF: // Arabic Extended-A
		return true
	default:
		return false
	}
}

// Process applies directional post-processing to cue text bound for
// targetLang. It is a no-op when targetLang is not right-to-left, and a
// no-op for any individual line that contains no RTL codepoints at all —
// mixed-language cue text is processed line by line so an English-only
// line inside an otherwise-Hebrew cue is left untouched.
func Process(text string, targetLang string) string {
	if !IsRTLLanguage(targetLang) {
		return text
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if !ContainsRTL(line) {
			continue
		}
		lines[i] = processLine(line)
	}
	return strings.Join(lines, "\n")
}

func processLine(line string) string {
	line = wrapNumericRuns(line)
	line = markTrailingPunctuation(line)
	line = wrapBracketedSpans(line)
	return rle + rlm + line + pdf
}

// wrapNumericRuns surrounds every numeric token with LRM so the bidi
// algorithm keeps its digits in reading order instead of mirroring them.
func wrapNumericRuns(line string) string {
	return numericRunRe.ReplaceAllStringFunc(line, func(m string) string {
		return lrm + m + lrm
	})
}

// markTrailingPunctuation inserts an RLM before trailing ASCII punctuation
// so it visually attaches to the preceding RTL text instead of floating to
// the wrong edge of the line.
func markTrailingPunctuation(line string) string {
	return trailingPunctuationRe.ReplaceAllString(line, rlm+"$1")
}

// wrapBracketedSpans handles bracketed/quoted spans: a span whose inner
// content is LTR gets that content wrapped in LRM so it doesn't mirror;
// a span whose inner content is RTL instead gets the whole delimiter pair
// surrounded by RLM so the brackets themselves attach to the right side.
func wrapBracketedSpans(line string) string {
	return bracketSpanRe.ReplaceAllStringFunc(line, func(m string) string {
		inner := m[1 : len(m)-1]
		if ContainsRTL(inner) {
			return rlm + m + rlm
		}
		open, close := m[:1], m[len(m)-1:]
		return open + lrm + inner + lrm + close
	})
}

// IsDominantRTL reports whether RTL codepoints outnumber Latin codepoints
// in s. It is a coarser, whole-string heuristic used by callers deciding
// whether a blob of text should be treated as RTL at all (as opposed to
// Process's per-character, per-line gating).
func IsDominantRTL(s string) bool {
	var rtlCount, latinCount int
	for _, r := range s {
		switch {
		case isRTLRune(r):
			rtlCount++
		case unicode.Is(unicode.Latin, r):
			latinCount++
		}
	}
	return rtlCount > latinCount
}
