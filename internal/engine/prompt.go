package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/odedia/translation-layer/pkg/subs"
)

// markerPrefix and markerSuffix delimit the per-cue index tag the engine
// embeds in both the outgoing prompt and the expected response, so a
// response can be mapped back onto cues positionally even if the provider
// reorders, merges or drops entries.
const (
	markerPrefix = "<<~"
	markerSuffix = "~>>"
)

// responseMarkerRe matches one marker and captures its index. A marker's
// translation is everything from the end of that marker up to the start of
// the next marker or the end of the response; ParseResponse slices those
// bodies out by match position, which is what lets this survive a
// translation that itself contains blank lines or stray punctuation.
var responseMarkerRe = regexp.MustCompile(regexp.QuoteMeta(markerPrefix) + `(\d+)` + regexp.QuoteMeta(markerSuffix))

func marker(i int) string {
	return fmt.Sprintf("%s%d%s", markerPrefix, i, markerSuffix)
}

// BuildPrompt renders a batch of cues as the marker-tagged user prompt the
// translation provider is instructed to echo back, one marker per cue,
// with each cue's internal newlines replaced by "||" so a single marker's
// payload is always exactly one line of provider output.
func BuildPrompt(cues []subs.Cue) string {
	var b strings.Builder
	for i, c := range cues {
		if i > 0 {
			b.WriteString("\n")
		}
		text := strings.ReplaceAll(c.Text, "\n", lineBreakMarker)
		fmt.Fprintf(&b, "%s %s", marker(i), text)
	}
	return b.String()
}

const lineBreakMarker = "||"

// SystemPrompt returns the instruction prefix sent alongside the user
// prompt, naming the target language and the marker protocol the provider
// must preserve.
func SystemPrompt(targetLang string) string {
	return fmt.Sprintf(
		"You are a professional subtitle translator. Translate each numbered line into %s. "+
			"Preserve every %s marker exactly as given, one per output line, in the same order. "+
			"Keep the \"%s\" sequence wherever it appears — it marks an internal line break and must "+
			"not be translated or removed. Do not merge, split, renumber, or add commentary, preambles, "+
			"quotation marks, or code fences. Output nothing but the marked lines.",
		targetLang, markerPrefix+"N"+markerSuffix, lineBreakMarker,
	)
}

// ParseResponse extracts every marker-tagged translation from a provider's
// raw response text, first stripping the preambles/fences/quoting that
// providers routinely wrap responses in despite being told not to.
func ParseResponse(raw string) map[int]string {
	cleaned := clean(raw)
	out := make(map[int]string)
	locs := responseMarkerRe.FindAllStringSubmatchIndex(cleaned, -1)
	for i, loc := range locs {
		idx, err := strconv.Atoi(cleaned[loc[2]:loc[3]])
		if err != nil {
			continue
		}
		end := len(cleaned)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		text := strings.TrimSpace(cleaned[loc[1]:end])
		if text == "" {
			continue
		}
		text = strings.ReplaceAll(text, lineBreakMarker, "\n")
		out[idx] = text
	}
	return out
}

var (
	codeFenceRe  = regexp.MustCompile("(?s)```[a-zA-Z]*\n?")
	leadingQuote = regexp.MustCompile(`^["'` + "`" + `]+`)
)

// clean strips the preamble chatter, surrounding quotes and markdown code
// fences providers sometimes wrap their output in, leaving only the
// marker-tagged lines clean returns untouched.
func clean(raw string) string {
	s := raw
	s = codeFenceRe.ReplaceAllString(s, "")
	if i := strings.Index(s, markerPrefix); i > 0 {
		// Drop any preamble sentence that precedes the first real marker.
		s = s[i:]
	}
	s = leadingQuote.ReplaceAllString(strings.TrimSpace(s), "")
	return s
}
