// Package subs implements the time-coded subtitle codec: parsing SRT and
// VTT into an ordered list of cues, and regenerating either format from
// that list. It is deliberately hand-rolled rather than built on a third
// party subtitle library, since the parsing discipline (in particular,
// never truncating a multi-line cue at its first newline) is the one
// piece of this system that must be exact.
package subs

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Format identifies which subtitle syntax a Document was parsed from or
// should be rendered as.
type Format int

const (
	SRT Format = iota
	VTT
)

func (f Format) String() string {
	if f == VTT {
		return "vtt"
	}
	return "srt"
}

// Cue is a single timed subtitle entry. Index is carried through for
// display purposes only — cue identity within a Document is positional,
// never the Index value.
type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  string
}

// Lines returns the cue's text split on its internal newlines.
func (c Cue) Lines() []string {
	return strings.Split(c.Text, "\n")
}

// LineCount returns how many visible lines the cue renders on.
func (c Cue) LineCount() int {
	return len(c.Lines())
}

// Document is an ordered sequence of cues plus the format it is tagged with.
type Document struct {
	Format Format
	Cues   []Cue
}

// ParseError is returned by Parse when the document yields no recoverable
// cues at all. It is non-fatal by design (spec: "codec-empty") — callers
// decide whether an empty document is acceptable.
type ParseError struct {
	Warnings []string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("subtitle document contains no recoverable cues (%d entries skipped)", len(e.Warnings))
}

var (
	srtTimestampRe = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2})[,.](\d{3})$`)

	// Matches one SRT cue block: an index line, a timing line, then text
	// lazily consumed up to the next blank line or end of document. The
	// lazy quantifier is what keeps a multi-line cue's TEXT from being
	// truncated at its first internal newline while still stopping at the
	// real cue boundary.
	srtCueRe = regexp.MustCompile(`(?s)(\d+)\r?\n(\d{2}:\d{2}:\d{2}[,.]\d{3})\s*-->\s*(\d{2}:\d{2}:\d{2}[,.]\d{3})[^\r\n]*\r?\n(.*?)(?:\r?\n[ \t]*\r?\n|\r?\n*\z)`)

	// VTT cues optionally carry an identifier line before the timing line.
	vttCueRe = regexp.MustCompile(`(?s)(?:([^\r\n]*)\r?\n)?(\d{2}:\d{2}:\d{2}[.,]\d{3})\s*-->\s*(\d{2}:\d{2}:\d{2}[.,]\d{3})[^\r\n]*\r?\n(.*?)(?:\r?\n[ \t]*\r?\n|\r?\n*\z)`)
)

// Parse auto-detects SRT vs VTT (VTT if the first non-BOM token is the
// literal "WEBVTT"), strips the BOM, canonicalizes line endings to LF, and
// parses the cues. Malformed cue entries are skipped; a document yielding
// zero cues returns a *ParseError alongside the (empty) Document. The
// warnings collected for skipped entries reach the caller only through
// that *ParseError: when at least one cue survives they are discarded and
// nothing is logged, and a block the cue regex does not match at all
// records no warning.
func Parse(data []byte) (*Document, error) {
	text := normalize(data)
	trimmed := strings.TrimLeft(text, " \t\n")

	if strings.HasPrefix(trimmed, "WEBVTT") {
		cues, warnings := parseVTT(text)
		doc := &Document{Format: VTT, Cues: cues}
		if len(cues) == 0 {
			return doc, &ParseError{Warnings: warnings}
		}
		return doc, nil
	}

	cues, warnings := parseSRT(text)
	doc := &Document{Format: SRT, Cues: cues}
	if len(cues) == 0 {
		return doc, &ParseError{Warnings: warnings}
	}
	return doc, nil
}

// normalize strips a UTF-8 BOM and canonicalizes CRLF/CR line endings to LF.
func normalize(data []byte) string {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	s := string(data)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return s
}

func parseSRT(text string) ([]Cue, []string) {
	var cues []Cue
	var warnings []string

	matches := srtCueRe.FindAllStringSubmatch(text, -1)
	for _, m := range matches {
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("skipping cue with unparsable index %q", m[1]))
			continue
		}
		start, err := parseTimestamp(m[2])
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("skipping cue %d: bad start timestamp %q", idx, m[2]))
			continue
		}
		end, err := parseTimestamp(m[3])
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("skipping cue %d: bad end timestamp %q", idx, m[3]))
			continue
		}
		if start > end {
			warnings = append(warnings, fmt.Sprintf("skipping cue %d: start after end", idx))
			continue
		}
		cues = append(cues, Cue{
			Index: idx,
			Start: start,
			End:   end,
			Text:  strings.TrimRight(m[4], "\n"),
		})
	}
	return cues, warnings
}

func parseVTT(text string) ([]Cue, []string) {
	// Drop everything up to and including the WEBVTT header line so the
	// header block (and any NOTE/STYLE blocks before the first cue) never
	// confuses the cue regex.
	if idx := strings.Index(text, "\n"); idx >= 0 {
		text = text[idx+1:]
	} else {
		text = ""
	}

	var cues []Cue
	var warnings []string
	autoIndex := 1

	matches := vttCueRe.FindAllStringSubmatch(text, -1)
	for _, m := range matches {
		start, err := parseTimestamp(m[2])
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("skipping vtt cue: bad start timestamp %q", m[2]))
			continue
		}
		end, err := parseTimestamp(m[3])
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("skipping vtt cue: bad end timestamp %q", m[3]))
			continue
		}
		if start > end {
			warnings = append(warnings, "skipping vtt cue: start after end")
			continue
		}

		idx := autoIndex
		if ident := strings.TrimSpace(m[1]); ident != "" {
			if n, err := strconv.Atoi(ident); err == nil {
				idx = n
			}
		}
		autoIndex++

		cues = append(cues, Cue{
			Index: idx,
			Start: start,
			End:   end,
			Text:  strings.TrimRight(m[4], "\n"),
		})
	}
	return cues, warnings
}

// parseTimestamp accepts both the SRT (",") and VTT (".") millisecond
// separators and returns the canonical internal duration.
func parseTimestamp(s string) (time.Duration, error) {
	m := srtTimestampRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid timestamp %q", s)
	}
	h, _ := strconv.Atoi(m[1])
	mi, _ := strconv.Atoi(m[2])
	sec, _ := strconv.Atoi(m[3])
	ms, _ := strconv.Atoi(m[4])
	d := time.Duration(h)*time.Hour +
		time.Duration(mi)*time.Minute +
		time.Duration(sec)*time.Second +
		time.Duration(ms)*time.Millisecond
	return d, nil
}

func formatTimestamp(d time.Duration, sep byte) string {
	if d < 0 {
		d = 0
	}
	totalMs := d.Milliseconds()
	h := totalMs / 3_600_000
	totalMs %= 3_600_000
	mi := totalMs / 60_000
	totalMs %= 60_000
	sec := totalMs / 1_000
	ms := totalMs % 1_000
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", h, mi, sec, sep, ms)
}

// GenerateSRT renders the document's cues as SRT text: each cue is
// "index NL start --> end NL text NL", one blank line between cues, none
// after the last.
func GenerateSRT(cues []Cue) string {
	var b strings.Builder
	for i, c := range cues {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n",
			c.Index, formatTimestamp(c.Start, ','), formatTimestamp(c.End, ','), c.Text)
	}
	return b.String()
}

// GenerateVTT renders the document's cues as VTT text, beginning with the
// mandatory "WEBVTT" header.
func GenerateVTT(cues []Cue) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for i, c := range cues {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n",
			c.Index, formatTimestamp(c.Start, '.'), formatTimestamp(c.End, '.'), c.Text)
	}
	return b.String()
}

// Generate renders the document using its own Format tag.
func (d *Document) Generate() string {
	if d.Format == VTT {
		return GenerateVTT(d.Cues)
	}
	return GenerateSRT(d.Cues)
}
