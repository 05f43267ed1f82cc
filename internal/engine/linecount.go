package engine

import "strings"

// splitSearchWindow bounds how far from the exact midpoint of an
// over-long line EnforceLineCount will look for a whitespace boundary to
// split on.
const splitSearchWindow = 15

// EnforceLineCount adjusts translated so it renders on exactly expected
// lines, the way the source cue did. Providers routinely return a
// translation that reads correctly but wraps onto the wrong number of
// lines for the subtitle's on-screen timing; left alone this produces
// cues that either overflow their box or flash by too fast to read.
//
//   - Too many lines: collapse them into expected groups, joining a
//     contiguous run of original lines with a space per group, so the
//     original line order survives even though the grouping does not.
//   - Too few lines: repeatedly split the longest current line at the
//     nearest word boundary to its midpoint, searching up to
//     splitSearchWindow characters either side. A line with no splittable
//     boundary in range is left as-is rather than forced apart mid-word.
func EnforceLineCount(text string, expected int) string {
	if expected <= 0 {
		return text
	}
	lines := strings.Split(text, "\n")
	switch {
	case len(lines) == expected:
		return text
	case len(lines) > expected:
		return strings.Join(collapseLines(lines, expected), "\n")
	default:
		return strings.Join(splitLines(lines, expected), "\n")
	}
}

// collapseLines distributes n source lines across target groups as
// evenly as possible, preserving reading order within and across groups.
func collapseLines(lines []string, target int) []string {
	if target <= 1 {
		return []string{strings.Join(lines, " ")}
	}
	n := len(lines)
	base := n / target
	rem := n % target
	groups := make([]string, 0, target)
	idx := 0
	for g := 0; g < target; g++ {
		size := base
		if g < rem {
			size++
		}
		if size == 0 {
			groups = append(groups, "")
			continue
		}
		groups = append(groups, strings.Join(lines[idx:idx+size], " "))
		idx += size
	}
	return groups
}

// splitLines repeatedly splits the current longest line until there are
// target lines or no line has a splittable word boundary left.
func splitLines(lines []string, target int) []string {
	result := append([]string(nil), lines...)
	for len(result) < target {
		longest := longestIndex(result)
		left, right, ok := splitAtBoundary(result[longest])
		if !ok {
			break
		}
		result = append(result[:longest], append([]string{left, right}, result[longest+1:]...)...)
	}
	return result
}

func longestIndex(lines []string) int {
	best := 0
	for i, l := range lines {
		if len(l) > len(lines[best]) {
			best = i
		}
	}
	return best
}

// splitAtBoundary splits s on the whitespace nearest its midpoint, within
// splitSearchWindow characters either side. It reports false if no such
// boundary exists, so the caller knows not to force a mid-word break.
func splitAtBoundary(s string) (left, right string, ok bool) {
	mid := len(s) / 2
	lo := mid - splitSearchWindow
	if lo < 0 {
		lo = 0
	}
	hi := mid + splitSearchWindow + 1
	if hi > len(s) {
		hi = len(s)
	}

	best := -1
	bestDist := splitSearchWindow + 1
	for i := lo; i < hi; i++ {
		if s[i] != ' ' {
			continue
		}
		d := i - mid
		if d < 0 {
			d = -d
		}
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	if best == -1 {
		return s, "", false
	}
	return strings.TrimSpace(s[:best]), strings.TrimSpace(s[best+1:]), true
}
