package flash

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ═══════════════════════════════════════════════════════════════════════════════
// HIGHLIGHTER
// ═══════════════════════════════════════════════════════════════════════════════
// Splits a document body into sentence-like passages, scores each passage
// by how many distinct query terms it covers (weighted by how rare each
// term is), and returns the top N passages with matched terms wrapped in
// <b>...<\b> markers.
//
// Match locations come from the posting data itself (PostingIterator.
// Offsets, populated from each term's recorded token spans at ingest
// time) rather than a second text scan, so a query for "cat" never lights
// up the middle of "category" the way a substring search would.
//
// Sentence breaking here is a simplified, UAX #29-inspired heuristic, not
// a literal ICU break-iterator port (Open Question #2 in SPEC_FULL.md
// §11): break after '.', '!', or '?' followed by whitespace or end of
// text, but never inside a run of digits (keep "3.14" intact) and never
// after a single capital letter followed by a period (keep "U.S." intact).
// ═══════════════════════════════════════════════════════════════════════════════

// Passage is one candidate snippet: its byte offsets within the document
// body and its coverage score.
type Passage struct {
	Start, End int
	Score      float64
}

// TermMatch is one query term's weight (its IDF, for scoring) and the
// byte ranges within a single document body where it was found, as read
// from that term's offset posting stream.
type TermMatch struct {
	Term   string
	Weight float64
	Ranges [][2]int
}

// sentenceBreaks returns the byte offsets in body where a sentence ends
// (i.e. passage boundaries), always including len(body) as the final
// boundary.
func sentenceBreaks(body string) []int {
	var breaks []int
	runes := []rune(body)
	byteOffset := 0

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		byteLen := utf8.RuneLen(r)

		isBreakChar := r == '.' || r == '!' || r == '?'
		if isBreakChar {
			prevDigit := i > 0 && unicode.IsDigit(runes[i-1])
			nextDigit := i+1 < len(runes) && unicode.IsDigit(runes[i+1])
			isAbbreviation := i >= 1 && unicode.IsUpper(runes[i-1]) &&
				(i < 2 || !unicode.IsLetter(runes[i-2]))

			nextIsSpaceOrEnd := i+1 >= len(runes) || unicode.IsSpace(runes[i+1])

			if !prevDigit && !nextDigit && !isAbbreviation && nextIsSpaceOrEnd {
				breaks = append(breaks, byteOffset+byteLen)
			}
		}
		byteOffset += byteLen
	}

	if len(breaks) == 0 || breaks[len(breaks)-1] != len(body) {
		breaks = append(breaks, len(body))
	}
	return breaks
}

// rangeOverlaps reports whether byte range [start,end) overlaps [rs,re).
func rangeOverlaps(start, end, rs, re int) bool {
	return rs < end && re > start
}

// ScorePassages splits body into sentence-bounded passages and scores
// each by term-weight × distinct-term-coverage: each matched distinct
// term contributes its IDF weight, and the passage's score is further
// boosted by a coverage bonus proportional to how many of the distinct
// query terms it contains. A term counts as present in a passage only if
// one of its recorded offset ranges falls inside the passage's bytes.
// Whitespace following a sentence break is not part of the next passage.
func ScorePassages(body string, matches []TermMatch) []Passage {
	breaks := sentenceBreaks(body)
	passages := make([]Passage, 0, len(breaks))

	start := 0
	for _, end := range breaks {
		for start < end {
			r, size := utf8.DecodeRuneInString(body[start:end])
			if !unicode.IsSpace(r) {
				break
			}
			start += size
		}
		if end <= start {
			start = end
			continue
		}

		var weightSum float64
		var distinctMatches int
		for _, m := range matches {
			if passageContainsTerm(m, start, end) {
				weightSum += m.Weight
				distinctMatches++
			}
		}

		if distinctMatches > 0 {
			coverageBonus := float64(distinctMatches) / float64(len(matches))
			passages = append(passages, Passage{
				Start: start,
				End:   end,
				Score: weightSum * (1 + coverageBonus),
			})
		}
		start = end
	}

	sort.SliceStable(passages, func(i, j int) bool {
		return passages[i].Score > passages[j].Score
	})
	return passages
}

func passageContainsTerm(m TermMatch, start, end int) bool {
	for _, r := range m.Ranges {
		if rangeOverlaps(start, end, r[0], r[1]) {
			return true
		}
	}
	return false
}

// Highlight wraps every byte range in ranges within text with
// <b>...<\b> markers. ranges are byte offsets into text; overlapping or
// adjacent ranges are merged so that e.g. "brown fox" and "fox" don't
// double-wrap.
func Highlight(text string, ranges [][2]int) string {
	if len(ranges) == 0 {
		return text
	}

	clipped := make([][2]int, 0, len(ranges))
	for _, r := range ranges {
		start, end := r[0], r[1]
		if start < 0 {
			start = 0
		}
		if end > len(text) {
			end = len(text)
		}
		if start < end {
			clipped = append(clipped, [2]int{start, end})
		}
	}
	if len(clipped) == 0 {
		return text
	}

	sort.Slice(clipped, func(i, j int) bool { return clipped[i][0] < clipped[j][0] })

	merged := clipped[:1]
	for _, r := range clipped[1:] {
		last := &merged[len(merged)-1]
		if r[0] <= last[1] {
			if r[1] > last[1] {
				last[1] = r[1]
			}
			continue
		}
		merged = append(merged, r)
	}

	var b strings.Builder
	prev := 0
	for _, r := range merged {
		b.WriteString(text[prev:r[0]])
		b.WriteString("<b>")
		b.WriteString(text[r[0]:r[1]])
		b.WriteString(`<\b>`)
		prev = r[1]
	}
	b.WriteString(text[prev:])
	return b.String()
}

// TopSnippets returns up to n the highest-scoring passages from body,
// each annotated with <b>...<\b> markers around the matched terms'
// recorded offset ranges, in descending score order.
func TopSnippets(body string, matches []TermMatch, n int) []string {
	passages := ScorePassages(body, matches)
	if len(passages) > n {
		passages = passages[:n]
	}

	snippets := make([]string, len(passages))
	for i, p := range passages {
		snippets[i] = Highlight(body[p.Start:p.End], localRanges(matches, p.Start, p.End))
	}
	return snippets
}

// localRanges collects every match range overlapping [start,end), clipped
// and shifted to be relative to start, for use with a body[start:end]
// substring.
func localRanges(matches []TermMatch, start, end int) [][2]int {
	var out [][2]int
	for _, m := range matches {
		for _, r := range m.Ranges {
			if !rangeOverlaps(start, end, r[0], r[1]) {
				continue
			}
			rs, re := r[0], r[1]
			if rs < start {
				rs = start
			}
			if re > end {
				re = end
			}
			out = append(out, [2]int{rs - start, re - start})
		}
	}
	return out
}
