package flash

import "testing"

func TestHighlight_SingleRange(t *testing.T) {
	got := Highlight("hello world", [][2]int{{0, 5}})
	want := `<b>hello<\b> world`
	if got != want {
		t.Errorf("Highlight = %q, want %q", got, want)
	}
}

func TestHighlight_MultipleRanges(t *testing.T) {
	got := Highlight("The Quick Brown Fox", [][2]int{{4, 9}, {16, 19}})
	want := `The <b>Quick<\b> Brown <b>Fox<\b>`
	if got != want {
		t.Errorf("Highlight = %q, want %q", got, want)
	}
}

func TestHighlight_OverlappingRangesMerge(t *testing.T) {
	got := Highlight("brown fox jumps", [][2]int{{0, 9}, {6, 15}})
	want := `<b>brown fox jumps<\b>`
	if got != want {
		t.Errorf("Highlight = %q, want %q", got, want)
	}
}

func TestHighlight_NoRangesReturnsOriginal(t *testing.T) {
	got := Highlight("nothing matches here", nil)
	if got != "nothing matches here" {
		t.Errorf("Highlight = %q, want unchanged text", got)
	}
}

func TestHighlight_WordBoundary_DoesNotLightUpSubstringMatches(t *testing.T) {
	// "cat" occurs only as a real token at [0,3); "category" is a
	// different token entirely and must not be touched even though it
	// contains the substring "cat".
	body := "cat category"
	got := Highlight(body, [][2]int{{0, 3}})
	want := `<b>cat<\b> category`
	if got != want {
		t.Errorf("Highlight = %q, want %q", got, want)
	}
}

func TestSentenceBreaks_KeepsAbbreviationsAndDecimalsIntact(t *testing.T) {
	body := "The price is 3.14 dollars. It shipped from the U.S. yesterday."
	breaks := sentenceBreaks(body)

	if len(breaks) == 0 {
		t.Fatal("expected at least one break")
	}
	if breaks[len(breaks)-1] != len(body) {
		t.Errorf("last break should be len(body)=%d, got %d", len(body), breaks[len(breaks)-1])
	}

	// "3.14" and "U.S." must not have caused a break in the middle.
	for _, bad := range []string{"3.1", "U.S", "U."} {
		idx := indexOfSubstr(body, bad)
		if idx < 0 {
			continue
		}
		splitPoint := idx + len(bad)
		for _, b := range breaks {
			if b == splitPoint {
				t.Errorf("unexpected sentence break inside %q at offset %d", bad, b)
			}
		}
	}
}

func indexOfSubstr(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func TestScorePassages_RanksHigherCoverageFirst(t *testing.T) {
	body := "Cats are small. Cats and dogs are common pets."
	matches := []TermMatch{
		{Term: "cats", Weight: 1.0, Ranges: [][2]int{{0, 4}, {16, 20}}},
		{Term: "dogs", Weight: 2.0, Ranges: [][2]int{{25, 29}}},
	}

	passages := ScorePassages(body, matches)
	if len(passages) != 2 {
		t.Fatalf("got %d passages, want 2", len(passages))
	}
	// The second sentence matches both terms, so it should score higher.
	top := body[passages[0].Start:passages[0].End]
	if top != "Cats and dogs are common pets." {
		t.Errorf("top passage = %q, want second sentence", top)
	}
	if passages[0].Score <= passages[1].Score {
		t.Errorf("top passage score %f should exceed runner-up %f", passages[0].Score, passages[1].Score)
	}
}

func TestTopSnippets_RespectsLimit(t *testing.T) {
	body := "One fox. Two fox. Three fox. Four fox."
	var ranges [][2]int
	for _, needle := range []string{"One fox", "Two fox", "Three fox", "Four fox"} {
		idx := indexOfSubstr(body, needle)
		ranges = append(ranges, [2]int{idx + len(needle) - 3, idx + len(needle)})
	}
	matches := []TermMatch{{Term: "fox", Weight: 1.0, Ranges: ranges}}

	snippets := TopSnippets(body, matches, 2)
	if len(snippets) != 2 {
		t.Fatalf("got %d snippets, want 2", len(snippets))
	}
	for _, s := range snippets {
		if !containsTag(s) {
			t.Errorf("snippet %q missing highlight tags", s)
		}
	}
}

func containsTag(s string) bool {
	return indexOfSubstr(s, "<b>") >= 0
}
