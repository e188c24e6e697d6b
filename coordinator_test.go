package flash

import "testing"

func buildAndOpen(t *testing.T, cfg Config, docs []string) *IndexReader {
	t.Helper()
	dir := t.TempDir()

	b := NewFlashBuilder(cfg)
	for _, d := range docs {
		b.AddDocument(d)
	}
	if err := b.Flush(dir); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	r, err := OpenIndexReader(dir)
	if err != nil {
		t.Fatalf("OpenIndexReader: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestFlashSearcher_ConjunctiveQueryRanksByBM25(t *testing.T) {
	cfg := DefaultFlashConfig()
	docs := []string{
		"the quick brown fox jumps over the lazy dog",
		"the lazy dog sleeps all day",
		"quick foxes are quick",
	}
	r := buildAndOpen(t, cfg, docs)
	searcher := NewFlashSearcher(r, cfg)

	result, err := searcher.Search(SearchQuery{Terms: []string{"quick"}, NResults: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Size() != 2 {
		t.Fatalf("got %d results, want 2 (docs 0 and 2 contain \"quick\")", result.Size())
	}
	seen := make(map[uint32]bool)
	for _, e := range result.Entries {
		seen[e.DocID] = true
	}
	if !seen[0] || !seen[2] {
		t.Errorf("expected docs 0 and 2 among results, got %+v", result.Entries)
	}
	// doc 2 is shorter and has "quick" twice, so BM25 ranks it first.
	if result.Entries[0].DocID != 2 {
		t.Errorf("top result = doc %d, want doc 2", result.Entries[0].DocID)
	}
}

func TestFlashSearcher_UnknownTermYieldsEmptyResult(t *testing.T) {
	cfg := DefaultFlashConfig()
	r := buildAndOpen(t, cfg, []string{"alpha beta gamma"})
	searcher := NewFlashSearcher(r, cfg)

	result, err := searcher.Search(SearchQuery{Terms: []string{"nonexistent"}, NResults: 5})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Size() != 0 {
		t.Errorf("got %d results, want 0 for an unknown term", result.Size())
	}
}

func TestFlashSearcher_TwoTermIntersectionOnlyMatchesBoth(t *testing.T) {
	cfg := DefaultFlashConfig()
	docs := []string{
		"alpha beta",
		"alpha gamma",
		"beta gamma",
	}
	r := buildAndOpen(t, cfg, docs)
	searcher := NewFlashSearcher(r, cfg)

	result, err := searcher.Search(SearchQuery{Terms: []string{"alpha", "beta"}, NResults: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Size() != 1 || result.Entries[0].DocID != 0 {
		t.Errorf("got %+v, want only doc 0 to satisfy both terms", result.Entries)
	}
}

func TestFlashSearcher_PhraseQueryRequiresAdjacency(t *testing.T) {
	cfg := DefaultFlashConfig()
	docs := []string{
		"brown fox jumps",
		"fox brown jumps",
	}
	r := buildAndOpen(t, cfg, docs)
	searcher := NewFlashSearcher(r, cfg)

	result, err := searcher.Search(SearchQuery{Terms: []string{"brown", "fox"}, NResults: 10, IsPhrase: true})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Size() != 1 || result.Entries[0].DocID != 0 {
		t.Errorf("got %+v, want only doc 0 to match the literal phrase \"brown fox\"", result.Entries)
	}
}

func TestFlashSearcher_SnippetsAreHighlighted(t *testing.T) {
	cfg := DefaultFlashConfig()
	docs := []string{"hello world, a friendly greeting to the world"}
	r := buildAndOpen(t, cfg, docs)
	searcher := NewFlashSearcher(r, cfg)

	result, err := searcher.Search(SearchQuery{Terms: []string{"world"}, NResults: 1, ReturnSnippets: true})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Size() != 1 {
		t.Fatalf("got %d results, want 1", result.Size())
	}
	if result.Entries[0].Snippet == "" {
		t.Error("expected a non-empty snippet")
	}
}

// TestFlashSearcher_ReferenceCorpus exercises the full build-flush-search
// path over the corpus {"hello world", "hello wisconsin", "hello world
// big world"}: query "hello world" should surface docs 0 and 2 (doc 1 has
// neither "world"), with BM25 scores matching ElasticSearch's defaults to
// 3 significant digits.
func TestFlashSearcher_ReferenceCorpus(t *testing.T) {
	cfg := DefaultFlashConfig()
	docs := []string{
		"hello world",
		"hello wisconsin",
		"hello world big world",
	}
	r := buildAndOpen(t, cfg, docs)
	searcher := NewFlashSearcher(r, cfg)

	result, err := searcher.Search(SearchQuery{Terms: []string{"hello", "world"}, NResults: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Size() != 2 {
		t.Fatalf("got %d results, want 2 (docs 0 and 2)", result.Size())
	}

	scores := make(map[uint32]float64, 2)
	for _, e := range result.Entries {
		scores[e.DocID] = e.DocScore
	}
	if !almostEqual(scores[0], 0.672, 0.005) {
		t.Errorf("doc0 score = %f, want ~0.672", scores[0])
	}
	if !almostEqual(scores[2], 0.677, 0.005) {
		t.Errorf("doc2 score = %f, want ~0.677", scores[2])
	}
}

// TestHighlight_ReferenceExample is the literal highlighter-determinism
// example: body "hello world" with recorded offset ranges (0,5) for
// "hello" and (6,11) for "world" must highlight both terms in
// left-to-right order.
func TestHighlight_ReferenceExample(t *testing.T) {
	body := "hello world"
	ranges := [][2]int{{0, 5}, {6, 11}}
	got := Highlight(body, ranges)
	want := `<b>hello<\b> <b>world<\b>`
	if got != want {
		t.Errorf("Highlight = %q, want %q", got, want)
	}
}

func TestFlashSearcher_InlineAndSkipListTermsBothResolve(t *testing.T) {
	cfg := DefaultFlashConfig()
	cfg.InlinePostingThreshold = 2 // force a mix of inline and skip-list terms

	docs := make([]string, 5)
	for i := range docs {
		docs[i] = "common rare" + string(rune('a'+i))
	}
	r := buildAndOpen(t, cfg, docs)
	searcher := NewFlashSearcher(r, cfg)

	result, err := searcher.Search(SearchQuery{Terms: []string{"common"}, NResults: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Size() != 5 {
		t.Errorf("got %d results, want all 5 docs to match the common (skip-list) term", result.Size())
	}

	result, err = searcher.Search(SearchQuery{Terms: []string{"rarec"}, NResults: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Size() != 1 || result.Entries[0].DocID != 2 {
		t.Errorf("got %+v, want only doc 2 to match the rarec (inline) term", result.Entries)
	}
}
