package flash

import (
	"log/slog"
	"os"
	"sort"

	"github.com/RoaringBitmap/roaring"
)

// ═══════════════════════════════════════════════════════════════════════════════
// FLASH BUILDER
// ═══════════════════════════════════════════════════════════════════════════════
// FlashBuilder accumulates documents into an in-memory InvertedIndex using
// whitespace-only tokenization (IndexTokens, not Analyze), then Flush walks
// every term and writes the files a persisted index consists of: the four
// posting streams, the doc store (store.fdx/store.fdt), the doc-length
// store (doclen.bin/meta.bin), the term dictionary payload (terms.tim),
// and the term index (terms.tip).
//
// This is the Go counterpart of the original engine's
// FlashEngineDumper::AddDocument / LoadLocalDocuments driving loop, built
// on top of this module's own InvertedIndex/ExportTerm rather than a
// second, parallel in-memory structure.
// ═══════════════════════════════════════════════════════════════════════════════

// FlashBuilder accumulates documents and flushes them to a persisted
// flash index directory.
type FlashBuilder struct {
	idx    *InvertedIndex
	cfg    Config
	bodies map[int][]byte
	// offsets[term][docID] holds the ordered (start,end) byte-offset
	// pairs for every occurrence of term in docID, in the same ascending
	// order as the positions ExportTerm returns for that (term, docID).
	offsets   map[string]map[int][][2]int
	nextDocID int
}

// NewFlashBuilder returns an empty builder.
func NewFlashBuilder(cfg Config) *FlashBuilder {
	return &FlashBuilder{
		idx:     NewInvertedIndex(),
		cfg:     cfg,
		bodies:  make(map[int][]byte),
		offsets: make(map[string]map[int][][2]int),
	}
}

// AddDocument tokenizes body on whitespace, indexes it, and records its
// body and per-term offsets for later flush. Returns the assigned doc id.
func (b *FlashBuilder) AddDocument(body string) int {
	tokens, offsets := whitespaceTokensWithOffsets(body)
	return b.AddParsedDocument(body, tokens, offsets)
}

// AddParsedDocument indexes body using a caller-supplied, already-aligned
// tokens/offsets pair (one offset per token, in document order) instead of
// deriving them by whitespace splitting — used by the line-doc ingestion
// path when a line supplies its own token/offset/position columns.
// Returns the assigned doc id.
func (b *FlashBuilder) AddParsedDocument(body string, tokens []string, offsets [][2]int) int {
	docID := b.nextDocID
	b.nextDocID++

	b.idx.IndexTokens(docID, tokens)
	b.bodies[docID] = []byte(body)

	for i, tok := range tokens {
		if _, ok := b.offsets[tok]; !ok {
			b.offsets[tok] = make(map[int][][2]int)
		}
		b.offsets[tok][docID] = append(b.offsets[tok][docID], offsets[i])
	}

	return docID
}

// whitespaceTokensWithOffsets splits body on whitespace, returning both
// the tokens and their (start,end) byte offsets within body, in order.
func whitespaceTokensWithOffsets(body string) ([]string, [][2]int) {
	var tokens []string
	var spans [][2]int

	inToken := false
	start := 0
	for i, r := range body {
		isSpace := r == ' ' || r == '\t' || r == '\n' || r == '\r'
		if !isSpace && !inToken {
			start = i
			inToken = true
		} else if isSpace && inToken {
			tokens = append(tokens, body[start:i])
			spans = append(spans, [2]int{start, i})
			inToken = false
		}
	}
	if inToken {
		tokens = append(tokens, body[start:])
		spans = append(spans, [2]int{start, len(body)})
	}
	return tokens, spans
}

// Flush writes the persisted index to dir, creating it if necessary.
func (b *FlashBuilder) Flush(dir string) error {
	if err := os.MkdirAll(dir, 0777); err != nil {
		return newFlashError(KindIO, dir, err)
	}

	streams, err := openStreamSet(dir)
	if err != nil {
		return err
	}
	defer streams.Close()

	docStore, err := NewDocStoreWriter(dir)
	if err != nil {
		return err
	}
	defer docStore.Close()

	for docID := 0; docID < b.nextDocID; docID++ {
		if err := docStore.Add(uint32(docID), b.bodies[docID]); err != nil {
			return err
		}
	}

	lengths := make([]uint32, b.nextDocID)
	for docID, stats := range b.idx.DocStats {
		lengths[docID] = uint32(stats.Length)
	}
	if err := WriteDocLengthStore(dir+"/doclen.bin", dir+"/meta.bin", lengths); err != nil {
		return err
	}

	terms := b.idx.Terms()
	sort.Strings(terms)

	termOffsets := make(map[string]int64)
	var dictOffset int64

	dict, err := os.OpenFile(dir+"/terms.tim", os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return newFlashError(KindIO, dir, err)
	}
	defer dict.Close()

	for _, term := range terms {
		postings := b.idx.ExportTerm(term)
		sort.Slice(postings, func(i, j int) bool { return postings[i].DocID < postings[j].DocID })

		entry, payload, err := b.buildTermEntry(term, postings, streams)
		if err != nil {
			return err
		}
		_ = entry // only the serialized payload is persisted; the entry itself is not kept

		termOffsets[term] = dictOffset
		n, err := dict.Write(payload)
		if err != nil {
			return newFlashError(KindIO, "terms.tim", err)
		}
		dictOffset += int64(n)
	}

	if err := streams.Flush(); err != nil {
		return err
	}
	if err := WriteTermIndexFile(dir+"/terms.tip", termOffsets); err != nil {
		return err
	}

	slog.Info("flushed flash index", slog.String("dir", dir), slog.Int("terms", len(terms)), slog.Int("docs", b.nextDocID))
	return nil
}

// buildTermEntry writes one term's postings to the shared stream files
// (or keeps them inline, depending on document frequency) and returns its
// dictionary entry plus a serialized payload record for terms.tim. The
// payload format here is deliberately minimal (kind byte + doc_freq +
// fixed-width offsets for skip-list terms, or a length-prefixed inline
// blob) since the term index already gives random access to each record's
// start; nothing else needs to scan terms.tim sequentially.
func (b *FlashBuilder) buildTermEntry(term string, postings []TermPosting, streams *streamSet) (*TermDictEntry, []byte, error) {
	docFreq := len(postings)

	if docFreq < b.cfg.InlinePostingThreshold {
		return b.buildInlineEntry(term, postings)
	}
	return b.buildSkipListEntry(term, postings, streams)
}

func (b *FlashBuilder) buildInlineEntry(term string, postings []TermPosting) (*TermDictEntry, []byte, error) {
	bitmap := roaring.NewBitmap()
	inline := make([]InlinePosting, len(postings))

	for i, p := range postings {
		bitmap.Add(uint32(p.DocID))
		positions := make([]uint32, len(p.Positions))
		for j, pos := range p.Positions {
			positions[j] = uint32(pos)
		}
		offsetPairs := b.offsets[term][p.DocID]
		offs := make([]uint32, 0, len(offsetPairs)*2)
		for _, pair := range offsetPairs {
			offs = append(offs, uint32(pair[0]), uint32(pair[1]))
		}
		inline[i] = InlinePosting{
			DocID:     uint32(p.DocID),
			TermFreq:  uint32(p.TermFreq),
			Positions: positions,
			Offsets:   offs,
		}
	}

	entry := &TermDictEntry{
		Term:           term,
		DocFreq:        uint32(docFreqOf(postings)),
		Kind:           TermKindInline,
		InlineBitmap:   bitmap,
		InlinePostings: inline,
	}

	payload := encodeInlinePayload(entry)
	return entry, payload, nil
}

func (b *FlashBuilder) buildSkipListEntry(term string, postings []TermPosting, streams *streamSet) (*TermDictEntry, []byte, error) {
	docIDs := make([]uint32, len(postings))
	tfs := make([]uint32, len(postings))
	var flatPositions []uint32
	var flatOffsets []uint32
	posGroupSizes := make([]int, len(postings))
	offGroupSizes := make([]int, len(postings))

	for i, p := range postings {
		docIDs[i] = uint32(p.DocID)
		tfs[i] = uint32(p.TermFreq)
		posGroupSizes[i] = len(p.Positions)
		for _, pos := range p.Positions {
			flatPositions = append(flatPositions, uint32(pos))
		}
		offsetPairs := b.offsets[term][p.DocID]
		offGroupSizes[i] = len(offsetPairs) * 2
		for _, pair := range offsetPairs {
			flatOffsets = append(flatOffsets, uint32(pair[0]), uint32(pair[1]))
		}
	}

	docIDDeltas := DeltaEncodeRunning(docIDs)
	posDeltas := DeltaEncodeVariableGroups(flatPositions, posGroupSizes)
	offDeltas := DeltaEncodeVariableGroups(flatOffsets, offGroupSizes)

	docIDOffs, err := dumpValueStream(streams.docIDs, docIDDeltas)
	if err != nil {
		return nil, nil, err
	}
	tfOffs, err := dumpValueStream(streams.termFreqs, tfs)
	if err != nil {
		return nil, nil, err
	}
	posOffs, err := dumpValueStream(streams.positions, posDeltas)
	if err != nil {
		return nil, nil, err
	}
	offOffs, err := dumpValueStream(streams.offsets, offDeltas)
	if err != nil {
		return nil, nil, err
	}

	skipList := BuildDiskSkipList(docIDs, docIDOffs)

	entry := &TermDictEntry{
		Term:          term,
		DocFreq:       uint32(len(postings)),
		Kind:          TermKindSkipList,
		SkipList:      skipList,
		DocIDStart:    streamStart(docIDOffs),
		TermFreqStart: streamStart(tfOffs),
		PositionStart: streamStart(posOffs),
		OffsetStart:   streamStart(offOffs),
		PositionCount: uint32(len(flatPositions)),
		OffsetCount:   uint32(len(flatOffsets)),
	}

	payload := encodeSkipListPayload(entry)
	return entry, payload, nil
}

func dumpValueStream(d *streamDumper, values []uint32) (PackOffsets, error) {
	builder := NewTermEntryBuilder()
	for _, v := range values {
		builder.Add(v)
	}
	blocks, tail := builder.Blocks()
	return d.Dump(blocks, tail)
}

func docFreqOf(postings []TermPosting) int {
	return len(postings)
}
