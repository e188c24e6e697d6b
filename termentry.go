package flash

// ═══════════════════════════════════════════════════════════════════════════════
// TERM ENTRY BUILDER
// ═══════════════════════════════════════════════════════════════════════════════
// A TermEntryBuilder buffers the delta-encoded values for one stream of one
// term (doc-ids, term frequencies, positions, or offsets) and splits them
// into full PackedBlockSize-value packed blocks plus a VarInt-encoded tail
// for the remainder.
//
// Doc-id deltas run continuously across the whole posting list (delta
// against the previous doc-id, starting from zero). Term-frequency values
// are not delta-encoded at all. Position and offset deltas reset to zero
// at each posting boundary, so each document's group is encoded against
// a fresh previous value of 0.
// ═══════════════════════════════════════════════════════════════════════════════

// TermEntryBuilder accumulates a flat value stream and emits it as packed
// blocks plus a VarInt tail.
type TermEntryBuilder struct {
	values []uint32
}

// NewTermEntryBuilder returns an empty builder.
func NewTermEntryBuilder() *TermEntryBuilder {
	return &TermEntryBuilder{}
}

// Add appends one value to the stream.
func (b *TermEntryBuilder) Add(v uint32) {
	b.values = append(b.values, v)
}

// Len returns the number of values accumulated.
func (b *TermEntryBuilder) Len() int {
	return len(b.values)
}

// Blocks splits the accumulated values into full packed blocks and a
// VarInt-encoded tail for anything left over.
func (b *TermEntryBuilder) Blocks() (blocks [][PackedBlockSize]uint32, tail []byte) {
	n := len(b.values)
	nBlocks := n / PackedBlockSize

	blocks = make([][PackedBlockSize]uint32, nBlocks)
	for i := 0; i < nBlocks; i++ {
		copy(blocks[i][:], b.values[i*PackedBlockSize:(i+1)*PackedBlockSize])
	}

	vb := NewVarintBuffer()
	for i := nBlocks * PackedBlockSize; i < n; i++ {
		vb.Append(b.values[i])
	}
	return blocks, vb.Data()
}

// DeltaEncodeRunning delta-encodes values against a single running
// previous value across the whole slice — used for the doc-id stream,
// which deltas continuously across all postings of a term.
func DeltaEncodeRunning(values []uint32) []uint32 {
	out := make([]uint32, len(values))
	var prev uint32
	for i, v := range values {
		out[i] = v - prev
		prev = v
	}
	return out
}

// DeltaEncodePerGroup delta-encodes values in independent groups, each of
// size groupSize, resetting the running previous to zero at the start of
// every group — used for positions and offsets, which reset per posting.
func DeltaEncodePerGroup(values []uint32, groupSize int) []uint32 {
	out := make([]uint32, len(values))
	for g := 0; g < len(values); g += groupSize {
		end := g + groupSize
		if end > len(values) {
			end = len(values)
		}
		var prev uint32
		for i := g; i < end; i++ {
			out[i] = values[i] - prev
			prev = values[i]
		}
	}
	return out
}

// DeltaEncodeVariableGroups is DeltaEncodePerGroup generalized to groups
// of differing sizes, one per posting (a term's postings rarely share the
// same term frequency, so positions/offsets groups vary in length).
func DeltaEncodeVariableGroups(values []uint32, groupSizes []int) []uint32 {
	out := make([]uint32, len(values))
	idx := 0
	for _, size := range groupSizes {
		var prev uint32
		for i := 0; i < size; i++ {
			out[idx] = values[idx] - prev
			prev = values[idx]
			idx++
		}
	}
	return out
}
