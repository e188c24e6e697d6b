package flash

// ═══════════════════════════════════════════════════════════════════════════════
// STREAM DECODING
// ═══════════════════════════════════════════════════════════════════════════════
// Helpers that turn a term's raw bytes in a shared stream file back into
// value slices. A term's own packed blocks and VarInt tail are always
// written contiguously within a stream file (the builder dumps one term
// entirely in a single pass), so decoding only needs the byte offset
// where that contiguous run starts plus the total value count.
// ═══════════════════════════════════════════════════════════════════════════════

// streamStart resolves the absolute file offset where a dumped value
// stream's contiguous run begins: the first packed block's offset, or
// (if the term had fewer than PackedBlockSize values) the tail's offset.
func streamStart(offs PackOffsets) int64 {
	if len(offs.PackOffs) > 0 {
		return offs.PackOffs[0]
	}
	return offs.TailOff
}

// decodeFullStream decodes every value of a term's entry from a shared
// stream file's bytes, given the offset its contiguous run of blocks (and
// tail) begins at and the total number of values the entry holds.
func decodeFullStream(data []byte, start int64, totalValues int) ([]uint32, error) {
	if totalValues == 0 {
		return nil, nil
	}

	nBlocks := totalValues / PackedBlockSize
	remainder := totalValues % PackedBlockSize

	values := make([]uint32, 0, totalValues)
	pos := int(start)

	for b := 0; b < nBlocks; b++ {
		block, n, err := DecodePackedBlock(data[pos:])
		if err != nil {
			return nil, err
		}
		for i := 0; i < PackedBlockSize; i++ {
			values = append(values, block.Get(i))
		}
		pos += n
	}

	if remainder > 0 {
		it := NewVarintIterator(data[pos:])
		for i := 0; i < remainder; i++ {
			v, ok := it.Next()
			if !ok {
				return nil, newFlashError(KindInvariant, "stream tail truncated", ErrCorruptBlock)
			}
			values = append(values, v)
		}
	}

	return values, nil
}

// decodeDeltaStream decodes a term's doc-id or term-frequency stream.
// Doc-ids are delta-encoded continuously across the whole posting list
// (runningDelta == true, reverse with a running prefix sum); term
// frequencies are stored raw (runningDelta == false).
func decodeDeltaStream(data []byte, start int64, count int, runningDelta bool) ([]uint32, error) {
	raw, err := decodeFullStream(data, start, count)
	if err != nil {
		return nil, err
	}
	if !runningDelta {
		return raw, nil
	}
	var prev uint32
	for i, d := range raw {
		prev += d
		raw[i] = prev
	}
	return raw, nil
}

// decodeRange decodes only values [from, to) of a term's stream, given the
// offset its contiguous run of blocks (and tail) begins at and the total
// number of values the entry holds. Blocks entirely outside [from, to) are
// still parsed (their width header has to be read to know how many bytes
// to skip), but none of their values are extracted or copied — only the
// blocks actually overlapping the requested range pay the per-value Get
// cost. This is what lets Positions/Offsets pull a single posting's group
// out of a large term without materializing every posting's.
func decodeRange(data []byte, start int64, totalValues int, from, to int) ([]uint32, error) {
	if from >= to {
		return nil, nil
	}

	nBlocks := totalValues / PackedBlockSize
	remainder := totalValues % PackedBlockSize

	out := make([]uint32, 0, to-from)
	pos := int(start)

	for b := 0; b < nBlocks && len(out) < to-from; b++ {
		block, n, err := DecodePackedBlock(data[pos:])
		if err != nil {
			return nil, err
		}
		blockBase := b * PackedBlockSize
		if blockBase+PackedBlockSize > from && blockBase < to {
			lo, hi := 0, PackedBlockSize
			if blockBase < from {
				lo = from - blockBase
			}
			if blockBase+PackedBlockSize > to {
				hi = to - blockBase
			}
			for i := lo; i < hi; i++ {
				out = append(out, block.Get(i))
			}
		}
		pos += n
	}

	if remainder > 0 && len(out) < to-from {
		tailBase := nBlocks * PackedBlockSize
		it := NewVarintIterator(data[pos:])
		for i := 0; i < remainder; i++ {
			v, ok := it.Next()
			if !ok {
				return nil, newFlashError(KindInvariant, "stream tail truncated", ErrCorruptBlock)
			}
			gi := tailBase + i
			if gi >= from && gi < to {
				out = append(out, v)
			}
		}
	}

	return out, nil
}

// groupBounds computes a single posting's [start, start+size) range within
// a flattened position/offset stream, given every posting's group size
// (tf for positions, 2*tf for offsets) in this term. multiplier is 1 for
// positions and 2 for (start,end) offset pairs.
func groupBounds(termFreqs []uint32, idx, multiplier int) (groupStart, groupSize int) {
	for i := 0; i < idx; i++ {
		groupStart += int(termFreqs[i]) * multiplier
	}
	groupSize = int(termFreqs[idx]) * multiplier
	return groupStart, groupSize
}

// decodeInlineGroup decodes the position or offset values belonging to a
// single posting (identified by idx within termFreqs) from a shared
// stream whose values are delta-encoded per-posting (the running delta
// resets to zero at every posting boundary). multiplier is 1 for
// positions and 2 for (start,end) offset pairs. total is the stream's
// full value count, needed to know where its VarInt tail begins.
func decodeInlineGroup(data []byte, start int64, total int, termFreqs []uint32, idx int, multiplier int, resetPerGroup bool) ([]uint32, error) {
	groupStart, groupSize := groupBounds(termFreqs, idx, multiplier)

	group, err := decodeRange(data, start, total, groupStart, groupStart+groupSize)
	if err != nil {
		return nil, err
	}

	if !resetPerGroup {
		return group, nil
	}
	out := make([]uint32, len(group))
	var prev uint32
	for i, d := range group {
		prev += d
		out[i] = prev
	}
	return out, nil
}
