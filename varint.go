package flash

// ═══════════════════════════════════════════════════════════════════════════════
// VARINT ENCODING
// ═══════════════════════════════════════════════════════════════════════════════
// A VarInt packs a uint32 into 7-bit groups, least-significant group first.
// Every byte but the last has its top bit (the continuation bit) set to 1;
// the last byte has it clear.
//
// Examples:
//
//	encode(0)   → [0x00]
//	encode(1)   → [0x01]
//	encode(127) → [0x7f]                (fits in 7 bits, one byte)
//	encode(128) → [0x80, 0x01]          (128 = 0b1000_0000, needs two groups)
//	encode(300) → [0xac, 0x02]          (300 = 0b1_0010_1100)
//
// This is the same bit layout as protobuf/LEB128 varints, implemented
// directly against the byte algorithm rather than encoding/binary's
// Uvarint (which shares the bit layout but buffers differently than the
// packed-block tail format here wants).
// ═══════════════════════════════════════════════════════════════════════════════

const varintContinuation = 0x80
const varintPayloadMask = 0x7f

// AppendVarint appends the VarInt encoding of v to dst and returns the
// extended slice.
func AppendVarint(dst []byte, v uint32) []byte {
	for v >= varintContinuation {
		dst = append(dst, byte(v&varintPayloadMask)|varintContinuation)
		v >>= 7
	}
	return append(dst, byte(v))
}

// EncodeVarint returns the VarInt encoding of v as a freshly allocated slice.
func EncodeVarint(v uint32) []byte {
	return AppendVarint(make([]byte, 0, 5), v)
}

// DecodeVarint reads one VarInt from the front of buf, returning the
// decoded value and the number of bytes consumed. n is 0 if buf ends
// before a terminating byte is found.
func DecodeVarint(buf []byte) (v uint32, n int) {
	var shift uint
	for i, b := range buf {
		if shift >= 35 {
			return 0, 0
		}
		v |= uint32(b&varintPayloadMask) << shift
		if b&varintContinuation == 0 {
			return v, i + 1
		}
		shift += 7
	}
	return 0, 0
}

// VarintBuffer accumulates a growable byte run of VarInt-encoded values, in
// the style of the original engine's buffer: appends extend the backing
// array as needed rather than requiring a pre-sized buffer.
type VarintBuffer struct {
	data []byte
	n    int // number of values appended, not bytes
}

// NewVarintBuffer returns an empty VarintBuffer.
func NewVarintBuffer() *VarintBuffer {
	return &VarintBuffer{}
}

// Append encodes v and appends it to the buffer.
func (b *VarintBuffer) Append(v uint32) {
	b.data = AppendVarint(b.data, v)
	b.n++
}

// Data returns the buffer's raw bytes. The returned slice aliases the
// buffer's internal storage and must not be mutated.
func (b *VarintBuffer) Data() []byte {
	return b.data
}

// Size returns the number of bytes currently buffered.
func (b *VarintBuffer) Size() int {
	return len(b.data)
}

// Len returns the number of values appended.
func (b *VarintBuffer) Len() int {
	return b.n
}

// VarintIterator walks a buffer of consecutive VarInt-encoded values,
// decoding one at a time without materializing them all up front.
type VarintIterator struct {
	buf []byte
	pos int
}

// NewVarintIterator returns an iterator over buf, starting at the first value.
func NewVarintIterator(buf []byte) *VarintIterator {
	return &VarintIterator{buf: buf}
}

// HasNext reports whether another value remains.
func (it *VarintIterator) HasNext() bool {
	return it.pos < len(it.buf)
}

// Next decodes and returns the next value, advancing the iterator.
func (it *VarintIterator) Next() (uint32, bool) {
	if it.pos >= len(it.buf) {
		return 0, false
	}
	v, n := DecodeVarint(it.buf[it.pos:])
	if n == 0 {
		return 0, false
	}
	it.pos += n
	return v, true
}
