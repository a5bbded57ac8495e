// Package kawa implements a protocol-agnostic, zero-copy intermediate
// representation for HTTP messages, designed to be embedded inside a reverse
// proxy or gateway.
//
// Input bytes land in a Buffer; parsers turn them into a stream of semantic
// Blocks whose Stores reference slices of the Buffer instead of copying.
// The block stream can be edited, then serialized back into a gather list
// of byte slices suitable for vectored I/O.
package kawa

import (
	"io"
	"strings"
)

// Buffer is a pseudo ring buffer specifically designed to store data being
// parsed.
//
//	backing       Start   half     Head  End   cap
//	v             v       v         v     v     v
//	[             ████████:██████████░░░░░░     ]
//
// Head must lie between Start and End and delimits parsed data from unparsed
// data. The buffer is filled from End up to its capacity. Data is processed
// from left to right: when leading bytes can be discarded, Start advances.
// When Start overshoots half the capacity, or the buffer drains empty with a
// non-zero Start, the remaining data should be shifted back to index 0
// (Shift), after which every Slice store referencing the buffer must be
// rebased with Kawa.PushLeft.
type Buffer struct {
	// Start is the beginning of unconsumed data.
	Start int
	// Head is the parse cursor: bytes in [Start, Head) are parsed,
	// bytes in [Head, End) are not.
	Head int
	// End is the end of valid data; [End, cap) is writable space.
	End int

	data []byte
}

// NewBuffer allocates a Buffer with a fixed backing of the given capacity.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{data: make([]byte, capacity)}
}

// NewBufferFrom wraps an existing backing slice. The full length of the slice
// is the buffer capacity. Useful to reuse pooled memory (see BufferPool).
func NewBufferFrom(backing []byte) *Buffer {
	return &Buffer{data: backing}
}

// Bytes returns the whole backing slice. Slice stores resolve their offsets
// against it.
func (b *Buffer) Bytes() []byte { return b.data }

// Capacity returns the fixed size of the backing slice.
func (b *Buffer) Capacity() int { return len(b.data) }

// AvailableData returns the number of unconsumed bytes.
func (b *Buffer) AvailableData() int { return b.End - b.Start }

// AvailableSpace returns the number of writable bytes at the tail.
func (b *Buffer) AvailableSpace() int { return len(b.data) - b.End }

func (b *Buffer) IsEmpty() bool { return b.Start == b.End }
func (b *Buffer) IsFull() bool  { return b.End == len(b.data) }

// Data returns the unconsumed bytes [Start, End).
func (b *Buffer) Data() []byte { return b.data[b.Start:b.End] }

// Unparsed returns the bytes the parser has not looked at yet, [Head, End).
func (b *Buffer) Unparsed() []byte { return b.data[b.Head:b.End] }

// Space returns the writable tail [End, cap). Call Fill after writing to it.
func (b *Buffer) Space() []byte { return b.data[b.End:] }

// Used returns everything up to End.
func (b *Buffer) Used() []byte { return b.data[:b.End] }

// Fill declares that n bytes were written into Space. Returns the number of
// bytes actually accounted for, capped at the available space.
func (b *Buffer) Fill(n int) int {
	if n > b.AvailableSpace() {
		n = b.AvailableSpace()
	}
	b.End += n
	return n
}

// Append copies src into the writable tail and fills. Short counts are the
// caller's signal to compact or grow; escalating a stuck incomplete token to
// ErrBufferFull is the parser's job, not the buffer's.
func (b *Buffer) Append(src []byte) int {
	n := copy(b.Space(), src)
	b.End += n
	return n
}

// Consume discards n leading bytes, capped at the available data.
func (b *Buffer) Consume(n int) int {
	if n > b.AvailableData() {
		n = b.AvailableData()
	}
	b.Start += n
	return n
}

// Reserve reports whether a shift followed by an append could fit n more
// bytes.
func (b *Buffer) Reserve(n int) bool {
	return len(b.data)-b.AvailableData() >= n
}

// ShouldShift reports whether shifting is worthwhile: either half the buffer
// is dead space, or the buffer drained empty away from index 0.
func (b *Buffer) ShouldShift() bool {
	return b.Start > len(b.data)/2 || (b.Start > 0 && b.IsEmpty())
}

// Shift moves the live region back to index 0 and returns the delta
// (the old Start). After a non-zero shift every Slice store referencing this
// buffer is stale until rebased with PushLeft(delta).
func (b *Buffer) Shift() int {
	start := b.Start
	if start > 0 {
		copy(b.data, b.data[start:b.End])
		b.End -= start
		b.Head -= start
		b.Start = 0
	}
	return start
}

// Clear resets all counters. The backing bytes are kept as is.
func (b *Buffer) Clear() {
	b.Start = 0
	b.Head = 0
	b.End = 0
}

// Write implements io.Writer by appending into the writable tail.
// A full buffer returns io.ErrShortWrite with the short count.
func (b *Buffer) Write(p []byte) (int, error) {
	n := b.Append(p)
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

// Read implements io.Reader by copying out of the unconsumed region and
// consuming it.
func (b *Buffer) Read(p []byte) (int, error) {
	if b.IsEmpty() {
		return 0, io.EOF
	}
	n := copy(p, b.Data())
	b.Start += n
	return n, nil
}

// Meter renders a proportional gauge of the buffer state, for debugging:
//
//	[    ████:██░░░      ]
//
// spaces are dead or free bytes, filled cells parsed data, shaded cells
// unparsed data, ':' the halfway mark that triggers ShouldShift.
func (b *Buffer) Meter(half int) string {
	size := half*2 + 1
	length := b.Capacity()
	var sb strings.Builder
	sb.Grow(size + 2)
	sb.WriteByte('[')
	for i := 0; i < size; i++ {
		switch {
		case i == half:
			sb.WriteByte(':')
		case length > 0 && i < b.Start*size/length:
			sb.WriteByte(' ')
		case length > 0 && i < b.Head*size/length:
			sb.WriteRune('█')
		case length > 0 && i < b.End*size/length:
			sb.WriteRune('░')
		default:
			sb.WriteByte(' ')
		}
	}
	sb.WriteByte(']')
	return sb.String()
}
