package kawa

import "net"

// Phase is the coarse progress of the message through the parser.
type Phase uint8

const (
	PhaseStatusLine Phase = iota
	PhaseHeaders
	PhaseBody
	PhaseChunks
	PhaseTrailers
	PhaseTerminated
	PhaseError
)

// ParserState is the finite restart state of the incremental parser. Every
// recogniser is byte-addressed: when the buffer ends mid-token the parser
// leaves Buffer.Head at the token start and returns, so the next call
// resumes there. Tokens straddling a Buffer.Shift survive because Head and
// all saved offsets are rebased before parsing resumes.
type ParserState struct {
	Phase Phase

	// Expects is the number of body or chunk bytes the parser still waits
	// for. Negative means unbounded (until-EOF body).
	Expects int

	// ChunkCRLF is set when the current chunk's payload has been fully
	// emitted and its terminating CRLF is still owed.
	ChunkCRLF bool

	// Length bookkeeping gathered while headers stream in, resolved at
	// END_HEADER. StatusCode feeds the bodyless defaults of 1xx/204/304
	// responses even when the status line block was already drained.
	HasContentLength bool
	ContentLength    int
	HasChunked       bool
	StatusCode       uint16
}

// OutKind discriminates gather-list entries.
type OutKind uint8

const (
	// OutStore is a byte range to write.
	OutStore OutKind = iota
	// OutDelimiter is a zero-length marker converters may push to
	// fragment the stream, e.g. to split HTTP/2 frames. AsIOSlices stops
	// at the first delimiter; Consume drops it once everything before it
	// was consumed.
	OutDelimiter
)

// OutBlock is one entry of the output gather list.
type OutBlock struct {
	Kind  OutKind
	Store Store
}

// BlockConverter turns blocks into gather-list entries, one block at a time,
// via PushOut and PushDelimiter. Converters may keep state between calls;
// Initialize and Finalize bracket one Prepare pass.
type BlockConverter interface {
	Initialize(k *Kawa)
	Call(block Block, k *Kawa)
	Finalize(k *Kawa)
}

// Kawa is the top-level container: it owns the Buffer, the block stream, and
// the output gather list, and orchestrates parse, edit, generate, consume
// and push-left.
//
// Blocks and Out always hold exclusive data: Out contains older data than
// Blocks. Prepare maintains this invariant by draining Blocks in order.
//
// A Kawa is a single-owner state machine driven sequentially by its caller;
// operations never block and never spawn work. Two Kawa instances are fully
// independent.
type Kawa struct {
	Storage *Buffer

	// Blocks is the protocol-independent representation of the parsed
	// data, in input order. Callers may edit it freely between Parse and
	// Prepare; there is no validation.
	Blocks []Block

	// Out is the protocol-dependent gather list generated from Blocks.
	Out []OutBlock

	Kind     Kind
	State    ParserState
	BodySize BodySize

	// detached is armed between a Shift and the matching PushLeft, while
	// every Slice offset is stale. Dereferencing operations assert on it.
	detached bool

	// consumed counts the total bytes handed to the sink, i.e. the writer
	// cursor.
	consumed uint64

	parseErr error
}

// New creates a Kawa of the given message kind around a storage buffer. The
// storage is owned by the Kawa from that point on.
func New(kind Kind, storage *Buffer) *Kawa {
	return &Kawa{Storage: storage, Kind: kind}
}

func (k *Kawa) IsInitial() bool    { return k.State.Phase == PhaseStatusLine }
func (k *Kawa) IsError() bool      { return k.State.Phase == PhaseError }
func (k *Kawa) IsTerminated() bool { return k.State.Phase == PhaseTerminated }
func (k *Kawa) IsStreaming() bool  { return k.BodySize.Kind == BodyChunked }

// IsMainPhase reports whether the headers are fully parsed.
func (k *Kawa) IsMainPhase() bool {
	switch k.State.Phase {
	case PhaseBody, PhaseChunks, PhaseTrailers, PhaseTerminated:
		return true
	}
	return false
}

// IsCompleted reports whether everything was parsed, serialized and consumed.
func (k *Kawa) IsCompleted() bool {
	return k.State.Phase == PhaseTerminated && len(k.Blocks) == 0 && len(k.Out) == 0
}

// Error returns the sticky parse error, nil outside PhaseError.
func (k *Kawa) Error() error { return k.parseErr }

// SetError moves the Kawa into PhaseError with the given cause. Further
// parsing stops; Consume and PushLeft remain valid.
func (k *Kawa) SetError(err error) {
	k.State.Phase = PhaseError
	k.parseErr = err
}

// Detached reports whether a Shift is pending its PushLeft.
func (k *Kawa) Detached() bool { return k.detached }

// assertAttached is the debug-time guard of the relocation protocol: between
// Shift and PushLeft every Slice offset is stale and dereferencing is a
// caller bug, not a recoverable condition.
func (k *Kawa) assertAttached(op string) {
	if k.detached {
		panic("kawa: " + op + " called between Shift and PushLeft")
	}
}

// PushBlock appends a block to the stream.
func (k *Kawa) PushBlock(b Block) { k.Blocks = append(k.Blocks, b) }

// InsertBlock inserts a block at index i of the stream. Edits create Static
// or Owned stores, never Slice, which keeps LeftmostRef monotone.
func (k *Kawa) InsertBlock(i int, b Block) {
	k.Blocks = append(k.Blocks, Block{})
	copy(k.Blocks[i+1:], k.Blocks[i:])
	k.Blocks[i] = b
}

// RemoveBlock removes the block at index i.
func (k *Kawa) RemoveBlock(i int) {
	k.Blocks = append(k.Blocks[:i], k.Blocks[i+1:]...)
}

// PushOut appends a store to the gather list. Converters call this.
func (k *Kawa) PushOut(s Store) {
	k.Out = append(k.Out, OutBlock{Kind: OutStore, Store: s})
}

// PushDelimiter appends a stream fragmentation marker to the gather list.
func (k *Kawa) PushDelimiter() {
	k.Out = append(k.Out, OutBlock{Kind: OutDelimiter})
}

// Prepare converts the unserialized suffix of the block stream into the
// gather list through the given converter. Blocks are drained in order, so
// repeated calls only ever emit what was appended since the last one.
func (k *Kawa) Prepare(c BlockConverter) {
	k.assertAttached("Prepare")
	c.Initialize(k)
	blocks := k.Blocks
	k.Blocks = k.Blocks[:0]
	for i := range blocks {
		c.Call(blocks[i], k)
	}
	c.Finalize(k)
}

// AsIOSlices returns the gather list up to its end or the first delimiter as
// a net.Buffers, ready for a vectored write. Nothing is copied: slices
// borrow from the Buffer, from static memory, or from owned allocations, and
// must not outlive the next mutating call.
func (k *Kawa) AsIOSlices() net.Buffers {
	k.assertAttached("AsIOSlices")
	buf := k.Storage.Bytes()
	out := make(net.Buffers, 0, len(k.Out))
	for i := range k.Out {
		if k.Out[i].Kind == OutDelimiter {
			break
		}
		data, err := k.Out[i].Store.Data(buf)
		if err != nil {
			panic("kawa: AsIOSlices over a detached store")
		}
		if len(data) > 0 {
			out = append(out, data)
		}
	}
	return out
}

// OutLen returns the total byte length of the gather list.
func (k *Kawa) OutLen() int {
	total := 0
	for i := range k.Out {
		total += k.Out[i].Store.Len()
	}
	return total
}

// Consumed returns the writer cursor: total bytes dropped by Consume.
func (k *Kawa) Consumed() uint64 { return k.consumed }

// Consume drops the leading gather-list entries covering n written bytes and
// trims the straddling one. A delimiter reached by the consumption is
// dropped, exposing the next fragment. n larger than the gather list is an
// accounting bug and returns ErrConsumeExceedsOutput untouched.
func (k *Kawa) Consume(n int) error {
	if n > k.OutLen() {
		return ErrConsumeExceedsOutput
	}
	remaining := n
	i := 0
	for i < len(k.Out) {
		ob := k.Out[i]
		if ob.Kind == OutDelimiter {
			i++
			continue
		}
		rest, store, live := ob.Store.consume(remaining)
		remaining = rest
		if live {
			k.Out[i].Store = store
			break
		}
		i++
	}
	k.Out = k.Out[i:]
	k.consumed += uint64(n)
	return nil
}

// LeftmostRef returns the smallest buffer offset still referenced by any
// Slice store, in the gather list or in the residual block stream. Bytes
// below it are dead and may be released with Buffer.Consume. Returns the
// parse cursor when no Slice remains: everything parsed but unreferenced is
// releasable, and the cursor equals End once a message is fully parsed.
func (k *Kawa) LeftmostRef() int {
	leftmost := k.Storage.Head
	visit := func(s *Store) {
		if s.kind == StoreSlice && int(s.start) < leftmost {
			leftmost = int(s.start)
		}
	}
	for i := range k.Out {
		visit(&k.Out[i].Store)
	}
	for i := range k.Blocks {
		k.Blocks[i].eachStore(visit)
	}
	return leftmost
}

// PushLeft rebases every Slice store in the container after a Buffer.Shift
// of delta bytes, and clears the detached guard.
func (k *Kawa) PushLeft(delta uint32) {
	for i := range k.Blocks {
		k.Blocks[i].PushLeft(delta)
	}
	for i := range k.Out {
		k.Out[i].Store.PushLeft(delta)
	}
	k.detached = false
}

// Shift compacts the storage and arms the detached guard. The only legal
// next dereferencing call is PushLeft with the returned delta; Parse,
// Prepare and AsIOSlices assert on the guard until then.
func (k *Kawa) Shift() uint32 {
	delta := uint32(k.Storage.Shift())
	if delta > 0 {
		k.detached = true
	}
	return delta
}

// Release gives back to the storage every byte no longer referenced, then
// compacts it if worthwhile. Call after Consume, once per write cycle.
func (k *Kawa) Release() {
	k.Storage.Consume(k.LeftmostRef() - k.Storage.Start)
	if k.Storage.ShouldShift() {
		k.PushLeft(k.Shift())
	}
}

// Clear resets to a fresh message, preserving the allocated capacity of the
// block stream and gather list.
func (k *Kawa) Clear() {
	k.Storage.Clear()
	k.Blocks = k.Blocks[:0]
	k.Out = k.Out[:0]
	k.State = ParserState{}
	k.BodySize = BodySize{}
	k.detached = false
	k.consumed = 0
	k.parseErr = nil
}

// SplitCookies converts the Header block at index i into a Cookies block of
// individual crumbs, enabling RFC 6265 splitting and merging in one place.
// Crumbs keep zero-copy: slices of the buffer when the value was a Slice,
// shared aliases otherwise. Crumbs without '=' get an Empty key. No-op on
// anything but a Header block.
func (k *Kawa) SplitCookies(i int) {
	k.assertAttached("SplitCookies")
	b := &k.Blocks[i]
	if b.Kind != BlockHeader {
		return
	}
	val := b.Pair.Val
	data, err := val.Data(k.Storage.Bytes())
	if err != nil {
		return
	}
	crumbs := splitCrumbs(val, data)
	*b = CookiesBlock(crumbs)
}

// splitCrumbs cuts a Cookie header value on ';', skipping the spaces that
// follow each separator, and splits each crumb at its first '='.
func splitCrumbs(val Store, data []byte) []Pair {
	sub := func(start, end int) Store {
		if val.kind == StoreSlice {
			return NewSlice(int(val.start)+start, end-start)
		}
		return Shared(data[start:end])
	}
	var crumbs []Pair
	for pos := 0; pos <= len(data); {
		end := pos
		for end < len(data) && data[end] != ';' {
			end++
		}
		for pos < end && data[pos] == ' ' {
			pos++
		}
		if pos < end {
			eq := pos
			for eq < end && data[eq] != '=' {
				eq++
			}
			if eq < end {
				crumbs = append(crumbs, Pair{Key: sub(pos, eq), Val: sub(eq+1, end)})
			} else {
				crumbs = append(crumbs, Pair{Val: sub(pos, end)})
			}
		}
		pos = end + 1
	}
	return crumbs
}
