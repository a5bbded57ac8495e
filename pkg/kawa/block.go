package kawa

// Kind tells whether a message is a request or a response. It selects the
// start line grammar and the default body strategy.
type Kind uint8

const (
	Request Kind = iota
	Response
)

// Version is the HTTP protocol version of the parsed start line. The h1
// parser only yields V10 or V11; V20 is left for status lines built by the
// caller, and the h1 converter writes it as HTTP/1.1.
type Version uint8

const (
	VersionUnknown Version = iota
	V10
	V11
	V20
)

// BodyKind is the body transfer strategy resolved at END_HEADER.
type BodyKind uint8

const (
	// BodyEmpty means no body at all.
	BodyEmpty BodyKind = iota
	// BodyLength means exactly Length bytes follow the headers.
	BodyLength
	// BodyChunked means transfer-encoding chunked framing.
	BodyChunked
	// BodyUntilEOF means the body runs until the caller signals ParseEOF.
	BodyUntilEOF
)

// BodySize carries the strategy and, for BodyLength, the byte count.
type BodySize struct {
	Kind   BodyKind
	Length int
}

// BlockKind discriminates the semantic unit a Block carries.
type BlockKind uint8

const (
	BlockStatusLine BlockKind = iota
	BlockHeader
	BlockCookies
	BlockChunkHeader
	BlockChunk
	BlockFlags
)

// Pair is a key/value couple of stores: a header line or a cookie crumb.
type Pair struct {
	Key Store
	Val Store
}

// IsElided reports whether the pair was marked for omission by a processing
// step (Empty key). Serializers skip elided pairs.
func (p Pair) IsElided() bool { return p.Key.IsEmpty() }

// PushLeft rebases both stores.
func (p *Pair) PushLeft(delta uint32) {
	p.Key.PushLeft(delta)
	p.Val.PushLeft(delta)
}

// Flags is a context marker block. It makes the block stream self-describing
// so serializers need not track parser state.
type Flags struct {
	EndBody   bool
	EndChunk  bool
	EndHeader bool
	EndStream bool
}

// StatusLine is the first line of a message. Request and response share the
// record; Kind selects which fields are meaningful.
type StatusLine struct {
	Kind    Kind
	Version Version

	// Request fields. URI is the raw request target; Authority and Path
	// are its decomposition (authority is Empty unless the target carried
	// one, or a Host header was aliased in at END_HEADER).
	Method    Store
	URI       Store
	Authority Store
	Path      Store

	// Response fields. Status holds the three ASCII digits, Code their
	// numeric value. Reason may be Empty.
	Code   uint16
	Status Store
	Reason Store
}

// PushLeft rebases every store of the status line.
func (sl *StatusLine) PushLeft(delta uint32) {
	sl.Method.PushLeft(delta)
	sl.URI.PushLeft(delta)
	sl.Authority.PushLeft(delta)
	sl.Path.PushLeft(delta)
	sl.Status.PushLeft(delta)
	sl.Reason.PushLeft(delta)
}

// Block is one semantic HTTP unit in the stream: a status line, a header, a
// cookie jar, a chunk header, a chunk fragment, or a flag marker. It is a
// tagged record, not an interface: the parser is a fixed state machine and
// the set of block shapes is closed.
type Block struct {
	Kind   BlockKind
	Status StatusLine // BlockStatusLine
	Pair   Pair       // BlockHeader
	Crumbs []Pair     // BlockCookies, in original order
	Data   Store      // BlockChunk payload or BlockChunkHeader size text
	Flags  Flags      // BlockFlags
}

func StatusLineBlock(sl StatusLine) Block {
	return Block{Kind: BlockStatusLine, Status: sl}
}

func HeaderBlock(key, val Store) Block {
	return Block{Kind: BlockHeader, Pair: Pair{Key: key, Val: val}}
}

func CookiesBlock(crumbs []Pair) Block {
	return Block{Kind: BlockCookies, Crumbs: crumbs}
}

// ChunkHeaderBlock carries the hex size text of a chunk, without its CRLF.
func ChunkHeaderBlock(sizeText Store) Block {
	return Block{Kind: BlockChunkHeader, Data: sizeText}
}

// ChunkBlock carries a contiguous fragment of the current chunk. A chunk may
// be split across several ChunkBlocks when it straddles parse calls.
func ChunkBlock(data Store) Block {
	return Block{Kind: BlockChunk, Data: data}
}

func FlagsBlock(f Flags) Block {
	return Block{Kind: BlockFlags, Flags: f}
}

// PushLeft rebases every buffer-relative store in the block.
func (b *Block) PushLeft(delta uint32) {
	b.eachStore(func(s *Store) { s.PushLeft(delta) })
}

// eachStore visits every store the block holds. Kawa uses it for PushLeft
// and LeftmostRef.
func (b *Block) eachStore(f func(*Store)) {
	switch b.Kind {
	case BlockStatusLine:
		f(&b.Status.Method)
		f(&b.Status.URI)
		f(&b.Status.Authority)
		f(&b.Status.Path)
		f(&b.Status.Status)
		f(&b.Status.Reason)
	case BlockHeader:
		f(&b.Pair.Key)
		f(&b.Pair.Val)
	case BlockCookies:
		for i := range b.Crumbs {
			f(&b.Crumbs[i].Key)
			f(&b.Crumbs[i].Val)
		}
	case BlockChunkHeader, BlockChunk:
		f(&b.Data)
	case BlockFlags:
	}
}
