package h1

import (
	"github.com/CleverCloud/kawa/pkg/kawa"
)

// BlockConverter serializes the block stream back to HTTP/1.1 wire format.
// Each block expands into a deterministic sequence of gather-list stores;
// parsed slices flow through untouched, so an unedited message reproduces
// its input bytes exactly.
//
// Per block:
//
//	Request         method SP uri SP version CRLF
//	Response        version SP status [SP reason] CRLF
//	Header          key ": " val CRLF        (skipped when elided)
//	Cookies         "Cookie: " k "=" v "; " ... CRLF
//	ChunkHeader     size CRLF
//	Chunk           data
//	Flags           end_body+chunked -> "0\r\n"; end_chunk|end_header -> CRLF
//
// For until-EOF messages end_body emits nothing; signalling EOF is the
// driver's half-close. The converter is stateless: the flags blocks make the
// stream self-describing.
type BlockConverter struct{}

func (BlockConverter) Initialize(*kawa.Kawa) {}
func (BlockConverter) Finalize(*kawa.Kawa)   {}

func (BlockConverter) Call(b kawa.Block, k *kawa.Kawa) {
	switch b.Kind {
	case kawa.BlockStatusLine:
		sl := b.Status
		if sl.Kind == kawa.Request {
			k.PushOut(sl.Method)
			k.PushOut(kawa.Static(spaceBytes))
			k.PushOut(sl.URI)
			k.PushOut(kawa.Static(spaceBytes))
			k.PushOut(versionStore(sl.Version))
			k.PushOut(kawa.Static(crlfBytes))
		} else {
			k.PushOut(versionStore(sl.Version))
			k.PushOut(kawa.Static(spaceBytes))
			k.PushOut(sl.Status)
			if sl.Reason.Kind() != kawa.StoreEmpty {
				k.PushOut(kawa.Static(spaceBytes))
				k.PushOut(sl.Reason)
			}
			k.PushOut(kawa.Static(crlfBytes))
		}

	case kawa.BlockHeader:
		if b.Pair.IsElided() {
			return
		}
		k.PushOut(b.Pair.Key)
		k.PushOut(kawa.Static(colonSpaceBytes))
		k.PushOut(b.Pair.Val)
		k.PushOut(kawa.Static(crlfBytes))

	case kawa.BlockCookies:
		if len(b.Crumbs) == 0 {
			return
		}
		k.PushOut(kawa.Static(cookiePrefixBytes))
		for i, crumb := range b.Crumbs {
			if i > 0 {
				k.PushOut(kawa.Static(crumbSepBytes))
			}
			if !crumb.Key.IsEmpty() {
				k.PushOut(crumb.Key)
				k.PushOut(kawa.Static(equalsBytes))
			}
			k.PushOut(crumb.Val)
		}
		k.PushOut(kawa.Static(crlfBytes))

	case kawa.BlockChunkHeader:
		k.PushOut(b.Data)
		k.PushOut(kawa.Static(crlfBytes))

	case kawa.BlockChunk:
		k.PushOut(b.Data)

	case kawa.BlockFlags:
		if b.Flags.EndBody && k.IsStreaming() {
			k.PushOut(kawa.Static(lastChunkBytes))
		}
		if b.Flags.EndHeader || b.Flags.EndChunk {
			k.PushOut(kawa.Static(crlfBytes))
		}
	}
}

// versionStore maps a parsed version to its wire literal. V20 block streams
// serialized to HTTP/1.1 downgrade to the 1.1 literal.
func versionStore(v kawa.Version) kawa.Store {
	if v == kawa.V10 {
		return kawa.Static(http10Bytes)
	}
	return kawa.Static(http11Bytes)
}
