// Package h2 maps the kawa block stream to HTTP/2 framing payloads: header
// blocks become HPACK-encoded HEADERS fragments, chunks become DATA
// payloads, and gather-list delimiters mark the frame boundaries. The frame
// prefixes themselves (9-byte header, stream ids, flags) belong to the
// embedding connection layer, not to this converter.
package h2

import (
	"strings"

	"github.com/valyala/bytebufferpool"
	"golang.org/x/net/http2/hpack"

	"github.com/CleverCloud/kawa/pkg/kawa"
)

// connectionHeaders are hop-by-hop fields an HTTP/2 mapping must drop
// (RFC 7540 §8.1.2.2). Host travels as the :authority pseudo-header.
var connectionHeaders = [...]string{
	"connection",
	"keep-alive",
	"proxy-connection",
	"transfer-encoding",
	"upgrade",
	"host",
}

// BlockConverter is the HTTP/2 counterpart of h1.BlockConverter. It is
// stateful: header fields accumulate in an HPACK encoder until an end-header
// flag flushes them as one fragment. ChunkHeader blocks are dropped; every
// end-chunk flag pushes a delimiter, so DATA fragments follow the H1 chunk
// boundaries.
type BlockConverter struct {
	scratch *bytebufferpool.ByteBuffer
	enc     *hpack.Encoder
}

// NewBlockConverter creates a converter with its own HPACK dynamic table.
// One converter per stream direction; Close releases its scratch buffer.
func NewBlockConverter() *BlockConverter {
	c := &BlockConverter{scratch: bytebufferpool.Get()}
	c.enc = hpack.NewEncoder(c.scratch)
	return c
}

// Close returns the scratch buffer to its pool. The converter must not be
// used afterwards.
func (c *BlockConverter) Close() {
	if c.scratch != nil {
		bytebufferpool.Put(c.scratch)
		c.scratch = nil
		c.enc = nil
	}
}

func (c *BlockConverter) Initialize(*kawa.Kawa) {}
func (c *BlockConverter) Finalize(*kawa.Kawa)   {}

func (c *BlockConverter) Call(b kawa.Block, k *kawa.Kawa) {
	buf := k.Storage.Bytes()
	switch b.Kind {
	case kawa.BlockStatusLine:
		sl := b.Status
		if sl.Kind == kawa.Request {
			c.writeField(":method", storeText(sl.Method, buf))
			c.writeField(":scheme", "http")
			if !sl.Authority.IsEmpty() {
				c.writeField(":authority", storeText(sl.Authority, buf))
			}
			path := storeText(sl.Path, buf)
			if path == "" {
				path = "/"
			}
			c.writeField(":path", path)
		} else {
			c.writeField(":status", storeText(sl.Status, buf))
		}

	case kawa.BlockHeader:
		if b.Pair.IsElided() {
			return
		}
		name := strings.ToLower(storeText(b.Pair.Key, buf))
		if isConnectionHeader(name) {
			return
		}
		c.writeField(name, storeText(b.Pair.Val, buf))

	case kawa.BlockCookies:
		// one cookie field per crumb, RFC 7540 §8.1.2.5
		for _, crumb := range b.Crumbs {
			val := storeText(crumb.Val, buf)
			if !crumb.Key.IsEmpty() {
				val = storeText(crumb.Key, buf) + "=" + val
			}
			c.writeField("cookie", val)
		}

	case kawa.BlockChunkHeader:
		// H1 framing detail, not represented in H2

	case kawa.BlockChunk:
		k.PushOut(b.Data)

	case kawa.BlockFlags:
		if b.Flags.EndHeader {
			c.flushHeaders(k)
			k.PushDelimiter()
			return
		}
		if b.Flags.EndChunk || b.Flags.EndStream {
			k.PushDelimiter()
		}
	}
}

// writeField appends one field to the pending HPACK fragment.
func (c *BlockConverter) writeField(name, value string) {
	_ = c.enc.WriteField(hpack.HeaderField{Name: name, Value: value})
}

// flushHeaders emits the accumulated HPACK fragment as an owned store. The
// scratch buffer is reused, so the fragment bytes are copied out.
func (c *BlockConverter) flushHeaders(k *kawa.Kawa) {
	if c.scratch.Len() == 0 {
		return
	}
	k.PushOut(kawa.Owned(c.scratch.B))
	c.scratch.Reset()
}

func storeText(s kawa.Store, buf []byte) string {
	data, err := s.Data(buf)
	if err != nil {
		panic("kawa: h2 conversion over a detached store")
	}
	return string(data)
}

func isConnectionHeader(lowered string) bool {
	for _, h := range connectionHeaders {
		if lowered == h {
			return true
		}
	}
	return false
}
