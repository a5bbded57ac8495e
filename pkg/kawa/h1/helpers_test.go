package h1

import (
	"fmt"
	"testing"

	"github.com/CleverCloud/kawa/pkg/kawa"
)

// chunkedResponse is the reference chunked message from the README: four
// headers, two chunks, a trailer header.
const chunkedResponse = "HTTP/1.1 200 OK\r\n" +
	"Content-Type: text/plain\r\n" +
	"Transfer-Encoding: chunked\r\n" +
	"Connection: Keep-Alive\r\n" +
	"Trailer: Foo\r\n" +
	"\r\n" +
	"4\r\n" +
	"Wiki\r\n" +
	"5\r\n" +
	"pedia\r\n" +
	"0\r\n" +
	"Foo: bar\r\n" +
	"\r\n"

func newKawa(t *testing.T, kind kawa.Kind, capacity int) *kawa.Kawa {
	t.Helper()
	return kawa.New(kind, kawa.NewBuffer(capacity))
}

// feed appends the fragment and runs the parser once.
func feed(t *testing.T, k *kawa.Kawa, fragment string) {
	t.Helper()
	if n := k.Storage.Append([]byte(fragment)); n != len(fragment) {
		t.Fatalf("Append = %d, want %d", n, len(fragment))
	}
	Parse(k)
}

// serialize prepares the whole block stream through the H1 converter and
// concatenates the gather list.
func serialize(k *kawa.Kawa) string {
	k.Prepare(BlockConverter{})
	var out []byte
	for _, slice := range k.AsIOSlices() {
		out = append(out, slice...)
	}
	return string(out)
}

// blockStrings renders the stream compactly for comparison.
func blockStrings(k *kawa.Kawa) []string {
	buf := k.Storage.Bytes()
	text := func(s kawa.Store) string {
		data, err := s.Data(buf)
		if err != nil {
			return "<detached>"
		}
		return string(data)
	}
	var got []string
	for i := range k.Blocks {
		b := &k.Blocks[i]
		switch b.Kind {
		case kawa.BlockStatusLine:
			if b.Status.Kind == kawa.Request {
				got = append(got, fmt.Sprintf("Request(%s %s)", text(b.Status.Method), text(b.Status.URI)))
			} else {
				got = append(got, fmt.Sprintf("Response(%s %s)", text(b.Status.Status), text(b.Status.Reason)))
			}
		case kawa.BlockHeader:
			if b.Pair.IsElided() {
				got = append(got, "Header(elided)")
			} else {
				got = append(got, fmt.Sprintf("Header(%s: %s)", text(b.Pair.Key), text(b.Pair.Val)))
			}
		case kawa.BlockCookies:
			got = append(got, fmt.Sprintf("Cookies(%d)", len(b.Crumbs)))
		case kawa.BlockChunkHeader:
			got = append(got, fmt.Sprintf("ChunkHeader(%s)", text(b.Data)))
		case kawa.BlockChunk:
			got = append(got, fmt.Sprintf("Chunk(%s)", text(b.Data)))
		case kawa.BlockFlags:
			got = append(got, b.Flags.String())
		}
	}
	return got
}

// coalesceChunks merges consecutive Chunk entries, for comparing fragmented
// parses against their one-shot equivalent.
func coalesceChunks(stream []string) []string {
	var out []string
	for _, s := range stream {
		if len(out) > 0 && isChunk(s) && isChunk(out[len(out)-1]) {
			prev := out[len(out)-1]
			out[len(out)-1] = "Chunk(" + prev[6:len(prev)-1] + s[6:len(s)-1] + ")"
			continue
		}
		out = append(out, s)
	}
	return out
}

func isChunk(s string) bool {
	return len(s) > 6 && s[:6] == "Chunk("
}
