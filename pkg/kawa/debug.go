package kawa

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Dump renders the full container state: storage gauge, parser state, the
// block stream and the gather list with decoded store views. Intended for
// tests and interactive debugging, never for the hot path.
func (k *Kawa) Dump() string {
	buf := k.Storage.Bytes()
	var sb strings.Builder
	fmt.Fprintf(&sb, "Kawa {\n")
	fmt.Fprintf(&sb, "  kind: %s,\n", k.Kind)
	fmt.Fprintf(&sb, "  buffer: start=%d head=%d end=%d %s,\n",
		k.Storage.Start, k.Storage.Head, k.Storage.End, k.Storage.Meter(20))
	fmt.Fprintf(&sb, "  phase: %s,\n", k.State.Phase)
	fmt.Fprintf(&sb, "  body: %s,\n", k.BodySize)
	fmt.Fprintf(&sb, "  expects: %d,\n", k.State.Expects)
	fmt.Fprintf(&sb, "  blocks: [\n")
	for i := range k.Blocks {
		fmt.Fprintf(&sb, "    %s,\n", k.Blocks[i].debug(buf))
	}
	fmt.Fprintf(&sb, "  ],\n  out: [\n")
	for i := range k.Out {
		if k.Out[i].Kind == OutDelimiter {
			sb.WriteString("    DELIMITER,\n")
		} else {
			fmt.Fprintf(&sb, "    %s,\n", k.Out[i].Store.debug(buf))
		}
	}
	sb.WriteString("  ],\n}")
	return sb.String()
}

func (k Kind) String() string {
	if k == Request {
		return "Request"
	}
	return "Response"
}

func (v Version) String() string {
	switch v {
	case V10:
		return "V10"
	case V11:
		return "V11"
	case V20:
		return "V20"
	}
	return "Unknown"
}

func (p Phase) String() string {
	switch p {
	case PhaseStatusLine:
		return "StatusLine"
	case PhaseHeaders:
		return "Headers"
	case PhaseBody:
		return "Body"
	case PhaseChunks:
		return "Chunks"
	case PhaseTrailers:
		return "Trailers"
	case PhaseTerminated:
		return "Terminated"
	case PhaseError:
		return "Error"
	}
	return "Invalid"
}

func (b BodySize) String() string {
	switch b.Kind {
	case BodyEmpty:
		return "Empty"
	case BodyLength:
		return fmt.Sprintf("Length(%d)", b.Length)
	case BodyChunked:
		return "Chunked"
	case BodyUntilEOF:
		return "UntilEOF"
	}
	return "Invalid"
}

func (f Flags) String() string {
	var names []string
	for _, fl := range [...]struct {
		set  bool
		name string
	}{
		{f.EndBody, "BODY"},
		{f.EndChunk, "CHUNK"},
		{f.EndHeader, "HEADER"},
		{f.EndStream, "STREAM"},
	} {
		if fl.set {
			names = append(names, fl.name)
		}
	}
	return "Flags(" + strings.Join(names, "|") + ")"
}

func (b *Block) debug(buf []byte) string {
	switch b.Kind {
	case BlockStatusLine:
		sl := &b.Status
		if sl.Kind == Request {
			return fmt.Sprintf("StatusLine::Request { version: %s, method: %s, uri: %s, authority: %s, path: %s }",
				sl.Version, sl.Method.debug(buf), sl.URI.debug(buf),
				sl.Authority.debug(buf), sl.Path.debug(buf))
		}
		return fmt.Sprintf("StatusLine::Response { version: %s, code: %d, status: %s, reason: %s }",
			sl.Version, sl.Code, sl.Status.debug(buf), sl.Reason.debug(buf))
	case BlockHeader:
		return fmt.Sprintf("Header { key: %s, val: %s }", b.Pair.Key.debug(buf), b.Pair.Val.debug(buf))
	case BlockCookies:
		var crumbs []string
		for i := range b.Crumbs {
			crumbs = append(crumbs, fmt.Sprintf("{ key: %s, val: %s }",
				b.Crumbs[i].Key.debug(buf), b.Crumbs[i].Val.debug(buf)))
		}
		return "Cookies [" + strings.Join(crumbs, ", ") + "]"
	case BlockChunkHeader:
		return fmt.Sprintf("ChunkHeader { size: %s }", b.Data.debug(buf))
	case BlockChunk:
		return fmt.Sprintf("Chunk { data: %s }", b.Data.debug(buf))
	case BlockFlags:
		return b.Flags.String()
	}
	return "Invalid"
}

func (s Store) debug(buf []byte) string {
	view := func() string {
		data, err := s.Data(buf)
		if err != nil {
			return "[DETACHED]"
		}
		if !utf8.Valid(data) {
			return fmt.Sprintf("[%d raw bytes]", len(data))
		}
		return fmt.Sprintf("%q", data)
	}
	switch s.kind {
	case StoreEmpty:
		return "Empty"
	case StoreSlice:
		return fmt.Sprintf("Slice(%d+%d %s)", s.start, s.length, view())
	case StoreDetached:
		return fmt.Sprintf("Detached(%d+%d)", s.start, s.length)
	case StoreStatic:
		return fmt.Sprintf("Static(%s)", view())
	case StoreOwned:
		return fmt.Sprintf("Owned(%s)", view())
	case StoreShared:
		return fmt.Sprintf("Shared(%s)", view())
	}
	return "Invalid"
}
