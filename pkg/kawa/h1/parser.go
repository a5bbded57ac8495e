package h1

import (
	"github.com/CleverCloud/kawa/pkg/kawa"
)

// Parse pulls unparsed bytes from the Kawa's storage through the HTTP/1.1
// state machine, appending blocks to the stream. It returns when the buffer
// is exhausted, the message is fully parsed, or a protocol error moved the
// Kawa into its error phase. Calling it again with no new input is a no-op.
//
// Every recogniser is byte-addressed and restartable: when the buffer ends
// mid-element, the parse cursor stays at the element start and the next call
// rescans it. Elements straddling a Buffer.Shift are safe because the shift
// rebases the cursor and PushLeft rebases every saved store before parsing
// resumes.
func Parse(k *kawa.Kawa) {
	if k.Detached() {
		panic("kawa: Parse called between Shift and PushLeft")
	}
	buf := k.Storage.Bytes()
	needMore := false

parsing:
	for {
		head := k.Storage.Head
		end := k.Storage.End
		if head >= end {
			break
		}
		switch k.State.Phase {
		case kawa.PhaseStatusLine:
			var sl kawa.StatusLine
			var next int
			var err error
			if k.Kind == kawa.Request {
				sl, next, err = requestLine(buf, head, end)
			} else {
				sl, next, err = responseLine(buf, head, end)
			}
			if err == errNeedMore {
				needMore = true
				break parsing
			}
			if err != nil {
				k.SetError(err)
				return
			}
			k.State.StatusCode = sl.Code
			k.PushBlock(kawa.StatusLineBlock(sl))
			k.State.Phase = kawa.PhaseHeaders
			k.Storage.Head = next

		case kawa.PhaseHeaders, kawa.PhaseTrailers:
			if next, err := crlf(buf, head, end); err == nil {
				// terminal CRLF: end of the header section
				k.Storage.Head = next
				if k.State.Phase == kawa.PhaseHeaders {
					finishHeaders(k, buf)
				} else {
					finishTrailers(k)
				}
				if k.IsError() {
					return
				}
				continue
			} else if err == errNeedMore {
				needMore = true
				break parsing
			}
			pair, next, err := headerLine(buf, head, end)
			if err == errNeedMore {
				needMore = true
				break parsing
			}
			if err != nil {
				k.SetError(err)
				return
			}
			k.Storage.Head = next
			if k.State.Phase == kawa.PhaseHeaders {
				observeHeader(k, buf, pair)
				if k.IsError() {
					return
				}
			}
			k.PushBlock(kawa.HeaderBlock(pair.Key, pair.Val))

		case kawa.PhaseBody:
			taken := end - head
			if k.State.Expects >= 0 && taken > k.State.Expects {
				taken = k.State.Expects
			}
			k.PushBlock(kawa.ChunkBlock(kawa.NewSlice(head, taken)))
			k.Storage.Head = head + taken
			if k.State.Expects > 0 {
				k.State.Expects -= taken
			}
			if k.State.Expects == 0 {
				k.State.Phase = kawa.PhaseTerminated
				k.PushBlock(kawa.FlagsBlock(kawa.Flags{EndBody: true, EndStream: true}))
			}

		case kawa.PhaseChunks:
			if k.State.ChunkCRLF {
				next, err := crlf(buf, head, end)
				if err == errNeedMore {
					needMore = true
					break parsing
				}
				if err != nil {
					k.SetError(kawa.ErrBadChunkTrailer)
					return
				}
				k.State.ChunkCRLF = false
				k.Storage.Head = next
				k.PushBlock(kawa.FlagsBlock(kawa.Flags{EndChunk: true}))
				continue
			}
			if k.State.Expects == 0 {
				sizeStart, sizeLen, size, next, err := chunkHeader(buf, head, end)
				if err == errNeedMore {
					needMore = true
					break parsing
				}
				if err != nil {
					k.SetError(err)
					return
				}
				k.Storage.Head = next
				if size == 0 {
					k.State.Phase = kawa.PhaseTrailers
					k.PushBlock(kawa.FlagsBlock(kawa.Flags{EndBody: true}))
				} else {
					k.State.Expects = size
					k.PushBlock(kawa.ChunkHeaderBlock(kawa.NewSlice(sizeStart, sizeLen)))
				}
				continue
			}
			taken := end - head
			if taken > k.State.Expects {
				taken = k.State.Expects
			}
			k.PushBlock(kawa.ChunkBlock(kawa.NewSlice(head, taken)))
			k.State.Expects -= taken
			k.Storage.Head = head + taken
			if k.State.Expects == 0 {
				k.State.ChunkCRLF = true
			}

		case kawa.PhaseTerminated, kawa.PhaseError:
			return
		}
	}

	// A recogniser is stuck mid-element, the buffer is full, and there is
	// nothing left of it to reclaim: the element can never complete.
	if needMore && k.Storage.IsFull() && k.Storage.Start == 0 {
		k.SetError(kawa.ErrBufferFull)
	}
}

// ParseEOF signals end of input. For an until-EOF body this is the regular
// termination and emits the closing flags; anywhere else mid-message it is a
// protocol error.
func ParseEOF(k *kawa.Kawa) {
	switch {
	case k.IsTerminated() || k.IsError():
	case k.State.Phase == kawa.PhaseBody && k.BodySize.Kind == kawa.BodyUntilEOF:
		k.State.Phase = kawa.PhaseTerminated
		k.PushBlock(kawa.FlagsBlock(kawa.Flags{EndBody: true, EndStream: true}))
	default:
		k.SetError(kawa.ErrUnexpectedEOF)
	}
}

// observeHeader records length information as headers stream in, so that
// conflicts are detected even if earlier blocks were already drained by a
// Prepare. RFC 7230 §3.3.3: duplicate Content-Length values must agree.
func observeHeader(k *kawa.Kawa, buf []byte, pair kawa.Pair) {
	key, _ := pair.Key.Data(buf)
	val, _ := pair.Val.Data(buf)
	switch {
	case compareNoCase(key, contentLengthBytes):
		n, ok := parseContentLength(val)
		if !ok {
			k.SetError(kawa.ErrMalformedHeader)
			return
		}
		if k.State.HasContentLength && k.State.ContentLength != n {
			k.SetError(kawa.ErrConflictingLength)
			return
		}
		k.State.HasContentLength = true
		k.State.ContentLength = n
	case compareNoCase(key, transferEncodingBytes):
		if hasChunkedLast(val) {
			k.State.HasChunked = true
		}
	}
}

// finishHeaders resolves the body strategy at END_HEADER, backfills the
// request authority from the Host header, emits the end-of-header flags and
// transitions to the body phase.
func finishHeaders(k *kawa.Kawa, buf []byte) {
	st := &k.State
	switch {
	case st.HasChunked && st.HasContentLength:
		// CL.TE smuggling rule: fatal on requests. On responses chunked
		// wins and the Content-Length headers are elided from the stream.
		if k.Kind == kawa.Request {
			k.SetError(kawa.ErrConflictingLength)
			return
		}
		elideContentLength(k, buf)
		k.BodySize = kawa.BodySize{Kind: kawa.BodyChunked}
	case st.HasChunked:
		k.BodySize = kawa.BodySize{Kind: kawa.BodyChunked}
	case st.HasContentLength:
		k.BodySize = kawa.BodySize{Kind: kawa.BodyLength, Length: st.ContentLength}
	case k.Kind == kawa.Response && !bodylessStatus(st.StatusCode):
		k.BodySize = kawa.BodySize{Kind: kawa.BodyUntilEOF}
	default:
		k.BodySize = kawa.BodySize{}
	}

	if k.Kind == kawa.Request {
		backfillAuthority(k, buf)
	}

	switch k.BodySize.Kind {
	case kawa.BodyEmpty:
		k.State.Phase = kawa.PhaseTerminated
	case kawa.BodyLength:
		if k.BodySize.Length == 0 {
			k.State.Phase = kawa.PhaseTerminated
		} else {
			st.Expects = k.BodySize.Length
			k.State.Phase = kawa.PhaseBody
		}
	case kawa.BodyChunked:
		k.State.Phase = kawa.PhaseChunks
	case kawa.BodyUntilEOF:
		st.Expects = -1
		k.State.Phase = kawa.PhaseBody
	}
	k.PushBlock(kawa.FlagsBlock(kawa.Flags{EndHeader: true, EndStream: k.IsTerminated()}))
}

func finishTrailers(k *kawa.Kawa) {
	k.State.Phase = kawa.PhaseTerminated
	k.PushBlock(kawa.FlagsBlock(kawa.Flags{EndHeader: true, EndStream: true}))
}

// bodylessStatus reports status classes that never carry a body even without
// length headers: 1xx, 204, 304 (RFC 7230 §3.3.3).
func bodylessStatus(code uint16) bool {
	return code/100 == 1 || code == 204 || code == 304
}

// elideContentLength blanks the key of every Content-Length header block
// still present in the stream; serializers skip elided headers.
func elideContentLength(k *kawa.Kawa, buf []byte) {
	for i := range k.Blocks {
		b := &k.Blocks[i]
		if b.Kind != kawa.BlockHeader {
			continue
		}
		key, err := b.Pair.Key.Data(buf)
		if err == nil && compareNoCase(key, contentLengthBytes) {
			b.Pair.Key = kawa.Store{}
		}
	}
}

// backfillAuthority aliases the Host header value into the status line
// authority when the request target carried none. The alias is a plain
// slice sharing the header's range; PushLeft rebases both.
func backfillAuthority(k *kawa.Kawa, buf []byte) {
	var status *kawa.Block
	for i := range k.Blocks {
		if k.Blocks[i].Kind == kawa.BlockStatusLine {
			status = &k.Blocks[i]
			break
		}
	}
	if status == nil || !status.Status.Authority.IsEmpty() {
		return
	}
	for i := range k.Blocks {
		b := &k.Blocks[i]
		if b.Kind != kawa.BlockHeader {
			continue
		}
		key, err := b.Pair.Key.Data(buf)
		if err == nil && compareNoCase(key, hostBytes) {
			status.Status.Authority = b.Pair.Val.Clone()
			return
		}
	}
}
