package kawa

import "errors"

// Parse errors - pre-allocated for zero runtime allocation.
//
// The parser moves the Kawa into PhaseError and stops; it does not attempt
// recovery. The caller inspects the error with errors.Is and decides to emit
// a 400/502, reset an HTTP/2 stream, or close the connection. Consume and
// PushLeft remain valid after an error so an already-serialized prefix can
// still be drained.
var (
	// ErrMalformedStartLine indicates a bad request or status line:
	// missing SP, empty method token, non-digit status code.
	ErrMalformedStartLine = errors.New("kawa: malformed start line")

	// ErrMalformedVersion indicates a version token that is neither
	// HTTP/1.0 nor HTTP/1.1.
	ErrMalformedVersion = errors.New("kawa: malformed version")

	// ErrMalformedHeader indicates a bad token in a header name, a missing
	// colon, obsolete line folding, or a CR without LF.
	ErrMalformedHeader = errors.New("kawa: malformed header")

	// ErrConflictingLength indicates both Transfer-Encoding and
	// Content-Length on a request, or duplicate Content-Length headers
	// with different values (RFC 7230 §3.3.3 smuggling rule).
	ErrConflictingLength = errors.New("kawa: conflicting length information")

	// ErrBadChunkSize indicates a non-hex, empty, or absurdly large chunk
	// size line.
	ErrBadChunkSize = errors.New("kawa: bad chunk size")

	// ErrBadChunkTrailer indicates a missing CRLF after chunk data.
	ErrBadChunkTrailer = errors.New("kawa: bad chunk trailer")

	// ErrUnexpectedEOF indicates ParseEOF was called mid-message on a
	// body strategy other than until-EOF.
	ErrUnexpectedEOF = errors.New("kawa: unexpected EOF")

	// ErrBufferFull indicates a single token (a status line or header)
	// exceeds the Buffer capacity and can never complete.
	ErrBufferFull = errors.New("kawa: buffer full on incomplete input")
)

// Store errors.
var (
	// ErrDetachedRead indicates a read through a Detached store, whose
	// offsets are invalid until the next PushLeft rebases it.
	ErrDetachedRead = errors.New("kawa: read through detached store")

	// ErrConsumeExceedsOutput indicates Consume was called with more bytes
	// than the gather list holds.
	ErrConsumeExceedsOutput = errors.New("kawa: consume exceeds output length")
)
