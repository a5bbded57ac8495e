// Package h1 implements the incremental HTTP/1.1 recogniser producing kawa
// blocks from buffer slices, and the block serializer emitting HTTP/1.1 wire
// format back out of the block stream.
package h1

// Wire-format literals - pre-compiled for zero-allocation serialization.
// All of them live for the process lifetime and back Static stores.
var (
	crlfBytes       = []byte("\r\n")
	spaceBytes      = []byte(" ")
	colonSpaceBytes = []byte(": ")
	lastChunkBytes  = []byte("0\r\n")
	http10Bytes     = []byte("HTTP/1.0")
	http11Bytes     = []byte("HTTP/1.1")

	cookiePrefixBytes = []byte("Cookie: ")
	crumbSepBytes     = []byte("; ")
	equalsBytes       = []byte("=")

	slashBytes    = []byte("/")
	asteriskBytes = []byte("*")
)

// Header names the parser inspects while headers stream in.
var (
	contentLengthBytes    = []byte("Content-Length")
	transferEncodingBytes = []byte("Transfer-Encoding")
	hostBytes             = []byte("Host")
	chunkedBytes          = []byte("chunked")
	optionsBytes          = []byte("OPTIONS")
	connectBytes          = []byte("CONNECT")
)

// maxChunkSizeDigits bounds the hex size line of a chunk. Eight digits cover
// 4GB-1; anything longer is rejected as absurd before it can overflow.
const maxChunkSizeDigits = 8
