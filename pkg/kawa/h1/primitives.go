package h1

import (
	"bytes"
	"errors"

	"github.com/CleverCloud/kawa/pkg/kawa"
)

// Internal verdicts of the byte recognisers. errNeedMore means the element
// may still complete once more input arrives: the caller leaves the parse
// cursor at the element start and returns, so the next call rescans from
// there. errNoMatch means the bytes at hand are definitely not this element.
var (
	errNeedMore = errors.New("h1: need more input")
	errNoMatch  = errors.New("h1: no match")
)

// isTokenChar reports a tchar per RFC 7230 §3.2.6.
func isTokenChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	switch c {
	case '!', '#', '$', '%', '&', '\'', '*', '+', '-', '.', '^', '_', '`', '|', '~':
		return true
	}
	return false
}

// isVChar reports a visible ASCII char, the request-target alphabet.
func isVChar(c byte) bool { return c > 32 && c < 127 }

// isStatusTokenChar reports a reason-phrase char: any printable plus SP/HT.
func isStatusTokenChar(c byte) bool { return c == '\t' || (c >= 32 && c != 127) }

// isFieldChar reports a header field-content char per RFC 7230 §3.2.
func isFieldChar(c byte) bool { return c == '\t' || (c >= 32 && c < 127) }

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// compareNoCase compares two byte slices ASCII case-insensitively without
// allocating.
func compareNoCase(left, right []byte) bool {
	if len(left) != len(right) {
		return false
	}
	for i := 0; i < len(left); i++ {
		a, b := left[i], right[i]
		if a == b {
			continue
		}
		la := a | 0x20
		if la != b|0x20 || la < 'a' || la > 'z' {
			return false
		}
	}
	return true
}

// token scans a run of tchar starting at pos and returns its end. Reaching
// the end of input means the token could continue, hence errNeedMore.
func token(buf []byte, pos, end int) (int, error) {
	i := pos
	for i < end && isTokenChar(buf[i]) {
		i++
	}
	if i == end {
		return 0, errNeedMore
	}
	return i, nil
}

// crlf consumes "\r\n" at pos. errNoMatch when something else sits there,
// errNeedMore when the input ends inside the pair.
func crlf(buf []byte, pos, end int) (int, error) {
	if pos >= end {
		return 0, errNeedMore
	}
	if buf[pos] != '\r' {
		return 0, errNoMatch
	}
	if pos+1 >= end {
		return 0, errNeedMore
	}
	if buf[pos+1] != '\n' {
		return 0, errNoMatch
	}
	return pos + 2, nil
}

var http1Prefix = []byte("HTTP/1.")

// version consumes "HTTP/1.0" or "HTTP/1.1".
func version(buf []byte, pos, end int) (kawa.Version, int, error) {
	avail := end - pos
	n := len(http1Prefix)
	if avail < n {
		n = avail
	}
	if !bytes.Equal(buf[pos:pos+n], http1Prefix[:n]) {
		return kawa.VersionUnknown, 0, kawa.ErrMalformedVersion
	}
	if avail < len(http1Prefix)+1 {
		return kawa.VersionUnknown, 0, errNeedMore
	}
	switch buf[pos+len(http1Prefix)] {
	case '0':
		return kawa.V10, pos + len(http1Prefix) + 1, nil
	case '1':
		return kawa.V11, pos + len(http1Prefix) + 1, nil
	}
	return kawa.VersionUnknown, 0, kawa.ErrMalformedVersion
}

// requestLine parses "METHOD SP request-target SP version CRLF" into a
// status line of slice stores. Unknown methods are accepted as long as they
// are tokens; there is no method allowlist.
func requestLine(buf []byte, pos, end int) (kawa.StatusLine, int, error) {
	var sl kawa.StatusLine
	mEnd, err := token(buf, pos, end)
	if err != nil {
		return sl, 0, err
	}
	if mEnd == pos || buf[mEnd] != ' ' {
		return sl, 0, kawa.ErrMalformedStartLine
	}
	uriStart := mEnd + 1
	i := uriStart
	for i < end && isVChar(buf[i]) {
		i++
	}
	if i == end {
		return sl, 0, errNeedMore
	}
	if i == uriStart || buf[i] != ' ' {
		return sl, 0, kawa.ErrMalformedStartLine
	}
	uriEnd := i
	v, next, err := version(buf, uriEnd+1, end)
	if err != nil {
		return sl, 0, err
	}
	next, err = crlf(buf, next, end)
	if err == errNoMatch {
		return sl, 0, kawa.ErrMalformedStartLine
	}
	if err != nil {
		return sl, 0, err
	}
	authority, path := parseURL(buf[pos:mEnd], buf, uriStart, uriEnd)
	sl = kawa.StatusLine{
		Kind:      kawa.Request,
		Version:   v,
		Method:    kawa.NewSlice(pos, mEnd-pos),
		URI:       kawa.NewSlice(uriStart, uriEnd-uriStart),
		Authority: authority,
		Path:      path,
	}
	return sl, next, nil
}

// responseLine parses "version SP 3DIGIT SP reason CRLF". The reason phrase
// may be empty; a response line without the SP before the reason is accepted
// and yields an Empty reason store so that serialization stays byte-exact.
func responseLine(buf []byte, pos, end int) (kawa.StatusLine, int, error) {
	var sl kawa.StatusLine
	v, i, err := version(buf, pos, end)
	if err != nil {
		return sl, 0, err
	}
	if i >= end {
		return sl, 0, errNeedMore
	}
	if buf[i] != ' ' {
		return sl, 0, kawa.ErrMalformedStartLine
	}
	i++
	if end-i < 3 {
		return sl, 0, errNeedMore
	}
	if !isDigit(buf[i]) || !isDigit(buf[i+1]) || !isDigit(buf[i+2]) {
		return sl, 0, kawa.ErrMalformedStartLine
	}
	code := uint16(buf[i]-'0')*100 + uint16(buf[i+1]-'0')*10 + uint16(buf[i+2]-'0')
	statusStart := i
	i += 3
	if i >= end {
		return sl, 0, errNeedMore
	}
	reason := kawa.Store{}
	if buf[i] == ' ' {
		i++
		reasonStart := i
		for i < end && isStatusTokenChar(buf[i]) {
			i++
		}
		if i == end {
			return sl, 0, errNeedMore
		}
		reason = kawa.NewSlice(reasonStart, i-reasonStart)
	}
	next, err := crlf(buf, i, end)
	if err == errNoMatch {
		return sl, 0, kawa.ErrMalformedStartLine
	}
	if err != nil {
		return sl, 0, err
	}
	sl = kawa.StatusLine{
		Kind:    kawa.Response,
		Version: v,
		Code:    code,
		Status:  kawa.NewSlice(statusStart, 3),
		Reason:  reason,
	}
	return sl, next, nil
}

// headerLine parses `name ":" OWS value OWS CRLF` into a pair of slice
// stores. Obsolete line folding is rejected; whitespace before the colon is
// rejected (RFC 7230 §3.2.4, request smuggling vector); leading and trailing
// OWS is excluded from the value.
func headerLine(buf []byte, pos, end int) (kawa.Pair, int, error) {
	var p kawa.Pair
	if buf[pos] == ' ' || buf[pos] == '\t' {
		return p, 0, kawa.ErrMalformedHeader
	}
	nameEnd, err := token(buf, pos, end)
	if err != nil {
		return p, 0, err
	}
	if nameEnd == pos || buf[nameEnd] != ':' {
		return p, 0, kawa.ErrMalformedHeader
	}
	i := nameEnd + 1
	for i < end && (buf[i] == ' ' || buf[i] == '\t') {
		i++
	}
	if i == end {
		return p, 0, errNeedMore
	}
	valStart := i
	for i < end && isFieldChar(buf[i]) {
		i++
	}
	if i == end {
		return p, 0, errNeedMore
	}
	next, err := crlf(buf, i, end)
	if err == errNoMatch {
		return p, 0, kawa.ErrMalformedHeader
	}
	if err != nil {
		return p, 0, err
	}
	valEnd := i
	for valEnd > valStart && (buf[valEnd-1] == ' ' || buf[valEnd-1] == '\t') {
		valEnd--
	}
	p = kawa.Pair{
		Key: kawa.NewSlice(pos, nameEnd-pos),
		Val: kawa.NewSlice(valStart, valEnd-valStart),
	}
	return p, next, nil
}

// chunkHeader parses `hex [";" ext]* CRLF`. Extensions are skipped, never
// emitted. The returned store bounds cover the hex digits only.
func chunkHeader(buf []byte, pos, end int) (sizeStart, sizeLen, size, next int, err error) {
	i := pos
	for i < end && isHexDigit(buf[i]) {
		i++
	}
	if i == end {
		return 0, 0, 0, 0, errNeedMore
	}
	if i == pos || i-pos > maxChunkSizeDigits {
		return 0, 0, 0, 0, kawa.ErrBadChunkSize
	}
	for j := pos; j < i; j++ {
		size <<= 4
		switch c := buf[j]; {
		case c >= '0' && c <= '9':
			size |= int(c - '0')
		case c >= 'a' && c <= 'f':
			size |= int(c - 'a' + 10)
		default:
			size |= int(c - 'A' + 10)
		}
	}
	sizeStart, sizeLen = pos, i-pos
	if buf[i] == ';' {
		for i < end && buf[i] != '\r' && buf[i] != '\n' {
			i++
		}
		if i == end {
			return 0, 0, 0, 0, errNeedMore
		}
	}
	next, err = crlf(buf, i, end)
	if err == errNoMatch {
		return 0, 0, 0, 0, kawa.ErrBadChunkSize
	}
	if err != nil {
		return 0, 0, 0, 0, err
	}
	return sizeStart, sizeLen, size, next, nil
}

// parseContentLength parses a non-negative decimal, rejecting anything else.
func parseContentLength(val []byte) (int, bool) {
	if len(val) == 0 {
		return 0, false
	}
	n := 0
	for _, c := range val {
		if !isDigit(c) {
			return 0, false
		}
		n = n*10 + int(c-'0')
		if n < 0 {
			return 0, false
		}
	}
	return n, true
}

// hasChunkedLast reports whether a Transfer-Encoding value is a
// comma-separated list whose last element is "chunked" (case-insensitive).
func hasChunkedLast(val []byte) bool {
	if idx := bytes.LastIndexByte(val, ','); idx >= 0 {
		val = val[idx+1:]
	}
	val = bytes.Trim(val, " \t")
	return compareNoCase(val, chunkedBytes)
}

// parseURL decomposes a request target into authority and path stores:
//
//	server-wide:  OPTIONS *                     -> (Empty, "*")
//	origin:       GET /index.html               -> (Empty, "/index.html")
//	authority:    CONNECT www.example.org:8001  -> ("www.example.org:8001", "/")
//	absolute:     GET http://u@example.org/i.html -> ("example.org", "/i.html")
//
// Outside the absolute and authority forms the whole target is the path.
func parseURL(method, buf []byte, start, end int) (authority, path kawa.Store) {
	uri := buf[start:end]
	switch {
	case len(uri) == 0:
		return kawa.Store{}, kawa.Static(slashBytes)
	case compareNoCase(method, optionsBytes) && len(uri) == 1 && uri[0] == '*':
		return kawa.Store{}, kawa.Static(asteriskBytes)
	case compareNoCase(method, connectBytes):
		return kawa.NewSlice(start, end-start), kawa.Static(slashBytes)
	case uri[0] == '/':
		return kawa.Store{}, kawa.NewSlice(start, end-start)
	}
	scheme := bytes.Index(uri, []byte("://"))
	if scheme < 0 {
		return kawa.Store{}, kawa.NewSlice(start, end-start)
	}
	authStart := scheme + 3
	authEnd := authStart
	for authEnd < len(uri) && uri[authEnd] != '/' && uri[authEnd] != '?' && uri[authEnd] != '#' {
		authEnd++
	}
	// userinfo is dropped from the authority
	if at := bytes.LastIndexByte(uri[authStart:authEnd], '@'); at >= 0 {
		authStart += at + 1
	}
	authority = kawa.NewSlice(start+authStart, authEnd-authStart)
	if authEnd == len(uri) {
		return authority, kawa.Static(slashBytes)
	}
	return authority, kawa.NewSlice(start+authEnd, len(uri)-authEnd)
}
