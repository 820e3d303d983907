package h1

import (
	"strconv"

	"github.com/indigo-web/utils/uf"
)

// The first line is stored as three tokens separated by whitespace
// islands. Token boundaries are kept as offsets into the block the line
// lives in, which lets setters rewrite single tokens in place whenever
// the replacement fits into the surrounding slack.

func (h *Headers) firstLineBuf() []byte {
	if h.buf.NumBlocks() == 0 {
		return nil
	}

	return h.buf.Block(h.firstlineBlock)
}

func (h *Headers) firstLineToken(begin, end int) string {
	buf := h.firstLineBuf()
	if buf == nil {
		return ""
	}

	return uf.B2S(buf[begin:end])
}

// FirstLine returns the whole first line without the trailing CRLF.
func (h *Headers) FirstLine() string {
	return h.firstLineToken(h.nws1, h.ws4)
}

// RequestMethod returns the first token of a request line.
func (h *Headers) RequestMethod() string {
	return h.firstLineToken(h.nws1, h.ws2)
}

// RequestURI returns the target of a request line.
func (h *Headers) RequestURI() string {
	return h.firstLineToken(h.nws2, h.ws3)
}

// RequestVersion returns the protocol token of a request line.
func (h *Headers) RequestVersion() string {
	return h.firstLineToken(h.nws3, h.ws4)
}

// ResponseVersion returns the protocol token of a status line.
func (h *Headers) ResponseVersion() string {
	return h.firstLineToken(h.nws1, h.ws2)
}

// ResponseReason returns the reason phrase, spaces included.
func (h *Headers) ResponseReason() string {
	return h.firstLineToken(h.nws3, h.ws4)
}

// ResponseCode returns the parsed status code, or 0 if none was parsed.
func (h *Headers) ResponseCode() int {
	return h.responseCode
}

// SetRequestFirstLine rewrites the first line from its three tokens.
func (h *Headers) SetRequestFirstLine(method, uri, version string) {
	h.setFirstLine(method, uri, version)
}

// SetResponseFirstLine rewrites the status line.
func (h *Headers) SetResponseFirstLine(version string, code int, reason string) {
	h.setFirstLine(version, strconv.Itoa(code), reason)
	h.responseCode = code
}

func (h *Headers) setFirstLine(t1, t2, t3 string) {
	r := h.buf.Reserve(len(t1) + 1 + len(t2) + 1 + len(t3))
	n := copy(r.B, t1)
	r.B[n] = ' '
	n++
	n += copy(r.B[n:], t2)
	r.B[n] = ' '
	n++
	copy(r.B[n:], t3)

	h.firstlineBlock = r.Block
	h.ws1 = r.Begin
	h.nws1 = r.Begin
	h.ws2 = r.Begin + len(t1)
	h.nws2 = h.ws2 + 1
	h.ws3 = h.nws2 + len(t2)
	h.nws3 = h.ws3 + 1
	h.ws4 = h.nws3 + len(t3)
}

// SetRequestMethod rewrites the method token. When the new token fits
// into the slack before the URI it is written in place, shifting the
// visible line start instead of rewriting the whole line.
func (h *Headers) SetRequestMethod(method string) {
	if len(method) <= h.ws2-h.ws1 {
		h.nws1 = h.ws2 - len(method)
		copy(h.firstLineBuf()[h.nws1:], method)
		return
	}

	h.setFirstLine(method, h.RequestURI(), h.RequestVersion())
}

// SetRequestVersion rewrites the protocol token, in place when the new
// token plus a separating space fits into the tail of the line.
func (h *Headers) SetRequestVersion(version string) {
	if len(version)+1 <= h.ws4-h.ws3 {
		buf := h.firstLineBuf()
		buf[h.ws3] = ' '
		h.nws3 = h.ws3 + 1
		h.ws4 = h.nws3 + len(version)
		copy(buf[h.nws3:], version)
		return
	}

	h.setFirstLine(h.RequestMethod(), h.RequestURI(), version)
}

// SetRequestURI rewrites the whole line; the middle token cannot borrow
// slack from its neighbours.
func (h *Headers) SetRequestURI(uri string) {
	h.setFirstLine(h.RequestMethod(), uri, h.RequestVersion())
}

// SetResponseVersion rewrites the protocol token of a status line.
func (h *Headers) SetResponseVersion(version string) {
	h.SetRequestMethod(version)
}

// SetResponseReason rewrites the reason phrase.
func (h *Headers) SetResponseReason(reason string) {
	h.SetRequestVersion(reason)
}

// SetResponseCode rewrites the status code token together with the
// parsed code.
func (h *Headers) SetResponseCode(code int) {
	h.responseCode = code
	h.setFirstLine(h.ResponseVersion(), strconv.Itoa(code), h.ResponseReason())
}

// ResponseCanHaveBody reports whether a response with the given status
// code is allowed to carry a body.
func ResponseCanHaveBody(code int) bool {
	if code >= 100 && code < 200 {
		return false
	}

	return code != 204 && code != 304
}
