// Package h1 is a streaming HTTP/1.x message framer. It splits requests
// and responses into first line, headers, body and trailers without
// copying payload bytes, reporting everything it sees to a Visitor.
package h1

import (
	"strconv"
	"strings"

	"github.com/indigo-web/h1/internal/buffer"
	"github.com/indigo-web/h1/internal/strutil"
	"github.com/indigo-web/iter"
	"github.com/indigo-web/utils/strcomp"
	"github.com/indigo-web/utils/uf"
)

const (
	hdrContentLength    = "Content-Length"
	hdrTransferEncoding = "Transfer-Encoding"
)

// Pair is a single parsed header line.
type Pair struct {
	Key, Value string
}

// ContentLengthStatus tells how the Content-Length of a message was
// resolved during framing.
type ContentLengthStatus int

const (
	// NoContentLength means no Content-Length header was seen.
	NoContentLength ContentLengthStatus = iota
	// ValidContentLength means the header parsed to a number.
	ValidContentLength
	// InvalidContentLength means the value was no decimal number.
	InvalidContentLength
	// ContentLengthOverflow means the value did not fit into 64 bits.
	ContentLengthOverflow
)

// headerLine locates one header line inside the backing storage. All
// offsets are relative to the beginning of the block, so the line stays
// valid even when other blocks come and go. A removed line is kept with
// the skip flag raised instead of being erased.
type headerLine struct {
	begin      int
	keyEnd     int
	valueBegin int
	end        int
	block      int
	skip       bool
}

// Headers is a parsed, mutable header collection. All lookups are
// case-insensitive linear scans; values returned by accessors are views
// into the backing storage and stay valid until Clear.
//
// The zero value is ready to use.
type Headers struct {
	buf   buffer.Buffer
	lines []headerLine

	// first line token boundaries, relative to firstlineBlock
	firstlineBlock int
	ws1, nws1      int
	ws2, nws2      int
	ws3, nws3      int
	ws4            int

	responseCode int

	contentLength       uint64
	contentLengthStatus ContentLengthStatus
	chunked             bool

	valuesBuff []string
	pairsBuff  []Pair
}

// NewHeaders returns an empty collection with the default block size.
func NewHeaders() *Headers {
	return NewHeadersBlocksize(buffer.DefaultBlockSize)
}

// NewHeadersBlocksize returns an empty collection whose storage grows
// in blocks of the given size.
func NewHeadersBlocksize(blocksize int) *Headers {
	return &Headers{buf: *buffer.New(blocksize)}
}

func (h *Headers) lineKey(l headerLine) string {
	return uf.B2S(h.buf.Block(l.block)[l.begin:l.keyEnd])
}

func (h *Headers) lineValue(l headerLine) string {
	return uf.B2S(h.buf.Block(l.block)[l.valueBegin:l.end])
}

// nextLine returns the index of the first live line of the key at or
// after from, or -1.
func (h *Headers) nextLine(key string, from int) int {
	for i := from; i < len(h.lines); i++ {
		l := h.lines[i]
		if !l.skip && strcomp.EqualFold(key, h.lineKey(l)) {
			return i
		}
	}

	return -1
}

func (h *Headers) makeLine(key, value string) headerLine {
	r := h.buf.Reserve(len(key) + 2 + len(value))
	n := copy(r.B, key)
	n += copy(r.B[n:], ": ")
	copy(r.B[n:], value)

	return headerLine{
		begin:      r.Begin,
		keyEnd:     r.Begin + len(key),
		valueBegin: r.Begin + len(key) + 2,
		end:        r.Begin + len(r.B),
		block:      r.Block,
	}
}

// joinLine writes a fresh line carrying the old value and the new one,
// comma-separated.
func (h *Headers) joinLine(key string, old headerLine, value string) headerLine {
	oldValue := h.lineValue(old)
	r := h.buf.Reserve(len(key) + 2 + len(oldValue) + 1 + len(value))
	n := copy(r.B, key)
	n += copy(r.B[n:], ": ")
	valueBegin := r.Begin + n
	n += copy(r.B[n:], oldValue)
	n += copy(r.B[n:], ",")
	copy(r.B[n:], value)

	return headerLine{
		begin:      r.Begin,
		keyEnd:     r.Begin + len(key),
		valueBegin: valueBegin,
		end:        r.Begin + len(r.B),
		block:      r.Block,
	}
}

// Append adds a new header line, regardless of whether lines with the
// same key are already present.
func (h *Headers) Append(key, value string) {
	h.lines = append(h.lines, h.makeLine(key, value))
}

// ReplaceOrAppend rewrites the first line of the key in place, removes
// the remaining ones, or appends a fresh line if the key is absent.
func (h *Headers) ReplaceOrAppend(key, value string) {
	first := h.nextLine(key, 0)
	if first == -1 {
		h.Append(key, value)
		return
	}

	for i := h.nextLine(key, first+1); i != -1; i = h.nextLine(key, i+1) {
		h.lines[i].skip = true
	}

	h.lines[first] = h.makeLine(key, value)
}

// AppendToHeader merges value into the first line of the key with a
// comma, or appends a fresh line if the key is absent.
func (h *Headers) AppendToHeader(key, value string) {
	i := h.nextLine(key, 0)
	if i == -1 {
		h.Append(key, value)
		return
	}

	h.extendLine(i, key, h.lines[i], value)
}

// AppendToHeaderWithCommaAndSpace behaves like AppendToHeader, except
// that it joins with ", " and extends the last line of the key, keeping
// the order of earlier appends.
func (h *Headers) AppendToHeaderWithCommaAndSpace(key, value string) {
	last := -1
	for i := h.nextLine(key, 0); i != -1; i = h.nextLine(key, i+1) {
		last = i
	}

	if last == -1 {
		h.Append(key, value)
		return
	}

	h.extendLine(last, key, h.lines[last], " "+value)
}

func (h *Headers) extendLine(idx int, key string, old headerLine, value string) {
	var line headerLine
	if old.valueBegin == old.end {
		line = h.makeLine(key, value)
	} else {
		line = h.joinLine(key, old, value)
	}

	h.lines[idx].skip = true
	h.lines = append(h.lines, line)
}

// Get returns the value of the first live line of the key, or an empty
// string. Keys that may legally repeat deserve GetAll instead; see
// IsMultivalued.
func (h *Headers) Get(key string) string {
	i := h.nextLine(key, 0)
	if i == -1 {
		return ""
	}

	return h.lineValue(h.lines[i])
}

// GetAll returns every live value of the key in insertion order, or nil.
//
// WARNING: calling it twice will override values, returned by the first
// call. Consider copying the returned slice for safe use
func (h *Headers) GetAll(key string) []string {
	h.valuesBuff = h.valuesBuff[:0]

	for i := h.nextLine(key, 0); i != -1; i = h.nextLine(key, i+1) {
		h.valuesBuff = append(h.valuesBuff, h.lineValue(h.lines[i]))
	}

	if len(h.valuesBuff) == 0 {
		return nil
	}

	return h.valuesBuff
}

// GetAllIncludeRemoved returns the live values of the key first,
// followed by the values of lines that were removed earlier. Shares the
// buffer reuse caveat of GetAll.
func (h *Headers) GetAllIncludeRemoved(key string) []string {
	h.valuesBuff = h.valuesBuff[:0]

	for _, removed := range [2]bool{false, true} {
		for _, l := range h.lines {
			if l.skip == removed && strcomp.EqualFold(key, h.lineKey(l)) {
				h.valuesBuff = append(h.valuesBuff, h.lineValue(l))
			}
		}
	}

	if len(h.valuesBuff) == 0 {
		return nil
	}

	return h.valuesBuff
}

// GetAllAsString returns every live value of the key joined by commas.
func (h *Headers) GetAllAsString(key string) string {
	return strings.Join(h.GetAll(key), ",")
}

// Has reports whether the key is present.
func (h *Headers) Has(key string) bool {
	return h.nextLine(key, 0) != -1
}

// HasNonEmpty reports whether the key is present with a non-empty value.
func (h *Headers) HasNonEmpty(key string) bool {
	for i := h.nextLine(key, 0); i != -1; i = h.nextLine(key, i+1) {
		if l := h.lines[i]; l.valueBegin < l.end {
			return true
		}
	}

	return false
}

// HasValue reports whether any line of the key contains the token as a
// standalone comma-separated element.
func (h *Headers) HasValue(key, token string) bool {
	return h.hasValue(key, token, true)
}

// HasValueIgnoreCase is HasValue with case-insensitive token matching.
func (h *Headers) HasValueIgnoreCase(key, token string) bool {
	return h.hasValue(key, token, false)
}

func (h *Headers) hasValue(key, token string, caseSensitive bool) bool {
	for i := h.nextLine(key, 0); i != -1; i = h.nextLine(key, i+1) {
		value := h.lineValue(h.lines[i])

		for len(value) > 0 {
			var element string
			element, value = cutElement(value)

			if caseSensitive {
				if element == token {
					return true
				}
			} else if strcomp.EqualFold(element, token) {
				return true
			}
		}
	}

	return false
}

// cutElement splits off the first comma-separated element, trimmed of
// surrounding whitespace.
func cutElement(value string) (element, rest string) {
	if comma := strings.IndexByte(value, ','); comma != -1 {
		return strutil.TrimWS(value[:comma]), value[comma+1:]
	}

	return strutil.TrimWS(value), ""
}

// RemoveAll removes every line of the key.
func (h *Headers) RemoveAll(key string) {
	for i := h.nextLine(key, 0); i != -1; i = h.nextLine(key, i+1) {
		h.lines[i].skip = true
	}

	h.maybeClearSpecialValues(key)
}

// RemoveAllInList removes every line of each of the keys.
func (h *Headers) RemoveAllInList(keys []string) {
	for _, key := range keys {
		h.RemoveAll(key)
	}
}

// RemoveAllWithPrefix removes every line whose key starts with the
// prefix, case-insensitively.
func (h *Headers) RemoveAllWithPrefix(prefix string) {
	for i := range h.lines {
		l := &h.lines[i]
		if l.skip {
			continue
		}

		key := h.lineKey(*l)
		if len(key) >= len(prefix) && strcomp.EqualFold(key[:len(prefix)], prefix) {
			l.skip = true
			h.maybeClearSpecialValues(key)
		}
	}
}

// HasWithPrefix reports whether any live key starts with the prefix.
func (h *Headers) HasWithPrefix(prefix string) bool {
	for _, l := range h.lines {
		if l.skip {
			continue
		}

		key := h.lineKey(l)
		if len(key) >= len(prefix) && strcomp.EqualFold(key[:len(prefix)], prefix) {
			return true
		}
	}

	return false
}

func (h *Headers) maybeClearSpecialValues(key string) {
	if strcomp.EqualFold(key, hdrContentLength) {
		if !h.chunked {
			h.contentLengthStatus = NoContentLength
			h.contentLength = 0
		}
	} else if strcomp.EqualFold(key, hdrTransferEncoding) {
		h.chunked = false
	}
}

// RemoveValue removes every standalone occurrence of value from the
// lines of the key, compacting the line in place. Lines left without
// any value are removed entirely. Returns the number of occurrences
// removed.
func (h *Headers) RemoveValue(key, value string) int {
	needle := strutil.TrimWS(value)
	if len(needle) == 0 {
		return 0
	}

	removals := 0

	for i := h.nextLine(key, 0); i != -1; i = h.nextLine(key, i+1) {
		line := &h.lines[i]
		if line.end-line.valueBegin < len(needle) {
			continue
		}

		buf := h.buf.Block(line.block)
		begin, end := line.valueBegin, line.end

		for begin < end && strutil.IsWS(buf[begin]) {
			begin++
		}
		for end > begin && strutil.IsWS(buf[end-1]) {
			end--
		}

		if end-begin == len(needle) {
			if uf.B2S(buf[begin:end]) == needle {
				line.skip = true
				removals++
			}
			continue
		}

		// several elements on the line: compact survivors to the left
		insertion := line.valueBegin
		cur := begin

		for end-cur >= len(needle) {
			lead := 0
			for strutil.IsWS(buf[cur]) {
				cur++
				lead++
			}

			rest := uf.B2S(buf[cur:end])
			found := strings.HasPrefix(rest, needle)

			from := 0
			if found {
				from = len(needle)
			}

			size := len(rest)
			comma := strings.IndexByte(rest[from:], ',')
			commaFound := comma != -1
			if commaFound {
				size = from + comma + 1
			}

			if found && size != len(needle) {
				element := rest[:size]
				if commaFound {
					element = element[:len(element)-1]
				}
				element = strutil.RStripWS(element)
				found = len(element) == len(needle)
			}

			if found {
				removals++
				if !commaFound {
					// drop the comma dangling after the previous element
					insertion--
				}
			} else if insertion+lead != cur {
				copy(buf[insertion:], buf[cur:cur+size])
				insertion += size
			} else {
				insertion += lead + size
			}

			cur += size
		}

		if cur < end {
			if insertion != cur {
				copy(buf[insertion:], buf[cur:end])
			}
			insertion += end - cur
		}

		if insertion <= line.valueBegin {
			line.skip = true
		} else {
			line.end = insertion
		}
	}

	return removals
}

// RemoveLastTokenFromValue drops the last token from the last live line
// of the key. A line holding at most a single token is removed
// entirely; earlier lines of the key are untouched.
func (h *Headers) RemoveLastTokenFromValue(key string) {
	last := -1
	for i := h.nextLine(key, 0); i != -1; i = h.nextLine(key, i+1) {
		last = i
	}
	if last == -1 {
		return
	}

	line := &h.lines[last]
	spans := tokenSpans(h.lineValue(*line))
	if len(spans) < 2 {
		line.skip = true
		return
	}

	line.end = line.valueBegin + spans[len(spans)-2][1]
}

// ContentLength returns the cached Content-Length value. Only
// meaningful when ContentLengthStatus reports ValidContentLength.
func (h *Headers) ContentLength() uint64 {
	return h.contentLength
}

// ContentLengthStatus reports how the Content-Length was resolved.
func (h *Headers) ContentLengthStatus() ContentLengthStatus {
	return h.contentLengthStatus
}

// TransferEncodingChunked reports whether the message body is chunked.
func (h *Headers) TransferEncodingChunked() bool {
	return h.chunked
}

// SetContentLength replaces any Content-Length lines with the given
// value. Chunked transfer encoding, if set, is cleared, as the two
// framings are mutually exclusive.
func (h *Headers) SetContentLength(length uint64) {
	if h.contentLengthStatus == ValidContentLength && h.contentLength == length {
		return
	}

	if h.contentLengthStatus != NoContentLength {
		h.RemoveAll(hdrContentLength)
	} else if h.chunked {
		h.RemoveAll(hdrTransferEncoding)
	}

	h.contentLengthStatus = ValidContentLength
	h.contentLength = length
	h.Append(hdrContentLength, strconv.FormatUint(length, 10))
}

// ClearContentLength removes the Content-Length lines and cache.
func (h *Headers) ClearContentLength() {
	h.RemoveAll(hdrContentLength)
}

// SetTransferEncodingChunked marks the message as chunked, removing any
// Content-Length along the way.
func (h *Headers) SetTransferEncodingChunked() {
	if h.chunked {
		return
	}

	if h.contentLengthStatus != NoContentLength {
		h.ClearContentLength()
	}

	h.ReplaceOrAppend(hdrTransferEncoding, "chunked")
	h.chunked = true
}

// SetNoTransferEncoding removes the Transfer-Encoding lines altogether.
func (h *Headers) SetNoTransferEncoding() {
	if h.chunked {
		h.RemoveAll(hdrTransferEncoding)
	}
}

// Pairs returns an iterator over the live header lines.
//
// WARNING: calling it twice will override pairs, returned by the first
// call. Consider collecting them for safe use
func (h *Headers) Pairs() iter.Iterator[Pair] {
	h.pairsBuff = h.pairsBuff[:0]

	for _, l := range h.lines {
		if l.skip {
			continue
		}

		h.pairsBuff = append(h.pairsBuff, Pair{h.lineKey(l), h.lineValue(l)})
	}

	return iter.Slice(h.pairsBuff)
}

// ForEach calls fn for every live header line until it returns false.
// Reports whether the whole collection was visited.
func (h *Headers) ForEach(fn func(key, value string) bool) bool {
	for _, l := range h.lines {
		if l.skip || l.begin == l.keyEnd {
			continue
		}

		if !fn(h.lineKey(l), h.lineValue(l)) {
			return false
		}
	}

	return true
}

// Len reports the number of live header lines.
func (h *Headers) Len() (n int) {
	for _, l := range h.lines {
		if !l.skip {
			n++
		}
	}

	return n
}

// IsEmpty reports whether nothing was parsed or added yet.
func (h *Headers) IsEmpty() bool {
	return h.buf.TotalBytesUsed() == 0
}

// Clear resets the collection for reuse. The line list keeps its
// capacity, the storage blocks are released.
func (h *Headers) Clear() {
	h.buf.Clear()
	h.lines = h.lines[:0]
	h.firstlineBlock = 0
	h.ws1, h.nws1 = 0, 0
	h.ws2, h.nws2 = 0, 0
	h.ws3, h.nws3 = 0, 0
	h.ws4 = 0
	h.responseCode = 0
	h.contentLength = 0
	h.contentLengthStatus = NoContentLength
	h.chunked = false
}

// CopyFrom turns h into a deep copy of other.
func (h *Headers) CopyFrom(other *Headers) {
	h.buf.CopyFrom(&other.buf)
	h.lines = append(h.lines[:0], other.lines...)
	h.firstlineBlock = other.firstlineBlock
	h.ws1, h.nws1 = other.ws1, other.nws1
	h.ws2, h.nws2 = other.ws2, other.nws2
	h.ws3, h.nws3 = other.ws3, other.nws3
	h.ws4 = other.ws4
	h.responseCode = other.responseCode
	h.contentLength = other.contentLength
	h.contentLengthStatus = other.contentLengthStatus
	h.chunked = other.chunked
}

// Clone creates a deep copy, which may be stored somewhere safely.
// However, it comes at cost of copying the whole backing storage.
func (h *Headers) Clone() *Headers {
	clone := &Headers{}
	clone.CopyFrom(h)

	return clone
}

// move transplants the contents of h into a fresh collection, leaving h
// empty. The Go flavor of passing ownership along.
func (h *Headers) move() *Headers {
	moved := &Headers{}
	*moved = *h
	*h = Headers{buf: *buffer.New(moved.buf.Blocksize())}

	return moved
}

// DebugString renders the collection for diagnostics.
func (h *Headers) DebugString() string {
	var sb strings.Builder
	sb.WriteString(h.FirstLine())

	for _, l := range h.lines {
		if l.skip {
			continue
		}

		sb.WriteByte('\n')
		sb.WriteString(h.lineKey(l))
		sb.WriteString(": ")
		sb.WriteString(h.lineValue(l))
	}

	return sb.String()
}

// framer-facing storage hooks

func (h *Headers) writeFromFramer(p []byte) {
	h.buf.WriteContiguous(p)
}

func (h *Headers) doneWritingFromFramer() {
	h.buf.Finalize()
}

func (h *Headers) framerIsDone() bool {
	return h.buf.Finalized()
}

func (h *Headers) rawHeaderStream() []byte {
	return h.buf.Contiguous()
}
