package h1

import (
	"strconv"
	"strings"

	"github.com/indigo-web/utils/strcomp"
	"github.com/indigo-web/utils/uf"
)

var headerSectionPatch = []byte("\r\n\r\n")

// processHeaders accumulates the header section into the attached
// collection, looking for the line that terminates it. Lines are
// accounted as spans into the raw header stream so that a section split
// across any number of reads parses exactly like a contiguous one.
func (f *Framer) processHeaders(data []byte) int {
	var (
		current      = 0
		end          = len(data)
		checkpoint   = 0
		messageStart = 0
	)

	if end == 0 {
		return 0
	}

	for current < end {
		base := f.headers.buf.ContiguousLen()

		if !f.sawNonNewlineChar {
			// newlines between messages are tolerated, any other
			// control byte or space before the first line is not
			for {
				c := data[current]
				if c != '\r' && c != '\n' {
					if c <= ' ' {
						if f.isRequest {
							f.handleError(NoRequestLineInRequest)
						} else {
							f.handleError(NoStatusLineInResponse)
						}
						return current
					}
					break
				}

				current++
				if current == end {
					return current
				}
			}

			f.sawNonNewlineChar = true
			checkpoint = current
			messageStart = current
		}

		for current < end {
			if data[current] != '\n' {
				current++
				continue
			}

			lineEnd := 1 + base + current - messageStart
			f.lines = append(f.lines, lineSpan{f.lastNewlineIdx, lineEnd})

			if len(f.lines) == 1 {
				f.headers.writeFromFramer(data[checkpoint : current+1])
				checkpoint = current + 1
				f.processFirstLine(f.headers.rawHeaderStream()[:f.lines[0].end])

				if f.state == MessageFullyRead {
					break
				}
				if f.state == ParseError {
					return current
				}
			}

			sinceLastNewline := lineEnd - f.lastNewlineIdx
			f.lastNewlineIdx = lineEnd

			// more than two bytes passed since the previous newline,
			// so this one cannot terminate the section
			if sinceLastNewline > 2 {
				current++
				continue
			}

			if sinceLastNewline == 1 ||
				(current > messageStart && data[current-1] == '\r') ||
				f.lastCharWasCR {
				break
			}

			current++
		}

		if current == end {
			continue
		}

		current++
		if current > messageStart {
			f.headers.writeFromFramer(data[checkpoint:current])
		}

		if f.headers.buf.ContiguousLen() > f.maxHeaderLength {
			f.handleHeadersTooLong()
			return current
		}

		f.headers.doneWritingFromFramer()
		f.visitor.OnHeaderInput(f.headers.rawHeaderStream())
		f.processHeaderLines(f.lines, false, f.headers)
		if f.state == ParseError {
			return current
		}

		code := f.headers.responseCode

		if f.interimHeadersEnabled && isInterimResponse(code) &&
			code != statusSwitchingProtocols {
			f.visitor.OnInterimHeaders(f.headers.move())
			f.Reset()
			checkpoint = current
			messageStart = current
			continue
		}

		if f.continueHeaders != nil && code == statusContinue {
			// Reset would wipe the destination, so move twice
			saved := f.headers.move()
			f.Reset()
			*f.continueHeaders = *saved
			f.visitor.ContinueHeaderDone()
			checkpoint = current
			messageStart = current
			continue
		}

		f.assignParseStateAfterHeadersParsed()
		if f.state == ParseError {
			return current
		}

		f.visitor.ProcessHeaders(f.headers)
		f.visitor.HeaderDone()

		if f.state == MessageFullyRead {
			f.visitor.MessageDone()
		}

		return current
	}

	// input exhausted with the section still open
	f.lastCharWasCR = data[end-1] == '\r'
	if current > messageStart {
		f.headers.writeFromFramer(data[checkpoint:current])
	}

	return current
}

func isInterimResponse(code int) bool {
	return code >= 100 && code < 200
}

// handleHeadersTooLong fails the message. With truncated-header parsing
// enabled, the part of the section that fit under the limit is patched
// into a well-formed one and parsed first.
func (f *Framer) handleHeadersTooLong() {
	if f.parseTruncatedHeaders {
		length := f.headers.buf.ContiguousLen()

		// Truncation right after a newline (or on a bare CR) leaves no
		// dangling line to close off.
		if f.lastNewlineIdx < length && f.headers.buf.Contiguous()[f.lastNewlineIdx] != '\r' {
			f.headers.writeFromFramer(headerSectionPatch)
			f.lines = append(f.lines,
				lineSpan{f.lastNewlineIdx, length + 2},
				lineSpan{length + 2, length + 4},
			)
		}

		f.headers.doneWritingFromFramer()
		f.visitor.OnHeaderInput(f.headers.rawHeaderStream())
		f.processHeaderLines(f.lines, false, f.headers)
	}

	f.handleError(HeadersTooLong)
}

// processFirstLine splits the first line into its tokens and reports it
// to the visitor. For requests, an absent protocol token means an
// HTTP/0.9 style message that ends right after the line.
func (f *Framer) processFirstLine(line []byte) {
	previous := f.lastError

	if !f.parseFirstLine(line, f.headers) {
		f.handleError(f.lastError)
		return
	}

	if previous != f.lastError {
		f.handleWarning(f.lastError)
	}

	h := f.headers
	lineView := uf.B2S(line[h.nws1:h.ws4])
	first := uf.B2S(line[h.nws1:h.ws2])
	second := uf.B2S(line[h.nws2:h.ws3])
	third := uf.B2S(line[h.nws3:h.ws4])

	if f.isRequest {
		if f.policy.DisallowInvalidTargetURIs && !isValidTargetURI(first, second) {
			f.handleError(InvalidTargetURI)
			return
		}

		f.visitor.OnRequestFirstLineInput(lineView, first, second, third)

		if len(third) == 0 {
			f.state = MessageFullyRead
		}

		return
	}

	f.visitor.OnResponseFirstLineInput(lineView, first, second, third)
}

// parseFirstLine locates the three token islands of the first line and
// caches their boundaries on the collection. Returns false on errors;
// recoverable oddities only set lastError.
func (f *Framer) parseFirstLine(line []byte, h *Headers) bool {
	end := len(line)
	for end > 0 && (line[end-1] == '\n' || line[end-1] == '\r') {
		end--
	}

	if f.policy.FirstLineValidation != FirstLineAllowAll {
		sanitize := f.policy.FirstLineValidation == FirstLineSanitize

		for i := 0; i < end; i++ {
			if line[i] != '\r' && line[i] != '\t' {
				continue
			}

			if !sanitize {
				if f.isRequest {
					f.lastError = InvalidWsInRequestLine
				} else {
					f.lastError = InvalidWsInStatusLine
				}
				return false
			}

			line[i] = ' '
		}
	}

	cur := parseTokenIsland(line, 0, end, &h.ws1, &h.nws1)
	cur = parseTokenIsland(line, cur, end, &h.ws2, &h.nws2)
	cur = parseTokenIsland(line, cur, end, &h.ws3, &h.nws3)

	// the third token runs to the end of the line: reason phrases
	// contain spaces
	last := end
	for cur < last && line[last-1] <= ' ' {
		last--
	}
	h.ws4 = last
	h.firstlineBlock = 0

	if h.nws2 == h.ws3 {
		if f.isRequest {
			f.lastError = FailedToFindWsAfterRequestMethod
		} else {
			f.lastError = FailedToFindWsAfterResponseVersion
			return false
		}
	}

	if h.ws3 == h.nws3 && f.lastError == NoError {
		if f.isRequest {
			f.lastError = FailedToFindWsAfterRequestURI
		} else {
			f.lastError = FailedToFindWsAfterResponseStatuscode
		}
	}

	if !f.isRequest {
		h.responseCode = 0

		if h.nws2 < h.ws3 {
			code, err := strconv.Atoi(uf.B2S(line[h.nws2:h.ws3]))
			if err != nil || code < 0 {
				f.lastError = FailedConvertingStatusCodeToInt
				return false
			}

			h.responseCode = code
		}
	}

	return true
}

// parseTokenIsland records where the whitespace run starting at cur
// ends and where the following token ends.
func parseTokenIsland(line []byte, cur, end int, ws, nws *int) int {
	*ws = cur
	for cur < end && line[cur] <= ' ' {
		cur++
	}

	*nws = cur
	for cur < end && line[cur] > ' ' {
		cur++
	}

	return cur
}

// isValidTargetURI checks the request target against the forms of RFC
// 9112: origin, absolute, authority (CONNECT) and asterisk (OPTIONS).
func isValidTargetURI(method, target string) bool {
	if len(target) == 0 {
		return false
	}

	if target == "*" {
		return method == "OPTIONS"
	}

	if method == "CONNECT" {
		colon := strings.LastIndexByte(target, ':')
		if colon < 1 {
			return false
		}

		host, port := target[:colon], target[colon+1:]
		if strings.HasPrefix(host, "[") != strings.HasSuffix(host, "]") {
			return false
		}

		number, err := strconv.Atoi(port)

		return err == nil && number >= 0 && number <= 65535
	}

	return target[0] == '/' || strings.Contains(target, "://")
}

// processHeaderLines parses the accounted line spans into key-value
// descriptors on h and resolves the body framing headers. The last span
// is always the blank terminator line.
func (f *Framer) processHeaderLines(lines []lineSpan, isTrailer bool, h *Headers) {
	if (f.invalidCharsError || f.policy.DisallowLoneCRInRequestHeaders) &&
		f.checkHeaderLinesForInvalidChars(lines, h) {
		f.handleError(InvalidHeaderCharacter)
		return
	}

	minLines := 2
	if isTrailer {
		minLines = 1
	}
	if len(lines) <= minLines {
		return
	}

	if !f.findColonsAndParseIntoKeyValue(lines, isTrailer, h) {
		return
	}

	contentLengthIdx := -1
	transferEncodingIdx := -1

	for i := range h.lines {
		line := &h.lines[i]
		key := h.lineKey(*line)

		if len(key) == 0 || key[0] == ' ' {
			f.handleError(errFormat(isTrailer))
			return
		}

		if isTrailer {
			continue
		}

		if strcomp.EqualFold(key, hdrContentLength) {
			status, length := parseContentLengthValue(h.lineValue(*line))

			if contentLengthIdx == -1 {
				contentLengthIdx = i
				h.contentLengthStatus = status

				if status == ValidContentLength {
					h.contentLength = length
					f.contentRemaining = length
				}

				continue
			}

			if status != h.contentLengthStatus ||
				(status == ValidContentLength &&
					(f.policy.DisallowMultipleContentLength ||
						length != h.contentLength)) {
				f.handleError(MultipleContentLengthKeys)
				return
			}

			continue
		}

		if strcomp.EqualFold(key, hdrTransferEncoding) {
			if f.policy.ValidateTransferEncoding && transferEncodingIdx != -1 {
				f.handleError(MultipleTransferEncodingKeys)
				return
			}

			transferEncodingIdx = i
		}
	}

	if isTrailer {
		return
	}

	if f.policy.ValidateTransferEncoding &&
		f.policy.DisallowTransferEncodingWithContentLength &&
		transferEncodingIdx != -1 && contentLengthIdx != -1 {
		f.handleError(BothTransferEncodingAndContentLength)
		return
	}

	if h.chunked {
		h.contentLength = 0
		h.contentLengthStatus = NoContentLength
		f.contentRemaining = 0
	}

	if transferEncodingIdx != -1 {
		f.processTransferEncodingLine(h, h.lineValue(h.lines[transferEncodingIdx]))
	}
}

// checkHeaderLinesForInvalidChars sweeps the whole section once for
// bytes that cannot legally appear anywhere in it.
func (f *Framer) checkHeaderLinesForInvalidChars(lines []lineSpan, h *Headers) bool {
	stream := h.rawHeaderStream()
	begin := lines[0].begin
	end := lines[len(lines)-1].end
	invalid := false

	for i := begin; i < end; i++ {
		c := stream[i]

		if f.invalidCharsError && isInvalidHeaderChar(c) {
			invalid = true
		}

		if c == '\r' && f.policy.DisallowLoneCRInRequestHeaders &&
			i+1 < end && stream[i+1] != '\n' {
			invalid = true
		}
	}

	return invalid
}

// findColonsAndParseIntoKeyValue walks the header lines, folding
// continuations, locating the key-value split and trimming whitespace
// around it. The colon search position survives across folded lines.
func (f *Framer) findColonsAndParseIntoKeyValue(lines []lineSpan, isTrailer bool, h *Headers) bool {
	stream := h.rawHeaderStream()
	linesEnd := len(lines) - 1

	first := 1
	if isTrailer {
		first = 0
	}

	current := lines[first].begin

	for i := first; i < linesEnd; {
		lineBegin := lines[i].begin

		for i++; i < linesEnd; i++ {
			c := stream[lines[i].begin]
			if c > ' ' {
				break
			}

			// a continuation line folds into the previous one
			if (c != ' ' && c != '\t') || f.policy.DisallowHeaderContinuationLines {
				f.handleError(errFormat(isTrailer))
				return false
			}
		}

		lineEnd := lines[i-1].end - 1 // at the newline
		for lineEnd > lineBegin && stream[lineEnd] <= ' ' {
			lineEnd--
		}
		lineEnd++

		h.lines = append(h.lines, headerLine{
			begin:      lineBegin,
			keyEnd:     lineEnd,
			valueBegin: lineEnd,
			end:        lineEnd,
		})

		if current >= lineEnd {
			if f.policy.RequireHeaderColon {
				f.handleError(errMissingColon(isTrailer))
				return false
			}

			f.handleWarning(errMissingColon(isTrailer))
			continue
		}

		if current < lineBegin {
			current = lineBegin
		}

		for ; current < lineEnd; current++ {
			c := stream[current]
			if c == ':' {
				break
			}

			if isInvalidHeaderKeyChar(c, f.policy.DisallowDoubleQuoteInHeaderName) ||
				(f.policy.DisallowObsTextInFieldNames && c >= 0x80) {
				f.handleError(errInvalidNameChar(isTrailer))
				return false
			}
		}

		if current == lineEnd {
			if f.policy.RequireHeaderColon {
				f.handleError(errMissingColon(isTrailer))
				return false
			}

			f.handleWarning(errMissingColon(isTrailer))
			continue
		}

		cleanUpKeyValueWhitespace(stream, lineBegin, lineEnd, current,
			&h.lines[len(h.lines)-1])
	}

	return true
}

// cleanUpKeyValueWhitespace pulls the key end back over the whitespace
// before the colon and pushes the value begin past the whitespace after
// it.
func cleanUpKeyValueWhitespace(stream []byte, lineBegin, lineEnd, colon int, line *headerLine) {
	cur := colon - 1
	for cur > lineBegin && stream[cur] <= ' ' {
		cur--
	}
	if cur != colon {
		cur++
	}
	line.keyEnd = cur

	cur = colon + 1
	for cur < lineEnd && stream[cur] <= ' ' {
		cur++
	}
	line.valueBegin = cur
}

func parseContentLengthValue(value string) (ContentLengthStatus, uint64) {
	if len(value) == 0 {
		return InvalidContentLength, 0
	}

	var length uint64

	for i := 0; i < len(value); i++ {
		c := value[i]
		if c < '0' || c > '9' {
			return InvalidContentLength, 0
		}

		if length > maxUint64/10 {
			return ContentLengthOverflow, 0
		}

		length *= 10

		digit := uint64(c - '0')
		if digit > maxUint64-length {
			return ContentLengthOverflow, 0
		}

		length += digit
	}

	return ValidContentLength, length
}

func (f *Framer) processTransferEncodingLine(h *Headers, value string) {
	switch {
	case strcomp.EqualFold(value, "chunked"):
		h.chunked = true
	case strcomp.EqualFold(value, "identity"):
		h.chunked = false
	case f.policy.ValidateTransferEncoding:
		f.handleError(UnknownTransferEncoding)
	}
}

// assignParseStateAfterHeadersParsed decides whether a body follows and
// how it is framed.
func (f *Framer) assignParseStateAfterHeadersParsed() {
	f.state = MessageFullyRead

	if !f.isRequest &&
		(f.requestWasHead || !ResponseCanHaveBody(f.headers.responseCode)) {
		return
	}

	if f.headers.chunked {
		f.state = ReadingChunkLength
		return
	}

	switch f.headers.contentLengthStatus {
	case ValidContentLength:
		if f.headers.contentLength != 0 {
			f.state = ReadingContent
		}

	case InvalidContentLength, ContentLengthOverflow:
		f.handleError(UnparsableContentLength)

	case NoContentLength:
		if f.isRequest {
			method := f.headers.RequestMethod()

			if (method != "POST" && method != "PUT") ||
				!f.policy.RequireContentLengthIfBodyRequired {
				return
			}

			if !f.allowArbitraryBody {
				f.handleError(RequiredBodyButNoContentLength)
				return
			}
		}

		f.handleWarning(MaybeBodyButNoContentLength)
		f.state = ReadingUntilClose
	}
}

// isInvalidHeaderChar spots bytes that may not appear anywhere in the
// header section.
func isInvalidHeaderChar(c byte) bool {
	switch c {
	case '\t', '\n', '\r':
		return false
	}

	return c < ' ' || c == 0x7F
}

// isInvalidHeaderKeyChar spots bytes that may not appear in a header
// name. The double quote is only invalid under the strict policy.
func isInvalidHeaderKeyChar(c byte, disallowDoubleQuote bool) bool {
	if c == '"' {
		return disallowDoubleQuote
	}

	switch c {
	case '(', ')', ',', '/', ';', '<', '=', '>', '?', '@', '[', '\\', ']', '{', '}':
		return true
	}

	return c <= ' ' || c == 0x7F
}

func errFormat(isTrailer bool) ErrorCode {
	if isTrailer {
		return InvalidTrailerFormat
	}

	return InvalidHeaderFormat
}

func errMissingColon(isTrailer bool) ErrorCode {
	if isTrailer {
		return TrailerMissingColon
	}

	return HeaderMissingColon
}

func errInvalidNameChar(isTrailer bool) ErrorCode {
	if isTrailer {
		return InvalidTrailerNameCharacter
	}

	return InvalidHeaderNameCharacter
}
