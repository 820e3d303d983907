package h1

import (
	"bytes"
	"math"

	"github.com/indigo-web/h1/internal/hexconv"
)

// DefaultMaxHeaderLength bounds the header section of a single message,
// first line and terminating newlines included.
const DefaultMaxHeaderLength = 16 * 1024

const maxUint64 = ^uint64(0)

const (
	statusContinue           = 100
	statusSwitchingProtocols = 101
)

// lineSpan is a [begin, end) window into the raw header stream covering
// one line, terminating newline included.
type lineSpan struct {
	begin, end int
}

// Framer incrementally splits an HTTP/1.x message into its frames,
// feeding them to a Visitor. It holds no input of its own: ProcessInput
// reports how many bytes it consumed, and everything past that belongs
// to the next message or to an error. Call Reset between messages on
// the same connection.
type Framer struct {
	lastCharWasCR     bool
	sawNonNewlineChar bool
	chunkDigitFound   bool

	isRequest             bool
	requestWasHead        bool
	allowArbitraryBody    bool
	interimHeadersEnabled bool
	parseTruncatedHeaders bool
	invalidCharsError     bool

	maxHeaderLength  int
	chunkRemaining   uint64
	contentRemaining uint64

	lastNewlineIdx int
	termChars      uint32

	state     ParseState
	lastError ErrorCode

	lines            []lineSpan
	trailerLines     []lineSpan
	trailerLineStart int
	trailerLength    int

	headers         *Headers
	continueHeaders *Headers
	trailers        *Headers

	policy  ValidationPolicy
	visitor Visitor
}

// NewFramer returns a request framer parsing into headers and
// delivering events to visitor. Either may be swapped later through the
// setters; a nil visitor falls back to NoopVisitor.
func NewFramer(headers *Headers, visitor Visitor) *Framer {
	if visitor == nil {
		visitor = NoopVisitor{}
	}

	return &Framer{
		isRequest:       true,
		maxHeaderLength: DefaultMaxHeaderLength,
		headers:         headers,
		policy:          DefaultValidationPolicy(),
		visitor:         visitor,
	}
}

// SetIsRequest selects between request and response framing.
func (f *Framer) SetIsRequest(isRequest bool) {
	f.isRequest = isRequest
}

// SetRequestWasHead tells a response framer that the request was HEAD,
// in which case the response carries no body regardless of its headers.
func (f *Framer) SetRequestWasHead(wasHead bool) {
	f.requestWasHead = wasHead
}

// SetMaxHeaderLength bounds the header section of future messages.
func (f *Framer) SetMaxHeaderLength(n int) {
	f.maxHeaderLength = n
}

// SetValidationPolicy replaces the strictness knobs.
func (f *Framer) SetValidationPolicy(policy ValidationPolicy) {
	f.policy = policy
}

// ValidationPolicy returns the current strictness knobs.
func (f *Framer) ValidationPolicy() ValidationPolicy {
	return f.policy
}

// SetVisitor replaces the event sink.
func (f *Framer) SetVisitor(visitor Visitor) {
	if visitor == nil {
		visitor = NoopVisitor{}
	}

	f.visitor = visitor
}

// SetHeaders attaches the collection parsed headers land in. The framer
// does nothing without one.
func (f *Framer) SetHeaders(headers *Headers) {
	f.headers = headers
}

// Headers returns the attached header collection.
func (f *Framer) Headers() *Headers {
	return f.headers
}

// SetContinueHeaders attaches a collection that 100 Continue header
// blocks are moved into, letting the real response reuse the main one.
func (f *Framer) SetContinueHeaders(headers *Headers) {
	f.continueHeaders = headers
}

// SetTrailers attaches a collection the trailer section is parsed into.
// Without one the trailer section is still framed, but its bytes are
// not retained.
func (f *Framer) SetTrailers(trailers *Headers) {
	f.trailers = trailers
}

// SetInvalidCharsErrorEnabled upgrades stray control bytes anywhere in
// the header section to hard errors.
func (f *Framer) SetInvalidCharsErrorEnabled(enabled bool) {
	f.invalidCharsError = enabled
}

// SetParseTruncatedHeaders makes an overlong header section parse
// whatever fit under the limit before the HeadersTooLong error fires.
func (f *Framer) SetParseTruncatedHeaders(enabled bool) {
	f.parseTruncatedHeaders = enabled
}

// SetUseInterimHeadersCallback routes informational responses other
// than 101 through OnInterimHeaders instead of ending the message.
func (f *Framer) SetUseInterimHeadersCallback(enabled bool) {
	f.interimHeadersEnabled = enabled
}

// SetAllowArbitraryBody lets a request that frames no body read until
// close, the way responses do. Reset clears it.
func (f *Framer) SetAllowArbitraryBody(enabled bool) {
	f.allowArbitraryBody = enabled
}

// State returns the current parse state.
func (f *Framer) State() ParseState {
	return f.state
}

// ErrorCode returns the last reported warning or error.
func (f *Framer) ErrorCode() ErrorCode {
	return f.lastError
}

// Error reports whether the framer stopped on an error.
func (f *Framer) Error() bool {
	return f.state == ParseError
}

// MessageFullyRead reports whether the current message ended cleanly.
func (f *Framer) MessageFullyRead() bool {
	return f.state == MessageFullyRead
}

// Reset returns the framer to its initial state, keeping the attached
// collections, visitor, policy and limits. The collections themselves
// are cleared.
func (f *Framer) Reset() {
	f.lastCharWasCR = false
	f.sawNonNewlineChar = false
	f.chunkDigitFound = false
	f.allowArbitraryBody = false
	f.chunkRemaining = 0
	f.contentRemaining = 0
	f.lastNewlineIdx = 0
	f.termChars = 0
	f.state = ReadingHeaderAndFirstline
	f.lastError = NoError
	f.lines = f.lines[:0]
	f.trailerLines = f.trailerLines[:0]
	f.trailerLineStart = 0
	f.trailerLength = 0

	if f.headers != nil {
		f.headers.Clear()
	}
	if f.continueHeaders != nil {
		f.continueHeaders.Clear()
	}
	if f.trailers != nil {
		f.trailers.Clear()
	}
}

func (f *Framer) handleError(code ErrorCode) {
	f.lastError = code
	f.state = ParseError
	f.visitor.HandleError(code)
}

func (f *Framer) handleWarning(code ErrorCode) {
	f.lastError = code
	f.visitor.HandleWarning(code)
}

// End-of-header detection. A shift register accumulates trailing CR and
// LF bytes; the section ends on "\n\n" or "\n\r\n". Any other byte
// resets the register, which disambiguates a lone CR inside a line from
// one that is part of the terminator.
const (
	termTwoNewlines     = uint32('\n')<<8 | uint32('\n')
	termTwoNewlinesMask = uint32(0xFFFF)
	termCRLFPair        = uint32('\n')<<16 | uint32('\r')<<8 | uint32('\n')
	termCRLFPairMask    = uint32(0xFFFFFF)
)

func (f *Framer) headerFramingFound(c byte) bool {
	if c == '\n' || c == '\r' {
		f.termChars = f.termChars<<8 | uint32(c)

		if f.termChars&termTwoNewlinesMask == termTwoNewlines ||
			f.termChars&termCRLFPairMask == termCRLFPair {
			f.termChars = 0
			return true
		}

		return false
	}

	f.termChars = 0

	return false
}

func (f *Framer) headerFramingMayBeFound() bool {
	return f.termChars != 0
}

func lineFramingFound(c byte) bool {
	return c == '\n'
}

// ProcessInput consumes bytes of the current message and returns how
// many were used. A short count means the message ended, the framer
// stopped on an error, or the rest was withheld pending more input.
func (f *Framer) ProcessInput(data []byte) int {
	if f.headers == nil {
		return 0
	}

	end := len(data)

	if f.state == ReadingHeaderAndFirstline {
		buffered := f.headers.buf.ContiguousLen()
		if buffered > f.maxHeaderLength || (buffered == f.maxHeaderLength && end > 0) {
			f.handleHeadersTooLong()
			return 0
		}

		limit := f.maxHeaderLength - buffered
		if limit > end {
			limit = end
		}

		consumed := f.processHeaders(data[:limit])
		if f.state == ReadingHeaderAndFirstline &&
			f.headers.buf.ContiguousLen() >= f.maxHeaderLength {
			f.handleHeadersTooLong()
		}

		return consumed
	}

	if f.state == MessageFullyRead || f.state == ParseError || end == 0 {
		return 0
	}

	current := 0
	onEntry := 0

	for {
		switch f.state {
		case ReadingChunkLength:
			for {
				if current == end {
					f.visitor.OnRawBodyInput(data[onEntry:end])
					return end
				}

				c := data[current]
				current++

				if digit := hexconv.Halfbyte[c]; digit != hexconv.Invalid {
					f.chunkDigitFound = true

					if f.chunkRemaining > maxUint64/16 {
						f.visitor.OnRawBodyInput(data[onEntry:current])
						f.handleError(ChunkLengthOverflow)
						return current
					}

					f.chunkRemaining *= 16

					if uint64(digit) > maxUint64-f.chunkRemaining {
						f.visitor.OnRawBodyInput(data[onEntry:current])
						f.handleError(ChunkLengthOverflow)
						return current
					}

					f.chunkRemaining += uint64(digit)
					continue
				}

				valid := f.chunkDigitFound
				switch c {
				case '\t', '\n', '\r', ' ', ';':
				default:
					valid = false
				}

				if !valid {
					f.visitor.OnRawBodyInput(data[onEntry:current])
					f.handleError(InvalidChunkLength)
					return current
				}

				break
			}

			// step back onto the terminating byte: it opens the extension
			current--
			f.state = ReadingChunkExtension
			f.lastCharWasCR = false
			f.visitor.OnChunkLength(f.chunkRemaining)
			continue

		case ReadingChunkExtension:
			extStart := current
			extLength := 0

			for {
				if current == end {
					f.visitor.OnChunkExtensionInput(data[extStart : extStart+extLength])
					f.visitor.OnRawBodyInput(data[onEntry:end])
					return end
				}

				c := data[current]

				if f.policy.DisallowLoneCRInChunkExtension {
					crFollowedByNonLF := c == '\r' && current+1 < end && data[current+1] != '\n'
					previousCRNotClosed := f.lastCharWasCR && current == 0 && c != '\n'

					if crFollowedByNonLF || previousCRNotClosed {
						f.handleError(InvalidChunkExtension)
						return current
					}

					if current+1 == end {
						f.lastCharWasCR = c == '\r'
					}
				}

				if c == '\r' || c == '\n' {
					if extStart == current {
						extLength = 0
					} else {
						extLength = current - extStart - 1
					}
				}

				current++

				if c == '\n' {
					break
				}
			}

			f.chunkDigitFound = false
			f.visitor.OnChunkExtensionInput(data[extStart : extStart+extLength])

			if f.chunkRemaining != 0 {
				f.state = ReadingChunkData
				continue
			}

			f.headerFramingFound('\n')
			f.state = ReadingLastChunkTerm
			continue

		case ReadingChunkData:
			for current < end {
				if f.chunkRemaining == 0 {
					break
				}

				consumed := f.chunkRemaining
				if avail := uint64(end - current); consumed > avail {
					consumed = avail
				}

				chunkEnd := current + int(consumed)
				f.visitor.OnRawBodyInput(data[onEntry:chunkEnd])
				f.visitor.OnBodyChunkInput(data[current:chunkEnd])
				onEntry, current = chunkEnd, chunkEnd
				f.chunkRemaining -= consumed
			}

			if f.chunkRemaining == 0 {
				f.state = ReadingChunkTerm
				continue
			}

			f.visitor.OnRawBodyInput(data[onEntry:end])
			return end

		case ReadingChunkTerm:
			newline := bytes.IndexByte(data[current:end], '\n')
			if newline == -1 {
				f.visitor.OnRawBodyInput(data[onEntry:end])
				return end
			}

			current += newline + 1
			f.state = ReadingChunkLength
			continue

		case ReadingLastChunkTerm:
			for {
				if current == end {
					f.visitor.OnRawBodyInput(data[onEntry:end])
					return end
				}

				c := data[current]

				if f.headerFramingFound(c) {
					current++
					f.state = MessageFullyRead
					f.visitor.OnRawBodyInput(data[onEntry:current])
					f.visitor.MessageDone()
					return current
				}

				// every byte since the last chunk was CR or LF as long
				// as the register is armed; anything else starts a
				// trailer section
				if !f.headerFramingMayBeFound() {
					break
				}

				current++
			}

			f.state = ReadingTrailer
			f.visitor.OnRawBodyInput(data[onEntry:current])
			onEntry = current
			continue

		case ReadingTrailer:
			for current < end {
				c := data[current]
				current++
				f.trailerLength++

				if f.trailers != nil {
					if f.trailerLength > f.maxHeaderLength {
						current--
						f.handleError(TrailerTooLong)
						return current
					}

					if lineFramingFound(c) {
						f.trailerLines = append(f.trailerLines,
							lineSpan{f.trailerLineStart, f.trailerLength})
						f.trailerLineStart = f.trailerLength
					}
				}

				if f.headerFramingFound(c) {
					f.state = MessageFullyRead

					if f.trailers != nil {
						f.trailers.writeFromFramer(data[onEntry:current])
						f.trailers.doneWritingFromFramer()
						f.processHeaderLines(f.trailerLines, true, f.trailers)
						if f.state == ParseError {
							return current
						}

						f.visitor.OnTrailers(f.trailers)
					}

					f.visitor.OnTrailerInput(data[onEntry:current])
					f.visitor.MessageDone()
					return current
				}
			}

			if f.trailers != nil {
				f.trailers.writeFromFramer(data[onEntry:current])
			}

			f.visitor.OnTrailerInput(data[onEntry:current])
			return current

		case ReadingUntilClose:
			if current < end {
				f.visitor.OnRawBodyInput(data[current:end])
				f.visitor.OnBodyChunkInput(data[current:end])
				current = end
			}

			return current

		case ReadingContent:
			for f.contentRemaining > 0 && current < end {
				consumed := f.contentRemaining
				if avail := uint64(end - current); consumed > avail {
					consumed = avail
				}

				contentEnd := current + int(consumed)
				f.visitor.OnRawBodyInput(data[current:contentEnd])
				f.visitor.OnBodyChunkInput(data[current:contentEnd])
				current = contentEnd
				f.contentRemaining -= consumed
			}

			if f.contentRemaining == 0 {
				f.state = MessageFullyRead
				f.visitor.MessageDone()
			}

			return current

		default:
			panic("unreachable code")
		}
	}
}

// BytesSafeToSplice reports how many body payload bytes may bypass the
// framer entirely, e.g. through sendfile or splice.
func (f *Framer) BytesSafeToSplice() int {
	switch f.state {
	case ReadingChunkData:
		return clampToInt(f.chunkRemaining)
	case ReadingUntilClose:
		return math.MaxInt
	case ReadingContent:
		return clampToInt(f.contentRemaining)
	default:
		return 0
	}
}

// BytesSpliced accounts for n body bytes consumed out of band after a
// BytesSafeToSplice call.
func (f *Framer) BytesSpliced(n int) {
	switch f.state {
	case ReadingChunkData:
		if uint64(n) > f.chunkRemaining {
			f.handleError(CalledBytesSplicedAndExceededSafeSpliceAmount)
			return
		}

		f.chunkRemaining -= uint64(n)
		if f.chunkRemaining == 0 {
			f.state = ReadingChunkTerm
		}

	case ReadingUntilClose:

	case ReadingContent:
		if uint64(n) > f.contentRemaining {
			f.handleError(CalledBytesSplicedAndExceededSafeSpliceAmount)
			return
		}

		f.contentRemaining -= uint64(n)
		if f.contentRemaining == 0 {
			f.state = MessageFullyRead
			f.visitor.MessageDone()
		}

	default:
		f.handleError(CalledBytesSplicedWhenUnsafeToDoSo)
	}
}

func clampToInt(n uint64) int {
	if n > uint64(math.MaxInt) {
		return math.MaxInt
	}

	return int(n)
}
