package h1

// ErrorCode identifies what exactly the framer disliked about a
// message. Some codes are only ever reported as warnings through
// Visitor.HandleWarning, others stop the framer for good.
type ErrorCode int

const (
	NoError ErrorCode = iota

	// first line
	NoStatusLineInResponse
	NoRequestLineInRequest
	FailedToFindWsAfterResponseVersion
	FailedToFindWsAfterRequestMethod
	FailedToFindWsAfterResponseStatuscode
	FailedToFindWsAfterRequestURI
	FailedConvertingStatusCodeToInt
	InvalidWsInStatusLine
	InvalidWsInRequestLine
	InvalidTargetURI

	// header section
	HeaderMissingColon
	InvalidHeaderFormat
	InvalidHeaderCharacter
	InvalidHeaderNameCharacter
	HeadersTooLong
	UnparsableContentLength
	MultipleContentLengthKeys
	MultipleTransferEncodingKeys
	UnknownTransferEncoding
	BothTransferEncodingAndContentLength

	// body framing
	MaybeBodyButNoContentLength
	RequiredBodyButNoContentLength
	InvalidChunkLength
	ChunkLengthOverflow
	InvalidChunkExtension

	// trailer section
	TrailerTooLong
	TrailerMissingColon
	InvalidTrailerFormat
	InvalidTrailerNameCharacter

	// splice accounting
	CalledBytesSplicedWhenUnsafeToDoSo
	CalledBytesSplicedAndExceededSafeSpliceAmount

	InternalLogicError
)

func (e ErrorCode) String() string {
	switch e {
	case NoError:
		return "no error"
	case NoStatusLineInResponse:
		return "no status line in response"
	case NoRequestLineInRequest:
		return "no request line in request"
	case FailedToFindWsAfterResponseVersion:
		return "no whitespace after response version"
	case FailedToFindWsAfterRequestMethod:
		return "no whitespace after request method"
	case FailedToFindWsAfterResponseStatuscode:
		return "no whitespace after response status code"
	case FailedToFindWsAfterRequestURI:
		return "no whitespace after request URI"
	case FailedConvertingStatusCodeToInt:
		return "status code is not a number"
	case InvalidWsInStatusLine:
		return "invalid whitespace in status line"
	case InvalidWsInRequestLine:
		return "invalid whitespace in request line"
	case InvalidTargetURI:
		return "invalid target URI"
	case HeaderMissingColon:
		return "header line is missing a colon"
	case InvalidHeaderFormat:
		return "invalid header format"
	case InvalidHeaderCharacter:
		return "invalid character in header"
	case InvalidHeaderNameCharacter:
		return "invalid character in header name"
	case HeadersTooLong:
		return "header section is too long"
	case UnparsableContentLength:
		return "unparsable content-length"
	case MultipleContentLengthKeys:
		return "multiple content-length keys"
	case MultipleTransferEncodingKeys:
		return "multiple transfer-encoding keys"
	case UnknownTransferEncoding:
		return "unknown transfer-encoding"
	case BothTransferEncodingAndContentLength:
		return "both transfer-encoding and content-length"
	case MaybeBodyButNoContentLength:
		return "maybe body, but no content-length"
	case RequiredBodyButNoContentLength:
		return "required body, but no content-length"
	case InvalidChunkLength:
		return "invalid chunk length"
	case ChunkLengthOverflow:
		return "chunk length overflow"
	case InvalidChunkExtension:
		return "invalid chunk extension"
	case TrailerTooLong:
		return "trailer section is too long"
	case TrailerMissingColon:
		return "trailer line is missing a colon"
	case InvalidTrailerFormat:
		return "invalid trailer format"
	case InvalidTrailerNameCharacter:
		return "invalid character in trailer name"
	case CalledBytesSplicedWhenUnsafeToDoSo:
		return "called BytesSpliced when unsafe to do so"
	case CalledBytesSplicedAndExceededSafeSpliceAmount:
		return "called BytesSpliced beyond the safe amount"
	case InternalLogicError:
		return "internal logic error"
	default:
		return "unknown error code"
	}
}
