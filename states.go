package h1

// ParseState is the position of the framer within the message.
type ParseState int

const (
	ReadingHeaderAndFirstline ParseState = iota
	ReadingChunkLength
	ReadingChunkExtension
	ReadingChunkData
	ReadingChunkTerm
	ReadingLastChunkTerm
	ReadingTrailer
	ReadingUntilClose
	ReadingContent
	MessageFullyRead
	ParseError
)

func (s ParseState) String() string {
	switch s {
	case ReadingHeaderAndFirstline:
		return "reading header and firstline"
	case ReadingChunkLength:
		return "reading chunk length"
	case ReadingChunkExtension:
		return "reading chunk extension"
	case ReadingChunkData:
		return "reading chunk data"
	case ReadingChunkTerm:
		return "reading chunk terminator"
	case ReadingLastChunkTerm:
		return "reading last chunk terminator"
	case ReadingTrailer:
		return "reading trailer"
	case ReadingUntilClose:
		return "reading until close"
	case ReadingContent:
		return "reading content"
	case MessageFullyRead:
		return "message fully read"
	case ParseError:
		return "parse error"
	default:
		return "unknown state"
	}
}
