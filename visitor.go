package h1

// Visitor receives framing events as the input is consumed. Every
// []byte and string argument points into the caller's input buffer or
// the framer's header storage and is only valid for the duration of the
// call.
type Visitor interface {
	// OnRawBodyInput is fed every body byte exactly as it arrived,
	// chunk framing included.
	OnRawBodyInput(input []byte)
	// OnBodyChunkInput is fed body payload bytes with the chunk
	// framing already stripped.
	OnBodyChunkInput(input []byte)
	// OnHeaderInput receives the complete raw header section.
	OnHeaderInput(input []byte)
	// OnTrailerInput receives raw trailer bytes as they arrive.
	OnTrailerInput(input []byte)
	// OnTrailers hands over the parsed trailer collection. The
	// collection stays owned by whoever attached it to the framer.
	OnTrailers(trailers *Headers)

	OnRequestFirstLineInput(line, method, target, version string)
	OnResponseFirstLineInput(line, version, code, reason string)

	// OnChunkLength reports the decoded length of the next chunk;
	// zero means the last chunk.
	OnChunkLength(length uint64)
	// OnChunkExtensionInput receives the raw chunk extension, starting
	// at the byte terminating the chunk length.
	OnChunkExtensionInput(input []byte)

	// OnInterimHeaders hands over a non-101 informational response
	// header block. Ownership of the collection moves to the visitor.
	OnInterimHeaders(headers *Headers)
	// ContinueHeaderDone signals that a 100 Continue header block was
	// parsed into the attached continue collection.
	ContinueHeaderDone()

	// ProcessHeaders is called once the header section is fully parsed.
	ProcessHeaders(headers *Headers)
	// HeaderDone signals the end of the header section.
	HeaderDone()
	// MessageDone signals the clean end of the whole message.
	MessageDone()

	HandleWarning(code ErrorCode)
	HandleError(code ErrorCode)
}

// NoopVisitor implements Visitor and ignores everything. Embed it to
// override only the callbacks of interest.
type NoopVisitor struct{}

func (NoopVisitor) OnRawBodyInput([]byte)                              {}
func (NoopVisitor) OnBodyChunkInput([]byte)                            {}
func (NoopVisitor) OnHeaderInput([]byte)                               {}
func (NoopVisitor) OnTrailerInput([]byte)                              {}
func (NoopVisitor) OnTrailers(*Headers)                                {}
func (NoopVisitor) OnRequestFirstLineInput(_, _, _, _ string)          {}
func (NoopVisitor) OnResponseFirstLineInput(_, _, _, _ string)         {}
func (NoopVisitor) OnChunkLength(uint64)                               {}
func (NoopVisitor) OnChunkExtensionInput([]byte)                       {}
func (NoopVisitor) OnInterimHeaders(*Headers)                          {}
func (NoopVisitor) ContinueHeaderDone()                                {}
func (NoopVisitor) ProcessHeaders(*Headers)                            {}
func (NoopVisitor) HeaderDone()                                        {}
func (NoopVisitor) MessageDone()                                       {}
func (NoopVisitor) HandleWarning(ErrorCode)                            {}
func (NoopVisitor) HandleError(ErrorCode)                              {}
