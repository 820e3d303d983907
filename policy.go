package h1

// FirstLineValidation selects how stray CR and TAB bytes inside the
// first line are treated.
type FirstLineValidation int

const (
	// FirstLineAllowAll passes the line through as received.
	FirstLineAllowAll FirstLineValidation = iota
	// FirstLineSanitize replaces stray CR and TAB bytes with spaces.
	FirstLineSanitize
	// FirstLineReject fails messages whose first line contains stray
	// CR or TAB bytes.
	FirstLineReject
)

// ValidationPolicy bundles the strictness knobs of the framer. The zero
// value is maximally permissive; DefaultValidationPolicy is what most
// callers want.
type ValidationPolicy struct {
	// RequireHeaderColon upgrades header lines without a colon from a
	// warning to an error.
	RequireHeaderColon bool

	// DisallowHeaderContinuationLines rejects folded header lines, i.e.
	// lines starting with a space or tab.
	DisallowHeaderContinuationLines bool

	// DisallowMultipleContentLength rejects repeated Content-Length
	// keys even when their values agree.
	DisallowMultipleContentLength bool

	// DisallowTransferEncodingWithContentLength rejects messages that
	// carry both framing headers instead of letting chunked win.
	DisallowTransferEncodingWithContentLength bool

	// ValidateTransferEncoding enables checks on the Transfer-Encoding
	// value itself: repeated keys and unknown codings become errors.
	ValidateTransferEncoding bool

	// RequireContentLengthIfBodyRequired fails POST and PUT requests
	// that frame no body at all.
	RequireContentLengthIfBodyRequired bool

	// DisallowInvalidTargetURIs fails requests whose target is neither
	// origin-, absolute-, authority- nor asterisk-form.
	DisallowInvalidTargetURIs bool

	// DisallowDoubleQuoteInHeaderName treats '"' as an invalid header
	// name character.
	DisallowDoubleQuoteInHeaderName bool

	// DisallowObsTextInFieldNames rejects bytes >= 0x80 in header names.
	DisallowObsTextInFieldNames bool

	// DisallowLoneCRInRequestHeaders rejects CR bytes in the header
	// section that are not followed by LF.
	DisallowLoneCRInRequestHeaders bool

	// DisallowLoneCRInChunkExtension rejects CR bytes in chunk
	// extensions that are not followed by LF.
	DisallowLoneCRInChunkExtension bool

	// FirstLineValidation selects the CR/TAB handling in the first line.
	FirstLineValidation FirstLineValidation
}

// DefaultValidationPolicy returns the policy the framer starts with.
func DefaultValidationPolicy() ValidationPolicy {
	return ValidationPolicy{
		ValidateTransferEncoding:           true,
		RequireContentLengthIfBodyRequired: true,
	}
}
