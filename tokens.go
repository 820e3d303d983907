package h1

import "github.com/indigo-web/utils/strcomp"

// tokenSpans returns the [begin, end) offsets of each token in value.
// Tokens are maximal runs of bytes that are neither commas nor ASCII
// control or space characters.
func tokenSpans(value string) (spans [][2]int) {
	for i := 0; i < len(value); {
		for i < len(value) && (value[i] == ',' || value[i] <= ' ') {
			i++
		}

		if i == len(value) {
			break
		}

		begin := i
		for i < len(value) && value[i] != ',' && value[i] > ' ' {
			i++
		}

		spans = append(spans, [2]int{begin, i})
	}

	return spans
}

// ParseTokenList splits a comma- or whitespace-separated header value
// into its tokens.
func ParseTokenList(value string) []string {
	return AppendTokenList(nil, value)
}

// AppendTokenList appends the tokens of value to dst and returns it.
func AppendTokenList(dst []string, value string) []string {
	for _, span := range tokenSpans(value) {
		dst = append(dst, value[span[0]:span[1]])
	}

	return dst
}

// multivaluedHeaders lists keys that conventionally carry lists and may
// therefore legitimately appear on several lines.
var multivaluedHeaders = []string{
	"accept", "accept-charset", "accept-encoding", "accept-language",
	"accept-ranges", "allow", "cache-control", "connection",
	"content-encoding", "content-language", "expect", "if-match",
	"if-none-match", "pragma", "proxy-authenticate", "set-cookie", "te",
	"trailer", "transfer-encoding", "upgrade", "vary", "via", "warning",
	"www-authenticate",
}

// IsMultivalued reports whether the key conventionally holds a list, in
// which case Get alone may hide values and GetAll should be preferred.
func IsMultivalued(key string) bool {
	for _, candidate := range multivaluedHeaders {
		if strcomp.EqualFold(key, candidate) {
			return true
		}
	}

	return false
}
