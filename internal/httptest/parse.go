// Package httptest is a deliberately naive HTTP/1.1 message parser used
// to cross-check framing results in tests. It favors clarity over
// performance and supports only well-formed input.
package httptest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/indigo-web/chunkedbody"
	"github.com/indigo-web/utils/strcomp"
	"github.com/indigo-web/utils/uf"
	json "github.com/json-iterator/go"
)

type Pair struct {
	Key, Value string
}

// KeyValue is a minimal multimap over header pairs.
type KeyValue struct {
	Pairs []Pair
}

func (k *KeyValue) Add(key, value string) {
	k.Pairs = append(k.Pairs, Pair{key, value})
}

// Value returns the first value of the key, case-insensitively.
func (k *KeyValue) Value(key string) string {
	for _, pair := range k.Pairs {
		if strcomp.EqualFold(pair.Key, key) {
			return pair.Value
		}
	}

	return ""
}

// Values returns all values of the key in insertion order.
func (k *KeyValue) Values(key string) (values []string) {
	for _, pair := range k.Pairs {
		if strcomp.EqualFold(pair.Key, key) {
			values = append(values, pair.Value)
		}
	}

	return values
}

func (k *KeyValue) Has(key string) bool {
	for _, pair := range k.Pairs {
		if strcomp.EqualFold(pair.Key, key) {
			return true
		}
	}

	return false
}

// Message is a fully decoded request or response.
type Message struct {
	// request-only fields
	Method string
	Target string

	// response-only fields
	Code   int
	Status string

	Proto   string
	Headers *KeyValue
	Body    string
}

// String renders the message as JSON for diagnostics.
func (m Message) String() string {
	var sb strings.Builder
	stream := json.ConfigDefault.BorrowStream(&sb)
	stream.WriteVal(m)
	_ = stream.Flush()
	json.ConfigDefault.ReturnStream(stream)

	return sb.String()
}

func newMessage() Message {
	return Message{Headers: new(KeyValue)}
}

// ParseRequest decodes a complete request, body included.
func ParseRequest(raw string) (m Message, err error) {
	var found bool
	m = newMessage()

	m.Method, raw, found = strings.Cut(raw, " ")
	if !found || len(raw) == 0 {
		return m, fmt.Errorf("bad request line: lacking target and protocol")
	}

	m.Target, raw, found = strings.Cut(raw, " ")
	if !found || len(raw) == 0 {
		return m, fmt.Errorf("bad request line: lacking protocol")
	}

	m.Proto, raw, found = strings.Cut(raw, "\r\n")
	if !found {
		return m, fmt.Errorf("bad request: only request line is presented")
	}

	raw, err = parseHeaderSection(&m, raw)
	if err != nil {
		return m, err
	}

	m.Body, err = processBody(m, raw)

	return m, err
}

// ParseResponse decodes a complete response, body included.
func ParseResponse(raw string) (m Message, err error) {
	var found bool
	m = newMessage()

	m.Proto, raw, found = strings.Cut(raw, " ")
	if !found || len(raw) == 0 {
		return m, fmt.Errorf("bad status line: lacking code and status")
	}

	var code string
	code, raw, found = strings.Cut(raw, " ")
	m.Code, err = strconv.Atoi(code)
	if err != nil {
		return m, err
	}

	if !found || len(raw) == 0 {
		return m, fmt.Errorf("bad status line: lacking status")
	}

	m.Status, raw, found = strings.Cut(raw, "\r\n")
	if !found {
		return m, fmt.Errorf("bad response: only status line is presented")
	}

	raw, err = parseHeaderSection(&m, raw)
	if err != nil {
		return m, err
	}

	m.Body, err = processBody(m, raw)

	return m, err
}

func parseHeaderSection(m *Message, raw string) (rest string, err error) {
	for {
		var (
			line  string
			found bool
		)

		line, raw, found = strings.Cut(raw, "\r\n")
		if len(line) == 0 {
			return raw, nil
		}
		if !found {
			return raw, fmt.Errorf("bad header line %s: no breaking CRLF", line)
		}

		key, value, err := parseHeaderLine(line)
		if err != nil {
			return raw, err
		}

		m.Headers.Add(key, value)
	}
}

func parseHeaderLine(line string) (key, value string, err error) {
	key, value, found := strings.Cut(line, ":")
	if !found {
		return "", "", fmt.Errorf("bad header %s: no value", line)
	}

	return key, strings.TrimLeft(value, " \t"), nil
}

func processBody(m Message, data string) (string, error) {
	if m.Headers.Value("connection") == "close" {
		return data, nil
	}

	te := m.Headers.Values("transfer-encoding")
	if len(te) > 0 {
		if len(te) != 1 || te[0] != "chunked" {
			return "", fmt.Errorf("httptest: cannot process encodings: %s", strings.Join(te, ","))
		}

		return processChunkedBody(data, m.Headers.Has("trailer"))
	}

	contentLengths := m.Headers.Values("content-length")
	switch len(contentLengths) {
	case 0:
		if len(data) == 0 {
			return "", nil
		}

		return "", fmt.Errorf("bad message: neither Transfer-Encoding or Content-Length are presented")
	case 1:
		length, err := strconv.Atoi(contentLengths[0])
		if err != nil {
			return "", err
		}

		return processPlainBody(data, length)
	default:
		return "", fmt.Errorf(
			"bad message: too many content-lengths: %s", strings.Join(contentLengths, ", "),
		)
	}
}

func processChunkedBody(data string, trailer bool) (string, error) {
	var buff []byte
	parser := chunkedbody.NewParser(chunkedbody.DefaultSettings())

	for len(data) > 0 {
		chunk, extra, err := parser.Parse(uf.S2B(data), trailer)
		if err != nil {
			return "", fmt.Errorf("bad message: bad chunked body: %s", err)
		}

		buff = append(buff, chunk...)
		data = string(extra)
	}

	return string(buff), nil
}

func processPlainBody(data string, length int) (string, error) {
	if len(data) > length {
		return "", fmt.Errorf("got extra body. Please note: no pipelining is supported")
	}

	return data, nil
}
