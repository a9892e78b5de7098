package headers

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
)

// Headers maps lower-cased field names to their values.
type Headers map[string]string

// NewHeaders creates an empty Headers map.
func NewHeaders() Headers {
	return make(Headers)
}

var (
	ErrMissingColon   = errors.New("invalid header: missing colon")
	ErrSpaceBefore    = errors.New("invalid header: space before colon")
	ErrEmptyKey       = errors.New("invalid header: empty key")
	ErrInvalidKeyChar = errors.New("invalid header: invalid character in key")
)

// Parse consumes at most one header line from data and updates the map.
// It returns n (bytes consumed), done (true iff an empty line was found), and err.
// Behavior:
//   - If no CRLF is found, returns (0, false, nil) and consumes nothing.
//   - If CRLF is at the start ("\r\n"), returns (2, true, nil) indicating end of headers.
//   - Otherwise parses a single "key: value" line. Leading/trailing whitespace around
//     key and value is trimmed, but there must be no whitespace immediately before the colon.
//     A repeated key has its values joined with ",".
func (h Headers) Parse(data []byte) (n int, done bool, err error) {
	idx := bytes.Index(data, []byte("\r\n"))
	if idx == -1 {
		return 0, false, nil
	}
	if idx == 0 {
		return 2, true, nil
	}

	line := data[:idx]
	// Split on the first ':' only (values can contain ':').
	colon := bytes.IndexByte(line, ':')
	if colon == -1 {
		return 0, false, ErrMissingColon
	}
	if colon > 0 {
		prev := line[colon-1]
		if prev == ' ' || prev == '\t' {
			return 0, false, ErrSpaceBefore
		}
	}

	key := strings.TrimSpace(string(line[:colon]))
	val := strings.TrimSpace(string(line[colon+1:]))
	if key == "" {
		return 0, false, ErrEmptyKey
	}
	if !validKey(key) {
		return 0, false, ErrInvalidKeyChar
	}

	key = strings.ToLower(key)
	if prev, ok := h[key]; ok {
		val = prev + "," + val
	}
	h[key] = val

	// Consume exactly this line and its CRLF, not beyond.
	return idx + 2, false, nil
}

// validKey reports whether key holds only RFC 9110 token characters.
func validKey(key string) bool {
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		case strings.IndexByte("!#$%&'*+-.^_`|~", c) >= 0:
		default:
			return false
		}
	}
	return true
}

// Get returns the value for key, matched case-insensitively.
func (h Headers) Get(key string) string {
	return h[strings.ToLower(key)]
}

// Set replaces the value for key.
func (h Headers) Set(key, value string) {
	h[strings.ToLower(key)] = value
}

// Has reports whether key is present.
func (h Headers) Has(key string) bool {
	_, ok := h[strings.ToLower(key)]
	return ok
}

// Del removes key.
func (h Headers) Del(key string) {
	delete(h, strings.ToLower(key))
}

// ContentLength returns the declared Content-Length. ok is false when the
// header is absent; a present but malformed value is an error.
func (h Headers) ContentLength() (n int64, ok bool, err error) {
	v, ok := h["content-length"]
	if !ok {
		return 0, false, nil
	}
	if v == "" {
		return 0, true, errors.New("invalid Content-Length")
	}
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return 0, true, errors.New("invalid Content-Length")
		}
	}
	n, err = strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, true, errors.New("invalid Content-Length")
	}
	return n, true, nil
}

// HasToken reports whether the comma-separated header key lists token,
// compared case-insensitively.
func (h Headers) HasToken(key, token string) bool {
	for _, part := range strings.Split(h.Get(key), ",") {
		if strings.EqualFold(strings.TrimSpace(part), token) {
			return true
		}
	}
	return false
}

// CanonicalKey returns the wire form of a lower-cased key, e.g.
// "content-length" becomes "Content-Length".
func CanonicalKey(key string) string {
	b := []byte(key)
	upper := true
	for i, c := range b {
		switch {
		case upper && c >= 'a' && c <= 'z':
			b[i] = c - ('a' - 'A')
		case !upper && c >= 'A' && c <= 'Z':
			b[i] = c + ('a' - 'A')
		}
		upper = c == '-'
	}
	return string(b)
}
