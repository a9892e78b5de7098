package request

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/NunoEdgarGFlowHub/cpptrade/internal/headers"
)

type Request struct {
	RequestLine RequestLine
	Headers     headers.Headers
	Body        []byte

	// JSON and JSONErr are filled by the dispatcher before the handler runs
	// on routes that expect a JSON body. Exactly one of them is set there.
	JSON    json.RawMessage
	JSONErr error
}

type RequestLine struct {
	HttpVersion   string
	RequestTarget string
	Method        string
}

// Path returns the request target without its query string.
func (r *Request) Path() string {
	t := r.RequestLine.RequestTarget
	if i := strings.IndexAny(t, "?#"); i >= 0 {
		return t[:i]
	}
	return t
}

// KeepAlive reports whether the connection may carry another request
// after this one.
func (r *Request) KeepAlive() bool {
	if r.RequestLine.HttpVersion == "1.0" {
		return r.Headers.HasToken("connection", "keep-alive")
	}
	return !r.Headers.HasToken("connection", "close")
}

var ErrIncomplete = errors.New("incomplete request")

// RequestFromReader parses one HTTP request from reader incrementally,
// buffering the whole body.
func RequestFromReader(reader io.Reader) (*Request, error) {
	p := NewParser()
	var r *Request
	tmp := make([]byte, 8)

	for {
		n, err := reader.Read(tmp)
		if n > 0 {
			evs, perr := p.Feed(tmp[:n])
			if perr != nil {
				return nil, perr
			}
			for _, ev := range evs {
				switch ev.Kind {
				case EventHead:
					r = ev.Request
				case EventBody:
					r.Body = append(r.Body, ev.Chunk...)
				case EventEnd:
					return r, nil
				}
			}
		}
		if err == io.EOF {
			return nil, ErrIncomplete
		}
		if err != nil {
			return nil, err
		}
	}
}

// parseRequestLine attempts to parse a request-line from the beginning of data.
// It returns the number of bytes consumed (including the trailing CRLF),
// the parsed RequestLine, and an error. If no CRLF is found, it returns (0, _, nil).
func parseRequestLine(data []byte) (int, RequestLine, error) {
	lf := bytes.IndexByte(data, '\n')
	if lf == -1 {
		return 0, RequestLine{}, nil
	}
	if lf == 0 || data[lf-1] != '\r' {
		return 0, RequestLine{}, errors.New("invalid request line ending: expected CRLF")
	}
	line := string(data[:lf-1])

	parts := strings.Fields(line)
	if len(parts) != 3 {
		return 0, RequestLine{}, errors.New("invalid request line: want 3 parts")
	}

	method := parts[0]
	for i := 0; i < len(method); i++ {
		c := method[i]
		if c < 'A' || c > 'Z' {
			return 0, RequestLine{}, errors.New("invalid method")
		}
	}

	target := parts[1]
	if target != "*" && !strings.HasPrefix(target, "/") {
		return 0, RequestLine{}, errors.New("invalid request target")
	}

	versionPart := parts[2]
	const prefix = "HTTP/"
	if !strings.HasPrefix(versionPart, prefix) {
		return 0, RequestLine{}, errors.New("invalid http version format")
	}
	ver := strings.TrimPrefix(versionPart, prefix)
	if ver != "1.1" && ver != "1.0" {
		return 0, RequestLine{}, errors.New("unsupported http version")
	}

	rl := RequestLine{
		Method:        method,
		RequestTarget: target,
		HttpVersion:   ver,
	}
	return lf + 1, rl, nil
}
