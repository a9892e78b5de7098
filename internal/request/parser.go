package request

import (
	"bytes"
	"errors"
	"strconv"
	"strings"

	"github.com/NunoEdgarGFlowHub/cpptrade/internal/headers"
)

// DefaultMaxHeadBytes bounds the request line plus header block.
const DefaultMaxHeadBytes = 64 << 10

var (
	ErrHeadTooLarge       = errors.New("request head too large")
	ErrBadChunk           = errors.New("invalid chunked encoding")
	ErrUnsupportedFraming = errors.New("unsupported transfer-encoding")
)

type EventKind int

const (
	// EventHead carries the parsed request line and headers.
	EventHead EventKind = iota + 1
	// EventBody carries one span of decoded body bytes.
	EventBody
	// EventEnd marks the end of the current request.
	EventEnd
)

func (k EventKind) String() string {
	switch k {
	case EventHead:
		return "head"
	case EventBody:
		return "body"
	case EventEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Event is one step of progress through a request. Chunk is a private copy
// and stays valid after the next Feed.
type Event struct {
	Kind    EventKind
	Request *Request
	Chunk   []byte
}

type parserState int

const (
	stateInitialized parserState = iota
	stateParsingHeaders
	stateParsingBody
	stateChunkSize
	stateChunkData
	stateChunkDataEnd
	stateTrailers
	stateDone
)

// Parser is an incremental HTTP/1.x request parser. Bytes arrive through
// Feed in arbitrary pieces; progress is reported as events. After EventEnd
// the parser holds any pipelined bytes until Next is called.
type Parser struct {
	MaxHeadBytes int

	state     parserState
	req       *Request
	buf       []byte
	headBytes int
	remaining int64
	trailers  headers.Headers
}

func NewParser() *Parser {
	return &Parser{MaxHeadBytes: DefaultMaxHeadBytes}
}

// Done reports whether the current request has been fully parsed.
func (p *Parser) Done() bool {
	return p.state == stateDone
}

// Pending reports whether bytes of a request not yet fully parsed are
// buffered or have been consumed.
func (p *Parser) Pending() bool {
	if p.state == stateDone {
		return false
	}
	return p.state != stateInitialized || len(p.buf) > 0
}

// Next prepares the parser for the following request on the same
// connection and parses whatever was already buffered.
func (p *Parser) Next() ([]Event, error) {
	p.state = stateInitialized
	p.req = nil
	p.headBytes = 0
	p.remaining = 0
	p.trailers = nil
	return p.Feed(nil)
}

// Feed consumes data and returns the events it completes.
func (p *Parser) Feed(data []byte) ([]Event, error) {
	p.buf = append(p.buf, data...)
	var evs []Event
	for p.state != stateDone {
		n, ev, err := p.parseSingle(p.buf)
		if err != nil {
			return evs, err
		}
		if n > 0 {
			p.consume(n)
		}
		if ev.Kind != 0 {
			evs = append(evs, ev)
		}
		if p.state == stateDone {
			evs = append(evs, Event{Kind: EventEnd, Request: p.req})
			break
		}
		if n == 0 && ev.Kind == 0 {
			break
		}
	}
	return evs, nil
}

func (p *Parser) consume(n int) {
	rest := copy(p.buf, p.buf[n:])
	p.buf = p.buf[:rest]
}

// parseSingle processes a single step depending on the current parser state.
func (p *Parser) parseSingle(data []byte) (int, Event, error) {
	switch p.state {
	case stateInitialized:
		consumed, rl, err := parseRequestLine(data)
		if err != nil {
			return 0, Event{}, err
		}
		if consumed == 0 {
			return 0, Event{}, p.checkHead(len(data))
		}
		if err := p.checkHead(consumed); err != nil {
			return 0, Event{}, err
		}
		p.headBytes += consumed
		p.req = &Request{RequestLine: rl, Headers: headers.NewHeaders()}
		p.state = stateParsingHeaders
		return consumed, Event{}, nil

	case stateParsingHeaders:
		n, done, err := p.req.Headers.Parse(data)
		if err != nil {
			return 0, Event{}, err
		}
		if n == 0 {
			return 0, Event{}, p.checkHead(len(data))
		}
		if err := p.checkHead(n); err != nil {
			return 0, Event{}, err
		}
		p.headBytes += n
		if done {
			if err := p.selectFraming(); err != nil {
				return 0, Event{}, err
			}
			return n, Event{Kind: EventHead, Request: p.req}, nil
		}
		return n, Event{}, nil

	case stateParsingBody, stateChunkData:
		if len(data) == 0 {
			return 0, Event{}, nil
		}
		take := int64(len(data))
		if take > p.remaining {
			take = p.remaining
		}
		chunk := make([]byte, take)
		copy(chunk, data[:take])
		p.remaining -= take
		if p.remaining == 0 {
			if p.state == stateParsingBody {
				p.state = stateDone
			} else {
				p.state = stateChunkDataEnd
			}
		}
		return int(take), Event{Kind: EventBody, Request: p.req, Chunk: chunk}, nil

	case stateChunkSize:
		lf := bytes.Index(data, []byte("\r\n"))
		if lf == -1 {
			if len(data) > 1024 {
				return 0, Event{}, ErrBadChunk
			}
			return 0, Event{}, nil
		}
		size, err := parseChunkSize(data[:lf])
		if err != nil {
			return 0, Event{}, err
		}
		if size == 0 {
			p.trailers = headers.NewHeaders()
			p.headBytes = 0
			p.state = stateTrailers
		} else {
			p.remaining = size
			p.state = stateChunkData
		}
		return lf + 2, Event{}, nil

	case stateChunkDataEnd:
		if len(data) < 2 {
			return 0, Event{}, nil
		}
		if data[0] != '\r' || data[1] != '\n' {
			return 0, Event{}, ErrBadChunk
		}
		p.state = stateChunkSize
		return 2, Event{}, nil

	case stateTrailers:
		// Trailers are bounded like a head.
		n, done, err := p.trailers.Parse(data)
		if err != nil {
			return 0, Event{}, err
		}
		if n == 0 {
			return 0, Event{}, p.checkHead(len(data))
		}
		if err := p.checkHead(n); err != nil {
			return 0, Event{}, err
		}
		p.headBytes += n
		if done {
			p.state = stateDone
		}
		return n, Event{}, nil

	case stateDone:
		return 0, Event{}, nil
	default:
		return 0, Event{}, errors.New("invalid parser state")
	}
}

func (p *Parser) checkHead(n int) error {
	if p.MaxHeadBytes > 0 && p.headBytes+n > p.MaxHeadBytes {
		return ErrHeadTooLarge
	}
	return nil
}

// selectFraming decides how the body is delimited once the head is complete.
func (p *Parser) selectFraming() error {
	h := p.req.Headers
	if te := h.Get("transfer-encoding"); te != "" {
		codings := strings.Split(te, ",")
		if !strings.EqualFold(strings.TrimSpace(codings[len(codings)-1]), "chunked") {
			return ErrUnsupportedFraming
		}
		p.state = stateChunkSize
		return nil
	}
	n, ok, err := h.ContentLength()
	if err != nil {
		return err
	}
	if !ok || n == 0 {
		p.state = stateDone
		return nil
	}
	p.remaining = n
	p.state = stateParsingBody
	return nil
}

func parseChunkSize(line []byte) (int64, error) {
	if i := bytes.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	s := strings.TrimSpace(string(line))
	if s == "" || len(s) > 15 {
		return 0, ErrBadChunk
	}
	n, err := strconv.ParseInt(s, 16, 64)
	if err != nil || n < 0 {
		return 0, ErrBadChunk
	}
	return n, nil
}
