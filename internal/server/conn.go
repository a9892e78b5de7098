package server

import (
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/NunoEdgarGFlowHub/cpptrade/internal/headers"
	"github.com/NunoEdgarGFlowHub/cpptrade/internal/request"
)

type phase int

const (
	phaseIdle phase = iota
	phaseHeadersReceived
	phaseBodyReceiving
	phaseHandlerInvoked
	phaseResponseSent
	phaseClosed
)

func (p phase) String() string {
	switch p {
	case phaseIdle:
		return "idle"
	case phaseHeadersReceived:
		return "headers-received"
	case phaseBodyReceiving:
		return "body-receiving"
	case phaseHandlerInvoked:
		return "handler-invoked"
	case phaseResponseSent:
		return "response-sent"
	case phaseClosed:
		return "closed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// transitions lists the legal successors of each phase. A request that
// fails to parse jumps straight to handler-invoked to receive its 400.
var transitions = map[phase][]phase{
	phaseIdle:            {phaseHeadersReceived, phaseHandlerInvoked},
	phaseHeadersReceived: {phaseBodyReceiving, phaseHandlerInvoked},
	phaseBodyReceiving:   {phaseBodyReceiving, phaseHandlerInvoked},
	phaseHandlerInvoked:  {phaseResponseSent},
	phaseResponseSent:    {phaseIdle},
}

// conn is one accepted connection. nc, id, remote and out are set before the
// reader starts; phase and ex belong to the loop.
type conn struct {
	id     uint64
	nc     net.Conn
	remote string
	out    chan outbound

	phase phase
	ex    *exchange
}

func newConn(id uint64, nc net.Conn) *conn {
	return &conn{
		id:     id,
		nc:     nc,
		remote: headers.ClientAddr(nc.RemoteAddr()),
		out:    make(chan outbound, 1),
	}
}

func (c *conn) transition(next phase) {
	for _, ok := range transitions[c.phase] {
		if ok == next {
			c.phase = next
			return
		}
	}
	panic(fmt.Sprintf("server: conn %d: invalid transition %s -> %s", c.id, c.phase, next))
}

// post hands an event to the loop. It fails once the server is closing.
func (s *Server) post(ev event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

// serveConn reads and parses one connection, feeding the loop. It is the
// only goroutine that touches c.nc apart from shutdown.
func (s *Server) serveConn(c *conn) {
	defer s.wg.Done()
	defer s.untrack(c.nc)
	if !s.post(event{kind: evOpen, c: c}) {
		return
	}
	defer s.post(event{kind: evClosed, c: c})

	p := request.NewParser()
	buf := make([]byte, 4096)
	for {
		n, err := c.nc.Read(buf)
		if n > 0 {
			evs, perr := p.Feed(buf[:n])
			if !s.pump(c, p, evs, perr) {
				return
			}
		}
		if err != nil {
			if p.Pending() {
				s.log.Debug("client went away mid-request", "conn", c.id, "err", err)
			} else if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.log.Debug("read failed", "conn", c.id, "err", err)
			}
			return
		}
	}
}

// pump delivers parser events to the loop, answering every completed
// request before parsing the next one. It reports whether the connection
// should keep reading.
func (s *Server) pump(c *conn, p *request.Parser, evs []request.Event, perr error) bool {
	for {
		for _, ev := range evs {
			var ok bool
			switch ev.Kind {
			case request.EventHead:
				ok = s.post(event{kind: evHead, c: c, req: ev.Request})
			case request.EventBody:
				ok = s.post(event{kind: evBody, c: c, chunk: ev.Chunk})
			case request.EventEnd:
				ok = s.post(event{kind: evEnd, c: c}) && s.respond(c)
			}
			if !ok {
				return false
			}
		}
		if perr != nil {
			if s.post(event{kind: evMalformed, c: c, err: perr}) {
				s.respond(c)
			}
			return false
		}
		if !p.Done() {
			return true
		}
		evs, perr = p.Next()
	}
}

// respond waits for the loop's response and writes it.
func (s *Server) respond(c *conn) bool {
	var out outbound
	select {
	case out = <-c.out:
	case <-s.done:
		return false
	}
	_, err := c.nc.Write(out.data)
	if !s.post(event{kind: evSent, c: c, err: err}) {
		return false
	}
	return err == nil && !out.close
}
