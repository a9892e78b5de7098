package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/NunoEdgarGFlowHub/cpptrade/internal/api"
	"github.com/NunoEdgarGFlowHub/cpptrade/internal/request"
	"github.com/NunoEdgarGFlowHub/cpptrade/internal/response"
)

type eventKind int

const (
	evOpen eventKind = iota + 1
	evHead
	evBody
	evEnd
	evMalformed
	evSent
	evClosed
)

type event struct {
	kind  eventKind
	c     *conn
	req   *request.Request
	chunk []byte
	err   error
}

type exchangeKind int

const (
	exRouted exchangeKind = iota
	exUnmatched
	exPreflight
	exMalformed
)

// exchange is one request/response pair on a connection. It is owned by
// the loop.
type exchange struct {
	kind      exchangeKind
	req       *request.Request
	route     api.Route
	keepAlive bool
	received  int64

	buf bytes.Buffer
	w   *response.Writer

	state    *RequestState
	onBody   bodyHook
	onFinish completionHook
}

func newExchange(req *request.Request) *exchange {
	ex := &exchange{req: req, keepAlive: req != nil && req.KeepAlive()}
	ex.w = response.NewWriter(&ex.buf)
	return ex
}

// outbound is a serialized response handed from the loop to a connection.
type outbound struct {
	data  []byte
	close bool
}

// loop is the only goroutine that runs hooks and handlers.
func (s *Server) loop() {
	defer close(s.loopDone)
	for {
		select {
		case ev := <-s.events:
			s.dispatch(ev)
		case <-s.done:
			for c := range s.conns {
				s.abandon(c)
			}
			return
		}
	}
}

func (s *Server) dispatch(ev event) {
	c := ev.c
	switch ev.kind {
	case evOpen:
		s.conns[c] = struct{}{}
		s.stats.connections.Add(1)
		s.log.Debug("connection opened", "conn", c.id, "remote", c.remote)
	case evHead:
		s.onHead(c, ev.req)
	case evBody:
		s.onBody(c, ev.chunk)
	case evEnd:
		s.onEnd(c)
	case evMalformed:
		s.onMalformed(c, ev.err)
	case evSent:
		s.onSent(c, ev.err)
	case evClosed:
		s.abandon(c)
		c.phase = phaseClosed
		delete(s.conns, c)
		s.log.Debug("connection closed", "conn", c.id)
	default:
		panic(fmt.Sprintf("server: unknown event %d", ev.kind))
	}
}

func (s *Server) onHead(c *conn, req *request.Request) {
	c.transition(phaseHeadersReceived)
	ex := newExchange(req)
	c.ex = ex
	s.presetConnection(ex)

	rt, ok := s.reg.Lookup(req.Path())
	if !ok {
		ex.kind = exUnmatched
		return
	}
	if req.RequestLine.Method == "OPTIONS" {
		ex.kind = exPreflight
		return
	}
	ex.kind = exRouted
	ex.route = rt
	s.hooks[rt.Path](s, ex)
}

func (s *Server) onBody(c *conn, chunk []byte) {
	c.transition(phaseBodyReceiving)
	ex := c.ex
	ex.received += int64(len(chunk))
	if ex.onBody != nil {
		ex.onBody(s, ex.state, chunk)
	}
}

func (s *Server) onEnd(c *conn) {
	c.transition(phaseHandlerInvoked)
	ex := c.ex
	switch ex.kind {
	case exPreflight:
		s.stats.preflight.Add(1)
		writePreflight(ex)
	case exUnmatched:
		s.stats.notFound.Add(1)
		_ = ex.w.WriteEmpty(response.StatusNotFound)
	case exRouted:
		s.invoke(ex)
	}
	s.send(c, ex)
}

func (s *Server) onMalformed(c *conn, err error) {
	c.transition(phaseHandlerInvoked)
	ex := c.ex
	if ex == nil {
		ex = newExchange(nil)
		ex.kind = exMalformed
		c.ex = ex
	}
	ex.keepAlive = false
	s.presetConnection(ex)
	s.log.Debug("malformed request", "conn", c.id, "err", err)

	_ = ex.w.Write(response.StatusBadRequest, "text/plain", []byte(err.Error()+"\n"))
	s.send(c, ex)
}

func (s *Server) onSent(c *conn, err error) {
	c.transition(phaseResponseSent)
	ex := c.ex
	if err != nil {
		s.log.Warn("response write failed", "conn", c.id, "err", err)
	}
	if ex.state != nil {
		ex.onFinish(s, c, ex, ex.w.Status())
	}
	c.ex = nil
	if err == nil && ex.keepAlive {
		c.transition(phaseIdle)
	}
}

// abandon fires the completion hook for a request whose response was never
// sent.
func (s *Server) abandon(c *conn) {
	ex := c.ex
	if ex == nil {
		return
	}
	if ex.state != nil {
		s.log.Debug("request abandoned", "conn", c.id, "phase", c.phase)
		ex.onFinish(s, c, ex, 0)
	}
	c.ex = nil
}

// invoke runs the route handler with the accumulated body.
func (s *Server) invoke(ex *exchange) {
	st := ex.state
	if st.overflow {
		s.writeTooLarge(ex)
		return
	}
	req := ex.req
	req.Body = st.takeBody()
	if ex.route.ExpectsJSON {
		var raw json.RawMessage
		if err := json.Unmarshal(req.Body, &raw); err != nil {
			req.JSONErr = err
		} else {
			req.JSON = raw
		}
	}

	s.stats.handled.Add(1)
	if herr := s.call(ex); herr != nil {
		if !ex.w.WroteAnything() {
			_ = api.WriteHandlerError(ex.w, herr)
		}
		return
	}
	// If handler didn't write anything, write default empty 200
	if !ex.w.WroteAnything() {
		_ = ex.w.WriteEmpty(response.StatusOK)
	}
}

// call runs the handler, turning a panic into a 500 on a closing connection.
func (s *Server) call(ex *exchange) (herr *api.HandlerError) {
	defer func() {
		if v := recover(); v != nil {
			s.log.Error("handler panic", "path", ex.route.Path, "panic", v)
			ex.buf.Reset()
			ex.w = response.NewWriter(&ex.buf)
			ex.keepAlive = false
			s.seed(ex)
			herr = &api.HandlerError{
				Status: response.StatusInternalServerError,
				Body:   []byte("internal server error\n"),
			}
		}
	}()
	return ex.route.Handler(ex.req, ex.w)
}

func (s *Server) writeTooLarge(ex *exchange) {
	ex.keepAlive = false
	s.presetConnection(ex)
	_ = api.WriteHandlerError(ex.w, &api.HandlerError{
		Status: response.StatusContentTooLarge,
		Body:   []byte("request body too large\n"),
	})
}

func (s *Server) presetConnection(ex *exchange) {
	if ex.keepAlive {
		ex.w.Preset("Connection", "keep-alive")
	} else {
		ex.w.Preset("Connection", "close")
	}
}

func (s *Server) send(c *conn, ex *exchange) {
	data := make([]byte, ex.buf.Len())
	copy(data, ex.buf.Bytes())
	c.out <- outbound{data: data, close: !ex.keepAlive}
}

func writePreflight(ex *exchange) {
	w := ex.w
	w.Preset("Allow", "OPTIONS, GET, POST")
	w.Preset("Access-Control-Allow-Origin", "*")
	w.Preset("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	allowHeaders := ex.req.Headers.Get("Access-Control-Request-Headers")
	if strings.TrimSpace(allowHeaders) == "" {
		allowHeaders = "Content-Type"
	}
	w.Preset("Access-Control-Allow-Headers", allowHeaders)
	w.Preset("Access-Control-Max-Age", "86400")
	_ = w.WriteEmpty(response.StatusNoContent)
}
