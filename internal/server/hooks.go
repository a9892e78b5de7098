package server

import (
	"fmt"
	"strconv"

	"github.com/NunoEdgarGFlowHub/cpptrade/internal/api"
	"github.com/NunoEdgarGFlowHub/cpptrade/internal/headers"
	"github.com/NunoEdgarGFlowHub/cpptrade/internal/response"
)

// headersHook runs on the loop when the head of a request for a registered
// route arrives.
type headersHook func(s *Server, ex *exchange)

// bodyHook runs on the loop once per body chunk.
type bodyHook func(s *Server, st *RequestState, chunk []byte)

// completionHook runs on the loop exactly once when a stateful request
// finishes, however it finishes.
type completionHook func(s *Server, c *conn, ex *exchange, status response.StatusCode)

// selectHooks pairs every route with its head hook. The pairing is fixed for
// the life of the server.
func selectHooks(reg *api.Registry) map[string]headersHook {
	hooks := make(map[string]headersHook, reg.Len())
	for _, rt := range reg.Routes() {
		if rt.WantsBody {
			hooks[rt.Path] = withBody
		} else {
			hooks[rt.Path] = withoutBody
		}
	}
	return hooks
}

func withBody(s *Server, ex *exchange) {
	s.initState(ex)
	ex.onBody = accumulate
}

func withoutBody(s *Server, ex *exchange) {
	s.initState(ex)
}

// initState allocates the request state, seeds the standard response
// headers and arms the completion hook.
func (s *Server) initState(ex *exchange) {
	st := newRequestState(s.cfg.Now())
	s.stats.statesCreated.Add(1)

	ex.state = st
	ex.onFinish = finishRequest
	s.seed(ex)
}

// seed presets the headers every stateful response carries.
func (s *Server) seed(ex *exchange) {
	ex.w.Preset("Date", headers.HTTPDate(ex.state.tstamp))
	ex.w.Preset("Server", s.serverHeader)
	s.presetConnection(ex)
}

// accumulate appends one transport chunk to the request body. Past the
// configured bound the body is dropped and the state marked overflowed.
func accumulate(s *Server, st *RequestState, chunk []byte) {
	s.stats.bodyChunks.Add(1)
	if st.overflow {
		return
	}
	if limit := s.cfg.MaxBodyBytes; limit > 0 && int64(len(st.body)+len(chunk)) > limit {
		st.overflow = true
		st.body = nil
		return
	}
	st.body = append(st.body, chunk...)
}

func finishRequest(s *Server, c *conn, ex *exchange, status response.StatusCode) {
	st := ex.state
	ex.state = nil
	s.logRequest(c, ex, st, status)
	st.release()
	s.stats.statesReleased.Add(1)
}

// logRequest writes one access log line. A status of 0 means the client
// went away before a response was sent.
func (s *Server) logRequest(c *conn, ex *exchange, st *RequestState, status response.StatusCode) {
	code := "?"
	if status != 0 {
		code = strconv.Itoa(int(status))
	}
	length, ok, err := ex.req.Headers.ContentLength()
	if !ok || err != nil {
		length = ex.received
	}
	_, err = fmt.Fprintf(s.access, "%s - - [%s] \"%s %s\" %s %d\n",
		c.remote,
		headers.ISOTime(st.tstamp),
		ex.req.RequestLine.Method,
		ex.req.Path(),
		code,
		length)
	if err != nil {
		s.log.Warn("access log write failed", "err", err)
	}
}
