package server

import (
	"sync/atomic"
	"time"
)

// RequestState is the ephemeral record of one in-flight request on a
// registered route. It is created when the head arrives and released by the
// completion hook; it is never reused.
type RequestState struct {
	tstamp   time.Time
	body     []byte
	overflow bool
	released bool
}

func newRequestState(now time.Time) *RequestState {
	return &RequestState{tstamp: now}
}

// takeBody hands the accumulated body to the handler. The state keeps no
// reference afterwards.
func (st *RequestState) takeBody() []byte {
	b := st.body
	st.body = nil
	return b
}

func (st *RequestState) release() {
	if st.released {
		panic("server: request state released twice")
	}
	st.released = true
	st.body = nil
}

// Stats is a snapshot of the dispatcher's lifetime counters.
type Stats struct {
	Connections    int64
	StatesCreated  int64
	StatesReleased int64
	BodyChunks     int64
	Handled        int64
	NotFound       int64
	Preflight      int64
}

type counters struct {
	connections    atomic.Int64
	statesCreated  atomic.Int64
	statesReleased atomic.Int64
	bodyChunks     atomic.Int64
	handled        atomic.Int64
	notFound       atomic.Int64
	preflight      atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Connections:    c.connections.Load(),
		StatesCreated:  c.statesCreated.Load(),
		StatesReleased: c.statesReleased.Load(),
		BodyChunks:     c.bodyChunks.Load(),
		Handled:        c.handled.Load(),
		NotFound:       c.notFound.Load(),
		Preflight:      c.preflight.Load(),
	}
}
