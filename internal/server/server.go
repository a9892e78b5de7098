// Package server is the request dispatcher: it accepts connections, routes
// requests through the API registry, stages request bodies and finalizes
// every request with an access log line.
//
// All hooks and handlers run on a single loop goroutine. Each connection
// has a reader goroutine that only parses bytes and performs socket I/O,
// posting head, body, end and completion events to the loop in order.
package server

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/NunoEdgarGFlowHub/cpptrade/internal/api"
)

// Defaults for the Server response header, sent as Name/Version.
const (
	DefaultName    = "obsrv"
	DefaultVersion = "0.1.0"
)

// Config configures Serve. Zero fields take defaults.
type Config struct {
	// Addr is the host:port to listen on.
	Addr    string
	Name    string
	Version string
	// MaxBodyBytes bounds an accumulated request body; 0 disables the bound.
	MaxBodyBytes int64
	Logger       *slog.Logger
	// AccessLog receives one line per completed request. Defaults to stdout.
	AccessLog io.Writer
	Now       func() time.Time
}

// Server is a running dispatcher returned by Serve.
type Server struct {
	cfg          Config
	ln           net.Listener
	closed       atomic.Bool
	reg          *api.Registry
	hooks        map[string]headersHook
	log          *slog.Logger
	access       io.Writer
	serverHeader string

	events    chan event
	done      chan struct{}
	loopDone  chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
	nextID    atomic.Uint64
	stats     counters

	// conns is owned by the loop.
	conns map[*conn]struct{}

	// open tracks every accepted socket so Close can unblock readers the
	// loop never saw.
	mu    sync.Mutex
	open  map[net.Conn]struct{}
	swept bool
}

// Serve binds cfg.Addr and starts dispatching requests for reg in the
// background. A bind failure is returned and nothing is started.
func Serve(cfg Config, reg *api.Registry) (*Server, error) {
	if reg == nil {
		return nil, fmt.Errorf("server: nil registry")
	}
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if cfg.Version == "" {
		cfg.Version = DefaultVersion
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.AccessLog == nil {
		cfg.AccessLog = os.Stdout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", cfg.Addr, err)
	}
	s := &Server{
		cfg:          cfg,
		ln:           ln,
		reg:          reg,
		hooks:        selectHooks(reg),
		log:          cfg.Logger,
		access:       cfg.AccessLog,
		serverHeader: cfg.Name + "/" + cfg.Version,
		events:       make(chan event, 64),
		done:         make(chan struct{}),
		loopDone:     make(chan struct{}),
		conns:        make(map[*conn]struct{}),
		open:         make(map[net.Conn]struct{}),
	}
	go s.loop()
	s.wg.Add(1)
	go s.listen()
	s.log.Info("listening", "addr", ln.Addr().String(), "routes", reg.Len())
	return s, nil
}

// Addr returns the bound listener address.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Stats returns a snapshot of the lifetime counters.
func (s *Server) Stats() Stats {
	return s.stats.snapshot()
}

// Close stops the server and closes the underlying listener. In-flight
// requests are finalized as aborted.
func (s *Server) Close() error {
	if s == nil {
		return nil
	}
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		err = s.ln.Close()
		close(s.done)
		<-s.loopDone
		s.sweep()
		s.wg.Wait()
		s.log.Info("server stopped")
	})
	return err
}

// listen accepts connections until the server is closed, starting a reader
// goroutine for each.
func (s *Server) listen() {
	defer s.wg.Done()
	for {
		nc, err := s.ln.Accept()
		if err != nil {
			if s.closed.Load() {
				return
			}
			s.log.Warn("accept failed", "err", err)
			time.Sleep(10 * time.Millisecond)
			continue
		}
		if !s.track(nc) {
			return
		}
		c := newConn(s.nextID.Add(1), nc)
		s.wg.Add(1)
		go s.serveConn(c)
	}
}

func (s *Server) track(nc net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.swept {
		_ = nc.Close()
		return false
	}
	s.open[nc] = struct{}{}
	return true
}

func (s *Server) untrack(nc net.Conn) {
	s.mu.Lock()
	delete(s.open, nc)
	s.mu.Unlock()
	_ = nc.Close()
}

// sweep closes every socket still open and refuses new ones.
func (s *Server) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swept = true
	for nc := range s.open {
		_ = nc.Close()
	}
}
