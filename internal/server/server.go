// Package server accepts TCP connections and runs one worker goroutine per
// connection on top of the http1 framer, the route table and the encoder.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/netutil"

	"github.com/goceleris/rawhttp/internal/config"
	"github.com/goceleris/rawhttp/internal/router"
)

// ErrServerClosed is returned by Serve after Close.
var ErrServerClosed = errors.New("server closed")

// Backoff bounds applied between failed Accept calls.
const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// Server is a minimal HTTP/1.1 server.
type Server struct {
	cfg    config.Config
	routes *router.Registry
	logger *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	closed   atomic.Bool

	active   atomic.Int64
	accepted atomic.Int64
}

// New creates a Server serving routes with cfg.
func New(cfg config.Config, routes *router.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:    cfg,
		routes: routes,
		logger: logger,
	}
}

// Listen opens the listening socket on the configured address.
func (s *Server) Listen(ctx context.Context) (net.Listener, error) {
	lc := listenConfig()
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return ln, nil
}

// Run listens on the configured address and serves until Close.
func (s *Server) Run(ctx context.Context) error {
	ln, err := s.Listen(ctx)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln and spawns a worker for each of them.
// Serve always closes ln before returning.
func (s *Server) Serve(ln net.Listener) error {
	if s.cfg.MaxConns > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConns)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	defer func() { _ = ln.Close() }()

	if s.closed.Load() {
		return ErrServerClosed
	}

	s.logger.Info("server listening",
		"addr", ln.Addr().String(),
		"directory", s.cfg.Directory,
		"max_conns", s.cfg.MaxConns,
		"routes", s.routes.Prefixes())

	var delay time.Duration
	for {
		rwc, err := ln.Accept()
		if err != nil {
			if s.closed.Load() || errors.Is(err, net.ErrClosed) {
				return ErrServerClosed
			}
			delay = max(minAcceptDelay, min(2*delay, maxAcceptDelay))
			s.logger.Warn("accept failed", "error", err, "retry_in", delay)
			time.Sleep(delay)
			continue
		}
		delay = 0

		s.accepted.Add(1)
		s.active.Add(1)
		c := newConn(s, rwc)
		go func() {
			defer s.active.Add(-1)
			c.serve()
		}()
	}
}

// Addr returns the listener address, or nil before Serve is called.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ActiveConns returns the number of connections currently being served.
func (s *Server) ActiveConns() int64 {
	return s.active.Load()
}

// AcceptedConns returns the number of connections accepted so far.
func (s *Server) AcceptedConns() int64 {
	return s.accepted.Load()
}

// Close stops accepting new connections. Connections already being served
// run until they are closed by the peer, by Connection: close or by the
// idle timeout.
func (s *Server) Close() error {
	s.closed.Store(true)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}
