package respserver

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/reasonjournal/internal/core/service"
	"github.com/yndnr/reasonjournal/internal/server/ratelimit"
	"github.com/yndnr/reasonjournal/internal/storage"
	"github.com/yndnr/reasonjournal/internal/telemetry/metric"
)

// Journal is the service surface the server needs.
type Journal interface {
	Append(ctx context.Context, req *service.AppendRequest) (*service.AppendResponse, error)
	Stats(ctx context.Context) (*service.Stats, error)
	Verify(ctx context.Context) (*storage.VerifyReport, error)
	Sync(ctx context.Context) error
	Ready() bool
}

// Config holds the server configuration.
type Config struct {
	// Addr is the TCP listen address.
	Addr string

	// TLSConfig enables TLS on the listener when set.
	TLSConfig *tls.Config

	// ReadTimeout bounds reading one command once its first byte arrived.
	ReadTimeout time.Duration

	// WriteTimeout bounds writing one reply.
	WriteTimeout time.Duration

	// IdleTimeout closes connections idle between commands.
	IdleTimeout time.Duration

	// RateLimit is commands per second per client IP. Zero disables it.
	RateLimit float64
	RateBurst int

	// MaxBulkBytes bounds one argument.
	MaxBulkBytes int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:         "127.0.0.1:5481",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  5 * time.Minute,
		RateLimit:    1000,
		RateBurst:    2000,
		MaxBulkBytes: DefaultMaxBulkLen,
	}
}

// Server serves the RESP protocol.
type Server struct {
	cfg     *Config
	svc     Journal
	logger  *slog.Logger
	limiter *ratelimit.Limiter
	metrics *metric.Registry

	mu      sync.Mutex
	ln      net.Listener
	conns   map[net.Conn]struct{}
	closing atomic.Bool
	wg      sync.WaitGroup
}

// New creates a server. metrics may be nil.
func New(cfg *Config, svc Journal, metrics *metric.Registry, logger *slog.Logger) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:     cfg,
		svc:     svc,
		logger:  logger,
		metrics: metrics,
		conns:   make(map[net.Conn]struct{}),
	}
	if cfg.RateLimit > 0 {
		s.limiter = ratelimit.New(cfg.RateLimit, cfg.RateBurst)
	}
	return s
}

// ListenAndServe listens on cfg.Addr and serves until Shutdown.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	if s.cfg.TLSConfig != nil {
		ln = tls.NewListener(ln, s.cfg.TLSConfig)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln. It returns nil after Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closing.Load() {
		s.mu.Unlock()
		ln.Close()
		return nil
	}
	s.ln = ln
	s.mu.Unlock()

	s.logger.Info("RESP server listening", "addr", ln.Addr().String(), "tls", s.cfg.TLSConfig != nil)

	for {
		c, err := ln.Accept()
		if err != nil {
			if s.closing.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				time.Sleep(10 * time.Millisecond)
				continue
			}
			return err
		}
		if !s.track(c) {
			c.Close()
			return nil
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(c)
			s.serveConn(c)
		}()
	}
}

func (s *Server) track(c net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing.Load() {
		return false
	}
	s.conns[c] = struct{}{}
	return true
}

func (s *Server) untrack(c net.Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	c.Close()
}

// Shutdown stops accepting, lets in-flight commands finish and closes idle
// connections. Connections still busy when ctx ends are closed forcibly.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing.Store(true)
	var err error
	if s.ln != nil {
		err = s.ln.Close()
	}
	// A connection blocked waiting for the next command wakes up now.
	for c := range s.conns {
		_ = c.SetReadDeadline(time.Now())
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.mu.Lock()
		for c := range s.conns {
			c.Close()
		}
		s.mu.Unlock()
		return ctx.Err()
	}
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	return err
}

// Addr returns the listener address once serving.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Server) serveConn(c net.Conn) {
	r := NewReader(c, s.cfg.MaxBulkBytes)
	w := NewWriter(c)
	remote := c.RemoteAddr().String()
	ip := remote
	if host, _, err := net.SplitHostPort(remote); err == nil {
		ip = host
	}

	readTimeout := orDefault(s.cfg.ReadTimeout, 30*time.Second)
	writeTimeout := orDefault(s.cfg.WriteTimeout, 30*time.Second)
	idleTimeout := orDefault(s.cfg.IdleTimeout, 5*time.Minute)

	for !s.closing.Load() {
		if err := c.SetReadDeadline(time.Now().Add(idleTimeout)); err != nil {
			return
		}
		if err := r.Peek(); err != nil {
			s.logReadError(remote, err)
			return
		}

		// Tighter bound once a command has started.
		if err := c.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			return
		}
		args, err := r.ReadCommand()
		if err != nil {
			if errors.Is(err, ErrProtocol) || errors.Is(err, ErrLimitExceeded) {
				s.logger.Warn("RESP protocol violation", "remote", remote, "error", err)
				_ = c.SetWriteDeadline(time.Now().Add(writeTimeout))
				_ = w.Error("ERR", err.Error())
				_ = w.Flush()
			} else {
				s.logReadError(remote, err)
			}
			return
		}
		if len(args) == 0 {
			continue
		}

		quit := false
		if s.limiter != nil && !s.limiter.Allow(ip) {
			if s.metrics != nil {
				s.metrics.IncRateLimited()
			}
			_ = w.Error("BUSY", "rate limit exceeded")
		} else {
			quit = s.dispatch(w, args)
		}

		if err := c.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			return
		}
		if err := w.Flush(); err != nil || quit {
			return
		}
	}
}

func (s *Server) logReadError(remote string, err error) {
	var ne net.Error
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
	case errors.As(err, &ne) && ne.Timeout():
		if !s.closing.Load() {
			s.logger.Debug("RESP connection idle timeout", "remote", remote)
		}
	default:
		s.logger.Debug("RESP connection read error", "remote", remote, "error", err)
	}
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
