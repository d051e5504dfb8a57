package httpserver

import (
	"log/slog"
	"time"
)

// Option configures a Server at construction time.
type Option func(*Server)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(s *Server) {
		if addr != "" {
			s.addr = addr
		}
	}
}

// WithReadTimeout sets the maximum duration for reading the entire request.
func WithReadTimeout(d time.Duration) Option {
	return func(s *Server) { s.readTimeout = d }
}

// WithWriteTimeout sets the maximum duration before response writes time out.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Server) { s.writeTimeout = d }
}

// WithIdleTimeout sets the keep-alive idle limit.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Server) { s.idleTimeout = d }
}

// WithShutdownTimeout bounds graceful shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) { s.shutdownTimeout = d }
}

// WithLogger supplies the logger passed to lifecycle hooks.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithStartHook registers a callback invoked just before listening starts.
func WithStartHook(hook func(*slog.Logger)) Option {
	return func(s *Server) {
		if hook != nil {
			s.onStart = append(s.onStart, hook)
		}
	}
}

// WithStopHook registers a callback invoked after the server has shut down.
func WithStopHook(hook func(*slog.Logger)) Option {
	return func(s *Server) {
		if hook != nil {
			s.onStop = append(s.onStop, hook)
		}
	}
}
