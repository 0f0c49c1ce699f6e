package httpserver

import (
	"net"
	"time"

	"github.com/device-management-toolkit/bmcserver/pkg/logger"
)

// Option tunes a Server before it starts serving.
type Option func(*Server)

// Port sets the listen address. An empty host listens on every interface.
func Port(host, port string) Option {
	return func(s *Server) {
		s.server.Addr = net.JoinHostPort(host, port)
	}
}

// TLS enables TLS. Empty certFile and keyFile select an in-memory self-signed certificate.
func TLS(enable bool, certFile, keyFile string) Option {
	return func(s *Server) {
		s.useTLS = enable
		s.certFile = certFile
		s.keyFile = keyFile
	}
}

// Listener serves the mode API on l; Port is ignored.
func Listener(l net.Listener) Option {
	return func(s *Server) {
		s.listener = l
	}
}

// ReadTimeout bounds how long a client may take to send a command body.
func ReadTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		s.server.ReadTimeout = timeout
	}
}

// WriteTimeout must outlast the slowest device command or clients lose the result.
func WriteTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		s.server.WriteTimeout = timeout
	}
}

// ShutdownTimeout is how long in-flight requests, a running device command included,
// get to finish on shutdown.
func ShutdownTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		s.shutdownTimeout = timeout
	}
}

// Logger receives TLS setup messages.
func Logger(l logger.Interface) Option {
	return func(s *Server) {
		s.log = l
	}
}
