// Package httpserver implements HTTP server.
package httpserver

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/device-management-toolkit/bmcserver/pkg/logger"
)

const (
	_defaultReadTimeout     = 15 * time.Second
	_defaultWriteTimeout    = 15 * time.Second
	_defaultAddr            = ":8000"
	_defaultShutdownTimeout = 3 * time.Second

	_selfSignedValidity = 365 * 24 * time.Hour
)

// Errors.
var (
	ErrTLSCertKeyMismatch = errors.New("tls cert/key mismatch: both certFile and keyFile must be set when TLS is enabled")
)

// Server -.
type Server struct {
	server          *http.Server
	notify          chan error
	shutdownTimeout time.Duration
	useTLS          bool
	certFile        string
	keyFile         string
	listener        net.Listener
	log             logger.Interface
}

// New starts serving handler in the background. Serve errors arrive on Notify.
func New(handler http.Handler, opts ...Option) *Server {
	s := &Server{
		server: &http.Server{
			Handler:           handler,
			ReadTimeout:       _defaultReadTimeout,
			ReadHeaderTimeout: _defaultReadTimeout,
			WriteTimeout:      _defaultWriteTimeout,
			Addr:              _defaultAddr,
		},
		notify:          make(chan error, 1),
		shutdownTimeout: _defaultShutdownTimeout,
		log:             logger.New("info"),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.start()

	return s
}

func (s *Server) start() {
	go func() {
		err := s.serve()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}

		s.notify <- err

		close(s.notify)
	}()
}

func (s *Server) serve() error {
	if !s.useTLS {
		if s.listener != nil {
			return s.server.Serve(s.listener)
		}

		return s.server.ListenAndServe()
	}

	if err := s.configureTLS(); err != nil {
		return err
	}

	// certificates are already in TLSConfig
	if s.listener != nil {
		return s.server.ServeTLS(s.listener, "", "")
	}

	return s.server.ListenAndServeTLS("", "")
}

// configureTLS loads the configured key pair, or makes a self-signed one when none is set.
func (s *Server) configureTLS() error {
	var (
		cert tls.Certificate
		err  error
	)

	switch {
	case s.certFile == "" && s.keyFile == "":
		cert, err = selfSignedCert(s.hosts())
		if err != nil {
			return err
		}

		s.log.Warn("TLS: serving a generated self-signed certificate; configure certFile and keyFile for production")
	case s.certFile == "" || s.keyFile == "":
		return ErrTLSCertKeyMismatch
	default:
		if _, err := os.Stat(s.certFile); err != nil {
			return err
		}

		cert, err = tls.LoadX509KeyPair(s.certFile, s.keyFile)
		if err != nil {
			return err
		}

		s.log.Info("TLS: using certificate %s", s.certFile)
	}

	s.server.TLSConfig = &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	return nil
}

// hosts lists the names the self-signed certificate is issued for.
func (s *Server) hosts() []string {
	hosts := []string{"localhost", "127.0.0.1"}

	addr := s.server.Addr
	if s.listener != nil {
		addr = s.listener.Addr().String()
	}

	if h, _, err := net.SplitHostPort(addr); err == nil && h != "" && h != "localhost" && h != "127.0.0.1" {
		hosts = append(hosts, h)
	}

	return hosts
}

// Notify -.
func (s *Server) Notify() <-chan error {
	return s.notify
}

// Shutdown -.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	return s.server.Shutdown(ctx)
}

func selfSignedCert(hosts []string) (tls.Certificate, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, err
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		return tls.Certificate{}, err
	}

	tmpl := x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: hosts[0], Organization: []string{"bmcserver"}},
		NotBefore:             time.Now().Add(-time.Minute),
		NotAfter:              time.Now().Add(_selfSignedValidity),
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}

	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			tmpl.IPAddresses = append(tmpl.IPAddresses, ip)
		} else {
			tmpl.DNSNames = append(tmpl.DNSNames, h)
		}
	}

	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &priv.PublicKey, priv)
	if err != nil {
		return tls.Certificate{}, err
	}

	keyDER, err := x509.MarshalECPrivateKey(priv)
	if err != nil {
		return tls.Certificate{}, err
	}

	return tls.X509KeyPair(
		pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}),
	)
}
