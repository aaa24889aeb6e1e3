// Package smbserver is the TCP transport this module's spec leaves
// otherwise unconstrained: an accept loop that wires internal/protocol/smb's
// dispatch/handler layers to real sockets, with env-var configuration and
// Prometheus instrumentation in place of the teacher's heavier layered
// config and control-plane API.
package smbserver

import (
	"context"
	"crypto/rand"
	"fmt"
	"net"
	"net/http"

	"github.com/coredoor/smbd/internal/logger"
	"github.com/coredoor/smbd/internal/protocol/smb/v2/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server listens for SMB2 TCP connections and dispatches every request
// through a shared handlers.Handler.
type Server struct {
	cfg      Config
	handler  *handlers.Handler
	listener net.Listener
}

// New builds a Server from cfg, wiring the default share set and NTLM
// credential store. Call Serve to start accepting connections.
func New(cfg Config) *Server {
	store := defaultCredentialStore()
	shares := defaultShares(cfg)

	var serverGUID [16]byte
	_, _ = rand.Read(serverGUID[:])

	h := handlers.NewHandler(shares, authProviderFactory(store, cfg.ServerName), cfg.ServerName, serverGUID)

	return &Server{cfg: cfg, handler: h}
}

// Serve binds the configured address and accepts connections until ctx is
// cancelled, closing the listener on return.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.BindAddress, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("smbserver: listen %s: %w", addr, err)
	}
	s.listener = ln
	logger.Info("smbserver: listening", "address", ln.Addr().String())

	if s.cfg.MetricsPort != 0 {
		go s.serveMetrics(ctx)
	}

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		nc, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("smbserver: accept: %w", err)
			}
		}
		go serveConnection(s.handler, s.cfg, nc)
	}
}

// serveMetrics runs a minimal HTTP server exposing /metrics until ctx is
// cancelled. It never returns an error up the call chain: a metrics outage
// should not take the SMB listener down with it.
func (s *Server) serveMetrics(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	addr := fmt.Sprintf("%s:%d", s.cfg.BindAddress, s.cfg.MetricsPort)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	logger.Info("smbserver: metrics listening", "address", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Warn("smbserver: metrics server error", "error", err)
	}
}

// Addr returns the listener's bound address, or "" before Serve is called.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
