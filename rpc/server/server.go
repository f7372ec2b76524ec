package server

import (
	"context"
	"net"
	"net/http"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/ValentinKolb/dCouch/lib/registry"
	"github.com/ValentinKolb/dCouch/rpc/common"
	"github.com/gorilla/handlers"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("rpc")

// RequestIDHeader carries the id assigned to every request.
const RequestIDHeader = "X-Couch-Request-ID"

// Server is the CouchDB style HTTP interface in front of a registry.
type Server struct {
	config   common.ServerConfig
	registry *registry.Registry
	metrics  *httpMetrics
	handler  http.Handler
	http     *http.Server
}

// NewServer creates a new HTTP server for reg.
//
// Usage:
//
//	reg := registry.New(registry.LocalFactory(nil))
//	s := server.NewServer(*config, reg)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewServer(config common.ServerConfig, reg *registry.Registry) *Server {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	s := &Server{
		config:   config,
		registry: reg,
		metrics:  newHTTPMetrics(reg),
	}
	s.handler = s.buildHandler()

	timeout := time.Duration(config.TimeoutSecond) * time.Second
	s.http = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}

	Logger.Infof("Created HTTP Server")
	Logger.Infof(config.String())
	return s
}

// Handler returns the complete handler chain (routes and middleware).
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) buildHandler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)

	var h http.Handler = mux
	h = s.metrics.middleware(h)
	h = requestIDMiddleware(h)
	if s.config.LogLevel == "debug" {
		h = handlers.LoggingHandler(debugWriter{}, h)
	}
	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{}),
		handlers.PrintRecoveryStack(s.config.LogLevel == "debug"),
	)(h)
}

// Serve listens on the configured endpoint and blocks until the server stops.
func (s *Server) Serve() error {
	listener, err := listen(s.config.Endpoint)
	if err != nil {
		return err
	}
	return s.ServeListener(listener)
}

// ServeListener serves on an existing listener.
func (s *Server) ServeListener(listener net.Listener) error {
	Logger.Infof("Starting HTTP server on %s", listener.Addr())
	if err := s.http.Serve(listener); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	Logger.Infof("Shutting down HTTP server")
	return s.http.Shutdown(ctx)
}
