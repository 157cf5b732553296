package server

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"eldom_bridge/internal/logger"

	"go.uber.org/zap"
)

// Server serves the REST API and the /ws state stream on one port.
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

// New returns a server whose net/http error log goes to the service logger.
func New(log *logger.Logger) *Server {
	return &Server{log: log}
}

// Extracted constants to avoid magic numbers and centralize tuning knobs.
const (
	maxHeaderBytes    = 1 << 20 // 1 MB
	readHeaderTimeout = 10 * time.Second
	writeTimeout      = 30 * time.Second // config flow logs into the vendor cloud
	idleTimeout       = 60 * time.Second
)

// newHTTPServer builds a configured *http.Server for the given address and handler.
// Hijacked websocket connections are not bound by writeTimeout.
func newHTTPServer(addr string, handler http.Handler, errorLog *log.Logger) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		MaxHeaderBytes:    maxHeaderBytes,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ErrorLog:          errorLog,
	}
}

// normalizeAddr ensures the provided port is a valid address (accepts "8080" or ":8080").
func normalizeAddr(port string) string {
	if port == "" {
		return ""
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// Run starts the HTTP server on the given port using the provided handler.
func (s *Server) Run(port string, handler http.Handler) error {
	addr := normalizeAddr(port)
	var errorLog *log.Logger
	if s.log != nil {
		errorLog = zap.NewStdLog(s.log.Named("http").Desugar())
	}
	s.httpServer = newHTTPServer(addr, handler, errorLog)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, allowing in-flight requests to complete.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
