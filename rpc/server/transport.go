package server

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"

	"github.com/rs/xid"
)

const unixPrefix = "unix://"

// listen creates the listener for endpoint: host:port or unix:///path/to.sock
func listen(endpoint string) (net.Listener, error) {
	if socketPath, ok := strings.CutPrefix(endpoint, unixPrefix); ok {
		// Remove existing socket file if it exists
		if err := os.RemoveAll(socketPath); err != nil {
			return nil, fmt.Errorf("failed to remove existing socket: %v", err)
		}
		listener, err := net.Listen("unix", socketPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create Unix socket: %v", err)
		}
		return listener, nil
	}

	listener, err := net.Listen("tcp", strings.TrimPrefix(endpoint, "http://"))
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %v", endpoint, err)
	}
	return listener, nil
}

// --------------------------------------------------------------------------
// Middleware
// --------------------------------------------------------------------------

// requestIDMiddleware tags every response with a fresh request id
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = xid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// responseWriter is a custom ResponseWriter that captures status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code before writing it
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// debugWriter forwards the access log of handlers.LoggingHandler to the rpc logger
type debugWriter struct{}

func (debugWriter) Write(p []byte) (int, error) {
	Logger.Debugf("%s", strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// recoveryLogger reports recovered panics on the rpc logger
type recoveryLogger struct{}

func (recoveryLogger) Println(args ...interface{}) {
	Logger.Errorf("recovered from panic: %s", fmt.Sprint(args...))
}
