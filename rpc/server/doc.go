// Package server implements the HTTP interface of dCouch. It maps CouchDB style
// requests (verb, path, query string and body) onto the registry and the
// document stores, and renders their answers as JSON.
//
// The package focuses on:
//   - Routing with http.ServeMux patterns, one handler per operation
//   - Query option parsing through the query package
//   - Translation of domain errors into status codes and {"error", "reason"} bodies
//   - Request ids, recovery, access logging and request metrics
//
// Error Translation:
//
//	not_found          404
//	conflict           409
//	validation_failed  500
//	bad_request        400 (unknown query options, malformed headers, unknown urls)
//	internal_error     500 (unsupported view names, anything else)
//
// Successful writes answer 201 Created, everything else 200 OK.
//
// Usage Example:
//
//	config := common.ServerConfig{
//	  Endpoint:      "0.0.0.0:5984",
//	  TimeoutSecond: 5,
//	  LogLevel:      "info",
//	}
//
//	reg := registry.New(registry.LocalFactory(nil))
//	s := server.NewServer(config, reg)
//
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Endpoints of the form unix:///path/to.sock listen on a Unix socket.
//
// Thread Safety:
//
//	The server handles requests concurrently. Serve and ServeListener should be
//	called only once.
package server
