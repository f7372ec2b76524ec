// Package rpc groups the network layer of dCouch: the CouchDB 0.10 style HTTP
// API and its Go client.
//
// The package is organized into several subpackages:
//
//   - common: Configuration structures shared by server and client, and the
//     logger factory used by every package.
//
//   - server: The HTTP adapter translating requests into registry and store
//     calls, including error mapping, request ids, access logging and metrics.
//
//   - client: A Go client for the HTTP API that maps error answers back into
//     store errors.
package rpc
