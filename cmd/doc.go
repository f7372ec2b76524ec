// Package cmd implements the command-line interface of dCouch. It provides a
// hierarchical command structure for running the server and for talking to a
// running server as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Starts and configures the dCouch server
//   - couch: Client commands (db, doc, view, uuids, perf)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// All flags can also be set with DCOUCH_<FLAG> environment variables or in a
// .env / .env.local file. See dcouch -help for a list of all commands.
package cmd
