// Package registry holds the catalog of named databases.
//
// A Registry is an explicit value: the HTTP server, the fixture loader and
// tests each get one handed in rather than reaching for a package level
// table. Creating a database always starts from an empty store, deleting an
// unknown database succeeds, and Reset drops everything, which is what test
// suites call between cases.
//
// The registry also answers the server level requests that are not tied to a
// single document: server info, minting ids and database metadata.
package registry
