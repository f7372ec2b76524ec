// Package store provides the contract of a single document database: revision
// based CRUD, copy, bulk writes, the all documents listing and convention driven
// views. It sits on top of the raw db.DocDB engines and defines the shared
// document, option, result and error types.
//
// Key Components:
//
//   - IStore Interface: The operations of one named database. All implementations
//     share this interface so the HTTP adapter and the registry never depend on a
//     concrete store.
//
//   - Document: A decoded JSON object. Stored documents always carry _id and _rev.
//     Revisions are opaque tokens minted on every successful write and only used
//     for optimistic concurrency; no revision history is kept.
//
//   - Error System: One tagged Error type with three kinds (not_found, conflict,
//     validation_failed), created through fixed-message factories. Callers test
//     errors with IsNotFound, IsConflict and IsValidationFailed. Errors of any
//     other type are programming errors, for example a view name whose shape is
//     not supported.
//
//   - DBFactory: A function type that abstracts the creation of the underlying
//     db.DocDB, so a store can run on any engine.
//
// Implementations:
//
//   - Local Store (lstore): an in-process implementation that serializes every
//     read-modify-write sequence with one mutex per store, which makes revision
//     checks a compare-and-swap. Available in the
//     "github.com/ValentinKolb/dCouch/lib/store/lstore" package.
//
// Document encoding between Document and the engine's byte values is handled by
// the codec subpackage.
package store
