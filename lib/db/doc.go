// Package db provides the storage contract underneath a document store.
// It defines the DocDB interface: a flat mapping from document id to the
// encoded document bytes, with enumeration and feature discovery.
//
// The package focuses on:
//   - A unified interface for raw document storage
//   - Feature discovery through capability flags
//   - Comprehensive metadata reporting
//
// Key Components:
//
//   - DocDB Interface: The core interface that all engines must satisfy.
//     It provides methods for basic operations (Set, Get, Has, Delete),
//     enumeration (Range, Count) and metadata retrieval (GetInfo).
//
//   - Feature Flags: The Feature type defines capability flags that implementations
//     can advertise through the SupportsFeature method.
//
//   - Implementation Identifiers: The Implementation type provides string constants
//     for different engines (currently "maple").
//
//   - Database Information: The DatabaseInfo structure reports engine state,
//     including size statistics, implementation type and engine specific metadata.
//
// Engines are deliberately dumb. Revision checks, id minting and document
// validation happen in the store layer (github.com/ValentinKolb/dCouch/lib/store/lstore),
// which also serializes all read-modify-write sequences on one store. An engine
// therefore only has to guarantee that each single call is atomic.
//
// Related Packages:
//
// The engines/maple package (github.com/ValentinKolb/dCouch/lib/db/engines/maple)
// provides a sharded in-memory implementation.
//
// The testing package (github.com/ValentinKolb/dCouch/lib/db/testing) provides
// standardized tests and benchmarks for engines that satisfy the db.DocDB interface.
//   - RunDocDBTests: Runs a standardized test suite to validate implementations
//   - RunDocDBBenchmarks: Provides performance benchmarks for comparing implementations
package db
