// Package testing provides standardised tests and benchmarks for
// engines that satisfy the db.DocDB interface.
//
// The package contains:
//   - testing: A test suite for validating conformance to the DocDB interface contract
//   - benchmark: Performance tests for measuring throughput of common engine operations
//
// Example usage:
//
//	factory := func() db.DocDB {
//		return NewMyEngine()
//	}
//
//	// Running the standard test suite
//	dbtesting.RunDocDBTests(t, "MyEngine", factory)
//
//	// Running performance benchmarks
//	dbtesting.RunDocDBBenchmarks(b, "MyEngine", factory)
package testing
