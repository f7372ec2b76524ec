// Package util provides helpers shared by db.DocDB engines.
//
// The package contains:
//   - functions: seed generation and a seeded xxHash64 string hash used for shard selection
//   - statistics: small descriptive statistics used to report shard balance in GetInfo
package util
