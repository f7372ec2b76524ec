// Package maple implements a sharded in-memory document engine. It provides a
// complete implementation of the db.DocDB interface and is the default storage
// underneath every local document store.
//
// Key Components:
//
//   - mapleImpl: The central structure implementing db.DocDB. It owns the shards
//     and a monotonically increasing write index that counts applied writes.
//
//   - Shard: A partition of the id space. Each shard holds its own xsync.MapOf,
//     a concurrent map that itself shards internally, so writers to different
//     documents rarely contend.
//
//   - Entry: The stored value. It carries the encoded document bytes and the
//     write index at which it was last written.
//
// Internal Mechanisms:
//
//   - Sharding Strategy: Ids are distributed across shards in a two-step process:
//     1. The id is hashed with xxHash64 (util.HashString) using a per-instance seed
//     2. The hash is right-shifted by 7 bits and taken modulo the shard count
//
//   - Copy Semantics: Set copies the value before storing it and Get returns a
//     copy, so callers can never corrupt stored bytes.
//
//   - Metrics: GetInfo walks every shard concurrently and reports the exact
//     byte size, the entry count and the shard balance.
//
// The engine keeps no history and no tombstones. Deleting a document removes
// it immediately.
package maple
