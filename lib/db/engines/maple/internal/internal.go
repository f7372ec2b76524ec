package internal

import (
	"github.com/ValentinKolb/dCouch/lib/db/util"
	"github.com/puzpuzpuz/xsync/v3"
)

// Entry is one stored document: its encoded bytes and the write index of the
// write that produced them.
type Entry struct {
	Value []byte
	Index uint64
}

// Shard is one partition of a maple engine, keyed by document id.
type Shard struct {
	Data *xsync.MapOf[string, Entry]
}

// NewShard creates an empty shard
func NewShard() *Shard {
	return &Shard{Data: xsync.NewMapOf[string, Entry]()}
}

// ShardFor picks the shard of a hashed id. The low bits of the hash are
// dropped before the modulo.
//
// Thread-safety: Safe for concurrent use, shards is never modified.
func ShardFor[T any](key util.UintKey, shards []*T) *T {
	return shards[(uint64(key)>>7)%uint64(len(shards))]
}
