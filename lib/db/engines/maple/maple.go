package maple

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/dCouch/lib/db"
	"github.com/ValentinKolb/dCouch/lib/db/engines/maple/internal"
	"github.com/ValentinKolb/dCouch/lib/db/util"
)

// --------------------------------------------------------------------------
// Core Maple database structure
// --------------------------------------------------------------------------

// mapleImpl implements a sharded in-memory document engine
type mapleImpl struct {
	numShards int               // Number of shards
	seed      uint64            // Seed for hash function
	shards    []*internal.Shard // Array of shards
	currIndex atomic.Uint64     // Number of applied writes
	closed    atomic.Bool
}

// DBOptions configures the mapleImpl behavior during initialization
type DBOptions struct {
	NumShards int // Number of shards (0 = auto)
}

// DefaultOptions returns the default mapleImpl options
func DefaultOptions() *DBOptions {
	return &DBOptions{
		NumShards: runtime.NumCPU(), // Auto-determine based on CPU count
	}
}

// --------------------------------------------------------------------------
// Initialization and Setup
// --------------------------------------------------------------------------

// NewMapleDB creates a new MapleDB instance with the specified options (optional)
func NewMapleDB(opts *DBOptions) db.DocDB {

	// Generate default options if not provided
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.NumShards <= 0 {
		opts.NumShards = runtime.NumCPU()
	}

	shards := make([]*internal.Shard, opts.NumShards)
	for i := 0; i < opts.NumShards; i++ {
		shards[i] = internal.NewShard()
	}

	return &mapleImpl{
		numShards: opts.NumShards,
		seed:      util.GenerateSeed(),
		shards:    shards,
	}
}

// shardFor returns the shard responsible for id
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) shardFor(id string) *internal.Shard {
	return internal.ShardFor(util.HashString(id, maple.seed), maple.shards)
}

// --------------------------------------------------------------------------
// Core DocDB Interface Methods - Write Operations
// --------------------------------------------------------------------------

// Set inserts or replaces the document stored under id.
// The value is copied, so the caller may reuse the slice.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Set(id string, value []byte) {
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	idx := maple.currIndex.Add(1)
	maple.shardFor(id).Data.Store(id, internal.Entry{
		Value: valueCopy,
		Index: idx,
	})
}

// Delete removes the document stored under id. This change is immediate.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Delete(id string) {
	if _, loaded := maple.shardFor(id).Data.LoadAndDelete(id); loaded {
		maple.currIndex.Add(1)
	}
}

// --------------------------------------------------------------------------
// Core DocDB Interface Methods - Read Operations
// --------------------------------------------------------------------------

// Get retrieves the document stored under id.
// The returned value is a copy of the stored data and therefore safe to use and modify.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Get(id string) ([]byte, bool) {
	e, ok := maple.shardFor(id).Data.Load(id)
	if !ok {
		return nil, false
	}
	data := make([]byte, len(e.Value))
	copy(data, e.Value)
	return data, true
}

// Has checks if an id exists in the database.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Has(id string) bool {
	_, ok := maple.shardFor(id).Data.Load(id)
	return ok
}

// Range calls fn for each stored document, shard by shard.
// Concurrent writes may or may not be observed by a running Range.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Range(fn func(id string, value []byte) bool) {
	for _, shard := range maple.shards {
		cont := true
		shard.Data.Range(func(id string, e internal.Entry) bool {
			cont = fn(id, e.Value)
			return cont
		})
		if !cont {
			return
		}
	}
}

// Count returns the number of stored documents
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Count() int {
	n := 0
	for _, shard := range maple.shards {
		n += shard.Data.Size()
	}
	return n
}

// --------------------------------------------------------------------------
// Metadata
// --------------------------------------------------------------------------

// GetInfo returns statistics about the database
func (maple *mapleImpl) GetInfo() db.DatabaseInfo {
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		sizeBytes  int
		entries    int
		shardSizes = make([]float64, len(maple.shards))
	)

	wg.Add(len(maple.shards))
	for shardIndex, shard := range maple.shards {
		go func(i int, s *internal.Shard) {
			defer wg.Done()
			size, count := 0, 0
			s.Data.Range(func(id string, e internal.Entry) bool {
				size += len(id) + len(e.Value) + 8 // 8 bytes for the index
				count++
				return true
			})

			mu.Lock()
			defer mu.Unlock()
			sizeBytes += size
			entries += count
			shardSizes[i] = float64(count)
		}(shardIndex, shard)
	}
	wg.Wait()

	meta := &struct {
		CurrentWriteIndex uint64       `json:"current_write_index"`
		ShardCount        int          `json:"shard_count"`
		ShardBalance      util.Balance `json:"shard_balance"`
	}{
		CurrentWriteIndex: maple.currIndex.Load(),
		ShardCount:        len(maple.shards),
		ShardBalance:      util.NewBalance(shardSizes),
	}

	return db.DatabaseInfo{
		SizeBytes: sizeBytes,
		Entries:   entries,
		DbType:    db.ImplMaple,
		SupportedFeatures: []db.Feature{
			db.FeatureSet, db.FeatureGet, db.FeatureDelete,
			db.FeatureHas, db.FeatureRange, db.FeatureCount,
		},
		Metadata: meta,
	}
}

// SupportsFeature checks if this implementation supports a specific DocDB feature
func (maple *mapleImpl) SupportsFeature(feature db.Feature) bool {
	supportedFeatures := db.FeatureSet |
		db.FeatureGet |
		db.FeatureDelete |
		db.FeatureHas |
		db.FeatureRange |
		db.FeatureCount
	return supportedFeatures&feature == feature
}

// WriteIdx returns the number of applied writes
func (maple *mapleImpl) WriteIdx() uint64 {
	return maple.currIndex.Load()
}

// Close drops all shards. Calling Close twice is a no-op.
func (maple *mapleImpl) Close() error {
	if !maple.closed.CompareAndSwap(false, true) {
		return nil
	}
	for _, shard := range maple.shards {
		shard.Data.Clear()
	}
	return nil
}
