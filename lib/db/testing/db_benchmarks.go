package testing

import (
	"bytes"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/dCouch/lib/db"
)

// RunDocDBBenchmarks runs all benchmarks for a DocDB implementation
func RunDocDBBenchmarks(b *testing.B, name string, factory DBFactory) {
	b.Run(name, func(b *testing.B) {
		b.Run("Set", func(b *testing.B) {
			benchmarkSet(b, factory())
		})

		b.Run("SetLargeValue", func(b *testing.B) {
			benchmarkSetLargeValue(b, factory())
		})

		b.Run("Get", func(b *testing.B) {
			benchmarkGet(b, factory())
		})

		b.Run("Range", func(b *testing.B) {
			benchmarkRange(b, factory())
		})

		b.Run("MixedUsage", func(b *testing.B) {
			benchmarkMixedUsage(b, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

func benchmarkSet(b *testing.B, database db.DocDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet)

	var counter atomic.Int64
	value := []byte(`{"name":"bench","value":1}`)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			database.Set(fmt.Sprintf("doc-%d", counter.Add(1)), value)
		}
	})
}

func benchmarkSetLargeValue(b *testing.B, database db.DocDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet)

	value := bytes.Repeat([]byte("x"), 64*1024)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		database.Set(fmt.Sprintf("doc-%d", i%1000), value)
	}
}

func benchmarkGet(b *testing.B, database db.DocDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet|db.FeatureGet)

	const numDocs = 10_000
	for i := 0; i < numDocs; i++ {
		database.Set(fmt.Sprintf("doc-%d", i), []byte(`{"a":1}`))
	}

	var counter atomic.Int64

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			database.Get(fmt.Sprintf("doc-%d", counter.Add(1)%numDocs))
		}
	})
}

func benchmarkRange(b *testing.B, database db.DocDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet|db.FeatureRange)

	for i := 0; i < 1000; i++ {
		database.Set(fmt.Sprintf("doc-%d", i), []byte(`{"a":1}`))
	}

	var visited int

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		database.Range(func(string, []byte) bool {
			visited++
			return true
		})
	}
	b.ReportMetric(float64(visited)/float64(b.N), "docs/op")
}

func benchmarkMixedUsage(b *testing.B, database db.DocDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet|db.FeatureGet|db.FeatureDelete)

	var counter atomic.Int64
	value := []byte(`{"a":1}`)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			i := counter.Add(1)
			id := fmt.Sprintf("doc-%d", i%1000)
			switch i % 10 {
			case 0:
				database.Delete(id)
			case 1, 2, 3:
				database.Set(id, value)
			default:
				database.Get(id)
			}
		}
	})
}
