package testing

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/ValentinKolb/dCouch/lib/db"
)

// DBFactory is a function that creates a new instance of a DocDB implementation
type DBFactory func() db.DocDB

// RunDocDBTests runs a comprehensive test suite for a DocDB implementation.
func RunDocDBTests(t *testing.T, name string, factory DBFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory())
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory())
		})

		t.Run("Has", func(t *testing.T) {
			testHas(t, factory())
		})

		t.Run("Range", func(t *testing.T) {
			testRange(t, factory())
		})

		t.Run("Info", func(t *testing.T) {
			testInfo(t, factory())
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory())
		})

		t.Run("CollisionHandling", func(t *testing.T) {
			testCollisionHandling(t, factory())
		})

		t.Run("RealisticUsage", func(t *testing.T) {
			testRealisticUsage(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Checks if the database supports the specified feature
// Skip the test if it is not supported
func requireFeature(t testing.TB, database db.DocDB, feature db.Feature) {
	if !database.SupportsFeature(feature) {
		t.Skip()
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, database db.DocDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	testID := "doc-1"
	testValue1 := []byte(`{"a":1}`)
	testValue2 := []byte(`{"a":2}`)

	database.Set(testID, testValue1)

	result, exists := database.Get(testID)
	if !exists {
		t.Errorf("Expected id %s to exist after Set", testID)
	}
	if !bytes.Equal(result, testValue1) {
		t.Errorf("Expected value %s, got %s", testValue1, result)
	}

	database.Set(testID, testValue2)

	result, exists = database.Get(testID)
	if !exists {
		t.Errorf("Expected id %s to exist after Set", testID)
	}
	if !bytes.Equal(result, testValue2) {
		t.Errorf("Expected value %s, got %s", testValue2, result)
	}

	if _, exists = database.Get("nonexistent-id"); exists {
		t.Errorf("Expected nonexistent id to return exists=false")
	}

	retrievedValue, _ := database.Get(testID)
	retrievedValue[0] = 'X'

	originalValue, _ := database.Get(testID)
	if bytes.Equal(retrievedValue, originalValue) {
		t.Errorf("Get should return a copy, not a reference to the stored value")
	}

	input := []byte(`{"b":1}`)
	database.Set("doc-2", input)
	input[0] = 'X'
	stored, _ := database.Get("doc-2")
	if stored[0] != '{' {
		t.Errorf("Set should copy the value, got %s", stored)
	}
}

func testDelete(t *testing.T, database db.DocDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureDelete)

	database.Set("doc", []byte("value"))
	database.Delete("doc")

	if _, exists := database.Get("doc"); exists {
		t.Errorf("Expected id to be gone after Delete")
	}

	// deleting a missing id is a no-op
	idx := database.WriteIdx()
	database.Delete("doc")
	database.Delete("never-existed")
	if database.WriteIdx() != idx {
		t.Errorf("Deleting missing ids should not advance the write index")
	}

	database.Set("doc", []byte("again"))
	if v, exists := database.Get("doc"); !exists || string(v) != "again" {
		t.Errorf("Expected id to be writable after Delete, got %q (%v)", v, exists)
	}
}

func testHas(t *testing.T, database db.DocDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureHas|db.FeatureDelete)

	if database.Has("doc") {
		t.Errorf("Expected Has to be false for a missing id")
	}
	database.Set("doc", nil)
	if !database.Has("doc") {
		t.Errorf("Expected Has to be true for an id with an empty value")
	}
	database.Delete("doc")
	if database.Has("doc") {
		t.Errorf("Expected Has to be false after Delete")
	}
}

func testRange(t *testing.T, database db.DocDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureRange|db.FeatureCount)

	want := make(map[string]string)
	for i := 0; i < 100; i++ {
		id := fmt.Sprintf("doc-%03d", i)
		want[id] = fmt.Sprintf("value-%d", i)
		database.Set(id, []byte(want[id]))
	}

	if n := database.Count(); n != len(want) {
		t.Errorf("Expected Count %d, got %d", len(want), n)
	}

	got := make(map[string]string)
	database.Range(func(id string, value []byte) bool {
		got[id] = string(value)
		return true
	})
	if len(got) != len(want) {
		t.Fatalf("Expected Range to visit %d ids, visited %d", len(want), len(got))
	}
	for id, v := range want {
		if got[id] != v {
			t.Errorf("Range returned %q for %s, expected %q", got[id], id, v)
		}
	}

	visited := 0
	database.Range(func(string, []byte) bool {
		visited++
		return visited < 10
	})
	if visited != 10 {
		t.Errorf("Expected Range to stop after 10 ids, visited %d", visited)
	}
}

func testInfo(t *testing.T, database db.DocDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet)

	database.Set("a", []byte("1234"))
	database.Set("b", []byte("5678"))

	info := database.GetInfo()
	if info.Entries != 2 {
		t.Errorf("Expected 2 entries in info, got %d", info.Entries)
	}
	if info.SizeBytes < 8 {
		t.Errorf("Expected size to cover at least the values, got %d", info.SizeBytes)
	}
	if info.DbType == "" {
		t.Errorf("Expected a db type in info")
	}
	for _, f := range info.SupportedFeatures {
		if !database.SupportsFeature(f) {
			t.Errorf("Info lists feature %s but SupportsFeature denies it", f)
		}
	}
	if database.WriteIdx() != 2 {
		t.Errorf("Expected write index 2, got %d", database.WriteIdx())
	}
}

func testEdgeCases(t *testing.T, database db.DocDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	ids := []string{"", "_design/users", "ä-ö-ü", "with space", "a/b/c"}
	for i, id := range ids {
		database.Set(id, []byte{byte(i)})
	}
	for i, id := range ids {
		v, ok := database.Get(id)
		if !ok || len(v) != 1 || v[0] != byte(i) {
			t.Errorf("Unexpected value for id %q: %v (%v)", id, v, ok)
		}
	}

	large := bytes.Repeat([]byte("x"), 1<<20)
	database.Set("large", large)
	if v, _ := database.Get("large"); !bytes.Equal(v, large) {
		t.Errorf("Large value was not stored correctly")
	}
}

func testCollisionHandling(t *testing.T, database db.DocDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureDelete)

	prefix := "collision-test-"
	numKeys := 1000

	for i := 0; i < numKeys; i++ {
		database.Set(fmt.Sprintf("%s%d", prefix, i), []byte(fmt.Sprintf("value-%d", i)))
	}

	for i := 0; i < numKeys; i++ {
		id := fmt.Sprintf("%s%d", prefix, i)
		expectedValue := []byte(fmt.Sprintf("value-%d", i))

		actualValue, exists := database.Get(id)
		if !exists {
			t.Errorf("Id %s not found", id)
			continue
		}
		if !bytes.Equal(actualValue, expectedValue) {
			t.Errorf("Value for id %s does not match: expected %s, got %s", id, expectedValue, actualValue)
		}
	}

	for i := 0; i < numKeys; i += 2 {
		database.Delete(fmt.Sprintf("%s%d", prefix, i))
	}

	for i := 0; i < numKeys; i++ {
		id := fmt.Sprintf("%s%d", prefix, i)
		_, exists := database.Get(id)
		if i%2 == 0 && exists {
			t.Errorf("Id %s should be deleted", id)
		} else if i%2 == 1 && !exists {
			t.Errorf("Id %s should still exist", id)
		}
	}
}

func testRealisticUsage(t *testing.T, database db.DocDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureDelete|db.FeatureRange)

	numWorkers := 8
	opsPerWorker := 1000

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func(workerId int) {
			defer wg.Done()
			for i := 0; i < opsPerWorker; i++ {
				// every worker owns its ids, hot ids are shared but only read
				id := fmt.Sprintf("w%d-doc-%d", workerId, i%100)
				switch i % 10 {
				case 0, 1, 2, 3, 4, 5, 6:
					database.Set(id, []byte(fmt.Sprintf("%d", i)))
				case 7, 8:
					database.Get(id)
					database.Get(fmt.Sprintf("hot-%d", i%5))
				case 9:
					database.Delete(id)
				}
			}
		}(w)
	}
	wg.Wait()

	var ids []string
	database.Range(func(id string, _ []byte) bool {
		ids = append(ids, id)
		return true
	})
	sort.Strings(ids)

	if len(ids) != database.Count() {
		t.Errorf("Range saw %d ids but Count reports %d", len(ids), database.Count())
	}
	for _, id := range ids {
		if _, ok := database.Get(id); !ok {
			t.Errorf("Consistency error: id %s listed by Range but not retrievable", id)
		}
	}
}
