package lstore

import (
	"fmt"
	"reflect"
	"regexp"
	"sync"
	"testing"

	"github.com/ValentinKolb/dCouch/lib/db"
	"github.com/ValentinKolb/dCouch/lib/db/engines/maple"
	"github.com/ValentinKolb/dCouch/lib/store"
	"github.com/ValentinKolb/dCouch/lib/store/codec"
)

var tokenPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

func newStore(t *testing.T, c codec.ICodec) store.IStore {
	t.Helper()
	opts := DefaultOptions()
	if c != nil {
		opts.Codec = c
	}
	s := NewLocalStore(func() db.DocDB { return maple.NewMapleDB(nil) }, opts)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustPut(t *testing.T, s store.IStore, id, payload string) store.WriteResult {
	t.Helper()
	res, err := s.Put(id, []byte(payload))
	if err != nil {
		t.Fatalf("put %s failed: %v", id, err)
	}
	return res
}

// forEachCodec runs fn once per available document codec.
func forEachCodec(t *testing.T, fn func(t *testing.T, s store.IStore)) {
	for _, name := range []string{codec.NameJSON, codec.NameMsgPack} {
		t.Run(name, func(t *testing.T) {
			c, err := codec.New(name)
			if err != nil {
				t.Fatalf("codec %s: %v", name, err)
			}
			fn(t, newStore(t, c))
		})
	}
}

// --------------------------------------------------------------------------
// Writes
// --------------------------------------------------------------------------

func TestInsert(t *testing.T) {
	forEachCodec(t, func(t *testing.T, s store.IStore) {
		res := mustPut(t, s, "", `{"_id":"ignored","_rev":"ignored","name":"Ann"}`)
		if !res.Ok || !tokenPattern.MatchString(res.ID) || !tokenPattern.MatchString(res.Rev) {
			t.Fatalf("unexpected write result %+v", res)
		}

		doc, err := s.Get(res.ID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		want := store.Document{"_id": res.ID, "_rev": res.Rev, "name": "Ann"}
		if !reflect.DeepEqual(doc, want) {
			t.Errorf("expected %v, got %v", want, doc)
		}

		named := mustPut(t, s, "ann", `{"_rev":"stale","age":3}`)
		if named.ID != "ann" {
			t.Errorf("expected id ann, got %s", named.ID)
		}
		doc, _ = s.Get("ann")
		if doc["age"] != float64(3) {
			t.Errorf("expected numbers to decode as float64, got %T", doc["age"])
		}
	})
}

func TestUpdate(t *testing.T) {
	s := newStore(t, nil)
	first := mustPut(t, s, "doc", `{"a":1}`)

	if _, err := s.Put("doc", []byte(`{"a":2}`)); !store.IsConflict(err) {
		t.Errorf("expected conflict without rev, got %v", err)
	}
	if _, err := s.Put("doc", []byte(`{"_rev":"nope","a":2}`)); !store.IsConflict(err) {
		t.Errorf("expected conflict with wrong rev, got %v", err)
	}

	second, err := s.Put("doc", []byte(fmt.Sprintf(`{"_rev":%q,"b":2}`, first.Rev)))
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if second.Rev == first.Rev {
		t.Errorf("expected a new revision")
	}

	doc, _ := s.Get("doc")
	if _, ok := doc["a"]; ok {
		t.Errorf("expected update to replace the body, got %v", doc)
	}
	if doc["b"] != float64(2) || doc.Rev() != second.Rev {
		t.Errorf("unexpected document after update: %v", doc)
	}

	if _, err := s.Put("doc", []byte(fmt.Sprintf(`{"_rev":%q}`, first.Rev))); !store.IsConflict(err) {
		t.Errorf("expected conflict with superseded rev, got %v", err)
	}
	if n := s.Stats().Conflicts; n != 3 {
		t.Errorf("expected 3 conflicts, got %d", n)
	}
}

func TestInvalidPayloads(t *testing.T) {
	s := newStore(t, nil)
	for _, payload := range []string{`[1,2]`, `"text"`, `null`, `{broken`, ``} {
		if _, err := s.Put("x", []byte(payload)); !store.IsValidationFailed(err) {
			t.Errorf("payload %q: expected validation error, got %v", payload, err)
		}
	}
	if s.Exists("x") {
		t.Errorf("invalid payloads must not be stored")
	}
}

func TestDesignDocumentValidation(t *testing.T) {
	s := newStore(t, nil)
	if _, err := s.Put("_design/user", []byte(`{"language":"javascript"}`)); !store.IsValidationFailed(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if s.Exists("_design/user") {
		t.Errorf("rejected design document must not be stored")
	}
	if _, err := s.Put("_design/user", []byte(`{"views":{}}`)); err != nil {
		t.Errorf("expected valid design document, got %v", err)
	}
}

func TestPutDocumentDoesNotAlias(t *testing.T) {
	s := newStore(t, nil)
	in := store.Document{"tags": []interface{}{"a"}}
	res, err := s.PutDocument("d", in)
	if err != nil {
		t.Fatalf("put document failed: %v", err)
	}
	if _, ok := in["_rev"]; ok {
		t.Errorf("caller's document was modified: %v", in)
	}
	in["tags"].([]interface{})[0] = "changed"

	doc, _ := s.Get(res.ID)
	if doc["tags"].([]interface{})[0] != "a" {
		t.Errorf("stored document aliases the caller's document")
	}
}

func TestDelete(t *testing.T) {
	s := newStore(t, nil)
	res := mustPut(t, s, "doc", `{}`)

	if err := s.Delete("missing", res.Rev); !store.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
	if err := s.Delete("doc", "wrong"); !store.IsConflict(err) {
		t.Errorf("expected conflict, got %v", err)
	}
	if err := s.Delete("doc", res.Rev); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if s.Exists("doc") {
		t.Errorf("document still exists after delete")
	}
	if _, err := s.Get("doc"); !store.IsNotFound(err) {
		t.Errorf("expected not found after delete, got %v", err)
	}
}

func TestCopy(t *testing.T) {
	s := newStore(t, nil)
	mustPut(t, s, "src", `{"name":"Ann"}`)

	res, err := s.Copy("src", "dst", "")
	if err != nil {
		t.Fatalf("copy failed: %v", err)
	}
	doc, _ := s.Get("dst")
	if doc["name"] != "Ann" || doc.ID() != "dst" || doc.Rev() != res.Rev {
		t.Errorf("unexpected copy %v", doc)
	}

	if _, err := s.Copy("src", "dst", ""); !store.IsConflict(err) {
		t.Errorf("expected conflict copying onto existing doc without rev, got %v", err)
	}
	if _, err := s.Copy("src", "dst", res.Rev); err != nil {
		t.Errorf("expected overwrite with current rev, got %v", err)
	}
	if _, err := s.Copy("missing", "other", ""); !store.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

// --------------------------------------------------------------------------
// Reads
// --------------------------------------------------------------------------

func TestLoad(t *testing.T) {
	s := newStore(t, nil)
	res := mustPut(t, s, "doc", `{"a":1}`)

	if _, err := s.Load("doc", store.LoadOptions{Rev: "other"}); !store.IsNotFound(err) {
		t.Errorf("expected not found for foreign rev, got %v", err)
	}

	doc, err := s.Load("doc", store.LoadOptions{Rev: res.Rev, Revs: true, RevsInfo: true})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	revisions := map[string]interface{}{"start": 1, "ids": []interface{}{res.Rev}}
	if !reflect.DeepEqual(doc["_revisions"], revisions) {
		t.Errorf("expected _revisions %v, got %v", revisions, doc["_revisions"])
	}
	info := []interface{}{map[string]interface{}{"rev": res.Rev, "status": "disk"}}
	if !reflect.DeepEqual(doc["_revs_info"], info) {
		t.Errorf("expected _revs_info %v, got %v", info, doc["_revs_info"])
	}

	plain, _ := s.Get("doc")
	if _, ok := plain["_revisions"]; ok {
		t.Errorf("synthesized fields must not be stored")
	}
}

func TestAllDocuments(t *testing.T) {
	forEachCodec(t, func(t *testing.T, s store.IStore) {
		for _, id := range []string{"b", "a", "c"} {
			mustPut(t, s, id, `{"v":true}`)
		}

		res, err := s.AllDocuments(store.AllDocsOptions{StartKey: `"b"`})
		if err != nil {
			t.Fatalf("all documents failed: %v", err)
		}
		if res.TotalRows != 3 || res.Offset != 1 || len(res.Rows) != 2 || res.Rows[0].ID != "b" {
			t.Errorf("unexpected listing %+v", res)
		}
		if _, ok := res.Rows[0].Value["rev"]; !ok {
			t.Errorf("expected rev in row value, got %v", res.Rows[0].Value)
		}

		res, _ = s.AllDocuments(store.AllDocsOptions{Descending: true, Limit: 1, IncludeDocs: true})
		if len(res.Rows) != 1 || res.Rows[0].ID != "c" || res.Rows[0].Value["v"] != true {
			t.Errorf("unexpected descending listing %+v", res)
		}
	})
}

func TestView(t *testing.T) {
	forEachCodec(t, func(t *testing.T, s store.IStore) {
		mustPut(t, s, "_design/user", `{"views":{"by_name":{"map":"function(doc){}"}}}`)
		mustPut(t, s, "u1", `{"ruby_class":"User","name":"Bob"}`)
		mustPut(t, s, "u2", `{"ruby_class":"User","name":"Ann"}`)
		mustPut(t, s, "g1", `{"ruby_class":"Group","name":"Ann"}`)

		res, err := s.View("user", "by_name", store.ViewOptions{HasKey: true, Key: "Ann"})
		if err != nil {
			t.Fatalf("view failed: %v", err)
		}
		if res.TotalRows != 1 || len(res.Rows) != 1 || res.Rows[0].ID != "u2" {
			t.Errorf("unexpected view result %+v", res)
		}

		// a write invalidates the cached snapshot
		mustPut(t, s, "u3", `{"ruby_class":"User","name":"Ann"}`)
		res, _ = s.View("user", "by_name", store.ViewOptions{HasKey: true, Key: "Ann"})
		if len(res.Rows) != 2 {
			t.Errorf("expected 2 rows after insert, got %+v", res.Rows)
		}

		if _, err := s.View("user", "by_missing", store.ViewOptions{}); !store.IsNotFound(err) {
			t.Errorf("expected not found for missing view, got %v", err)
		}
		if _, err := s.View("nobody", "by_name", store.ViewOptions{}); !store.IsNotFound(err) {
			t.Errorf("expected not found for missing design document, got %v", err)
		}
	})
}

func TestSnapshotIsolation(t *testing.T) {
	s := newStore(t, nil)
	mustPut(t, s, "doc", `{"list":[1]}`)

	snap := s.Snapshot()
	snap["doc"]["list"].([]interface{})[0] = "changed"
	delete(snap, "doc")

	again := s.Snapshot()
	if again["doc"]["list"].([]interface{})[0] != float64(1) {
		t.Errorf("snapshot mutation leaked into the store")
	}
}

// --------------------------------------------------------------------------
// Bulk
// --------------------------------------------------------------------------

func TestBulk(t *testing.T) {
	s := newStore(t, nil)
	existing := mustPut(t, s, "gone", `{}`)

	payload := fmt.Sprintf(`{"docs":[
		{"_id":"new","a":1},
		{"_id":"gone","_rev":%q,"_deleted":true},
		{"_id":"conflict"},
		{"_id":"conflict","_rev":"bad"},
		{"b":2},
		42
	]}`, existing.Rev)

	results, err := s.Bulk([]byte(payload))
	if err != nil {
		t.Fatalf("bulk failed: %v", err)
	}
	if len(results) != 6 {
		t.Fatalf("expected 6 results, got %d", len(results))
	}

	if results[0].ID != "new" || results[0].Rev == "" || results[0].Error != "" {
		t.Errorf("unexpected insert result %+v", results[0])
	}
	if results[1] != (store.BulkResult{ID: "gone", Rev: existing.Rev}) {
		t.Errorf("unexpected delete result %+v", results[1])
	}
	if s.Exists("gone") {
		t.Errorf("bulk delete did not remove the document")
	}
	if results[2].Error != "" {
		t.Errorf("unexpected error %+v", results[2])
	}
	if results[3].ID != "conflict" || results[3].Error != string(store.KindConflict) || results[3].Reason == "" {
		t.Errorf("expected conflict row, got %+v", results[3])
	}
	if !tokenPattern.MatchString(results[4].ID) {
		t.Errorf("expected minted id, got %+v", results[4])
	}
	if results[5].Error != string(store.KindValidationFailed) {
		t.Errorf("expected validation row for non-object item, got %+v", results[5])
	}
	if n := s.Count(); n != 3 {
		t.Errorf("expected 3 documents, got %d", n)
	}
}

func TestBulkRejectsPayload(t *testing.T) {
	s := newStore(t, nil)
	for _, payload := range []string{`{}`, `{"docs":{}}`, `[]`, `nope`} {
		if _, err := s.Bulk([]byte(payload)); !store.IsValidationFailed(err) {
			t.Errorf("payload %q: expected validation error, got %v", payload, err)
		}
	}
}

// --------------------------------------------------------------------------
// Concurrency and statistics
// --------------------------------------------------------------------------

// Exactly one of many writers presenting the same revision wins.
func TestConcurrentUpdates(t *testing.T) {
	s := newStore(t, nil)
	base := mustPut(t, s, "doc", `{"n":0}`)

	const writers = 32
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func(i int) {
			defer wg.Done()
			_, err := s.PutDocument("doc", store.Document{"_rev": base.Rev, "n": i})
			if err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			} else if !store.IsConflict(err) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if winners != 1 {
		t.Errorf("expected exactly one successful update, got %d", winners)
	}
}

func TestStats(t *testing.T) {
	s := newStore(t, codec.NewMsgPackCodec())
	res := mustPut(t, s, "a", `{"x":"1234567890"}`)
	mustPut(t, s, "b", `{}`)
	_, _ = s.Get("a")
	_ = s.Delete("a", res.Rev)
	_, _ = s.View("x", "by_y", store.ViewOptions{})

	st := s.Stats()
	if st.Documents != 1 || st.Writes != 2 || st.Reads != 1 || st.Deletes != 1 || st.ViewQueries != 1 {
		t.Errorf("unexpected stats %+v", st)
	}
	if st.Codec != codec.NameMsgPack {
		t.Errorf("expected codec %s, got %s", codec.NameMsgPack, st.Codec)
	}
	if st.DocSizeMax <= 0 || st.DocSizeMean <= 0 {
		t.Errorf("expected document sizes to be tracked, got %+v", st)
	}
	if st.DatabaseInfo.DbType != db.ImplMaple || st.DatabaseInfo.Entries != 1 {
		t.Errorf("unexpected database info %+v", st.DatabaseInfo)
	}
}
