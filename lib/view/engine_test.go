package view

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/ValentinKolb/dCouch/lib/store"
)

// snapshot decodes a JSON object of id -> document and fills in _id and _rev.
func snapshot(t *testing.T, raw string) map[string]store.Document {
	t.Helper()
	var docs map[string]store.Document
	if err := json.Unmarshal([]byte(raw), &docs); err != nil {
		t.Fatalf("invalid fixture: %v", err)
	}
	for id, doc := range docs {
		doc["_id"] = id
		doc["_rev"] = "rev-" + id
	}
	return docs
}

const usersAndGroups = `{
	"_design/user": {"views": {
		"all_documents": {"map": "function(item){emit(item)}"},
		"by_firstname": {"map": "function(doc){}"},
		"by_firstname_without_deleted": {"map": "function(doc){}"},
		"by_firstname_and_lastname": {"map": "function(doc){}"},
		"by_lastname": {"map": "function(doc){ if(!doc.deleted_at) { /* \"soft\" deleted */ emit(doc.lastname) } }"},
		"by_lastname_with_deleted": {"map": "function(doc){ /* \"soft\" deleted */ }"},
		"by_age": {"map": "function(doc){}"},
		"association_user_belongs_to_project": {"map": "function(doc){}"},
		"association_user_has_and_belongs_to_many_groups": {"map": "function(doc){}"},
		"count_all": {"map": "function(doc){}"}
	}},
	"_design/group": {"views": {
		"all_documents": {"map": "function(item){emit(item)}"},
		"association_group_has_and_belongs_to_many_users": {"map": "function(doc){}"}
	}},
	"user_1": {"ruby_class": "User", "firstname": "Bert", "lastname": "B", "age": 30, "project_id": "project_1", "created_at": "2024-01-02", "group_ids": ["group_1", "group_2"]},
	"user_2": {"ruby_class": "User", "firstname": "Alf", "lastname": "A", "age": 25, "project_id": "project_1", "created_at": "2024-01-01", "group_ids": ["group_1"]},
	"user_3": {"ruby_class": "User", "firstname": "Bert", "lastname": "C", "age": 40, "deleted_at": "2024-02-01"},
	"user_4": {"ruby_class": "User", "lastname": "D"},
	"group_1": {"ruby_class": "Group", "name": "A"},
	"group_2": {"ruby_class": "Group", "name": "B"},
	"project_1": {"ruby_class": "Project", "name": "P"}
}`

func ids(res *store.ViewResult) []string {
	out := []string{}
	for _, row := range res.Rows {
		out = append(out, row.ID)
	}
	return out
}

func runView(t *testing.T, docs map[string]store.Document, design, name string, opts store.ViewOptions) *store.ViewResult {
	t.Helper()
	res, err := New(DefaultConfig()).Run(docs, design, name, opts)
	if err != nil {
		t.Fatalf("view %s/%s failed: %v", design, name, err)
	}
	return res
}

func TestViews(t *testing.T) {
	docs := snapshot(t, usersAndGroups)

	tests := []struct {
		name   string
		design string
		view   string
		opts   store.ViewOptions
		want   []string
		total  int
	}{
		{"all by class", "user", "all_documents", store.ViewOptions{}, []string{"user_1", "user_2", "user_3", "user_4"}, 4},
		{"all by class other design", "group", "all_documents", store.ViewOptions{}, []string{"group_1", "group_2"}, 2},
		{"key", "user", "by_firstname", store.ViewOptions{HasKey: true, Key: "Bert"}, []string{"user_1", "user_3"}, 2},
		{"null key", "user", "by_firstname", store.ViewOptions{HasKey: true, Key: nil}, []string{"user_4"}, 1},
		{"no key nulls first", "user", "by_firstname", store.ViewOptions{}, []string{"user_4", "user_2", "user_1", "user_3"}, 4},
		{"descending nulls last", "user", "by_firstname", store.ViewOptions{Descending: true}, []string{"user_3", "user_1", "user_2", "user_4"}, 4},
		{"composite key", "user", "by_firstname_and_lastname", store.ViewOptions{HasKey: true, Key: []interface{}{"Bert", "C"}}, []string{"user_3"}, 1},
		{"range", "user", "by_age", store.ViewOptions{StartKey: float64(26), EndKey: float64(40)}, []string{"user_1", "user_3"}, 2},
		{"open range", "user", "by_age", store.ViewOptions{StartKey: float64(26)}, []string{"user_1", "user_3"}, 2},
		{"descending range", "user", "by_age", store.ViewOptions{StartKey: float64(40), EndKey: float64(26), Descending: true}, []string{"user_3", "user_1"}, 2},
		{"suffix hides deleted", "user", "by_firstname_without_deleted", store.ViewOptions{HasKey: true, Key: "Bert"}, []string{"user_1"}, 1},
		{"option hides deleted", "user", "by_firstname", store.ViewOptions{HasKey: true, Key: "Bert", WithoutDeleted: true}, []string{"user_1"}, 1},
		{"marker hides deleted", "user", "by_lastname", store.ViewOptions{}, []string{"user_2", "user_1", "user_4"}, 3},
		{"suffix beats marker", "user", "by_lastname_with_deleted", store.ViewOptions{}, []string{"user_2", "user_1", "user_3", "user_4"}, 4},
		{"belongs to", "user", "association_user_belongs_to_project", store.ViewOptions{HasKey: true, Key: "project_1"}, []string{"user_2", "user_1"}, 2},
		{"habtm not storing keys", "user", "association_user_has_and_belongs_to_many_groups", store.ViewOptions{HasKey: true, Key: "group_1"}, []string{"user_2", "user_1"}, 2},
		{"habtm storing keys", "group", "association_group_has_and_belongs_to_many_users", store.ViewOptions{HasKey: true, Key: "user_1"}, []string{"group_1", "group_2"}, 2},
		{"limit", "user", "by_firstname", store.ViewOptions{HasKey: true, Key: "Bert", Limit: 1}, []string{"user_1"}, 2},
		{"docid range", "user", "by_firstname", store.ViewOptions{StartKeyDocID: "user_2"}, []string{"user_4", "user_2", "user_3"}, 4},
		{"docid range both", "user", "all_documents", store.ViewOptions{StartKeyDocID: "user_2", EndKeyDocID: "user_3"}, []string{"user_2", "user_3"}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := runView(t, docs, tt.design, tt.view, tt.opts)
			if got := ids(res); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected ids %v, got %v", tt.want, got)
			}
			if res.TotalRows != tt.total {
				t.Errorf("Expected total_rows %d, got %d", tt.total, res.TotalRows)
			}
			if res.Offset != 0 {
				t.Errorf("Expected offset 0 for named views, got %d", res.Offset)
			}
		})
	}
}

func TestViewRowShape(t *testing.T) {
	docs := snapshot(t, usersAndGroups)

	res := runView(t, docs, "user", "by_firstname", store.ViewOptions{HasKey: true, Key: "Alf", IncludeDocs: true})
	if len(res.Rows) != 1 {
		t.Fatalf("Expected one row, got %d", len(res.Rows))
	}
	row := res.Rows[0]
	if row.Key != "Alf" || row.Value != nil || row.Ranged {
		t.Errorf("Unexpected row %+v", row)
	}
	if row.Doc["firstname"] != "Alf" || row.Doc.ID() != "user_2" {
		t.Errorf("Expected the document to be included, got %v", row.Doc)
	}

	res = runView(t, docs, "user", "by_age", store.ViewOptions{StartKey: float64(40), EndKey: float64(26), Descending: true, StartKeyDocID: "user_1"})
	row = res.Rows[0]
	if !row.Ranged || row.StartKey != float64(26) || row.EndKey != float64(40) || row.StartKeyDocID != "user_1" {
		t.Errorf("Expected swapped range description, got %+v", row)
	}
	if row.Doc != nil {
		t.Errorf("Expected no document without include_docs")
	}

	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var generic map[string]interface{}
	_ = json.Unmarshal(data, &generic)
	first := generic["rows"].([]interface{})[0].(map[string]interface{})
	if _, ok := first["key"]; ok {
		t.Errorf("Range rows must not carry key: %s", data)
	}
	if first["startkey_docid"] != "user_1" || first["value"] != nil {
		t.Errorf("Unexpected rendered row: %s", data)
	}
}

func TestReduce(t *testing.T) {
	docs := snapshot(t, usersAndGroups)

	res := runView(t, docs, "user", "by_firstname", store.ViewOptions{HasKey: true, Key: "Bert", Reduce: true})
	if !res.Reduced || len(res.ReducedRows) != 1 {
		t.Fatalf("Expected a single reduced row, got %+v", res)
	}
	if res.ReducedRows[0].Key != "Bert" || res.ReducedRows[0].Value != 2 {
		t.Errorf("Unexpected reduced row %+v", res.ReducedRows[0])
	}

	data, _ := json.Marshal(res)
	if string(data) != `{"rows":[{"key":"Bert","value":2}]}` {
		t.Errorf("Unexpected reduced rendering %s", data)
	}

	res = runView(t, docs, "user", "all_documents", store.ViewOptions{Reduce: true, Limit: 3})
	if res.ReducedRows[0].Value != 3 || res.ReducedRows[0].Key != nil {
		t.Errorf("Expected the count after limit, got %+v", res.ReducedRows[0])
	}
}

func TestViewErrors(t *testing.T) {
	docs := snapshot(t, usersAndGroups)
	engine := New(DefaultConfig())

	if _, err := engine.Run(docs, "missing", "all_documents", store.ViewOptions{}); !store.IsNotFound(err) {
		t.Errorf("Expected not found for a missing design document, got %v", err)
	}
	if _, err := engine.Run(docs, "user", "by_nothing", store.ViewOptions{}); !store.IsNotFound(err) {
		t.Errorf("Expected not found for an undeclared view, got %v", err)
	}

	_, err := engine.Run(docs, "user", "count_all", store.ViewOptions{})
	var unknown *UnknownViewError
	if !errors.As(err, &unknown) {
		t.Errorf("Expected UnknownViewError, got %v", err)
	}
	if _, ok := store.AsError(err); ok {
		t.Errorf("Unknown views must not be domain errors")
	}
}

func TestPlanCache(t *testing.T) {
	docs := snapshot(t, usersAndGroups)
	engine := New(DefaultConfig())

	first, err := engine.Prepare(docs, "user", "by_firstname")
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if engine.plans.Size() != 1 {
		t.Errorf("Expected the plan to be cached")
	}
	second, _ := engine.Prepare(docs, "user", "by_firstname")
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Cached plan differs: %+v vs %+v", first, second)
	}

	// a changed map source is a different view definition
	docs["_design/user"]["views"].(map[string]interface{})["by_firstname"] = map[string]interface{}{"map": `"soft" deleted`}
	third, _ := engine.Prepare(docs, "user", "by_firstname")
	if third.Deleted != DeletedHide {
		t.Errorf("Expected the new map source to be parsed, got %s", third.Deleted)
	}
}

func TestCustomKindField(t *testing.T) {
	docs := snapshot(t, `{
		"_design/user": {"views": {"all_documents": {"map": ""}}},
		"a": {"type": "users"},
		"b": {"type": "Group"},
		"c": {"ruby_class": "User"}
	}`)
	res, err := New(Config{KindField: "type"}).Run(docs, "user", "all_documents", store.ViewOptions{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := ids(res); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("Expected only a, got %v", got)
	}
}

func TestRunAll(t *testing.T) {
	docs := snapshot(t, `{"C": {"a": "b"}, "B": {"a": "b"}, "A": {"a": "b"}, "D": {"a": "b"}}`)
	engine := New(DefaultConfig())

	rowIDs := func(res *store.AllDocsResult) []string {
		out := []string{}
		for _, row := range res.Rows {
			out = append(out, row.ID)
		}
		return out
	}

	tests := []struct {
		name   string
		opts   store.AllDocsOptions
		want   []string
		offset int
	}{
		{"ascending", store.AllDocsOptions{}, []string{"A", "B", "C", "D"}, 0},
		{"descending", store.AllDocsOptions{Descending: true}, []string{"D", "C", "B", "A"}, 0},
		{"startkey", store.AllDocsOptions{StartKey: "B"}, []string{"B", "C", "D"}, 1},
		{"quoted startkey", store.AllDocsOptions{StartKey: `"B"`}, []string{"B", "C", "D"}, 1},
		{"endkey", store.AllDocsOptions{EndKey: "C"}, []string{"A", "B", "C"}, 0},
		{"between keys", store.AllDocsOptions{StartKey: "AA", EndKey: "C"}, []string{"B", "C"}, 1},
		{"limit", store.AllDocsOptions{Limit: 2}, []string{"A", "B"}, 0},
		{"descending range", store.AllDocsOptions{Descending: true, StartKey: "C香", EndKey: "B", Limit: 2}, []string{"C", "B"}, 1},
		{"startkey after all", store.AllDocsOptions{StartKey: "E"}, []string{}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := engine.RunAll(docs, tt.opts)
			if got := rowIDs(res); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
			if res.Offset != tt.offset {
				t.Errorf("Expected offset %d, got %d", tt.offset, res.Offset)
			}
			if res.TotalRows != 4 {
				t.Errorf("Expected total_rows 4, got %d", res.TotalRows)
			}
		})
	}

	res := engine.RunAll(docs, store.AllDocsOptions{IncludeDocs: true, Limit: 1})
	value := res.Rows[0].Value
	if value["rev"] != "rev-A" || value["_rev"] != "rev-A" || value["a"] != "b" || value["_id"] != "A" {
		t.Errorf("Expected the document merged with rev, got %v", value)
	}
	if _, ok := docs["A"]["rev"]; ok {
		t.Errorf("RunAll must not modify the snapshot")
	}

	res = engine.RunAll(docs, store.AllDocsOptions{Limit: 1})
	if !reflect.DeepEqual(res.Rows[0].Value, map[string]interface{}{"rev": "rev-A"}) || res.Rows[0].Key != "A" {
		t.Errorf("Unexpected row %+v", res.Rows[0])
	}
}
