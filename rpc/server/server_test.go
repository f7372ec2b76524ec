package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ValentinKolb/dCouch/lib/registry"
	"github.com/ValentinKolb/dCouch/rpc/common"
)

func newTestServer(t *testing.T) (*httptest.Server, *registry.Registry) {
	t.Helper()
	reg := registry.New(registry.LocalFactory(nil))
	s := NewServer(common.ServerConfig{LogLevel: "info"}, reg)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, reg
}

// do sends a request and decodes the JSON answer into a generic value.
func do(t *testing.T, ts *httptest.Server, method, path, body string, header ...string) (int, interface{}, http.Header) {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("invalid request: %v", err)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var decoded interface{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("invalid JSON answer %q: %v", raw, err)
		}
	} else {
		decoded = string(raw)
	}
	return resp.StatusCode, decoded, resp.Header
}

func field(t *testing.T, v interface{}, key string) interface{} {
	t.Helper()
	m, ok := v.(map[string]interface{})
	if !ok {
		t.Fatalf("expected object, got %T (%v)", v, v)
	}
	return m[key]
}

func TestServerInfo(t *testing.T) {
	ts, _ := newTestServer(t)

	status, body, header := do(t, ts, http.MethodGet, "/", "")
	if status != http.StatusOK || field(t, body, "couchdb") != "Welcome" || field(t, body, "version") != "0.10.1" {
		t.Errorf("unexpected info %d %v", status, body)
	}
	if header.Get(RequestIDHeader) == "" {
		t.Errorf("expected a request id header")
	}

	status, body, _ = do(t, ts, http.MethodGet, "/_uuids?count=3", "")
	if status != http.StatusOK || len(field(t, body, "uuids").([]interface{})) != 3 {
		t.Errorf("unexpected uuids %d %v", status, body)
	}

	status, body, _ = do(t, ts, http.MethodGet, "/_uuids?n=3", "")
	if status != http.StatusBadRequest || field(t, body, "error") != kindBadRequest {
		t.Errorf("expected bad request for unknown option, got %d %v", status, body)
	}
}

func TestDatabaseLifecycle(t *testing.T) {
	ts, reg := newTestServer(t)

	if status, _, _ := do(t, ts, http.MethodPut, "/people", ""); status != http.StatusCreated {
		t.Fatalf("create db: expected 201, got %d", status)
	}
	if _, err := reg.Get("people"); err != nil {
		t.Fatalf("database not registered: %v", err)
	}

	status, body, _ := do(t, ts, http.MethodGet, "/_all_dbs", "")
	if status != http.StatusOK || len(body.([]interface{})) != 1 {
		t.Errorf("unexpected all dbs %d %v", status, body)
	}

	status, body, _ = do(t, ts, http.MethodGet, "/people", "")
	if status != http.StatusOK || field(t, body, "db_name") != "people" || field(t, body, "disk_size") != float64(16473) {
		t.Errorf("unexpected db info %d %v", status, body)
	}

	if status, _, _ := do(t, ts, http.MethodDelete, "/people", ""); status != http.StatusOK {
		t.Errorf("delete db: expected 200, got %d", status)
	}
	if status, _, _ := do(t, ts, http.MethodDelete, "/people", ""); status != http.StatusOK {
		t.Errorf("delete unknown db: expected 200, got %d", status)
	}

	status, body, _ = do(t, ts, http.MethodGet, "/people/doc", "")
	if status != http.StatusNotFound || field(t, body, "reason") != "no_db_file" {
		t.Errorf("expected no_db_file, got %d %v", status, body)
	}
}

func TestDocumentLifecycle(t *testing.T) {
	ts, _ := newTestServer(t)
	do(t, ts, http.MethodPut, "/db", "")

	status, body, _ := do(t, ts, http.MethodPut, "/db/doc", `{"a":1}`)
	if status != http.StatusCreated || field(t, body, "ok") != true || field(t, body, "id") != "doc" {
		t.Fatalf("unexpected put %d %v", status, body)
	}
	rev := field(t, body, "rev").(string)

	status, body, _ = do(t, ts, http.MethodPut, "/db/doc", `{"a":2}`)
	if status != http.StatusConflict || field(t, body, "error") != "conflict" {
		t.Errorf("expected conflict, got %d %v", status, body)
	}

	status, body, _ = do(t, ts, http.MethodGet, "/db/doc?revs=true", "")
	if status != http.StatusOK || field(t, body, "_rev") != rev || field(t, body, "_revisions") == nil {
		t.Errorf("unexpected get %d %v", status, body)
	}

	status, body, _ = do(t, ts, http.MethodGet, "/db/doc?rev=other", "")
	if status != http.StatusNotFound {
		t.Errorf("expected not found for other rev, got %d %v", status, body)
	}

	status, body, _ = do(t, ts, http.MethodPut, "/db/broken", `[1]`)
	if status != http.StatusInternalServerError || field(t, body, "error") != "validation_failed" {
		t.Errorf("expected validation failure, got %d %v", status, body)
	}

	status, body, _ = do(t, ts, "COPY", "/db/doc", "", "Destination", "copy_1")
	if status != http.StatusCreated || field(t, body, "id") != "copy_1" {
		t.Errorf("unexpected copy %d %v", status, body)
	}

	status, body, _ = do(t, ts, http.MethodDelete, "/db/doc?rev="+rev, "")
	if status != http.StatusOK || field(t, body, "ok") != true {
		t.Errorf("unexpected delete %d %v", status, body)
	}

	status, body, _ = do(t, ts, http.MethodPost, "/db", `{"b":1}`)
	if status != http.StatusCreated || len(field(t, body, "id").(string)) != 32 {
		t.Errorf("unexpected post %d %v", status, body)
	}
}

func TestBulkAndAllDocs(t *testing.T) {
	ts, _ := newTestServer(t)
	do(t, ts, http.MethodPut, "/db", "")

	status, body, _ := do(t, ts, http.MethodPost, "/db/_bulk_docs", `{"docs":[{"_id":"a"},{"_id":"b"},{"_id":"a","_rev":"bad"}]}`)
	if status != http.StatusCreated {
		t.Fatalf("unexpected bulk status %d %v", status, body)
	}
	rows := body.([]interface{})
	if len(rows) != 3 || field(t, rows[2], "error") != "conflict" {
		t.Errorf("unexpected bulk rows %v", rows)
	}

	status, body, _ = do(t, ts, http.MethodGet, `/db/_all_docs?startkey="b"`, "")
	if status != http.StatusOK || field(t, body, "total_rows") != float64(2) || field(t, body, "offset") != float64(1) {
		t.Errorf("unexpected all docs %d %v", status, body)
	}

	status, body, _ = do(t, ts, http.MethodGet, "/db/_all_docs?key=a", "")
	if status != http.StatusBadRequest {
		t.Errorf("expected bad request, got %d %v", status, body)
	}

	status, body, _ = do(t, ts, http.MethodGet, "/db/_stats", "")
	if status != http.StatusOK || field(t, body, "documents") != float64(2) {
		t.Errorf("unexpected stats %d %v", status, body)
	}
}

func TestViews(t *testing.T) {
	ts, _ := newTestServer(t)
	do(t, ts, http.MethodPut, "/db", "")

	status, body, _ := do(t, ts, http.MethodPut, "/db/_design/user", `{"language":"javascript"}`)
	if status != http.StatusInternalServerError || field(t, body, "error") != "validation_failed" {
		t.Errorf("expected invalid design document, got %d %v", status, body)
	}

	do(t, ts, http.MethodPut, "/db/_design/user", `{"views":{
		"by_firstname":{"map":"function(doc){}"},
		"count_all":{"map":"function(doc){}"}
	}}`)
	do(t, ts, http.MethodPut, "/db/user_1", `{"ruby_class":"User","firstname":"Bert"}`)
	do(t, ts, http.MethodPut, "/db/user_2", `{"ruby_class":"User","firstname":"Alf"}`)

	status, body, _ = do(t, ts, http.MethodGet, "/db/_design/user", "")
	if status != http.StatusOK || field(t, body, "_id") != "_design/user" {
		t.Errorf("unexpected design document %d %v", status, body)
	}

	status, body, _ = do(t, ts, http.MethodGet, `/db/_design/user/_view/by_firstname?key="Bert"&include_docs=true`, "")
	if status != http.StatusOK {
		t.Fatalf("view failed: %d %v", status, body)
	}
	rows := field(t, body, "rows").([]interface{})
	if len(rows) != 1 || field(t, rows[0], "id") != "user_1" || field(t, rows[0], "key") != "Bert" || field(t, rows[0], "doc") == nil {
		t.Errorf("unexpected view rows %v", rows)
	}

	status, body, _ = do(t, ts, http.MethodGet, `/db/_design/user/_view/by_firstname?reduce=true&key="Bert"`, "")
	if status != http.StatusOK || field(t, body, "total_rows") != nil {
		t.Errorf("unexpected reduced view %d %v", status, body)
	}

	status, body, _ = do(t, ts, http.MethodGet, "/db/_design/user/_view/count_all", "")
	if status != http.StatusInternalServerError || field(t, body, "error") != kindInternal {
		t.Errorf("expected internal error for unsupported view, got %d %v", status, body)
	}

	status, body, _ = do(t, ts, http.MethodGet, "/db/_design/user/_view/by_lastname", "")
	if status != http.StatusNotFound {
		t.Errorf("expected not found for missing view, got %d %v", status, body)
	}

	status, body, _ = do(t, ts, http.MethodGet, "/db/_design/user/_view/by_firstname?group=true", "")
	if status != http.StatusBadRequest {
		t.Errorf("expected bad request for unknown option, got %d %v", status, body)
	}
}

func TestUnsupportedAndMetrics(t *testing.T) {
	ts, _ := newTestServer(t)

	status, body, _ := do(t, ts, http.MethodPatch, "/db/doc", "")
	if status != http.StatusBadRequest || field(t, body, "error") != kindBadRequest {
		t.Errorf("expected bad request, got %d %v", status, body)
	}

	status, body, _ = do(t, ts, http.MethodGet, "/_metrics", "")
	text, _ := body.(string)
	if status != http.StatusOK || !strings.Contains(text, "dcouch_http_requests_total") || !strings.Contains(text, "dcouch_databases") {
		t.Errorf("unexpected metrics %d %q", status, text)
	}
}

func TestTranslateError(t *testing.T) {
	status, body := translateError(io.ErrUnexpectedEOF)
	if status != http.StatusInternalServerError || body.Error != kindInternal {
		t.Errorf("unexpected translation %d %+v", status, body)
	}
}
