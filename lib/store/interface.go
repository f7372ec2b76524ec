package store

import (
	"encoding/json"
	"strings"

	"github.com/ValentinKolb/dCouch/lib/db"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// DBFactory is a function type that creates a new db used by the store.
// This is used to abstract the creation of the db from the store implementation.
type DBFactory func() db.DocDB

// IStore is the interface of one named document database.
// Read operations return the requested data along with an error (nil on success).
// Domain failures are always returned as *Error. Any other error type signals a
// programming error on the caller side (e.g. an unknown view shape).
type IStore interface {
	// Exists reports whether a document with the id is stored.
	Exists(id string) (ok bool)
	// Get returns the stored document or a not found error.
	Get(id string) (doc Document, err error)
	// Load returns the stored document, optionally validated against a revision
	// and augmented with synthesized revision history or info.
	Load(id string, opts LoadOptions) (doc Document, err error)
	// Put stores a JSON object payload under id. An empty id mints a fresh one.
	// Inserts discard incoming _id and _rev, updates require a matching _rev.
	Put(id string, payload []byte) (res WriteResult, err error)
	// PutDocument is Put for an already decoded document.
	PutDocument(id string, doc Document) (res WriteResult, err error)
	// Delete removes the document if rev matches its current revision.
	Delete(id string, rev string) (err error)
	// Copy stores the source document under dst. dstRev is forced as the incoming
	// revision when given, so an existing destination can be overwritten.
	Copy(src, dst string, dstRev string) (res WriteResult, err error)
	// Bulk applies {"docs": [...]} item by item and reports per-item results.
	Bulk(payload []byte) (res []BulkResult, err error)
	// Count returns the number of stored documents including design documents.
	Count() (n int)
	// AllDocuments lists every document ordered by id.
	AllDocuments(opts AllDocsOptions) (res *AllDocsResult, err error)
	// View runs the named view of the design document _design/<design>.
	View(design, name string, opts ViewOptions) (res *ViewResult, err error)
	// Snapshot returns every stored document decoded. The documents are owned by the caller.
	Snapshot() (docs map[string]Document)
	// Stats returns operational counters of the store.
	Stats() (stats Stats)
	// Close releases the underlying db.
	Close() (err error)
}

// --------------------------------------------------------------------------
// Documents
// --------------------------------------------------------------------------

const (
	FieldID      = "_id"
	FieldRev     = "_rev"
	FieldDeleted = "_deleted"

	DesignPrefix = "_design/"
)

// Document is a decoded JSON object. Values are the types produced by
// encoding/json when decoding into interface{} (nil, bool, float64, string,
// []interface{} and map[string]interface{}).
type Document map[string]interface{}

// ID returns the _id of the document or "" if it is missing or not a string.
func (d Document) ID() string {
	s, _ := d[FieldID].(string)
	return s
}

// Rev returns the _rev of the document or "" if it is missing or not a string.
func (d Document) Rev() string {
	s, _ := d[FieldRev].(string)
	return s
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return cloneValue(map[string]interface{}(d)).(map[string]interface{})
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, e := range t {
			m[k] = cloneValue(e)
		}
		return m
	case Document:
		return cloneValue(map[string]interface{}(t))
	case []interface{}:
		s := make([]interface{}, len(t))
		for i, e := range t {
			s[i] = cloneValue(e)
		}
		return s
	default:
		return v
	}
}

// IsDesignID reports whether id names a design document (_design/<name>).
func IsDesignID(id string) bool {
	name, ok := strings.CutPrefix(id, DesignPrefix)
	if !ok || name == "" {
		return false
	}
	for _, r := range name {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r == '-') {
			return false
		}
	}
	return true
}

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

// LoadOptions controls Load.
type LoadOptions struct {
	Rev      string // expected revision ("" = any)
	Revs     bool   // attach _revisions
	RevsInfo bool   // attach _revs_info
}

// AllDocsOptions controls AllDocuments. Empty keys mean no bound.
type AllDocsOptions struct {
	Descending  bool
	StartKey    string
	EndKey      string
	Limit       int // 0 = unlimited
	IncludeDocs bool
}

// ViewOptions controls View. Key values are decoded JSON values.
type ViewOptions struct {
	Reduce bool
	Limit  int // 0 = unlimited

	// HasKey is set when a key was supplied, even if it decoded to null.
	HasKey bool
	Key    interface{}

	StartKey      interface{}
	EndKey        interface{}
	StartKeyDocID string
	EndKeyDocID   string

	Descending  bool
	IncludeDocs bool

	// WithoutDeleted enables soft-delete filtering for views whose name and map
	// source do not decide it themselves.
	WithoutDeleted bool
}

// --------------------------------------------------------------------------
// Results
// --------------------------------------------------------------------------

// WriteResult is the answer to a successful write.
type WriteResult struct {
	Ok  bool   `json:"ok"`
	ID  string `json:"id"`
	Rev string `json:"rev"`
}

// BulkResult is the outcome of one bulk item. Either Rev or Error/Reason is set.
type BulkResult struct {
	ID     string `json:"id"`
	Rev    string `json:"rev,omitempty"`
	Error  string `json:"error,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// AllDocsRow is one row of an all documents listing.
type AllDocsRow struct {
	ID    string                 `json:"id"`
	Key   string                 `json:"key"`
	Value map[string]interface{} `json:"value"`
}

type AllDocsResult struct {
	TotalRows int          `json:"total_rows"`
	Offset    int          `json:"offset"`
	Rows      []AllDocsRow `json:"rows"`
}

// ViewRow is one row of a view result. Which key fields are present depends on
// the query: Key for plain queries, StartKey/EndKey for range queries.
type ViewRow struct {
	ID            string
	Key           interface{}
	Ranged        bool
	StartKey      interface{}
	EndKey        interface{}
	StartKeyDocID string
	EndKeyDocID   string
	Value         interface{}
	Doc           Document
}

// MarshalJSON renders only the key description fields that apply to the row.
func (r ViewRow) MarshalJSON() ([]byte, error) {
	m := map[string]interface{}{
		"id":    r.ID,
		"value": r.Value,
	}
	if r.Ranged {
		m["startkey"] = r.StartKey
		m["endkey"] = r.EndKey
	} else {
		m["key"] = r.Key
	}
	if r.StartKeyDocID != "" {
		m["startkey_docid"] = r.StartKeyDocID
	}
	if r.EndKeyDocID != "" {
		m["endkey_docid"] = r.EndKeyDocID
	}
	if r.Doc != nil {
		m["doc"] = r.Doc
	}
	return json.Marshal(m)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (r *ViewRow) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID            string          `json:"id"`
		Key           interface{}     `json:"key"`
		StartKey      json.RawMessage `json:"startkey"`
		EndKey        interface{}     `json:"endkey"`
		StartKeyDocID string          `json:"startkey_docid"`
		EndKeyDocID   string          `json:"endkey_docid"`
		Value         interface{}     `json:"value"`
		Doc           Document        `json:"doc"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = ViewRow{
		ID:            raw.ID,
		Key:           raw.Key,
		StartKeyDocID: raw.StartKeyDocID,
		EndKeyDocID:   raw.EndKeyDocID,
		Value:         raw.Value,
		Doc:           raw.Doc,
	}
	if raw.StartKey != nil {
		r.Ranged = true
		r.EndKey = raw.EndKey
		if err := json.Unmarshal(raw.StartKey, &r.StartKey); err != nil {
			return err
		}
	}
	return nil
}

// ReducedRow is the single row of a reduced (count) view.
type ReducedRow struct {
	Key   interface{} `json:"key"`
	Value int         `json:"value"`
}

// ViewResult is the answer of a view. Reduced results only carry ReducedRows.
type ViewResult struct {
	Reduced     bool
	TotalRows   int
	Offset      int
	Rows        []ViewRow
	ReducedRows []ReducedRow
}

// MarshalJSON renders {total_rows, offset, rows} or, for reduced views, {rows}.
func (v ViewResult) MarshalJSON() ([]byte, error) {
	if v.Reduced {
		return json.Marshal(struct {
			Rows []ReducedRow `json:"rows"`
		}{nonNil(v.ReducedRows)})
	}
	return json.Marshal(struct {
		TotalRows int       `json:"total_rows"`
		Offset    int       `json:"offset"`
		Rows      []ViewRow `json:"rows"`
	}{v.TotalRows, v.Offset, nonNil(v.Rows)})
}

// UnmarshalJSON detects reduced results by the missing total_rows field.
func (v *ViewResult) UnmarshalJSON(data []byte) error {
	var probe struct {
		TotalRows *int            `json:"total_rows"`
		Offset    int             `json:"offset"`
		Rows      json.RawMessage `json:"rows"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	*v = ViewResult{}
	if probe.TotalRows == nil {
		v.Reduced = true
		return json.Unmarshal(probe.Rows, &v.ReducedRows)
	}
	v.TotalRows = *probe.TotalRows
	v.Offset = probe.Offset
	return json.Unmarshal(probe.Rows, &v.Rows)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Stats are operational counters of one store.
type Stats struct {
	Documents    int             `json:"documents"`
	Reads        int64           `json:"reads"`
	Writes       int64           `json:"writes"`
	Deletes      int64           `json:"deletes"`
	Conflicts    int64           `json:"conflicts"`
	ViewQueries  int64           `json:"view_queries"`
	DocSizeMean  float64         `json:"doc_size_mean"`
	DocSizeMax   int64           `json:"doc_size_max"`
	DocSizeP95   float64         `json:"doc_size_p95"`
	Codec        string          `json:"codec"`
	DatabaseInfo db.DatabaseInfo `json:"database_info"`
}
