package query

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/ValentinKolb/dCouch/lib/store"
)

// DefaultUUIDCount is the number of ids minted by /_uuids without a count.
const DefaultUUIDCount = 100

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

// UsageError reports a malformed or unsupported query parameter.
type UsageError struct {
	Op     string // operation the options were given for
	Key    string // offending parameter
	Reason string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("%s: option %q %s", e.Op, e.Key, e.Reason)
}

func usage(op, key, format string, args ...interface{}) *UsageError {
	return &UsageError{Op: op, Key: key, Reason: fmt.Sprintf(format, args...)}
}

// --------------------------------------------------------------------------
// Allowed keys per operation
// --------------------------------------------------------------------------

var (
	loadKeys    = []string{"rev", "revs", "revs_info"}
	deleteKeys  = []string{"rev"}
	allDocsKeys = []string{"descending", "startkey", "endkey", "limit", "include_docs"}
	viewKeys    = []string{
		"reduce", "limit", "key", "descending", "include_docs", "without_deleted",
		"startkey", "endkey", "startkey_docid", "endkey_docid",
	}
	uuidKeys = []string{"count"}
)

// params holds the first value of every query parameter.
type params struct {
	op     string
	values map[string]string
}

// parse flattens values and rejects keys that are not allowed for op.
// Unknown keys are reported in sorted order so errors are stable.
func parse(op string, values url.Values, allowed []string) (params, error) {
	p := params{op: op, values: make(map[string]string, len(values))}

	var unknown []string
	for key, vs := range values {
		if !contains(allowed, key) {
			unknown = append(unknown, key)
			continue
		}
		if len(vs) > 0 {
			p.values[key] = vs[0]
		} else {
			p.values[key] = ""
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return p, usage(op, unknown[0], "is not supported (valid: %s)", strings.Join(allowed, ", "))
	}
	return p, nil
}

func contains(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}

func (p params) has(key string) bool {
	_, ok := p.values[key]
	return ok
}

func (p params) str(key string) string {
	return p.values[key]
}

// flag is true only for the literal "true".
func (p params) flag(key string) bool {
	return p.values[key] == "true"
}

// nonNegative parses an optional non-negative integer, def if absent.
func (p params) nonNegative(key string, def int) (int, error) {
	raw, ok := p.values[key]
	if !ok || raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, usage(p.op, key, "must be a non-negative integer, got %q", raw)
	}
	return n, nil
}

// decoded decodes an optional JSON valued parameter.
func (p params) decoded(key string) interface{} {
	raw, ok := p.values[key]
	if !ok {
		return nil
	}
	return DecodeJSON(raw)
}

// docID decodes an optional JSON valued document id.
func (p params) docID(key string) string {
	raw, ok := p.values[key]
	if !ok {
		return ""
	}
	if s, ok := DecodeJSON(raw).(string); ok {
		return s
	}
	return raw
}

// --------------------------------------------------------------------------
// Decoding
// --------------------------------------------------------------------------

// DecodeJSON decodes a JSON query value. Values that do not parse on their own
// (and single characters) are retried wrapped in an array, taking the first
// element. If that fails as well the raw string is returned.
func DecodeJSON(raw string) interface{} {
	if raw == "null" {
		return nil
	}
	if len(raw) >= 2 {
		var v interface{}
		if err := json.Unmarshal([]byte(raw), &v); err == nil {
			return v
		}
	}
	var wrapped []interface{}
	if err := json.Unmarshal([]byte("["+raw+"]"), &wrapped); err == nil {
		if len(wrapped) == 0 {
			return nil
		}
		return wrapped[0]
	}
	return raw
}

// --------------------------------------------------------------------------
// Per operation parsers
// --------------------------------------------------------------------------

// Load parses the options of a document read.
func Load(values url.Values) (store.LoadOptions, error) {
	p, err := parse("load", values, loadKeys)
	if err != nil {
		return store.LoadOptions{}, err
	}
	return store.LoadOptions{
		Rev:      p.str("rev"),
		Revs:     p.flag("revs"),
		RevsInfo: p.flag("revs_info"),
	}, nil
}

// DeleteRev returns the revision given to a document delete.
func DeleteRev(values url.Values) (string, error) {
	p, err := parse("delete", values, deleteKeys)
	if err != nil {
		return "", err
	}
	return p.str("rev"), nil
}

// AllDocs parses the options of the all documents listing. Keys are passed
// through as given; surrounding quotes are stripped by the listing itself.
func AllDocs(values url.Values) (store.AllDocsOptions, error) {
	p, err := parse("all_docs", values, allDocsKeys)
	if err != nil {
		return store.AllDocsOptions{}, err
	}
	limit, err := p.nonNegative("limit", 0)
	if err != nil {
		return store.AllDocsOptions{}, err
	}
	return store.AllDocsOptions{
		Descending:  p.flag("descending"),
		StartKey:    p.str("startkey"),
		EndKey:      p.str("endkey"),
		Limit:       limit,
		IncludeDocs: p.flag("include_docs"),
	}, nil
}

// View parses the options of a view query.
func View(values url.Values) (store.ViewOptions, error) {
	p, err := parse("view", values, viewKeys)
	if err != nil {
		return store.ViewOptions{}, err
	}
	limit, err := p.nonNegative("limit", 0)
	if err != nil {
		return store.ViewOptions{}, err
	}
	return store.ViewOptions{
		Reduce:         p.flag("reduce"),
		Limit:          limit,
		HasKey:         p.has("key"),
		Key:            p.decoded("key"),
		StartKey:       p.decoded("startkey"),
		EndKey:         p.decoded("endkey"),
		StartKeyDocID:  p.docID("startkey_docid"),
		EndKeyDocID:    p.docID("endkey_docid"),
		Descending:     p.flag("descending"),
		IncludeDocs:    p.flag("include_docs"),
		WithoutDeleted: p.flag("without_deleted"),
	}, nil
}

// UUIDCount returns the requested number of ids (DefaultUUIDCount if absent).
func UUIDCount(values url.Values) (int, error) {
	p, err := parse("uuids", values, uuidKeys)
	if err != nil {
		return 0, err
	}
	return p.nonNegative("count", DefaultUUIDCount)
}

// Destination splits a COPY Destination header of the form id[?rev=R].
func Destination(header string) (id, rev string, err error) {
	id, rawQuery, _ := strings.Cut(header, "?")
	if id == "" {
		return "", "", usage("copy", "Destination", "must name a document id")
	}
	if unescaped, uerr := url.PathUnescape(id); uerr == nil {
		id = unescaped
	}
	values, perr := url.ParseQuery(rawQuery)
	if perr != nil {
		return "", "", usage("copy", "Destination", "has a malformed query: %v", perr)
	}
	return id, values.Get("rev"), nil
}
