package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ValentinKolb/dCouch/lib/registry"
	"github.com/ValentinKolb/dCouch/lib/store"
	"github.com/pkg/errors"
)

// --------------------------------------------------------------------------
// Server
// --------------------------------------------------------------------------

// Info returns the server greeting.
func (c *Client) Info(ctx context.Context) (info registry.ServerInfo, err error) {
	err = c.invoke(ctx, request{method: http.MethodGet}, &info)
	return info, err
}

// AllDBs lists the database names.
func (c *Client) AllDBs(ctx context.Context) (names []string, err error) {
	err = c.invoke(ctx, request{method: http.MethodGet, path: []string{"_all_dbs"}}, &names)
	return names, err
}

// UUIDs mints n ids on the server (n <= 0 uses the server default).
func (c *Client) UUIDs(ctx context.Context, n int) ([]string, error) {
	q := url.Values{}
	if n > 0 {
		q.Set("count", strconv.Itoa(n))
	}
	var res struct {
		UUIDs []string `json:"uuids"`
	}
	err := c.invoke(ctx, request{method: http.MethodGet, path: []string{"_uuids"}, query: q}, &res)
	return res.UUIDs, err
}

// --------------------------------------------------------------------------
// Databases
// --------------------------------------------------------------------------

// CreateDB creates (or replaces) a database.
func (c *Client) CreateDB(ctx context.Context, name string) error {
	return c.invoke(ctx, request{method: http.MethodPut, path: []string{name}}, nil)
}

// DeleteDB deletes a database.
func (c *Client) DeleteDB(ctx context.Context, name string) error {
	return c.invoke(ctx, request{method: http.MethodDelete, path: []string{name}}, nil)
}

// DBInfo returns the metadata of a database.
func (c *Client) DBInfo(ctx context.Context, name string) (info registry.DatabaseInfo, err error) {
	err = c.invoke(ctx, request{method: http.MethodGet, path: []string{name}}, &info)
	return info, err
}

// Stats returns the statistics of a database.
func (c *Client) Stats(ctx context.Context, db string) (stats store.Stats, err error) {
	err = c.invoke(ctx, request{method: http.MethodGet, path: []string{db, "_stats"}}, &stats)
	return stats, err
}

// --------------------------------------------------------------------------
// Documents
// --------------------------------------------------------------------------

// docPath returns the path segments of a document, splitting design document ids.
func docPath(db, id string) []string {
	if name, ok := strings.CutPrefix(id, store.DesignPrefix); ok {
		return []string{db, "_design", name}
	}
	return []string{db, id}
}

// Get loads a document.
func (c *Client) Get(ctx context.Context, db, id string, opts store.LoadOptions) (doc store.Document, err error) {
	q := url.Values{}
	if opts.Rev != "" {
		q.Set("rev", opts.Rev)
	}
	if opts.Revs {
		q.Set("revs", "true")
	}
	if opts.RevsInfo {
		q.Set("revs_info", "true")
	}
	err = c.invoke(ctx, request{method: http.MethodGet, path: docPath(db, id), query: q}, &doc)
	return doc, err
}

// Put stores doc under id. doc may be a store.Document, any JSON marshalable
// value, or already encoded JSON ([]byte, json.RawMessage or string).
func (c *Client) Put(ctx context.Context, db, id string, doc interface{}) (res store.WriteResult, err error) {
	body, err := rawJSON(doc)
	if err != nil {
		return res, err
	}
	err = c.invoke(ctx, request{method: http.MethodPut, path: docPath(db, id), body: body}, &res)
	return res, err
}

// Post stores doc under a server minted id.
func (c *Client) Post(ctx context.Context, db string, doc interface{}) (res store.WriteResult, err error) {
	body, err := rawJSON(doc)
	if err != nil {
		return res, err
	}
	err = c.invoke(ctx, request{method: http.MethodPost, path: []string{db}, body: body}, &res)
	return res, err
}

// Delete removes a document at revision rev.
func (c *Client) Delete(ctx context.Context, db, id, rev string) error {
	q := url.Values{}
	if rev != "" {
		q.Set("rev", rev)
	}
	return c.invoke(ctx, request{method: http.MethodDelete, path: docPath(db, id), query: q}, nil)
}

// Copy copies src to dst. dstRev is required when dst already exists.
func (c *Client) Copy(ctx context.Context, db, src, dst, dstRev string) (res store.WriteResult, err error) {
	destination := url.PathEscape(dst)
	if dstRev != "" {
		destination += "?rev=" + url.QueryEscape(dstRev)
	}
	header := http.Header{}
	header.Set("Destination", destination)
	err = c.invoke(ctx, request{method: "COPY", path: []string{db, src}, header: header}, &res)
	return res, err
}

// Bulk applies docs in one request and returns the per document results.
func (c *Client) Bulk(ctx context.Context, db string, docs []interface{}) (res []store.BulkResult, err error) {
	body, err := json.Marshal(map[string]interface{}{"docs": docs})
	if err != nil {
		return nil, errors.Wrap(err, "encode bulk request")
	}
	err = c.invoke(ctx, request{method: http.MethodPost, path: []string{db, "_bulk_docs"}, body: body}, &res)
	return res, err
}

// --------------------------------------------------------------------------
// Listings and views
// --------------------------------------------------------------------------

// AllDocs lists the documents of db.
func (c *Client) AllDocs(ctx context.Context, db string, opts store.AllDocsOptions) (*store.AllDocsResult, error) {
	q := url.Values{}
	setFlag(q, "descending", opts.Descending)
	setFlag(q, "include_docs", opts.IncludeDocs)
	if opts.StartKey != "" {
		q.Set("startkey", opts.StartKey)
	}
	if opts.EndKey != "" {
		q.Set("endkey", opts.EndKey)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}

	var res store.AllDocsResult
	if err := c.invoke(ctx, request{method: http.MethodGet, path: []string{db, "_all_docs"}, query: q}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// View queries the view name of the design document _design/<design>.
func (c *Client) View(ctx context.Context, db, design, name string, opts store.ViewOptions) (*store.ViewResult, error) {
	q := url.Values{}
	setFlag(q, "reduce", opts.Reduce)
	setFlag(q, "descending", opts.Descending)
	setFlag(q, "include_docs", opts.IncludeDocs)
	setFlag(q, "without_deleted", opts.WithoutDeleted)
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.HasKey {
		if err := setJSON(q, "key", opts.Key); err != nil {
			return nil, err
		}
	}
	for key, value := range map[string]interface{}{"startkey": opts.StartKey, "endkey": opts.EndKey} {
		if value == nil {
			continue
		}
		if err := setJSON(q, key, value); err != nil {
			return nil, err
		}
	}
	for key, value := range map[string]string{"startkey_docid": opts.StartKeyDocID, "endkey_docid": opts.EndKeyDocID} {
		if value == "" {
			continue
		}
		if err := setJSON(q, key, value); err != nil {
			return nil, err
		}
	}

	var res store.ViewResult
	path := []string{db, "_design", design, "_view", name}
	if err := c.invoke(ctx, request{method: http.MethodGet, path: path, query: q}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func setFlag(q url.Values, key string, on bool) {
	if on {
		q.Set(key, "true")
	}
}

func setJSON(q url.Values, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "encode %s", key)
	}
	q.Set(key, string(data))
	return nil
}
