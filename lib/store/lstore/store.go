package lstore

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/ValentinKolb/dCouch/lib/db"
	"github.com/ValentinKolb/dCouch/lib/store"
	"github.com/ValentinKolb/dCouch/lib/store/codec"
	"github.com/ValentinKolb/dCouch/lib/view"
	"github.com/google/uuid"
	"github.com/lni/dragonboat/v4/logger"
	gometrics "github.com/rcrowley/go-metrics"
)

var Logger = logger.GetLogger("store")

// Options configures a local store
type Options struct {
	Codec codec.ICodec // Encoding between documents and engine values (nil = json)
	View  view.Config  // Field names used by the view engine
	// Views is an optional shared view engine. When set, View is ignored.
	Views *view.Engine
}

// DefaultOptions returns the default local store options
func DefaultOptions() *Options {
	return &Options{
		Codec: codec.NewJSONCodec(),
		View:  view.DefaultConfig(),
	}
}

type storeMetrics struct {
	registry    gometrics.Registry
	reads       gometrics.Counter
	writes      gometrics.Counter
	deletes     gometrics.Counter
	conflicts   gometrics.Counter
	viewQueries gometrics.Counter
	docSize     gometrics.Histogram
}

func newStoreMetrics() *storeMetrics {
	r := gometrics.NewRegistry()
	return &storeMetrics{
		registry:    r,
		reads:       gometrics.NewRegisteredCounter("reads", r),
		writes:      gometrics.NewRegisteredCounter("writes", r),
		deletes:     gometrics.NewRegisteredCounter("deletes", r),
		conflicts:   gometrics.NewRegisteredCounter("conflicts", r),
		viewQueries: gometrics.NewRegisteredCounter("view_queries", r),
		docSize:     gometrics.NewRegisteredHistogram("doc_size", r, gometrics.NewUniformSample(1028)),
	}
}

type storeImpl struct {
	mu      sync.Mutex
	db      db.DocDB
	codec   codec.ICodec
	views   *view.Engine
	metrics *storeMetrics

	// decoded documents of the last snapshot and the write index it was taken at
	snap    map[string]store.Document
	snapIdx uint64
}

// NewLocalStore creates a new local store instance on top of the db created by factory.
// opts may be nil, in which case DefaultOptions is used.
func NewLocalStore(factory store.DBFactory, opts *Options) store.IStore {
	if opts == nil {
		opts = DefaultOptions()
	}
	c := opts.Codec
	if c == nil {
		c = codec.NewJSONCodec()
	}
	views := opts.Views
	if views == nil {
		views = view.New(opts.View)
	}
	return &storeImpl{
		db:      factory(),
		codec:   c,
		views:   views,
		metrics: newStoreMetrics(),
	}
}

// NewID mints a fresh document id or revision (a random UUID without dashes).
func NewID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// --------------------------------------------------------------------------
// Internal helpers (callers must hold s.mu where noted)
// --------------------------------------------------------------------------

// load decodes the document stored under id.
func (s *storeImpl) load(id string) (store.Document, bool, error) {
	raw, ok := s.db.Get(id)
	if !ok {
		return nil, false, nil
	}
	doc, err := s.codec.Decode(raw)
	if err != nil {
		return nil, false, fmt.Errorf("decode document %s: %w", id, err)
	}
	return doc, true, nil
}

// putLocked inserts or updates doc under id. doc is owned by the store afterwards.
// The caller must hold s.mu.
func (s *storeImpl) putLocked(id string, doc store.Document) (store.WriteResult, error) {
	if id == "" {
		id = NewID()
	}

	current, exists, err := s.load(id)
	if err != nil {
		return store.WriteResult{}, err
	}
	if exists && current.Rev() != doc.Rev() {
		s.metrics.conflicts.Inc(1)
		Logger.Debugf("conflict on %s: stored %s, got %q", id, current.Rev(), doc.Rev())
		return store.WriteResult{}, store.ErrConflict()
	}

	rev := NewID()
	delete(doc, store.FieldID)
	doc[store.FieldRev] = rev
	doc[store.FieldID] = id

	if err := validate(id, doc); err != nil {
		return store.WriteResult{}, err
	}

	raw, err := s.codec.Encode(doc)
	if err != nil {
		return store.WriteResult{}, fmt.Errorf("encode document %s: %w", id, err)
	}
	s.db.Set(id, raw)
	s.metrics.writes.Inc(1)
	s.metrics.docSize.Update(int64(len(raw)))

	Logger.Debugf("stored %s at rev %s (%d bytes)", id, rev, len(raw))
	return store.WriteResult{Ok: true, ID: id, Rev: rev}, nil
}

// deleteLocked removes the document if rev matches. The caller must hold s.mu.
func (s *storeImpl) deleteLocked(id, rev string) error {
	current, exists, err := s.load(id)
	if err != nil {
		return err
	}
	if !exists {
		return store.ErrNotFound()
	}
	if current.Rev() != rev {
		s.metrics.conflicts.Inc(1)
		return store.ErrConflict()
	}
	s.db.Delete(id)
	s.metrics.deletes.Inc(1)
	Logger.Debugf("deleted %s at rev %s", id, rev)
	return nil
}

// snapshotLocked returns the decoded documents. The result is cached until the
// next write and must not be modified. The caller must hold s.mu.
func (s *storeImpl) snapshotLocked() map[string]store.Document {
	idx := s.db.WriteIdx()
	if s.snap != nil && s.snapIdx == idx {
		return s.snap
	}
	docs := make(map[string]store.Document, s.db.Count())
	s.db.Range(func(id string, raw []byte) bool {
		doc, err := s.codec.Decode(raw)
		if err != nil {
			Logger.Errorf("skipping undecodable document %s: %v", id, err)
			return true
		}
		docs[id] = doc
		return true
	})
	s.snap, s.snapIdx = docs, idx
	return docs
}

// validate rejects design documents without a views object.
func validate(id string, doc store.Document) error {
	if !store.IsDesignID(id) {
		return nil
	}
	if _, ok := doc["views"].(map[string]interface{}); !ok {
		return store.ErrInvalidDesignDocument(id)
	}
	return nil
}

// decodePayload parses a JSON object payload.
func decodePayload(id string, payload []byte) (store.Document, error) {
	var doc store.Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, store.ErrInvalidPayload(id, err)
	}
	if doc == nil {
		return nil, store.ErrInvalidPayload(id, fmt.Errorf("payload is null"))
	}
	return doc, nil
}

// isTrue reports whether v is true or "true".
func isTrue(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true"
	default:
		return false
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Exists(id string) bool {
	return s.db.Has(id)
}

func (s *storeImpl) Get(id string) (store.Document, error) {
	doc, ok, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, store.ErrNotFound()
	}
	s.metrics.reads.Inc(1)
	return doc, nil
}

func (s *storeImpl) Load(id string, opts store.LoadOptions) (store.Document, error) {
	doc, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	rev := doc.Rev()
	if opts.Rev != "" && opts.Rev != rev {
		return nil, store.ErrNotFound()
	}
	if opts.Revs {
		doc["_revisions"] = map[string]interface{}{
			"start": 1,
			"ids":   []interface{}{rev},
		}
	}
	if opts.RevsInfo {
		doc["_revs_info"] = []interface{}{
			map[string]interface{}{"rev": rev, "status": "disk"},
		}
	}
	return doc, nil
}

func (s *storeImpl) Put(id string, payload []byte) (store.WriteResult, error) {
	doc, err := decodePayload(id, payload)
	if err != nil {
		return store.WriteResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putLocked(id, doc)
}

func (s *storeImpl) PutDocument(id string, doc store.Document) (store.WriteResult, error) {
	if doc == nil {
		return store.WriteResult{}, store.ErrInvalidPayload(id, fmt.Errorf("document is nil"))
	}
	doc = doc.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putLocked(id, doc)
}

func (s *storeImpl) Delete(id string, rev string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(id, rev)
}

func (s *storeImpl) Copy(src, dst string, dstRev string) (store.WriteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok, err := s.load(src)
	if err != nil {
		return store.WriteResult{}, err
	}
	if !ok {
		return store.WriteResult{}, store.ErrNotFound()
	}
	if dstRev != "" {
		doc[store.FieldRev] = dstRev
	} else {
		delete(doc, store.FieldRev)
	}
	return s.putLocked(dst, doc)
}

func (s *storeImpl) Bulk(payload []byte) ([]store.BulkResult, error) {
	var body map[string]interface{}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, store.ErrInvalidPayload("_bulk_docs", err)
	}
	items, ok := body["docs"].([]interface{})
	if !ok {
		return nil, store.ErrInvalidPayload("_bulk_docs", fmt.Errorf("docs must be an array"))
	}

	results := make([]store.BulkResult, 0, len(items))
	for i, item := range items {
		raw, ok := item.(map[string]interface{})
		if !ok {
			e := store.ErrInvalidPayload(fmt.Sprintf("at index %d", i), fmt.Errorf("item is %T", item))
			results = append(results, store.BulkResult{Error: string(e.Kind), Reason: e.Reason})
			continue
		}
		doc := store.Document(raw)
		res, err := s.bulkItem(doc)
		if err != nil {
			e, ok := store.AsError(err)
			if !ok {
				return nil, err
			}
			res = store.BulkResult{ID: doc.ID(), Error: string(e.Kind), Reason: e.Reason}
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *storeImpl) bulkItem(doc store.Document) (store.BulkResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := doc.ID()
	if id != "" && isTrue(doc[store.FieldDeleted]) && s.db.Has(id) {
		rev := doc.Rev()
		if err := s.deleteLocked(id, rev); err != nil {
			return store.BulkResult{}, err
		}
		return store.BulkResult{ID: id, Rev: rev}, nil
	}
	res, err := s.putLocked(id, doc)
	if err != nil {
		return store.BulkResult{}, err
	}
	return store.BulkResult{ID: res.ID, Rev: res.Rev}, nil
}

func (s *storeImpl) Count() int {
	return s.db.Count()
}

func (s *storeImpl) AllDocuments(opts store.AllDocsOptions) (*store.AllDocsResult, error) {
	s.mu.Lock()
	docs := s.snapshotLocked()
	s.mu.Unlock()
	s.metrics.reads.Inc(1)
	return s.views.RunAll(docs, opts), nil
}

func (s *storeImpl) View(design, name string, opts store.ViewOptions) (*store.ViewResult, error) {
	s.mu.Lock()
	docs := s.snapshotLocked()
	s.mu.Unlock()
	s.metrics.viewQueries.Inc(1)
	return s.views.Run(docs, design, name, opts)
}

func (s *storeImpl) Snapshot() map[string]store.Document {
	s.mu.Lock()
	docs := s.snapshotLocked()
	s.mu.Unlock()

	out := make(map[string]store.Document, len(docs))
	for id, doc := range docs {
		out[id] = doc.Clone()
	}
	return out
}

func (s *storeImpl) Stats() store.Stats {
	size := s.metrics.docSize.Snapshot()
	return store.Stats{
		Documents:    s.db.Count(),
		Reads:        s.metrics.reads.Count(),
		Writes:       s.metrics.writes.Count(),
		Deletes:      s.metrics.deletes.Count(),
		Conflicts:    s.metrics.conflicts.Count(),
		ViewQueries:  s.metrics.viewQueries.Count(),
		DocSizeMean:  size.Mean(),
		DocSizeMax:   size.Max(),
		DocSizeP95:   size.Percentile(0.95),
		Codec:        s.codec.Name(),
		DatabaseInfo: s.db.GetInfo(),
	}
}

func (s *storeImpl) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = nil
	s.metrics.registry.UnregisterAll()
	return s.db.Close()
}
