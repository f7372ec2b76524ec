package view

import (
	"sort"
	"strings"

	"github.com/ValentinKolb/dCouch/lib/store"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("view")

// Engine evaluates views over store snapshots. It never mutates the snapshot
// it is given; documents included in rows are copies.
//
// Thread-safety: An Engine is safe for concurrent use. Parsed plans are cached
// per design document, view name and map source.
type Engine struct {
	cfg   Config
	plans *xsync.MapOf[string, Plan]
}

// New creates a view engine. Empty config fields fall back to DefaultConfig.
func New(cfg Config) *Engine {
	return &Engine{
		cfg:   cfg.withDefaults(),
		plans: xsync.NewMapOf[string, Plan](),
	}
}

// Config returns the effective field configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// --------------------------------------------------------------------------
// Named views
// --------------------------------------------------------------------------

// Prepare looks up the view definition in _design/<design> and returns its plan.
// A missing design document or view is a not found error, a view name of an
// unsupported shape an *UnknownViewError.
func (e *Engine) Prepare(docs map[string]store.Document, design, name string) (Plan, error) {
	ddoc, ok := docs[store.DesignPrefix+design]
	if !ok {
		return Plan{}, store.ErrNotFound()
	}
	views, _ := ddoc["views"].(map[string]interface{})
	def, ok := views[name]
	if !ok {
		return Plan{}, store.ErrNotFound()
	}
	var mapSource string
	if m, ok := def.(map[string]interface{}); ok {
		mapSource, _ = m["map"].(string)
	}

	cacheKey := design + "\x00" + name + "\x00" + mapSource
	if plan, ok := e.plans.Load(cacheKey); ok {
		return plan, nil
	}
	plan, err := Parse(design, name, mapSource, e.cfg)
	if err != nil {
		Logger.Warningf("view %s/%s: %v", design, name, err)
		return Plan{}, err
	}
	Logger.Debugf("view %s/%s parsed as %s (attributes=%v, deleted=%s)", design, name, plan.Strategy, plan.Attributes, plan.Deleted)
	e.plans.Store(cacheKey, plan)
	return plan, nil
}

// Run evaluates the view name of design over the snapshot docs.
func (e *Engine) Run(docs map[string]store.Document, design, name string, opts store.ViewOptions) (*store.ViewResult, error) {
	plan, err := e.Prepare(docs, design, name)
	if err != nil {
		return nil, err
	}
	return e.Execute(docs, plan, opts), nil
}

// Execute evaluates a parsed plan over the snapshot docs.
func (e *Engine) Execute(docs map[string]store.Document, plan Plan, opts store.ViewOptions) *store.ViewResult {
	q := newQuery(opts)
	ids := e.selectIDs(docs, plan, q)

	// total_rows is counted before the docid range and the limit
	total := len(ids)
	ids = filterDocIDRange(ids, q.startDocID, q.endDocID)
	ids = applyLimit(ids, opts.Limit)

	if opts.Reduce {
		return &store.ViewResult{
			Reduced:     true,
			ReducedRows: []store.ReducedRow{{Key: opts.Key, Value: len(ids)}},
		}
	}

	rows := make([]store.ViewRow, 0, len(ids))
	for _, id := range ids {
		row := store.ViewRow{
			ID:            id,
			Key:           opts.Key,
			Ranged:        q.ranged(),
			StartKey:      q.startKey,
			EndKey:        q.endKey,
			StartKeyDocID: q.startDocID,
			EndKeyDocID:   q.endDocID,
		}
		if opts.IncludeDocs {
			row.Doc = docs[id].Clone()
		}
		rows = append(rows, row)
	}

	return &store.ViewResult{
		TotalRows: total,
		Offset:    0,
		Rows:      rows,
	}
}

// selectIDs applies the strategy specific filters and the sort order.
func (e *Engine) selectIDs(docs map[string]store.Document, plan Plan, q query) []string {
	ids := sortedIDs(docs)

	switch plan.Strategy {
	case StrategyAllDocuments:
		ids = filterByKeys(ids, docs, plan.Attributes, q)

	case StrategyAllByClass:
		ids = e.filterByClass(ids, docs, plan.Design)
		ids = e.filterDeleted(ids, docs, plan, q)

	case StrategyByAttributes, StrategyBelongsTo:
		ids = filterByKeys(ids, docs, plan.Attributes, q)
		ids = e.filterByClass(ids, docs, plan.Design)
		ids = e.filterDeleted(ids, docs, plan, q)

	case StrategyHasAndBelongsToMany:
		ids = filterAssociated(ids, docs, plan, q)
		ids = e.filterByClass(ids, docs, plan.Design)
		ids = e.filterDeleted(ids, docs, plan, q)
	}

	sortIDs(ids, docs, plan.SortField, q.descending)
	return ids
}

// filterByClass keeps documents whose kind field classifies to the design name.
func (e *Engine) filterByClass(ids []string, docs map[string]store.Document, design string) []string {
	className := classify(design)
	return filterIDs(ids, func(id string) bool {
		kind := docs[id][e.cfg.KindField]
		if kind == nil {
			return false
		}
		return classify(toString(kind)) == className
	})
}

// filterDeleted drops soft deleted documents if the plan or the query asks for it.
func (e *Engine) filterDeleted(ids []string, docs map[string]store.Document, plan Plan, q query) []string {
	hide := plan.Deleted == DeletedHide || (plan.Deleted == DeletedDefault && q.withoutDeleted)
	if !hide {
		return ids
	}
	return filterIDs(ids, func(id string) bool {
		return !present(docs[id][e.cfg.SoftDeleteField])
	})
}

// --------------------------------------------------------------------------
// All documents listing
// --------------------------------------------------------------------------

// RunAll lists every document of the snapshot ordered by id. Start and end keys
// bound the listing inclusively in iteration order; offset counts the documents
// skipped before the start key.
func (e *Engine) RunAll(docs map[string]store.Document, opts store.AllDocsOptions) *store.AllDocsResult {
	ids := sortedIDs(docs)
	sortIDs(ids, docs, AllDocumentsPlan().SortField, opts.Descending)

	start, end := stripQuotes(opts.StartKey), stripQuotes(opts.EndKey)
	before := func(id string) bool {
		if start == "" {
			return false
		}
		if opts.Descending {
			return id > start
		}
		return id < start
	}
	after := func(id string) bool {
		if end == "" {
			return false
		}
		if opts.Descending {
			return id < end
		}
		return id > end
	}

	offset := 0
	rows := make([]store.AllDocsRow, 0, len(ids))
	for _, id := range ids {
		if before(id) {
			offset++
			continue
		}
		if after(id) {
			break
		}
		if opts.Limit > 0 && len(rows) >= opts.Limit {
			break
		}

		doc := docs[id]
		value := map[string]interface{}{"rev": doc.Rev()}
		if opts.IncludeDocs {
			value = doc.Clone()
			value["rev"] = doc.Rev()
		}
		rows = append(rows, store.AllDocsRow{ID: id, Key: id, Value: value})
	}

	return &store.AllDocsResult{
		TotalRows: len(docs),
		Offset:    offset,
		Rows:      rows,
	}
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

func sortedIDs(docs map[string]store.Document) []string {
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// stripQuotes removes the quote characters surrounding a key literal.
func stripQuotes(s string) string {
	return strings.TrimSuffix(strings.TrimPrefix(s, `"`), `"`)
}
