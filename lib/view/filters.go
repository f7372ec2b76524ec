package view

import (
	"sort"
	"strings"

	"github.com/ValentinKolb/dCouch/lib/store"
)

// query holds the view options after the descending swap.
type query struct {
	filterByKey    bool
	key            interface{}
	startKey       interface{}
	endKey         interface{}
	startDocID     string
	endDocID       string
	descending     bool
	withoutDeleted bool
}

func newQuery(opts store.ViewOptions) query {
	q := query{
		filterByKey:    opts.HasKey || opts.Key != nil,
		key:            opts.Key,
		startKey:       opts.StartKey,
		endKey:         opts.EndKey,
		startDocID:     opts.StartKeyDocID,
		endDocID:       opts.EndKeyDocID,
		descending:     opts.Descending,
		withoutDeleted: opts.WithoutDeleted,
	}
	// under descending order "start" is the larger bound
	if q.descending && (q.startKey != nil || q.endKey != nil) {
		q.startKey, q.endKey = q.endKey, q.startKey
	}
	return q
}

// ranged reports whether the query filters by a key range instead of a key.
func (q query) ranged() bool {
	return q.startKey != nil || q.endKey != nil
}

func filterIDs(ids []string, keep func(id string) bool) []string {
	out := ids[:0]
	for _, id := range ids {
		if keep(id) {
			out = append(out, id)
		}
	}
	return out
}

// filterByKeys applies the key or key range of the query to the attributes.
// Composite keys are arrays with one element per attribute.
func filterByKeys(ids []string, docs map[string]store.Document, attributes []string, q query) []string {
	switch {
	case q.ranged():
		starts, ends := perAttribute(q.startKey), perAttribute(q.endKey)
		for i, attr := range attributes {
			lo, hi := at(starts, i), at(ends, i)
			ids = filterIDs(ids, func(id string) bool {
				return matchRange(docs[id][attr], lo, hi)
			})
		}
	case q.filterByKey:
		keys := perAttribute(q.key)
		for i, attr := range attributes {
			want := at(keys, i)
			ids = filterIDs(ids, func(id string) bool {
				return matchValue(docs[id][attr], want)
			})
		}
	}
	return ids
}

// filterAssociated selects the documents of a has-and-belongs-to-many view.
// If the key document lists the associated ids itself (it stores the keys),
// exactly those documents are selected. Otherwise documents whose id list
// contains the key are selected.
func filterAssociated(ids []string, docs map[string]store.Document, plan Plan, q query) []string {
	if !q.ranged() && q.filterByKey {
		if keyID, ok := q.key.(string); ok {
			if owned, ok := docs[keyID][plan.OwnerField].([]interface{}); ok {
				return filterIDs(ids, func(id string) bool {
					return contains(owned, id)
				})
			}
		}
	}
	return filterByKeys(ids, docs, plan.Attributes, q)
}

// matchValue compares a document value with a key. Array values match by containment.
func matchValue(value, want interface{}) bool {
	if arr, ok := value.([]interface{}); ok {
		return contains(arr, want)
	}
	return Equal(value, want)
}

// matchRange checks lo <= value <= hi. Missing bounds are open, missing values
// never match. Array values match if any element is in range.
func matchRange(value, lo, hi interface{}) bool {
	if value == nil {
		return false
	}
	in := func(v interface{}) bool {
		return (lo == nil || Compare(v, lo) >= 0) && (hi == nil || Compare(v, hi) <= 0)
	}
	if arr, ok := value.([]interface{}); ok {
		for _, v := range arr {
			if in(v) {
				return true
			}
		}
		return false
	}
	return in(value)
}

func contains(arr []interface{}, want interface{}) bool {
	for _, v := range arr {
		if Equal(v, want) {
			return true
		}
	}
	return false
}

// perAttribute splits a composite key. Scalars are a single element key.
func perAttribute(key interface{}) []interface{} {
	if arr, ok := key.([]interface{}); ok {
		return arr
	}
	return []interface{}{key}
}

func at(values []interface{}, i int) interface{} {
	if i < len(values) {
		return values[i]
	}
	return nil
}

// filterDocIDRange keeps ids within the inclusive [start, end] range.
func filterDocIDRange(ids []string, start, end string) []string {
	if start == "" && end == "" {
		return ids
	}
	return filterIDs(ids, func(id string) bool {
		return (start == "" || id >= start) && (end == "" || id <= end)
	})
}

func applyLimit(ids []string, limit int) []string {
	if limit > 0 && limit < len(ids) {
		return ids[:limit]
	}
	return ids
}

// sortIDs orders ids by the field. Documents without the field come first in
// ascending and last in descending order. Ties keep id order.
func sortIDs(ids []string, docs map[string]store.Document, field string, descending bool) {
	if field == "" {
		field = store.FieldID
	}
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := docs[ids[i]][field], docs[ids[j]][field]
		if field == store.FieldID {
			a, b = ids[i], ids[j]
		}
		switch {
		case a == nil && b == nil:
			return false
		case a == nil:
			return !descending
		case b == nil:
			return descending
		}
		if descending {
			return Compare(a, b) > 0
		}
		return Compare(a, b) < 0
	})
	if descending {
		reverseTies(ids, docs, field)
	}
}

// reverseTies reverses runs of equal sort values so that a descending sort is
// the exact mirror of the ascending one.
func reverseTies(ids []string, docs map[string]store.Document, field string) {
	value := func(id string) interface{} {
		if field == store.FieldID {
			return id
		}
		return docs[id][field]
	}
	for i := 0; i < len(ids); {
		j := i + 1
		for j < len(ids) && Equal(value(ids[i]), value(ids[j])) {
			j++
		}
		for l, r := i, j-1; l < r; l, r = l+1, r-1 {
			ids[l], ids[r] = ids[r], ids[l]
		}
		i = j
	}
}

// present reports whether a value counts as set: not null, not false and not
// an empty or blank string, array or object.
func present(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return strings.TrimSpace(t) != ""
	case []interface{}:
		return len(t) > 0
	case map[string]interface{}:
		return len(t) > 0
	default:
		return true
	}
}
