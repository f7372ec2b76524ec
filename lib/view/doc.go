// Package view emulates CouchDB map/reduce views without executing map
// functions. The name of a view selects a filtering strategy, following the
// conventions of the SimplyStored/CouchPotato object mappers:
//
//   - all_documents: every document whose kind field (ruby_class by default)
//     classifies to the design document name, ordered by id.
//   - by_<attr>[_and_<attr>...]: documents of the class whose attributes equal
//     the key (array valued attributes match by containment) or fall in the
//     inclusive startkey/endkey range, ordered by the first attribute.
//   - association_<design>_belongs_to_<ref>: documents of the class whose
//     synthesized foreign key (<ref>_id, namespaces flattened with "__") equals
//     the key, ordered by created_at.
//   - association_<design>_has_and_belongs_to_many_<refs>: documents of the
//     class associated with the key document, from either side of the
//     relation, ordered by created_at.
//
// A suffix on the view name decides soft-delete filtering: _without_deleted
// (or _withoutdeleted) hides documents with a present deleted_at field,
// _with_deleted (or _withdeleted) shows them. Without a suffix the map source
// is searched for the literal marker `"soft" deleted`. This is a textual
// heuristic on an uninterpreted script and easy to trip over; it is kept
// because clients rely on it.
//
// Key Components:
//
//   - Plan: the result of parsing a view name once (Parse). The Strategy enum is
//     closed; unsupported names fail with *UnknownViewError, which is a
//     programming error and not a store.Error.
//   - Engine: evaluates plans over a store snapshot (map of id to document),
//     applies the docid range, limit and reduce (count) stages and renders the
//     result. It also implements the all documents listing (RunAll).
//   - Compare: CouchDB style collation of JSON values used for key equality,
//     ranges and sorting.
//
// Result shape follows CouchDB: total_rows is counted before the docid range
// and limit are applied and offset is always 0 for named views, while the all
// documents listing reports how many ids were skipped before the start key.
//
// Thread-safety: Engines are safe for concurrent use. The snapshot passed in
// must not be mutated while a view runs.
package view
