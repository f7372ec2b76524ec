// Package lstore implements a local, in-memory document database based on the
// store.IStore interface. It wraps any db.DocDB implementation and adds revision
// handling, document encoding and the view engine on top of it. Data is stored
// entirely in memory and is not persisted between process restarts.
//
// Key Features:
//   - Revision checked writes (insert, update, delete, copy, bulk)
//   - Pluggable document encoding through the codec package (json or msgpack)
//   - All documents listing and convention driven views through the view package
//   - Operational counters and a document size histogram (go-metrics)
//
// Implementation Details:
//
//   - Revisions: Every successful write mints a new random revision. An update or
//     delete must present the current revision, otherwise it fails with a conflict.
//     Inserts ignore an incoming _id and _rev.
//
//   - Serialization: Each read-modify-write sequence runs under a single mutex per
//     store, so the revision check and the write form one atomic step. Plain reads
//     go straight to the db.DocDB, which is safe for concurrent use.
//
//   - Snapshots: Listings and views run over a decoded snapshot of all documents.
//     The snapshot is cached and rebuilt only when the write index of the
//     underlying db.DocDB has moved.
//
// Usage Example:
//
//	factory := func() db.DocDB { return maple.NewMapleDB(nil) }
//	s := lstore.NewLocalStore(factory, nil)
//
//	res, err := s.Put("", []byte(`{"name":"Ann"}`))
//	doc, err := s.Get(res.ID)
//
//	doc["name"] = "Anna"
//	res, err = s.PutDocument(res.ID, doc) // doc carries the current _rev
package lstore
