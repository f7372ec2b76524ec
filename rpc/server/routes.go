package server

import (
	"io"
	"net/http"

	"github.com/ValentinKolb/dCouch/lib/query"
	"github.com/ValentinKolb/dCouch/lib/store"
	"github.com/pkg/errors"
)

// maxBodyBytes limits request bodies
const maxBodyBytes = 64 << 20

// apiFunc handles one route and returns the status and body of a successful response
type apiFunc func(r *http.Request) (status int, body interface{}, err error)

// handle adapts an apiFunc to http.HandlerFunc
func handle(fn apiFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, body, err := fn(r)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, status, body)
	}
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	// server
	mux.HandleFunc("GET /{$}", handle(s.info))
	mux.HandleFunc("GET /_all_dbs", handle(s.allDBs))
	mux.HandleFunc("GET /_uuids", handle(s.uuids))
	mux.HandleFunc("GET /_metrics", s.metrics.writePrometheus)

	// databases
	mux.HandleFunc("PUT /{db}", handle(s.createDB))
	mux.HandleFunc("DELETE /{db}", handle(s.deleteDB))
	mux.HandleFunc("GET /{db}", handle(s.dbInfo))
	mux.HandleFunc("POST /{db}", handle(s.postDoc))
	mux.HandleFunc("POST /{db}/{$}", handle(s.postDoc))
	mux.HandleFunc("POST /{db}/_bulk_docs", handle(s.bulkDocs))
	mux.HandleFunc("GET /{db}/_all_docs", handle(s.allDocs))
	mux.HandleFunc("GET /{db}/_stats", handle(s.stats))

	// design documents and views
	mux.HandleFunc("GET /{db}/_design/{ddoc}/_view/{view}", handle(s.view))
	mux.HandleFunc("GET /{db}/_design/{ddoc}", handle(s.getDoc(designID)))
	mux.HandleFunc("PUT /{db}/_design/{ddoc}", handle(s.putDoc(designID)))
	mux.HandleFunc("DELETE /{db}/_design/{ddoc}", handle(s.deleteDoc(designID)))

	// documents
	mux.HandleFunc("GET /{db}/{doc}", handle(s.getDoc(docID)))
	mux.HandleFunc("PUT /{db}/{doc}", handle(s.putDoc(docID)))
	mux.HandleFunc("DELETE /{db}/{doc}", handle(s.deleteDoc(docID)))
	mux.HandleFunc("COPY /{db}/{doc}", handle(s.copyDoc))

	// everything else
	mux.HandleFunc("/", handle(unsupported))
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// idFunc extracts a document id from the request path
type idFunc func(r *http.Request) string

func docID(r *http.Request) string    { return r.PathValue("doc") }
func designID(r *http.Request) string { return store.DesignPrefix + r.PathValue("ddoc") }

func (s *Server) database(r *http.Request) (store.IStore, error) {
	return s.registry.Get(r.PathValue("db"))
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(err, "read request body")
	}
	return body, nil
}

func unsupported(r *http.Request) (int, interface{}, error) {
	return 0, nil, &query.UsageError{Op: r.Method, Key: r.URL.Path, Reason: "is not a supported request"}
}

type okBody struct {
	Ok bool `json:"ok"`
}

// --------------------------------------------------------------------------
// Server
// --------------------------------------------------------------------------

func (s *Server) info(_ *http.Request) (int, interface{}, error) {
	return http.StatusOK, s.registry.Info(), nil
}

func (s *Server) allDBs(_ *http.Request) (int, interface{}, error) {
	return http.StatusOK, s.registry.AllDBs(), nil
}

func (s *Server) uuids(r *http.Request) (int, interface{}, error) {
	n, err := query.UUIDCount(r.URL.Query())
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, map[string][]string{"uuids": s.registry.UUIDs(n)}, nil
}

// --------------------------------------------------------------------------
// Databases
// --------------------------------------------------------------------------

func (s *Server) createDB(r *http.Request) (int, interface{}, error) {
	s.registry.Create(r.PathValue("db"))
	return http.StatusCreated, okBody{Ok: true}, nil
}

func (s *Server) deleteDB(r *http.Request) (int, interface{}, error) {
	s.registry.Delete(r.PathValue("db"))
	return http.StatusOK, okBody{Ok: true}, nil
}

func (s *Server) dbInfo(r *http.Request) (int, interface{}, error) {
	info, err := s.registry.DatabaseInfo(r.PathValue("db"))
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, info, nil
}

func (s *Server) postDoc(r *http.Request) (int, interface{}, error) {
	db, err := s.database(r)
	if err != nil {
		return 0, nil, err
	}
	body, err := readBody(r)
	if err != nil {
		return 0, nil, err
	}
	res, err := db.Put("", body)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusCreated, res, nil
}

func (s *Server) bulkDocs(r *http.Request) (int, interface{}, error) {
	db, err := s.database(r)
	if err != nil {
		return 0, nil, err
	}
	body, err := readBody(r)
	if err != nil {
		return 0, nil, err
	}
	res, err := db.Bulk(body)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusCreated, res, nil
}

func (s *Server) allDocs(r *http.Request) (int, interface{}, error) {
	db, err := s.database(r)
	if err != nil {
		return 0, nil, err
	}
	opts, err := query.AllDocs(r.URL.Query())
	if err != nil {
		return 0, nil, err
	}
	res, err := db.AllDocuments(opts)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, res, nil
}

func (s *Server) stats(r *http.Request) (int, interface{}, error) {
	db, err := s.database(r)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, db.Stats(), nil
}

func (s *Server) view(r *http.Request) (int, interface{}, error) {
	db, err := s.database(r)
	if err != nil {
		return 0, nil, err
	}
	opts, err := query.View(r.URL.Query())
	if err != nil {
		return 0, nil, err
	}
	res, err := db.View(r.PathValue("ddoc"), r.PathValue("view"), opts)
	if err != nil {
		return 0, nil, errors.WithMessagef(err, "view %s/%s", r.PathValue("ddoc"), r.PathValue("view"))
	}
	return http.StatusOK, res, nil
}

// --------------------------------------------------------------------------
// Documents
// --------------------------------------------------------------------------

func (s *Server) getDoc(id idFunc) apiFunc {
	return func(r *http.Request) (int, interface{}, error) {
		db, err := s.database(r)
		if err != nil {
			return 0, nil, err
		}
		opts, err := query.Load(r.URL.Query())
		if err != nil {
			return 0, nil, err
		}
		doc, err := db.Load(id(r), opts)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, doc, nil
	}
}

// putDoc stores the body under the id. Query parameters (batch, ...) are ignored.
func (s *Server) putDoc(id idFunc) apiFunc {
	return func(r *http.Request) (int, interface{}, error) {
		db, err := s.database(r)
		if err != nil {
			return 0, nil, err
		}
		body, err := readBody(r)
		if err != nil {
			return 0, nil, err
		}
		res, err := db.Put(id(r), body)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusCreated, res, nil
	}
}

func (s *Server) deleteDoc(id idFunc) apiFunc {
	return func(r *http.Request) (int, interface{}, error) {
		db, err := s.database(r)
		if err != nil {
			return 0, nil, err
		}
		rev, err := query.DeleteRev(r.URL.Query())
		if err != nil {
			return 0, nil, err
		}
		if err := db.Delete(id(r), rev); err != nil {
			return 0, nil, err
		}
		return http.StatusOK, store.WriteResult{Ok: true, ID: id(r), Rev: rev}, nil
	}
}

func (s *Server) copyDoc(r *http.Request) (int, interface{}, error) {
	db, err := s.database(r)
	if err != nil {
		return 0, nil, err
	}
	dst, rev, err := query.Destination(r.Header.Get("Destination"))
	if err != nil {
		return 0, nil, err
	}
	res, err := db.Copy(r.PathValue("doc"), dst, rev)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusCreated, res, nil
}
