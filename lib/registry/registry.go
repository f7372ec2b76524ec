package registry

import (
	"sort"

	"github.com/ValentinKolb/dCouch/lib/db"
	"github.com/ValentinKolb/dCouch/lib/db/engines/maple"
	"github.com/ValentinKolb/dCouch/lib/store"
	"github.com/ValentinKolb/dCouch/lib/store/lstore"
	"github.com/ValentinKolb/dCouch/lib/view"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("registry")

// StoreFactory creates the store backing a newly created database.
type StoreFactory func(name string) store.IStore

// LocalFactory returns a StoreFactory creating local stores on the maple
// engine. All stores share one view engine and therefore one plan cache.
func LocalFactory(opts *lstore.Options) StoreFactory {
	if opts == nil {
		opts = lstore.DefaultOptions()
	}
	shared := *opts
	if shared.Views == nil {
		shared.Views = view.New(shared.View)
	}
	engine := func() db.DocDB { return maple.NewMapleDB(maple.DefaultOptions()) }
	return func(name string) store.IStore {
		return lstore.NewLocalStore(engine, &shared)
	}
}

// ServerInfo is the answer of the server root.
type ServerInfo struct {
	CouchDB string `json:"couchdb"`
	Version string `json:"version"`
}

// DatabaseInfo is the metadata of one database. Apart from the name and the
// document count all fields carry fixed placeholder values.
type DatabaseInfo struct {
	DBName            string `json:"db_name"`
	DocCount          int    `json:"doc_count"`
	DocDelCount       int    `json:"doc_del_count"`
	UpdateSeq         int    `json:"update_seq"`
	PurgeSeq          int    `json:"purge_seq"`
	CompactRunning    bool   `json:"compact_running"`
	DiskSize          int    `json:"disk_size"`
	InstanceStartTime string `json:"instance_start_time"`
	DiskFormatVersion int    `json:"disk_format_version"`
}

// Registry is the catalog of named databases. It replaces a process wide
// database table: every server, test or tool owns its own Registry.
//
// Thread-safety: All methods are safe for concurrent use.
type Registry struct {
	factory StoreFactory
	dbs     *xsync.MapOf[string, store.IStore]
}

// New creates an empty registry. Databases are created with factory.
func New(factory StoreFactory) *Registry {
	return &Registry{
		factory: factory,
		dbs:     xsync.NewMapOf[string, store.IStore](),
	}
}

// Info returns the fixed server info.
func (r *Registry) Info() ServerInfo {
	return ServerInfo{CouchDB: "Welcome", Version: "0.10.1"}
}

// AllDBs returns the names of all databases in sorted order.
func (r *Registry) AllDBs() []string {
	names := make([]string, 0, r.dbs.Size())
	r.dbs.Range(func(name string, _ store.IStore) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}

// Create creates a fresh, empty database. An existing database of the same
// name is replaced and its content discarded.
func (r *Registry) Create(name string) store.IStore {
	s := r.factory(name)
	if old, loaded := r.dbs.LoadAndStore(name, s); loaded {
		Logger.Infof("replacing database %s", name)
		closeStore(name, old)
	} else {
		Logger.Infof("created database %s", name)
	}
	return s
}

// Delete removes the database. Deleting an unknown database is not an error.
func (r *Registry) Delete(name string) {
	if old, loaded := r.dbs.LoadAndDelete(name); loaded {
		Logger.Infof("deleted database %s", name)
		closeStore(name, old)
	}
}

// Get returns the named database or a not found error (no_db_file).
func (r *Registry) Get(name string) (store.IStore, error) {
	s, ok := r.dbs.Load(name)
	if !ok {
		return nil, store.ErrDatabaseNotFound()
	}
	return s, nil
}

// GetOrCreate returns the named database, creating it if needed.
func (r *Registry) GetOrCreate(name string) store.IStore {
	s, loaded := r.dbs.LoadOrCompute(name, func() store.IStore {
		return r.factory(name)
	})
	if !loaded {
		Logger.Infof("created database %s", name)
	}
	return s
}

// Reset drops every database.
func (r *Registry) Reset() {
	for _, name := range r.AllDBs() {
		r.Delete(name)
	}
}

// UUIDs mints n fresh ids.
func (r *Registry) UUIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = lstore.NewID()
	}
	return ids
}

// DatabaseInfo returns the metadata of the named database.
func (r *Registry) DatabaseInfo(name string) (DatabaseInfo, error) {
	s, err := r.Get(name)
	if err != nil {
		return DatabaseInfo{}, err
	}
	return DatabaseInfo{
		DBName:            name,
		DocCount:          s.Count(),
		DocDelCount:       0,
		UpdateSeq:         10,
		PurgeSeq:          0,
		CompactRunning:    false,
		DiskSize:          16473,
		InstanceStartTime: "1265409273572320",
		DiskFormatVersion: 4,
	}, nil
}

func closeStore(name string, s store.IStore) {
	if err := s.Close(); err != nil {
		Logger.Warningf("closing database %s failed: %v", name, err)
	}
}
