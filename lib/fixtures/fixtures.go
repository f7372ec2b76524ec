package fixtures

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/ValentinKolb/dCouch/lib/registry"
	"github.com/ValentinKolb/dCouch/lib/store"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var Logger = logger.GetLogger("fixtures")

// File is the content of a fixture file:
//
//	databases:
//	  users:
//	    - _id: _design/user
//	      views:
//	        by_name: {map: "function(doc){}"}
//	    - _id: user_1
//	      ruby_class: User
//	      name: Ann
type File struct {
	Databases map[string][]map[string]interface{} `yaml:"databases"`
}

// Parse decodes a YAML fixture document.
func Parse(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return &File{}, nil
		}
		return nil, errors.Wrap(err, "parse fixtures")
	}
	return &f, nil
}

// LoadFile parses the fixture file at path and applies it to reg.
func LoadFile(path string, reg *registry.Registry) (map[string]int, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open fixtures")
	}
	defer fh.Close()

	f, err := Parse(fh)
	if err != nil {
		return nil, errors.Wrapf(err, "fixtures %s", path)
	}
	return f.Apply(reg)
}

// Apply creates every database of the file (replacing existing ones) and
// stores its documents in order. Documents without _id get a minted id and
// any _rev is dropped. It returns the number of documents stored per database.
func (f *File) Apply(reg *registry.Registry) (map[string]int, error) {
	names := make([]string, 0, len(f.Databases))
	for name := range f.Databases {
		names = append(names, name)
	}
	sort.Strings(names)

	counts := make(map[string]int, len(names))
	for _, name := range names {
		s := reg.Create(name)
		for i, raw := range f.Databases[name] {
			doc, ok := normalize(raw).(map[string]interface{})
			if !ok {
				return counts, errors.Errorf("database %s: document %d is not a mapping", name, i)
			}
			d := store.Document(doc)
			delete(d, store.FieldRev)
			if _, err := s.PutDocument(d.ID(), d); err != nil {
				return counts, errors.Wrapf(err, "database %s: document %d (%s)", name, i, d.ID())
			}
			counts[name]++
		}
		Logger.Infof("loaded %d documents into %s", counts[name], name)
	}
	return counts, nil
}

// normalize converts YAML decoded values into JSON compatible ones.
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[k] = normalize(e)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = normalize(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	case time.Time:
		if t.Equal(t.Truncate(24 * time.Hour)) {
			return t.Format("2006-01-02")
		}
		return t.Format(time.RFC3339Nano)
	default:
		return v
	}
}
