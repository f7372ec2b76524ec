package codec

import (
	"fmt"

	"github.com/ValentinKolb/dCouch/lib/store"
)

// ICodec is the interface for all document encodings used between a store
// and its db.DocDB engine.
type ICodec interface {
	// Name returns the name of the codec as used in the configuration
	Name() string
	// Encode encodes a document into a byte array
	Encode(doc store.Document) ([]byte, error)
	// Decode decodes a byte array into a document. Numbers are always
	// returned as float64 so that documents look the same for every codec.
	Decode(b []byte) (store.Document, error)
}

const (
	NameJSON    = "json"
	NameMsgPack = "msgpack"
)

// New returns the codec registered under name.
func New(name string) (ICodec, error) {
	switch name {
	case NameJSON, "":
		return NewJSONCodec(), nil
	case NameMsgPack:
		return NewMsgPackCodec(), nil
	default:
		return nil, fmt.Errorf("unknown codec %q (valid: %s, %s)", name, NameJSON, NameMsgPack)
	}
}
