package codec

import (
	"encoding/json"

	"github.com/ValentinKolb/dCouch/lib/store"
)

// NewJSONCodec creates a new codec using json encoding
func NewJSONCodec() ICodec {
	return &jsonCodecImpl{}
}

// jsonCodecImpl implements the ICodec interface using json encoding
type jsonCodecImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.ICodec)
// --------------------------------------------------------------------------

func (j jsonCodecImpl) Name() string {
	return NameJSON
}

func (j jsonCodecImpl) Encode(doc store.Document) ([]byte, error) {
	return json.Marshal(doc)
}

func (j jsonCodecImpl) Decode(b []byte) (store.Document, error) {
	var doc store.Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
