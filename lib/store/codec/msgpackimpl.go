package codec

import (
	"bytes"
	"fmt"

	"github.com/ValentinKolb/dCouch/lib/store"
	"github.com/vmihailenco/msgpack/v5"
)

// NewMsgPackCodec creates a new codec using msgpack encoding.
// Documents are smaller than with JSON and map keys are written sorted.
func NewMsgPackCodec() ICodec {
	return &msgpackCodecImpl{}
}

// msgpackCodecImpl implements the ICodec interface using msgpack encoding
type msgpackCodecImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.ICodec)
// --------------------------------------------------------------------------

func (m msgpackCodecImpl) Name() string {
	return NameMsgPack
}

func (m msgpackCodecImpl) Encode(doc store.Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.GetEncoder()
	defer msgpack.PutEncoder(enc)

	enc.Reset(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(map[string]interface{}(doc)); err != nil {
		return nil, fmt.Errorf("failed to encode document using MsgPack: %w", err)
	}
	return buf.Bytes(), nil
}

func (m msgpackCodecImpl) Decode(b []byte) (store.Document, error) {
	dec := msgpack.GetDecoder()
	defer msgpack.PutDecoder(dec)

	dec.Reset(bytes.NewReader(b))
	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode msgpack document: %w", err)
	}
	if raw == nil {
		raw = map[string]interface{}{}
	}
	return store.Document(normalize(raw).(map[string]interface{})), nil
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

// normalize converts msgpack's native decoding results into the value types
// encoding/json produces (float64 numbers, string keyed maps).
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, e := range t {
			t[k] = normalize(e)
		}
		return t
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, e := range t {
			m[fmt.Sprint(k)] = normalize(e)
		}
		return m
	case []interface{}:
		for i, e := range t {
			t[i] = normalize(e)
		}
		return t
	case int8:
		return float64(t)
	case int16:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case int:
		return float64(t)
	case uint8:
		return float64(t)
	case uint16:
		return float64(t)
	case uint32:
		return float64(t)
	case uint64:
		return float64(t)
	case uint:
		return float64(t)
	case float32:
		return float64(t)
	default:
		return v
	}
}
