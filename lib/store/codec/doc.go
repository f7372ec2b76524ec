// Package codec provides the document encodings a local store uses to turn a
// store.Document into the byte values kept by a db.DocDB engine and back.
//
// Key Components:
//
//   - ICodec: Core interface that all codec implementations must satisfy.
//
//   - jsonCodecImpl: encoding/json. Human readable and the default.
//
//   - msgpackCodecImpl: github.com/vmihailenco/msgpack/v5 with sorted map keys.
//     Smaller payloads and faster decoding of large documents. Decoded numbers
//     are normalized to float64 so views compare values the same way regardless
//     of the codec in use.
//
// Codecs are selected by name with New ("json" or "msgpack"), which is how the
// server configuration refers to them.
package codec
