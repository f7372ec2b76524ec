// Package query turns URL query parameters into the option structs of the
// store package.
//
// Every operation accepts a fixed set of parameter names; any other name is
// rejected with a *UsageError. Multi-valued parameters use their first value
// and boolean parameters are true only for the literal "true".
//
// View keys (key, startkey, endkey and the *_docid bounds) are JSON encoded on
// the wire. DecodeJSON is lenient: unquoted scalars such as key=Bert are
// accepted as strings.
package query
