package db

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplMaple Implementation = "maple"
)

// Feature represents database features as bit flags
type Feature uint64

const (
	FeatureSet    Feature = 1 << iota // Support for Set operations
	FeatureGet                        // Support for Get operations
	FeatureDelete                     // Support for Delete operations
	FeatureHas                        // Support for Has operations
	FeatureRange                      // Support for Range operations
	FeatureCount                      // Support for Count operations
)

func (f Feature) String() string {
	switch f {
	case FeatureSet:
		return "Set"
	case FeatureGet:
		return "Get"
	case FeatureDelete:
		return "Delete"
	case FeatureHas:
		return "Has"
	case FeatureRange:
		return "Range"
	case FeatureCount:
		return "Count"
	default:
		return "Unknown"
	}
}

type DatabaseInfo struct {
	SizeBytes         int            `json:"size_bytes"`
	Entries           int            `json:"entries"`
	DbType            Implementation `json:"db_type"`
	SupportedFeatures []Feature      `json:"supported_features"`
	Metadata          interface{}    `json:"metadata"`
}

// --------------------------------------------------------------------------
// Database Interface
// --------------------------------------------------------------------------

// DocDB defines an interface for raw document engines.
// An engine maps a document id to the encoded document bytes and knows nothing
// about revisions, views or the document format. Those concerns live in the
// store layer on top of it.
// Implementations can vary in their feature support, which can be queried with SupportsFeature.
type DocDB interface {

	// --------------------------------------------------------------------------
	// Write Operations
	// --------------------------------------------------------------------------

	// Set inserts or replaces the encoded document stored under id.
	Set(id string, value []byte)

	// Delete removes the document stored under id. Deleting a missing id is a no-op.
	Delete(id string)

	// --------------------------------------------------------------------------
	// Query Operations
	// --------------------------------------------------------------------------

	// Get retrieves the encoded document for an exact id.
	// The boolean return value indicates whether a document was found.
	// The returned slice is a copy and may be modified by the caller.
	Get(id string) (value []byte, loaded bool)

	// Has checks whether an id exists in the database.
	Has(id string) (loaded bool)

	// Range calls fn for every stored document until fn returns false.
	// The iteration order is unspecified. Values passed to fn must not be retained.
	Range(fn func(id string, value []byte) bool)

	// Count returns the number of stored documents.
	Count() (n int)

	// --------------------------------------------------------------------------
	// Feature Support
	// --------------------------------------------------------------------------

	// SupportsFeature checks if the database implementation supports the specified feature.
	// Multiple features can be checked at once using bitwise OR (|) operator.
	SupportsFeature(feature Feature) (ok bool)

	// GetInfo returns information about the database.
	GetInfo() (info DatabaseInfo)

	// WriteIdx returns the number of writes (sets and deletes) applied so far.
	WriteIdx() (index uint64)

	// Close releases the database. It must not be used afterwards.
	Close() (err error)
}
