package common

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/dCouch/lib/store/codec"
	"github.com/ValentinKolb/dCouch/lib/store/lstore"
	"github.com/ValentinKolb/dCouch/lib/view"
)

// --------------------------------------------------------------------------
// helper functions to interface with the store (for the server util)
// --------------------------------------------------------------------------

// ToStoreOptions converts the ServerConfig to options for local stores
func (c *ServerConfig) ToStoreOptions() (*lstore.Options, error) {
	docCodec, err := codec.New(c.Codec)
	if err != nil {
		return nil, err
	}
	return &lstore.Options{
		Codec: docCodec,
		View: view.Config{
			KindField:       c.KindField,
			SoftDeleteField: c.SoftDeleteField,
			CreatedAtField:  c.CreatedAtField,
		},
	}, nil
}

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters of the HTTP server.
type ServerConfig struct {
	// HTTP api settings (host:port or unix:///path/to.sock)
	Endpoint      string
	TimeoutSecond int64

	// Document storage
	Codec    string
	Fixtures string

	// View field conventions (empty = default)
	KindField       string
	SoftDeleteField string
	CreatedAtField  string

	// Logging configuration
	LogLevel string
}

// orDefault returns value or a marker that the default applies.
func orDefault(value, def string) string {
	if value == "" {
		return def + " (default)"
	}
	return value
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	defaults := view.DefaultConfig()

	// RPC settings
	addSection("HTTP Server")
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	// Storage
	addSection("Storage")
	addField("Codec", orDefault(c.Codec, codec.NameJSON))
	if c.Fixtures != "" {
		addField("Fixtures", c.Fixtures)
	} else {
		addField("Fixtures", "none")
	}

	// Views
	addSection("Views")
	addField("Kind Field", orDefault(c.KindField, defaults.KindField))
	addField("Soft Delete Field", orDefault(c.SoftDeleteField, defaults.SoftDeleteField))
	addField("Created At Field", orDefault(c.CreatedAtField, defaults.CreatedAtField))

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	Endpoint      string
	TimeoutSecond int
	RetryCount    int
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Client Configuration")
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", fmt.Sprintf("%d", c.RetryCount))

	return sb.String()
}
