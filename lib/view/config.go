package view

// Config names the document fields the view strategies rely on.
type Config struct {
	// KindField holds the class name used to tell polymorphic collections apart.
	KindField string
	// SoftDeleteField marks a document as soft deleted when it holds a present value.
	SoftDeleteField string
	// CreatedAtField is the sort field of association views.
	CreatedAtField string
	// SoftDeleteMarker is searched in the map source of views without a deleted suffix.
	SoftDeleteMarker string
}

// DefaultConfig returns the field names used by the SimplyStored conventions.
func DefaultConfig() Config {
	return Config{
		KindField:        "ruby_class",
		SoftDeleteField:  "deleted_at",
		CreatedAtField:   "created_at",
		SoftDeleteMarker: `"soft" deleted`,
	}
}

// withDefaults fills every empty field from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.KindField == "" {
		c.KindField = d.KindField
	}
	if c.SoftDeleteField == "" {
		c.SoftDeleteField = d.SoftDeleteField
	}
	if c.CreatedAtField == "" {
		c.CreatedAtField = d.CreatedAtField
	}
	if c.SoftDeleteMarker == "" {
		c.SoftDeleteMarker = d.SoftDeleteMarker
	}
	return c
}
