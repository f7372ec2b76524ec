package view

import (
	"fmt"
	"strings"

	"github.com/jinzhu/inflection"
)

// --------------------------------------------------------------------------
// Strategies
// --------------------------------------------------------------------------

// Strategy is the closed set of supported view shapes.
type Strategy int

const (
	// StrategyAllDocuments lists the whole store ordered by id. It is only used
	// internally by the all documents listing and never selected by a view name.
	StrategyAllDocuments Strategy = iota
	// StrategyAllByClass is the all_documents view of a design document.
	StrategyAllByClass
	// StrategyByAttributes is by_<attr>[_and_<attr>...].
	StrategyByAttributes
	// StrategyBelongsTo is association_<design>_belongs_to_<ref>.
	StrategyBelongsTo
	// StrategyHasAndBelongsToMany is association_<design>_has_and_belongs_to_many_<refs>.
	StrategyHasAndBelongsToMany
)

func (s Strategy) String() string {
	switch s {
	case StrategyAllDocuments:
		return "AllDocuments"
	case StrategyAllByClass:
		return "AllByClass"
	case StrategyByAttributes:
		return "ByAttributes"
	case StrategyBelongsTo:
		return "BelongsTo"
	case StrategyHasAndBelongsToMany:
		return "HasAndBelongsToMany"
	default:
		return "Unknown"
	}
}

// DeletedMode says how soft deleted documents are treated.
type DeletedMode int

const (
	// DeletedDefault leaves the decision to the WithoutDeleted query option.
	DeletedDefault DeletedMode = iota
	// DeletedHide filters soft deleted documents.
	DeletedHide
	// DeletedShow keeps soft deleted documents.
	DeletedShow
)

func (m DeletedMode) String() string {
	switch m {
	case DeletedHide:
		return "hide"
	case DeletedShow:
		return "show"
	default:
		return "default"
	}
}

// --------------------------------------------------------------------------
// Plan
// --------------------------------------------------------------------------

// Plan is a parsed view name. It is computed once per view definition and
// tells the engine which filters and which sort field to apply.
type Plan struct {
	Design   string
	Name     string // view name without the deleted suffix
	Strategy Strategy

	// Attributes are the document fields compared against the query keys. For
	// association views this is the single synthesized foreign key field.
	Attributes []string
	// SortField orders the result. Nulls sort first ascending and last descending.
	SortField string
	// OwnerField is the field of the key document that lists the ids of the
	// associated documents (has-and-belongs-to-many only).
	OwnerField string

	Deleted DeletedMode
}

// UnknownViewError is returned for view names that match none of the
// supported shapes. It is deliberately not a store.Error.
type UnknownViewError struct {
	Design string
	View   string
}

func (e *UnknownViewError) Error() string {
	return fmt.Sprintf("unknown view implementation for view %q in design document _design/%s", e.View, e.Design)
}

var deletedSuffixes = []struct {
	suffix string
	mode   DeletedMode
}{
	{"_withoutdeleted", DeletedHide},
	{"_without_deleted", DeletedHide},
	{"_withdeleted", DeletedShow},
	{"_with_deleted", DeletedShow},
}

// AllDocumentsPlan returns the plan of the whole store listing.
func AllDocumentsPlan() Plan {
	return Plan{
		Name:       "_all_docs",
		Strategy:   StrategyAllDocuments,
		Attributes: []string{"_id"},
		SortField:  "_id",
		Deleted:    DeletedShow,
	}
}

// Parse turns a raw view name into a Plan. mapSource is the map function of the
// view; it is only searched for the soft delete marker, never executed.
func Parse(design, rawName, mapSource string, cfg Config) (Plan, error) {
	cfg = cfg.withDefaults()

	plan := Plan{Design: design, Name: rawName}

	// the suffix decides soft deletion, otherwise the map source is sniffed
	suffixed := false
	for _, s := range deletedSuffixes {
		if name, ok := strings.CutSuffix(rawName, s.suffix); ok {
			plan.Name, plan.Deleted, suffixed = name, s.mode, true
			break
		}
	}
	if !suffixed && strings.Contains(mapSource, cfg.SoftDeleteMarker) {
		plan.Deleted = DeletedHide
	}

	name := plan.Name
	belongsTo := "association_" + design + "_belongs_to_"
	habtm := "association_" + design + "_has_and_belongs_to_many_"

	switch {
	case name == "all_documents":
		plan.Strategy = StrategyAllByClass
		plan.SortField = "_id"

	case strings.HasPrefix(name, belongsTo) && isWord(name[len(belongsTo):]):
		plan.Strategy = StrategyBelongsTo
		plan.Attributes = []string{foreignKey(name[len(belongsTo):])}
		plan.SortField = cfg.CreatedAtField

	case strings.HasPrefix(name, habtm) && isWord(name[len(habtm):]):
		plan.Strategy = StrategyHasAndBelongsToMany
		plan.Attributes = []string{idsField(name[len(habtm):])}
		plan.OwnerField = idsField(design)
		plan.SortField = cfg.CreatedAtField

	case strings.HasPrefix(name, "by_") && isWord(name[len("by_"):]):
		plan.Strategy = StrategyByAttributes
		plan.Attributes = strings.Split(name[len("by_"):], "_and_")
		plan.SortField = plan.Attributes[0]

	default:
		return Plan{}, &UnknownViewError{Design: design, View: rawName}
	}

	return plan, nil
}

// isWord reports whether s is a non-empty run of word characters ([A-Za-z0-9_]).
func isWord(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_') {
			return false
		}
	}
	return true
}

// foreignKey returns the field a belongs-to association stores the owner id in.
// Namespaces are flattened with a double underscore: Admin::User -> admin__user_id.
func foreignKey(ref string) string {
	key := underscore(ref)
	key = strings.ReplaceAll(key, "/", "__")
	key = strings.ReplaceAll(key, "::", "__")
	return key + "_id"
}

// idsField returns the field a has-and-belongs-to-many association stores the
// associated ids in: groups -> group_ids.
func idsField(name string) string {
	key := inflection.Singular(underscore(name))
	key = strings.ReplaceAll(key, "/", "__")
	return key + "_ids"
}
