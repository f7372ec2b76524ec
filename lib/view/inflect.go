package view

import (
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"
)

// classify turns a table or design document name into a class name:
// "users" -> "User", "admin/users" -> "Admin::User", "big_user" -> "BigUser".
// Class names are returned unchanged apart from singularization.
func classify(s string) string {
	if i := strings.LastIndex(s, "."); i >= 0 {
		s = s[i+1:]
	}
	return camelize(inflection.Singular(s))
}

// camelize converts an underscored path into a namespaced class name.
func camelize(s string) string {
	parts := strings.Split(strings.ReplaceAll(s, "::", "/"), "/")
	for i, part := range parts {
		var sb strings.Builder
		upper := true
		for _, r := range part {
			if r == '_' {
				upper = true
				continue
			}
			if upper {
				r = unicode.ToUpper(r)
				upper = false
			}
			sb.WriteRune(r)
		}
		parts[i] = sb.String()
	}
	return strings.Join(parts, "::")
}

// underscore converts a class name into its underscored form:
// "Admin::BigUser" -> "admin/big_user", "HTMLParser" -> "html_parser".
func underscore(s string) string {
	s = strings.ReplaceAll(s, "::", "/")
	rs := []rune(s)

	var sb strings.Builder
	for i, r := range rs {
		if unicode.IsUpper(r) && i > 0 {
			prev := rs[i-1]
			nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				sb.WriteRune('_')
			}
		}
		if r == '-' {
			r = '_'
		}
		sb.WriteRune(unicode.ToLower(r))
	}
	return sb.String()
}
