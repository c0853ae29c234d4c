package drive

import (
	"fmt"
	"strings"
)

// SearchPredicate holds the optional filters of a list or search call.
type SearchPredicate struct {
	// Query matches against the file name ("name contains")
	Query    string
	MimeType string
	ParentID string

	// Trashed overrides the default of excluding trashed files
	Trashed *bool
}

// BuildQuery composes a Drive filter expression from p. Clauses are emitted
// in a fixed order (mimeType, parents, name, trashed) and joined with " and ".
// Exactly one trashed clause is always present.
func BuildQuery(p SearchPredicate) string {
	var clauses []string

	if p.MimeType != "" {
		clauses = append(clauses, fmt.Sprintf("mimeType='%s'", escapeQueryValue(p.MimeType)))
	}
	if p.ParentID != "" {
		clauses = append(clauses, fmt.Sprintf("'%s' in parents", escapeQueryValue(p.ParentID)))
	}
	if p.Query != "" {
		clauses = append(clauses, fmt.Sprintf("name contains '%s'", escapeQueryValue(p.Query)))
	}

	trashed := false
	if p.Trashed != nil {
		trashed = *p.Trashed
	}
	clauses = append(clauses, fmt.Sprintf("trashed=%t", trashed))

	return strings.Join(clauses, " and ")
}

// escapeQueryValue escapes a value for use inside a single-quoted literal.
// Backslashes go first so the escapes added for quotes are not doubled.
func escapeQueryValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
