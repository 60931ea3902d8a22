// Package sqlxrepos implements the domain repositories on top of sqlx/psql.
package sqlxrepos

import (
	"strings"

	"github.com/trezcool/shule/core"
)

// orderBy renders the ORDER BY clause, falling back to def when no usable
// ordering was requested. Requested fields only make it into the query through
// the repo's column map; unknown fields are dropped.
func orderBy(orderings []core.DBOrdering, columns map[string]string, def string) string {
	parts := make([]string, 0, len(orderings))
	for _, ord := range orderings {
		col, ok := columns[ord.Field]
		if !ok {
			continue
		}
		parts = append(parts, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
	}
	if len(parts) == 0 {
		return def
	}
	return strings.Join(parts, ", ")
}
