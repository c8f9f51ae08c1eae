package internal

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

func sanitizeIdentifier(name string) string {
	if name == "" {
		return ""
	}
	parts := strings.Split(name, ".")
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.Trim(part, " \"")
		if trimmed == "" {
			continue
		}
		clean = append(clean, trimmed)
	}
	if len(clean) == 0 {
		clean = []string{name}
	}
	return pgx.Identifier(clean).Sanitize()
}

// entityIDExpr builds the SQL expression producing a record's entity id from
// the main table's primary key columns. Composite keys are concatenated with
// ':' to match the serialization used in the value store.
func entityIDExpr(table string, primaryKey []string) string {
	if len(primaryKey) == 1 {
		return fmt.Sprintf("%s.%s::text", sanitizeIdentifier(table), sanitizeIdentifier(primaryKey[0]))
	}
	cols := make([]string, 0, len(primaryKey))
	for _, col := range primaryKey {
		cols = append(cols, fmt.Sprintf("%s.%s::text", sanitizeIdentifier(table), sanitizeIdentifier(col)))
	}
	return "concat_ws(':', " + strings.Join(cols, ", ") + ")"
}

// compositeKeySeparator joins primary key parts into one entity id.
const compositeKeySeparator = ":"

// numberPlaceholders rewrites '?' placeholders into PostgreSQL positional
// placeholders, continuing from start. It returns the rewritten SQL and the
// next free index.
func numberPlaceholders(sql string, start int) (string, int) {
	var b strings.Builder
	idx := start
	for _, r := range sql {
		if r == '?' {
			fmt.Fprintf(&b, "$%d", idx)
			idx++
			continue
		}
		b.WriteRune(r)
	}
	return b.String(), idx
}
