package sqlstore

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect is the SQL flavour of a tenant database.
type Dialect string

const (
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
)

// DialectFor maps a configured driver name to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "postgres", "pgx":
		return Postgres, nil
	case "mysql":
		return MySQL, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Rebind rewrites ? placeholders into the dialect's form.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// insertIgnore completes an INSERT so that rows whose key exists are skipped.
func (d Dialect) insertIgnore(insert, keyColumn string) string {
	if d == MySQL {
		return insert + " ON DUPLICATE KEY UPDATE " + keyColumn + " = " + keyColumn
	}
	return insert + " ON CONFLICT DO NOTHING"
}

// upsert completes an INSERT so that rows whose key exists get the listed
// columns replaced by the incoming values.
func (d Dialect) upsert(insert string, key []string, set []string) string {
	parts := make([]string, len(set))
	if d == MySQL {
		for i, c := range set {
			parts[i] = fmt.Sprintf("%s = VALUES(%s)", c, c)
		}
		return insert + " ON DUPLICATE KEY UPDATE " + strings.Join(parts, ", ")
	}
	for i, c := range set {
		parts[i] = fmt.Sprintf("%s = EXCLUDED.%s", c, c)
	}
	return insert + " ON CONFLICT (" + strings.Join(key, ", ") + ") DO UPDATE SET " + strings.Join(parts, ", ")
}

// upsertGreatest is an upsert of a single column that never moves backwards.
func (d Dialect) upsertGreatest(insert, table string, key []string, column string) string {
	if d == MySQL {
		return fmt.Sprintf("%s ON DUPLICATE KEY UPDATE %s = GREATEST(%s, VALUES(%s))", insert, column, column, column)
	}
	return fmt.Sprintf("%s ON CONFLICT (%s) DO UPDATE SET %s = GREATEST(%s.%s, EXCLUDED.%s)",
		insert, strings.Join(key, ", "), column, table, column, column)
}
