package sandbox

import (
	"regexp"
	"sort"
	"strings"
)

// ColumnSchema is one inferred column: a name and a SQLite type affinity.
type ColumnSchema struct {
	Name string
	Type string
}

// TableSchema is one inferred table: a name and its inferred columns, in
// first-seen order.
type TableSchema struct {
	Name    string
	Columns []ColumnSchema
}

var (
	insertInto  = regexp.MustCompile(`(?i)\bINSERT\s+INTO\s+"?([A-Za-z_][A-Za-z0-9_]*)"?\s*\(([^)]*)\)`)
	updateSet   = regexp.MustCompile(`(?i)\bUPDATE\s+"?([A-Za-z_][A-Za-z0-9_]*)"?\s+SET\s+(.+?)(?:\bWHERE\b|$)`)
	deleteFrom  = regexp.MustCompile(`(?i)\bDELETE\s+FROM\s+"?([A-Za-z_][A-Za-z0-9_]*)"?`)
	selectFrom  = regexp.MustCompile(`(?i)\bSELECT\s+(.+?)\s+FROM\s+"?([A-Za-z_][A-Za-z0-9_]*)"?`)
	assignment  = regexp.MustCompile(`"?([A-Za-z_][A-Za-z0-9_]*)"?\s*=`)
	whereCol    = regexp.MustCompile(`(?i)\bWHERE\s+(.+)$`)
	createTable = regexp.MustCompile(`(?i)\bCREATE\s+TABLE\s+"?([A-Za-z_][A-Za-z0-9_]*)"?\s*\(([^;]*)\)`)
	columnDef   = regexp.MustCompile(`^"?([A-Za-z_][A-Za-z0-9_]*)"?\s+([A-Za-z]+(?:\([^)]*\))?)`)
	identToken  = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
)

// InferSchema scans every statement's adapted text for the four table
// reference patterns of spec §4.5 (INSERT INTO, UPDATE ... SET, DELETE FROM,
// SELECT ... FROM) and infers a column set for each table it discovers.
// Scanning operates over the full set of statements recovered from the
// procedure body, including ones under branches the traversal may not
// visit, so the seeded schema never comes up short mid-run because an
// UNPREDICTABLE branch took the path the scan didn't expect.
func InferSchema(stmts []Statement) []TableSchema {
	tables := make(map[string]*TableSchema)
	var order []string

	ensure := func(name string) *TableSchema {
		key := strings.ToLower(name)
		t, ok := tables[key]
		if !ok {
			t = &TableSchema{Name: name}
			tables[key] = t
			order = append(order, key)
		}
		return t
	}
	addTypedColumn := func(t *TableSchema, name, sqliteType string) {
		for _, c := range t.Columns {
			if strings.EqualFold(c.Name, name) {
				return
			}
		}
		t.Columns = append(t.Columns, ColumnSchema{Name: name, Type: sqliteType})
	}
	addColumn := func(t *TableSchema, name string) {
		addTypedColumn(t, name, inferColumnType(name))
	}

	for _, stmt := range stmts {
		text := Adapt(stmt.Original)

		if m := createTable.FindStringSubmatch(text); m != nil {
			t := ensure(m[1])
			for _, part := range strings.Split(m[2], ",") {
				if cm := columnDef.FindStringSubmatch(strings.TrimSpace(part)); cm != nil {
					addTypedColumn(t, cm[1], sqlTypeToSQLite(cm[2]))
				}
			}
			continue
		}

		if m := insertInto.FindStringSubmatch(text); m != nil {
			t := ensure(m[1])
			for _, col := range strings.Split(m[2], ",") {
				col = strings.Trim(strings.TrimSpace(col), `"[]`)
				if col != "" {
					addColumn(t, col)
				}
			}
			continue
		}

		if m := updateSet.FindStringSubmatch(text); m != nil {
			t := ensure(m[1])
			for _, part := range strings.Split(m[2], ",") {
				if am := assignment.FindStringSubmatch(part); am != nil {
					addColumn(t, am[1])
				}
			}
			scanWhereColumns(text, t, addColumn)
			continue
		}

		if m := deleteFrom.FindStringSubmatch(text); m != nil {
			t := ensure(m[1])
			scanWhereColumns(text, t, addColumn)
			continue
		}

		if m := selectFrom.FindStringSubmatch(text); m != nil {
			t := ensure(m[2])
			for _, col := range parseSelectColumns(m[1]) {
				addColumn(t, col)
			}
			scanWhereColumns(text, t, addColumn)
			continue
		}
	}

	sort.Strings(order)
	out := make([]TableSchema, 0, len(order))
	for _, key := range order {
		out = append(out, *tables[key])
	}
	return out
}

// parseSelectColumns splits a SELECT projection list on top-level commas and
// extracts the trailing identifier from each item, per spec §4.5 pattern 2.
// "t.Col AS X" yields X, "t.Col" yields Col, and a bare "*" or "COUNT(*)"
// contributes nothing.
func parseSelectColumns(cols string) []string {
	var out []string
	for _, part := range splitTopLevel(cols) {
		if id := trailingIdentifier(part); id != "" {
			out = append(out, id)
		}
	}
	return out
}

// splitTopLevel splits s on commas that aren't nested inside parentheses, so
// function-call arguments like "COUNT(a, b)" stay together.
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	last := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[last:i])
				last = i + 1
			}
		}
	}
	parts = append(parts, s[last:])
	return parts
}

func trailingIdentifier(part string) string {
	part = strings.TrimSpace(part)
	if part == "" {
		return ""
	}
	normalized := strings.ToUpper(strings.Join(strings.Fields(part), ""))
	if normalized == "*" || normalized == "COUNT(*)" || strings.HasSuffix(normalized, ".*") {
		return ""
	}
	matches := identToken.FindAllString(part, -1)
	if len(matches) == 0 {
		return ""
	}
	return matches[len(matches)-1]
}

func scanWhereColumns(text string, t *TableSchema, addColumn func(*TableSchema, string)) {
	m := whereCol.FindStringSubmatch(text)
	if m == nil {
		return
	}
	for _, am := range assignment.FindAllStringSubmatch(m[1], -1) {
		addColumn(t, am[1])
	}
}

// inferColumnType guesses a SQLite type affinity from a column name's
// shape, per the substring rules of spec §4.5.
func inferColumnType(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "id") && !strings.Contains(lower, "guid"):
		return "INTEGER"
	case strings.Contains(lower, "price"), strings.Contains(lower, "cost"),
		strings.Contains(lower, "amount"), strings.Contains(lower, "total"):
		return "REAL"
	case strings.Contains(lower, "qty"), strings.Contains(lower, "quantity"),
		strings.Contains(lower, "stock"), strings.Contains(lower, "count"),
		strings.Contains(lower, "num"):
		return "INTEGER"
	case strings.Contains(lower, "rate"), strings.Contains(lower, "percent"),
		strings.Contains(lower, "ratio"):
		return "REAL"
	case strings.Contains(lower, "date"), strings.Contains(lower, "time"),
		strings.Contains(lower, "created"), strings.Contains(lower, "updated"),
		strings.Contains(lower, "modified"):
		return "TEXT"
	case strings.Contains(lower, "active"), strings.Contains(lower, "is"),
		strings.Contains(lower, "has"), strings.Contains(lower, "flag"),
		strings.Contains(lower, "enabled"):
		return "INTEGER"
	default:
		return "TEXT"
	}
}

// CreateTableSQL renders a CREATE TABLE IF NOT EXISTS statement for t,
// following the transactional-DDL pattern of the teacher's
// internal/storage/schema.go.
func CreateTableSQL(t TableSchema) string {
	var sb strings.Builder
	sb.WriteString("CREATE TABLE IF NOT EXISTS \"")
	sb.WriteString(t.Name)
	sb.WriteString(`" (Id INTEGER PRIMARY KEY AUTOINCREMENT`)
	for _, c := range t.Columns {
		sb.WriteString(`, "`)
		sb.WriteString(c.Name)
		sb.WriteString(`" `)
		sb.WriteString(c.Type)
		sb.WriteString(" DEFAULT NULL")
	}
	sb.WriteString(")")
	return sb.String()
}
