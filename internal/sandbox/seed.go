package sandbox

import (
	"database/sql"
	"fmt"
	"math/rand"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// seedSeed is 42, fixed so two sandbox runs over the same inferred schema
// produce byte-identical seed data (spec §4.5).
const seedSeed = 42

var vocab = map[string][]string{
	"product":  {"Widget", "Gadget", "Gizmo", "Doohickey", "Thingamajig"},
	"name":     {"Alice Chen", "Bob Diaz", "Carla Nunez", "Dev Patel", "Eve Okafor"},
	"email":    {"a@example.com", "b@example.com", "c@example.com", "d@example.com"},
	"status":   {"pending", "active", "completed", "cancelled"},
	"category": {"hardware", "software", "service", "subscription"},
}

// rowCount returns the number of rows seeded into a table with the given
// column count: min(5+columnCount, 12), per spec §4.5.
func rowCount(columnCount int) int {
	n := 5 + columnCount
	if n > 12 {
		n = 12
	}
	return n
}

// Seed inserts deterministic rows into each inferred table via db. It uses
// squirrel to build the INSERT statements, the same query-builder the
// teacher's internal/storage/graph_writer.go uses for writes. report, if
// non-nil, is invoked after each row so a caller can drive a progress bar;
// it is never required for correctness.
func Seed(db *sql.DB, tables []TableSchema, report func(table string, row, total int)) (int, error) {
	rng := rand.New(rand.NewSource(seedSeed))
	total := 0

	for _, t := range tables {
		n := rowCount(len(t.Columns))
		for row := 0; row < n; row++ {
			var query string
			var args []any

			if len(t.Columns) == 0 {
				// No inferred columns beyond the mandatory Id primary key:
				// SQLite rejects an empty column/value list, so fall back to
				// its DEFAULT VALUES form and let the PK autoincrement.
				query = `INSERT INTO "` + t.Name + `" DEFAULT VALUES`
			} else {
				cols := make([]string, 0, len(t.Columns))
				vals := make([]any, 0, len(t.Columns))
				for _, c := range t.Columns {
					cols = append(cols, c.Name)
					vals = append(vals, seedValue(rng, c, row))
				}

				q, a, err := sq.Insert(`"` + t.Name + `"`).
					Columns(cols...).
					Values(vals...).
					ToSql()
				if err != nil {
					return total, fmt.Errorf("build seed insert for %s: %w", t.Name, err)
				}
				query, args = q, a
			}

			if _, err := db.Exec(query, args...); err != nil {
				return total, fmt.Errorf("seed %s: %w", t.Name, err)
			}
			total++
			if report != nil {
				report(t.Name, row+1, n)
			}
		}
	}
	return total, nil
}

func seedValue(rng *rand.Rand, c ColumnSchema, row int) any {
	lower := strings.ToLower(c.Name)

	// Fixed key order: ranging over the map would pick a different vocabulary
	// between runs for a name that contains two keys (e.g. "ProductName").
	for _, key := range []string{"product", "name", "email", "status", "category"} {
		if strings.Contains(lower, key) {
			words := vocab[key]
			return words[rng.Intn(len(words))]
		}
	}

	switch c.Type {
	case "INTEGER":
		if strings.HasSuffix(lower, "id") {
			return row + 1
		}
		return rng.Intn(100)
	case "REAL":
		return float64(rng.Intn(10000)) / 100.0
	default:
		return fmt.Sprintf("%s_%d", c.Name, row+1)
	}
}
