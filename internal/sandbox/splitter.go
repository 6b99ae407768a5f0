// Package sandbox implements the SQLite sandbox of spec §4.4-§4.6: body
// extraction, statement splitting, T-SQL-to-SQLite dialect adaptation,
// schema inference and seeding, and the orchestrator that drives a local
// mattn/go-sqlite3 database and correlates execution back to CFG nodes.
package sandbox

import "strings"

// openers is the set of keywords that open a top-level DML statement
// during splitting (spec §4.4).
var openers = map[string]bool{
	"SELECT": true, "INSERT": true, "UPDATE": true, "DELETE": true,
	"CREATE": true, "DROP": true, "WITH": true,
}

// ExtractBody isolates the procedure body between "AS BEGIN" and the final
// matching END. If no CREATE/ALTER PROCEDURE header is present, the entire
// text is treated as the body.
func ExtractBody(source string) string {
	up := strings.ToUpper(source)
	asIdx := indexWord(up, "AS")
	if asIdx < 0 {
		return source
	}
	beginIdx := indexWordFrom(up, "BEGIN", asIdx+2)
	if beginIdx < 0 {
		return source
	}

	bodyStart := beginIdx + len("BEGIN")
	depth := 1
	i := bodyStart
	for i < len(up) {
		if matchesWordAt(up, i, "BEGIN") {
			depth++
			i += len("BEGIN")
			continue
		}
		if matchesWordAt(up, i, "END") {
			depth--
			if depth == 0 {
				return source[bodyStart:i]
			}
			i += len("END")
			continue
		}
		i++
	}
	return source[bodyStart:]
}

// Statement is one top-level DML statement recovered by Split, with its
// original (pre-adaptation) text; InferSchema adapts it before scanning.
type Statement struct {
	Original string
}

// Split recovers the stream of top-level DML statements from a procedure
// body by scanning line-by-line, per spec §4.4. This is deliberately lossy:
// it drops nested control structure and just captures the DML text, which is
// fine because orchestrator.go never correlates against this list — it
// executes each CFG node's own CfgNode.SqlSnippet directly. Split only feeds
// InferSchema, so a DML statement nested several levels deep under IF/WHILE
// still contributes its table to the inferred schema even on an arm the
// walk may never visit.
func Split(body string) []Statement {
	var stmts []Statement
	var current strings.Builder
	open := false

	flush := func() {
		if open {
			text := strings.TrimSpace(current.String())
			if text != "" {
				stmts = append(stmts, Statement{Original: text})
			}
			current.Reset()
			open = false
		}
	}

	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}

		word := firstWord(strings.ToUpper(trimmed))

		if !open {
			if openers[word] {
				open = true
				current.WriteString(trimmed)
				if strings.HasSuffix(trimmed, ";") {
					flush()
				}
			}
			// control/unrecognised lines outside a statement are dropped
			continue
		}

		// currently inside a statement: a new opener or control line at
		// column start still continues the CURRENT statement unless it
		// terminates with ';'
		current.WriteString(" ")
		current.WriteString(trimmed)

		if strings.HasSuffix(trimmed, ";") {
			flush()
		}
	}
	flush()

	return stmts
}

func firstWord(s string) string {
	i := strings.IndexAny(s, " \t(")
	if i < 0 {
		return s
	}
	return s[:i]
}

func indexWord(up, word string) int {
	return indexWordFrom(up, word, 0)
}

func indexWordFrom(up, word string, from int) int {
	for i := from; i+len(word) <= len(up); i++ {
		if matchesWordAt(up, i, word) {
			return i
		}
	}
	return -1
}

// matchesWordAt reports whether word occurs at byte offset i in up with
// word boundaries on both sides (so "BEGIN" doesn't match inside "BEGINNING").
func matchesWordAt(up string, i int, word string) bool {
	if i+len(word) > len(up) || up[i:i+len(word)] != word {
		return false
	}
	if i > 0 && isWordByte(up[i-1]) {
		return false
	}
	end := i + len(word)
	if end < len(up) && isWordByte(up[end]) {
		return false
	}
	return true
}

func isWordByte(c byte) bool {
	return c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}
