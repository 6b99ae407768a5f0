package sandbox

import (
	"regexp"
	"strings"
)

// funcRenames maps a T-SQL builtin to its SQLite equivalent (spec §4.4).
var funcRenames = map[string]string{
	"GETDATE":     "datetime('now')",
	"SYSDATETIME": "datetime('now')",
	"NEWID":       "hex(randomblob(16))",
	"ISNULL":      "IFNULL",
	"LEN":         "LENGTH",
	"SUSER_NAME":  "'sandbox_user'",
}

var (
	bracketIdent   = regexp.MustCompile(`\[([^\]]+)\]`)
	schemaPrefix   = regexp.MustCompile(`(?i)\bdbo\.`)
	nolockHint     = regexp.MustCompile(`(?i)\s*WITH\s*\(\s*NOLOCK\s*\)`)
	generalHint    = regexp.MustCompile(`(?i)\s*WITH\s*\([^)]*\)`)
	nationalString = regexp.MustCompile(`\bN'`)
	topClause      = regexp.MustCompile(`(?i)\bSELECT\s+TOP\s*\(?\s*(\d+)\s*\)?\s`)
	getdateCall    = regexp.MustCompile(`(?i)\bGETDATE\s*\(\s*\)`)
	sysdatetimeCal = regexp.MustCompile(`(?i)\bSYSDATETIME\s*\(\s*\)`)
	newidCall      = regexp.MustCompile(`(?i)\bNEWID\s*\(\s*\)`)
	isnullCall     = regexp.MustCompile(`(?i)\bISNULL\s*\(`)
	lenCall        = regexp.MustCompile(`(?i)\bLEN\s*\(`)
	suserCall      = regexp.MustCompile(`(?i)\bSUSER_NAME\s*\(\s*\)`)

	nvarcharType = regexp.MustCompile(`(?i)\bN?VARCHAR\s*\(\s*(?:\d+|MAX)\s*\)`)
	decimalType  = regexp.MustCompile(`(?i)\bDECIMAL\s*\(\s*\d+\s*,\s*\d+\s*\)`)
	floatType    = regexp.MustCompile(`(?i)\bFLOAT\b`)
	bitType      = regexp.MustCompile(`(?i)\bBIT\b`)
	identityType = regexp.MustCompile(`(?i)\bIDENTITY\s*\(\s*\d+\s*,\s*\d+\s*\)`)
)

// Adapt rewrites a single T-SQL statement into text mattn/go-sqlite3 accepts,
// applying the fixed substitution sequence of spec §4.4: function renames,
// type simplifications, schema-prefix stripping, then hint stripping (the
// specific NOLOCK rule before the general WITH (...) rule). Bracketed
// identifiers become double-quoted ones and national string literals lose
// their N prefix so the statement parses at all; SELECT TOP n becomes a
// trailing LIMIT n so the row cap still applies once NOLOCK-style hints are
// gone. This is deliberately narrow — anything outside these rules is passed
// through unchanged and may fail at execution time, which the orchestrator
// surfaces as an error event rather than masking.
func Adapt(stmt string) string {
	s := stmt

	s = getdateCall.ReplaceAllString(s, funcRenames["GETDATE"])
	s = sysdatetimeCal.ReplaceAllString(s, funcRenames["SYSDATETIME"])
	s = newidCall.ReplaceAllString(s, funcRenames["NEWID"])
	s = isnullCall.ReplaceAllString(s, funcRenames["ISNULL"]+"(")
	s = lenCall.ReplaceAllString(s, funcRenames["LEN"]+"(")
	s = suserCall.ReplaceAllString(s, funcRenames["SUSER_NAME"])

	s = nvarcharType.ReplaceAllString(s, "TEXT")
	s = decimalType.ReplaceAllString(s, "REAL")
	s = floatType.ReplaceAllString(s, "REAL")
	s = bitType.ReplaceAllString(s, "INTEGER")
	s = identityType.ReplaceAllString(s, "AUTOINCREMENT")

	s = schemaPrefix.ReplaceAllString(s, "")

	s = nolockHint.ReplaceAllString(s, "")
	s = generalHint.ReplaceAllString(s, "")

	s = bracketIdent.ReplaceAllString(s, `"$1"`)
	s = nationalString.ReplaceAllString(s, "'")

	if m := topClause.FindStringSubmatchIndex(s); m != nil {
		n := s[m[2]:m[3]]
		s = s[:m[0]] + "SELECT " + s[m[1]:]
		s = strings.TrimRight(s, " \t;")
		s += " LIMIT " + n
	}

	return strings.TrimSpace(s)
}

// sqlTypeToSQLite maps a T-SQL column type to one of SQLite's type
// affinities (spec §4.5). Unrecognised types default to TEXT, SQLite's
// most permissive affinity.
func sqlTypeToSQLite(sqlType string) string {
	t := strings.ToUpper(strings.TrimSpace(sqlType))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = t[:i]
	}
	t = strings.TrimSpace(t)

	switch t {
	case "INT", "BIGINT", "SMALLINT", "TINYINT", "BIT":
		return "INTEGER"
	case "DECIMAL", "NUMERIC", "FLOAT", "REAL", "MONEY", "SMALLMONEY":
		return "REAL"
	case "DATETIME", "DATETIME2", "DATE", "SMALLDATETIME", "TIME":
		return "TEXT"
	default:
		return "TEXT"
	}
}
