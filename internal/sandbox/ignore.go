package sandbox

import "github.com/gobwas/glob"

// CompileIgnoreGlobs compiles each pattern into a glob.Glob, the same helper
// shape internal/cli/watch.go uses for ignore-pattern compilation, so a
// malformed pattern in .sqldraw/config.yml fails loudly at load time rather
// than silently matching nothing.
func CompileIgnoreGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, err
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// FilterIgnoredTables drops any inferred table whose name matches one of
// ignore's patterns, so a procedure that touches scratch/temp tables
// (#Staging, tempdb..#Batch) doesn't force the sandbox to seed and preview
// tables the caller doesn't care about.
func FilterIgnoredTables(tables []TableSchema, ignore []glob.Glob) []TableSchema {
	if len(ignore) == 0 {
		return tables
	}
	out := make([]TableSchema, 0, len(tables))
	for _, t := range tables {
		if !matchesAnyGlob(ignore, t.Name) {
			out = append(out, t)
		}
	}
	return out
}

func matchesAnyGlob(globs []glob.Glob, name string) bool {
	for _, g := range globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}
