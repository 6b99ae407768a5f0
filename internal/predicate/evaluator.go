// Package predicate implements the best-effort static predicate evaluator
// of spec §4.2: it recognises a closed set of predicate shapes against a
// parameter binding and returns Some(true)/Some(false)/None (unpredictable)
// for everything else.
package predicate

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/maypok86/otter"
)

// Verdict is the ternary result of evaluating a predicate.
type Verdict int

const (
	// Unpredictable means the shape isn't supported, the parameter is
	// unbound, or comparison hit a null-valued parameter (SQL three-valued
	// logic — never reported as false).
	Unpredictable Verdict = iota
	True
	False
)

// Binding is a per-run immutable parameter binding, keyed by normalised
// name (leading "@" enforced, case-insensitive lookup).
type Binding map[string]any

// Normalize returns the binding key for a parameter name.
func Normalize(name string) string {
	if !strings.HasPrefix(name, "@") {
		name = "@" + name
	}
	return strings.ToUpper(name)
}

// Get performs a case-insensitive, "@"-normalised lookup.
func (b Binding) Get(name string) (any, bool) {
	key := Normalize(name)
	if v, ok := b[key]; ok {
		return v, true
	}
	for k, v := range b {
		if Normalize(k) == key {
			return v, true
		}
	}
	return nil, false
}

// Evaluator evaluates predicate snippets against a Binding. It memoises
// results, mirroring the teacher's otter.Cache-backed file cache in
// internal/graph/searcher.go, to give the documented idempotence a cheap
// and observable backing store rather than relying on determinism alone.
type Evaluator struct {
	cache otter.Cache[string, Verdict]
}

// New builds an Evaluator with a bounded memoisation cache.
func New() *Evaluator {
	cache, err := otter.MustBuilder[string, Verdict](4096).
		CollectStats().
		Build()
	if err != nil {
		// otter only fails to build on invalid capacity; 4096 is always
		// valid, so fall back to an unmemoised evaluator rather than panic.
		return &Evaluator{}
	}
	return &Evaluator{cache: cache}
}

// Eval evaluates a trimmed predicate snippet against a binding.
func (e *Evaluator) Eval(snippet string, binding Binding) Verdict {
	key := fingerprint(snippet, binding)
	if e.cache != nil {
		if v, ok := e.cache.Get(key); ok {
			return v
		}
	}
	v := eval(snippet, binding)
	if e.cache != nil {
		e.cache.Set(key, v)
	}
	return v
}

func fingerprint(snippet string, binding Binding) string {
	keys := make([]string, 0, len(binding))
	for k := range binding {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(snippet))
	sb.WriteByte('|')
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(toStr(binding[k]))
		sb.WriteByte(';')
	}
	return sb.String()
}

// Close releases the memoisation cache's background resources.
func (e *Evaluator) Close() {
	if e.cache != nil {
		e.cache.Close()
	}
}

func toStr(v any) string {
	if v == nil {
		return "<nil>"
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
