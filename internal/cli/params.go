package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Abhitodan/SQLDraw/internal/predicate"
)

// parseBindings turns a list of "name=value" flags into a predicate.Binding.
// "NULL" (case-insensitive) binds a literal nil; anything that parses as a
// float64 binds numerically; everything else binds as a string.
func parseBindings(raw []string) (predicate.Binding, error) {
	binding := make(predicate.Binding, len(raw))
	for _, kv := range raw {
		idx := strings.IndexByte(kv, '=')
		if idx < 0 {
			return nil, fmt.Errorf("invalid --param %q: expected name=value", kv)
		}
		name := predicate.Normalize(strings.TrimSpace(kv[:idx]))
		value := strings.TrimSpace(kv[idx+1:])

		switch {
		case strings.EqualFold(value, "NULL"):
			binding[name] = nil
		default:
			if f, err := strconv.ParseFloat(value, 64); err == nil {
				binding[name] = f
			} else {
				binding[name] = value
			}
		}
	}
	return binding, nil
}
