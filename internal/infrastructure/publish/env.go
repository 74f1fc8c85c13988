package publish

import (
	"strings"

	"github.com/relicta-tech/revlabel/internal/domain/label"
)

// Environ returns base with facts applied as NAME=VALUE entries. Existing
// entries with the same name are replaced; base is not modified.
func Environ(base []string, facts label.FactSet) []string {
	names := make(map[string]struct{}, len(facts))
	for _, f := range facts {
		names[f.Name] = struct{}{}
	}

	env := make([]string, 0, len(base)+len(facts))
	for _, kv := range base {
		name, _, _ := strings.Cut(kv, "=")
		if _, replaced := names[name]; replaced {
			continue
		}
		env = append(env, kv)
	}
	for _, f := range facts {
		env = append(env, f.Name+"="+f.Value)
	}
	return env
}
