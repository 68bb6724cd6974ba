package introspection

import (
	"sort"

	schema "github.com/michael-watson/federation/internal/schema"
)

func sortedTypeNames(s *schema.Schema) []string {
	names := make([]string, 0, len(s.Types))
	for name := range s.Types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedDirectiveNames(s *schema.Schema) []string {
	names := make([]string, 0, len(s.Directives))
	for name := range s.Directives {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
