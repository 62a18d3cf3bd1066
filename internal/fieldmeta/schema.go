package fieldmeta

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Schema is the set of entities declared in one schema file.
type Schema struct {
	entities map[string]*Entity
	order    []string
}

func (s *Schema) add(e *Entity) {
	if s.entities == nil {
		s.entities = make(map[string]*Entity)
	}
	if _, ok := s.entities[e.Name]; !ok {
		s.order = append(s.order, e.Name)
	}
	s.entities[e.Name] = e
}

// Entity returns the named entity. With an empty name, a schema declaring
// exactly one entity returns it.
func (s *Schema) Entity(name string) (*Entity, error) {
	if name == "" {
		if len(s.order) == 1 {
			return s.entities[s.order[0]], nil
		}
		return nil, fmt.Errorf("schema declares %d entities; pick one of %s", len(s.order), strings.Join(s.Names(), ", "))
	}
	e, ok := s.entities[name]
	if !ok {
		return nil, fmt.Errorf("entity %q not found in schema (have %s)", name, strings.Join(s.Names(), ", "))
	}
	return e, nil
}

// Names returns the entity names in sorted order.
func (s *Schema) Names() []string {
	names := append([]string(nil), s.order...)
	sort.Strings(names)
	return names
}

// Load reads a schema file, choosing the format from its extension.
func Load(path string) (*Schema, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return LoadCUE(path)
	case ".yaml", ".yml":
		return LoadYAML(path)
	default:
		return nil, fmt.Errorf("unsupported schema file %s: want .cue, .yaml or .yml", path)
	}
}
