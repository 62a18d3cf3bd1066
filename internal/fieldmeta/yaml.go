package fieldmeta

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadYAML reads a YAML entity schema file.
func LoadYAML(path string) (*Schema, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}
	return ParseYAML(src)
}

// ParseYAML parses a YAML entity schema. Declaration order of entities and
// fields is preserved.
func ParseYAML(src []byte) (*Schema, error) {
	var doc struct {
		Entities yaml.Node `yaml:"entities"`
	}
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	if doc.Entities.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse schema: entities must be a mapping")
	}

	schema := &Schema{}
	for i := 0; i+1 < len(doc.Entities.Content); i += 2 {
		name := doc.Entities.Content[i].Value
		entity, err := parseYAMLEntity(name, doc.Entities.Content[i+1])
		if err != nil {
			return nil, err
		}
		schema.add(entity)
	}
	return schema, nil
}

func parseYAMLEntity(name string, node *yaml.Node) (*Entity, error) {
	var raw struct {
		Table  string    `yaml:"table"`
		Fields yaml.Node `yaml:"fields"`
	}
	if err := node.Decode(&raw); err != nil {
		return nil, fmt.Errorf("entity %s: %w", name, err)
	}
	if raw.Fields.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("entity %s (line %d): fields are required", name, node.Line)
	}

	table := raw.Table
	if table == "" {
		table = name
	}

	var fields []Field
	for i := 0; i+1 < len(raw.Fields.Content); i += 2 {
		var yf yamlField
		if err := raw.Fields.Content[i+1].Decode(&yf); err != nil {
			return nil, fmt.Errorf("entity %s field %s: %w", name, raw.Fields.Content[i].Value, err)
		}
		fields = append(fields, Field{
			Name:   raw.Fields.Content[i].Value,
			Column: yf.Column,
			Type:   yf.Type,
		})
	}
	return NewEntity(name, table, fields...), nil
}

// yamlField accepts either a bare type name or a mapping with column and
// type.
type yamlField struct {
	Column string
	Type   string
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (f *yamlField) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		f.Type = node.Value
		return validateType(f.Type, node.Line)
	}

	var raw struct {
		Column string `yaml:"column"`
		Type   string `yaml:"type"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	f.Column = raw.Column
	f.Type = raw.Type
	if f.Type == "" {
		f.Type = TypeAny
	}
	return validateType(f.Type, node.Line)
}

func validateType(typ string, line int) error {
	switch typ {
	case TypeString, TypeInt, TypeFloat, TypeBool, TypeTime, TypeUUID, TypeBytes, TypeAny:
		return nil
	}
	return fmt.Errorf("line %d: unknown field type %q", line, typ)
}
