package fieldmeta

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// LoadCUE reads and parses a CUE entity schema file.
func LoadCUE(path string) (*Schema, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}
	return ParseCUE(path, src)
}

// ParseCUE parses a CUE entity schema. filename is used in error positions.
// Uses the CUE SDK's Go API directly.
func ParseCUE(filename string, src []byte) (*Schema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	entitiesVal := v.LookupPath(cue.ParsePath("entities"))
	if !entitiesVal.Exists() {
		return nil, &SchemaError{
			Field:   "entities",
			Message: "entities is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := entitiesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	schema := &Schema{}
	for iter.Next() {
		entity, err := parseCUEEntity(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		schema.add(entity)
	}
	return schema, nil
}

// parseCUEEntity extracts one entity definition.
func parseCUEEntity(name string, v cue.Value) (*Entity, error) {
	table := name
	if tableVal := v.LookupPath(cue.ParsePath("table")); tableVal.Exists() {
		s, err := tableVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		table = s
	}

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return nil, &SchemaError{
			Field:   fmt.Sprintf("entities.%s.fields", name),
			Message: "entity fields are required",
			Pos:     v.Pos(),
		}
	}

	iter, err := fieldsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var fields []Field
	for iter.Next() {
		field, err := parseCUEField(iter.Selector().Unquoted(), iter.Value())
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}
	return NewEntity(name, table, fields...), nil
}

// parseCUEField accepts either a bare type (`Account: string`) or a struct
// with optional column and type (`Id: {column: "id", type: int}`).
func parseCUEField(name string, v cue.Value) (Field, error) {
	field := Field{Name: name}

	if v.IncompleteKind() != cue.StructKind {
		typ, err := cueTypeName(v)
		if err != nil {
			return Field{}, err
		}
		field.Type = typ
		return field, nil
	}

	if colVal := v.LookupPath(cue.ParsePath("column")); colVal.Exists() {
		col, err := colVal.String()
		if err != nil {
			return Field{}, formatCUEError(err)
		}
		field.Column = col
	}

	field.Type = TypeAny
	if typeVal := v.LookupPath(cue.ParsePath("type")); typeVal.Exists() {
		typ, err := cueTypeName(typeVal)
		if err != nil {
			return Field{}, err
		}
		field.Type = typ
	}
	return field, nil
}

// cueTypeName converts a CUE type to a field type name. A concrete string
// names the type directly ("uuid", "time").
func cueTypeName(v cue.Value) (string, error) {
	if v.IsConcrete() && v.Kind() == cue.StringKind {
		s, _ := v.String()
		switch s {
		case TypeString, TypeInt, TypeFloat, TypeBool, TypeTime, TypeUUID, TypeBytes, TypeAny:
			return s, nil
		}
		return "", &SchemaError{
			Field:   "type",
			Message: fmt.Sprintf("unknown field type %q", s),
			Pos:     v.Pos(),
		}
	}

	switch v.IncompleteKind() {
	case cue.StringKind:
		return TypeString, nil
	case cue.IntKind:
		return TypeInt, nil
	case cue.FloatKind, cue.NumberKind:
		return TypeFloat, nil
	case cue.BoolKind:
		return TypeBool, nil
	case cue.BytesKind:
		return TypeBytes, nil
	case cue.TopKind:
		return TypeAny, nil
	default:
		return "", &SchemaError{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// SchemaError represents an invalid schema file with source position.
type SchemaError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *SchemaError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &SchemaError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
