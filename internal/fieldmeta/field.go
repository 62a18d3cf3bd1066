package fieldmeta

import (
	"golang.org/x/text/unicode/norm"
)

// Field type names.
const (
	TypeString = "string"
	TypeInt    = "int"
	TypeFloat  = "float"
	TypeBool   = "bool"
	TypeTime   = "time"
	TypeUUID   = "uuid"
	TypeBytes  = "bytes"
	TypeAny    = "any"
)

// Field describes one queryable field of an entity.
type Field struct {
	// Name is the field name used in predicates, e.g. "Account" or
	// "Address.City" for one level of navigation.
	Name string

	// Column is the database column. Empty means the column equals Name.
	Column string

	// Type is one of the Type* constants.
	Type string
}

// ColumnName returns the column the field maps to.
func (f Field) ColumnName() string {
	if f.Column != "" {
		return f.Column
	}
	return f.Name
}

// Provider resolves field names to field metadata.
type Provider interface {
	Lookup(name string) (Field, bool)
}

// Entity is a named set of fields backed by a table.
type Entity struct {
	Name   string
	Table  string
	Fields []Field

	index map[string]int
}

// NewEntity creates an Entity and indexes its fields by NFC-normalized name.
// Later fields win over earlier fields with the same name.
func NewEntity(name, table string, fields ...Field) *Entity {
	e := &Entity{
		Name:   name,
		Table:  table,
		Fields: fields,
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		e.index[norm.NFC.String(f.Name)] = i
	}
	return e
}

// Lookup implements Provider. Names are compared after NFC normalization,
// so a decomposed "é" finds a field declared with the precomposed form.
func (e *Entity) Lookup(name string) (Field, bool) {
	if e == nil {
		return Field{}, false
	}
	key := norm.NFC.String(name)
	if e.index != nil {
		i, ok := e.index[key]
		if !ok {
			return Field{}, false
		}
		return e.Fields[i], true
	}
	for i := len(e.Fields) - 1; i >= 0; i-- {
		if norm.NFC.String(e.Fields[i].Name) == key {
			return e.Fields[i], true
		}
	}
	return Field{}, false
}

// TableName returns the table, defaulting to the entity name.
func (e *Entity) TableName() string {
	if e.Table != "" {
		return e.Table
	}
	return e.Name
}

// Columns returns the column of every field in declaration order.
func (e *Entity) Columns() []string {
	cols := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		cols[i] = f.ColumnName()
	}
	return cols
}

// Names returns a Provider that accepts exactly the given field names,
// each mapped to a column of the same name.
func Names(names ...string) *Entity {
	fields := make([]Field, len(names))
	for i, n := range names {
		fields[i] = Field{Name: n, Type: TypeAny}
	}
	return NewEntity("", "", fields...)
}
