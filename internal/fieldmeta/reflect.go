package fieldmeta

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// TableNamer is implemented by structs that map to a table whose name
// differs from the type name.
type TableNamer interface {
	TableName() string
}

// Registry builds entities from Go struct types and caches them per type.
//
// Struct fields map to columns through `db` tags: `db:"col"` names the
// column, `db:"-"` hides the field, an untagged exported field maps to a
// column of the same name. A struct field that is not itself a value type
// (time.Time, uuid.UUID, a driver.Valuer) contributes its own fields one
// level deep as "Outer.Inner".
//
// Registry is safe for concurrent use. Concurrent first lookups of the same
// type reflect over it once.
type Registry struct {
	entities sync.Map // reflect.Type -> *Entity
	group    singleflight.Group
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// DefaultRegistry is the process-wide registry used by For.
var DefaultRegistry = NewRegistry()

// For returns the entity for T from DefaultRegistry.
func For[T any]() (*Entity, error) {
	return DefaultRegistry.Entity(reflect.TypeFor[T]())
}

// EntityOf returns the entity for the dynamic type of v.
func (r *Registry) EntityOf(v any) (*Entity, error) {
	if v == nil {
		return nil, fmt.Errorf("fieldmeta: nil value has no entity")
	}
	return r.Entity(reflect.TypeOf(v))
}

// Entity returns the entity for struct type t (or pointer to struct).
func (r *Registry) Entity(t reflect.Type) (*Entity, error) {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("fieldmeta: %v is not a struct type", t)
	}

	if cached, ok := r.entities.Load(t); ok {
		return cached.(*Entity), nil
	}

	key := t.PkgPath() + "." + t.String()
	v, err, _ := r.group.Do(key, func() (any, error) {
		if cached, ok := r.entities.Load(t); ok {
			return cached, nil
		}
		entity := reflectEntity(t)
		actual, _ := r.entities.LoadOrStore(t, entity)
		return actual, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Entity), nil
}

var (
	timeType   = reflect.TypeFor[time.Time]()
	uuidType   = reflect.TypeFor[uuid.UUID]()
	valuerType = reflect.TypeFor[driver.Valuer]()
	namerType  = reflect.TypeFor[TableNamer]()
)

func reflectEntity(t reflect.Type) *Entity {
	table := t.Name()
	if t.Implements(namerType) {
		table = reflect.Zero(t).Interface().(TableNamer).TableName()
	} else if reflect.PointerTo(t).Implements(namerType) {
		table = reflect.New(t).Interface().(TableNamer).TableName()
	}

	var fields []Field
	for _, sf := range structFields(t) {
		column, ok := columnFor(sf)
		if !ok {
			continue
		}
		ft := indirect(sf.Type)
		if typ, scalar := scalarType(ft); scalar {
			fields = append(fields, Field{Name: sf.Name, Column: column, Type: typ})
			continue
		}
		if ft.Kind() != reflect.Struct {
			continue
		}
		for _, inner := range structFields(ft) {
			innerColumn, ok := columnFor(inner)
			if !ok {
				continue
			}
			typ, scalar := scalarType(indirect(inner.Type))
			if !scalar {
				continue
			}
			fields = append(fields, Field{
				Name:   sf.Name + "." + inner.Name,
				Column: column + "_" + innerColumn,
				Type:   typ,
			})
		}
	}
	return NewEntity(t.Name(), table, fields...)
}

// structFields returns the exported fields of t with embedded structs
// promoted, in declaration order.
func structFields(t reflect.Type) []reflect.StructField {
	var out []reflect.StructField
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.Anonymous {
			et := indirect(sf.Type)
			if et.Kind() == reflect.Struct && sf.Tag.Get("db") == "" {
				if _, scalar := scalarType(et); !scalar {
					out = append(out, structFields(et)...)
					continue
				}
			}
		}
		if !sf.IsExported() {
			continue
		}
		out = append(out, sf)
	}
	return out
}

// columnFor returns the column of a struct field; ok is false for `db:"-"`.
func columnFor(sf reflect.StructField) (string, bool) {
	tag := sf.Tag.Get("db")
	if tag == "-" {
		return "", false
	}
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name, true
	}
	return sf.Name, true
}

func indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// scalarType classifies a field type. ok is false for types that hold
// fields of their own or cannot be bound as a parameter.
func scalarType(t reflect.Type) (typ string, ok bool) {
	switch {
	case t == timeType:
		return TypeTime, true
	case t == uuidType:
		return TypeUUID, true
	case t.Implements(valuerType) || reflect.PointerTo(t).Implements(valuerType):
		return TypeAny, true
	}

	switch t.Kind() {
	case reflect.String:
		return TypeString, true
	case reflect.Bool:
		return TypeBool, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return TypeInt, true
	case reflect.Float32, reflect.Float64:
		return TypeFloat, true
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return TypeBytes, true
		}
	}
	return "", false
}
