package ir

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// IRValue is a sealed interface representing the values a predicate can
// carry. Only IRNull, IRString, IRInt, IRFloat, IRBool, IRTime, IRUUID and
// IRArray implement it.
type IRValue interface {
	irValue() // Sealed - only these types implement it
}

// IRNull represents an absent value (a nil pointer, nil interface or
// invalid sql.Null* wrapper on the host side).
type IRNull struct{}

func (IRNull) irValue() {}

// MarshalJSON implements json.Marshaler for IRNull.
func (IRNull) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// IRString represents a string value.
type IRString string

func (IRString) irValue() {}

// IRInt represents an integer value. All signed and unsigned host integers
// that fit in int64 map here.
type IRInt int64

func (IRInt) irValue() {}

// IRFloat represents a floating point value.
type IRFloat float64

func (IRFloat) irValue() {}

// IRBool represents a boolean value.
type IRBool bool

func (IRBool) irValue() {}

// IRTime represents a point in time (dates included).
type IRTime time.Time

func (IRTime) irValue() {}

// Time returns the value as a time.Time.
func (t IRTime) Time() time.Time { return time.Time(t) }

// IRUUID represents a UUID. It binds as its canonical string form.
type IRUUID uuid.UUID

func (IRUUID) irValue() {}

// String returns the canonical 36 character form.
func (u IRUUID) String() string { return uuid.UUID(u).String() }

// IRArray represents an array of scalar values.
type IRArray []IRValue

func (IRArray) irValue() {}

// NewIRArray creates an IRArray from values.
func NewIRArray(vals ...IRValue) IRArray {
	return IRArray(vals)
}

// IsNull reports whether v is absent: either a nil interface or IRNull.
func IsNull(v IRValue) bool {
	if v == nil {
		return true
	}
	_, ok := v.(IRNull)
	return ok
}

// IsScalar reports whether v is a non-array value.
func IsScalar(v IRValue) bool {
	_, isArray := v.(IRArray)
	return !isArray
}

// TypeName returns a short name for the dynamic kind of v, used in error
// messages.
func TypeName(v IRValue) string {
	switch v.(type) {
	case nil, IRNull:
		return "null"
	case IRString:
		return "string"
	case IRInt:
		return "int"
	case IRFloat:
		return "float"
	case IRBool:
		return "bool"
	case IRTime:
		return "time"
	case IRUUID:
		return "uuid"
	case IRArray:
		return "array"
	default:
		return fmt.Sprintf("%T", v)
	}
}

var (
	timeType  = reflect.TypeOf(time.Time{})
	uuidType  = reflect.TypeOf(uuid.UUID{})
	valuerTyp = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
)

// FromGo converts a host Go value into an IRValue.
//
// Supported inputs: nil, IRValue, strings, all integer kinds, floats,
// bools, time.Time, uuid.UUID, driver.Valuer implementations (sql.NullString
// and friends), pointers to any of these, and slices or arrays of scalars.
// Named types are converted through their underlying kind.
func FromGo(v any) (IRValue, error) {
	if v == nil {
		return IRNull{}, nil
	}
	if iv, ok := v.(IRValue); ok {
		return iv, nil
	}
	return fromReflect(reflect.ValueOf(v), true)
}

// fromReflect converts a reflected value. allowArray is false for array
// elements so that nested arrays are rejected.
func fromReflect(rv reflect.Value, allowArray bool) (IRValue, error) {
	if !rv.IsValid() {
		return IRNull{}, nil
	}
	if !rv.CanInterface() {
		return nil, fmt.Errorf("unexported value of type %s", rv.Type())
	}

	if rv.Type() == timeType {
		return IRTime(rv.Interface().(time.Time)), nil
	}
	if rv.Type() == uuidType {
		return IRUUID(rv.Interface().(uuid.UUID)), nil
	}
	if iv, ok := rv.Interface().(IRValue); ok {
		if _, isArray := iv.(IRArray); isArray && !allowArray {
			return nil, fmt.Errorf("nested collections are not supported")
		}
		return iv, nil
	}

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return IRNull{}, nil
		}
		return fromReflect(rv.Elem(), allowArray)
	}

	if rv.Type().Implements(valuerTyp) {
		return fromValuer(rv)
	}

	switch rv.Kind() {
	case reflect.String:
		return IRString(rv.String()), nil
	case reflect.Bool:
		return IRBool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return IRInt(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, fmt.Errorf("unsigned value %d overflows int64", u)
		}
		return IRInt(int64(u)), nil
	case reflect.Float32, reflect.Float64:
		return IRFloat(rv.Float()), nil
	case reflect.Slice, reflect.Array:
		if !allowArray {
			return nil, fmt.Errorf("nested collections are not supported: %s", rv.Type())
		}
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return IRString(rv.Bytes()), nil
		}
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return IRArray{}, nil
		}
		arr := make(IRArray, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			elem, err := fromReflect(rv.Index(i), false)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = elem
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("unsupported type: %s", rv.Type())
	}
}

// fromValuer converts a driver.Valuer (sql.NullString, sql.NullTime, ...)
// through the value it would hand to a database driver.
func fromValuer(rv reflect.Value) (IRValue, error) {
	dv, err := rv.Interface().(driver.Valuer).Value()
	if err != nil {
		return nil, fmt.Errorf("driver value of %s: %w", rv.Type(), err)
	}
	if dv == nil {
		return IRNull{}, nil
	}
	switch val := dv.(type) {
	case []byte:
		return IRString(val), nil
	case driver.Valuer:
		return nil, fmt.Errorf("driver value of %s is itself a Valuer", rv.Type())
	}
	return fromReflect(reflect.ValueOf(dv), false)
}

// ToParam converts an IRValue into the native Go type handed to a
// database/sql driver. Arrays become []any of converted elements.
func ToParam(v IRValue) any {
	switch val := v.(type) {
	case nil, IRNull:
		return nil
	case IRString:
		return string(val)
	case IRInt:
		return int64(val)
	case IRFloat:
		return float64(val)
	case IRBool:
		return bool(val)
	case IRTime:
		return time.Time(val)
	case IRUUID:
		return val.String()
	case IRArray:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToParam(elem)
		}
		return out
	default:
		return nil
	}
}

// Compare orders two scalar values. ok is false when the values are not
// comparable (different kinds, arrays, or nulls). Ints and floats compare
// numerically with each other.
func Compare(a, b IRValue) (cmp int, ok bool) {
	if IsNull(a) || IsNull(b) {
		return 0, false
	}
	switch av := a.(type) {
	case IRString:
		if bv, isStr := b.(IRString); isStr {
			return compareOrdered(string(av), string(bv)), true
		}
	case IRInt:
		switch bv := b.(type) {
		case IRInt:
			return compareOrdered(int64(av), int64(bv)), true
		case IRFloat:
			return compareOrdered(float64(av), float64(bv)), true
		}
	case IRFloat:
		switch bv := b.(type) {
		case IRFloat:
			return compareOrdered(float64(av), float64(bv)), true
		case IRInt:
			return compareOrdered(float64(av), float64(bv)), true
		}
	case IRBool:
		if bv, isBool := b.(IRBool); isBool {
			if av == bv {
				return 0, true
			}
			if !av {
				return -1, true
			}
			return 1, true
		}
	case IRTime:
		if bv, isTime := b.(IRTime); isTime {
			return time.Time(av).Compare(time.Time(bv)), true
		}
	case IRUUID:
		if bv, isUUID := b.(IRUUID); isUUID {
			return compareOrdered(av.String(), bv.String()), true
		}
	}
	return 0, false
}

func compareOrdered[T int64 | float64 | string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// MarshalIRValue marshals an IRValue to JSON bytes.
// NOTE: This is NOT canonical marshaling. Use MarshalCanonical for golden
// output.
func MarshalIRValue(v IRValue) ([]byte, error) {
	switch val := v.(type) {
	case nil, IRNull:
		return []byte("null"), nil
	case IRString:
		return json.Marshal(string(val))
	case IRInt:
		return json.Marshal(int64(val))
	case IRFloat:
		if math.IsNaN(float64(val)) || math.IsInf(float64(val), 0) {
			return nil, fmt.Errorf("non-finite float %v has no JSON form", float64(val))
		}
		return []byte(strconv.FormatFloat(float64(val), 'g', -1, 64)), nil
	case IRBool:
		return json.Marshal(bool(val))
	case IRTime:
		return json.Marshal(time.Time(val).Format(time.RFC3339Nano))
	case IRUUID:
		return json.Marshal(val.String())
	case IRArray:
		return marshalIRArray(val)
	default:
		return nil, fmt.Errorf("unknown IRValue type: %T", v)
	}
}

// marshalIRArray marshals an IRArray to JSON bytes.
func marshalIRArray(arr IRArray) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')

	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		elemBytes, err := MarshalIRValue(elem)
		if err != nil {
			return nil, fmt.Errorf("array[%d]: %w", i, err)
		}
		buf.Write(elemBytes)
	}

	buf.WriteByte(']')
	return buf.Bytes(), nil
}
