package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/valyala/fastjson"
)

var capturesParser fastjson.ParserPool

// ParseCaptures decodes a JSON object of captured variables. A value
// starting with @ names a file holding the object.
//
// Integral numbers become int64 and other numbers float64, so captured
// limits compare as integers. Arrays become []any and objects
// map[string]any, which predicates reach with index and selector syntax.
func ParseCaptures(src string) (map[string]any, error) {
	if strings.TrimSpace(src) == "" {
		return map[string]any{}, nil
	}
	if path, ok := strings.CutPrefix(src, "@"); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read captures: %w", err)
		}
		src = string(data)
	}

	p := capturesParser.Get()
	defer capturesParser.Put(p)

	v, err := p.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("invalid captures JSON: %w", err)
	}
	if v.Type() != fastjson.TypeObject {
		return nil, fmt.Errorf("captures must be a JSON object, got %s", v.Type())
	}

	env, ok := fromJSON(v).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("captures must be a JSON object")
	}
	return env, nil
}

// fromJSON converts a parsed value into plain Go values. The result must
// not alias parser memory, which is reused once the parser is returned.
func fromJSON(v *fastjson.Value) any {
	switch v.Type() {
	case fastjson.TypeNull:
		return nil
	case fastjson.TypeTrue:
		return true
	case fastjson.TypeFalse:
		return false
	case fastjson.TypeString:
		return string(v.GetStringBytes())
	case fastjson.TypeNumber:
		if n, err := v.Int64(); err == nil {
			return n
		}
		return v.GetFloat64()
	case fastjson.TypeArray:
		arr, _ := v.Array()
		out := make([]any, len(arr))
		for i, elem := range arr {
			out[i] = fromJSON(elem)
		}
		return out
	case fastjson.TypeObject:
		obj, _ := v.Object()
		out := make(map[string]any, obj.Len())
		obj.Visit(func(key []byte, val *fastjson.Value) {
			out[string(key)] = fromJSON(val)
		})
		return out
	default:
		return nil
	}
}
