package expr

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// ToCtyValue converts a JSON-like Go value from an answer environment into
// its cty equivalent. Slices become tuples and string-keyed maps become
// objects, so heterogeneous answers (e.g. checkbox selections mixed with
// numbers) are representable. Anything else falls back to gocty's implied
// type.
func ToCtyValue(v any) (cty.Value, error) {
	switch t := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case cty.Value:
		return t, nil
	case string:
		return cty.StringVal(t), nil
	case bool:
		return cty.BoolVal(t), nil
	case int:
		return cty.NumberIntVal(int64(t)), nil
	case int8:
		return cty.NumberIntVal(int64(t)), nil
	case int16:
		return cty.NumberIntVal(int64(t)), nil
	case int32:
		return cty.NumberIntVal(int64(t)), nil
	case int64:
		return cty.NumberIntVal(t), nil
	case uint:
		return cty.NumberUIntVal(uint64(t)), nil
	case uint8:
		return cty.NumberUIntVal(uint64(t)), nil
	case uint16:
		return cty.NumberUIntVal(uint64(t)), nil
	case uint32:
		return cty.NumberUIntVal(uint64(t)), nil
	case uint64:
		return cty.NumberUIntVal(t), nil
	case float32:
		return floatVal(float64(t))
	case float64:
		return floatVal(t)
	case json.Number:
		return cty.ParseNumberVal(t.String())
	case []any:
		return tupleVal(len(t), func(i int) any { return t[i] })
	case []string:
		return tupleVal(len(t), func(i int) any { return t[i] })
	case map[string]any:
		return objectVal(t)
	case map[string]string:
		m := make(map[string]any, len(t))
		for k, s := range t {
			m[k] = s
		}
		return objectVal(m)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		return tupleVal(rv.Len(), func(i int) any { return rv.Index(i).Interface() })
	}

	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, fmt.Errorf("unable to infer cty.Type: %w", err)
	}
	return gocty.ToCtyValue(v, ty)
}

func floatVal(f float64) (cty.Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return cty.NilVal, fmt.Errorf("number %v is not representable", f)
	}
	return cty.NumberFloatVal(f), nil
}

func tupleVal(n int, at func(int) any) (cty.Value, error) {
	if n == 0 {
		return cty.EmptyTupleVal, nil
	}
	elems := make([]cty.Value, n)
	for i := 0; i < n; i++ {
		elem, err := ToCtyValue(at(i))
		if err != nil {
			return cty.NilVal, fmt.Errorf("element %d: %w", i, err)
		}
		elems[i] = elem
	}
	return cty.TupleVal(elems), nil
}

func objectVal(m map[string]any) (cty.Value, error) {
	if len(m) == 0 {
		return cty.EmptyObjectVal, nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make(map[string]cty.Value, len(m))
	for _, k := range keys {
		attr, err := ToCtyValue(m[k])
		if err != nil {
			return cty.NilVal, fmt.Errorf("attribute %q: %w", k, err)
		}
		attrs[k] = attr
	}
	return cty.ObjectVal(attrs), nil
}
