package expr_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/surveynav/internal/expr"
	"github.com/zclconf/go-cty/cty"
)

func TestToCtyValue(t *testing.T) {
	testCases := []struct {
		name string
		in   any
		want cty.Value
	}{
		{"nil", nil, cty.NullVal(cty.DynamicPseudoType)},
		{"string", "yes", cty.StringVal("yes")},
		{"bool", true, cty.True},
		{"int", 7, cty.NumberIntVal(7)},
		{"uint8", uint8(3), cty.NumberUIntVal(3)},
		{"float", 1.5, cty.NumberFloatVal(1.5)},
		{"json number", json.Number("42"), cty.NumberIntVal(42)},
		{"empty slice", []any{}, cty.EmptyTupleVal},
		{"mixed slice", []any{"a", 1}, cty.TupleVal([]cty.Value{cty.StringVal("a"), cty.NumberIntVal(1)})},
		{"typed slice", []int{1, 2}, cty.TupleVal([]cty.Value{cty.NumberIntVal(1), cty.NumberIntVal(2)})},
		{"map", map[string]any{"k": "v"}, cty.ObjectVal(map[string]cty.Value{"k": cty.StringVal("v")})},
		{"cty passthrough", cty.StringVal("x"), cty.StringVal("x")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := expr.ToCtyValue(tc.in)
			require.NoError(t, err)
			assert.True(t, tc.want.RawEquals(got), "want %#v, got %#v", tc.want, got)
		})
	}
}

func TestToCtyValue_Errors(t *testing.T) {
	_, err := expr.ToCtyValue(math.NaN())
	require.Error(t, err)

	_, err = expr.ToCtyValue([]any{math.Inf(1)})
	require.ErrorContains(t, err, "element 0")

	_, err = expr.ToCtyValue(make(chan int))
	require.Error(t, err)
}
