package expr

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"github.com/zclconf/go-cty/cty/gocty"
)

// IntN is the random source used by randint and choice. *rand.Rand
// satisfies it.
type IntN interface {
	IntN(n int) int
}

// globalRand delegates to the goroutine-safe top-level math/rand/v2 source.
type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// pureFunctions is the whitelist of deterministic functions.
var pureFunctions = map[string]function.Function{
	"abs":      stdlib.AbsoluteFunc,
	"ceil":     stdlib.CeilFunc,
	"floor":    stdlib.FloorFunc,
	"max":      stdlib.MaxFunc,
	"min":      stdlib.MinFunc,
	"upper":    stdlib.UpperFunc,
	"lower":    stdlib.LowerFunc,
	"length":   stdlib.LengthFunc,
	"strlen":   stdlib.StrlenFunc,
	"contains": stdlib.ContainsFunc,
	"coalesce": stdlib.CoalesceFunc,
	"lookup":   stdlib.LookupFunc,
	"keys":     stdlib.KeysFunc,
	"values":   stdlib.ValuesFunc,
	"tostring": stdlib.MakeToFunc(cty.String),
	"tonumber": stdlib.MakeToFunc(cty.Number),
}

// randomFunctionNames lists the whitelisted functions that draw from the
// random source.
var randomFunctionNames = []string{"choice", "randint"}

// AllowedFunctions returns the sorted names of every callable function.
func AllowedFunctions() []string {
	names := make([]string, 0, len(pureFunctions)+len(randomFunctionNames))
	for name := range pureFunctions {
		names = append(names, name)
	}
	names = append(names, randomFunctionNames...)
	sort.Strings(names)
	return names
}

func isAllowedFunction(name string) bool {
	if _, ok := pureFunctions[name]; ok {
		return true
	}
	for _, n := range randomFunctionNames {
		if n == name {
			return true
		}
	}
	return false
}

// functionTable builds the function map for one evaluation.
func functionTable(src IntN) map[string]function.Function {
	table := make(map[string]function.Function, len(pureFunctions)+len(randomFunctionNames))
	for name, fn := range pureFunctions {
		table[name] = fn
	}
	table["randint"] = randintFunc(src)
	table["choice"] = choiceFunc(src)
	return table
}

// randintFunc returns an integer in the closed interval [low, high].
func randintFunc(src IntN) function.Function {
	return function.New(&function.Spec{
		Description: "Returns a random integer between low and high, inclusive.",
		Params: []function.Parameter{
			{Name: "low", Type: cty.Number},
			{Name: "high", Type: cty.Number},
		},
		Type: function.StaticReturnType(cty.Number),
		Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
			var low, high int64
			if err := gocty.FromCtyValue(args[0], &low); err != nil {
				return cty.NilVal, function.NewArgError(0, err)
			}
			if err := gocty.FromCtyValue(args[1], &high); err != nil {
				return cty.NilVal, function.NewArgError(1, err)
			}
			if high < low {
				return cty.NilVal, fmt.Errorf("empty range: %d > %d", low, high)
			}
			// high >= low, so the difference is exact as an unsigned value.
			span := uint64(high - low)
			if span >= uint64(math.MaxInt) {
				return cty.NilVal, fmt.Errorf("range %d to %d is too wide", low, high)
			}
			return cty.NumberIntVal(low + int64(src.IntN(int(span+1)))), nil
		},
	})
}

// choiceFunc returns a random element of a non-empty list or tuple.
func choiceFunc(src IntN) function.Function {
	return function.New(&function.Spec{
		Description: "Returns a random element of the given list or tuple.",
		Params: []function.Parameter{
			{Name: "collection", Type: cty.DynamicPseudoType},
		},
		Type: func(args []cty.Value) (cty.Type, error) {
			ty := args[0].Type()
			if ty.IsListType() {
				return ty.ElementType(), nil
			}
			if ty.IsTupleType() {
				return cty.DynamicPseudoType, nil
			}
			return cty.NilType, errors.New("argument must be a list or tuple")
		},
		Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
			n := args[0].LengthInt()
			if n == 0 {
				return cty.NilVal, errors.New("cannot choose from an empty collection")
			}
			pick := src.IntN(n)
			i := 0
			for it := args[0].ElementIterator(); it.Next(); i++ {
				if i == pick {
					_, v := it.Element()
					return v, nil
				}
			}
			return cty.NilVal, errors.New("internal error: choice out of range")
		},
	})
}
