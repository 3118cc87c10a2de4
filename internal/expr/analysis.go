package expr

import (
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/surveynav/internal/qref"
	"github.com/zclconf/go-cty/cty"
)

// extractBareRefsAndFunctions returns the bare (untemplated) references and
// the called function names of a parsed expression, each sorted.
func extractBareRefsAndFunctions(expr hclsyntax.Expression) ([]qref.Ref, []string) {
	refs := make(map[string]qref.Ref)
	functions := make(map[string]struct{})

	for _, traversal := range expr.Variables() {
		ref := traversalRef(traversal)
		refs[ref.String()] = ref
	}
	collectFunctions(expr, functions)

	refKeys := make([]string, 0, len(refs))
	for k := range refs {
		refKeys = append(refKeys, k)
	}
	sort.Strings(refKeys)
	refSlice := make([]qref.Ref, 0, len(refKeys))
	for _, k := range refKeys {
		refSlice = append(refSlice, refs[k])
	}

	functionSlice := make([]string, 0, len(functions))
	for f := range functions {
		functionSlice = append(functionSlice, f)
	}
	sort.Strings(functionSlice)

	return refSlice, functionSlice
}

// traversalRef converts the root and attribute steps of a traversal into a
// reference. Index steps with whole-number keys attach to the preceding
// segment; anything else ends the reference.
func traversalRef(t hcl.Traversal) qref.Ref {
	var ref qref.Ref
	for _, step := range t {
		switch s := step.(type) {
		case hcl.TraverseRoot:
			ref.Path = append(ref.Path, qref.NewSegment(s.Name))
		case hcl.TraverseAttr:
			ref.Path = append(ref.Path, qref.NewSegment(s.Name))
		case hcl.TraverseIndex:
			if len(ref.Path) == 0 || !s.Key.Type().Equals(cty.Number) {
				return ref
			}
			bf := s.Key.AsBigFloat()
			if !bf.IsInt() {
				return ref
			}
			i, _ := bf.Int64()
			ref.Path[len(ref.Path)-1].Index = int(i)
		default:
			return ref
		}
	}
	return ref
}

// collectFunctions records the name of every function call under expr.
func collectFunctions(expr hclsyntax.Expression, functions map[string]struct{}) {
	hclsyntax.VisitAll(expr, func(n hclsyntax.Node) hcl.Diagnostics {
		if call, ok := n.(*hclsyntax.FunctionCallExpr); ok {
			functions[call.Name] = struct{}{}
		}
		return nil
	})
}
