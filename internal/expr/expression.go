package expr

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/surveynav/internal/qref"
	"github.com/zclconf/go-cty/cty"
)

// filename is reported in HCL diagnostics for inline expressions.
const filename = "<expression>"

// Expression is a compiled, validated expression. It is immutable and safe
// for concurrent use by multiple goroutines.
type Expression struct {
	source     string
	normalized string
	tokens     []token
	refs       []qref.Ref
	bare       []qref.Ref
	functions  []string
}

// Compile validates src and returns its compiled form. Template tokens must
// hold well-formed references, the remaining text must parse as an
// expression and every called function must be whitelisted.
func Compile(src string) (*Expression, error) {
	if strings.TrimSpace(src) == "" {
		return nil, &SyntaxError{Expression: src, Msg: "expression is empty"}
	}

	normalized, err := normalize(src)
	if err != nil {
		return nil, &SyntaxError{Expression: src, Msg: err.Error()}
	}

	tokens, err := findTokens(normalized)
	if err != nil {
		return nil, &SyntaxError{Expression: src, Msg: err.Error()}
	}

	// Tokens become null literals so the shape of the expression can be
	// checked without an environment.
	probe, _ := replaceTokens(normalized, tokens, func(qref.Ref) (string, error) { return "null", nil })
	parsed, diags := hclsyntax.ParseExpression([]byte(probe), filename, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, &SyntaxError{Expression: src, Msg: diags.Error()}
	}

	bare, functions := extractBareRefsAndFunctions(parsed)
	for _, fn := range functions {
		if !isAllowedFunction(fn) {
			return nil, &SyntaxError{Expression: src, Msg: fmt.Sprintf("function %q is not allowed", fn)}
		}
	}

	return &Expression{
		source:     src,
		normalized: normalized,
		tokens:     tokens,
		refs:       uniqueRefs(tokens),
		bare:       bare,
		functions:  functions,
	}, nil
}

// MustCompile is like Compile but panics if the expression is invalid.
func MustCompile(src string) *Expression {
	e, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return e
}

// String returns the source text the expression was compiled from.
func (e *Expression) String() string { return e.source }

// References returns the unique template references, sorted.
func (e *Expression) References() []qref.Ref { return e.refs }

// BareReferences returns the variable references written without template
// braces, sorted. They cannot be evaluated until migrated.
func (e *Expression) BareReferences() []qref.Ref { return e.bare }

// Functions returns the unique function names called by the expression.
func (e *Expression) Functions() []string { return e.functions }

// Legacy reports whether the expression uses bare variable names.
func (e *Expression) Legacy() bool { return len(e.bare) > 0 }

// EvalOption configures a single evaluation.
type EvalOption func(*evalConfig)

type evalConfig struct {
	rand IntN
}

// WithRand sets the random source used by randint and choice.
func WithRand(src IntN) EvalOption {
	return func(c *evalConfig) {
		if src != nil {
			c.rand = src
		}
	}
}

// Render runs the template pass alone and returns the text that would be
// handed to the evaluator.
func (e *Expression) Render(env map[string]any) (string, error) {
	return replaceTokens(e.normalized, e.tokens, func(ref qref.Ref) (string, error) {
		return renderLiteral(env, ref)
	})
}

// Evaluate substitutes env into the expression and evaluates it. The result
// must be a known, non-null boolean. Every failure is an *EvaluationError.
func (e *Expression) Evaluate(env map[string]any, opts ...EvalOption) (bool, error) {
	cfg := evalConfig{rand: globalRand{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	rendered, err := e.Render(env)
	if err != nil {
		return false, e.evalError(env, "", err)
	}

	parsed, diags := hclsyntax.ParseExpression([]byte(rendered), filename, hcl.InitialPos)
	if diags.HasErrors() {
		return false, e.evalError(env, rendered, diags)
	}

	val, diags := parsed.Value(&hcl.EvalContext{Functions: functionTable(cfg.rand)})
	if diags.HasErrors() {
		return false, e.evalError(env, rendered, diags)
	}

	switch {
	case val.IsNull():
		return false, e.evalError(env, rendered, fmt.Errorf("expression evaluated to null"))
	case !val.IsKnown():
		return false, e.evalError(env, rendered, fmt.Errorf("expression result is unknown"))
	case !val.Type().Equals(cty.Bool):
		return false, e.evalError(env, rendered, fmt.Errorf("expression must evaluate to a bool, got %s", val.Type().FriendlyName()))
	}
	return val.True(), nil
}

func (e *Expression) evalError(env map[string]any, rendered string, err error) *EvaluationError {
	return &EvaluationError{
		Expression:  e.source,
		Environment: env,
		Rendered:    rendered,
		Err:         err,
	}
}

// Evaluate compiles and evaluates src in one step.
func Evaluate(src string, env map[string]any, opts ...EvalOption) (bool, error) {
	e, err := Compile(src)
	if err != nil {
		return false, err
	}
	return e.Evaluate(env, opts...)
}

func uniqueRefs(tokens []token) []qref.Ref {
	texts := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		texts = append(texts, "{{ "+tok.ref.String()+" }}")
	}
	return TemplateRefs(texts...)
}
