// Package expr implements the restricted boolean expression language used
// by navigation rules.
//
// Evaluation is two passes. The template pass resolves every
// `{{ name.field }}` token against a flat environment and renders the value
// as an HCL literal (strings are quoted and escaped). The result is then
// parsed with hclsyntax and evaluated against an hcl.EvalContext that carries
// no variables and a fixed table of pure functions, so an expression can only
// combine literals, operators and whitelisted calls.
//
// A small compatibility layer accepts the Python-flavoured spellings found in
// older survey definitions: single-quoted strings, `and`, `or`, `not`,
// `True`, `False` and `None`. `not` binds looser than comparisons and
// tighter than `and`/`or`, so `not a == b` means `!(a == b)`.
//
// Expressions written with bare question names instead of template tokens
// (`q1 == 'yes'`) still compile but report Legacy(); MigrateLegacy rewrites
// them into the templated form.
package expr
