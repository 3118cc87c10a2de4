package expr

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/vk/surveynav/internal/qref"
)

// tokenRegex matches a template token such as `{{ q1.answer }}`.
var tokenRegex = regexp.MustCompile(`\{\{\s*(.*?)\s*\}\}`)

// token is one template occurrence inside a source string.
type token struct {
	start, end int
	ref        qref.Ref
}

// findTokens locates and parses every template token in src.
func findTokens(src string) ([]token, error) {
	matches := tokenRegex.FindAllStringSubmatchIndex(src, -1)
	tokens := make([]token, 0, len(matches))
	for _, m := range matches {
		ref, err := qref.Parse(src[m[2]:m[3]])
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token{start: m[0], end: m[1], ref: ref})
	}
	return tokens, nil
}

// replaceTokens rebuilds src with every token replaced by fn's output.
func replaceTokens(src string, tokens []token, fn func(qref.Ref) (string, error)) (string, error) {
	var sb strings.Builder
	last := 0
	for _, tok := range tokens {
		sb.WriteString(src[last:tok.start])
		repl, err := fn(tok.ref)
		if err != nil {
			return "", err
		}
		sb.WriteString(repl)
		last = tok.end
	}
	sb.WriteString(src[last:])
	return sb.String(), nil
}

// TemplateRefs returns the unique references found in free text such as a
// question's text or options, sorted by their canonical form. Unlike
// expression compilation it is lenient: a filter suffix (`{{ q0.answer | upper }}`)
// is ignored and tokens that do not parse as references are skipped.
func TemplateRefs(texts ...string) []qref.Ref {
	seen := make(map[string]qref.Ref)
	for _, text := range texts {
		for _, m := range tokenRegex.FindAllStringSubmatch(text, -1) {
			content, _, _ := strings.Cut(m[1], "|")
			ref, err := qref.Parse(content)
			if err != nil {
				continue
			}
			seen[ref.String()] = ref
		}
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	refs := make([]qref.Ref, 0, len(keys))
	for _, k := range keys {
		refs = append(refs, seen[k])
	}
	return refs
}

// renderLiteral renders one environment value as HCL literal source.
// A missing key renders as null, which is how unanswered or skipped
// questions read inside an expression.
func renderLiteral(env map[string]any, ref qref.Ref) (string, error) {
	raw, ok := env[ref.String()]
	if !ok {
		return "null", nil
	}
	val, err := ToCtyValue(raw)
	if err != nil {
		return "", fmt.Errorf("value for %q: %w", ref.String(), err)
	}
	return string(hclwrite.TokensForValue(val).Bytes()), nil
}

// RenderText fills the template tokens of free text from env. Filters are
// ignored, missing values render as the empty string and tokens that are
// not references are left as written.
func RenderText(text string, env map[string]any) string {
	return tokenRegex.ReplaceAllStringFunc(text, func(match string) string {
		inner := tokenRegex.FindStringSubmatch(match)[1]
		content, _, _ := strings.Cut(inner, "|")
		ref, err := qref.Parse(content)
		if err != nil {
			return match
		}
		return displayValue(env[ref.String()])
	})
}

func displayValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []string:
		return strings.Join(t, ", ")
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = displayValue(e)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(t)
	}
}
