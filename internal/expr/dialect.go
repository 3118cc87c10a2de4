package expr

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
)

// keywordRewrites maps compatibility keywords to their HCL spelling.
var keywordRewrites = map[string]string{
	"and":   "&&",
	"or":    "||",
	"True":  "true",
	"False": "false",
	"None":  "null",
}

// normalize rewrites the compatibility spellings into plain HCL expression
// syntax. Double-quoted strings and template tokens are copied verbatim;
// single-quoted strings are re-emitted as escaped HCL string literals.
//
// "not" binds looser than comparisons, so "not a == b" becomes "!(a == b)".
// Its operand ends at the next and/or, comma, conditional operator or
// closing bracket at the same nesting depth, or at the end of input.
func normalize(src string) (string, error) {
	var sb strings.Builder
	sb.Grow(len(src))
	runes := []rune(src)

	depth := 0
	var nots []int // nesting depth of each open "not"
	closeNots := func(at int) {
		for len(nots) > 0 && nots[len(nots)-1] >= at {
			sb.WriteByte(')')
			nots = nots[:len(nots)-1]
		}
	}

	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case r == '{' && i+1 < len(runes) && runes[i+1] == '{':
			end := closingBraces(runes, i+2)
			if end < 0 {
				return "", fmt.Errorf("unterminated template token")
			}
			sb.WriteString(string(runes[i : end+2]))
			i = end + 2

		case r == '"':
			end, err := scanDoubleQuoted(runes, i)
			if err != nil {
				return "", err
			}
			sb.WriteString(string(runes[i : end+1]))
			i = end + 1

		case r == '\'':
			lit, end, err := scanSingleQuoted(runes, i)
			if err != nil {
				return "", err
			}
			sb.Write(hclwrite.TokensForValue(cty.StringVal(lit)).Bytes())
			i = end + 1

		case isIdentStart(r):
			start := i
			i = identEnd(runes, i)
			word := string(runes[start:i])
			// Attribute names after a dot are never keywords.
			if start > 0 && runes[start-1] == '.' {
				sb.WriteString(word)
				continue
			}
			if word == "in" {
				return "", fmt.Errorf("the 'in' operator is not supported; use contains(collection, value)")
			}
			switch word {
			case "not":
				sb.WriteString("!(")
				nots = append(nots, depth)
				continue
			case "and", "or":
				closeNots(depth)
			}
			if repl, ok := keywordRewrites[word]; ok {
				sb.WriteString(repl)
				continue
			}
			sb.WriteString(word)

		default:
			switch r {
			case '(', '[', '{':
				depth++
			case ')', ']', '}':
				closeNots(depth)
				depth--
			case ',', '?', ':', '&', '|':
				closeNots(depth)
			}
			sb.WriteRune(r)
			i++
		}
	}
	closeNots(0)
	return sb.String(), nil
}

// scanDoubleQuoted returns the index of the closing quote of the string
// starting at runes[start].
func scanDoubleQuoted(runes []rune, start int) (int, error) {
	for i := start + 1; i < len(runes); i++ {
		switch runes[i] {
		case '\\':
			i++
		case '"':
			return i, nil
		}
	}
	return 0, fmt.Errorf("unterminated string literal")
}

// scanSingleQuoted decodes the single-quoted string starting at
// runes[start], returning its contents and the index of the closing quote.
func scanSingleQuoted(runes []rune, start int) (string, int, error) {
	var sb strings.Builder
	for i := start + 1; i < len(runes); i++ {
		switch runes[i] {
		case '\\':
			if i+1 >= len(runes) {
				return "", 0, fmt.Errorf("unterminated string literal")
			}
			i++
			switch runes[i] {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			default:
				sb.WriteRune(runes[i])
			}
		case '\'':
			return sb.String(), i, nil
		default:
			sb.WriteRune(runes[i])
		}
	}
	return "", 0, fmt.Errorf("unterminated string literal")
}

// closingBraces returns the index of the first "}}" at or after from, or -1.
func closingBraces(runes []rune, from int) int {
	for i := from; i+1 < len(runes); i++ {
		if runes[i] == '}' && runes[i+1] == '}' {
			return i
		}
	}
	return -1
}
