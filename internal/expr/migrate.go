package expr

import (
	"strings"
	"unicode"
)

// MigrateLegacy rewrites bare question names into template tokens:
// `q1 == 'yes'` becomes `{{ q1.answer }} == 'yes'` and `q1.comment` becomes
// `{{ q1.comment }}`. Only names listed in questionNames are rewritten;
// string literals and existing tokens are left untouched. The second result
// reports whether anything changed.
func MigrateLegacy(expression string, questionNames []string) (string, bool) {
	known := make(map[string]struct{}, len(questionNames))
	for _, name := range questionNames {
		known[name] = struct{}{}
	}

	var sb strings.Builder
	runes := []rune(expression)
	changed := false

	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case r == '{' && i+1 < len(runes) && runes[i+1] == '{':
			end := closingBraces(runes, i+2)
			if end < 0 {
				sb.WriteString(string(runes[i:]))
				return sb.String(), changed
			}
			sb.WriteString(string(runes[i : end+2]))
			i = end + 2

		case r == '"' || r == '\'':
			end := closingQuote(runes, i)
			sb.WriteString(string(runes[i : end+1]))
			i = end + 1

		case isIdentStart(r):
			start := i
			i = identEnd(runes, i)
			word := string(runes[start:i])
			if _, ok := known[word]; !ok || (start > 0 && runes[start-1] == '.') {
				sb.WriteString(word)
				continue
			}

			field := "answer"
			if i+1 < len(runes) && runes[i] == '.' && isIdentStart(runes[i+1]) {
				fieldEnd := identEnd(runes, i+1)
				field = string(runes[i+1 : fieldEnd])
				i = fieldEnd
			}
			sb.WriteString("{{ " + word + "." + field + " }}")
			changed = true

		default:
			sb.WriteRune(r)
			i++
		}
	}
	return sb.String(), changed
}

// closingQuote returns the index of the quote closing the string opened at
// runes[start], or the last index when the string is unterminated.
func closingQuote(runes []rune, start int) int {
	quote := runes[start]
	for i := start + 1; i < len(runes); i++ {
		switch runes[i] {
		case '\\':
			i++
		case quote:
			return i
		}
	}
	return len(runes) - 1
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func identEnd(runes []rune, i int) int {
	for i < len(runes) && (runes[i] == '_' || runes[i] == '-' || unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i])) {
		i++
	}
	return i
}
