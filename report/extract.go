package report

import (
	"encoding/json"
	"strings"
)

// ExtractFirstObject returns the first balanced {...} substring of text that
// is a valid JSON object, honouring string literals and escapes. Balanced
// groups that do not decode, such as "{the result}" in prose, are skipped.
// This is a best-effort layer for replies that wrap JSON in prose or markdown
// fences.
func ExtractFirstObject(text string) (string, bool) {
	for start := strings.IndexByte(text, '{'); start >= 0; {
		if end, ok := balancedEnd(text, start); ok && json.Valid([]byte(text[start:end+1])) {
			return text[start : end+1], true
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// balancedEnd returns the index of the brace closing the one at start.
func balancedEnd(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
