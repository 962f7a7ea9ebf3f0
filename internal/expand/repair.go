package expand

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrUnparseable is the sentinel returned when every parse strategy failed.
// It never crosses the package boundary as a raised error; callers downgrade
// it to a default value.
var ErrUnparseable = errors.New("completion output could not be parsed")

// parseStrategy rewrites raw completion output into a candidate JSON text.
type parseStrategy struct {
	name string
	fn   func(string) string
}

// Strategies are tried in order until one produces text that unmarshals.
var strategies = []parseStrategy{
	{"raw", strings.TrimSpace},
	{"unfenced", stripFences},
	{"light_repair", lightRepair},
	{"extract_balanced", extractBalanced},
}

// decodeJSON runs the repair chain. It returns the name of the strategy
// that succeeded, or ErrUnparseable after exhaustion.
func decodeJSON(raw string, out any) (string, error) {
	for _, st := range strategies {
		candidate := st.fn(raw)
		if candidate == "" {
			continue
		}
		if err := json.Unmarshal([]byte(candidate), out); err == nil {
			return st.name, nil
		}
	}
	return "", ErrUnparseable
}

var fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// stripFences extracts the content of a markdown code fence, if any.
func stripFences(s string) string {
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(s)
}

var (
	lineCommentRe  = regexp.MustCompile(`(?m)^\s*//.*$`)
	blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
	bareKeyRe      = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
	trailingComma  = regexp.MustCompile(`,\s*([}\]])`)
)

// lightRepair applies cheap syntactic fixes: fence removal, comment
// stripping, quoting of bare keys, trailing-comma removal and brace
// balancing.
func lightRepair(s string) string {
	s = stripFences(s)
	s = lineCommentRe.ReplaceAllString(s, "")
	s = blockCommentRe.ReplaceAllString(s, "")
	s = bareKeyRe.ReplaceAllString(s, `$1"$2":`)
	s = trailingComma.ReplaceAllString(s, "$1")
	return balance(strings.TrimSpace(s))
}

// extractBalanced pulls the first balanced JSON object or array out of
// surrounding prose, closing any containers the model left open.
func extractBalanced(s string) string {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}
	return balance(s[start:])
}

// balance truncates after the outermost container closes, or appends the
// missing closers when the text ends mid-container. String state is tracked
// so braces inside values are ignored.
func balance(s string) string {
	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
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
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
				if len(stack) == 0 {
					return s[:i+1]
				}
			}
		}
	}
	if inString {
		s += `"`
	}
	for i := len(stack) - 1; i >= 0; i-- {
		s += string(stack[i])
	}
	return s
}
