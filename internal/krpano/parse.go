package krpano

import (
	"fmt"
	"strings"
)

// Call is one parsed statement: a function name and its raw arguments.
type Call struct {
	Fn   string
	Args []string
}

// Parse splits a flat script into calls. Semicolons and commas inside
// quotes or brackets do not split. Nested calls are kept verbatim as
// arguments.
func Parse(script string) ([]Call, error) {
	var calls []Call
	for _, stmt := range splitTop(script, ';') {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		open := strings.IndexByte(stmt, '(')
		if open < 0 || !strings.HasSuffix(stmt, ")") {
			return nil, fmt.Errorf("krpano: malformed statement %q", stmt)
		}
		c := Call{Fn: strings.TrimSpace(stmt[:open])}
		inner := stmt[open+1 : len(stmt)-1]
		if strings.TrimSpace(inner) != "" {
			for _, a := range splitTop(inner, ',') {
				c.Args = append(c.Args, strings.TrimSpace(a))
			}
		}
		calls = append(calls, c)
	}
	return calls, nil
}

// Unquote strips one pair of surrounding single quotes.
func Unquote(s string) string {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return s[1 : len(s)-1]
	}
	return s
}

func splitTop(s string, sep byte) []string {
	var (
		out   []string
		depth int
		quote bool
		start int
	)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\'':
			quote = !quote
		case quote:
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			depth--
		case c == sep && depth == 0:
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return append(out, s[start:])
}
