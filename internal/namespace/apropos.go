package namespace

import (
	"fmt"
	"regexp"
	"strings"
)

// Apropos lists the names of symbols whose kind is in mask and whose name
// matches pattern. The result is in table order and never nil.
//
// The scan runs twice over the table: once to count matches and once to fill
// a slice of exactly that size. The table must not change in between.
func (ns *Namespace) Apropos(pattern string, mask Mask) ([]string, error) {
	re, err := CompilePattern(pattern)
	if err != nil {
		return nil, newError(CodeInvalidPattern, ns.DisplayName(), pattern, err)
	}

	match := func(sym *Symbol) bool {
		return mask.Has(sym.Kind) && re.MatchString(ns.names.MustLookup(sym.Name))
	}

	n := 0
	for _, bucket := range ns.buckets {
		for _, sym := range bucket {
			if match(sym) {
				n++
			}
		}
	}

	out := make([]string, n)
	i := 0
	for _, bucket := range ns.buckets {
		for _, sym := range bucket {
			if match(sym) {
				out[i] = ns.names.MustLookup(sym.Name)
				i++
			}
		}
	}
	return out, nil
}

// CompilePattern translates a glob into an anchored, case-sensitive regular
// expression. Supported syntax: '*', '?', bracket classes ("[a-z]",
// "[!0-9]") and backslash escapes.
func CompilePattern(glob string) (*regexp.Regexp, error) {
	var sb strings.Builder
	sb.WriteString("^")
	for i := 0; i < len(glob); i++ {
		c := glob[i]
		switch c {
		case '*':
			sb.WriteString(".*")
		case '?':
			sb.WriteString(".")
		case '\\':
			if i+1 >= len(glob) {
				return nil, fmt.Errorf("trailing backslash in %q", glob)
			}
			i++
			sb.WriteString(regexp.QuoteMeta(glob[i : i+1]))
		case '[':
			end := classEnd(glob, i)
			if end < 0 {
				return nil, fmt.Errorf("unterminated character class in %q", glob)
			}
			body := glob[i+1 : end]
			sb.WriteByte('[')
			if strings.HasPrefix(body, "!") {
				sb.WriteByte('^')
				body = body[1:]
			}
			sb.WriteString(strings.ReplaceAll(body, `\`, `\\`))
			sb.WriteByte(']')
			i = end
		default:
			sb.WriteString(regexp.QuoteMeta(glob[i : i+1]))
		}
	}
	sb.WriteString("$")
	return regexp.Compile(sb.String())
}

// classEnd returns the index of the ']' closing the class opened at start.
// A ']' right after "[" or "[!" is literal.
func classEnd(glob string, start int) int {
	i := start + 1
	if i < len(glob) && glob[i] == '!' {
		i++
	}
	if i < len(glob) && glob[i] == ']' {
		i++
	}
	for ; i < len(glob); i++ {
		if glob[i] == ']' {
			return i
		}
	}
	return -1
}
