package parser

import (
	"regexp"
	"strings"
)

// repairPass is one deterministic string repair. Passes are independently
// testable and idempotent; Repair applies them in a fixed order.
type repairPass struct {
	name  string
	apply func(string) string
}

var repairPasses = []repairPass{
	{"newlines_in_strings", collapseNewlinesInStrings},
	{"control_chars", stripControlChars},
	{"unquoted_keys", quoteUnquotedKeys},
	{"single_quotes", normalizeSingleQuotes},
	{"trailing_commas", stripTrailingCommas},
}

// Repair applies the repair passes to a candidate JSON span. Repair is
// idempotent: repairing already-repaired text returns it unchanged.
func Repair(s string) string {
	for _, p := range repairPasses {
		s = p.apply(s)
	}
	return s
}

// collapseNewlinesInStrings replaces raw line breaks and tabs inside string
// literals with a single space. Models frequently wrap long descriptions
// across lines inside a quoted value, which is invalid JSON.
func collapseNewlinesInStrings(s string) string {
	var b strings.Builder
	b.Grow(len(s))
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
			case c == '\n' || c == '\r' || c == '\t':
				// Collapse a run of breaks and surrounding spaces into one space.
				for i+1 < len(s) && (s[i+1] == '\n' || s[i+1] == '\r' || s[i+1] == '\t' || s[i+1] == ' ') {
					i++
				}
				b.WriteByte(' ')
				continue
			}
			b.WriteByte(c)
			continue
		}
		if c == '"' {
			inString = true
		}
		b.WriteByte(c)
	}
	return b.String()
}

// stripControlChars removes control characters other than structural
// whitespace. Runs after collapseNewlinesInStrings, so string literals are
// already clean.
func stripControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\t' && r != '\n' {
			return -1
		}
		return r
	}, s)
}

func isIdentChar(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

// quoteUnquotedKeys converts bare identifiers in key position to quoted
// keys. The walk is string-aware so identifiers inside values are left
// alone.
func quoteUnquotedKeys(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)
	inString := false
	escaped := false
	i := 0
	for i < len(s) {
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
			b.WriteByte(c)
			i++
			continue
		}
		if c == '"' {
			inString = true
			b.WriteByte(c)
			i++
			continue
		}
		if c == '{' || c == ',' {
			b.WriteByte(c)
			i++
			for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n') {
				b.WriteByte(s[i])
				i++
			}
			start := i
			for i < len(s) && isIdentChar(s[i]) {
				i++
			}
			if i > start {
				j := i
				for j < len(s) && (s[j] == ' ' || s[j] == '\t') {
					j++
				}
				if j < len(s) && s[j] == ':' {
					b.WriteByte('"')
					b.WriteString(s[start:i])
					b.WriteByte('"')
					continue
				}
			}
			b.WriteString(s[start:i])
			continue
		}
		b.WriteByte(c)
		i++
	}
	return b.String()
}

var singleQuotedRe = regexp.MustCompile(`([:,\[{]\s*)'((?:[^'\\]|\\.)*)'`)

// normalizeSingleQuotes converts single-quoted strings in key or value
// position to double-quoted ones, escaping any inner double quotes.
func normalizeSingleQuotes(s string) string {
	return singleQuotedRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := singleQuotedRe.FindStringSubmatch(m)
		inner := strings.ReplaceAll(sub[2], `\'`, `'`)
		inner = strings.ReplaceAll(inner, `"`, `\"`)
		return sub[1] + `"` + inner + `"`
	})
}

// stripTrailingCommas removes commas immediately preceding a closing brace
// or bracket, outside string literals.
func stripTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
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
			b.WriteByte(c)
			continue
		}
		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}
		if c == ',' {
			j := i + 1
			for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n') {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				// Drop the comma, keep the whitespace.
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}
