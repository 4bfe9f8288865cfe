package parser

import (
	"regexp"
	"strings"
)

var fencedRe = regexp.MustCompile("(?s)```(?:json)?\\s*([\\[{].*?[\\]}])\\s*```")

// ExtractJSON locates a JSON object or array inside free-form text. Strategies
// run in order, stopping at the first hit:
//  1. fenced code block,
//  2. a top-level {"convocatorias": ...} object or bare array,
//  3. balanced-span scan from the first plausible opening character.
func ExtractJSON(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	if m := fencedRe.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1]), true
	}

	if idx := strings.Index(raw, `{"convocatorias"`); idx >= 0 {
		if span, ok := balancedSpan(raw, idx); ok {
			return span, true
		}
	}

	// First opening brace or bracket, whichever comes first.
	start := -1
	for i := 0; i < len(raw); i++ {
		if raw[i] == '{' || raw[i] == '[' {
			start = i
			break
		}
	}
	if start < 0 {
		return "", false
	}
	if span, ok := balancedSpan(raw, start); ok {
		return span, true
	}

	return "", false
}

// balancedSpan walks from the opening character at start tracking
// string-literal state (with escape handling) and brace/bracket depth, and
// returns the shortest balanced span.
func balancedSpan(s string, start int) (string, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
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
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
