package sqlcheck

import (
	"regexp"
	"strings"
	"unicode"
)

var stringLiteralPattern = regexp.MustCompile(`'(?:[^']|'')*'`)

// ReferencedResources parses the FROM and JOIN targets of a single SELECT
// statement and returns the referenced resource names, lowercased and
// deduplicated. Only names bound by a leading WITH clause are treated as
// statement-local, and a CTE name is never visible inside its own body, so
// a binding that shadows a real table still surfaces the table reference.
// The second return value is false when the clause structure cannot be
// parsed; callers must treat that as a rejection, not a pass.
func ReferencedResources(query string) ([]string, bool) {
	lowered := strings.ToLower(stringLiteralPattern.ReplaceAllString(query, "''"))
	tokens := tokenize(lowered)

	c := &refCollector{seen: make(map[string]struct{})}
	rest := tokens
	var bound map[string]struct{}
	if len(tokens) > 0 && tokens[0] == "with" {
		next, names, ok := c.parseWithPrefix(tokens)
		if !ok {
			return nil, false
		}
		rest = tokens[next:]
		bound = names
	}
	if !c.scanTargets(rest, bound) {
		return nil, false
	}
	return c.resources, true
}

type refCollector struct {
	seen      map[string]struct{}
	resources []string
}

func (c *refCollector) record(name string, visible map[string]struct{}) {
	name = strings.Trim(name, `"`)
	if _, ok := visible[name]; ok {
		return
	}
	if _, ok := c.seen[name]; ok {
		return
	}
	c.seen[name] = struct{}{}
	c.resources = append(c.resources, name)
}

// scanTargets records every FROM/JOIN target in tokens, skipping names in
// visible. Returns false when a clause target is not an identifier.
func (c *refCollector) scanTargets(tokens []string, visible map[string]struct{}) bool {
	for i := 0; i < len(tokens); i++ {
		if tokens[i] != "from" && tokens[i] != "join" {
			continue
		}
		j := i + 1
		if j >= len(tokens) {
			return false
		}
		if tokens[j] == "(" {
			// Derived table; its inner FROM is scanned by the outer loop.
			continue
		}
		if !isIdentifier(tokens[j]) {
			return false
		}
		c.record(tokens[j], visible)
		// Comma-separated FROM lists.
		for j+2 < len(tokens) && tokens[j+1] == "," {
			if !isIdentifier(tokens[j+2]) {
				return false
			}
			c.record(tokens[j+2], visible)
			j += 2
		}
	}
	return true
}

// parseWithPrefix consumes a leading WITH clause, scanning each CTE body with
// only the previously bound names visible. It returns the index of the first
// token after the prefix and the full set of bound names. Self references in
// a recursive CTE are recorded like table references; the resulting
// over-rejection is preferred to resolving them against the binding.
func (c *refCollector) parseWithPrefix(tokens []string) (int, map[string]struct{}, bool) {
	bound := make(map[string]struct{})
	i := 1
	if i < len(tokens) && tokens[i] == "recursive" {
		i++
	}
	for {
		if i >= len(tokens) || !isIdentifier(tokens[i]) {
			return 0, nil, false
		}
		name := strings.Trim(tokens[i], `"`)
		i++
		if i < len(tokens) && tokens[i] == "(" {
			i++
			for {
				if i >= len(tokens) {
					return 0, nil, false
				}
				if tokens[i] == ")" {
					i++
					break
				}
				if tokens[i] != "," && !isIdentifier(tokens[i]) {
					return 0, nil, false
				}
				i++
			}
		}
		if i >= len(tokens) || tokens[i] != "as" {
			return 0, nil, false
		}
		i++
		if i < len(tokens) && tokens[i] == "not" {
			i++
			if i >= len(tokens) || tokens[i] != "materialized" {
				return 0, nil, false
			}
			i++
		} else if i < len(tokens) && tokens[i] == "materialized" {
			i++
		}
		if i >= len(tokens) || tokens[i] != "(" {
			return 0, nil, false
		}
		i++
		start := i
		depth := 1
		for depth > 0 {
			if i >= len(tokens) {
				return 0, nil, false
			}
			switch tokens[i] {
			case "(":
				depth++
			case ")":
				depth--
			}
			i++
		}
		if !c.scanTargets(tokens[start:i-1], bound) {
			return 0, nil, false
		}
		bound[name] = struct{}{}
		if i < len(tokens) && tokens[i] == "," {
			i++
			continue
		}
		return i, bound, true
	}
}

func isIdentifier(token string) bool {
	if token == "" {
		return false
	}
	first := rune(token[0])
	if !unicode.IsLetter(first) && first != '_' && first != '"' {
		return false
	}
	for _, r := range token {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '.' && r != '$' && r != '"' {
			return false
		}
	}
	return true
}

// tokenize splits a statement into identifier-ish runs and single-character
// punctuation tokens. Operators and whitespace are dropped; numbers are kept
// so malformed clause targets fail the identifier check.
func tokenize(query string) []string {
	var tokens []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}
	for _, r := range query {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' || r == '$' || r == '"':
			current.WriteRune(r)
		case r == '(' || r == ')' || r == ',':
			flush()
			tokens = append(tokens, string(r))
		default:
			flush()
		}
	}
	flush()
	return tokens
}
