package rbac

import (
	"regexp"
	"strings"

	"github.com/askdb/askdb/internal/catalog"
	"github.com/askdb/askdb/internal/guardrail"
)

// Checker enforces the resource scope at the text level. It is constructed
// once against the closed catalog and invoked with per-request parameters;
// it holds no request state.
//
// Two of the four enforcement layers live here: the pre-check over the raw
// question (layer 1) and the post-generation check over model output
// (layer 3). Layer 2 is the scoped instruction builder and layer 4 the
// lexical validator; each can reject alone.
type Checker struct {
	cat      *catalog.Catalog
	synonyms map[string]*regexp.Regexp
	names    map[string]*regexp.Regexp
}

func NewChecker(cat *catalog.Catalog) *Checker {
	synonyms := make(map[string]*regexp.Regexp)
	names := make(map[string]*regexp.Regexp)
	for _, resource := range cat.Resources() {
		terms := make([]string, 0, len(resource.Synonyms)+1)
		terms = append(terms, regexp.QuoteMeta(resource.Name))
		for _, synonym := range resource.Synonyms {
			terms = append(terms, regexp.QuoteMeta(strings.ToLower(synonym)))
		}
		synonyms[resource.Name] = regexp.MustCompile(`\b(` + strings.Join(terms, "|") + `)\b`)
		names[resource.Name] = regexp.MustCompile(`\b` + regexp.QuoteMeta(resource.Name) + `\b`)
	}
	return &Checker{cat: cat, synonyms: synonyms, names: names}
}

// ResolveScope derives the permitted resource set for a principal. Admin
// implies the full catalog; unknown resource names are dropped rather than
// granted.
func (c *Checker) ResolveScope(p Principal) Scope {
	if p.Role == RoleAdmin {
		return newScope(c.cat.Names())
	}
	permitted := make([]string, 0, len(p.Resources))
	for _, name := range p.Resources {
		if c.cat.Has(name) {
			permitted = append(permitted, name)
		}
	}
	return newScope(permitted)
}

// PreCheck scans the raw question for resource-identifying keywords and
// rejects when an identified resource lies outside scope. Detection is
// heuristic; false negatives are re-checked by later layers.
func (c *Checker) PreCheck(question string, scope Scope) error {
	normalized := guardrail.Normalize(question)
	for name, pattern := range c.synonyms {
		if scope.Allows(name) {
			continue
		}
		if pattern.MatchString(normalized) {
			return &Violation{Layer: 1, Resource: name}
		}
	}
	return nil
}

// PostCheck inspects model output for out-of-scope resource names. Unlike
// the pre-check it matches only catalog names, since generated SQL and
// explanations refer to resources by their table name.
func (c *Checker) PostCheck(output string, scope Scope) error {
	normalized := guardrail.Normalize(output)
	for name, pattern := range c.names {
		if scope.Allows(name) {
			continue
		}
		if pattern.MatchString(normalized) {
			return &Violation{Layer: 3, Resource: name}
		}
	}
	return nil
}
