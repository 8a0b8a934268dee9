package sqlcheck

import (
	"regexp"
	"strings"

	"github.com/askdb/askdb/internal/rbac"
)

// Reason classifies a validation rejection. Reasons are logged, never
// returned verbatim to the caller.
type Reason string

const (
	ReasonForbiddenResource  Reason = "uses_forbidden_resource"
	ReasonForbiddenOperation Reason = "uses_forbidden_operation"
	ReasonMalformed          Reason = "malformed"
)

type Verdict struct {
	Accepted bool
	// Query is the cleaned statement when accepted.
	Query  string
	Reason Reason
}

func accepted(query string) Verdict {
	return Verdict{Accepted: true, Query: query}
}

func rejected(reason Reason) Verdict {
	return Verdict{Reason: reason}
}

// forbiddenKeywords are mutating or administrative operations, checked as
// whole-word case-insensitive tokens so column names like "created_at" or
// "last_update_note" do not trip them.
var forbiddenKeywords = []string{
	"insert", "update", "delete", "drop", "alter", "truncate", "create",
	"grant", "revoke", "merge", "replace", "upsert", "exec", "execute",
	"call", "copy", "vacuum", "reindex", "shutdown", "backup", "restore",
	"set", "reset", "do", "comment",
}

var forbiddenKeywordPattern = regexp.MustCompile(`(?i)\b(` + strings.Join(forbiddenKeywords, "|") + `)\b`)

// systemPrefixes are catalog namespaces a generated query must never touch.
var systemPrefixes = []string{"pg_", "information_schema", "sys.", "duckdb_"}

var fencedBlockPattern = regexp.MustCompile("(?s)```(?:sql)?\\s*(.*?)```")

var selectStartPattern = regexp.MustCompile(`(?is)\b(select|with)\b.*`)

// Extract pulls a single candidate query from model output: the first fenced
// code block when present, otherwise the first SELECT- or WITH-shaped
// substring. Returns false when no candidate is found.
func Extract(modelOutput string) (string, bool) {
	if match := fencedBlockPattern.FindStringSubmatch(modelOutput); match != nil {
		candidate := strings.TrimSpace(match[1])
		if candidate != "" {
			return candidate, true
		}
	}
	if match := selectStartPattern.FindString(modelOutput); match != "" {
		return strings.TrimSpace(match), true
	}
	return "", false
}

// Validate applies the bounded lexical checks, in order: single read-only
// statement, no mutating keyword, resource references within scope, no
// statement separators. Any failure, including inability to parse resource
// references, rejects the query.
func Validate(query string, scope rbac.Scope) (Verdict, *rbac.Violation) {
	cleaned := strings.TrimSpace(query)
	cleaned = strings.TrimSuffix(cleaned, ";")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return rejected(ReasonMalformed), nil
	}

	lowered := strings.ToLower(cleaned)
	if !strings.HasPrefix(lowered, "select") && !strings.HasPrefix(lowered, "with") {
		return rejected(ReasonForbiddenOperation), nil
	}
	if strings.ContainsAny(cleaned, ";\x00") {
		return rejected(ReasonMalformed), nil
	}
	if strings.Contains(cleaned, "--") || strings.Contains(cleaned, "/*") || strings.Contains(cleaned, "*/") {
		return rejected(ReasonMalformed), nil
	}
	if forbiddenKeywordPattern.MatchString(cleaned) {
		return rejected(ReasonForbiddenOperation), nil
	}

	resources, ok := ReferencedResources(cleaned)
	if !ok {
		return rejected(ReasonMalformed), nil
	}
	for _, resource := range resources {
		for _, prefix := range systemPrefixes {
			if strings.HasPrefix(resource, prefix) {
				return rejected(ReasonForbiddenResource), &rbac.Violation{Layer: 4, Resource: resource}
			}
		}
		if !scope.Allows(resource) {
			return rejected(ReasonForbiddenResource), &rbac.Violation{Layer: 4, Resource: resource}
		}
	}
	return accepted(cleaned), nil
}
