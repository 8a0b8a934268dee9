package rbac

import (
	"errors"
	"testing"

	"github.com/askdb/askdb/internal/catalog"
)

func newTestChecker(t *testing.T) *Checker {
	t.Helper()
	return NewChecker(catalog.Default())
}

func TestResolveScopeAdminGetsFullCatalog(t *testing.T) {
	checker := newTestChecker(t)
	scope := checker.ResolveScope(Principal{ID: "root", Role: RoleAdmin})
	for _, name := range []string{"clients", "products", "orders"} {
		if !scope.Allows(name) {
			t.Fatalf("admin scope missing %q", name)
		}
	}
}

func TestResolveScopeStandardKeepsOnlyKnownResources(t *testing.T) {
	checker := newTestChecker(t)
	scope := checker.ResolveScope(Principal{
		ID:        "alice",
		Role:      RoleStandard,
		Resources: []string{"clients", "secrets", "Clients", ""},
	})
	if !scope.Allows("clients") {
		t.Fatal("scope should allow clients")
	}
	if scope.Allows("secrets") {
		t.Fatal("scope should drop unknown resources")
	}
	if scope.Allows("orders") {
		t.Fatal("scope should not include unrequested resources")
	}
	if names := scope.Names(); len(names) != 1 || names[0] != "clients" {
		t.Fatalf("Names() = %v", names)
	}
}

func TestResolveScopeEmptyForNoResources(t *testing.T) {
	checker := newTestChecker(t)
	scope := checker.ResolveScope(Principal{ID: "bob", Role: RoleStandard})
	if !scope.IsEmpty() {
		t.Fatalf("scope should be empty, got %v", scope.Names())
	}
}

func TestPreCheckRejectsOutOfScopeSynonyms(t *testing.T) {
	checker := newTestChecker(t)
	scope := checker.ResolveScope(Principal{ID: "alice", Role: RoleStandard, Resources: []string{"clients"}})

	cases := []struct {
		question string
		resource string
	}{
		{"What are the orders of Marie Dupont?", "orders"},
		{"Quel est le chiffre d'affaires total ?", "orders"},
		{"show me total revenue by month", "orders"},
		{"list all products by category", "products"},
		{"Quels sont les produits les plus vendus ?", "products"},
	}
	for _, tc := range cases {
		err := checker.PreCheck(tc.question, scope)
		var violation *Violation
		if !errors.As(err, &violation) {
			t.Fatalf("PreCheck(%q) = %v, want Violation", tc.question, err)
		}
		if violation.Layer != 1 {
			t.Fatalf("Layer = %d, want 1", violation.Layer)
		}
		if violation.Resource != tc.resource {
			t.Fatalf("Resource = %q, want %q", violation.Resource, tc.resource)
		}
	}
}

func TestPreCheckAllowsInScopeQuestions(t *testing.T) {
	checker := newTestChecker(t)
	scope := checker.ResolveScope(Principal{ID: "alice", Role: RoleStandard, Resources: []string{"clients"}})
	questions := []string{
		"How many active clients in Paris?",
		"Which customers signed up this year?",
	}
	for _, q := range questions {
		if err := checker.PreCheck(q, scope); err != nil {
			t.Fatalf("PreCheck(%q) = %v", q, err)
		}
	}
}

func TestPreCheckIsAccentInsensitive(t *testing.T) {
	checker := newTestChecker(t)
	scope := checker.ResolveScope(Principal{ID: "alice", Role: RoleStandard, Resources: []string{"clients"}})
	if err := checker.PreCheck("montant des VENTES a Lyon", scope); err == nil {
		t.Fatal("PreCheck should catch uppercase synonym")
	}
	if err := checker.PreCheck("chiffre d'affaires total", scope); err == nil {
		t.Fatal("PreCheck should catch accented synonym")
	}
}

func TestPostCheckRejectsOutOfScopeResourceNames(t *testing.T) {
	checker := newTestChecker(t)
	scope := checker.ResolveScope(Principal{ID: "alice", Role: RoleStandard, Resources: []string{"clients"}})

	err := checker.PostCheck("SELECT * FROM orders JOIN clients ON orders.client_id = clients.id", scope)
	var violation *Violation
	if !errors.As(err, &violation) {
		t.Fatalf("PostCheck = %v, want Violation", err)
	}
	if violation.Layer != 3 {
		t.Fatalf("Layer = %d, want 3", violation.Layer)
	}
	if violation.Resource != "orders" {
		t.Fatalf("Resource = %q", violation.Resource)
	}

	if err := checker.PostCheck("SELECT count(*) FROM clients", scope); err != nil {
		t.Fatalf("PostCheck in-scope = %v", err)
	}
}

func TestPostCheckIgnoresSynonymsInProse(t *testing.T) {
	checker := newTestChecker(t)
	scope := checker.ResolveScope(Principal{ID: "alice", Role: RoleStandard, Resources: []string{"clients"}})
	// "customers" is a synonym for clients but not a table name; explaining
	// text mentioning it must not trip the post-check.
	if err := checker.PostCheck("counts customers from the clients table", scope); err != nil {
		t.Fatalf("PostCheck = %v", err)
	}
}
