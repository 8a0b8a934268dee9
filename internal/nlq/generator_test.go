package nlq

import (
	"context"
	"strings"
	"testing"

	"github.com/askdb/askdb/internal/catalog"
	"github.com/askdb/askdb/internal/execgate"
	"github.com/askdb/askdb/internal/history"
	"github.com/askdb/askdb/internal/rbac"
)

type fakeClient struct {
	lastSystem string
	lastUser   string
	reply      string
	err        error
}

func (f *fakeClient) Complete(_ context.Context, system, user string) (string, error) {
	f.lastSystem = system
	f.lastUser = user
	return f.reply, f.err
}

func scopeFor(t *testing.T, resources ...string) rbac.Scope {
	t.Helper()
	checker := rbac.NewChecker(catalog.Default())
	return checker.ResolveScope(rbac.Principal{ID: "t", Role: rbac.RoleStandard, Resources: resources})
}

func TestResolveIntentSkipsModelWithoutHistory(t *testing.T) {
	client := &fakeClient{reply: "should not be used"}
	gen := NewGenerator(client)

	resolved, err := gen.ResolveIntent(context.Background(), "How many clients?", nil)
	if err != nil {
		t.Fatalf("ResolveIntent() error = %v", err)
	}
	if resolved != "How many clients?" {
		t.Fatalf("resolved = %q", resolved)
	}
	if client.lastUser != "" {
		t.Fatal("model should not be called without history")
	}
}

func TestResolveIntentIncludesRecentTurns(t *testing.T) {
	client := &fakeClient{reply: "How many active clients in Lyon?"}
	gen := NewGenerator(client)

	recent := []history.Turn{
		{Question: "How many active clients in Paris?", Answer: "There are 2."},
	}
	resolved, err := gen.ResolveIntent(context.Background(), "and in Lyon?", recent)
	if err != nil {
		t.Fatalf("ResolveIntent() error = %v", err)
	}
	if resolved != "How many active clients in Lyon?" {
		t.Fatalf("resolved = %q", resolved)
	}
	if !strings.Contains(client.lastUser, "How many active clients in Paris?") {
		t.Fatalf("prompt missing prior turn: %q", client.lastUser)
	}
	if !strings.Contains(client.lastUser, "and in Lyon?") {
		t.Fatalf("prompt missing follow-up: %q", client.lastUser)
	}
}

func TestInstructionsEnumerateOnlyScopedResources(t *testing.T) {
	instructions := Instructions(scopeFor(t, "clients"))
	if !strings.Contains(instructions, "clients") {
		t.Fatalf("instructions missing scoped table: %q", instructions)
	}
	for _, excluded := range []string{"orders", "products"} {
		if strings.Contains(instructions, excluded) {
			t.Fatalf("instructions leak excluded table %q", excluded)
		}
	}
}

func TestGenerateUsesScopedInstructions(t *testing.T) {
	client := &fakeClient{reply: "```sql\nSELECT count(*) FROM clients\n```"}
	gen := NewGenerator(client)

	output, err := gen.Generate(context.Background(), "How many clients?", "TABLE clients (...)", scopeFor(t, "clients"))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !strings.Contains(output, "SELECT count(*) FROM clients") {
		t.Fatalf("output = %q", output)
	}
	if strings.Contains(client.lastSystem, "orders") {
		t.Fatalf("system prompt leaks excluded table: %q", client.lastSystem)
	}
	if !strings.Contains(client.lastUser, "TABLE clients") {
		t.Fatalf("user prompt missing schema context: %q", client.lastUser)
	}
}

func TestFormatAnswerIncludesResultSet(t *testing.T) {
	client := &fakeClient{reply: "There are 2 active clients in Paris."}
	gen := NewGenerator(client)

	answer, err := gen.FormatAnswer(context.Background(), "How many active clients in Paris?", execgate.Result{
		Columns:  []string{"count"},
		Rows:     [][]any{{int64(2)}},
		RowCount: 1,
	})
	if err != nil {
		t.Fatalf("FormatAnswer() error = %v", err)
	}
	if answer != "There are 2 active clients in Paris." {
		t.Fatalf("answer = %q", answer)
	}
	if !strings.Contains(client.lastUser, `"row_count":1`) {
		t.Fatalf("prompt missing result set: %q", client.lastUser)
	}
}
