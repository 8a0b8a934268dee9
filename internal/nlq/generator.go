package nlq

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/askdb/askdb/internal/execgate"
	"github.com/askdb/askdb/internal/history"
	"github.com/askdb/askdb/internal/llm"
	"github.com/askdb/askdb/internal/rbac"
)

// Generator drives the model-facing stages: follow-up resolution, SQL
// generation, and answer formatting. It holds no per-request state; all
// request data flows through parameters.
type Generator struct {
	client llm.Client
}

func NewGenerator(client llm.Client) *Generator {
	return &Generator{client: client}
}

const intentSystemPrompt = `You rewrite a follow-up question into a fully standalone question, using the prior conversation turns for missing referents.
Keep the question's language. If the question already stands alone, return it unchanged.
Return ONLY the rewritten question, nothing else.`

// ResolveIntent turns an elliptical follow-up ("and in Lyon?") into a
// standalone question using the session's recent turns. Questions in a
// fresh session pass through without a model call.
func (g *Generator) ResolveIntent(ctx context.Context, question string, recent []history.Turn) (string, error) {
	if len(recent) == 0 {
		return question, nil
	}

	var b strings.Builder
	b.WriteString("Conversation so far (oldest first):\n")
	for _, turn := range recent {
		fmt.Fprintf(&b, "Q: %s\nA: %s\n", turn.Question, turn.Answer)
	}
	fmt.Fprintf(&b, "\nFollow-up question:\n%s", question)

	resolved, err := g.client.Complete(ctx, intentSystemPrompt, b.String())
	if err != nil {
		return "", fmt.Errorf("resolve intent: %w", err)
	}
	resolved = strings.TrimSpace(resolved)
	if resolved == "" {
		return question, nil
	}
	return resolved, nil
}

// Instructions builds the generation-time system prompt. It is assembled
// only from the scope's resource names, never from caller text, so the
// generator is never shown schema for excluded resources.
func Instructions(scope rbac.Scope) string {
	var b strings.Builder
	b.WriteString("You convert natural language questions into a single PostgreSQL SELECT query.\n")
	b.WriteString("You may reference ONLY these tables: ")
	b.WriteString(strings.Join(scope.Names(), ", "))
	b.WriteString(".\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Output exactly one SELECT statement inside a ```sql fenced block.\n")
	b.WriteString("- Never write INSERT, UPDATE, DELETE, DROP, ALTER, TRUNCATE, CREATE, GRANT or any other mutating statement.\n")
	b.WriteString("- Never reference tables outside the list above, including system catalogs.\n")
	b.WriteString("- Use explicit column names where practical.\n")
	return b.String()
}

// Generate asks the model for a candidate query. The output is untrusted
// and must pass extraction and validation before execution.
func (g *Generator) Generate(ctx context.Context, question, schemaContext string, scope rbac.Scope) (string, error) {
	user := fmt.Sprintf("Schema context:\n%s\nQuestion:\n%s", schemaContext, question)
	output, err := g.client.Complete(ctx, Instructions(scope), user)
	if err != nil {
		return "", fmt.Errorf("generate query: %w", err)
	}
	return output, nil
}

const formatSystemPrompt = `You summarize a SQL result set as a short natural-language answer to the user's question.
Answer in the language of the question. State counts and values plainly.
If the result set is empty, say that no matching data was found.
Do not mention SQL, tables, or column names.`

// FormatAnswer turns a result set into prose. The caller applies output
// masking to whatever comes back.
func (g *Generator) FormatAnswer(ctx context.Context, question string, result execgate.Result) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"columns":   result.Columns,
		"rows":      result.Rows,
		"row_count": result.RowCount,
	})
	if err != nil {
		return "", fmt.Errorf("marshal result set: %w", err)
	}

	user := fmt.Sprintf("Question:\n%s\n\nResult set (JSON):\n%s", question, string(payload))
	answer, err := g.client.Complete(ctx, formatSystemPrompt, user)
	if err != nil {
		return "", fmt.Errorf("format answer: %w", err)
	}
	return strings.TrimSpace(answer), nil
}
