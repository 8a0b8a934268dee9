package llm

import "context"

// Client is a chat completion backend. The pipeline treats any Complete
// error as an upstream failure and answers with a fixed message.
type Client interface {
	Complete(ctx context.Context, system, user string) (string, error)
}
