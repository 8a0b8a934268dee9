package history

import (
	"context"
	"time"
)

// Turn is one completed question/answer exchange. Only answered questions
// are recorded; rejected or failed requests never reach the store.
type Turn struct {
	ID          string
	SessionID   string
	PrincipalID string
	Question    string
	Answer      string
	SQLQuery    string
	CreatedAt   time.Time
}

// Store persists conversation turns. Recent returns the most recent turns
// for a session ordered oldest first, bounded by n.
type Store interface {
	Append(ctx context.Context, turn Turn) error
	Recent(ctx context.Context, sessionID string, n int) ([]Turn, error)
	ListByPrincipal(ctx context.Context, principalID string, limit int) ([]Turn, error)
	Purge(ctx context.Context, principalID string) (int, error)
	PruneExpired(ctx context.Context, olderThan time.Time) (int, error)
	HealthCheck(ctx context.Context) error
}
