package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/history"
)

func Open(ctx context.Context, cfg config.HistoryConfig) (*Repository, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("history dsn is required")
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping history db: %w", err)
	}

	return NewRepository(db), nil
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) HealthCheck(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping history db: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) Append(ctx context.Context, turn history.Turn) error {
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}

	query := `
INSERT INTO conversation_turn (turn_id, session_id, principal_id, question, answer, sql_query)
VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, query, turn.ID, turn.SessionID, turn.PrincipalID, turn.Question, turn.Answer, turn.SQLQuery); err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

func (r *Repository) Recent(ctx context.Context, sessionID string, n int) ([]history.Turn, error) {
	query := `
SELECT turn_id, session_id, principal_id, question, answer, sql_query, created_at
FROM conversation_turn
WHERE session_id = $1
ORDER BY created_at DESC
LIMIT $2`

	turns, err := r.queryTurns(ctx, query, sessionID, n)
	if err != nil {
		return nil, fmt.Errorf("recent turns: %w", err)
	}
	// Reverse to oldest-first so callers can replay the exchange in order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func (r *Repository) ListByPrincipal(ctx context.Context, principalID string, limit int) ([]history.Turn, error) {
	query := `
SELECT turn_id, session_id, principal_id, question, answer, sql_query, created_at
FROM conversation_turn
WHERE principal_id = $1
ORDER BY created_at DESC
LIMIT $2`

	turns, err := r.queryTurns(ctx, query, principalID, limit)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	return turns, nil
}

func (r *Repository) Purge(ctx context.Context, principalID string) (int, error) {
	result, err := r.db.ExecContext(ctx, `
DELETE FROM conversation_turn
WHERE principal_id = $1`, principalID)
	if err != nil {
		return 0, fmt.Errorf("purge turns: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge turns affected: %w", err)
	}
	return int(affected), nil
}

func (r *Repository) PruneExpired(ctx context.Context, olderThan time.Time) (int, error) {
	result, err := r.db.ExecContext(ctx, `
DELETE FROM conversation_turn
WHERE created_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("prune turns: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune turns affected: %w", err)
	}
	return int(affected), nil
}

func (r *Repository) queryTurns(ctx context.Context, query string, args ...any) ([]history.Turn, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	turns := make([]history.Turn, 0)
	for rows.Next() {
		var turn history.Turn
		if err := rows.Scan(&turn.ID, &turn.SessionID, &turn.PrincipalID, &turn.Question, &turn.Answer, &turn.SQLQuery, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn row: %w", err)
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turn rows: %w", err)
	}
	return turns, nil
}
