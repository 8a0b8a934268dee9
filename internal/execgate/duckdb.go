package execgate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/askdb/askdb/internal/config"
)

type DuckDBEngine struct {
	db           *sql.DB
	queryTimeout time.Duration
}

// OpenDuckDB opens a local database file with the read_only access mode, so
// the engine itself rejects writes even if a mutating statement slipped
// through every check above it.
func OpenDuckDB(ctx context.Context, cfg config.ExecConfig) (*DuckDBEngine, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("exec path is required")
	}

	db, err := sql.Open("duckdb", cfg.Path+"?access_mode=read_only")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}

	return &DuckDBEngine{db: db, queryTimeout: cfg.QueryTimeout}, nil
}

func (e *DuckDBEngine) Execute(ctx context.Context, request Request) (Result, error) {
	sqlText := strings.TrimSpace(request.SQL)
	if sqlText == "" {
		return Result{}, &Error{Kind: KindMalformed, Err: errors.New("sql is required")}
	}
	if request.RowLimit > 0 {
		sqlText = fmt.Sprintf("SELECT * FROM (%s) AS q LIMIT %d", sqlText, request.RowLimit)
	}

	if e.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.queryTimeout)
		defer cancel()
	}

	start := time.Now()
	result, err := runQuery(ctx, e.db, sqlText)
	if err != nil {
		return Result{}, classify(err)
	}
	result.Duration = time.Since(start)
	return result, nil
}

func (e *DuckDBEngine) HealthCheck(ctx context.Context) error {
	return e.db.PingContext(ctx)
}

func (e *DuckDBEngine) Close() error {
	return e.db.Close()
}
