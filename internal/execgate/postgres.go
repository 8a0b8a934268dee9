package execgate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/askdb/askdb/internal/config"
)

type PostgresEngine struct {
	db           *sql.DB
	queryTimeout time.Duration
}

// OpenPostgres connects to the analytics database. The pool is only ever
// handed read-only transactions, so the DSN may point at a replica.
func OpenPostgres(ctx context.Context, cfg config.ExecConfig) (*PostgresEngine, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("exec dsn is required")
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open exec db: %w", err)
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
		return nil, fmt.Errorf("ping exec db: %w", err)
	}

	return NewPostgresEngine(db, cfg.QueryTimeout), nil
}

func NewPostgresEngine(db *sql.DB, queryTimeout time.Duration) *PostgresEngine {
	return &PostgresEngine{db: db, queryTimeout: queryTimeout}
}

func (e *PostgresEngine) Execute(ctx context.Context, request Request) (Result, error) {
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
	tx, err := e.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return Result{}, classify(err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := runQuery(ctx, tx, sqlText)
	if err != nil {
		return Result{}, classify(err)
	}
	if err := tx.Commit(); err != nil {
		return Result{}, classify(err)
	}
	result.Duration = time.Since(start)
	return result, nil
}

func (e *PostgresEngine) HealthCheck(ctx context.Context) error {
	return e.db.PingContext(ctx)
}

func (e *PostgresEngine) Close() error {
	return e.db.Close()
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func runQuery(ctx context.Context, q queryer, sqlText string) (Result, error) {
	rows, err := q.QueryContext(ctx, sqlText)
	if err != nil {
		return Result{}, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return Result{}, fmt.Errorf("query columns: %w", err)
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return Result{}, fmt.Errorf("scan row: %w", err)
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return Result{}, fmt.Errorf("iterate rows: %w", err)
	}

	return Result{
		Columns:  columns,
		Rows:     resultRows,
		RowCount: len(resultRows),
	}, nil
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

func classify(err error) *Error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, Err: err}
	case errors.As(err, &netErr) && netErr.Timeout():
		return &Error{Kind: KindTimeout, Err: err}
	case errors.As(err, &netErr),
		errors.Is(err, io.EOF),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, context.Canceled):
		return &Error{Kind: KindConnectivity, Err: err}
	default:
		return &Error{Kind: KindMalformed, Err: err}
	}
}
