package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/history"
)

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func assertSQLMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}

func TestOpenRequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), config.HistoryConfig{})
	if err == nil {
		t.Fatal("expected error for empty DSN")
	}
}

func TestAppendAssignsID(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`
INSERT INTO conversation_turn (turn_id, session_id, principal_id, question, answer, sql_query)
VALUES ($1, $2, $3, $4, $5, $6)`)).
		WithArgs(sqlmock.AnyArg(), "s1", "alice", "How many clients?", "There are 42 clients.", "SELECT count(*) FROM clients").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Append(context.Background(), history.Turn{
		SessionID:   "s1",
		PrincipalID: "alice",
		Question:    "How many clients?",
		Answer:      "There are 42 clients.",
		SQLQuery:    "SELECT count(*) FROM clients",
	})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	assertSQLMock(t, mock)
}

func TestRecentReturnsOldestFirst(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewRepository(db)
	base := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`
SELECT turn_id, session_id, principal_id, question, answer, sql_query, created_at
FROM conversation_turn
WHERE session_id = $1
ORDER BY created_at DESC
LIMIT $2`)).
		WithArgs("s1", 8).
		WillReturnRows(sqlmock.NewRows([]string{"turn_id", "session_id", "principal_id", "question", "answer", "sql_query", "created_at"}).
			AddRow("t2", "s1", "alice", "And in Lyon?", "4 clients.", "SELECT count(*) FROM clients WHERE city = 'Lyon'", base.Add(time.Minute)).
			AddRow("t1", "s1", "alice", "Clients in Paris?", "12 clients.", "SELECT count(*) FROM clients WHERE city = 'Paris'", base))

	turns, err := repo.Recent(context.Background(), "s1", 8)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("len(turns) = %d", len(turns))
	}
	if turns[0].ID != "t1" || turns[1].ID != "t2" {
		t.Fatalf("order = %q, %q", turns[0].ID, turns[1].ID)
	}
	assertSQLMock(t, mock)
}

func TestPurgeReportsAffectedRows(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`
DELETE FROM conversation_turn
WHERE principal_id = $1`)).
		WithArgs("alice").
		WillReturnResult(sqlmock.NewResult(0, 3))

	removed, err := repo.Purge(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Purge() error = %v", err)
	}
	if removed != 3 {
		t.Fatalf("removed = %d", removed)
	}
	assertSQLMock(t, mock)
}

func TestPruneExpired(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewRepository(db)
	cutoff := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(`
DELETE FROM conversation_turn
WHERE created_at < $1`)).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 10))

	removed, err := repo.PruneExpired(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("PruneExpired() error = %v", err)
	}
	if removed != 10 {
		t.Fatalf("removed = %d", removed)
	}
	assertSQLMock(t, mock)
}
