package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite3"
)

// SQLStore keeps both the sequence and the order numbers in a database
// reached through database/sql. Queries are written with ? placeholders and
// rebound for postgres.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS transaction_sequence (
		name TEXT PRIMARY KEY,
		id   BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS order_numbers (
		order_number TEXT PRIMARY KEY,
		recorded_at  TIMESTAMP NOT NULL
	)`,
}

// OpenSQL opens the database for dialect and creates the tables if needed.
func OpenSQL(ctx context.Context, dialect Dialect, dsn string) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("dsn is required for %s backend", dialect)
	}
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == SQLite {
		// one writer at a time keeps sqlite from returning SQLITE_BUSY
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxIdleConns(2)
		db.SetMaxOpenConns(4)
	}
	store, err := NewSQLStore(ctx, db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLStore wraps an open db and makes sure the tables exist.
func NewSQLStore(ctx context.Context, db *sql.DB, dialect Dialect) (*SQLStore, error) {
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}
	return &SQLStore{db: db, dialect: dialect}, nil
}

func (s *SQLStore) Current(ctx context.Context) (int64, error) {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO transaction_sequence(name, id) VALUES (?, 1)
		ON CONFLICT (name) DO NOTHING
	`), SequenceKey)
	if err != nil {
		return 0, fmt.Errorf("initializing transaction sequence: %w", err)
	}
	var id int64
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT id FROM transaction_sequence WHERE name = ?`), SequenceKey)
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("reading transaction sequence: %w", err)
	}
	return id, nil
}

func (s *SQLStore) Advance(ctx context.Context) error {
	if _, err := s.Current(ctx); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE transaction_sequence SET id = id + 1 WHERE name = ?`), SequenceKey)
	if err != nil {
		return fmt.Errorf("advancing transaction sequence: %w", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return fmt.Errorf("advancing transaction sequence: %d rows updated", n)
	}
	return nil
}

func (s *SQLStore) IsUnique(ctx context.Context, orderNumber string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT 1 FROM order_numbers WHERE order_number = ?`), orderNumber).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("looking up order number: %w", err)
	}
	return false, nil
}

func (s *SQLStore) Record(ctx context.Context, orderNumber string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO order_numbers(order_number, recorded_at) VALUES (?, ?)
	`), orderNumber, time.Now().UTC())
	if isUniqueViolation(err) {
		return fmt.Errorf("order number %s: %w", orderNumber, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("recording order number: %w", err)
	}
	return nil
}

func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM order_numbers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting order numbers: %w", err)
	}
	return n, nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// rebind turns ? placeholders into $1..$n for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pe *pq.Error
	if errors.As(err, &pe) && pe.Code == "23505" {
		return true
	}
	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) && pgerr.Code == "23505" {
		return true
	}
	var se sqlite3.Error
	if errors.As(err, &se) && (se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || se.ExtendedCode == sqlite3.ErrConstraintUnique) {
		return true
	}
	return false
}
