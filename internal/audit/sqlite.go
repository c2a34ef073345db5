package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/joss/taskd/internal/store"
)

// SQLiteStore persists audit events to a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating if needed) the audit database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS audit_events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		kind TEXT NOT NULL,
		tool TEXT NOT NULL DEFAULT '',
		task TEXT NOT NULL DEFAULT '',
		success INTEGER NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER NOT NULL DEFAULT 0,
		request_id TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_kind ON audit_events(kind, seq DESC);
	CREATE INDEX IF NOT EXISTS idx_audit_tool ON audit_events(tool, seq DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, e *Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, kind, tool, task, success, error, duration_ms, request_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, string(e.Kind), e.Tool, e.Task, e.Success, e.Error, e.DurationMs, e.RequestID, e.CreatedAt.UTC())
	return err
}

const selectColumns = `SELECT id, kind, tool, task, success, error, duration_ms, request_id, created_at FROM audit_events`

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Event, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.NewNotFoundError("audit event", id)
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *SQLiteStore) Recent(ctx context.Context, f store.Filter) ([]Event, error) {
	var (
		conds []string
		args  []any
	)
	if v, ok := f.Where[FieldKind]; ok {
		conds = append(conds, "kind = ?")
		args = append(args, v)
	}
	if v, ok := f.Where[FieldTool]; ok {
		conds = append(conds, "tool = ?")
		args = append(args, v)
	}

	query := selectColumns
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY seq DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	} else {
		query += " LIMIT -1"
	}
	if f.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, f.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(sc scanner) (*Event, error) {
	var (
		e         Event
		kind      string
		createdAt time.Time
	)
	if err := sc.Scan(&e.ID, &kind, &e.Tool, &e.Task, &e.Success, &e.Error, &e.DurationMs, &e.RequestID, &createdAt); err != nil {
		return nil, err
	}
	e.Kind = Kind(kind)
	e.CreatedAt = createdAt.UTC()
	return &e, nil
}
