package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/openfroyo/walworkspace/pkg/engine"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const memoryPath = ":memory:"

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db  *sql.DB
	cfg Config
}

var _ Store = (*SQLiteStore)(nil)

// Config holds SQLite store configuration
type Config struct {
	Path            string        `yaml:"path" validate:"required"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	// Set defaults
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}

	// Every connection to :memory: opens its own database.
	if cfg.Path == memoryPath {
		cfg.MaxOpenConns = 1
		cfg.MaxIdleConns = 1
		cfg.ConnMaxLifetime = 0
	}

	return &SQLiteStore{cfg: cfg}, nil
}

// Init opens the database connection and enables WAL mode for file databases.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := s.cfg.Path
	if dsn != memoryPath {
		dsn = fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_txlock=immediate", s.cfg.Path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	db.SetMaxIdleConns(s.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// SaveContext inserts or replaces the context stored under rec.RequestToken.
func (s *SQLiteStore) SaveContext(ctx context.Context, rec *CallbackRecord) error {
	if rec.RequestToken == "" {
		return fmt.Errorf("request token is required")
	}

	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	if rec.Request == "" {
		rec.Request = "{}"
	}

	query := `
		INSERT INTO callback_contexts (
			request_token, action, workspace, request, retry_attempts, workspace_arn,
			attempt, next_attempt_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(request_token) DO UPDATE SET
			action = excluded.action,
			workspace = excluded.workspace,
			request = excluded.request,
			retry_attempts = excluded.retry_attempts,
			workspace_arn = excluded.workspace_arn,
			attempt = excluded.attempt,
			next_attempt_at = excluded.next_attempt_at,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.RequestToken,
		string(rec.Action),
		rec.Workspace,
		rec.Request,
		rec.Context.RetryAttempts,
		rec.Context.WorkspaceARN,
		rec.Attempt,
		rec.NextAttemptAt.UTC(),
		rec.CreatedAt.UTC(),
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save context: %w", err)
	}

	return nil
}

const callbackColumns = `request_token, action, workspace, request, retry_attempts, workspace_arn,
	attempt, next_attempt_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCallback(row rowScanner) (*CallbackRecord, error) {
	rec := &CallbackRecord{}
	var action string
	err := row.Scan(
		&rec.RequestToken,
		&action,
		&rec.Workspace,
		&rec.Request,
		&rec.Context.RetryAttempts,
		&rec.Context.WorkspaceARN,
		&rec.Attempt,
		&rec.NextAttemptAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Action = engine.Action(action)
	return rec, nil
}

// LoadContext returns the context stored under requestToken.
func (s *SQLiteStore) LoadContext(ctx context.Context, requestToken string) (*CallbackRecord, error) {
	query := `SELECT ` + callbackColumns + ` FROM callback_contexts WHERE request_token = ?`

	rec, err := scanCallback(s.db.QueryRowContext(ctx, query, requestToken))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("context %s: %w", requestToken, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load context: %w", err)
	}

	return rec, nil
}

// DeleteContext removes the context stored under requestToken.
func (s *SQLiteStore) DeleteContext(ctx context.Context, requestToken string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM callback_contexts WHERE request_token = ?`, requestToken)
	if err != nil {
		return fmt.Errorf("failed to delete context: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("context %s: %w", requestToken, ErrNotFound)
	}

	return nil
}

// ListContexts lists pending contexts, soonest re-invocation first.
func (s *SQLiteStore) ListContexts(ctx context.Context, limit, offset int) ([]*CallbackRecord, error) {
	query := `SELECT ` + callbackColumns + `
		FROM callback_contexts
		ORDER BY next_attempt_at ASC, request_token ASC
		LIMIT ? OFFSET ?`

	return s.queryContexts(ctx, query, limit, offset)
}

// DueContexts lists contexts whose re-invocation time is at or before now.
func (s *SQLiteStore) DueContexts(ctx context.Context, now time.Time) ([]*CallbackRecord, error) {
	query := `SELECT ` + callbackColumns + `
		FROM callback_contexts
		WHERE next_attempt_at <= ?
		ORDER BY next_attempt_at ASC, request_token ASC`

	return s.queryContexts(ctx, query, now.UTC())
}

func (s *SQLiteStore) queryContexts(ctx context.Context, query string, args ...any) ([]*CallbackRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list contexts: %w", err)
	}
	defer rows.Close()

	records := []*CallbackRecord{}
	for rows.Next() {
		rec, err := scanCallback(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan context: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contexts: %w", err)
	}

	return records, nil
}

// RecordInvocation appends inv to the invocation log and sets its ID.
func (s *SQLiteStore) RecordInvocation(ctx context.Context, inv *Invocation) error {
	if inv.Timestamp.IsZero() {
		inv.Timestamp = time.Now().UTC()
	}

	query := `
		INSERT INTO invocations (
			request_token, action, workspace, status, error_code, message,
			retry_attempts, attempt, duration_ms, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		inv.RequestToken,
		string(inv.Action),
		inv.Workspace,
		string(inv.Status),
		string(inv.ErrorCode),
		inv.Message,
		inv.RetryAttempts,
		inv.Attempt,
		inv.Duration.Milliseconds(),
		inv.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record invocation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get invocation id: %w", err)
	}
	inv.ID = id

	return nil
}

// ListInvocations lists invocations matching filter, newest first.
func (s *SQLiteStore) ListInvocations(ctx context.Context, filter InvocationFilter) ([]*Invocation, error) {
	var where []string
	var args []any

	if filter.RequestToken != nil {
		where = append(where, "request_token = ?")
		args = append(args, *filter.RequestToken)
	}
	if filter.Workspace != nil {
		where = append(where, "workspace = ?")
		args = append(args, *filter.Workspace)
	}
	if filter.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*filter.Status))
	}

	query := `
		SELECT id, request_token, action, workspace, status, error_code, message,
			retry_attempts, attempt, duration_ms, timestamp
		FROM invocations`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC LIMIT ? OFFSET ?"

	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invocations: %w", err)
	}
	defer rows.Close()

	invocations := []*Invocation{}
	for rows.Next() {
		inv := &Invocation{}
		var action, status, errorCode string
		var durationMs int64
		err := rows.Scan(
			&inv.ID,
			&inv.RequestToken,
			&action,
			&inv.Workspace,
			&status,
			&errorCode,
			&inv.Message,
			&inv.RetryAttempts,
			&inv.Attempt,
			&durationMs,
			&inv.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invocation: %w", err)
		}
		inv.Action = engine.Action(action)
		inv.Status = engine.Status(status)
		inv.ErrorCode = engine.ErrorKind(errorCode)
		inv.Duration = time.Duration(durationMs) * time.Millisecond
		invocations = append(invocations, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invocations: %w", err)
	}

	return invocations, nil
}

// PruneInvocations deletes invocations recorded before the given time.
func (s *SQLiteStore) PruneInvocations(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM invocations WHERE timestamp < ?`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune invocations: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows, nil
}

// HealthCheck verifies the database connection is healthy
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	return s.db.PingContext(ctx)
}
