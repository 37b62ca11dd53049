package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/seantiz/proofsched/internal/model"

	_ "modernc.org/sqlite"
)

const createExecutionsTable = `
CREATE TABLE IF NOT EXISTS executions (
    id           TEXT PRIMARY KEY,
    class        TEXT NOT NULL,
    path         TEXT NOT NULL,
    status       TEXT NOT NULL,
    cpu_eligible INTEGER NOT NULL,
    offloaded    INTEGER NOT NULL,
    memory_mb    INTEGER NOT NULL,
    slot         INTEGER,
    device_id    INTEGER,
    error        TEXT,
    duration_ms  INTEGER,
    created_at   DATETIME NOT NULL,
    finished_at  DATETIME
)`

const executionColumns = `id, class, path, status, cpu_eligible, offloaded, memory_mb,
			slot, device_id, error, duration_ms, created_at, finished_at`

// ErrNotFound is returned when an execution is not found.
var ErrNotFound = errors.New("execution not found")

// Compile-time interface satisfaction check.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the SQLite database at dbPath and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.Exec(createExecutionsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create executions table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateExecution inserts a new execution record.
func (s *SQLiteStore) CreateExecution(ctx context.Context, e *model.Execution) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO executions (`+executionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Class, e.Path, e.Status, e.CPUEligible, e.Offloaded, e.MemoryMB,
		e.Slot, e.DeviceID, e.Error, e.DurationMS, e.CreatedAt, e.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExecution(row rowScanner) (*model.Execution, error) {
	e := &model.Execution{}
	var errMsg sql.NullString
	if err := row.Scan(
		&e.ID, &e.Class, &e.Path, &e.Status, &e.CPUEligible, &e.Offloaded, &e.MemoryMB,
		&e.Slot, &e.DeviceID, &errMsg, &e.DurationMS, &e.CreatedAt, &e.FinishedAt,
	); err != nil {
		return nil, err
	}
	e.Error = errMsg.String
	return e, nil
}

// GetExecution retrieves an execution by ID.
func (s *SQLiteStore) GetExecution(ctx context.Context, id string) (*model.Execution, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+executionColumns+` FROM executions WHERE id = ?`, id)
	e, err := scanExecution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get execution: %w", err)
	}
	return e, nil
}

// ListExecutions returns a paginated list of executions ordered by created_at DESC,
// along with the total count of all executions.
func (s *SQLiteStore) ListExecutions(ctx context.Context, limit, offset int) ([]*model.Execution, int, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM executions").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count executions: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT `+executionColumns+` FROM executions
		ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	var executions []*model.Execution
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan execution: %w", err)
		}
		executions = append(executions, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate executions: %w", err)
	}

	return executions, total, nil
}

// FinishExecution moves a running execution to the terminal status in e,
// recording its error, duration and finish time. The transition is validated
// against the stored status.
func (s *SQLiteStore) FinishExecution(ctx context.Context, e *model.Execution) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, "SELECT status FROM executions WHERE id = ?", e.ID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read execution status: %w", err)
	}

	if !model.ValidTransition(current, e.Status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, e.Status)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE executions
		SET status = ?, path = ?, offloaded = ?, slot = ?, device_id = ?,
			error = ?, duration_ms = ?, finished_at = ?
		WHERE id = ?`,
		e.Status, e.Path, e.Offloaded, e.Slot, e.DeviceID,
		e.Error, e.DurationMS, e.FinishedAt, e.ID,
	); err != nil {
		return fmt.Errorf("update execution: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetExecutionStats aggregates the journal.
func (s *SQLiteStore) GetExecutionStats(ctx context.Context) (*ExecutionStats, error) {
	stats := &ExecutionStats{
		CountByStatus: make(map[string]int),
		CountByPath:   make(map[string]int),
		CountByClass:  make(map[string]int),
	}

	var avg sql.NullFloat64
	var offloaded sql.NullInt64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), SUM(offloaded), AVG(duration_ms) FROM executions`,
	).Scan(&stats.Total, &offloaded, &avg); err != nil {
		return nil, fmt.Errorf("aggregate executions: %w", err)
	}
	stats.Offloaded = int(offloaded.Int64)
	stats.AvgDurationMS = avg.Float64

	groups := []struct {
		column string
		into   map[string]int
	}{
		{"status", stats.CountByStatus},
		{"path", stats.CountByPath},
		{"class", stats.CountByClass},
	}
	for _, g := range groups {
		if err := s.countBy(ctx, g.column, g.into); err != nil {
			return nil, err
		}
	}

	return stats, nil
}

// countBy fills into with row counts grouped by column. column is never user input.
func (s *SQLiteStore) countBy(ctx context.Context, column string, into map[string]int) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+column+", COUNT(*) FROM executions GROUP BY "+column)
	if err != nil {
		return fmt.Errorf("count by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("scan %s count: %w", column, err)
		}
		into[key] = n
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate %s counts: %w", column, err)
	}
	return nil
}
