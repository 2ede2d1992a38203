package state

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on a local SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore creates a store. A nil logger discards output.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &SQLiteStore{logger: logger}
}

// Open opens the database. Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open run history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping run history database: %w", err)
	}

	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY on concurrent task updates.
	db.SetMaxOpenConns(1)

	s.db = db
	s.path = path
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// CreateRun records the start of a CLI invocation.
func (s *SQLiteStore) CreateRun(command, target string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &Run{
		ID:        generateID(),
		Command:   command,
		Target:    target,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	s.logger.Debug("creating run", "id", run.ID, "command", command, "target", target)

	_, err := s.db.Exec(
		`INSERT INTO runs (id, command, target, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Command, run.Target, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// CompleteRun marks a run finished with the given status.
func (s *SQLiteStore) CompleteRun(id string, status RunStatus, errMsg string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	res, err := s.db.Exec(
		`UPDATE runs SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		string(status), time.Now().UTC(), nullable(errMsg), id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(id string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRow(
		`SELECT id, command, target, status, started_at, completed_at, error FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves the most recent runs up to the given limit.
func (s *SQLiteStore) ListRuns(limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT id, command, target, status, started_at, completed_at, error
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// CreateTask records the start of a unit of work inside a run.
func (s *SQLiteStore) CreateTask(runID string, kind TaskKind, name string) (*Task, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	task := &Task{
		ID:        generateID(),
		RunID:     runID,
		Kind:      kind,
		Name:      name,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	s.logger.Debug("creating task", "id", task.ID, "run", runID, "kind", kind, "name", name)

	_, err := s.db.Exec(
		`INSERT INTO tasks (id, run_id, kind, name, status, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		task.ID, task.RunID, string(task.Kind), task.Name, string(task.Status), task.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return task, nil
}

// CompleteTask marks a task finished with its outcome.
func (s *SQLiteStore) CompleteTask(id string, status RunStatus, rowCount int64, outputPath, errMsg string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	res, err := s.db.Exec(
		`UPDATE tasks SET status = ?, rows_written = ?, output_path = ?, completed_at = ?, error = ? WHERE id = ?`,
		string(status), rowCount, nullable(outputPath), time.Now().UTC(), nullable(errMsg), id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task not found: %s", id)
	}
	return nil
}

// ListTasks retrieves the tasks recorded under a run in start order.
func (s *SQLiteStore) ListTasks(runID string) ([]*Task, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT id, run_id, kind, name, status, rows_written, output_path, started_at, completed_at, error
		 FROM tasks WHERE run_id = ? ORDER BY started_at, id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		var (
			t          Task
			kind       string
			status     string
			outputPath sql.NullString
			completed  sql.NullTime
			errText    sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.RunID, &kind, &t.Name, &status, &t.Rows,
			&outputPath, &t.StartedAt, &completed, &errText); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		t.Kind = TaskKind(kind)
		t.Status = RunStatus(status)
		t.OutputPath = outputPath.String
		t.Error = errText.String
		if completed.Valid {
			t.CompletedAt = &completed.Time
		}
		tasks = append(tasks, &t)
	}
	return tasks, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*Run, error) {
	var (
		run       Run
		status    string
		completed sql.NullTime
		errText   sql.NullString
	)
	if err := row.Scan(&run.ID, &run.Command, &run.Target, &status,
		&run.StartedAt, &completed, &errText); err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	run.Error = errText.String
	if completed.Valid {
		run.CompletedAt = &completed.Time
	}
	return &run, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func generateID() string {
	return uuid.New().String()
}
