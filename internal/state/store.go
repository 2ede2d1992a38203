// Package state records run history in a local SQLite database. Every CLI
// invocation that touches the warehouse creates a run; individual exports,
// ETL jobs, validations, and index passes are recorded as tasks under it.
package state

import "time"

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// TaskKind classifies what a task did.
type TaskKind string

const (
	TaskKindExport   TaskKind = "export"
	TaskKindETL      TaskKind = "etl"
	TaskKindValidate TaskKind = "validate"
	TaskKindIndex    TaskKind = "index"
)

// Run is one CLI invocation.
type Run struct {
	ID          string
	Command     string
	Target      string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// Task is one unit of work inside a run.
type Task struct {
	ID          string
	RunID       string
	Kind        TaskKind
	Name        string
	Status      RunStatus
	Rows        int64
	OutputPath  string
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// Store is the run-history contract.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error

	CreateRun(command, target string) (*Run, error)
	CompleteRun(id string, status RunStatus, errMsg string) error
	GetRun(id string) (*Run, error)
	ListRuns(limit int) ([]*Run, error)

	CreateTask(runID string, kind TaskKind, name string) (*Task, error)
	CompleteTask(id string, status RunStatus, rows int64, outputPath, errMsg string) error
	ListTasks(runID string) ([]*Task, error)
}
