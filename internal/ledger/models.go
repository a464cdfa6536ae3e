package ledger

import "time"

// Status is the outcome of a run or a single render.
type Status string

const (
	StatusRunning  Status = "running"
	StatusOK       Status = "ok"
	StatusSkipped  Status = "skipped"
	StatusFailed   Status = "failed"
	StatusTimeout  Status = "timeout"
	StatusInvalid  Status = "invalid"
	StatusCanceled Status = "canceled"
)

// IsFailure reports whether s marks a render that produced no output.
func (s Status) IsFailure() bool {
	switch s {
	case StatusFailed, StatusTimeout, StatusInvalid:
		return true
	default:
		return false
	}
}

// Run is one sweep invocation.
type Run struct {
	ID           string
	Stage        string
	Field        string
	SourceDir    string
	OutputDir    string
	Values       []float64
	Status       Status
	Rendered     int
	Skipped      int
	Failed       int
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Render is one variant of one source file.
type Render struct {
	ID              int64
	RunID           string
	SourcePath      string
	OutputPath      string
	Value           float64
	Stages          []string
	Status          Status
	ErrorMessage    string
	Duration        time.Duration
	PipelineSeconds float64
	CreatedAt       time.Time
}

// Counts are the totals written when a run finishes.
type Counts struct {
	Rendered int
	Skipped  int
	Failed   int
}
