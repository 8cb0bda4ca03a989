package history

import (
	"time"

	"github.com/google/uuid"
)

// Status is the terminal state of a run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusPartial   Status = "partial"
	StatusFailed    Status = "failed"
)

// Run is one aggregation run.
type Run struct {
	ID            string
	StartedAt     time.Time
	FinishedAt    time.Time
	Status        Status
	ErrorMessage  string
	SourcesTotal  int
	SourcesFailed int
	Channels      int
	Populated     int
	Created       int
	Updated       int
	Unknown       int
	Denied        int
	Invalid       int
	Sources       []SourceResult
}

// Duration is the wall time of the run.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// SourceResult is the outcome of one source within a run.
type SourceResult struct {
	Position     int
	URL          string
	Format       string
	Entries      int
	Merged       int
	Elapsed      time.Duration
	ErrorMessage string
}

// Failed reports whether the source could not be loaded.
func (s SourceResult) Failed() bool {
	return s.ErrorMessage != ""
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}
