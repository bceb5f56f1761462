package runlog

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrRunNotFound is returned when a run is not found.
	ErrRunNotFound = errors.New("run not found")

	// ErrInvalidCommand is returned when command is not set.
	ErrInvalidCommand = errors.New("command is required")

	// ErrInvalidStatus is returned when status is invalid.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrRunNotRunning is returned when finishing a run that already finished.
	ErrRunNotRunning = errors.New("run is not running")
)

// Status represents the state of a recorded run.
type Status string

const (
	StatusRunning     Status = "running"
	StatusSucceeded   Status = "succeeded"
	StatusNoResult    Status = "no_result"
	StatusTimeout     Status = "timeout"
	StatusFailed      Status = "failed"
	StatusInterrupted Status = "interrupted"
)

// IsValid checks if the status is valid.
func (s Status) IsValid() bool {
	switch s {
	case StatusRunning, StatusSucceeded, StatusNoResult, StatusTimeout, StatusFailed, StatusInterrupted:
		return true
	default:
		return false
	}
}

// IsFinal reports whether the run has ended.
func (s Status) IsFinal() bool {
	return s.IsValid() && s != StatusRunning
}

// Run is one invocation of the search or agent command.
type Run struct {
	ID        uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	Command   string     `json:"command" gorm:"type:varchar(20);not null;index:idx_command"`
	Query     string     `json:"query" gorm:"type:varchar(255)"`
	TargetURL string     `json:"target_url" gorm:"type:varchar(2048)"`
	Status    Status     `json:"status" gorm:"type:varchar(20);not null;default:'running';index:idx_status"`
	ExitCode  int        `json:"exit_code"`
	Mode      string     `json:"mode" gorm:"type:varchar(40)"`
	Title     string     `json:"title" gorm:"type:text"`
	ResultURL string     `json:"result_url" gorm:"type:text"`
	Results   string     `json:"results,omitempty" gorm:"type:text"`
	Error     string     `json:"error,omitempty" gorm:"type:text"`
	StartedAt time.Time  `json:"started_at" gorm:"index:idx_started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// BeforeCreate hook to generate UUID before creating a new run
func (r *Run) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Validate checks if the run has valid required fields.
func (r *Run) Validate() error {
	if r.Command == "" {
		return ErrInvalidCommand
	}
	if !r.Status.IsValid() {
		return ErrInvalidStatus
	}
	return nil
}

// Duration is the wall time of a finished run, zero while it is running.
func (r *Run) Duration() time.Duration {
	if r.EndedAt == nil {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// Outcome is what a run produced, written when it ends.
type Outcome struct {
	Status    Status
	ExitCode  int
	Mode      string
	Title     string
	ResultURL string
	Results   string
	Error     string
}
