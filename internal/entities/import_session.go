package entities

import "time"

type ImportStatus string

const (
	ImportStatusPending   ImportStatus = "pending"
	ImportStatusRunning   ImportStatus = "running"
	ImportStatusCompleted ImportStatus = "completed"
	ImportStatusFailed    ImportStatus = "failed"
)

// ImportSession records one import run, synchronous or queued.
type ImportSession struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	UserID      uint         `gorm:"index" json:"user_id"`
	SourceID    *uint        `gorm:"index" json:"source_id,omitempty"`
	Format      string       `gorm:"size:20" json:"format"`
	Status      ImportStatus `gorm:"size:20;default:'pending'" json:"status"`
	DryRun      bool         `json:"dry_run"`
	JobID       string       `gorm:"index;size:64" json:"job_id,omitempty"` // Correlates queued imports
	Phase       string       `gorm:"size:20" json:"phase,omitempty"`
	Added       int          `json:"added"`
	Updated     int          `json:"updated"`
	Skipped     int          `json:"skipped"`
	ErrorCount  int          `json:"error_count"`
	Summary     string       `gorm:"type:text" json:"summary,omitempty"` // JSON ImportSummary
	ErrorMsg    string       `gorm:"size:500" json:"error_msg,omitempty"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	User        User         `gorm:"foreignKey:UserID" json:"-"`
	Source      *Source      `gorm:"foreignKey:SourceID" json:"source,omitempty"`
}

func (ImportSession) TableName() string {
	return "import_sessions"
}
