package notify

import "time"

type JobKind string

const (
	KindConfirmation JobKind = "confirmation"
	KindReceipt      JobKind = "receipt"
	KindReconcile    JobKind = "reconcile"
)

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// Job is one queued notification. Payload holds the order snapshot for
// confirmation and reconcile jobs, since their record may not exist in the
// order table yet.
type Job struct {
	ID string `gorm:"primaryKey;size:26"` // ULID length

	Kind    JobKind `gorm:"type:varchar(16);index;not null"`
	OrderID string  `gorm:"type:varchar(64);index;not null"`
	Payload string  `gorm:"type:text"`

	Status   JobStatus `gorm:"type:varchar(16);index;not null"`
	Attempts int       `gorm:"not null;default:0"`

	// last failure
	Error *string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Job) TableName() string { return "notification_jobs" }
