package tasks

import (
	"context"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transition can happen.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type Kind string

const (
	KindTranslate Kind = "translate"
)

// Error messages recorded on failed tasks.
const (
	CancelledMessage   = "task cancelled"
	InterruptedMessage = "interrupted by restart"
)

// ProgressErrored is the progress value of a failed task.
const ProgressErrored = -1

// Result is attached to a completed task.
type Result struct {
	Filename    string `json:"filename"`
	DownloadURL string `json:"download_url"`
}

// Record is the observable state of one background task.
type Record struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Status    Status    `json:"status"`
	Progress  int       `json:"progress"`
	Result    *Result   `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	Input     string    `json:"input,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Reporter is handed to a running task. Progress values outside 0..100 are
// clamped and values lower than the last report are ignored.
type Reporter interface {
	Progress(percent int)
}

// Runner performs the work of one task.
type Runner func(ctx context.Context, report Reporter) (*Result, error)

// Store persists task records across restarts.
type Store interface {
	LoadTasks(ctx context.Context) ([]*Record, error)
	UpsertTask(ctx context.Context, rec *Record) error
}

// Clone returns a deep copy of rec.
func (rec *Record) Clone() *Record {
	if rec == nil {
		return nil
	}
	tmp := *rec
	if rec.Result != nil {
		res := *rec.Result
		tmp.Result = &res
	}
	return &tmp
}
