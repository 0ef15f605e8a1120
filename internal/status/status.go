// Package status records per-submission judging state for operator
// visibility. The worker writes received → judging → finished
// transitions; the ops endpoint and external dashboards read them.
package status

import (
	"context"

	"judgeworker/internal/model"
)

// State is a submission's position in the pipeline.
type State string

const (
	StateReceived State = "received"
	StateJudging  State = "judging"
	StateFinished State = "finished"
)

// Status is the visible judging state of one submission. Verdict is set
// only once State is finished.
type Status struct {
	SubmissionID string         `json:"submission_id"`
	State        State          `json:"state"`
	Verdict      *model.Verdict `json:"verdict,omitempty"`
	ReceivedAt   int64          `json:"received_at,omitempty"`
	FinishedAt   int64          `json:"finished_at,omitempty"`
}

// Repository persists submission statuses.
type Repository interface {
	Save(ctx context.Context, st Status) error
	Get(ctx context.Context, submissionID string) (Status, error)
}

// Noop is the repository used when no status store is configured.
// Saves succeed silently and reads always miss.
type Noop struct{}

func (Noop) Save(ctx context.Context, st Status) error { return nil }

func (Noop) Get(ctx context.Context, submissionID string) (Status, error) {
	return Status{}, errStatusNotFound(submissionID)
}
