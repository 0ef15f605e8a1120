package model

// Job represents one grading request consumed from the submission queue.
type Job struct {
	SubmissionID string `json:"submission_id"`
	ProblemID    int64  `json:"problem_id"`
	Language     string `json:"language"`
	Code         string `json:"code"`
}
