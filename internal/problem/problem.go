// Package problem loads problems and their test cases from the store.
package problem

import "context"

// TestCase is one stored input/expected-output pair. Payloads are kept
// exactly as stored; escape decoding is the grader's concern.
type TestCase struct {
	ID         int64
	InputData  string
	OutputData string
}

// Problem is a gradable problem. ID is the primary key, ProblemID the
// external identifier submissions reference. TestCases is non-empty and
// ordered by id ascending.
type Problem struct {
	ID        int64
	ProblemID int64
	TestCases []TestCase
}

// Repository loads problems eagerly with their test cases.
type Repository interface {
	LoadProblem(ctx context.Context, problemID int64) (*Problem, error)
}
