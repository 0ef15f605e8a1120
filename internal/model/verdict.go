package model

// Verdict status labels published on the result queue.
const (
	StatusAccepted            = "Accepted"
	StatusWrongAnswer         = "Wrong Answer"
	StatusCompileError        = "Compile Error"
	StatusRuntimeError        = "Runtime Error"
	StatusTimeLimitExceeded   = "Time Limit Exceeded"
	StatusMemoryLimitExceeded = "Memory Limit Exceeded"
	StatusSystemError         = "System Error"
)

// Verdict is the outcome of grading one submission. FailedCase is the
// 1-based ordinal of the first failing test case and is unset for
// Accepted, Compile Error and System Error.
type Verdict struct {
	Status        string   `json:"status"`
	FailedCase    *int     `json:"failed_case,omitempty"`
	ExecutionTime *float64 `json:"execution_time,omitempty"`
	Message       string   `json:"message,omitempty"`
}

// Result wraps a verdict with its submission id for the result queue.
type Result struct {
	SubmissionID string  `json:"submission_id"`
	Result       Verdict `json:"result"`
}

// Accepted builds the passing verdict. executionTime is the slowest
// per-case wall time in seconds.
func Accepted(executionTime float64) Verdict {
	return Verdict{Status: StatusAccepted, ExecutionTime: &executionTime}
}

// WrongAnswer builds a verdict for an output mismatch on the given case.
func WrongAnswer(failedCase int) Verdict {
	return Verdict{Status: StatusWrongAnswer, FailedCase: &failedCase}
}

// CompileError builds a verdict carrying the compiler's diagnostics.
func CompileError(message string) Verdict {
	return Verdict{Status: StatusCompileError, Message: message}
}

// RuntimeError builds a verdict for a non-zero exit on the given case.
func RuntimeError(failedCase int, message string) Verdict {
	return Verdict{Status: StatusRuntimeError, FailedCase: &failedCase, Message: message}
}

// TimeLimitExceeded builds a verdict for a wall-clock limit hit.
func TimeLimitExceeded(failedCase int) Verdict {
	return Verdict{Status: StatusTimeLimitExceeded, FailedCase: &failedCase}
}

// MemoryLimitExceeded builds a verdict for an address-space limit hit.
func MemoryLimitExceeded(failedCase int) Verdict {
	return Verdict{Status: StatusMemoryLimitExceeded, FailedCase: &failedCase}
}

// SystemError builds a verdict for faults that are not the submission's
// doing, such as an unknown language or a sandbox launch failure.
func SystemError(message string) Verdict {
	return Verdict{Status: StatusSystemError, Message: message}
}
