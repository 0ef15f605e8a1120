package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 13000-13999: Submission & Judge errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	ServiceUnavailable  ErrorCode = 10004
	Timeout             ErrorCode = 10005

	// Database errors (10100-10199)
	DatabaseError  ErrorCode = 10100
	RecordNotFound ErrorCode = 10101

	// Cache errors (10200-10299)
	CacheError ErrorCode = 10200

	// Validation errors (10300-10399)
	ValidationFailed ErrorCode = 10300

	// Broker errors (10400-10499)
	BrokerError      ErrorCode = 10400
	PublishFailed    ErrorCode = 10401
	MalformedMessage ErrorCode = 10402
	RPCTimeout       ErrorCode = 10403

	// ========== Submission & Judge Errors (13000-13999) ==========

	// Submission (13000-13099)
	LanguageNotSupported ErrorCode = 13000
	ProblemNotFound      ErrorCode = 13001
	TestCasesMissing     ErrorCode = 13002

	// Judge execution (13100-13199)
	JudgeSystemError ErrorCode = 13100
	SandboxFailure   ErrorCode = 13101
	WorkspaceFailed  ErrorCode = 13102
	JudgeTimeBudget  ErrorCode = 13103
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Operation timeout",

	DatabaseError:  "Database operation failed",
	RecordNotFound: "Record not found in database",

	CacheError: "Cache operation failed",

	ValidationFailed: "Validation failed",

	BrokerError:      "Message broker operation failed",
	PublishFailed:    "Failed to publish message",
	MalformedMessage: "Malformed message payload",
	RPCTimeout:       "RPC call timed out",

	LanguageNotSupported: "Unsupported language",
	ProblemNotFound:      "Problem or test cases not found",
	TestCasesMissing:     "No test cases found for problem",

	JudgeSystemError: "Judge system error",
	SandboxFailure:   "Sandbox execution failed",
	WorkspaceFailed:  "Failed to prepare submission workspace",
	JudgeTimeBudget:  "Judging exceeded its time budget",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == NotFound, c == RecordNotFound, c == ProblemNotFound:
		return 404
	case c == InvalidParams, c >= 10300 && c < 10400: // Validation errors
		return 400
	case c == ServiceUnavailable:
		return 503
	default:
		return 500
	}
}
