package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestNewUsesDefaultMessage(t *testing.T) {
	err := New(ProblemNotFound)
	if err.Code != ProblemNotFound {
		t.Fatalf("expected code %d, got %d", ProblemNotFound, err.Code)
	}
	if err.Message != ProblemNotFound.Message() {
		t.Fatalf("expected default message %q, got %q", ProblemNotFound.Message(), err.Message)
	}
	if !strings.Contains(err.Error(), "13001") {
		t.Fatalf("expected code in error string, got %q", err.Error())
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrapf(cause, DatabaseError, "query problems failed")

	if !stderrors.Is(err, cause) {
		t.Fatal("expected wrapped error to match cause via errors.Is")
	}
	if got := GetCode(err); got != DatabaseError {
		t.Fatalf("expected code %d, got %d", DatabaseError, got)
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("expected cause in error string, got %q", err.Error())
	}
}

func TestWrapNilReturnsNil(t *testing.T) {
	if err := Wrap(nil, DatabaseError); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if err := Wrapf(nil, DatabaseError, "ignored"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestGetCodeForeignError(t *testing.T) {
	if got := GetCode(stderrors.New("plain")); got != InternalServerError {
		t.Fatalf("expected %d for foreign error, got %d", InternalServerError, got)
	}
	if got := GetCode(nil); got != Success {
		t.Fatalf("expected %d for nil, got %d", Success, got)
	}
}

func TestGetCodeThroughFmtWrap(t *testing.T) {
	inner := New(LanguageNotSupported)
	outer := fmt.Errorf("grading submission: %w", inner)
	if got := GetCode(outer); got != LanguageNotSupported {
		t.Fatalf("expected %d through fmt wrap, got %d", LanguageNotSupported, got)
	}
	if !Is(outer, LanguageNotSupported) {
		t.Fatal("expected Is to match code through fmt wrap")
	}
}

func TestUnknownCodeMessage(t *testing.T) {
	if got := ErrorCode(99999).Message(); got != "Unknown error" {
		t.Fatalf("expected fallback message, got %q", got)
	}
}

func TestStackCaptured(t *testing.T) {
	err := New(JudgeSystemError)
	if !strings.Contains(err.Stack, "error_test.go") {
		t.Fatalf("expected caller in stack, got %q", err.Stack)
	}
}
