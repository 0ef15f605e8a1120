package model

import (
	"encoding/json"
	"testing"
)

func TestVerdictWireShape(t *testing.T) {
	tests := []struct {
		name    string
		verdict Verdict
		want    string
	}{
		{
			name:    "accepted carries only execution_time",
			verdict: Accepted(0.1234),
			want:    `{"status":"Accepted","execution_time":0.1234}`,
		},
		{
			name:    "wrong answer carries only failed_case",
			verdict: WrongAnswer(2),
			want:    `{"status":"Wrong Answer","failed_case":2}`,
		},
		{
			name:    "compile error carries only message",
			verdict: CompileError("expected ';'"),
			want:    `{"status":"Compile Error","message":"expected ';'"}`,
		},
		{
			name:    "runtime error carries case and message",
			verdict: RuntimeError(1, "exit status 1"),
			want:    `{"status":"Runtime Error","failed_case":1,"message":"exit status 1"}`,
		},
		{
			name:    "time limit carries only failed_case",
			verdict: TimeLimitExceeded(3),
			want:    `{"status":"Time Limit Exceeded","failed_case":3}`,
		},
		{
			name:    "system error carries only message",
			verdict: SystemError("Unsupported language"),
			want:    `{"status":"System Error","message":"Unsupported language"}`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := json.Marshal(tc.verdict)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(got) != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestResultEnvelope(t *testing.T) {
	res := Result{SubmissionID: "sub-42", Result: WrongAnswer(1)}
	got, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"submission_id":"sub-42","result":{"status":"Wrong Answer","failed_case":1}}`
	if string(got) != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestJobDecode(t *testing.T) {
	raw := `{"submission_id":"abc","problem_id":7,"language":"python","code":"print(1)"}`
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if job.SubmissionID != "abc" || job.ProblemID != 7 || job.Language != "python" {
		t.Fatalf("unexpected job: %+v", job)
	}
}
