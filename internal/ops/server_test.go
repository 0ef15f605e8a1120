package ops

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"judgeworker/internal/model"
	"judgeworker/internal/status"
	appErr "judgeworker/pkg/errors"
)

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

type fakeStatus struct {
	statuses map[string]status.Status
}

func (f fakeStatus) Save(ctx context.Context, st status.Status) error { return nil }

func (f fakeStatus) Get(ctx context.Context, submissionID string) (status.Status, error) {
	st, ok := f.statuses[submissionID]
	if !ok {
		return status.Status{}, appErr.Newf(appErr.NotFound, "submission status %s not found", submissionID)
	}
	return st, nil
}

func serve(t *testing.T, cfg Config, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	srv := NewServer(cfg)
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthzAllHealthy(t *testing.T) {
	rec := serve(t, Config{DB: fakePinger{}, Broker: fakePinger{}}, http.MethodGet, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Code int               `json:"code"`
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Data["database"] != "ok" || resp.Data["broker"] != "ok" {
		t.Fatalf("unexpected checks %+v", resp.Data)
	}
}

func TestHealthzBrokerDown(t *testing.T) {
	rec := serve(t, Config{
		DB:     fakePinger{},
		Broker: fakePinger{err: errors.New("connection refused")},
	}, http.MethodGet, "/healthz")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestSubmissionStatusFound(t *testing.T) {
	verdict := model.Accepted(0.42)
	cfg := Config{Status: fakeStatus{statuses: map[string]status.Status{
		"sub-1": {SubmissionID: "sub-1", State: status.StateFinished, Verdict: &verdict},
	}}}

	rec := serve(t, cfg, http.MethodGet, "/api/v1/status/sub-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data status.Status `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Data.State != status.StateFinished {
		t.Fatalf("unexpected status %+v", resp.Data)
	}
	if resp.Data.Verdict == nil || resp.Data.Verdict.Status != model.StatusAccepted {
		t.Fatalf("expected verdict in status, got %+v", resp.Data)
	}
}

func TestSubmissionStatusMiss(t *testing.T) {
	cfg := Config{Status: fakeStatus{statuses: map[string]status.Status{}}}
	rec := serve(t, cfg, http.MethodGet, "/api/v1/status/unknown")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSubmissionStatusUnconfiguredStore(t *testing.T) {
	rec := serve(t, Config{}, http.MethodGet, "/api/v1/status/sub-1")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
