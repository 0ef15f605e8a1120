package status

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"judgeworker/internal/model"
	appErr "judgeworker/pkg/errors"
)

func newTestRepository(t *testing.T, ttl time.Duration) (*RedisRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	repo, err := NewRedisRepository("redis://"+mr.Addr(), ttl)
	if err != nil {
		t.Fatalf("NewRedisRepository: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo, mr
}

func TestRedisRepositoryRoundTrip(t *testing.T) {
	repo, _ := newTestRepository(t, time.Hour)
	ctx := context.Background()

	verdict := model.WrongAnswer(2)
	want := Status{
		SubmissionID: "sub-42",
		State:        StateFinished,
		Verdict:      &verdict,
		ReceivedAt:   1700000000,
		FinishedAt:   1700000003,
	}
	if err := repo.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := repo.Get(ctx, "sub-42")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.State != StateFinished || got.SubmissionID != "sub-42" {
		t.Fatalf("unexpected status %+v", got)
	}
	if got.Verdict == nil || got.Verdict.Status != model.StatusWrongAnswer {
		t.Fatalf("expected verdict to round-trip, got %+v", got.Verdict)
	}
	if got.Verdict.FailedCase == nil || *got.Verdict.FailedCase != 2 {
		t.Fatalf("expected failed_case 2, got %+v", got.Verdict)
	}
}

func TestRedisRepositorySetsTTL(t *testing.T) {
	repo, mr := newTestRepository(t, time.Minute)

	if err := repo.Save(context.Background(), Status{SubmissionID: "sub-1", State: StateReceived}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if ttl := mr.TTL(statusKeyPrefix + "sub-1"); ttl != time.Minute {
		t.Fatalf("expected TTL 1m, got %v", ttl)
	}
}

func TestRedisRepositoryOverwritesState(t *testing.T) {
	repo, _ := newTestRepository(t, time.Hour)
	ctx := context.Background()

	if err := repo.Save(ctx, Status{SubmissionID: "sub-1", State: StateReceived}); err != nil {
		t.Fatalf("Save received: %v", err)
	}
	if err := repo.Save(ctx, Status{SubmissionID: "sub-1", State: StateJudging}); err != nil {
		t.Fatalf("Save judging: %v", err)
	}

	got, err := repo.Get(ctx, "sub-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.State != StateJudging {
		t.Fatalf("expected judging, got %+v", got)
	}
}

func TestRedisRepositoryGetMiss(t *testing.T) {
	repo, _ := newTestRepository(t, time.Hour)

	_, err := repo.Get(context.Background(), "missing")
	if !appErr.Is(err, appErr.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestRedisRepositoryValidatesSubmissionID(t *testing.T) {
	repo, _ := newTestRepository(t, time.Hour)

	if err := repo.Save(context.Background(), Status{State: StateReceived}); !appErr.Is(err, appErr.InvalidParams) {
		t.Fatalf("expected InvalidParams, got %v", err)
	}
	if _, err := repo.Get(context.Background(), ""); !appErr.Is(err, appErr.InvalidParams) {
		t.Fatalf("expected InvalidParams, got %v", err)
	}
}

func TestNoopRepository(t *testing.T) {
	var repo Noop
	if err := repo.Save(context.Background(), Status{SubmissionID: "sub-1"}); err != nil {
		t.Fatalf("Noop save must succeed, got %v", err)
	}
	if _, err := repo.Get(context.Background(), "sub-1"); !appErr.Is(err, appErr.NotFound) {
		t.Fatalf("expected NotFound from noop get, got %v", err)
	}
}
