package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	appErr "judgeworker/pkg/errors"
)

const statusKeyPrefix = "judge:status:"

// defaultTTL keeps finished statuses around long enough for pollers
// without growing the keyspace forever.
const defaultTTL = 24 * time.Hour

func errStatusNotFound(submissionID string) error {
	return appErr.Newf(appErr.NotFound, "submission status %s not found", submissionID)
}

// RedisRepository stores statuses as JSON values with a TTL.
type RedisRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRepository connects to the Redis at url and verifies it with
// a ping. ttl <= 0 falls back to the default.
func NewRedisRepository(url string, ttl time.Duration) (*RedisRepository, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisRepository{client: client, ttl: ttl}, nil
}

// Save persists a status under its submission id.
func (r *RedisRepository) Save(ctx context.Context, st Status) error {
	if st.SubmissionID == "" {
		return appErr.New(appErr.InvalidParams).WithMessage("submission id is required")
	}
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	if err := r.client.Set(ctx, statusKeyPrefix+st.SubmissionID, data, r.ttl).Err(); err != nil {
		return appErr.Wrapf(err, appErr.CacheError, "store status for %s", st.SubmissionID)
	}
	return nil
}

// Get returns the stored status for a submission id.
func (r *RedisRepository) Get(ctx context.Context, submissionID string) (Status, error) {
	if submissionID == "" {
		return Status{}, appErr.New(appErr.InvalidParams).WithMessage("submission id is required")
	}
	val, err := r.client.Get(ctx, statusKeyPrefix+submissionID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Status{}, errStatusNotFound(submissionID)
		}
		return Status{}, appErr.Wrapf(err, appErr.CacheError, "load status for %s", submissionID)
	}
	var st Status
	if err := json.Unmarshal([]byte(val), &st); err != nil {
		return Status{}, appErr.Wrapf(err, appErr.CacheError, "decode status for %s", submissionID)
	}
	return st, nil
}

// Ping verifies the Redis connection is alive.
func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (r *RedisRepository) Close() error {
	return r.client.Close()
}
