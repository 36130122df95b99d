package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/insight/internal/config"
	"go.uber.org/fx"
)

const (
	keyAnalyzeClient = "analyze:client:%s"
	keyDatasetLock   = "analyze:dataset:lock:%s"
)

// Analysis is CPU-heavy relative to the rest of the API, so uploads get
// a per-client token bucket and stored datasets a short exclusive lock
// against concurrent recomputation of the same rows.
const (
	analyzeClientRate  = 0.5
	analyzeClientBurst = 5
	datasetLockTTL     = 30 * time.Second
)

// AnalyzeLimiter guards the analysis endpoints. Without a redis address
// configured it is disabled and everything is allowed.
type AnalyzeLimiter struct {
	enabled bool
	bucket  *TokenBucket
	locker  *Locker
}

func NewAnalyzeLimiter(lc fx.Lifecycle, cfg config.Config) *AnalyzeLimiter {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return &AnalyzeLimiter{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
	})
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return client.Close()
		},
	})

	return &AnalyzeLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		locker:  NewLocker(client),
	}
}

var Module = fx.Module("rate.limit",
	fx.Provide(NewAnalyzeLimiter),
)

func (l *AnalyzeLimiter) Enabled() bool {
	return l != nil && l.enabled
}

// AllowClient takes one token from the caller's bucket.
func (l *AnalyzeLimiter) AllowClient(ctx context.Context, clientIP string) (Result, error) {
	if !l.Enabled() {
		return Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyAnalyzeClient, strings.TrimSpace(clientIP)), analyzeClientRate, analyzeClientBurst)
}

// TryLockDataset claims the per-dataset analysis lock.
func (l *AnalyzeLimiter) TryLockDataset(ctx context.Context, datasetID string) (string, bool, error) {
	if !l.Enabled() {
		return "", true, nil
	}
	return l.locker.TryLock(ctx, fmt.Sprintf(keyDatasetLock, strings.TrimSpace(datasetID)), datasetLockTTL)
}

// ReleaseDataset releases a lock claimed by TryLockDataset.
func (l *AnalyzeLimiter) ReleaseDataset(ctx context.Context, datasetID, token string) error {
	if !l.Enabled() {
		return nil
	}
	return l.locker.Release(ctx, fmt.Sprintf(keyDatasetLock, strings.TrimSpace(datasetID)), token)
}
