package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRecentLimit = 100

// AnomalyPublisher pushes anomaly events to per-VIN pub/sub channels and keeps
// a capped list of the latest events for late subscribers.
type AnomalyPublisher struct {
	client      redis.Cmdable
	recentLimit int64
	recentTTL   time.Duration
}

// NewAnomalyPublisher returns a publisher. recentLimit <= 0 uses the default.
func NewAnomalyPublisher(client redis.Cmdable, recentLimit int, recentTTL time.Duration) *AnomalyPublisher {
	if recentLimit <= 0 {
		recentLimit = defaultRecentLimit
	}
	if recentTTL <= 0 {
		recentTTL = 24 * time.Hour
	}
	return &AnomalyPublisher{client: client, recentLimit: int64(recentLimit), recentTTL: recentTTL}
}

// Channel is the pub/sub channel anomalies for vin are published on.
func Channel(vin string) string {
	return fmt.Sprintf("vehicle:%s:anomalies", vin)
}

// RecentKey is the list holding the newest anomaly events for vin.
func RecentKey(vin string) string {
	return fmt.Sprintf("vehicle:%s:anomalies:recent", vin)
}

// Name implements the notifier sink interface.
func (p *AnomalyPublisher) Name() string {
	return "redis"
}

// Publish sends payload on the VIN channel and prepends it to the recent list.
func (p *AnomalyPublisher) Publish(ctx context.Context, vin string, payload []byte) error {
	recent := RecentKey(vin)

	pipe := p.client.Pipeline()
	pipe.Publish(ctx, Channel(vin), payload)
	pipe.LPush(ctx, recent, payload)
	pipe.LTrim(ctx, recent, 0, p.recentLimit-1)
	pipe.Expire(ctx, recent, p.recentTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}
	return nil
}
