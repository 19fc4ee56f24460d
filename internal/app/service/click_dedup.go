package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ClickDeduper decides whether a (link, ip) pair is seen for the first time
// inside the dedup window. Release returns a claimed slot when the click that
// claimed it was never stored, so the pair's next click can still be unique.
type ClickDeduper interface {
	FirstInWindow(ctx context.Context, linkHash, ipAddress string, window time.Duration) (bool, error)
	Release(ctx context.Context, linkHash, ipAddress string) error
}

type redisDeduper struct {
	client *redis.Client
}

// NewRedisDeduper returns a deduper backed by redis SET NX with the window as
// TTL: the first caller to set the key owns the unique click, everyone else
// inside the window is a repeat.
func NewRedisDeduper(client *redis.Client) ClickDeduper {
	return &redisDeduper{client: client}
}

func (d *redisDeduper) FirstInWindow(ctx context.Context, linkHash, ipAddress string, window time.Duration) (bool, error) {
	ok, err := d.client.SetNX(ctx, dedupKey(linkHash, ipAddress), 1, window).Result()
	if err != nil {
		return false, fmt.Errorf("dedup setnx: %w", err)
	}
	return ok, nil
}

func (d *redisDeduper) Release(ctx context.Context, linkHash, ipAddress string) error {
	if err := d.client.Del(ctx, dedupKey(linkHash, ipAddress)).Err(); err != nil {
		return fmt.Errorf("dedup del: %w", err)
	}
	return nil
}

func dedupKey(linkHash, ipAddress string) string {
	return fmt.Sprintf("dedup:%s:%s", linkHash, ipAddress)
}
