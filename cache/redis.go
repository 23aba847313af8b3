package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"
)

// DurableTier is the persistent, cross-process cache tier. Get returns
// (nil, nil) on a clean miss and may return logically expired entries: the
// orchestrator keeps them around past their TTL so it can fall back to a
// stale value when recomputation fails.
type DurableTier interface {
	Get(ctx context.Context, fingerprint string) (*Entry, error)
	Set(ctx context.Context, entry *Entry, retention time.Duration, tags []string) error
	Delete(ctx context.Context, fingerprints ...string) error
	FingerprintsBy(ctx context.Context, tags []string) ([]string, error)
	Ping(ctx context.Context) error
}

const indexPrefix = "sqz:idx:"

// RedisTier stores entries as JSON values keyed by fingerprint and maintains
// per-dimension index sets for derivation-free invalidation.
type RedisTier struct {
	client *redis.Client
}

// NewRedisTier wraps an existing client; the caller owns its lifecycle.
func NewRedisTier(client *redis.Client) *RedisTier {
	return &RedisTier{client: client}
}

func (r *RedisTier) Get(ctx context.Context, fingerprint string) (*Entry, error) {
	raw, err := r.client.Get(ctx, fingerprint).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, backendError(err)
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		// Undecodable value, likely written by an incompatible build. Treat
		// as a miss and let the next write replace it.
		return nil, nil
	}
	return &entry, nil
}

// Set persists the entry for the physical retention window, which exceeds the
// logical TTL by the stale-fallback allowance, and registers the fingerprint
// under each dimension tag with a matching expiry.
func (r *RedisTier) Set(ctx context.Context, entry *Entry, retention time.Duration, tags []string) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "encode cache entry")
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, entry.Fingerprint, raw, retention)
	for _, tag := range tags {
		key := indexPrefix + tag
		pipe.SAdd(ctx, key, entry.Fingerprint)
		pipe.Expire(ctx, key, retention)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return backendError(err)
	}
	return nil
}

func (r *RedisTier) Delete(ctx context.Context, fingerprints ...string) error {
	if len(fingerprints) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, fingerprints...).Err(); err != nil {
		return backendError(err)
	}
	return nil
}

// FingerprintsBy intersects the index sets for the given tags.
func (r *RedisTier) FingerprintsBy(ctx context.Context, tags []string) ([]string, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	keys := make([]string, len(tags))
	for i, tag := range tags {
		keys[i] = indexPrefix + tag
	}
	fps, err := r.client.SInter(ctx, keys...).Result()
	if err != nil {
		return nil, backendError(err)
	}
	return fps, nil
}

func (r *RedisTier) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return backendError(err)
	}
	return nil
}
