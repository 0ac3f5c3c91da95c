package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/baxromumarov/job-harvester/internal/observability"
	"github.com/baxromumarov/job-harvester/internal/scraper"
	"github.com/baxromumarov/job-harvester/internal/urlutil"
)

const (
	DefaultQueuePrefix = "job-harvester:links"
	queueTTL           = 24 * time.Hour
	drainBatch         = 100
)

func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return rdb, nil
}

// LinkQueue is a per-run FIFO of normalized job links in Redis. A companion
// set makes each posting enter the list at most once per run.
type LinkQueue struct {
	rdb    *redis.Client
	prefix string
}

func NewLinkQueue(rdb *redis.Client, prefix string) *LinkQueue {
	if prefix == "" {
		prefix = DefaultQueuePrefix
	}
	return &LinkQueue{rdb: rdb, prefix: prefix}
}

func (q *LinkQueue) pendingKey(run string) string { return q.prefix + ":" + run + ":pending" }
func (q *LinkQueue) seenKey(run string) string    { return q.prefix + ":" + run + ":seen" }

// Push enqueues links not yet seen in run and returns how many were new.
func (q *LinkQueue) Push(ctx context.Context, run string, links ...scraper.JobLink) (int, error) {
	pending, seen := q.pendingKey(run), q.seenKey(run)
	pushed := 0
	for _, link := range links {
		key, err := urlutil.Normalize(string(link))
		if err != nil {
			key = string(link)
		}
		added, err := q.rdb.SAdd(ctx, seen, key).Result()
		if err != nil {
			return pushed, q.fail("queue sadd", err)
		}
		if added == 0 {
			continue
		}
		if err := q.rdb.RPush(ctx, pending, key).Err(); err != nil {
			return pushed, q.fail("queue rpush", err)
		}
		pushed++
	}
	if pushed > 0 {
		pipe := q.rdb.Pipeline()
		pipe.Expire(ctx, pending, queueTTL)
		pipe.Expire(ctx, seen, queueTTL)
		if _, err := pipe.Exec(ctx); err != nil {
			return pushed, q.fail("queue expire", err)
		}
	}
	return pushed, nil
}

func (q *LinkQueue) Len(ctx context.Context, run string) (int64, error) {
	return q.rdb.LLen(ctx, q.pendingKey(run)).Result()
}

// Drain pops every pending link of run in FIFO order and forgets the run.
func (q *LinkQueue) Drain(ctx context.Context, run string) ([]scraper.JobLink, error) {
	pending := q.pendingKey(run)
	var out []scraper.JobLink
	for {
		batch, err := q.rdb.LPopCount(ctx, pending, drainBatch).Result()
		if errors.Is(err, redis.Nil) || (err == nil && len(batch) == 0) {
			break
		}
		if err != nil {
			return out, q.fail("queue lpop", err)
		}
		for _, l := range batch {
			out = append(out, scraper.JobLink(l))
		}
	}
	if err := q.rdb.Del(ctx, pending, q.seenKey(run)).Err(); err != nil {
		return out, q.fail("queue cleanup", err)
	}
	return out, nil
}

func (q *LinkQueue) fail(op string, err error) error {
	observability.IncError(observability.ErrorStore, observability.ComponentQueue)
	return fmt.Errorf("%s: %w", op, err)
}
