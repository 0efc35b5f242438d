package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"community-interaction-api/internal/domain"
)

// generationTTL outlives any read-then-fill window by a wide margin
const generationTTL = 24 * time.Hour

// Lookup is the outcome of a cache read
type Lookup struct {
	Tally domain.Tally
	Hit   bool
	// Generation counts invalidations of the target; a miss hands it to Fill
	Generation int64
}

// TallyCache is a read cache in front of the cached counter columns.
// Writers invalidate after commit; readers fill only when no invalidation
// happened since their lookup.
type TallyCache interface {
	Get(ctx context.Context, target domain.TargetRef) (Lookup, error)
	Fill(ctx context.Context, target domain.TargetRef, generation int64, tally domain.Tally) error
	Invalidate(ctx context.Context, targets ...domain.TargetRef) error
}

// Key returns the redis key for a target tally
func Key(target domain.TargetRef) string {
	return fmt.Sprintf("tally:%s:%d", target.Kind, target.ID)
}

func generationKey(target domain.TargetRef) string {
	return fmt.Sprintf("tallygen:%s:%d", target.Kind, target.ID)
}

var errStaleFill = errors.New("tally invalidated since lookup")

type redisTallyCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisTallyCache creates a TallyCache backed by Redis
func NewRedisTallyCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) TallyCache {
	return &redisTallyCache{client: client, ttl: ttl, logger: logger}
}

func (c *redisTallyCache) Get(ctx context.Context, target domain.TargetRef) (Lookup, error) {
	key := Key(target)
	values, err := c.client.MGet(ctx, key, generationKey(target)).Result()
	if err != nil {
		return Lookup{}, err
	}

	var lookup Lookup
	if raw, ok := values[1].(string); ok {
		lookup.Generation, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Lookup{}, fmt.Errorf("parse generation %s: %w", generationKey(target), err)
		}
	}

	raw, ok := values[0].(string)
	if !ok {
		return lookup, nil
	}
	if err := json.Unmarshal([]byte(raw), &lookup.Tally); err != nil {
		c.logger.Warn("Discarding unreadable cached tally", zap.String("key", key), zap.Error(err))
		_ = c.client.Del(ctx, key).Err()
		return Lookup{Generation: lookup.Generation}, nil
	}
	lookup.Hit = true
	return lookup, nil
}

// Fill stores tally under WATCH on the generation key, so an Invalidate
// landing between the lookup and the write aborts the fill.
func (c *redisTallyCache) Fill(ctx context.Context, target domain.TargetRef, generation int64, tally domain.Tally) error {
	raw, err := json.Marshal(tally)
	if err != nil {
		return err
	}
	genKey := generationKey(target)

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetNX(ctx, Key(target), raw, c.ttl)
			return nil
		})
		return err
	}, genKey)

	if errors.Is(err, errStaleFill) || errors.Is(err, redis.TxFailedErr) {
		c.logger.Debug("Skipped stale tally fill", zap.String("key", Key(target)), zap.Int64("generation", generation))
		return nil
	}
	return err
}

func (c *redisTallyCache) Invalidate(ctx context.Context, targets ...domain.TargetRef) error {
	if len(targets) == 0 {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, t := range targets {
			genKey := generationKey(t)
			pipe.Incr(ctx, genKey)
			pipe.Expire(ctx, genKey, generationTTL)
			pipe.Del(ctx, Key(t))
		}
		return nil
	})
	return err
}

type noopTallyCache struct{}

// NewNoopTallyCache returns a cache that always misses
func NewNoopTallyCache() TallyCache {
	return noopTallyCache{}
}

func (noopTallyCache) Get(context.Context, domain.TargetRef) (Lookup, error) {
	return Lookup{}, nil
}

func (noopTallyCache) Fill(context.Context, domain.TargetRef, int64, domain.Tally) error {
	return nil
}

func (noopTallyCache) Invalidate(context.Context, ...domain.TargetRef) error {
	return nil
}
