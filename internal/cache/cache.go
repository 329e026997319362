// Package cache keeps recent price estimates in redis so repeated requests
// for the same property skip the forest.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"appraisal/internal/types"
)

const (
	predictionKeyPrefix = "appraisal:prediction:" // appraisal:prediction:{model_id}:{row hash}
	DefaultTTL          = time.Hour
)

type entry struct {
	Price    float64   `json:"price"`
	CachedAt time.Time `json:"cached_at"`
}

// PredictionCache stores estimates keyed by artifact ID and canonical row, so
// a retrained model never serves stale prices.
type PredictionCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// Connect opens a client for addr and pings it.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, eris.Wrapf(err, "cache: ping redis at %s", addr)
	}
	return client, nil
}

// NewPredictionCache wraps client. A non-positive ttl uses DefaultTTL and a nil
// logger discards output.
func NewPredictionCache(client *redis.Client, ttl time.Duration, log *zap.Logger) *PredictionCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PredictionCache{client: client, ttl: ttl, log: log}
}

func (c *PredictionCache) key(modelID string, row types.Row) string {
	sum := sha256.Sum256([]byte(row.Key()))
	return predictionKeyPrefix + modelID + ":" + hex.EncodeToString(sum[:])
}

// Get returns the cached price for row under modelID.
func (c *PredictionCache) Get(ctx context.Context, modelID string, row types.Row) (float64, bool, error) {
	data, err := c.client.Get(ctx, c.key(modelID, row)).Bytes()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, eris.Wrap(err, "cache: get prediction")
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return 0, false, eris.Wrap(err, "cache: decode prediction")
	}
	c.log.Debug("prediction cache hit", zap.String("model_id", modelID))
	return e.Price, true, nil
}

// Set stores price for row under modelID with the cache TTL.
func (c *PredictionCache) Set(ctx context.Context, modelID string, row types.Row, price float64) error {
	data, err := json.Marshal(entry{Price: price, CachedAt: time.Now().UTC()})
	if err != nil {
		return eris.Wrap(err, "cache: encode prediction")
	}
	if err := c.client.Set(ctx, c.key(modelID, row), data, c.ttl).Err(); err != nil {
		return eris.Wrap(err, "cache: set prediction")
	}
	return nil
}
