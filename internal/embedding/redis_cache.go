package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisKeyPrefix = "cognidocs:embedding:"

// RedisCache shares embeddings between server instances through Redis.
// Cache failures are logged and treated as misses.
type RedisCache struct {
	client *redis.Client
	model  string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisCache wraps client. Keys are namespaced by model so switching models never
// returns vectors of the wrong size. ttl 0 keeps entries until evicted by Redis.
func NewRedisCache(client *redis.Client, model string, ttl time.Duration, logger *zap.Logger) *RedisCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCache{client: client, model: model, ttl: ttl, logger: logger}
}

// NewRedisClient parses a redis:// URL and returns a client.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}

func (c *RedisCache) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return redisKeyPrefix + c.model + ":" + hex.EncodeToString(sum[:])
}

// Get returns the cached embedding for text.
func (c *RedisCache) Get(ctx context.Context, text string) ([]float32, bool) {
	data, err := c.client.Get(ctx, c.key(text)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("embedding cache get failed", zap.Error(err))
		return nil, false
	}
	if len(data)%4 != 0 {
		return nil, false
	}
	return decodeVector(data), true
}

// Set stores the embedding for text.
func (c *RedisCache) Set(ctx context.Context, text string, value []float32) {
	if err := c.client.Set(ctx, c.key(text), encodeVector(value), c.ttl).Err(); err != nil {
		c.logger.Warn("embedding cache set failed", zap.Error(err))
	}
}

func encodeVector(v []float32) []byte {
	out := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

func decodeVector(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
