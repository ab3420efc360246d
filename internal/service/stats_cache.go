package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"medcase/internal/domain"
)

// StatsCache guarda las estadisticas calculadas por usuario bajo una generacion.
// Invalidate avanza la generacion, asi un Set calculado antes de la invalidacion queda
// en una clave que nadie vuelve a leer. Los errores del cache nunca deben hacer fallar
// la request; quien llama solo los registra.
type StatsCache interface {
	Generation(ctx context.Context, userID int64) (int64, error)
	Get(ctx context.Context, userID, generation int64) (domain.UserStats, bool, error)
	Set(ctx context.Context, userID, generation int64, stats domain.UserStats) error
	Invalidate(ctx context.Context, userID int64) error
}

type noopStatsCache struct{}

// NewNoopStatsCache se usa cuando no hay Redis configurado.
func NewNoopStatsCache() StatsCache { return noopStatsCache{} }

func (noopStatsCache) Generation(context.Context, int64) (int64, error) { return 0, nil }
func (noopStatsCache) Get(context.Context, int64, int64) (domain.UserStats, bool, error) {
	return domain.UserStats{}, false, nil
}
func (noopStatsCache) Set(context.Context, int64, int64, domain.UserStats) error { return nil }
func (noopStatsCache) Invalidate(context.Context, int64) error                  { return nil }

type redisStatsClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

type redisStatsCache struct {
	client  redisStatsClient
	ttl     time.Duration
	prefix  string
	timeout time.Duration
}

func NewRedisStatsCache(client *redis.Client, ttl time.Duration) StatsCache {
	if client == nil {
		return NewNoopStatsCache()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &redisStatsCache{
		client:  client,
		ttl:     ttl,
		prefix:  "medcase:stats:",
		timeout: 300 * time.Millisecond,
	}
}

func (c *redisStatsCache) genKey(userID int64) string {
	return c.prefix + "gen:" + strconv.FormatInt(userID, 10)
}

func (c *redisStatsCache) key(userID, generation int64) string {
	return c.prefix + strconv.FormatInt(userID, 10) + ":" + strconv.FormatInt(generation, 10)
}

// Generation devuelve 0 mientras el usuario no tuvo invalidaciones.
func (c *redisStatsCache) Generation(ctx context.Context, userID int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	gen, err := c.client.Get(ctx, c.genKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *redisStatsCache) Get(ctx context.Context, userID, generation int64) (domain.UserStats, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	raw, err := c.client.Get(ctx, c.key(userID, generation)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.UserStats{}, false, nil
	}
	if err != nil {
		return domain.UserStats{}, false, err
	}
	var stats domain.UserStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return domain.UserStats{}, false, err
	}
	return stats, true, nil
}

func (c *redisStatsCache) Set(ctx context.Context, userID, generation int64, stats domain.UserStats) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.client.Set(ctx, c.key(userID, generation), raw, c.ttl).Err()
}

// Invalidate avanza la generacion; las entradas viejas expiran solas por TTL.
func (c *redisStatsCache) Invalidate(ctx context.Context, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.client.Incr(ctx, c.genKey(userID)).Err()
}
