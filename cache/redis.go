package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/annel0/gdmc-client/block"
	"github.com/annel0/gdmc-client/internal/logging"
	"github.com/annel0/gdmc-client/vec"
)

// RedisCache реализует BlockCache поверх Redis (Hot Cache).
// При промахе читает сквозь в Cold Storage (Read-Through), при
// инвалидации рассылает уведомление другим сессиям через Invalidator.
//
// Кеш разделяется несколькими процессами, редактирующими один мир:
// ключи строятся из позиции и KeyPrefix конфигурации.
type RedisCache struct {
	client      *redis.Client
	config      *Config
	coldStorage ColdStorage
	invalidator Invalidator
	metrics     *Metrics
	log         *logging.Logger
}

// NewRedisCache создаёт Redis-кеш блоков.
//
// coldStorage и invalidator опциональны (могут быть nil): без них кеш
// работает как чистый Hot Cache без Read-Through и Pub/Sub.
func NewRedisCache(config *Config, coldStorage ColdStorage, invalidator Invalidator) (*RedisCache, error) {
	// Настройки по умолчанию
	if config.KeyPrefix == "" {
		config.KeyPrefix = "block"
	}
	if config.DefaultTTL == 0 {
		config.DefaultTTL = 5 * time.Minute
	}
	if config.MaxTTL == 0 {
		config.MaxTTL = 1 * time.Hour
	}
	if config.MaxConnections == 0 {
		config.MaxConnections = 10
	}
	if config.PoolTimeout == 0 {
		config.PoolTimeout = 30 * time.Second
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         config.RedisURL,
		Password:     config.RedisPassword,
		DB:           config.RedisDB,
		PoolSize:     config.MaxConnections,
		PoolTimeout:  config.PoolTimeout,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	cache := &RedisCache{
		client:      rdb,
		config:      config,
		coldStorage: coldStorage,
		invalidator: invalidator,
		metrics:     &Metrics{},
		log:         logging.GetCacheLogger(),
	}

	cache.log.Info("Redis cache initialized: %s (prefix: %s)", config.RedisURL, config.KeyPrefix)
	return cache, nil
}

func (r *RedisCache) key(pos vec.Vec3) string {
	return PosKey(r.config.KeyPrefix, pos)
}

// Get возвращает блок по позиции. При промахе в Redis пытается
// загрузить из Cold Storage и прогревает Hot Cache.
func (r *RedisCache) Get(ctx context.Context, pos vec.Vec3) (block.Block, bool) {
	key := r.key(pos)

	val, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		b, decErr := DecodeBlock(val)
		if decErr != nil {
			r.log.Error("Redis: повреждённая запись %s: %v", key, decErr)
			r.metrics.recordMiss()
			return block.Block{}, false
		}
		r.metrics.recordHit()
		return b, true
	}

	r.metrics.recordMiss()
	if err != redis.Nil {
		r.log.Error("Redis Get error for key %s: %v", key, err)
		return block.Block{}, false
	}

	// Read-Through: пытаемся загрузить из Cold Storage
	if r.coldStorage != nil {
		val, err := r.coldStorage.Load(ctx, key)
		if err == nil {
			b, decErr := DecodeBlock(val)
			if decErr == nil {
				// Прогреваем кеш для следующих запросов
				go func() {
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = r.client.Set(ctx, key, val, r.config.DefaultTTL).Err()
				}()
				return b, true
			}
		}
		r.log.Debug("Cold storage miss for key %s", key)
	}

	return block.Block{}, false
}

// Put сохраняет блок в Redis и асинхронно в Cold Storage.
func (r *RedisCache) Put(ctx context.Context, pos vec.Vec3, b block.Block) error {
	key := r.key(pos)

	data, err := EncodeBlock(b)
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	if err := r.client.Set(ctx, key, data, r.config.DefaultTTL).Err(); err != nil {
		r.log.Error("Redis Set error for key %s: %v", key, err)
		return fmt.Errorf("redis set error: %w", err)
	}

	if r.coldStorage != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := r.coldStorage.Store(ctx, key, data); err != nil {
				r.log.Error("Failed to write to cold storage: %v", err)
			}
		}()
	}

	return nil
}

// Evict удаляет ключ из Hot Cache без публикации уведомления.
// Так обрабатываются инвалидации, пришедшие от других сессий:
// повторная публикация зациклила бы обмен.
func (r *RedisCache) Evict(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis evict error: %w", err)
	}
	return nil
}

// PublishWrites уведомляет другие сессии о записанных позициях, чтобы
// те вытеснили устаревшие записи своих кешей. Вызывается editor'ом
// после успешного сброса буфера записи. Без invalidator — no-op.
func (r *RedisCache) PublishWrites(ctx context.Context, positions []vec.Vec3) error {
	if r.invalidator == nil {
		return nil
	}
	for _, pos := range positions {
		if err := r.invalidator.PublishInvalidation(ctx, r.key(pos)); err != nil {
			return err
		}
	}
	return nil
}

// Invalidate удаляет позицию из кеша и уведомляет другие сессии.
func (r *RedisCache) Invalidate(ctx context.Context, pos vec.Vec3) error {
	key := r.key(pos)

	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.log.Error("Redis Delete error for key %s: %v", key, err)
		return fmt.Errorf("redis delete error: %w", err)
	}

	if r.invalidator != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := r.invalidator.PublishInvalidation(ctx, key); err != nil {
				r.log.Error("Failed to publish invalidation for key %s: %v", key, err)
			}
		}()
	}

	return nil
}

// PutBatch сохраняет несколько блоков одним pipeline-запросом.
// Используется после успешного сброса буфера записи.
func (r *RedisCache) PutBatch(ctx context.Context, items map[vec.Vec3]block.Block) error {
	if len(items) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for pos, b := range items {
		data, err := EncodeBlock(b)
		if err != nil {
			return fmt.Errorf("redis batch set: %w", err)
		}
		pipe.Set(ctx, r.key(pos), data, r.config.DefaultTTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		r.log.Error("Redis PutBatch pipeline error: %v", err)
		return fmt.Errorf("redis batch set error: %w", err)
	}
	return nil
}

// Len для Redis-кеша неприменим в пределах префикса без полного
// сканирования, возвращает размер текущей БД.
func (r *RedisCache) Len() int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	n, err := r.client.DBSize(ctx).Result()
	if err != nil {
		return 0
	}
	return int(n)
}

// Clear удаляет все ключи текущей БД Redis.
func (r *RedisCache) Clear() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := r.client.FlushDB(ctx).Err(); err != nil {
		r.log.Error("Redis FlushDB error: %v", err)
	}
}

// GetMetrics возвращает метрики кеша.
func (r *RedisCache) GetMetrics() *Metrics {
	return r.metrics
}

// Close закрывает соединение с Redis и принадлежащие кешу
// Cold Storage и Invalidator.
func (r *RedisCache) Close() error {
	var firstErr error
	if r.invalidator != nil {
		if err := r.invalidator.Close(); err != nil {
			firstErr = err
		}
	}
	if r.coldStorage != nil {
		if err := r.coldStorage.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := r.client.Close(); err != nil {
		r.log.Error("Error closing Redis connection: %v", err)
		if firstErr == nil {
			firstErr = err
		}
	}
	r.log.Info("Redis cache closed")
	return firstErr
}
