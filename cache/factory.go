package cache

import (
	"context"
	"fmt"
	"time"
)

// NewFromConfig собирает распределённый кеш блоков по конфигурации:
// Redis Hot Cache, опционально Badger Cold Storage (BadgerPath) и
// NATS-инвалидация (Invalidator.NATSURL). Уведомления других сессий
// вытесняют ключи из Hot Cache без повторной публикации.
//
// Пустой RedisURL означает, что распределённый кеш не настроен —
// возвращается (nil, nil), вызывающий остаётся на локальном LRU.
func NewFromConfig(ctx context.Context, cfg *Config) (BlockCache, error) {
	if cfg == nil || cfg.RedisURL == "" {
		return nil, nil
	}

	var cold ColdStorage
	if cfg.BadgerPath != "" {
		store, err := NewBadgerStore(cfg.BadgerPath)
		if err != nil {
			return nil, fmt.Errorf("cache: cold storage: %w", err)
		}
		cold = store
	}

	var inv Invalidator
	if cfg.Invalidator.NATSURL != "" {
		natsInv, err := NewNATSInvalidator(&cfg.Invalidator)
		if err != nil {
			if cold != nil {
				cold.Close()
			}
			return nil, fmt.Errorf("cache: invalidator: %w", err)
		}
		inv = natsInv
	}

	hot, err := NewRedisCache(cfg, cold, inv)
	if err != nil {
		if inv != nil {
			inv.Close()
		}
		if cold != nil {
			cold.Close()
		}
		return nil, err
	}

	if inv != nil {
		handler := func(key string) error {
			evictCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return hot.Evict(evictCtx, key)
		}
		if err := inv.SubscribeInvalidations(ctx, handler); err != nil {
			// hot владеет invalidator и cold storage и закроет их сам
			hot.Close()
			return nil, fmt.Errorf("cache: подписка на инвалидацию: %w", err)
		}
	}

	return hot, nil
}
