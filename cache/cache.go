// Package cache реализует кеширование блоков по позиции.
// Базовый уровень — внутрипроцессный LRU-кеш; для распределённых
// сценариев доступны Redis (Hot Cache), Badger (Cold Storage) и
// инвалидация через NATS Pub/Sub.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/annel0/gdmc-client/block"
	"github.com/annel0/gdmc-client/vec"
)

// BlockCache определяет интерфейс кеша блоков, которым пользуется editor.
//
// Использование:
//
//	c := NewLRUCache(8192)
//	c.Put(ctx, pos, b)
//	b, ok := c.Get(ctx, pos)
//	c.Invalidate(ctx, pos)
type BlockCache interface {
	// Get возвращает блок по позиции. false — промах кеша.
	Get(ctx context.Context, pos vec.Vec3) (block.Block, bool)

	// Put сохраняет блок в кеше, вытесняя старые записи при переполнении.
	Put(ctx context.Context, pos vec.Vec3, b block.Block) error

	// Invalidate удаляет позицию из кеша.
	Invalidate(ctx context.Context, pos vec.Vec3) error

	// Len возвращает текущее количество записей.
	Len() int

	// Clear полностью очищает кеш.
	Clear()

	// GetMetrics возвращает метрики кеша.
	GetMetrics() *Metrics

	// Close освобождает ресурсы кеша.
	Close() error
}

// ColdStorage определяет интерфейс постоянного хранилища блоков.
// Используется как fallback при промахе Hot Cache.
type ColdStorage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Store(ctx context.Context, key string, value []byte) error
	BatchLoad(ctx context.Context, keys []string) (map[string][]byte, error)
	BatchStore(ctx context.Context, items map[string][]byte) error
	Close() error
}

// Invalidator управляет распределённой инвалидацией через Pub/Sub.
type Invalidator interface {
	PublishInvalidation(ctx context.Context, key string) error
	SubscribeInvalidations(ctx context.Context, handler InvalidationHandler) error
	Close() error
}

// InvalidationSource — кеши, уведомляющие другие сессии о записанных
// позициях. Editor публикует через него после сброса буфера записи.
type InvalidationSource interface {
	PublishWrites(ctx context.Context, positions []vec.Vec3) error
}

// BatchPutter — кеши с пакетной записью (pipeline). Editor прогревает
// через него разделяемый кеш содержимым загруженного снимка мира.
type BatchPutter interface {
	PutBatch(ctx context.Context, items map[vec.Vec3]block.Block) error
}

// InvalidationHandler обрабатывает уведомления об инвалидации.
type InvalidationHandler func(key string) error

// Metrics содержит счётчики производительности кеша.
// Поля обновляются атомарно, читать через Snapshot.
type Metrics struct {
	TotalRequests int64 `json:"total_requests"`
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	Evictions     int64 `json:"evictions"`
}

func (m *Metrics) recordHit() {
	atomic.AddInt64(&m.TotalRequests, 1)
	atomic.AddInt64(&m.Hits, 1)
}

func (m *Metrics) recordMiss() {
	atomic.AddInt64(&m.TotalRequests, 1)
	atomic.AddInt64(&m.Misses, 1)
}

func (m *Metrics) recordEviction() {
	atomic.AddInt64(&m.Evictions, 1)
}

// Snapshot возвращает согласованную копию счётчиков.
func (m *Metrics) Snapshot() Metrics {
	return Metrics{
		TotalRequests: atomic.LoadInt64(&m.TotalRequests),
		Hits:          atomic.LoadInt64(&m.Hits),
		Misses:        atomic.LoadInt64(&m.Misses),
		Evictions:     atomic.LoadInt64(&m.Evictions),
	}
}

// HitRatio возвращает долю попаданий от общего числа запросов.
func (m *Metrics) HitRatio() float64 {
	s := m.Snapshot()
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.TotalRequests)
}

// Config содержит конфигурацию распределённого кеша.
type Config struct {
	// Redis подключение
	RedisURL      string `yaml:"redis_url" env:"CACHE_REDIS_URL"`
	RedisPassword string `yaml:"redis_password" env:"CACHE_REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"CACHE_REDIS_DB"`

	// Префикс ключей: блоки разных миров не смешиваются
	KeyPrefix string `yaml:"key_prefix" env:"CACHE_KEY_PREFIX"`

	// TTL настройки
	DefaultTTL time.Duration `yaml:"default_ttl" env:"CACHE_DEFAULT_TTL"`
	MaxTTL     time.Duration `yaml:"max_ttl" env:"CACHE_MAX_TTL"`

	// Производительность
	MaxConnections int           `yaml:"max_connections" env:"CACHE_MAX_CONNECTIONS"`
	PoolTimeout    time.Duration `yaml:"pool_timeout" env:"CACHE_POOL_TIMEOUT"`

	// Cold Storage: путь к каталогу Badger. Пустой — без Cold Storage.
	BadgerPath string `yaml:"badger_path" env:"CACHE_BADGER_PATH"`

	// Инвалидация между сессиями. Пустой NATSURL — без инвалидации.
	Invalidator InvalidatorConfig `yaml:"invalidator"`
}

// Ошибки кеша
var (
	ErrCacheMiss  = NewCacheError("cache miss")
	ErrInvalidKey = NewCacheError("invalid key")
)

// CacheError представляет ошибку кеша.
type CacheError struct {
	Message string
}

func (e *CacheError) Error() string {
	return e.Message
}

func NewCacheError(message string) *CacheError {
	return &CacheError{Message: message}
}

// IsCacheMiss проверяет, является ли ошибка промахом кеша.
func IsCacheMiss(err error) bool {
	return err == ErrCacheMiss
}

// PosKey кодирует позицию в строковый ключ для Redis/Badger.
func PosKey(prefix string, pos vec.Vec3) string {
	if prefix == "" {
		prefix = "block"
	}
	return fmt.Sprintf("%s:%d:%d:%d", prefix, pos.X, pos.Y, pos.Z)
}

// blockPayload — сериализуемое представление блока для внешних хранилищ.
type blockPayload struct {
	ID     string            `json:"id"`
	States map[string]string `json:"states,omitempty"`
	Data   string            `json:"data,omitempty"`
}

// EncodeBlock сериализует блок для хранения вне процесса.
func EncodeBlock(b block.Block) ([]byte, error) {
	return json.Marshal(blockPayload{ID: b.ID, States: b.States, Data: b.Data})
}

// DecodeBlock восстанавливает блок из представления EncodeBlock.
func DecodeBlock(data []byte) (block.Block, error) {
	var p blockPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return block.Block{}, fmt.Errorf("cache: декодирование блока: %w", err)
	}
	return block.Block{ID: p.ID, States: p.States, Data: p.Data}, nil
}
