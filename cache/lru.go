package cache

import (
	"container/list"
	"context"
	"sync"

	"github.com/annel0/gdmc-client/block"
	"github.com/annel0/gdmc-client/vec"
)

// LRUCache — внутрипроцессный кеш блоков с вытеснением давно не
// запрашивавшихся записей. Порядок вытеснения обновляется и при записи,
// и при чтении. Ёмкость 0 отключает кеширование полностью.
type LRUCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // от свежих к давним, элементы *lruEntry
	index    map[vec.Vec3]*list.Element
	metrics  *Metrics
}

type lruEntry struct {
	pos   vec.Vec3
	block block.Block
}

// NewLRUCache создает кеш на capacity записей. capacity <= 0 даёт
// выключенный кеш: Put ничего не сохраняет, Get всегда промахивается.
func NewLRUCache(capacity int) *LRUCache {
	if capacity < 0 {
		capacity = 0
	}
	return &LRUCache{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[vec.Vec3]*list.Element),
		metrics:  &Metrics{},
	}
}

// Get возвращает блок по позиции и освежает её в порядке вытеснения.
func (c *LRUCache) Get(_ context.Context, pos vec.Vec3) (block.Block, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.index[pos]
	if !ok {
		c.metrics.recordMiss()
		return block.Block{}, false
	}
	c.order.MoveToFront(elem)
	c.metrics.recordHit()
	return elem.Value.(*lruEntry).block, true
}

// Put сохраняет блок, вытесняя самую давнюю запись при переполнении.
func (c *LRUCache) Put(_ context.Context, pos vec.Vec3, b block.Block) error {
	if c.capacity == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.index[pos]; ok {
		elem.Value.(*lruEntry).block = b
		c.order.MoveToFront(elem)
		return nil
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.index, oldest.Value.(*lruEntry).pos)
			c.metrics.recordEviction()
		}
	}

	c.index[pos] = c.order.PushFront(&lruEntry{pos: pos, block: b})
	return nil
}

// Invalidate удаляет позицию из кеша. Отсутствующая позиция — не ошибка.
func (c *LRUCache) Invalidate(_ context.Context, pos vec.Vec3) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.index[pos]; ok {
		c.order.Remove(elem)
		delete(c.index, pos)
	}
	return nil
}

// Len возвращает текущее количество записей.
func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear полностью очищает кеш, сохраняя накопленные метрики.
func (c *LRUCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.index = make(map[vec.Vec3]*list.Element)
}

// GetMetrics возвращает метрики кеша.
func (c *LRUCache) GetMetrics() *Metrics {
	return c.metrics
}

// Close освобождает ресурсы кеша.
func (c *LRUCache) Close() error {
	c.Clear()
	return nil
}
