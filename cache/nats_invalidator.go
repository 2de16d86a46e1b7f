package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/annel0/gdmc-client/internal/logging"
)

// NATSInvalidator реализует Invalidator через NATS Pub/Sub.
// Несколько сессий, редактирующих один мир, сбрасывают друг у друга
// устаревшие записи кеша: после сброса буфера записи сессия публикует
// изменённые ключи, остальные удаляют их из своих кешей.
//
// Собственные сообщения и повторы в пределах окна дедупликации
// игнорируются.
type NATSInvalidator struct {
	conn      *nats.Conn
	config    *InvalidatorConfig
	subject   string
	sessionID string
	log       *logging.Logger

	subscription *nats.Subscription
	handler      InvalidationHandler

	stopCh chan struct{}
	wg     sync.WaitGroup

	recentKeys map[string]time.Time
	keysMutex  sync.RWMutex

	publishedCount int64
	receivedCount  int64
	errorsCount    int64
}

// InvalidatorConfig содержит конфигурацию NATS invalidator.
type InvalidatorConfig struct {
	NATSURL string `yaml:"nats_url" env:"CACHE_NATS_URL"`
	Subject string `yaml:"subject" env:"CACHE_NATS_SUBJECT"`

	MaxReconnects int           `yaml:"max_reconnects" env:"CACHE_NATS_MAX_RECONNECTS"`
	ReconnectWait time.Duration `yaml:"reconnect_wait" env:"CACHE_NATS_RECONNECT_WAIT"`

	DedupeWindow time.Duration `yaml:"dedupe_window" env:"CACHE_NATS_DEDUPE_WINDOW"`

	PublishTimeout time.Duration `yaml:"publish_timeout" env:"CACHE_NATS_PUBLISH_TIMEOUT"`
}

// InvalidationMessage — сообщение об инвалидации ключа кеша.
type InvalidationMessage struct {
	Key       string    `json:"key"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`
}

// NewNATSInvalidator подключается к NATS и возвращает invalidator.
// Идентификатор сессии генерируется автоматически.
func NewNATSInvalidator(config *InvalidatorConfig) (*NATSInvalidator, error) {
	// Настройки по умолчанию
	if config.Subject == "" {
		config.Subject = "gdmc.cache.invalidation"
	}
	if config.MaxReconnects == 0 {
		config.MaxReconnects = 10
	}
	if config.ReconnectWait == 0 {
		config.ReconnectWait = 2 * time.Second
	}
	if config.DedupeWindow == 0 {
		config.DedupeWindow = 5 * time.Second
	}
	if config.PublishTimeout == 0 {
		config.PublishTimeout = 5 * time.Second
	}

	lg := logging.GetCacheLogger()

	opts := []nats.Option{
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			lg.Warn("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			lg.Info("NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			lg.Info("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(config.NATSURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	invalidator := &NATSInvalidator{
		conn:       conn,
		config:     config,
		subject:    config.Subject,
		sessionID:  uuid.NewString(),
		log:        lg,
		stopCh:     make(chan struct{}),
		recentKeys: make(map[string]time.Time),
	}

	invalidator.startDedupeCleanup()

	lg.Info("NATS invalidator initialized: %s (subject: %s)", config.NATSURL, config.Subject)
	return invalidator, nil
}

// PublishInvalidation отправляет уведомление об инвалидации ключа.
func (n *NATSInvalidator) PublishInvalidation(ctx context.Context, key string) error {
	if n.isDuplicate(key) {
		n.log.Debug("Skipping duplicate invalidation for key: %s", key)
		return nil
	}

	msg := &InvalidationMessage{
		Key:       key,
		Timestamp: time.Now(),
		SessionID: n.sessionID,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		atomic.AddInt64(&n.errorsCount, 1)
		return fmt.Errorf("failed to marshal invalidation message: %w", err)
	}

	if err := n.conn.Publish(n.subject, data); err != nil {
		atomic.AddInt64(&n.errorsCount, 1)
		n.log.Error("Failed to publish invalidation for key %s: %v", key, err)
		return fmt.Errorf("failed to publish invalidation: %w", err)
	}

	n.recordKey(key)
	atomic.AddInt64(&n.publishedCount, 1)
	return nil
}

// SubscribeInvalidations подписывается на уведомления других сессий.
func (n *NATSInvalidator) SubscribeInvalidations(ctx context.Context, handler InvalidationHandler) error {
	if n.subscription != nil {
		return fmt.Errorf("already subscribed to invalidations")
	}

	n.handler = handler

	sub, err := n.conn.Subscribe(n.subject, n.handleInvalidationMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to invalidations: %w", err)
	}
	n.subscription = sub

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		select {
		case <-ctx.Done():
			n.unsubscribe()
		case <-n.stopCh:
			n.unsubscribe()
		}
	}()

	n.log.Info("Subscribed to cache invalidations on subject: %s", n.subject)
	return nil
}

// Close закрывает соединение с NATS.
func (n *NATSInvalidator) Close() error {
	close(n.stopCh)
	n.wg.Wait()

	if n.subscription != nil {
		n.subscription.Unsubscribe()
	}

	n.conn.Close()
	n.log.Info("NATS invalidator closed")
	return nil
}

// GetMetrics возвращает счётчики invalidator.
func (n *NATSInvalidator) GetMetrics() map[string]interface{} {
	return map[string]interface{}{
		"published_count": atomic.LoadInt64(&n.publishedCount),
		"received_count":  atomic.LoadInt64(&n.receivedCount),
		"errors_count":    atomic.LoadInt64(&n.errorsCount),
		"connected":       n.conn.IsConnected(),
	}
}

func (n *NATSInvalidator) handleInvalidationMessage(msg *nats.Msg) {
	atomic.AddInt64(&n.receivedCount, 1)

	var invalidationMsg InvalidationMessage
	if err := json.Unmarshal(msg.Data, &invalidationMsg); err != nil {
		atomic.AddInt64(&n.errorsCount, 1)
		n.log.Error("Failed to unmarshal invalidation message: %v", err)
		return
	}

	// Собственные сообщения не обрабатываем
	if invalidationMsg.SessionID == n.sessionID {
		return
	}

	if n.isDuplicate(invalidationMsg.Key) {
		return
	}
	n.recordKey(invalidationMsg.Key)

	if n.handler != nil {
		if err := n.handler(invalidationMsg.Key); err != nil {
			atomic.AddInt64(&n.errorsCount, 1)
			n.log.Error("Invalidation handler failed for key %s: %v", invalidationMsg.Key, err)
		}
	}
}

func (n *NATSInvalidator) unsubscribe() {
	if n.subscription != nil {
		if err := n.subscription.Unsubscribe(); err != nil {
			n.log.Error("Failed to unsubscribe from invalidations: %v", err)
		}
		n.subscription = nil
	}
}

func (n *NATSInvalidator) isDuplicate(key string) bool {
	n.keysMutex.RLock()
	defer n.keysMutex.RUnlock()

	lastSeen, exists := n.recentKeys[key]
	if !exists {
		return false
	}
	return time.Since(lastSeen) < n.config.DedupeWindow
}

func (n *NATSInvalidator) recordKey(key string) {
	n.keysMutex.Lock()
	defer n.keysMutex.Unlock()
	n.recentKeys[key] = time.Now()
}

func (n *NATSInvalidator) startDedupeCleanup() {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		ticker := time.NewTicker(n.config.DedupeWindow)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				n.cleanupDedupe()
			case <-n.stopCh:
				return
			}
		}
	}()
}

func (n *NATSInvalidator) cleanupDedupe() {
	n.keysMutex.Lock()
	defer n.keysMutex.Unlock()

	now := time.Now()
	for key, timestamp := range n.recentKeys {
		if now.Sub(timestamp) > n.config.DedupeWindow {
			delete(n.recentKeys, key)
		}
	}
}
