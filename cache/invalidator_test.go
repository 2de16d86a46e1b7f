package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/annel0/gdmc-client/internal/logging"
	"github.com/annel0/gdmc-client/vec"
)

// fakeInvalidator собирает опубликованные ключи в памяти.
type fakeInvalidator struct {
	published []string
	handler   InvalidationHandler
}

func (f *fakeInvalidator) PublishInvalidation(_ context.Context, key string) error {
	f.published = append(f.published, key)
	return nil
}

func (f *fakeInvalidator) SubscribeInvalidations(_ context.Context, handler InvalidationHandler) error {
	f.handler = handler
	return nil
}

func (f *fakeInvalidator) Close() error { return nil }

// newBareInvalidator собирает NATSInvalidator без соединения: логика
// дедупликации и фильтрации собственных сообщений от него не зависит.
func newBareInvalidator(window time.Duration) *NATSInvalidator {
	return &NATSInvalidator{
		config:     &InvalidatorConfig{DedupeWindow: window},
		sessionID:  "self",
		log:        logging.GetCacheLogger(),
		stopCh:     make(chan struct{}),
		recentKeys: make(map[string]time.Time),
	}
}

func invalidationMsg(t *testing.T, key, session string) *nats.Msg {
	t.Helper()
	data, err := json.Marshal(InvalidationMessage{
		Key:       key,
		Timestamp: time.Now(),
		SessionID: session,
	})
	if err != nil {
		t.Fatalf("сериализация сообщения: %v", err)
	}
	return &nats.Msg{Data: data}
}

func TestInvalidatorIgnoresOwnMessages(t *testing.T) {
	n := newBareInvalidator(time.Minute)

	var handled []string
	n.handler = func(key string) error {
		handled = append(handled, key)
		return nil
	}

	n.handleInvalidationMessage(invalidationMsg(t, "block:1:2:3", "self"))
	if len(handled) != 0 {
		t.Errorf("собственное сообщение обработано: %v", handled)
	}

	n.handleInvalidationMessage(invalidationMsg(t, "block:1:2:3", "other"))
	if len(handled) != 1 || handled[0] != "block:1:2:3" {
		t.Errorf("чужое сообщение не обработано: %v", handled)
	}
}

func TestInvalidatorDedupeWindow(t *testing.T) {
	n := newBareInvalidator(time.Minute)

	var handled int
	n.handler = func(string) error {
		handled++
		return nil
	}

	n.handleInvalidationMessage(invalidationMsg(t, "block:0:0:0", "other"))
	n.handleInvalidationMessage(invalidationMsg(t, "block:0:0:0", "other"))
	if handled != 1 {
		t.Errorf("повтор в пределах окна обработан %d раз, ожидался 1", handled)
	}

	// Другой ключ окно не задевает
	n.handleInvalidationMessage(invalidationMsg(t, "block:0:0:1", "other"))
	if handled != 2 {
		t.Errorf("новый ключ не обработан: %d", handled)
	}
}

func TestInvalidatorDedupeCleanup(t *testing.T) {
	n := newBareInvalidator(time.Millisecond)

	n.recordKey("block:0:0:0")
	time.Sleep(5 * time.Millisecond)
	n.cleanupDedupe()

	if n.isDuplicate("block:0:0:0") {
		t.Error("ключ не вычищен после окна дедупликации")
	}
}

func TestRedisCachePublishesWrites(t *testing.T) {
	// PublishWrites не трогает сам Redis: уведомления уходят только
	// через invalidator, по ключу на позицию.
	ctx := context.Background()
	inv := &fakeInvalidator{}
	r := &RedisCache{
		config:      &Config{KeyPrefix: "block"},
		invalidator: inv,
		metrics:     &Metrics{},
		log:         logging.GetCacheLogger(),
	}

	positions := []vec.Vec3{{X: 1, Y: 2, Z: 3}, {X: -4, Y: 0, Z: 7}}
	if err := r.PublishWrites(ctx, positions); err != nil {
		t.Fatalf("PublishWrites: %v", err)
	}
	want := []string{"block:1:2:3", "block:-4:0:7"}
	if len(inv.published) != len(want) {
		t.Fatalf("опубликовано %d ключей, ожидалось %d", len(inv.published), len(want))
	}
	for i, key := range want {
		if inv.published[i] != key {
			t.Errorf("ключ %d: %s, ожидался %s", i, inv.published[i], key)
		}
	}

	// Без invalidator публикация — no-op
	bare := &RedisCache{config: &Config{}, metrics: &Metrics{}, log: logging.GetCacheLogger()}
	if err := bare.PublishWrites(ctx, positions); err != nil {
		t.Errorf("PublishWrites без invalidator: %v", err)
	}
}

func TestNewFromConfigUnconfigured(t *testing.T) {
	// Пустой RedisURL означает отсутствие распределённого кеша
	bc, err := NewFromConfig(context.Background(), &Config{})
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	if bc != nil {
		t.Errorf("ожидался nil кеш, получен %T", bc)
	}

	bc, err = NewFromConfig(context.Background(), nil)
	if err != nil || bc != nil {
		t.Errorf("nil конфигурация: %v %v", bc, err)
	}
}
