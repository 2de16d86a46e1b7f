package cache

import (
	"context"
	"fmt"

	badger "github.com/dgraph-io/badger/v3"

	"github.com/annel0/gdmc-client/internal/logging"
)

// BadgerStore реализует ColdStorage поверх встраиваемой БД Badger.
// Переживает перезапуски процесса: блоки, прочитанные в прошлых
// сессиях, доступны без повторных запросов к серверу.
type BadgerStore struct {
	db  *badger.DB
	log *logging.Logger
}

// NewBadgerStore открывает (или создаёт) хранилище в директории dir.
func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // свой логгер, badger слишком болтлив

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}

	lg := logging.GetCacheLogger()
	lg.Info("Badger cold storage opened: %s", dir)
	return &BadgerStore{db: db, log: lg}, nil
}

// Load загружает значение по ключу. Отсутствие ключа — ErrCacheMiss.
func (s *BadgerStore) Load(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("badger load: %w", err)
	}
	return value, nil
}

// Store сохраняет значение по ключу.
func (s *BadgerStore) Store(ctx context.Context, key string, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("badger store: %w", err)
	}
	return nil
}

// BatchLoad загружает несколько записей одной read-транзакцией.
// Отсутствующие ключи просто не попадают в результат.
func (s *BadgerStore) BatchLoad(ctx context.Context, keys []string) (map[string][]byte, error) {
	result := make(map[string][]byte, len(keys))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, key := range keys {
			item, err := txn.Get([]byte(key))
			if err == badger.ErrKeyNotFound {
				continue
			}
			if err != nil {
				return err
			}
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			result[key] = value
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger batch load: %w", err)
	}
	return result, nil
}

// BatchStore сохраняет несколько записей через WriteBatch.
func (s *BadgerStore) BatchStore(ctx context.Context, items map[string][]byte) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for key, value := range items {
		if err := wb.Set([]byte(key), value); err != nil {
			return fmt.Errorf("badger batch store: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("badger batch flush: %w", err)
	}

	s.log.Debug("Badger: записано %d записей", len(items))
	return nil
}

// Close закрывает хранилище.
func (s *BadgerStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("badger close: %w", err)
	}
	s.log.Info("Badger cold storage closed")
	return nil
}
