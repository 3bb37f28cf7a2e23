package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/rushteam/unitrec/core"
)

const (
	badgerEventPrefix   = "event/"
	badgerProductPrefix = "product/"
	badgerEventSeqKey   = "seq/event"

	// 并发 upsert 在 badger 中以 ErrConflict 结束，重试到成功或看见已有记录
	badgerMaxConflictRetries = 16
)

// OpenBadger 打开 badger 数据库；path 为空时使用内存模式。
func OpenBadger(path string) (*BadgerInteractionStore, *BadgerCatalogStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("open badger: %w", err)
	}
	seq, err := db.GetSequence([]byte(badgerEventSeqKey), 128)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("get event sequence: %w", err)
	}

	shared := newSharedCloser(2, func() error {
		return errors.Join(seq.Release(), db.Close())
	})
	return &BadgerInteractionStore{db: db, seq: seq, h: &handle{shared: shared}},
		&BadgerCatalogStore{db: db, h: &handle{shared: shared}},
		nil
}

// BadgerInteractionStore 以单调递增序号作为 key，按 key 顺序即写入顺序。
type BadgerInteractionStore struct {
	db  *badger.DB
	seq *badger.Sequence
	h   *handle
}

func (s *BadgerInteractionStore) Name() string { return DriverBadger }

func eventKey(n uint64) []byte {
	key := make([]byte, len(badgerEventPrefix)+8)
	copy(key, badgerEventPrefix)
	binary.BigEndian.PutUint64(key[len(badgerEventPrefix):], n)
	return key
}

func (s *BadgerInteractionStore) Append(ctx context.Context, ev core.InteractionEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	n, err := s.seq.Next()
	if err != nil {
		return fmt.Errorf("next event seq: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(eventKey(n), data)
	})
}

func (s *BadgerInteractionStore) ReadAll(ctx context.Context) ([]core.InteractionEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []core.InteractionEvent
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(badgerEventPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var ev core.InteractionEvent
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &ev)
			})
			if err != nil {
				return fmt.Errorf("decode event: %w", err)
			}
			out = append(out, ev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BadgerInteractionStore) Close() error { return s.h.Close() }

// BadgerCatalogStore 的 ReadAll 按 productId 字节序返回。
type BadgerCatalogStore struct {
	db *badger.DB
	h  *handle
}

func (s *BadgerCatalogStore) Name() string { return DriverBadger }

func productKey(id string) []byte {
	return []byte(badgerProductPrefix + id)
}

func (s *BadgerCatalogStore) Lookup(ctx context.Context, productID string) (core.Product, bool, error) {
	if err := ctx.Err(); err != nil {
		return core.Product{}, false, err
	}
	var (
		p     core.Product
		found bool
	)
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(productKey(productID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &p)
		})
	})
	if err != nil {
		return core.Product{}, false, err
	}
	return p, found, nil
}

func (s *BadgerCatalogStore) UpsertIfAbsent(ctx context.Context, p core.Product) (bool, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return false, fmt.Errorf("marshal product: %w", err)
	}
	key := productKey(p.ProductID)

	for attempt := 0; attempt < badgerMaxConflictRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		created := false
		err := s.db.Update(func(txn *badger.Txn) error {
			_, err := txn.Get(key)
			if err == nil {
				return nil
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			created = true
			return txn.Set(key, data)
		})
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		if err != nil {
			return false, err
		}
		return created, nil
	}
	return false, fmt.Errorf("upsert product %s: %w", p.ProductID, badger.ErrConflict)
}

func (s *BadgerCatalogStore) ReadAll(ctx context.Context) ([]core.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []core.Product
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(badgerProductPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var p core.Product
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &p)
			})
			if err != nil {
				return fmt.Errorf("decode product: %w", err)
			}
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BadgerCatalogStore) Close() error { return s.h.Close() }

var (
	_ core.InteractionStore = (*BadgerInteractionStore)(nil)
	_ core.CatalogStore     = (*BadgerCatalogStore)(nil)
)
