package store

import (
	"context"
	"sync"

	"github.com/rushteam/unitrec/core"
)

// MemoryInteractionStore 是内存实现的交互日志，用于测试/开发/原型。
// 进程重启后数据丢失。
type MemoryInteractionStore struct {
	mu     sync.RWMutex
	events []core.InteractionEvent
}

func NewMemoryInteractionStore() *MemoryInteractionStore {
	return &MemoryInteractionStore{}
}

func (m *MemoryInteractionStore) Name() string { return DriverMemory }

func (m *MemoryInteractionStore) Append(ctx context.Context, ev core.InteractionEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, ev)
	return nil
}

func (m *MemoryInteractionStore) ReadAll(ctx context.Context) ([]core.InteractionEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]core.InteractionEvent, len(m.events))
	copy(out, m.events)
	return out, nil
}

func (m *MemoryInteractionStore) Close() error { return nil }

// MemoryCatalogStore 是内存实现的商品目录，ReadAll 按插入顺序返回。
type MemoryCatalogStore struct {
	mu       sync.RWMutex
	products map[string]core.Product
	order    []string
}

func NewMemoryCatalogStore(seed ...core.Product) *MemoryCatalogStore {
	m := &MemoryCatalogStore{products: make(map[string]core.Product)}
	for _, p := range seed {
		if _, ok := m.products[p.ProductID]; ok {
			continue
		}
		m.products[p.ProductID] = p
		m.order = append(m.order, p.ProductID)
	}
	return m
}

func (m *MemoryCatalogStore) Name() string { return DriverMemory }

func (m *MemoryCatalogStore) Lookup(ctx context.Context, productID string) (core.Product, bool, error) {
	if err := ctx.Err(); err != nil {
		return core.Product{}, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[productID]
	return p, ok, nil
}

func (m *MemoryCatalogStore) UpsertIfAbsent(ctx context.Context, p core.Product) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.products[p.ProductID]; ok {
		return false, nil
	}
	m.products[p.ProductID] = p
	m.order = append(m.order, p.ProductID)
	return true, nil
}

func (m *MemoryCatalogStore) ReadAll(ctx context.Context) ([]core.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]core.Product, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.products[id])
	}
	return out, nil
}

func (m *MemoryCatalogStore) Close() error { return nil }

var (
	_ core.InteractionStore = (*MemoryInteractionStore)(nil)
	_ core.CatalogStore     = (*MemoryCatalogStore)(nil)
)
