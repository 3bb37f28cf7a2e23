package core

import "context"

// InteractionStore 是交互日志存储的领域接口（只追加）。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（store）实现
//   - Append 必须是原子的：并发写入不能交错，也不能丢失
//   - ReadAll 必须返回完整快照（写入顺序），不能观察到写了一半的记录
//
// 实现：
//   - store.MemoryInteractionStore / CSVInteractionStore
//   - store.SQLiteInteractionStore / RedisInteractionStore / BadgerInteractionStore
type InteractionStore interface {
	// Name 返回存储后端名称（用于日志/监控）
	Name() string

	// Append 追加一条完整的交互事件
	Append(ctx context.Context, ev InteractionEvent) error

	// ReadAll 按写入顺序返回全部交互事件
	ReadAll(ctx context.Context) ([]InteractionEvent, error)

	// Close 关闭连接/释放资源
	Close() error
}

// CatalogReader 是按 productId 精确查找商品的只读接口。
type CatalogReader interface {
	// Lookup 查找商品，不存在时返回 (Product{}, false, nil)
	Lookup(ctx context.Context, productID string) (Product, bool, error)
}

// CatalogStore 是商品目录存储的领域接口。
// UpsertIfAbsent 必须是原子的：同一 productId 并发写入只会创建一条记录，且已有记录永不覆盖。
type CatalogStore interface {
	CatalogReader

	// Name 返回存储后端名称（用于日志/监控）
	Name() string

	// UpsertIfAbsent 仅当 productId 不存在时插入，返回是否创建了新记录
	UpsertIfAbsent(ctx context.Context, p Product) (bool, error)

	// ReadAll 返回全部商品
	ReadAll(ctx context.Context) ([]Product, error)

	// Close 关闭连接/释放资源
	Close() error
}

// Catalog 是商品目录的只读快照，实现 CatalogReader。
type Catalog struct {
	products map[string]Product
}

// NewCatalog 基于 ReadAll 的结果构建目录快照
func NewCatalog(products []Product) *Catalog {
	c := &Catalog{products: make(map[string]Product, len(products))}
	for _, p := range products {
		if _, ok := c.products[p.ProductID]; ok {
			continue
		}
		c.products[p.ProductID] = p
	}
	return c
}

// Lookup 实现 CatalogReader
func (c *Catalog) Lookup(_ context.Context, productID string) (Product, bool, error) {
	if c == nil {
		return Product{}, false, nil
	}
	p, ok := c.products[productID]
	return p, ok, nil
}

// Len 返回目录中的商品数量
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.products)
}

var _ CatalogReader = (*Catalog)(nil)
