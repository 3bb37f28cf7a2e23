package store

// 注意：此包只包含实现，接口定义在 core 包。
// 使用 core.InteractionStore 和 core.CatalogStore 接口。
//
// 示例：
//   events, catalog, err := store.Open(ctx, store.Options{Driver: store.DriverCSV, Dir: "./data"})

import (
	"context"
	"fmt"
	"sync"

	"github.com/rushteam/unitrec/core"
)

// 支持的存储驱动
const (
	DriverMemory = "memory"
	DriverCSV    = "csv"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverBadger = "badger"
)

// Options 是打开一对交互/目录存储所需的参数。
type Options struct {
	Driver string

	// Dir 是 csv 驱动的数据目录（logs.csv / products.csv）
	Dir string

	SQLitePath string

	RedisAddr   string
	RedisDB     int
	RedisPrefix string

	BadgerPath string

	// Breaker 非 nil 时，两个存储都会包一层熔断器
	Breaker *BreakerConfig
}

// Open 按驱动打开交互日志存储和商品目录存储。
// 共享底层连接的驱动（sqlite/badger）在两个存储都 Close 后才真正释放连接。
func Open(ctx context.Context, opts Options) (core.InteractionStore, core.CatalogStore, error) {
	var (
		events  core.InteractionStore
		catalog core.CatalogStore
		err     error
	)
	switch opts.Driver {
	case DriverMemory, "":
		events, catalog = NewMemoryInteractionStore(), NewMemoryCatalogStore()
	case DriverCSV:
		events, catalog, err = OpenCSV(opts.Dir)
	case DriverSQLite:
		events, catalog, err = OpenSQLite(ctx, opts.SQLitePath)
	case DriverRedis:
		events, catalog, err = OpenRedis(ctx, opts.RedisAddr, opts.RedisDB, opts.RedisPrefix)
	case DriverBadger:
		events, catalog, err = OpenBadger(opts.BadgerPath)
	default:
		return nil, nil, fmt.Errorf("unknown store driver: %s", opts.Driver)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", opts.Driver, err)
	}

	if opts.Breaker != nil {
		events = NewBreakerInteractionStore(events, *opts.Breaker)
		catalog = NewBreakerCatalogStore(catalog, *opts.Breaker)
	}
	return events, catalog, nil
}

// sharedCloser 在最后一个持有方 Close 时才关闭底层资源。
type sharedCloser struct {
	mu    sync.Mutex
	refs  int
	close func() error
}

func newSharedCloser(refs int, fn func() error) *sharedCloser {
	return &sharedCloser{refs: refs, close: fn}
}

func (s *sharedCloser) release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refs <= 0 {
		return nil
	}
	s.refs--
	if s.refs == 0 {
		return s.close()
	}
	return nil
}

// handle 是单个存储持有的 sharedCloser 引用，重复 Close 只释放一次。
type handle struct {
	once   sync.Once
	shared *sharedCloser
	err    error
}

func (h *handle) Close() error {
	h.once.Do(func() {
		h.err = h.shared.release()
	})
	return h.err
}
