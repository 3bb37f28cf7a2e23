package store

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/rushteam/unitrec/core"
	"github.com/rushteam/unitrec/pkg/logging"
)

// BreakerConfig 是存储熔断器的配置。
type BreakerConfig struct {
	// FailureThreshold 连续失败多少次后熔断
	FailureThreshold uint32

	// Timeout 熔断打开后多久进入半开状态
	Timeout time.Duration

	// MaxRequests 半开状态允许通过的探测请求数
	MaxRequests uint32
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.FailureThreshold == 0 {
		c.FailureThreshold = 5
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxRequests == 0 {
		c.MaxRequests = 1
	}
	return c
}

func newStoreBreaker(name string, cfg BreakerConfig) *gobreaker.CircuitBreaker[any] {
	cfg = cfg.withDefaults()
	logger := logging.With("store")
	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("store circuit breaker state changed")
		},
		// 调用方取消不算存储故障
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
	})
}

// breakerErr 把熔断器自身的拒绝转换为 StorageUnavailable，存储返回的错误原样透出。
func breakerErr(op string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return core.NewStorageUnavailable(op, err)
	}
	return err
}

// BreakerInteractionStore 给交互日志存储加熔断保护，熔断期间直接快速失败。
type BreakerInteractionStore struct {
	next core.InteractionStore
	cb   *gobreaker.CircuitBreaker[any]
}

func NewBreakerInteractionStore(next core.InteractionStore, cfg BreakerConfig) *BreakerInteractionStore {
	return &BreakerInteractionStore{
		next: next,
		cb:   newStoreBreaker("interactions."+next.Name(), cfg),
	}
}

func (s *BreakerInteractionStore) Name() string { return s.next.Name() }

func (s *BreakerInteractionStore) Append(ctx context.Context, ev core.InteractionEvent) error {
	_, err := s.cb.Execute(func() (any, error) {
		return nil, s.next.Append(ctx, ev)
	})
	return breakerErr("append event", err)
}

func (s *BreakerInteractionStore) ReadAll(ctx context.Context) ([]core.InteractionEvent, error) {
	res, err := s.cb.Execute(func() (any, error) {
		return s.next.ReadAll(ctx)
	})
	if err != nil {
		return nil, breakerErr("read events", err)
	}
	events, _ := res.([]core.InteractionEvent)
	return events, nil
}

func (s *BreakerInteractionStore) Close() error { return s.next.Close() }

// State 返回熔断器当前状态（closed / half-open / open）
func (s *BreakerInteractionStore) State() string { return s.cb.State().String() }

// BreakerCatalogStore 给商品目录存储加熔断保护。
type BreakerCatalogStore struct {
	next core.CatalogStore
	cb   *gobreaker.CircuitBreaker[any]
}

func NewBreakerCatalogStore(next core.CatalogStore, cfg BreakerConfig) *BreakerCatalogStore {
	return &BreakerCatalogStore{
		next: next,
		cb:   newStoreBreaker("catalog."+next.Name(), cfg),
	}
}

func (s *BreakerCatalogStore) Name() string { return s.next.Name() }

type lookupResult struct {
	product core.Product
	found   bool
}

func (s *BreakerCatalogStore) Lookup(ctx context.Context, productID string) (core.Product, bool, error) {
	res, err := s.cb.Execute(func() (any, error) {
		p, ok, err := s.next.Lookup(ctx, productID)
		return lookupResult{product: p, found: ok}, err
	})
	if err != nil {
		return core.Product{}, false, breakerErr("lookup product", err)
	}
	r, _ := res.(lookupResult)
	return r.product, r.found, nil
}

func (s *BreakerCatalogStore) UpsertIfAbsent(ctx context.Context, p core.Product) (bool, error) {
	res, err := s.cb.Execute(func() (any, error) {
		return s.next.UpsertIfAbsent(ctx, p)
	})
	if err != nil {
		return false, breakerErr("upsert product", err)
	}
	created, _ := res.(bool)
	return created, nil
}

func (s *BreakerCatalogStore) ReadAll(ctx context.Context) ([]core.Product, error) {
	res, err := s.cb.Execute(func() (any, error) {
		return s.next.ReadAll(ctx)
	})
	if err != nil {
		return nil, breakerErr("read products", err)
	}
	products, _ := res.([]core.Product)
	return products, nil
}

func (s *BreakerCatalogStore) Close() error { return s.next.Close() }

// State 返回熔断器当前状态（closed / half-open / open）
func (s *BreakerCatalogStore) State() string { return s.cb.State().String() }

var (
	_ core.InteractionStore = (*BreakerInteractionStore)(nil)
	_ core.CatalogStore     = (*BreakerCatalogStore)(nil)
)
