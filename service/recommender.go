// Package service 把存储、流水线、指标和日志组装成两个对外操作：Ingest 与 Recommend。
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rushteam/unitrec/core"
	"github.com/rushteam/unitrec/pipeline"
	"github.com/rushteam/unitrec/pkg/logging"
	"github.com/rushteam/unitrec/pkg/metrics"
)

// DefaultTopN 作为 Recommend 的 topN 传入时使用流水线配置的默认数量。
const DefaultTopN = -1

// Recommender 是推荐服务。每次 Recommend 都读取存储的完整快照并重新计算，不持有模型状态，
// 可以被多个 goroutine 并发调用。
type Recommender struct {
	events   core.InteractionStore
	catalog  core.CatalogStore
	pipeline *pipeline.Pipeline
	now      func() time.Time
}

// Option 配置 Recommender
type Option func(*Recommender)

// WithClock 设置时钟，Ingest 在 timestamp 为空时用它补全。
func WithClock(now func() time.Time) Option {
	return func(r *Recommender) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRecommender 创建推荐服务。p 的每个节点耗时会被记录到 metrics.PipelineNodeDuration。
func NewRecommender(events core.InteractionStore, catalog core.CatalogStore, p *pipeline.Pipeline, opts ...Option) (*Recommender, error) {
	if events == nil || catalog == nil {
		return nil, fmt.Errorf("interaction store and catalog store are required")
	}
	if p == nil || len(p.Nodes) == 0 {
		return nil, fmt.Errorf("pipeline is required")
	}
	r := &Recommender{
		events:   events,
		catalog:  catalog,
		pipeline: &pipeline.Pipeline{Nodes: p.Nodes, Observer: observeNodes(p.Observer)},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func observeNodes(next pipeline.Observer) pipeline.Observer {
	return func(node pipeline.Node, elapsed time.Duration, in, out int, err error) {
		metrics.ObserveNode(string(node.Kind()), node.Name(), elapsed)
		l := logging.With("pipeline")
		l.Debug().
			Str("node", node.Name()).
			Dur("elapsed", elapsed).
			Int("in", in).
			Int("out", out).
			Err(err).
			Msg("node done")
		if next != nil {
			next(node, elapsed, in, out, err)
		}
	}
}

// Ingest 记录一次用户-商品交互（隐式评分 1），并在商品首次出现时写入 "Unknown" 占位目录项。
//
// 写事件与写目录是两个独立的原子操作：任一失败都不回滚另一个，
// 结果如实体现在 Ack 中，错误用 errors.Join 合并返回。
func (r *Recommender) Ingest(ctx context.Context, userID, productID, tenantID, timestamp string) (core.Ack, error) {
	log := logging.With("ingest")
	userID, productID = strings.TrimSpace(userID), strings.TrimSpace(productID)
	if userID == "" || productID == "" {
		metrics.RecordIngest(metrics.OutcomeInvalid, false)
		return core.Ack{}, core.NewInvalidInput(core.ModuleIngest, "userId and productId are required")
	}
	if timestamp == "" {
		timestamp = r.now().UTC().Format(time.RFC3339)
	}

	var (
		ack  core.Ack
		errs []error
	)
	if err := r.events.Append(ctx, core.NewInteractionEvent(userID, productID, tenantID, timestamp)); err != nil {
		errs = append(errs, storageErr("append event", err))
	} else {
		ack.EventAppended = true
		ack.Status = core.AckStatusLogged
	}

	created, err := r.catalog.UpsertIfAbsent(ctx, core.NewPlaceholderProduct(productID))
	if err != nil {
		errs = append(errs, storageErr("upsert product", err))
	}
	ack.CatalogCreated = created

	err = errors.Join(errs...)
	switch {
	case err == nil:
		metrics.RecordIngest(metrics.OutcomeOK, created)
		log.Info().
			Str("user_id", userID).
			Str("product_id", productID).
			Str("tenant_id", tenantID).
			Bool("catalog_created", created).
			Msg("event logged")
	case ack.EventAppended || created:
		metrics.RecordIngest(metrics.OutcomePartial, created)
		log.Warn().Err(err).Str("user_id", userID).Str("product_id", productID).
			Bool("event_appended", ack.EventAppended).Bool("catalog_created", created).Msg("ingest partially failed")
	default:
		metrics.RecordIngest(metrics.OutcomeUnavailable, false)
		log.Error().Err(err).Str("user_id", userID).Str("product_id", productID).Msg("ingest failed")
	}
	return ack, err
}

// Recommend 为用户生成最多 topN 个推荐。topN 为 0 时返回空列表，为负数（DefaultTopN）时使用流水线的默认值。
// 用户在任何租户下都没有交互时返回 core.ErrUserNotFound；没有候选时返回空列表。
func (r *Recommender) Recommend(ctx context.Context, userID string, topN int) ([]core.Recommendation, error) {
	start := time.Now()
	log := logging.With("recommend")

	recs, rctx, err := r.recommend(ctx, userID, topN)
	outcome := metrics.OutcomeOK
	switch {
	case err == nil:
		candidates, _ := rctx.GetLabel("recall_candidates")
		log.Info().
			Str("user_id", userID).
			Str("tenant_id", rctx.TenantID).
			Str("candidates", candidates.Value).
			Int("returned", len(recs)).
			Int64("latency_ms", time.Since(start).Milliseconds()).
			Msg("recommend done")
	case core.IsUserNotFound(err):
		outcome = metrics.OutcomeUserNotFound
		log.Info().Str("user_id", userID).Msg("user not found")
	case core.IsUnavailable(err):
		outcome = metrics.OutcomeUnavailable
		log.Error().Err(err).Str("user_id", userID).Msg("recommend failed: storage unavailable")
	default:
		outcome = metrics.OutcomeError
		log.Error().Err(err).Str("user_id", userID).Msg("recommend failed")
	}
	metrics.RecordRecommend(outcome, time.Since(start), len(recs))
	return recs, err
}

func (r *Recommender) recommend(ctx context.Context, userID string, topN int) ([]core.Recommendation, *core.RecommendContext, error) {
	events, err := r.events.ReadAll(ctx)
	if err != nil {
		return nil, nil, storageErr("read events", err)
	}
	history := core.NewHistory(events)
	tenantID, err := history.TenantOf(userID)
	if err != nil {
		return nil, nil, err
	}

	products, err := r.catalog.ReadAll(ctx)
	if err != nil {
		return nil, nil, storageErr("read catalog", err)
	}

	rctx := &core.RecommendContext{
		UserID:   userID,
		TenantID: tenantID,
		TopN:     max(topN, 0),
		History:  history,
		Catalog:  core.NewCatalog(products),
	}
	if topN == 0 {
		return []core.Recommendation{}, rctx, nil
	}
	items, err := r.pipeline.Run(ctx, rctx, nil)
	if err != nil {
		return nil, rctx, err
	}

	recs := make([]core.Recommendation, 0, len(items))
	for _, it := range items {
		recs = append(recs, it.Recommendation())
	}
	return recs, rctx, nil
}

// Close 关闭两个存储
func (r *Recommender) Close() error {
	return errors.Join(r.events.Close(), r.catalog.Close())
}

// storageErr 把存储错误统一为 StorageUnavailable；已经是的（例如熔断器拒绝）原样返回。
func storageErr(op string, err error) error {
	if core.IsUnavailable(err) {
		return err
	}
	return core.NewStorageUnavailable(op, err)
}
