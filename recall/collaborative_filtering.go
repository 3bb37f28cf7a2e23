package recall

import (
	"context"
	"strconv"

	"github.com/rushteam/unitrec/core"
	"github.com/rushteam/unitrec/pipeline"
	"github.com/rushteam/unitrec/pkg/utils"
)

// 评分聚合方式
const (
	// AggregationWeightedAverage: Σ sim·r / Σ sim，结果仍在评分区间内
	AggregationWeightedAverage = "weighted_average"

	// AggregationWeightedSum: Σ sim·r，近邻越多、越相似分数越高
	AggregationWeightedSum = "weighted_sum"
)

// UserBasedCF 是基于用户的协同过滤召回源（User-based Collaborative Filtering, User-CF）。
//
// 核心思想："兴趣相似的用户，喜欢相似的物品"
//
// 算法流程（每次请求全量计算，不保留任何模型状态）：
//  1. 从 rctx.History 中取出用户所属租户的事件，构建评分矩阵
//  2. 计算租户内所有用户两两相似度
//  3. 取与目标用户最相似的 K 个近邻（相似度降序，相同时 user id 升序）
//  4. 对租户内目标用户没评过的每个商品，用近邻评分加权得到预估分
//
// 没有近邻评过的商品使用租户平均评分兜底；租户矩阵完全为空时使用 NeutralScore。
// weighted_sum 聚合下兜底分为 0，排在所有近邻评过的商品之后。
// 跨租户的已见过滤由后续的 filter.SeenFilter 完成。
type UserBasedCF struct {
	// K 近邻数，<= 0 时使用 Config 默认值（40）
	K int

	// SimilarityMetric 相似度度量方式：cosine / jaccard
	SimilarityMetric string

	// MinCommonItems 两个用户至少需要有多少个共同交互物品才计算相似度
	MinCommonItems int

	// Aggregation 评分聚合方式：weighted_average（默认）/ weighted_sum
	Aggregation string

	// NeutralScore 租户内没有任何评分时的预估分，<= 0 时使用 Config 默认值（0.5）
	NeutralScore float64

	// Workers 相似度计算并发数
	Workers int

	// Config 提供 K / MinCommonItems / NeutralScore 未设置时的默认值，nil 时使用 core.DefaultRecallConfig
	Config core.RecallConfig
}

func (r *UserBasedCF) config() core.RecallConfig {
	if r.Config != nil {
		return r.Config
	}
	return &core.DefaultRecallConfig{}
}

func (r *UserBasedCF) Name() string        { return "recall.user_cf" }
func (r *UserBasedCF) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall
func (r *UserBasedCF) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

// Recall 实现 Source 接口。
// 用户在任何租户下都没有事件时返回 core.ErrUserNotFound；没有候选时返回空列表。
func (r *UserBasedCF) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if rctx == nil || !rctx.History.HasUser(rctx.UserID) {
		return nil, core.ErrUserNotFound
	}
	tenantID := rctx.TenantID
	if tenantID == "" {
		t, err := rctx.History.TenantOf(rctx.UserID)
		if err != nil {
			return nil, err
		}
		tenantID = t
		rctx.TenantID = t
	}

	preds, err := r.Predict(ctx, rctx.History.Events(), tenantID, rctx.UserID)
	if err != nil {
		return nil, err
	}

	metric := r.SimilarityMetric
	if metric == "" {
		metric = MetricCosine
	}
	out := make([]*core.Item, 0, len(preds))
	for _, p := range preds {
		it := core.NewItem(p.ProductID)
		it.Score = p.EstimatedScore
		it.PutLabel("recall_source", utils.Label{Value: "user_cf", Source: "recall"})
		it.PutLabel("cf_metric", utils.Label{Value: metric, Source: "recall"})
		it.PutLabel("cf_neighbors", utils.Label{Value: strconv.Itoa(p.NeighborCount), Source: "recall"})
		if p.Fallback {
			it.PutLabel("cf_fallback", utils.Label{Value: "true", Source: "recall"})
		}
		out = append(out, it)
	}
	rctx.PutLabel("recall_candidates", utils.Label{Value: strconv.Itoa(len(out)), Source: "recall"})
	return out, nil
}

// Predict 为 userID 在 tenantID 内没评过的每个商品计算预估分，按 productId 升序返回。
func (r *UserBasedCF) Predict(
	ctx context.Context,
	events []core.InteractionEvent,
	tenantID, userID string,
) ([]core.Prediction, error) {
	cfg := r.config()
	minCommon := r.MinCommonItems
	if minCommon <= 0 {
		minCommon = cfg.DefaultMinCommonItems()
	}
	m := BuildMatrix(events, tenantID)
	engine := &SimilarityEngine{
		Metric:         r.SimilarityMetric,
		MinCommonItems: minCommon,
		Workers:        r.Workers,
	}
	table, err := engine.Compute(ctx, m)
	if err != nil {
		return nil, err
	}

	k := r.K
	if k <= 0 {
		k = cfg.DefaultNeighborhoodSize()
	}
	neighbors := table.TopK(userID, k)
	fallback := r.fallbackScore(m)

	preds := make([]core.Prediction, 0, len(m.Items()))
	for _, p := range m.Items() {
		if m.Has(userID, p) {
			continue
		}
		preds = append(preds, r.estimate(m, neighbors, p, fallback))
	}
	return preds, nil
}

// fallbackScore 是没有近邻评过的商品的预估分。
// weighted_sum 下它与近邻分数同尺度：空集合的加权和为 0。
func (r *UserBasedCF) fallbackScore(m *RatingMatrix) float64 {
	if r.Aggregation == AggregationWeightedSum {
		return 0
	}
	if mean, ok := m.GlobalMean(); ok {
		return mean
	}
	if r.NeutralScore > 0 {
		return r.NeutralScore
	}
	return r.config().DefaultNeutralScore()
}

// estimate 只使用评过该商品的近邻；没有近邻评过时返回兜底分。
func (r *UserBasedCF) estimate(m *RatingMatrix, neighbors []Neighbor, productID string, fallback float64) core.Prediction {
	var (
		num, den float64
		count    int
	)
	for _, n := range neighbors {
		rating, ok := m.Rating(n.UserID, productID)
		if !ok {
			continue
		}
		num += n.Similarity * rating
		den += n.Similarity
		count++
	}
	if count == 0 || den == 0 {
		return core.Prediction{ProductID: productID, EstimatedScore: fallback, Fallback: true}
	}

	score := num / den
	if r.Aggregation == AggregationWeightedSum {
		score = num
	}
	return core.Prediction{ProductID: productID, EstimatedScore: score, NeighborCount: count}
}

var (
	_ Source        = (*UserBasedCF)(nil)
	_ pipeline.Node = (*UserBasedCF)(nil)
)
