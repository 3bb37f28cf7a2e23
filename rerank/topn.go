package rerank

import (
	"context"

	"github.com/rushteam/unitrec/core"
	"github.com/rushteam/unitrec/pipeline"
)

// TopNNode 是一个 Top-N 截断节点，用于在排序后截取前 N 个物品。
// 通常在排序（Rank）节点之后使用，用于限制返回结果数量。
//
// 截断数量的优先级：
//   - rctx.TopN > 0 时使用请求指定的数量
//   - 否则使用 N
//   - 两者都 <= 0 时不截断
//
// Max > 0 时结果数量不会超过 Max。
type TopNNode struct {
	N   int
	Max int
}

func (n *TopNNode) Name() string {
	return "rerank.topn"
}

func (n *TopNNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

// Limit 返回本次请求实际使用的截断数量，<= 0 表示不截断
func (n *TopNNode) Limit(rctx *core.RecommendContext) int {
	limit := n.N
	if rctx != nil && rctx.TopN > 0 {
		limit = rctx.TopN
	}
	if n.Max > 0 && (limit <= 0 || limit > n.Max) {
		limit = n.Max
	}
	return limit
}

func (n *TopNNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	limit := n.Limit(rctx)
	if limit <= 0 || len(items) <= limit {
		return items, nil
	}
	return items[:limit], nil
}
