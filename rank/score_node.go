package rank

import (
	"context"
	"sort"

	"github.com/rushteam/unitrec/core"
	"github.com/rushteam/unitrec/pipeline"
	"github.com/rushteam/unitrec/pkg/utils"
)

// ScoreSortNode 按召回阶段写入的预估分排序，不重新打分。
// - 分数降序，分数相同时 productId 升序，保证结果确定
// - 写入 labels：rank_model
type ScoreSortNode struct{}

func (n *ScoreSortNode) Name() string        { return "rank.score" }
func (n *ScoreSortNode) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *ScoreSortNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	out := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		it.PutLabel("rank_model", utils.Label{Value: "score", Source: "rank"})
		out = append(out, it)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
