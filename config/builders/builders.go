// Package builders 在 init 中把内置 Node 注册到 config 注册表。
package builders

import (
	"fmt"

	"github.com/rushteam/unitrec/config"
	"github.com/rushteam/unitrec/core"
	"github.com/rushteam/unitrec/filter"
	"github.com/rushteam/unitrec/pipeline"
	"github.com/rushteam/unitrec/pkg/conv"
	"github.com/rushteam/unitrec/postprocess"
	"github.com/rushteam/unitrec/rank"
	"github.com/rushteam/unitrec/recall"
	"github.com/rushteam/unitrec/rerank"
)

var defaults core.RecallConfig = &core.DefaultRecallConfig{}

func init() {
	config.Register("recall.user_cf", BuildUserCFNode)
	config.Register("filter", BuildFilterNode)
	config.Register("rank.score", BuildScoreNode)
	config.Register("rerank.topn", BuildTopNNode)
	config.Register("postprocess.catalog_join", BuildCatalogJoinNode)
}

// BuildUserCFNode 构建协同过滤召回节点，k / min_common_items / neutral_score 未设置时由节点使用 core.RecallConfig 默认值。
func BuildUserCFNode(cfg map[string]any) (pipeline.Node, error) {
	node := &recall.UserBasedCF{
		SimilarityMetric: conv.Get(cfg, "metric", recall.MetricCosine),
		Aggregation:      conv.Get(cfg, "aggregation", recall.AggregationWeightedAverage),
	}
	var err error
	if node.K, err = conv.Int(cfg, "k", 0); err != nil {
		return nil, err
	}
	if node.MinCommonItems, err = conv.Int(cfg, "min_common_items", 0); err != nil {
		return nil, err
	}
	if node.Workers, err = conv.Int(cfg, "workers", 0); err != nil {
		return nil, err
	}
	v, ok, err := conv.Float(cfg, "neutral_score")
	if err != nil {
		return nil, err
	}
	if ok {
		if v <= 0 {
			return nil, fmt.Errorf("neutral_score must be > 0, got %v", v)
		}
		node.NeutralScore = v
	}
	if err := recall.ValidateMetric(node.SimilarityMetric); err != nil {
		return nil, err
	}
	switch node.Aggregation {
	case recall.AggregationWeightedAverage, recall.AggregationWeightedSum:
	default:
		return nil, fmt.Errorf("unknown aggregation: %s", node.Aggregation)
	}
	return node, nil
}

// BuildFilterNode 构建过滤节点，filters 为空时默认只做已见过滤。
//
//	filters:
//	  - type: seen
//	  - type: blacklist
//	    product_ids: [p9]
//	  - type: expr
//	    expr: 'item.score < 0.1'
func BuildFilterNode(cfg map[string]any) (pipeline.Node, error) {
	raw, _ := cfg["filters"].([]any)
	if len(raw) == 0 {
		return &filter.FilterNode{Filters: []filter.Filter{filter.NewSeenFilter()}}, nil
	}
	filters := make([]filter.Filter, 0, len(raw))
	for _, fc := range raw {
		fm, ok := fc.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("invalid filter config: %v", fc)
		}
		switch t := conv.Get(fm, "type", ""); t {
		case "seen":
			filters = append(filters, filter.NewSeenFilter())
		case "blacklist":
			filters = append(filters, filter.NewBlacklistFilter(conv.Strings(fm["product_ids"])))
		case "expr":
			f, err := filter.NewExprFilter(conv.Get(fm, "expr", ""))
			if err != nil {
				return nil, err
			}
			filters = append(filters, f)
		default:
			return nil, fmt.Errorf("unknown filter type: %s", t)
		}
	}
	return &filter.FilterNode{Filters: filters}, nil
}

func BuildScoreNode(map[string]any) (pipeline.Node, error) {
	return &rank.ScoreSortNode{}, nil
}

func BuildTopNNode(cfg map[string]any) (pipeline.Node, error) {
	n := &rerank.TopNNode{}
	var err error
	if n.N, err = conv.Int(cfg, "n", defaults.DefaultTopN()); err != nil {
		return nil, err
	}
	if n.Max, err = conv.Int(cfg, "max", 100); err != nil {
		return nil, err
	}
	if n.Max > 0 && n.N > n.Max {
		return nil, fmt.Errorf("topn: n %d exceeds max %d", n.N, n.Max)
	}
	return n, nil
}

// BuildCatalogJoinNode 不带 Reader，目录来自请求上下文。
func BuildCatalogJoinNode(map[string]any) (pipeline.Node, error) {
	return &postprocess.CatalogJoinNode{}, nil
}
