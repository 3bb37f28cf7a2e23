// Package postprocess 包含 Pipeline 末端的结果修饰节点。
package postprocess

import (
	"context"
	"fmt"

	"github.com/rushteam/unitrec/core"
	"github.com/rushteam/unitrec/pipeline"
	"github.com/rushteam/unitrec/pkg/utils"
)

// CatalogJoinNode 把排好序的商品与商品目录做内连接（按 productId 精确匹配）。
// 目录中不存在的商品被丢弃，所以结果可能少于 N；保留输入顺序。
//
// 目录来源优先级：rctx.Catalog（请求快照）> Reader。
type CatalogJoinNode struct {
	Reader core.CatalogReader
}

func (n *CatalogJoinNode) Name() string        { return "postprocess.catalog_join" }
func (n *CatalogJoinNode) Kind() pipeline.Kind { return pipeline.KindPostProcess }

func (n *CatalogJoinNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}
	reader := n.Reader
	if rctx != nil && rctx.Catalog != nil {
		reader = rctx.Catalog
	}
	if reader == nil {
		return nil, fmt.Errorf("catalog join: no catalog reader")
	}

	out := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		p, ok, err := reader.Lookup(ctx, it.ID)
		if err != nil {
			return nil, fmt.Errorf("lookup product %s: %w", it.ID, err)
		}
		if !ok {
			continue
		}
		if it.Meta == nil {
			it.Meta = make(map[string]any)
		}
		it.Meta[core.MetaName] = p.Name
		it.Meta[core.MetaCategory] = p.Category
		it.PutLabel("category", utils.Label{Value: p.Category, Source: "postprocess"})
		out = append(out, it)
	}
	return out, nil
}
