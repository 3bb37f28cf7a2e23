package filter

import (
	"context"

	"github.com/rushteam/unitrec/core"
)

// SeenFilter 是已见过滤器，过滤掉用户交互过的商品。
// 已见集合是全局的：用户在任何租户下交互过的商品都会被过滤，
// 而候选本身只来自用户当前租户。
type SeenFilter struct{}

func NewSeenFilter() *SeenFilter {
	return &SeenFilter{}
}

func (f *SeenFilter) Name() string {
	return "filter.seen"
}

func (f *SeenFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	if rctx == nil {
		return false, nil
	}
	return rctx.History.HasSeen(rctx.UserID, item.ID), nil
}
