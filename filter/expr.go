package filter

import (
	"context"

	"github.com/rushteam/unitrec/core"
	"github.com/rushteam/unitrec/pkg/dsl"
)

// ExprFilter 是表达式过滤器：表达式为 true 的商品会被过滤。
// 表达式使用 CEL 语法，可访问 item / label / rctx，例如：
//
//	item.score < 0.2
//	rctx.tenant_id == "unitA" && item.meta.category == "Unknown"
type ExprFilter struct {
	prg *dsl.Program
}

// NewExprFilter 编译表达式，语法错误在构建时返回。
func NewExprFilter(expr string) (*ExprFilter, error) {
	prg, err := dsl.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &ExprFilter{prg: prg}, nil
}

func (f *ExprFilter) Name() string {
	return "filter.expr"
}

// Expr 返回原始表达式
func (f *ExprFilter) Expr() string { return f.prg.String() }

func (f *ExprFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	return f.prg.Eval(item, rctx)
}
