package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rushteam/unitrec/core"
)

// Pipeline 是核心抽象：把推荐逻辑拆成可组合的 Node 链。
type Pipeline struct {
	Nodes []Node

	// Observer 可选，每个 Node 执行完后回调（用于打点/日志）
	Observer Observer
}

// Observer 观测单个 Node 的执行情况。
type Observer func(node Node, elapsed time.Duration, in, out int, err error)

func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		next, err := node.Process(ctx, rctx, cur)
		if p.Observer != nil {
			p.Observer(node, time.Since(start), len(cur), len(next), err)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", node.Name(), err)
		}
		cur = next
	}
	return cur, nil
}
