package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/unitrec/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("item", cel.DynType),
			cel.Variable("label", cel.DynType),
			cel.Variable("rctx", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

// Program 是编译好的布尔表达式，可并发复用。
//
// 表达式语法（CEL 标准语法）：
//   - 数值：item.score >= 0.5
//   - 元信息：item.meta.category == "Unknown"
//   - 标签：label.recall_source == "user_cf"
//   - 上下文：rctx.tenant_id == "unitA" / rctx.user_id != "guest"
//   - 组合：rctx.tenant_id == "unitA" && item.score < 0.2
//
// 访问不存在的 key 会报错，存在性判断用 `"key" in label` 或 `has(item.meta.key)`。
type Program struct {
	expr string
	prg  cel.Program
}

// Compile 编译表达式，返回值必须是 bool。
func Compile(expr string) (*Program, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	return &Program{expr: expr, prg: prg}, nil
}

// String 返回原始表达式
func (p *Program) String() string { return p.expr }

// Eval 对一个 item 执行表达式。
func (p *Program) Eval(item *core.Item, rctx *core.RecommendContext) (bool, error) {
	out, _, err := p.prg.Eval(buildInput(item, rctx))
	if err != nil {
		return false, fmt.Errorf("eval error: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

// Eval 是一次性的 Label DSL 解释器，适合只执行一次的场景；
// 需要对大量 item 重复执行时用 Compile。
type Eval struct {
	item *core.Item
	rctx *core.RecommendContext
}

func NewEval(item *core.Item, rctx *core.RecommendContext) *Eval {
	return &Eval{item: item, rctx: rctx}
}

// Evaluate 编译并执行表达式，空表达式视为 true。
func (e *Eval) Evaluate(expr string) (bool, error) {
	if expr == "" {
		return true, nil
	}
	p, err := Compile(expr)
	if err != nil {
		return false, err
	}
	return p.Eval(e.item, e.rctx)
}

func buildInput(it *core.Item, rctx *core.RecommendContext) map[string]any {
	labels := make(map[string]any)
	labelValues := make(map[string]any)
	item := map[string]any{
		"id":     "",
		"score":  0.0,
		"meta":   map[string]any{},
		"labels": labels,
	}
	if it != nil {
		for k, v := range it.Labels {
			labels[k] = map[string]any{"value": v.Value, "source": v.Source}
			labelValues[k] = v.Value
		}
		item["id"] = it.ID
		item["score"] = it.Score
		if it.Meta != nil {
			item["meta"] = it.Meta
		}
	}

	ctxMap := map[string]any{
		"user_id":   "",
		"tenant_id": "",
		"params":    map[string]any{},
	}
	if rctx != nil {
		ctxMap["user_id"] = rctx.UserID
		ctxMap["tenant_id"] = rctx.TenantID
		if rctx.Params != nil {
			ctxMap["params"] = rctx.Params
		}
	}

	return map[string]any{
		"item":  item,
		"label": labelValues,
		"rctx":  ctxMap,
	}
}
