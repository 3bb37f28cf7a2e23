package filter

import (
	"context"
	"testing"

	"github.com/rushteam/unitrec/core"
)

func items(ids ...string) []*core.Item {
	out := make([]*core.Item, 0, len(ids))
	for _, id := range ids {
		out = append(out, core.NewItem(id))
	}
	return out
}

func idsOf(items []*core.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestSeenFilter_IsGlobalAcrossTenants(t *testing.T) {
	history := core.NewHistory([]core.InteractionEvent{
		core.NewInteractionEvent("u1", "p1", "unitA", ""),
		core.NewInteractionEvent("u1", "p2", "unitB", ""),
		core.NewInteractionEvent("u2", "p3", "unitA", ""),
	})
	rctx := &core.RecommendContext{UserID: "u1", TenantID: "unitA", History: history}

	node := &FilterNode{Filters: []Filter{NewSeenFilter()}}
	out, err := node.Process(context.Background(), rctx, items("p1", "p2", "p3"))
	if err != nil {
		t.Fatal(err)
	}
	if got := idsOf(out); len(got) != 1 || got[0] != "p3" {
		t.Fatalf("expected [p3], got %v", got)
	}
}

func TestFilterNode_Combined(t *testing.T) {
	expr, err := NewExprFilter(`item.score < 0.5`)
	if err != nil {
		t.Fatal(err)
	}
	in := items("a", "b", "c", "d")
	in[0].Score, in[1].Score, in[2].Score, in[3].Score = 0.9, 0.1, 0.8, 0.7

	node := &FilterNode{Filters: []Filter{NewBlacklistFilter([]string{"c"}), expr}}
	out, err := node.Process(context.Background(), &core.RecommendContext{}, in)
	if err != nil {
		t.Fatal(err)
	}
	got := idsOf(out)
	if len(got) != 2 || got[0] != "a" || got[1] != "d" {
		t.Fatalf("expected [a d], got %v", got)
	}
	if lbl := in[1].Labels["filtered"]; lbl.Source != "filter.expr" {
		t.Errorf("filtered label source = %q, want filter.expr", lbl.Source)
	}
}

func TestFilterNode_ErrorKeepsItem(t *testing.T) {
	// 访问不存在的 meta key 会在执行期报错，物品保留
	expr, err := NewExprFilter(`item.meta.missing == "x"`)
	if err != nil {
		t.Fatal(err)
	}
	node := &FilterNode{Filters: []Filter{expr}}
	out, err := node.Process(context.Background(), &core.RecommendContext{}, items("a"))
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Fatalf("expected item to be kept on filter error, got %v", idsOf(out))
	}
}

func TestNewExprFilter_CompileError(t *testing.T) {
	if _, err := NewExprFilter("item.score <"); err == nil {
		t.Fatal("expected compile error")
	}
}
