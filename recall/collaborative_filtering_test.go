package recall

import (
	"context"
	"math"
	"testing"

	"github.com/rushteam/unitrec/core"
)

func rctxFor(user string, events []core.InteractionEvent) *core.RecommendContext {
	return &core.RecommendContext{UserID: user, History: core.NewHistory(events)}
}

func TestUserBasedCF_RecallsUnratedTenantItems(t *testing.T) {
	events := []core.InteractionEvent{
		ev("A", "p1", "t"), ev("A", "p2", "t"),
		ev("B", "p1", "t"), ev("B", "p2", "t"), ev("B", "p3", "t"),
	}
	rctx := rctxFor("A", events)

	items, err := (&UserBasedCF{}).Recall(context.Background(), rctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].ID != "p3" {
		t.Fatalf("expected [p3], got %v", ids(items))
	}
	if items[0].Score != 1 {
		t.Errorf("weighted average of binary ratings must be 1, got %v", items[0].Score)
	}
	if rctx.TenantID != "t" {
		t.Errorf("tenant not derived, got %q", rctx.TenantID)
	}
	if lbl, ok := items[0].Labels["recall_source"]; !ok || lbl.Value != "user_cf" {
		t.Errorf("missing recall_source label: %+v", items[0].Labels)
	}
}

func TestUserBasedCF_UserNotFound(t *testing.T) {
	rctx := rctxFor("ghost-user", []core.InteractionEvent{ev("A", "p1", "t")})
	_, err := (&UserBasedCF{}).Recall(context.Background(), rctx)
	if !core.IsUserNotFound(err) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserBasedCF_TenantIsFirstEvent(t *testing.T) {
	events := []core.InteractionEvent{
		ev("A", "p1", "unitA"),
		ev("A", "p7", "unitB"),
		ev("B", "p1", "unitA"), ev("B", "p2", "unitA"),
		ev("C", "p8", "unitB"), ev("C", "p7", "unitB"),
	}
	items, err := (&UserBasedCF{}).Recall(context.Background(), rctxFor("A", events))
	if err != nil {
		t.Fatal(err)
	}
	for _, it := range items {
		if it.ID == "p8" {
			t.Fatal("candidates must come from the first-event tenant only")
		}
	}
	if len(items) != 1 || items[0].ID != "p2" {
		t.Fatalf("expected [p2], got %v", ids(items))
	}
}

func TestUserBasedCF_FallbackScores(t *testing.T) {
	// A 与 B 没有共同商品，p2 没有任何近邻评过，使用租户均值
	events := []core.InteractionEvent{
		ev("A", "p1", "t"),
		ev("B", "p2", "t"),
	}
	preds, err := (&UserBasedCF{}).Predict(context.Background(), events, "t", "A")
	if err != nil {
		t.Fatal(err)
	}
	if len(preds) != 1 || preds[0].ProductID != "p2" {
		t.Fatalf("unexpected predictions %+v", preds)
	}
	if !preds[0].Fallback || preds[0].EstimatedScore != 1 || preds[0].NeighborCount != 0 {
		t.Errorf("expected tenant-mean fallback, got %+v", preds[0])
	}

	// 租户内完全没有评分时使用中性分
	m := BuildMatrix(nil, "t")
	r := &UserBasedCF{}
	if got := r.fallbackScore(m); got != 0.5 {
		t.Errorf("neutral fallback = %v, want 0.5", got)
	}
	r.NeutralScore = 0.3
	if got := r.fallbackScore(m); got != 0.3 {
		t.Errorf("configured neutral fallback = %v, want 0.3", got)
	}
}

func TestUserBasedCF_NeighborhoodSize(t *testing.T) {
	// A 与 B 最相似（两个共同商品），K=1 时只有 B 参与打分
	events := []core.InteractionEvent{
		ev("A", "p1", "t"), ev("A", "p2", "t"),
		ev("B", "p1", "t"), ev("B", "p2", "t"), ev("B", "p3", "t"),
		ev("C", "p1", "t"), ev("C", "p4", "t"),
	}
	preds, err := (&UserBasedCF{K: 1, Aggregation: AggregationWeightedSum}).Predict(context.Background(), events, "t", "A")
	if err != nil {
		t.Fatal(err)
	}
	byID := make(map[string]core.Prediction)
	for _, p := range preds {
		byID[p.ProductID] = p
	}
	if p := byID["p3"]; p.Fallback || p.NeighborCount != 1 || math.Abs(p.EstimatedScore-2/math.Sqrt(6)) > eps {
		t.Errorf("p3 = %+v", p)
	}
	if p := byID["p4"]; !p.Fallback || p.EstimatedScore != 0 {
		t.Errorf("p4 is only rated by a non-neighbour, expected zero fallback: %+v", p)
	}
}

func TestUserBasedCF_WeightedSumFallbackRanksLast(t *testing.T) {
	// B 与 A 只有一个共同商品，相似度 < 1；weighted_sum 下 B 评过的 p3 仍要排在兜底商品前面
	events := []core.InteractionEvent{
		ev("A", "p1", "t"), ev("A", "p2", "t"),
		ev("B", "p1", "t"), ev("B", "p3", "t"), ev("B", "p5", "t"),
		ev("C", "p4", "t"),
	}
	tests := []struct {
		aggregation  string
		wantFallback float64
	}{
		{AggregationWeightedAverage, 1},
		{AggregationWeightedSum, 0},
	}
	for _, tt := range tests {
		t.Run(tt.aggregation, func(t *testing.T) {
			preds, err := (&UserBasedCF{Aggregation: tt.aggregation}).Predict(context.Background(), events, "t", "A")
			if err != nil {
				t.Fatal(err)
			}
			byID := make(map[string]core.Prediction)
			for _, p := range preds {
				byID[p.ProductID] = p
			}
			p3, p4 := byID["p3"], byID["p4"]
			if p3.Fallback || !p4.Fallback || p4.EstimatedScore != tt.wantFallback {
				t.Fatalf("p3 = %+v, p4 = %+v", p3, p4)
			}
			if tt.aggregation == AggregationWeightedSum && p3.EstimatedScore <= p4.EstimatedScore {
				t.Errorf("neighbour score %v must rank above fallback %v", p3.EstimatedScore, p4.EstimatedScore)
			}
		})
	}
}

type narrowConfig struct{ core.DefaultRecallConfig }

func (narrowConfig) DefaultNeighborhoodSize() int { return 1 }

func TestUserBasedCF_ConfigDefaults(t *testing.T) {
	events := []core.InteractionEvent{
		ev("A", "p1", "t"), ev("A", "p2", "t"),
		ev("B", "p1", "t"), ev("B", "p2", "t"), ev("B", "p3", "t"),
		ev("C", "p1", "t"), ev("C", "p4", "t"),
	}
	preds, err := (&UserBasedCF{Config: &narrowConfig{}}).Predict(context.Background(), events, "t", "A")
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range preds {
		if p.ProductID == "p4" && !p.Fallback {
			t.Errorf("K from config must exclude C: %+v", p)
		}
	}
}

func TestUserBasedCF_NoCandidates(t *testing.T) {
	events := []core.InteractionEvent{ev("A", "p1", "t"), ev("B", "p1", "t")}
	items, err := (&UserBasedCF{}).Recall(context.Background(), rctxFor("A", events))
	if err != nil {
		t.Fatalf("empty candidate set is not an error: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected no items, got %v", ids(items))
	}
}

func ids(items []*core.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}
