package builders

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rushteam/unitrec/config"
	"github.com/rushteam/unitrec/core"
	"github.com/rushteam/unitrec/filter"
	"github.com/rushteam/unitrec/pipeline"
	"github.com/rushteam/unitrec/recall"
	"github.com/rushteam/unitrec/rerank"
)

func TestRegisteredTypes(t *testing.T) {
	want := []string{"filter", "postprocess.catalog_join", "rank.score", "recall.user_cf", "rerank.topn"}
	got := config.SupportedTypes()
	if len(got) != len(want) {
		t.Fatalf("types = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("types[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestBuildUserCFNode(t *testing.T) {
	node, err := BuildUserCFNode(map[string]any{"k": 10, "metric": "jaccard", "neutral_score": 1})
	if err != nil {
		t.Fatal(err)
	}
	cf := node.(*recall.UserBasedCF)
	if cf.K != 10 || cf.SimilarityMetric != recall.MetricJaccard || cf.NeutralScore != 1 {
		t.Errorf("unexpected node %+v", cf)
	}

	if _, err := BuildUserCFNode(map[string]any{"metric": "pearson"}); err == nil {
		t.Error("unknown metric must fail")
	}
	if _, err := BuildUserCFNode(map[string]any{"aggregation": "max"}); err == nil {
		t.Error("unknown aggregation must fail")
	}
	if _, err := BuildUserCFNode(map[string]any{"neutral_score": 0}); err == nil {
		t.Error("zero neutral_score must fail instead of silently falling back")
	}
}

func TestBuildFilterNode(t *testing.T) {
	node, err := BuildFilterNode(nil)
	if err != nil {
		t.Fatal(err)
	}
	if fs := node.(*filter.FilterNode).Filters; len(fs) != 1 || fs[0].Name() != "filter.seen" {
		t.Errorf("default filters = %v", fs)
	}

	node, err = BuildFilterNode(map[string]any{"filters": []any{
		map[string]any{"type": "seen"},
		map[string]any{"type": "blacklist", "product_ids": []any{"p9"}},
		map[string]any{"type": "expr", "expr": "item.score < 0.1"},
	}})
	if err != nil {
		t.Fatal(err)
	}
	if n := len(node.(*filter.FilterNode).Filters); n != 3 {
		t.Errorf("got %d filters", n)
	}

	if _, err := BuildFilterNode(map[string]any{"filters": []any{map[string]any{"type": "bloom"}}}); err == nil {
		t.Error("unknown filter type must fail")
	}
	if _, err := BuildFilterNode(map[string]any{"filters": []any{map[string]any{"type": "expr", "expr": "item.score <"}}}); err == nil {
		t.Error("bad expression must fail")
	}
}

func TestBuildTopNNode(t *testing.T) {
	node, err := BuildTopNNode(map[string]any{"n": 3})
	if err != nil {
		t.Fatal(err)
	}
	if tn := node.(*rerank.TopNNode); tn.N != 3 || tn.Max != 100 {
		t.Errorf("unexpected node %+v", tn)
	}
	if _, err := BuildTopNNode(map[string]any{"n": 200, "max": 100}); err == nil {
		t.Error("n above max must fail")
	}
	if _, err := BuildTopNNode(map[string]any{"n": 2.5}); err == nil {
		t.Error("fractional n must fail")
	}
}

func TestNewPipeline_Default(t *testing.T) {
	p, err := NewPipeline(config.Defaults().Recommend)
	if err != nil {
		t.Fatal(err)
	}
	kinds := []pipeline.Kind{pipeline.KindRecall, pipeline.KindFilter, pipeline.KindRank, pipeline.KindReRank, pipeline.KindPostProcess}
	if len(p.Nodes) != len(kinds) {
		t.Fatalf("got %d nodes", len(p.Nodes))
	}
	for i, k := range kinds {
		if p.Nodes[i].Kind() != k {
			t.Errorf("node %d kind = %s, want %s", i, p.Nodes[i].Kind(), k)
		}
	}

	events := []core.InteractionEvent{
		core.NewInteractionEvent("A", "p1", "t1", ""),
		core.NewInteractionEvent("A", "p2", "t1", ""),
		core.NewInteractionEvent("B", "p1", "t1", ""),
		core.NewInteractionEvent("B", "p2", "t1", ""),
		core.NewInteractionEvent("B", "p3", "t1", ""),
	}
	catalog := core.NewCatalog([]core.Product{
		{ProductID: "p1", Name: "a", Category: "x"},
		{ProductID: "p2", Name: "b", Category: "x"},
		{ProductID: "p3", Name: "c", Category: "y"},
	})
	rctx := &core.RecommendContext{UserID: "A", History: core.NewHistory(events), Catalog: catalog}
	out, err := p.Run(context.Background(), rctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].ID != "p3" || out[0].MetaString(core.MetaName) != "c" {
		t.Fatalf("unexpected result %v", out)
	}
}

func TestNewPipeline_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	data := `
pipeline:
  name: custom
  nodes:
    - type: recall.user_cf
      config:
        k: 5
    - type: filter
      config:
        filters:
          - type: seen
          - type: blacklist
            product_ids: [p9]
    - type: rank.score
    - type: postprocess.catalog_join
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	rec := config.Defaults().Recommend
	rec.PipelineFile = path
	p, err := NewPipeline(rec)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Nodes) != 4 {
		t.Fatalf("got %d nodes", len(p.Nodes))
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("pipeline:\n  nodes:\n    - type: rank.lr\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec.PipelineFile = bad
	if _, err := NewPipeline(rec); err == nil {
		t.Error("unregistered node type must fail")
	}

	jsonPath := filepath.Join(t.TempDir(), "pipeline.json")
	if err := os.WriteFile(jsonPath, []byte(`{"pipeline":{"name":"j","nodes":[{"type":"recall.user_cf"},{"type":"filter"},{"type":"rerank.topn","config":{"n":2}},{"type":"postprocess.catalog_join"}]}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	rec.PipelineFile = jsonPath
	p, err = NewPipeline(rec)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Nodes) != 4 || p.Nodes[2].Name() != "rerank.topn" {
		t.Fatalf("json pipeline nodes = %d", len(p.Nodes))
	}
}

func TestValidateRecommendPipeline(t *testing.T) {
	node := func(typ string, cfg map[string]any) pipeline.NodeConfig {
		return pipeline.NodeConfig{Type: typ, Config: cfg}
	}
	blacklistOnly := map[string]any{"filters": []any{map[string]any{"type": "blacklist", "product_ids": []any{"p9"}}}}
	tests := []struct {
		name    string
		nodes   []pipeline.NodeConfig
		wantErr bool
	}{
		{
			name:  "default filter config",
			nodes: []pipeline.NodeConfig{node("recall.user_cf", nil), node("filter", nil), node("postprocess.catalog_join", nil)},
		},
		{
			name:    "no nodes",
			wantErr: true,
		},
		{
			name:    "missing seen filter",
			nodes:   []pipeline.NodeConfig{node("recall.user_cf", nil), node("rank.score", nil), node("postprocess.catalog_join", nil)},
			wantErr: true,
		},
		{
			name:    "filter without seen",
			nodes:   []pipeline.NodeConfig{node("recall.user_cf", nil), node("filter", blacklistOnly), node("postprocess.catalog_join", nil)},
			wantErr: true,
		},
		{
			name:    "missing catalog join",
			nodes:   []pipeline.NodeConfig{node("recall.user_cf", nil), node("filter", nil), node("rank.score", nil)},
			wantErr: true,
		},
		{
			name:    "catalog join not last",
			nodes:   []pipeline.NodeConfig{node("recall.user_cf", nil), node("filter", nil), node("postprocess.catalog_join", nil), node("rerank.topn", nil)},
			wantErr: true,
		},
		{
			name:    "recall not first",
			nodes:   []pipeline.NodeConfig{node("filter", nil), node("recall.user_cf", nil), node("postprocess.catalog_join", nil)},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &pipeline.Config{}
			cfg.Pipeline.Name = tt.name
			cfg.Pipeline.Nodes = tt.nodes
			err := ValidateRecommendPipeline(cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if err := ValidateRecommendPipeline(DefaultPipelineConfig(config.Defaults().Recommend)); err != nil {
		t.Errorf("default pipeline: %v", err)
	}
}
