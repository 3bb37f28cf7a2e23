package builders

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rushteam/unitrec/config"
	"github.com/rushteam/unitrec/pipeline"
	"github.com/rushteam/unitrec/pkg/conv"
)

// DefaultPipelineName 是内置流水线的名称。
const DefaultPipelineName = "user_cf_default"

// DefaultPipelineConfig 返回内置流水线：
// recall.user_cf -> filter(seen) -> rank.score -> rerank.topn -> postprocess.catalog_join
func DefaultPipelineConfig(rec config.RecommendSettings) *pipeline.Config {
	cfg := &pipeline.Config{}
	cfg.Pipeline.Name = DefaultPipelineName
	cfg.Pipeline.Nodes = []pipeline.NodeConfig{
		{Type: "recall.user_cf", Config: map[string]any{
			"k":                rec.Neighbors,
			"metric":           rec.Metric,
			"min_common_items": rec.MinCommonItems,
			"aggregation":      rec.Aggregation,
			"neutral_score":    rec.NeutralScore,
			"workers":          rec.Workers,
		}},
		{Type: "filter", Config: map[string]any{
			"filters": []any{map[string]any{"type": "seen"}},
		}},
		{Type: "rank.score"},
		{Type: "rerank.topn", Config: map[string]any{
			"n":   rec.DefaultTopN,
			"max": rec.MaxTopN,
		}},
		{Type: "postprocess.catalog_join"},
	}
	return cfg
}

// NewPipeline 按配置构建推荐流水线：rec.PipelineFile 非空时从文件加载（.json 按 JSON，其余按 YAML），
// 否则使用内置流水线。
func NewPipeline(rec config.RecommendSettings) (*pipeline.Pipeline, error) {
	cfg := DefaultPipelineConfig(rec)
	if rec.PipelineFile != "" {
		load := pipeline.LoadFromYAML
		if strings.EqualFold(filepath.Ext(rec.PipelineFile), ".json") {
			load = pipeline.LoadFromJSON
		}
		loaded, err := load(rec.PipelineFile)
		if err != nil {
			return nil, fmt.Errorf("load pipeline %s: %w", rec.PipelineFile, err)
		}
		cfg = loaded
	}
	if err := config.ValidatePipelineConfig(cfg); err != nil {
		return nil, err
	}
	if err := ValidateRecommendPipeline(cfg); err != nil {
		return nil, err
	}
	return cfg.BuildPipeline(config.DefaultFactory())
}

// ValidateRecommendPipeline 检查流水线能给出合法的推荐结果：
// 第一个节点是 recall.user_cf，之后有包含 seen 的 filter 节点，最后一个节点是 postprocess.catalog_join。
func ValidateRecommendPipeline(cfg *pipeline.Config) error {
	nodes := cfg.Pipeline.Nodes
	if len(nodes) == 0 {
		return fmt.Errorf("pipeline %q: no nodes", cfg.Pipeline.Name)
	}
	if nodes[0].Type != "recall.user_cf" {
		return fmt.Errorf("pipeline %q: first node must be recall.user_cf, got %s", cfg.Pipeline.Name, nodes[0].Type)
	}
	if last := nodes[len(nodes)-1].Type; last != "postprocess.catalog_join" {
		return fmt.Errorf("pipeline %q: last node must be postprocess.catalog_join, got %s", cfg.Pipeline.Name, last)
	}
	for _, nc := range nodes[1:] {
		if nc.Type == "filter" && hasSeenFilter(nc.Config) {
			return nil
		}
	}
	return fmt.Errorf("pipeline %q: a filter node with the seen filter is required", cfg.Pipeline.Name)
}

// hasSeenFilter 与 BuildFilterNode 一致：filters 为空时默认就是 seen。
func hasSeenFilter(cfg map[string]any) bool {
	raw, _ := cfg["filters"].([]any)
	if len(raw) == 0 {
		return true
	}
	for _, fc := range raw {
		if fm, ok := fc.(map[string]any); ok && conv.Get(fm, "type", "") == "seen" {
			return true
		}
	}
	return false
}
