// Package config 负责服务配置加载（Settings）与流水线 Node 类型注册表。
package config

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rushteam/unitrec/pipeline"
)

// 使用配置驱动的流水线时，需在入口处 import _ "github.com/rushteam/unitrec/config/builders"
// 以触发内置 Node（recall.user_cf、filter、rank.score、rerank.topn、postprocess.catalog_join）的注册。

// NodeBuilder 与 pipeline.NodeBuilder 一致：根据 config 构建 Node。
type NodeBuilder = pipeline.NodeBuilder

var (
	builders   = make(map[string]NodeBuilder)
	buildersMu sync.RWMutex
)

// Register 注册一种 Node 的构建逻辑；同名类型后注册的覆盖先注册的。
func Register(typeName string, builder NodeBuilder) {
	if typeName == "" || builder == nil {
		return
	}
	buildersMu.Lock()
	defer buildersMu.Unlock()
	builders[typeName] = builder
}

// SupportedTypes 返回已注册的 Node 类型（排序）。
func SupportedTypes() []string {
	buildersMu.RLock()
	defer buildersMu.RUnlock()
	types := make([]string, 0, len(builders))
	for t := range builders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// DefaultFactory 返回包含所有已注册类型的 NodeFactory。
func DefaultFactory() *pipeline.NodeFactory {
	buildersMu.RLock()
	defer buildersMu.RUnlock()
	f := pipeline.NewNodeFactory()
	for typeName, builder := range builders {
		f.Register(typeName, builder)
	}
	return f
}

// ValidatePipelineConfig 校验流水线配置中的 node 类型均已注册。
func ValidatePipelineConfig(cfg *pipeline.Config) error {
	if cfg == nil {
		return fmt.Errorf("nil pipeline config")
	}
	buildersMu.RLock()
	defer buildersMu.RUnlock()
	for i, nc := range cfg.Pipeline.Nodes {
		if nc.Type == "" {
			return fmt.Errorf("node %d: missing type", i)
		}
		if _, ok := builders[nc.Type]; !ok {
			types := make([]string, 0, len(builders))
			for t := range builders {
				types = append(types, t)
			}
			sort.Strings(types)
			return fmt.Errorf("unsupported node type %q (supported: %v)", nc.Type, types)
		}
	}
	return nil
}
