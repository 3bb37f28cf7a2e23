// Package unitrec 是多租户（业务单元）的隐式反馈推荐服务。
//
// 每次推荐都从交互日志的完整快照重新计算：
//
//	recall.user_cf -> filter(seen) -> rank.score -> rerank.topn -> postprocess.catalog_join
//
// - 召回：租户内基于用户的协同过滤（cosine / jaccard 相似度，Top-K 近邻加权）
// - 过滤：去掉用户在任何租户下交互过的商品
// - 后处理：与商品目录内连接，目录中不存在的商品被丢弃
//
// 入口见 cmd/unitrec；服务组装见 service.Recommender。
package unitrec

import "github.com/rushteam/unitrec/pipeline"

// 轻量 facade：便于直接 import "unitrec" 使用流水线抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall      = pipeline.KindRecall
	KindFilter      = pipeline.KindFilter
	KindRank        = pipeline.KindRank
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)
