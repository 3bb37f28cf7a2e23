// Package metrics 定义推荐服务的 Prometheus 指标。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 结果标签取值
const (
	OutcomeOK           = "ok"
	OutcomePartial      = "partial"
	OutcomeInvalid      = "invalid"
	OutcomeUserNotFound = "user_not_found"
	OutcomeUnavailable  = "unavailable"
	OutcomeError        = "error"
)

var (
	IngestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unitrec_ingest_total",
			Help: "Total number of ingested interaction events by outcome",
		},
		[]string{"outcome"},
	)

	CatalogPlaceholdersCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "unitrec_catalog_placeholders_created_total",
			Help: "Total number of placeholder products created in the catalog",
		},
	)

	RecommendTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unitrec_recommend_total",
			Help: "Total number of recommendation requests by outcome",
		},
		[]string{"outcome"},
	)

	RecommendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "unitrec_recommend_duration_seconds",
			Help:    "Duration of recommendation requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	RecommendReturnedItems = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "unitrec_recommend_returned_items",
			Help:    "Number of products returned per recommendation request",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
	)

	PipelineNodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "unitrec_pipeline_node_duration_seconds",
			Help:    "Duration of each pipeline node in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind", "node"},
	)
)

// RecordIngest 记录一次写入结果
func RecordIngest(outcome string, catalogCreated bool) {
	IngestTotal.WithLabelValues(outcome).Inc()
	if catalogCreated {
		CatalogPlaceholdersCreated.Inc()
	}
}

// RecordRecommend 记录一次推荐请求
func RecordRecommend(outcome string, duration time.Duration, returned int) {
	RecommendTotal.WithLabelValues(outcome).Inc()
	RecommendDuration.Observe(duration.Seconds())
	if outcome == OutcomeOK {
		RecommendReturnedItems.Observe(float64(returned))
	}
}

// ObserveNode 记录单个 Pipeline 节点耗时
func ObserveNode(kind, node string, duration time.Duration) {
	PipelineNodeDuration.WithLabelValues(kind, node).Observe(duration.Seconds())
}
