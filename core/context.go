package core

import "github.com/rushteam/unitrec/pkg/utils"

// RecommendContext 承载用户/租户/数据快照，贯穿整个 Pipeline 透传。
type RecommendContext struct {
	UserID   string
	TenantID string // 用户当前租户（第一条事件所属的业务单元）

	// TopN 是本次请求希望返回的数量，<= 0 时使用节点配置
	TopN int

	// History 是本次请求读取的交互日志快照，召回与已见过滤共用
	History *History

	// Catalog 是本次请求读取的商品目录快照
	Catalog CatalogReader

	// Labels 是用户级标签，可驱动整个 Pipeline 行为
	Labels map[string]utils.Label

	// Params 请求级上下文参数
	Params map[string]any
}

// PutLabel 写入用户级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取用户级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}
