package core

import "github.com/rushteam/unitrec/pkg/utils"

// 写入 Item.Meta 的常用 key
const (
	MetaName     = "name"
	MetaCategory = "category"
)

// Item 是推荐链路中的统一承载结构：商品 ID、分数、元信息、标签。
// Labels 用于解释与策略驱动；Score 用于排序决策。
type Item struct {
	ID     string
	Score  float64
	Meta   map[string]any
	Labels map[string]utils.Label
}

func NewItem(id string) *Item {
	return &Item{
		ID:     id,
		Score:  0,
		Meta:   make(map[string]any),
		Labels: make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// MetaString 读取字符串类型的 Meta 字段
func (it *Item) MetaString(key string) string {
	if it == nil || it.Meta == nil {
		return ""
	}
	s, _ := it.Meta[key].(string)
	return s
}

// Recommendation 把 Item 转为对外返回的推荐结果
func (it *Item) Recommendation() Recommendation {
	return Recommendation{
		ProductID: it.ID,
		Name:      it.MetaString(MetaName),
		Category:  it.MetaString(MetaCategory),
		Score:     it.Score,
	}
}
