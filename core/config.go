package core

// RecallConfig 是召回相关的配置接口，用于提供默认值。
type RecallConfig interface {
	// DefaultNeighborhoodSize 返回默认的近邻数 K
	DefaultNeighborhoodSize() int

	// DefaultTopN 返回默认的推荐数量
	DefaultTopN() int

	// DefaultMinCommonItems 返回计算相似度所需的最小共同物品数
	DefaultMinCommonItems() int

	// DefaultNeutralScore 返回矩阵完全没有评分时的中性预估分
	DefaultNeutralScore() float64
}

// DefaultRecallConfig 是默认的召回配置实现。
type DefaultRecallConfig struct{}

func (c *DefaultRecallConfig) DefaultNeighborhoodSize() int {
	return 40
}

func (c *DefaultRecallConfig) DefaultTopN() int {
	return 5
}

func (c *DefaultRecallConfig) DefaultMinCommonItems() int {
	return 1
}

// DefaultNeutralScore 取隐式评分区间 [0, 1] 的中点
func (c *DefaultRecallConfig) DefaultNeutralScore() float64 {
	return 0.5
}
