package core

// ImplicitRating 是隐式反馈的固定评分：一次交互即视为一次正向信号。
// 系统中不存在显式评分的写入路径。
const ImplicitRating = 1.0

// UnknownPlaceholder 是新商品首次出现时的占位名称和类别。
const UnknownPlaceholder = "Unknown"

// InteractionEvent 是一条用户-商品隐式交互记录，写入后不可变。
// 某个 (user, product) 没有记录表示"未知"，而不是"负反馈"。
type InteractionEvent struct {
	UserID    string  `json:"userId"`
	ProductID string  `json:"productId"`
	Rating    float64 `json:"rating"`
	TenantID  string  `json:"b2bUnit"` // 业务单元（租户）
	Timestamp string  `json:"timestamp"`
}

// NewInteractionEvent 创建一条隐式评分事件
func NewInteractionEvent(userID, productID, tenantID, timestamp string) InteractionEvent {
	return InteractionEvent{
		UserID:    userID,
		ProductID: productID,
		Rating:    ImplicitRating,
		TenantID:  tenantID,
		Timestamp: timestamp,
	}
}

// Product 是商品目录中的一条记录，按 ProductID 唯一。
type Product struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Category  string `json:"category"`
}

// NewPlaceholderProduct 创建名称和类别均为 "Unknown" 的占位商品。
func NewPlaceholderProduct(productID string) Product {
	return Product{
		ProductID: productID,
		Name:      UnknownPlaceholder,
		Category:  UnknownPlaceholder,
	}
}

// Prediction 是一次推荐请求中某个候选商品的预估分。
type Prediction struct {
	ProductID      string
	EstimatedScore float64

	// NeighborCount 是参与加权的近邻数量（评过该商品的近邻）
	NeighborCount int

	// Fallback 为 true 表示没有近邻评过该商品，分数来自租户均值或中性常数
	Fallback bool
}

// Recommendation 是关联商品目录之后的最终推荐结果。
type Recommendation struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Score     float64 `json:"-"`
}

// AckStatusLogged 是写入成功时的确认状态
const AckStatusLogged = "logged"

// Ack 是 Ingest 的确认结果。
// 交互写入和目录占位是两个独立的原子操作，部分成功时如实反映在字段中。
type Ack struct {
	Status         string `json:"status"`
	EventAppended  bool   `json:"-"`
	CatalogCreated bool   `json:"-"`
}
