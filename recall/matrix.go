package recall

import (
	"sort"

	"github.com/rushteam/unitrec/core"
)

// RatingMatrix 是单个租户的稀疏用户-商品评分矩阵，每次请求临时构建。
// 行是在该租户下至少有一条事件的用户，列是这些事件涉及的商品。
// 不存在的格子表示"未知"，不会被补 0。
type RatingMatrix struct {
	tenantID string

	// userItems 是 user -> product -> rating
	userItems map[string]map[string]float64

	// itemUsers 是 product -> user -> rating（倒排表）
	itemUsers map[string]map[string]float64

	users []string
	items []string
	cells int
	sum   float64
}

// BuildMatrix 从按写入顺序排列的事件中筛选出 tenantID 的事件，构建评分矩阵。
// 同一 (user, product) 的重复事件折叠为一个格子，评分取最后一次写入的值。
func BuildMatrix(events []core.InteractionEvent, tenantID string) *RatingMatrix {
	m := &RatingMatrix{
		tenantID:  tenantID,
		userItems: make(map[string]map[string]float64),
		itemUsers: make(map[string]map[string]float64),
	}
	for _, ev := range events {
		if ev.TenantID != tenantID {
			continue
		}
		row := m.userItems[ev.UserID]
		if row == nil {
			row = make(map[string]float64)
			m.userItems[ev.UserID] = row
		}
		if old, ok := row[ev.ProductID]; ok {
			m.sum -= old
		} else {
			m.cells++
		}
		row[ev.ProductID] = ev.Rating
		m.sum += ev.Rating

		col := m.itemUsers[ev.ProductID]
		if col == nil {
			col = make(map[string]float64)
			m.itemUsers[ev.ProductID] = col
		}
		col[ev.UserID] = ev.Rating
	}

	m.users = make([]string, 0, len(m.userItems))
	for u := range m.userItems {
		m.users = append(m.users, u)
	}
	sort.Strings(m.users)

	m.items = make([]string, 0, len(m.itemUsers))
	for p := range m.itemUsers {
		m.items = append(m.items, p)
	}
	sort.Strings(m.items)
	return m
}

// TenantID 返回矩阵所属租户
func (m *RatingMatrix) TenantID() string { return m.tenantID }

// Users 返回所有行（按 user id 升序），调用方不应修改
func (m *RatingMatrix) Users() []string { return m.users }

// Items 返回所有列（按 product id 升序），调用方不应修改
func (m *RatingMatrix) Items() []string { return m.items }

// UserItems 返回用户评过的商品及评分
func (m *RatingMatrix) UserItems(userID string) map[string]float64 {
	return m.userItems[userID]
}

// ItemUsers 返回评过该商品的用户及评分
func (m *RatingMatrix) ItemUsers(productID string) map[string]float64 {
	return m.itemUsers[productID]
}

// HasUser 判断用户是否是矩阵中的一行
func (m *RatingMatrix) HasUser(userID string) bool {
	_, ok := m.userItems[userID]
	return ok
}

// Has 判断格子是否存在
func (m *RatingMatrix) Has(userID, productID string) bool {
	_, ok := m.userItems[userID][productID]
	return ok
}

// Rating 返回格子的评分，不存在时 ok 为 false
func (m *RatingMatrix) Rating(userID, productID string) (float64, bool) {
	r, ok := m.userItems[userID][productID]
	return r, ok
}

// Len 返回已知格子数
func (m *RatingMatrix) Len() int { return m.cells }

// GlobalMean 返回所有已知格子的平均评分；矩阵为空时 ok 为 false。
func (m *RatingMatrix) GlobalMean() (float64, bool) {
	if m.cells == 0 {
		return 0, false
	}
	return m.sum / float64(m.cells), true
}
