package core

// History 是一次请求内对交互日志的只读快照（ReadAll 的结果，按写入顺序）。
// 全局已见集合和租户推导都基于同一份快照，避免两次读取之间的不一致。
type History struct {
	events []InteractionEvent

	// seen 是 user -> 所有租户下交互过的商品集合
	seen map[string]map[string]struct{}

	// tenant 是 user -> 该用户第一条事件的租户
	tenant map[string]string
}

// NewHistory 基于按写入顺序排列的事件构建快照。
func NewHistory(events []InteractionEvent) *History {
	h := &History{
		events: events,
		seen:   make(map[string]map[string]struct{}),
		tenant: make(map[string]string),
	}
	for _, ev := range events {
		if h.seen[ev.UserID] == nil {
			h.seen[ev.UserID] = make(map[string]struct{})
		}
		h.seen[ev.UserID][ev.ProductID] = struct{}{}
		if _, ok := h.tenant[ev.UserID]; !ok {
			h.tenant[ev.UserID] = ev.TenantID
		}
	}
	return h
}

// Events 返回快照中的全部事件（写入顺序），调用方不应修改。
func (h *History) Events() []InteractionEvent {
	if h == nil {
		return nil
	}
	return h.events
}

// HasUser 判断用户在任意租户下是否有过交互
func (h *History) HasUser(userID string) bool {
	if h == nil {
		return false
	}
	_, ok := h.seen[userID]
	return ok
}

// TenantOf 返回用户的当前租户：用户第一条事件所属的租户。
// 用户没有任何事件时返回 ErrUserNotFound。
func (h *History) TenantOf(userID string) (string, error) {
	if h == nil {
		return "", ErrUserNotFound
	}
	t, ok := h.tenant[userID]
	if !ok {
		return "", ErrUserNotFound
	}
	return t, nil
}

// Seen 返回用户在所有租户下交互过的商品集合（全局已见集合）。
func (h *History) Seen(userID string) map[string]struct{} {
	if h == nil {
		return nil
	}
	return h.seen[userID]
}

// HasSeen 判断用户是否在任意租户下交互过该商品
func (h *History) HasSeen(userID, productID string) bool {
	_, ok := h.Seen(userID)[productID]
	return ok
}
