package client

// HUD 表现层读取的只读摘要；按值比较，只有变化时才通知
type HUD struct {
	RoomID           string `json:"room_id"`
	Phase            string `json:"phase"`
	DecorationCount  int    `json:"decoration_count"`
	LocalPlacedCount int    `json:"local_placed_count"`
	LocalHat         bool   `json:"local_hat"`
	Link             string `json:"link"`
}

// hudTracker 去抖：与上次通知的结构体逐字段比较
type hudTracker struct {
	last      HUD
	notified  bool
	listeners []hudListener
	nextID    int
}

type hudListener struct {
	id int
	fn func(HUD)
}

func (h *hudTracker) subscribe(fn func(HUD)) func() {
	h.nextID++
	id := h.nextID
	h.listeners = append(h.listeners, hudListener{id: id, fn: fn})
	return func() {
		for i, l := range h.listeners {
			if l.id == id {
				h.listeners = append(h.listeners[:i:i], h.listeners[i+1:]...)
				return
			}
		}
	}
}

// update 返回是否真的发出了通知
func (h *hudTracker) update(next HUD) bool {
	if h.notified && next == h.last {
		return false
	}
	h.last = next
	h.notified = true
	for _, l := range h.listeners {
		l.fn(next)
	}
	return true
}
