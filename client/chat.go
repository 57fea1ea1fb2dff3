package client

import "strings"

// ChatLog 有界、去重的有序聊天记录
// seen 与 messages 分开：被批量淘汰的旧消息再次送达也不会重新出现
type ChatLog struct {
	capacity int
	retain   int
	maxLen   int

	messages []ChatMessage
	seen     map[string]struct{}
	version  uint64
}

// NewChatLog 超过 capacity 时一次性淘汰到只剩最新的 retain 条
func NewChatLog(capacity, retain, maxLen int) *ChatLog {
	if retain <= 0 || retain > capacity {
		retain = capacity
	}
	return &ChatLog{
		capacity: capacity,
		retain:   retain,
		maxLen:   maxLen,
		seen:     make(map[string]struct{}),
	}
}

// Append 同一 id 只接收一次；重复返回 false
func (c *ChatLog) Append(m ChatMessage) bool {
	if m.ID == "" {
		return false
	}
	if _, dup := c.seen[m.ID]; dup {
		return false
	}
	c.seen[m.ID] = struct{}{}
	m.Text = truncateRunes(strings.TrimSpace(m.Text), c.maxLen)
	c.messages = append(c.messages, m)
	if c.capacity > 0 && len(c.messages) > c.capacity {
		drop := len(c.messages) - c.retain
		c.messages = append(c.messages[:0:0], c.messages[drop:]...)
	}
	c.version++
	return true
}

// AppendAll 历史回放走同一条去重路径，返回新接收的条数
func (c *ChatLog) AppendAll(ms []ChatMessage) int {
	n := 0
	for _, m := range ms {
		if c.Append(m) {
			n++
		}
	}
	return n
}

// Clear 清空记录与已见集合
func (c *ChatLog) Clear() {
	c.messages = nil
	clear(c.seen)
	c.version++
}

// Window 末尾 n 条的副本
func (c *ChatLog) Window(n int) []ChatMessage {
	if n <= 0 || n > len(c.messages) {
		n = len(c.messages)
	}
	out := make([]ChatMessage, n)
	copy(out, c.messages[len(c.messages)-n:])
	return out
}

func (c *ChatLog) Len() int { return len(c.messages) }

func (c *ChatLog) Seen(id string) bool {
	_, ok := c.seen[id]
	return ok
}

// Version 每次变更递增，表现层用来判断是否需要重绘
func (c *ChatLog) Version() uint64 { return c.version }

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
