package client

import (
	"sync/atomic"
)

// Metrics 记录客户端运行期的关键指标（调试端点输出）
// 所有方法对 nil 接收者安全
type Metrics struct {
	FramesRendered   int64 // 渲染帧数
	TotalFrameNs     int64 // 帧处理累计耗时（纳秒）
	InputsSent       int64 // 发出的 input.move 数
	SendDropped      int64 // 连接未打开或队列满而丢弃的发送
	FramesReceived   int64 // 收到的合法帧
	MalformedFrames  int64 // 无法解析而丢弃的帧
	UnknownMessages  int64 // 未知类型的消息
	InvalidPayloads  int64 // 结构不合法的载荷
	SnapshotsApplied int64 // 已应用的快照
	ReconnectsTried  int64 // 发起的重连次数
	ChatDuplicates   int64 // 重复的聊天消息
}

func (m *Metrics) IncInputsSent() {
	if m != nil {
		atomic.AddInt64(&m.InputsSent, 1)
	}
}

func (m *Metrics) IncSendDropped() {
	if m != nil {
		atomic.AddInt64(&m.SendDropped, 1)
	}
}

func (m *Metrics) IncFramesReceived() {
	if m != nil {
		atomic.AddInt64(&m.FramesReceived, 1)
	}
}

func (m *Metrics) IncMalformed() {
	if m != nil {
		atomic.AddInt64(&m.MalformedFrames, 1)
	}
}

func (m *Metrics) IncUnknown() {
	if m != nil {
		atomic.AddInt64(&m.UnknownMessages, 1)
	}
}

func (m *Metrics) IncInvalid() {
	if m != nil {
		atomic.AddInt64(&m.InvalidPayloads, 1)
	}
}

func (m *Metrics) IncSnapshots() {
	if m != nil {
		atomic.AddInt64(&m.SnapshotsApplied, 1)
	}
}

func (m *Metrics) IncReconnects() {
	if m != nil {
		atomic.AddInt64(&m.ReconnectsTried, 1)
	}
}

func (m *Metrics) IncChatDuplicates() {
	if m != nil {
		atomic.AddInt64(&m.ChatDuplicates, 1)
	}
}

func (m *Metrics) AddFrame(ns int64) {
	if m == nil {
		return
	}
	atomic.AddInt64(&m.FramesRendered, 1)
	atomic.AddInt64(&m.TotalFrameNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *Metrics) Snapshot() map[string]any {
	if m == nil {
		return map[string]any{}
	}
	frames := atomic.LoadInt64(&m.FramesRendered)
	total := atomic.LoadInt64(&m.TotalFrameNs)
	var avgMs float64
	if frames > 0 {
		avgMs = float64(total) / float64(frames) / 1e6
	}
	return map[string]any{
		"frames_rendered":   frames,
		"avg_frame_ms":      avgMs,
		"inputs_sent":       atomic.LoadInt64(&m.InputsSent),
		"send_dropped":      atomic.LoadInt64(&m.SendDropped),
		"frames_received":   atomic.LoadInt64(&m.FramesReceived),
		"malformed_frames":  atomic.LoadInt64(&m.MalformedFrames),
		"unknown_messages":  atomic.LoadInt64(&m.UnknownMessages),
		"invalid_payloads":  atomic.LoadInt64(&m.InvalidPayloads),
		"snapshots_applied": atomic.LoadInt64(&m.SnapshotsApplied),
		"reconnects_tried":  atomic.LoadInt64(&m.ReconnectsTried),
		"chat_duplicates":   atomic.LoadInt64(&m.ChatDuplicates),
	}
}
