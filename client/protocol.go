package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// 出站消息类型（客户端 → 服务端）
const (
	MsgHello     = "hello"
	MsgInputMove = "input.move"
	MsgCosmetic  = "player.cosmetic"
	MsgTreePlace = "tree.place"
	MsgChatSend  = "chat.send"
	MsgChatClear = "chat.clear"
	MsgSetName   = "set_name"
)

// 入站消息类型（服务端 → 客户端）
const (
	MsgWelcome     = "welcome"
	MsgSnapshot    = "state.snapshot"
	MsgTreePlaced  = "tree.placed"
	MsgChatMessage = "chat.message"
	MsgChatHistory = "chat.history"
	MsgChatCleared = "chat.cleared"
	MsgError       = "event.error"
)

// ErrInvalidPayload 载荷结构不合法（类型已知但字段缺失或越界）
var ErrInvalidPayload = errors.New("invalid payload")

// Frame 线上信封：每个 WebSocket 文本帧都是 {type, payload}
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// outFrame 出站信封，载荷在写出时才序列化
type outFrame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func encodeFrame(msgType string, payload any) ([]byte, error) {
	if payload == nil {
		payload = struct{}{}
	}
	return json.Marshal(outFrame{Type: msgType, Payload: payload})
}

// ---- client → server payloads ----

// Hello 握手，连接打开后立即发送；重连时原样重放
type Hello struct {
	Name   string `json:"name" jsonschema:"description=Display name,maxLength=16"`
	RoomID string `json:"room_id" jsonschema:"description=Room to join,pattern=^[A-Za-z0-9_-]*$,maxLength=32"`
}

// InputMove 离散化后的移动意图
type InputMove struct {
	Seq          uint64  `json:"seq" jsonschema:"description=Strictly increasing per connection attempt"`
	AX           float64 `json:"ax" jsonschema:"minimum=-1,maximum=1"`
	AZ           float64 `json:"az" jsonschema:"minimum=-1,maximum=1"`
	ClientTimeMS int64   `json:"client_time_ms"`
}

type CosmeticUpdate struct {
	Hat bool `json:"hat"`
}

type TreePlace struct {
	Type DecorationType `json:"type" jsonschema:"enum=bell,enum=mini_hat,enum=tinsel"`
	Slot Slot           `json:"slot"`
}

type ChatSend struct {
	Text string `json:"text" jsonschema:"maxLength=120"`
}

// ChatClear 管理员清屏请求；本地只有收到 chat.cleared 才真正清空
type ChatClear struct {
	Password string `json:"password"`
}

type SetName struct {
	Name string `json:"name" jsonschema:"maxLength=16"`
}

// ---- server → client payloads ----

type Cosmetic struct {
	Hat bool `json:"hat"`
}

// PlayerState 快照中的单个玩家
type PlayerState struct {
	ID          PlayerID `json:"id"`
	X           float64  `json:"x"`
	Z           float64  `json:"z"`
	VX          float64  `json:"vx"`
	VZ          float64  `json:"vz"`
	Name        string   `json:"name"`
	Cosmetic    Cosmetic `json:"cosmetic"`
	PlacedCount int      `json:"placed_count"`
}

// DecorationState 树上装饰（服务端分配 id）
type DecorationState struct {
	ID       string         `json:"id"`
	Type     DecorationType `json:"type" jsonschema:"enum=bell,enum=mini_hat,enum=tinsel"`
	Angle    float64        `json:"angle" jsonschema:"minimum=0"`
	Height   float64        `json:"height" jsonschema:"minimum=0,maximum=1"`
	PlacedBy PlayerID       `json:"placed_by"`
	PlacedMS int64          `json:"placed_ms"`
}

type TreeState struct {
	Decorations []DecorationState `json:"decorations"`
}

// ChatMessage 聊天消息，id 全局唯一
type ChatMessage struct {
	ID           string   `json:"id"`
	RoomID       string   `json:"room_id"`
	PlayerID     PlayerID `json:"player_id"`
	Name         string   `json:"name"`
	Text         string   `json:"text"`
	ServerTimeMS int64    `json:"server_time_ms"`
}

// ServerMessage 入站消息的封闭集合；处理方必须带 Unknown 兜底分支
type ServerMessage interface {
	messageType() string
}

type Welcome struct {
	PlayerID PlayerID `json:"player_id"`
	RoomID   string   `json:"room_id,omitempty"`
	Phase    string   `json:"phase,omitempty"`
}

// Snapshot 权威全量快照；Ack 只为保持线格式而保留
type Snapshot struct {
	ServerTimeMS int64            `json:"server_time_ms"`
	Players      []PlayerState    `json:"players"`
	Ack          map[string]int64 `json:"ack"`
	RoomID       string           `json:"room_id"`
	Phase        string           `json:"phase"`
	Tree         TreeState        `json:"tree"`
}

type TreePlaced struct {
	Decoration DecorationState
}

type ChatPosted struct {
	Message ChatMessage
}

type ChatHistory struct {
	Messages []ChatMessage `json:"messages"`
}

type ChatCleared struct{}

type ServerError struct {
	Code string `json:"code"`
}

// Unknown 未登记的消息类型，直接忽略
type Unknown struct {
	Type string
}

func (Welcome) messageType() string     { return MsgWelcome }
func (Snapshot) messageType() string    { return MsgSnapshot }
func (TreePlaced) messageType() string  { return MsgTreePlaced }
func (ChatPosted) messageType() string  { return MsgChatMessage }
func (ChatHistory) messageType() string { return MsgChatHistory }
func (ChatCleared) messageType() string { return MsgChatCleared }
func (ServerError) messageType() string { return MsgError }
func (u Unknown) messageType() string   { return u.Type }

// DecodeServerMessage 把信封解码为强类型消息
// 未知类型返回 Unknown 且无错误；已知类型载荷不合法时返回 ErrInvalidPayload
func DecodeServerMessage(f Frame) (ServerMessage, error) {
	switch f.Type {
	case MsgWelcome:
		var w Welcome
		if err := decodePayload(f, &w); err != nil {
			return nil, err
		}
		if w.PlayerID == "" {
			return nil, fmt.Errorf("decode %s: missing player_id: %w", f.Type, ErrInvalidPayload)
		}
		return w, nil
	case MsgSnapshot:
		var s Snapshot
		if err := decodePayload(f, &s); err != nil {
			return nil, err
		}
		s.Players = validPlayers(s.Players)
		s.Tree.Decorations = validDecorations(s.Tree.Decorations)
		return s, nil
	case MsgTreePlaced:
		var d DecorationState
		if err := decodePayload(f, &d); err != nil {
			return nil, err
		}
		if !validDecoration(d) {
			return nil, fmt.Errorf("decode %s: bad decoration %q: %w", f.Type, d.ID, ErrInvalidPayload)
		}
		return TreePlaced{Decoration: d}, nil
	case MsgChatMessage:
		var m ChatMessage
		if err := decodePayload(f, &m); err != nil {
			return nil, err
		}
		if m.ID == "" {
			return nil, fmt.Errorf("decode %s: missing id: %w", f.Type, ErrInvalidPayload)
		}
		return ChatPosted{Message: m}, nil
	case MsgChatHistory:
		var h ChatHistory
		if err := decodePayload(f, &h); err != nil {
			return nil, err
		}
		kept := h.Messages[:0]
		for _, m := range h.Messages {
			if m.ID != "" {
				kept = append(kept, m)
			}
		}
		h.Messages = kept
		return h, nil
	case MsgChatCleared:
		return ChatCleared{}, nil
	case MsgError:
		var e ServerError
		if err := decodePayload(f, &e); err != nil {
			return nil, err
		}
		return e, nil
	default:
		return Unknown{Type: f.Type}, nil
	}
}

func decodePayload(f Frame, v any) error {
	raw := strings.TrimSpace(string(f.Payload))
	if raw == "" || raw == "null" {
		return fmt.Errorf("decode %s: empty payload: %w", f.Type, ErrInvalidPayload)
	}
	if err := json.Unmarshal(f.Payload, v); err != nil {
		return fmt.Errorf("decode %s: %v: %w", f.Type, err, ErrInvalidPayload)
	}
	return nil
}

func validPlayers(in []PlayerState) []PlayerState {
	out := in[:0]
	for _, p := range in {
		if p.ID == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func validDecorations(in []DecorationState) []DecorationState {
	out := in[:0]
	for _, d := range in {
		if validDecoration(d) {
			out = append(out, d)
		}
	}
	return out
}

func validDecoration(d DecorationState) bool {
	return d.ID != "" && d.Type.Valid()
}
