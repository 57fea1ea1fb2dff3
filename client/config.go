package client

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ErrInvalidConfig 配置校验失败
var ErrInvalidConfig = errors.New("invalid config")

const (
	DefaultName   = "游客"
	DefaultRoomID = "public"

	maxNameRunes = 16
	maxRoomRunes = 32
)

// Config 客户端全部可调参数
type Config struct {
	URL    string
	Name   string
	RoomID string

	// 节奏
	InputHz  int // 输入发送频率，与渲染帧率无关
	RenderHz int

	// 运动
	MaxSpeed        float64
	Accel           float64 // 本地预测速度逼近系数
	RemoteSmoothing float64 // 远端插值系数

	// 相机轨道
	CameraFollowRate float64
	CameraIdleSpeed  float64

	// 连接
	ReconnectBaseDelay   time.Duration
	MaxReconnectAttempts int
	HandshakeTimeout     time.Duration
	WriteTimeout         time.Duration
	ReadTimeout          time.Duration
	SendQueueSize        int
	InboxSize            int

	// 聊天
	ChatCapacity int
	ChatRetain   int
	ChatWindow   int
	ChatMaxLen   int

	Tree TreeGeometry
}

// DefaultConfig 与服务端默认参数一致
func DefaultConfig() Config {
	return Config{
		URL:    "ws://localhost:8000/ws",
		Name:   DefaultName,
		RoomID: DefaultRoomID,

		InputHz:  30,
		RenderHz: 60,

		MaxSpeed:        3.5,
		Accel:           8,
		RemoteSmoothing: 8,

		CameraFollowRate: 3.5,
		CameraIdleSpeed:  0.14,

		ReconnectBaseDelay:   2 * time.Second,
		MaxReconnectAttempts: 5,
		HandshakeTimeout:     5 * time.Second,
		WriteTimeout:         5 * time.Second,
		ReadTimeout:          30 * time.Second,
		SendQueueSize:        64,
		InboxSize:            256,

		ChatCapacity: 80,
		ChatRetain:   60,
		ChatWindow:   12,
		ChatMaxLen:   120,

		Tree: DefaultTreeGeometry(),
	}
}

// ApplyEnv 用环境变量覆盖；解析失败的值保持原样
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = n
			}
		}
	}
	flt := func(key string, dst *float64) {
		if v, ok := lookup(key); ok {
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				*dst = f
			}
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok {
			if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
				*dst = d
			}
		}
	}

	str("XMAS_WS_URL", &c.URL)
	str("XMAS_NAME", &c.Name)
	str("XMAS_ROOM", &c.RoomID)
	num("XMAS_INPUT_HZ", &c.InputHz)
	num("XMAS_RENDER_HZ", &c.RenderHz)
	flt("XMAS_PLAYER_MAX_SPEED", &c.MaxSpeed)
	dur("XMAS_RECONNECT_BASE", &c.ReconnectBaseDelay)
	num("XMAS_RECONNECT_MAX", &c.MaxReconnectAttempts)
	num("XMAS_CHAT_WINDOW", &c.ChatWindow)
}

// Normalize 清洗名字与房间号，规则与服务端一致
func (c *Config) Normalize() {
	c.Name = SanitizeName(c.Name)
	c.RoomID = SanitizeRoomID(c.RoomID)
}

func (c Config) Validate() error {
	var problems []string
	if !strings.HasPrefix(c.URL, "ws://") && !strings.HasPrefix(c.URL, "wss://") {
		problems = append(problems, fmt.Sprintf("url %q must be ws:// or wss://", c.URL))
	}
	if c.InputHz <= 0 {
		problems = append(problems, "input rate must be positive")
	}
	if c.RenderHz <= 0 {
		problems = append(problems, "render rate must be positive")
	}
	if c.MaxSpeed < 0 || c.Accel <= 0 || c.RemoteSmoothing <= 0 {
		problems = append(problems, "motion parameters out of range")
	}
	if c.ReconnectBaseDelay < 0 || c.MaxReconnectAttempts < 0 {
		problems = append(problems, "reconnect policy must not be negative")
	}
	if c.SendQueueSize <= 0 || c.InboxSize <= 0 {
		problems = append(problems, "queue sizes must be positive")
	}
	if c.ChatCapacity <= 0 || c.ChatRetain <= 0 || c.ChatRetain > c.ChatCapacity {
		problems = append(problems, "chat retain must be in (0, capacity]")
	}
	if c.Tree.YRange <= 0 || c.Tree.BaseRadius < c.Tree.TopRadius || c.Tree.Shrink <= 0 {
		problems = append(problems, "tree geometry out of range")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

func (c Config) InputInterval() time.Duration {
	return time.Second / time.Duration(c.InputHz)
}

func (c Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.RenderHz)
}

// Transport 从总配置中抽出连接相关部分
func (c Config) Transport() TransportConfig {
	return TransportConfig{
		URL:                  c.URL,
		ReconnectBaseDelay:   c.ReconnectBaseDelay,
		MaxReconnectAttempts: c.MaxReconnectAttempts,
		HandshakeTimeout:     c.HandshakeTimeout,
		WriteTimeout:         c.WriteTimeout,
		ReadTimeout:          c.ReadTimeout,
		SendQueueSize:        c.SendQueueSize,
		InboxSize:            c.InboxSize,
	}
}

// SanitizeName 去空白，最长 16 个字符，空则用默认名
func SanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultName
	}
	return truncateRunes(name, maxNameRunes)
}

// SanitizeRoomID 只保留字母数字与 - _，最长 32 个字符
func SanitizeRoomID(room string) string {
	room = truncateRunes(strings.TrimSpace(room), maxRoomRunes)
	var b strings.Builder
	for _, r := range room {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return DefaultRoomID
	}
	return b.String()
}
