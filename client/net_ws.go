package client

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// LinkState 连接阶段
type LinkState int32

const (
	LinkIdle LinkState = iota
	LinkConnecting
	LinkOpen
	LinkReconnecting
	LinkLost   // 重连次数耗尽，终态，需要提示用户
	LinkClosed // 主动断开
)

func (s LinkState) String() string {
	switch s {
	case LinkConnecting:
		return "connecting"
	case LinkOpen:
		return "open"
	case LinkReconnecting:
		return "reconnecting"
	case LinkLost:
		return "lost"
	case LinkClosed:
		return "closed"
	default:
		return "idle"
	}
}

// LinkEvent 连接状态变化
type LinkEvent struct {
	State   LinkState
	Attempt int           // 当前重连序号，首次连接为 0
	Delay   time.Duration // LinkReconnecting 时距下次拨号的等待
	Err     error
}

// Identity 握手身份，重连时原样重放
type Identity struct {
	Name   string
	RoomID string
}

type (
	FrameHandler func(msgType string, payload json.RawMessage)
	LinkHandler  func(LinkEvent)
)

// Inbound 读协程投递给循环协程的一项：帧或连接事件
type Inbound struct {
	Frame *Frame
	Link  *LinkEvent
	gen   uint64
}

// Link 会话依赖的传输抽象
type Link interface {
	Connect(ctx context.Context, id Identity)
	Send(msgType string, payload any) bool
	OnMessage(h FrameHandler) (unsubscribe func())
	OnLinkChange(h LinkHandler) (unsubscribe func())
	Inbound() <-chan Inbound
	Dispatch(in Inbound)
	Disconnect()
}

// TransportConfig 连接与重连策略
type TransportConfig struct {
	URL                  string
	ReconnectBaseDelay   time.Duration // 第 N 次重连等待 base*N
	MaxReconnectAttempts int
	HandshakeTimeout     time.Duration
	WriteTimeout         time.Duration
	ReadTimeout          time.Duration
	SendQueueSize        int
	InboxSize            int
}

// wsConn 一条物理连接：写队列 + 写协程
type wsConn struct {
	ws     *websocket.Conn
	send   chan []byte
	closed chan struct{}
	once   sync.Once
}

func newWSConn(ws *websocket.Conn, queue int) *wsConn {
	return &wsConn{
		ws:     ws,
		send:   make(chan []byte, queue),
		closed: make(chan struct{}),
	}
}

// Enqueue 非阻塞入队，满则丢弃
func (c *wsConn) Enqueue(b []byte) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

// Close 可重复调用；强制关闭底层连接，读写协程随之退出
func (c *wsConn) Close() {
	c.once.Do(func() {
		close(c.closed)
		_ = c.ws.Close()
	})
}

func (c *wsConn) writePump(timeout time.Duration) {
	defer c.Close()
	for {
		select {
		case <-c.closed:
			return
		case msg := <-c.send:
			if timeout > 0 {
				_ = c.ws.SetWriteDeadline(time.Now().Add(timeout))
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				Log.Debugw("write failed", "err", err)
				return
			}
		}
	}
}

// Transport 维护到服务端的唯一连接，负责握手、收发与重连
// 读协程只向 inbox 投递；处理函数只在调用 Dispatch 的协程上执行
type Transport struct {
	cfg     TransportConfig
	dialer  *websocket.Dialer
	metrics *Metrics
	after   func(time.Duration) <-chan time.Time
	inbox   chan Inbound
	gen     atomic.Uint64
	state   atomic.Int32

	mu       sync.Mutex
	conn     *wsConn
	cancel   context.CancelFunc
	done     chan struct{}
	disposed bool

	hmu       sync.Mutex
	nextSub   int
	frameSubs []frameSub
	linkSubs  []linkSub
}

type frameSub struct {
	id int
	fn FrameHandler
}

type linkSub struct {
	id int
	fn LinkHandler
}

func NewTransport(cfg TransportConfig, metrics *Metrics) *Transport {
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = 256
	}
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = 64
	}
	return &Transport{
		cfg:     cfg,
		dialer:  &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		metrics: metrics,
		after:   time.After,
		inbox:   make(chan Inbound, cfg.InboxSize),
	}
}

// Connect 启动连接监督协程；已有连接会先被替换
func (t *Transport) Connect(ctx context.Context, id Identity) {
	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
	}
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
	t.disposed = false
	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	done := make(chan struct{})
	t.done = done
	gen := t.gen.Add(1)
	t.mu.Unlock()

	go t.supervise(ctx, id, gen, done)
}

// Disconnect 标记已销毁、取消待触发的重连并强制关闭连接
func (t *Transport) Disconnect() {
	t.mu.Lock()
	t.disposed = true
	cancel, c := t.cancel, t.conn
	t.cancel, t.conn = nil, nil
	t.mu.Unlock()

	t.gen.Add(1) // 之后投递的旧事件在 Dispatch 时丢弃
	if cancel != nil {
		cancel()
	}
	if c != nil {
		c.Close()
	}
	t.state.Store(int32(LinkClosed))
}

// Done 当前监督协程退出时关闭
func (t *Transport) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return t.done
}

func (t *Transport) State() LinkState { return LinkState(t.state.Load()) }

// Send 连接未打开时静默丢弃（至多一次，不重试不缓存）
func (t *Transport) Send(msgType string, payload any) bool {
	t.mu.Lock()
	c := t.conn
	t.mu.Unlock()
	if c == nil {
		t.metrics.IncSendDropped()
		return false
	}
	b, err := encodeFrame(msgType, payload)
	if err != nil {
		Log.Warnw("encode outbound frame", "type", msgType, "err", err)
		return false
	}
	if !c.Enqueue(b) {
		t.metrics.IncSendDropped()
		return false
	}
	return true
}

// OnMessage 注册帧处理函数，返回值用于注销
func (t *Transport) OnMessage(h FrameHandler) func() {
	t.hmu.Lock()
	defer t.hmu.Unlock()
	t.nextSub++
	id := t.nextSub
	t.frameSubs = append(t.frameSubs, frameSub{id: id, fn: h})
	return func() {
		t.hmu.Lock()
		defer t.hmu.Unlock()
		for i, s := range t.frameSubs {
			if s.id == id {
				t.frameSubs = append(t.frameSubs[:i:i], t.frameSubs[i+1:]...)
				return
			}
		}
	}
}

func (t *Transport) OnLinkChange(h LinkHandler) func() {
	t.hmu.Lock()
	defer t.hmu.Unlock()
	t.nextSub++
	id := t.nextSub
	t.linkSubs = append(t.linkSubs, linkSub{id: id, fn: h})
	return func() {
		t.hmu.Lock()
		defer t.hmu.Unlock()
		for i, s := range t.linkSubs {
			if s.id == id {
				t.linkSubs = append(t.linkSubs[:i:i], t.linkSubs[i+1:]...)
				return
			}
		}
	}
}

func (t *Transport) Inbound() <-chan Inbound { return t.inbox }

// Dispatch 在调用方协程上把一项投递扇出给所有订阅者
func (t *Transport) Dispatch(in Inbound) {
	if in.gen != t.gen.Load() {
		return
	}
	t.hmu.Lock()
	frames := t.frameSubs
	links := t.linkSubs
	t.hmu.Unlock()

	if in.Link != nil {
		for _, s := range links {
			s.fn(*in.Link)
		}
	}
	if in.Frame != nil {
		for _, s := range frames {
			s.fn(in.Frame.Type, in.Frame.Payload)
		}
	}
}

// Pump 非阻塞地取完当前积压，返回处理数量
func (t *Transport) Pump() int {
	n := 0
	for {
		select {
		case in := <-t.inbox:
			t.Dispatch(in)
			n++
		default:
			return n
		}
	}
}

// supervise 拨号 → 服务 → 意外断开后线性退避重连，直到上限或被取消
func (t *Transport) supervise(ctx context.Context, id Identity, gen uint64, done chan struct{}) {
	defer close(done)
	attempt := 0
	for {
		t.publishLink(ctx, gen, LinkEvent{State: LinkConnecting, Attempt: attempt})
		opened, err := t.serve(ctx, id, gen)
		if t.stopped(ctx) {
			return
		}
		if opened {
			attempt = 0
		}
		if attempt >= t.cfg.MaxReconnectAttempts {
			Log.Errorw("reconnect attempts exhausted", "url", t.cfg.URL, "attempts", attempt, "err", err)
			t.publishLink(ctx, gen, LinkEvent{State: LinkLost, Attempt: attempt, Err: err})
			return
		}
		attempt++
		delay := t.cfg.ReconnectBaseDelay * time.Duration(attempt)
		Log.Warnw("connection lost, scheduling reconnect", "attempt", attempt, "delay", delay, "err", err)
		t.publishLink(ctx, gen, LinkEvent{State: LinkReconnecting, Attempt: attempt, Delay: delay, Err: err})

		select {
		case <-ctx.Done():
			return
		case <-t.after(delay):
		}
		if t.stopped(ctx) {
			return
		}
		t.metrics.IncReconnects()
	}
}

// serve 单次连接的完整生命周期；opened 表示握手已发出
func (t *Transport) serve(ctx context.Context, id Identity, gen uint64) (opened bool, err error) {
	dctx := ctx
	if t.cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(ctx, t.cfg.HandshakeTimeout)
		defer cancel()
	}
	ws, _, err := t.dialer.DialContext(dctx, t.cfg.URL, nil)
	if err != nil {
		return false, err
	}

	c := newWSConn(ws, t.cfg.SendQueueSize)
	hello, err := encodeFrame(MsgHello, Hello{Name: id.Name, RoomID: id.RoomID})
	if err != nil {
		c.Close()
		return false, err
	}
	// 握手先入队，保证它是连接上的第一帧
	c.Enqueue(hello)

	t.mu.Lock()
	if t.disposed || ctx.Err() != nil {
		t.mu.Unlock()
		c.Close()
		return true, ctx.Err()
	}
	t.conn = c
	t.mu.Unlock()

	stop := context.AfterFunc(ctx, c.Close)
	defer stop()
	go c.writePump(t.cfg.WriteTimeout)

	Log.Infow("connected", "url", t.cfg.URL, "name", id.Name, "room", id.RoomID)
	t.publishLink(ctx, gen, LinkEvent{State: LinkOpen})

	err = t.readPump(ctx, c, gen)

	t.mu.Lock()
	if t.conn == c {
		t.conn = nil
	}
	t.mu.Unlock()
	c.Close()
	return true, err
}

// readPump 解析失败的帧记录后丢弃，连接保持
func (t *Transport) readPump(ctx context.Context, c *wsConn, gen uint64) error {
	c.ws.SetReadLimit(1 << 20) // 1MB
	t.extendReadDeadline(c)
	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			return err
		}
		t.extendReadDeadline(c)

		var f Frame
		if err := json.Unmarshal(payload, &f); err != nil || f.Type == "" {
			t.metrics.IncMalformed()
			Log.Warnw("drop malformed frame", "bytes", len(payload), "err", err)
			continue
		}
		t.metrics.IncFramesReceived()
		if !t.publish(ctx, Inbound{Frame: &f, gen: gen}) {
			return ctx.Err()
		}
	}
}

func (t *Transport) extendReadDeadline(c *wsConn) {
	if t.cfg.ReadTimeout > 0 {
		_ = c.ws.SetReadDeadline(time.Now().Add(t.cfg.ReadTimeout))
	}
}

func (t *Transport) publishLink(ctx context.Context, gen uint64, ev LinkEvent) {
	if ctx.Err() != nil {
		return
	}
	t.state.Store(int32(ev.State))
	t.publish(ctx, Inbound{Link: &ev, gen: gen})
}

func (t *Transport) publish(ctx context.Context, in Inbound) bool {
	select {
	case t.inbox <- in:
		return true
	case <-ctx.Done():
		return false
	}
}

func (t *Transport) stopped(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.disposed
}
