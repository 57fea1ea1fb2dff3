package client

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync/atomic"
	"time"
)

// 本地帽子切换在这么多次快照内未被确认就放弃，改以快照为准
const hatPendingSnapshots = 30

// Tuning 运行期可热更新的参数（调试端点）
type Tuning struct {
	InputHz  int     `json:"input_hz"`
	MaxSpeed float64 `json:"max_speed"`
}

// FrameView 每帧交给表现层的只读视图
type FrameView struct {
	Now              time.Time
	DT               float64
	LocalID          PlayerID
	Players          []PlayerEntity
	Decorations      []DecorationView
	Chat             []ChatMessage
	ChatVersion      uint64
	HUD              HUD
	OrbitAngle       float64
	ActiveDecoration DecorationType
}

type snapshotSummary struct {
	decorations int
	placed      int
	hat         bool
	haveLocal   bool
}

// Session 编排器：帧循环、定频输入发送、本地预测、入站分发与 HUD 投影
// 除 Do/PublishedHUD/CurrentTuning 外，所有方法只能在循环协程上调用
type Session struct {
	cfg      Config
	link     Link
	metrics  *Metrics
	input    *InputSampler
	resolver *SlotResolver
	world    *World
	chat     *ChatLog
	camera   OrbitCamera
	rng      *rand.Rand

	localID   PlayerID
	roomID    string
	phase     string
	linkState LinkState

	seq       uint64
	lastFrame time.Time
	lastEmit  time.Time
	lastAxis  Axis

	hat         bool
	pendingHat  *bool
	pendingLeft int
	snap        snapshotSummary
	hud         hudTracker
	published   atomic.Pointer[HUD]
	tuning      atomic.Pointer[Tuning]

	activeType DecorationType
	intents    chan func(*Session)
	unsubs     []func()
	closed     bool
}

func NewSession(cfg Config, link Link, metrics *Metrics) *Session {
	resolver := NewSlotResolver(cfg.Tree)
	s := &Session{
		cfg:      cfg,
		link:     link,
		metrics:  metrics,
		input:    NewInputSampler(nil),
		resolver: resolver,
		world:    NewWorld(resolver, cfg.RemoteSmoothing),
		chat:     NewChatLog(cfg.ChatCapacity, cfg.ChatRetain, cfg.ChatMaxLen),
		camera: OrbitCamera{
			FollowRate: cfg.CameraFollowRate,
			IdleSpeed:  cfg.CameraIdleSpeed,
		},
		rng:        rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
		roomID:     cfg.RoomID,
		activeType: DecorationBell,
		intents:    make(chan func(*Session), 64),
	}
	s.unsubs = append(s.unsubs,
		link.OnMessage(s.handleFrame),
		link.OnLinkChange(s.handleLink),
	)
	s.tuning.Store(&Tuning{InputHz: cfg.InputHz, MaxSpeed: cfg.MaxSpeed})
	s.refreshHUD()
	return s
}

// Start 开始一次入场：清空上次的世界与聊天，再发起连接
func (s *Session) Start(ctx context.Context) {
	s.world.Reset()
	s.chat.Clear()
	s.localID = ""
	s.phase = ""
	s.roomID = s.cfg.RoomID
	s.snap = snapshotSummary{}
	s.pendingHat = nil
	s.lastEmit = time.Time{}
	s.link.Connect(ctx, Identity{Name: s.cfg.Name, RoomID: s.cfg.RoomID})
	s.refreshHUD()
}

// Close 断开连接、注销所有订阅、松开所有键
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.link.Disconnect()
	for _, unsub := range s.unsubs {
		unsub()
	}
	s.unsubs = nil
	s.input.ReleaseAll()
	s.linkState = LinkClosed
	s.refreshHUD()
}

// Frame 一次渲染节拍：本地预测 + 定频输入发送 + 远端插值 + 相机
// 返回本帧 dt（秒）
func (s *Session) Frame(now time.Time) float64 {
	start := time.Now()
	var dt float64
	if !s.lastFrame.IsZero() {
		dt = math.Max(0, now.Sub(s.lastFrame).Seconds())
	}
	s.lastFrame = now

	if s.localID != "" {
		axis := s.input.Sample().rotate(s.camera.Angle)
		s.lastAxis = axis
		// 每帧立即作用于本地实体，不等网络
		s.world.ApplyLocalInput(dt, axis, s.cfg.MaxSpeed, s.cfg.Accel)
		if s.lastEmit.IsZero() || now.Sub(s.lastEmit) >= s.cfg.InputInterval() {
			s.emitInput(axis, now)
		}
	}

	s.world.Tick(dt)
	if local, ok := s.world.LocalPlayer(); ok {
		s.camera.Update(dt, &local)
	} else {
		s.camera.Update(dt, nil)
	}

	s.metrics.AddFrame(time.Since(start).Nanoseconds())
	return dt
}

func (s *Session) emitInput(axis Axis, now time.Time) {
	s.seq++
	s.lastEmit = now
	if s.link.Send(MsgInputMove, InputMove{
		Seq:          s.seq,
		AX:           axis.X,
		AZ:           axis.Z,
		ClientTimeMS: now.UnixMilli(),
	}) {
		s.metrics.IncInputsSent()
	}
}

// View 组装表现层视图
func (s *Session) View(now time.Time, dt float64) FrameView {
	return FrameView{
		Now:              now,
		DT:               dt,
		LocalID:          s.localID,
		Players:          s.world.Players(),
		Decorations:      s.world.Decorations(),
		Chat:             s.chat.Window(s.cfg.ChatWindow),
		ChatVersion:      s.chat.Version(),
		HUD:              s.HUD(),
		OrbitAngle:       s.camera.Angle,
		ActiveDecoration: s.activeType,
	}
}

// ---- inbound ----

func (s *Session) handleFrame(msgType string, payload json.RawMessage) {
	msg, err := DecodeServerMessage(Frame{Type: msgType, Payload: payload})
	if err != nil {
		s.metrics.IncInvalid()
		Log.Debugw("ignore invalid payload", "type", msgType, "err", err)
		return
	}
	s.dispatch(msg)
}

func (s *Session) dispatch(msg ServerMessage) {
	switch m := msg.(type) {
	case Welcome:
		s.localID = m.PlayerID
		s.world.SetLocalPlayer(m.PlayerID)
		if m.RoomID != "" {
			s.roomID = m.RoomID
		}
		if m.Phase != "" {
			s.phase = m.Phase
		}
		Log.Infow("welcome", "player", m.PlayerID, "room", s.roomID)
		s.refreshHUD()
	case Snapshot:
		s.applySnapshot(m)
	case TreePlaced:
		s.world.AddOrUpdateDecoration(m.Decoration)
	case ChatPosted:
		if !s.chat.Append(m.Message) {
			s.metrics.IncChatDuplicates()
		}
	case ChatHistory:
		s.chat.AppendAll(m.Messages)
	case ChatCleared:
		s.chat.Clear()
		Log.Infow("chat cleared by server", "room", s.roomID)
	case ServerError:
		Log.Warnw("server reported error", "code", m.Code)
	case Unknown:
		s.metrics.IncUnknown()
		Log.Debugw("ignore unknown message", "type", m.Type)
	default:
		Log.Debugw("unhandled message", "type", msg.messageType())
	}
}

// applySnapshot 本地实体被整体覆盖：高延迟下会看到“回弹”，这是当前有意保留的行为
func (s *Session) applySnapshot(m Snapshot) {
	s.world.ApplySnapshot(m.Players, m.Tree.Decorations)
	s.metrics.IncSnapshots()
	if m.RoomID != "" {
		s.roomID = m.RoomID
	}
	if m.Phase != "" {
		s.phase = m.Phase
	}

	sum := snapshotSummary{decorations: len(m.Tree.Decorations)}
	if local, ok := s.world.LocalPlayer(); ok {
		sum.placed = local.PlacedCount
		sum.hat = local.Hat
		sum.haveLocal = true
	}
	s.snap = sum

	if s.pendingHat != nil {
		s.pendingLeft--
		if (sum.haveLocal && sum.hat == *s.pendingHat) || s.pendingLeft <= 0 {
			s.pendingHat = nil
		}
	}
	if s.pendingHat == nil && sum.haveLocal {
		s.hat = sum.hat
	}
	s.refreshHUD()
}

func (s *Session) handleLink(ev LinkEvent) {
	s.linkState = ev.State
	switch ev.State {
	case LinkOpen:
		Log.Infow("link open")
	case LinkReconnecting:
		Log.Infow("link reconnecting", "attempt", ev.Attempt, "delay", ev.Delay)
	case LinkLost:
		// 终态：HUD 上必须可见
		Log.Errorw("link lost", "attempts", ev.Attempt, "err", ev.Err)
	}
	s.refreshHUD()
}

// ---- HUD ----

func (s *Session) HUD() HUD {
	hat := s.snap.hat
	if s.pendingHat != nil {
		hat = *s.pendingHat
	}
	return HUD{
		RoomID:           s.roomID,
		Phase:            s.phase,
		DecorationCount:  s.snap.decorations,
		LocalPlacedCount: s.snap.placed,
		LocalHat:         hat,
		Link:             s.linkState.String(),
	}
}

// OnHUD 仅在摘要真正变化时回调
func (s *Session) OnHUD(fn func(HUD)) func() {
	return s.hud.subscribe(fn)
}

// PublishedHUD 最近一次通知出去的 HUD，可跨协程读取
func (s *Session) PublishedHUD() HUD {
	if h := s.published.Load(); h != nil {
		return *h
	}
	return HUD{}
}

func (s *Session) refreshHUD() {
	h := s.HUD()
	if s.hud.update(h) {
		s.published.Store(&h)
	}
}

// ---- intents ----

// ToggleHat 发送外观切换；HUD 先乐观显示，直到快照确认
func (s *Session) ToggleHat() bool {
	s.hat = !s.hat
	v := s.hat
	s.pendingHat = &v
	s.pendingLeft = hatPendingSnapshots
	sent := s.link.Send(MsgCosmetic, CosmeticUpdate{Hat: v})
	s.refreshHUD()
	return sent
}

// SelectDecoration 设置点击树时使用的装饰种类
func (s *Session) SelectDecoration(t DecorationType) bool {
	if !t.Valid() {
		return false
	}
	s.activeType = t
	return true
}

func (s *Session) ActiveDecoration() DecorationType { return s.activeType }

// PlaceDecoration 随机挂载位置（按钮）
func (s *Session) PlaceDecoration(t DecorationType) bool {
	if !s.SelectDecoration(t) {
		return false
	}
	slot := Slot{
		Angle:  s.rng.Float64() * 2 * math.Pi,
		Height: 0.18 + s.rng.Float64()*0.82,
	}
	return s.link.Send(MsgTreePlace, TreePlace{Type: t, Slot: NormalizeSlot(slot)})
}

// PlaceDecorationAt 射线命中点 → 挂载坐标
func (s *Session) PlaceDecorationAt(hit Vec3) bool {
	slot := s.resolver.ResolveFromWorldPoint(hit)
	return s.link.Send(MsgTreePlace, TreePlace{Type: s.activeType, Slot: slot})
}

func (s *Session) SendChat(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	return s.link.Send(MsgChatSend, ChatSend{Text: truncateRunes(text, s.cfg.ChatMaxLen)})
}

// ClearChat 只是请求；本地记录要等服务端的 chat.cleared
func (s *Session) ClearChat(password string) bool {
	if password == "" {
		return false
	}
	return s.link.Send(MsgChatClear, ChatClear{Password: password})
}

// SetName 改名；重连握手仍使用入场时的身份
func (s *Session) SetName(name string) bool {
	return s.link.Send(MsgSetName, SetName{Name: SanitizeName(name)})
}

// Tune 热更新输入频率与最大速度
func (s *Session) Tune(t Tuning) error {
	if t.InputHz <= 0 || t.MaxSpeed < 0 {
		return fmt.Errorf("%w: tuning %+v", ErrInvalidConfig, t)
	}
	s.cfg.InputHz = t.InputHz
	s.cfg.MaxSpeed = t.MaxSpeed
	s.tuning.Store(&t)
	Log.Infow("tuning updated", "input_hz", t.InputHz, "max_speed", t.MaxSpeed)
	return nil
}

func (s *Session) CurrentTuning() Tuning {
	return *s.tuning.Load()
}

// ---- accessors ----

func (s *Session) World() *World { return s.world }
func (s *Session) Chat() *ChatLog { return s.chat }
func (s *Session) Input() *InputSampler { return s.input }
func (s *Session) Resolver() *SlotResolver { return s.resolver }
func (s *Session) Camera() *OrbitCamera { return &s.camera }
func (s *Session) LocalID() PlayerID { return s.localID }
func (s *Session) Seq() uint64 { return s.seq }
func (s *Session) LinkState() LinkState { return s.linkState }
func (s *Session) Config() Config { return s.cfg }
func (s *Session) Metrics() *Metrics { return s.metrics }
func (s *Session) LastAxis() Axis { return s.lastAxis }
