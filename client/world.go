package client

import (
	"sort"
)

// Decoration 树上的装饰；挂载后坐标不再变化，只会被移除
type Decoration struct {
	ID       string
	Type     DecorationType
	Slot     Slot
	PlacedBy PlayerID
	PlacedMS int64
}

// DecorationView 供表现层读取：附带解析后的位置与确定性外观
type DecorationView struct {
	Decoration
	Placement Placement
	Variant   Variant
}

// World 客户端世界状态：玩家与装饰
// 只在循环协程内修改（帧回调与消息分发），无需加锁
type World struct {
	resolver        *SlotResolver
	remoteSmoothing float64

	localID     PlayerID
	players     map[PlayerID]*PlayerEntity
	decorations map[string]*Decoration
}

func NewWorld(resolver *SlotResolver, remoteSmoothing float64) *World {
	if resolver == nil {
		resolver = NewSlotResolver(DefaultTreeGeometry())
	}
	return &World{
		resolver:        resolver,
		remoteSmoothing: remoteSmoothing,
		players:         make(map[PlayerID]*PlayerEntity),
		decorations:     make(map[string]*Decoration),
	}
}

// SetLocalPlayer 由 welcome 确定本地实体
func (w *World) SetLocalPlayer(id PlayerID) {
	w.localID = id
	for pid, p := range w.players {
		p.Local = pid == id
	}
}

func (w *World) LocalID() PlayerID { return w.localID }

// Reset 新一次入场前清空
func (w *World) Reset() {
	w.localID = ""
	clear(w.players)
	clear(w.decorations)
}

// ApplySnapshot 按 id 做集合差；本地实体直接覆盖，远端实体只更新目标
func (w *World) ApplySnapshot(players []PlayerState, decorations []DecorationState) {
	live := make(map[PlayerID]struct{}, len(players))
	for _, ps := range players {
		live[ps.ID] = struct{}{}
	}
	for id := range w.players {
		if _, ok := live[id]; !ok {
			delete(w.players, id)
		}
	}

	for _, ps := range players {
		local := ps.ID == w.localID
		p, ok := w.players[ps.ID]
		if !ok {
			p = &PlayerEntity{ID: ps.ID, X: ps.X, Z: ps.Z}
			w.players[ps.ID] = p
		}
		p.Local = local
		p.Name = ps.Name
		p.Hat = ps.Cosmetic.Hat
		p.PlacedCount = ps.PlacedCount
		p.TargetX, p.TargetZ = ps.X, ps.Z
		if local {
			// 整体替换，不与预测混合
			p.X, p.Z = ps.X, ps.Z
			p.VX, p.VZ = ps.VX, ps.VZ
		}
	}

	ids := make(map[string]struct{}, len(decorations))
	for _, d := range decorations {
		if w.AddOrUpdateDecoration(d) {
			ids[d.ID] = struct{}{}
		}
	}
	w.RemoveDecorationsNotIn(ids)
}

// AddOrUpdateDecoration 按 id 幂等写入；坐标首次写入后不变，其余字段后写为准
func (w *World) AddOrUpdateDecoration(d DecorationState) bool {
	if !validDecoration(d) {
		return false
	}
	if cur, ok := w.decorations[d.ID]; ok {
		cur.Type = d.Type
		cur.PlacedBy = d.PlacedBy
		cur.PlacedMS = d.PlacedMS
		return true
	}
	w.decorations[d.ID] = &Decoration{
		ID:       d.ID,
		Type:     d.Type,
		Slot:     NormalizeSlot(Slot{Angle: d.Angle, Height: d.Height}),
		PlacedBy: d.PlacedBy,
		PlacedMS: d.PlacedMS,
	}
	return true
}

// RemoveDecorationsNotIn 移除不在 ids 中的装饰，返回移除数量
func (w *World) RemoveDecorationsNotIn(ids map[string]struct{}) int {
	removed := 0
	for id := range w.decorations {
		if _, ok := ids[id]; !ok {
			delete(w.decorations, id)
			removed++
		}
	}
	return removed
}

// ApplyLocalInput 本地预测，不等待服务端确认
func (w *World) ApplyLocalInput(dt float64, axis Axis, maxSpeed, accel float64) {
	if p, ok := w.players[w.localID]; ok {
		p.applyInput(dt, axis, maxSpeed, accel)
	}
}

// Tick 推进所有远端实体的插值
func (w *World) Tick(dt float64) {
	for _, p := range w.players {
		if p.Local {
			continue
		}
		p.interpolate(dt, w.remoteSmoothing)
	}
}

// Player 返回副本
func (w *World) Player(id PlayerID) (PlayerEntity, bool) {
	p, ok := w.players[id]
	if !ok {
		return PlayerEntity{}, false
	}
	return *p, true
}

func (w *World) LocalPlayer() (PlayerEntity, bool) {
	if w.localID == "" {
		return PlayerEntity{}, false
	}
	return w.Player(w.localID)
}

func (w *World) PlayerCount() int     { return len(w.players) }
func (w *World) DecorationCount() int { return len(w.decorations) }

// Players 按 id 排序的只读副本
func (w *World) Players() []PlayerEntity {
	out := make([]PlayerEntity, 0, len(w.players))
	for _, p := range w.players {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Decorations 按放置时间（其次 id）排序，附带几何解析结果
func (w *World) Decorations() []DecorationView {
	out := make([]DecorationView, 0, len(w.decorations))
	for _, d := range w.decorations {
		out = append(out, DecorationView{
			Decoration: *d,
			Placement:  w.resolver.ResolveToWorld(d.Slot.Angle, d.Slot.Height),
			Variant:    DecorationVariant(d.ID, d.Type),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PlacedMS != out[j].PlacedMS {
			return out[i].PlacedMS < out[j].PlacedMS
		}
		return out[i].ID < out[j].ID
	})
	return out
}
