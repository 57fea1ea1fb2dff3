package client

import (
	"math"
	"unicode/utf16"
)

// DecorationType 装饰种类
type DecorationType string

const (
	DecorationBell    DecorationType = "bell"
	DecorationMiniHat DecorationType = "mini_hat"
	DecorationTinsel  DecorationType = "tinsel"
)

// DecorationTypes 按界面按钮顺序
var DecorationTypes = []DecorationType{DecorationBell, DecorationMiniHat, DecorationTinsel}

func (t DecorationType) Valid() bool {
	switch t {
	case DecorationBell, DecorationMiniHat, DecorationTinsel:
		return true
	}
	return false
}

// Vec3 世界坐标
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Slot 装饰的挂载坐标：角度 [0, 2π)，归一化高度 [0, 1]
type Slot struct {
	Angle  float64 `json:"angle" jsonschema:"minimum=0"`
	Height float64 `json:"height" jsonschema:"minimum=0,maximum=1"`
}

// Placement 解析后的世界位置与朝向（绕 Y 轴）
type Placement struct {
	Position Vec3
	Yaw      float64
}

// TreeGeometry 树轮廓参数；挂载坐标通过它解析，不存绝对位置
type TreeGeometry struct {
	Origin     Vec3
	YMin       float64
	YRange     float64
	BaseRadius float64
	TopRadius  float64
	Shrink     float64 // 让装饰略微嵌进轮廓内
}

func DefaultTreeGeometry() TreeGeometry {
	return TreeGeometry{
		YMin:       0.75 + 0.6,
		YRange:     5.3,
		BaseRadius: 3.35,
		TopRadius:  0.6,
		Shrink:     0.74,
	}
}

// SlotResolver 挂载坐标 ↔ 世界坐标的纯几何映射
type SlotResolver struct {
	geo TreeGeometry
}

func NewSlotResolver(geo TreeGeometry) *SlotResolver {
	return &SlotResolver{geo: geo}
}

func (r *SlotResolver) Geometry() TreeGeometry { return r.geo }

// RadiusAtHeight 高度 0→1 时半径从底部线性收窄到顶部，再乘收缩系数
func (r *SlotResolver) RadiusAtHeight(h float64) float64 {
	t := clamp01(h)
	radius := r.geo.TopRadius + (r.geo.BaseRadius-r.geo.TopRadius)*(1-t)
	return radius * r.geo.Shrink
}

// ResolveToWorld 极坐标 → 世界坐标，朝向背离树干
func (r *SlotResolver) ResolveToWorld(angle, height float64) Placement {
	s := NormalizeSlot(Slot{Angle: angle, Height: height})
	radius := r.RadiusAtHeight(s.Height)
	return Placement{
		Position: Vec3{
			X: r.geo.Origin.X + math.Cos(s.Angle)*radius,
			Y: r.geo.Origin.Y + r.geo.YMin + s.Height*r.geo.YRange,
			Z: r.geo.Origin.Z + math.Sin(s.Angle)*radius,
		},
		Yaw: normalizeAngle(s.Angle + math.Pi),
	}
}

// ResolveFromWorldPoint ResolveToWorld 的逆映射（射线命中点 → 挂载坐标）
func (r *SlotResolver) ResolveFromWorldPoint(p Vec3) Slot {
	lx := p.X - r.geo.Origin.X
	ly := p.Y - r.geo.Origin.Y
	lz := p.Z - r.geo.Origin.Z
	var h float64
	if r.geo.YRange > 0 {
		h = (ly - r.geo.YMin) / r.geo.YRange
	}
	return NormalizeSlot(Slot{Angle: math.Atan2(lz, lx), Height: h})
}

// HitFromAbove 俯视点击的命中测试：由到树心的距离反推高度
// 超出底部半径视为未命中
func (r *SlotResolver) HitFromAbove(x, z float64) (Vec3, bool) {
	lx := x - r.geo.Origin.X
	lz := z - r.geo.Origin.Z
	dist := math.Hypot(lx, lz)
	base := r.RadiusAtHeight(0)
	top := r.RadiusAtHeight(1)
	if dist > base || base <= top {
		return Vec3{}, false
	}
	h := clamp01((base - dist) / (base - top))
	angle := math.Atan2(lz, lx)
	p := r.ResolveToWorld(angle, h)
	return p.Position, true
}

// NormalizeSlot 把坐标压回声明的取值范围
func NormalizeSlot(s Slot) Slot {
	return Slot{Angle: normalizeAngle(s.Angle), Height: clamp01(s.Height)}
}

func normalizeAngle(a float64) float64 {
	if math.IsNaN(a) || math.IsInf(a, 0) {
		return 0
	}
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	if a >= 2*math.Pi {
		a = 0
	}
	return a
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// Variant 由 id 决定的外观变体，所有客户端对同一 id 渲染一致
type Variant struct {
	Seed  uint32
	Roll  float64
	Color uint32 // 0xRRGGBB
}

// DecorationVariant 基于 id 哈希的确定性配色，不需要服务端下发样式
func DecorationVariant(id string, t DecorationType) Variant {
	seed := HashSeed(id)
	roll := Rand01(seed + paletteOffset(t))
	return Variant{Seed: seed, Roll: roll, Color: paletteColor(t, roll)}
}

// paletteOffset 每种装饰错开种子，同一 id 换类型时颜色互不相关；加法按 uint32 回绕
func paletteOffset(t DecorationType) uint32 {
	switch t {
	case DecorationMiniHat:
		return 11
	case DecorationTinsel:
		return 27
	default:
		return 0
	}
}

func paletteColor(t DecorationType, r float64) uint32 {
	switch t {
	case DecorationBell:
		switch {
		case r < 0.33:
			return 0xffc107
		case r < 0.66:
			return 0xff445a
		}
		return 0x29b6f6
	case DecorationMiniHat:
		if r < 0.5 {
			return 0xd32f2f
		}
		return 0x7b1fa2
	default:
		switch {
		case r < 0.33:
			return 0x29b6f6
		case r < 0.66:
			return 0xffc107
		}
		return 0x66ff9a
	}
}

const (
	fnvOffset32 = 2166136261
	fnvPrime32  = 16777619
)

// HashSeed FNV-1a 32 位，按 UTF-16 码元逐个异或（与网页端 charCodeAt 一致，非 ASCII id 也同色）
func HashSeed(s string) uint32 {
	h := uint32(fnvOffset32)
	for _, u := range utf16.Encode([]rune(s)) {
		h ^= uint32(u)
		h *= fnvPrime32
	}
	return h
}

// Rand01 xorshift32 一步，映射到 [0, 1)
func Rand01(seed uint32) float64 {
	seed ^= seed << 13
	seed ^= seed >> 17
	seed ^= seed << 5
	return float64(seed%10000) / 10000
}
