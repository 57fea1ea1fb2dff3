package client

import "math"

// Direction 逻辑方向键
type Direction int

const (
	DirNone Direction = iota
	DirUp
	DirDown
	DirLeft
	DirRight
)

// KeyMap 原始按键码 → 逻辑方向
type KeyMap map[string]Direction

// DefaultKeyMap WASD 与方向键
func DefaultKeyMap() KeyMap {
	return KeyMap{
		"KeyW":       DirUp,
		"ArrowUp":    DirUp,
		"KeyS":       DirDown,
		"ArrowDown":  DirDown,
		"KeyA":       DirLeft,
		"ArrowLeft":  DirLeft,
		"KeyD":       DirRight,
		"ArrowRight": DirRight,
	}
}

// Axis 二维意图向量；z 负方向为“前”
type Axis struct {
	X float64
	Z float64
}

func (a Axis) Magnitude() float64 { return math.Hypot(a.X, a.Z) }

// InputSampler 只维护当前按住的键集合；没有重复率和去抖
type InputSampler struct {
	keys KeyMap
	held map[string]struct{}
}

func NewInputSampler(keys KeyMap) *InputSampler {
	if keys == nil {
		keys = DefaultKeyMap()
	}
	return &InputSampler{keys: keys, held: make(map[string]struct{})}
}

// KeyDown 记录按下；未绑定的键返回 false
func (in *InputSampler) KeyDown(code string) bool {
	if _, ok := in.keys[code]; !ok {
		return false
	}
	in.held[code] = struct{}{}
	return true
}

func (in *InputSampler) KeyUp(code string) {
	delete(in.held, code)
}

// ReleaseAll 失焦或会话销毁时清空
func (in *InputSampler) ReleaseAll() {
	clear(in.held)
}

func (in *InputSampler) Held(code string) bool {
	_, ok := in.held[code]
	return ok
}

// Sample 合成方向向量，斜向归一化到模长 1
func (in *InputSampler) Sample() Axis {
	var up, down, left, right bool
	for code := range in.held {
		switch in.keys[code] {
		case DirUp:
			up = true
		case DirDown:
			down = true
		case DirLeft:
			left = true
		case DirRight:
			right = true
		}
	}

	var a Axis
	if up {
		a.Z -= 1
	}
	if down {
		a.Z += 1
	}
	if left {
		a.X -= 1
	}
	if right {
		a.X += 1
	}
	if mag := a.Magnitude(); mag > 1 {
		a.X /= mag
		a.Z /= mag
	}
	return a
}

// rotate 把原始轴转到相机轨道参考系，“前”永远是远离相机
func (a Axis) rotate(angle float64) Axis {
	s, c := math.Sin(angle), math.Cos(angle)
	return Axis{
		X: a.X*c + a.Z*s,
		Z: -a.X*s + a.Z*c,
	}
}
