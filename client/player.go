package client

import "math"

// PlayerID 表示玩家唯一标识
type PlayerID string

// Gait 动画选择用的步态，只由派生速度决定，不参与物理
type Gait int

const (
	GaitIdle Gait = iota
	GaitWalk
)

const gaitWalkThreshold = 0.1

// PlayerEntity 客户端侧玩家实体
// 本地实体的位置由预测每帧写入、被快照整体覆盖；远端实体只写 Target
type PlayerEntity struct {
	ID          PlayerID
	Name        string
	X, Z        float64
	VX, VZ      float64
	TargetX     float64
	TargetZ     float64
	Hat         bool
	PlacedCount int
	Local       bool
}

func (p *PlayerEntity) Speed() float64 { return math.Hypot(p.VX, p.VZ) }

func (p *PlayerEntity) Gait() Gait {
	if p.Speed() > gaitWalkThreshold {
		return GaitWalk
	}
	return GaitIdle
}

// Heading 朝向（动画用）；静止时返回 false
func (p *PlayerEntity) Heading() (float64, bool) {
	if p.Gait() == GaitIdle {
		return 0, false
	}
	return math.Atan2(p.VX, p.VZ), true
}

// applyInput 指数逼近速度模型：v 以 1-e^{-k·dt} 的比例靠近目标速度，再积分位置
func (p *PlayerEntity) applyInput(dt float64, axis Axis, maxSpeed, accel float64) {
	if dt <= 0 {
		return
	}
	f := approach(accel, dt)
	p.VX += (axis.X*maxSpeed - p.VX) * f
	p.VZ += (axis.Z*maxSpeed - p.VZ) * f
	p.X += p.VX * dt
	p.Z += p.VZ * dt
}

// interpolate 远端实体向目标指数收敛，并用位移/dt 估计速度
func (p *PlayerEntity) interpolate(dt, rate float64) {
	if dt <= 0 {
		return
	}
	f := approach(rate, dt)
	nx := p.X + (p.TargetX-p.X)*f
	nz := p.Z + (p.TargetZ-p.Z)*f
	p.VX = (nx - p.X) / dt
	p.VZ = (nz - p.Z) / dt
	p.X, p.Z = nx, nz
}

// approach 与帧率无关的平滑系数
func approach(rate, dt float64) float64 {
	return 1 - math.Exp(-rate*dt)
}
