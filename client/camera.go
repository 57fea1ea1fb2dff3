package client

import "math"

// OrbitCamera 只跟踪相机绕树心的方位角；它决定输入的参考系
type OrbitCamera struct {
	Angle      float64
	FollowRate float64 // 跟随本地玩家的逼近系数
	IdleSpeed  float64 // 没有本地玩家时的自转角速度 rad/s
}

// Update 有本地玩家时转向其所在方位，否则匀速环绕
func (c *OrbitCamera) Update(dt float64, local *PlayerEntity) {
	if dt <= 0 {
		return
	}
	if local == nil {
		c.Angle = wrapPi(c.Angle + dt*c.IdleSpeed)
		return
	}
	desired := math.Atan2(local.X, local.Z)
	diff := math.Remainder(desired-c.Angle, 2*math.Pi)
	c.Angle = wrapPi(c.Angle + diff*approach(c.FollowRate, dt))
}

// wrapPi 收敛到 (-π, π]，避免长时间运行后角度无限增长
func wrapPi(a float64) float64 {
	return math.Remainder(a, 2*math.Pi)
}
