package client

import (
	"context"
	"time"
)

// Presenter 表现层：每帧收到一次视图；只在循环协程上被调用
type Presenter interface {
	Present(v FrameView)
}

type PresenterFunc func(FrameView)

func (f PresenterFunc) Present(v FrameView) { f(v) }

// Do 把一个意图投递到循环协程执行；队列满时返回 false
// 可以在任意协程调用
func (s *Session) Do(fn func(*Session)) bool {
	select {
	case s.intents <- fn:
		return true
	default:
		return false
	}
}

// Run 单线程帧循环：入站分发、意图执行、渲染节拍都在这里串行发生
// ctx 结束后断开连接并返回
func (s *Session) Run(ctx context.Context, p Presenter) error {
	interval := s.cfg.FrameInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer s.Close()

	Log.Infow("frame loop started", "render_hz", s.cfg.RenderHz, "input_hz", s.cfg.InputHz)
	for {
		select {
		case <-ctx.Done():
			Log.Infow("frame loop stopped", "reason", ctx.Err())
			return ctx.Err()
		case in := <-s.link.Inbound():
			s.link.Dispatch(in)
		case fn := <-s.intents:
			fn(s)
		case now := <-ticker.C:
			// 渲染节拍：预测 → 发送输入 → 插值 → 表现
			dt := s.Frame(now)
			if p != nil {
				p.Present(s.View(now, dt))
			}
		}
	}
}
