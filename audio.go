package main

import (
	"time"

	"github.com/gopxl/beep/speaker"

	"github.com/Zibor233/Christmas-Multiplayer-Game/client"
)

// Audio 扬声器封装；初始化失败时静默，客户端照常运行
type Audio struct {
	assets *client.AssetLibrary
	ready  bool
}

func NewAudio(assets *client.AssetLibrary) *Audio {
	return &Audio{assets: assets}
}

func (a *Audio) Init() error {
	sr := a.assets.SampleRate()
	if err := speaker.Init(sr, sr.N(time.Second/10)); err != nil {
		return err
	}
	a.ready = true
	return nil
}

func (a *Audio) Play(c client.Cue) {
	if a == nil || !a.ready {
		return
	}
	s, err := a.assets.Cue(c)
	if err != nil {
		client.Log.Warnw("cue unavailable", "cue", c, "err", err)
		return
	}
	speaker.Play(s)
}

func (a *Audio) Close() {
	if a == nil || !a.ready {
		return
	}
	speaker.Clear()
	speaker.Close()
	a.assets.Purge()
	a.ready = false
}
