package client

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
)

// Cue 表现层的提示音
type Cue int

const (
	CuePlace Cue = iota // 装饰挂上树
	CueChat             // 新聊天消息
	CueHat              // 帽子切换
	CueLost             // 连接彻底断开
	cueCount
)

type cueTone struct {
	freqs  []float64 // 依次播放的音符
	note   time.Duration
	volume float64 // 线性增益
}

var cueTones = [cueCount]cueTone{
	CuePlace: {freqs: []float64{987.77, 1318.51}, note: 60 * time.Millisecond, volume: 0.25},
	CueChat:  {freqs: []float64{880}, note: 50 * time.Millisecond, volume: 0.15},
	CueHat:   {freqs: []float64{660, 990}, note: 40 * time.Millisecond, volume: 0.2},
	CueLost:  {freqs: []float64{330, 220}, note: 150 * time.Millisecond, volume: 0.3},
}

// AssetLibrary 显式的资源库：由 main 构造并注入，按需生成并缓存，Purge 释放
type AssetLibrary struct {
	sr    beep.SampleRate
	mu    sync.RWMutex
	store [cueCount]*beep.Buffer
	loads int
}

func NewAssetLibrary(sr beep.SampleRate) *AssetLibrary {
	return &AssetLibrary{sr: sr}
}

func (a *AssetLibrary) SampleRate() beep.SampleRate { return a.sr }

// Cue 返回一个从缓存缓冲区读取的新流；缓冲区首次使用时生成
func (a *AssetLibrary) Cue(c Cue) (beep.StreamSeeker, error) {
	buf, err := a.buffer(c)
	if err != nil {
		return nil, err
	}
	return buf.Streamer(0, buf.Len()), nil
}

func (a *AssetLibrary) buffer(c Cue) (*beep.Buffer, error) {
	if c < 0 || c >= cueCount {
		return nil, fmt.Errorf("unknown cue %d", c)
	}

	a.mu.RLock()
	if buf := a.store[c]; buf != nil {
		a.mu.RUnlock()
		return buf, nil
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()
	if buf := a.store[c]; buf != nil {
		return buf, nil
	}
	buf, err := renderCue(a.sr, cueTones[c])
	if err != nil {
		return nil, fmt.Errorf("render cue %d: %w", c, err)
	}
	a.store[c] = buf
	a.loads++
	return buf, nil
}

// Purge 丢弃全部缓存，下次使用时重新生成
func (a *AssetLibrary) Purge() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.store = [cueCount]*beep.Buffer{}
}

// Loads 生成次数，用于观察缓存是否生效
func (a *AssetLibrary) Loads() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.loads
}

func renderCue(sr beep.SampleRate, tone cueTone) (*beep.Buffer, error) {
	buf := beep.NewBuffer(beep.Format{SampleRate: sr, NumChannels: 2, Precision: 2})
	for _, f := range tone.freqs {
		sine, err := generators.SineTone(sr, f)
		if err != nil {
			return nil, err
		}
		buf.Append(&effects.Volume{
			Streamer: beep.Take(sr.N(tone.note), sine),
			Base:     2,
			Volume:   math.Log2(tone.volume),
		})
	}
	return buf, nil
}

// DecorationGlyph 终端里代表各装饰的字符
func DecorationGlyph(t DecorationType) rune {
	switch t {
	case DecorationBell:
		return '●'
	case DecorationMiniHat:
		return '^'
	case DecorationTinsel:
		return '~'
	default:
		return '?'
	}
}
