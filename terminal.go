package main

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/Zibor233/Christmas-Multiplayer-Game/client"
)

// 终端单元格约为 1:2，横向每单位多给一倍格子
const (
	colsPerUnit = 4.0
	rowsPerUnit = 2.0
	maxLineLen  = 120
)

type inputMode int

const (
	modePlay inputMode = iota
	modeChat
	modeName
	modeClear
)

func (m inputMode) prompt() string {
	switch m {
	case modeChat:
		return "say: "
	case modeName:
		return "name: "
	case modeClear:
		return "admin password: "
	default:
		return ""
	}
}

var (
	styleDefault = tcell.StyleDefault
	styleTree    = tcell.StyleDefault.Foreground(tcell.NewRGBColor(0, 130, 0))
	styleTrunk   = tcell.StyleDefault.Foreground(tcell.NewRGBColor(0, 200, 0)).Bold(true)
	styleLocal   = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	styleRemote  = tcell.StyleDefault.Foreground(tcell.ColorLightGray)
	styleHUD     = tcell.StyleDefault.Reverse(true)
	styleLost    = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleChat    = tcell.StyleDefault.Foreground(tcell.ColorLightCyan)
)

// Terminal 俯视的终端表现层；所有方法都在会话循环协程上执行
type Terminal struct {
	screen  tcell.Screen
	session *client.Session
	audio   *Audio
	quit    context.CancelFunc

	// 终端没有按键抬起事件：超过 hold 未收到重复即视为松开
	hold time.Duration
	held map[string]time.Time

	mode      inputMode
	line      []rune
	mouseDown bool

	// 上一帧的投影参数，用于鼠标点击反投影
	cx, cy int
	angle  float64

	chatVer uint64
	lastHUD client.HUD
	unsub   func()
}

func NewTerminal(session *client.Session, audio *Audio, hold time.Duration, quit context.CancelFunc) (*Terminal, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	screen.EnableMouse()
	screen.Clear()

	t := &Terminal{
		screen:  screen,
		session: session,
		audio:   audio,
		quit:    quit,
		hold:    hold,
		held:    make(map[string]time.Time),
	}
	t.unsub = session.OnHUD(t.onHUD)

	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return // Fini
			}
			if !session.Do(func(s *client.Session) { t.handleEvent(s, ev) }) {
				client.Log.Debugw("intent queue full, event dropped")
			}
		}
	}()
	return t, nil
}

func (t *Terminal) Close() {
	if t.unsub != nil {
		t.unsub()
	}
	t.screen.Fini()
}

// ---- events ----

func (t *Terminal) handleEvent(s *client.Session, ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		t.screen.Sync()
	case *tcell.EventMouse:
		down := ev.Buttons()&tcell.Button1 != 0
		if down && !t.mouseDown && t.mode == modePlay {
			x, y := ev.Position()
			t.click(s, x, y)
		}
		t.mouseDown = down
	case *tcell.EventKey:
		if t.mode != modePlay {
			t.editKey(s, ev)
			return
		}
		t.playKey(s, ev)
	}
}

func (t *Terminal) playKey(s *client.Session, ev *tcell.EventKey) {
	if code, ok := keyCode(ev); ok && s.Input().KeyDown(code) {
		t.held[code] = time.Now()
		return
	}

	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		t.quit()
		return
	case tcell.KeyEnter:
		t.enter(s, modeChat)
		return
	case tcell.KeyRune:
	default:
		return
	}

	switch r := ev.Rune(); r {
	case 'q', 'Q':
		t.quit()
	case 't', 'T':
		t.enter(s, modeChat)
	case 'n', 'N':
		t.enter(s, modeName)
	case 'x', 'X':
		t.enter(s, modeClear)
	case 'h', 'H':
		s.ToggleHat()
	case 'p', 'P':
		s.PlaceDecoration(s.ActiveDecoration())
	case '1', '2', '3':
		s.SelectDecoration(client.DecorationTypes[r-'1'])
	}
}

// enter 进入文本输入模式前松开所有方向键，避免角色继续移动
func (t *Terminal) enter(s *client.Session, m inputMode) {
	s.Input().ReleaseAll()
	clear(t.held)
	t.mode = m
	t.line = t.line[:0]
}

func (t *Terminal) editKey(s *client.Session, ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape:
		t.mode = modePlay
	case tcell.KeyEnter:
		text := string(t.line)
		switch t.mode {
		case modeChat:
			s.SendChat(text)
		case modeName:
			s.SetName(text)
		case modeClear:
			s.ClearChat(strings.TrimSpace(text))
		}
		t.mode = modePlay
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if n := len(t.line); n > 0 {
			t.line = t.line[:n-1]
		}
	case tcell.KeyRune:
		if len(t.line) < maxLineLen {
			t.line = append(t.line, ev.Rune())
		}
	}
}

func (t *Terminal) click(s *client.Session, x, y int) {
	wx, wz := t.unproject(x, y)
	hit, ok := s.Resolver().HitFromAbove(wx, wz)
	if !ok {
		return
	}
	s.PlaceDecorationAt(hit)
}

// keyCode 终端按键 → 浏览器风格的键码
func keyCode(ev *tcell.EventKey) (string, bool) {
	switch ev.Key() {
	case tcell.KeyUp:
		return "ArrowUp", true
	case tcell.KeyDown:
		return "ArrowDown", true
	case tcell.KeyLeft:
		return "ArrowLeft", true
	case tcell.KeyRight:
		return "ArrowRight", true
	case tcell.KeyRune:
		r := ev.Rune()
		if r < 'A' || (r > 'Z' && r < 'a') || r > 'z' {
			return "", false
		}
		return "Key" + strings.ToUpper(string(r)), true
	}
	return "", false
}

// ---- presentation ----

func (t *Terminal) Present(v client.FrameView) {
	for code, at := range t.held {
		if v.Now.Sub(at) > t.hold {
			t.session.Input().KeyUp(code)
			delete(t.held, code)
		}
	}
	if v.ChatVersion != t.chatVer {
		if t.chatVer != 0 && len(v.Chat) > 0 {
			t.audio.Play(client.CueChat)
		}
		t.chatVer = v.ChatVersion
	}
	t.draw(v)
}

func (t *Terminal) onHUD(h client.HUD) {
	prev := t.lastHUD
	t.lastHUD = h
	switch {
	case h.Link == client.LinkLost.String() && prev.Link != h.Link:
		t.audio.Play(client.CueLost)
	case h.DecorationCount == prev.DecorationCount+1:
		t.audio.Play(client.CuePlace)
	case h.LocalHat != prev.LocalHat:
		t.audio.Play(client.CueHat)
	}
}

func (t *Terminal) draw(v client.FrameView) {
	t.screen.Clear()
	w, h := t.screen.Size()
	t.cx, t.cy, t.angle = w/2, h/2, v.OrbitAngle

	resolver := t.session.Resolver()
	geo := resolver.Geometry()
	base := resolver.RadiusAtHeight(0)
	for i := 0; i < 64; i++ {
		a := float64(i) * 2 * math.Pi / 64
		col, row := t.project(geo.Origin.X+base*math.Cos(a), geo.Origin.Z+base*math.Sin(a))
		t.put(col, row, '·', styleTree)
	}
	col, row := t.project(geo.Origin.X, geo.Origin.Z)
	t.put(col, row, '▲', styleTrunk)

	for _, d := range v.Decorations {
		col, row := t.project(d.Placement.Position.X, d.Placement.Position.Z)
		t.put(col, row, client.DecorationGlyph(d.Type), styleDefault.Foreground(rgb(d.Variant.Color)))
	}

	blink := v.Now.UnixMilli()/250%2 == 0
	for _, p := range v.Players {
		col, row := t.project(p.X, p.Z)
		style := styleRemote
		glyph := 'o'
		if p.ID == v.LocalID {
			style, glyph = styleLocal, '@'
		}
		if p.Gait() == client.GaitWalk && blink {
			glyph = strideGlyph(glyph)
		}
		t.put(col, row, glyph, style)
		label := p.Name
		if p.Hat {
			label = "^" + label
		}
		t.text(col+2, row, label, style)
	}

	t.drawHUD(v, w)
	t.drawChat(v, h)
	t.screen.Show()
}

func (t *Terminal) drawHUD(v client.FrameView, w int) {
	hud := v.HUD
	hat := "off"
	if hud.LocalHat {
		hat = "on"
	}
	line := fmt.Sprintf(" room %s | %s | decorations %d | placed %d | hat %s | tool %s | link %s ",
		hud.RoomID, hud.Phase, hud.DecorationCount, hud.LocalPlacedCount, hat, v.ActiveDecoration, hud.Link)
	style := styleHUD
	if hud.Link == client.LinkLost.String() {
		style = styleLost
		line += "| connection lost, restart to retry "
	}
	for x := 0; x < w; x++ {
		t.put(x, 0, ' ', style)
	}
	t.text(0, 0, line, style)
	t.text(0, 1, " wasd/arrows move  h hat  1-3 tool  p place  click tree  t chat  n name  x clear  q quit", styleDefault.Dim(true))
}

func (t *Terminal) drawChat(v client.FrameView, h int) {
	row := h - 1
	if t.mode != modePlay {
		t.text(0, row, t.mode.prompt()+string(t.line)+"_", styleDefault)
		row--
	}
	for i := len(v.Chat) - 1; i >= 0 && row > 2; i-- {
		m := v.Chat[i]
		t.text(0, row, fmt.Sprintf("%s: %s", m.Name, m.Text), styleChat)
		row--
	}
}

// project 世界坐标 → 屏幕格；视图随相机方位旋转，使“上”始终是前进方向
func (t *Terminal) project(x, z float64) (int, int) {
	c, s := math.Cos(t.angle), math.Sin(t.angle)
	vx, vz := x*c-z*s, x*s+z*c
	return t.cx + int(math.Round(vx*colsPerUnit)), t.cy + int(math.Round(vz*rowsPerUnit))
}

// unproject project 的逆映射（格子中心）
func (t *Terminal) unproject(col, row int) (float64, float64) {
	vx := float64(col-t.cx) / colsPerUnit
	vz := float64(row-t.cy) / rowsPerUnit
	c, s := math.Cos(t.angle), math.Sin(t.angle)
	return vx*c + vz*s, -vx*s + vz*c
}

func (t *Terminal) put(x, y int, r rune, style tcell.Style) {
	t.screen.SetContent(x, y, r, nil, style)
}

func (t *Terminal) text(x, y int, s string, style tcell.Style) {
	for _, r := range s {
		t.put(x, y, r, style)
		x += runewidth.RuneWidth(r)
	}
}

func rgb(c uint32) tcell.Color {
	return tcell.NewRGBColor(int32(c>>16&0xff), int32(c>>8&0xff), int32(c&0xff))
}

// strideGlyph 行走时与站立字形交替
func strideGlyph(r rune) rune {
	if r == '@' {
		return '&'
	}
	return 'O'
}
