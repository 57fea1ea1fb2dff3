package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gopxl/beep"

	"github.com/Zibor233/Christmas-Multiplayer-Game/client"
)

// 圣诞树多人客户端入口：环境变量 → 命令行参数 → 日志 → 会话循环
func main() {
	cfg := client.DefaultConfig()
	cfg.ApplyEnv(os.LookupEnv)

	var (
		logPath   string
		debug     bool
		debugAddr string
		headless  bool
		withAudio bool
		keyHold   time.Duration
	)
	flag.StringVar(&cfg.URL, "url", cfg.URL, "server websocket url, e.g. ws://localhost:8000/ws")
	flag.StringVar(&cfg.Name, "name", cfg.Name, "display name (max 16 chars)")
	flag.StringVar(&cfg.RoomID, "room", cfg.RoomID, "room id")
	flag.IntVar(&cfg.InputHz, "input-hz", cfg.InputHz, "input send rate")
	flag.IntVar(&cfg.RenderHz, "render-hz", cfg.RenderHz, "frame rate")
	flag.IntVar(&cfg.MaxReconnectAttempts, "reconnect-max", cfg.MaxReconnectAttempts, "reconnect attempts before giving up")
	flag.StringVar(&logPath, "log", "client.log", "log file (rotated)")
	flag.BoolVar(&debug, "debug", false, "debug level logging")
	flag.StringVar(&debugAddr, "debug-addr", "", "serve /debug endpoints on this address, e.g. 127.0.0.1:6060")
	flag.BoolVar(&headless, "headless", false, "run without a terminal UI")
	flag.BoolVar(&withAudio, "audio", true, "play sound cues")
	flag.DurationVar(&keyHold, "key-hold", 500*time.Millisecond, "release a movement key after this long without a repeat")
	flag.Parse()

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	// 终端界面占用 stdout，日志只写文件
	if err := client.InitLogger(logPath, debug); err != nil {
		panic(err)
	}
	defer client.SyncLogger()

	metrics := &client.Metrics{}
	transport := client.NewTransport(cfg.Transport(), metrics)
	session := client.NewSession(cfg, transport, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if debugAddr != "" {
		srv := &http.Server{Addr: debugAddr, Handler: client.NewDebugHandler(session)}
		go func() {
			client.Log.Infof("debug endpoints on http://%s/debug/metrics", debugAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				client.Log.Errorf("debug listen: %v", err)
			}
		}()
		defer srv.Close()
	}

	var presenter client.Presenter
	if headless {
		unsub := session.OnHUD(func(h client.HUD) {
			client.Log.Infow("hud", "room", h.RoomID, "phase", h.Phase, "decorations", h.DecorationCount,
				"placed", h.LocalPlacedCount, "hat", h.LocalHat, "link", h.Link)
		})
		defer unsub()
	} else {
		sound := NewAudio(client.NewAssetLibrary(beep.SampleRate(44100)))
		if withAudio {
			if err := sound.Init(); err != nil {
				// 没有声音也能玩
				client.Log.Warnw("audio init failed", "err", err)
			}
		}
		defer sound.Close()

		term, err := NewTerminal(session, sound, keyHold, stop)
		if err != nil {
			fmt.Fprintf(os.Stderr, "terminal: %v\n", err)
			os.Exit(1)
		}
		defer term.Close()
		presenter = term
	}

	client.Log.Infow("starting", "url", cfg.URL, "name", cfg.Name, "room", cfg.RoomID)
	session.Start(ctx)
	if err := session.Run(ctx, presenter); err != nil && !errors.Is(err, context.Canceled) {
		client.Log.Errorw("session ended", "err", err)
	}
	client.Log.Infow("shutting down", "metrics", metrics.Snapshot())
}
