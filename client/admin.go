package client

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// NewDebugHandler 本地调试接口；所有读取都是跨协程安全的快照，写入经 Do 回到循环协程
//
//	GET  /debug/metrics  运行指标
//	GET  /debug/hud      最近一次 HUD
//	GET  /debug/config   当前可调参数
//	POST /debug/config   以 JSON 部分更新 input_hz / max_speed
func NewDebugHandler(s *Session) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/metrics", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"link":    s.PublishedHUD().Link,
			"metrics": s.metrics.Snapshot(),
		})
	})
	mux.HandleFunc("/debug/hud", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.PublishedHUD())
	})
	mux.HandleFunc("/debug/config", func(w http.ResponseWriter, r *http.Request) {
		handleDebugConfig(s, w, r)
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func handleDebugConfig(s *Session, w http.ResponseWriter, r *http.Request) {
	type patch struct {
		InputHz  *int     `json:"input_hz,omitempty"`
		MaxSpeed *float64 `json:"max_speed,omitempty"`
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.CurrentTuning())
	case http.MethodPost:
		var body patch
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		next := s.CurrentTuning()
		if body.InputHz != nil {
			next.InputHz = *body.InputHz
		}
		if body.MaxSpeed != nil {
			next.MaxSpeed = *body.MaxSpeed
		}

		errc := make(chan error, 1)
		if !s.Do(func(s *Session) { errc <- s.Tune(next) }) {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		select {
		case err := <-errc:
			if errors.Is(err, ErrInvalidConfig) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true, "tuning": next})
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
			http.Error(w, "frame loop not responding", http.StatusGatewayTimeout)
		}
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
