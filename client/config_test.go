package client

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.InputInterval() != time.Second/30 {
		t.Fatalf("input interval: %v", cfg.InputInterval())
	}
	tc := cfg.Transport()
	if tc.ReconnectBaseDelay != 2*time.Second || tc.MaxReconnectAttempts != 5 {
		t.Fatalf("unexpected reconnect policy %#v", tc)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	env := map[string]string{
		"XMAS_WS_URL":           "wss://example.test/ws",
		"XMAS_ROOM":             "elves",
		"XMAS_INPUT_HZ":         "20",
		"XMAS_PLAYER_MAX_SPEED": "4.5",
		"XMAS_RECONNECT_BASE":   "500ms",
		"XMAS_RECONNECT_MAX":    "not-a-number",
	}
	cfg := DefaultConfig()
	cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	if cfg.URL != "wss://example.test/ws" || cfg.RoomID != "elves" || cfg.InputHz != 20 || cfg.MaxSpeed != 4.5 {
		t.Fatalf("env not applied: %#v", cfg)
	}
	if cfg.ReconnectBaseDelay != 500*time.Millisecond {
		t.Fatalf("duration not applied: %v", cfg.ReconnectBaseDelay)
	}
	if cfg.MaxReconnectAttempts != 5 {
		t.Fatalf("unparsable value should keep default, got %d", cfg.MaxReconnectAttempts)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.URL = "http://localhost"
	cfg.InputHz = 0
	cfg.ChatRetain = 100
	err := cfg.Validate()
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("want ErrInvalidConfig got %v", err)
	}
	for _, part := range []string{"url", "input rate", "chat retain"} {
		if !strings.Contains(err.Error(), part) {
			t.Fatalf("error %q should mention %q", err, part)
		}
	}
}

func TestSanitizers(t *testing.T) {
	names := map[string]string{
		"":                        DefaultName,
		"   ":                     DefaultName,
		" alice ":                 "alice",
		"abcdefghijklmnopqrstuvw": "abcdefghijklmnop",
	}
	for in, want := range names {
		if got := SanitizeName(in); got != want {
			t.Fatalf("SanitizeName(%q): want %q got %q", in, want, got)
		}
	}

	rooms := map[string]string{
		"":             DefaultRoomID,
		"!!!":          DefaultRoomID,
		"north-pole_1": "north-pole_1",
		"a b/c":        "abc",
	}
	for in, want := range rooms {
		if got := SanitizeRoomID(in); got != want {
			t.Fatalf("SanitizeRoomID(%q): want %q got %q", in, want, got)
		}
	}
}
