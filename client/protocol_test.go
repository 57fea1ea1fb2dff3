package client

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func frame(msgType, payload string) Frame {
	f := Frame{Type: msgType}
	if payload != "" {
		f.Payload = json.RawMessage(payload)
	}
	return f
}

func TestEncodeFrameEnvelope(t *testing.T) {
	b, err := encodeFrame(MsgInputMove, InputMove{Seq: 7, AX: 1, AZ: 0, ClientTimeMS: 1234})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var actual map[string]any
	if err := json.Unmarshal(b, &actual); err != nil {
		t.Fatalf("decode: %v", err)
	}
	expected := map[string]any{
		"type": "input.move",
		"payload": map[string]any{
			"seq": float64(7), "ax": float64(1), "az": float64(0), "client_time_ms": float64(1234),
		},
	}
	if !reflect.DeepEqual(expected, actual) {
		t.Fatalf("unexpected envelope\nexpected: %#v\nactual: %#v", expected, actual)
	}

	b, _ = encodeFrame(MsgChatCleared, nil)
	if string(b) != `{"type":"chat.cleared","payload":{}}` {
		t.Fatalf("nil payload should encode as {}, got %s", b)
	}
}

func TestDecodeWelcome(t *testing.T) {
	msg, err := DecodeServerMessage(frame(MsgWelcome, `{"player_id":"p1","room_id":"r","phase":"lobby"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if expected := (Welcome{PlayerID: "p1", RoomID: "r", Phase: "lobby"}); msg != expected {
		t.Fatalf("expected: %#v\nactual: %#v", expected, msg)
	}

	_, err = DecodeServerMessage(frame(MsgWelcome, `{"room_id":"r"}`))
	if !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("welcome without player_id should be invalid, got %v", err)
	}
}

func TestDecodeSnapshotFiltersInvalidEntries(t *testing.T) {
	payload := `{
		"server_time_ms": 99,
		"players": [{"id":"p1","x":1,"z":2,"cosmetic":{"hat":true},"placed_count":3}, {"x":5}],
		"ack": {"p1": 4},
		"room_id": "public",
		"phase": "decorating",
		"tree": {"decorations": [
			{"id":"d1","type":"bell","angle":1,"height":0.5},
			{"id":"","type":"bell"},
			{"id":"d3","type":"star"}
		]}
	}`
	msg, err := DecodeServerMessage(frame(MsgSnapshot, payload))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	s, ok := msg.(Snapshot)
	if !ok {
		t.Fatalf("want Snapshot got %T", msg)
	}
	if len(s.Players) != 1 || s.Players[0].ID != "p1" || !s.Players[0].Cosmetic.Hat || s.Players[0].PlacedCount != 3 {
		t.Fatalf("unexpected players %#v", s.Players)
	}
	if len(s.Tree.Decorations) != 1 || s.Tree.Decorations[0].ID != "d1" {
		t.Fatalf("unexpected decorations %#v", s.Tree.Decorations)
	}
	if s.Phase != "decorating" || s.Ack["p1"] != 4 {
		t.Fatalf("unexpected snapshot %#v", s)
	}
}

func TestDecodeTreePlacedAndChat(t *testing.T) {
	msg, err := DecodeServerMessage(frame(MsgTreePlaced, `{"id":"d9","type":"tinsel","angle":0.5,"height":0.2,"placed_by":"p2","placed_ms":77}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	expected := TreePlaced{Decoration: DecorationState{ID: "d9", Type: DecorationTinsel, Angle: 0.5, Height: 0.2, PlacedBy: "p2", PlacedMS: 77}}
	if !reflect.DeepEqual(expected, msg) {
		t.Fatalf("expected: %#v\nactual: %#v", expected, msg)
	}

	msg, err = DecodeServerMessage(frame(MsgChatHistory, `{"messages":[{"id":"a","text":"hi"},{"text":"no id"}]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if h := msg.(ChatHistory); len(h.Messages) != 1 || h.Messages[0].ID != "a" {
		t.Fatalf("unexpected history %#v", h)
	}

	if _, err := DecodeServerMessage(frame(MsgChatMessage, `{"text":"hi"}`)); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("chat message without id should be invalid, got %v", err)
	}
	if msg, err := DecodeServerMessage(frame(MsgChatCleared, "")); err != nil || msg != (ChatCleared{}) {
		t.Fatalf("chat.cleared needs no payload, got %#v %v", msg, err)
	}
}

func TestDecodeInvalidPayloads(t *testing.T) {
	cases := []Frame{
		frame(MsgSnapshot, ""),
		frame(MsgSnapshot, "null"),
		frame(MsgSnapshot, `{"players":"nope"}`),
		frame(MsgTreePlaced, `{"id":"d1","type":"candle"}`),
		frame(MsgError, `[1,2]`),
	}
	for _, f := range cases {
		if _, err := DecodeServerMessage(f); !errors.Is(err, ErrInvalidPayload) {
			t.Fatalf("%s %s: want ErrInvalidPayload got %v", f.Type, f.Payload, err)
		}
	}
}

func TestDecodeUnknownTypeIsNotAnError(t *testing.T) {
	msg, err := DecodeServerMessage(frame("state.delta", `{"x":1}`))
	if err != nil {
		t.Fatalf("unknown type should not error: %v", err)
	}
	if u, ok := msg.(Unknown); !ok || u.Type != "state.delta" {
		t.Fatalf("want Unknown got %#v", msg)
	}
}
