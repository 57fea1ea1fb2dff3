package client

import (
	"math"
	"reflect"
	"testing"
)

func newTestWorld() *World {
	return NewWorld(NewSlotResolver(DefaultTreeGeometry()), 8)
}

func bell(id string, angle, height float64, placedMS int64) DecorationState {
	return DecorationState{ID: id, Type: DecorationBell, Angle: angle, Height: height, PlacedBy: "p1", PlacedMS: placedMS}
}

func TestSnapshotIntoEmptyStore(t *testing.T) {
	w := newTestWorld()
	w.ApplySnapshot([]PlayerState{{ID: "P1", X: 1, Z: 2, Name: "alice"}}, nil)

	if w.PlayerCount() != 1 {
		t.Fatalf("want 1 player got %d", w.PlayerCount())
	}
	p, ok := w.Player("P1")
	if !ok || p.X != 1 || p.Z != 2 {
		t.Fatalf("unexpected entity %#v", p)
	}
}

func TestSnapshotRemovesOmittedPlayers(t *testing.T) {
	w := newTestWorld()
	w.ApplySnapshot([]PlayerState{{ID: "a"}, {ID: "b"}}, nil)
	w.ApplySnapshot([]PlayerState{{ID: "b"}}, nil)
	if _, ok := w.Player("a"); ok {
		t.Fatal("omitted player should be removed")
	}
	if w.PlayerCount() != 1 {
		t.Fatalf("want 1 player got %d", w.PlayerCount())
	}
}

func TestSnapshotOverwritesLocalPrediction(t *testing.T) {
	w := newTestWorld()
	w.SetLocalPlayer("me")
	w.ApplySnapshot([]PlayerState{{ID: "me", X: 0, Z: 0}}, nil)

	for i := 0; i < 30; i++ {
		w.ApplyLocalInput(1.0/60, Axis{X: 1}, 3.5, 8)
	}
	if p, _ := w.LocalPlayer(); p.X <= 0 {
		t.Fatalf("prediction should have moved the local player, got %#v", p)
	}

	w.ApplySnapshot([]PlayerState{{ID: "me", X: 0.25, Z: -1, VX: 0.5, VZ: 0}}, nil)
	p, _ := w.LocalPlayer()
	if p.X != 0.25 || p.Z != -1 || p.VX != 0.5 || p.VZ != 0 {
		t.Fatalf("local entity must equal snapshot exactly, got %#v", p)
	}
}

func TestRemotePlayersConvergeToTarget(t *testing.T) {
	w := newTestWorld()
	w.ApplySnapshot([]PlayerState{{ID: "r", X: 0, Z: 0}}, nil)
	w.ApplySnapshot([]PlayerState{{ID: "r", X: 4, Z: -2}}, nil)

	p, _ := w.Player("r")
	if p.X != 0 || p.Z != 0 {
		t.Fatalf("remote position must not jump on snapshot, got (%v,%v)", p.X, p.Z)
	}
	w.Tick(1.0 / 60)
	p, _ = w.Player("r")
	if p.X <= 0 || p.X >= 4 || p.Gait() != GaitWalk {
		t.Fatalf("expected partial convergence with walk gait, got %#v", p)
	}
	for i := 0; i < 600; i++ {
		w.Tick(1.0 / 60)
	}
	p, _ = w.Player("r")
	if math.Abs(p.X-4) > 1e-3 || math.Abs(p.Z+2) > 1e-3 || p.Gait() != GaitIdle {
		t.Fatalf("expected convergence at rest, got %#v", p)
	}
}

func TestLocalInputIsFrameRateIndependent(t *testing.T) {
	run := func(steps int) float64 {
		w := newTestWorld()
		w.SetLocalPlayer("me")
		w.ApplySnapshot([]PlayerState{{ID: "me"}}, nil)
		for i := 0; i < steps; i++ {
			w.ApplyLocalInput(1/float64(steps), Axis{Z: -1}, 3.5, 8)
		}
		p, _ := w.LocalPlayer()
		return p.VZ
	}
	if a, b := run(30), run(240); math.Abs(a-b) > 1e-9 {
		t.Fatalf("velocity after 1s differs by frame rate: %v vs %v", a, b)
	}
}

func TestDecorationsAreIdempotentAndKeepTheirSlot(t *testing.T) {
	w := newTestWorld()
	if !w.AddOrUpdateDecoration(bell("d1", 1, 0.5, 10)) {
		t.Fatal("valid decoration rejected")
	}
	moved := bell("d1", 2, 0.9, 20)
	moved.Type = DecorationTinsel
	w.AddOrUpdateDecoration(moved)

	views := w.Decorations()
	if len(views) != 1 {
		t.Fatalf("want 1 decoration got %d", len(views))
	}
	d := views[0]
	if d.Slot != (Slot{Angle: 1, Height: 0.5}) {
		t.Fatalf("slot changed after placement: %#v", d.Slot)
	}
	if d.Type != DecorationTinsel || d.PlacedMS != 20 {
		t.Fatalf("other fields should be last-write-wins, got %#v", d.Decoration)
	}
	if w.AddOrUpdateDecoration(DecorationState{ID: "x", Type: "star"}) {
		t.Fatal("unknown decoration type accepted")
	}
}

func TestSnapshotReplacesDecorationSet(t *testing.T) {
	w := newTestWorld()
	w.AddOrUpdateDecoration(bell("d1", 1, 0.1, 1))
	w.AddOrUpdateDecoration(bell("d2", 2, 0.2, 2))
	w.ApplySnapshot(nil, []DecorationState{bell("d2", 2, 0.2, 2), bell("d3", 3, 0.3, 3)})

	var ids []string
	for _, d := range w.Decorations() {
		ids = append(ids, d.ID)
	}
	if expected := []string{"d2", "d3"}; !reflect.DeepEqual(expected, ids) {
		t.Fatalf("unexpected decorations\nexpected: %#v\nactual: %#v", expected, ids)
	}
}

func TestDecorationViewsCarryStableColour(t *testing.T) {
	w := newTestWorld()
	w.AddOrUpdateDecoration(bell("D1", 0, 0, 1))
	w.AddOrUpdateDecoration(bell("D2", 1, 0, 2))
	first := w.Decorations()
	second := w.Decorations()
	if first[0].ID != "D1" || first[0].Variant.Color != second[0].Variant.Color {
		t.Fatalf("D1 colour not stable: %06x vs %06x", first[0].Variant.Color, second[0].Variant.Color)
	}
}

func TestResetClearsEverything(t *testing.T) {
	w := newTestWorld()
	w.SetLocalPlayer("me")
	w.ApplySnapshot([]PlayerState{{ID: "me"}}, []DecorationState{bell("d", 0, 0, 0)})
	w.Reset()
	if w.PlayerCount() != 0 || w.DecorationCount() != 0 || w.LocalID() != "" {
		t.Fatal("reset left state behind")
	}
}

func TestCameraFollowsLocalPlayer(t *testing.T) {
	cam := OrbitCamera{FollowRate: 3.5, IdleSpeed: 0.14}
	cam.Update(1, nil)
	if math.Abs(cam.Angle-0.14) > 1e-9 {
		t.Fatalf("idle spin: want 0.14 got %v", cam.Angle)
	}

	local := &PlayerEntity{X: 1, Z: 0}
	want := math.Atan2(1, 0)
	for i := 0; i < 600; i++ {
		cam.Update(1.0/60, local)
	}
	if math.Abs(cam.Angle-want) > 1e-3 {
		t.Fatalf("camera should settle behind player: want %v got %v", want, cam.Angle)
	}
}
