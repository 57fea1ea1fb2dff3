package client

import (
	"math"
	"testing"
)

const eps = 1e-9

func TestRadiusIsNonIncreasingWithHeight(t *testing.T) {
	r := NewSlotResolver(DefaultTreeGeometry())
	prev := math.Inf(1)
	for i := 0; i <= 100; i++ {
		h := float64(i) / 100
		radius := r.RadiusAtHeight(h)
		if radius > prev+eps {
			t.Fatalf("radius grew at h=%v: %v > %v", h, radius, prev)
		}
		prev = radius
	}
	if got, want := r.RadiusAtHeight(0), 3.35*0.74; math.Abs(got-want) > eps {
		t.Fatalf("base radius: want %v got %v", want, got)
	}
	if got, want := r.RadiusAtHeight(1), 0.6*0.74; math.Abs(got-want) > eps {
		t.Fatalf("top radius: want %v got %v", want, got)
	}
	if r.RadiusAtHeight(-3) != r.RadiusAtHeight(0) || r.RadiusAtHeight(7) != r.RadiusAtHeight(1) {
		t.Fatal("height outside [0,1] must clamp")
	}
}

func TestSlotRoundTrip(t *testing.T) {
	geo := DefaultTreeGeometry()
	geo.Origin = Vec3{X: 2, Y: 0.5, Z: -4}
	r := NewSlotResolver(geo)
	for _, s := range []Slot{
		{Angle: 0, Height: 0},
		{Angle: 1.2, Height: 0.4},
		{Angle: math.Pi, Height: 0.99},
		{Angle: 5.9, Height: 1},
	} {
		p := r.ResolveToWorld(s.Angle, s.Height)
		back := r.ResolveFromWorldPoint(p.Position)
		if math.Abs(back.Angle-s.Angle) > 1e-6 || math.Abs(back.Height-s.Height) > 1e-6 {
			t.Fatalf("round trip\nexpected: %#v\nactual: %#v", s, back)
		}
	}
}

func TestPlacementFacesOutward(t *testing.T) {
	r := NewSlotResolver(DefaultTreeGeometry())
	p := r.ResolveToWorld(0.5, 0.5)
	if math.Abs(p.Yaw-(0.5+math.Pi)) > eps {
		t.Fatalf("yaw: want %v got %v", 0.5+math.Pi, p.Yaw)
	}
	if wantY := 1.35 + 0.5*5.3; math.Abs(p.Position.Y-wantY) > eps {
		t.Fatalf("y: want %v got %v", wantY, p.Position.Y)
	}
}

func TestNormalizeSlot(t *testing.T) {
	cases := []struct {
		in, want Slot
	}{
		{Slot{Angle: -math.Pi / 2, Height: -1}, Slot{Angle: 3 * math.Pi / 2, Height: 0}},
		{Slot{Angle: 2 * math.Pi, Height: 2}, Slot{Angle: 0, Height: 1}},
		{Slot{Angle: math.NaN(), Height: math.NaN()}, Slot{}},
		{Slot{Angle: math.Inf(1), Height: 0.5}, Slot{Angle: 0, Height: 0.5}},
	}
	for _, tc := range cases {
		got := NormalizeSlot(tc.in)
		if math.Abs(got.Angle-tc.want.Angle) > eps || math.Abs(got.Height-tc.want.Height) > eps {
			t.Fatalf("NormalizeSlot(%#v)\nexpected: %#v\nactual: %#v", tc.in, tc.want, got)
		}
	}
}

func TestHitFromAbove(t *testing.T) {
	r := NewSlotResolver(DefaultTreeGeometry())
	if _, ok := r.HitFromAbove(10, 10); ok {
		t.Fatal("point outside the tree must miss")
	}

	hit, ok := r.HitFromAbove(1, 0)
	if !ok {
		t.Fatal("point inside the base radius must hit")
	}
	s := r.ResolveFromWorldPoint(hit)
	if math.Abs(s.Angle) > 1e-6 {
		t.Fatalf("angle: want 0 got %v", s.Angle)
	}
	if math.Abs(r.RadiusAtHeight(s.Height)-1) > 1e-6 {
		t.Fatalf("recovered height %v does not sit on radius 1", s.Height)
	}
}

func TestDecorationVariantIsDeterministic(t *testing.T) {
	cases := []struct {
		id    string
		typ   DecorationType
		color uint32
	}{
		{"d1", DecorationBell, 0xff445a},
		{"deco-1", DecorationMiniHat, 0x7b1fa2},
		{"abc", DecorationTinsel, 0xffc107},
		{"铃铛", DecorationBell, 0xffc107},
		{"é", DecorationMiniHat, 0x7b1fa2},
	}
	for _, tc := range cases {
		a := DecorationVariant(tc.id, tc.typ)
		b := DecorationVariant(tc.id, tc.typ)
		if a != b {
			t.Fatalf("%s: variant not stable: %#v vs %#v", tc.id, a, b)
		}
		if a.Color != tc.color {
			t.Fatalf("%s: want colour %06x got %06x", tc.id, tc.color, a.Color)
		}
	}
	if got := HashSeed("d1"); got != 0x881d13e6 {
		t.Fatalf("fnv-1a of d1: got %08x", got)
	}
	if got := Rand01(0x881d13e6); math.Abs(got-0.5926) > eps {
		t.Fatalf("xorshift roll: got %v", got)
	}
}

func TestPaletteRollIsOffsetPerType(t *testing.T) {
	cases := []struct {
		id   string
		typ  DecorationType
		roll float64
	}{
		{"d1", DecorationBell, 0.5926},
		{"deco-1", DecorationMiniHat, 0.9838},
		{"abc", DecorationTinsel, 0.5831},
	}
	for _, tc := range cases {
		v := DecorationVariant(tc.id, tc.typ)
		if v.Seed != HashSeed(tc.id) {
			t.Fatalf("%s: seed should be the bare id hash, got %08x", tc.id, v.Seed)
		}
		if math.Abs(v.Roll-tc.roll) > eps {
			t.Fatalf("%s/%s: want roll %v got %v", tc.id, tc.typ, tc.roll, v.Roll)
		}
	}
	// 偏移加法按 uint32 回绕
	top := uint32(math.MaxUint32)
	if a, b := Rand01(top+27), Rand01(26); a != b {
		t.Fatalf("offset should wrap: %v vs %v", a, b)
	}
}

func TestHashSeedUsesUTF16CodeUnits(t *testing.T) {
	cases := map[string]uint32{
		"deco-1": 0x73fa4c9e,
		"铃铛":     0x7e82ea0b,
		"🎄":      0x752ec2ed,
		"é":      0x6c0b6c44,
	}
	for id, want := range cases {
		if got := HashSeed(id); got != want {
			t.Fatalf("%q: want %08x got %08x", id, want, got)
		}
	}
}
