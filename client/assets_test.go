package client

import (
	"testing"
	"time"

	"github.com/gopxl/beep"
)

func TestCueBuffersAreCachedUntilPurged(t *testing.T) {
	sr := beep.SampleRate(44100)
	lib := NewAssetLibrary(sr)

	s, err := lib.Cue(CuePlace)
	if err != nil {
		t.Fatalf("cue: %v", err)
	}
	if want := 2 * sr.N(60*time.Millisecond); s.Len() != want {
		t.Fatalf("want %d samples got %d", want, s.Len())
	}
	if _, err := lib.Cue(CuePlace); err != nil {
		t.Fatalf("cue: %v", err)
	}
	if lib.Loads() != 1 {
		t.Fatalf("second use should hit the cache, loads=%d", lib.Loads())
	}

	lib.Purge()
	if _, err := lib.Cue(CuePlace); err != nil {
		t.Fatalf("cue: %v", err)
	}
	if lib.Loads() != 2 {
		t.Fatalf("purge should force a rebuild, loads=%d", lib.Loads())
	}
}

func TestCueStreamsAreIndependent(t *testing.T) {
	lib := NewAssetLibrary(beep.SampleRate(22050))
	a, _ := lib.Cue(CueChat)
	b, _ := lib.Cue(CueChat)

	buf := make([][2]float64, 128)
	n, ok := a.Stream(buf)
	if !ok || n != 128 {
		t.Fatalf("stream: n=%d ok=%v", n, ok)
	}
	if a.Position() != 128 || b.Position() != 0 {
		t.Fatalf("streams share a cursor: %d %d", a.Position(), b.Position())
	}
	for i := 0; i < n; i++ {
		if buf[i][0] < -1 || buf[i][0] > 1 {
			t.Fatalf("sample %d out of range: %v", i, buf[i][0])
		}
	}
}

func TestUnknownCue(t *testing.T) {
	lib := NewAssetLibrary(beep.SampleRate(44100))
	if _, err := lib.Cue(cueCount); err == nil {
		t.Fatal("unknown cue should error")
	}
}

func TestDecorationGlyphs(t *testing.T) {
	seen := map[rune]bool{}
	for _, typ := range DecorationTypes {
		g := DecorationGlyph(typ)
		if g == '?' || seen[g] {
			t.Fatalf("glyph for %s not distinct: %q", typ, g)
		}
		seen[g] = true
	}
}
