package terrain

import (
	"errors"
	"slices"
	"testing"

	"pgregory.net/rapid"
)

func filled(w, h, fromRow int, m Material) *Grid {
	g := New(w, h)
	for y := fromRow; y < h; y++ {
		for x := 0; x < w; x++ {
			g.Cells[y*w+x] = m
		}
	}
	return g
}

func TestGenerateDeterministic(t *testing.T) {
	a := Generate(42)
	b := Generate(42)
	if a.Checksum() != b.Checksum() {
		t.Fatal("same seed produced different terrain")
	}
	if a.Seed != 42 {
		t.Errorf("Expected seed 42, got %d", a.Seed)
	}

	c := Generate(43)
	if a.Checksum() == c.Checksum() {
		t.Error("different seeds produced identical terrain")
	}
}

func TestGenerateLeavesEdgesOpen(t *testing.T) {
	g := Generate(1234)
	for y := 0; y < Height; y++ {
		for _, x := range []int{0, LandStartX - 1, LandEndX, Width - 1} {
			if g.Get(x, y) != Air {
				t.Fatalf("Expected Air outside land at (%d,%d), got %s", x, y, g.Get(x, y))
			}
		}
	}
}

func TestFindSurfaceY(t *testing.T) {
	g := Generate(99)
	if _, ok := g.FindSurfaceY(10); ok {
		t.Error("Expected no surface outside the land range")
	}
	y, ok := g.FindSurfaceY(Width / 2)
	if !ok {
		t.Fatal("Expected a surface in the middle of the map")
	}
	if !g.IsSolid(Width/2, y) || g.IsSolid(Width/2, y-1) {
		t.Errorf("surface row %d is not the first solid cell", y)
	}
	if y >= WaterLevel {
		t.Errorf("surface %d below water level", y)
	}
}

func TestGetOutOfBounds(t *testing.T) {
	g := filled(20, 20, 0, Dirt)

	cases := []struct {
		x, y int
		want Material
	}{
		{-1, 5, Air},
		{20, 5, Air},
		{5, -1, Air},
		{5, 20, Stone},
		{-50, 500, Stone},
		{5, 5, Dirt},
	}
	for _, c := range cases {
		if got := g.Get(c.x, c.y); got != c.want {
			t.Errorf("Get(%d,%d) = %s, want %s", c.x, c.y, got, c.want)
		}
	}

	g.Set(-1, -1, Wood)
	g.Set(100, 100, Wood)
}

func TestApplyDamageCarvesAndRecords(t *testing.T) {
	g := filled(100, 100, 0, Dirt)
	g.ApplyDamage(50, 50, 10)

	if g.Get(50, 50) != Air || g.Get(59, 50) != Air || g.Get(50, 40) != Air {
		t.Error("Expected crater cells to be Air")
	}
	if g.Get(50, 61) != Grass {
		t.Errorf("Expected grass under the crater floor, got %s", g.Get(50, 61))
	}
	if g.Get(50, 70) != Dirt {
		t.Errorf("Expected untouched dirt, got %s", g.Get(50, 70))
	}

	log := g.DamageLog()
	if len(log) != 1 || log[0] != (Damage{X: 50, Y: 50, R: 10}) {
		t.Fatalf("unexpected damage log %v", log)
	}

	log[0].R = 99
	if g.DamageLog()[0].R != 10 {
		t.Error("DamageLog must return a copy")
	}
}

func TestReplayDoesNotRecord(t *testing.T) {
	g := filled(100, 100, 0, Dirt)
	g.ReplayDamage([]Damage{{X: 10, Y: 10, R: 5}})
	if len(g.DamageLog()) != 0 {
		t.Error("replayed damage must not be recorded")
	}
	if g.Get(10, 10) != Air {
		t.Error("replayed damage must still carve")
	}
}

func TestReplayIsIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.Uint32().Draw(t, "seed")
		n := rapid.IntRange(0, 8).Draw(t, "n")
		var log []Damage
		for i := 0; i < n; i++ {
			log = append(log, Damage{
				X: rapid.IntRange(-20, 420).Draw(t, "x"),
				Y: rapid.IntRange(-20, 320).Draw(t, "y"),
				R: rapid.IntRange(0, 40).Draw(t, "r"),
			})
		}

		once := GenerateSize(seed, 400, 300)
		once.ReplayDamage(log)
		twice := once.Clone()
		twice.ReplayDamage(log)

		if once.Checksum() != twice.Checksum() {
			t.Fatal("replaying the log twice changed the terrain")
		}
	})
}

func TestCarveDrillTunnel(t *testing.T) {
	g := filled(400, 200, 0, Dirt)
	g.CarveDrill(50, 100, 0)

	if g.Get(200, 100) != Air || g.Get(25, 100) != Air || g.Get(300, 130) != Air {
		t.Error("Expected the tunnel to be carved")
	}
	if g.Get(10, 100) != Dirt {
		t.Errorf("Expected dirt behind the drill, got %s", g.Get(10, 100))
	}
	if g.Get(320, 100) != Dirt {
		t.Errorf("Expected dirt past the drill range, got %s", g.Get(320, 100))
	}
	if g.Get(200, 136) != Grass {
		t.Errorf("Expected grass on the tunnel floor, got %s", g.Get(200, 136))
	}
	if g.Get(200, 140) != Dirt {
		t.Errorf("Expected dirt under the tunnel floor, got %s", g.Get(200, 140))
	}
}

func TestStampWall(t *testing.T) {
	g := New(300, 300)
	g.StampWall(100, 100, 0)

	for _, p := range [][2]int{{100, 100}, {65, 96}, {135, 104}} {
		if g.Get(p[0], p[1]) != Wood {
			t.Errorf("Expected Wood at %v, got %s", p, g.Get(p[0], p[1]))
		}
	}
	for _, p := range [][2]int{{136, 100}, {100, 105}, {64, 100}} {
		if g.Get(p[0], p[1]) != Air {
			t.Errorf("Expected Air at %v, got %s", p, g.Get(p[0], p[1]))
		}
	}
}

func TestMaterialPredicates(t *testing.T) {
	if IsSolid(Air) {
		t.Error("Air must not be solid")
	}
	for _, m := range []Material{Dirt, Grass, Stone, Lava, Wood} {
		if !IsSolid(m) {
			t.Errorf("%s must be solid", m)
		}
	}
	if !IsDeadly(Lava) || IsDeadly(Stone) {
		t.Error("only lava is deadly")
	}
	if IsSolid(Material(77)) || Material(77).String() != "Unknown" {
		t.Error("unknown materials are passable")
	}
}

func TestOpLogKeepsOrder(t *testing.T) {
	g := Generate(8)
	var l OpLog
	l.Bind(g)
	g.ApplyDamage(300, 300, 10)
	g.StampWall(600, 200, 0)
	l.AddWall(g, 600, 200, 0)
	g.ApplyDamage(600, 200, 20)
	g.CarveDrill(900, 300, 0)
	l.AddDrill(g, 900, 300, 0)

	got := l.Cumulative(g)
	kinds := []OpKind{OpExplosion, OpWall, OpExplosion, OpDrill}
	if len(got) != len(kinds) {
		t.Fatalf("Expected %d ops, got %v", len(kinds), got)
	}
	for i, k := range kinds {
		if got[i].Kind != k {
			t.Errorf("op %d: got kind %d, want %d", i, got[i].Kind, k)
		}
	}
	if l.Count(OpExplosion) != 2 || l.Count(OpWall) != 1 {
		t.Errorf("unexpected counts in %v", l.History)
	}
}

func TestDecodeOps(t *testing.T) {
	ops := DecodeOps([][]int{
		{10, 20, 30},
		{1, 5, 6, 700},
		{2, 7, 8, -900},
		{9, 1, 2, 3},
		{1, 2},
	})
	want := []Op{
		{Kind: OpExplosion, A: 10, B: 20, C: 30},
		{Kind: OpDrill, A: 5, B: 6, C: 700},
		{Kind: OpWall, A: 7, B: 8, C: -900},
	}
	if len(ops) != len(want) {
		t.Fatalf("Expected %d ops, got %d", len(want), len(ops))
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Errorf("op %d: got %+v, want %+v", i, ops[i], want[i])
		}
	}
}

func TestOpLogConverges(t *testing.T) {
	origin := Generate(555)
	var originLog OpLog
	originLog.Bind(origin)

	origin.ApplyDamage(500, 300, 30)
	origin.CarveDrill(900, 350, 0.4)
	originLog.AddDrill(origin, 900, 350, 400)
	origin.StampWall(1500, 200, -0.3)
	originLog.AddWall(origin, 1500, 200, -300)

	wire := EncodeOps(originLog.Cumulative(origin))
	if len(wire) != 3 || wire[0][0] != 0 || wire[1][0] != 1 || wire[2][0] != 2 {
		t.Fatalf("unexpected cumulative order %v", wire)
	}

	peer := Generate(555)
	var peerLog OpLog
	peerLog.Apply(peer, DecodeOps(wire))
	if peer.Checksum() != origin.Checksum() {
		t.Fatal("peer terrain diverged after replay")
	}

	peerLog.Apply(peer, DecodeOps(wire))
	if peer.Checksum() != origin.Checksum() {
		t.Error("replaying the same log twice changed the terrain")
	}

	// the peer re-uploads explosions it only knows from sync
	if got := len(peerLog.Cumulative(peer)); got != 3 {
		t.Errorf("Expected 3 cumulative ops on the peer, got %d", got)
	}
}

func TestDestroyedWallStaysDestroyed(t *testing.T) {
	a, b := Generate(42), Generate(42)
	var la, lb OpLog
	la.Bind(a)
	lb.Bind(b)

	// both peers see the wall go up
	for _, p := range []struct {
		g *Grid
		l *OpLog
	}{{a, &la}, {b, &lb}} {
		p.g.StampWall(1000, 200, 0)
		p.l.AddWall(p.g, 1000, 200, 0)
	}
	lb.Apply(b, la.Cumulative(a))

	a.ApplyDamage(1000, 200, 40)
	if a.Get(1000, 200) != Air {
		t.Fatal("explosion should clear the wall")
	}
	lb.Apply(b, la.Cumulative(a))
	if got := b.Get(1000, 200); got != Air {
		t.Errorf("wall came back on the receiving peer: %v", got)
	}
	if a.Checksum() != b.Checksum() {
		t.Error("peers diverged")
	}

	// a late copy of the older log changes nothing
	lb.Apply(b, la.History[:1])
	if a.Checksum() != b.Checksum() {
		t.Error("stale log rewound the terrain")
	}
}

func TestOpLogRebuildsOnDisagreement(t *testing.T) {
	a, b := Generate(17), Generate(17)
	var la, lb OpLog
	la.Bind(a)
	lb.Bind(b)

	b.ApplyDamage(1200, 300, 25)
	a.StampWall(800, 250, 0.2)
	la.AddWall(a, 800, 250, 200)
	a.ApplyDamage(800, 250, 15)

	lb.Apply(b, la.Cumulative(a))
	if a.Checksum() != b.Checksum() {
		t.Error("receiver did not adopt the sender's history")
	}
	if !slices.Equal(lb.History, la.History) {
		t.Errorf("history %v, want %v", lb.History, la.History)
	}
}

func TestOpLogReplayProperty(t *testing.T) {
	base := Generate(3)
	rapid.Check(t, func(t *rapid.T) {
		g := base.Clone()
		var l OpLog
		l.Bind(g)
		n := rapid.IntRange(1, 6).Draw(t, "n")
		for i := 0; i < n; i++ {
			x := rapid.IntRange(200, 1800).Draw(t, "x")
			y := rapid.IntRange(100, 600).Draw(t, "y")
			switch rapid.IntRange(0, 2).Draw(t, "kind") {
			case 0:
				g.ApplyDamage(x, y, rapid.IntRange(5, 40).Draw(t, "r"))
			case 1:
				g.CarveDrill(float64(x), float64(y), 0)
				l.AddDrill(g, x, y, 0)
			default:
				g.StampWall(float64(x), float64(y), 0)
				l.AddWall(g, x, y, 0)
			}
		}
		peer := base.Clone()
		peer.Replay(l.Cumulative(g))
		if peer.Checksum() != g.Checksum() {
			t.Fatalf("ordered replay of %v diverged", l.History)
		}
	})
}

func TestSnapshotRoundTrip(t *testing.T) {
	g := Generate(2024)
	g.ApplyDamage(1000, 300, 40)

	data, err := EncodeSnapshot(g)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) >= len(g.Cells) {
		t.Errorf("snapshot was not compressed: %d bytes", len(data))
	}

	back, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatal(err)
	}
	if back.Checksum() != g.Checksum() || back.Seed != 2024 {
		t.Error("snapshot did not restore the grid")
	}

	if _, err := DecodeSnapshot([]byte("nope")); !errors.Is(err, ErrBadSnapshot) {
		t.Errorf("Expected ErrBadSnapshot, got %v", err)
	}
}
