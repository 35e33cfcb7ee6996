package terrain

import (
	"math"
	"slices"
)

type OpKind int

const (
	OpExplosion OpKind = 0
	OpDrill     OpKind = 1
	OpWall      OpKind = 2
)

// Op is one entry of the replayable terrain log. For drills and walls C is
// the angle in milliradians.
type Op struct {
	Kind OpKind
	A    int
	B    int
	C    int
}

const (
	DrillBack      = 30.0
	DrillForward   = 260.0
	DrillHalfWidth = 35.0

	WallHalfLength = 35
	WallHalfThick  = 4
)

func MilliRadians(angle float64) int {
	return int(angle * 1000)
}

func angleOf(mrad int) float64 {
	return float64(mrad) / 1000
}

// CarveDrill clears a rotated rectangle along angle starting from (bx, by)
// and regrows grass over the carved box.
func (g *Grid) CarveDrill(bx, by, angle float64) {
	cosA, sinA := math.Cos(angle), math.Sin(angle)
	perpX, perpY := -sinA, cosA

	minBX, maxBX := math.Inf(1), math.Inf(-1)
	minBY, maxBY := math.Inf(1), math.Inf(-1)
	for _, along := range []float64{-DrillBack, DrillForward} {
		for _, across := range []float64{-DrillHalfWidth, DrillHalfWidth} {
			cx := bx + cosA*along + perpX*across
			cy := by + sinA*along + perpY*across
			minBX, maxBX = math.Min(minBX, cx), math.Max(maxBX, cx)
			minBY, maxBY = math.Min(minBY, cy), math.Max(maxBY, cy)
		}
	}

	x0 := max(int(math.Floor(minBX))-1, 0)
	x1 := min(int(math.Ceil(maxBX))+1, g.Width-1)
	y0 := max(int(math.Floor(minBY))-1, 0)
	y1 := min(int(math.Ceil(maxBY))+1, g.Height-1)

	cMinX, cMaxX := math.MaxInt, math.MinInt
	cMinY, cMaxY := math.MaxInt, math.MinInt
	for px := x0; px <= x1; px++ {
		for py := y0; py <= y1; py++ {
			dx := float64(px) - bx
			dy := float64(py) - by
			along := dx*cosA + dy*sinA
			across := dx*perpX + dy*perpY
			if along < -DrillBack || along > DrillForward || across < -DrillHalfWidth || across > DrillHalfWidth {
				continue
			}
			g.Cells[py*g.Width+px] = Air
			cMinX, cMaxX = min(cMinX, px), max(cMaxX, px)
			cMinY, cMaxY = min(cMinY, py), max(cMaxY, py)
		}
	}
	if cMinX <= cMaxX && cMinY <= cMaxY {
		g.RefreshGrassInArea(cMinX, cMinY, cMaxX, cMaxY)
	}
}

// StampWall places a rotated plank of Wood centred on (ax, ay).
func (g *Grid) StampWall(ax, ay, angle float64) {
	cosA, sinA := math.Cos(angle), math.Sin(angle)
	for i := -WallHalfLength; i <= WallHalfLength; i++ {
		for j := -WallHalfThick; j <= WallHalfThick; j++ {
			wx := int(math.Round(ax + float64(i)*cosA - float64(j)*sinA))
			wy := int(math.Round(ay + float64(i)*sinA + float64(j)*cosA))
			g.Set(wx, wy, Wood)
		}
	}
}

// OpLog is the ordered history of every terrain op a peer knows about.
// Explosions are carved by the grid and folded in as they appear in its
// damage log; drills and walls are recorded by the caller after stamping.
// Replaying History in order onto the bound base gives the current terrain.
type OpLog struct {
	History []Op

	base    *Grid
	folded  int // grid damage log entries already in History
	tracked *Grid
}

// Bind starts a fresh history for g, taking its current cells as the base.
// Carves already in g's damage log are folded into the history; replaying
// them over a base that contains them changes nothing.
func (l *OpLog) Bind(g *Grid) {
	l.History = nil
	l.base = g.Clone()
	l.folded = 0
	l.tracked = g
}

func (l *OpLog) bound(g *Grid) {
	if l.tracked != g {
		l.Bind(g)
	}
}

// fold appends explosions the grid recorded since the last call.
func (l *OpLog) fold(g *Grid) {
	l.bound(g)
	for _, d := range g.damageLog[l.folded:] {
		l.History = append(l.History, Op{Kind: OpExplosion, A: d.X, B: d.Y, C: d.R})
	}
	l.folded = len(g.damageLog)
}

// AddDrill records a drill tunnel already carved into g.
func (l *OpLog) AddDrill(g *Grid, bx, by, mrad int) {
	l.fold(g)
	l.History = append(l.History, Op{Kind: OpDrill, A: bx, B: by, C: mrad})
}

// AddWall records a wall already stamped into g.
func (l *OpLog) AddWall(g *Grid, ax, ay, mrad int) {
	l.fold(g)
	l.History = append(l.History, Op{Kind: OpWall, A: ax, B: ay, C: mrad})
}

// Cumulative returns a copy of the history, oldest first.
func (l *OpLog) Cumulative(g *Grid) []Op {
	l.fold(g)
	return append([]Op(nil), l.History...)
}

// Count returns how many ops of kind the history holds.
func (l *OpLog) Count(kind OpKind) int {
	n := 0
	for _, op := range l.History {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

// Apply folds a received cumulative log into g. A log that extends the
// local history only has its new tail applied; a stale prefix is ignored.
// A log that disagrees with the local history wins: g is rebuilt from the
// base by replaying it in order.
func (l *OpLog) Apply(g *Grid, ops []Op) {
	l.fold(g)
	switch {
	case IsPrefix(ops, l.History):
		return

	case IsPrefix(l.History, ops):
		for _, op := range ops[len(l.History):] {
			g.replay(op)
		}

	default:
		copy(g.Cells, l.base.Cells)
		g.damageLog = nil
		l.folded = 0
		for _, op := range ops {
			g.replay(op)
		}
	}
	l.History = append(l.History[:0], ops...)
}

// Replay applies ops to g in order without recording anything.
func (g *Grid) Replay(ops []Op) {
	for _, op := range ops {
		g.replay(op)
	}
}

func (g *Grid) replay(op Op) {
	switch op.Kind {
	case OpExplosion:
		g.carve(op.A, op.B, op.C)

	case OpDrill:
		g.CarveDrill(float64(op.A), float64(op.B), angleOf(op.C))

	case OpWall:
		g.StampWall(float64(op.A), float64(op.B), angleOf(op.C))
	}
}

// IsPrefix reports whether prefix is the start of ops.
func IsPrefix(prefix, ops []Op) bool {
	return len(prefix) <= len(ops) && slices.Equal(prefix, ops[:len(prefix)])
}

// EncodeOps flattens ops into the [[type,a,b,c],...] wire form.
func EncodeOps(ops []Op) [][]int {
	out := make([][]int, len(ops))
	for i, op := range ops {
		out[i] = []int{int(op.Kind), op.A, op.B, op.C}
	}
	return out
}

// DecodeOps accepts 4-element typed entries and legacy 3-element explosions.
// Anything else is skipped.
func DecodeOps(raw [][]int) []Op {
	ops := make([]Op, 0, len(raw))
	for _, e := range raw {
		switch len(e) {
		case 3:
			ops = append(ops, Op{Kind: OpExplosion, A: e[0], B: e[1], C: e[2]})
		case 4:
			kind := OpKind(e[0])
			if kind != OpExplosion && kind != OpDrill && kind != OpWall {
				continue
			}
			ops = append(ops, Op{Kind: kind, A: e[1], B: e[2], C: e[3]})
		}
	}
	return ops
}
