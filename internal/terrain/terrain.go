package terrain

const (
	Width      = 2000
	Height     = 800
	WaterLevel = 760 // rows at or below this are water
	LandStartX = 100
	LandEndX   = 1900
	LandWidth  = LandEndX - LandStartX
	GrassDepth = 3
)

// Damage is one circular carve recorded in the damage log.
type Damage struct {
	X int
	Y int
	R int
}

// Grid is the destructible world. Cells are stored row-major, one byte each.
type Grid struct {
	Width  int
	Height int
	Cells  []Material // y*Width + x
	Seed   uint32

	damageLog []Damage
}

func New(width, height int) *Grid {
	return &Grid{
		Width:  width,
		Height: height,
		Cells:  make([]Material, width*height),
	}
}

func (g *Grid) inBounds(x, y int) bool {
	return x >= 0 && x < g.Width && y >= 0 && y < g.Height
}

// Get never panics. Below the grid reads as Stone so nothing falls out of
// the world; above, left and right read as Air.
func (g *Grid) Get(x, y int) Material {
	if y >= g.Height {
		return Stone
	}
	if x < 0 || x >= g.Width || y < 0 {
		return Air
	}
	return g.Cells[y*g.Width+x]
}

func (g *Grid) IsSolid(x, y int) bool {
	return IsSolid(g.Get(x, y))
}

// Set places a material directly. Out of bounds writes are ignored.
func (g *Grid) Set(x, y int, m Material) {
	if !g.inBounds(x, y) {
		return
	}
	g.Cells[y*g.Width+x] = m
}

// ApplyDamage clears the circle to Air, records it and regrows grass on the
// newly exposed surface.
func (g *Grid) ApplyDamage(cx, cy, r int) {
	g.carve(cx, cy, r)
	g.damageLog = append(g.damageLog, Damage{X: cx, Y: cy, R: r})
}

// ReplayDamage re-applies prior damage without recording it. Carving only
// ever turns cells into Air, so replaying the same log twice is a no-op.
func (g *Grid) ReplayDamage(log []Damage) {
	for _, d := range log {
		g.carve(d.X, d.Y, d.R)
	}
}

func (g *Grid) carve(cx, cy, r int) {
	if r < 0 {
		return
	}
	r2 := r * r
	for y := cy - r; y <= cy+r; y++ {
		dy := y - cy
		for x := cx - r; x <= cx+r; x++ {
			dx := x - cx
			if dx*dx+dy*dy <= r2 {
				g.Set(x, y, Air)
			}
		}
	}
	g.RefreshGrassInArea(cx-r-1, cy-r-1, cx+r+1, cy+r+1)
}

// RefreshGrassInArea turns Dirt/Stone directly under an Air cell into Grass
// for every Air cell inside the box (inclusive).
func (g *Grid) RefreshGrassInArea(x0, y0, x1, y1 int) {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	for x := max(x0, 0); x <= min(x1, g.Width-1); x++ {
		for y := max(y0, 0); y <= min(y1, g.Height-2); y++ {
			if g.Cells[y*g.Width+x] != Air {
				continue
			}
			below := (y+1)*g.Width + x
			if CanGrowGrass(g.Cells[below]) {
				g.Cells[below] = Grass
			}
		}
	}
}

// DamageLog returns a copy of every recorded carve, oldest first.
func (g *Grid) DamageLog() []Damage {
	out := make([]Damage, len(g.damageLog))
	copy(out, g.damageLog)
	return out
}

// FindSurfaceY scans down from the top and returns the first solid row.
func (g *Grid) FindSurfaceY(x int) (int, bool) {
	if x < 0 || x >= g.Width {
		return 0, false
	}
	for y := 0; y < g.Height; y++ {
		if IsSolid(g.Cells[y*g.Width+x]) {
			return y, true
		}
	}
	return 0, false
}

// Buffer is the read-only material export, one byte per cell.
func (g *Grid) Buffer() []byte {
	buf := make([]byte, len(g.Cells))
	for i, m := range g.Cells {
		buf[i] = byte(m)
	}
	return buf
}

func (g *Grid) Clone() *Grid {
	c := &Grid{
		Width:     g.Width,
		Height:    g.Height,
		Cells:     make([]Material, len(g.Cells)),
		Seed:      g.Seed,
		damageLog: make([]Damage, len(g.damageLog)),
	}
	copy(c.Cells, g.Cells)
	copy(c.damageLog, g.damageLog)
	return c
}

func IsWater(y float64) bool {
	return y >= WaterLevel
}
