package terrain

// LCG is the shared pseudo random step. Every peer must derive identical
// terrain, wind and spawn data from the same seed.
func LCG(s uint32) uint32 {
	return s*1103515245 + 12345
}

type rng struct {
	state uint32
}

func (r *rng) next() uint32 {
	r.state = LCG(r.state)
	return r.state >> 16
}

// intn returns a value in [0, n).
func (r *rng) intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.next()) % n
}

func (r *rng) between(lo, hi int) int {
	return lo + r.intn(hi-lo+1)
}

const (
	coarseStep = 160 // distance between major control points
	fineStep   = 40  // distance between detail control points
	fineAmp    = 18
	stoneDepth = 60
)

// Generate builds a deterministic world from seed using integer math only.
func Generate(seed uint32) *Grid {
	return GenerateSize(seed, Width, Height)
}

func GenerateSize(seed uint32, width, height int) *Grid {
	g := New(width, height)
	g.Seed = seed
	r := &rng{state: seed}

	surface := heightmap(r, width, height)
	stoneTop := make([]int, width)
	jitter := 0
	for x := 0; x < width; x++ {
		if x%8 == 0 {
			jitter = r.between(-6, 6)
		}
		stoneTop[x] = surface[x] + stoneDepth + jitter
	}

	bedrock := WaterLevel - 20
	if bedrock > height {
		bedrock = height
	}

	for x := 0; x < width; x++ {
		land := x >= LandStartX && x < LandEndX
		for y := 0; y < height; y++ {
			idx := y*width + x
			switch {
			case !land:
				g.Cells[idx] = Air
			case y < surface[x]:
				g.Cells[idx] = Air
			case y < surface[x]+GrassDepth:
				g.Cells[idx] = Grass
			case y >= bedrock || y >= stoneTop[x]:
				g.Cells[idx] = Stone
			default:
				g.Cells[idx] = Dirt
			}
		}
	}

	// Below the water line is always solid so the floor never has holes
	for y := bedrock; y < height; y++ {
		for x := LandStartX; x < min(LandEndX, width); x++ {
			g.Cells[y*width+x] = Stone
		}
	}

	boulders := r.between(6, 12)
	for i := 0; i < boulders; i++ {
		cx := r.between(LandStartX+40, LandEndX-40)
		cy := surface[clampX(cx, width)] + r.between(10, 80)
		g.fillBlob(cx, cy, r.between(8, 22), Stone, Dirt, Grass)
	}

	pockets := r.between(3, 6)
	for i := 0; i < pockets; i++ {
		cx := r.between(LandStartX+60, LandEndX-60)
		cy := surface[clampX(cx, width)] + r.between(4, 120)
		g.fillBlob(cx, cy, r.between(10, 26), Lava, Dirt, Stone, Grass)
	}

	return g
}

func clampX(x, width int) int {
	if x < 0 {
		return 0
	}
	if x >= width {
		return width - 1
	}
	return x
}

// fillBlob paints a disc of m over any of the listed materials.
func (g *Grid) fillBlob(cx, cy, r int, m Material, over ...Material) {
	r2 := r * r
	for y := cy - r; y <= cy+r; y++ {
		for x := cx - r; x <= cx+r; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy > r2 || !g.inBounds(x, y) {
				continue
			}
			cur := g.Cells[y*g.Width+x]
			for _, o := range over {
				if cur == o {
					g.Cells[y*g.Width+x] = m
					break
				}
			}
		}
	}
}

// heightmap sums a coarse and a fine octave of smoothstep-interpolated
// control points. Output is the surface row for each column.
func heightmap(r *rng, width, height int) []int {
	lo := height * 30 / 100
	hi := height * 62 / 100

	coarse := make([]int, width/coarseStep+2)
	for i := range coarse {
		coarse[i] = r.between(lo, hi)
	}
	fine := make([]int, width/fineStep+2)
	for i := range fine {
		fine[i] = r.between(-fineAmp, fineAmp)
	}

	out := make([]int, width)
	for x := 0; x < width; x++ {
		h := interp(coarse, x, coarseStep) + interp(fine, x, fineStep)
		if h < height/5 {
			h = height / 5
		}
		if h > WaterLevel-40 {
			h = WaterLevel - 40
		}
		out[x] = h
	}
	return out
}

// interp evaluates the control points at x with an integer smoothstep.
func interp(points []int, x, step int) int {
	i := x / step
	a := points[i]
	b := points[i+1]
	// t in [0, 1024)
	t := (x % step) * 1024 / step
	s := t * t * (3*1024 - 2*t) / (1024 * 1024)
	return a + (b-a)*s/1024
}
