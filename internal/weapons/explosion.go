package weapons

import (
	"math"

	"github.com/Scrimzay/ballwars/internal/physics"
	"github.com/Scrimzay/ballwars/internal/terrain"
)

// FalloffMultiplier stretches the damage area past the carved crater.
const FalloffMultiplier = 1.8

// Knockback is the push an explosion gives at its epicentre. Both values
// scale down with the same falloff factor as damage.
type Knockback struct {
	Force float64
	Lift  float64
}

var (
	ProjectileKnock = Knockback{Force: 300, Lift: 160}
	PlacedKnock     = Knockback{Force: 280, Lift: 150}
	DropletKnock    = Knockback{Force: 180, Lift: 120}
	BombletKnock    = Knockback{Force: 200, Lift: 120}
)

// Blast describes one resolved explosion, for renderers and tests.
type Blast struct {
	X, Y   float64
	Radius float64
	Water  bool
}

// Arena is everything an effect may touch during a tick.
type Arena struct {
	Grid  *terrain.Grid
	Balls []*physics.Ball
	Wind  float64
	Rand  func() float64 // [0,1)

	Blasts []Blast

	spawned []Effect
	fires   []*FirePool
}

func NewArena(g *terrain.Grid, balls []*physics.Ball, rnd func() float64) *Arena {
	return &Arena{Grid: g, Balls: balls, Rand: rnd}
}

func (a *Arena) Spawn(e Effect) {
	a.spawned = append(a.spawned, e)
}

// TakeSpawned returns effects created during the last ticks and forgets them.
func (a *Arena) TakeSpawned() []Effect {
	out := a.spawned
	a.spawned = nil
	return out
}

func (a *Arena) TakeFires() []*FirePool {
	out := a.fires
	a.fires = nil
	return out
}

func (a *Arena) random() float64 {
	if a.Rand == nil {
		return 0.5
	}
	return a.Rand()
}

// FalloffFactor is 1 at the epicentre and 0 at radius*FalloffMultiplier.
func FalloffFactor(d, radius float64) float64 {
	reach := radius * FalloffMultiplier
	if reach <= 0 || d >= reach {
		return 0
	}
	return 1 - d/reach
}

// FalloffDamage rounds base damage scaled by the falloff factor.
func FalloffDamage(base int, d, radius float64) int {
	f := FalloffFactor(d, radius)
	if f <= 0 {
		return 0
	}
	return int(math.Round(float64(base) * f))
}

// Explode carves the crater and hurts every living ball in reach. Splash
// damage does not care about teams.
func (a *Arena) Explode(x, y, radius float64, damage int, kb Knockback) {
	if radius > 0 {
		a.Grid.ApplyDamage(int(x), int(y), int(radius))
	}
	a.Blasts = append(a.Blasts, Blast{X: x, Y: y, Radius: radius, Water: terrain.IsWater(y)})

	for _, b := range a.Balls {
		if !b.Alive {
			continue
		}
		dx := b.X - x
		dy := b.Y - y
		d := math.Hypot(dx, dy)
		f := FalloffFactor(d, radius)
		if f <= 0 {
			continue
		}
		b.TakeDamage(FalloffDamage(damage, d, radius))

		dist := math.Max(d, 1)
		force := kb.Force * f
		b.ApplyKnockback(dx/dist*force, dy/dist*force-kb.Lift*f)
	}
}

// Effect is one live weapon object. The set is closed: projectiles,
// bomblets, pellets, bullets, droplets and placed charges.
type Effect interface {
	Tick(a *Arena, dt float64)
	Active() bool
	Position() (float64, float64)
	effect()
}

func inWorld(g *terrain.Grid, x, y float64) bool {
	return x >= -50 && x < float64(g.Width)+50 && y < float64(g.Height)+50
}

// hitBall returns the first living ball within reach of (x, y) for which
// skip returns false.
func hitBall(balls []*physics.Ball, x, y, reach float64, skip func(*physics.Ball) bool) *physics.Ball {
	r2 := reach * reach
	for _, b := range balls {
		if !b.Alive || (skip != nil && skip(b)) {
			continue
		}
		dx, dy := b.X-x, b.Y-y
		if dx*dx+dy*dy < r2 {
			return b
		}
	}
	return nil
}

// substeps splits a move so no single step covers more than two cells.
func substeps(vx, vy, dt float64) (int, float64) {
	dist := math.Max(math.Abs(vx), math.Abs(vy)) * dt
	n := int(math.Ceil(dist / 2))
	if n < 1 {
		n = 1
	}
	return n, dt / float64(n)
}
