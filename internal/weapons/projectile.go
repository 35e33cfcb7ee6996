package weapons

import (
	"math"

	"github.com/Scrimzay/ballwars/internal/physics"
	"github.com/Scrimzay/ballwars/internal/terrain"
)

const (
	ProjectileGravity = 300.0
	WindAccel         = 12.0
	contactReach      = physics.BallRadius + 2

	BounceDampY = 0.5
	BounceDampX = 0.7
	RestSpeed   = 40.0

	HomingArmTime  = 0.25
	HomingRange    = 700.0
	HomingAccel    = 1100.0
	HomingMaxSpeed = 650.0
	HomingLife     = 8.0

	SheepSpeed      = 70.0
	SuperSheepSpeed = 110.0
	SheepStep       = 6
	SheepArmTime    = 0.5
	sheepHalf       = 5
	sheepDrop       = 10

	BombletSpeed   = 220.0
	BombletSpread  = 0.6
	BombletGravity = 300.0

	ConcreteKnock = 420.0
)

// bombletStats is damage and radius of the children each cluster weapon
// leaves behind.
var bombletStats = map[Weapon]struct {
	damage int
	radius float64
}{
	ClusterBomb:   {15, 15},
	BananaBomb:    {25, 20},
	BananaBonanza: {18, 18},
	Mortar:        {15, 18},
}

// Projectile covers every launched weapon that flies: plain ballistic,
// bouncing, homing and walking.
type Projectile struct {
	X, Y    float64
	VX, VY  float64
	Weapon  Weapon
	Team    int // shooter's team; teammates do not trigger contact
	Fuse    float64
	Bounces int
	Age     float64

	alive   bool
	resting bool
	walking bool
	dir     float64
}

func NewProjectile(x, y, angle, power float64, w Weapon, team int) *Projectile {
	spec := w.Spec()
	speed := power * spec.SpeedFactor
	p := &Projectile{
		X:       x,
		Y:       y,
		VX:      math.Cos(angle) * speed,
		VY:      math.Sin(angle) * speed,
		Weapon:  w,
		Team:    team,
		Fuse:    spec.Fuse,
		Bounces: spec.Bounces,
		alive:   true,
		dir:     1,
	}
	if math.Cos(angle) < 0 {
		p.dir = -1
	}
	return p
}

func (p *Projectile) effect() {}

func (p *Projectile) Active() bool { return p.alive }

func (p *Projectile) Position() (float64, float64) { return p.X, p.Y }

func (p *Projectile) Walking() bool { return p.walking }

func (p *Projectile) Tick(a *Arena, dt float64) {
	if !p.alive {
		return
	}
	p.Age += dt
	spec := p.Weapon.Spec()

	if spec.Fuse > 0 {
		p.Fuse -= dt
		if p.Fuse <= 0 {
			p.detonate(a)
			return
		}
	}

	switch spec.Behavior {
	case Homing:
		p.tickHoming(a, dt)

	case Walking:
		p.tickWalking(a, dt)

	default:
		p.tickBallistic(a, spec, dt)
	}
}

func (p *Projectile) enemy(b *physics.Ball) bool {
	return b.Team != p.Team
}

func (p *Projectile) tickBallistic(a *Arena, spec Spec, dt float64) {
	g := a.Grid
	if p.resting {
		if g.IsSolid(int(p.X), int(p.Y)+2) {
			return
		}
		p.resting = false
	}

	drag := math.Max(0, 1-spec.Drag*dt)
	p.VX *= drag
	p.VY *= drag
	p.VY += ProjectileGravity * dt
	p.VX += a.Wind * WindAccel * dt

	n, sub := substeps(p.VX, p.VY, dt)
	for i := 0; i < n; i++ {
		p.X += p.VX * sub
		p.Y += p.VY * sub

		if !inWorld(g, p.X, p.Y) {
			p.alive = false
			return
		}
		if p.Y < 0 {
			continue
		}
		if terrain.IsWater(p.Y) {
			p.sink(a)
			return
		}
		if b := hitBall(a.Balls, p.X, p.Y, contactReach, func(b *physics.Ball) bool { return !p.enemy(b) }); b != nil {
			p.impact(a, b)
			return
		}
		if g.IsSolid(int(p.X), int(p.Y)) {
			if spec.Behavior == Bouncing {
				p.X -= p.VX * sub
				p.Y -= p.VY * sub
				p.bounce(a)
				return
			}
			p.impact(a, nil)
			return
		}
	}
}

func (p *Projectile) bounce(a *Arena) {
	if math.Hypot(p.VX, p.VY) < RestSpeed {
		p.VX, p.VY = 0, 0
		p.resting = true
		return
	}
	if p.Bounces <= 0 {
		p.detonate(a)
		return
	}
	p.Bounces--
	p.VY *= -BounceDampY
	p.VX *= BounceDampX
}

func (p *Projectile) tickHoming(a *Arena, dt float64) {
	if p.Age >= HomingLife {
		p.detonate(a)
		return
	}
	if p.Age >= HomingArmTime {
		if t := p.nearestEnemy(a.Balls); t != nil {
			dx, dy := t.X-p.X, t.Y-p.Y
			d := math.Max(math.Hypot(dx, dy), 1)
			p.VX += dx / d * HomingAccel * dt
			p.VY += dy / d * HomingAccel * dt
		}
		if s := math.Hypot(p.VX, p.VY); s > HomingMaxSpeed {
			p.VX *= HomingMaxSpeed / s
			p.VY *= HomingMaxSpeed / s
		}
	}

	g := a.Grid
	n, sub := substeps(p.VX, p.VY, dt)
	for i := 0; i < n; i++ {
		p.X += p.VX * sub
		p.Y += p.VY * sub
		if !inWorld(g, p.X, p.Y) {
			p.alive = false
			return
		}
		if p.Y < 0 {
			continue
		}
		if terrain.IsWater(p.Y) {
			p.sink(a)
			return
		}
		if b := hitBall(a.Balls, p.X, p.Y, contactReach, func(b *physics.Ball) bool { return !p.enemy(b) }); b != nil {
			p.detonate(a)
			return
		}
		if g.IsSolid(int(p.X), int(p.Y)) {
			p.detonate(a)
			return
		}
	}
}

// nearestEnemy never picks a teammate.
func (p *Projectile) nearestEnemy(balls []*physics.Ball) *physics.Ball {
	var best *physics.Ball
	bestD := HomingRange
	for _, b := range balls {
		if !b.Alive || !p.enemy(b) {
			continue
		}
		d := math.Hypot(b.X-p.X, b.Y-p.Y)
		if d < bestD {
			best, bestD = b, d
		}
	}
	return best
}

func (p *Projectile) tickWalking(a *Arena, dt float64) {
	g := a.Grid
	speed := SheepSpeed
	if p.Weapon == SuperSheep {
		speed = SuperSheepSpeed
	}

	if p.Age >= SheepArmTime {
		if b := hitBall(a.Balls, p.X, p.Y, physics.BallRadius+sheepHalf+1, nil); b != nil {
			p.detonate(a)
			return
		}
	}

	if !p.walking {
		p.VY += ProjectileGravity * dt
		n, sub := substeps(p.VX, p.VY, dt)
		for i := 0; i < n; i++ {
			p.X += p.VX * sub
			p.Y += p.VY * sub
			if !inWorld(g, p.X, p.Y) {
				p.alive = false
				return
			}
			if terrain.IsWater(p.Y) {
				p.sink(a)
				return
			}
			if p.Y >= 0 && g.IsSolid(int(p.X), int(p.Y)+sheepHalf) {
				p.landWalker(g)
				return
			}
		}
		return
	}

	nx := p.X + p.dir*speed*dt
	col := int(math.Floor(nx))
	foot := int(p.Y) + sheepHalf
	if g.IsSolid(col, foot-SheepStep-1) {
		p.dir = -p.dir
		return
	}
	for sy := foot - SheepStep; sy <= foot+sheepDrop; sy++ {
		if g.IsSolid(col, sy) {
			p.X = nx
			p.Y = float64(sy - sheepHalf)
			return
		}
	}
	p.X = nx
	p.walking = false
	p.VX, p.VY = 0, 0
}

func (p *Projectile) landWalker(g *terrain.Grid) {
	top := int(p.Y) + sheepHalf
	for i := 0; i < sheepDrop && g.IsSolid(int(p.X), top-1); i++ {
		top--
	}
	p.Y = float64(top - sheepHalf)
	p.VX, p.VY = 0, 0
	p.walking = true
}

func (p *Projectile) sink(a *Arena) {
	p.alive = false
	a.Blasts = append(a.Blasts, Blast{X: p.X, Y: p.Y, Water: true})
}

// impact resolves a contact. The concrete shell never explodes: it shoves
// the ball it hit and stops.
func (p *Projectile) impact(a *Arena, hit *physics.Ball) {
	if p.Weapon != ConcreteShell {
		p.detonate(a)
		return
	}
	p.alive = false
	if hit == nil {
		return
	}
	spec := p.Weapon.Spec()
	s := math.Max(math.Hypot(p.VX, p.VY), 1)
	hit.TakeDamage(spec.Damage)
	hit.ApplyKnockback(p.VX/s*ConcreteKnock, p.VY/s*ConcreteKnock-80)
}

func (p *Projectile) detonate(a *Arena) {
	if !p.alive {
		return
	}
	p.alive = false
	spec := p.Weapon.Spec()
	a.Explode(p.X, p.Y, spec.Radius, spec.Damage, ProjectileKnock)
	if spec.Cluster > 0 {
		for _, b := range SpawnBomblets(p.Weapon, p.X, p.Y, spec.Cluster) {
			a.Spawn(b)
		}
	}
}

// Bomblet is a cluster child. Each one flies and explodes on its own.
type Bomblet struct {
	X, Y   float64
	VX, VY float64
	Fuse   float64
	Damage int
	Radius float64

	alive bool
}

// SpawnBomblets fans n children over ±BombletSpread around straight up with
// staggered fuses.
func SpawnBomblets(parent Weapon, x, y float64, n int) []*Bomblet {
	stats := bombletStats[parent]
	out := make([]*Bomblet, 0, n)
	for i := 0; i < n; i++ {
		angle := -math.Pi / 2
		if n > 1 {
			angle += -BombletSpread + 2*BombletSpread*float64(i)/float64(n-1)
		}
		out = append(out, &Bomblet{
			X:      x,
			Y:      y,
			VX:     math.Cos(angle) * BombletSpeed,
			VY:     math.Sin(angle) * BombletSpeed,
			Fuse:   0.8 + 0.12*float64(i),
			Damage: stats.damage,
			Radius: stats.radius,
			alive:  true,
		})
	}
	return out
}

func (b *Bomblet) effect() {}

func (b *Bomblet) Active() bool { return b.alive }

func (b *Bomblet) Position() (float64, float64) { return b.X, b.Y }

func (b *Bomblet) Tick(a *Arena, dt float64) {
	if !b.alive {
		return
	}
	b.Fuse -= dt
	if b.Fuse <= 0 {
		b.explode(a)
		return
	}

	b.VY += BombletGravity * dt
	g := a.Grid
	n, sub := substeps(b.VX, b.VY, dt)
	for i := 0; i < n; i++ {
		b.X += b.VX * sub
		b.Y += b.VY * sub
		if !inWorld(g, b.X, b.Y) {
			b.alive = false
			return
		}
		if b.Y < 0 {
			continue
		}
		if terrain.IsWater(b.Y) {
			b.alive = false
			return
		}
		if g.IsSolid(int(b.X), int(b.Y)) || hitBall(a.Balls, b.X, b.Y, contactReach, nil) != nil {
			b.explode(a)
			return
		}
	}
}

func (b *Bomblet) explode(a *Arena) {
	b.alive = false
	a.Explode(b.X, b.Y, b.Radius, b.Damage, BombletKnock)
}
