package weapons

import (
	"math"

	"github.com/Scrimzay/ballwars/internal/physics"
	"github.com/Scrimzay/ballwars/internal/terrain"
)

const (
	PelletCount   = 6
	PelletSpread  = 0.25
	PelletDamage  = 10
	PelletGravity = 250.0
	PelletCarve   = 4

	BulletCount   = 10
	BulletSpread  = 0.15
	BulletGravity = 300.0
	BulletDrag    = 0.995 // per tick
	BulletCarve   = 2
	bulletReach2  = 80.0

	DropletGravity = 600.0
	DropletY       = -50.0

	FirePoolRadius   = 30.0
	FirePoolLifetime = 5.0
	FirePoolDamage   = 8
	FirePoolInterval = 0.5
)

// Pellet is one shotgun pellet.
type Pellet struct {
	X, Y   float64
	VX, VY float64
	Damage int

	alive bool
}

// ShotgunPellets fans PelletCount pellets around angle. Speeds vary a little
// per pellet so the spread is not a perfect line.
func ShotgunPellets(x, y, angle, power float64) []*Pellet {
	base := power * table[Shotgun].SpeedFactor
	out := make([]*Pellet, 0, PelletCount)
	for i := 0; i < PelletCount; i++ {
		off := (float64(i) - PelletCount/2.0) * (PelletSpread / PelletCount)
		a := angle + off
		speed := base * (0.9 + math.Mod(float64(i)*0.05, 0.2))
		out = append(out, &Pellet{
			X:      x,
			Y:      y,
			VX:     math.Cos(a) * speed,
			VY:     math.Sin(a) * speed,
			Damage: PelletDamage,
			alive:  true,
		})
	}
	return out
}

func (p *Pellet) effect() {}

func (p *Pellet) Active() bool { return p.alive }

func (p *Pellet) Position() (float64, float64) { return p.X, p.Y }

func (p *Pellet) Tick(a *Arena, dt float64) {
	if !p.alive {
		return
	}
	p.VY += PelletGravity * dt
	g := a.Grid
	n, sub := substeps(p.VX, p.VY, dt)
	for i := 0; i < n; i++ {
		p.X += p.VX * sub
		p.Y += p.VY * sub
		if !inWorld(g, p.X, p.Y) || terrain.IsWater(p.Y) {
			p.alive = false
			return
		}
		if p.Y < 0 {
			continue
		}
		if g.IsSolid(int(p.X), int(p.Y)) {
			p.alive = false
			g.ApplyDamage(int(p.X), int(p.Y), PelletCarve)
			return
		}
		if b := hitBall(a.Balls, p.X, p.Y, math.Sqrt(bulletReach2), nil); b != nil {
			p.alive = false
			b.TakeDamage(p.Damage)
			s := math.Max(math.Hypot(p.VX, p.VY), 1)
			b.ApplyKnockback(p.VX/s*60, p.VY/s*60-40)
			return
		}
	}
}

// Bullet is one Uzi round.
type Bullet struct {
	X, Y   float64
	VX, VY float64

	alive bool
}

// UziBullets draws spread and speed jitter from rnd.
func UziBullets(x, y, angle, power float64, rnd func() float64) []*Bullet {
	base := power * 15
	out := make([]*Bullet, 0, BulletCount)
	for i := 0; i < BulletCount; i++ {
		a := angle + (rnd()-0.5)*BulletSpread
		speed := base * (0.95 + rnd()*0.1)
		out = append(out, &Bullet{
			X:     x,
			Y:     y,
			VX:    math.Cos(a) * speed,
			VY:    math.Sin(a) * speed,
			alive: true,
		})
	}
	return out
}

func (b *Bullet) effect() {}

func (b *Bullet) Active() bool { return b.alive }

func (b *Bullet) Position() (float64, float64) { return b.X, b.Y }

func (b *Bullet) Tick(a *Arena, dt float64) {
	if !b.alive {
		return
	}
	b.VY += BulletGravity * dt
	b.VX *= BulletDrag

	g := a.Grid
	n, sub := substeps(b.VX, b.VY, dt)
	for i := 0; i < n; i++ {
		b.X += b.VX * sub
		b.Y += b.VY * sub
		if !inWorld(g, b.X, b.Y) || terrain.IsWater(b.Y) {
			b.alive = false
			return
		}
		if b.Y < 0 {
			continue
		}
		if g.IsSolid(int(b.X), int(b.Y)) {
			b.alive = false
			g.ApplyDamage(int(b.X), int(b.Y), BulletCarve)
			return
		}
		if hit := hitBall(a.Balls, b.X, b.Y, math.Sqrt(bulletReach2), nil); hit != nil {
			b.alive = false
			hit.TakeDamage(table[Uzi].Damage)
			dx, dy := hit.X-b.X, hit.Y-b.Y
			d := math.Max(math.Hypot(dx, dy), 1)
			hit.ApplyKnockback(dx/d*40, dy/d*40-30)
			return
		}
	}
}

// Droplet is one bomb from an airstrike or napalm strike.
type Droplet struct {
	X, Y   float64
	VY     float64
	Napalm bool

	alive bool
}

// StrikeDroplets lines up the bombs for w centred on x above the map.
func StrikeDroplets(w Weapon, x float64) []*Droplet {
	count, spacing := 5, 80.0
	if w == NapalmStrike {
		count, spacing = 7, 60.0
	}
	out := make([]*Droplet, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, &Droplet{
			X:      x + (float64(i)-float64(count-1)/2)*spacing,
			Y:      DropletY,
			Napalm: w == NapalmStrike,
			alive:  true,
		})
	}
	return out
}

func (d *Droplet) effect() {}

func (d *Droplet) Active() bool { return d.alive }

func (d *Droplet) Position() (float64, float64) { return d.X, d.Y }

func (d *Droplet) Tick(a *Arena, dt float64) {
	if !d.alive {
		return
	}
	d.VY += DropletGravity * dt
	g := a.Grid
	n, sub := substeps(0, d.VY, dt)
	for i := 0; i < n; i++ {
		d.Y += d.VY * sub
		if d.Y < 0 {
			continue
		}
		if d.Y > float64(g.Height)+100 {
			d.alive = false
			return
		}
		if terrain.IsWater(d.Y) || g.IsSolid(int(d.X), int(d.Y)) {
			d.explode(a)
			return
		}
	}
}

func (d *Droplet) explode(a *Arena) {
	d.alive = false
	spec := table[Airstrike]
	if d.Napalm {
		spec = table[NapalmStrike]
	}
	a.Explode(d.X, d.Y, spec.Radius, spec.Damage, DropletKnock)
	if d.Napalm {
		a.fires = append(a.fires, NewFirePool(d.X, d.Y))
	}
}

// FirePool burns whoever stands in it. Pools outlive the turn that made them.
type FirePool struct {
	X, Y     float64
	Radius   float64
	Lifetime float64
	next     float64
	alive    bool
}

func NewFirePool(x, y float64) *FirePool {
	return &FirePool{X: x, Y: y, Radius: FirePoolRadius, Lifetime: FirePoolLifetime, alive: true}
}

func (f *FirePool) Active() bool { return f.alive }

func (f *FirePool) Tick(balls []*physics.Ball, dt float64) {
	if !f.alive {
		return
	}
	f.Lifetime -= dt
	if f.Lifetime <= 0 {
		f.alive = false
		return
	}
	f.next -= dt
	if f.next > 0 {
		return
	}
	f.next = FirePoolInterval
	r2 := f.Radius * f.Radius
	for _, b := range balls {
		if !b.Alive {
			continue
		}
		dx, dy := b.X-f.X, b.Y-f.Y
		if dx*dx+dy*dy < r2 {
			b.TakeDamage(FirePoolDamage)
		}
	}
}

// Charge is a placed explosive: dynamite or a mine.
type Charge struct {
	X, Y   float64
	Fuse   float64
	Weapon Weapon

	alive bool
}

func PlaceCharge(w Weapon, ball *physics.Ball) *Charge {
	return &Charge{
		X:      ball.X,
		Y:      ball.Y + physics.BallRadius - 2,
		Fuse:   w.Spec().Fuse,
		Weapon: w,
		alive:  true,
	}
}

func (c *Charge) effect() {}

func (c *Charge) Active() bool { return c.alive }

func (c *Charge) Position() (float64, float64) { return c.X, c.Y }

func (c *Charge) Tick(a *Arena, dt float64) {
	if !c.alive {
		return
	}
	c.Fuse -= dt
	if c.Fuse > 0 {
		return
	}
	c.alive = false
	spec := c.Weapon.Spec()
	a.Explode(c.X, c.Y, spec.Radius, spec.Damage, PlacedKnock)
}
