package weapons

import (
	"math"

	"github.com/Scrimzay/ballwars/internal/physics"
	"github.com/Scrimzay/ballwars/internal/terrain"
)

// Route is the phase a shot hands the turn to.
type Route uint8

const (
	RouteNone     Route = iota // nothing happened
	RouteFlying                // effects in the air
	RouteRetreat               // shooter may run while effects resolve
	RouteSettling              // resolved instantly
	RouteTarget                // waiting for a click to pick the target
)

func (r Route) String() string {
	switch r {
	case RouteFlying:
		return "flying"

	case RouteRetreat:
		return "retreat"

	case RouteSettling:
		return "settling"

	case RouteTarget:
		return "target"

	default:
		return "none"
	}
}

const (
	SpawnOffset = physics.BallRadius + 4

	SniperStep      = 3.0
	SniperHitRadius = physics.BallRadius * 1.4
	SniperKnock     = 320.0
	SniperLift      = 80.0

	BatRange = 100.0
	BatKnock = 850.0
	BatLift  = 300.0
)

// Shot is the outcome of pulling the trigger.
type Shot struct {
	Route   Route
	Effects []Effect
	Op      *terrain.Op // drill tunnel to record, if any
	HitBall int         // sniper target, -1 for none
	HitX    float64
	HitY    float64
}

func ClampPower(power float64) float64 {
	if math.IsNaN(power) {
		return 0
	}
	return math.Max(0, math.Min(100, power))
}

// NormalizeAngle maps any real angle into (-pi, pi].
func NormalizeAngle(angle float64) float64 {
	if math.IsNaN(angle) || math.IsInf(angle, 0) {
		return 0
	}
	a := math.Mod(angle, 2*math.Pi)
	if a > math.Pi {
		a -= 2 * math.Pi
	} else if a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// Fire resolves w for the ball at shooter. It is the single dispatch point
// from weapon to behaviour; targeted weapons only report RouteTarget and are
// finished by Strike, TeleportTo, BuildWallAt or SwingBat.
func Fire(a *Arena, shooter int, w Weapon, angle, power float64) Shot {
	shot := Shot{HitBall: -1}
	if shooter < 0 || shooter >= len(a.Balls) || !w.Valid() {
		return shot
	}
	ball := a.Balls[shooter]
	if !ball.Alive {
		return shot
	}
	power = ClampPower(power)
	angle = NormalizeAngle(angle)
	sx := ball.X + math.Cos(angle)*SpawnOffset
	sy := ball.Y + math.Sin(angle)*SpawnOffset

	if w.NeedsTarget() {
		shot.Route = RouteTarget
		return shot
	}

	switch w {
	case Shotgun:
		for _, p := range ShotgunPellets(sx, sy, angle, power) {
			shot.Effects = append(shot.Effects, p)
		}
		shot.Route = RouteFlying

	case Uzi:
		for _, b := range UziBullets(sx, sy, angle, power, a.random) {
			shot.Effects = append(shot.Effects, b)
		}
		shot.Route = RouteFlying

	case Dynamite, Mine:
		shot.Effects = append(shot.Effects, PlaceCharge(w, ball))
		shot.Route = RouteRetreat

	case Mortar:
		shot.Effects = append(shot.Effects, NewProjectile(sx, sy, angle, power, w, ball.Team))
		shot.Route = RouteRetreat

	case Drill:
		op := DrillAt(a.Grid, ball.X, ball.Y, angle)
		shot.Op = &op
		shot.Route = RouteSettling

	case SniperRifle:
		shot.HitBall, shot.HitX, shot.HitY = Snipe(a, shooter, sx, sy, angle)
		shot.Route = RouteSettling

	default:
		shot.Effects = append(shot.Effects, NewProjectile(sx, sy, angle, power, w, ball.Team))
		shot.Route = RouteFlying
	}
	return shot
}

// Snipe walks a ray in SniperStep increments until it leaves the world,
// hits terrain or hits an enemy. Teammates are passed through.
func Snipe(a *Arena, shooter int, sx, sy, angle float64) (int, float64, float64) {
	g := a.Grid
	cosA, sinA := math.Cos(angle), math.Sin(angle)
	maxDist := float64(max(g.Width, g.Height)) * 2
	team := a.Balls[shooter].Team
	r2 := SniperHitRadius * SniperHitRadius

	for dist := SniperStep; dist <= maxDist; dist += SniperStep {
		rx := sx + cosA*dist
		ry := sy + sinA*dist
		if rx < 0 || rx >= float64(g.Width) || ry < 0 || ry >= float64(g.Height) {
			return -1, rx, ry
		}
		if g.IsSolid(int(rx), int(ry)) {
			return -1, rx, ry
		}
		for i, b := range a.Balls {
			if i == shooter || !b.Alive || b.Team == team {
				continue
			}
			dx, dy := b.X-rx, b.Y-ry
			if dx*dx+dy*dy < r2 {
				b.TakeDamage(table[SniperRifle].Damage)
				b.ApplyKnockback(cosA*SniperKnock, sinA*SniperKnock-SniperLift)
				return i, rx, ry
			}
		}
	}
	return -1, sx + cosA*maxDist, sy + sinA*maxDist
}

// Strike drops the bombs for an airstrike or napalm strike centred on x.
func Strike(w Weapon, x float64) []Effect {
	if w.Behavior() != AirDrop {
		return nil
	}
	drops := StrikeDroplets(w, x)
	out := make([]Effect, len(drops))
	for i, d := range drops {
		out[i] = d
	}
	return out
}

// TeleportTo moves the ball, clamped inside the world.
func TeleportTo(g *terrain.Grid, b *physics.Ball, x, y float64) {
	if !b.Alive {
		return
	}
	x = math.Max(physics.BallRadius, math.Min(float64(g.Width)-physics.BallRadius, x))
	y = math.Max(physics.BallRadius, math.Min(float64(g.Height)-physics.BallRadius, y))
	b.Teleport(x, y)
}

// BuildWallAt stamps the wall and returns its log entry.
func BuildWallAt(g *terrain.Grid, ax, ay, angle float64) terrain.Op {
	ix, iy := int(ax), int(ay)
	mrad := terrain.MilliRadians(angle)
	g.StampWall(float64(ix), float64(iy), float64(mrad)/1000)
	return terrain.Op{Kind: terrain.OpWall, A: ix, B: iy, C: mrad}
}

// DrillAt carves the tunnel from the ball's integer origin so every peer
// replaying the op carves the same cells.
func DrillAt(g *terrain.Grid, bx, by, angle float64) terrain.Op {
	ix, iy := int(bx), int(by)
	mrad := terrain.MilliRadians(angle)
	g.CarveDrill(float64(ix), float64(iy), float64(mrad)/1000)
	return terrain.Op{Kind: terrain.OpDrill, A: ix, B: iy, C: mrad}
}

// SwingBat hits every other living ball within BatRange and returns their
// indices.
func SwingBat(a *Arena, shooter int, angle float64) []int {
	if shooter < 0 || shooter >= len(a.Balls) || !a.Balls[shooter].Alive {
		return nil
	}
	me := a.Balls[shooter]
	cosA, sinA := math.Cos(angle), math.Sin(angle)
	var hit []int
	for i, b := range a.Balls {
		if i == shooter || !b.Alive {
			continue
		}
		if math.Hypot(b.X-me.X, b.Y-me.Y) >= BatRange {
			continue
		}
		b.TakeDamage(table[BaseballBat].Damage)
		b.ApplyKnockback(cosA*BatKnock, sinA*BatKnock-BatLift)
		hit = append(hit, i)
	}
	return hit
}
