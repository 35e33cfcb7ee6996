package physics

import (
	"math"

	"github.com/Scrimzay/ballwars/internal/terrain"
)

const (
	BallRadius     = 8.0
	MovementBudget = 150.0
	JumpCost       = 20.0
	BackflipCost   = 30.0

	Gravity          = 500.0
	TerminalVelocity = 900.0
	GroundFriction   = 8.0 // per second, fraction of vx removed while grounded
	AirFriction      = 0.2

	WalkSpeed     = 60.0
	StepHeight    = 6 // bumps we climb without jumping
	DropHeight    = 10
	AirAccel      = 30.0
	AirSpeedMax   = 80.0
	AirMoveCost   = 0.5
	JumpVX        = 90.0
	JumpVY        = -220.0
	BackflipVX    = -40.0
	BackflipVY    = -300.0
	CoyoteTime    = 0.1
	JumpBufferFor = 0.15

	FallDamageThreshold  = 100.0
	FallDamagePerCell    = 0.25
	ImpactSpeedThreshold = 450.0
	ImpactDamagePerSpeed = 0.08
	DamageFlashTime      = 0.3
	MaxHealth            = 100

	settleSpeed        = 5.0
	maxSubstepDistance = 4.0
)

type JumpKind uint8

const (
	JumpNone JumpKind = iota
	JumpForward
	JumpBackflip
)

// Ball is one playable entity. Dead balls stay in the list so indices are
// stable for turn bookkeeping.
type Ball struct {
	X, Y   float64
	VX, VY float64
	Health int // 0 to MaxHealth
	Team   int
	Alive  bool
	Facing int // -1 left, 1 right
	Name   string

	Moved       float64 // budget spent this turn
	OnGround    bool
	DamageFlash float64

	coyote     float64
	jumpBuffer float64
	bufferedAs JumpKind
	fallTopY   float64
}

func NewBall(x, y float64, team int, name string) *Ball {
	return &Ball{
		X:        x,
		Y:        y,
		Health:   MaxHealth,
		Team:     team,
		Alive:    true,
		Facing:   1,
		Name:     name,
		fallTopY: y,
	}
}

func (b *Ball) RemainingBudget() float64 {
	return math.Max(0, MovementBudget-b.Moved)
}

func (b *Ball) CanMove() bool {
	return b.Alive && b.RemainingBudget() > 0
}

func (b *Ball) ResetMovementBudget() {
	b.Moved = 0
}

// Spend charges up to cost against the budget and returns what was charged.
func (b *Ball) Spend(cost float64) float64 {
	c := math.Min(cost, b.RemainingBudget())
	b.Moved += c
	return c
}

func (b *Ball) TakeDamage(amount int) {
	if !b.Alive || amount <= 0 {
		return
	}
	b.Health -= amount
	b.DamageFlash = DamageFlashTime
	if b.Health <= 0 {
		b.Kill()
	}
}

// Kill is permanent.
func (b *Ball) Kill() {
	b.Health = 0
	b.Alive = false
	b.VX, b.VY = 0, 0
}

func (b *Ball) ApplyKnockback(vx, vy float64) {
	if !b.Alive {
		return
	}
	b.VX += vx
	b.VY += vy
	if vy < 0 {
		b.leaveGround()
	}
}

func (b *Ball) leaveGround() {
	if b.OnGround {
		b.fallTopY = b.Y
	}
	b.OnGround = false
}

// IsSettled gates phase transitions.
func (b *Ball) IsSettled() bool {
	if !b.Alive {
		return true
	}
	return b.OnGround && math.Abs(b.VX) < settleSpeed && math.Abs(b.VY) < settleSpeed
}

// Snap places the ball at a streamed position without running physics.
func (b *Ball) Snap(x, y, vx, vy float64) {
	b.X, b.Y, b.VX, b.VY = x, y, vx, vy
	b.fallTopY = y
}

// Teleport drops the ball at (x, y) at rest. The fall from there is measured
// fresh.
func (b *Ball) Teleport(x, y float64) {
	b.X, b.Y = x, y
	b.VX, b.VY = 0, 0
	b.OnGround = false
	b.fallTopY = y
}

// Tick advances the ball by dt. Movement is split into substeps no longer
// than half a radius so fast balls cannot pass through thin terrain.
func (b *Ball) Tick(g *terrain.Grid, dt float64) {
	if !b.Alive || dt <= 0 {
		return
	}
	if b.DamageFlash > 0 {
		b.DamageFlash = math.Max(0, b.DamageFlash-dt)
	}
	if b.jumpBuffer > 0 {
		b.jumpBuffer = math.Max(0, b.jumpBuffer-dt)
	}
	wasGrounded := b.OnGround

	b.VY = math.Min(b.VY+Gravity*dt, TerminalVelocity)
	if b.OnGround {
		b.VX *= math.Max(0, 1-GroundFriction*dt)
		if math.Abs(b.VX) < 2 {
			b.VX = 0
		}
	} else {
		b.VX *= math.Max(0, 1-AirFriction*dt)
	}

	dist := math.Max(math.Abs(b.VX), math.Abs(b.VY)) * dt
	steps := int(math.Ceil(dist / maxSubstepDistance))
	if steps < 1 {
		steps = 1
	}
	sub := dt / float64(steps)

	b.OnGround = false
	for i := 0; i < steps && b.Alive; i++ {
		b.moveHorizontal(g, sub)
		b.moveVertical(g, sub)
		if b.touchesDeadly(g) {
			b.Kill()
		}
	}
	if !b.Alive {
		return
	}

	if !b.OnGround {
		if wasGrounded {
			// slid off an edge
			b.fallTopY = b.Y
			b.coyote = CoyoteTime
		} else {
			b.coyote = math.Max(0, b.coyote-dt)
		}
		b.fallTopY = math.Min(b.fallTopY, b.Y)
		return
	}

	b.coyote = 0
	if !wasGrounded {
		b.land()
	}
}

func (b *Ball) land() {
	fall := b.Y - b.fallTopY
	if fall > FallDamageThreshold {
		b.TakeDamage(int((fall - FallDamageThreshold) * FallDamagePerCell))
	}
	b.fallTopY = b.Y
	if b.Alive && b.jumpBuffer > 0 {
		kind := b.bufferedAs
		b.jumpBuffer = 0
		b.bufferedAs = JumpNone
		b.launch(kind)
	}
}

func (b *Ball) moveHorizontal(g *terrain.Grid, dt float64) {
	if b.VX == 0 {
		return
	}
	nx := b.X + b.VX*dt
	dir := 1.0
	if b.VX < 0 {
		dir = -1
	}
	side := int(math.Floor(nx + dir*BallRadius))
	if g.IsSolid(side, int(b.Y)) || g.IsSolid(side, int(b.Y-BallRadius/2)) {
		speed := math.Abs(b.VX)
		if speed > ImpactSpeedThreshold {
			b.TakeDamage(int((speed - ImpactSpeedThreshold) * ImpactDamagePerSpeed))
		}
		b.VX = 0
		return
	}
	b.X = nx
}

func (b *Ball) moveVertical(g *terrain.Grid, dt float64) {
	ny := b.Y + b.VY*dt
	if b.VY < 0 {
		if g.IsSolid(int(b.X), int(math.Floor(ny-BallRadius))) {
			b.VY = 0
			return
		}
		b.Y = ny
		return
	}

	if ground, ok := b.groundBelow(g, ny); ok {
		b.Y = float64(ground) - BallRadius
		b.VY = 0
		b.OnGround = true
		return
	}
	b.Y = ny
}

// groundBelow scans down from the centre to the foot at three sample columns
// and returns the nearest solid row.
func (b *Ball) groundBelow(g *terrain.Grid, y float64) (int, bool) {
	from := int(math.Floor(y))
	to := int(math.Floor(y + BallRadius))
	best, found := 0, false
	for _, sx := range [3]float64{b.X - BallRadius/2, b.X, b.X + BallRadius/2} {
		col := int(math.Floor(sx))
		for sy := from; sy <= to; sy++ {
			if g.IsSolid(col, sy) {
				if !found || sy < best {
					best = sy
				}
				found = true
				break
			}
		}
	}
	return best, found
}

func (b *Ball) touchesDeadly(g *terrain.Grid) bool {
	if terrain.IsWater(b.Y) {
		return true
	}
	cx, cy := int(math.Floor(b.X)), int(math.Floor(b.Y))
	r := int(BallRadius)
	samples := [...][2]int{
		{cx, cy},
		{cx, cy + r},
		{cx - r/2, cy + r},
		{cx + r/2, cy + r},
		{cx - r - 1, cy},
		{cx + r + 1, cy},
		{cx, cy - r - 1},
	}
	for _, s := range samples {
		if terrain.IsDeadly(g.Get(s[0], s[1])) {
			return true
		}
	}
	return false
}

// Walk moves the ball one step in dir and returns the horizontal distance
// actually covered. Grounded balls step along the surface; airborne balls
// only get a velocity nudge.
func (b *Ball) Walk(g *terrain.Grid, dir, dt float64) float64 {
	if !b.CanMove() || dir == 0 {
		return 0
	}
	if dir > 0 {
		dir, b.Facing = 1, 1
	} else {
		dir, b.Facing = -1, -1
	}

	if !b.OnGround {
		if b.VX*dir < AirSpeedMax {
			b.VX = math.Max(-AirSpeedMax, math.Min(AirSpeedMax, b.VX+dir*AirAccel))
		}
		b.Spend(AirMoveCost)
		return 0
	}

	step := math.Min(WalkSpeed*dt, b.RemainingBudget())
	nx := b.X + dir*step
	col := int(math.Floor(nx))
	foot := int(math.Floor(b.Y + BallRadius))

	// foot is the row we stand on; anything taller than a step blocks us
	top := foot - StepHeight - 1
	if g.IsSolid(col, top) {
		return 0
	}
	newY, grounded := b.Y, false
	for sy := top + 1; sy <= foot+DropHeight; sy++ {
		if g.IsSolid(col, sy) {
			newY = float64(sy) - BallRadius
			grounded = true
			break
		}
	}

	side := int(math.Floor(nx + dir*BallRadius))
	if g.IsSolid(side, int(newY)) || g.IsSolid(side, int(newY-BallRadius/2)) {
		return 0
	}

	b.X = nx
	b.Y = newY
	b.Spend(step)
	if !grounded {
		b.leaveGround()
		b.coyote = CoyoteTime
	}
	if b.touchesDeadly(g) {
		b.Kill()
	}
	return step
}

// Jump returns true when the jump was performed or buffered for landing.
func (b *Ball) Jump() bool {
	return b.tryJump(JumpForward)
}

func (b *Ball) Backflip() bool {
	return b.tryJump(JumpBackflip)
}

func (b *Ball) tryJump(kind JumpKind) bool {
	if !b.Alive {
		return false
	}
	if b.OnGround || b.coyote > 0 {
		b.launch(kind)
		return true
	}
	b.jumpBuffer = JumpBufferFor
	b.bufferedAs = kind
	return true
}

func (b *Ball) launch(kind JumpKind) {
	f := float64(b.Facing)
	switch kind {
	case JumpForward:
		b.VX = f * JumpVX
		b.VY = JumpVY
	case JumpBackflip:
		b.VX = f * BackflipVX
		b.VY = BackflipVY
	default:
		return
	}
	b.coyote = 0
	b.leaveGround()
	b.fallTopY = b.Y
}

// CoyoteRemaining and JumpBuffered expose the short-lived timers for tests and
// the HUD.
func (b *Ball) CoyoteRemaining() float64 { return b.coyote }

func (b *Ball) JumpBuffered() bool { return b.jumpBuffer > 0 }
