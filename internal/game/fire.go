package game

import (
	"math"

	"github.com/Scrimzay/ballwars/internal/physics"
	"github.com/Scrimzay/ballwars/internal/weapons"
)

// doFire resolves w for ball idx and moves the turn into the phase the shot
// asks for. It returns the route taken.
func (s *Simulation) doFire(idx int, w weapons.Weapon, angle, power float64) weapons.Route {
	shot := weapons.Fire(s.arena, idx, w, angle, power)
	switch shot.Route {
	case weapons.RouteTarget:
		s.targeting = w
		s.targetOn = true
		s.wallAnchor = nil
		s.Phase = Aiming

	case weapons.RouteFlying:
		s.Effects = append(s.Effects, shot.Effects...)
		s.Phase = ProjectileFlying

	case weapons.RouteRetreat:
		s.Effects = append(s.Effects, shot.Effects...)
		s.enterRetreat(idx)

	case weapons.RouteSettling:
		if shot.Op != nil {
			s.Ops.AddDrill(s.Terrain, shot.Op.A, shot.Op.B, shot.Op.C)
		}
		s.enterSettling()
	}
	return shot.Route
}

func (s *Simulation) enterSettling() {
	s.Phase = Settling
	s.SettleTimer = 0
}

func (s *Simulation) enterRetreat(idx int) {
	s.Phase = Retreat
	s.RetreatTimer = RetreatTime
	if idx >= 0 && idx < len(s.Balls) {
		s.Balls[idx].ResetMovementBudget()
	}
}

// fire releases the charged shot for the current ball.
func (s *Simulation) fire() {
	s.Charging = false
	if s.HasFired {
		return
	}
	b := s.current()
	if b == nil || !b.Alive {
		return
	}
	idx := s.CurrentBall
	w := s.SelectedWeapon
	power := weapons.ClampPower(s.Power)
	angle := s.Aim
	bx, by := int(b.X), int(b.Y)

	route := s.doFire(idx, w, angle, power)
	s.Power = 0
	if route == weapons.RouteNone {
		s.Phase = Aiming
		return
	}
	if s.Phase == ProjectileFlying {
		b.ResetMovementBudget()
	}
	if route != weapons.RouteTarget {
		s.HasFired = true
	}

	if w == weapons.Drill {
		s.publish(InputMsg{Input: Input{Kind: InputDrill, X: float64(bx), Y: float64(by), Angle: angle}})
		return
	}
	s.publish(InputMsg{Input: Input{Kind: InputFire, Weapon: w, Angle: angle, Power: power}})
}

// Click resolves the armed targeting weapon at world point (x, y). Build
// Wall takes two clicks: the anchor, then a point giving the angle.
func (s *Simulation) Click(x, y float64) bool {
	if !s.targetOn || s.HasFired || !s.IsMyTurn() || !s.Phase.AllowsInput() {
		return false
	}
	b := s.current()
	if b == nil || !b.Alive {
		return false
	}

	switch s.targeting {
	case weapons.BuildWall:
		if s.wallAnchor == nil {
			s.wallAnchor = &[2]float64{x, y}
			return true
		}
		ax, ay := s.wallAnchor[0], s.wallAnchor[1]
		angle := s.Aim
		if dx, dy := x-ax, y-ay; math.Abs(dx) >= 0.5 || math.Abs(dy) >= 0.5 {
			angle = math.Atan2(dy, dx)
		}
		s.placeWall(ax, ay, angle)
		s.publish(InputMsg{Input: Input{Kind: InputWall, X: ax, Y: ay, Angle: angle}})

	case weapons.Airstrike, weapons.NapalmStrike:
		w := s.targeting
		s.strike(s.CurrentBall, w, x)
		s.publish(InputMsg{Input: Input{Kind: InputStrike, Weapon: w, X: x}})

	case weapons.Teleport:
		weapons.TeleportTo(s.Terrain, b, x, y)
		s.enterSettling()
		s.publish(InputMsg{Input: Input{Kind: InputTeleport, X: b.X, Y: b.Y}})

	case weapons.BaseballBat:
		weapons.SwingBat(s.arena, s.CurrentBall, s.Aim)
		s.enterSettling()
		s.publish(InputMsg{Input: Input{Kind: InputBat, Angle: s.Aim}})

	default:
		return false
	}
	s.clearTargeting()
	s.HasFired = true
	return true
}

func (s *Simulation) placeWall(ax, ay, angle float64) {
	op := weapons.BuildWallAt(s.Terrain, ax, ay, angle)
	s.Ops.AddWall(s.Terrain, op.A, op.B, op.C)
	s.enterSettling()
}

// strike drops the bombs and gives the striker a fresh budget to dodge.
func (s *Simulation) strike(idx int, w weapons.Weapon, x float64) {
	s.Effects = append(s.Effects, weapons.Strike(w, x)...)
	s.Phase = ProjectileFlying
	if idx >= 0 && idx < len(s.Balls) {
		s.Balls[idx].ResetMovementBudget()
	}
}

// ApplyInput replays an action taken by another peer's turn owner.
func (s *Simulation) ApplyInput(team int, in Input) {
	if s.Phase == GameOver {
		return
	}
	s.applyPending()

	idx := s.CurrentBall
	if team != s.CurrentTurnIndex {
		idx = s.firstAlive(team)
	}
	if idx < 0 || idx >= len(s.Balls) {
		return
	}
	b := s.Balls[idx]

	switch in.Kind {
	case InputFire:
		if !in.Weapon.Valid() {
			return
		}
		route := s.doFire(idx, in.Weapon, in.Angle, in.Power)
		if route == weapons.RouteNone || route == weapons.RouteTarget {
			return
		}
		s.HasFired = true
		if s.Phase == ProjectileFlying {
			b.ResetMovementBudget()
		}

	case InputMove:
		b.Walk(s.Terrain, in.Dir, remoteInputStep)

	case InputJump:
		b.Jump()
		b.Spend(physics.JumpCost)

	case InputBackflip:
		b.Backflip()
		b.Spend(physics.BackflipCost)

	case InputStrike:
		w := in.Weapon
		if w != weapons.NapalmStrike {
			w = weapons.Airstrike
		}
		s.strike(idx, w, in.X)
		s.HasFired = true

	case InputWall:
		s.placeWall(in.X, in.Y, in.Angle)
		s.HasFired = true

	case InputTeleport:
		weapons.TeleportTo(s.Terrain, b, in.X, in.Y)
		s.enterSettling()
		s.HasFired = true

	case InputBat:
		weapons.SwingBat(s.arena, idx, in.Angle)
		s.enterSettling()
		s.HasFired = true

	case InputDrill:
		op := weapons.DrillAt(s.Terrain, in.X, in.Y, in.Angle)
		s.Ops.AddDrill(s.Terrain, op.A, op.B, op.C)
		s.enterSettling()
		s.HasFired = true
	}
}
