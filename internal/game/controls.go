package game

import (
	"math"

	"github.com/Scrimzay/ballwars/internal/physics"
	"github.com/Scrimzay/ballwars/internal/weapons"
)

// Controlled returns the ball local movement keys drive in this phase,
// or -1. While a shot is in the air a connected player may dodge with their
// own ball even on someone else's turn.
func (s *Simulation) Controlled() int {
	idx := -1
	switch s.Phase {
	case Aiming, Charging, Retreat:
		if s.IsMyTurn() {
			idx = s.CurrentBall
		}

	case ProjectileFlying:
		if seat, ok := s.Authority.Seat(); ok {
			idx = s.firstAlive(seat)
		} else if !s.Authority.Online() {
			idx = s.CurrentBall
		}
	}
	if idx < 0 || idx >= len(s.Balls) || !s.Balls[idx].Alive {
		return -1
	}
	return idx
}

// Walk moves the controlled ball for dt seconds.
func (s *Simulation) Walk(dir, dt float64) float64 {
	idx := s.Controlled()
	if idx < 0 {
		return 0
	}
	return s.Balls[idx].Walk(s.Terrain, dir, dt)
}

func (s *Simulation) Jump() bool {
	return s.jump(physics.JumpForward)
}

func (s *Simulation) Backflip() bool {
	return s.jump(physics.JumpBackflip)
}

func (s *Simulation) jump(kind physics.JumpKind) bool {
	idx := s.Controlled()
	if idx < 0 {
		return false
	}
	b := s.Balls[idx]
	if !b.CanMove() {
		return false
	}
	if kind == physics.JumpBackflip {
		b.Backflip()
		b.Spend(physics.BackflipCost)
		s.publish(InputMsg{Input: Input{Kind: InputBackflip}})
		return true
	}
	b.Jump()
	b.Spend(physics.JumpCost)
	s.publish(InputMsg{Input: Input{Kind: InputJump}})
	return true
}

func (s *Simulation) canAct() bool {
	b := s.current()
	return s.IsMyTurn() && s.Phase.AllowsInput() && b != nil && b.Alive
}

// SetAim points the current ball's weapon. Peers get the angle when it moved
// noticeably.
func (s *Simulation) SetAim(angle float64) {
	if !s.canAct() {
		return
	}
	angle = weapons.NormalizeAngle(angle)
	if math.Abs(angle-s.Aim) <= 0.01 {
		return
	}
	s.Aim = angle
	s.publish(AimMsg{Angle: angle})
}

// SetRemoteAim shows the turn owner's aim on the current ball.
func (s *Simulation) SetRemoteAim(team int, angle float64) {
	if team == s.CurrentTurnIndex && s.Phase.AllowsInput() {
		s.Aim = weapons.NormalizeAngle(angle)
	}
}

// SelectWeapon arms w. Strikes, teleport and walls go straight into
// targeting; everything else waits for a charge.
func (s *Simulation) SelectWeapon(w weapons.Weapon) bool {
	if !s.canAct() || !w.Valid() || s.HasFired {
		return false
	}
	if s.Charging {
		s.CancelCharge()
	}
	s.SelectedWeapon = w
	s.clearTargeting()
	switch w {
	case weapons.Teleport, weapons.BuildWall, weapons.Airstrike, weapons.NapalmStrike:
		s.targeting = w
		s.targetOn = true
	}
	return true
}

// BeginCharge starts building power.
func (s *Simulation) BeginCharge() bool {
	if !s.canAct() || s.HasFired || s.targetOn {
		return false
	}
	s.Charging = true
	s.Power = 0
	s.Phase = Charging
	return true
}

// Release fires at the current power.
func (s *Simulation) Release() {
	if !s.Charging {
		return
	}
	s.fire()
}

func (s *Simulation) CancelCharge() {
	if !s.Charging {
		return
	}
	s.Charging = false
	s.Power = 0
	s.Phase = Aiming
}

// CancelTargeting leaves click mode without using the weapon.
func (s *Simulation) CancelTargeting() {
	s.clearTargeting()
}
