package game

import (
	"math"

	"github.com/Scrimzay/ballwars/internal/weapons"
)

const (
	botThinkTime = 1.5
	BotPower     = 80.0
	botAimLift   = 0.25 // aim above the target so the missile arcs in
)

// tickBot waits out the think timer, then fires a homing missile at the
// nearest living enemy or gives up the turn when there is none.
func (s *Simulation) tickBot(dt float64) {
	s.botThink -= dt
	if s.botThink > 0 {
		return
	}

	team := s.CurrentTurnIndex
	idx := s.CurrentBall
	if b := s.current(); b == nil || !b.Alive || b.Team != team {
		idx = s.firstAlive(team)
	}
	if idx < 0 {
		s.EndTurn()
		return
	}
	me := s.Balls[idx]

	best := math.MaxFloat64
	angle := 0.0
	found := false
	for _, b := range s.Balls {
		if !b.Alive || b.Team == team {
			continue
		}
		dx, dy := b.X-me.X, b.Y-me.Y
		if d := math.Hypot(dx, dy); d < best {
			best = d
			angle = math.Atan2(dy, dx) - botAimLift
			found = true
		}
	}
	if !found {
		s.EndTurn()
		return
	}

	s.CurrentBall = idx
	s.Aim = angle
	s.SelectedWeapon = weapons.HomingMissile
	if s.doFire(idx, weapons.HomingMissile, angle, BotPower) != weapons.RouteNone {
		s.HasFired = true
	}
	s.logger.Debug("bot fired", "ball", me.Name, "angle", angle)
}
