package game

import (
	"runtime/debug"

	"github.com/Scrimzay/ballwars/internal/weapons"
)

const (
	hitEventMin  = 5
	hitCooldown  = 0.8
	diedCooldown = 5.0
)

type healthMark struct {
	alive bool
	hp    int
}

// Update advances the round by dt. Session messages must already have been
// applied for this tick. A panic inside the tick is logged and the turn is
// pushed to TurnEnd so the round can continue.
func (s *Simulation) Update(dt float64) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("PANIC in Update", "err", r, "phase", s.Phase, "stack", string(debug.Stack()))
			s.discardEffects()
			if s.Phase != GameOver {
				s.Phase = TurnEnd
				s.TurnEndTimer = TurnEndDelay
			}
		}
	}()

	if s.restartSeed != nil {
		seed := *s.restartSeed
		s.logger.Info("restarting round", "seed", seed, "teams", s.Teams)
		s.Reset(seed, s.Teams)
		return
	}

	dt = min(dt, MaxStep)
	if dt <= 0 {
		return
	}

	marks := make([]healthMark, len(s.Balls))
	for i, b := range s.Balls {
		marks[i] = healthMark{alive: b.Alive, hp: b.Health}
	}

	for _, f := range s.Fires {
		f.Tick(s.Balls, dt)
	}
	s.Fires = keepBurning(s.Fires)

	switch s.Phase {
	case Aiming, Charging:
		s.tickAiming(dt)

	case ProjectileFlying:
		s.tickFlying(dt)

	case Settling:
		s.tickSettling(dt)

	case Retreat:
		s.tickRetreat(dt)

	case TurnEnd:
		s.tickTurnEnd(dt)
	}

	s.snapStreamed()
	s.blasts = append(s.blasts, s.arena.Blasts...)
	s.arena.Blasts = s.arena.Blasts[:0]
	s.detectEvents(marks, dt)
}

func (s *Simulation) tickAiming(dt float64) {
	if s.Charging {
		s.Power = min(100, s.Power+ChargeSpeed*dt)
		if s.Power >= 100 {
			s.fire()
		}
	}
	s.tickBalls(dt, true)
	if !s.Phase.AllowsInput() {
		return
	}

	if b := s.current(); b != nil && !b.Alive {
		s.EndTurn()
		return
	}

	s.TurnTimer -= dt
	bot := s.isBotTurn()
	if s.TurnTimer <= 0 && (s.IsMyTurn() || bot) {
		s.EndTurn()
		return
	}
	if bot && !s.HasFired {
		s.tickBot(dt)
	}
}

func (s *Simulation) tickFlying(dt float64) {
	s.tickBalls(dt, true)
	s.tickEffects(dt)

	s.StuckTimer += dt
	if s.StuckTimer > FlyingWatchdog {
		s.logger.Warn("projectile phase stuck, ending turn", "effects", len(s.Effects))
		s.EndTurn()
		return
	}

	if len(s.Effects) == 0 {
		s.enterSettling()
		if s.Authority.Online() {
			s.publishTerrain()
			if s.IsMyTurn() {
				s.publish(BallStateMsg{Balls: s.Snapshot()})
			}
		}
	}
}

func (s *Simulation) tickSettling(dt float64) {
	s.SettleTimer += dt
	s.tickBalls(dt, false)

	settled := true
	for _, b := range s.Balls {
		if !b.IsSettled() {
			settled = false
			break
		}
	}
	if !settled && s.SettleTimer <= SettleTimeout {
		return
	}
	if !settled {
		s.logger.Debug("settle timeout", "after", s.SettleTimer)
	}

	switch {
	case s.applyPending():

	case s.HasFired && s.IsMyTurn():
		if s.Authority.Online() {
			s.publish(BallStateMsg{Balls: s.Snapshot()})
			s.publishTerrain()
		}
		s.enterRetreat(s.CurrentBall)

	case !s.Authority.Online(), s.IsMyTurn():
		s.EndTurn()

	default:
		s.Phase = TurnEnd
		s.TurnEndTimer = TurnEndDelay
	}
}

func (s *Simulation) tickRetreat(dt float64) {
	s.RetreatTimer -= dt
	s.tickBalls(dt, true)
	s.tickEffects(dt)

	if b := s.current(); b != nil && !b.Alive {
		s.RetreatTimer = 0
	}
	if s.RetreatTimer > 0 || len(s.Effects) > 0 {
		return
	}
	if !s.applyPending() {
		s.EndTurn()
	}
}

func (s *Simulation) tickTurnEnd(dt float64) {
	s.TurnEndTimer -= dt
	s.tickBalls(dt, false)
	if s.TurnEndTimer > 0 {
		return
	}

	switch {
	case s.applyPending():

	case !s.Authority.Online():
		s.AdvanceTurn()

	case s.TurnEndTimer < -SafetyWindow:
		s.logger.Warn("no hand-off from relay, advancing locally", "turn", s.CurrentTurnIndex)
		s.AdvanceTurn()
	}
}

// tickBalls runs physics. Balls driven by a peer's position stream are
// skipped when skipStreamed is set.
func (s *Simulation) tickBalls(dt float64, skipStreamed bool) {
	for i, b := range s.Balls {
		if skipStreamed && s.streamed(i) {
			continue
		}
		b.Tick(s.Terrain, dt)
	}
}

func (s *Simulation) tickEffects(dt float64) {
	for _, e := range s.Effects {
		e.Tick(s.arena, dt)
	}
	s.Effects = append(s.Effects, s.arena.TakeSpawned()...)
	s.Fires = append(s.Fires, s.arena.TakeFires()...)

	live := s.Effects[:0]
	for _, e := range s.Effects {
		if e.Active() {
			live = append(live, e)
		}
	}
	clear(s.Effects[len(live):])
	s.Effects = live
}

func keepBurning(fires []*weapons.FirePool) []*weapons.FirePool {
	live := fires[:0]
	for _, f := range fires {
		if f.Active() {
			live = append(live, f)
		}
	}
	clear(fires[len(live):])
	return live
}

func (s *Simulation) detectEvents(marks []healthMark, dt float64) {
	for i := range s.eventCooldown {
		if s.eventCooldown[i] > 0 {
			s.eventCooldown[i] -= dt
		}
	}
	for i, m := range marks {
		if !m.alive || i >= len(s.Balls) {
			continue
		}
		b := s.Balls[i]
		if s.eventCooldown[i] > 0 {
			continue
		}
		if !b.Alive {
			s.emit(Event{Kind: EventDied, Name: b.Name})
			s.eventCooldown[i] = diedCooldown
			continue
		}
		if dmg := m.hp - b.Health; dmg >= hitEventMin {
			s.emit(Event{Kind: EventHit, Name: b.Name, Damage: dmg, HP: b.Health})
			s.eventCooldown[i] = hitCooldown
		}
	}
}
