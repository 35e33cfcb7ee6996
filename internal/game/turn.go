package game

import "github.com/Scrimzay/ballwars/internal/terrain"

// EndTurn hands the turn off. When online it publishes the final ball and
// terrain state and asks the relay to advance; the relay ignores requests
// from seats that do not own the turn.
func (s *Simulation) EndTurn() {
	if s.Phase == GameOver {
		return
	}
	if s.Authority.Online() {
		s.publish(BallStateMsg{Balls: s.Snapshot()})
		s.publishTerrain()
		s.publish(EndTurnMsg{})
	}
	s.Phase = TurnEnd
	s.TurnEndTimer = TurnEndDelay
	s.Charging = false
	s.Power = 0
	s.discardEffects()
}

// discardEffects drops every weapon object still resolving. A phase switch
// never lets a shot from the old phase finish in the new one.
func (s *Simulation) discardEffects() {
	clear(s.Effects)
	s.Effects = s.Effects[:0]
	s.arena.TakeSpawned()
}

func (s *Simulation) publishTerrain() {
	if ops := s.TerrainOps(); len(ops) > 0 {
		s.publish(TerrainOpsMsg{Ops: ops})
	}
}

// AdvanceTurn moves to the next living ball in index order. It is the
// offline rule and the fallback when the relay goes silent.
func (s *Simulation) AdvanceTurn() {
	if s.checkGameOver() {
		return
	}
	n := len(s.Balls)
	if n == 0 {
		return
	}
	start := s.CurrentBall
	next := (start + 1) % n
	for !s.Balls[next].Alive && next != start {
		next = (next + 1) % n
	}
	s.CurrentBall = next
	s.CurrentTurnIndex = s.Balls[next].Team
	s.resetTurnState()
}

// SyncToPlayerTurn gives the turn to team, picking its next living ball
// after the one it used last so every ball gets a go.
func (s *Simulation) SyncToPlayerTurn(team int) {
	if s.checkGameOver() {
		return
	}
	if len(s.Balls) == 0 || team < 0 {
		return
	}
	for len(s.lastBallPerTeam) <= team {
		s.lastBallPerTeam = append(s.lastBallPerTeam, -1)
	}

	var mine []int
	for i, b := range s.Balls {
		if b.Alive && b.Team == team {
			mine = append(mine, i)
		}
	}
	if len(mine) == 0 {
		for i, b := range s.Balls {
			if b.Alive {
				s.CurrentBall = i
				s.resetTurnState()
				return
			}
		}
		return
	}

	chosen := mine[0]
	if prev := s.lastBallPerTeam[team]; prev >= 0 {
		for _, i := range mine {
			if i > prev {
				chosen = i
				break
			}
		}
	}
	s.lastBallPerTeam[team] = chosen
	s.CurrentBall = chosen
	s.logger.Debug("turn synced", "team", team, "ball", chosen, "name", s.Balls[chosen].Name)
	s.resetTurnState()
}

func (s *Simulation) resetTurnState() {
	if b := s.current(); b != nil {
		s.emit(Event{Kind: EventTurnStart, Name: s.playerName(b.Team), Ball: b.Name})
	}
	s.Phase = Aiming
	s.discardEffects()
	s.TurnTimer = s.opts.TurnTime
	s.HasFired = false
	s.RetreatTimer = 0
	s.Charging = false
	s.Power = 0
	s.clearTargeting()
	s.botThink = botThinkTime
	s.StuckTimer = 0

	if b := s.current(); b != nil {
		b.ResetMovementBudget()
		s.Aim = aimFor(b)
	}

	s.RNG = terrain.LCG(s.RNG)
	s.Wind = windFrom(s.RNG)
	s.arena.Wind = s.Wind
	s.Turn++
}

// checkGameOver ends the round once one team or none is left standing.
func (s *Simulation) checkGameOver() bool {
	if s.Phase == GameOver {
		return true
	}
	seen := make(map[int]bool)
	alive := -1
	for _, b := range s.Balls {
		if b.Alive && !seen[b.Team] {
			seen[b.Team] = true
			alive = b.Team
		}
	}
	if len(seen) > 1 {
		return false
	}

	s.Phase = GameOver
	s.Winner = alive
	s.discardEffects()
	winner := "Someone"
	if alive >= 0 {
		winner = s.playerName(alive)
	}
	s.logger.Info("game over", "winner", winner)
	s.emit(Event{Kind: EventGameOver, Winner: winner})
	return true
}

// HandOff applies an authoritative turn owner. While a shot is resolving
// the sync is deferred until the phase concludes.
func (s *Simulation) HandOff(team int) {
	s.CurrentTurnIndex = team
	switch s.Phase {
	case Aiming, Charging, TurnEnd:
		s.SyncToPlayerTurn(team)

	case GameOver:

	default:
		s.pendingSync = team
	}
}

// applyPending runs a deferred hand-off and reports whether there was one.
func (s *Simulation) applyPending() bool {
	if s.pendingSync < 0 {
		return false
	}
	team := s.pendingSync
	s.pendingSync = -1
	s.SyncToPlayerTurn(team)
	return true
}

// ForceAdvance is the relay watchdog: cut any stalled phase that can end a
// turn. A shot still resolving is left alone; the hand-off that follows is
// deferred as usual.
func (s *Simulation) ForceAdvance() {
	switch s.Phase {
	case Aiming, Charging, TurnEnd, Retreat:
		s.logger.Warn("forced advance", "phase", s.Phase)
		s.Phase = TurnEnd
		s.TurnEndTimer = forceAdvanceDelay
		s.Charging = false
		s.discardEffects()
	}
}

// SetTurnTimer applies the relay's remaining turn time.
func (s *Simulation) SetTurnTimer(seconds float64) {
	s.TurnTimer = max(0, min(seconds, s.opts.TurnTime))
}

// ApplyBallState patches balls in index order. Death is permanent, so a
// patch can kill a ball but never revive one.
func (s *Simulation) ApplyBallState(patches []BallPatch) {
	s.ClearStreamTargets()
	for i, p := range patches {
		if i >= len(s.Balls) {
			break
		}
		b := s.Balls[i]
		if !b.Alive {
			continue
		}
		x, y, vx, vy := b.X, b.Y, b.VX, b.VY
		if p.X != nil {
			x = *p.X
		}
		if p.Y != nil {
			y = *p.Y
		}
		if p.VX != nil {
			vx = *p.VX
		}
		if p.VY != nil {
			vy = *p.VY
		}
		b.Snap(x, y, vx, vy)
		if p.HP != nil {
			b.Health = *p.HP
			if b.Health <= 0 {
				b.Kill()
			}
		}
		if p.Alive != nil && !*p.Alive {
			b.Kill()
		}
	}
}

// ApplyTerrainOps replays a cumulative op log from a peer.
func (s *Simulation) ApplyTerrainOps(ops []terrain.Op) {
	s.Ops.Apply(s.Terrain, ops)
}

// Resync applies a full reconnection snapshot.
func (s *Simulation) Resync(patches []BallPatch, team int, phase string, remaining *float64) {
	s.ApplyBallState(patches)
	s.CurrentTurnIndex = team
	s.pendingSync = -1
	s.SyncToPlayerTurn(team)
	if s.Phase == GameOver {
		return
	}
	s.Phase = PhaseFromWire(phase)
	s.discardEffects()
	if s.Phase == Settling {
		s.SettleTimer = 0
	}
	if remaining != nil {
		s.TurnTimer = max(0, *remaining)
	}
}

// RequestRestart starts a new round after GameOver. Online the seed goes to
// the relay, which broadcasts the restart to everyone including us.
func (s *Simulation) RequestRestart() {
	if s.Phase != GameOver {
		return
	}
	seed := terrain.LCG(s.RNG)
	if s.Authority.Online() {
		s.publish(RestartMsg{Seed: seed})
		return
	}
	s.restartSeed = &seed
}

// ScheduleRestart defers a rebuild with seed to the next tick.
func (s *Simulation) ScheduleRestart(seed uint32) {
	s.restartSeed = &seed
}

// FlushPending applies a deferred hand-off now. Inbound input does this so
// a replayed shot lands on the right ball.
func (s *Simulation) FlushPending() bool {
	return s.applyPending()
}
