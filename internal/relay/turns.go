package relay

import (
	"slices"

	"github.com/Scrimzay/ballwars/internal/game"
	"github.com/Scrimzay/ballwars/internal/physics"
	"github.com/Scrimzay/ballwars/internal/session"
	"github.com/Scrimzay/ballwars/internal/terrain"
)

// nextTurn is the seat after turn that still has a living ball. Ball i
// belongs to team i mod teams. With no snapshot every team counts as alive.
func nextTurn(turn, teams int, balls []session.WireBall) int {
	if teams <= 0 {
		return 0
	}
	for step := 1; step <= teams; step++ {
		t := (turn + step) % teams
		if teamAlive(t, teams, balls) {
			return t
		}
	}
	return turn
}

func teamAlive(team, teams int, balls []session.WireBall) bool {
	if len(balls) == 0 {
		return true
	}
	for i, b := range balls {
		if i%teams == team && b.Alive {
			return true
		}
	}
	return false
}

// mergeBalls folds a ball_state patch into the stored snapshot. As on the
// clients, a dead ball stays dead.
func mergeBalls(stored []session.WireBall, patches []game.BallPatch) []session.WireBall {
	for len(stored) < len(patches) {
		stored = append(stored, session.WireBall{HP: physics.MaxHealth, Alive: true})
	}
	for i, p := range patches {
		b := &stored[i]
		if !b.Alive {
			continue
		}
		if p.X != nil {
			b.X = *p.X
		}
		if p.Y != nil {
			b.Y = *p.Y
		}
		if p.VX != nil {
			b.VX = *p.VX
		}
		if p.VY != nil {
			b.VY = *p.VY
		}
		if p.HP != nil {
			b.HP = max(0, *p.HP)
		}
		if (p.Alive != nil && !*p.Alive) || b.HP <= 0 {
			b.Alive = false
			b.HP = 0
		}
	}
	return stored
}

// mergeOps folds an uploaded cumulative log into the stored one. Logs are
// ordered histories: an upload that extends the stored log replaces it and
// a stale prefix is dropped. When the two disagree the turn owner's log
// wins.
func mergeOps(stored, upload []terrain.Op, owner bool) []terrain.Op {
	switch {
	case terrain.IsPrefix(upload, stored):
		return stored

	case terrain.IsPrefix(stored, upload), owner:
		return slices.Clone(upload)

	default:
		return stored
	}
}
