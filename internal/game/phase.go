package game

// Phase is the single active stage of a turn.
type Phase uint8

const (
	Aiming Phase = iota
	Charging
	ProjectileFlying
	Settling
	Retreat
	TurnEnd
	GameOver
)

func (p Phase) String() string {
	switch p {
	case Aiming:
		return "aiming"

	case Charging:
		return "charging"

	case ProjectileFlying:
		return "projectile"

	case Settling:
		return "settling"

	case Retreat:
		return "retreat"

	case TurnEnd:
		return "turn_end"

	case GameOver:
		return "game_over"

	default:
		return "unknown"
	}
}

// Label is the HUD banner for the phase.
func (p Phase) Label() string {
	switch p {
	case Aiming:
		return "Your turn -- aim, then hold to charge"

	case Charging:
		return "Charging power -- release to fire!"

	case ProjectileFlying:
		return "Watch out!"

	case Settling:
		return "Settling..."

	case Retreat:
		return "Retreat! Move to safety!"

	case TurnEnd:
		return "Next turn..."

	case GameOver:
		return "Game Over"

	default:
		return ""
	}
}

// AllowsInput reports whether aiming, weapon selection and firing are legal.
func (p Phase) AllowsInput() bool {
	return p == Aiming || p == Charging
}

// AllowsMovement reports whether walk and jump are legal.
func (p Phase) AllowsMovement() bool {
	switch p {
	case Aiming, Charging, ProjectileFlying, Retreat:
		return true

	default:
		return false
	}
}

// PhaseFromWire maps the phase carried by a resync. A peer that missed the
// flight settles instead of replaying it.
func PhaseFromWire(s string) Phase {
	switch s {
	case "retreat":
		return Retreat

	case "projectile", "settling":
		return Settling

	case "turn_end":
		return TurnEnd

	default:
		return Aiming
	}
}
