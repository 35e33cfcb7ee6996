package game

// AuthorityMode selects how a simulation decides whether the local player
// owns the current turn.
type AuthorityMode uint8

const (
	// AuthorityAlways is offline play: every turn is local.
	AuthorityAlways AuthorityMode = iota
	// AuthorityAwaitIdentity blocks all control until the session names a seat.
	AuthorityAwaitIdentity
	// AuthorityIndexMatch owns only turns whose index equals Index.
	AuthorityIndexMatch
)

type TurnAuthority struct {
	Mode  AuthorityMode
	Index int
}

func Always() TurnAuthority { return TurnAuthority{Mode: AuthorityAlways} }

func AwaitIdentity() TurnAuthority { return TurnAuthority{Mode: AuthorityAwaitIdentity} }

func IndexMatch(n int) TurnAuthority { return TurnAuthority{Mode: AuthorityIndexMatch, Index: n} }

// Allows reports whether turn belongs to the local player.
func (a TurnAuthority) Allows(turn int) bool {
	switch a.Mode {
	case AuthorityAlways:
		return true

	case AuthorityIndexMatch:
		return turn == a.Index

	default:
		return false
	}
}

// Online is true whenever peers exist, even before an identity arrives.
func (a TurnAuthority) Online() bool {
	return a.Mode != AuthorityAlways
}

// Seat returns the local seat index, if known.
func (a TurnAuthority) Seat() (int, bool) {
	if a.Mode != AuthorityIndexMatch {
		return 0, false
	}
	return a.Index, true
}
