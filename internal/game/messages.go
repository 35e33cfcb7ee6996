package game

import (
	"github.com/Scrimzay/ballwars/internal/terrain"
	"github.com/Scrimzay/ballwars/internal/weapons"
)

type InputKind uint8

const (
	InputFire InputKind = iota
	InputMove
	InputJump
	InputBackflip
	InputStrike
	InputWall
	InputTeleport
	InputBat
	InputDrill
)

func (k InputKind) String() string {
	switch k {
	case InputFire:
		return "Fire"

	case InputMove:
		return "Move"

	case InputJump:
		return "Jump"

	case InputBackflip:
		return "Backflip"

	case InputStrike:
		return "AirstrikeTarget"

	case InputWall:
		return "BuildWallPlace"

	case InputTeleport:
		return "TeleportTo"

	case InputBat:
		return "BatSwing"

	case InputDrill:
		return "DrillFire"

	default:
		return "Unknown"
	}
}

// Input is one action by the turn owner. Angles are radians.
type Input struct {
	Kind   InputKind
	Weapon weapons.Weapon // Fire, Strike
	Angle  float64        // Fire, Wall, Bat, Drill
	Power  float64        // Fire, percent
	Dir    float64        // Move
	X, Y   float64        // Strike uses X only; Wall anchor; Teleport target; Drill origin
}

// BallState is the full public state of one ball.
type BallState struct {
	X, Y   float64
	VX, VY float64
	HP     int
	Alive  bool
}

// BallPatch carries whichever fields a peer sent for one ball.
type BallPatch struct {
	X, Y   *float64
	VX, VY *float64
	HP     *int
	Alive  *bool
}

// Outbound is something the simulation wants its peers to know. Delivery is
// fire and forget.
type Outbound interface {
	outbound()
}

type BallStateMsg struct{ Balls []BallState }

type TerrainOpsMsg struct{ Ops []terrain.Op }

type EndTurnMsg struct{}

type InputMsg struct{ Input Input }

type AimMsg struct{ Angle float64 }

type RestartMsg struct{ Seed uint32 }

func (BallStateMsg) outbound()  {}
func (TerrainOpsMsg) outbound() {}
func (EndTurnMsg) outbound()    {}
func (InputMsg) outbound()      {}
func (AimMsg) outbound()        {}
func (RestartMsg) outbound()    {}

type EventKind uint8

const (
	EventTurnStart EventKind = iota
	EventHit
	EventDied
	EventGameOver
)

func (k EventKind) String() string {
	switch k {
	case EventTurnStart:
		return "turn_start"

	case EventHit:
		return "hit"

	case EventDied:
		return "died"

	case EventGameOver:
		return "game_over"

	default:
		return "unknown"
	}
}

// Event is a HUD notification. Fields not meaningful for Kind are zero.
type Event struct {
	Kind   EventKind
	Name   string // player or ball name
	Ball   string // turn_start only
	Damage int
	HP     int
	Winner string
}
