package session

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/Scrimzay/ballwars/internal/game"
	"github.com/Scrimzay/ballwars/internal/terrain"
	"github.com/Scrimzay/ballwars/internal/weapons"
)

// Message type discriminators.
const (
	TypeInit           = "init"
	TypeState          = "state"
	TypeTurnAdvanced   = "turn_advanced"
	TypeInput          = "input"
	TypePosUpdate      = "pos_update"
	TypeBallState      = "ball_state"
	TypeAim            = "aim"
	TypeTerrainDamages = "terrain_damages"
	TypeTerrainSync    = "terrain_sync"
	TypeGameResync     = "game_resync"
	TypeRestart        = "restart"
	TypeForceAdvance   = "force_advance"
	TypeEndTurn        = "end_turn"
)

type WireBall struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	VX    float64 `json:"vx"`
	VY    float64 `json:"vy"`
	HP    int     `json:"hp"`
	Alive bool    `json:"alive"`
}

type InitWire struct {
	Type          string `json:"type"`
	MyPlayerIndex *int   `json:"myPlayerIndex,omitempty"`
	PlayerNames   string `json:"playerNames"` // comma separated
	PlayerBots    string `json:"playerBots"`  // comma separated 0/1
	RNGSeed       uint32 `json:"rngSeed"`
	Token         string `json:"token,omitempty"` // seat token for rejoining
}

type TurnState struct {
	CurrentTurnIndex int `json:"currentTurnIndex"`
}

type StateWire struct {
	Type                string    `json:"type"`
	State               TurnState `json:"state"`
	TurnTimeRemainingMs int64     `json:"turnTimeRemainingMs"`
}

type TurnAdvancedWire struct {
	Type      string `json:"type"`
	TurnIndex int    `json:"turnIndex"`
}

// InputWire carries the action as an encoded JSON string, the form every
// client already speaks. The relay fills TurnIndex.
type InputWire struct {
	Type      string `json:"type"`
	TurnIndex *int   `json:"turnIndex,omitempty"`
	Input     string `json:"input"`
}

type PosUpdateWire struct {
	Type string  `json:"type"`
	Bi   int     `json:"bi"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	VX   float64 `json:"vx"`
	VY   float64 `json:"vy"`
}

type BallStateWire struct {
	Type  string     `json:"type"`
	Balls []WireBall `json:"balls"`
}

type AimWire struct {
	Type      string  `json:"type"`
	TurnIndex *int    `json:"turnIndex,omitempty"`
	Aim       float64 `json:"aim"`
}

// TerrainWire is both terrain_damages (client upload) and terrain_sync
// (relay replay). Entries are [type,a,b,c].
type TerrainWire struct {
	Type string  `json:"type"`
	Log  [][]int `json:"log"`
}

type ResyncWire struct {
	Type                string     `json:"type"`
	Balls               []WireBall `json:"balls"`
	CurrentTurnIndex    int        `json:"currentTurnIndex"`
	Phase               string     `json:"phase"`
	TurnTimeRemainingMs int64      `json:"turnTimeRemainingMs"`
}

type RestartWire struct {
	Type string `json:"type"`
	Seed uint32 `json:"seed"`
}

// SignalWire is a message with no payload: force_advance and end_turn.
type SignalWire struct {
	Type string `json:"type"`
}

// EmptyPayload is the body of Jump and Backflip.
type EmptyPayload struct{}

type FirePayload struct {
	Weapon       string  `json:"weapon"`
	AngleDeg     float64 `json:"angle_deg"`
	PowerPercent float64 `json:"power_percent"`
}

type MovePayload struct {
	Dir float64 `json:"dir"`
}

type StrikePayload struct {
	Weapon string  `json:"weapon"`
	X      float64 `json:"x"`
}

type WallPayload struct {
	AX    float64 `json:"ax"`
	AY    float64 `json:"ay"`
	Angle float64 `json:"angle"`
}

type TeleportPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type BatPayload struct {
	Angle float64 `json:"angle"`
}

type DrillPayload struct {
	BX    float64 `json:"bx"`
	BY    float64 `json:"by"`
	Angle float64 `json:"angle"`
}

func ToWire(balls []game.BallState) []WireBall {
	out := make([]WireBall, len(balls))
	for i, b := range balls {
		out[i] = WireBall{X: b.X, Y: b.Y, VX: b.VX, VY: b.VY, HP: b.HP, Alive: b.Alive}
	}
	return out
}

// strikeName is how strikes name their weapon on the wire.
func strikeName(w weapons.Weapon) string {
	if w == weapons.NapalmStrike {
		return "NapalmStrike"
	}
	return "Airstrike"
}

// EncodeInput renders an action as the externally tagged payload, e.g.
// {"Fire":{"weapon":"Bazooka","angle_deg":-45,"power_percent":60}}.
func EncodeInput(in game.Input) ([]byte, error) {
	var body any
	switch in.Kind {
	case game.InputFire:
		body = FirePayload{Weapon: in.Weapon.String(), AngleDeg: in.Angle * 180 / math.Pi, PowerPercent: in.Power}

	case game.InputMove:
		body = MovePayload{Dir: in.Dir}

	case game.InputJump, game.InputBackflip:
		body = EmptyPayload{}

	case game.InputStrike:
		body = StrikePayload{Weapon: strikeName(in.Weapon), X: in.X}

	case game.InputWall:
		body = WallPayload{AX: in.X, AY: in.Y, Angle: in.Angle}

	case game.InputTeleport:
		body = TeleportPayload{X: in.X, Y: in.Y}

	case game.InputBat:
		body = BatPayload{Angle: in.Angle}

	case game.InputDrill:
		body = DrillPayload{BX: in.X, BY: in.Y, Angle: in.Angle}

	default:
		return nil, fmt.Errorf("encode input %v: %w", in.Kind, ErrUnknownType)
	}
	return json.Marshal(map[string]any{in.Kind.String(): body})
}

// Encode renders something the simulation published.
func Encode(m game.Outbound) ([]byte, error) {
	switch m := m.(type) {
	case game.BallStateMsg:
		return json.Marshal(BallStateWire{Type: TypeBallState, Balls: ToWire(m.Balls)})

	case game.TerrainOpsMsg:
		return json.Marshal(TerrainWire{Type: TypeTerrainDamages, Log: terrain.EncodeOps(m.Ops)})

	case game.EndTurnMsg:
		return json.Marshal(SignalWire{Type: TypeEndTurn})

	case game.InputMsg:
		payload, err := EncodeInput(m.Input)
		if err != nil {
			return nil, err
		}
		return json.Marshal(InputWire{Type: TypeInput, Input: string(payload)})

	case game.AimMsg:
		return json.Marshal(AimWire{Type: TypeAim, Aim: m.Angle})

	case game.RestartMsg:
		return json.Marshal(RestartWire{Type: TypeRestart, Seed: m.Seed})

	default:
		return nil, fmt.Errorf("encode %T: %w", m, ErrUnknownType)
	}
}

func EncodePos(p PosUpdate) ([]byte, error) {
	return json.Marshal(PosUpdateWire{Type: TypePosUpdate, Bi: p.Ball, X: p.X, Y: p.Y, VX: p.VX, VY: p.VY})
}

// JoinNames and JoinBots produce the comma lists init carries.
func JoinNames(names []string) string {
	return strings.Join(names, ",")
}

func JoinBots(bots []bool) string {
	parts := make([]string, len(bots))
	for i, b := range bots {
		parts[i] = "0"
		if b {
			parts[i] = "1"
		}
	}
	return strings.Join(parts, ",")
}

// Millis converts seconds of turn time to the wire's milliseconds.
func Millis(seconds float64) int64 {
	return int64(math.Round(seconds * 1000))
}
