package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Scrimzay/ballwars/internal/game"
	"github.com/Scrimzay/ballwars/internal/terrain"
	"github.com/Scrimzay/ballwars/internal/weapons"
)

var (
	ErrUnknownType = errors.New("unknown message type")
	ErrMalformed   = errors.New("malformed message")
)

// Message is one decoded wire message.
type Message interface {
	Type() string
}

type Init struct {
	Seat  *int
	Names []string
	Bots  []bool
	Seed  *uint32
}

// Players is the team count init implies.
func (m Init) Players() int {
	return max(len(m.Names), len(m.Bots))
}

type State struct {
	Turn      int
	Remaining *float64 // seconds
}

type TurnAdvanced struct {
	Turn int
}

type InputEvent struct {
	Turn  *int
	Input game.Input
}

type PosUpdate struct {
	Ball         int
	X, Y, VX, VY float64
}

type BallState struct {
	Balls []game.BallPatch
}

type Aim struct {
	Turn  *int
	Angle float64
}

type TerrainOps struct {
	Ops  []terrain.Op
	Sync bool // terrain_sync from the relay rather than a peer upload
}

type GameResync struct {
	Balls     []game.BallPatch
	Turn      *int
	Phase     string
	Remaining *float64
}

type Restart struct {
	Seed uint32
}

type ForceAdvance struct{}

type EndTurn struct{}

func (Init) Type() string         { return TypeInit }
func (State) Type() string        { return TypeState }
func (TurnAdvanced) Type() string { return TypeTurnAdvanced }
func (InputEvent) Type() string   { return TypeInput }
func (PosUpdate) Type() string    { return TypePosUpdate }
func (BallState) Type() string    { return TypeBallState }
func (Aim) Type() string          { return TypeAim }
func (ForceAdvance) Type() string { return TypeForceAdvance }
func (EndTurn) Type() string      { return TypeEndTurn }
func (GameResync) Type() string   { return TypeGameResync }
func (Restart) Type() string      { return TypeRestart }

func (m TerrainOps) Type() string {
	if m.Sync {
		return TypeTerrainSync
	}
	return TypeTerrainDamages
}

type fields map[string]any

// Decode parses one message. Unknown types give ErrUnknownType; a known
// type missing a required field gives ErrMalformed. Optional fields fall
// back to defaults.
func Decode(raw []byte) (Message, error) {
	var f fields
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	kind, _ := f["type"].(string)

	switch kind {
	case TypeInit:
		return decodeInit(f)

	case TypeState:
		turn, ok := f.obj("state").integer("currentTurnIndex")
		if !ok {
			turn, ok = f.integer("currentTurnIndex")
		}
		if !ok {
			return nil, malformed(kind, "currentTurnIndex")
		}
		return State{Turn: turn, Remaining: f.seconds("turnTimeRemainingMs")}, nil

	case TypeTurnAdvanced:
		turn, ok := f.integer("turnIndex")
		if !ok {
			return nil, malformed(kind, "turnIndex")
		}
		return TurnAdvanced{Turn: turn}, nil

	case TypeInput:
		in, err := decodeInput(f["input"])
		if err != nil {
			return nil, err
		}
		return InputEvent{Turn: f.optInt("turnIndex"), Input: in}, nil

	case TypePosUpdate:
		bi, ok1 := f.integer("bi")
		x, ok2 := f.num("x")
		y, ok3 := f.num("y")
		vx, ok4 := f.num("vx")
		vy, ok5 := f.num("vy")
		if !(ok1 && ok2 && ok3 && ok4 && ok5) {
			return nil, malformed(kind, "bi/x/y/vx/vy")
		}
		return PosUpdate{Ball: bi, X: x, Y: y, VX: vx, VY: vy}, nil

	case TypeBallState:
		balls, ok := f.balls()
		if !ok {
			return nil, malformed(kind, "balls")
		}
		return BallState{Balls: balls}, nil

	case TypeAim:
		a, ok := f.num("aim")
		if !ok {
			return nil, malformed(kind, "aim")
		}
		return Aim{Turn: f.optInt("turnIndex"), Angle: a}, nil

	case TypeTerrainDamages, TypeTerrainSync:
		ops, ok := f.ops()
		if !ok {
			return nil, malformed(kind, "log")
		}
		return TerrainOps{Ops: ops, Sync: kind == TypeTerrainSync}, nil

	case TypeGameResync:
		balls, _ := f.balls()
		phase, _ := f["phase"].(string)
		return GameResync{
			Balls:     balls,
			Turn:      f.optInt("currentTurnIndex"),
			Phase:     phase,
			Remaining: f.seconds("turnTimeRemainingMs"),
		}, nil

	case TypeRestart:
		seed, ok := f.seed("seed")
		if !ok {
			return nil, malformed(kind, "seed")
		}
		return Restart{Seed: seed}, nil

	case TypeForceAdvance:
		return ForceAdvance{}, nil

	case TypeEndTurn:
		return EndTurn{}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, kind)
	}
}

func malformed(kind, field string) error {
	return fmt.Errorf("%w: %s without %s", ErrMalformed, kind, field)
}

// init fields may sit at the top level or under "data".
func decodeInit(f fields) (Init, error) {
	if d := f.obj("data"); d != nil {
		for k, v := range d {
			if _, ok := f[k]; !ok {
				f[k] = v
			}
		}
	}
	var m Init
	m.Seat = f.optInt("myPlayerIndex")
	if v, present := f["rngSeed"]; present && v != nil {
		seed, ok := f.seed("rngSeed")
		if !ok {
			return Init{}, malformed(TypeInit, "rngSeed")
		}
		m.Seed = &seed
	}
	for _, n := range f.list("playerNames") {
		m.Names = append(m.Names, fmt.Sprint(n))
	}
	for _, b := range f.list("playerBots") {
		m.Bots = append(m.Bots, truthy(b))
	}
	return m, nil
}

func truthy(v any) bool {
	switch v := v.(type) {
	case bool:
		return v

	case float64:
		return v != 0

	case string:
		s := strings.TrimSpace(v)
		return s == "1" || strings.EqualFold(s, "true")

	default:
		return false
	}
}

// decodeInput accepts the payload as an object or as a JSON string holding
// one. Unit variants may also arrive as a bare name.
func decodeInput(v any) (game.Input, error) {
	var p fields
	switch v := v.(type) {
	case map[string]any:
		p = v

	case string:
		s := strings.TrimSpace(v)
		if !strings.HasPrefix(s, "{") {
			p = fields{strings.Trim(s, `"`): map[string]any{}}
			break
		}
		if err := json.Unmarshal([]byte(s), &p); err != nil {
			return game.Input{}, fmt.Errorf("%w: input payload: %v", ErrMalformed, err)
		}

	default:
		return game.Input{}, malformed(TypeInput, "input")
	}

	for _, tag := range inputTags {
		body, ok := p[tag]
		if !ok {
			continue
		}
		b, _ := body.(map[string]any)
		return decodeAction(tag, fields(b))
	}
	return game.Input{}, fmt.Errorf("%w: input variant", ErrUnknownType)
}

// inputTags is the order variants are looked for when a payload carries
// more than one.
var inputTags = []string{
	"Fire", "Move", "Walk", "Jump", "Backflip",
	"AirstrikeTarget", "BuildWallPlace", "TeleportTo", "BatSwing", "DrillFire",
}

func decodeAction(tag string, b fields) (game.Input, error) {
	switch tag {
	case "Fire":
		name, _ := b["weapon"].(string)
		w, ok := weapons.FromName(name)
		deg, ok2 := b.num("angle_deg")
		power, ok3 := b.num("power_percent")
		if !(ok && ok2 && ok3) {
			return game.Input{}, malformed("Fire", "weapon/angle_deg/power_percent")
		}
		return game.Input{Kind: game.InputFire, Weapon: w, Angle: deg * math.Pi / 180, Power: power}, nil

	case "Move", "Walk":
		dir, ok := b.num("dir")
		if !ok {
			return game.Input{}, malformed(tag, "dir")
		}
		return game.Input{Kind: game.InputMove, Dir: dir}, nil

	case "Jump":
		return game.Input{Kind: game.InputJump}, nil

	case "Backflip":
		return game.Input{Kind: game.InputBackflip}, nil

	case "AirstrikeTarget":
		x, ok := b.num("x")
		if !ok {
			return game.Input{}, malformed(tag, "x")
		}
		w := weapons.Airstrike
		if name, _ := b["weapon"].(string); strings.Contains(name, "Napalm") {
			w = weapons.NapalmStrike
		}
		return game.Input{Kind: game.InputStrike, Weapon: w, X: x}, nil

	case "BuildWallPlace":
		ax, ok1 := b.num("ax")
		ay, ok2 := b.num("ay")
		a, ok3 := b.num("angle")
		if !(ok1 && ok2 && ok3) {
			return game.Input{}, malformed(tag, "ax/ay/angle")
		}
		return game.Input{Kind: game.InputWall, X: ax, Y: ay, Angle: a}, nil

	case "TeleportTo":
		x, ok1 := b.num("x")
		y, ok2 := b.num("y")
		if !(ok1 && ok2) {
			return game.Input{}, malformed(tag, "x/y")
		}
		return game.Input{Kind: game.InputTeleport, X: x, Y: y}, nil

	case "BatSwing":
		a, ok := b.num("angle")
		if !ok {
			return game.Input{}, malformed(tag, "angle")
		}
		return game.Input{Kind: game.InputBat, Angle: a}, nil

	case "DrillFire":
		bx, ok1 := b.num("bx")
		by, ok2 := b.num("by")
		a, ok3 := b.num("angle")
		if !(ok1 && ok2 && ok3) {
			return game.Input{}, malformed(tag, "bx/by/angle")
		}
		return game.Input{Kind: game.InputDrill, X: bx, Y: by, Angle: a}, nil

	default:
		return game.Input{}, ErrUnknownType
	}
}

func (f fields) num(key string) (float64, bool) {
	switch v := f[key].(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return v, true

	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true

	default:
		return 0, false
	}
}

func (f fields) integer(key string) (int, bool) {
	n, ok := f.num(key)
	if !ok {
		return 0, false
	}
	return int(n), true
}

// seed accepts whole numbers that fit a uint32.
func (f fields) seed(key string) (uint32, bool) {
	n, ok := f.num(key)
	if !ok || n < 0 || n > math.MaxUint32 || n != math.Trunc(n) {
		return 0, false
	}
	return uint32(n), true
}

func (f fields) optInt(key string) *int {
	n, ok := f.integer(key)
	if !ok {
		return nil
	}
	return &n
}

func (f fields) seconds(key string) *float64 {
	ms, ok := f.num(key)
	if !ok {
		return nil
	}
	s := ms / 1000
	return &s
}

func (f fields) obj(key string) fields {
	if f == nil {
		return nil
	}
	m, _ := f[key].(map[string]any)
	return m
}

// list reads an array or a comma separated string.
func (f fields) list(key string) []any {
	switch v := f[key].(type) {
	case []any:
		return v

	case string:
		if v == "" {
			return nil
		}
		parts := strings.Split(v, ",")
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = p
		}
		return out

	default:
		return nil
	}
}

func (f fields) balls() ([]game.BallPatch, bool) {
	raw, ok := f["balls"].([]any)
	if !ok {
		return nil, false
	}
	out := make([]game.BallPatch, 0, len(raw))
	for _, r := range raw {
		b := fields(nil)
		if m, ok := r.(map[string]any); ok {
			b = m
		}
		var p game.BallPatch
		if v, ok := b.num("x"); ok {
			p.X = &v
		}
		if v, ok := b.num("y"); ok {
			p.Y = &v
		}
		if v, ok := b.num("vx"); ok {
			p.VX = &v
		}
		if v, ok := b.num("vy"); ok {
			p.VY = &v
		}
		if v, ok := b.integer("hp"); ok {
			p.HP = &v
		}
		if v, ok := b["alive"].(bool); ok {
			p.Alive = &v
		}
		out = append(out, p)
	}
	return out, true
}

func (f fields) ops() ([]terrain.Op, bool) {
	raw, ok := f["log"].([]any)
	if !ok {
		return nil, false
	}
	entries := make([][]int, 0, len(raw))
	for _, r := range raw {
		arr, ok := r.([]any)
		if !ok {
			continue
		}
		e := make([]int, 0, len(arr))
		for _, v := range arr {
			n, ok := v.(float64)
			if !ok {
				e = nil
				break
			}
			e = append(e, int(n))
		}
		if e != nil {
			entries = append(entries, e)
		}
	}
	return terrain.DecodeOps(entries), true
}
