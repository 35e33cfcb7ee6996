package session

import (
	"github.com/invopop/jsonschema"
)

// WireSchema describes every wire message, keyed by its type. Input
// payloads are keyed "input.<Variant>".
func WireSchema() map[string]*jsonschema.Schema {
	r := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}
	docs := map[string]any{
		TypeInit:           InitWire{},
		TypeState:          StateWire{},
		TypeTurnAdvanced:   TurnAdvancedWire{},
		TypeInput:          InputWire{},
		TypePosUpdate:      PosUpdateWire{},
		TypeBallState:      BallStateWire{},
		TypeAim:            AimWire{},
		TypeTerrainDamages: TerrainWire{},
		TypeTerrainSync:    TerrainWire{},
		TypeGameResync:     ResyncWire{},
		TypeRestart:        RestartWire{},
		TypeForceAdvance:   SignalWire{},
		TypeEndTurn:        SignalWire{},

		"input.Fire":            FirePayload{},
		"input.Move":            MovePayload{},
		"input.Jump":            EmptyPayload{},
		"input.Backflip":        EmptyPayload{},
		"input.AirstrikeTarget": StrikePayload{},
		"input.BuildWallPlace":  WallPayload{},
		"input.TeleportTo":      TeleportPayload{},
		"input.BatSwing":        BatPayload{},
		"input.DrillFire":       DrillPayload{},
	}
	out := make(map[string]*jsonschema.Schema, len(docs))
	for name, v := range docs {
		s := r.Reflect(v)
		s.Title = name
		out[name] = s
	}
	return out
}
