package session

import (
	"github.com/Scrimzay/ballwars/internal/game"
	"github.com/charmbracelet/log"
)

type Options struct {
	Logger   *log.Logger
	Journal  *Journal // records inbound traffic when set
	StreamHz float64
}

// Session binds a simulation to a transport. It decides which inbound
// messages are authoritative for the local peer and ships what the
// simulation publishes. Like the simulation it has one caller: the loop
// calling Step.
type Session struct {
	Sim *game.Simulation

	transport   Transport
	streamer    *Streamer
	journal     *Journal
	logger      *log.Logger
	reconnected bool
	expected    string // terrain checksum the relay advertised
	desynced    bool
	tick        uint64
}

func New(sim *game.Simulation, t Transport, opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	s := &Session{
		Sim:       sim,
		transport: t,
		streamer:  NewStreamer(opts.StreamHz),
		journal:   opts.Journal,
		logger:    opts.Logger,
	}
	if s.journal != nil {
		s.journal.begin(sim)
	}
	return s
}

// Step runs one frame: apply inbound messages, tick the simulation, then
// send the position stream and whatever the tick published.
func (s *Session) Step(dt float64) {
	s.tick++
	for _, raw := range s.transport.Poll() {
		if s.journal != nil {
			s.journal.record(s.tick, raw)
		}
		s.Apply(raw)
	}
	if s.journal != nil {
		s.journal.step(dt)
	}

	s.Sim.Update(dt)

	if s.Sim.Authority.Online() {
		if p, ok := s.streamer.Sample(s.Sim, dt); ok {
			s.send(EncodePos(p))
		}
	}
	s.Flush()
}

// Flush sends everything the simulation queued for peers.
func (s *Session) Flush() {
	for _, m := range s.Sim.TakeOutbound() {
		s.send(Encode(m))
	}
}

func (s *Session) send(msg []byte, err error) {
	if err != nil {
		s.logger.Warn("encode failed", "err", err)
		return
	}
	if err := s.transport.Send(msg); err != nil {
		s.logger.Debug("send failed", "err", err)
	}
}

// ExpectChecksum records the terrain checksum the relay advertised. The
// next terrain_sync is checked against it.
func (s *Session) ExpectChecksum(sum string) {
	s.expected = sum
}

// Desynced reports whether the last terrain_sync left local terrain
// different from the relay's.
func (s *Session) Desynced() bool {
	return s.desynced
}

// Apply handles one raw inbound message. Malformed or unknown messages are
// dropped; the error is returned for callers that care.
func (s *Session) Apply(raw []byte) error {
	m, err := Decode(raw)
	if err != nil {
		s.logger.Debug("dropped message", "err", err)
		return err
	}
	s.handle(m)
	return nil
}

func (s *Session) handle(m Message) {
	sim := s.Sim
	switch m := m.(type) {
	case Init:
		s.applyInit(m)

	case State:
		fresh := s.reconnected || m.Turn != sim.CurrentTurnIndex
		s.reconnected = false
		if fresh {
			sim.HandOff(m.Turn)
		}
		if m.Remaining != nil {
			sim.SetTurnTimer(*m.Remaining)
		}

	case TurnAdvanced:
		if m.Turn != sim.CurrentTurnIndex || sim.Phase == game.TurnEnd {
			sim.HandOff(m.Turn)
		}

	case InputEvent:
		sim.FlushPending()
		if m.Turn == nil || s.isMine(*m.Turn) {
			return
		}
		sim.ApplyInput(*m.Turn, m.Input)

	case PosUpdate:
		sim.SetStreamTarget(m.Ball, m.X, m.Y, m.VX, m.VY)

	case BallState:
		sim.ApplyBallState(m.Balls)

	case Aim:
		if m.Turn == nil || s.isMine(*m.Turn) {
			return
		}
		sim.SetRemoteAim(*m.Turn, m.Angle)

	case TerrainOps:
		sim.ApplyTerrainOps(m.Ops)
		if m.Sync && s.expected != "" {
			sum := sim.Terrain.Checksum()
			s.desynced = sum != s.expected
			if s.desynced {
				s.logger.Warn("terrain checksum differs from relay", "local", sum, "relay", s.expected)
			}
		}

	case GameResync:
		turn := sim.CurrentTurnIndex
		if m.Turn != nil {
			turn = *m.Turn
		}
		sim.Resync(m.Balls, turn, m.Phase, m.Remaining)
		s.reconnected = false
		s.logger.Info("resynced", "turn", turn, "phase", sim.Phase, "timer", sim.TurnTimer)

	case Restart:
		sim.ScheduleRestart(m.Seed)

	case ForceAdvance:
		sim.ForceAdvance()

	case EndTurn:
		// relay bound
	}
}

// applyInit sets identity and rebuilds the round when the relay's seed or
// player count differs from ours. Either way the next state or resync is
// applied unconditionally.
func (s *Session) applyInit(m Init) {
	sim := s.Sim
	s.reconnected = true
	if m.Seat != nil && *m.Seat >= 0 {
		sim.Authority = game.IndexMatch(*m.Seat)
	}
	if len(m.Names) > 0 {
		sim.Names = m.Names
	}
	if len(m.Bots) > 0 {
		sim.Bots = m.Bots
	}

	teams := sim.Teams
	if n := m.Players(); n > 0 {
		teams = n
	}
	if m.Seed != nil && (*m.Seed != sim.Seed || teams != sim.Teams) {
		s.logger.Info("regenerating round", "seed", *m.Seed, "teams", teams)
		sim.Reset(*m.Seed, teams)
	}
	seat, _ := sim.Authority.Seat()
	s.logger.Info("joined", "seat", seat, "players", sim.Names)
}

func (s *Session) isMine(turn int) bool {
	seat, ok := s.Sim.Authority.Seat()
	return ok && seat == turn
}
