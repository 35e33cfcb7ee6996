package session

import (
	"fmt"
	"io"

	"github.com/Scrimzay/ballwars/internal/game"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// Record is one inbound message and the frame it was applied on.
type Record struct {
	Tick uint64 `msgpack:"t"`
	Raw  []byte `msgpack:"m"`
}

// Journal captures everything needed to replay a peer's view of a match:
// the starting round, every frame's dt and every inbound message. Local
// control calls are not recorded, so replays are exact for spectators and
// bot-driven peers.
type Journal struct {
	Seed    uint32    `msgpack:"seed"`
	Teams   int       `msgpack:"teams"`
	Seat    int       `msgpack:"seat"` // -1 before identity
	Names   []string  `msgpack:"names"`
	Bots    []bool    `msgpack:"bots"`
	Steps   []float64 `msgpack:"steps"`
	Records []Record  `msgpack:"records"`
}

func (j *Journal) begin(sim *game.Simulation) {
	j.Seed = sim.Seed
	j.Teams = sim.Teams
	j.Seat = -1
	if seat, ok := sim.Authority.Seat(); ok {
		j.Seat = seat
	}
	j.Names = append([]string(nil), sim.Names...)
	j.Bots = append([]bool(nil), sim.Bots...)
	j.Steps = j.Steps[:0]
	j.Records = j.Records[:0]
}

func (j *Journal) record(tick uint64, raw []byte) {
	j.Records = append(j.Records, Record{Tick: tick, Raw: append([]byte(nil), raw...)})
}

func (j *Journal) step(dt float64) {
	j.Steps = append(j.Steps, dt)
}

func (j *Journal) Marshal() ([]byte, error) {
	return msgpack.Marshal(j)
}

func (j *Journal) Save(w io.Writer) error {
	if err := msgpack.NewEncoder(w).Encode(j); err != nil {
		return fmt.Errorf("save journal: %w", err)
	}
	return nil
}

func LoadJournal(r io.Reader) (*Journal, error) {
	var j Journal
	if err := msgpack.NewDecoder(r).Decode(&j); err != nil {
		return nil, fmt.Errorf("load journal: %w", err)
	}
	return &j, nil
}

func UnmarshalJournal(b []byte) (*Journal, error) {
	var j Journal
	if err := msgpack.Unmarshal(b, &j); err != nil {
		return nil, fmt.Errorf("unmarshal journal: %w", err)
	}
	return &j, nil
}

// ReplayJournal rebuilds the match from j and returns the final state.
func ReplayJournal(j *Journal, logger *log.Logger) *game.Simulation {
	if logger == nil {
		logger = log.Default()
	}
	auth := game.AwaitIdentity()
	if j.Seat >= 0 {
		auth = game.IndexMatch(j.Seat)
	}
	sim := game.New(j.Seed, game.Options{
		Teams:     j.Teams,
		Authority: auth,
		Names:     j.Names,
		Bots:      j.Bots,
		Logger:    logger,
	})
	s := New(sim, Discard{}, Options{Logger: logger})

	next := 0
	for i, dt := range j.Steps {
		tick := uint64(i + 1)
		for next < len(j.Records) && j.Records[next].Tick == tick {
			s.Apply(j.Records[next].Raw)
			next++
		}
		sim.Update(dt)
		sim.TakeOutbound()
	}
	return sim
}
