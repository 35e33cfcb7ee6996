package session

import (
	"math"
	"time"

	"github.com/Scrimzay/ballwars/internal/game"
	"golang.org/x/time/rate"
)

const (
	StreamHz      = 60
	streamEpsilon = 0.05
)

// Streamer decides when the acting ball's position goes out. It is paced by
// a rate limiter running on the simulation clock, and quiet while the ball
// is still.
type Streamer struct {
	limiter *rate.Limiter
	clock   time.Time
	last    *PosUpdate
	turn    int
}

func NewStreamer(hz float64) *Streamer {
	if hz <= 0 {
		hz = StreamHz
	}
	return &Streamer{
		limiter: rate.NewLimiter(rate.Limit(hz), 1),
		clock:   time.Unix(0, 0),
		turn:    -1,
	}
}

// Sample advances the clock by dt and returns an update when one is due.
func (st *Streamer) Sample(sim *game.Simulation, dt float64) (PosUpdate, bool) {
	st.clock = st.clock.Add(time.Duration(dt * float64(time.Second)))
	if sim.Turn != st.turn {
		st.turn = sim.Turn
		st.last = nil
	}

	bi, ok := sim.StreamedBall()
	if !ok {
		return PosUpdate{}, false
	}
	b := sim.Balls[bi]
	p := PosUpdate{Ball: bi, X: b.X, Y: b.Y, VX: b.VX, VY: b.VY}
	if !st.changed(p) {
		return PosUpdate{}, false
	}
	if !st.limiter.AllowN(st.clock, 1) {
		return PosUpdate{}, false
	}
	st.last = &p
	return p, true
}

func (st *Streamer) changed(p PosUpdate) bool {
	l := st.last
	if l == nil || l.Ball != p.Ball {
		return true
	}
	return math.Abs(l.X-p.X) >= streamEpsilon ||
		math.Abs(l.Y-p.Y) >= streamEpsilon ||
		math.Abs(l.VX-p.VX) >= streamEpsilon ||
		math.Abs(l.VY-p.VY) >= streamEpsilon
}
