package game

import (
	"math"

	"github.com/Scrimzay/ballwars/internal/physics"
	"github.com/Scrimzay/ballwars/internal/terrain"
	"github.com/Scrimzay/ballwars/internal/weapons"
	"github.com/charmbracelet/log"
)

const (
	BallsPerTeam = 3
	DefaultTeams = 2

	TurnTime       = 45.0
	TurnEndDelay   = 1.5
	SettleTimeout  = 5.0
	RetreatTime    = 5.0
	ChargeSpeed    = 55.0 // percent per second
	FlyingWatchdog = 30.0
	SafetyWindow   = 8.0 // extra TurnEnd wait for a hand-off before advancing locally
	MaxStep        = 1.0 / 30.0

	forceAdvanceDelay = 0.1
	remoteInputStep   = 1.0 / 60.0
	spawnLift         = 2
	fallbackSpawnY    = 400.0
)

var teamNames = [][BallsPerTeam]string{
	{"Spike", "Tank", "Blaze"},
	{"Frost", "Storm", "Shadow"},
	{"Viper", "Ghost", "Flash"},
	{"Rex", "Duke", "Scout"},
}

type Options struct {
	Teams     int
	Authority TurnAuthority
	Names     []string // player name per team, may be empty
	Bots      []bool   // bot flag per team
	TurnTime  float64
	Logger    *log.Logger
}

// Simulation is the whole authoritative state of one round: terrain,
// balls, live weapon effects and the turn machine. It has exactly one
// mutator, the goroutine calling Update and the control methods.
type Simulation struct {
	Terrain *terrain.Grid
	Ops     terrain.OpLog
	Balls   []*physics.Ball
	Effects []weapons.Effect
	Fires   []*weapons.FirePool

	Seed  uint32
	RNG   uint32
	Wind  float64
	Teams int
	Turn  int // bumped at every turn start

	Phase            Phase
	CurrentBall      int
	CurrentTurnIndex int
	TurnTimer        float64
	SettleTimer      float64
	RetreatTimer     float64
	TurnEndTimer     float64
	StuckTimer       float64

	SelectedWeapon weapons.Weapon
	Aim            float64
	Power          float64
	Charging       bool
	HasFired       bool
	Winner         int // team, -1 while playing or on a draw

	Authority TurnAuthority
	Names     []string
	Bots      []bool

	targeting  weapons.Weapon
	targetOn   bool
	wallAnchor *[2]float64

	pendingSync     int
	restartSeed     *uint32
	lastBallPerTeam []int
	targets         []*BallState
	eventCooldown   []float64
	botThink        float64

	arena  *weapons.Arena
	blasts []weapons.Blast
	events []Event
	out    []Outbound
	opts   Options
	logger *log.Logger
}

// New generates terrain from seed and sets up a fresh round.
func New(seed uint32, opts Options) *Simulation {
	return NewOnGrid(terrain.Generate(seed), seed, opts)
}

// NewOnGrid sets up a round on an existing grid. Balls are spread over the
// playable land, interleaved by team.
func NewOnGrid(g *terrain.Grid, seed uint32, opts Options) *Simulation {
	if opts.Teams <= 0 {
		opts.Teams = DefaultTeams
	}
	if opts.TurnTime <= 0 {
		opts.TurnTime = TurnTime
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	s := &Simulation{
		Terrain:        g,
		Seed:           seed,
		Teams:          opts.Teams,
		Phase:          Aiming,
		TurnTimer:      opts.TurnTime,
		SelectedWeapon: weapons.Bazooka,
		Aim:            -0.5,
		Winner:         -1,
		Authority:      opts.Authority,
		Names:          opts.Names,
		Bots:           opts.Bots,
		pendingSync:    -1,
		botThink:       botThinkTime,
		opts:           opts,
		logger:         opts.Logger,
	}
	s.Ops.Bind(g)
	s.Balls = spawnBalls(g, opts.Teams)
	s.targets = make([]*BallState, len(s.Balls))
	s.eventCooldown = make([]float64, len(s.Balls))
	s.lastBallPerTeam = make([]int, opts.Teams)
	for i := range s.lastBallPerTeam {
		s.lastBallPerTeam[i] = -1
	}
	// ball 0 opens the round, so team 0's next turn starts with its second ball
	s.lastBallPerTeam[0] = 0

	s.RNG = terrain.LCG(seed)
	s.Wind = windFrom(s.RNG)
	s.arena = weapons.NewArena(g, s.Balls, s.random)
	s.arena.Wind = s.Wind
	return s
}

func windFrom(rng uint32) float64 {
	return (float64(rng>>16)/65536 - 0.5) * 6
}

// random draws from the shared sequence so every peer sees the same spread.
func (s *Simulation) random() float64 {
	s.RNG = terrain.LCG(s.RNG)
	return float64(s.RNG>>16) / 65536
}

func spawnBalls(g *terrain.Grid, teams int) []*physics.Ball {
	total := teams * BallsPerTeam
	landStart := float64(terrain.LandStartX)
	landWidth := float64(terrain.LandEndX - terrain.LandStartX)

	balls := make([]*physics.Ball, 0, total)
	slot := 0
	for wi := 0; wi < BallsPerTeam; wi++ {
		for ti := 0; ti < teams; ti++ {
			x := int(landStart + float64(slot+1)*landWidth/float64(total+1))
			sx, sy := safeSpawn(g, x)
			name := teamNames[ti%len(teamNames)][wi]
			balls = append(balls, physics.NewBall(float64(sx), sy, ti, name))
			slot++
		}
	}
	return balls
}

// safeSpawn returns a spawn column and height near x with no lava in the 5x5
// box around the ball's resting spot.
func safeSpawn(g *terrain.Grid, x int) (int, float64) {
	if y, ok := spawnAt(g, x); ok {
		return x, y
	}
	for off := 1; off < 50; off++ {
		for _, dir := range []int{-1, 1} {
			tx := min(max(x+off*dir, terrain.LandStartX), terrain.LandEndX)
			if y, ok := spawnAt(g, tx); ok {
				return tx, y
			}
		}
	}
	return x, fallbackSpawnY
}

func spawnAt(g *terrain.Grid, x int) (float64, bool) {
	surface, ok := g.FindSurfaceY(x)
	if !ok {
		return 0, false
	}
	by := surface - int(physics.BallRadius) - spawnLift
	for dy := -2; dy <= 2; dy++ {
		for dx := -2; dx <= 2; dx++ {
			if g.Get(x+dx, by+dy) == terrain.Lava {
				return 0, false
			}
		}
	}
	return float64(surface) - physics.BallRadius - spawnLift, true
}

// Reset rebuilds the round in place with a new seed and team count while
// keeping identity, names, bots and logger.
func (s *Simulation) Reset(seed uint32, teams int) {
	opts := s.opts
	opts.Teams = teams
	opts.Authority = s.Authority
	opts.Names = s.Names
	opts.Bots = s.Bots
	*s = *New(seed, opts)
	s.arena.Rand = s.random
}

func (s *Simulation) Logger() *log.Logger { return s.logger }

// IsMyTurn reports whether the local player owns the current turn.
func (s *Simulation) IsMyTurn() bool {
	return s.Authority.Allows(s.CurrentTurnIndex)
}

func (s *Simulation) isBotTurn() bool {
	return s.CurrentTurnIndex < len(s.Bots) && s.Bots[s.CurrentTurnIndex]
}

func (s *Simulation) current() *physics.Ball {
	if s.CurrentBall < 0 || s.CurrentBall >= len(s.Balls) {
		return nil
	}
	return s.Balls[s.CurrentBall]
}

// firstAlive returns the first living ball of team, or -1.
func (s *Simulation) firstAlive(team int) int {
	for i, b := range s.Balls {
		if b.Alive && b.Team == team {
			return i
		}
	}
	return -1
}

// ownBall reports whether ball i belongs to the local seat.
func (s *Simulation) ownBall(i int) bool {
	seat, ok := s.Authority.Seat()
	return ok && i >= 0 && i < len(s.Balls) && s.Balls[i].Team == seat
}

func (s *Simulation) publish(m Outbound) {
	if s.Authority.Online() {
		s.out = append(s.out, m)
	}
}

func (s *Simulation) emit(e Event) {
	s.events = append(s.events, e)
}

// TakeOutbound drains the messages queued for peers.
func (s *Simulation) TakeOutbound() []Outbound {
	out := s.out
	s.out = nil
	return out
}

// TakeEvents drains the HUD events raised since the last call.
func (s *Simulation) TakeEvents() []Event {
	out := s.events
	s.events = nil
	return out
}

// TakeBlasts drains resolved explosions for renderers.
func (s *Simulation) TakeBlasts() []weapons.Blast {
	out := s.blasts
	s.blasts = nil
	return out
}

// Snapshot returns the public state of every ball.
func (s *Simulation) Snapshot() []BallState {
	out := make([]BallState, len(s.Balls))
	for i, b := range s.Balls {
		out[i] = BallState{X: b.X, Y: b.Y, VX: b.VX, VY: b.VY, HP: b.Health, Alive: b.Alive}
	}
	return out
}

// TerrainOps is the cumulative op log for upload to the relay.
func (s *Simulation) TerrainOps() []terrain.Op {
	return s.Ops.Cumulative(s.Terrain)
}

// PendingSync returns the deferred turn hand-off, if any.
func (s *Simulation) PendingSync() (int, bool) {
	return s.pendingSync, s.pendingSync >= 0
}

// Targeting returns the weapon waiting for a click.
func (s *Simulation) Targeting() (weapons.Weapon, bool) {
	return s.targeting, s.targetOn
}

func (s *Simulation) clearTargeting() {
	s.targetOn = false
	s.wallAnchor = nil
}

func (s *Simulation) playerName(team int) string {
	if team >= 0 && team < len(s.Names) && s.Names[team] != "" {
		return s.Names[team]
	}
	for _, b := range s.Balls {
		if b.Team == team {
			return b.Name
		}
	}
	return "Someone"
}

func aimFor(b *physics.Ball) float64 {
	if b.Facing > 0 {
		return -0.3
	}
	return math.Pi + 0.3
}
