package relay

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/Scrimzay/ballwars/internal/game"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	ErrMatchNotFound = errors.New("match not found")
	ErrMatchFull     = errors.New("match full")
	ErrBadTeams      = errors.New("team count out of range")
	ErrHubClosed     = errors.New("hub closed")
)

// Settings are the relay's knobs. Zero fields take the defaults.
type Settings struct {
	TurnTime      time.Duration
	WatchdogGrace time.Duration // extra time past the turn before force_advance
	StateInterval time.Duration
	VacantTurn    time.Duration // turn length for a seat nobody is connected to
	MaxPlayers    int
	MsgRate       float64 // inbound messages per second per connection
	MsgBurst      int
}

func DefaultSettings() Settings {
	return Settings{
		TurnTime:      time.Duration(game.TurnTime * float64(time.Second)),
		WatchdogGrace: 20 * time.Second,
		StateInterval: time.Second,
		VacantTurn:    12 * time.Second,
		MaxPlayers:    4,
		MsgRate:       120,
		MsgBurst:      240,
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.TurnTime <= 0 {
		s.TurnTime = d.TurnTime
	}
	if s.WatchdogGrace <= 0 {
		s.WatchdogGrace = d.WatchdogGrace
	}
	if s.StateInterval <= 0 {
		s.StateInterval = d.StateInterval
	}
	if s.VacantTurn <= 0 {
		s.VacantTurn = d.VacantTurn
	}
	if s.MaxPlayers < game.DefaultTeams {
		s.MaxPlayers = d.MaxPlayers
	}
	if s.MsgRate <= 0 {
		s.MsgRate = d.MsgRate
	}
	if s.MsgBurst <= 0 {
		s.MsgBurst = d.MsgBurst
	}
	return s
}

// Hub owns every live match. Each match runs its own loop under Run.
type Hub struct {
	settings Settings
	logger   *log.Logger

	mu      sync.RWMutex
	matches map[string]*Match

	spawn chan *Match
	done  chan struct{}
}

func NewHub(settings Settings, logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		settings: settings.withDefaults(),
		logger:   logger,
		matches:  make(map[string]*Match),
		spawn:    make(chan *Match),
		done:     make(chan struct{}),
	}
}

func (h *Hub) Settings() Settings { return h.settings }

// Run starts match loops as they are created and stops them all when ctx
// ends.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	eg, ctx := errgroup.WithContext(ctx)
	for {
		select {
		case m := <-h.spawn:
			eg.Go(func() error {
				m.Run(ctx)
				return nil
			})

		case <-ctx.Done():
			return eg.Wait()
		}
	}
}

type MatchOptions struct {
	Teams int
	Seed  *uint32 // random when nil
	Names []string
	Bots  []bool
}

// CreateMatch registers a new match and starts its loop. Run must be
// running.
func (h *Hub) CreateMatch(opts MatchOptions) (*Match, error) {
	if opts.Teams == 0 {
		opts.Teams = game.DefaultTeams
	}
	if opts.Teams < game.DefaultTeams || opts.Teams > h.settings.MaxPlayers {
		return nil, fmt.Errorf("%w: %d not in [%d,%d]", ErrBadTeams, opts.Teams, game.DefaultTeams, h.settings.MaxPlayers)
	}
	seed := rand.Uint32()
	if opts.Seed != nil {
		seed = *opts.Seed
	}

	m := newMatch(uuid.NewString(), seed, opts, h.settings, h.logger)
	select {
	case h.spawn <- m:

	case <-h.done:
		return nil, ErrHubClosed
	}

	h.mu.Lock()
	h.matches[m.ID] = m
	h.mu.Unlock()
	h.logger.Info("match created", "id", m.ID, "seed", seed, "teams", opts.Teams)
	return m, nil
}

func (h *Hub) Get(id string) (*Match, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	m, ok := h.matches[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, id)
	}
	return m, nil
}

// List returns a summary of every match.
func (h *Hub) List() []Info {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Info, 0, len(h.matches))
	for _, m := range h.matches {
		out = append(out, m.Info())
	}
	return out
}
