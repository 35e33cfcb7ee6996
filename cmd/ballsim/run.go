package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Scrimzay/ballwars/internal/game"
	"github.com/Scrimzay/ballwars/internal/netclient"
	"github.com/Scrimzay/ballwars/internal/session"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

const frame = time.Second / 30

var errRoundOver = errors.New("round over")

func allBots(teams int) []bool {
	bots := make([]bool, max(teams, game.DefaultTeams))
	for i := range bots {
		bots[i] = true
	}
	return bots
}

// playOffline runs an all-bot round on a fixed step until someone wins or
// the step limit is hit.
func playOffline(seed uint32, teams, maxSteps int, logger *log.Logger) *game.Simulation {
	sim := game.New(seed, game.Options{
		Teams:     teams,
		Authority: game.Always(),
		Bots:      allBots(teams),
		Logger:    logger,
	})
	logger.Info("offline round", "seed", seed, "teams", sim.Teams)
	for i := 0; i < maxSteps && sim.Phase != game.GameOver; i++ {
		sim.Update(game.MaxStep)
		sim.TakeOutbound()
		sim.TakeBlasts()
		logEvents(logger, sim)
	}
	return sim
}

type onlineOptions struct {
	Relay   string
	Match   string
	Name    string
	Teams   int
	Seed    *uint32
	Journal string
}

// playOnline joins (or creates) a match on the relay as a bot and plays
// until the round ends or ctx does.
func playOnline(ctx context.Context, o onlineOptions, logger *log.Logger) (*game.Simulation, error) {
	id := o.Match
	if id == "" {
		info, err := netclient.CreateMatch(ctx, nil, o.Relay, netclient.NewMatch{
			Teams: o.Teams,
			Seed:  o.Seed,
			Bots:  allBots(o.Teams),
		})
		if err != nil {
			return nil, err
		}
		id = info.ID
		logger.Info("created match", "id", id, "seed", info.Seed, "teams", info.Teams)
	}

	wsURL, err := netclient.MatchURL(o.Relay, id, o.Name, true)
	if err != nil {
		return nil, err
	}
	client, err := netclient.Dial(ctx, wsURL, netclient.Options{Logger: logger})
	if err != nil {
		return nil, err
	}

	sim := game.New(0, game.Options{Authority: game.AwaitIdentity(), Logger: logger})
	var journal *session.Journal
	if o.Journal != "" {
		journal = &session.Journal{}
	}
	sess := session.New(sim, client, session.Options{Logger: logger, Journal: journal})

	if tr, err := netclient.FetchTerrain(ctx, nil, o.Relay, id); err != nil {
		logger.Warn("no relay terrain checksum", "err", err)
	} else {
		sess.ExpectChecksum(tr.Checksum)
	}

	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return client.Run(gctx)
	})
	eg.Go(func() error {
		ticker := time.NewTicker(frame)
		defer ticker.Stop()
		last := time.Now()
		for {
			select {
			case <-gctx.Done():
				return nil

			case now := <-ticker.C:
				sess.Step(now.Sub(last).Seconds())
				last = now
				sim.TakeBlasts()
				logEvents(logger, sim)
				if sess.Desynced() {
					logger.Warn("terrain differs from the relay")
				}
				if sim.Phase == game.GameOver {
					return errRoundOver
				}
			}
		}
	})
	err = eg.Wait()
	if errors.Is(err, errRoundOver) {
		err = nil
	}

	if journal != nil {
		if jerr := saveJournal(o.Journal, journal); jerr != nil {
			err = errors.Join(err, jerr)
		} else {
			logger.Info("journal saved", "path", o.Journal, "records", len(journal.Records))
		}
	}
	return sim, err
}

func saveJournal(path string, j *session.Journal) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	if err := j.Save(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func replay(path string, logger *log.Logger) (*game.Simulation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	j, err := session.LoadJournal(f)
	if err != nil {
		return nil, err
	}
	logger.Info("replaying", "seed", j.Seed, "teams", j.Teams, "steps", len(j.Steps), "records", len(j.Records))
	return session.ReplayJournal(j, logger), nil
}

func logEvents(logger *log.Logger, sim *game.Simulation) {
	for _, e := range sim.TakeEvents() {
		switch e.Kind {
		case game.EventTurnStart:
			logger.Info("turn start", "player", e.Name, "ball", e.Ball)

		case game.EventHit:
			logger.Debug("hit", "ball", e.Name, "damage", e.Damage, "hp", e.HP)

		case game.EventDied:
			logger.Info("died", "ball", e.Name)

		case game.EventGameOver:
			logger.Info("game over", "winner", e.Winner)
		}
	}
}

func report(logger *log.Logger, sim *game.Simulation) {
	alive := make([]int, sim.Teams)
	for _, b := range sim.Balls {
		if b.Alive {
			alive[b.Team]++
		}
	}
	logger.Info("=== RESULT ===", "phase", sim.Phase, "status", sim.Phase.Label(), "winner", sim.Winner, "alive", alive)
}
