// Command ballsim runs headless matches: an offline all-bot round, a bot
// client playing on a relay, or the replay of a saved journal.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
)

func main() {
	var (
		relayFlag   = flag.String("relay", "", "relay base URL, e.g. http://localhost:8000; empty plays offline")
		matchFlag   = flag.String("match", "", "match id to join; empty creates one")
		nameFlag    = flag.String("name", "ballsim", "player name")
		teamsFlag   = flag.Int("teams", 2, "teams when creating a match or playing offline")
		seedFlag    = flag.Uint("seed", 0, "terrain seed; 0 picks one")
		stepsFlag   = flag.Int("steps", 30*60*20, "offline step limit")
		timeoutFlag = flag.Duration("timeout", 30*time.Minute, "online time limit")
		journalFlag = flag.String("journal", "", "write the online match journal here")
		replayFlag  = flag.String("replay", "", "replay a journal and exit")
		debugFlag   = flag.Bool("debug", false, "debug logging")
	)
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Prefix: "ballsim"})
	if *debugFlag {
		logger.SetLevel(log.DebugLevel)
	}

	var seed *uint32
	if *seedFlag != 0 {
		s := uint32(*seedFlag)
		seed = &s
	}

	switch {
	case *replayFlag != "":
		sim, err := replay(*replayFlag, logger)
		if err != nil {
			logger.Fatal("replay failed", "err", err)
		}
		report(logger, sim)

	case *relayFlag == "":
		s := uint32(time.Now().UnixNano())
		if seed != nil {
			s = *seed
		}
		report(logger, playOffline(s, *teamsFlag, *stepsFlag, logger))

	default:
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx, cancel := context.WithTimeout(ctx, *timeoutFlag)
		defer cancel()

		sim, err := playOnline(ctx, onlineOptions{
			Relay:   *relayFlag,
			Match:   *matchFlag,
			Name:    *nameFlag,
			Teams:   *teamsFlag,
			Seed:    seed,
			Journal: *journalFlag,
		}, logger)
		if err != nil {
			logger.Fatal("online match failed", "err", err)
		}
		report(logger, sim)
	}
}
