package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/Scrimzay/ballwars/internal/relay"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// Config is everything the relay reads from the environment.
type Config struct {
	Port          string
	LogLevel      log.Level
	TurnTime      time.Duration
	WatchdogGrace time.Duration
	StateInterval time.Duration
	MaxPlayers    int
	MsgRate       float64
	MsgBurst      int
}

func Default() Config {
	s := relay.DefaultSettings()
	return Config{
		Port:          "8000",
		LogLevel:      log.InfoLevel,
		TurnTime:      s.TurnTime,
		WatchdogGrace: s.WatchdogGrace,
		StateInterval: s.StateInterval,
		MaxPlayers:    s.MaxPlayers,
		MsgRate:       s.MsgRate,
		MsgBurst:      s.MsgBurst,
	}
}

// Load reads .env if there is one, then the environment. Unset variables
// keep their defaults; a set but unparseable one is an error.
func Load(logger *log.Logger) (Config, error) {
	if logger == nil {
		logger = log.Default()
	}
	if err := godotenv.Load(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("no .env file, using environment only")
		} else {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
	} else {
		logger.Info("Successfully loaded environment variables")
	}

	cfg := Default()
	var errs []error
	if v, err := GetEnvVariable("PORT"); err == nil {
		cfg.Port = v
	}
	if v, err := GetEnvVariable("BALLWARS_LOG_LEVEL"); err == nil {
		lvl, err := log.ParseLevel(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("BALLWARS_LOG_LEVEL: %w", err))
		}
		cfg.LogLevel = lvl
	}
	errs = append(errs,
		duration("BALLWARS_TURN_SECONDS", time.Second, &cfg.TurnTime),
		duration("BALLWARS_WATCHDOG_SECONDS", time.Second, &cfg.WatchdogGrace),
		duration("BALLWARS_STATE_INTERVAL_MS", time.Millisecond, &cfg.StateInterval),
		integer("BALLWARS_MAX_PLAYERS", &cfg.MaxPlayers),
		float("BALLWARS_MSG_RATE", &cfg.MsgRate),
		integer("BALLWARS_MSG_BURST", &cfg.MsgBurst),
	)
	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Settings converts the config into relay settings.
func (c Config) Settings() relay.Settings {
	return relay.Settings{
		TurnTime:      c.TurnTime,
		WatchdogGrace: c.WatchdogGrace,
		StateInterval: c.StateInterval,
		MaxPlayers:    c.MaxPlayers,
		MsgRate:       c.MsgRate,
		MsgBurst:      c.MsgBurst,
	}
}

func GetEnvVariable(v string) (string, error) {
	if v == "" {
		return "", fmt.Errorf("input param empty")
	}
	b := os.Getenv(v)
	if b == "" {
		return "", fmt.Errorf("failed to get variable for %s", v)
	}

	return b, nil
}

func duration(name string, unit time.Duration, dst *time.Duration) error {
	v, err := GetEnvVariable(name)
	if err != nil {
		return nil
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || n <= 0 {
		return fmt.Errorf("%s: want a positive number, got %q", name, v)
	}
	*dst = time.Duration(n * float64(unit))
	return nil
}

func integer(name string, dst *int) error {
	v, err := GetEnvVariable(name)
	if err != nil {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fmt.Errorf("%s: want a positive integer, got %q", name, v)
	}
	*dst = n
	return nil
}

func float(name string, dst *float64) error {
	v, err := GetEnvVariable(name)
	if err != nil {
		return nil
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || n <= 0 {
		return fmt.Errorf("%s: want a positive number, got %q", name, v)
	}
	*dst = n
	return nil
}
