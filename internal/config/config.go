package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"quiz-session-engine/internal/domain"
	"quiz-session-engine/internal/logger"
)

const (
	DefaultRounds       = 5
	DefaultAnswerWindow = 15 * time.Second
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Questions struct {
		File string `yaml:"file"`
		TTL  string `yaml:"ttl"`
	} `yaml:"questions"`
	Game  Game `yaml:"game"`
	Audit struct {
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
	} `yaml:"audit"`
	NATS struct {
		URL     string `yaml:"url"`
		Subject string `yaml:"subject"`
	} `yaml:"nats"`
	Log logger.Config `yaml:"log"`
}

// Game holds the rules shared by every session.
type Game struct {
	Rounds       int             `yaml:"rounds"`
	AnswerWindow string          `yaml:"answer_window"`
	Overrides    []RoundOverride `yaml:"overrides"`
}

// RoundOverride pins the content of a 1-based round.
type RoundOverride struct {
	Round                int `yaml:"round"`
	domain.RoundOverride `yaml:",inline"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// RoundsLimit returns the configured number of rounds or the default.
func (g Game) RoundsLimit() int {
	if g.Rounds <= 0 {
		return DefaultRounds
	}
	return g.Rounds
}

// Window returns the configured answer window or the default.
func (g Game) Window() time.Duration {
	return TTLDuration(g.AnswerWindow, DefaultAnswerWindow)
}

// RoundOverrides indexes the overrides by 0-based round.
func (g Game) RoundOverrides() (map[int]domain.RoundOverride, error) {
	out := make(map[int]domain.RoundOverride, len(g.Overrides))
	for _, o := range g.Overrides {
		if o.Round < 1 {
			return nil, fmt.Errorf("override round must be 1-based, got %d", o.Round)
		}
		if _, dup := out[o.Round-1]; dup {
			return nil, fmt.Errorf("duplicate override for round %d", o.Round)
		}
		out[o.Round-1] = o.RoundOverride
	}
	return out, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
