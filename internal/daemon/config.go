// Package daemon manages the engine daemon lifecycle and configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/someoneelse131/purfacted-sub002/internal/app/consensus"
	"github.com/someoneelse131/purfacted-sub002/internal/app/election"
	"github.com/someoneelse131/purfacted-sub002/internal/app/escalation"
	"github.com/someoneelse131/purfacted-sub002/internal/app/verification"
)

// Config holds all daemon configuration.
type Config struct {
	API        APIConfig        `toml:"api"`
	Storage    StorageConfig    `toml:"storage"`
	Telemetry  TelemetryConfig  `toml:"telemetry"`
	Consensus  ConsensusConfig  `toml:"consensus"`
	Quorum     QuorumConfig     `toml:"quorum"`
	Election   ElectionConfig   `toml:"election"`
	Escalation EscalationConfig `toml:"escalation"`
	Sweeps     SweepConfig      `toml:"sweeps"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig controls the SQLite store location.
type StorageConfig struct {
	Dir string `toml:"dir"`
}

// TelemetryConfig controls observability endpoints.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// ConsensusConfig holds the per-kind aggregation thresholds.
type ConsensusConfig struct {
	MinVotes       int     `toml:"min_votes"`
	UpperShare     float64 `toml:"upper_share"`
	LowerShare     float64 `toml:"lower_share"`
	VetoMinVotes   int     `toml:"veto_min_votes"`
	DebateMinVotes int     `toml:"debate_min_votes"`
}

// QuorumConfig controls verification review resolution.
type QuorumConfig struct {
	Quorum int `toml:"quorum"`
}

// ElectionConfig controls moderator elections.
type ElectionConfig struct {
	EarlyThreshold  int     `toml:"early_threshold"`
	MatureThreshold int     `toml:"mature_threshold"`
	TopPercent      float64 `toml:"top_percent"`
	MaxModerators   int     `toml:"max_moderators"`
	InactivityDays  int     `toml:"inactivity_days"`
}

// EscalationConfig controls bans and flagging.
type EscalationConfig struct {
	FlagThreshold int `toml:"flag_threshold"`
	Level1Days    int `toml:"level1_days"`
	Level2Days    int `toml:"level2_days"`
}

// SweepConfig controls the periodic batch passes.
type SweepConfig struct {
	ElectionMinutes   int `toml:"election_minutes"`
	InactivityMinutes int `toml:"inactivity_minutes"`
	AutoflagMinutes   int `toml:"autoflag_minutes"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8480,
		},
		Storage: StorageConfig{
			Dir: purfactedHome(),
		},
		Telemetry: TelemetryConfig{
			Prometheus: true,
		},
		Consensus: ConsensusConfig{
			MinVotes:       20,
			UpperShare:     0.75,
			LowerShare:     0.25,
			VetoMinVotes:   20,
			DebateMinVotes: 20,
		},
		Quorum: QuorumConfig{
			Quorum: 3,
		},
		Election: ElectionConfig{
			EarlyThreshold:  100,
			MatureThreshold: 500,
			TopPercent:      0.10,
			MaxModerators:   25,
			InactivityDays:  30,
		},
		Escalation: EscalationConfig{
			FlagThreshold: 5,
			Level1Days:    7,
			Level2Days:    30,
		},
		Sweeps: SweepConfig{
			ElectionMinutes:   60,
			InactivityMinutes: 360,
			AutoflagMinutes:   60,
		},
	}
}

// LoadConfig reads config from $PURFACTED_HOME/config.toml, falling back to
// defaults when no file exists.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	path := filepath.Join(purfactedHome(), "config.toml")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil // No config file yet — use defaults
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// SaveConfig writes the config to $PURFACTED_HOME/config.toml.
func SaveConfig(cfg Config) error {
	path := filepath.Join(purfactedHome(), "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// purfactedHome returns the engine data directory.
func purfactedHome() string {
	if env := os.Getenv("PURFACTED_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".purfacted")
}

// Home is exported for use by other packages.
func Home() string {
	return purfactedHome()
}

// ─── Engine Configs ─────────────────────────────────────────────────────────

// ConsensusConfig converts into the aggregator's per-kind thresholds.
func (c Config) ConsensusEngine() consensus.Config {
	return consensus.Config{
		Fact:   consensus.Thresholds{MinVotes: c.Consensus.MinVotes, UpperShare: c.Consensus.UpperShare, LowerShare: c.Consensus.LowerShare},
		Veto:   consensus.Thresholds{MinVotes: c.Consensus.VetoMinVotes, UpperShare: c.Consensus.UpperShare, LowerShare: c.Consensus.LowerShare},
		Debate: consensus.Thresholds{MinVotes: c.Consensus.DebateMinVotes, UpperShare: c.Consensus.UpperShare, LowerShare: c.Consensus.LowerShare},
	}
}

// QuorumEngine converts into the verification service config.
func (c Config) QuorumEngine() verification.Config {
	return verification.Config{Quorum: c.Quorum.Quorum}
}

// ElectionEngine converts into the election controller config.
func (c Config) ElectionEngine() election.Config {
	return election.Config{
		EarlyThreshold:   c.Election.EarlyThreshold,
		MatureThreshold:  c.Election.MatureThreshold,
		TopPercent:       c.Election.TopPercent,
		MaxModerators:    c.Election.MaxModerators,
		InactivityWindow: time.Duration(c.Election.InactivityDays) * 24 * time.Hour,
	}
}

// EscalationEngine converts into the escalation controller config.
func (c Config) EscalationEngine() escalation.Config {
	return escalation.Config{
		FlagThreshold: c.Escalation.FlagThreshold,
		BanDurations: map[int]time.Duration{
			1: time.Duration(c.Escalation.Level1Days) * 24 * time.Hour,
			2: time.Duration(c.Escalation.Level2Days) * 24 * time.Hour,
		},
	}
}
