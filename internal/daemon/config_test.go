package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.API.Port != 8480 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 8480)
	}
	if cfg.Consensus.MinVotes != 20 || cfg.Consensus.UpperShare != 0.75 || cfg.Consensus.LowerShare != 0.25 {
		t.Errorf("Consensus = %+v, want 20/0.75/0.25", cfg.Consensus)
	}
	if cfg.Quorum.Quorum != 3 {
		t.Errorf("Quorum = %d, want 3", cfg.Quorum.Quorum)
	}
	if cfg.Election.EarlyThreshold != 100 || cfg.Election.MatureThreshold != 500 {
		t.Errorf("Election thresholds = %d/%d, want 100/500", cfg.Election.EarlyThreshold, cfg.Election.MatureThreshold)
	}
	if cfg.Escalation.FlagThreshold != 5 {
		t.Errorf("FlagThreshold = %d, want 5", cfg.Escalation.FlagThreshold)
	}
}

func TestPurfactedHome(t *testing.T) {
	t.Setenv("PURFACTED_HOME", "/tmp/purfacted-test")
	if got := Home(); got != "/tmp/purfacted-test" {
		t.Errorf("Home() = %q, want env override", got)
	}
}

func TestLoadConfig_NoFileUsesDefaults(t *testing.T) {
	t.Setenv("PURFACTED_HOME", t.TempDir())

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.API.Port != DefaultConfig().API.Port {
		t.Errorf("Port = %d, want default %d", cfg.API.Port, DefaultConfig().API.Port)
	}
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("PURFACTED_HOME", home)

	raw := `
[api]
port = 9999

[consensus]
min_votes = 5

[election]
inactivity_days = 14
`
	if err := os.WriteFile(filepath.Join(home, "config.toml"), []byte(raw), 0600); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.API.Port != 9999 {
		t.Errorf("Port = %d, want 9999", cfg.API.Port)
	}
	if cfg.Consensus.MinVotes != 5 {
		t.Errorf("MinVotes = %d, want 5", cfg.Consensus.MinVotes)
	}
	// Untouched sections keep their defaults.
	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("Host = %q, want default", cfg.API.Host)
	}
	if cfg.Quorum.Quorum != 3 {
		t.Errorf("Quorum = %d, want default 3", cfg.Quorum.Quorum)
	}

	if cfg.ElectionEngine().InactivityWindow != 14*24*time.Hour {
		t.Errorf("InactivityWindow = %v, want 14 days", cfg.ElectionEngine().InactivityWindow)
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	t.Setenv("PURFACTED_HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.API.Port = 8765
	cfg.Escalation.Level1Days = 3
	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig() error: %v", err)
	}

	loaded, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if loaded.API.Port != 8765 {
		t.Errorf("Port = %d, want 8765", loaded.API.Port)
	}
	if loaded.EscalationEngine().BanDurations[1] != 3*24*time.Hour {
		t.Errorf("level-1 ban = %v, want 3 days", loaded.EscalationEngine().BanDurations[1])
	}
}

func TestEngineConversions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Consensus.VetoMinVotes = 10

	eng := cfg.ConsensusEngine()
	if eng.Fact.MinVotes != 20 || eng.Veto.MinVotes != 10 {
		t.Errorf("thresholds = fact %d / veto %d, want 20 / 10", eng.Fact.MinVotes, eng.Veto.MinVotes)
	}
	if eng.Debate.UpperShare != 0.75 {
		t.Errorf("debate upper share = %v, want 0.75", eng.Debate.UpperShare)
	}

	esc := cfg.EscalationEngine()
	if esc.BanDurations[1] != 7*24*time.Hour || esc.BanDurations[2] != 30*24*time.Hour {
		t.Errorf("ban durations = %v, want 7d/30d", esc.BanDurations)
	}
}
