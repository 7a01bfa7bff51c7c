// Package config loads the engine's startup configuration from a TOML
// file, the way the engine's host binaries are expected to be configured.
package config

import (
	"github.com/BurntSushi/toml"
)

// EngineConfig holds every tunable the host surface exposes at startup.
// Zero value is a usable default configuration.
type EngineConfig struct {
	Engine  EngineSection  `toml:"engine"`
	Search  SearchSection  `toml:"search"`
	NNUE    NNUESection    `toml:"nnue"`
	Logging LoggingSection `toml:"logging"`
}

// EngineSection controls hash size and worker count.
type EngineSection struct {
	HashMB  int `toml:"hash_mb"`
	Threads int `toml:"threads"`
}

// SearchSection controls iterative-deepening and time-management defaults.
type SearchSection struct {
	MultiPV     int  `toml:"multi_pv"`
	MoveOverhead int `toml:"move_overhead_ms"`
	Ponder      bool `toml:"ponder"`
}

// NNUESection names the evaluation network files and toggles.
type NNUESection struct {
	Enabled    bool   `toml:"enabled"`
	WeightsFile string `toml:"weights_file"`
}

// LoggingSection controls the xlog backend.
type LoggingSection struct {
	Level string `toml:"level"`
}

// Default returns the built-in configuration used when no file is supplied.
func Default() EngineConfig {
	return EngineConfig{
		Engine: EngineSection{HashMB: 64, Threads: 1},
		Search: SearchSection{MultiPV: 1, MoveOverhead: 30},
		NNUE:   NNUESection{Enabled: true, WeightsFile: "weights.bin"},
		Logging: LoggingSection{Level: "INFO"},
	}
}

// Load reads and decodes a TOML configuration file, filling in Default()
// for any section the file omits.
func Load(path string) (EngineConfig, error) {
	cfg := Default()
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return EngineConfig{}, err
	}
	return cfg, nil
}
