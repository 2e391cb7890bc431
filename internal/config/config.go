package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
)

const (
	DefaultBoard         = "lm3s6965"
	DefaultMaxIterations = 5
	DefaultSimTimeoutSec = 10
)

// Config holds all ember configuration.
type Config struct {
	DefaultBoard     string   `json:"default_board,omitempty"`
	MaxIterations    int      `json:"max_iterations,omitempty"`
	SimTimeoutSec    int      `json:"sim_timeout_seconds,omitempty"`
	QEMUPath         string   `json:"qemu_path,omitempty"`
	RenodePath       string   `json:"renode_path,omitempty"`
	UseRenode        bool     `json:"use_renode,omitempty"`
	GeneratorCommand []string `json:"generator_command,omitempty"`
	WorkDir          string   `json:"work_dir,omitempty"`
	HistoryDB        string   `json:"history_db,omitempty"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		DefaultBoard:  DefaultBoard,
		MaxIterations: DefaultMaxIterations,
		SimTimeoutSec: DefaultSimTimeoutSec,
	}
}

// Load reads and merges global and workspace configs, then environment
// overrides. Order: defaults → global (~/.config/ember/config.json) →
// workspace (.ember/config.json) → env.
func Load(workspaceRoot string) Config {
	cfg := Defaults()

	if home, err := os.UserHomeDir(); err == nil {
		mergeFromFile(&cfg, filepath.Join(home, ".config", "ember", "config.json"))
	}
	if workspaceRoot != "" {
		mergeFromFile(&cfg, filepath.Join(workspaceRoot, ".ember", "config.json"))
	}
	applyEnv(&cfg)
	return cfg
}

// Save writes the config to the workspace .ember/config.json by default,
// or to the global config if global is true.
func Save(cfg Config, workspaceRoot string, global bool) error {
	var dir string
	if global {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		dir = filepath.Join(home, ".config", "ember")
	} else {
		dir = filepath.Join(workspaceRoot, ".ember")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0o644)
}

func mergeFromFile(cfg *Config, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	var fileCfg Config
	if err := json.Unmarshal(data, &fileCfg); err != nil {
		return
	}

	if fileCfg.DefaultBoard != "" {
		cfg.DefaultBoard = fileCfg.DefaultBoard
	}
	if fileCfg.MaxIterations != 0 {
		cfg.MaxIterations = fileCfg.MaxIterations
	}
	if fileCfg.SimTimeoutSec != 0 {
		cfg.SimTimeoutSec = fileCfg.SimTimeoutSec
	}
	if fileCfg.QEMUPath != "" {
		cfg.QEMUPath = fileCfg.QEMUPath
	}
	if fileCfg.RenodePath != "" {
		cfg.RenodePath = fileCfg.RenodePath
	}
	if fileCfg.UseRenode {
		cfg.UseRenode = true
	}
	if len(fileCfg.GeneratorCommand) > 0 {
		cfg.GeneratorCommand = fileCfg.GeneratorCommand
	}
	if fileCfg.WorkDir != "" {
		cfg.WorkDir = fileCfg.WorkDir
	}
	if fileCfg.HistoryDB != "" {
		cfg.HistoryDB = fileCfg.HistoryDB
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DEFAULT_BOARD_ID"); v != "" {
		cfg.DefaultBoard = v
	}
	if v := os.Getenv("MAX_BUILD_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxIterations = n
		}
	}
	if v := os.Getenv("SIMULATION_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SimTimeoutSec = n
		}
	}
	if v := os.Getenv("QEMU_PATH"); v != "" {
		cfg.QEMUPath = v
	}
	if v := os.Getenv("RENODE_PATH"); v != "" {
		cfg.RenodePath = v
	}
}
