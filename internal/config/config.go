// Package config loads run configuration from a YAML file with
// environment overrides, and validates it before a run starts.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/talgya/runwaysim/internal/engine"
)

// Config holds all run configuration.
type Config struct {
	Population int    `yaml:"population"`
	Months     int    `yaml:"months"`
	ChunkSize  int    `yaml:"chunk_size"`
	SampleSize int    `yaml:"sample_size"`
	Seed       uint64 `yaml:"seed"`
	Workers    int    `yaml:"workers"`

	MMap struct {
		Enabled bool   `yaml:"enabled"`
		Dir     string `yaml:"dir"`
	} `yaml:"mmap"`

	Output struct {
		Path          string `yaml:"path"`
		SQLitePath    string `yaml:"sqlite_path"`
		ProgressEvery int    `yaml:"progress_every"`
	} `yaml:"output"`

	Model struct {
		SlotRatio0          float64 `yaml:"slot_ratio0"`
		SlotDecline         float64 `yaml:"slot_decline"`
		HireFriction        float64 `yaml:"hire_friction"`
		SlotRatioMin        float64 `yaml:"slot_ratio_min"`
		SeparationProb      float64 `yaml:"separation_prob"`
		SeparationHit       float64 `yaml:"separation_hit"`
		ExitThresholdMonths uint32  `yaml:"exit_threshold_months"`
		ExitProbMax         float64 `yaml:"exit_prob_max"`
		ExitRamp            float64 `yaml:"exit_ramp"`
	} `yaml:"model"`
}

// Load reads config from a YAML file (missing file is fine — defaults
// apply), then applies environment variable overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("RUNWAYSIM_OUT"); v != "" {
		cfg.Output.Path = v
	}
	if v := os.Getenv("RUNWAYSIM_DB"); v != "" {
		cfg.Output.SQLitePath = v
	}
	if v := os.Getenv("RUNWAYSIM_MMAP_DIR"); v != "" {
		cfg.MMap.Dir = v
	}
	if v := os.Getenv("RUNWAYSIM_SEED"); v != "" {
		if seed, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Seed = seed
		}
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := engine.DefaultParams()

	if c.Population == 0 {
		c.Population = 2_000_000
	}
	if c.Months == 0 {
		c.Months = 24
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = 500_000
	}
	if c.SampleSize == 0 {
		// Default shrinks to fit small populations; an explicit
		// sample_size larger than the population is a validation error.
		c.SampleSize = min(200_000, c.Population)
	}
	if c.Seed == 0 {
		c.Seed = def.Seed
	}
	if c.MMap.Dir == "" {
		c.MMap.Dir = "sim_mem"
	}
	if c.Output.Path == "" {
		c.Output.Path = "sim_series.npz"
	}
	if c.Output.ProgressEvery == 0 {
		c.Output.ProgressEvery = 6
	}

	if c.Model.SlotRatio0 == 0 {
		c.Model.SlotRatio0 = def.SlotRatio0
	}
	if c.Model.SlotDecline == 0 {
		c.Model.SlotDecline = def.SlotDecline
	}
	if c.Model.HireFriction == 0 {
		c.Model.HireFriction = def.HireFriction
	}
	if c.Model.SlotRatioMin == 0 {
		c.Model.SlotRatioMin = def.SlotRatioMin
	}
	if c.Model.SeparationProb == 0 {
		c.Model.SeparationProb = def.SeparationProb
	}
	if c.Model.SeparationHit == 0 {
		c.Model.SeparationHit = def.SeparationHit
	}
	if c.Model.ExitThresholdMonths == 0 {
		c.Model.ExitThresholdMonths = def.ExitThresholdMonths
	}
	if c.Model.ExitProbMax == 0 {
		c.Model.ExitProbMax = def.ExitProbMax
	}
	if c.Model.ExitRamp == 0 {
		c.Model.ExitRamp = def.ExitRamp
	}
}

// Validate checks that the configuration describes a runnable simulation.
// Any failure here stops the process before the run starts.
func (c *Config) Validate() error {
	if c.Population <= 0 {
		return fmt.Errorf("population must be positive, got %d", c.Population)
	}
	if c.Months < 0 {
		return fmt.Errorf("months must be non-negative, got %d", c.Months)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.SampleSize <= 0 {
		return fmt.Errorf("sample_size must be positive, got %d", c.SampleSize)
	}
	if c.SampleSize > c.Population {
		return fmt.Errorf("sample_size %d exceeds population %d", c.SampleSize, c.Population)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Workers)
	}
	if c.Output.Path == "" {
		return fmt.Errorf("output.path is required")
	}
	if c.MMap.Enabled && c.MMap.Dir == "" {
		return fmt.Errorf("mmap.dir is required when mmap is enabled")
	}
	if c.Model.SlotRatio0 <= 0 || c.Model.SlotRatio0 > 1 {
		return fmt.Errorf("model.slot_ratio0 must be in (0, 1], got %g", c.Model.SlotRatio0)
	}
	if c.Model.SlotDecline < 0 || c.Model.SlotDecline >= 1 {
		return fmt.Errorf("model.slot_decline must be in [0, 1), got %g", c.Model.SlotDecline)
	}
	if c.Model.HireFriction <= 0 || c.Model.HireFriction > 1 {
		return fmt.Errorf("model.hire_friction must be in (0, 1], got %g", c.Model.HireFriction)
	}
	if c.Model.SlotRatioMin <= 0 || c.Model.SlotRatioMin > c.Model.SlotRatio0 {
		return fmt.Errorf("model.slot_ratio_min must be in (0, slot_ratio0], got %g", c.Model.SlotRatioMin)
	}
	if c.Model.SeparationProb < 0 || c.Model.SeparationProb > 1 {
		return fmt.Errorf("model.separation_prob must be in [0, 1], got %g", c.Model.SeparationProb)
	}
	if c.Model.ExitProbMax <= 0 || c.Model.ExitProbMax > 1 {
		return fmt.Errorf("model.exit_prob_max must be in (0, 1], got %g", c.Model.ExitProbMax)
	}
	if c.Model.ExitRamp <= 0 {
		return fmt.Errorf("model.exit_ramp must be positive, got %g", c.Model.ExitRamp)
	}
	return nil
}

// Params maps the configuration onto engine parameters.
func (c *Config) Params() engine.Params {
	p := engine.DefaultParams()
	p.Months = c.Months
	p.ChunkSize = c.ChunkSize
	p.SampleSize = c.SampleSize
	p.Seed = c.Seed
	p.Workers = c.Workers
	p.SlotRatio0 = c.Model.SlotRatio0
	p.SlotDecline = c.Model.SlotDecline
	p.HireFriction = c.Model.HireFriction
	p.SlotRatioMin = c.Model.SlotRatioMin
	p.SeparationProb = c.Model.SeparationProb
	p.SeparationHit = c.Model.SeparationHit
	p.ExitThresholdMonths = c.Model.ExitThresholdMonths
	p.ExitProbMax = c.Model.ExitProbMax
	p.ExitRamp = c.Model.ExitRamp
	return p
}
