package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Population != 2_000_000 {
		t.Errorf("default population = %d", cfg.Population)
	}
	if cfg.Months != 24 || cfg.ChunkSize != 500_000 || cfg.SampleSize != 200_000 {
		t.Errorf("unexpected run defaults: %+v", cfg)
	}
	if cfg.Output.Path != "sim_series.npz" {
		t.Errorf("default output path = %q", cfg.Output.Path)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	content := `
population: 5000
months: 12
chunk_size: 1000
sample_size: 500
seed: 7
mmap:
  enabled: true
  dir: /tmp/simdata
model:
  slot_ratio0: 0.5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RUNWAYSIM_SEED", "99")
	t.Setenv("RUNWAYSIM_OUT", "override.npz")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Population != 5000 || cfg.Months != 12 {
		t.Errorf("yaml values not applied: %+v", cfg)
	}
	if !cfg.MMap.Enabled || cfg.MMap.Dir != "/tmp/simdata" {
		t.Errorf("mmap section not applied: %+v", cfg.MMap)
	}
	if cfg.Seed != 99 {
		t.Errorf("env seed override not applied: %d", cfg.Seed)
	}
	if cfg.Output.Path != "override.npz" {
		t.Errorf("env output override not applied: %q", cfg.Output.Path)
	}
	if cfg.Model.SlotRatio0 != 0.5 {
		t.Errorf("model override not applied: %v", cfg.Model.SlotRatio0)
	}
	// Untouched model knobs keep their defaults.
	if cfg.Model.SeparationProb == 0 {
		t.Error("model defaults not backfilled")
	}
}

func TestSampleDefaultShrinksToPopulation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(path, []byte("population: 2000\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SampleSize != 2000 {
		t.Errorf("sample default = %d, want clamped to population 2000", cfg.SampleSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("clamped default should validate: %v", err)
	}
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		if err != nil {
			t.Fatal(err)
		}
		return cfg
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero population", func(c *Config) { c.Population = 0 }},
		{"negative months", func(c *Config) { c.Months = -1 }},
		{"zero chunk", func(c *Config) { c.ChunkSize = 0 }},
		{"zero sample", func(c *Config) { c.SampleSize = 0 }},
		{"sample beyond population", func(c *Config) { c.SampleSize = c.Population + 1 }},
		{"negative workers", func(c *Config) { c.Workers = -2 }},
		{"empty output path", func(c *Config) { c.Output.Path = "" }},
		{"mmap without dir", func(c *Config) { c.MMap.Enabled = true; c.MMap.Dir = "" }},
		{"ratio above one", func(c *Config) { c.Model.SlotRatio0 = 1.5 }},
		{"decline of one", func(c *Config) { c.Model.SlotDecline = 1.0 }},
		{"friction above one", func(c *Config) { c.Model.HireFriction = 1.2 }},
		{"floor above initial ratio", func(c *Config) { c.Model.SlotRatioMin = 0.9 }},
		{"separation above one", func(c *Config) { c.Model.SeparationProb = 1.1 }},
		{"exit prob above one", func(c *Config) { c.Model.ExitProbMax = 1.5 }},
		{"negative exit ramp", func(c *Config) { c.Model.ExitRamp = -0.1 }},
	}
	for _, tc := range cases {
		cfg := base()
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestParamsMapping(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	cfg.Months = 36
	cfg.ChunkSize = 1234
	cfg.SampleSize = 999
	cfg.Seed = 5
	cfg.Model.SlotRatio0 = 0.44

	p := cfg.Params()
	if p.Months != 36 || p.ChunkSize != 1234 || p.SampleSize != 999 || p.Seed != 5 {
		t.Errorf("run parameters not mapped: %+v", p)
	}
	if p.SlotRatio0 != 0.44 {
		t.Errorf("model parameter not mapped: %v", p.SlotRatio0)
	}
	if len(p.HistBins) < 2 {
		t.Error("histogram bins missing from mapped params")
	}
}
