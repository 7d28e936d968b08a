// Command runwaysim runs the capacity-constrained labor-market simulation
// and writes its monthly series as an NPZ archive.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/talgya/runwaysim/internal/config"
	"github.com/talgya/runwaysim/internal/engine"
	"github.com/talgya/runwaysim/internal/output"
	"github.com/talgya/runwaysim/internal/persistence"
	"github.com/talgya/runwaysim/internal/population"
	"github.com/talgya/runwaysim/internal/stats"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "runwaysim",
		Short: "Capacity-constrained labor-market simulation",
		Long: `runwaysim simulates labor-market participation for populations from
thousands to hundreds of millions of agents: a declining job-slot ratio,
per-agent cashflow buffers measured in runway months, random shocks and
separations, and irreversible exit from tracked activity.`,
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("runwaysim %s\n", version)
		},
	}
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			applyFlagOverrides(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return runSimulation(cfg)
		},
	}

	cmd.Flags().String("config", "configs/runwaysim.yaml", "Config file path")
	cmd.Flags().Int("population", 0, "Population size (use 100000000 for 100M)")
	cmd.Flags().Int("months", 0, "Number of monthly ticks")
	cmd.Flags().Int("chunk", 0, "Chunk size for processing")
	cmd.Flags().Int("sample", 0, "Sample size for percentiles/histograms")
	cmd.Flags().Uint64("seed", 0, "Random seed")
	cmd.Flags().Int("workers", 0, "Concurrent chunk workers (0 = one per CPU)")
	cmd.Flags().Bool("mmap", false, "Use disk-backed population arrays")
	cmd.Flags().String("mmap-dir", "", "Directory for disk-backed arrays")
	cmd.Flags().String("out", "", "Output NPZ path")
	cmd.Flags().String("db", "", "Optional SQLite path for run recording")
	cmd.Flags().Int("progress-every", 0, "Log progress every N months (0 = default)")

	return cmd
}

// applyFlagOverrides layers explicitly set flags over the loaded config.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("population") {
		cfg.Population, _ = f.GetInt("population")
	}
	if f.Changed("months") {
		cfg.Months, _ = f.GetInt("months")
	}
	if f.Changed("chunk") {
		cfg.ChunkSize, _ = f.GetInt("chunk")
	}
	if f.Changed("sample") {
		cfg.SampleSize, _ = f.GetInt("sample")
	}
	if f.Changed("seed") {
		cfg.Seed, _ = f.GetUint64("seed")
	}
	if f.Changed("workers") {
		cfg.Workers, _ = f.GetInt("workers")
	}
	if f.Changed("mmap") {
		cfg.MMap.Enabled, _ = f.GetBool("mmap")
	}
	if f.Changed("mmap-dir") {
		cfg.MMap.Dir, _ = f.GetString("mmap-dir")
	}
	if f.Changed("out") {
		cfg.Output.Path, _ = f.GetString("out")
	}
	if f.Changed("db") {
		cfg.Output.SQLitePath, _ = f.GetString("db")
	}
	if f.Changed("progress-every") {
		cfg.Output.ProgressEvery, _ = f.GetInt("progress-every")
	}
}

func runSimulation(cfg *config.Config) error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	runID := uuid.New().String()
	backend := "memory"
	if cfg.MMap.Enabled {
		backend = "mmap"
	}
	slog.Info("runwaysim starting",
		"run_id", runID,
		"population", humanize.Comma(int64(cfg.Population)),
		"months", cfg.Months,
		"chunk_size", humanize.Comma(int64(cfg.ChunkSize)),
		"sample_size", humanize.Comma(int64(cfg.SampleSize)),
		"seed", cfg.Seed,
		"backend", backend,
	)

	// ── Population ────────────────────────────────────────────────────
	pop, err := population.New(cfg.Population, population.Options{
		MMap: cfg.MMap.Enabled,
		Dir:  cfg.MMap.Dir,
	})
	if err != nil {
		return fmt.Errorf("create population: %w", err)
	}
	defer pop.Close()

	params := cfg.Params()
	population.Spawn(pop, params.Spawn, cfg.Seed)
	slog.Info("population spawned", "agents", humanize.Comma(int64(pop.Len())))

	// ── Scheduler ─────────────────────────────────────────────────────
	sched, err := engine.New(pop, params)
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	sched.ProgressEvery = cfg.Output.ProgressEvery

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	started := time.Now()
	ts, err := sched.Run(ctx)
	if err != nil {
		// Partial results are never written.
		return fmt.Errorf("simulation failed: %w", err)
	}
	finished := time.Now()

	// ── Output artifact ───────────────────────────────────────────────
	if err := output.WriteSeries(cfg.Output.Path, ts); err != nil {
		return fmt.Errorf("write series: %w", err)
	}
	slog.Info("series written", "path", cfg.Output.Path)

	// ── Run recording (optional) ──────────────────────────────────────
	if cfg.Output.SQLitePath != "" {
		db, err := persistence.Open(cfg.Output.SQLitePath)
		if err != nil {
			return fmt.Errorf("open run db: %w", err)
		}
		defer db.Close()

		err = db.RecordRun(persistence.RunInfo{
			ID:          runID,
			StartedAt:   started,
			FinishedAt:  finished,
			Seed:        cfg.Seed,
			Population:  cfg.Population,
			Months:      cfg.Months,
			ChunkSize:   cfg.ChunkSize,
			SampleSize:  cfg.SampleSize,
			Backend:     backend,
			Divergences: sched.Divergences(),
		}, ts)
		if err != nil {
			return fmt.Errorf("record run: %w", err)
		}
		slog.Info("run recorded", "db", cfg.Output.SQLitePath, "run_id", runID)
	}

	printSummary(cfg, ts, finished.Sub(started))
	return nil
}

func printSummary(cfg *config.Config, ts *stats.TimeSeries, elapsed time.Duration) {
	fmt.Println("\n=== FINAL ===")
	fmt.Printf("N: %s  months: %d  elapsed: %s\n",
		humanize.Comma(int64(cfg.Population)), cfg.Months, elapsed.Round(time.Millisecond))
	if ts.Months() == 0 {
		fmt.Println("No months simulated.")
		return
	}
	last := ts.Months() - 1
	exitPct := float64(ts.Exited[last]) / float64(cfg.Population) * 100
	unempRate := 0.0
	if ts.Active[last] > 0 {
		unempRate = float64(ts.Unemployed[last]) / float64(ts.Active[last])
	}
	fmt.Printf("Exited: %s  (%.2f%% over horizon)\n", humanize.Comma(ts.Exited[last]), exitPct)
	fmt.Printf("Unemployment rate (end): %.3f\n", unempRate)
	fmt.Printf("Median runway (end, sample): %.2f months\n", ts.P50Runway[last])
	fmt.Printf("Final effective job-slot ratio: %.3f\n", ts.FinalSlotRatio)
	fmt.Printf("Saved series to: %s\n", cfg.Output.Path)
}
