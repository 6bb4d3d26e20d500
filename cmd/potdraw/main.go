package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/derekprior/potdraw/internal/config"
	"github.com/derekprior/potdraw/internal/draw"
	"github.com/derekprior/potdraw/internal/excel"
	"github.com/derekprior/potdraw/internal/schedule"
	"github.com/derekprior/potdraw/internal/server"
	"github.com/derekprior/potdraw/internal/simulate"
	"github.com/derekprior/potdraw/internal/validator"
)

const defaultConfigFile = "config.yaml"

// resolveConfigPath picks the config file from the flag, then POTDRAW_CONFIG,
// then config.yaml in the current directory. An empty path means the
// built-in configuration.
func resolveConfigPath(configFlag string) string {
	if configFlag != "" {
		return configFlag
	}
	if env := os.Getenv("POTDRAW_CONFIG"); env != "" {
		return env
	}
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return defaultConfigFile
	}
	return ""
}

func loadConfig(configFlag string) (*config.Config, error) {
	path := resolveConfigPath(configFlag)
	if path == "" {
		fmt.Printf("No %s found; using the built-in 24-team configuration\n", defaultConfigFile)
		return config.Default(), nil
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// resolveSeed prefers the flag, then the config, then the clock.
func resolveSeed(flag int64, cfg *config.Config) int64 {
	if flag != 0 {
		return flag
	}
	if cfg.Seed != 0 {
		return cfg.Seed
	}
	return time.Now().UnixNano()
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("loading .env: %v", err)
	}

	rootCmd := &cobra.Command{
		Use:   "potdraw",
		Short: "Pot-based draw and weekly fixture generator",
	}

	var configFile string
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (default: $POTDRAW_CONFIG or config.yaml in current directory)")

	var initOutputPath string
	initCmd := &cobra.Command{
		Use:          "init",
		Short:        "Create a starter config.yaml in the current directory",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(initOutputPath)
		},
	}
	initCmd.Flags().StringVarP(&initOutputPath, "output", "o", defaultConfigFile, "Output path for the config file")

	drawCmd := &cobra.Command{
		Use:   "draw",
		Short: "Generate and validate draws and fixtures",
	}

	var (
		outputFile string
		seed       int64
		drawOnly   bool
	)
	generateCmd := &cobra.Command{
		Use:          "generate",
		Short:        "Draw opponents and schedule them into weeks",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile)
			if err != nil {
				return err
			}
			return runGenerate(cfg, resolveSeed(seed, cfg), outputFile, drawOnly)
		},
	}
	generateCmd.Flags().StringVarP(&outputFile, "output", "o", "draw.xlsx", "Output Excel file path")
	generateCmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (default: config seed, else the clock)")
	generateCmd.Flags().BoolVar(&drawOnly, "draw-only", false, "Skip fixture scheduling")

	validateCmd := &cobra.Command{
		Use:          "validate <draw.xlsx>",
		Short:        "Validate a fixtures workbook against the config",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile)
			if err != nil {
				return err
			}
			return runValidate(cfg, args[0])
		},
	}

	var simOpts simulate.Options
	simulateCmd := &cobra.Command{
		Use:          "simulate",
		Short:        "Run many draws and schedules and report how often retries are needed",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile)
			if err != nil {
				return err
			}
			simOpts.BaseSeed = resolveSeed(simOpts.BaseSeed, cfg)
			return runSimulate(cmd.Context(), cfg, simOpts)
		},
	}
	simulateCmd.Flags().IntVar(&simOpts.Runs, "runs", simulate.DefaultRuns, "Number of draws to simulate")
	simulateCmd.Flags().IntVar(&simOpts.Workers, "workers", 0, "Concurrent workers (default: GOMAXPROCS)")
	simulateCmd.Flags().Int64Var(&simOpts.BaseSeed, "seed", 0, "Seed of the first run; run i uses seed+i")

	var (
		port    string
		origins []string
	)
	serveCmd := &cobra.Command{
		Use:          "serve",
		Short:        "Serve draws and fixtures over HTTP",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile)
			if err != nil {
				return err
			}
			if port == "" {
				port = os.Getenv("PORT")
			}
			if port == "" {
				port = "8080"
			}
			if len(origins) == 0 && os.Getenv("CORS_ORIGINS") != "" {
				origins = strings.Split(os.Getenv("CORS_ORIGINS"), ",")
			}
			return server.New(cfg, server.Options{AllowOrigins: origins}).Run(":" + port)
		},
	}
	serveCmd.Flags().StringVar(&port, "port", "", "Port to listen on (default: $PORT or 8080)")
	serveCmd.Flags().StringSliceVar(&origins, "origin", nil, "Allowed CORS origin, repeatable (default: $CORS_ORIGINS or any)")

	drawCmd.AddCommand(generateCmd, validateCmd)
	rootCmd.AddCommand(initCmd, drawCmd, simulateCmd, serveCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func runInit(outputPath string) error {
	if _, err := os.Stat(outputPath); err == nil {
		return fmt.Errorf("%s already exists; remove it first or use -o to write elsewhere", outputPath)
	}

	if err := os.WriteFile(outputPath, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("✓ Created %s\n", outputPath)
	return nil
}

const configTemplate = `# Pot Draw Configuration
# =======================
# This file defines the pots, the opponent quota and the weekly fixture slots.

# Quota is the number of opponents every team draws from each pot, its own
# pot included. With 3 pots and a quota of 2 every team plays 6 matches.
# An odd quota needs an even number of teams per pot.
quota: 2

# Seed makes a draw reproducible. 0 seeds from the clock; the seed used is
# printed so a draw can be repeated with --seed.
seed: 0

# Pots of teams. Every pot must have the same number of teams and team names
# must be unique across all pots. A team can be a bare name or an id/name
# mapping; ids default to a slug of the name.
pots:
  - label: Pot 1
    teams:
      - {id: man-city, name: Manchester City}
      - Real Madrid
      - Bayern Munich
      - Paris Saint-Germain
      - Liverpool
      - Barcelona
      - Inter
      - Arsenal
  - label: Pot 2
    teams: [Juventus, Atletico Madrid, Borussia Dortmund, RB Leipzig, Porto, Benfica, Napoli, Tottenham]
  - label: Pot 3
    teams: [Ajax, Sevilla, AC Milan, Lazio, Shakhtar Donetsk, Monaco, Bayer Leverkusen, PSV Eindhoven]

# Draw limits. A draw is retried up to max_attempts times before falling back
# to a deterministic construction.
draw:
  max_attempts: 20
  max_resamples: 30     # tries to find a non-clashing cross-pot permutation

# Fixture scheduling. Every week each team plays exactly once.
fixtures:
  max_restarts: 200            # full restarts before asking for a new draw
  max_backtrack_steps: 60000   # search steps allowed per week

  # Weekly slot template. It must have one slot per match in a week (half
  # the number of teams) or be left out entirely. With 24 teams the built-in
  # four-evening template is used when slots are omitted.
  slots:
    - {day: Thursday, time: "21:00-22:00"}
    - {day: Thursday, time: "22:00-23:00"}
    - {day: Thursday, time: "23:00-00:00"}
    - {day: Friday, time: "21:00-22:00"}
    - {day: Friday, time: "22:00-23:00"}
    - {day: Friday, time: "23:00-00:00"}
    - {day: Saturday, time: "21:00-22:00"}
    - {day: Saturday, time: "22:00-23:00"}
    - {day: Saturday, time: "23:00-00:00"}
    - {day: Sunday, time: "21:00-22:00"}
    - {day: Sunday, time: "22:00-23:00"}
    - {day: Sunday, time: "23:00-00:00"}
`

func runGenerate(cfg *config.Config, seed int64, outputPath string, drawOnly bool) error {
	rng := rand.New(rand.NewSource(seed))
	groups := draw.GroupsFromConfig(cfg.Pots)

	fmt.Printf("Drawing %d teams from %d pots (%d opponents per pot, seed %d)...\n",
		cfg.TeamCount(), len(groups), cfg.Quota, seed)

	p, err := draw.NewGenerator(draw.OptionsFromConfig(cfg), rng).Generate(groups)
	if err != nil {
		return err
	}
	if p.Deterministic {
		fmt.Printf("⚠ Randomized draw failed %d times; used the deterministic fallback\n", p.Attempts)
	}
	fmt.Printf("✓ %d matches drawn (attempt %d)\n", len(p.Edges), p.Attempts)

	var result *schedule.Result
	slots := schedule.GenerateSlots(cfg)
	if !drawOnly {
		weeks := len(p.Edges) / (len(p.Teams) / 2)
		fmt.Printf("Scheduling %d matches into %d weeks...\n", len(p.Edges), weeks)

		var schedErr error
		result, schedErr = schedule.Schedule(p, slots, schedule.OptionsFromConfig(cfg), rng)
		if schedErr != nil {
			fmt.Fprintf(os.Stderr, "⚠ %s\n", schedErr)
			fmt.Fprintf(os.Stderr, "\nSaving the draw without fixtures...\n")
			if err := save(p, nil, slots, outputPath); err != nil {
				return err
			}
			return fmt.Errorf("fixtures not generated; try another --seed")
		}
		fmt.Printf("✓ All %d weeks scheduled (%d restarts)\n", len(result.Weeks), result.Restarts)
	}

	violations := validator.CheckPairing(p)
	if result != nil {
		violations = append(violations, validator.CheckSchedule(p, result)...)
		printMetrics(p, result, slots)
	}
	if len(violations) > 0 {
		for _, v := range violations {
			fmt.Printf("  ✗ %s\n", v.Message)
		}
		return fmt.Errorf("%d violations in generated output", len(violations))
	}
	fmt.Println("\n✓ No violations")

	return save(p, result, slots, outputPath)
}

func printMetrics(p *draw.Pairing, result *schedule.Result, slots []schedule.Slot) {
	days := schedule.Days(slots)

	fmt.Println("\nPer Team Metrics:")
	fmt.Printf("  %-22s %5s", "Team", "Games")
	for _, d := range days {
		fmt.Printf(" %4.3s", d)
	}
	fmt.Println()
	for _, t := range p.Teams {
		m := result.TeamMetrics[t.ID]
		fmt.Printf("  %-22s %5d", t.Name, m.Games)
		for _, d := range days {
			fmt.Printf(" %4d", m.Days[d])
		}
		fmt.Println()
	}
}

func save(p *draw.Pairing, result *schedule.Result, slots []schedule.Slot, outputPath string) error {
	f, err := excel.Generate(p, result, slots)
	if err != nil {
		return fmt.Errorf("generating Excel: %w", err)
	}

	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("saving file: %w", err)
	}

	fmt.Printf("\n✓ Draw saved to %s\n", outputPath)
	return nil
}

func runValidate(cfg *config.Config, path string) error {
	violations, err := validator.Validate(cfg, path)
	if err != nil {
		return fmt.Errorf("validating: %w", err)
	}

	errors := 0
	warnings := 0
	for _, v := range violations {
		switch v.Type {
		case "error":
			errors++
			fmt.Printf("✗ Rule violation: %s\n", v.Message)
		case "warning":
			warnings++
			fmt.Printf("⚠ Guideline violation: %s\n", v.Message)
		}
	}

	fmt.Printf("\nValidation complete: %d rule violations, %d guideline violations\n", errors, warnings)

	if errors > 0 {
		return fmt.Errorf("%d constraint violations found", errors)
	}

	// Regenerate team sheets from the Fixtures sheet
	if err := excel.UpdateTeamSheets(path, draw.GroupsFromConfig(cfg.Pots)); err != nil {
		return fmt.Errorf("updating team sheets: %w", err)
	}
	fmt.Printf("✓ Team sheets updated in %s\n", path)
	return nil
}

func runSimulate(ctx context.Context, cfg *config.Config, opts simulate.Options) error {
	fmt.Printf("Simulating %d draws of %d teams (seeds %d..%d)...\n",
		opts.Runs, cfg.TeamCount(), opts.BaseSeed, opts.BaseSeed+int64(opts.Runs)-1)

	start := time.Now()
	s, err := simulate.Run(ctx, cfg, opts)
	if err != nil {
		return err
	}

	fmt.Printf("\n  %-28s %d\n", "Draws", s.Runs)
	fmt.Printf("  %-28s %d\n", "Deterministic fallbacks", s.Fallbacks)
	fmt.Printf("  %-28s %d\n", "Most draw attempts", s.MaxAttempts)
	fmt.Printf("  %-28s %d\n", "Unschedulable draws", s.Failures)
	fmt.Printf("  %-28s %.2f\n", "Mean schedule restarts", s.MeanRestarts())
	fmt.Printf("  %-28s %d\n", "Most schedule restarts", s.MaxRestarts)
	fmt.Printf("  %-28s %s\n", "Elapsed", time.Since(start).Round(time.Millisecond))

	if s.Failures > 0 {
		fmt.Printf("\n⚠ %d of %d draws needed a fresh draw before they could be scheduled\n", s.Failures, s.Runs)
	} else {
		fmt.Println("\n✓ Every draw was scheduled")
	}
	return nil
}
