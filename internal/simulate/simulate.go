// Package simulate runs many independent draws and schedules to measure how
// often the randomized paths need fallbacks, restarts or a fresh draw.
package simulate

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/derekprior/potdraw/internal/config"
	"github.com/derekprior/potdraw/internal/draw"
	"github.com/derekprior/potdraw/internal/schedule"
	"github.com/derekprior/potdraw/internal/validator"
)

const DefaultRuns = 100

type Options struct {
	Runs     int
	Workers  int // defaults to GOMAXPROCS
	BaseSeed int64
}

// RunResult is the outcome of one draw and schedule.
type RunResult struct {
	Seed          int64
	Attempts      int
	Deterministic bool
	Scheduled     bool
	Restarts      int
}

// Summary aggregates every run.
type Summary struct {
	Runs          int
	Fallbacks     int // draws built by the deterministic fallback
	Failures      int // draws that could not be scheduled
	MaxAttempts   int
	MaxRestarts   int
	TotalRestarts int
	Results       []RunResult // by run index
}

// MeanRestarts is the average restart count over scheduled runs.
func (s *Summary) MeanRestarts() float64 {
	scheduled := s.Runs - s.Failures
	if scheduled == 0 {
		return 0
	}
	return float64(s.TotalRestarts) / float64(scheduled)
}

// Run performs opts.Runs draws, each with its own generator seeded
// BaseSeed+i, and schedules every one. An unsatisfiable draw, an
// inconsistent graph or an invalid result stops the simulation; a draw that
// cannot be scheduled is counted as a failure.
func Run(ctx context.Context, cfg *config.Config, opts Options) (*Summary, error) {
	if opts.Runs <= 0 {
		opts.Runs = DefaultRuns
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}

	groups := draw.GroupsFromConfig(cfg.Pots)
	drawOpts := draw.OptionsFromConfig(cfg)
	schedOpts := schedule.OptionsFromConfig(cfg)
	slots := schedule.GenerateSlots(cfg)

	results := make([]RunResult, opts.Runs)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for i := range opts.Runs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			seed := opts.BaseSeed + int64(i)
			r, err := runOnce(groups, drawOpts, schedOpts, slots, seed)
			if err != nil {
				return fmt.Errorf("run %d (seed %d): %w", i, seed, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s := &Summary{Runs: opts.Runs, Results: results}
	for _, r := range results {
		if r.Deterministic {
			s.Fallbacks++
		}
		s.MaxAttempts = max(s.MaxAttempts, r.Attempts)
		if !r.Scheduled {
			s.Failures++
			continue
		}
		s.TotalRestarts += r.Restarts
		s.MaxRestarts = max(s.MaxRestarts, r.Restarts)
	}
	return s, nil
}

func runOnce(groups []draw.Group, drawOpts draw.Options, schedOpts schedule.Options, slots []schedule.Slot, seed int64) (RunResult, error) {
	rng := rand.New(rand.NewSource(seed))
	r := RunResult{Seed: seed}

	p, err := draw.NewGenerator(drawOpts, rng).Generate(groups)
	if err != nil {
		return r, err
	}
	r.Attempts = p.Attempts
	r.Deterministic = p.Deterministic
	if errs := validator.Errors(validator.CheckPairing(p)); len(errs) > 0 {
		return r, fmt.Errorf("invalid draw: %s", errs[0].Message)
	}

	result, err := schedule.Schedule(p, slots, schedOpts, rng)
	if errors.Is(err, schedule.ErrNoFeasibleSchedule) {
		return r, nil
	}
	if err != nil {
		return r, err
	}
	if errs := validator.Errors(validator.CheckSchedule(p, result)); len(errs) > 0 {
		return r, fmt.Errorf("invalid schedule: %s", errs[0].Message)
	}
	r.Scheduled = true
	r.Restarts = result.Restarts
	return r, nil
}
