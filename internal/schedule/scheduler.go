package schedule

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/bits-and-blooms/bitset"

	"github.com/derekprior/potdraw/internal/config"
	"github.com/derekprior/potdraw/internal/draw"
	"github.com/derekprior/potdraw/internal/graph"
)

var (
	// ErrNoFeasibleSchedule means every restart hit a dead end. The draw
	// itself is fine; a new draw will usually schedule.
	ErrNoFeasibleSchedule = errors.New("no feasible schedule")

	// ErrInconsistentGraph means the pairing does not have the number of
	// matches its quota implies, even after rebuilding it from the per-team
	// opponent lists.
	ErrInconsistentGraph = errors.New("inconsistent pairing graph")
)

const (
	DefaultMaxRestarts = 200
	DefaultMaxSteps    = 60000
)

// Options bounds the search. Zero values take the defaults.
type Options struct {
	MaxRestarts int // full restarts before giving up
	MaxSteps    int // backtracking steps allowed per week
}

func (o Options) withDefaults() Options {
	if o.MaxRestarts <= 0 {
		o.MaxRestarts = DefaultMaxRestarts
	}
	if o.MaxSteps <= 0 {
		o.MaxSteps = DefaultMaxSteps
	}
	return o
}

// OptionsFromConfig returns the search limits configured in cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MaxRestarts: cfg.Fixtures.MaxRestarts,
		MaxSteps:    cfg.Fixtures.MaxBacktrackSteps,
	}
}

// Fixture is one match placed in a week.
type Fixture struct {
	Day   string
	Time  string
	TeamA draw.Team
	TeamB draw.Team
	Pair  graph.Pair
}

// Week is a set of fixtures in which every team plays exactly once.
type Week struct {
	Number   int
	Fixtures []Fixture
}

// TeamMetrics holds per-team schedule statistics.
type TeamMetrics struct {
	Games int
	Days  map[string]int // games per slot day
}

// Result is the output of the scheduling process.
type Result struct {
	Weeks       []Week
	Restarts    int  // restarts used before the accepted attempt
	Rebuilt     bool // edge set was rebuilt from per-team opponent lists
	TeamMetrics map[string]*TeamMetrics
}

// Matches returns every scheduled match, week by week.
func (r *Result) Matches() []graph.Pair {
	var pairs []graph.Pair
	for _, w := range r.Weeks {
		for _, f := range w.Fixtures {
			pairs = append(pairs, f.Pair)
		}
	}
	return pairs
}

// Schedule splits the pairing's matches into weeks. Each week is a perfect
// matching over all teams, no match is used twice, and every match is used.
// A week that cannot be completed discards the whole attempt and the search
// starts over from the full set of matches.
func Schedule(p *draw.Pairing, slots []Slot, opts Options, rng *rand.Rand) (*Result, error) {
	opts = opts.withDefaults()

	edges, rebuilt, err := reconcile(p)
	if err != nil {
		return nil, err
	}

	n := len(p.Teams)
	perWeek := n / 2
	if len(slots) != 0 && len(slots) != perWeek {
		return nil, fmt.Errorf("slot template has %d slots but each week has %d matches", len(slots), perWeek)
	}
	weeks := len(edges) / perWeek

	s := &scheduler{
		n:    n,
		base: graph.NewAdjacency(n, edges),
		opts: opts,
		rng:  rng,
	}

	for attempt := range opts.MaxRestarts {
		rounds, ok := s.attempt(weeks)
		if !ok {
			continue
		}
		r := &Result{Restarts: attempt, Rebuilt: rebuilt}
		for i, round := range rounds {
			week := Week{Number: i + 1}
			for j, slot := range assignSlots(round, slots, rng) {
				pair := round[j]
				week.Fixtures = append(week.Fixtures, Fixture{
					Day:   slot.Day,
					Time:  slot.Time,
					TeamA: p.Teams[pair.A],
					TeamB: p.Teams[pair.B],
					Pair:  pair,
				})
			}
			r.Weeks = append(r.Weeks, week)
		}
		r.TeamMetrics = buildMetrics(p, r.Weeks)
		return r, nil
	}

	return nil, fmt.Errorf("%w: %d matches could not be split into %d weeks after %d attempts; regenerate the draw and retry scheduling",
		ErrNoFeasibleSchedule, len(edges), weeks, opts.MaxRestarts)
}

// reconcile returns the edge set to schedule. The recorded edges are used
// when their count matches the quota; otherwise the set is rebuilt from the
// per-team opponent lists.
func reconcile(p *draw.Pairing) ([]graph.Pair, bool, error) {
	n := len(p.Teams)
	if n == 0 || n%2 != 0 {
		return nil, false, fmt.Errorf("%w: %d teams cannot all play in the same week", ErrInconsistentGraph, n)
	}
	if (n*p.QuotaTotal())%2 != 0 {
		return nil, false, fmt.Errorf("%w: %d teams with %d opponents each is not a whole number of matches",
			ErrInconsistentGraph, n, p.QuotaTotal())
	}
	expected := n * p.QuotaTotal() / 2

	edges, rebuilt := dedupe(p.Edges, n), false
	if len(edges) != expected {
		edges, rebuilt = dedupe(p.Matches(), n), true
		if len(edges) != expected {
			return nil, false, fmt.Errorf("%w: expected %d matches, found %d (rebuilt %d)",
				ErrInconsistentGraph, expected, len(dedupe(p.Edges, n)), len(edges))
		}
	}
	if len(edges)%(n/2) != 0 {
		return nil, false, fmt.Errorf("%w: %d matches do not divide into weeks of %d",
			ErrInconsistentGraph, len(edges), n/2)
	}
	return edges, rebuilt, nil
}

// dedupe drops repeated, self and out-of-range pairs.
func dedupe(pairs []graph.Pair, n int) []graph.Pair {
	seen := make(map[graph.Pair]bool, len(pairs))
	out := make([]graph.Pair, 0, len(pairs))
	for _, p := range pairs {
		p = graph.NewPair(p.A, p.B)
		if p.A == p.B || p.A < 0 || p.B >= n || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

type scheduler struct {
	n    int
	base *graph.Adjacency
	opts Options
	rng  *rand.Rand
}

// attempt builds every week from a fresh copy of the full graph.
func (s *scheduler) attempt(weeks int) ([][]graph.Pair, bool) {
	pool := s.base.Clone()
	rounds := make([][]graph.Pair, 0, weeks)
	for range weeks {
		round, ok := s.buildWeek(pool)
		if !ok {
			return nil, false
		}
		for _, p := range round {
			pool.Remove(p)
		}
		rounds = append(rounds, round)
	}
	return rounds, pool.EdgeCount() == 0
}

// frame is one decision in the week search: team is matched with
// candidates[next-1] when partner is set.
type frame struct {
	team       int
	candidates []int
	next       int
	partner    int
}

// buildWeek finds a perfect matching in pool by depth-first search over an
// explicit stack. The unmatched team with the fewest available partners is
// decided first and its partners are tried in random order.
func (s *scheduler) buildWeek(pool *graph.Adjacency) ([]graph.Pair, bool) {
	unmatched := graph.Full(s.n)
	var stack []frame
	steps := 0
	descend := true

	for {
		if descend {
			if unmatched.None() {
				round := make([]graph.Pair, 0, len(stack))
				for _, f := range stack {
					round = append(round, graph.NewPair(f.team, f.partner))
				}
				return round, true
			}
			team, candidates := selectTeam(pool, unmatched)
			if len(candidates) > 0 {
				stack = append(stack, frame{
					team:       team,
					candidates: graph.Shuffle(s.rng, candidates),
					partner:    -1,
				})
			}
			// no candidates: dead end, fall through and revise the last decision
		}

		if len(stack) == 0 {
			return nil, false
		}
		steps++
		if steps > s.opts.MaxSteps {
			return nil, false
		}

		top := &stack[len(stack)-1]
		if top.partner >= 0 {
			unmatched.Set(uint(top.team))
			unmatched.Set(uint(top.partner))
			top.partner = -1
		}
		for top.next < len(top.candidates) && !unmatched.Test(uint(top.candidates[top.next])) {
			top.next++
		}
		if top.next == len(top.candidates) {
			stack = stack[:len(stack)-1]
			descend = false
			continue
		}

		top.partner = top.candidates[top.next]
		top.next++
		unmatched.Clear(uint(top.team))
		unmatched.Clear(uint(top.partner))
		descend = true
	}
}

// selectTeam returns the unmatched team with the fewest unmatched partners
// left in pool, and those partners. A team with none is returned at once.
func selectTeam(pool *graph.Adjacency, unmatched *bitset.BitSet) (int, []int) {
	best, bestDegree := -1, math.MaxInt
	for _, t := range graph.Members(unmatched) {
		d := pool.Degree(t, unmatched)
		if d == 0 {
			return t, nil
		}
		if d < bestDegree {
			best, bestDegree = t, d
		}
	}
	return best, pool.Candidates(best, unmatched)
}

func buildMetrics(p *draw.Pairing, weeks []Week) map[string]*TeamMetrics {
	metrics := make(map[string]*TeamMetrics, len(p.Teams))
	for _, t := range p.Teams {
		metrics[t.ID] = &TeamMetrics{Days: make(map[string]int)}
	}
	for _, w := range weeks {
		for _, f := range w.Fixtures {
			for _, t := range []draw.Team{f.TeamA, f.TeamB} {
				m := metrics[t.ID]
				m.Games++
				if f.Day != "" {
					m.Days[f.Day]++
				}
			}
		}
	}
	return metrics
}
