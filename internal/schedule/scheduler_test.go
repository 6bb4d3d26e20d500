package schedule

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"testing"

	"github.com/derekprior/potdraw/internal/config"
	"github.com/derekprior/potdraw/internal/draw"
	"github.com/derekprior/potdraw/internal/graph"
)

func defaultPairing(t *testing.T, seed int64) *draw.Pairing {
	t.Helper()
	cfg := config.Default()
	g := draw.NewGenerator(draw.OptionsFromConfig(cfg), rand.New(rand.NewSource(seed)))
	p, err := g.Generate(draw.GroupsFromConfig(cfg.Pots))
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	return p
}

// manualPairing builds a pairing with a single pot from an explicit edge list.
func manualPairing(size, quota int, edges []graph.Pair) *draw.Pairing {
	grp := draw.Group{ID: "pot1", Label: "Pot 1"}
	for i := 0; i < size; i++ {
		grp.Teams = append(grp.Teams, draw.Team{ID: fmt.Sprintf("t%d", i), Name: fmt.Sprintf("Team %d", i)})
	}
	groups := draw.NormalizeGroups([]draw.Group{grp})
	teams := groups[0].Teams
	p := &draw.Pairing{Groups: groups, Teams: teams, Quota: quota, Edges: edges}
	for _, t := range teams {
		p.Entries = append(p.Entries, draw.Entry{Team: t, OpponentsByGroup: map[string][]draw.Team{"pot1": nil}})
	}
	for _, e := range edges {
		p.Entries[e.A].OpponentsByGroup["pot1"] = append(p.Entries[e.A].OpponentsByGroup["pot1"], teams[e.B])
		p.Entries[e.B].OpponentsByGroup["pot1"] = append(p.Entries[e.B].OpponentsByGroup["pot1"], teams[e.A])
	}
	return p
}

func TestScheduleDefaultDraw(t *testing.T) {
	p := defaultPairing(t, 5)
	slots := DefaultSlots()

	result, err := Schedule(p, slots, Options{}, rand.New(rand.NewSource(5)))
	if err != nil {
		t.Fatalf("Schedule() error: %v", err)
	}

	t.Run("6 weeks of 12 matches", func(t *testing.T) {
		if len(result.Weeks) != 6 {
			t.Fatalf("weeks = %d, want 6", len(result.Weeks))
		}
		for _, w := range result.Weeks {
			if len(w.Fixtures) != 12 {
				t.Errorf("week %d has %d fixtures, want 12", w.Number, len(w.Fixtures))
			}
		}
	})

	t.Run("every team plays once per week", func(t *testing.T) {
		for _, w := range result.Weeks {
			seen := make(map[string]int)
			for _, f := range w.Fixtures {
				seen[f.TeamA.ID]++
				seen[f.TeamB.ID]++
			}
			if len(seen) != 24 {
				t.Errorf("week %d covers %d teams, want 24", w.Number, len(seen))
			}
			for id, c := range seen {
				if c != 1 {
					t.Errorf("week %d: %s plays %d times", w.Number, id, c)
				}
			}
		}
	})

	t.Run("matches equal the draw exactly", func(t *testing.T) {
		got := result.Matches()
		if len(got) != 72 {
			t.Fatalf("scheduled %d matches, want 72", len(got))
		}
		seen := make(map[graph.Pair]bool)
		for _, m := range got {
			if seen[m] {
				t.Errorf("match %v scheduled twice", m)
			}
			seen[m] = true
		}
		for _, m := range p.Matches() {
			if !seen[m] {
				t.Errorf("match %v never scheduled", m)
			}
		}
	})

	t.Run("fixture teams agree with pair", func(t *testing.T) {
		for _, w := range result.Weeks {
			for _, f := range w.Fixtures {
				if graph.NewPair(f.TeamA.Index, f.TeamB.Index) != f.Pair {
					t.Errorf("fixture %s v %s carries pair %v", f.TeamA.Name, f.TeamB.Name, f.Pair)
				}
			}
		}
	})

	t.Run("each slot used once per week", func(t *testing.T) {
		for _, w := range result.Weeks {
			used := make(map[Slot]int)
			for _, f := range w.Fixtures {
				used[Slot{Day: f.Day, Time: f.Time}]++
			}
			for _, s := range slots {
				if used[s] != 1 {
					t.Errorf("week %d uses %s %s %d times", w.Number, s.Day, s.Time, used[s])
				}
			}
		}
	})

	t.Run("team metrics", func(t *testing.T) {
		for _, team := range p.Teams {
			m := result.TeamMetrics[team.ID]
			if m == nil {
				t.Fatalf("no metrics for %s", team.Name)
			}
			if m.Games != 6 {
				t.Errorf("%s plays %d games, want 6", team.Name, m.Games)
			}
			total := 0
			for _, c := range m.Days {
				total += c
			}
			if total != 6 {
				t.Errorf("%s day counts sum to %d, want 6", team.Name, total)
			}
		}
	})
}

func partition(r *Result) []string {
	var weeks []string
	for _, w := range r.Weeks {
		var keys []string
		for _, f := range w.Fixtures {
			keys = append(keys, fmt.Sprintf("%d-%d", f.Pair.A, f.Pair.B))
		}
		sort.Strings(keys)
		weeks = append(weeks, strings.Join(keys, ","))
	}
	sort.Strings(weeks)
	return weeks
}

func TestScheduleIsStableForSeed(t *testing.T) {
	p := defaultPairing(t, 21)

	a, err := Schedule(p, nil, Options{}, rand.New(rand.NewSource(8)))
	if err != nil {
		t.Fatalf("Schedule() error: %v", err)
	}
	b, err := Schedule(p, nil, Options{}, rand.New(rand.NewSource(8)))
	if err != nil {
		t.Fatalf("Schedule() error: %v", err)
	}

	pa, pb := partition(a), partition(b)
	if strings.Join(pa, "|") != strings.Join(pb, "|") {
		t.Error("same pairing and seed produced different week partitions")
	}
}

func TestScheduleWithoutSlots(t *testing.T) {
	p := defaultPairing(t, 2)
	r, err := Schedule(p, nil, Options{}, rand.New(rand.NewSource(2)))
	if err != nil {
		t.Fatalf("Schedule() error: %v", err)
	}
	for _, w := range r.Weeks {
		for _, f := range w.Fixtures {
			if f.Day != "" || f.Time != "" {
				t.Fatalf("fixture has slot %s %s, want none", f.Day, f.Time)
			}
		}
	}
}

func TestScheduleOtherShapes(t *testing.T) {
	cases := []struct {
		name      string
		pots      int
		size      int
		quota     int
		wantWeeks int
	}{
		{name: "two pots of six", pots: 2, size: 6, quota: 2, wantWeeks: 4},
		{name: "four pots of four", pots: 4, size: 4, quota: 2, wantWeeks: 8},
		{name: "single pot of eight, quota one", pots: 1, size: 8, quota: 1, wantWeeks: 1},
		{name: "three pots of six, quota three", pots: 3, size: 6, quota: 3, wantWeeks: 9},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			groups := make([]draw.Group, c.pots)
			for i := range groups {
				for j := 0; j < c.size; j++ {
					groups[i].Teams = append(groups[i].Teams, draw.Team{Name: fmt.Sprintf("P%d T%d", i+1, j+1)})
				}
			}
			rng := rand.New(rand.NewSource(13))
			p, err := draw.NewGenerator(draw.Options{Quota: c.quota}, rng).Generate(groups)
			if err != nil {
				t.Fatalf("Generate() error: %v", err)
			}
			r, err := Schedule(p, nil, Options{}, rng)
			if err != nil {
				t.Fatalf("Schedule() error: %v", err)
			}
			if len(r.Weeks) != c.wantWeeks {
				t.Errorf("weeks = %d, want %d", len(r.Weeks), c.wantWeeks)
			}
			if len(r.Matches()) != len(p.Edges) {
				t.Errorf("scheduled %d matches, want %d", len(r.Matches()), len(p.Edges))
			}
		})
	}
}

func TestScheduleRebuildsFromOpponentLists(t *testing.T) {
	p := defaultPairing(t, 3)
	full := len(p.Edges)
	p.Edges = p.Edges[:full-5]

	r, err := Schedule(p, nil, Options{}, rand.New(rand.NewSource(3)))
	if err != nil {
		t.Fatalf("Schedule() error: %v", err)
	}
	if !r.Rebuilt {
		t.Error("expected edge set to be rebuilt")
	}
	if len(r.Matches()) != full {
		t.Errorf("scheduled %d matches, want %d", len(r.Matches()), full)
	}
}

func TestScheduleInconsistentGraph(t *testing.T) {
	t.Run("edges and opponent lists both short", func(t *testing.T) {
		p := defaultPairing(t, 4)
		p.Edges = p.Edges[:10]
		e := p.Entries[0]
		e.OpponentsByGroup = map[string][]draw.Team{}
		p.Entries[0] = e
		for i := range p.Entries {
			for gid, opps := range p.Entries[i].OpponentsByGroup {
				var kept []draw.Team
				for _, o := range opps {
					if o.Index != 0 {
						kept = append(kept, o)
					}
				}
				p.Entries[i].OpponentsByGroup[gid] = kept
			}
		}

		_, err := Schedule(p, nil, Options{}, rand.New(rand.NewSource(4)))
		if !errors.Is(err, ErrInconsistentGraph) {
			t.Errorf("error = %v, want ErrInconsistentGraph", err)
		}
	})

	t.Run("odd team count", func(t *testing.T) {
		p := manualPairing(5, 2, []graph.Pair{{A: 0, B: 1}, {A: 1, B: 2}, {A: 2, B: 3}, {A: 3, B: 4}, {A: 0, B: 4}})
		_, err := Schedule(p, nil, Options{}, rand.New(rand.NewSource(1)))
		if !errors.Is(err, ErrInconsistentGraph) {
			t.Errorf("error = %v, want ErrInconsistentGraph", err)
		}
	})
}

func TestScheduleNoFeasibleSchedule(t *testing.T) {
	t.Run("two triangles have no perfect matching", func(t *testing.T) {
		p := manualPairing(6, 2, []graph.Pair{{A: 0, B: 1}, {A: 1, B: 2}, {A: 0, B: 2}, {A: 3, B: 4}, {A: 4, B: 5}, {A: 3, B: 5}})
		_, err := Schedule(p, nil, Options{MaxRestarts: 3}, rand.New(rand.NewSource(1)))
		if !errors.Is(err, ErrNoFeasibleSchedule) {
			t.Fatalf("error = %v, want ErrNoFeasibleSchedule", err)
		}
		if !strings.Contains(err.Error(), "regenerate the draw") {
			t.Errorf("error %q should tell the user to regenerate the draw", err)
		}
	})

	t.Run("step ceiling counts as failure", func(t *testing.T) {
		p := defaultPairing(t, 6)
		_, err := Schedule(p, nil, Options{MaxRestarts: 2, MaxSteps: 3}, rand.New(rand.NewSource(6)))
		if !errors.Is(err, ErrNoFeasibleSchedule) {
			t.Errorf("error = %v, want ErrNoFeasibleSchedule", err)
		}
	})
}

func TestScheduleSlotMismatch(t *testing.T) {
	p := defaultPairing(t, 9)
	_, err := Schedule(p, DefaultSlots()[:5], Options{}, rand.New(rand.NewSource(9)))
	if err == nil {
		t.Fatal("expected error for slot template size")
	}
}

func TestBuildWeek(t *testing.T) {
	t.Run("square", func(t *testing.T) {
		pool := graph.NewAdjacency(4, []graph.Pair{{A: 0, B: 1}, {A: 1, B: 2}, {A: 2, B: 3}, {A: 0, B: 3}})
		s := &scheduler{n: 4, opts: Options{}.withDefaults(), rng: rand.New(rand.NewSource(1))}
		round, ok := s.buildWeek(pool)
		if !ok {
			t.Fatal("buildWeek() failed on a 4-cycle")
		}
		if len(round) != 2 {
			t.Fatalf("round = %v, want 2 matches", round)
		}
		if round[0].A == round[1].A || round[0].B == round[1].B ||
			round[0].A == round[1].B || round[0].B == round[1].A {
			t.Errorf("round %v reuses a team", round)
		}
	})

	t.Run("needs backtracking", func(t *testing.T) {
		// Only 0-1 covers team 0; taking 1-2 or 1-4 first strands it.
		pool := graph.NewAdjacency(6, []graph.Pair{{A: 0, B: 1}, {A: 1, B: 2}, {A: 2, B: 3}, {A: 3, B: 4}, {A: 4, B: 5}, {A: 2, B: 5}, {A: 1, B: 4}})
		for seed := int64(0); seed < 20; seed++ {
			s := &scheduler{n: 6, opts: Options{}.withDefaults(), rng: rand.New(rand.NewSource(seed))}
			round, ok := s.buildWeek(pool)
			if !ok {
				t.Fatalf("seed %d: buildWeek() failed", seed)
			}
			covered := make(map[int]bool)
			for _, p := range round {
				if !pool.Has(p) {
					t.Errorf("seed %d: %v is not an edge", seed, p)
				}
				covered[p.A] = true
				covered[p.B] = true
			}
			if len(covered) != 6 {
				t.Errorf("seed %d: round %v covers %d teams", seed, round, len(covered))
			}
		}
	})

	t.Run("isolated team", func(t *testing.T) {
		pool := graph.NewAdjacency(4, []graph.Pair{{A: 0, B: 1}, {A: 1, B: 2}})
		s := &scheduler{n: 4, opts: Options{}.withDefaults(), rng: rand.New(rand.NewSource(1))}
		if _, ok := s.buildWeek(pool); ok {
			t.Error("buildWeek() succeeded with an isolated team")
		}
	})
}

func TestDiagnose(t *testing.T) {
	p := defaultPairing(t, 10)
	d := Diagnose(p)
	if !d.Consistent() {
		t.Errorf("fresh draw reported inconsistent: %+v", d)
	}
	if d.ExpectedMatches != 72 || d.DirectMatches != 72 || d.RebuiltMatches != 72 {
		t.Errorf("counts = %d/%d/%d, want 72 each", d.DirectMatches, d.ExpectedMatches, d.RebuiltMatches)
	}
	for _, td := range d.PerTeam {
		if td.Opponents != td.Expected {
			t.Errorf("%s has %d opponents, want %d", td.Team.Name, td.Opponents, td.Expected)
		}
	}

	p.Edges = p.Edges[:70]
	if Diagnose(p).Consistent() {
		t.Error("truncated edges reported consistent")
	}
}
