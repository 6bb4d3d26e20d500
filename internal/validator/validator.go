package validator

import (
	"fmt"

	"github.com/derekprior/potdraw/internal/config"
	"github.com/derekprior/potdraw/internal/draw"
	"github.com/derekprior/potdraw/internal/excel"
	"github.com/derekprior/potdraw/internal/graph"
	"github.com/derekprior/potdraw/internal/schedule"
	"github.com/xuri/excelize/v2"
)

// Violation represents a constraint violation found during validation.
type Violation struct {
	Row     int    // workbook row, 0 when not tied to one
	Type    string // "error" or "warning"
	Message string
}

// Errors returns only the hard violations.
func Errors(violations []Violation) []Violation {
	var out []Violation
	for _, v := range violations {
		if v.Type == "error" {
			out = append(out, v)
		}
	}
	return out
}

// CheckPairing checks a draw: every team has quota opponents from every pot,
// nobody is paired with itself, opponent lists agree in both directions and
// no match appears twice.
func CheckPairing(p *draw.Pairing) []Violation {
	var violations []Violation
	n := len(p.Teams)

	seen := make(map[graph.Pair]bool)
	for _, e := range p.Edges {
		pair := graph.NewPair(e.A, e.B)
		switch {
		case pair.A < 0 || pair.B >= n:
			violations = append(violations, errorf(0, "match %d-%d refers to an unknown team", e.A, e.B))
			continue
		case pair.A == pair.B:
			violations = append(violations, errorf(0, "%s is drawn against itself", p.Teams[pair.A].Name))
		case seen[pair]:
			violations = append(violations, errorf(0, "%s vs %s is drawn twice",
				p.Teams[pair.A].Name, p.Teams[pair.B].Name))
		}
		seen[pair] = true
	}
	if want := n * p.QuotaTotal() / 2; len(p.Edges) != want {
		violations = append(violations, errorf(0, "draw has %d matches, want %d", len(p.Edges), want))
	}

	pots := make(map[string]bool, len(p.Groups))
	for _, g := range p.Groups {
		if pots[g.ID] {
			violations = append(violations, errorf(0, "pot id %q is used by more than one pot", g.ID))
		}
		pots[g.ID] = true
	}

	// listed[a][b] is true when a's entry names b as an opponent.
	listed := make(map[int]map[int]bool, len(p.Entries))
	for _, e := range p.Entries {
		listed[e.Team.Index] = make(map[int]bool)
		for _, g := range p.Groups {
			for _, opp := range e.OpponentsByGroup[g.ID] {
				listed[e.Team.Index][opp.Index] = true
			}
		}
	}

	for _, e := range p.Entries {
		for _, g := range p.Groups {
			opps := e.OpponentsByGroup[g.ID]
			if len(opps) != p.Quota {
				violations = append(violations, errorf(0, "%s has %d opponents from %s, want %d",
					e.Team.Name, len(opps), g.Label, p.Quota))
			}
			for _, opp := range opps {
				if opp.GroupID != g.ID {
					violations = append(violations, errorf(0, "%s is listed under %s for %s",
						opp.Name, g.Label, e.Team.Name))
				}
				if !seen[graph.NewPair(e.Team.Index, opp.Index)] {
					violations = append(violations, errorf(0, "%s lists %s but the match is not in the draw",
						e.Team.Name, opp.Name))
				}
				if !listed[opp.Index][e.Team.Index] {
					violations = append(violations, errorf(0, "%s lists %s but %s does not list %s",
						e.Team.Name, opp.Name, opp.Name, e.Team.Name))
				}
			}
		}
	}
	return violations
}

// CheckSchedule checks that r splits every match of p into weeks in which
// each team plays exactly once.
func CheckSchedule(p *draw.Pairing, r *schedule.Result) []Violation {
	var violations []Violation
	drawn := make(map[graph.Pair]bool, len(p.Edges))
	for _, e := range p.Edges {
		drawn[graph.NewPair(e.A, e.B)] = true
	}
	scheduled := make(map[graph.Pair]bool)

	var fixtures []parsedFixture
	for _, w := range r.Weeks {
		for _, f := range w.Fixtures {
			pair := graph.NewPair(f.TeamA.Index, f.TeamB.Index)
			if !drawn[pair] {
				violations = append(violations, errorf(0, "week %d: %s vs %s was not drawn",
					w.Number, f.TeamA.Name, f.TeamB.Name))
			}
			scheduled[pair] = true
			fixtures = append(fixtures, parsedFixture{
				Week:  w.Number,
				Day:   f.Day,
				Time:  f.Time,
				TeamA: f.TeamA.Name,
				TeamB: f.TeamB.Name,
			})
		}
	}
	for _, e := range p.Edges {
		if pair := graph.NewPair(e.A, e.B); !scheduled[pair] && pair.A >= 0 && pair.B < len(p.Teams) {
			violations = append(violations, errorf(0, "%s vs %s is never scheduled",
				p.Teams[pair.A].Name, p.Teams[pair.B].Name))
		}
	}
	return append(violations, checkFixtures(p.Groups, p.Quota, nil, fixtures)...)
}

// Validate reads a fixtures workbook and checks it against the configured
// pots, quota and slot template.
func Validate(cfg *config.Config, path string) ([]Violation, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	fixtures, err := excel.ReadFixtures(f)
	if err != nil {
		return nil, fmt.Errorf("reading fixtures: %w", err)
	}

	groups := draw.GroupsFromConfig(cfg.Pots)
	return checkFixtures(groups, cfg.Quota, schedule.GenerateSlots(cfg), fixtures), nil
}

// parsedFixture is a fixture as read from the workbook or flattened from a
// schedule.
type parsedFixture = excel.FixtureRow

func checkFixtures(groups []draw.Group, quota int, slots []schedule.Slot, fixtures []parsedFixture) []Violation {
	teams := make(map[string]draw.Team)
	var order []draw.Team
	for _, g := range groups {
		for _, t := range g.Teams {
			teams[t.Name] = t
			order = append(order, t)
		}
	}

	var violations []Violation
	var known []parsedFixture
	for _, f := range fixtures {
		ok := true
		for _, name := range []string{f.TeamA, f.TeamB} {
			if _, found := teams[name]; !found {
				violations = append(violations, errorf(f.Row, "week %d: unknown team %q", f.Week, name))
				ok = false
			}
		}
		if !ok {
			continue
		}
		if f.TeamA == f.TeamB {
			violations = append(violations, errorf(f.Row, "week %d: %s is scheduled against itself", f.Week, f.TeamA))
			continue
		}
		known = append(known, f)
	}

	violations = append(violations, checkWeeks(order, len(groups)*quota, known)...)
	violations = append(violations, checkDuplicateMatchups(known)...)
	violations = append(violations, checkOpponentQuota(groups, teams, quota, known)...)
	if len(slots) > 0 {
		violations = append(violations, checkSlots(slots, fixtures)...)
		violations = append(violations, checkDayBalance(order, slots, known)...)
	}
	return violations
}

// checkWeeks verifies that there are the expected number of weeks and that
// every team plays exactly once in each.
func checkWeeks(teams []draw.Team, weeks int, fixtures []parsedFixture) []Violation {
	byWeek := make(map[int][]parsedFixture)
	var numbers []int
	for _, f := range fixtures {
		if _, ok := byWeek[f.Week]; !ok {
			numbers = append(numbers, f.Week)
		}
		byWeek[f.Week] = append(byWeek[f.Week], f)
	}

	var violations []Violation
	if len(numbers) != weeks {
		violations = append(violations, errorf(0, "fixtures span %d weeks, want %d", len(numbers), weeks))
	}
	for _, w := range numbers {
		plays := make(map[string][]int)
		for _, f := range byWeek[w] {
			plays[f.TeamA] = append(plays[f.TeamA], f.Row)
			plays[f.TeamB] = append(plays[f.TeamB], f.Row)
		}
		for _, t := range teams {
			rows := plays[t.Name]
			switch {
			case len(rows) == 0:
				violations = append(violations, errorf(0, "week %d: %s does not play", w, t.Name))
			case len(rows) > 1:
				violations = append(violations, errorf(rows[1], "week %d: %s plays %d times", w, t.Name, len(rows)))
			}
		}
	}
	return violations
}

func checkDuplicateMatchups(fixtures []parsedFixture) []Violation {
	type matchup struct{ a, b string }
	first := make(map[matchup]parsedFixture)

	var violations []Violation
	for _, f := range fixtures {
		a, b := f.TeamA, f.TeamB
		if a > b {
			a, b = b, a
		}
		mk := matchup{a, b}
		if prev, ok := first[mk]; ok {
			violations = append(violations, errorf(f.Row, "%s vs %s is scheduled twice (weeks %d and %d)",
				a, b, prev.Week, f.Week))
			continue
		}
		first[mk] = f
	}
	return violations
}

func checkOpponentQuota(groups []draw.Group, teams map[string]draw.Team, quota int, fixtures []parsedFixture) []Violation {
	counts := make(map[string]map[string]int)
	for _, f := range fixtures {
		a, b := teams[f.TeamA], teams[f.TeamB]
		for _, pair := range [][2]draw.Team{{a, b}, {b, a}} {
			if counts[pair[0].Name] == nil {
				counts[pair[0].Name] = make(map[string]int)
			}
			counts[pair[0].Name][pair[1].GroupID]++
		}
	}

	var violations []Violation
	for _, g := range groups {
		for _, t := range g.Teams {
			for _, og := range groups {
				if c := counts[t.Name][og.ID]; c != quota {
					violations = append(violations, errorf(0, "%s plays %d opponents from %s, want %d",
						t.Name, c, og.Label, quota))
				}
			}
		}
	}
	return violations
}

// checkSlots warns about fixtures outside the template and slots used twice
// in the same week.
func checkSlots(slots []schedule.Slot, fixtures []parsedFixture) []Violation {
	valid := make(map[schedule.Slot]bool, len(slots))
	for _, s := range slots {
		valid[s] = true
	}

	type weekSlot struct {
		week int
		slot schedule.Slot
	}
	used := make(map[weekSlot]bool)

	var violations []Violation
	for _, f := range fixtures {
		s := schedule.Slot{Day: f.Day, Time: f.Time}
		if !valid[s] {
			violations = append(violations, warningf(f.Row, "week %d: %s vs %s is not in a configured slot (%s %s)",
				f.Week, f.TeamA, f.TeamB, f.Day, f.Time))
			continue
		}
		ws := weekSlot{f.Week, s}
		if used[ws] {
			violations = append(violations, warningf(f.Row, "week %d: slot %s %s is used more than once",
				f.Week, f.Day, f.Time))
		}
		used[ws] = true
	}
	return violations
}

// checkDayBalance warns when a team plays more than half its games on the
// same day.
func checkDayBalance(teams []draw.Team, slots []schedule.Slot, fixtures []parsedFixture) []Violation {
	games := make(map[string]int)
	days := make(map[string]map[string]int)
	for _, f := range fixtures {
		for _, name := range []string{f.TeamA, f.TeamB} {
			games[name]++
			if days[name] == nil {
				days[name] = make(map[string]int)
			}
			days[name][f.Day]++
		}
	}

	var violations []Violation
	for _, t := range teams {
		for _, day := range schedule.Days(slots) {
			if c := days[t.Name][day]; games[t.Name] > 2 && c*2 > games[t.Name] {
				violations = append(violations, warningf(0, "%s plays %d of %d games on %s",
					t.Name, c, games[t.Name], day))
			}
		}
	}
	return violations
}

func errorf(row int, format string, args ...any) Violation {
	return Violation{Row: row, Type: "error", Message: fmt.Sprintf(format, args...)}
}

func warningf(row int, format string, args ...any) Violation {
	return Violation{Row: row, Type: "warning", Message: fmt.Sprintf(format, args...)}
}
