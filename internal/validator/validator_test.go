package validator

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/derekprior/potdraw/internal/config"
	"github.com/derekprior/potdraw/internal/draw"
	"github.com/derekprior/potdraw/internal/excel"
	"github.com/derekprior/potdraw/internal/graph"
	"github.com/derekprior/potdraw/internal/schedule"
)

func generate(t *testing.T, cfg *config.Config, seed int64) (*draw.Pairing, *schedule.Result) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	p, err := draw.NewGenerator(draw.OptionsFromConfig(cfg), rng).Generate(draw.GroupsFromConfig(cfg.Pots))
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	result, err := schedule.Schedule(p, schedule.GenerateSlots(cfg), schedule.OptionsFromConfig(cfg), rng)
	if err != nil {
		t.Fatalf("Schedule() error: %v", err)
	}
	return p, result
}

func hasMessage(violations []Violation, substr string) bool {
	for _, v := range violations {
		if strings.Contains(v.Message, substr) {
			return true
		}
	}
	return false
}

func TestValidateGeneratedWorkbook(t *testing.T) {
	cfg := config.Default()
	p, result := generate(t, cfg, 3)

	f, err := excel.Generate(p, result, schedule.GenerateSlots(cfg))
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	path := t.TempDir() + "/fixtures.xlsx"
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs error: %v", err)
	}

	violations, err := Validate(cfg, path)
	if err != nil {
		t.Fatalf("Validate() error: %v", err)
	}

	t.Run("no hard violations", func(t *testing.T) {
		for _, v := range Errors(violations) {
			t.Errorf("hard violation (row %d): %s", v.Row, v.Message)
		}
	})

	t.Run("reports warnings", func(t *testing.T) {
		for _, v := range violations {
			if v.Type == "warning" {
				t.Logf("WARNING: %s", v.Message)
			}
		}
	})
}

func TestValidateWrongConfig(t *testing.T) {
	cfg := config.Default()
	p, result := generate(t, cfg, 3)

	f, err := excel.Generate(p, result, schedule.GenerateSlots(cfg))
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	path := t.TempDir() + "/fixtures.xlsx"
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs error: %v", err)
	}

	other := config.Default()
	other.Pots[0].Teams[0].Name = "Celtic"
	violations, err := Validate(other, path)
	if err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if !hasMessage(violations, `unknown team "Manchester City"`) {
		t.Errorf("expected unknown team violation, got %v", violations)
	}
	if !hasMessage(violations, "Celtic does not play") {
		t.Errorf("expected missing team violation, got %v", violations)
	}
}

func TestValidateMissingSheet(t *testing.T) {
	cfg := config.Default()
	p, _ := generate(t, cfg, 3)

	f, err := excel.Generate(p, nil, nil)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	path := t.TempDir() + "/draw.xlsx"
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs error: %v", err)
	}

	if _, err := Validate(cfg, path); err == nil {
		t.Error("expected error for workbook without a Fixtures sheet")
	}
}

func TestCheckPairing(t *testing.T) {
	cfg := config.Default()

	t.Run("generated draw is clean", func(t *testing.T) {
		p, _ := generate(t, cfg, 8)
		if v := CheckPairing(p); len(v) != 0 {
			t.Errorf("expected 0 violations, got %v", v)
		}
	})

	t.Run("deterministic draw is clean", func(t *testing.T) {
		p, err := draw.Deterministic(draw.GroupsFromConfig(cfg.Pots), 2)
		if err != nil {
			t.Fatalf("Deterministic() error: %v", err)
		}
		if v := CheckPairing(p); len(v) != 0 {
			t.Errorf("expected 0 violations, got %v", v)
		}
	})

	t.Run("missing match is reported", func(t *testing.T) {
		p, _ := generate(t, cfg, 8)
		dropped := p.Edges[0]
		p.Edges = p.Edges[1:]
		v := CheckPairing(p)
		if !hasMessage(v, "draw has 71 matches, want 72") {
			t.Errorf("expected match count violation, got %v", v)
		}
		name := p.Teams[dropped.A].Name
		if !hasMessage(v, name+" lists") {
			t.Errorf("expected %s opponent list violation, got %v", name, v)
		}
	})

	t.Run("one-sided opponent list is reported", func(t *testing.T) {
		p, _ := generate(t, cfg, 8)
		x := p.Entries[0]
		y := x.OpponentsByGroup[x.Team.GroupID][0]
		mates := p.Entries[y.Index].OpponentsByGroup[x.Team.GroupID]
		var kept []draw.Team
		for _, m := range mates {
			if m.Index != x.Team.Index {
				kept = append(kept, m)
			}
		}
		p.Entries[y.Index].OpponentsByGroup[x.Team.GroupID] = kept

		v := CheckPairing(p)
		if !hasMessage(v, x.Team.Name+" lists "+y.Name+" but "+y.Name+" does not list "+x.Team.Name) {
			t.Errorf("expected symmetry violation, got %v", v)
		}
	})

	t.Run("duplicate pot ids are reported", func(t *testing.T) {
		p, _ := generate(t, cfg, 8)
		p.Groups[1].ID = p.Groups[0].ID
		if v := CheckPairing(p); !hasMessage(v, "used by more than one pot") {
			t.Errorf("expected duplicate pot violation, got %v", v)
		}
	})

	t.Run("self pairing and duplicates are reported", func(t *testing.T) {
		p, _ := generate(t, cfg, 8)
		p.Edges = append(p.Edges, graph.Pair{A: 0, B: 0}, p.Edges[0])
		v := CheckPairing(p)
		if !hasMessage(v, "drawn against itself") {
			t.Errorf("expected self pairing violation, got %v", v)
		}
		if !hasMessage(v, "is drawn twice") {
			t.Errorf("expected duplicate violation, got %v", v)
		}
	})
}

func TestCheckSchedule(t *testing.T) {
	cfg := config.Default()

	t.Run("generated schedule is clean", func(t *testing.T) {
		p, result := generate(t, cfg, 13)
		if v := CheckSchedule(p, result); len(v) != 0 {
			t.Errorf("expected 0 violations, got %v", v)
		}
	})

	t.Run("missing week is reported", func(t *testing.T) {
		p, result := generate(t, cfg, 13)
		result.Weeks = result.Weeks[:5]
		v := CheckSchedule(p, result)
		if !hasMessage(v, "fixtures span 5 weeks, want 6") {
			t.Errorf("expected week count violation, got %v", v)
		}
		if !hasMessage(v, "is never scheduled") {
			t.Errorf("expected unscheduled match violation, got %v", v)
		}
	})

	t.Run("team playing twice in a week is reported", func(t *testing.T) {
		p, result := generate(t, cfg, 13)
		w := &result.Weeks[0]
		w.Fixtures[1].TeamA = w.Fixtures[0].TeamA
		v := CheckSchedule(p, result)
		if !hasMessage(v, "week 1: "+w.Fixtures[0].TeamA.Name+" plays 2 times") {
			t.Errorf("expected double booking violation, got %v", v)
		}
	})
}

func TestCheckDuplicateMatchups(t *testing.T) {
	fixtures := []parsedFixture{
		{Row: 2, Week: 1, TeamA: "Ajax", TeamB: "Porto"},
		{Row: 3, Week: 2, TeamA: "Porto", TeamB: "Ajax"},
		{Row: 4, Week: 2, TeamA: "Ajax", TeamB: "Lazio"},
	}
	v := checkDuplicateMatchups(fixtures)
	if len(v) != 1 {
		t.Fatalf("expected 1 violation, got %d: %v", len(v), v)
	}
	if v[0].Row != 3 || !strings.Contains(v[0].Message, "weeks 1 and 2") {
		t.Errorf("violation = %+v", v[0])
	}
}

func TestCheckSlots(t *testing.T) {
	slots := []schedule.Slot{{Day: "Thursday", Time: "21:00"}, {Day: "Friday", Time: "21:00"}}

	cases := []struct {
		name     string
		fixtures []parsedFixture
		want     int
	}{
		{
			name: "each slot once per week",
			fixtures: []parsedFixture{
				{Row: 2, Week: 1, Day: "Thursday", Time: "21:00"},
				{Row: 3, Week: 1, Day: "Friday", Time: "21:00"},
				{Row: 4, Week: 2, Day: "Thursday", Time: "21:00"},
			},
			want: 0,
		},
		{
			name: "slot reused in a week",
			fixtures: []parsedFixture{
				{Row: 2, Week: 1, Day: "Thursday", Time: "21:00"},
				{Row: 3, Week: 1, Day: "Thursday", Time: "21:00"},
			},
			want: 1,
		},
		{
			name: "slot not in template",
			fixtures: []parsedFixture{
				{Row: 2, Week: 1, Day: "Monday", Time: "21:00"},
			},
			want: 1,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := checkSlots(slots, tc.fixtures)
			if len(v) != tc.want {
				t.Errorf("expected %d violations, got %d: %v", tc.want, len(v), v)
			}
			for _, x := range v {
				if x.Type != "warning" {
					t.Errorf("slot violations should be warnings, got %q", x.Type)
				}
			}
		})
	}
}

func TestCheckDayBalance(t *testing.T) {
	teams := []draw.Team{{Name: "Ajax"}, {Name: "Porto"}}
	slots := []schedule.Slot{{Day: "Thursday"}, {Day: "Friday"}}

	var fixtures []parsedFixture
	for w := 1; w <= 4; w++ {
		day := "Thursday"
		if w == 4 {
			day = "Friday"
		}
		fixtures = append(fixtures, parsedFixture{Week: w, Day: day, TeamA: "Ajax", TeamB: "Porto"})
	}

	v := checkDayBalance(teams, slots, fixtures)
	if len(v) != 2 {
		t.Fatalf("expected 2 warnings, got %d: %v", len(v), v)
	}
	if !strings.Contains(v[0].Message, "Ajax plays 3 of 4 games on Thursday") {
		t.Errorf("message = %q", v[0].Message)
	}
}
