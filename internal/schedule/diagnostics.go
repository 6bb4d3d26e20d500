package schedule

import "github.com/derekprior/potdraw/internal/draw"

// TeamDiagnostics compares a team's drawn opponents with its quota.
type TeamDiagnostics struct {
	Team      draw.Team
	Opponents int
	Expected  int
}

// Diagnostics summarises whether a pairing is ready to schedule.
type Diagnostics struct {
	DirectMatches   int // distinct recorded edges
	ExpectedMatches int // teams * quota total / 2
	RebuiltMatches  int // distinct matches rebuilt from opponent lists
	PerTeam         []TeamDiagnostics
}

// Consistent reports whether the recorded edges can be scheduled as is.
func (d Diagnostics) Consistent() bool {
	return d.DirectMatches == d.ExpectedMatches
}

// Diagnose reports match counts for p without scheduling it.
func Diagnose(p *draw.Pairing) Diagnostics {
	n := len(p.Teams)
	d := Diagnostics{
		DirectMatches:   len(dedupe(p.Edges, n)),
		ExpectedMatches: n * p.QuotaTotal() / 2,
		RebuiltMatches:  len(dedupe(p.Matches(), n)),
	}
	for _, e := range p.Entries {
		d.PerTeam = append(d.PerTeam, TeamDiagnostics{
			Team:      e.Team,
			Opponents: e.Opponents(),
			Expected:  p.QuotaTotal(),
		})
	}
	return d
}
