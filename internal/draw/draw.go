package draw

import (
	"errors"
	"fmt"
	"strings"

	"github.com/derekprior/potdraw/internal/graph"
)

// ErrUnsatisfiableConstraints is returned when no pairing satisfying the
// per-pot quota could be built.
var ErrUnsatisfiableConstraints = errors.New("unsatisfiable draw constraints")

// Team is a single entrant. Index is its dense position across the whole
// draw (pot order, then seed) and is what the engine works with.
type Team struct {
	ID         string
	Name       string
	GroupID    string
	GroupLabel string
	Seed       int // 1-based position within the pot
	Index      int
}

// Group is a pot of teams.
type Group struct {
	ID       string
	Label    string
	Position int
	Teams    []Team
}

// Reveal is one step of a team's reveal order.
type Reveal struct {
	Opponent   Team
	GroupID    string
	GroupLabel string
}

// Entry holds a team's drawn opponents.
type Entry struct {
	Team             Team
	OpponentsByGroup map[string][]Team
	RevealSequence   []Reveal
}

// Opponents returns the total number of opponents across all pots.
func (e Entry) Opponents() int {
	total := 0
	for _, opps := range e.OpponentsByGroup {
		total += len(opps)
	}
	return total
}

// Pairing is a completed, validated draw.
type Pairing struct {
	Groups  []Group
	Teams   []Team // indexed by Team.Index
	Quota   int
	Edges   []graph.Pair
	Entries []Entry // indexed by Team.Index

	Attempts      int  // randomized attempts consumed
	Deterministic bool // built by the deterministic fallback
}

// QuotaTotal is the number of opponents every team must have.
func (p *Pairing) QuotaTotal() int {
	return p.Quota * len(p.Groups)
}

// Team looks up a team by ID.
func (p *Pairing) Team(id string) (Team, bool) {
	for _, t := range p.Teams {
		if t.ID == id {
			return t, true
		}
	}
	return Team{}, false
}

// Entry looks up a team's entry by ID.
func (p *Pairing) Entry(id string) (Entry, bool) {
	t, ok := p.Team(id)
	if !ok || t.Index >= len(p.Entries) {
		return Entry{}, false
	}
	return p.Entries[t.Index], true
}

// OpponentsPerTeam returns each team's total opponent count, by Team.Index.
func (p *Pairing) OpponentsPerTeam() []int {
	counts := make([]int, len(p.Entries))
	for i, e := range p.Entries {
		counts[i] = e.Opponents()
	}
	return counts
}

// Matches rebuilds the match set from the per-team opponent lists.
func (p *Pairing) Matches() []graph.Pair {
	seen := make(map[graph.Pair]bool)
	var pairs []graph.Pair
	for _, e := range p.Entries {
		for _, g := range p.Groups {
			for _, opp := range e.OpponentsByGroup[g.ID] {
				pair := graph.NewPair(e.Team.Index, opp.Index)
				if seen[pair] {
					continue
				}
				seen[pair] = true
				pairs = append(pairs, pair)
			}
		}
	}
	graph.SortPairs(pairs)
	return pairs
}

// NormalizeGroups returns a copy of groups with names trimmed, blank names
// replaced by "<Label> Team <n>", and pot membership, seeds and dense indices
// filled in.
func NormalizeGroups(groups []Group) []Group {
	out := make([]Group, len(groups))
	index := 0
	for i, g := range groups {
		id := strings.TrimSpace(g.ID)
		if id == "" {
			id = fmt.Sprintf("pot%d", i+1)
		}
		label := strings.TrimSpace(g.Label)
		if label == "" {
			label = fmt.Sprintf("Pot %d", i+1)
		}
		ng := Group{ID: id, Label: label, Position: i, Teams: make([]Team, len(g.Teams))}
		for j, t := range g.Teams {
			name := strings.TrimSpace(t.Name)
			if name == "" {
				name = fmt.Sprintf("%s Team %d", label, j+1)
			}
			tid := strings.TrimSpace(t.ID)
			if tid == "" {
				tid = fmt.Sprintf("%s-%d", id, j+1)
			}
			ng.Teams[j] = Team{
				ID:         tid,
				Name:       name,
				GroupID:    id,
				GroupLabel: label,
				Seed:       j + 1,
				Index:      index,
			}
			index++
		}
		out[i] = ng
	}
	return out
}

// checkShape rejects inputs the construction cannot handle at all.
func checkShape(groups []Group, quota int) error {
	if len(groups) == 0 {
		return fmt.Errorf("%w: no pots", ErrUnsatisfiableConstraints)
	}
	if quota < 1 {
		return fmt.Errorf("%w: quota must be at least 1, got %d", ErrUnsatisfiableConstraints, quota)
	}
	size := len(groups[0].Teams)
	seen := make(map[string]string)
	pots := make(map[string]string)
	for _, g := range groups {
		if prev, ok := pots[g.ID]; ok {
			return fmt.Errorf("%w: pot id %q is used by both %q and %q",
				ErrUnsatisfiableConstraints, g.ID, prev, g.Label)
		}
		pots[g.ID] = g.Label
		if len(g.Teams) == 0 {
			return fmt.Errorf("%w: pot %q has no teams", ErrUnsatisfiableConstraints, g.Label)
		}
		if len(g.Teams) != size {
			return fmt.Errorf("%w: pot %q has %d teams, pot %q has %d",
				ErrUnsatisfiableConstraints, g.Label, len(g.Teams), groups[0].Label, size)
		}
		for _, t := range g.Teams {
			if prev, ok := seen[t.ID]; ok {
				return fmt.Errorf("%w: team id %q appears in both %q and %q",
					ErrUnsatisfiableConstraints, t.ID, prev, g.Label)
			}
			seen[t.ID] = g.Label
		}
	}
	// Within a pot each team meets Quota of its size-1 pot mates, which also
	// bounds the cross-pot matchings at size.
	if quota > size-1 {
		return fmt.Errorf("%w: pots of %d teams allow at most %d opponents per pot, got quota %d",
			ErrUnsatisfiableConstraints, size, size-1, quota)
	}
	return nil
}
