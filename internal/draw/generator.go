package draw

import (
	"fmt"
	"math/rand"

	"github.com/derekprior/potdraw/internal/graph"
)

const (
	DefaultQuota        = 2
	DefaultMaxAttempts  = 20
	DefaultMaxResamples = 30
)

// Options controls the draw. Zero values take the defaults.
type Options struct {
	Quota        int // opponents per pot, own pot included
	MaxAttempts  int // randomized attempts before the deterministic fallback
	MaxResamples int // reshuffles per cross-pot permutation before rotating
}

func (o Options) withDefaults() Options {
	if o.Quota == 0 {
		o.Quota = DefaultQuota
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.MaxResamples <= 0 {
		o.MaxResamples = DefaultMaxResamples
	}
	return o
}

// Generator draws pairings. It is not safe for concurrent use; give each
// draw its own Generator and random source.
type Generator struct {
	opts Options
	rng  *rand.Rand
}

func NewGenerator(opts Options, rng *rand.Rand) *Generator {
	return &Generator{opts: opts.withDefaults(), rng: rng}
}

// Generate builds a pairing where every team has exactly Quota opponents in
// every pot. Randomized attempts are retried up to MaxAttempts times, then a
// deterministic construction is used. If that also fails the configuration
// cannot be satisfied and the error wraps ErrUnsatisfiableConstraints.
func (g *Generator) Generate(groups []Group) (*Pairing, error) {
	groups = NormalizeGroups(groups)
	if err := checkShape(groups, g.opts.Quota); err != nil {
		return nil, err
	}

	for attempt := range g.opts.MaxAttempts {
		b := newBuilder(groups, g.opts.Quota)
		for _, grp := range groups {
			b.pairWithin(graph.Shuffled(g.rng, b.members[grp.Position]))
		}
		for i := 0; i < len(groups); i++ {
			for j := i + 1; j < len(groups); j++ {
				orderA := graph.Shuffled(g.rng, b.members[i])
				b.pairAcross(orderA, g.permutations(b.members[j]))
			}
		}
		if err := b.validate(); err != nil {
			continue
		}
		p := b.pairing(g.rng)
		p.Attempts = attempt + 1
		return p, nil
	}

	b, err := deterministicBuild(groups, g.opts.Quota)
	if err != nil {
		return nil, fmt.Errorf("%d randomized attempts failed and deterministic fallback failed: %w",
			g.opts.MaxAttempts, err)
	}
	p := b.pairing(g.rng)
	p.Attempts = g.opts.MaxAttempts
	p.Deterministic = true
	return p, nil
}

// permutations returns Quota orderings of teams, each differing from every
// earlier one at every position.
func (g *Generator) permutations(teams []int) [][]int {
	perms := [][]int{graph.Shuffled(g.rng, teams)}
	for len(perms) < g.opts.Quota {
		var next []int
		for range g.opts.MaxResamples {
			cand := graph.Shuffled(g.rng, teams)
			if !collides(cand, perms) {
				next = cand
				break
			}
		}
		if next == nil {
			next = graph.Rotate(perms[len(perms)-1], 1)
		}
		perms = append(perms, next)
	}
	return perms
}

func collides(cand []int, perms [][]int) bool {
	for _, p := range perms {
		for i := range cand {
			if cand[i] == p[i] {
				return true
			}
		}
	}
	return false
}

// Deterministic builds the fallback pairing without any randomness: pots
// keep their given order and the k-th cross-pot permutation is the opposing
// pot rotated by k. Opponent lists are left in construction order.
func Deterministic(groups []Group, quota int) (*Pairing, error) {
	if quota == 0 {
		quota = DefaultQuota
	}
	groups = NormalizeGroups(groups)
	if err := checkShape(groups, quota); err != nil {
		return nil, err
	}
	b, err := deterministicBuild(groups, quota)
	if err != nil {
		return nil, err
	}
	p := b.pairing(nil)
	p.Deterministic = true
	return p, nil
}

func deterministicBuild(groups []Group, quota int) (*builder, error) {
	b := newBuilder(groups, quota)
	for _, grp := range groups {
		b.pairWithin(b.members[grp.Position])
	}
	for i := 0; i < len(groups); i++ {
		for j := i + 1; j < len(groups); j++ {
			perms := make([][]int, quota)
			for k := range perms {
				perms[k] = graph.Rotate(b.members[j], k)
			}
			b.pairAcross(b.members[i], perms)
		}
	}
	if err := b.validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// builder accumulates one draw attempt. Attempts never share a builder.
type builder struct {
	groups  []Group
	teams   []Team
	quota   int
	members [][]int // pot position -> team indices in seed order
	groupOf []int   // team -> pot position

	opponents [][][]int // team -> pot position -> opponent indices
	edges     []graph.Pair
	seen      map[graph.Pair]bool
}

func newBuilder(groups []Group, quota int) *builder {
	b := &builder{
		groups:  groups,
		quota:   quota,
		members: make([][]int, len(groups)),
		seen:    make(map[graph.Pair]bool),
	}
	for i, g := range groups {
		for _, t := range g.Teams {
			b.teams = append(b.teams, t)
			b.members[i] = append(b.members[i], t.Index)
			b.groupOf = append(b.groupOf, i)
		}
	}
	b.opponents = make([][][]int, len(b.teams))
	for i := range b.opponents {
		b.opponents[i] = make([][]int, len(groups))
	}
	return b
}

func (b *builder) addMatch(x, y int) {
	if x == y {
		return
	}
	p := graph.NewPair(x, y)
	if b.seen[p] {
		return
	}
	b.seen[p] = true
	b.edges = append(b.edges, p)
	gx, gy := b.groupOf[x], b.groupOf[y]
	b.opponents[x][gy] = append(b.opponents[x][gy], y)
	b.opponents[y][gx] = append(b.opponents[y][gx], x)
}

// pairWithin connects each team to its Quota/2 nearest successors in the
// cyclic order, which also gives it Quota/2 predecessors. An odd quota adds
// the team opposite in the cycle, which only works for even pot sizes.
func (b *builder) pairWithin(order []int) {
	n := len(order)
	for k := 1; k <= b.quota/2; k++ {
		for i := range order {
			b.addMatch(order[i], order[(i+k)%n])
		}
	}
	if b.quota%2 == 1 {
		for i := range order {
			b.addMatch(order[i], order[(i+n/2)%n])
		}
	}
}

// pairAcross adds one perfect matching between orderA and each permutation.
func (b *builder) pairAcross(orderA []int, perms [][]int) {
	for i, a := range orderA {
		for _, perm := range perms {
			b.addMatch(a, perm[i])
		}
	}
}

func (b *builder) validate() error {
	for _, t := range b.teams {
		for gi, g := range b.groups {
			if got := len(b.opponents[t.Index][gi]); got != b.quota {
				return fmt.Errorf("%w: %s has %d opponents in %s, want %d",
					ErrUnsatisfiableConstraints, t.Name, got, g.Label, b.quota)
			}
		}
	}
	return nil
}

// pairing converts the builder into a Pairing. With a non-nil rng each
// opponent list is shuffled once to fix the reveal order.
func (b *builder) pairing(rng *rand.Rand) *Pairing {
	p := &Pairing{
		Groups:  b.groups,
		Teams:   b.teams,
		Quota:   b.quota,
		Edges:   b.edges,
		Entries: make([]Entry, len(b.teams)),
	}
	for _, t := range b.teams {
		e := Entry{Team: t, OpponentsByGroup: make(map[string][]Team, len(b.groups))}
		for gi, g := range b.groups {
			opps := make([]Team, 0, len(b.opponents[t.Index][gi]))
			for _, o := range b.opponents[t.Index][gi] {
				opps = append(opps, b.teams[o])
			}
			if rng != nil {
				graph.Shuffle(rng, opps)
			}
			e.OpponentsByGroup[g.ID] = opps
		}
		e.RevealSequence = revealSequence(b.groups, t, e.OpponentsByGroup)
		p.Entries[t.Index] = e
	}
	return p
}

// revealSequence lists opponents from the other pots first, in pot order,
// and the team's own pot last.
func revealSequence(groups []Group, t Team, byGroup map[string][]Team) []Reveal {
	var seq []Reveal
	add := func(g Group) {
		for _, o := range byGroup[g.ID] {
			seq = append(seq, Reveal{Opponent: o, GroupID: g.ID, GroupLabel: g.Label})
		}
	}
	for _, g := range groups {
		if g.ID != t.GroupID {
			add(g)
		}
	}
	for _, g := range groups {
		if g.ID == t.GroupID {
			add(g)
		}
	}
	return seq
}
