package graph

import (
	"math/rand"
	"sort"

	"github.com/bits-and-blooms/bitset"
)

// Pair is an unordered match between two teams, identified by their dense
// indices. A is always the smaller index so two Pairs for the same teams
// compare equal.
type Pair struct {
	A, B int
}

// NewPair returns the canonical Pair for teams a and b.
func NewPair(a, b int) Pair {
	if a > b {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// Other returns the opponent of team i in the pair.
func (p Pair) Other(i int) int {
	if p.A == i {
		return p.B
	}
	return p.A
}

// SortPairs orders pairs by (A, B).
func SortPairs(pairs []Pair) {
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})
}

// Adjacency is an undirected simple graph over teams 0..n-1 stored as one
// bitset row per team.
type Adjacency struct {
	rows []*bitset.BitSet
}

// NewAdjacency builds an adjacency over n teams containing the given pairs.
func NewAdjacency(n int, pairs []Pair) *Adjacency {
	a := &Adjacency{rows: make([]*bitset.BitSet, n)}
	for i := range a.rows {
		a.rows[i] = bitset.New(uint(n))
	}
	for _, p := range pairs {
		a.Add(p)
	}
	return a
}

// Len returns the number of teams.
func (a *Adjacency) Len() int { return len(a.rows) }

// Clone returns an independent copy.
func (a *Adjacency) Clone() *Adjacency {
	c := &Adjacency{rows: make([]*bitset.BitSet, len(a.rows))}
	for i, r := range a.rows {
		c.rows[i] = r.Clone()
	}
	return c
}

func (a *Adjacency) Has(p Pair) bool {
	return a.rows[p.A].Test(uint(p.B))
}

func (a *Adjacency) Add(p Pair) {
	a.rows[p.A].Set(uint(p.B))
	a.rows[p.B].Set(uint(p.A))
}

func (a *Adjacency) Remove(p Pair) {
	a.rows[p.A].Clear(uint(p.B))
	a.rows[p.B].Clear(uint(p.A))
}

// Degree counts the neighbours of team that are members of within.
func (a *Adjacency) Degree(team int, within *bitset.BitSet) int {
	return int(a.rows[team].IntersectionCardinality(within))
}

// Candidates lists, in index order, the neighbours of team that are members
// of within.
func (a *Adjacency) Candidates(team int, within *bitset.BitSet) []int {
	return Members(a.rows[team].Intersection(within))
}

// EdgeCount returns the number of undirected edges.
func (a *Adjacency) EdgeCount() int {
	total := 0
	for _, r := range a.rows {
		total += int(r.Count())
	}
	return total / 2
}

// Edges lists every edge once, sorted.
func (a *Adjacency) Edges() []Pair {
	var pairs []Pair
	for i, r := range a.rows {
		for _, j := range Members(r) {
			if j > i {
				pairs = append(pairs, Pair{A: i, B: j})
			}
		}
	}
	return pairs
}

// Members returns the set bits of b in ascending order.
func Members(b *bitset.BitSet) []int {
	out := make([]int, 0, b.Count())
	for i, ok := b.NextSet(0); ok; i, ok = b.NextSet(i + 1) {
		out = append(out, int(i))
	}
	return out
}

// Full returns a bitset of length n with every bit set.
func Full(n int) *bitset.BitSet {
	b := bitset.New(uint(n))
	for i := 0; i < n; i++ {
		b.Set(uint(i))
	}
	return b
}

// Shuffle permutes s in place and returns it.
func Shuffle[T any](rng *rand.Rand, s []T) []T {
	rng.Shuffle(len(s), func(i, j int) {
		s[i], s[j] = s[j], s[i]
	})
	return s
}

// Shuffled returns a shuffled copy of s.
func Shuffled[T any](rng *rand.Rand, s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	return Shuffle(rng, out)
}

// Rotate returns a copy of s shifted left by step positions. Negative and
// oversized steps wrap around.
func Rotate[T any](s []T, step int) []T {
	if len(s) == 0 {
		return []T{}
	}
	offset := ((step % len(s)) + len(s)) % len(s)
	out := make([]T, 0, len(s))
	out = append(out, s[offset:]...)
	return append(out, s[:offset]...)
}
