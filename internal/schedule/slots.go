package schedule

import (
	"math/rand"

	"github.com/derekprior/potdraw/internal/config"
	"github.com/derekprior/potdraw/internal/graph"
)

// Slot is a day and time a fixture can be played in during a week.
type Slot struct {
	Day  string
	Time string
}

// GenerateSlots returns the weekly slot template configured in cfg.
func GenerateSlots(cfg *config.Config) []Slot {
	slots := make([]Slot, 0, len(cfg.Fixtures.Slots))
	for _, s := range cfg.Fixtures.Slots {
		slots = append(slots, Slot{Day: s.Day, Time: s.Time})
	}
	return slots
}

// DefaultSlots returns the built-in 12-slot template.
func DefaultSlots() []Slot {
	slots := make([]Slot, 0, len(config.DefaultSlots))
	for _, s := range config.DefaultSlots {
		slots = append(slots, Slot{Day: s.Day, Time: s.Time})
	}
	return slots
}

// assignSlots pairs each match of a week with a slot from a random
// permutation of the template. With an empty template the fixtures carry no
// day or time.
func assignSlots(matches []graph.Pair, template []Slot, rng *rand.Rand) []Slot {
	out := make([]Slot, len(matches))
	if len(template) == 0 {
		return out
	}
	perm := graph.Shuffled(rng, template)
	copy(out, perm)
	return out
}

// Days lists the distinct days of a template in first-seen order.
func Days(slots []Slot) []string {
	seen := make(map[string]bool)
	var days []string
	for _, s := range slots {
		if !seen[s.Day] {
			seen[s.Day] = true
			days = append(days, s.Day)
		}
	}
	return days
}
