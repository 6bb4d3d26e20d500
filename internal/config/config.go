package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Team is a single entrant. In YAML it may be written either as a mapping
// with id and name or as a bare name.
type Team struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

func (t *Team) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		t.Name = value.Value
		return nil
	}
	type plain Team
	var p plain
	if err := value.Decode(&p); err != nil {
		return fmt.Errorf("invalid team at line %d: %w", value.Line, err)
	}
	*t = Team(p)
	return nil
}

type Pot struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
	Teams []Team `yaml:"teams"`
}

type Slot struct {
	Day  string `yaml:"day"`
	Time string `yaml:"time"`
}

type Draw struct {
	MaxAttempts  int `yaml:"max_attempts"`
	MaxResamples int `yaml:"max_resamples"`
}

type Fixtures struct {
	MaxRestarts       int    `yaml:"max_restarts"`
	MaxBacktrackSteps int    `yaml:"max_backtrack_steps"`
	Slots             []Slot `yaml:"slots"`
}

type Config struct {
	Quota    int      `yaml:"quota"`
	Seed     int64    `yaml:"seed"`
	Pots     []Pot    `yaml:"pots"`
	Draw     Draw     `yaml:"draw"`
	Fixtures Fixtures `yaml:"fixtures"`
}

// TeamCount returns the number of teams across all pots.
func (c *Config) TeamCount() int {
	n := 0
	for _, p := range c.Pots {
		n += len(p.Teams)
	}
	return n
}

// AllTeams returns every team name in pot order.
func (c *Config) AllTeams() []string {
	var names []string
	for _, p := range c.Pots {
		for _, t := range p.Teams {
			names = append(names, t.Name)
		}
	}
	return names
}

// LoadFromBytes parses YAML bytes into a Config, fills defaults and
// validates it.
func LoadFromBytes(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromFile reads and parses a YAML config file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromBytes(data)
}

// applyDefaults fills in labels, names and ids the way the draw form does,
// and the default week template when the team count matches it.
func (c *Config) applyDefaults() {
	if c.Quota == 0 {
		c.Quota = 2
	}
	for i := range c.Pots {
		p := &c.Pots[i]
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			p.ID = fmt.Sprintf("pot%d", i+1)
		}
		p.Label = strings.TrimSpace(p.Label)
		if p.Label == "" {
			p.Label = fmt.Sprintf("Pot %d", i+1)
		}
		for j := range p.Teams {
			t := &p.Teams[j]
			t.Name = strings.TrimSpace(t.Name)
			if t.Name == "" {
				t.Name = fmt.Sprintf("%s Team %d", p.Label, j+1)
			}
			t.ID = strings.TrimSpace(t.ID)
			if t.ID == "" {
				t.ID = slug(t.Name)
			}
			if t.ID == "" {
				t.ID = fmt.Sprintf("%s-%d", p.ID, j+1)
			}
		}
	}
	if len(c.Fixtures.Slots) == 0 && c.TeamCount() == 2*len(DefaultSlots) {
		c.Fixtures.Slots = append([]Slot(nil), DefaultSlots...)
	}
}

func slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func (c *Config) validate() error {
	if len(c.Pots) == 0 {
		return fmt.Errorf("at least one pot is required")
	}
	if c.Quota < 1 {
		return fmt.Errorf("quota must be at least 1, got %d", c.Quota)
	}

	size := len(c.Pots[0].Teams)
	ids := make(map[string]string)
	names := make(map[string]string)
	pots := make(map[string]string)
	for _, p := range c.Pots {
		if prev, ok := pots[p.ID]; ok {
			return fmt.Errorf("pot id %q is used by both %q and %q", p.ID, prev, p.Label)
		}
		pots[p.ID] = p.Label
		if len(p.Teams) == 0 {
			return fmt.Errorf("pot %q has no teams", p.Label)
		}
		if len(p.Teams) != size {
			return fmt.Errorf("pot %q has %d teams but pot %q has %d; pots must be the same size",
				p.Label, len(p.Teams), c.Pots[0].Label, size)
		}
		for _, t := range p.Teams {
			if prev, ok := ids[t.ID]; ok {
				return fmt.Errorf("team id %q appears in both %q and %q pots", t.ID, prev, p.Label)
			}
			ids[t.ID] = p.Label
			if prev, ok := names[t.Name]; ok {
				return fmt.Errorf("team %q appears in both %q and %q pots", t.Name, prev, p.Label)
			}
			names[t.Name] = p.Label
		}
	}

	if c.Quota > size-1 {
		return fmt.Errorf("quota %d is too large for pots of %d teams (at most %d)", c.Quota, size, size-1)
	}

	if n := c.TeamCount(); len(c.Fixtures.Slots) > 0 && len(c.Fixtures.Slots)*2 != n {
		return fmt.Errorf("fixtures: %d slots configured but %d teams play %d matches per week",
			len(c.Fixtures.Slots), n, n/2)
	}
	if c.Draw.MaxAttempts < 0 || c.Draw.MaxResamples < 0 {
		return fmt.Errorf("draw: attempt limits must not be negative")
	}
	if c.Fixtures.MaxRestarts < 0 || c.Fixtures.MaxBacktrackSteps < 0 {
		return fmt.Errorf("fixtures: restart and step limits must not be negative")
	}
	return nil
}
