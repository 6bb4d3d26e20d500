package draw

import "github.com/derekprior/potdraw/internal/config"

// GroupsFromConfig converts configured pots into draw groups.
func GroupsFromConfig(pots []config.Pot) []Group {
	groups := make([]Group, len(pots))
	for i, p := range pots {
		groups[i] = Group{ID: p.ID, Label: p.Label, Position: i}
		for _, t := range p.Teams {
			groups[i].Teams = append(groups[i].Teams, Team{ID: t.ID, Name: t.Name})
		}
	}
	return NormalizeGroups(groups)
}

// OptionsFromConfig returns the draw options configured in cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Quota:        cfg.Quota,
		MaxAttempts:  cfg.Draw.MaxAttempts,
		MaxResamples: cfg.Draw.MaxResamples,
	}
}
