package config

// DefaultSlots is the weekly template for 24 teams: 12 matches spread over
// four evenings.
var DefaultSlots = []Slot{
	{Day: "Thursday", Time: "21:00-22:00"},
	{Day: "Thursday", Time: "22:00-23:00"},
	{Day: "Thursday", Time: "23:00-00:00"},
	{Day: "Friday", Time: "21:00-22:00"},
	{Day: "Friday", Time: "22:00-23:00"},
	{Day: "Friday", Time: "23:00-00:00"},
	{Day: "Saturday", Time: "21:00-22:00"},
	{Day: "Saturday", Time: "22:00-23:00"},
	{Day: "Saturday", Time: "23:00-00:00"},
	{Day: "Sunday", Time: "21:00-22:00"},
	{Day: "Sunday", Time: "22:00-23:00"},
	{Day: "Sunday", Time: "23:00-00:00"},
}

// Default returns the built-in three-pot, 24-team configuration.
func Default() *Config {
	cfg := &Config{
		Quota: 2,
		Pots: []Pot{
			{
				ID:    "pot1",
				Label: "Pot 1",
				Teams: []Team{
					{ID: "man-city", Name: "Manchester City"},
					{ID: "real-madrid", Name: "Real Madrid"},
					{ID: "bayern", Name: "Bayern Munich"},
					{ID: "psg", Name: "Paris Saint-Germain"},
					{ID: "liverpool", Name: "Liverpool"},
					{ID: "barcelona", Name: "Barcelona"},
					{ID: "inter", Name: "Inter"},
					{ID: "arsenal", Name: "Arsenal"},
				},
			},
			{
				ID:    "pot2",
				Label: "Pot 2",
				Teams: []Team{
					{ID: "juventus", Name: "Juventus"},
					{ID: "atletico", Name: "Atletico Madrid"},
					{ID: "dortmund", Name: "Borussia Dortmund"},
					{ID: "leipzig", Name: "RB Leipzig"},
					{ID: "porto", Name: "Porto"},
					{ID: "benfica", Name: "Benfica"},
					{ID: "napoli", Name: "Napoli"},
					{ID: "tottenham", Name: "Tottenham"},
				},
			},
			{
				ID:    "pot3",
				Label: "Pot 3",
				Teams: []Team{
					{ID: "ajax", Name: "Ajax"},
					{ID: "sevilla", Name: "Sevilla"},
					{ID: "ac-milan", Name: "AC Milan"},
					{ID: "lazio", Name: "Lazio"},
					{ID: "shakhtar", Name: "Shakhtar Donetsk"},
					{ID: "monaco", Name: "Monaco"},
					{ID: "leverkusen", Name: "Bayer Leverkusen"},
					{ID: "psv", Name: "PSV Eindhoven"},
				},
			},
		},
	}
	cfg.applyDefaults()
	return cfg
}
