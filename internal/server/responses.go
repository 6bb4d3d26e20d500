package server

import (
	"time"

	"github.com/derekprior/potdraw/internal/draw"
	"github.com/derekprior/potdraw/internal/schedule"
)

type teamResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Pot  string `json:"pot"`
	Seed int    `json:"seed"`
}

type potResponse struct {
	ID    string         `json:"id"`
	Label string         `json:"label"`
	Teams []teamResponse `json:"teams"`
}

type revealResponse struct {
	Opponent teamResponse `json:"opponent"`
	Pot      string       `json:"pot"`
}

type entryResponse struct {
	Team      teamResponse              `json:"team"`
	Opponents map[string][]teamResponse `json:"opponents"` // keyed by pot id
	Reveal    []revealResponse          `json:"reveal"`
}

type matchResponse struct {
	TeamA string `json:"team_a"`
	TeamB string `json:"team_b"`
}

type drawResponse struct {
	ID            string          `json:"id"`
	Seed          int64           `json:"seed"`
	CreatedAt     time.Time       `json:"created_at"`
	Quota         int             `json:"quota"`
	Attempts      int             `json:"attempts"`
	Deterministic bool            `json:"deterministic"`
	HasFixtures   bool            `json:"has_fixtures"`
	Pots          []potResponse   `json:"pots"`
	Entries       []entryResponse `json:"entries"`
	Matches       []matchResponse `json:"matches"`
}

type fixtureResponse struct {
	Day   string       `json:"day,omitempty"`
	Time  string       `json:"time,omitempty"`
	TeamA teamResponse `json:"team_a"`
	TeamB teamResponse `json:"team_b"`
}

type weekResponse struct {
	Week     int               `json:"week"`
	Fixtures []fixtureResponse `json:"fixtures"`
}

type fixturesResponse struct {
	DrawID   string         `json:"draw_id"`
	Restarts int            `json:"restarts"`
	Rebuilt  bool           `json:"rebuilt"`
	Weeks    []weekResponse `json:"weeks"`
}

func newTeamResponse(t draw.Team) teamResponse {
	return teamResponse{ID: t.ID, Name: t.Name, Pot: t.GroupID, Seed: t.Seed}
}

func newPotResponses(groups []draw.Group) []potResponse {
	pots := make([]potResponse, 0, len(groups))
	for _, g := range groups {
		pot := potResponse{ID: g.ID, Label: g.Label, Teams: make([]teamResponse, 0, len(g.Teams))}
		for _, t := range g.Teams {
			pot.Teams = append(pot.Teams, newTeamResponse(t))
		}
		pots = append(pots, pot)
	}
	return pots
}

func newEntryResponse(e draw.Entry) entryResponse {
	resp := entryResponse{
		Team:      newTeamResponse(e.Team),
		Opponents: make(map[string][]teamResponse, len(e.OpponentsByGroup)),
	}
	for groupID, opps := range e.OpponentsByGroup {
		list := make([]teamResponse, 0, len(opps))
		for _, o := range opps {
			list = append(list, newTeamResponse(o))
		}
		resp.Opponents[groupID] = list
	}
	for _, r := range e.RevealSequence {
		resp.Reveal = append(resp.Reveal, revealResponse{Opponent: newTeamResponse(r.Opponent), Pot: r.GroupID})
	}
	return resp
}

func newDrawResponse(r Record) drawResponse {
	p := r.Pairing
	resp := drawResponse{
		ID:            r.ID,
		Seed:          r.Seed,
		CreatedAt:     r.CreatedAt,
		Quota:         p.Quota,
		Attempts:      p.Attempts,
		Deterministic: p.Deterministic,
		HasFixtures:   r.Fixtures != nil,
		Pots:          newPotResponses(p.Groups),
	}
	for _, e := range p.Entries {
		resp.Entries = append(resp.Entries, newEntryResponse(e))
	}
	for _, m := range p.Edges {
		resp.Matches = append(resp.Matches, matchResponse{TeamA: p.Teams[m.A].ID, TeamB: p.Teams[m.B].ID})
	}
	return resp
}

func newFixturesResponse(drawID string, result *schedule.Result) fixturesResponse {
	resp := fixturesResponse{DrawID: drawID, Restarts: result.Restarts, Rebuilt: result.Rebuilt}
	for _, w := range result.Weeks {
		week := weekResponse{Week: w.Number}
		for _, f := range w.Fixtures {
			week.Fixtures = append(week.Fixtures, fixtureResponse{
				Day:   f.Day,
				Time:  f.Time,
				TeamA: newTeamResponse(f.TeamA),
				TeamB: newTeamResponse(f.TeamB),
			})
		}
		resp.Weeks = append(resp.Weeks, week)
	}
	return resp
}
