package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/DoyleJ11/scrim-draft-analyzer/internal/champions"
	"github.com/DoyleJ11/scrim-draft-analyzer/internal/engine"
)

const (
	banColumns  = 10
	pickColumns = 10
	laneColumns = 2 * len(champions.Roles)

	// Width is the number of columns in every row.
	Width = 4 + banColumns + pickColumns + 1 + laneColumns

	DateLayout  = "2006-01-02 15:04"
	UnknownDate = "Unknown"
)

const (
	colSeries = iota
	colDate
	colTeamOne
	colTeamTwo
	colBans
	colPicks  = colBans + banColumns
	colWinner = colPicks + pickColumns
	colLanes  = colWinner + 1
)

// WinnerColumn is the index of the winner column.
const WinnerColumn = colWinner

// Row is one positional report record.
type Row [Width]string

func (r Row) Strings() []string { return r[:] }

func (r Row) Values() []interface{} {
	out := make([]interface{}, len(r))
	for i, v := range r {
		out[i] = v
	}
	return out
}

// SeriesMeta is what the report needs to know about the series a match
// belongs to.
type SeriesMeta struct {
	ID          string
	ScheduledAt time.Time
}

func (m SeriesMeta) Date() string {
	if m.ScheduledAt.IsZero() {
		return UnknownDate
	}
	return m.ScheduledAt.UTC().Format(DateLayout)
}

// Format lays a parsed match out as a row. Bans and picks fill their
// columns by walking the tournament turn order, each step taking the next
// action of that side in log order.
func Format(meta SeriesMeta, m *engine.ParsedMatch) Row {
	var row Row
	row[colSeries] = meta.ID
	row[colDate] = meta.Date()
	row[colTeamOne] = m.TeamOne.Name
	row[colTeamTwo] = m.TeamTwo.Name

	fill(row[colBans:colPicks], engine.ActionBan, m.Actions)
	fill(row[colPicks:colWinner], engine.ActionPick, m.Actions)

	row[colWinner] = m.Winner

	lanes := row[colLanes:]
	for t, draft := range []engine.TeamDraft{m.TeamOne, m.TeamTwo} {
		for _, p := range draft.Picks {
			if p.Role == "" {
				continue
			}
			if i := p.Role.Index(); i >= 0 {
				lanes[t*len(champions.Roles)+i] = p.Champion
			}
		}
	}
	return row
}

func fill(cols []string, kind engine.Action, actions []engine.DraftAction) {
	queues := map[engine.Team][]engine.DraftAction{
		engine.TeamBlue: engine.ActionsFor(actions, engine.TeamBlue, kind),
		engine.TeamRed:  engine.ActionsFor(actions, engine.TeamRed, kind),
	}
	for i, step := range engine.Steps(kind) {
		if i >= len(cols) {
			return
		}
		q := queues[step.Team]
		if len(q) == 0 {
			continue
		}
		cols[i] = q[0].Champion
		queues[step.Team] = q[1:]
	}
}

// Header returns the column titles matching Format.
func Header() Row {
	var h Row
	h[colSeries] = "Series ID"
	h[colDate] = "Date"
	h[colTeamOne] = "Team 1"
	h[colTeamTwo] = "Team 2"
	for i, step := range engine.Steps(engine.ActionBan) {
		h[colBans+i] = fmt.Sprintf("Ban %d (%s)", i+1, sideLabel(step.Team))
	}
	for i, step := range engine.Steps(engine.ActionPick) {
		h[colPicks+i] = fmt.Sprintf("Pick %d (%s)", i+1, sideLabel(step.Team))
	}
	h[colWinner] = "Winner"
	for t, team := range []string{"Team 1", "Team 2"} {
		for i, role := range champions.Roles {
			h[colLanes+t*len(champions.Roles)+i] = team + " " + laneLabel(role)
		}
	}
	return h
}

func sideLabel(t engine.Team) string {
	if t == engine.TeamBlue {
		return "Blue"
	}
	return "Red"
}

func laneLabel(r champions.Role) string {
	switch r {
	case champions.RoleADC:
		return "ADC"
	case champions.RoleSupport:
		return "Support"
	}
	s := string(r)
	return strings.ToUpper(s[:1]) + s[1:]
}
