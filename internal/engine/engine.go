package engine

import (
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/DoyleJ11/scrim-draft-analyzer/internal/champions"
	"github.com/DoyleJ11/scrim-draft-analyzer/internal/roles"
)

var ErrOpenStream = errors.New("open snapshot stream")
var ErrStreamRead = errors.New("read snapshot stream")

// Team is the map side. teamID 100 is always blue.
type Team string

const (
	TeamBlue Team = "blue"
	TeamRed  Team = "red"
)

const blueTeamID = 100

func TeamForID(teamID int) Team {
	if teamID == blueTeamID {
		return TeamBlue
	}
	return TeamRed
}

// Slot is the roster grouping as it appears in the telemetry, independent of side.
type Slot string

const (
	SlotTeamOne Slot = "teamOne"
	SlotTeamTwo Slot = "teamTwo"
)

var slots = [2]Slot{SlotTeamOne, SlotTeamTwo}

func SlotForTeamID(teamID int) Slot {
	if teamID == blueTeamID {
		return SlotTeamOne
	}
	return SlotTeamTwo
}

type Action string

const (
	ActionBan  Action = "ban"
	ActionPick Action = "pick"
)

// DraftAction is one deduplicated ban or pick. Pick-only fields are zero on bans.
type DraftAction struct {
	Type          Action         `json:"type"`
	PickTurn      int            `json:"pickTurn"`
	ChampionID    int            `json:"championId"`
	Champion      string         `json:"champion"`
	Team          Team           `json:"team"`
	Slot          Slot           `json:"slot,omitempty"`
	ParticipantID int            `json:"participantId,omitempty"`
	Player        string         `json:"player,omitempty"`
	Role          champions.Role `json:"role,omitempty"`
	Timestamp     string         `json:"timestamp"`
	Line          int            `json:"line"`
}

type banKey struct {
	championID int
	pickTurn   int
	teamID     int
}

// CompositionEntry is a participant's current champion within a slot.
type CompositionEntry struct {
	ParticipantID int
	ChampionID    int
	Champion      string
}

// State is the accumulator folded over a match's snapshots in stream order.
type State struct {
	TeamNames     map[Slot]string
	Compositions  map[Slot][]CompositionEntry
	Actions       []DraftAction
	WinningTeamID int

	seenBans  map[banKey]struct{}
	pickIndex map[int]int // participant id -> index in Actions
	compIndex map[int]int // participant id -> index in its slot's composition
}

// Namer resolves champion ids to display names.
type Namer interface {
	Name(id int) string
}

// Apply folds one decoded snapshot into the state.
func (s *State) Apply(snap Snapshot, line int, names Namer) {
	if snap.IsGameEnd() {
		if id := snap.WinnerTeamID(); id > 0 {
			s.WinningTeamID = id
		}
		return
	}
	if !snap.IsDraft() {
		return
	}

	for _, slot := range slots {
		s.captureTeamName(slot, snap.Roster(slot))
	}

	for _, ban := range snap.BannedChampions {
		key := banKey{championID: ban.ChampionID, pickTurn: ban.PickTurn, teamID: ban.TeamID}
		if _, seen := s.seenBans[key]; seen {
			continue
		}
		s.seenBans[key] = struct{}{}
		s.Actions = append(s.Actions, DraftAction{
			Type:       ActionBan,
			PickTurn:   ban.PickTurn,
			ChampionID: ban.ChampionID,
			Champion:   names.Name(ban.ChampionID),
			Team:       TeamForID(ban.TeamID),
			Timestamp:  snap.Timestamp,
			Line:       line,
		})
	}

	for _, slot := range slots {
		for _, p := range snap.Roster(slot) {
			if p.ChampionID <= 0 {
				continue
			}
			s.observePick(slot, p, snap.Timestamp, line, names)
		}
	}
}

func (s *State) observePick(slot Slot, p RosterEntry, timestamp string, line int, names Namer) {
	idx, known := s.pickIndex[p.ParticipantID]
	if !known {
		name := names.Name(p.ChampionID)
		s.pickIndex[p.ParticipantID] = len(s.Actions)
		s.compIndex[p.ParticipantID] = len(s.Compositions[slot])
		s.Compositions[slot] = append(s.Compositions[slot], CompositionEntry{
			ParticipantID: p.ParticipantID,
			ChampionID:    p.ChampionID,
			Champion:      name,
		})
		s.Actions = append(s.Actions, DraftAction{
			Type:          ActionPick,
			PickTurn:      p.PickTurn,
			ChampionID:    p.ChampionID,
			Champion:      name,
			Team:          pickTeam(slot, p),
			Slot:          slot,
			ParticipantID: p.ParticipantID,
			Player:        p.DisplayName,
			Timestamp:     timestamp,
			Line:          line,
		})
		return
	}

	pick := &s.Actions[idx]
	if pick.ChampionID == p.ChampionID {
		return
	}

	// Swap: the pick keeps its turn and log position.
	name := names.Name(p.ChampionID)
	pick.ChampionID = p.ChampionID
	pick.Champion = name
	pick.Timestamp = timestamp
	pick.Line = line

	comp := s.Compositions[pick.Slot]
	entry := &comp[s.compIndex[p.ParticipantID]]
	entry.ChampionID = p.ChampionID
	entry.Champion = name
}

func pickTeam(slot Slot, p RosterEntry) Team {
	if p.TeamID > 0 {
		return TeamForID(p.TeamID)
	}
	if slot == SlotTeamOne {
		return TeamBlue
	}
	return TeamRed
}

func (s *State) captureTeamName(slot Slot, roster []RosterEntry) {
	if s.TeamNames[slot] != "" || len(roster) == 0 {
		return
	}
	for _, p := range roster {
		if name := teamPrefix(p.DisplayName); name != "" {
			s.TeamNames[slot] = name
			return
		}
	}
}

// teamPrefix returns the team tag of a "TAG Player" display name.
func teamPrefix(displayName string) string {
	fields := strings.Fields(displayName)
	if len(fields) < 2 {
		return ""
	}
	return fields[0]
}

// Assigner resolves lanes for one team's composition.
type Assigner interface {
	Assign(members []roles.Member) (map[int]champions.Role, error)
}

// Finalize orders the log and resolves lanes. The state must not be applied
// to afterwards.
func (s *State) Finalize(resolver Assigner, logger *zap.Logger) *ParsedMatch {
	sort.SliceStable(s.Actions, func(i, j int) bool {
		return s.Actions[i].PickTurn < s.Actions[j].PickTurn
	})
	s.pickIndex = nil

	for _, slot := range slots {
		comp := s.Compositions[slot]
		if len(comp) == 0 {
			continue
		}
		members := make([]roles.Member, len(comp))
		for i, c := range comp {
			members[i] = roles.Member{ParticipantID: c.ParticipantID, ChampionName: c.Champion, ChampionID: c.ChampionID}
		}
		assigned, err := resolver.Assign(members)
		if err != nil {
			logger.Warn("lanes left unresolved",
				zap.String("slot", string(slot)), zap.Int("members", len(members)), zap.Error(err))
			continue
		}
		for i := range s.Actions {
			a := &s.Actions[i]
			if a.Type != ActionPick || a.Slot != slot {
				continue
			}
			if role, ok := assigned[a.ParticipantID]; ok {
				a.Role = role
			}
		}
	}

	return s.match()
}

func (s *State) match() *ParsedMatch {
	m := &ParsedMatch{
		Actions:  s.Actions,
		BlueBans: []string{},
		RedBans:  []string{},
		TeamOne:  TeamDraft{Name: s.teamName(SlotTeamOne), Picks: []TeamPick{}},
		TeamTwo:  TeamDraft{Name: s.teamName(SlotTeamTwo), Picks: []TeamPick{}},
	}

	for _, a := range s.Actions {
		switch a.Type {
		case ActionBan:
			if a.Team == TeamBlue {
				m.BlueBans = append(m.BlueBans, a.Champion)
			} else {
				m.RedBans = append(m.RedBans, a.Champion)
			}
		case ActionPick:
			pick := TeamPick{
				ParticipantID: a.ParticipantID,
				Player:        a.Player,
				Champion:      a.Champion,
				ChampionID:    a.ChampionID,
				Role:          a.Role,
			}
			if a.Slot == SlotTeamOne {
				m.TeamOne.Picks = append(m.TeamOne.Picks, pick)
			} else {
				m.TeamTwo.Picks = append(m.TeamTwo.Picks, pick)
			}
		}
	}

	if s.WinningTeamID > 0 {
		m.Winner = s.teamName(SlotForTeamID(s.WinningTeamID))
	}
	return m
}

func (s *State) teamName(slot Slot) string {
	if name := s.TeamNames[slot]; name != "" {
		return name
	}
	if slot == SlotTeamOne {
		return "Team1"
	}
	return "Team2"
}
