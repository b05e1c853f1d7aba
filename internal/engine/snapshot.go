package engine

import "encoding/json"

type Phase string

const (
	PhasePreChampSelect Phase = "PRE_CHAMP_SELECT"
	PhaseChampSelect    Phase = "CHAMP_SELECT"
	PhaseGameEnd        Phase = "GAME_END"
)

const gameEndSchema = "game_end"

type BannedChampion struct {
	ChampionID int `json:"championID"`
	PickTurn   int `json:"pickTurn"`
	TeamID     int `json:"teamID"`
}

type RosterEntry struct {
	ParticipantID int    `json:"participantID"`
	ChampionID    int    `json:"championID"`
	PickTurn      int    `json:"pickTurn"`
	DisplayName   string `json:"displayName"`
	TeamID        int    `json:"teamID,omitempty"`
}

// Snapshot is one line of a riot livestats file.
type Snapshot struct {
	Schema          string           `json:"rfc461Schema,omitempty"`
	Phase           Phase            `json:"gameState"`
	PickTurn        int              `json:"pickTurn"`
	Timestamp       string           `json:"rfc460Timestamp"`
	BannedChampions []BannedChampion `json:"bannedChampions"`
	TeamOne         []RosterEntry    `json:"teamOne"`
	TeamTwo         []RosterEntry    `json:"teamTwo"`
	WinningTeam     int              `json:"winningTeam,omitempty"`
	WinningTeamID   int              `json:"winningTeamID,omitempty"`
}

func DecodeSnapshot(line []byte) (Snapshot, error) {
	var snap Snapshot
	err := json.Unmarshal(line, &snap)
	return snap, err
}

func (s Snapshot) IsGameEnd() bool {
	return s.Phase == PhaseGameEnd || s.Schema == gameEndSchema
}

func (s Snapshot) IsDraft() bool {
	return s.Phase == PhaseChampSelect || s.Phase == PhasePreChampSelect
}

func (s Snapshot) WinnerTeamID() int {
	if s.WinningTeam > 0 {
		return s.WinningTeam
	}
	return s.WinningTeamID
}

func (s Snapshot) Roster(slot Slot) []RosterEntry {
	if slot == SlotTeamOne {
		return s.TeamOne
	}
	return s.TeamTwo
}
