package engine

func NewState() *State {
	return &State{
		TeamNames:    map[Slot]string{},
		Compositions: map[Slot][]CompositionEntry{SlotTeamOne: {}, SlotTeamTwo: {}},
		Actions:      []DraftAction{},
		seenBans:     map[banKey]struct{}{},
		pickIndex:    map[int]int{},
		compIndex:    map[int]int{},
	}
}

func CountActions(actions []DraftAction, kind Action) int {
	n := 0
	for _, a := range actions {
		if a.Type == kind {
			n++
		}
	}
	return n
}

// ActionsFor returns the team's actions of one kind, keeping log order.
func ActionsFor(actions []DraftAction, team Team, kind Action) []DraftAction {
	var out []DraftAction
	for _, a := range actions {
		if a.Type == kind && a.Team == team {
			out = append(out, a)
		}
	}
	return out
}
