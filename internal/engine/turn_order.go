package engine

type TurnStep struct {
	Team   Team
	Action Action
}

// GameOrder is the tournament draft: 6 bans, 6 picks, 4 bans, 4 picks.
var GameOrder = []TurnStep{
	// Ban Phase 1
	{Team: TeamBlue, Action: ActionBan},
	{Team: TeamRed, Action: ActionBan},
	{Team: TeamBlue, Action: ActionBan},
	{Team: TeamRed, Action: ActionBan},
	{Team: TeamBlue, Action: ActionBan},
	{Team: TeamRed, Action: ActionBan},
	// Pick Phase 1
	{Team: TeamBlue, Action: ActionPick},
	{Team: TeamRed, Action: ActionPick},
	{Team: TeamRed, Action: ActionPick},
	{Team: TeamBlue, Action: ActionPick},
	{Team: TeamBlue, Action: ActionPick},
	{Team: TeamRed, Action: ActionPick},
	// Ban Phase 2
	{Team: TeamRed, Action: ActionBan},
	{Team: TeamBlue, Action: ActionBan},
	{Team: TeamRed, Action: ActionBan},
	{Team: TeamBlue, Action: ActionBan},
	// Pick Phase 2
	{Team: TeamRed, Action: ActionPick},
	{Team: TeamBlue, Action: ActionPick},
	{Team: TeamBlue, Action: ActionPick},
	{Team: TeamRed, Action: ActionPick},
}

// Steps returns the GameOrder steps of one kind, in draft order.
func Steps(kind Action) []TurnStep {
	var out []TurnStep
	for _, step := range GameOrder {
		if step.Action == kind {
			out = append(out, step)
		}
	}
	return out
}
