package roles

import (
	"errors"
	"slices"

	"github.com/DoyleJ11/scrim-draft-analyzer/internal/champions"
)

var ErrTooManyMembers = errors.New("team has more members than lanes")

const (
	primaryScore     = 10
	rankStep         = 2
	offAffinityScore = 1
	slotBonus        = 3
	noDataSlotMatch  = 5
	noDataSlotMiss   = 2
)

type Member struct {
	ParticipantID int
	ChampionName  string
	ChampionID    int
}

// Preferences supplies ranked lanes for a champion. *champions.Catalog
// satisfies it.
type Preferences interface {
	Preferences(name string, id int) []champions.Role
}

type Resolver struct {
	prefs Preferences
}

func NewResolver(prefs Preferences) *Resolver {
	return &Resolver{prefs: prefs}
}

// Assign maps each member's participant id to a lane by exhaustive search
// over injective member→lane assignments. A member placed on a lane outside
// its non-empty preference list is reported with the empty role.
func (r *Resolver) Assign(members []Member) (map[int]champions.Role, error) {
	if len(members) > len(champions.Roles) {
		return nil, ErrTooManyMembers
	}
	out := make(map[int]champions.Role, len(members))
	if len(members) == 0 {
		return out, nil
	}

	prefs := make([][]champions.Role, len(members))
	for i, m := range members {
		prefs[i] = r.prefs.Preferences(m.ChampionName, m.ChampionID)
	}

	best := search(members, prefs)

	for i, m := range members {
		role := champions.Roles[best[i]]
		if len(prefs[i]) > 0 && !slices.Contains(prefs[i], role) {
			role = ""
		}
		out[m.ParticipantID] = role
	}
	return out, nil
}

// search walks assignments in lexicographic order of lane indices and keeps
// the first strictly-highest total.
func search(members []Member, prefs [][]champions.Role) []int {
	var (
		best      []int
		bestScore = -1
		current   = make([]int, len(members))
		used      [len(champions.Roles)]bool
	)

	var walk func(depth, total int)
	walk = func(depth, total int) {
		if depth == len(members) {
			if total > bestScore {
				bestScore = total
				best = slices.Clone(current)
			}
			return
		}
		for lane := range champions.Roles {
			if used[lane] {
				continue
			}
			used[lane] = true
			current[depth] = lane
			walk(depth+1, total+score(members[depth], prefs[depth], lane))
			used[lane] = false
		}
	}
	walk(0, 0)

	return best
}

func score(m Member, prefs []champions.Role, lane int) int {
	onSlot := conventionalSlot(m.ParticipantID) == lane

	if len(prefs) == 0 {
		if onSlot {
			return noDataSlotMatch
		}
		return noDataSlotMiss
	}

	s := offAffinityScore
	if i := slices.Index(prefs, champions.Roles[lane]); i >= 0 {
		s = primaryScore - rankStep*i
	}
	if onSlot {
		s += slotBonus
	}
	return s
}

// conventionalSlot is the lane livestats rosters list a participant in:
// ids 1-5 and 6-10 run top to support.
func conventionalSlot(participantID int) int {
	if participantID <= 0 {
		return -1
	}
	return (participantID - 1) % len(champions.Roles)
}
