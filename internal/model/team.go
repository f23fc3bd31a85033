package model

import (
	"strings"
	"time"
)

// Round bounds
const (
	FirstRound = 1
	LastRound  = 10
)

// Role is one of the fixed member slots of a team.
type Role string

const (
	RoleLeader       Role = "leader"
	RoleNavigator    Role = "navigator"
	RoleRecorder     Role = "recorder"
	RoleTimekeeper   Role = "timekeeper"
	RoleCommunicator Role = "communicator"
	RoleSupporter    Role = "supporter"
)

// Roles lists the canonical slot order.
var Roles = []Role{RoleLeader, RoleNavigator, RoleRecorder, RoleTimekeeper, RoleCommunicator, RoleSupporter}

// UnassignedName fills role slots nobody has taken.
const UnassignedName = "(unassigned)"

// Member is a single role slot.
type Member struct {
	Role Role   `json:"role" bson:"role"`
	Name string `json:"name" bson:"name"`
}

// HelpUsage records one use of the hint/help button.
type HelpUsage struct {
	Round  int       `json:"round" bson:"round"`
	UsedAt time.Time `json:"usedAt" bson:"usedAt"`
}

// Team is one group of learners within a room.
type Team struct {
	ID                int            `json:"id" bson:"id"`
	Members           []Member       `json:"members" bson:"members"`
	CurrentRound      int            `json:"currentRound" bson:"currentRound"`
	IsJoined          bool           `json:"isJoined" bson:"isJoined"`
	RoundInstructions map[int]string `json:"roundInstructions" bson:"roundInstructions"`
	HelpCount         int            `json:"helpCount" bson:"helpCount"`
	HelpUsages        []HelpUsage    `json:"helpUsages" bson:"helpUsages"`
	RoundTimes        map[int]int    `json:"roundTimes" bson:"roundTimes"` // seconds per round
	TotalBonusTime    int            `json:"totalBonusTime" bson:"totalBonusTime"`
	MissionClearTime  *time.Time     `json:"missionClearTime,omitempty" bson:"missionClearTime,omitempty"`
	MiniGameScores    map[string]int `json:"miniGameScores" bson:"miniGameScores"`
	CurrentEvent      *TeamEvent     `json:"currentEvent,omitempty" bson:"currentEvent,omitempty"`
}

// NewTeam returns the default shape for a team that has not been joined yet.
func NewTeam(id int) *Team {
	t := &Team{ID: id}
	normalizeTeam(id, t)
	return t
}

// DefaultMembers returns every role slot filled with the unassigned sentinel.
func DefaultMembers() []Member {
	members := make([]Member, len(Roles))
	for i, role := range Roles {
		members[i] = Member{Role: role, Name: UnassignedName}
	}
	return members
}

// NormalizeMembers maps submitted members onto the canonical slots. Unknown roles
// are dropped and blank names fall back to the sentinel.
func NormalizeMembers(in []Member) []Member {
	byRole := make(map[Role]string, len(in))
	for _, m := range in {
		if name := strings.TrimSpace(m.Name); name != "" {
			byRole[m.Role] = name
		}
	}
	out := DefaultMembers()
	for i := range out {
		if name, ok := byRole[out[i].Role]; ok {
			out[i].Name = name
		}
	}
	return out
}

// LeaderName returns the name in the leader slot, or "" if unset.
func (t *Team) LeaderName() string {
	return LeaderOf(t.Members)
}

// IsCompleted reports whether the team cleared the final round.
func (t *Team) IsCompleted() bool {
	return t.CurrentRound == LastRound && t.MissionClearTime != nil
}

// ClampRound bounds r to the playable round range.
func ClampRound(r int) int {
	if r < FirstRound {
		return FirstRound
	}
	if r > LastRound {
		return LastRound
	}
	return r
}

// ValidRound reports whether r names a real round.
func ValidRound(r int) bool {
	return r >= FirstRound && r <= LastRound
}

// LeaderOf returns the leader slot name of a member list.
func LeaderOf(members []Member) string {
	for _, m := range members {
		if m.Role == RoleLeader && m.Name != UnassignedName {
			return m.Name
		}
	}
	return ""
}

// Clone deep-copies a team.
func (t *Team) Clone() *Team {
	if t == nil {
		return nil
	}
	out := *t
	if t.Members != nil {
		out.Members = make([]Member, len(t.Members))
		copy(out.Members, t.Members)
	}
	if t.HelpUsages != nil {
		out.HelpUsages = make([]HelpUsage, len(t.HelpUsages))
		copy(out.HelpUsages, t.HelpUsages)
	}
	out.RoundInstructions = cloneMap(t.RoundInstructions)
	out.RoundTimes = cloneMap(t.RoundTimes)
	out.MiniGameScores = cloneMap(t.MiniGameScores)
	if t.MissionClearTime != nil {
		c := *t.MissionClearTime
		out.MissionClearTime = &c
	}
	out.CurrentEvent = t.CurrentEvent.Clone()
	return &out
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	if in == nil {
		return nil
	}
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func normalizeTeam(id int, t *Team) {
	t.ID = id
	if len(t.Members) != len(Roles) {
		t.Members = NormalizeMembers(t.Members)
	}
	t.CurrentRound = ClampRound(t.CurrentRound)
	if t.RoundInstructions == nil {
		t.RoundInstructions = make(map[int]string)
	}
	if t.HelpUsages == nil {
		t.HelpUsages = []HelpUsage{}
	}
	if t.RoundTimes == nil {
		t.RoundTimes = make(map[int]int)
	}
	if t.MiniGameScores == nil {
		t.MiniGameScores = make(map[string]int)
	}
	if t.HelpCount < len(t.HelpUsages) {
		t.HelpCount = len(t.HelpUsages)
	}
	if t.CurrentEvent != nil && t.CurrentEvent.Type == "" {
		t.CurrentEvent = nil
	}
}
