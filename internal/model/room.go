package model

import "time"

// Room configuration limits
const (
	MinTeams          = 1
	MaxTeams          = 30
	MinMembersPerTeam = 2
	MaxMembersPerTeam = 12
)

// Room is one training session's full configuration and live state.
// It is persisted and broadcast as a single document.
type Room struct {
	ID                  string        `json:"id" bson:"_id"`
	GroupName           string        `json:"groupName" bson:"groupName"`
	IndustryType        string        `json:"industryType" bson:"industryType"`
	TotalTeams          int           `json:"totalTeams" bson:"totalTeams"`
	MembersPerTeam      int           `json:"membersPerTeam" bson:"membersPerTeam"`
	MissionStarted      bool          `json:"missionStarted" bson:"missionStarted"`
	MissionStartTime    *time.Time    `json:"missionStartTime,omitempty" bson:"missionStartTime,omitempty"`
	MissionTimerMinutes int           `json:"missionTimerMinutes,omitempty" bson:"missionTimerMinutes,omitempty"`
	Teams               map[int]*Team `json:"teams" bson:"teams"`
	CreatedAt           time.Time     `json:"createdAt" bson:"createdAt"`
}

// HasTeamID reports whether id is a valid team slot for this room.
func (r *Room) HasTeamID(id int) bool {
	return id >= 1 && id <= r.TotalTeams
}

// Team returns the team with the given id, or nil if it was never created.
func (r *Room) Team(id int) *Team {
	if r.Teams == nil {
		return nil
	}
	return r.Teams[id]
}

// EnsureTeam returns the team with the given id, creating the default shape if absent.
func (r *Room) EnsureTeam(id int) *Team {
	if r.Teams == nil {
		r.Teams = make(map[int]*Team)
	}
	t, ok := r.Teams[id]
	if !ok || t == nil {
		t = NewTeam(id)
		r.Teams[id] = t
	}
	return t
}

// Reset returns the empty-default shape of this room. Identity and creation-time
// configuration are kept; teams and mission progress are dropped.
func (r *Room) Reset() *Room {
	return &Room{
		ID:             r.ID,
		GroupName:      r.GroupName,
		IndustryType:   r.IndustryType,
		TotalTeams:     r.TotalTeams,
		MembersPerTeam: r.MembersPerTeam,
		Teams:          make(map[int]*Team),
		CreatedAt:      r.CreatedAt,
	}
}

// Clone returns a deep copy so snapshots handed to subscribers never alias stored state.
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	out := *r
	if r.MissionStartTime != nil {
		t := *r.MissionStartTime
		out.MissionStartTime = &t
	}
	if r.Teams != nil {
		out.Teams = make(map[int]*Team, len(r.Teams))
		for id, t := range r.Teams {
			out.Teams[id] = t.Clone()
		}
	}
	return &out
}

// CloneRooms deep-copies a room set.
func CloneRooms(rooms map[string]*Room) map[string]*Room {
	out := make(map[string]*Room, len(rooms))
	for id, r := range rooms {
		out[id] = r.Clone()
	}
	return out
}

// NormalizeRoom applies the named defaults for every optional field of a room
// read from storage. It mutates and returns r.
func NormalizeRoom(r *Room) *Room {
	if r == nil {
		return nil
	}
	if r.Teams == nil {
		r.Teams = make(map[int]*Team)
	}
	if r.TotalTeams < MinTeams {
		r.TotalTeams = MinTeams
	}
	if r.MissionTimerMinutes < 0 {
		r.MissionTimerMinutes = 0
	}
	for id, t := range r.Teams {
		if t == nil {
			t = NewTeam(id)
			r.Teams[id] = t
		}
		normalizeTeam(id, t)
	}
	return r
}
