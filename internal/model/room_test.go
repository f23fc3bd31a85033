package model

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRoom_FillsDefaults(t *testing.T) {
	t.Parallel()

	room := NormalizeRoom(&Room{
		ID:                  "r1",
		TotalTeams:          0,
		MissionTimerMinutes: -5,
		Teams: map[int]*Team{
			2: {CurrentRound: 42},
			3: nil,
		},
	})

	assert.Equal(t, 1, room.TotalTeams)
	assert.Equal(t, 0, room.MissionTimerMinutes)
	require.Len(t, room.Teams, 2)

	two := room.Teams[2]
	assert.Equal(t, 2, two.ID)
	assert.Equal(t, LastRound, two.CurrentRound)
	assert.Equal(t, DefaultMembers(), two.Members)
	assert.NotNil(t, two.RoundInstructions)
	assert.NotNil(t, two.RoundTimes)
	assert.NotNil(t, two.MiniGameScores)
	assert.NotNil(t, two.HelpUsages)

	three := room.Teams[3]
	require.NotNil(t, three)
	assert.Equal(t, FirstRound, three.CurrentRound)
	assert.False(t, three.IsJoined)
}

func TestNormalizeRoom_NilTeamsAndEmptyEvent(t *testing.T) {
	t.Parallel()

	room := NormalizeRoom(&Room{ID: "r1", TotalTeams: 3})
	assert.NotNil(t, room.Teams)
	assert.Empty(t, room.Teams)

	room.Teams[1] = &Team{CurrentEvent: &TeamEvent{}}
	NormalizeRoom(room)
	assert.Nil(t, room.Teams[1].CurrentEvent)
}

func TestNormalizeRoom_HelpCountNeverBelowUsages(t *testing.T) {
	t.Parallel()

	now := time.Now()
	room := NormalizeRoom(&Room{
		ID:         "r1",
		TotalTeams: 1,
		Teams: map[int]*Team{1: {
			HelpUsages: []HelpUsage{{Round: 1, UsedAt: now}, {Round: 2, UsedAt: now}},
		}},
	})
	assert.Equal(t, 2, room.Teams[1].HelpCount)
}

func TestRoomClone_IsDeep(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(15 * time.Minute)
	orig := NormalizeRoom(&Room{
		ID:               "r1",
		TotalTeams:       2,
		MissionStartTime: &start,
		Teams: map[int]*Team{1: {
			Members:           NormalizeMembers([]Member{{Role: RoleLeader, Name: "Ada"}}),
			RoundInstructions: map[int]string{2: "custom"},
			CurrentEvent:      &TeamEvent{Type: EventBreak, StartedAt: start, EndTime: &end},
		}},
	})

	cp := orig.Clone()
	if diff := cmp.Diff(orig, cp); diff != "" {
		t.Fatalf("clone differs (-orig +clone):\n%s", diff)
	}

	cp.Teams[1].Members[0].Name = "Bob"
	cp.Teams[1].RoundInstructions[2] = "changed"
	*cp.Teams[1].CurrentEvent.EndTime = end.Add(time.Hour)
	*cp.MissionStartTime = start.Add(time.Hour)

	assert.Equal(t, "Ada", orig.Teams[1].Members[0].Name)
	assert.Equal(t, "custom", orig.Teams[1].RoundInstructions[2])
	assert.Equal(t, end, *orig.Teams[1].CurrentEvent.EndTime)
	assert.Equal(t, start, *orig.MissionStartTime)
}

func TestRoomReset_KeepsIdentity(t *testing.T) {
	t.Parallel()

	created := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	room := &Room{
		ID:             "r1",
		GroupName:      "Ward 3",
		IndustryType:   "healthcare",
		TotalTeams:     4,
		MembersPerTeam: 6,
		MissionStarted: true,
		Teams:          map[int]*Team{1: NewTeam(1)},
		CreatedAt:      created,
	}

	reset := room.Reset()
	assert.Equal(t, "r1", reset.ID)
	assert.Equal(t, "Ward 3", reset.GroupName)
	assert.Equal(t, 4, reset.TotalTeams)
	assert.Equal(t, created, reset.CreatedAt)
	assert.False(t, reset.MissionStarted)
	assert.Empty(t, reset.Teams)
}

func TestNormalizeMembers(t *testing.T) {
	t.Parallel()

	members := NormalizeMembers([]Member{
		{Role: RoleRecorder, Name: "  Kim "},
		{Role: RoleLeader, Name: "Ada"},
		{Role: "juggler", Name: "Nope"},
		{Role: RoleNavigator, Name: "   "},
	})

	require.Len(t, members, len(Roles))
	assert.Equal(t, Member{Role: RoleLeader, Name: "Ada"}, members[0])
	assert.Equal(t, Member{Role: RoleNavigator, Name: UnassignedName}, members[1])
	assert.Equal(t, Member{Role: RoleRecorder, Name: "Kim"}, members[2])
	assert.Equal(t, "Ada", LeaderOf(members))
	assert.Equal(t, "", LeaderOf(DefaultMembers()))
}

func TestClampRound(t *testing.T) {
	t.Parallel()

	cases := map[int]int{-3: 1, 0: 1, 1: 1, 5: 5, 10: 10, 11: 10, 99: 10}
	for in, want := range cases {
		assert.Equal(t, want, ClampRound(in), "ClampRound(%d)", in)
	}
}
